package models

type ChecklistTask struct {
	ID            string `json:"id"`
	Area          string `json:"area"`
	Title         string `json:"title"`
	RequiresPhoto bool   `json:"requires_photo"`
}

// ChecklistItem is a checklist task with the completion recorded for a job, if any.
type ChecklistItem struct {
	ChecklistTask
	Completion *TaskCompletion `json:"completion,omitempty"`
}

var DefaultChecklist = []ChecklistTask{
	{ID: "exterior_rinse", Area: "exterior", Title: "Freshwater rinse of hull and superstructure", RequiresPhoto: false},
	{ID: "deck_scrub", Area: "exterior", Title: "Scrub teak and non-skid decks", RequiresPhoto: true},
	{ID: "stainless_polish", Area: "exterior", Title: "Polish stainless rails and fittings", RequiresPhoto: false},
	{ID: "windows_exterior", Area: "exterior", Title: "Clean exterior glass and hatches", RequiresPhoto: false},
	{ID: "salon_vacuum", Area: "interior", Title: "Vacuum salon and cabins", RequiresPhoto: false},
	{ID: "galley_clean", Area: "interior", Title: "Clean and sanitise galley surfaces", RequiresPhoto: true},
	{ID: "heads_sanitise", Area: "interior", Title: "Sanitise heads and showers", RequiresPhoto: true},
	{ID: "linen_change", Area: "interior", Title: "Change bed linen and towels", RequiresPhoto: false},
	{ID: "bins_empty", Area: "interior", Title: "Empty bins and replace liners", RequiresPhoto: false},
	{ID: "final_walkthrough", Area: "general", Title: "Final walkthrough", RequiresPhoto: true},
}

func ChecklistTaskByID(id string) (ChecklistTask, bool) {
	for _, t := range DefaultChecklist {
		if t.ID == id {
			return t, true
		}
	}
	return ChecklistTask{}, false
}

// MergeChecklist pairs every checklist task with its completion from completions.
func MergeChecklist(tasks []ChecklistTask, completions []TaskCompletion) []ChecklistItem {
	byTask := make(map[string]TaskCompletion, len(completions))
	for _, c := range completions {
		byTask[c.TaskID] = c
	}
	items := make([]ChecklistItem, 0, len(tasks))
	for _, t := range tasks {
		item := ChecklistItem{ChecklistTask: t}
		if c, ok := byTask[t.ID]; ok {
			c := c
			item.Completion = &c
		}
		items = append(items, item)
	}
	return items
}
