package v1

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewRequiresSupervisor(t *testing.T) {
	f := newFixture(t)
	worker := f.login(t, "1111")

	for _, path := range []string{"/api/v1/review", fmt.Sprintf("/api/v1/review/%d", f.job.ID)} {
		resp, body := f.do(t, http.MethodGet, path, worker, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, path)
		assert.Equal(t, "Forbidden", body["message"])
	}
	resp, _ := f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/review/%d", f.job.ID), worker, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestApproveCompletedJob(t *testing.T) {
	f := newFixture(t)
	worker := f.login(t, "1111")
	supervisor := f.login(t, "1234")
	reviewPath := fmt.Sprintf("/api/v1/review/%d", f.job.ID)

	// Pending jobs cannot be signed off.
	resp, _ := f.do(t, http.MethodPost, reviewPath, supervisor, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPut, "/api/v1/task-completions", worker, map[string]interface{}{"job_id": f.job.ID, "task_id": "galley_clean"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = f.do(t, http.MethodPost, "/api/v1/issues", worker, map[string]interface{}{"job_id": f.job.ID, "description": "Low on cleaning spray"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = f.do(t, http.MethodPut, fmt.Sprintf("/api/v1/jobs/%d/finish", f.job.ID), worker, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, body := f.do(t, http.MethodGet, "/api/v1/review", supervisor, nil)
	queue := dataList(t, body)
	require.Len(t, queue, 1)
	assert.Equal(t, float64(f.job.ID), queue[0].(map[string]interface{})["id"])

	resp, body = f.do(t, http.MethodGet, reviewPath, supervisor, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	detail := dataMap(t, body)
	assert.Len(t, detail["checklist"], 10)
	assert.Len(t, detail["completions"], 1)
	assert.Len(t, detail["issues"], 1)

	resp, body = f.do(t, http.MethodPost, reviewPath, supervisor, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	approved := dataMap(t, body)
	assert.Equal(t, "reviewed", approved["status"])
	assert.Equal(t, float64(f.supervisor.ID), approved["reviewed_by"])

	resp, _ = f.do(t, http.MethodPost, reviewPath, supervisor, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Reviewed work is frozen.
	resp, _ = f.do(t, http.MethodPut, "/api/v1/task-completions", worker, map[string]interface{}{"job_id": f.job.ID, "task_id": "bins_empty"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	_, body = f.do(t, http.MethodGet, "/api/v1/review", supervisor, nil)
	assert.Empty(t, dataList(t, body))
}
