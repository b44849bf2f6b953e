// Package navigation is the field client's route table and guard.
package navigation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"ghost-crew/internal/models"
)

var ErrNotFound = errors.New("no such screen")

type Route struct {
	Name               string
	Pattern            string
	Redirect           string
	RequiresAuth       bool
	RequiresSupervisor bool
}

var Routes = []Route{
	{Name: "root", Pattern: "/", Redirect: "/login"},
	{Name: "login", Pattern: "/login"},
	{Name: "jobs", Pattern: "/jobs", RequiresAuth: true},
	{Name: "checklist", Pattern: "/checklist/:jobId", RequiresAuth: true},
	{Name: "review", Pattern: "/review/:jobId", RequiresAuth: true, RequiresSupervisor: true},
}

// Viewer is the session state the guard looks at. *app.Store satisfies it.
type Viewer interface {
	IsAuthenticated() bool
	Role() models.Role
}

// Destination is where a navigation ends up after redirects and the guard.
type Destination struct {
	Route  Route
	Path   string
	Params map[string]string
	// Redirected is set when Path differs from the requested path.
	Redirected bool
}

// JobID returns the :jobId parameter as a number.
func (d Destination) JobID() (int, error) {
	raw, ok := d.Params["jobId"]
	if !ok {
		return 0, fmt.Errorf("route %s has no job id", d.Route.Name)
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid job id %q", raw)
	}
	return id, nil
}

func Match(path string) (Route, map[string]string, bool) {
	for _, r := range Routes {
		if params, ok := match(r.Pattern, path); ok {
			return r, params, true
		}
	}
	return Route{}, nil, false
}

func match(pattern, path string) (map[string]string, bool) {
	want := splitPath(pattern)
	got := splitPath(path)
	if len(want) != len(got) {
		return nil, false
	}
	params := map[string]string{}
	for i, seg := range want {
		if strings.HasPrefix(seg, ":") {
			if got[i] == "" {
				return nil, false
			}
			params[seg[1:]] = got[i]
			continue
		}
		if seg != got[i] {
			return nil, false
		}
	}
	return params, true
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// guard returns the path to send the viewer to instead of r, or "".
func guard(r Route, v Viewer) string {
	authed := v.IsAuthenticated()
	switch {
	case r.RequiresAuth && !authed:
		return "/login"
	case r.RequiresSupervisor && !v.Role().CanReview():
		return "/jobs"
	case r.Name == "login" && authed:
		return "/jobs"
	}
	return ""
}

// Resolve follows redirects and the guard from path until it settles.
func Resolve(path string, v Viewer) (Destination, error) {
	requested := path
	for hops := 0; hops < len(Routes); hops++ {
		route, params, ok := Match(path)
		if !ok {
			return Destination{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		next := route.Redirect
		if next == "" {
			next = guard(route, v)
		}
		if next == "" {
			return Destination{Route: route, Path: path, Params: params, Redirected: path != requested}, nil
		}
		path = next
	}
	return Destination{}, fmt.Errorf("redirect loop resolving %s", requested)
}
