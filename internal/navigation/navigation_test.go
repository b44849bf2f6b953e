package navigation

import (
	"testing"

	"ghost-crew/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type viewer struct {
	authed bool
	role   models.Role
}

func (v viewer) IsAuthenticated() bool { return v.authed }
func (v viewer) Role() models.Role     { return v.role }

func TestResolve(t *testing.T) {
	anonymous := viewer{}
	worker := viewer{authed: true, role: models.RoleWorker}
	supervisor := viewer{authed: true, role: models.RoleSupervisor}
	admin := viewer{authed: true, role: models.RoleAdmin}

	tests := []struct {
		name string
		path string
		v    Viewer
		want string
	}{
		{"root goes to login", "/", anonymous, "/login"},
		{"root when signed in", "/", worker, "/jobs"},
		{"login when signed in", "/login", worker, "/jobs"},
		{"login when anonymous", "/login", anonymous, "/login"},
		{"jobs needs auth", "/jobs", anonymous, "/login"},
		{"jobs for worker", "/jobs", worker, "/jobs"},
		{"checklist needs auth", "/checklist/4", anonymous, "/login"},
		{"checklist for worker", "/checklist/4", worker, "/checklist/4"},
		{"review needs auth first", "/review/4", anonymous, "/login"},
		{"worker kept away from review", "/review/4", worker, "/jobs"},
		{"supervisor reviews", "/review/4", supervisor, "/review/4"},
		{"admin reviews", "/review/4", admin, "/review/4"},
		{"trailing slash", "/jobs/", worker, "/jobs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dest, err := Resolve(tt.path, tt.v)
			require.NoError(t, err)
			assert.Equal(t, tt.want, dest.Path)
		})
	}
}

func TestResolveParams(t *testing.T) {
	dest, err := Resolve("/checklist/42", viewer{authed: true, role: models.RoleWorker})
	require.NoError(t, err)
	assert.Equal(t, "checklist", dest.Route.Name)
	assert.False(t, dest.Redirected)
	id, err := dest.JobID()
	require.NoError(t, err)
	assert.Equal(t, 42, id)

	dest, err = Resolve("/review/42", viewer{authed: true, role: models.RoleWorker})
	require.NoError(t, err)
	assert.True(t, dest.Redirected)
	_, err = dest.JobID()
	assert.Error(t, err)

	dest, err = Resolve("/checklist/abc", viewer{authed: true})
	require.NoError(t, err)
	_, err = dest.JobID()
	assert.Error(t, err)
}

func TestResolveUnknown(t *testing.T) {
	for _, p := range []string{"/settings", "/checklist", "/review/1/extra"} {
		_, err := Resolve(p, viewer{authed: true, role: models.RoleAdmin})
		assert.ErrorIs(t, err, ErrNotFound, p)
	}
}
