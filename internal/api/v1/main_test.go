package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ghost-crew/internal/config"
	"ghost-crew/internal/models"
	"ghost-crew/internal/repository"
	"ghost-crew/internal/repository/memory"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("api-test-secret")

type fixture struct {
	app        *fiber.App
	store      repository.Store
	uploadDir  string
	today      string
	worker     *models.User
	other      *models.User
	supervisor *models.User
	admin      *models.User
	yacht      *models.Yacht
	job        models.Job
}

// newFixture builds the app over an in-memory store holding four users, one
// yacht and one pending job assigned to the worker for today.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	createUser := func(name, pin string, role models.Role) *models.User {
		u, err := store.Users.Create(ctx, models.User{Name: name, PIN: pin, Role: role})
		require.NoError(t, err)
		return u
	}

	f := &fixture{
		store:      store,
		uploadDir:  t.TempDir(),
		today:      time.Now().UTC().Format("2006-01-02"),
		worker:     createUser("Sarah Interior", "1111", models.RoleWorker),
		other:      createUser("Mike Exterior", "2222", models.RoleWorker),
		supervisor: createUser("John Doe", "1234", models.RoleSupervisor),
		admin:      createUser("Jane Smith", "5678", models.RoleAdmin),
	}

	yacht, err := store.Yachts.Create(ctx, models.Yacht{Name: "Sea Breeze", Model: "Sunseeker 76"})
	require.NoError(t, err)
	f.yacht = yacht

	assignee := f.worker.ID
	jobs, err := store.Jobs.InsertBatch(ctx, []models.Job{{YachtID: yacht.ID, AssignedTo: &assignee, ScheduledDate: f.today}})
	require.NoError(t, err)
	f.job = jobs[0]

	f.app = NewApp(&config.Dependencies{
		Store:     store,
		SecretKey: testSecret,
		TokenTTL:  time.Hour,
		UploadDir: f.uploadDir,
	})
	return f
}

// login goes through the real login route and returns the bearer token.
func (f *fixture) login(t *testing.T, pin string) string {
	t.Helper()
	resp, body := f.do(t, http.MethodPost, "/api/v1/login", "", map[string]string{"pin": pin})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	token, _ := body["data"].(map[string]interface{})["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func (f *fixture) raw(t *testing.T, req *http.Request, token string) *http.Response {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// do sends a JSON request and decodes the JSON answer.
func (f *fixture) do(t *testing.T, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp := f.raw(t, req, token)
	defer resp.Body.Close()

	var result map[string]interface{}
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &result), string(data))
	}
	return resp, result
}

func dataMap(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	m, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "data is not an object: %v", body)
	return m
}

func dataList(t *testing.T, body map[string]interface{}) []interface{} {
	t.Helper()
	l, ok := body["data"].([]interface{})
	require.True(t, ok, "data is not a list: %v", body)
	return l
}
