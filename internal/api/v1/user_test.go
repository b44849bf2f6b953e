package v1

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"ghost-crew/internal/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestCreateUser(t *testing.T) {
	f := newFixture(t)
	newUser := map[string]string{"name": "Dana Deckhand", "pin": "4321", "role": "worker"}

	resp, _ := f.do(t, http.MethodPost, "/api/v1/users", f.login(t, "1234"), newUser)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	admin := f.login(t, "5678")
	resp, body := f.do(t, http.MethodPost, "/api/v1/users", admin, newUser)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.Equal(t, "Dana Deckhand", dataMap(t, body)["name"])

	resp, body = f.do(t, http.MethodPost, "/api/v1/users", admin, newUser)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "PIN already exists", body["message"])

	resp, _ = f.do(t, http.MethodPost, "/api/v1/users", admin, map[string]string{"name": "X", "pin": "4444", "role": "captain"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	f.login(t, "4321")
}

func TestListUsersForReviewers(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodGet, "/api/v1/users", f.login(t, "1111"), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := f.do(t, http.MethodGet, "/api/v1/users", f.login(t, "1234"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, dataList(t, body), 4)
}

func TestYachts(t *testing.T) {
	f := newFixture(t)
	admin := f.login(t, "5678")

	resp, body := f.do(t, http.MethodPost, "/api/v1/yachts", admin, map[string]string{"name": "Ocean Pearl", "berth": "B12"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)

	resp, _ = f.do(t, http.MethodPost, "/api/v1/yachts", admin, map[string]string{"name": "Ocean Pearl"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = f.do(t, http.MethodGet, "/api/v1/yachts", f.login(t, "1111"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	yachts := dataList(t, body)
	require.Len(t, yachts, 2)
	assert.Equal(t, "Ocean Pearl", yachts[0].(map[string]interface{})["name"])
}

func TestExportJobsReport(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodGet, "/api/v1/reports/jobs.xlsx", f.login(t, "1111"), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.raw(t, httptest.NewRequest(http.MethodGet, "/api/v1/reports/jobs.xlsx", nil), f.login(t, "1234"))
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")

	content, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	book, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer book.Close()

	rows, err := book.GetRows(report.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Sea Breeze", rows[1][2])
	assert.Equal(t, "Sarah Interior", rows[1][3])
	assert.Equal(t, "pending", rows[1][4])

	resp, _ = f.do(t, http.MethodGet, "/api/v1/reports/jobs.xlsx?from=2025-06-10&to=2025-06-01", f.login(t, "1234"), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
