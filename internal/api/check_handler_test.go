package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datacheck/domain/core"
	"datacheck/domain/tabular"
	"datacheck/internal/config"
	"datacheck/internal/errors"
)

// memoryRepo is an in-memory check result store for handler tests
type memoryRepo struct {
	created []*tabular.CheckResult
}

func (r *memoryRepo) Create(_ context.Context, result *tabular.CheckResult) error {
	r.created = append(r.created, result)
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id core.ResultID) (*tabular.CheckResult, error) {
	for _, result := range r.created {
		if result.ID == id {
			return result, nil
		}
	}
	return nil, errors.NotFound("check result")
}

func (r *memoryRepo) ListRecent(_ context.Context, limit int) ([]*tabular.CheckResult, error) {
	out := r.created
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Checks: config.ChecksConfig{
			NShowTop:          5,
			IQRScale:          1.5,
			IQRPercentileLow:  25,
			IQRPercentileHigh: 75,
			WithDisplay:       true,
		},
	}
}

func postOutliers(t *testing.T, server *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/checks/property-outliers", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	return rec
}

const scanBody = `{
	"dataset": {
		"name": "demo",
		"properties": [
			{"name": "length", "type": "numeric", "values": [10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 500]}
		]
	}
}`

func TestRunPropertyOutliers(t *testing.T) {
	repo := &memoryRepo{}
	server := NewServer(testConfig(), repo)

	rec := postOutliers(t, server, scanBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp outliersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "property_outliers", resp.Check)
	assert.Equal(t, "demo", resp.Dataset)

	res, ok := resp.Results["length"]
	require.True(t, ok)
	require.NotNil(t, res.Outliers)
	assert.Equal(t, []string{"11"}, res.Outliers.Indices)

	require.NotNil(t, resp.Display)
	require.Len(t, resp.Display.Plots, 1)
	assert.Equal(t, "length", resp.Display.Plots[0].Property)

	// The run was persisted under the returned ID
	require.Len(t, repo.created, 1)
	assert.Equal(t, resp.ID, repo.created[0].ID)
}

func TestRunPropertyOutliersWithoutDisplay(t *testing.T) {
	server := NewServer(testConfig(), nil)

	body := `{
		"dataset": {
			"name": "demo",
			"properties": [{"name": "length", "type": "numeric", "values": [1, 2, 3, 4, 5, 6, 7, 8, 9, 10]}]
		},
		"with_display": false
	}`
	rec := postOutliers(t, server, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp outliersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(t, resp.Display)
}

func TestRunPropertyOutliersRejectsBadJSON(t *testing.T) {
	server := NewServer(testConfig(), nil)
	rec := postOutliers(t, server, `{"dataset":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunPropertyOutliersMalformedProperty(t *testing.T) {
	server := NewServer(testConfig(), nil)
	body := `{
		"dataset": {
			"name": "demo",
			"properties": [{"name": "length", "type": "numeric", "values": ["tall", "short"]}]
		}
	}`
	rec := postOutliers(t, server, body)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
}

func TestResultEndpoints(t *testing.T) {
	repo := &memoryRepo{}
	server := NewServer(testConfig(), repo)

	rec := postOutliers(t, server, scanBody)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, repo.created, 1)
	id := repo.created[0].ID.String()

	req := httptest.NewRequest(http.MethodGet, "/api/results/"+id, nil)
	getRec := httptest.NewRecorder()
	server.Router().ServeHTTP(getRec, req)
	require.Equal(t, http.StatusOK, getRec.Code)

	var fetched tabular.CheckResult
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &fetched))
	assert.Equal(t, "property_outliers", fetched.Check)

	req = httptest.NewRequest(http.MethodGet, "/api/results/missing", nil)
	missRec := httptest.NewRecorder()
	server.Router().ServeHTTP(missRec, req)
	assert.Equal(t, http.StatusNotFound, missRec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/results?limit=10", nil)
	listRec := httptest.NewRecorder()
	server.Router().ServeHTTP(listRec, req)
	require.Equal(t, http.StatusOK, listRec.Code)

	var listed []tabular.CheckResult
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &listed))
	assert.Len(t, listed, 1)
}

func TestResultEndpointsAbsentWithoutRepository(t *testing.T) {
	server := NewServer(testConfig(), nil)
	req := httptest.NewRequest(http.MethodGet, "/api/results", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
