package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"datacheck/adapters/display"
	"datacheck/adapters/stats/outliers"
	"datacheck/domain/core"
	"datacheck/domain/tabular"
	"datacheck/internal/config"
	"datacheck/internal/dataset"
	"datacheck/internal/errors"
	"datacheck/ports"
)

const checkNamePropertyOutliers = "property_outliers"

// CheckHandler runs checks over datasets supplied in the request body
type CheckHandler struct {
	defaults config.ChecksConfig
	repo     ports.CheckResultRepository
}

// NewCheckHandler creates a check handler; repo may be nil to disable persistence
func NewCheckHandler(defaults config.ChecksConfig, repo ports.CheckResultRepository) *CheckHandler {
	return &CheckHandler{defaults: defaults, repo: repo}
}

// propertyPayload is one property column in the request
type propertyPayload struct {
	Name   string               `json:"name"`
	Type   tabular.PropertyType `json:"type"`
	Values []any                `json:"values"`
}

// datasetPayload is the dataset in the request
type datasetPayload struct {
	Name       string            `json:"name"`
	Index      []string          `json:"index"`
	Texts      []string          `json:"texts"`
	Properties []propertyPayload `json:"properties"`
}

// outliersRequest carries the dataset and optional parameter overrides
type outliersRequest struct {
	Dataset        datasetPayload `json:"dataset"`
	Properties     []string       `json:"properties"`
	NShowTop       *int           `json:"n_show_top"`
	IQRPercentiles *[2]float64    `json:"iqr_percentiles"`
	IQRScale       *float64       `json:"iqr_scale"`
	WithDisplay    *bool          `json:"with_display"`
}

// displayPayload is the collected rendering output included in the response
type displayPayload struct {
	Plots      []tabular.OutlierPlot    `json:"plots"`
	NoOutliers []tabular.NoOutlierEntry `json:"no_outliers"`
}

type outliersResponse struct {
	tabular.CheckResult
	Display *displayPayload `json:"display,omitempty"`
}

// RunPropertyOutliers scans the posted dataset and responds with the
// per-property outcome
func (h *CheckHandler) RunPropertyOutliers(w http.ResponseWriter, r *http.Request) {
	var req outliersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.InvalidInput(fmt.Sprintf("invalid request body: %v", err)))
		return
	}

	ds, err := buildDataset(req.Dataset)
	if err != nil {
		writeError(w, err)
		return
	}

	cfg := h.scanConfig(req)
	collector := display.NewCollector()
	scanner := outliers.NewScanner(cfg)

	results, err := scanner.Run(ds, collector)
	if err != nil {
		writeError(w, err)
		return
	}

	result := tabular.CheckResult{
		ID:        core.ResultID(core.NewID()),
		Check:     checkNamePropertyOutliers,
		Dataset:   ds.Name(),
		Results:   results,
		CreatedAt: core.Now(),
	}

	if h.repo != nil {
		if err := h.repo.Create(r.Context(), &result); err != nil {
			log.Printf("[API] failed to persist check result %s: %v", result.ID, err)
		}
	}

	resp := outliersResponse{CheckResult: result}
	if cfg.WithDisplay {
		resp.Display = &displayPayload{
			Plots:      collector.Plots(),
			NoOutliers: collector.Summary(),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetResult returns a persisted check result by ID
func (h *CheckHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseResultID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errors.InvalidInput(err.Error()))
		return
	}
	result, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, errors.NotFound("check result"))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ListResults returns recent check results, newest first
func (h *CheckHandler) ListResults(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, errors.InvalidInput("limit must be a positive integer"))
			return
		}
		limit = parsed
	}
	results, err := h.repo.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(w, errors.DatabaseError(err.Error()))
		return
	}
	if results == nil {
		results = []*tabular.CheckResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

// scanConfig merges request overrides over the configured defaults
func (h *CheckHandler) scanConfig(req outliersRequest) outliers.Config {
	cfg := outliers.Config{
		Properties:     req.Properties,
		NShowTop:       h.defaults.NShowTop,
		IQRPercentiles: [2]float64{h.defaults.IQRPercentileLow, h.defaults.IQRPercentileHigh},
		IQRScale:       h.defaults.IQRScale,
		WithDisplay:    h.defaults.WithDisplay,
	}
	if req.NShowTop != nil {
		cfg.NShowTop = *req.NShowTop
	}
	if req.IQRPercentiles != nil {
		cfg.IQRPercentiles = *req.IQRPercentiles
	}
	if req.IQRScale != nil {
		cfg.IQRScale = *req.IQRScale
	}
	if req.WithDisplay != nil {
		cfg.WithDisplay = *req.WithDisplay
	}
	return cfg
}

// buildDataset turns the request payload into an in-memory dataset. JSON
// number lists arrive as []any and are converted to []float64; anything else
// is passed through so the scanner can report the contract violation.
func buildDataset(payload datasetPayload) (ports.Dataset, error) {
	props := make([]dataset.Property, 0, len(payload.Properties))
	for _, p := range payload.Properties {
		values := make([]any, len(p.Values))
		for i, v := range p.Values {
			if list, ok := v.([]any); ok {
				values[i] = toFloatList(list, v)
				continue
			}
			values[i] = v
		}
		props = append(props, dataset.Property{Name: p.Name, Type: p.Type, Values: values})
	}
	return dataset.NewTable(dataset.TableConfig{
		Name:       payload.Name,
		Index:      payload.Index,
		Texts:      payload.Texts,
		Properties: props,
	})
}

// toFloatList converts a JSON number list, returning the original value when
// any element is not a number
func toFloatList(list []any, original any) any {
	out := make([]float64, len(list))
	for i, elem := range list {
		f, ok := elem.(float64)
		if !ok {
			return original
		}
		out[i] = f
	}
	return out
}
