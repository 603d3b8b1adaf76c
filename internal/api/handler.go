// Package api provides the HTTP handlers of the dataset and grid REST API.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gridbase/internal/domain"
)

// DatasetService is the dataset management surface used by the handlers.
type DatasetService interface {
	Create(ctx context.Context, req domain.CreateDatasetRequest) (*domain.Dataset, error)
	Get(ctx context.Context, id string) (*domain.Dataset, error)
	List(ctx context.Context, page domain.PageRequest) ([]domain.Dataset, int64, error)
	Update(ctx context.Context, id string, req domain.UpdateDatasetRequest) (*domain.Dataset, error)
	Delete(ctx context.Context, id string) error
}

// RecordService is the grid surface used by the handlers.
type RecordService interface {
	GetGrid(ctx context.Context, q domain.GridQuery) (*domain.GridResult, error)
	GetGridRecord(ctx context.Context, q domain.GridRecordQuery) (domain.Record, error)
	LookupRecord(ctx context.Context, datasetID, recordID string) (domain.Record, error)
	CreateRecord(ctx context.Context, datasetID string, payload map[string]any) (*domain.CreateRecordResult, error)
	UpdateRecord(ctx context.Context, datasetID, recordID string, payload map[string]any) (*domain.MutationResult, error)
	DeleteRecord(ctx context.Context, datasetID, recordID string, force bool) (*domain.MutationResult, error)
}

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Handler serves the dataset and grid routes.
type Handler struct {
	datasets DatasetService
	records  RecordService
	logger   *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(datasets DatasetService, records RecordService, logger *slog.Logger) *Handler {
	return &Handler{datasets: datasets, records: records, logger: logger.With("component", "api")}
}

// Mount registers the routes on r.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/datasets", h.listDatasets)
	r.Post("/dataset", h.createDataset)
	r.Route("/dataset/{id}", func(r chi.Router) {
		r.Get("/", h.getDataset)
		r.Put("/", h.updateDataset)
		r.Delete("/", h.deleteDataset)
	})

	r.Route("/grid/{dataSetId}", func(r chi.Router) {
		r.Get("/", h.getGrid)
		r.Post("/", h.createRecord)
		r.Get("/{recordId}", h.getRecord)
		r.Put("/{recordId}", h.updateRecord)
		r.Patch("/{recordId}", h.updateRecord)
		r.Delete("/{recordId}", h.deleteRecord)
	})
}

// Routes returns a router serving only the API routes.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	h.Mount(r)
	return r
}

// Pinger reports storage health.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Health answers 200 when db responds and 503 otherwise.
func Health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.ErrValidation("invalid request body: %v", err)
	}
	return nil
}
