package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"gridbase/internal/domain"
)

type fieldJSON struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	System    bool            `json:"system"`
	Position  int             `json:"position"`
	Settings  json.RawMessage `json:"settings,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type datasetJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	TableName   string          `json:"tableName"`
	Title       string          `json:"title"`
	PluralTitle string          `json:"pluralTitle"`
	Settings    json.RawMessage `json:"settings,omitempty"`
	Fields      []fieldJSON     `json:"fields"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type datasetListJSON struct {
	Data          []datasetJSON `json:"data"`
	Total         int64         `json:"total"`
	NextPageToken string        `json:"next_page_token,omitempty"`
}

type createDatasetBody struct {
	Name        string             `json:"name"`
	Title       string             `json:"title"`
	PluralTitle string             `json:"pluralTitle"`
	Settings    json.RawMessage    `json:"settings"`
	Fields      []domain.FieldSpec `json:"fields"`
}

type updateDatasetBody struct {
	Name        *string         `json:"name"`
	Title       *string         `json:"title"`
	PluralTitle *string         `json:"pluralTitle"`
	Settings    json.RawMessage `json:"settings"`
}

func datasetToAPI(ds *domain.Dataset) datasetJSON {
	out := datasetJSON{
		ID:          ds.ID,
		Name:        ds.Name,
		TableName:   ds.TableName,
		Title:       ds.Title,
		PluralTitle: ds.PluralTitle,
		Settings:    ds.Settings,
		Fields:      make([]fieldJSON, len(ds.Fields)),
		CreatedAt:   ds.CreatedAt,
		UpdatedAt:   ds.UpdatedAt,
	}
	for i, f := range ds.Fields {
		out.Fields[i] = fieldJSON{
			ID:        f.ID,
			Name:      f.Name,
			Type:      string(f.Type),
			Title:     f.Title,
			System:    f.System,
			Position:  f.Position,
			Settings:  f.Settings,
			CreatedAt: f.CreatedAt,
			UpdatedAt: f.UpdatedAt,
		}
	}
	return out
}

func (h *Handler) listDatasets(w http.ResponseWriter, r *http.Request) {
	page := domain.PageRequest{PageToken: r.URL.Query().Get("page_token")}
	if v := r.URL.Query().Get("max_results"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			h.writeError(w, r, domain.ErrValidation("max_results must be an integer"))
			return
		}
		page.MaxResults = n
	}

	list, total, err := h.datasets.List(r.Context(), page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := datasetListJSON{
		Data:          make([]datasetJSON, len(list)),
		Total:         total,
		NextPageToken: domain.NextPageToken(page.Offset(), page.Limit(), total),
	}
	for i := range list {
		out.Data[i] = datasetToAPI(&list[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) createDataset(w http.ResponseWriter, r *http.Request) {
	var body createDatasetBody
	if err := decodeBody(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	ds, err := h.datasets.Create(r.Context(), domain.CreateDatasetRequest{
		Name:        body.Name,
		Title:       body.Title,
		PluralTitle: body.PluralTitle,
		Settings:    body.Settings,
		Fields:      body.Fields,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, datasetToAPI(ds))
}

func (h *Handler) getDataset(w http.ResponseWriter, r *http.Request) {
	ds, err := h.datasets.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, datasetToAPI(ds))
}

func (h *Handler) updateDataset(w http.ResponseWriter, r *http.Request) {
	var body updateDatasetBody
	if err := decodeBody(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	ds, err := h.datasets.Update(r.Context(), chi.URLParam(r, "id"), domain.UpdateDatasetRequest{
		Name:        body.Name,
		Title:       body.Title,
		PluralTitle: body.PluralTitle,
		Settings:    body.Settings,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, datasetToAPI(ds))
}

func (h *Handler) deleteDataset(w http.ResponseWriter, r *http.Request) {
	if err := h.datasets.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
