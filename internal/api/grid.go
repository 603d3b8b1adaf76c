package api

import (
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"gridbase/internal/domain"
)

// parseGridQuery reads fields, filter, order (or sort), page and limit.
// Explicit page and limit values below 1 are floored to 1.
func parseGridQuery(datasetID string, q url.Values) (domain.GridQuery, error) {
	out := domain.GridQuery{
		DatasetID: datasetID,
		Fields:    domain.SplitList(q.Get("fields")),
	}

	filter, err := domain.ParseFilter([]byte(q.Get("filter")))
	if err != nil {
		return domain.GridQuery{}, err
	}
	out.Filter = filter

	order := q.Get("order")
	if order == "" {
		order = q.Get("sort")
	}
	out.Sort = domain.ParseSort(order)

	if out.Page, err = positiveParam(q, "page"); err != nil {
		return domain.GridQuery{}, err
	}
	if out.Limit, err = positiveParam(q, "limit"); err != nil {
		return domain.GridQuery{}, err
	}
	return out, nil
}

// positiveParam returns 0 when key is absent.
func positiveParam(q url.Values, key string) (int, error) {
	v := q.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, domain.ErrValidation("%s must be an integer", key)
	}
	return max(n, 1), nil
}

func boolParam(q url.Values, key string) (bool, error) {
	v := q.Get(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, domain.ErrValidation("%s must be a boolean", key)
	}
	return b, nil
}

func (h *Handler) getGrid(w http.ResponseWriter, r *http.Request) {
	q, err := parseGridQuery(chi.URLParam(r, "dataSetId"), r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.records.GetGrid(r.Context(), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) getRecord(w http.ResponseWriter, r *http.Request) {
	datasetID, recordID := chi.URLParam(r, "dataSetId"), chi.URLParam(r, "recordId")
	lookup, err := boolParam(r.URL.Query(), "lookup")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var rec domain.Record
	if lookup {
		rec, err = h.records.LookupRecord(r.Context(), datasetID, recordID)
	} else {
		rec, err = h.records.GetGridRecord(r.Context(), domain.GridRecordQuery{
			DatasetID: datasetID,
			RecordID:  recordID,
			Fields:    domain.SplitList(r.URL.Query().Get("fields")),
		})
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) createRecord(w http.ResponseWriter, r *http.Request) {
	payload, err := readPayload(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.records.CreateRecord(r.Context(), chi.URLParam(r, "dataSetId"), payload)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) updateRecord(w http.ResponseWriter, r *http.Request) {
	payload, err := readPayload(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.records.UpdateRecord(r.Context(), chi.URLParam(r, "dataSetId"), chi.URLParam(r, "recordId"), payload)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) deleteRecord(w http.ResponseWriter, r *http.Request) {
	force, err := boolParam(r.URL.Query(), "force")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.records.DeleteRecord(r.Context(), chi.URLParam(r, "dataSetId"), chi.URLParam(r, "recordId"), force)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func readPayload(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, domain.ErrValidation("read body: %v", err)
	}
	return domain.DecodePayload(data)
}
