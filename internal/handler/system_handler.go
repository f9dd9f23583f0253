package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"admin-console/internal/model"
	"admin-console/internal/service"
)

type SystemHandler struct {
	system *service.SystemService
}

func NewSystemHandler(system *service.SystemService) *SystemHandler {
	return &SystemHandler{system: system}
}

func (h *SystemHandler) Tables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.system.Tables(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, tables, nil)
}

func (h *SystemHandler) TableRecords(w http.ResponseWriter, r *http.Request) {
	query := model.TableRecordsQuery{
		Page:  queryInt(r, "page", 1),
		Limit: queryInt(r, "limit", 25),
	}

	records, meta, err := h.system.TableRecords(r.Context(), chi.URLParam(r, "table_name"), query)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, records, meta)
}

func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, h.system.Health(r.Context()), nil)
}
