package handler

import (
	"net/http"

	"storefront-api/internal/logger"
	"storefront-api/internal/service"
	"storefront-api/pkg/apierror"
	"storefront-api/pkg/response"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// RowHandler serves cached row snapshots.
type RowHandler struct {
	rows *service.RowCache
	log  *logrus.Entry
}

// NewRowHandler creates a new row handler.
func NewRowHandler(rows *service.RowCache, log logrus.FieldLogger) *RowHandler {
	return &RowHandler{rows: rows, log: logger.Component(log, "handler")}
}

// GetRow handles GET /api/v1/rows/{row_id}
func (h *RowHandler) GetRow(w http.ResponseWriter, r *http.Request) {
	rowID := chi.URLParam(r, "row_id")

	payload, err := h.rows.Cached(r.Context(), rowID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if payload == nil {
		response.Error(w, apierror.NotFound("row not cached"))
		return
	}
	response.Raw(w, payload)
}
