package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"storefront-api/internal/cache"
	"storefront-api/internal/logger"
	"storefront-api/internal/middleware"
	"storefront-api/internal/repository"
	"storefront-api/internal/service"
	"storefront-api/pkg/apierror"
	"storefront-api/pkg/response"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// ItemHandler serves item pages, recording each view in the session.
type ItemHandler struct {
	sessions *service.SessionService
	pages    *cache.RequestCache
	rows     repository.RowRepository
	log      *logrus.Entry
}

// NewItemHandler creates a new item handler.
func NewItemHandler(sessions *service.SessionService, pages *cache.RequestCache, rows repository.RowRepository, log logrus.FieldLogger) *ItemHandler {
	return &ItemHandler{
		sessions: sessions,
		pages:    pages,
		rows:     rows,
		log:      logger.Component(log, "handler"),
	}
}

// ItemPage is the rendered body of an item page.
type ItemPage struct {
	ItemID     string    `json:"item_id"`
	Data       string    `json:"data"`
	UpdatedAt  time.Time `json:"updated_at"`
	RenderedAt time.Time `json:"rendered_at"`
}

// GetItem handles GET /api/v1/items/{item_id}
func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())
	itemID := chi.URLParam(r, "item_id")

	if err := h.sessions.Touch(r.Context(), sess.Token, sess.UserID, itemID); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	page, err := h.pages.Get(r.Context(), itemRequest(r, itemID), func(ctx context.Context, _ string) ([]byte, error) {
		return h.render(ctx, itemID)
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	response.Raw(w, page)
}

func (h *ItemHandler) render(ctx context.Context, itemID string) ([]byte, error) {
	row, err := h.rows.FetchRow(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, apierror.NotFound("item not found")
	}

	return json.Marshal(ItemPage{
		ItemID:     row.ID,
		Data:       row.Data,
		UpdatedAt:  row.UpdatedAt.UTC(),
		RenderedAt: time.Now().UTC(),
	})
}

// itemRequest is the cache identity of an item page: the request path with
// the item id carried as the "item" query parameter.
func itemRequest(r *http.Request, itemID string) string {
	query := r.URL.Query()
	query.Set("item", itemID)
	u := url.URL{Path: r.URL.Path, RawQuery: query.Encode()}
	return u.String()
}
