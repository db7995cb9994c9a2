package handler

import (
	"net/http"

	"storefront-api/internal/logger"
	"storefront-api/internal/middleware"
	"storefront-api/internal/service"
	"storefront-api/pkg/response"

	"github.com/sirupsen/logrus"
)

// MarketHandler handles accounts, inventories and the market.
type MarketHandler struct {
	market *service.MarketService
	log    *logrus.Entry
}

// NewMarketHandler creates a new market handler.
func NewMarketHandler(market *service.MarketService, log logrus.FieldLogger) *MarketHandler {
	return &MarketHandler{
		market: market,
		log:    logger.Component(log, "handler"),
	}
}

// GetAccount handles GET /api/v1/account
func (h *MarketHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())

	acct, err := h.market.Account(r.Context(), sess.UserID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	response.OK(w, acct)
}

// GetInventory handles GET /api/v1/account/inventory
func (h *MarketHandler) GetInventory(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())

	items, err := h.market.Inventory(r.Context(), sess.UserID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	response.OK(w, map[string]interface{}{
		"user_id": sess.UserID,
		"items":   items,
	})
}
