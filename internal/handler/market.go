package handler

import (
	"net/http"
	"strconv"

	"storefront-api/internal/middleware"
	"storefront-api/pkg/apierror"
	"storefront-api/pkg/response"
)

// ListItemRequest offers an owned item on the market.
type ListItemRequest struct {
	ItemID string `json:"item_id"`
	Price  int64  `json:"price"`
}

// PurchaseRequest buys a listing at the price the buyer saw.
type PurchaseRequest struct {
	ItemID   string `json:"item_id"`
	SellerID string `json:"seller_id"`
	Price    int64  `json:"price"`
}

// GetListings handles GET /api/v1/market/listings
func (h *MarketHandler) GetListings(w http.ResponseWriter, r *http.Request) {
	limit := int64(100)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 {
			response.Error(w, apierror.ValidationError("invalid query",
				apierror.FieldError{Field: "limit", Message: "must be a positive integer"}))
			return
		}
		limit = n
	}

	listings, err := h.market.Listings(r.Context(), limit)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	response.OK(w, listings)
}

// CreateListing handles POST /api/v1/market/listings
func (h *MarketHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())

	var req ListItemRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}

	var details []apierror.FieldError
	if req.ItemID == "" {
		details = append(details, apierror.FieldError{Field: "item_id", Message: "is required"})
	}
	if req.Price < 0 {
		details = append(details, apierror.FieldError{Field: "price", Message: "must not be negative"})
	}
	if len(details) > 0 {
		response.Error(w, apierror.ValidationError("invalid listing", details...))
		return
	}

	if err := h.market.ListItem(r.Context(), req.ItemID, sess.UserID, req.Price); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	response.Created(w, map[string]interface{}{
		"item_id":   req.ItemID,
		"seller_id": sess.UserID,
		"price":     req.Price,
	})
}

// Purchase handles POST /api/v1/market/purchases
func (h *MarketHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())

	var req PurchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if req.ItemID == "" || req.SellerID == "" {
		response.Error(w, apierror.BadRequest("item_id and seller_id are required"))
		return
	}

	if err := h.market.PurchaseItem(r.Context(), sess.UserID, req.ItemID, req.SellerID, req.Price); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	response.OK(w, map[string]interface{}{
		"status":    "purchased",
		"item_id":   req.ItemID,
		"seller_id": req.SellerID,
		"price":     req.Price,
	})
}
