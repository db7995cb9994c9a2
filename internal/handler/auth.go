package handler

import (
	"net/http"

	"storefront-api/internal/logger"
	"storefront-api/internal/middleware"
	"storefront-api/internal/model"
	"storefront-api/internal/service"
	"storefront-api/pkg/apierror"
	"storefront-api/pkg/response"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// SessionHandler handles login and per-session state.
type SessionHandler struct {
	sessions *service.SessionService
	log      *logrus.Entry
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(sessions *service.SessionService, log logrus.FieldLogger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		log:      logger.Component(log, "handler"),
	}
}

// LoginRequest represents the request body for opening a session.
type LoginRequest struct {
	UserID string `json:"user_id"`
}

// LoginResponse represents the response for a new session.
type LoginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

// Login handles POST /api/v1/sessions
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if req.UserID == "" {
		response.Error(w, apierror.BadRequest("user_id is required"))
		return
	}
	if err := service.ValidateUserID(req.UserID); err != nil {
		response.Error(w, toAPIError(err))
		return
	}

	token := h.sessions.GenerateToken()
	if err := h.sessions.Touch(r.Context(), token, req.UserID, ""); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	response.Created(w, LoginResponse{Token: token, UserID: req.UserID})
}

// MeResponse describes the current session.
type MeResponse struct {
	UserID  string       `json:"user_id"`
	History []model.View `json:"history"`
}

// Me handles GET /api/v1/sessions/me
func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())

	history, err := h.sessions.History(r.Context(), sess.Token)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	response.OK(w, MeResponse{UserID: sess.UserID, History: history})
}

// CartItemRequest sets the quantity of one cart item.
type CartItemRequest struct {
	Count int64 `json:"count"`
}

// Cart handles GET /api/v1/cart
func (h *SessionHandler) Cart(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())

	lines, err := h.sessions.Cart(r.Context(), sess.Token)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	response.OK(w, lines)
}

// SetCartItem handles PUT /api/v1/cart/{item_id}. A count of zero removes the item.
func (h *SessionHandler) SetCartItem(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())
	itemID := chi.URLParam(r, "item_id")

	var req CartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}

	if err := h.sessions.AddToCart(r.Context(), sess.Token, itemID, req.Count); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	response.NoContent(w)
}
