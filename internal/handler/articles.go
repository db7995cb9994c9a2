package handler

import (
	"net/http"

	"storefront-api/internal/logger"
	"storefront-api/internal/middleware"
	"storefront-api/internal/service"
	"storefront-api/pkg/apierror"
	"storefront-api/pkg/response"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// ArticleHandler handles article posting, voting and listings.
type ArticleHandler struct {
	voting *service.VotingService
	log    *logrus.Entry
}

// NewArticleHandler creates a new article handler.
func NewArticleHandler(voting *service.VotingService, log logrus.FieldLogger) *ArticleHandler {
	return &ArticleHandler{voting: voting, log: logger.Component(log, "handler")}
}

// PostArticleRequest is the body of a new article.
type PostArticleRequest struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// GroupsRequest adds an article to and removes it from groups.
type GroupsRequest struct {
	Add    []string `json:"add"`
	Remove []string `json:"remove"`
}

// ListArticles handles GET /api/v1/articles?page=&order=
func (h *ArticleHandler) ListArticles(w http.ResponseWriter, r *http.Request) {
	page, err := pageParam(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	articles, err := h.voting.Articles(r.Context(), page, r.URL.Query().Get("order"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	total, err := h.voting.Count(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	response.JSONWithMeta(w, http.StatusOK, articles, page, service.ArticlesPerPage, total)
}

// PostArticle handles POST /api/v1/articles
func (h *ArticleHandler) PostArticle(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())

	var req PostArticleRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if req.Title == "" || req.Link == "" {
		response.Error(w, apierror.BadRequest("title and link are required"))
		return
	}

	id, err := h.voting.PostArticle(r.Context(), sess.UserID, req.Title, req.Link)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	response.Created(w, map[string]string{"id": id})
}

// Vote handles POST /api/v1/articles/{article_id}/vote
func (h *ArticleHandler) Vote(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())
	id := chi.URLParam(r, "article_id")

	counted, err := h.voting.VoteArticle(r.Context(), sess.UserID, id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	response.OK(w, map[string]interface{}{"id": id, "counted": counted})
}

// UpdateGroups handles PUT /api/v1/articles/{article_id}/groups
func (h *ArticleHandler) UpdateGroups(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "article_id")

	var req GroupsRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}

	if err := h.voting.UpdateGroups(r.Context(), id, req.Add, req.Remove); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	response.NoContent(w)
}

// GroupArticles handles GET /api/v1/groups/{group}/articles?page=&order=
func (h *ArticleHandler) GroupArticles(w http.ResponseWriter, r *http.Request) {
	page, err := pageParam(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	articles, err := h.voting.GroupArticles(r.Context(), chi.URLParam(r, "group"), page, r.URL.Query().Get("order"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	response.OK(w, articles)
}
