package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"storefront-api/internal/middleware"
	"storefront-api/internal/service"
	"storefront-api/internal/txn"
	"storefront-api/pkg/apierror"
	"storefront-api/pkg/response"

	"github.com/sirupsen/logrus"
)

// toAPIError maps service and transaction errors onto API errors.
func toAPIError(err error) *apierror.Error {
	var apiErr *apierror.Error
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, txn.ErrPreconditionFailed):
		return apierror.PreconditionFailed(err.Error())
	case errors.Is(err, txn.ErrTimeout):
		return apierror.Contended("")
	case errors.Is(err, service.ErrUnknownToken):
		return apierror.Unauthorized("Invalid or expired token")
	case errors.Is(err, service.ErrUnknownArticle):
		return apierror.NotFound("article not found")
	case errors.Is(err, service.ErrVotingClosed):
		return apierror.Conflict("voting closed")
	case errors.Is(err, service.ErrInvalidUserID):
		return apierror.ValidationError("invalid user id",
			apierror.FieldError{Field: "user_id", Message: "must be non-empty and must not contain '.'"})
	case errors.Is(err, service.ErrInvalidOrder):
		return apierror.BadRequest("order must be score or time")
	default:
		return apierror.ServiceUnavailable("")
	}
}

// writeError sends err to the client, logging anything that is not a
// client-side mistake.
func writeError(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger, err error) {
	apiErr := toAPIError(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		middleware.RequestLogger(r.Context(), log).WithError(err).Error("request failed")
	}
	response.Error(w, apiErr)
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apierror.BadRequest("invalid request body")
	}
	return nil
}

// pageParam parses the 1-based "page" query parameter.
func pageParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, apierror.ValidationError("invalid query",
			apierror.FieldError{Field: "page", Message: "must be a positive integer"})
	}
	return page, nil
}
