package handler

import (
	"errors"
	"net/http"

	"github.com/barterbridge/backend/internal/service"
	"github.com/labstack/echo/v4"
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error errorPayload `json:"error"`
}

func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error: errorPayload{
			Code:    code,
			Message: message,
		},
	}
}

// respondServiceError maps the service sentinels onto HTTP responses with
// messages specific enough for a two-party negotiation UI.
func respondServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "resource not found"))
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, NewErrorResponse("forbidden", "your company is not a party to this resource"))
	case errors.Is(err, service.ErrAlreadyProcessed):
		return c.JSON(http.StatusConflict, NewErrorResponse("already_processed", "this item has already been processed"))
	case errors.Is(err, service.ErrDealNotCompleted):
		return c.JSON(http.StatusConflict, NewErrorResponse("deal_not_completed", "reviews open once both parties confirm delivery"))
	case errors.Is(err, service.ErrAlreadyReviewed):
		return c.JSON(http.StatusConflict, NewErrorResponse("already_reviewed", "you already reviewed this deal"))
	case errors.Is(err, service.ErrInvalidRating):
		return c.JSON(http.StatusBadRequest, NewErrorResponse("invalid_rating", "rating must be between 1 and 5"))
	case errors.Is(err, service.ErrServiceInUse):
		return c.JSON(http.StatusConflict, NewErrorResponse("service_in_use", "service is part of an open negotiation and cannot be edited"))
	case errors.Is(err, service.ErrOwnService):
		return c.JSON(http.StatusBadRequest, NewErrorResponse("own_service", "you cannot request your own service"))
	default:
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "something went wrong"))
	}
}
