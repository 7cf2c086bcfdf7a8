package handler

import (
	"net/http"

	"github.com/barterbridge/backend/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type FairnessHandler struct {
	fairness service.FairnessService
}

func NewFairnessHandler(fairness service.FairnessService) *FairnessHandler {
	return &FairnessHandler{fairness: fairness}
}

// Compare scores a requested service against a candidate return service.
// The report is null when the marketplace has no signal to score with.
func (h *FairnessHandler) Compare(c echo.Context) error {
	requestedID, err := uuid.Parse(c.QueryParam("requested"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid requested service id"))
	}
	returnID, err := uuid.Parse(c.QueryParam("return"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid return service id"))
	}
	report, err := h.fairness.Compare(c.Request().Context(), requestedID, returnID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"fairness": report})
}
