package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/barterbridge/backend/internal/model"
	"github.com/barterbridge/backend/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type ServiceHandler struct {
	services service.ServiceService
	requests service.TradeRequestService
	fairness service.FairnessService
}

func NewServiceHandler(services service.ServiceService, requests service.TradeRequestService, fairness service.FairnessService) *ServiceHandler {
	return &ServiceHandler{services: services, requests: requests, fairness: fairness}
}

type ServiceResponse struct {
	ID            string   `json:"id"`
	CompanyID     string   `json:"companyId"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Categories    []string `json:"categories"`
	DurationHours float64  `json:"durationHours"`
	Active        bool     `json:"active"`
	CreatedAt     string   `json:"createdAt"`
}

func toServiceResponse(s *model.Service) ServiceResponse {
	return ServiceResponse{
		ID:            s.ID.String(),
		CompanyID:     s.CompanyID.String(),
		Title:         s.Title,
		Description:   s.Description,
		Categories:    s.CategoryTags(),
		DurationHours: s.DurationHours,
		Active:        s.Active,
		CreatedAt:     s.CreatedAt.Format(time.RFC3339),
	}
}

type ServiceListResponse struct {
	Services []ServiceResponse `json:"services"`
	Total    int64             `json:"total"`
}

type ServiceDetailResponse struct {
	Service   ServiceResponse  `json:"service"`
	Reviews   []ReviewResponse `json:"reviews"`
	AvgRating float64          `json:"avgRating"`
}

type serviceBody struct {
	CompanyID     string  `json:"companyId"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	Category      string  `json:"category"`
	DurationHours float64 `json:"durationHours"`
	Active        bool    `json:"active"`
}

// serviceActor resolves the acting company from the request body; service
// routes carry no company path segment.
func serviceActor(c echo.Context, body *serviceBody) (service.Actor, bool) {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return service.Actor{}, false
	}
	companyID, err := uuid.Parse(body.CompanyID)
	if err != nil {
		return service.Actor{}, false
	}
	return service.Actor{UID: uid, CompanyID: companyID}, true
}

func (h *ServiceHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	services, total, err := h.services.List(c.Request().Context(), c.QueryParam("category"), limit, offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	resp := ServiceListResponse{Services: make([]ServiceResponse, 0, len(services)), Total: total}
	for i := range services {
		resp.Services = append(resp.Services, toServiceResponse(&services[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ServiceHandler) Get(c echo.Context) error {
	serviceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid service id"))
	}
	detail, err := h.services.Get(c.Request().Context(), serviceID)
	if err != nil {
		return respondServiceError(c, err)
	}
	// Detail views feed the demand signal. Failures are logged, not surfaced.
	h.fairness.RecordView(c.Request().Context(), serviceID)
	resp := ServiceDetailResponse{
		Service:   toServiceResponse(&detail.Service),
		Reviews:   make([]ReviewResponse, 0, len(detail.Reviews)),
		AvgRating: detail.AvgRating,
	}
	for i := range detail.Reviews {
		resp.Reviews = append(resp.Reviews, toReviewResponse(&detail.Reviews[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ServiceHandler) ListByCompany(c echo.Context) error {
	companyID, err := uuid.Parse(c.Param("companyId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid company id"))
	}
	services, err := h.services.ListByCompany(c.Request().Context(), companyID)
	if err != nil {
		return respondServiceError(c, err)
	}
	resp := make([]ServiceResponse, 0, len(services))
	for i := range services {
		resp = append(resp, toServiceResponse(&services[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ServiceHandler) Create(c echo.Context) error {
	var body serviceBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid body"))
	}
	actor, ok := serviceActor(c, &body)
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "missing uid or invalid company id"))
	}
	svc, err := h.services.Create(c.Request().Context(), actor, service.ServiceInput{
		Title:         body.Title,
		Description:   body.Description,
		Category:      body.Category,
		DurationHours: body.DurationHours,
		Active:        body.Active,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, toServiceResponse(svc))
}

func (h *ServiceHandler) Update(c echo.Context) error {
	serviceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid service id"))
	}
	var body serviceBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid body"))
	}
	actor, ok := serviceActor(c, &body)
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "missing uid or invalid company id"))
	}
	svc, err := h.services.Update(c.Request().Context(), actor, serviceID, service.ServiceInput{
		Title:         body.Title,
		Description:   body.Description,
		Category:      body.Category,
		DurationHours: body.DurationHours,
		Active:        body.Active,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toServiceResponse(svc))
}

func (h *ServiceHandler) CreateTradeRequest(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	serviceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid service id"))
	}
	var body struct {
		CompanyID    string `json:"companyId"`
		ValidityDays int    `json:"validityDays"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid body"))
	}
	companyID, err := uuid.Parse(body.CompanyID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid company id"))
	}
	actor := service.Actor{UID: uid, CompanyID: companyID}
	req, err := h.requests.Create(c.Request().Context(), actor, serviceID, body.ValidityDays)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, toTradeRequestResponse(req))
}
