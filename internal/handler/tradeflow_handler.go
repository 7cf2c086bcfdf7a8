package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/barterbridge/backend/internal/model"
	"github.com/barterbridge/backend/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type TradeflowHandler struct {
	svc      service.TradeflowService
	reviews  service.ReviewService
	fairness service.FairnessService
}

func NewTradeflowHandler(svc service.TradeflowService, reviews service.ReviewService, fairness service.FairnessService) *TradeflowHandler {
	return &TradeflowHandler{svc: svc, reviews: reviews, fairness: fairness}
}

type TradeRequestResponse struct {
	ID                  string  `json:"id"`
	RequestingCompanyID string  `json:"requestingCompanyId"`
	RequestedServiceID  string  `json:"requestedServiceId"`
	ValidityDays        int     `json:"validityDays"`
	Status              string  `json:"status"`
	CreatedAt           string  `json:"createdAt"`
	ExpiresAt           string  `json:"expiresAt"`
	ArchivedAt          *string `json:"archivedAt,omitempty"`
}

func toTradeRequestResponse(r *model.TradeRequest) TradeRequestResponse {
	var archivedAt *string
	if r.ArchivedAt != nil {
		val := r.ArchivedAt.Format(time.RFC3339)
		archivedAt = &val
	}
	return TradeRequestResponse{
		ID:                  r.ID.String(),
		RequestingCompanyID: r.RequestingCompanyID.String(),
		RequestedServiceID:  r.RequestedServiceID.String(),
		ValidityDays:        r.ValidityDays,
		Status:              string(r.Status),
		CreatedAt:           r.CreatedAt.Format(time.RFC3339),
		ExpiresAt:           r.ExpiresAt.Format(time.RFC3339),
		ArchivedAt:          archivedAt,
	}
}

type ProposalResponse struct {
	ID            string `json:"id"`
	FromCompanyID string `json:"fromCompanyId"`
	ToCompanyID   string `json:"toCompanyId"`
	FromServiceID string `json:"fromServiceId"`
	ToServiceID   string `json:"toServiceId"`
	Status        string `json:"status"`
	CreatedAt     string `json:"createdAt"`
}

func toProposalResponse(p *model.DealProposal) ProposalResponse {
	return ProposalResponse{
		ID:            p.ID.String(),
		FromCompanyID: p.FromCompanyID.String(),
		ToCompanyID:   p.ToCompanyID.String(),
		FromServiceID: p.FromServiceID.String(),
		ToServiceID:   p.ToServiceID.String(),
		Status:        string(p.Status),
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
	}
}

type MoneyTermResponse struct {
	Direction string `json:"direction"`
	Amount    int    `json:"amount"`
}

type OfferResponse struct {
	Proposal ProposalResponse   `json:"proposal"`
	Message  string             `json:"message"`
	Money    *MoneyTermResponse `json:"money,omitempty"`
}

func toOfferResponse(o *service.Offer) OfferResponse {
	resp := OfferResponse{
		Proposal: toProposalResponse(&o.Proposal),
		Message:  o.Message,
	}
	if !o.Money.IsZero() {
		resp.Money = &MoneyTermResponse{Direction: string(o.Money.Direction), Amount: o.Money.Amount}
	}
	return resp
}

type MatchResponse struct {
	Proposal         ProposalResponse `json:"proposal"`
	HasPending       bool             `json:"hasPending"`
	PendingSentByYou bool             `json:"pendingSentByYou"`
}

type DealResponse struct {
	ID                   string           `json:"id"`
	ProposalID           string           `json:"proposalId"`
	FromCompanyCompleted bool             `json:"fromCompanyCompleted"`
	ToCompanyCompleted   bool             `json:"toCompanyCompleted"`
	Status               string           `json:"status"`
	CreatedAt            string           `json:"createdAt"`
	CompletedAt          *string          `json:"completedAt,omitempty"`
	Proposal             ProposalResponse `json:"proposal"`
}

func toDealResponse(d *model.ActiveDeal, p *model.DealProposal) DealResponse {
	var completedAt *string
	if d.CompletedAt != nil {
		val := d.CompletedAt.Format(time.RFC3339)
		completedAt = &val
	}
	return DealResponse{
		ID:                   d.ID.String(),
		ProposalID:           d.ProposalID.String(),
		FromCompanyCompleted: d.FromCompanyCompleted,
		ToCompanyCompleted:   d.ToCompanyCompleted,
		Status:               string(d.Status),
		CreatedAt:            d.CreatedAt.Format(time.RFC3339),
		CompletedAt:          completedAt,
		Proposal:             toProposalResponse(p),
	}
}

type ReviewResponse struct {
	ID                string  `json:"id"`
	DealID            string  `json:"dealId"`
	ReviewerUID       string  `json:"reviewerUid"`
	ReviewedCompanyID string  `json:"reviewedCompanyId"`
	ReviewedServiceID string  `json:"reviewedServiceId"`
	Rating            int     `json:"rating"`
	Comment           *string `json:"comment,omitempty"`
	CreatedAt         string  `json:"createdAt"`
}

func toReviewResponse(rv *model.Review) ReviewResponse {
	return ReviewResponse{
		ID:                rv.ID.String(),
		DealID:            rv.DealID.String(),
		ReviewerUID:       rv.ReviewerUID,
		ReviewedCompanyID: rv.ReviewedCompanyID.String(),
		ReviewedServiceID: rv.ReviewedServiceID.String(),
		Rating:            rv.Rating,
		Comment:           rv.Comment,
		CreatedAt:         rv.CreatedAt.Format(time.RFC3339),
	}
}

// actorFromContext builds the identity context from the authenticated uid and
// the companyId path parameter.
func actorFromContext(c echo.Context) (service.Actor, bool) {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return service.Actor{}, false
	}
	companyID, err := uuid.Parse(c.Param("companyId"))
	if err != nil {
		return service.Actor{}, false
	}
	return service.Actor{UID: uid, CompanyID: companyID}, true
}

func (h *TradeflowHandler) ListIncoming(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "missing uid or invalid company id"))
	}
	list, err := h.svc.ListIncoming(c.Request().Context(), actor)
	if err != nil {
		return respondServiceError(c, err)
	}
	resp := make([]TradeRequestResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toTradeRequestResponse(&list[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *TradeflowHandler) ListYouRequested(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "missing uid or invalid company id"))
	}
	list, err := h.svc.ListYouRequested(c.Request().Context(), actor)
	if err != nil {
		return respondServiceError(c, err)
	}
	resp := make([]TradeRequestResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toTradeRequestResponse(&list[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *TradeflowHandler) ListArchived(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "missing uid or invalid company id"))
	}
	list, err := h.svc.ListArchived(c.Request().Context(), actor)
	if err != nil {
		return respondServiceError(c, err)
	}
	resp := make([]TradeRequestResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toTradeRequestResponse(&list[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *TradeflowHandler) DeclineRequest(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "missing uid or invalid company id"))
	}
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid request id"))
	}
	if err := h.svc.DeclineRequest(c.Request().Context(), actor, requestID); err != nil {
		return respondServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *TradeflowHandler) SelectReturn(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "missing uid or invalid company id"))
	}
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid request id"))
	}
	var body struct {
		ServiceID string `json:"serviceId"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid body"))
	}
	serviceID, err := uuid.Parse(body.ServiceID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid service id"))
	}
	proposal, err := h.svc.SelectReturn(c.Request().Context(), actor, requestID, serviceID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, toProposalResponse(proposal))
}

func (h *TradeflowHandler) ListMatches(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "missing uid or invalid company id"))
	}
	matches, err := h.svc.ListMatches(c.Request().Context(), actor)
	if err != nil {
		return respondServiceError(c, err)
	}
	resp := make([]MatchResponse, 0, len(matches))
	for i := range matches {
		resp = append(resp, MatchResponse{
			Proposal:         toProposalResponse(&matches[i].Proposal),
			HasPending:       matches[i].HasPending,
			PendingSentByYou: matches[i].PendingSentByYou,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *TradeflowHandler) GetProposal(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "missing uid or invalid company id"))
	}
	proposalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid proposal id"))
	}
	offer, err := h.svc.GetProposal(c.Request().Context(), actor, proposalID)
	if err != nil {
		return respondServiceError(c, err)
	}
	// The from side's requested service is compared against the return the
	// to side put up.
	report, err := h.fairness.Compare(c.Request().Context(), offer.Proposal.FromServiceID, offer.Proposal.ToServiceID)
	if err != nil && !errors.Is(err, service.ErrNotFound) {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"offer":    toOfferResponse(offer),
		"fairness": report,
	})
}

func (h *TradeflowHandler) SendOffer(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "missing uid or invalid company id"))
	}
	proposalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid proposal id"))
	}
	var body struct {
		Message        string `json:"message"`
		MoneyDirection string `json:"moneyDirection"`
		MoneyAmount    int    `json:"moneyAmount"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid body"))
	}
	offer, err := h.svc.SendOffer(c.Request().Context(), actor, proposalID, body.Message, model.MoneyDirection(body.MoneyDirection), body.MoneyAmount)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, toProposalResponse(offer))
}

func (h *TradeflowHandler) ListAwaitingSignature(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "missing uid or invalid company id"))
	}
	offers, err := h.svc.ListAwaitingSignature(c.Request().Context(), actor)
	if err != nil {
		return respondServiceError(c, err)
	}
	resp := make([]OfferResponse, 0, len(offers))
	for i := range offers {
		resp = append(resp, toOfferResponse(&offers[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *TradeflowHandler) ListAwaitingOtherParty(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "missing uid or invalid company id"))
	}
	offers, err := h.svc.ListAwaitingOtherParty(c.Request().Context(), actor)
	if err != nil {
		return respondServiceError(c, err)
	}
	resp := make([]OfferResponse, 0, len(offers))
	for i := range offers {
		resp = append(resp, toOfferResponse(&offers[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *TradeflowHandler) AcceptProposal(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "missing uid or invalid company id"))
	}
	proposalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid proposal id"))
	}
	deal, err := h.svc.AcceptProposal(c.Request().Context(), actor, proposalID)
	if err != nil {
		return respondServiceError(c, err)
	}
	proposal, err := h.svc.GetProposal(c.Request().Context(), actor, proposalID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, toDealResponse(deal, &proposal.Proposal))
}

func (h *TradeflowHandler) DeclineProposal(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "missing uid or invalid company id"))
	}
	proposalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid proposal id"))
	}
	if err := h.svc.DeclineProposal(c.Request().Context(), actor, proposalID); err != nil {
		return respondServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *TradeflowHandler) ListOngoing(c echo.Context) error {
	return h.listDeals(c, true)
}

func (h *TradeflowHandler) ListCompleted(c echo.Context) error {
	return h.listDeals(c, false)
}

func (h *TradeflowHandler) listDeals(c echo.Context, ongoing bool) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "missing uid or invalid company id"))
	}
	var (
		list []service.DealWithProposal
		err  error
	)
	if ongoing {
		list, err = h.svc.ListOngoing(c.Request().Context(), actor)
	} else {
		list, err = h.svc.ListCompleted(c.Request().Context(), actor)
	}
	if err != nil {
		return respondServiceError(c, err)
	}
	resp := make([]DealResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toDealResponse(&list[i].Deal, &list[i].Proposal))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *TradeflowHandler) GetDeal(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "missing uid or invalid company id"))
	}
	dealID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid deal id"))
	}
	dwp, err := h.svc.GetDeal(c.Request().Context(), actor, dealID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toDealResponse(&dwp.Deal, &dwp.Proposal))
}

func (h *TradeflowHandler) MarkDelivered(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "missing uid or invalid company id"))
	}
	dealID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid deal id"))
	}
	deal, err := h.svc.MarkDelivered(c.Request().Context(), actor, dealID)
	if err != nil {
		return respondServiceError(c, err)
	}
	dwp, err := h.svc.GetDeal(c.Request().Context(), actor, deal.ID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toDealResponse(&dwp.Deal, &dwp.Proposal))
}

func (h *TradeflowHandler) ListReviews(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "missing uid or invalid company id"))
	}
	dealID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid deal id"))
	}
	reviews, err := h.reviews.ListByDeal(c.Request().Context(), actor, dealID)
	if err != nil {
		return respondServiceError(c, err)
	}
	resp := make([]ReviewResponse, 0, len(reviews))
	for i := range reviews {
		resp = append(resp, toReviewResponse(&reviews[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *TradeflowHandler) WriteReview(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "missing uid or invalid company id"))
	}
	dealID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid deal id"))
	}
	var body struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid body"))
	}
	review, err := h.reviews.WriteReview(c.Request().Context(), actor, dealID, body.Rating, body.Comment)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, toReviewResponse(review))
}

func (h *TradeflowHandler) UnreadCounts(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "missing uid or invalid company id"))
	}
	counts, err := h.svc.UnreadCounts(c.Request().Context(), actor)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, counts)
}
