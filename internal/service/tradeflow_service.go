package service

import (
	"context"
	"errors"
	"time"

	"github.com/barterbridge/backend/internal/model"
	"github.com/barterbridge/backend/internal/moneytag"
	"github.com/barterbridge/backend/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrAlreadyProcessed signals a transition replayed against a request or
// proposal that already left the expected state. Surfaced, never silently
// no-oped, so a double-submitted form is visible to the user.
var ErrAlreadyProcessed = errors.New("already_processed")

// Matched proposals that sat untouched this long are garbage-collected the
// next time a matches list loads.
const matchedProposalTTL = 7 * 24 * time.Hour

// Actor is the identity context for every state-machine operation: the
// authenticated user plus the company they act for. Passed explicitly, never
// read from ambient state.
type Actor struct {
	UID       string
	CompanyID uuid.UUID
}

// MatchInfo decorates a matched proposal with the pending-offer state of its
// service pair.
type MatchInfo struct {
	Proposal         model.DealProposal
	HasPending       bool
	PendingSentByYou bool
}

// Offer is a proposal with its money term resolved: structured columns win,
// legacy [MONEY:...] message tags are decoded and stripped for display.
type Offer struct {
	Proposal model.DealProposal
	Money    moneytag.Term
	Message  string
}

// DealWithProposal pairs an execution record with the proposal it came from.
type DealWithProposal struct {
	Deal     model.ActiveDeal
	Proposal model.DealProposal
}

// UnreadCounts are per-section badge counts: entities created after the
// actor last viewed each section.
type UnreadCounts struct {
	Incoming           int64 `json:"incoming"`
	YouRequested       int64 `json:"youRequested"`
	Archived           int64 `json:"archived"`
	Matches            int64 `json:"matches"`
	AwaitingSignature  int64 `json:"awaitingSignature"`
	AwaitingOtherParty int64 `json:"awaitingOtherParty"`
	Ongoing            int64 `json:"ongoing"`
	Completed          int64 `json:"completed"`
}

type TradeflowService interface {
	ListIncoming(ctx context.Context, actor Actor) ([]model.TradeRequest, error)
	ListYouRequested(ctx context.Context, actor Actor) ([]model.TradeRequest, error)
	ListArchived(ctx context.Context, actor Actor) ([]model.TradeRequest, error)
	DeclineRequest(ctx context.Context, actor Actor, requestID uuid.UUID) error
	SelectReturn(ctx context.Context, actor Actor, requestID, returnServiceID uuid.UUID) (*model.DealProposal, error)
	ListMatches(ctx context.Context, actor Actor) ([]MatchInfo, error)
	GetProposal(ctx context.Context, actor Actor, proposalID uuid.UUID) (*Offer, error)
	SendOffer(ctx context.Context, actor Actor, proposalID uuid.UUID, message string, direction model.MoneyDirection, amount int) (*model.DealProposal, error)
	ListAwaitingSignature(ctx context.Context, actor Actor) ([]Offer, error)
	ListAwaitingOtherParty(ctx context.Context, actor Actor) ([]Offer, error)
	AcceptProposal(ctx context.Context, actor Actor, proposalID uuid.UUID) (*model.ActiveDeal, error)
	DeclineProposal(ctx context.Context, actor Actor, proposalID uuid.UUID) error
	ListOngoing(ctx context.Context, actor Actor) ([]DealWithProposal, error)
	ListCompleted(ctx context.Context, actor Actor) ([]DealWithProposal, error)
	GetDeal(ctx context.Context, actor Actor, dealID uuid.UUID) (*DealWithProposal, error)
	MarkDelivered(ctx context.Context, actor Actor, dealID uuid.UUID) (*model.ActiveDeal, error)
	UnreadCounts(ctx context.Context, actor Actor) (*UnreadCounts, error)
}

type tradeflowService struct {
	proposalRepo repository.ProposalRepository
	requestRepo  repository.TradeRequestRepository
	serviceRepo  repository.ServiceRepository
	dealRepo     repository.DealRepository
	memberRepo   repository.MembershipRepository
	viewRepo     repository.TradeflowViewRepository
	log          *zap.Logger
}

func NewTradeflowService(
	proposalRepo repository.ProposalRepository,
	requestRepo repository.TradeRequestRepository,
	serviceRepo repository.ServiceRepository,
	dealRepo repository.DealRepository,
	memberRepo repository.MembershipRepository,
	viewRepo repository.TradeflowViewRepository,
	log *zap.Logger,
) TradeflowService {
	return &tradeflowService{
		proposalRepo: proposalRepo,
		requestRepo:  requestRepo,
		serviceRepo:  serviceRepo,
		dealRepo:     dealRepo,
		memberRepo:   memberRepo,
		viewRepo:     viewRepo,
		log:          log,
	}
}

func (s *tradeflowService) requireMember(ctx context.Context, actor Actor) error {
	ok, err := s.memberRepo.IsMember(ctx, actor.CompanyID, actor.UID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// markViewed is best-effort; badge bookkeeping must never fail a page load.
func (s *tradeflowService) markViewed(ctx context.Context, actor Actor, section string) {
	if err := s.viewRepo.MarkViewed(ctx, actor.CompanyID, actor.UID, section, time.Now().UTC()); err != nil {
		s.log.Warn("mark section viewed failed", zap.String("section", section), zap.Error(err))
	}
}

func (s *tradeflowService) ListIncoming(ctx context.Context, actor Actor) ([]model.TradeRequest, error) {
	if err := s.requireMember(ctx, actor); err != nil {
		return nil, err
	}
	s.markViewed(ctx, actor, model.SectionIncoming)
	return s.requestRepo.ListIncoming(ctx, actor.CompanyID)
}

func (s *tradeflowService) ListYouRequested(ctx context.Context, actor Actor) ([]model.TradeRequest, error) {
	if err := s.requireMember(ctx, actor); err != nil {
		return nil, err
	}
	s.markViewed(ctx, actor, model.SectionYouRequested)
	return s.requestRepo.ListByRequester(ctx, actor.CompanyID)
}

func (s *tradeflowService) ListArchived(ctx context.Context, actor Actor) ([]model.TradeRequest, error) {
	if err := s.requireMember(ctx, actor); err != nil {
		return nil, err
	}
	s.markViewed(ctx, actor, model.SectionArchived)
	return s.requestRepo.ListArchived(ctx, actor.CompanyID)
}

// loadTargetedRequest fetches a request and verifies it targets one of the
// actor company's services.
func (s *tradeflowService) loadTargetedRequest(ctx context.Context, actor Actor, requestID uuid.UUID) (*model.TradeRequest, error) {
	req, err := s.requestRepo.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	svc, err := s.serviceRepo.FindByID(ctx, req.RequestedServiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if svc.CompanyID != actor.CompanyID {
		return nil, ErrForbidden
	}
	return req, nil
}

func (s *tradeflowService) DeclineRequest(ctx context.Context, actor Actor, requestID uuid.UUID) error {
	if err := s.requireMember(ctx, actor); err != nil {
		return err
	}
	req, err := s.loadTargetedRequest(ctx, actor, requestID)
	if err != nil {
		return err
	}
	if req.Status != model.TradeRequestStatusActive {
		return ErrAlreadyProcessed
	}
	return s.requestRepo.Archive(ctx, requestID, time.Now().UTC())
}

// SelectReturn pairs an incoming request with one of the requester's services
// and spawns a matched proposal. Orientation: the requesting company is
// "from" (they asked first), the actor company is "to".
func (s *tradeflowService) SelectReturn(ctx context.Context, actor Actor, requestID, returnServiceID uuid.UUID) (*model.DealProposal, error) {
	if err := s.requireMember(ctx, actor); err != nil {
		return nil, err
	}
	req, err := s.loadTargetedRequest(ctx, actor, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != model.TradeRequestStatusActive {
		return nil, ErrAlreadyProcessed
	}
	returnSvc, err := s.serviceRepo.FindByID(ctx, returnServiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if returnSvc.CompanyID != req.RequestingCompanyID {
		return nil, ErrForbidden
	}

	proposal := &model.DealProposal{
		ID:            uuid.New(),
		FromCompanyID: req.RequestingCompanyID,
		ToCompanyID:   actor.CompanyID,
		FromServiceID: req.RequestedServiceID,
		ToServiceID:   returnServiceID,
		Status:        model.ProposalStatusMatched,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.proposalRepo.Create(ctx, proposal); err != nil {
		return nil, err
	}
	if err := s.requestRepo.Archive(ctx, requestID, time.Now().UTC()); err != nil {
		return nil, err
	}
	return proposal, nil
}

func (s *tradeflowService) ListMatches(ctx context.Context, actor Actor) ([]MatchInfo, error) {
	if err := s.requireMember(ctx, actor); err != nil {
		return nil, err
	}
	s.markViewed(ctx, actor, model.SectionMatches)

	// Lazy TTL sweep; stale matches are cosmetic so view-triggered cleanup
	// is enough.
	if n, err := s.proposalRepo.DeleteStaleMatched(ctx, time.Now().UTC().Add(-matchedProposalTTL)); err != nil {
		s.log.Warn("stale match sweep failed", zap.Error(err))
	} else if n > 0 {
		s.log.Info("swept stale matched proposals", zap.Int64("count", n))
	}

	matches, err := s.proposalRepo.ListMatchedByCompany(ctx, actor.CompanyID)
	if err != nil {
		return nil, err
	}
	out := make([]MatchInfo, 0, len(matches))
	for _, m := range matches {
		info := MatchInfo{Proposal: m}
		pending, err := s.proposalRepo.FindPendingForPair(ctx, &m)
		if err != nil {
			return nil, err
		}
		if pending != nil {
			info.HasPending = true
			info.PendingSentByYou = pending.FromCompanyID == actor.CompanyID
		}
		out = append(out, info)
	}
	return out, nil
}

func (s *tradeflowService) GetProposal(ctx context.Context, actor Actor, proposalID uuid.UUID) (*Offer, error) {
	if err := s.requireMember(ctx, actor); err != nil {
		return nil, err
	}
	p, err := s.proposalRepo.FindByID(ctx, proposalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !p.Involves(actor.CompanyID) {
		return nil, ErrForbidden
	}
	offer := decodeOffer(*p)
	return &offer, nil
}

// SendOffer turns a match into a pending offer, or counters an existing
// offer. The new proposal's orientation always puts the sender on the "from"
// side, so inbox/outbox queries stay correct across any number of counters.
func (s *tradeflowService) SendOffer(ctx context.Context, actor Actor, proposalID uuid.UUID, message string, direction model.MoneyDirection, amount int) (*model.DealProposal, error) {
	if err := s.requireMember(ctx, actor); err != nil {
		return nil, err
	}
	base, err := s.proposalRepo.FindByID(ctx, proposalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !base.Involves(actor.CompanyID) {
		return nil, ErrForbidden
	}
	if base.Status != model.ProposalStatusMatched && base.Status != model.ProposalStatusPending {
		return nil, ErrAlreadyProcessed
	}

	offer := &model.DealProposal{
		ID:        uuid.New(),
		Status:    model.ProposalStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if base.FromCompanyID == actor.CompanyID {
		offer.FromCompanyID = base.FromCompanyID
		offer.ToCompanyID = base.ToCompanyID
		offer.FromServiceID = base.FromServiceID
		offer.ToServiceID = base.ToServiceID
	} else {
		// Orientation flip: the previous "to" side becomes the sender.
		offer.FromCompanyID = base.ToCompanyID
		offer.ToCompanyID = base.FromCompanyID
		offer.FromServiceID = base.ToServiceID
		offer.ToServiceID = base.FromServiceID
	}
	if message != "" {
		offer.Message = &message
	}
	// Invalid money terms degrade to "no money term" rather than failing.
	if (direction == model.MoneyDirectionReceive || direction == model.MoneyDirectionGive) && amount > 0 {
		offer.MoneyDirection = direction
		offer.MoneyAmount = amount
	}
	if err := s.proposalRepo.Create(ctx, offer); err != nil {
		return nil, err
	}
	return offer, nil
}

func (s *tradeflowService) ListAwaitingSignature(ctx context.Context, actor Actor) ([]Offer, error) {
	if err := s.requireMember(ctx, actor); err != nil {
		return nil, err
	}
	s.markViewed(ctx, actor, model.SectionAwaitingSignature)
	list, err := s.proposalRepo.ListPendingTo(ctx, actor.CompanyID)
	if err != nil {
		return nil, err
	}
	return decodeOffers(list), nil
}

func (s *tradeflowService) ListAwaitingOtherParty(ctx context.Context, actor Actor) ([]Offer, error) {
	if err := s.requireMember(ctx, actor); err != nil {
		return nil, err
	}
	s.markViewed(ctx, actor, model.SectionAwaitingOtherParty)
	list, err := s.proposalRepo.ListPendingFrom(ctx, actor.CompanyID)
	if err != nil {
		return nil, err
	}
	return decodeOffers(list), nil
}

// AcceptProposal signs an offer. Only the receiving ("to") company may sign;
// the repository runs the transition, deal creation, and company-level
// sibling cleanup in one locked transaction.
func (s *tradeflowService) AcceptProposal(ctx context.Context, actor Actor, proposalID uuid.UUID) (*model.ActiveDeal, error) {
	if err := s.requireMember(ctx, actor); err != nil {
		return nil, err
	}
	p, err := s.proposalRepo.FindByID(ctx, proposalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if p.ToCompanyID != actor.CompanyID {
		return nil, ErrForbidden
	}
	_, deal, err := s.proposalRepo.Accept(ctx, proposalID, uuid.New(), time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrProposalResolved) {
			return nil, ErrAlreadyProcessed
		}
		return nil, err
	}
	return deal, nil
}

func (s *tradeflowService) DeclineProposal(ctx context.Context, actor Actor, proposalID uuid.UUID) error {
	if err := s.requireMember(ctx, actor); err != nil {
		return err
	}
	p, err := s.proposalRepo.FindByID(ctx, proposalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if p.ToCompanyID != actor.CompanyID {
		return ErrForbidden
	}
	if p.Status != model.ProposalStatusPending {
		return ErrAlreadyProcessed
	}
	// Rejection is terminal for this proposal only; siblings stay.
	return s.proposalRepo.UpdateStatus(ctx, proposalID, model.ProposalStatusRejected)
}

func (s *tradeflowService) ListOngoing(ctx context.Context, actor Actor) ([]DealWithProposal, error) {
	if err := s.requireMember(ctx, actor); err != nil {
		return nil, err
	}
	s.markViewed(ctx, actor, model.SectionOngoing)
	return s.listDeals(ctx, actor, model.DealStatusInProgress)
}

func (s *tradeflowService) ListCompleted(ctx context.Context, actor Actor) ([]DealWithProposal, error) {
	if err := s.requireMember(ctx, actor); err != nil {
		return nil, err
	}
	s.markViewed(ctx, actor, model.SectionCompleted)
	return s.listDeals(ctx, actor, model.DealStatusCompleted)
}

func (s *tradeflowService) listDeals(ctx context.Context, actor Actor, status model.DealStatus) ([]DealWithProposal, error) {
	deals, err := s.dealRepo.ListByCompany(ctx, actor.CompanyID, status)
	if err != nil {
		return nil, err
	}
	out := make([]DealWithProposal, 0, len(deals))
	for _, d := range deals {
		p, err := s.proposalRepo.FindByID(ctx, d.ProposalID)
		if err != nil {
			return nil, err
		}
		out = append(out, DealWithProposal{Deal: d, Proposal: *p})
	}
	return out, nil
}

func (s *tradeflowService) GetDeal(ctx context.Context, actor Actor, dealID uuid.UUID) (*DealWithProposal, error) {
	if err := s.requireMember(ctx, actor); err != nil {
		return nil, err
	}
	deal, p, err := s.loadPartyDeal(ctx, actor, dealID)
	if err != nil {
		return nil, err
	}
	return &DealWithProposal{Deal: *deal, Proposal: *p}, nil
}

func (s *tradeflowService) loadPartyDeal(ctx context.Context, actor Actor, dealID uuid.UUID) (*model.ActiveDeal, *model.DealProposal, error) {
	deal, err := s.dealRepo.FindByID(ctx, dealID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	p, err := s.proposalRepo.FindByID(ctx, deal.ProposalID)
	if err != nil {
		return nil, nil, err
	}
	if !p.Involves(actor.CompanyID) {
		return nil, nil, ErrForbidden
	}
	return deal, p, nil
}

// MarkDelivered records the actor company's own delivery confirmation.
// Re-confirming is a no-op; once both flags are set the deal completes and
// never reverts.
func (s *tradeflowService) MarkDelivered(ctx context.Context, actor Actor, dealID uuid.UUID) (*model.ActiveDeal, error) {
	if err := s.requireMember(ctx, actor); err != nil {
		return nil, err
	}
	deal, p, err := s.loadPartyDeal(ctx, actor, dealID)
	if err != nil {
		return nil, err
	}
	if deal.Status == model.DealStatusCompleted {
		return deal, nil
	}

	changed := false
	if p.FromCompanyID == actor.CompanyID {
		if !deal.FromCompanyCompleted {
			deal.FromCompanyCompleted = true
			changed = true
		}
	} else {
		if !deal.ToCompanyCompleted {
			deal.ToCompanyCompleted = true
			changed = true
		}
	}
	if !changed {
		return deal, nil
	}
	if deal.FromCompanyCompleted && deal.ToCompanyCompleted {
		now := time.Now().UTC()
		deal.Status = model.DealStatusCompleted
		deal.CompletedAt = &now
	}
	if err := s.dealRepo.Update(ctx, deal); err != nil {
		return nil, err
	}
	return deal, nil
}

func (s *tradeflowService) UnreadCounts(ctx context.Context, actor Actor) (*UnreadCounts, error) {
	if err := s.requireMember(ctx, actor); err != nil {
		return nil, err
	}
	lastViewed, err := s.viewRepo.LastViewedTimes(ctx, actor.CompanyID, actor.UID)
	if err != nil {
		return nil, err
	}
	cutoff := func(section string) time.Time {
		if t, ok := lastViewed[section]; ok {
			return t
		}
		return time.Time{}
	}

	var counts UnreadCounts
	if counts.Incoming, err = s.requestRepo.CountIncomingAfter(ctx, actor.CompanyID, cutoff(model.SectionIncoming)); err != nil {
		return nil, err
	}
	if counts.YouRequested, err = s.requestRepo.CountRequestedAfter(ctx, actor.CompanyID, cutoff(model.SectionYouRequested)); err != nil {
		return nil, err
	}
	if counts.Archived, err = s.requestRepo.CountArchivedAfter(ctx, actor.CompanyID, cutoff(model.SectionArchived)); err != nil {
		return nil, err
	}
	if counts.Matches, err = s.proposalRepo.CountMatchedAfter(ctx, actor.CompanyID, cutoff(model.SectionMatches)); err != nil {
		return nil, err
	}
	if counts.AwaitingSignature, err = s.proposalRepo.CountPendingToAfter(ctx, actor.CompanyID, cutoff(model.SectionAwaitingSignature)); err != nil {
		return nil, err
	}
	if counts.AwaitingOtherParty, err = s.proposalRepo.CountPendingFromAfter(ctx, actor.CompanyID, cutoff(model.SectionAwaitingOtherParty)); err != nil {
		return nil, err
	}
	if counts.Ongoing, err = s.dealRepo.CountByCompanyAfter(ctx, actor.CompanyID, model.DealStatusInProgress, cutoff(model.SectionOngoing)); err != nil {
		return nil, err
	}
	if counts.Completed, err = s.dealRepo.CountByCompanyAfter(ctx, actor.CompanyID, model.DealStatusCompleted, cutoff(model.SectionCompleted)); err != nil {
		return nil, err
	}
	return &counts, nil
}

func decodeOffer(p model.DealProposal) Offer {
	offer := Offer{Proposal: p}
	if p.Message != nil {
		offer.Message = *p.Message
	}
	if p.MoneyDirection != model.MoneyDirectionNone {
		offer.Money = moneytag.Term{Direction: moneytag.Direction(p.MoneyDirection), Amount: p.MoneyAmount}
		return offer
	}
	term, stripped := moneytag.Decode(offer.Message)
	offer.Money = term
	offer.Message = stripped
	return offer
}

func decodeOffers(list []model.DealProposal) []Offer {
	out := make([]Offer, 0, len(list))
	for _, p := range list {
		out = append(out, decodeOffer(p))
	}
	return out
}
