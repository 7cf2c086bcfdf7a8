package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/barterbridge/backend/internal/handler"
	appmw "github.com/barterbridge/backend/internal/middleware"
	"github.com/barterbridge/backend/internal/repository"
	"github.com/barterbridge/backend/internal/service"
)

type Server struct {
	e     *echo.Echo
	sha   string
	build string
}

func New(db *gorm.DB, log *zap.Logger, sha, buildTime string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		AllowOriginFunc: func(origin string) (bool, error) {
			low := strings.ToLower(origin)
			if strings.HasPrefix(low, "http://localhost:") || strings.HasPrefix(low, "http://127.0.0.1:") ||
				strings.HasPrefix(low, "https://localhost:") || strings.HasPrefix(low, "https://127.0.0.1:") {
				return true, nil
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false, nil
			}
			if u.Scheme != "http" && u.Scheme != "https" {
				return false, nil
			}
			if strings.HasSuffix(u.Hostname(), "vercel.app") {
				return true, nil
			}
			return false, nil
		},
	}))

	serviceRepo := repository.NewServiceRepository(db)
	viewRepo := repository.NewViewEventRepository(db)
	requestRepo := repository.NewTradeRequestRepository(db)
	proposalRepo := repository.NewProposalRepository(db)
	dealRepo := repository.NewDealRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	fairnessRepo := repository.NewFairnessRepository(db)
	memberRepo := repository.NewMembershipRepository(db)
	flowViewRepo := repository.NewTradeflowViewRepository(db)

	serviceSvc := service.NewServiceService(serviceRepo, reviewRepo, memberRepo)
	requestSvc := service.NewTradeRequestService(requestRepo, serviceRepo, memberRepo)
	fairnessSvc := service.NewFairnessService(fairnessRepo, serviceRepo, viewRepo, log)
	reviewSvc := service.NewReviewService(reviewRepo, dealRepo, proposalRepo, memberRepo)
	tradeflowSvc := service.NewTradeflowService(proposalRepo, requestRepo, serviceRepo, dealRepo, memberRepo, flowViewRepo, log)

	serviceHandler := handler.NewServiceHandler(serviceSvc, requestSvc, fairnessSvc)
	fairnessHandler := handler.NewFairnessHandler(fairnessSvc)
	tradeflowHandler := handler.NewTradeflowHandler(tradeflowSvc, reviewSvc, fairnessSvc)

	authMw, err := appmw.NewAuthMiddleware(context.Background())
	if err != nil {
		log.Warn("firebase auth unavailable, auth routes run unauthenticated", zap.Error(err))
	}
	requireAuth := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	if authMw != nil {
		requireAuth = authMw.RequireAuth
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"ok":         "true",
			"git_sha":    sha,
			"build_time": buildTime,
		})
	})

	api := e.Group("/api")

	api.GET("/services", serviceHandler.List)
	api.POST("/services", serviceHandler.Create, requireAuth)
	api.GET("/services/:id", serviceHandler.Get)
	api.PUT("/services/:id", serviceHandler.Update, requireAuth)
	api.POST("/services/:id/trade-requests", serviceHandler.CreateTradeRequest, requireAuth)
	api.GET("/companies/:companyId/services", serviceHandler.ListByCompany)
	api.GET("/fairness", fairnessHandler.Compare)

	flow := api.Group("/tradeflow/:companyId", requireAuth)
	flow.GET("/incoming", tradeflowHandler.ListIncoming)
	flow.POST("/requests/:id/decline", tradeflowHandler.DeclineRequest)
	flow.POST("/requests/:id/select-return", tradeflowHandler.SelectReturn)
	flow.GET("/you-requested", tradeflowHandler.ListYouRequested)
	flow.GET("/archived", tradeflowHandler.ListArchived)
	flow.GET("/matches", tradeflowHandler.ListMatches)
	flow.GET("/proposals/:id", tradeflowHandler.GetProposal)
	flow.POST("/proposals/:id/offer", tradeflowHandler.SendOffer)
	flow.POST("/proposals/:id/accept", tradeflowHandler.AcceptProposal)
	flow.POST("/proposals/:id/decline", tradeflowHandler.DeclineProposal)
	flow.GET("/awaiting-signature", tradeflowHandler.ListAwaitingSignature)
	flow.GET("/awaiting-other-party", tradeflowHandler.ListAwaitingOtherParty)
	flow.GET("/deals/ongoing", tradeflowHandler.ListOngoing)
	flow.GET("/deals/completed", tradeflowHandler.ListCompleted)
	flow.GET("/deals/:id", tradeflowHandler.GetDeal)
	flow.POST("/deals/:id/complete", tradeflowHandler.MarkDelivered)
	flow.GET("/deals/:id/reviews", tradeflowHandler.ListReviews)
	flow.POST("/deals/:id/reviews", tradeflowHandler.WriteReview)
	flow.GET("/unread", tradeflowHandler.UnreadCounts)

	return &Server{e: e, sha: sha, build: buildTime}
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

func (s *Server) Echo() *echo.Echo {
	return s.e
}
