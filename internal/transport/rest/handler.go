package rest

import (
	"context"
	"net/http"
	"time"

	"agreepay/internal/domain"
	"agreepay/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type PaymentCoordinator interface {
	Calculate(ctx context.Context, key string, userID int64) (*service.Calculation, error)
	Status(ctx context.Context, key string, userID int64) (*service.StatusReport, error)
	Pay(ctx context.Context, key string, userID int64) (*domain.Payment, error)
	History(ctx context.Context, key string, userID int64) ([]domain.Payment, error)
	Refund(ctx context.Context, paymentID string, userID int64) (*domain.Payment, error)
}

type DistributionManager interface {
	Setup(ctx context.Context, key string, callerID int64, shares []service.ShareInput) (*domain.Distribution, error)
	UpdateShare(ctx context.Context, key string, callerID, targetUserID int64, percentage float64) (*domain.Distribution, error)
}

type PricingManager interface {
	Get(ctx context.Context) (*domain.PricingConfig, error)
	Update(ctx context.Context, dailyRate float64, userID int64) (*domain.PricingConfig, error)
}

type WalletManager interface {
	Balance(ctx context.Context, userID int64) (*domain.Wallet, error)
	AddFunds(ctx context.Context, userID int64, amount float64) (*domain.Wallet, error)
	Transactions(ctx context.Context, userID int64) ([]domain.WalletTransaction, error)
}

type StatementExporter interface {
	StartStatementExport(ctx context.Context, key string, selected []string, userID int64) (string, error)
	GetExports(ctx context.Context, userID int64) ([]any, error)
	GetExport(ctx context.Context, exportID string, userID int64) (any, error)
}

type Handler struct {
	payments      PaymentCoordinator
	distributions DistributionManager
	pricing       PricingManager
	wallets       WalletManager
	statements    StatementExporter
}

func NewHandler(
	payments PaymentCoordinator,
	distributions DistributionManager,
	pricing PricingManager,
	wallets WalletManager,
	statements StatementExporter,
) *Handler {
	return &Handler{
		payments:      payments,
		distributions: distributions,
		pricing:       pricing,
		wallets:       wallets,
		statements:    statements,
	}
}

func (h *Handler) InitRouter() *chi.Mux {
	return h.InitRouterWithAuth(nil)
}

func (h *Handler) InitRouterWithAuth(authMiddleware func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)

	if authMiddleware != nil {
		r.Use(authMiddleware)
	}

	r.Route("/agreements/{agreement}", func(r chi.Router) {
		r.Route("/payment", func(r chi.Router) {
			r.Get("/calculate", h.calculatePayment)
			r.Get("/status", h.paymentStatus)
			r.Post("/pay", h.pay)
			r.Post("/distribution", h.setupDistribution)
			r.Patch("/distribution/{user_id}", h.updateShare)
		})
		r.Get("/payments", h.paymentHistory)
		r.Post("/statement", h.exportStatement)
	})

	r.Post("/payments/{payment_id}/refund", h.refundPayment)

	r.Route("/statements", func(r chi.Router) {
		r.Get("/", h.listStatements)
		r.Get("/{export_id}", h.getStatement)
	})

	r.Route("/pricing", func(r chi.Router) {
		r.Get("/", h.getPricing)
		r.Put("/", h.updatePricing)
	})

	r.Route("/wallet", func(r chi.Router) {
		r.Get("/balance", h.walletBalance)
		r.Post("/add-funds", h.addFunds)
		r.Get("/transactions", h.walletTransactions)
	})

	return r
}
