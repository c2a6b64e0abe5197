package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	apperrors "tipjar/internal/errors"
	"tipjar/internal/models"
	"tipjar/internal/repositories"
	"tipjar/internal/services/payment"

	"github.com/shopspring/decimal"
)

type service struct {
	repo     repositories.TipRepository
	provider payment.Provider
	config   LedgerConfig
}

// NewService creates a new ledger service
func NewService(repo repositories.TipRepository, provider payment.Provider, config LedgerConfig) Service {
	if repo == nil {
		panic("repo is required")
	}
	if provider == nil {
		panic("provider is required")
	}
	if config.RefundWindow == 0 {
		config.RefundWindow = DefaultRefundWindow
	}
	if config.DefaultCurrency == "" {
		config.DefaultCurrency = "GBP"
	}
	return &service{repo: repo, provider: provider, config: config}
}

// CreatePending validates the request, asks the processor for a charge and
// opens a PENDING tip. Retries with the same idempotency key return the
// existing tip instead of creating a duplicate: the fast path is a lookup,
// the race path is the unique constraint on idempotency_key. The processor
// call happens before the insert, so a provider failure leaves no tip row,
// and the caller's key is passed through unchanged so a retried provider call
// cannot double-charge.
func (s *service) CreatePending(ctx context.Context, req CreateTipRequest) (*models.Tip, error) {
	if err := validateRequest(&req, s.config.DefaultCurrency); err != nil {
		return nil, err
	}

	if existing, err := s.repo.GetByIdempotencyKey(ctx, req.IdempotencyKey); err == nil {
		return existing, nil
	} else if !errors.Is(err, repositories.ErrTipNotFound) {
		return nil, fmt.Errorf("failed to check idempotency key: %w", err)
	}

	intent, err := s.provider.CreateIntent(ctx, payment.ChargeRequest{
		Amount:         req.Amount,
		Currency:       req.Currency,
		IdempotencyKey: req.IdempotencyKey,
		Description:    fmt.Sprintf("Tip for staff %s", req.StaffID),
		Metadata: map[string]string{
			"staff_id":    req.StaffID,
			"business_id": req.BusinessID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("charge creation failed: %w", err)
	}

	tip := &models.Tip{
		StaffID:         req.StaffID,
		BusinessID:      req.BusinessID,
		LocationID:      req.LocationID,
		QRTokenID:       req.QRTokenID,
		Amount:          req.Amount,
		Currency:        req.Currency,
		PaymentIntentID: intent.PaymentIntentID,
		IdempotencyKey:  req.IdempotencyKey,
		Status:          models.TipStatusPending,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		Message:         req.Message,
		Metadata:        models.JSON(req.Metadata),
		ClientSecret:    intent.ClientSecret,
	}

	if err := s.repo.Create(ctx, tip); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			// A concurrent retry with the same key won the insert. The
			// provider call was idempotent, so returning the winner is safe.
			existing, lookupErr := s.repo.GetByIdempotencyKey(ctx, req.IdempotencyKey)
			if lookupErr != nil {
				return nil, fmt.Errorf("failed to resolve idempotency collision: %w", lookupErr)
			}
			return existing, nil
		}
		return nil, fmt.Errorf("failed to create tip: %w", err)
	}

	return tip, nil
}

func (s *service) MarkSucceeded(ctx context.Context, tipID string, processedAt time.Time) error {
	ok, err := s.repo.UpdateStatus(ctx, tipID, models.TipStatusPending, models.TipStatusSucceeded, &processedAt)
	if err != nil {
		return fmt.Errorf("failed to mark tip succeeded: %w", err)
	}
	if !ok {
		return apperrors.ErrInvalidTransition
	}
	return nil
}

func (s *service) MarkFailed(ctx context.Context, tipID string) error {
	ok, err := s.repo.UpdateStatus(ctx, tipID, models.TipStatusPending, models.TipStatusFailed, nil)
	if err != nil {
		return fmt.Errorf("failed to mark tip failed: %w", err)
	}
	if !ok {
		return apperrors.ErrInvalidTransition
	}
	return nil
}

func (s *service) CanRefund(ctx context.Context, tipID string, now time.Time) (bool, string) {
	tip, err := s.repo.GetByID(ctx, tipID)
	if err != nil {
		return false, "tip not found"
	}

	switch tip.Status {
	case models.TipStatusRefundPending, models.TipStatusRefunded:
		return false, "refund already initiated"
	case models.TipStatusSucceeded:
		// fall through to the window check
	default:
		return false, "tip has not settled"
	}

	if tip.SucceededAt == nil || now.Sub(*tip.SucceededAt) > s.config.RefundWindow {
		return false, "refund window expired"
	}
	return true, ""
}

// InitiateRefund transitions SUCCEEDED -> REFUND_PENDING, calls the
// processor, and completes to REFUNDED on confirmation. A failed processor
// call rolls the status back to SUCCEEDED so no tip is stranded in
// REFUND_PENDING without a retry path.
func (s *service) InitiateRefund(ctx context.Context, tipID string) (*models.Tip, error) {
	if ok, reason := s.CanRefund(ctx, tipID, time.Now().UTC()); !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrNotRefundable, reason)
	}

	tip, err := s.repo.GetByID(ctx, tipID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tip: %w", err)
	}

	ok, err := s.repo.UpdateStatus(ctx, tipID, models.TipStatusSucceeded, models.TipStatusRefundPending, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start refund: %w", err)
	}
	if !ok {
		// A concurrent refund got there first.
		return nil, fmt.Errorf("%w: refund already initiated", apperrors.ErrNotRefundable)
	}

	if err := s.provider.Refund(ctx, tip.PaymentIntentID); err != nil {
		if _, rbErr := s.repo.UpdateStatus(ctx, tipID, models.TipStatusRefundPending, models.TipStatusSucceeded, nil); rbErr != nil {
			log.Printf("failed to roll back refund for tip %s: %v", tipID, rbErr)
		}
		return nil, fmt.Errorf("refund call failed: %w", err)
	}

	if _, err := s.repo.UpdateStatus(ctx, tipID, models.TipStatusRefundPending, models.TipStatusRefunded, nil); err != nil {
		return nil, fmt.Errorf("failed to complete refund: %w", err)
	}

	return s.repo.GetByID(ctx, tipID)
}

func (s *service) GetByID(ctx context.Context, tipID string) (*models.Tip, error) {
	return s.repo.GetByID(ctx, tipID)
}

// GetByIdempotencyKey lets callers detect a retried request before spending
// any side effect of their own, such as a token scan.
func (s *service) GetByIdempotencyKey(ctx context.Context, key string) (*models.Tip, error) {
	return s.repo.GetByIdempotencyKey(ctx, key)
}

func (s *service) GetByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Tip, error) {
	return s.repo.GetByPaymentIntent(ctx, paymentIntentID)
}

func (s *service) TipsTotalForStaff(ctx context.Context, staffID string, from, to time.Time) (decimal.Decimal, error) {
	return s.repo.TotalForStaff(ctx, staffID, from, to)
}

func validateRequest(req *CreateTipRequest, defaultCurrency string) error {
	if req.StaffID == "" || req.QRTokenID == "" {
		return errors.New("staff and token are required")
	}
	if req.IdempotencyKey == "" {
		return errors.New("idempotency key is required")
	}
	if !req.Amount.IsPositive() {
		return apperrors.ErrInvalidAmount
	}
	if req.Currency == "" {
		req.Currency = defaultCurrency
	}
	if len(req.Currency) != 3 {
		return fmt.Errorf("invalid currency code: %s", req.Currency)
	}
	return nil
}
