package service

import (
	"context"
	"fmt"
	"time"

	"github.com/diagnosis/cleanbook/pkg/config"
	"github.com/diagnosis/cleanbook/pkg/payments"
	"github.com/diagnosis/cleanbook/pkg/utils"
	"github.com/diagnosis/cleanbook/services/bookings/internal/domain"
	"github.com/diagnosis/cleanbook/services/bookings/internal/repository"
)

type BillingService interface {
	// SetupIntent prepares the hosted payment element to save a card for
	// off-session use.
	SetupIntent(ctx context.Context, email, name string) (*payments.SetupIntent, error)

	ListInvoices(ctx context.Context, status *domain.InvoiceStatus, limit, offset int) ([]domain.Invoice, error)
	GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error)
	MarkPaid(ctx context.Context, id int64) (*domain.Invoice, error)
	Void(ctx context.Context, id int64) (*domain.Invoice, error)

	// Analytics summarizes bookings dated within [from, to]. Empty bounds
	// default to the current month.
	Analytics(ctx context.Context, from, to string) (*domain.AnalyticsSummary, error)
}

type billingService struct {
	invoiceRepo   repository.InvoiceRepository
	analyticsRepo repository.AnalyticsRepository
	payments      payments.Provider
	loc           *time.Location
	now           func() time.Time
}

func NewBillingService(
	invoiceRepo repository.InvoiceRepository,
	analyticsRepo repository.AnalyticsRepository,
	paymentProvider payments.Provider,
	cfg config.BookingConfig,
	opts ...Option,
) BillingService {
	o := buildOptions(opts)
	return &billingService{
		invoiceRepo:   invoiceRepo,
		analyticsRepo: analyticsRepo,
		payments:      paymentProvider,
		loc:           cfg.Location(),
		now:           o.now,
	}
}

func (s *billingService) SetupIntent(ctx context.Context, email, name string) (*payments.SetupIntent, error) {
	si, err := s.payments.CreateSetupIntent(ctx, utils.NormalizeEmail(email), utils.NormalizeString(name))
	if err != nil {
		return nil, fmt.Errorf("create setup intent: %w", err)
	}
	return si, nil
}

func (s *billingService) ListInvoices(ctx context.Context, status *domain.InvoiceStatus, limit, offset int) ([]domain.Invoice, error) {
	return s.invoiceRepo.List(ctx, status, limit, offset)
}

func (s *billingService) GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error) {
	inv, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	return inv, nil
}

func (s *billingService) setStatus(ctx context.Context, id int64, status domain.InvoiceStatus) (*domain.Invoice, error) {
	if _, err := s.GetInvoice(ctx, id); err != nil {
		return nil, err
	}
	inv, err := s.invoiceRepo.SetStatus(ctx, id, status, s.now())
	if err != nil {
		return nil, fmt.Errorf("update invoice: %w", err)
	}
	if inv == nil {
		return nil, domain.ErrInvalidTransition
	}
	return inv, nil
}

func (s *billingService) MarkPaid(ctx context.Context, id int64) (*domain.Invoice, error) {
	return s.setStatus(ctx, id, domain.InvoicePaid)
}

func (s *billingService) Void(ctx context.Context, id int64) (*domain.Invoice, error) {
	return s.setStatus(ctx, id, domain.InvoiceVoid)
}

func (s *billingService) Analytics(ctx context.Context, from, to string) (*domain.AnalyticsSummary, error) {
	now := s.now().In(s.loc)
	if from == "" {
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc).Format(domain.DateLayout)
	}
	if to == "" {
		to = now.Format(domain.DateLayout)
	}
	if _, err := domain.ParseDate(from); err != nil {
		return nil, err
	}
	if _, err := domain.ParseDate(to); err != nil {
		return nil, err
	}
	if to < from {
		return nil, domain.ErrInvalidDate
	}
	sum, err := s.analyticsRepo.Summary(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("analytics summary: %w", err)
	}
	return sum, nil
}
