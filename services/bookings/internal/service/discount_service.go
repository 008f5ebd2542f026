package service

import (
	"context"
	"fmt"
	"time"

	"github.com/diagnosis/cleanbook/pkg/config"
	"github.com/diagnosis/cleanbook/pkg/utils"
	"github.com/diagnosis/cleanbook/services/bookings/internal/domain"
	"github.com/diagnosis/cleanbook/services/bookings/internal/repository"
)

// Quote is the priced outcome of applying at most one promo code and one
// referral code to a subtotal.
type Quote struct {
	SubtotalCents         int64             `json:"subtotalCents"`
	PromoDiscountCents    int64             `json:"promoDiscountCents"`
	ReferralDiscountCents int64             `json:"referralDiscountCents"`
	DiscountCents         int64             `json:"discountCents"`
	TotalCents            int64             `json:"totalCents"`
	Promo                 *domain.PromoCode `json:"-"`
	Referrer              *domain.Customer  `json:"-"`
	ReferralCode          string            `json:"referralCode,omitempty"`
}

type DiscountService interface {
	ValidatePromo(ctx context.Context, req domain.ValidatePromoRequest) (*domain.PromoValidation, error)
	ValidateReferral(ctx context.Context, req domain.ValidateReferralRequest) (*domain.ReferralValidation, error)
	// Quote re-validates both codes against subtotal. Empty codes are skipped.
	Quote(ctx context.Context, subtotal int64, promoCode, referralCode, email string) (*Quote, error)
	ReferralStats(ctx context.Context, email string) (*domain.ReferralStats, error)

	ListPromos(ctx context.Context, limit, offset int) ([]domain.PromoCode, error)
	GetPromo(ctx context.Context, id int64) (*domain.PromoCode, error)
	CreatePromo(ctx context.Context, in domain.PromoCodeInput) (*domain.PromoCode, error)
	UpdatePromo(ctx context.Context, id int64, in domain.PromoCodeInput) (*domain.PromoCode, error)
	DeletePromo(ctx context.Context, id int64) error
}

type discountService struct {
	promoRepo    repository.PromoRepository
	referralRepo repository.ReferralRepository
	customerRepo repository.CustomerRepository
	cfg          config.BookingConfig
	now          func() time.Time
}

func NewDiscountService(
	promoRepo repository.PromoRepository,
	referralRepo repository.ReferralRepository,
	customerRepo repository.CustomerRepository,
	cfg config.BookingConfig,
	opts ...Option,
) DiscountService {
	o := buildOptions(opts)
	return &discountService{
		promoRepo:    promoRepo,
		referralRepo: referralRepo,
		customerRepo: customerRepo,
		cfg:          cfg,
		now:          o.now,
	}
}

func (s *discountService) promo(ctx context.Context, code string, subtotal int64) (*domain.PromoCode, int64, error) {
	p, err := s.promoRepo.GetByCode(ctx, utils.NormalizeCode(code))
	if err != nil {
		return nil, 0, fmt.Errorf("lookup promo code: %w", err)
	}
	if p == nil {
		return nil, 0, domain.ErrInvalidPromo
	}
	if err := p.Validate(s.now(), subtotal); err != nil {
		return nil, 0, err
	}
	return p, p.DiscountFor(subtotal), nil
}

func (s *discountService) ValidatePromo(ctx context.Context, req domain.ValidatePromoRequest) (*domain.PromoValidation, error) {
	p, discount, err := s.promo(ctx, req.Code, req.SubtotalCents)
	if err != nil {
		return nil, err
	}
	return &domain.PromoValidation{
		PromoCodeID:   p.ID,
		Code:          p.Code,
		DiscountType:  p.DiscountType,
		DiscountValue: p.DiscountValue,
		DiscountCents: discount,
	}, nil
}

func (s *discountService) referrer(ctx context.Context, code, email string) (*domain.Customer, error) {
	code = utils.NormalizeCode(code)
	email = utils.NormalizeEmail(email)

	referrer, err := s.customerRepo.GetByReferralCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("lookup referral code: %w", err)
	}
	if referrer == nil {
		return nil, domain.ErrInvalidReferral
	}
	if referrer.Email == email {
		return nil, domain.ErrSelfReferral
	}

	existing, err := s.referralRepo.GetByRefereeEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup referral: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrAlreadyReferred
	}
	return referrer, nil
}

func (s *discountService) ValidateReferral(ctx context.Context, req domain.ValidateReferralRequest) (*domain.ReferralValidation, error) {
	referrer, err := s.referrer(ctx, req.Code, req.Email)
	if err != nil {
		return nil, err
	}
	return &domain.ReferralValidation{
		ReferralCode:  referrer.ReferralCode,
		DiscountCents: s.cfg.ReferralDiscountCents,
	}, nil
}

func (s *discountService) Quote(ctx context.Context, subtotal int64, promoCode, referralCode, email string) (*Quote, error) {
	q := &Quote{SubtotalCents: subtotal}

	if promoCode != "" {
		p, discount, err := s.promo(ctx, promoCode, subtotal)
		if err != nil {
			return nil, err
		}
		q.Promo = p
		q.PromoDiscountCents = discount
	}

	if referralCode != "" {
		referrer, err := s.referrer(ctx, referralCode, email)
		if err != nil {
			return nil, err
		}
		q.Referrer = referrer
		q.ReferralCode = referrer.ReferralCode
		q.ReferralDiscountCents = s.cfg.ReferralDiscountCents
	}

	q.DiscountCents = min(q.PromoDiscountCents+q.ReferralDiscountCents, subtotal)
	q.TotalCents = subtotal - q.DiscountCents
	return q, nil
}

func (s *discountService) ReferralStats(ctx context.Context, email string) (*domain.ReferralStats, error) {
	email = utils.NormalizeEmail(email)
	c, err := s.customerRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup customer: %w", err)
	}
	if c == nil {
		return nil, domain.ErrNotFound
	}

	refs, err := s.referralRepo.ListByReferrer(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("list referrals: %w", err)
	}

	stats := &domain.ReferralStats{ReferralCode: c.ReferralCode, TotalReferrals: len(refs)}
	for _, r := range refs {
		switch r.Status {
		case domain.ReferralCompleted:
			stats.CompletedReferrals++
			stats.CreditsEarnedCents += r.RewardCents
		default:
			stats.PendingReferrals++
		}
	}
	return stats, nil
}

func (s *discountService) ListPromos(ctx context.Context, limit, offset int) ([]domain.PromoCode, error) {
	return s.promoRepo.List(ctx, limit, offset)
}

func (s *discountService) GetPromo(ctx context.Context, id int64) (*domain.PromoCode, error) {
	p, err := s.promoRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (s *discountService) CreatePromo(ctx context.Context, in domain.PromoCodeInput) (*domain.PromoCode, error) {
	in.Code = utils.NormalizeCode(in.Code)
	if err := in.ValidateRange(); err != nil {
		return nil, err
	}
	p, err := s.promoRepo.Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create promo code: %w", err)
	}
	return p, nil
}

func (s *discountService) UpdatePromo(ctx context.Context, id int64, in domain.PromoCodeInput) (*domain.PromoCode, error) {
	in.Code = utils.NormalizeCode(in.Code)
	if err := in.ValidateRange(); err != nil {
		return nil, err
	}
	p, err := s.promoRepo.Update(ctx, id, in)
	if err != nil {
		return nil, fmt.Errorf("update promo code: %w", err)
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (s *discountService) DeletePromo(ctx context.Context, id int64) error {
	ok, err := s.promoRepo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete promo code: %w", err)
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}
