package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/diagnosis/cleanbook/pkg/utils"
	"github.com/diagnosis/cleanbook/services/bookings/internal/domain"
	"github.com/diagnosis/cleanbook/services/bookings/internal/repository"
)

type AreaService interface {
	// Check reports whether an active area serves zip.
	Check(ctx context.Context, zip string) (*domain.ZipCheck, error)
	List(ctx context.Context, activeOnly bool) ([]domain.ServiceArea, error)
	Create(ctx context.Context, a *domain.ServiceArea) (*domain.ServiceArea, error)
	Update(ctx context.Context, id int64, a *domain.ServiceArea) (*domain.ServiceArea, error)
	Delete(ctx context.Context, id int64) error
}

type areaService struct {
	areaRepo repository.AreaRepository
}

func NewAreaService(areaRepo repository.AreaRepository) AreaService {
	return &areaService{areaRepo: areaRepo}
}

func (s *areaService) Check(ctx context.Context, zip string) (*domain.ZipCheck, error) {
	zip = utils.NormalizeZip(zip)
	if !utils.IsValidZip(zip) {
		return nil, domain.ErrInvalidZip
	}
	area, err := s.areaRepo.FindByZip(ctx, zip)
	if err != nil {
		return nil, fmt.Errorf("lookup service area: %w", err)
	}
	check := &domain.ZipCheck{ZipCode: zip}
	if area != nil {
		check.Served = true
		check.AreaName = area.Name
	}
	return check, nil
}

func (s *areaService) List(ctx context.Context, activeOnly bool) ([]domain.ServiceArea, error) {
	return s.areaRepo.List(ctx, activeOnly)
}

func normalizeArea(a *domain.ServiceArea) error {
	a.Name = utils.NormalizeString(a.Name)
	zips := make([]string, 0, len(a.ZipCodes))
	for _, z := range a.ZipCodes {
		z = utils.NormalizeZip(z)
		if !utils.IsValidZip(z) {
			return fmt.Errorf("%w: %q", domain.ErrInvalidZip, z)
		}
		zips = append(zips, z)
	}
	slices.Sort(zips)
	a.ZipCodes = slices.Compact(zips)
	return nil
}

func (s *areaService) Create(ctx context.Context, a *domain.ServiceArea) (*domain.ServiceArea, error) {
	if err := normalizeArea(a); err != nil {
		return nil, err
	}
	created, err := s.areaRepo.Create(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("create service area: %w", err)
	}
	return created, nil
}

func (s *areaService) Update(ctx context.Context, id int64, a *domain.ServiceArea) (*domain.ServiceArea, error) {
	if err := normalizeArea(a); err != nil {
		return nil, err
	}
	updated, err := s.areaRepo.Update(ctx, id, a)
	if err != nil {
		return nil, fmt.Errorf("update service area: %w", err)
	}
	if updated == nil {
		return nil, domain.ErrNotFound
	}
	return updated, nil
}

func (s *areaService) Delete(ctx context.Context, id int64) error {
	ok, err := s.areaRepo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete service area: %w", err)
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}
