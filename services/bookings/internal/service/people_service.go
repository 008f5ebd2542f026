package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/diagnosis/cleanbook/pkg/auth"
	"github.com/diagnosis/cleanbook/pkg/utils"
	"github.com/diagnosis/cleanbook/services/bookings/internal/domain"
	"github.com/diagnosis/cleanbook/services/bookings/internal/repository"
)

// PeopleService manages customer records and staff accounts.
type PeopleService interface {
	ListCustomers(ctx context.Context, search string, limit, offset int) ([]domain.Customer, error)
	GetCustomer(ctx context.Context, id int64) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, id int64, patch domain.CustomerPatch) (*domain.Customer, error)

	ListEmployees(ctx context.Context, activeOnly bool) ([]domain.Employee, error)
	GetEmployee(ctx context.Context, id int64) (*domain.Employee, error)
	CreateEmployee(ctx context.Context, e *domain.Employee) (*domain.Employee, error)
	UpdateEmployee(ctx context.Context, id int64, e *domain.Employee) (*domain.Employee, error)
	DeleteEmployee(ctx context.Context, id int64) error
}

type peopleService struct {
	customerRepo repository.CustomerRepository
	employeeRepo repository.EmployeeRepository
}

func NewPeopleService(customerRepo repository.CustomerRepository, employeeRepo repository.EmployeeRepository) PeopleService {
	return &peopleService{customerRepo: customerRepo, employeeRepo: employeeRepo}
}

func (s *peopleService) ListCustomers(ctx context.Context, search string, limit, offset int) ([]domain.Customer, error) {
	return s.customerRepo.List(ctx, utils.NormalizeString(search), limit, offset)
}

func (s *peopleService) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	c, err := s.customerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	if c == nil {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func (s *peopleService) UpdateCustomer(ctx context.Context, id int64, patch domain.CustomerPatch) (*domain.Customer, error) {
	if patch.Name != nil {
		*patch.Name = utils.NormalizeString(*patch.Name)
	}
	if patch.Phone != nil {
		*patch.Phone = utils.NormalizePhone(*patch.Phone)
	}
	if patch.ZipCode != nil {
		*patch.ZipCode = utils.NormalizeZip(*patch.ZipCode)
		if !utils.IsValidZip(*patch.ZipCode) {
			return nil, domain.ErrInvalidZip
		}
	}
	c, err := s.customerRepo.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update customer: %w", err)
	}
	if c == nil {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func normalizeEmployee(e *domain.Employee) error {
	e.Name = utils.NormalizeString(e.Name)
	e.Email = utils.NormalizeEmail(e.Email)
	e.Phone = utils.NormalizePhone(e.Phone)
	e.Position = utils.NormalizeString(e.Position)
	for _, p := range e.Permissions {
		if !auth.IsPermission(p) {
			return fmt.Errorf("%w: %q", domain.ErrUnknownPermission, p)
		}
	}
	slices.Sort(e.Permissions)
	e.Permissions = slices.Compact(e.Permissions)
	if e.Permissions == nil {
		e.Permissions = []string{}
	}
	return nil
}

func (s *peopleService) ListEmployees(ctx context.Context, activeOnly bool) ([]domain.Employee, error) {
	return s.employeeRepo.List(ctx, activeOnly)
}

func (s *peopleService) GetEmployee(ctx context.Context, id int64) (*domain.Employee, error) {
	e, err := s.employeeRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get employee: %w", err)
	}
	if e == nil {
		return nil, domain.ErrNotFound
	}
	return e, nil
}

func (s *peopleService) CreateEmployee(ctx context.Context, e *domain.Employee) (*domain.Employee, error) {
	if err := normalizeEmployee(e); err != nil {
		return nil, err
	}
	created, err := s.employeeRepo.Create(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("create employee: %w", err)
	}
	return created, nil
}

func (s *peopleService) UpdateEmployee(ctx context.Context, id int64, e *domain.Employee) (*domain.Employee, error) {
	if err := normalizeEmployee(e); err != nil {
		return nil, err
	}
	updated, err := s.employeeRepo.Update(ctx, id, e)
	if err != nil {
		return nil, fmt.Errorf("update employee: %w", err)
	}
	if updated == nil {
		return nil, domain.ErrNotFound
	}
	return updated, nil
}

func (s *peopleService) DeleteEmployee(ctx context.Context, id int64) error {
	ok, err := s.employeeRepo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete employee: %w", err)
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}
