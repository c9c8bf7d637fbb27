package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pharmacy_pos_backend/internal/models"
	"pharmacy_pos_backend/internal/repositories"
	"pharmacy_pos_backend/pkg/utils"
)

// CustomerRequest DTO, used for create and full update.
type CustomerRequest struct {
	Name    string  `json:"name" binding:"required"`
	Phone   *string `json:"phone"`
	Email   *string `json:"email"`
	Address *string `json:"address"`
}

// CustomerService manages the tenant's customers.
type CustomerService interface {
	CreateCustomer(ctx context.Context, ownerID int64, req CustomerRequest) (*models.Customer, error)
	GetCustomers(ctx context.Context, ownerID int64, page, pageSize int, search *string) ([]models.Customer, int, error)
	GetCustomerByID(ctx context.Context, ownerID, customerID int64) (*models.Customer, error)
	UpdateCustomer(ctx context.Context, ownerID, customerID int64, req CustomerRequest) (*models.Customer, error)
	DeleteCustomer(ctx context.Context, ownerID, customerID int64) error
}

type customerService struct {
	customerRepo repositories.CustomerRepository
	db           repositories.SQLExecutor
	guard        UsageGuard
}

// NewCustomerService creates a new instance of CustomerService.
func NewCustomerService(cr repositories.CustomerRepository, db repositories.SQLExecutor, guard UsageGuard) CustomerService {
	return &customerService{customerRepo: cr, db: db, guard: guard}
}

func customerFromRequest(ownerID int64, req CustomerRequest) (*models.Customer, error) {
	c := &models.Customer{
		OwnerID: ownerID,
		Name:    strings.TrimSpace(req.Name),
		Phone:   utils.NewNullString(utils.DerefString(req.Phone)),
		Email:   utils.NewNullString(utils.NormalizeEmail(utils.DerefString(req.Email))),
		Address: utils.NewNullString(utils.DerefString(req.Address)),
	}
	if c.Name == "" {
		return nil, fmt.Errorf("%w: customer name is required", ErrValidation)
	}
	if c.Email != nil && !utils.IsValidEmail(*c.Email) {
		return nil, fmt.Errorf("%w: invalid email format", ErrValidation)
	}
	return c, nil
}

func (s *customerService) CreateCustomer(ctx context.Context, ownerID int64, req CustomerRequest) (*models.Customer, error) {
	customer, err := customerFromRequest(ownerID, req)
	if err != nil {
		return nil, err
	}
	if err := s.guard.CheckLimit(ctx, ownerID, models.ResourceCustomers); err != nil {
		return nil, err
	}
	if _, err := s.customerRepo.CreateCustomer(ctx, s.db, customer); err != nil {
		return nil, fmt.Errorf("%w: creating customer: %v", ErrPersistence, err)
	}
	return customer, nil
}

func (s *customerService) GetCustomers(ctx context.Context, ownerID int64, page, pageSize int, search *string) ([]models.Customer, int, error) {
	customers, total, err := s.customerRepo.GetCustomers(ctx, ownerID, page, pageSize, search)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: listing customers: %v", ErrPersistence, err)
	}
	return customers, total, nil
}

func (s *customerService) GetCustomerByID(ctx context.Context, ownerID, customerID int64) (*models.Customer, error) {
	customer, err := s.customerRepo.GetCustomerByID(ctx, ownerID, customerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("%w: loading customer %d: %v", ErrPersistence, customerID, err)
	}
	return customer, nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, ownerID, customerID int64, req CustomerRequest) (*models.Customer, error) {
	existing, err := s.GetCustomerByID(ctx, ownerID, customerID)
	if err != nil {
		return nil, err
	}
	customer, err := customerFromRequest(ownerID, req)
	if err != nil {
		return nil, err
	}
	customer.ID = existing.ID
	customer.CreatedAt = existing.CreatedAt
	if err := s.customerRepo.UpdateCustomer(ctx, s.db, customer); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("%w: updating customer %d: %v", ErrPersistence, customerID, err)
	}
	return customer, nil
}

// DeleteCustomer refuses to remove a customer that still has bills.
func (s *customerService) DeleteCustomer(ctx context.Context, ownerID, customerID int64) error {
	if err := s.customerRepo.DeleteCustomer(ctx, s.db, ownerID, customerID); err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			return ErrCustomerNotFound
		case errors.Is(err, repositories.ErrReferenced):
			return fmt.Errorf("%w: customer %d has bills", ErrInUse, customerID)
		}
		return fmt.Errorf("%w: deleting customer %d: %v", ErrPersistence, customerID, err)
	}
	return nil
}
