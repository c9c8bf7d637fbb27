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

// AgencyRequest DTO
type AgencyRequest struct {
	Name          string  `json:"name" binding:"required"`
	ContactPerson *string `json:"contactPerson"`
	Phone         *string `json:"phone"`
	Email         *string `json:"email"`
	Address       *string `json:"address"`
}

// AgencyService manages suppliers.
type AgencyService interface {
	CreateAgency(ctx context.Context, ownerID int64, req AgencyRequest) (*models.Agency, error)
	GetAgencies(ctx context.Context, ownerID int64) ([]models.Agency, error)
	GetAgencyByID(ctx context.Context, ownerID, agencyID int64) (*models.Agency, error)
	UpdateAgency(ctx context.Context, ownerID, agencyID int64, req AgencyRequest) (*models.Agency, error)
	DeleteAgency(ctx context.Context, ownerID, agencyID int64) error
}

type agencyService struct {
	agencyRepo repositories.AgencyRepository
	db         repositories.SQLExecutor
}

// NewAgencyService creates a new instance of AgencyService.
func NewAgencyService(ar repositories.AgencyRepository, db repositories.SQLExecutor) AgencyService {
	return &agencyService{agencyRepo: ar, db: db}
}

func agencyFromRequest(ownerID int64, req AgencyRequest) (*models.Agency, error) {
	a := &models.Agency{
		OwnerID:       ownerID,
		Name:          strings.TrimSpace(req.Name),
		ContactPerson: utils.NewNullString(utils.DerefString(req.ContactPerson)),
		Phone:         utils.NewNullString(utils.DerefString(req.Phone)),
		Email:         utils.NewNullString(utils.NormalizeEmail(utils.DerefString(req.Email))),
		Address:       utils.NewNullString(utils.DerefString(req.Address)),
	}
	if a.Name == "" {
		return nil, fmt.Errorf("%w: agency name is required", ErrValidation)
	}
	if a.Email != nil && !utils.IsValidEmail(*a.Email) {
		return nil, fmt.Errorf("%w: invalid email format", ErrValidation)
	}
	return a, nil
}

func (s *agencyService) CreateAgency(ctx context.Context, ownerID int64, req AgencyRequest) (*models.Agency, error) {
	agency, err := agencyFromRequest(ownerID, req)
	if err != nil {
		return nil, err
	}
	if _, err := s.agencyRepo.CreateAgency(ctx, s.db, agency); err != nil {
		return nil, fmt.Errorf("%w: creating agency: %v", ErrPersistence, err)
	}
	return agency, nil
}

func (s *agencyService) GetAgencies(ctx context.Context, ownerID int64) ([]models.Agency, error) {
	agencies, err := s.agencyRepo.GetAgencies(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: listing agencies: %v", ErrPersistence, err)
	}
	return agencies, nil
}

func (s *agencyService) GetAgencyByID(ctx context.Context, ownerID, agencyID int64) (*models.Agency, error) {
	agency, err := s.agencyRepo.GetAgencyByID(ctx, ownerID, agencyID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrAgencyNotFound
		}
		return nil, fmt.Errorf("%w: loading agency %d: %v", ErrPersistence, agencyID, err)
	}
	return agency, nil
}

func (s *agencyService) UpdateAgency(ctx context.Context, ownerID, agencyID int64, req AgencyRequest) (*models.Agency, error) {
	agency, err := agencyFromRequest(ownerID, req)
	if err != nil {
		return nil, err
	}
	agency.ID = agencyID
	if err := s.agencyRepo.UpdateAgency(ctx, s.db, agency); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrAgencyNotFound
		}
		return nil, fmt.Errorf("%w: updating agency %d: %v", ErrPersistence, agencyID, err)
	}
	return agency, nil
}

func (s *agencyService) DeleteAgency(ctx context.Context, ownerID, agencyID int64) error {
	if err := s.agencyRepo.DeleteAgency(ctx, s.db, ownerID, agencyID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrAgencyNotFound
		}
		return fmt.Errorf("%w: deleting agency %d: %v", ErrPersistence, agencyID, err)
	}
	return nil
}
