package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pharmacy_pos_backend/internal/models"
	"pharmacy_pos_backend/internal/repositories"
	"pharmacy_pos_backend/pkg/utils"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// --- Data Transfer Objects (DTOs) ---

// LoginRequest DTO
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterUserRequest DTO. Only shop roles can self-register; admins are seeded.
type RegisterUserRequest struct {
	Email       string  `json:"email" binding:"required"`
	Password    string  `json:"password" binding:"required"`
	Name        string  `json:"name" binding:"required"`
	Role        string  `json:"role" binding:"required"`
	ShopName    *string `json:"shopName"`
	ShopAddress *string `json:"shopAddress"`
	Phone       *string `json:"phone"`
}

// CreateStaffRequest DTO. Staff accounts inherit the owner's shop details.
type CreateStaffRequest struct {
	Email    string  `json:"email" binding:"required"`
	Password string  `json:"password" binding:"required"`
	Name     string  `json:"name" binding:"required"`
	Role     string  `json:"role"` // defaults to drugist
	Phone    *string `json:"phone"`
}

// AuthResponse DTO
type AuthResponse struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"accessToken"`
	ExpiresIn   int64        `json:"expiresIn"`
}

// AuthService handles accounts and token issuance.
type AuthService interface {
	RegisterUser(ctx context.Context, req RegisterUserRequest) (*models.User, error)
	LoginUser(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	GetUserProfile(ctx context.Context, userID int64) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.UserWithSubscription, error)
	CreateStaffUser(ctx context.Context, ownerID int64, req CreateStaffRequest) (*models.User, error)
}

type authService struct {
	authRepo   repositories.AuthRepository
	db         repositories.SQLExecutor
	jwtManager *utils.JWTManager
	guard      UsageGuard
}

// NewAuthService creates a new instance of AuthService. guard enforces the
// plan's user limit when owners add staff.
func NewAuthService(authRepo repositories.AuthRepository, db repositories.SQLExecutor, jwtManager *utils.JWTManager, guard UsageGuard) AuthService {
	return &authService{
		authRepo:   authRepo,
		db:         db,
		jwtManager: jwtManager,
		guard:      guard,
	}
}

// parseShopRole accepts the two shop roles. An empty value yields fallback.
func parseShopRole(raw string, fallback models.Role) (models.Role, error) {
	role := models.Role(strings.ToLower(strings.TrimSpace(raw)))
	if role == "" {
		role = fallback
	}
	if role != models.RoleChemist && role != models.RoleDrugist {
		return "", fmt.Errorf("%w: role must be chemist or drugist", ErrValidation)
	}
	return role, nil
}

// newAccount validates credentials and returns a user with a hashed password.
func newAccount(email, password, name string, role models.Role) (*models.User, error) {
	email = utils.NormalizeEmail(email)
	if !utils.IsValidEmail(email) {
		return nil, fmt.Errorf("%w: invalid email format", ErrValidation)
	}
	if !utils.IsValidPasswordLength(password, minPasswordLength) {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}
	if utils.IsEmpty(name) {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}

	hashedPasswordBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return &models.User{
		Email:        email,
		Name:         strings.TrimSpace(name),
		Role:         role,
		PasswordHash: string(hashedPasswordBytes),
	}, nil
}

func (s *authService) insertUser(ctx context.Context, user *models.User, op string) error {
	if _, err := s.authRepo.CreateUser(ctx, s.db, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return ErrEmailExists
		}
		return fmt.Errorf("%w: %s: %v", ErrPersistence, op, err)
	}
	user.PasswordHash = ""
	return nil
}

func (s *authService) RegisterUser(ctx context.Context, req RegisterUserRequest) (*models.User, error) {
	role, err := parseShopRole(req.Role, "")
	if err != nil {
		return nil, err
	}
	user, err := newAccount(req.Email, req.Password, req.Name, role)
	if err != nil {
		return nil, err
	}
	user.ShopName = utils.NewNullString(utils.DerefString(req.ShopName))
	user.ShopAddress = utils.NewNullString(utils.DerefString(req.ShopAddress))
	user.Phone = utils.NewNullString(utils.DerefString(req.Phone))

	if err := s.insertUser(ctx, user, "registering user"); err != nil {
		return nil, err
	}
	utils.LogInfo("User registered", map[string]interface{}{"user_id": user.ID, "role": user.Role})
	return user, nil
}

// CreateStaffUser adds an account that works on ownerID's shop. Only a shop
// owner can do this, and each new account counts against the plan's user limit.
func (s *authService) CreateStaffUser(ctx context.Context, ownerID int64, req CreateStaffRequest) (*models.User, error) {
	owner, err := s.authRepo.FindUserByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: loading owner %d: %v", ErrPersistence, ownerID, err)
	}
	if owner.OwnerID != nil || (owner.Role != models.RoleChemist && owner.Role != models.RoleDrugist) {
		return nil, fmt.Errorf("%w: only a shop owner can add staff", ErrForbidden)
	}

	role, err := parseShopRole(req.Role, models.RoleDrugist)
	if err != nil {
		return nil, err
	}
	user, err := newAccount(req.Email, req.Password, req.Name, role)
	if err != nil {
		return nil, err
	}
	if err := s.guard.CheckLimit(ctx, owner.ID, models.ResourceUsers); err != nil {
		return nil, err
	}

	user.OwnerID = &owner.ID
	user.ShopName = owner.ShopName
	user.ShopAddress = owner.ShopAddress
	user.Phone = utils.NewNullString(utils.DerefString(req.Phone))
	if err := s.insertUser(ctx, user, "creating staff user"); err != nil {
		return nil, err
	}
	utils.LogInfo("Staff user created", map[string]interface{}{"user_id": user.ID, "owner_id": owner.ID, "role": user.Role})
	return user, nil
}

func (s *authService) LoginUser(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, err := s.authRepo.FindUserByEmail(ctx, utils.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: login lookup: %v", ErrPersistence, err)
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	var tenantID int64
	if user.OwnerID != nil {
		tenantID = *user.OwnerID
	}
	accessToken, err := s.jwtManager.GenerateTenantAccessToken(user.ID, tenantID, user.Email, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	user.PasswordHash = ""
	return &AuthResponse{
		User:        user,
		AccessToken: accessToken,
		ExpiresIn:   int64(s.jwtManager.TTL().Seconds()),
	}, nil
}

func (s *authService) GetUserProfile(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.authRepo.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: loading profile: %v", ErrPersistence, err)
	}
	user.PasswordHash = ""
	return user, nil
}

// ListUsers is the admin view of every account with its subscription.
func (s *authService) ListUsers(ctx context.Context) ([]models.UserWithSubscription, error) {
	users, err := s.authRepo.ListUsersWithSubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing users: %v", ErrPersistence, err)
	}
	return users, nil
}
