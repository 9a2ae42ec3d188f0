package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"ledger_backend/internal/models"
	"ledger_backend/internal/repositories"
	"ledger_backend/pkg/utils"
)

// SignInResult is returned to the client after a successful sign-in.
type SignInResult struct {
	Refresh string            `json:"refresh"`
	Access  string            `json:"access"`
	User    models.PublicUser `json:"user"`
}

// --- AuthService Interface ---
type AuthService interface {
	SignIn(ctx context.Context, creds models.Credentials) (*SignInResult, error)
	RegisterUser(ctx context.Context, cmd RegisterUserCommand) (*models.User, error)
	CreateSuperuser(ctx context.Context, cmd RegisterUserCommand) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, userID int64) (*models.User, error)
}

// AuthOption customises an auth service.
type AuthOption func(*authService)

// WithBcryptCost overrides bcrypt.DefaultCost.
func WithBcryptCost(cost int) AuthOption {
	return func(s *authService) { s.bcryptCost = cost }
}

// WithAuthClock replaces time.Now for last_login stamps.
func WithAuthClock(now func() time.Time) AuthOption {
	return func(s *authService) { s.now = now }
}

// --- authService Implementation ---
type authService struct {
	users      repositories.UserRepository
	tokens     TokenService
	bcryptCost int
	now        func() time.Time

	// compared against when the email is unknown so both paths cost one bcrypt round
	dummyHash []byte
}

// NewAuthService creates a new instance of AuthService.
func NewAuthService(users repositories.UserRepository, tokens TokenService, opts ...AuthOption) AuthService {
	s := &authService{
		users:      users,
		tokens:     tokens,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("ledger-dummy-password"), s.bcryptCost)
	return s
}

// SignIn checks the credentials, issues a token pair and stamps last_login.
// The password is verified before the active flag, so a disabled account
// with a wrong password still reports invalid credentials.
func (s *authService) SignIn(ctx context.Context, creds models.Credentials) (*SignInResult, error) {
	email := strings.TrimSpace(creds.Email)
	verr := &ValidationError{}
	if email == "" {
		verr.add("email", "This field is required.")
	}
	if utils.IsEmpty(creds.Password) {
		verr.add("password", "This field is required.")
	}
	if !verr.empty() {
		return nil, verr
	}

	user, err := s.users.FindUserByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(creds.Password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("sign-in attempt failed: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	pair, err := s.tokens.Issue(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, s.now().UTC()); err != nil {
		utils.LogWarn(err, "Failed to update last_login", map[string]interface{}{"user_id": user.ID})
	}

	public := user.Public()
	public.ID = 0
	return &SignInResult{Refresh: pair.Refresh, Access: pair.Access, User: public}, nil
}

// RegisterUser hashes the password and stores a new user.
func (s *authService) RegisterUser(ctx context.Context, cmd RegisterUserCommand) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, newValidationError("password", "Ensure this field has no more than 72 bytes.")
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        cmd.Email,
		PasswordHash: string(hash),
		FirstName:    cmd.FirstName,
		LastName:     cmd.LastName,
		IsActive:     cmd.IsActive,
		IsStaff:      cmd.IsStaff,
		IsSuperuser:  cmd.IsSuperuser,
		DateJoined:   s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, newValidationError("email", "User with this email already exists.")
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	return user, nil
}

// CreateSuperuser registers an active staff superuser.
func (s *authService) CreateSuperuser(ctx context.Context, cmd RegisterUserCommand) (*models.User, error) {
	cmd.IsActive = true
	cmd.IsStaff = true
	cmd.IsSuperuser = true
	return s.RegisterUser(ctx, cmd)
}

func (s *authService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.users.GetUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

func (s *authService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("loading user %d: %w", userID, err)
	}
	return user, nil
}
