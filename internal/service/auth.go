// Package service implements the application logic between the HTTP
// handlers and the store: accounts, sessions, ebook curation, catalog
// browsing and search.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kidobra/kidobra-server/internal/auth"
	"github.com/kidobra/kidobra-server/internal/color"
	"github.com/kidobra/kidobra-server/internal/domain"
	domainerrors "github.com/kidobra/kidobra-server/internal/errors"
	"github.com/kidobra/kidobra-server/internal/id"
	"github.com/kidobra/kidobra-server/internal/store"
)

// validate is a shared validator instance for request validation.
var validate = func() *validator.Validate {
	v := validator.New()
	// Use JSON tag names for field names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("json")
		if name == "" {
			return fld.Name
		}
		// Remove any options (like omitempty, -)
		for i := range len(name) {
			if name[i] == ',' {
				return name[:i]
			}
		}
		return name
	})
	return v
}()

// AuthService handles user registration, login and token verification.
// Session management is delegated to SessionService.
type AuthService struct {
	store          *store.Store
	tokenService   *auth.TokenService
	sessionService *SessionService
	logger         *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	store *store.Store,
	tokenService *auth.TokenService,
	sessionService *SessionService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		store:          store,
		tokenService:   tokenService,
		sessionService: sessionService,
		logger:         logger,
	}
}

// RegisterRequest contains user registration data.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=1024"`
	DisplayName string `json:"display_name" validate:"required,min=2,max=100"`
	DeviceID    string `json:"-"` // Extracted from header by handler
	IPAddress   string `json:"-"` // Extracted from request by handler
}

// LoginRequest contains user credentials.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	DeviceID  string `json:"-"` // Extracted from header by handler
	IPAddress string `json:"-"` // Extracted from request by handler
}

// RefreshRequest contains the refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	DeviceID     string `json:"-"` // Extracted from header by handler
	IPAddress    string `json:"-"` // Extracted from request by handler
}

// UserResponse is the API-safe representation of a user account.
type UserResponse struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	AvatarColor  string    `json:"avatar_color"`
	IsSubscriber bool      `json:"is_subscriber"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewUserResponse maps a domain user to its API representation.
// The password hash never leaves the service layer.
func NewUserResponse(user *domain.User) *UserResponse {
	return &UserResponse{
		ID:           user.ID,
		Email:        user.Email,
		DisplayName:  user.DisplayName,
		AvatarColor:  color.ForUser(user.ID),
		IsSubscriber: user.IsSubscriber,
		CreatedAt:    user.CreatedAt,
	}
}

// AuthResponse contains authentication tokens and user data.
type AuthResponse struct {
	User *UserResponse `json:"user"`
	SessionResponse
}

// Register creates a new user account and signs it in.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	// Validate request
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	// Hash password
	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := id.Generate("user")
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:           userID,
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		PasswordHash: passwordHash,
		AuthMethod:   domain.AuthMethodPassword,
		CreatedAt:    now,
		LastLoginAt:  now,
	}

	if err := s.store.Users.Create(ctx, userID, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("email already in use")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	sessionResp, err := s.sessionService.CreateSession(ctx, user, req.DeviceID, req.IPAddress)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("User registered",
			"user_id", userID,
			"email", user.Email,
		)
	}

	return &AuthResponse{
		User:            NewUserResponse(user),
		SessionResponse: *sessionResp,
	}, nil
}

// Login authenticates a user and creates a new session.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	// Validate request
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	// Find user by email
	user, err := s.store.Users.GetByIndex(ctx, "email", req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Don't leak whether email exists
			return nil, domainerrors.InvalidCredentials("invalid email or password")
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if user.AuthMethod != domain.AuthMethodPassword {
		return nil, domainerrors.InvalidCredentials("this account uses a federated sign-in")
	}

	// Verify password
	valid, err := auth.VerifyPassword(user.PasswordHash, req.Password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return nil, domainerrors.InvalidCredentials("invalid email or password")
	}

	// Update last login
	user.LastLoginAt = time.Now()
	if err := s.store.Users.Update(ctx, user.ID, user); err != nil {
		// Log but don't fail login
		if s.logger != nil {
			s.logger.Warn("Failed to update last login time",
				"user_id", user.ID,
				"error", err,
			)
		}
	}

	// Create session
	sessionResp, err := s.sessionService.CreateSession(ctx, user, req.DeviceID, req.IPAddress)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("User logged in",
			"user_id", user.ID,
			"device_id", req.DeviceID,
		)
	}

	return &AuthResponse{
		User:            NewUserResponse(user),
		SessionResponse: *sessionResp,
	}, nil
}

// RefreshTokens generates new tokens using a refresh token.
// The old refresh token is invalidated (token rotation).
func (s *AuthService) RefreshTokens(ctx context.Context, req RefreshRequest) (*AuthResponse, error) {
	// Validate request
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	sessionResp, user, err := s.sessionService.RefreshSession(ctx, req.RefreshToken, req.DeviceID, req.IPAddress)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		User:            NewUserResponse(user),
		SessionResponse: *sessionResp,
	}, nil
}

// Logout revokes a session and clears the device's selection slot so a
// later sign-in on the same device starts with no selected ebook.
func (s *AuthService) Logout(ctx context.Context, userID, sessionID, deviceID string) error {
	if err := s.sessionService.DeleteSession(ctx, sessionID); err != nil {
		return err
	}

	if deviceID != "" {
		if err := s.store.ClearSelection(ctx, userID, deviceID); err != nil {
			return fmt.Errorf("clear device selection: %w", err)
		}
	} else if err := s.store.ClearUserSelections(ctx, userID); err != nil {
		return fmt.Errorf("clear user selections: %w", err)
	}

	return nil
}

// VerifyAccessToken validates a token and returns the associated user.
// Used by authentication middleware.
func (s *AuthService) VerifyAccessToken(ctx context.Context, tokenString string) (*domain.User, *auth.AccessClaims, error) {
	// Verify and parse token
	claims, err := s.tokenService.VerifyAccessToken(tokenString)
	if err != nil {
		return nil, nil, domainerrors.Unauthorized("invalid token").WithCause(err)
	}

	// Get user
	user, err := s.store.Users.Get(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, domainerrors.Unauthorized("user not found")
		}
		return nil, nil, fmt.Errorf("get user: %w", err)
	}

	return user, claims, nil
}

// GetProfile returns the API representation of a user account.
func (s *AuthService) GetProfile(ctx context.Context, userID string) (*UserResponse, error) {
	user, err := s.store.Users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return NewUserResponse(user), nil
}

// UpdateProfileRequest contains the editable profile fields.
type UpdateProfileRequest struct {
	DisplayName string `json:"display_name" validate:"required,min=2,max=100"`
}

// UpdateProfile changes a user's display name.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*UserResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	user, err := s.store.Users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	user.DisplayName = req.DisplayName
	if err := s.store.Users.Update(ctx, userID, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Profile updated", "user_id", userID)
	}

	return NewUserResponse(user), nil
}

// formatValidationError converts validator errors to user-friendly domain errors.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		// Return first validation error as a domain error
		for _, e := range validationErrs {
			field := e.Field()
			switch e.Tag() {
			case "required":
				return domainerrors.Validationf("%s is required", field)
			case "email":
				return domainerrors.Validationf("%s must be a valid email address", field)
			case "min":
				return domainerrors.Validationf("%s must be at least %s characters", field, e.Param())
			case "max":
				return domainerrors.Validationf("%s exceeds maximum length of %s characters", field, e.Param())
			default:
				return domainerrors.Validationf("%s is invalid", field)
			}
		}
	}
	return err
}
