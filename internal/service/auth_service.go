package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/apperror"
	"storefront/internal/auth"
	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// AuthService handles registration, credentials and user administration
type AuthService struct {
	repo   store.Repository
	tokens *auth.TokenIssuer
	logger *zap.Logger
}

func NewAuthService(repo store.Repository, tokens *auth.TokenIssuer) *AuthService {
	return &AuthService{
		repo:   repo,
		tokens: tokens,
		logger: util.GetLogger(),
	}
}

// RegisterRequest represents a new account
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Address  string `json:"address"`
}

// ProfileUpdate carries the optional fields of a profile change
type ProfileUpdate struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

// AuthResult is returned by register and login
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (r *RegisterRequest) validate() error {
	var details []string
	if blank(r.Name) {
		details = append(details, "Name is required")
	}
	if !validEmail(r.Email) {
		details = append(details, "Valid email is required")
	}
	if !validPhone(r.Phone) {
		details = append(details, "Valid phone number is required")
	}
	if !validPassword(r.Password) {
		details = append(details, passwordRule)
	}
	if blank(r.Address) {
		details = append(details, "Address is required")
	}
	if len(details) > 0 {
		return apperror.Validation("Validation failed", details...)
	}
	return nil
}

// Register creates a user account and issues a token for it
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*AuthResult, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Register")
	defer span.End()

	req.Email = normalizeEmail(req.Email)
	if err := req.validate(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	user := &models.User{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: hash,
		Address:      req.Address,
		Role:         models.RoleUser,
		IsActive:     true,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, util.RecordError(span, fmt.Errorf("failed to create user: %w", err))
	}

	s.logger.Info("User registered", zap.Int64("user_id", user.ID))
	return s.issue(user)
}

// Login exchanges an email and password for a token
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Login")
	defer span.End()

	if blank(email) || password == "" {
		return nil, apperror.Validation("Please provide email and password")
	}

	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		util.AuthFailuresTotal.WithLabelValues("unknown_email").Inc()
		return nil, apperror.Unauthorized("Invalid credentials")
	}
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		util.AuthFailuresTotal.WithLabelValues("bad_password").Inc()
		return nil, apperror.Unauthorized("Invalid credentials")
	}
	if !user.IsActive {
		util.AuthFailuresTotal.WithLabelValues("inactive").Inc()
		return nil, apperror.Unauthorized("Account is deactivated")
	}

	return s.issue(user)
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

// Authenticate resolves a bearer token to an active user
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.tokens.Parse(token)
	if err != nil {
		util.AuthFailuresTotal.WithLabelValues("invalid_token").Inc()
		return nil, apperror.Unauthorized("Not authorized to access this route")
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		util.AuthFailuresTotal.WithLabelValues("unknown_user").Inc()
		return nil, apperror.Unauthorized("Not authorized to access this route")
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		util.AuthFailuresTotal.WithLabelValues("inactive").Inc()
		return nil, apperror.Unauthorized("Account is deactivated")
	}
	return user, nil
}

// Me returns the current user
func (s *AuthService) Me(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, notFoundAs(err, "User not found")
	}
	return user, nil
}

// UpdateProfile applies the non-nil fields of upd
func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, upd *ProfileUpdate) (*models.User, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.UpdateProfile")
	defer span.End()

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, notFoundAs(err, "User not found")
	}

	var details []string
	if upd.Name != nil {
		if blank(*upd.Name) {
			details = append(details, "Name is required")
		}
		user.Name = *upd.Name
	}
	if upd.Email != nil {
		email := normalizeEmail(*upd.Email)
		if !validEmail(email) {
			details = append(details, "Valid email is required")
		}
		user.Email = email
	}
	if upd.Phone != nil {
		if !validPhone(*upd.Phone) {
			details = append(details, "Valid phone number is required")
		}
		user.Phone = *upd.Phone
	}
	if upd.Address != nil {
		if blank(*upd.Address) {
			details = append(details, "Address is required")
		}
		user.Address = *upd.Address
	}
	if len(details) > 0 {
		return nil, apperror.Validation("Validation failed", details...)
	}

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, util.RecordError(span, fmt.Errorf("failed to update user: %w", err))
	}
	return user, nil
}

// ChangePassword replaces the password after verifying the current one
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	ctx, span := util.StartSpan(ctx, "AuthService.ChangePassword")
	defer span.End()

	if current == "" || next == "" {
		return apperror.Validation("Please provide current and new password")
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return notFoundAs(err, "User not found")
	}
	if !auth.CheckPassword(user.PasswordHash, current) {
		return apperror.Unauthorized("Current password is incorrect")
	}
	if !validPassword(next) {
		return apperror.Validation(passwordRule)
	}

	hash, err := auth.HashPassword(next)
	if err != nil {
		return util.RecordError(span, err)
	}
	user.PasswordHash = hash
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return util.RecordError(span, fmt.Errorf("failed to update password: %w", err))
	}

	s.logger.Info("Password changed", zap.Int64("user_id", userID))
	return nil
}

// ListUsers returns a page of users
func (s *AuthService) ListUsers(ctx context.Context, page Page) ([]models.User, int, error) {
	return s.repo.ListUsers(ctx, page.Size, page.offset())
}

func (s *AuthService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "User not found")
	}
	return user, nil
}

// DeleteUser removes a user together with their cart, wishlist and orders
func (s *AuthService) DeleteUser(ctx context.Context, id int64) error {
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return notFoundAs(err, "User not found")
	}
	s.logger.Info("User deleted", zap.Int64("user_id", id))
	return nil
}

func (s *AuthService) UpdateUserRole(ctx context.Context, id int64, role models.Role) (*models.User, error) {
	if !role.IsValid() {
		return nil, apperror.Validation("Invalid role")
	}

	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "User not found")
	}
	user.Role = role
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	s.logger.Info("User role updated", zap.Int64("user_id", id), zap.String("role", string(role)))
	return user, nil
}
