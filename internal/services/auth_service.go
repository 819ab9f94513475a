package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alexedwards/argon2id"
	"gorm.io/gorm"

	"github.com/flashdeck-app/flashcard-service/internal/auth"
	"github.com/flashdeck-app/flashcard-service/internal/models"
	"github.com/flashdeck-app/flashcard-service/internal/repositories"
	"github.com/flashdeck-app/flashcard-service/internal/validator"
)

type authService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	jwt       *auth.JWT
}

func NewAuthService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, jwt *auth.JWT) AuthService {
	return &authService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		jwt:       jwt,
	}
}

func (s *authService) Register(ctx context.Context, req *RegisterRequest) (*models.User, error) {
	s.logger.Info("Registering user", "username", req.Username)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	hash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var user *models.User
	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if _, err := txRepo.User().GetByUsername(ctx, nil, req.Username); err == nil {
			return ErrUsernameTaken
		} else if !repositories.IsNotFoundError(err) {
			return fmt.Errorf("failed to check username: %w", err)
		}

		if _, err := txRepo.User().GetByEmail(ctx, nil, req.Email); err == nil {
			return ErrEmailTaken
		} else if !repositories.IsNotFoundError(err) {
			return fmt.Errorf("failed to check email: %w", err)
		}

		// One-time bootstrap rule: the very first account becomes the admin
		count, err := txRepo.User().Count(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to count users: %w", err)
		}
		role := models.RoleUser
		if count == 0 {
			role = models.RoleAdmin
		}

		user = &models.User{
			Username:     req.Username,
			Email:        req.Email,
			PasswordHash: hash,
			Role:         role,
		}
		if err := txRepo.User().Create(ctx, nil, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("User registered", "user_id", user.ID, "username", user.Username, "role", user.Role)
	return user, nil
}

func (s *authService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	user, err := s.repo.User().GetByUsername(ctx, nil, req.Username)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	match, err := argon2id.ComparePasswordAndHash(req.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to check password: %w", err)
	}
	if !match {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwt.SignToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	s.logger.Info("User logged in", "user_id", user.ID, "username", user.Username)

	return &LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        user,
	}, nil
}

func (s *authService) ChangePassword(ctx context.Context, userID uint, req *ChangePasswordRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	user, err := s.repo.User().GetByID(ctx, nil, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	match, err := argon2id.ComparePasswordAndHash(req.CurrentPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("failed to check password: %w", err)
	}
	if !match {
		return ErrInvalidCredentials
	}

	hash, err := argon2id.CreateHash(req.NewPassword, argon2id.DefaultParams)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.repo.User().UpdatePassword(ctx, nil, userID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.logger.Info("Password changed", "user_id", userID)
	return nil
}

func (s *authService) ValidateToken(ctx context.Context, token string) (*models.User, error) {
	identity, err := s.jwt.ParseIdentity(token)
	if err != nil {
		return nil, ErrAuthInvalid
	}

	user, err := s.repo.User().GetByID(ctx, nil, identity.UserID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAuthInvalid
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	return user, nil
}
