package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/insurance_platform/internal/apperrors"
	"github.com/SscSPs/insurance_platform/internal/core/domain"
	portsrepo "github.com/SscSPs/insurance_platform/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/insurance_platform/internal/core/ports/services"
	"github.com/SscSPs/insurance_platform/internal/dto"
	"github.com/SscSPs/insurance_platform/internal/utils"
	"github.com/google/uuid"
)

// userService implements the UserSvcFacade interface
type userService struct {
	BaseService
	userRepo portsrepo.UserRepositoryFacade
}

// NewUserService creates a new user service
func NewUserService(userRepo portsrepo.UserRepositoryFacade) portssvc.UserSvcFacade {
	return &userService{userRepo: userRepo}
}

var _ portssvc.UserSvcFacade = (*userService)(nil)

func (s *userService) CreateUser(ctx context.Context, req dto.CreateUserRequest) (*domain.User, error) {
	if _, err := s.userRepo.FindUserByUsername(ctx, req.Username); err == nil {
		return nil, fmt.Errorf("%w: username %s is already taken", apperrors.ErrDuplicate, req.Username)
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		s.LogError(ctx, err, "Failed to check for existing username", slog.String("username", req.Username))
		return nil, err
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		s.LogError(ctx, err, "Failed to hash password")
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	now := s.CurrentTime()
	userID := uuid.NewString()
	user := domain.User{
		UserID:       userID,
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		AuditFields:  domain.NewAuditFields(userID, now),
	}
	if err := s.userRepo.SaveUser(ctx, user); err != nil {
		s.LogError(ctx, err, "Failed to save user", slog.String("username", req.Username))
		return nil, err
	}
	s.LogInfo(ctx, "User created successfully", slog.String("user_id", user.UserID))
	return &user, nil
}

func (s *userService) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.FindUserByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find user by ID", slog.String("user_id", userID))
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.userRepo.FindUserByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find user by username", slog.String("username", username))
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error) {
	users, err := s.userRepo.FindUsers(ctx, limit, offset)
	if err != nil {
		s.LogError(ctx, err, "Failed to list users", slog.Int("limit", limit), slog.Int("offset", offset))
		return nil, err
	}
	if users == nil {
		return []domain.User{}, nil
	}
	return users, nil
}

func (s *userService) UpdateUser(ctx context.Context, userID string, req dto.UpdateUserRequest, requestingUserID string) (*domain.User, error) {
	if userID != requestingUserID {
		return nil, fmt.Errorf("%w: users can only update their own profile", apperrors.ErrForbidden)
	}
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.Name == nil {
		return user, nil
	}
	user.Name = strings.TrimSpace(*req.Name)
	user.Touch(requestingUserID, s.CurrentTime())
	if err := s.userRepo.UpdateUser(ctx, *user); err != nil {
		s.LogError(ctx, err, "Failed to update user", slog.String("user_id", userID))
		return nil, err
	}
	s.LogInfo(ctx, "User updated successfully", slog.String("user_id", userID))
	return user, nil
}

func (s *userService) UpdateRefreshToken(ctx context.Context, userID string, refreshTokenHash string, refreshTokenExpiryTime time.Time) error {
	if err := s.userRepo.UpdateRefreshToken(ctx, userID, refreshTokenHash, &refreshTokenExpiryTime); err != nil {
		s.LogError(ctx, err, "Failed to store refresh token", slog.String("user_id", userID))
		return err
	}
	return nil
}

func (s *userService) ClearRefreshToken(ctx context.Context, userID string) error {
	if err := s.userRepo.UpdateRefreshToken(ctx, userID, "", nil); err != nil {
		s.LogError(ctx, err, "Failed to clear refresh token", slog.String("user_id", userID))
		return err
	}
	return nil
}

func (s *userService) DeleteUser(ctx context.Context, userID string, requestingUserID string) error {
	if userID != requestingUserID {
		return fmt.Errorf("%w: users can only delete their own account", apperrors.ErrForbidden)
	}
	if err := s.userRepo.MarkUserDeleted(ctx, userID, s.CurrentTime(), requestingUserID); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to delete user", slog.String("user_id", userID))
		}
		return err
	}
	s.LogInfo(ctx, "User deleted", slog.String("user_id", userID))
	return nil
}

func (s *userService) AuthenticateUser(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.userRepo.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		s.LogError(ctx, err, "Failed to look up user for login", slog.String("username", username))
		return nil, err
	}
	if user.DeletedAt != nil || user.PasswordHash == "" || !utils.CheckPasswordHash(password, user.PasswordHash) {
		s.LogDebug(ctx, "Login rejected", slog.String("username", username))
		return nil, apperrors.ErrUnauthorized
	}
	return user, nil
}

// FindOrCreateGoogleUser uses the Google email as username.
func (s *userService) FindOrCreateGoogleUser(ctx context.Context, email, name string) (*domain.User, error) {
	username := strings.ToLower(strings.TrimSpace(email))
	if username == "" {
		return nil, fmt.Errorf("%w: google account has no email", apperrors.ErrValidation)
	}
	user, err := s.userRepo.FindUserByUsername(ctx, username)
	if err == nil {
		if user.DeletedAt != nil {
			return nil, apperrors.ErrUnauthorized
		}
		return user, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		s.LogError(ctx, err, "Failed to look up google user", slog.String("email", username))
		return nil, err
	}

	now := s.CurrentTime()
	userID := uuid.NewString()
	created := domain.User{
		UserID:      userID,
		Username:    username,
		Email:       username,
		Name:        name,
		AuditFields: domain.NewAuditFields(userID, now),
	}
	if err := s.userRepo.SaveUser(ctx, created); err != nil {
		s.LogError(ctx, err, "Failed to save google user", slog.String("email", username))
		return nil, err
	}
	s.LogInfo(ctx, "User created from google sign in", slog.String("user_id", userID))
	return &created, nil
}
