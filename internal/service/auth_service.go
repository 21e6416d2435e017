package service

import (
	"github.com/google/uuid"
	"github.com/okanehq/okane-backend/internal/domain"
	"github.com/rs/zerolog/log"
)

// AuthService handles authentication-related business logic
type AuthService struct {
	userRepo domain.UserRepository
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo domain.UserRepository) *AuthService {
	return &AuthService{userRepo: userRepo}
}

// AuthenticateUser resolves the user row for an auth subject, provisioning
// one on first sight. New users start with all three balances at zero.
func (s *AuthService) AuthenticateUser(authID, email string, name *string) (*domain.User, error) {
	user, err := s.userRepo.CreateOrGetByAuthID(authID, email, name)
	if err != nil {
		log.Error().Err(err).Str("auth_id", authID).Msg("Failed to create or get user")
		return nil, err
	}
	return user, nil
}

// GetUserByID retrieves a user by their ID
func (s *AuthService) GetUserByID(id uuid.UUID) (*domain.User, error) {
	return s.userRepo.GetByID(id)
}

// GetUserByAuthID retrieves a user by their auth subject
func (s *AuthService) GetUserByAuthID(authID string) (*domain.User, error) {
	return s.userRepo.GetByAuthID(authID)
}
