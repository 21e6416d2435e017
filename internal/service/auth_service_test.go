package service

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/okanehq/okane-backend/internal/domain"
	"github.com/okanehq/okane-backend/internal/testutil"
	"github.com/shopspring/decimal"
)

func TestAuthenticateUser_ProvisionsOnFirstSight(t *testing.T) {
	userRepo := testutil.NewMockUserRepository()
	authService := NewAuthService(userRepo)

	name := "Test User"
	user, err := authService.AuthenticateUser("auth0|abc123", "test@example.com", &name)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if user.AuthID != "auth0|abc123" {
		t.Errorf("Expected auth ID 'auth0|abc123', got %s", user.AuthID)
	}
	if user.Email != "test@example.com" {
		t.Errorf("Expected email 'test@example.com', got %s", user.Email)
	}
	if !user.CashBalance.IsZero() || !user.BankBalance.IsZero() || !user.DigitalBalance.IsZero() {
		t.Error("Expected a new user to start with zero balances")
	}

	// A second authentication returns the same user
	again, err := authService.AuthenticateUser("auth0|abc123", "test@example.com", &name)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if again.ID != user.ID {
		t.Errorf("Expected same user ID %s, got %s", user.ID, again.ID)
	}
}

func TestAuthenticateUser_PropagatesError(t *testing.T) {
	userRepo := testutil.NewMockUserRepository()
	userRepo.CreateFn = func(authID, email string, name *string) (*domain.User, error) {
		return nil, errors.New("connection refused")
	}
	authService := NewAuthService(userRepo)

	_, err := authService.AuthenticateUser("auth0|abc123", "test@example.com", nil)
	if err == nil {
		t.Fatal("Expected error from failed provisioning")
	}
}

func TestGetBalances(t *testing.T) {
	userRepo := testutil.NewMockUserRepository()
	balanceService := NewBalanceService(userRepo)

	userID := uuid.New()
	userRepo.AddUser(&domain.User{
		ID:             userID,
		AuthID:         "auth0|abc123",
		Email:          "test@example.com",
		Currency:       "USD",
		CashBalance:    decimal.RequireFromString("100.25"),
		BankBalance:    decimal.RequireFromString("-40"),
		DigitalBalance: decimal.RequireFromString("12.75"),
	})

	balances, err := balanceService.GetBalances(userID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !balances.Total.Equal(decimal.RequireFromString("73")) {
		t.Errorf("Expected total 73, got %s", balances.Total.String())
	}
	if balances.Currency != "USD" {
		t.Errorf("Expected currency USD, got %s", balances.Currency)
	}

	_, err = balanceService.GetBalances(uuid.New())
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}
