package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/numrent/internal/domain"
)

// AccountUseCase handles account business logic.
type AccountUseCase struct {
	accountRepo AccountRepository
	idGen       IDGenerator
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(accountRepo AccountRepository, idGen IDGenerator) *AccountUseCase {
	return &AccountUseCase{
		accountRepo: accountRepo,
		idGen:       idGen,
	}
}

// CreateAccountInput represents input for creating an account.
type CreateAccountInput struct {
	Email   string
	IsAdmin bool
}

// CreateAccount creates a new account with empty balances. Balances only
// change through the wallet afterwards.
func (uc *AccountUseCase) CreateAccount(ctx context.Context, input CreateAccountInput) (*domain.Account, error) {
	if err := domain.ValidateEmail(input.Email); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	account := &domain.Account{
		ID:               uc.idGen.Generate(),
		Email:            strings.ToLower(strings.TrimSpace(input.Email)),
		PrimaryBalance:   decimal.Zero,
		SecondaryBalance: decimal.Zero,
		IsAdmin:          input.IsAdmin,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := uc.accountRepo.Create(ctx, account); err != nil {
		return nil, err
	}

	return account, nil
}

// GetAccount retrieves an account by ID.
func (uc *AccountUseCase) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return uc.accountRepo.GetByID(ctx, id)
}

// SetBlocked blocks or unblocks an account. A blocked account keeps its
// rentals and balances but cannot acquire new rentals.
func (uc *AccountUseCase) SetBlocked(ctx context.Context, id string, blocked bool) (*domain.Account, error) {
	if err := uc.accountRepo.SetBlocked(ctx, id, blocked, time.Now().UTC()); err != nil {
		return nil, err
	}
	return uc.accountRepo.GetByID(ctx, id)
}

// ListAccountsInput represents input for listing accounts.
type ListAccountsInput struct {
	Limit  int
	Offset int
}

// ListAccounts lists accounts with pagination.
func (uc *AccountUseCase) ListAccounts(ctx context.Context, input ListAccountsInput) ([]*domain.Account, error) {
	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)
	return uc.accountRepo.List(ctx, limit, offset)
}
