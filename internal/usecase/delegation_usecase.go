package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/iho/numrent/internal/domain"
)

// DelegationSigner signs delegation tokens.
type DelegationSigner interface {
	Delegate(admin *domain.Principal, actingAs string, ttl time.Duration) (string, *domain.Delegation, error)
}

// DelegationUseCase lets administrators act on a customer account through
// an explicit, audited token.
type DelegationUseCase struct {
	accountRepo AccountRepository
	signer      DelegationSigner
	audit       auditor
}

// NewDelegationUseCase creates a new DelegationUseCase.
func NewDelegationUseCase(accountRepo AccountRepository, signer DelegationSigner, auditRepo AuditRepository, idGen IDGenerator) *DelegationUseCase {
	return &DelegationUseCase{
		accountRepo: accountRepo,
		signer:      signer,
		audit:       auditor{repo: auditRepo, idGen: idGen},
	}
}

// DelegateInput names the account to act as.
type DelegateInput struct {
	AccountID string
	TTL       time.Duration
}

// DelegationGrant is an issued delegation token.
type DelegationGrant struct {
	Token      string
	Delegation *domain.Delegation
}

// Delegate issues a delegation token for the calling admin. The grant is
// written to the audit log whether or not it succeeds.
func (uc *DelegationUseCase) Delegate(ctx context.Context, input DelegateInput) (*DelegationGrant, error) {
	principal, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	if !principal.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	grant, err := uc.delegate(ctx, principal, input)

	var state any
	if grant != nil {
		state = grant.Delegation
	}
	if auditErr := uc.audit.record(ctx, nil, domain.AuditActionDelegationIssued, "account", input.AccountID, state, err); auditErr != nil {
		return nil, fmt.Errorf("failed to audit delegation: %w", auditErr)
	}

	return grant, err
}

func (uc *DelegationUseCase) delegate(ctx context.Context, principal *domain.Principal, input DelegateInput) (*DelegationGrant, error) {
	target, err := uc.accountRepo.GetByID(ctx, input.AccountID)
	if err != nil {
		return nil, err
	}
	if target.IsAdmin {
		return nil, fmt.Errorf("%w: cannot act as another administrator", domain.ErrForbidden)
	}

	token, delegation, err := uc.signer.Delegate(principal, target.ID, input.TTL)
	if err != nil {
		return nil, err
	}

	return &DelegationGrant{Token: token, Delegation: delegation}, nil
}
