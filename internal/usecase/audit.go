package usecase

import (
	"context"
	"time"

	"github.com/iho/numrent/internal/domain"
)

type requestIDKey struct{}

// ContextWithRequestID stores the request ID used in audit entries.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// auditor writes audit entries for actions taken by admins, either in their
// own name or under delegation. Customer actions are not audited.
type auditor struct {
	repo  AuditRepository
	idGen IDGenerator
}

func (a auditor) record(
	ctx context.Context,
	tx Transaction,
	action domain.AuditAction,
	resourceType, resourceID string,
	state any,
	opErr error,
) error {
	if a.repo == nil {
		return nil
	}

	p, ok := domain.PrincipalFromContext(ctx)
	if !ok || (!p.IsAdmin() && !p.IsDelegated()) {
		return nil
	}

	log := &domain.AuditLog{
		ID:           a.idGen.Generate(),
		ActorID:      p.AccountID,
		Action:       string(action),
		ResourceType: resourceType,
		ResourceID:   resourceID,
		RequestID:    requestIDFromContext(ctx),
		AfterState:   domain.MarshalState(state),
		Status:       string(domain.AuditStatusSuccess),
		CreatedAt:    time.Now().UTC(),
	}

	if p.IsDelegated() {
		log.ActorID = p.Delegation.OnBehalfOfAdmin
		log.OnBehalfOf = p.Delegation.ActingAs
	}

	if opErr != nil {
		log.Status = string(domain.AuditStatusFailure)
		log.ErrorMessage = opErr.Error()
	}

	return a.repo.Create(ctx, tx, log)
}
