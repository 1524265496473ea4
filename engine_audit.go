package authgate

import (
	"context"

	"github.com/localizekit/authgate/apperr"
)

// auditErrorCode is the kind name for taxonomy errors and "internal" for
// anything else. Raw messages never reach the audit stream.
func auditErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if kind, ok := apperr.KindOf(err); ok {
		return kind.String()
	}
	return "internal"
}

func (e *Engine) emitAudit(ctx context.Context, eventType, userID, teamID string, err error, metadata map[string]string) {
	if e == nil || e.audit == nil {
		return
	}
	e.audit.Emit(ctx, AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		TeamID:    teamID,
		RequestID: RequestIDFromContext(ctx),
		Success:   err == nil,
		Error:     auditErrorCode(err),
		Metadata:  metadata,
	})
}
