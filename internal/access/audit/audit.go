package audit

import (
	"context"
	"log/slog"

	"github.com/hiredeck/hiredeck/pkg/slogx"
)

// Event names emitted by the access core. Security tooling filters on these,
// so they are stable identifiers, not free text.
const (
	EventLoginFailed         = "auth.login_failed"
	EventLoginSucceeded      = "auth.login_succeeded"
	EventSessionRevoked      = "auth.session_revoked"
	EventCrossTenantRejected = "auth.cross_tenant_rejected"
	EventInviteIssued        = "invite.issued"
	EventInviteAccepted      = "invite.accepted"
)

// Logger emits security audit events as structured log lines, distinguished
// from ordinary application logs by log_type=audit. Events go through the
// request-scoped logger when one is on the context, so they carry the
// request id.
type Logger struct {
	base *slog.Logger
}

// New builds an audit logger on top of base. A nil base falls back to the
// process default.
func New(base *slog.Logger) *Logger {
	return &Logger{base: base}
}

// Event records one audit event. Attribute values must not contain raw
// tokens or passwords; fingerprint or omit them at the call site.
func (l *Logger) Event(ctx context.Context, event string, attrs ...any) {
	logger := slogx.FromContext(ctx)
	if logger == slog.Default() && l.base != nil {
		logger = l.base
	}

	args := make([]any, 0, len(attrs)+4)
	args = append(args, "log_type", "audit", "event", event)
	args = append(args, attrs...)
	logger.Warn("audit_event", args...)
}
