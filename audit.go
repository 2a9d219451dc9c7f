package goSession

import (
	"context"
	"io"

	"github.com/MrEthical07/goSession/gateway"
	internalaudit "github.com/MrEthical07/goSession/internal/audit"
)

// AuditEvent is one session lifecycle record.
type AuditEvent = internalaudit.Event

// AuditSink receives lifecycle events on the dispatcher goroutine.
type AuditSink = internalaudit.Sink

type (
	NoOpSink       = internalaudit.NoOpSink
	ChannelSink    = internalaudit.ChannelSink
	JSONWriterSink = internalaudit.JSONWriterSink
	MultiSink      = internalaudit.MultiSink
)

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// Lifecycle event types.
const (
	AuditEventInitialize        = "session_initialize"
	AuditEventLoginSuccess      = "login_success"
	AuditEventLoginFailure      = "login_failure"
	AuditEventLogout            = "logout"
	AuditEventTokenRenewed      = "token_renewed"
	AuditEventRegisterSuccess   = "register_success"
	AuditEventRegisterFailure   = "register_failure"
	AuditEventProfileUpdated    = "profile_updated"
	AuditEventProfileUpdateFail = "profile_update_failure"
)

func (c *Controller) emitAudit(ctx context.Context, event AuditEvent) {
	if c == nil || c.audit == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = c.now()
	}
	if event.RequestID == "" {
		event.RequestID = gateway.RequestIDFrom(ctx)
	}
	c.audit.Emit(ctx, event)
}

func auditError(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
