package authclient

import (
	"context"
	"errors"
	"io"
	"time"

	internalaudit "github.com/eyoklama/authclient/internal/audit"
	"github.com/google/uuid"
)

// AuditEvent is one security-relevant state change of the session.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink = internalaudit.Sink

// NoOpSink drops audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink delivers audit events on a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink returns a ChannelSink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink writing JSON lines to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

const (
	auditEventLoginSuccess          = "login_success"
	auditEventLoginFailure          = "login_failure"
	auditEventLogout                = "logout"
	auditEventRefreshSuccess        = "refresh_success"
	auditEventRefreshFailure        = "refresh_failure"
	auditEventSessionExpired        = "session_expired"
	auditEventSessionRestored       = "session_restored"
	auditEventSessionPurged         = "session_purged_inconsistent"
	auditEventPasswordChange        = "password_change"
	auditEventPasswordChangeFailure = "password_change_failure"
)

// AuditErrorCode is the stable error label carried by failed audit events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrNetwork            AuditErrorCode = "network_failure"
	auditErrSessionExpired     AuditErrorCode = "session_expired"
	auditErrRejected           AuditErrorCode = "rejected"
	auditErrInvalidResponse    AuditErrorCode = "invalid_response"
	auditErrStore              AuditErrorCode = "credential_store"
	auditErrCanceled           AuditErrorCode = "canceled"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func auditErrorCode(err error) AuditErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return auditErrCanceled
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrPasswordChangeRejected), errors.Is(err, ErrUnauthorized):
		return auditErrRejected
	case errors.Is(err, ErrSessionExpired):
		return auditErrSessionExpired
	case errors.Is(err, ErrNetworkFailure):
		return auditErrNetwork
	case errors.Is(err, ErrInvalidResponse):
		return auditErrInvalidResponse
	case errors.Is(err, ErrCredentialStore):
		return auditErrStore
	default:
		return auditErrInternal
	}
}

func (m *Manager) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if m == nil || m.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Namespace: m.namespace,
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	m.audit.Emit(ctx, event)
}
