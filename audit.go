package authgate

import (
	"io"
	"log/slog"

	internalaudit "github.com/localizekit/authgate/internal/audit"
)

type AuditEvent = internalaudit.Event

type AuditSink = internalaudit.Sink

type NoOpSink = internalaudit.NoOpSink

type ChannelSink = internalaudit.ChannelSink

type JSONWriterSink = internalaudit.JSONWriterSink

type SlogSink = internalaudit.SlogSink

const (
	AuditEventIssue         = internalaudit.EventIssue
	AuditEventRefresh       = internalaudit.EventRefresh
	AuditEventProviderLogin = internalaudit.EventProviderLogin
	AuditEventProvisioned   = internalaudit.EventProvisioned
	AuditEventRegister      = internalaudit.EventRegister
	AuditEventSwitchTeam    = internalaudit.EventSwitchTeam
)

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	return internalaudit.NewSlogSink(logger)
}
