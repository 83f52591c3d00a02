package logger

import (
	"context"
	"log/slog"
	"time"
)

// AuditEvent represents a security audit event emitted to the structured log.
// The durable audit trail is written separately by the audit service; this
// logger gives operators an immediate view of the same events.
type AuditLogger struct {
	logger *slog.Logger
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger}
}

// LogEvent logs a security-relevant event with optional connection metadata.
func (al *AuditLogger) LogEvent(action string, userID, ipAddress, userAgent string, success bool, detail string) {
	attrs := []slog.Attr{
		slog.String("audit_type", "security"),
		slog.String("action", action),
		slog.Bool("success", success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if userID != "" {
		attrs = append(attrs, slog.String("user_id", userID))
	}
	if ipAddress != "" {
		attrs = append(attrs, slog.String("ip_address", ipAddress))
	}
	if userAgent != "" {
		attrs = append(attrs, slog.String("user_agent", userAgent))
	}
	if detail != "" {
		attrs = append(attrs, slog.String("detail", detail))
	}

	level := slog.LevelInfo
	if !success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(context.Background(), level, "audit", attrs...)
}
