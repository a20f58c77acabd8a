package shared

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentiva/rentiva/internal/access"
)

// AuditLog represents a record stored in audit_logs.
type AuditLog struct {
	ActorID  string
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// AuditLogger writes records into audit_logs.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the log entry.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	if log.Action == "" || log.Entity == "" {
		return errors.New("audit log requires action/entity")
	}
	metaJSON, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	var at *time.Time
	if !log.At.IsZero() {
		at = &log.At
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at) VALUES (NULLIF($1,''), $2, $3, $4, $5, COALESCE($6, NOW()))`, log.ActorID, log.Action, log.Entity, log.EntityID, metaJSON, at)
	return err
}

// AuditSink adapts AuditLogger into the fire-and-forget sink the access
// layer expects. Writes happen on their own goroutine with a short deadline;
// a failed write is logged and dropped, it never blocks or fails the
// operation that produced the event.
type AuditSink struct {
	logger  *AuditLogger
	slogger *slog.Logger
}

// NewAuditSink constructs the sink.
func NewAuditSink(logger *AuditLogger, slogger *slog.Logger) *AuditSink {
	return &AuditSink{logger: logger, slogger: slogger}
}

// Record implements access.AuditSink.
func (s *AuditSink) Record(ctx context.Context, event access.AuditEvent) {
	if s == nil || s.logger == nil {
		return
	}
	actor := access.IdentityFromContext(ctx)
	go func() {
		writeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err := s.logger.Record(writeCtx, AuditLog{
			ActorID:  actorID(actor),
			Action:   event.Action,
			Entity:   event.Entity,
			EntityID: event.EntityID,
			Meta:     event.Meta,
		})
		if err != nil && s.slogger != nil {
			s.slogger.Warn("audit record dropped", slog.String("action", event.Action), slog.Any("error", err))
		}
	}()
}

func actorID(id access.Identity) string {
	if id.Anonymous() {
		return ""
	}
	return id.UserID.String()
}
