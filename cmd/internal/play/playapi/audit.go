package playapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"
)

// AuditEntry is one protocol outcome as seen at the HTTP edge.
type AuditEntry struct {
	Action    string
	Identity  string
	Result    string
	IP        net.IP
	UserAgent string
	Meta      map[string]any
}

// Auditor records protocol outcomes. Record is best-effort and must not fail the request.
type Auditor interface {
	Record(ctx context.Context, e AuditEntry)
}

// NoopAuditor discards entries.
type NoopAuditor struct{}

func (NoopAuditor) Record(context.Context, AuditEntry) {}

// PostgresAuditor appends entries to <schema>.audit_log.
type PostgresAuditor struct {
	pool   *pgxpool.Pool
	log    *slog.Logger
	schema string
}

// NewPostgresAuditor builds an auditor writing to the "playgate" schema.
func NewPostgresAuditor(pool *pgxpool.Pool, log *slog.Logger) (*PostgresAuditor, error) {
	if pool == nil {
		return nil, fmt.Errorf("playapi: nil db pool")
	}
	if log == nil {
		log = slog.Default()
	}
	return &PostgresAuditor{pool: pool, log: log, schema: "playgate"}, nil
}

func (a *PostgresAuditor) table() string {
	return pgx.Identifier{a.schema, "audit_log"}.Sanitize()
}

// EnsureSchema creates the audit table if missing.
func (a *PostgresAuditor) EnsureSchema(ctx context.Context) error {
	_, err := a.pool.Exec(ctx, `
		CREATE SCHEMA IF NOT EXISTS `+pgx.Identifier{a.schema}.Sanitize()+`;
		CREATE TABLE IF NOT EXISTS `+a.table()+` (
			id          text PRIMARY KEY,
			identity    text        NOT NULL,
			action      text        NOT NULL,
			result      text        NOT NULL,
			created_at  timestamptz NOT NULL DEFAULT now(),
			ip          text,
			user_agent  text,
			meta        jsonb
		);
		CREATE INDEX IF NOT EXISTS audit_log_identity_created_idx
			ON `+a.table()+` (identity, created_at DESC);
	`)
	return err
}

// Record inserts e. Errors are logged.
func (a *PostgresAuditor) Record(ctx context.Context, e AuditEntry) {
	action := strings.TrimSpace(e.Action)
	if action == "" {
		return
	}

	meta := e.Meta
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		if meta == nil {
			meta = map[string]any{}
		}
		meta["trace_id"] = sc.TraceID().String()
		meta["span_id"] = sc.SpanID().String()
	}

	var ipVal any
	if e.IP != nil {
		ipVal = e.IP.String()
	}

	var metaVal *string
	if len(meta) > 0 {
		if b, err := json.Marshal(meta); err == nil {
			s := string(b)
			metaVal = &s
		}
	}

	_, err := a.pool.Exec(ctx, `
		INSERT INTO `+a.table()+` (
			id, identity, action, result, created_at, ip, user_agent, meta
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb)
	`, ulid.Make().String(), e.Identity, action, e.Result, time.Now().UTC(), ipVal, trimOrNil(e.UserAgent), metaVal)
	if err != nil {
		a.log.Error("play.audit.insert.fail", "err", err, "action", action)
	}
}

func trimOrNil(s string) any {
	v := strings.TrimSpace(s)
	if v == "" {
		return nil
	}
	return v
}
