package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/contract"
)

type Config struct {
	DSN     string        `split_words:"true" required:"true"`
	Timeout time.Duration `split_words:"true" default:"5s"`
}

var _ contractx.Recorder = (*PostgresRecorder)(nil)

// PostgresRecorder persists confirmed call results to Postgres.
type PostgresRecorder struct {
	db      *bun.DB
	timeout time.Duration
	now     func() time.Time
}

func NewPostgresRecorder(cfg Config) (*PostgresRecorder, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	return &PostgresRecorder{
		db:      db,
		timeout: timeout,
		now:     time.Now,
	}, nil
}

func MustNewPostgresRecorder(cfg Config) *PostgresRecorder {
	recorder, err := NewPostgresRecorder(cfg)
	if err != nil {
		panic(err)
	}
	return recorder
}

// EnsureSchema creates the collected_records table when it is missing.
func (r *PostgresRecorder) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.db.NewCreateTable().
		Model((*CollectedRecord)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create collected_records table: %w", err)
	}
	return nil
}

func (r *PostgresRecorder) RecordFinal(ctx context.Context, callID, agentID string, fields map[string]string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rec := &CollectedRecord{
		CallID:    callID,
		AgentID:   agentID,
		Fields:    fields,
		CreatedAt: r.now().UTC(),
	}
	if _, err := r.db.NewInsert().Model(rec).Exec(ctx); err != nil {
		return fmt.Errorf("insert collected record: %w", err)
	}
	return nil
}

func (r *PostgresRecorder) Close() error {
	return r.db.Close()
}
