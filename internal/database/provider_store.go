package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"web3-rpc-router-go/internal/router"
)

// ProviderStore persists RPC provider configurations. The portfolio app
// edits rows through its admin surface; the router daemon loads the
// active set at boot (and on explicit reload).
type ProviderStore struct {
	db *sqlx.DB
}

func NewProviderStore(databaseURL string) (*ProviderStore, error) {
	db, err := sqlx.Connect("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &ProviderStore{db: db}, nil
}

// NewProviderStoreWithDB wraps an existing connection (tests, pooling).
func NewProviderStoreWithDB(db *sqlx.DB) *ProviderStore {
	return &ProviderStore{db: db}
}

func (s *ProviderStore) Close() error {
	return s.db.Close()
}

// InitSchema 确保 rpc_providers 表结构已就绪
func (s *ProviderStore) InitSchema(ctx context.Context) error {
	slog.Info("🛡️ [Database] Initializing provider schema...")

	schema := `
	CREATE TABLE IF NOT EXISTS rpc_providers (
		name VARCHAR(64) PRIMARY KEY,
		url TEXT NOT NULL,
		calls_per_second DOUBLE PRECISION NOT NULL,
		calls_per_day BIGINT NOT NULL DEFAULT 0,
		priority INTEGER NOT NULL DEFAULT 0,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		capabilities JSONB NOT NULL DEFAULT '{}',
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to init provider schema: %w", err)
	}
	return nil
}

type providerRow struct {
	Name           string  `db:"name"`
	URL            string  `db:"url"`
	CallsPerSecond float64 `db:"calls_per_second"`
	CallsPerDay    int64   `db:"calls_per_day"`
	Priority       int     `db:"priority"`
	Active         bool    `db:"active"`
	Capabilities   []byte  `db:"capabilities"`
}

// LoadActive returns the active provider configs, highest priority first.
func (s *ProviderStore) LoadActive(ctx context.Context) ([]router.ProviderConfig, error) {
	var rows []providerRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT name, url, calls_per_second, calls_per_day, priority, active, capabilities
		FROM rpc_providers
		WHERE active = TRUE
		ORDER BY priority DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to load providers: %w", err)
	}

	configs := make([]router.ProviderConfig, 0, len(rows))
	for _, row := range rows {
		cfg := router.ProviderConfig{
			Name:           row.Name,
			URL:            row.URL,
			CallsPerSecond: row.CallsPerSecond,
			CallsPerDay:    row.CallsPerDay,
			Priority:       row.Priority,
			Active:         row.Active,
		}
		if len(row.Capabilities) > 0 {
			if err := json.Unmarshal(row.Capabilities, &cfg.Capabilities); err != nil {
				return nil, fmt.Errorf("provider %s: malformed capabilities: %w", row.Name, err)
			}
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

// Upsert 插入或覆盖一条节点配置
func (s *ProviderStore) Upsert(ctx context.Context, cfg router.ProviderConfig) error {
	caps, err := json.Marshal(cfg.Capabilities)
	if err != nil {
		return err
	}
	if cfg.Capabilities == nil {
		caps = []byte(`{}`)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rpc_providers (name, url, calls_per_second, calls_per_day, priority, active, capabilities)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (name) DO UPDATE SET
			url = EXCLUDED.url,
			calls_per_second = EXCLUDED.calls_per_second,
			calls_per_day = EXCLUDED.calls_per_day,
			priority = EXCLUDED.priority,
			active = EXCLUDED.active,
			capabilities = EXCLUDED.capabilities,
			updated_at = NOW()`,
		cfg.Name, cfg.URL, cfg.CallsPerSecond, cfg.CallsPerDay, cfg.Priority, cfg.Active, caps)
	return err
}

// Deactivate soft-removes a provider. Returns false if the name is unknown.
func (s *ProviderStore) Deactivate(ctx context.Context, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE rpc_providers SET active = FALSE, updated_at = NOW() WHERE name = $1`, name)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
