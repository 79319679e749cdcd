package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb/v2"
	"github.com/snowflakedb/gosnowflake"

	"github.com/menudash/menudash/internal/config"
)

// ConnectionInfo is the credential tuple minus the password, for the
// connection-details endpoint.
type ConnectionInfo struct {
	Driver    string `json:"driver"`
	User      string `json:"user,omitempty"`
	Account   string `json:"account,omitempty"`
	Database  string `json:"database,omitempty"`
	Schema    string `json:"schema,omitempty"`
	Warehouse string `json:"warehouse,omitempty"`
	Role      string `json:"role,omitempty"`
}

// Provider opens the warehouse session on first use and hands out the
// same handle afterwards. A failed open is not memoized: the error goes
// to the caller and the next call retries from scratch.
type Provider struct {
	cfg    config.WarehouseConfig
	logger *slog.Logger

	mu   sync.Mutex
	db   *sql.DB
	info ConnectionInfo

	// openDB is swapped in tests.
	openDB func(driverName, dsn string) (*sql.DB, error)
}

func NewProvider(cfg config.WarehouseConfig, logger *slog.Logger) *Provider {
	return &Provider{cfg: cfg, logger: logger, openDB: sql.Open}
}

// Conn returns the memoized handle, establishing the session on the
// first call. Credentials are read from the secrets file at that point.
func (p *Provider) Conn(ctx context.Context) (*sql.DB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.db != nil {
		return p.db, nil
	}

	driverName, dsn, info, err := p.resolve()
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}

	db, err := p.openDB(driverName, dsn)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}
	db.SetMaxOpenConns(p.cfg.MaxOpenConns)
	db.SetMaxIdleConns(p.cfg.MaxIdleConns)
	db.SetConnMaxIdleTime(p.cfg.ConnMaxIdleTime)
	db.SetConnMaxLifetime(p.cfg.ConnMaxLifetime)

	pingCtx := ctx
	if p.cfg.PingTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, p.cfg.PingTimeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, &ConnectionError{Err: err}
	}

	p.db = db
	p.info = info
	if p.logger != nil {
		p.logger.InfoContext(ctx, "warehouse session established",
			slog.String("driver", info.Driver),
			slog.String("database", info.Database),
			slog.String("warehouse", info.Warehouse),
		)
	}
	return p.db, nil
}

// Info reports the masked connection details. Before the first
// successful open it is derived from configuration alone.
func (p *Provider) Info() ConnectionInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db != nil {
		return p.info
	}
	_, _, info, err := p.resolve()
	if err != nil {
		return ConnectionInfo{Driver: p.cfg.Driver}
	}
	return info
}

// Ping establishes the session if needed and verifies it is alive.
func (p *Provider) Ping(ctx context.Context) error {
	db, err := p.Conn(ctx)
	if err != nil {
		return err
	}
	pingCtx := ctx
	if p.cfg.PingTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, p.cfg.PingTimeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		return &ConnectionError{Err: err}
	}
	return nil
}

func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}

func (p *Provider) resolve() (driverName, dsn string, info ConnectionInfo, err error) {
	switch p.cfg.Driver {
	case "duckdb":
		// Empty DSN opens an in-memory database, the demo default.
		return "duckdb", p.cfg.DSN, ConnectionInfo{Driver: "duckdb", Database: duckdbDatabaseName(p.cfg.DSN)}, nil
	case "postgres":
		if p.cfg.DSN == "" {
			return "", "", ConnectionInfo{}, fmt.Errorf("postgres warehouse requires MENUDASH_WAREHOUSE_DSN")
		}
		return "pgx", p.cfg.DSN, ConnectionInfo{Driver: "postgres"}, nil
	case "snowflake":
		if p.cfg.DSN != "" {
			return "snowflake", p.cfg.DSN, ConnectionInfo{Driver: "snowflake"}, nil
		}
		if p.cfg.SecretsFile == "" {
			return "", "", ConnectionInfo{}, fmt.Errorf("snowflake warehouse requires a DSN or a secrets file")
		}
		creds, err := config.LoadSecrets(p.cfg.SecretsFile)
		if err != nil {
			return "", "", ConnectionInfo{}, err
		}
		if err := creds.ValidateForSnowflake(); err != nil {
			return "", "", ConnectionInfo{}, err
		}
		dsn, err := gosnowflake.DSN(&gosnowflake.Config{
			Account:   creds.Account,
			User:      creds.User,
			Password:  creds.Password,
			Database:  creds.Database,
			Schema:    creds.Schema,
			Warehouse: creds.Warehouse,
			Role:      creds.Role,
		})
		if err != nil {
			return "", "", ConnectionInfo{}, fmt.Errorf("build snowflake dsn: %w", err)
		}
		return "snowflake", dsn, ConnectionInfo{
			Driver:    "snowflake",
			User:      creds.User,
			Account:   creds.Account,
			Database:  creds.Database,
			Schema:    creds.Schema,
			Warehouse: creds.Warehouse,
			Role:      creds.Role,
		}, nil
	default:
		return "", "", ConnectionInfo{}, fmt.Errorf("unsupported warehouse driver: %q", p.cfg.Driver)
	}
}

func duckdbDatabaseName(dsn string) string {
	if dsn == "" {
		return ":memory:"
	}
	return dsn
}
