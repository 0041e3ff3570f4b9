package store

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"avl-svr/internal/codec"
)

const insertTeltonikaSQL = "INSERT INTO teltonika_data (imei, data, raw, created_at, status) VALUES ($1, $2, $3, $4, $5)"

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	MaxConns int32
}

func (c PostgresConfig) URL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, c.Port),
		Path:   "/" + c.Name,
	}
	if c.MaxConns > 0 {
		u.RawQuery = "pool_max_conns=" + strconv.Itoa(int(c.MaxConns))
	}
	return u.String()
}

// NewPostgres opens and pings a pool. When dial is set every connection is
// made through it and the host is resolved on the far side.
func NewPostgres(ctx context.Context, cfg PostgresConfig, dial pgconn.DialFunc) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to parse db config: %w", err)
	}
	if dial != nil {
		pcfg.ConnConfig.DialFunc = dial
		pcfg.ConnConfig.LookupFunc = func(_ context.Context, host string) ([]string, error) {
			return []string{host}, nil
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create db pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}
	return pool, nil
}

// Execer is the part of *pgxpool.Pool the repository uses.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// SQLAlerter is told about every failed statement.
type SQLAlerter interface {
	SQLError(sql string, err error)
}

// TeltonikaRepo appends decoded batches to teltonika_data.
type TeltonikaRepo struct {
	db     Execer
	alerts SQLAlerter
	now    func() time.Time
}

func NewTeltonikaRepo(db Execer, alerts SQLAlerter) *TeltonikaRepo {
	return &TeltonikaRepo{db: db, alerts: alerts, now: time.Now}
}

// Save inserts one row per frame: the records as a JSON array, the raw
// frame as hex and a status tag.
func (r *TeltonikaRepo) Save(ctx context.Context, imei string, records []codec.AVLRecord, rawHex, status string) error {
	data, err := codec.MarshalRecords(records)
	if err != nil {
		return fmt.Errorf("marshal records: %w", err)
	}
	if _, err := r.db.Exec(ctx, insertTeltonikaSQL, imei, string(data), rawHex, r.now().UTC(), status); err != nil {
		if r.alerts != nil {
			r.alerts.SQLError(insertTeltonikaSQL, err)
		}
		return fmt.Errorf("insert teltonika_data: %w", err)
	}
	return nil
}

// Ping runs the liveness query used by the health endpoint.
func (r *TeltonikaRepo) Ping(ctx context.Context) error {
	_, err := r.db.Exec(ctx, "SELECT 1")
	return err
}
