package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Коды SQLSTATE, которые репозитории переводят в доменные ошибки.
const (
	sqlstateUniqueViolation     = "23505"
	sqlstateForeignKeyViolation = "23503"
)

// opTimeout ограничивает одиночный запрос репозитория.
const opTimeout = 5 * time.Second

// pool задаёт размеры пула: веб-запросы и фоновые воркеры делят одни соединения.
var pool = struct {
	maxOpen, maxIdle   int
	lifetime, idleTime time.Duration
	pingTimeout        time.Duration
}{
	maxOpen:     25,
	maxIdle:     25,
	lifetime:    30 * time.Minute,
	idleTime:    5 * time.Minute,
	pingTimeout: 5 * time.Second,
}

// Store держит пул соединений с базой магазина.
type Store struct {
	db *sql.DB
}

// querier позволяет репозиториям работать и с пулом, и с открытой транзакцией.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open подключается через драйвер pgx и сразу пингует базу.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	db.SetMaxOpenConns(pool.maxOpen)
	db.SetMaxIdleConns(pool.maxIdle)
	db.SetConnMaxLifetime(pool.lifetime)
	db.SetConnMaxIdleTime(pool.idleTime)

	store := &Store{db: db}
	if err := store.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return store, nil
}

func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping используется и при старте, и пробой готовности.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("postgres: store is closed or was never opened")
	}
	ctx, cancel := context.WithTimeout(ctx, pool.pingTimeout)
	defer cancel()
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// inTx коммитит, только если fn вернула nil.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return sqlstate(err) == sqlstateUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return sqlstate(err) == sqlstateForeignKeyViolation
}

// uniqueConstraint отдаёт имя уникального индекса, на который наткнулась вставка.
func uniqueConstraint(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == sqlstateUniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

func sqlstate(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
