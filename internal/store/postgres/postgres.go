// Package postgres persists records as JSONB documents in a single records
// table keyed by (kind, id). Indexed fields are mirrored into a JSONB column
// so filters become a containment query.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"expertcheck/internal/apperrors"
	"expertcheck/internal/logger"
	"expertcheck/internal/models"
	"expertcheck/internal/store"
)

const uniqueViolation = "23505"

// Config holds database connection settings.
type Config struct {
	Host            string
	Port            int
	User            string
	Password        string //nolint:gosec // connection config
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN renders the lib/pq connection string.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

const pingTimeout = 5 * time.Second

// Connect opens a pooled connection and verifies it.
func Connect(cfg Config) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if pingErr := db.PingContext(ctx); pingErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}
	return db, nil
}

// Collection stores one record kind in the records table.
type Collection[T store.Record[T]] struct {
	db   *sqlx.DB
	kind string
	log  logger.Logger
}

// NewCollection creates a collection for kind.
func NewCollection[T store.Record[T]](db *sqlx.DB, kind string, log logger.Logger) *Collection[T] {
	return &Collection[T]{db: db, kind: kind, log: log}
}

// NewStore returns a Store backed by db. Closing the store closes db.
func NewStore(db *sqlx.DB, log logger.Logger) *store.Store {
	return store.New(
		NewCollection[models.ContentItem](db, store.KindContent, log),
		NewCollection[models.ExpertResponse](db, store.KindResponse, log),
		NewCollection[models.LibraryEntry](db, store.KindLibrary, log),
		NewCollection[models.Expert](db, store.KindExpert, log),
		NewCollection[models.Domain](db, store.KindDomain, log),
		db.Close,
	)
}

func (c *Collection[T]) classify(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return apperrors.Wrap(apperrors.CodeAlreadyFinalized, op+" "+c.kind+": conflicting record exists", err)
	}
	return apperrors.Unavailable(op+" "+c.kind, err)
}

func (c *Collection[T]) List(ctx context.Context, filter store.Filter) ([]T, error) {
	if filter == nil {
		filter = store.Filter{}
	}
	idx, err := encodeFilter(filter)
	if err != nil {
		return nil, err
	}

	var rows [][]byte
	query := `SELECT data FROM records WHERE kind = $1 AND idx @> $2::jsonb ORDER BY created_at, id`
	if err := c.db.SelectContext(ctx, &rows, query, c.kind, idx); err != nil {
		return nil, c.classify("list", err)
	}

	out := make([]T, 0, len(rows))
	for _, data := range rows {
		rec, decodeErr := store.Decode[T](data)
		if decodeErr != nil {
			c.log.Warn("Skipping undecodable record",
				logger.String("kind", c.kind),
				logger.Error(decodeErr),
			)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (c *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	var data []byte
	query := `SELECT data FROM records WHERE kind = $1 AND id = $2`
	if err := c.db.GetContext(ctx, &data, query, c.kind, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, store.NotFound(c.kind, id)
		}
		return zero, c.classify("get", err)
	}
	return store.Decode[T](data)
}

func (c *Collection[T]) Create(ctx context.Context, rec T) (T, error) {
	var zero T
	rec = rec.WithKey(uuid.NewString())
	data, idx, err := store.Encode(rec)
	if err != nil {
		return zero, err
	}

	query := `INSERT INTO records (kind, id, data, idx) VALUES ($1, $2, $3::jsonb, $4::jsonb)`
	if _, err := c.db.ExecContext(ctx, query, c.kind, rec.Key(), string(data), string(idx)); err != nil {
		return zero, c.classify("create", err)
	}
	return rec, nil
}

func (c *Collection[T]) Update(ctx context.Context, id string, mutate store.Mutator[T]) (T, error) {
	var zero T

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return zero, c.classify("update", err)
	}
	defer func() { _ = tx.Rollback() }()

	var data []byte
	selectQuery := `SELECT data FROM records WHERE kind = $1 AND id = $2 FOR UPDATE`
	if err := tx.GetContext(ctx, &data, selectQuery, c.kind, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, store.NotFound(c.kind, id)
		}
		return zero, c.classify("update", err)
	}
	prev, err := store.Decode[T](data)
	if err != nil {
		return zero, err
	}
	next, err := store.ApplyMutation(id, prev, mutate)
	if err != nil {
		return zero, err
	}
	encoded, idx, err := store.Encode(next)
	if err != nil {
		return zero, err
	}

	updateQuery := `UPDATE records SET data = $3::jsonb, idx = $4::jsonb, updated_at = now() WHERE kind = $1 AND id = $2`
	if _, err := tx.ExecContext(ctx, updateQuery, c.kind, id, string(encoded), string(idx)); err != nil {
		return zero, c.classify("update", err)
	}
	if err := tx.Commit(); err != nil {
		return zero, c.classify("update", err)
	}
	return next, nil
}

func (c *Collection[T]) Delete(ctx context.Context, id string) (bool, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM records WHERE kind = $1 AND id = $2`, c.kind, id)
	if err != nil {
		return false, c.classify("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, c.classify("delete", err)
	}
	return n > 0, nil
}

func encodeFilter(filter store.Filter) (string, error) {
	data, err := json.Marshal(map[string]string(filter))
	if err != nil {
		return "", fmt.Errorf("marshal filter: %w", err)
	}
	return string(data), nil
}
