package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/wayfinder/internal/model"
	"github.com/udisondev/wayfinder/internal/poi"
)

// NameRepository stores POI name tables.
type NameRepository struct {
	pool *pgxpool.Pool
}

// NewNameRepository creates a new name repository.
func NewNameRepository(pool *pgxpool.Pool) *NameRepository {
	return &NameRepository{pool: pool}
}

// LoadInto adds every stored name to n and returns the number of rows read.
// Database rows override entries already present in n.
func (r *NameRepository) LoadInto(ctx context.Context, n *poi.Names) (int, error) {
	rows, err := r.pool.Query(ctx, `SELECT category, entity_id, name FROM poi_names`)
	if err != nil {
		return 0, fmt.Errorf("querying poi names: %w", err)
	}
	defer rows.Close()

	loaded := 0
	for rows.Next() {
		var (
			key  string
			id   int64
			name string
		)
		if err := rows.Scan(&key, &id, &name); err != nil {
			return loaded, fmt.Errorf("scanning poi name: %w", err)
		}
		c, err := model.ParseCategory(key)
		if err != nil {
			slog.Warn("skipping poi name", "category", key, "id", id, "error", err)
			continue
		}
		n.AddPrimary(c, model.EntityID(id), name)
		loaded++
	}
	if err := rows.Err(); err != nil {
		return loaded, fmt.Errorf("iterating poi names: %w", err)
	}

	tplRows, err := r.pool.Query(ctx, `SELECT template_key, name FROM poi_template_names`)
	if err != nil {
		return loaded, fmt.Errorf("querying template names: %w", err)
	}
	defer tplRows.Close()

	for tplRows.Next() {
		var key, name string
		if err := tplRows.Scan(&key, &name); err != nil {
			return loaded, fmt.Errorf("scanning template name: %w", err)
		}
		n.AddSecondary(key, name)
		loaded++
	}
	if err := tplRows.Err(); err != nil {
		return loaded, fmt.Errorf("iterating template names: %w", err)
	}
	return loaded, nil
}

// UpsertPrimary stores the name of one entity.
func (r *NameRepository) UpsertPrimary(ctx context.Context, c model.Category, id model.EntityID, name string) error {
	if !c.Valid() {
		return fmt.Errorf("saving poi name: invalid category %d", int32(c))
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO poi_names (category, entity_id, name) VALUES ($1, $2, $3)
		 ON CONFLICT (category, entity_id) DO UPDATE SET name = EXCLUDED.name`,
		c.Key(), int64(id), name,
	)
	if err != nil {
		return fmt.Errorf("saving name of %s %d: %w", c, id, err)
	}
	return nil
}

// UpsertSecondary stores the name shared by a template key.
func (r *NameRepository) UpsertSecondary(ctx context.Context, templateKey, name string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO poi_template_names (template_key, name) VALUES ($1, $2)
		 ON CONFLICT (template_key) DO UPDATE SET name = EXCLUDED.name`,
		templateKey, name,
	)
	if err != nil {
		return fmt.Errorf("saving template name %q: %w", templateKey, err)
	}
	return nil
}

// ImportNames writes a batch of primary names in one transaction.
func (r *NameRepository) ImportNames(ctx context.Context, c model.Category, names map[model.EntityID]string) error {
	if !c.Valid() {
		return fmt.Errorf("importing poi names: invalid category %d", int32(c))
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction for %s names: %w", c, err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("rollback failed", "category", c, "error", err)
		}
	}()

	batch := &pgx.Batch{}
	for id, name := range names {
		batch.Queue(
			`INSERT INTO poi_names (category, entity_id, name) VALUES ($1, $2, $3)
			 ON CONFLICT (category, entity_id) DO UPDATE SET name = EXCLUDED.name`,
			c.Key(), int64(id), name,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("importing %s names: %w", c, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s names: %w", c, err)
	}
	slog.Info("poi names imported", "category", c, "count", len(names))
	return nil
}
