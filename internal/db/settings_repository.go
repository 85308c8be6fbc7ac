package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/wayfinder/internal/config"
	"github.com/udisondev/wayfinder/internal/model"
)

// SettingsRepository stores per-category cue overrides.
// Tone settings stay file-only.
type SettingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository creates a new settings repository.
func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// ApplyTo overlays stored rows onto cc and returns the number of categories overridden.
// Rows naming an unknown category are skipped.
func (r *SettingsRepository) ApplyTo(ctx context.Context, cc *config.CategoriesConfig) (int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT category, enabled, max_range, near_range, volume, falloff, falloff_script, priority
		 FROM category_settings
		 ORDER BY category`)
	if err != nil {
		return 0, fmt.Errorf("querying category settings: %w", err)
	}
	defer rows.Close()

	applied := 0
	for rows.Next() {
		var (
			key      string
			settings config.CategoryConfig
			priority int32
		)
		if err := rows.Scan(&key, &settings.Enabled, &settings.MaxRange, &settings.NearRange,
			&settings.Volume, &settings.Falloff, &settings.FalloffScript, &priority); err != nil {
			return applied, fmt.Errorf("scanning category settings: %w", err)
		}

		c, err := model.ParseCategory(key)
		if err != nil {
			slog.Warn("skipping category settings", "category", key, "error", err)
			continue
		}

		target := cc.Get(c)
		target.Enabled = settings.Enabled
		target.MaxRange = settings.MaxRange
		target.NearRange = settings.NearRange
		target.Volume = settings.Volume
		target.Falloff = settings.Falloff
		target.FalloffScript = settings.FalloffScript
		target.Priority = int(priority)
		applied++
	}
	if err := rows.Err(); err != nil {
		return applied, fmt.Errorf("iterating category settings: %w", err)
	}
	return applied, nil
}

// Save upserts the settings of category c.
func (r *SettingsRepository) Save(ctx context.Context, c model.Category, s config.CategoryConfig) error {
	if !c.Valid() {
		return fmt.Errorf("saving category settings: invalid category %d", int32(c))
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO category_settings
		     (category, enabled, max_range, near_range, volume, falloff, falloff_script, priority, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		 ON CONFLICT (category) DO UPDATE SET
		     enabled = EXCLUDED.enabled,
		     max_range = EXCLUDED.max_range,
		     near_range = EXCLUDED.near_range,
		     volume = EXCLUDED.volume,
		     falloff = EXCLUDED.falloff,
		     falloff_script = EXCLUDED.falloff_script,
		     priority = EXCLUDED.priority,
		     updated_at = NOW()`,
		c.Key(), s.Enabled, s.MaxRange, s.NearRange, s.Volume, s.Falloff, s.FalloffScript, int32(s.Priority),
	)
	if err != nil {
		return fmt.Errorf("saving settings of %s: %w", c, err)
	}
	return nil
}

// Delete removes the override of category c. Missing rows are not an error.
func (r *SettingsRepository) Delete(ctx context.Context, c model.Category) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM category_settings WHERE category = $1`, c.Key()); err != nil {
		return fmt.Errorf("deleting settings of %s: %w", c, err)
	}
	return nil
}
