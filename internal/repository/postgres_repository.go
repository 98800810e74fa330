package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/go_cart/cart-api/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresRepository stores one row per cart with the items as JSONB.
type PostgresRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool, now: time.Now}
}

// RunPostgresMigrations applies the cart schema found in migrationsPath.
func RunPostgresMigrations(databaseURL, migrationsPath string) error {
	m, err := migrate.New(
		fmt.Sprintf("file://%s", migrationsPath),
		migrateURL(databaseURL),
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

func migrateURL(databaseURL string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(databaseURL, prefix) {
			return "pgx5://" + strings.TrimPrefix(databaseURL, prefix)
		}
	}
	return databaseURL
}

func (r *PostgresRepository) FindByUserID(ctx context.Context, userID string) (*domain.Cart, error) {
	query := `
		SELECT items, total_amount::text, currency, version, created_at, updated_at
		FROM carts
		WHERE user_id = $1
	`

	var (
		items []byte
		total string
		cart  = domain.Cart{UserID: userID}
	)
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&items,
		&total,
		&cart.Currency,
		&cart.Version,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pool.QueryRow: %w", err)
	}

	if err := json.Unmarshal(items, &cart.Items); err != nil {
		return nil, fmt.Errorf("json.Unmarshal items: %w", err)
	}
	if cart.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("total_amount[%s] is not valid: %w", total, err)
	}

	return &cart, nil
}

func (r *PostgresRepository) Save(ctx context.Context, cart *domain.Cart) (*domain.Cart, error) {
	saved := cart.Clone()
	now := r.now().UTC().Truncate(time.Microsecond)
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = now
	}
	saved.UpdatedAt = now
	saved.Version = cart.Version + 1

	items, err := json.Marshal(saved.Items)
	if err != nil {
		return nil, fmt.Errorf("json.Marshal items: %w", err)
	}

	var query string
	args := []any{saved.UserID, items, saved.TotalAmount.String(), saved.Currency, saved.Version, saved.CreatedAt, saved.UpdatedAt}

	if cart.Version == 0 {
		query = `
			INSERT INTO carts (user_id, items, total_amount, currency, version, created_at, updated_at)
			VALUES ($1, $2, $3::numeric, $4, $5, $6, $7)
			ON CONFLICT (user_id) DO NOTHING
		`
	} else {
		query = `
			UPDATE carts
			SET items = $2, total_amount = $3::numeric, currency = $4, version = $5, created_at = $6, updated_at = $7
			WHERE user_id = $1 AND version = $8
		`
		args = append(args, cart.Version)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pool.Exec: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrCartConflict
	}

	return saved, nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
