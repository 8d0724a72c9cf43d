package catalog

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/go_cart/variant-cart/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLStore keeps the catalog in two tables, products and variants. The same
// queries run on sqlite and postgres.
type SQLStore struct {
	db     *sql.DB
	driver string
}

func NewSQLStore(driver, dsn string) (*SQLStore, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported catalog driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// every new connection to :memory: is a separate empty database
	if driver == DriverSQLite && strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(100)
		db.SetMaxIdleConns(10)
	}

	return &SQLStore{db: db, driver: driver}, nil
}

func (s *SQLStore) RunMigrations() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not open migrations: %w", err)
	}

	var driver database.Driver
	switch s.driver {
	case DriverPostgres:
		driver, err = postgres.WithInstance(s.db, &postgres.Config{})
	default:
		driver, err = sqlite.WithInstance(s.db, &sqlite.Config{})
	}
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, s.driver, driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (s *SQLStore) GetVariant(ctx context.Context, productID, variantID string) (domain.Variant, error) {
	query := `
		SELECT id, variant_type, price, stock, available
		FROM variants
		WHERE product_id = $1 AND id = $2
	`

	var v domain.Variant
	err := s.db.QueryRowContext(ctx, query, productID, variantID).Scan(
		&v.ID,
		&v.Type,
		&v.Price,
		&v.Stock,
		&v.Available,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Variant{}, ErrNotFound
		}
		return domain.Variant{}, fmt.Errorf("failed to query variant: %w", err)
	}
	return v, nil
}

func (s *SQLStore) IsProductAvailable(ctx context.Context, productID string) (bool, error) {
	var available bool
	err := s.db.QueryRowContext(ctx, `SELECT is_available FROM products WHERE id = $1`, productID).Scan(&available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("failed to query product: %w", err)
	}
	return available, nil
}

// UpsertProduct replaces the product row and its whole variant list in one transaction.
func (s *SQLStore) UpsertProduct(ctx context.Context, p domain.Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO products (id, name, is_available, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = excluded.name, is_available = excluded.is_available, updated_at = excluded.updated_at
	`, p.ID, p.Name, p.Available, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert product: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM variants WHERE product_id = $1`, p.ID); err != nil {
		return fmt.Errorf("failed to reset variants: %w", err)
	}

	for i, v := range p.Variants {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO variants (product_id, id, position, variant_type, price, stock, available)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, p.ID, v.ID, i, v.Type, v.Price, v.Stock, v.Available)
		if err != nil {
			return fmt.Errorf("failed to insert variant %s: %w", v.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit product: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
