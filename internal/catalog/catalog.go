package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/marketplace/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "modernc.org/sqlite"
)

var ErrVariantNotFound = errors.New("variant not found")

// Catalog is the read-only variant lookup backed by sqlite.
type Catalog struct {
	db *sql.DB
}

func New(dbPath string) (*Catalog, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Catalog{db: db}, nil
}

func (c *Catalog) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(c.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

// Lookup returns the latest committed view of a variant. A variant is only Active
// when the variant, its product and its shop are all active.
func (c *Catalog) Lookup(ctx context.Context, variantID int64) (domain.VariantInfo, error) {
	query := `
		SELECT v.id, p.shop_id, p.name, v.sku, v.options, v.image_ref, v.price,
		       v.active AND p.active AND s.active
		FROM variants v
		JOIN products p ON p.id = v.product_id
		JOIN shops s ON s.id = p.shop_id
		WHERE v.id = ?
	`

	var (
		info   domain.VariantInfo
		active bool
	)
	err := c.db.QueryRowContext(ctx, query, variantID).Scan(
		&info.VariantID,
		&info.ShopID,
		&info.ProductName,
		&info.SKU,
		&info.Options,
		&info.ImageRef,
		&info.Price,
		&active,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.VariantInfo{}, ErrVariantNotFound
	}
	if err != nil {
		return domain.VariantInfo{}, fmt.Errorf("failed to query variant %d: %w", variantID, err)
	}
	info.Active = active
	return info, nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}
