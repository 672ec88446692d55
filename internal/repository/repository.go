package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/marketplace/domain"
	"github.com/fjod/go_cart/marketplace/internal/inventory"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

var (
	ErrDuplicateOrderNumber    = errors.New("order number already exists")
	ErrDuplicateIdempotencyKey = errors.New("checkout with this idempotency key already exists")
	ErrIdempotencyKeyNotFound  = errors.New("idempotency key not found")
	ErrPaymentMethodNotFound   = errors.New("payment method not found")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// OrderRepository is everything the checkout and status services need from storage.
type OrderRepository interface {
	CreateCheckout(ctx context.Context, order *domain.MasterOrder) error
	FindByIdempotencyKey(ctx context.Context, userID int64, key string) (*domain.MasterOrder, error)
	GetMasterOrderByNumber(ctx context.Context, orderGroupNumber string) (*domain.MasterOrder, error)
	ListMasterOrdersByUser(ctx context.Context, userID int64, limit int) ([]*domain.MasterOrder, error)
	GetSubOrderByNumber(ctx context.Context, orderNumber string) (*domain.SubOrder, error)
	PaymentMethod(ctx context.Context, code string) (*domain.PaymentMethod, error)
	AddressSnapshot(ctx context.Context, addressID, userID int64) (string, error)
	BeginStatusTx(ctx context.Context) (StatusTx, error)
}

// StatusTx is the unit of work of one status transition. Rows read through it
// are locked until Commit or Rollback.
type StatusTx interface {
	LockSubOrder(ctx context.Context, orderNumber string) (*domain.SubOrder, error)
	LineItems(ctx context.Context, subOrderID uuid.UUID) ([]*domain.OrderLineItem, error)
	UpdateSubOrderStatus(ctx context.Context, subOrderID uuid.UUID, status domain.OrderStatus) error
	AppendHistory(ctx context.Context, h *domain.StatusHistory) error
	LockMasterOrder(ctx context.Context, masterOrderID uuid.UUID) (*domain.MasterOrder, error)
	SiblingStatuses(ctx context.Context, masterOrderID uuid.UUID) ([]domain.OrderStatus, error)
	UpdateMasterStatus(ctx context.Context, masterOrderID uuid.UUID, status domain.MasterOrderStatus) error
	// Stock is the stock store bound to this unit of work
	Stock() inventory.StockStore
	Commit() error
	Rollback() error
}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Repository struct {
	db *sql.DB
}

var _ OrderRepository = (*Repository)(nil)

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	log.Info().Str("host", cred.Host).Int("port", cred.Port).Str("db", cred.DBName).Msg("connected to postgres")
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "marketplace_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}
	return nil
}

// DB exposes the pool so the stock store can share it.
func (r *Repository) DB() *sql.DB {
	return r.db
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
