package store

import (
	"context"
	"embed"
	"errors"
	"fmt"

	beererrors "github.com/abgdnv/beerstock/internal/errors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrations embed.FS

const uniqueViolation = "23505"

const beerColumns = "id, name, brand, max_stock, quantity, type, version"

// PgStore implements BeerStore using PostgreSQL as the data store.
type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a new instance of BeerStore using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{db: dbp}
}

// Migrate applies the embedded schema migrations to the database at url.
func Migrate(url string) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

func scanBeer(row pgx.Row) (*Beer, error) {
	var b Beer
	var beerType string
	if err := row.Scan(&b.ID, &b.Name, &b.Brand, &b.Max, &b.Quantity, &beerType, &b.Version); err != nil {
		return nil, err
	}
	b.Type = BeerType(beerType)
	return &b, nil
}

// FindByID retrieves a beer by its unique identifier.
// Returns ErrBeerNotFound if no beer exists with the given ID.
func (p *PgStore) FindByID(ctx context.Context, id int64) (*Beer, error) {
	beer, err := scanBeer(p.db.QueryRow(ctx, "SELECT "+beerColumns+" FROM beers WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, beererrors.ErrBeerNotFound
		}
		return nil, fmt.Errorf("failed to find beer by ID: %w", err)
	}
	return beer, nil
}

// FindByName retrieves a beer by its name.
// Returns ErrBeerNotFound if no beer exists with the given name.
func (p *PgStore) FindByName(ctx context.Context, name string) (*Beer, error) {
	beer, err := scanBeer(p.db.QueryRow(ctx, "SELECT "+beerColumns+" FROM beers WHERE name = $1", name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, beererrors.ErrBeerNotFound
		}
		return nil, fmt.Errorf("failed to find beer by name: %w", err)
	}
	return beer, nil
}

// FindAll retrieves all beers ordered by ID.
// It returns a slice of beers, which may be empty if no beers exist.
func (p *PgStore) FindAll(ctx context.Context) ([]Beer, error) {
	rows, err := p.db.Query(ctx, "SELECT "+beerColumns+" FROM beers ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to find all beers: %w", err)
	}
	defer rows.Close()

	beers := make([]Beer, 0)
	for rows.Next() {
		beer, err := scanBeer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan beer: %w", err)
		}
		beers = append(beers, *beer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to find all beers: %w", err)
	}
	return beers, nil
}

// Save inserts a new beer when ID is zero, otherwise updates the beer with the matching ID and version.
func (p *PgStore) Save(ctx context.Context, beer Beer) (*Beer, error) {
	if beer.ID == 0 {
		return p.insert(ctx, beer)
	}
	return p.update(ctx, beer)
}

func (p *PgStore) insert(ctx context.Context, beer Beer) (*Beer, error) {
	row := p.db.QueryRow(ctx,
		`INSERT INTO beers (name, brand, max_stock, quantity, type)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+beerColumns,
		beer.Name, beer.Brand, beer.Max, beer.Quantity, string(beer.Type))
	created, err := scanBeer(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, beererrors.ErrBeerAlreadyRegistered
		}
		return nil, fmt.Errorf("failed to create beer: %w", err)
	}
	return created, nil
}

func (p *PgStore) update(ctx context.Context, beer Beer) (*Beer, error) {
	row := p.db.QueryRow(ctx,
		`UPDATE beers
		 SET name = $3, brand = $4, max_stock = $5, quantity = $6, type = $7,
		     version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $2
		 RETURNING `+beerColumns,
		beer.ID, beer.Version, beer.Name, beer.Brand, beer.Max, beer.Quantity, string(beer.Type))
	updated, err := scanBeer(row)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, beererrors.ErrBeerAlreadyRegistered
		}
		return nil, fmt.Errorf("failed to update beer: %w", err)
	}

	var exists bool
	if err := p.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM beers WHERE id = $1)", beer.ID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to update beer: %w", err)
	}
	if !exists {
		return nil, beererrors.ErrBeerNotFound
	}
	return nil, beererrors.ErrOptimisticLock
}

// DeleteByID removes a beer by its unique identifier.
// Returns ErrBeerNotFound if no beer exists with the given ID.
func (p *PgStore) DeleteByID(ctx context.Context, id int64) error {
	tag, err := p.db.Exec(ctx, "DELETE FROM beers WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete beer by ID: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return beererrors.ErrBeerNotFound
	}
	return nil
}
