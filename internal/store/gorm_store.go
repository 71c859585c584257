package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	beererrors "github.com/abgdnv/beerstock/internal/errors"
	"gorm.io/gorm"
)

// beerModel is the gorm mapping of the beers table.
type beerModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"size:200;not null;uniqueIndex"`
	Brand     string `gorm:"size:200;not null"`
	MaxStock  int    `gorm:"not null"`
	Quantity  int    `gorm:"not null"`
	Type      string `gorm:"size:16;not null"`
	Version   int32  `gorm:"not null;default:1"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (beerModel) TableName() string { return "beers" }

func (m *beerModel) toBeer() *Beer {
	return &Beer{
		ID:       m.ID,
		Name:     m.Name,
		Brand:    m.Brand,
		Max:      m.MaxStock,
		Quantity: m.Quantity,
		Type:     BeerType(m.Type),
		Version:  m.Version,
	}
}

// GormStore implements BeerStore on top of gorm, used with the sqlite driver.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates the beers table if needed and returns a BeerStore backed by db.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&beerModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate beers table: %w", err)
	}
	return &GormStore{db: db}, nil
}

// FindByID retrieves a beer by its unique identifier.
func (g *GormStore) FindByID(ctx context.Context, id int64) (*Beer, error) {
	var m beerModel
	if err := g.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, beererrors.ErrBeerNotFound
		}
		return nil, fmt.Errorf("failed to find beer by ID: %w", err)
	}
	return m.toBeer(), nil
}

// FindByName retrieves a beer by its name.
func (g *GormStore) FindByName(ctx context.Context, name string) (*Beer, error) {
	var m beerModel
	if err := g.db.WithContext(ctx).First(&m, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, beererrors.ErrBeerNotFound
		}
		return nil, fmt.Errorf("failed to find beer by name: %w", err)
	}
	return m.toBeer(), nil
}

// FindAll retrieves all beers ordered by ID.
func (g *GormStore) FindAll(ctx context.Context) ([]Beer, error) {
	var models []beerModel
	if err := g.db.WithContext(ctx).Order("id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find all beers: %w", err)
	}
	beers := make([]Beer, 0, len(models))
	for i := range models {
		beers = append(beers, *models[i].toBeer())
	}
	return beers, nil
}

// Save inserts a new beer when ID is zero, otherwise updates the beer with the matching ID and version.
func (g *GormStore) Save(ctx context.Context, beer Beer) (*Beer, error) {
	if beer.ID == 0 {
		m := beerModel{
			Name:     beer.Name,
			Brand:    beer.Brand,
			MaxStock: beer.Max,
			Quantity: beer.Quantity,
			Type:     string(beer.Type),
			Version:  1,
		}
		if err := g.db.WithContext(ctx).Create(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, beererrors.ErrBeerAlreadyRegistered
			}
			return nil, fmt.Errorf("failed to create beer: %w", err)
		}
		return m.toBeer(), nil
	}

	res := g.db.WithContext(ctx).Model(&beerModel{}).
		Where("id = ? AND version = ?", beer.ID, beer.Version).
		Updates(map[string]any{
			"name":       beer.Name,
			"brand":      beer.Brand,
			"max_stock":  beer.Max,
			"quantity":   beer.Quantity,
			"type":       string(beer.Type),
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return nil, beererrors.ErrBeerAlreadyRegistered
		}
		return nil, fmt.Errorf("failed to update beer: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := g.db.WithContext(ctx).Model(&beerModel{}).Where("id = ?", beer.ID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to update beer: %w", err)
		}
		if count == 0 {
			return nil, beererrors.ErrBeerNotFound
		}
		return nil, beererrors.ErrOptimisticLock
	}
	beer.Version++
	return &beer, nil
}

// DeleteByID removes a beer by its unique identifier.
func (g *GormStore) DeleteByID(ctx context.Context, id int64) error {
	res := g.db.WithContext(ctx).Delete(&beerModel{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete beer: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return beererrors.ErrBeerNotFound
	}
	return nil
}
