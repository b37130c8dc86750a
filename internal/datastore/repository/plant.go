package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/plantcare-go/plantcare/internal/datastore/entities"
)

// PlantRepository provides access to the plants table.
type PlantRepository interface {
	Create(ctx context.Context, plant *entities.Plant) error

	// GetByID returns ErrPlantNotFound if not found.
	GetByID(ctx context.Context, id uint) (*entities.Plant, error)

	List(ctx context.Context, opts ListOptions) ([]entities.Plant, int64, error)

	// ListByUser returns the user's plants. A non-empty species filter matches
	// case-insensitively anywhere in the species name.
	ListByUser(ctx context.Context, userID uint, species string, opts ListOptions) ([]entities.Plant, int64, error)

	Update(ctx context.Context, id uint, changes PlantChanges) (*entities.Plant, error)

	// Delete removes the plant with its growth logs, disease checks and care records.
	Delete(ctx context.Context, id uint) error
}

// PlantChanges lists the mutable plant fields.
type PlantChanges struct {
	Name    *string
	Species *string
}

type plantRepository struct {
	db *gorm.DB
}

// NewPlantRepository creates a new PlantRepository.
func NewPlantRepository(db *gorm.DB) PlantRepository {
	return &plantRepository{db: db}
}

func (r *plantRepository) Create(ctx context.Context, plant *entities.Plant) error {
	return mapError(r.db.WithContext(ctx).Create(plant).Error, ErrPlantNotFound, "create_plant")
}

func (r *plantRepository) GetByID(ctx context.Context, id uint) (*entities.Plant, error) {
	var plant entities.Plant
	if err := r.db.WithContext(ctx).First(&plant, id).Error; err != nil {
		return nil, mapError(err, ErrPlantNotFound, "get_plant")
	}
	return &plant, nil
}

func (r *plantRepository) List(ctx context.Context, opts ListOptions) ([]entities.Plant, int64, error) {
	return r.list(ctx, r.db.WithContext(ctx).Model(&entities.Plant{}), opts)
}

func (r *plantRepository) ListByUser(ctx context.Context, userID uint, species string, opts ListOptions) ([]entities.Plant, int64, error) {
	query := r.db.WithContext(ctx).Model(&entities.Plant{}).Where("user_id = ?", userID)
	if species = strings.TrimSpace(species); species != "" {
		query = query.Where("LOWER(species) LIKE ?", "%"+strings.ToLower(species)+"%")
	}
	return r.list(ctx, query, opts)
}

func (r *plantRepository) list(_ context.Context, query *gorm.DB, opts ListOptions) ([]entities.Plant, int64, error) {
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, mapError(err, ErrPlantNotFound, "count_plants")
	}

	var plants []entities.Plant
	if err := opts.apply(query.Order("id ASC")).Find(&plants).Error; err != nil {
		return nil, 0, mapError(err, ErrPlantNotFound, "list_plants")
	}
	return plants, total, nil
}

func (r *plantRepository) Update(ctx context.Context, id uint, changes PlantChanges) (*entities.Plant, error) {
	updates := map[string]any{}
	if changes.Name != nil {
		updates["name"] = *changes.Name
	}
	if changes.Species != nil {
		updates["species"] = *changes.Species
	}

	var plant entities.Plant
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&plant, id).Error; err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&plant).Updates(updates).Error
	})
	if err != nil {
		return nil, mapError(err, ErrPlantNotFound, "update_plant")
	}
	return &plant, nil
}

func (r *plantRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var plant entities.Plant
		if err := tx.First(&plant, id).Error; err != nil {
			return err
		}
		return deletePlantsTx(tx, []uint{id})
	})
	return mapError(err, ErrPlantNotFound, "delete_plant")
}

// deletePlantsTx removes plants and every row that references them.
// Explicit deletes keep the cascade independent of foreign key enforcement.
func deletePlantsTx(tx *gorm.DB, plantIDs []uint) error {
	if len(plantIDs) == 0 {
		return nil
	}
	for _, model := range []any{&entities.PlantCare{}, &entities.DiseaseCheck{}, &entities.GrowthLog{}} {
		if err := tx.Where("plant_id IN ?", plantIDs).Delete(model).Error; err != nil {
			return err
		}
	}
	return tx.Where("id IN ?", plantIDs).Delete(&entities.Plant{}).Error
}
