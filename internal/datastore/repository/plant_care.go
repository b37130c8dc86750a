package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/plantcare-go/plantcare/internal/datastore/entities"
)

// PlantCareRepository provides access to the plant_cares table.
type PlantCareRepository interface {
	Create(ctx context.Context, care *entities.PlantCare) error

	// GetByID returns ErrPlantCareNotFound if not found.
	GetByID(ctx context.Context, id uint) (*entities.PlantCare, error)

	List(ctx context.Context, opts ListOptions) ([]entities.PlantCare, int64, error)

	// ListByPlant returns the plant's care records, most recently applied first.
	ListByPlant(ctx context.Context, plantID uint, opts ListOptions) ([]entities.PlantCare, int64, error)

	Update(ctx context.Context, id uint, changes PlantCareChanges) (*entities.PlantCare, error)

	Delete(ctx context.Context, id uint) error
}

// PlantCareChanges lists the mutable care fields.
type PlantCareChanges struct {
	MedicineName *string
	Notes        *string
}

type plantCareRepository struct {
	db *gorm.DB
}

// NewPlantCareRepository creates a new PlantCareRepository.
func NewPlantCareRepository(db *gorm.DB) PlantCareRepository {
	return &plantCareRepository{db: db}
}

func (r *plantCareRepository) Create(ctx context.Context, care *entities.PlantCare) error {
	err := r.db.WithContext(ctx).Omit("GrowthLog", "DiseaseCheck").Create(care).Error
	return mapError(err, ErrPlantCareNotFound, "create_plant_care")
}

func (r *plantCareRepository) GetByID(ctx context.Context, id uint) (*entities.PlantCare, error) {
	var care entities.PlantCare
	if err := r.db.WithContext(ctx).First(&care, id).Error; err != nil {
		return nil, mapError(err, ErrPlantCareNotFound, "get_plant_care")
	}
	return &care, nil
}

func (r *plantCareRepository) List(ctx context.Context, opts ListOptions) ([]entities.PlantCare, int64, error) {
	query := r.db.WithContext(ctx).Model(&entities.PlantCare{})
	return r.list(query, "id ASC", opts)
}

func (r *plantCareRepository) ListByPlant(ctx context.Context, plantID uint, opts ListOptions) ([]entities.PlantCare, int64, error) {
	query := r.db.WithContext(ctx).Model(&entities.PlantCare{}).Where("plant_id = ?", plantID)
	return r.list(query, "applied_at DESC, id DESC", opts)
}

func (r *plantCareRepository) list(query *gorm.DB, order string, opts ListOptions) ([]entities.PlantCare, int64, error) {
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, mapError(err, ErrPlantCareNotFound, "count_plant_cares")
	}

	var cares []entities.PlantCare
	if err := opts.apply(query.Order(order)).Find(&cares).Error; err != nil {
		return nil, 0, mapError(err, ErrPlantCareNotFound, "list_plant_cares")
	}
	return cares, total, nil
}

func (r *plantCareRepository) Update(ctx context.Context, id uint, changes PlantCareChanges) (*entities.PlantCare, error) {
	updates := map[string]any{}
	if changes.MedicineName != nil {
		updates["medicine_name"] = *changes.MedicineName
	}
	if changes.Notes != nil {
		updates["notes"] = *changes.Notes
	}

	var care entities.PlantCare
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&care, id).Error; err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&care).Updates(updates).Error
	})
	if err != nil {
		return nil, mapError(err, ErrPlantCareNotFound, "update_plant_care")
	}
	return &care, nil
}

func (r *plantCareRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&entities.PlantCare{}, id)
	if result.Error != nil {
		return mapError(result.Error, ErrPlantCareNotFound, "delete_plant_care")
	}
	if result.RowsAffected == 0 {
		return mapError(gorm.ErrRecordNotFound, ErrPlantCareNotFound, "delete_plant_care")
	}
	return nil
}
