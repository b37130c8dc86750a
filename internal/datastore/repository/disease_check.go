package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/plantcare-go/plantcare/internal/datastore/entities"
)

// DiseaseCheckRepository provides access to the disease_checks table.
// Reads preload the associated disease type.
type DiseaseCheckRepository interface {
	Create(ctx context.Context, check *entities.DiseaseCheck) error

	// GetByID returns ErrDiseaseCheckNotFound if not found.
	GetByID(ctx context.Context, id uint) (*entities.DiseaseCheck, error)

	List(ctx context.Context, opts ListOptions) ([]entities.DiseaseCheck, int64, error)

	// ListByPlant returns the plant's checks, newest first.
	ListByPlant(ctx context.Context, plantID uint, opts ListOptions) ([]entities.DiseaseCheck, int64, error)

	// UpdateDiseaseType reassigns the check. The caller validates typeID.
	UpdateDiseaseType(ctx context.Context, id, typeID uint) (*entities.DiseaseCheck, error)

	Delete(ctx context.Context, id uint) error
}

type diseaseCheckRepository struct {
	db *gorm.DB
}

// NewDiseaseCheckRepository creates a new DiseaseCheckRepository.
func NewDiseaseCheckRepository(db *gorm.DB) DiseaseCheckRepository {
	return &diseaseCheckRepository{db: db}
}

func (r *diseaseCheckRepository) Create(ctx context.Context, check *entities.DiseaseCheck) error {
	return mapError(r.db.WithContext(ctx).Omit("DiseaseType").Create(check).Error, ErrDiseaseCheckNotFound, "create_disease_check")
}

func (r *diseaseCheckRepository) GetByID(ctx context.Context, id uint) (*entities.DiseaseCheck, error) {
	var check entities.DiseaseCheck
	if err := r.db.WithContext(ctx).Preload("DiseaseType").First(&check, id).Error; err != nil {
		return nil, mapError(err, ErrDiseaseCheckNotFound, "get_disease_check")
	}
	return &check, nil
}

func (r *diseaseCheckRepository) List(ctx context.Context, opts ListOptions) ([]entities.DiseaseCheck, int64, error) {
	query := r.db.WithContext(ctx).Model(&entities.DiseaseCheck{})
	return r.list(query, "id ASC", opts)
}

func (r *diseaseCheckRepository) ListByPlant(ctx context.Context, plantID uint, opts ListOptions) ([]entities.DiseaseCheck, int64, error) {
	query := r.db.WithContext(ctx).Model(&entities.DiseaseCheck{}).Where("plant_id = ?", plantID)
	return r.list(query, "created_at DESC, id DESC", opts)
}

func (r *diseaseCheckRepository) list(query *gorm.DB, order string, opts ListOptions) ([]entities.DiseaseCheck, int64, error) {
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, mapError(err, ErrDiseaseCheckNotFound, "count_disease_checks")
	}

	var checks []entities.DiseaseCheck
	if err := opts.apply(query.Preload("DiseaseType").Order(order)).Find(&checks).Error; err != nil {
		return nil, 0, mapError(err, ErrDiseaseCheckNotFound, "list_disease_checks")
	}
	return checks, total, nil
}

func (r *diseaseCheckRepository) UpdateDiseaseType(ctx context.Context, id, typeID uint) (*entities.DiseaseCheck, error) {
	var check entities.DiseaseCheck
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&check, id).Error; err != nil {
			return err
		}
		if err := tx.Model(&check).Update("disease_type_id", typeID).Error; err != nil {
			return err
		}
		return tx.Preload("DiseaseType").First(&check, id).Error
	})
	if err != nil {
		return nil, mapError(err, ErrDiseaseCheckNotFound, "update_disease_check")
	}
	return &check, nil
}

func (r *diseaseCheckRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var check entities.DiseaseCheck
		if err := tx.First(&check, id).Error; err != nil {
			return err
		}
		if err := tx.Model(&entities.PlantCare{}).Where("disease_check_id = ?", id).
			Update("disease_check_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&check).Error
	})
	return mapError(err, ErrDiseaseCheckNotFound, "delete_disease_check")
}
