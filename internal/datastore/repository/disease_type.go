package repository

import (
	"context"
	stderrors "errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/plantcare-go/plantcare/internal/datastore/entities"
)

// DiseaseTypeRepository provides access to the disease_types table.
type DiseaseTypeRepository interface {
	// GetOrCreate retrieves the type with this exact name or creates it.
	// Concurrent callers racing on the same name all receive the same row.
	GetOrCreate(ctx context.Context, name string) (*entities.DiseaseType, error)

	// GetByID returns ErrDiseaseTypeNotFound if not found.
	GetByID(ctx context.Context, id uint) (*entities.DiseaseType, error)

	// GetByName returns ErrDiseaseTypeNotFound if not found.
	GetByName(ctx context.Context, name string) (*entities.DiseaseType, error)

	// GetAll returns every type ordered by ID, which is the model's class order.
	GetAll(ctx context.Context) ([]entities.DiseaseType, error)

	Count(ctx context.Context) (int64, error)

	// CreateBatch inserts names in order, skipping ones that already exist.
	CreateBatch(ctx context.Context, names []string) (int, error)
}

type diseaseTypeRepository struct {
	db *gorm.DB
}

// NewDiseaseTypeRepository creates a new DiseaseTypeRepository.
func NewDiseaseTypeRepository(db *gorm.DB) DiseaseTypeRepository {
	return &diseaseTypeRepository{db: db}
}

func (r *diseaseTypeRepository) GetOrCreate(ctx context.Context, name string) (*entities.DiseaseType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidInput("get_or_create_disease_type")
	}

	var dt entities.DiseaseType
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&dt).Error
	if err == nil {
		return &dt, nil
	}
	if !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, mapError(err, ErrDiseaseTypeNotFound, "get_disease_type")
	}

	dt = entities.DiseaseType{Name: name}
	if createErr := r.db.WithContext(ctx).Create(&dt).Error; createErr != nil {
		// Another request may have created it in between; re-read before failing.
		if findErr := r.db.WithContext(ctx).Where("name = ?", name).First(&dt).Error; findErr != nil {
			return nil, mapError(createErr, ErrDiseaseTypeNotFound, "create_disease_type")
		}
	}
	return &dt, nil
}

func (r *diseaseTypeRepository) GetByID(ctx context.Context, id uint) (*entities.DiseaseType, error) {
	var dt entities.DiseaseType
	if err := r.db.WithContext(ctx).First(&dt, id).Error; err != nil {
		return nil, mapError(err, ErrDiseaseTypeNotFound, "get_disease_type")
	}
	return &dt, nil
}

func (r *diseaseTypeRepository) GetByName(ctx context.Context, name string) (*entities.DiseaseType, error) {
	var dt entities.DiseaseType
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&dt).Error; err != nil {
		return nil, mapError(err, ErrDiseaseTypeNotFound, "get_disease_type")
	}
	return &dt, nil
}

func (r *diseaseTypeRepository) GetAll(ctx context.Context) ([]entities.DiseaseType, error) {
	var types []entities.DiseaseType
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&types).Error; err != nil {
		return nil, mapError(err, ErrDiseaseTypeNotFound, "list_disease_types")
	}
	return types, nil
}

func (r *diseaseTypeRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entities.DiseaseType{}).Count(&count).Error; err != nil {
		return 0, mapError(err, ErrDiseaseTypeNotFound, "count_disease_types")
	}
	return count, nil
}

func (r *diseaseTypeRepository) CreateBatch(ctx context.Context, names []string) (int, error) {
	types := make([]entities.DiseaseType, 0, len(names))
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			types = append(types, entities.DiseaseType{Name: name})
		}
	}
	if len(types) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		CreateInBatches(types, insertBatchSize)
	if result.Error != nil {
		return 0, mapError(result.Error, ErrDiseaseTypeNotFound, "create_disease_types")
	}
	return int(result.RowsAffected), nil
}
