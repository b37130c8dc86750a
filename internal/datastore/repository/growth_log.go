package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/plantcare-go/plantcare/internal/datastore/entities"
)

// GrowthLogRepository provides access to the growth_logs table.
type GrowthLogRepository interface {
	Create(ctx context.Context, log *entities.GrowthLog) error

	// CreateBatch inserts logs in batches and returns the number inserted.
	CreateBatch(ctx context.Context, logs []entities.GrowthLog) (int, error)

	// GetByID returns ErrGrowthLogNotFound if not found.
	GetByID(ctx context.Context, id uint) (*entities.GrowthLog, error)

	List(ctx context.Context, opts ListOptions) ([]entities.GrowthLog, int64, error)

	// ListByPlant returns the plant's logs, newest first.
	ListByPlant(ctx context.Context, plantID uint, opts ListOptions) ([]entities.GrowthLog, int64, error)

	// UpdateMilestone overwrites the predicted milestone.
	UpdateMilestone(ctx context.Context, id uint, milestone *int) (*entities.GrowthLog, error)

	Delete(ctx context.Context, id uint) error
}

const insertBatchSize = 100

type growthLogRepository struct {
	db *gorm.DB
}

// NewGrowthLogRepository creates a new GrowthLogRepository.
func NewGrowthLogRepository(db *gorm.DB) GrowthLogRepository {
	return &growthLogRepository{db: db}
}

func (r *growthLogRepository) Create(ctx context.Context, log *entities.GrowthLog) error {
	return mapError(r.db.WithContext(ctx).Create(log).Error, ErrGrowthLogNotFound, "create_growth_log")
}

func (r *growthLogRepository) CreateBatch(ctx context.Context, logs []entities.GrowthLog) (int, error) {
	if len(logs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).CreateInBatches(logs, insertBatchSize)
	if result.Error != nil {
		return 0, mapError(result.Error, ErrGrowthLogNotFound, "create_growth_logs")
	}
	return int(result.RowsAffected), nil
}

func (r *growthLogRepository) GetByID(ctx context.Context, id uint) (*entities.GrowthLog, error) {
	var log entities.GrowthLog
	if err := r.db.WithContext(ctx).First(&log, id).Error; err != nil {
		return nil, mapError(err, ErrGrowthLogNotFound, "get_growth_log")
	}
	return &log, nil
}

func (r *growthLogRepository) List(ctx context.Context, opts ListOptions) ([]entities.GrowthLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&entities.GrowthLog{})
	return r.list(query, "id ASC", opts)
}

func (r *growthLogRepository) ListByPlant(ctx context.Context, plantID uint, opts ListOptions) ([]entities.GrowthLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&entities.GrowthLog{}).Where("plant_id = ?", plantID)
	return r.list(query, "date DESC, id DESC", opts)
}

func (r *growthLogRepository) list(query *gorm.DB, order string, opts ListOptions) ([]entities.GrowthLog, int64, error) {
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, mapError(err, ErrGrowthLogNotFound, "count_growth_logs")
	}

	var logs []entities.GrowthLog
	if err := opts.apply(query.Order(order)).Find(&logs).Error; err != nil {
		return nil, 0, mapError(err, ErrGrowthLogNotFound, "list_growth_logs")
	}
	return logs, total, nil
}

func (r *growthLogRepository) UpdateMilestone(ctx context.Context, id uint, milestone *int) (*entities.GrowthLog, error) {
	var log entities.GrowthLog
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&log, id).Error; err != nil {
			return err
		}
		log.PredictedMilestone = milestone
		return tx.Model(&log).Update("predicted_milestone", milestone).Error
	})
	if err != nil {
		return nil, mapError(err, ErrGrowthLogNotFound, "update_growth_log")
	}
	return &log, nil
}

func (r *growthLogRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var log entities.GrowthLog
		if err := tx.First(&log, id).Error; err != nil {
			return err
		}
		if err := tx.Model(&entities.PlantCare{}).Where("growth_log_id = ?", id).
			Update("growth_log_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&log).Error
	})
	return mapError(err, ErrGrowthLogNotFound, "delete_growth_log")
}
