// Package repository provides context-aware data access for the plant-care schema.
package repository

import (
	stderrors "errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/plantcare-go/plantcare/internal/errors"
)

// Sentinel errors for repository operations.
// Callers match them with errors.Is; the returned errors also carry a
// category so the API layer can map them without string matching.
var (
	ErrUserNotFound         = errors.NewStd("user not found")
	ErrPlantNotFound        = errors.NewStd("plant not found")
	ErrGrowthLogNotFound    = errors.NewStd("growth log not found")
	ErrDiseaseTypeNotFound  = errors.NewStd("disease type not found")
	ErrDiseaseCheckNotFound = errors.NewStd("disease check not found")
	ErrPlantCareNotFound    = errors.NewStd("plant care not found")

	// ErrDuplicateKey indicates a unique constraint violation.
	ErrDuplicateKey = errors.NewStd("duplicate key")

	// ErrInvalidReference indicates a foreign key points at a missing row.
	ErrInvalidReference = errors.NewStd("invalid reference")

	// ErrInvalidInput indicates invalid input parameters.
	ErrInvalidInput = errors.NewStd("invalid input")
)

const component = "datastore"

// mapError translates GORM errors into categorized repository errors.
// notFound is returned for gorm.ErrRecordNotFound.
func mapError(err, notFound error, operation string) error {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, gorm.ErrRecordNotFound):
		return errors.New(notFound).
			Component(component).
			Category(errors.CategoryNotFound).
			Context("operation", operation).
			Build()
	case stderrors.Is(err, gorm.ErrDuplicatedKey):
		return errors.New(fmt.Errorf("%w: %w", ErrDuplicateKey, err)).
			Component(component).
			Category(errors.CategoryConflict).
			Context("operation", operation).
			Build()
	case stderrors.Is(err, gorm.ErrForeignKeyViolated):
		return errors.New(fmt.Errorf("%w: %w", ErrInvalidReference, err)).
			Component(component).
			Category(errors.CategoryValidation).
			Context("operation", operation).
			Build()
	default:
		return errors.New(fmt.Errorf("%s: %w", operation, err)).
			Component(component).
			Category(errors.CategoryDatabase).
			Context("operation", operation).
			Build()
	}
}

// invalidInput wraps ErrInvalidInput as a validation error.
func invalidInput(operation string) error {
	return errors.New(ErrInvalidInput).
		Component(component).
		Category(errors.CategoryValidation).
		Context("operation", operation).
		Build()
}

// ListOptions controls pagination for list queries.
type ListOptions struct {
	Limit  int
	Offset int
}

// apply adds limit/offset to a query. A non-positive limit means no limit.
func (o ListOptions) apply(db *gorm.DB) *gorm.DB {
	if o.Limit > 0 {
		db = db.Limit(o.Limit)
	}
	if o.Offset > 0 {
		db = db.Offset(o.Offset)
	}
	return db
}
