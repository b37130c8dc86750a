package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/plantcare-go/plantcare/internal/datastore/entities"
)

// UserRepository provides access to the users table.
type UserRepository interface {
	// Create inserts a user. Returns ErrDuplicateKey if username or email is taken.
	Create(ctx context.Context, user *entities.User) error

	// GetByID returns ErrUserNotFound if not found.
	GetByID(ctx context.Context, id uint) (*entities.User, error)

	// List returns a page of users ordered by ID and the total count.
	List(ctx context.Context, opts ListOptions) ([]entities.User, int64, error)

	// Update applies the non-nil fields of changes.
	Update(ctx context.Context, id uint, changes UserChanges) (*entities.User, error)

	// Delete removes the user together with their plants and plant records.
	Delete(ctx context.Context, id uint) error
}

// UserChanges lists the mutable user fields. Password must already be hashed.
type UserChanges struct {
	Username *string
	Email    *string
	Password *string
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *entities.User) error {
	return mapError(r.db.WithContext(ctx).Create(user).Error, ErrUserNotFound, "create_user")
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*entities.User, error) {
	var user entities.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, mapError(err, ErrUserNotFound, "get_user")
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, opts ListOptions) ([]entities.User, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&entities.User{}).Count(&total).Error; err != nil {
		return nil, 0, mapError(err, ErrUserNotFound, "count_users")
	}

	var users []entities.User
	err := opts.apply(r.db.WithContext(ctx).Order("id ASC")).Find(&users).Error
	if err != nil {
		return nil, 0, mapError(err, ErrUserNotFound, "list_users")
	}
	return users, total, nil
}

func (r *userRepository) Update(ctx context.Context, id uint, changes UserChanges) (*entities.User, error) {
	updates := map[string]any{}
	if changes.Username != nil {
		updates["username"] = *changes.Username
	}
	if changes.Email != nil {
		updates["email"] = *changes.Email
	}
	if changes.Password != nil {
		updates["password"] = *changes.Password
	}

	var user entities.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&user).Updates(updates).Error
	})
	if err != nil {
		return nil, mapError(err, ErrUserNotFound, "update_user")
	}
	return &user, nil
}

func (r *userRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user entities.User
		if err := tx.First(&user, id).Error; err != nil {
			return err
		}

		var plantIDs []uint
		if err := tx.Model(&entities.Plant{}).Where("user_id = ?", id).Pluck("id", &plantIDs).Error; err != nil {
			return err
		}
		if err := deletePlantsTx(tx, plantIDs); err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	return mapError(err, ErrUserNotFound, "delete_user")
}
