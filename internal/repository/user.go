package repository

import (
	"context"
	"time"

	"shiplog/internal/models"
	"shiplog/internal/observability"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateStreak(ctx context.Context, user *models.User) error
	TopStreaks(ctx context.Context, limit int) ([]models.PublicUser, error)
	ResetBrokenStreaks(ctx context.Context, cutoff time.Time) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	defer observability.TrackQuery("select", "users")()

	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, mapError(err, "User", id)
	}
	return &user, nil
}

// Create inserts user. A racing insert for the same id or email returns ErrDuplicate.
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	defer observability.TrackQuery("insert", "users")()
	return mapError(r.db.WithContext(ctx).Create(user).Error, "User", user.ID)
}

func (r *userRepository) UpdateStreak(ctx context.Context, user *models.User) error {
	defer observability.TrackQuery("update", "users")()

	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{
			"current_streak": user.CurrentStreak,
			"longest_streak": user.LongestStreak,
			"last_post_date": user.LastPostDate,
		})
	if res.Error != nil {
		return mapError(res.Error, "User", user.ID)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", user.ID)
	}
	return nil
}

func (r *userRepository) TopStreaks(ctx context.Context, limit int) ([]models.PublicUser, error) {
	defer observability.TrackQuery("select", "users")()

	var users []models.PublicUser
	err := r.db.WithContext(ctx).
		Select(models.PublicUserColumns).
		Order("current_streak DESC").
		Order("longest_streak DESC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, mapError(err, "User", nil)
	}
	return users, nil
}

// ResetBrokenStreaks zeroes the streak of every user whose last post is before cutoff.
func (r *userRepository) ResetBrokenStreaks(ctx context.Context, cutoff time.Time) (int64, error) {
	defer observability.TrackQuery("update", "users")()

	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("current_streak > ?", 0).
		Where("(last_post_date IS NULL OR last_post_date < ?)", cutoff).
		Update("current_streak", 0)
	if res.Error != nil {
		return 0, mapError(res.Error, "User", nil)
	}
	return res.RowsAffected, nil
}
