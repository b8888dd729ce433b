package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/lettersontherocks/AI-Interview/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository struct {
	DB *gorm.DB
}

func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	return r.DB.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	return r.first(ctx, "user_id = ?", userID)
}

func (r *UserRepository) GetUserByOpenID(ctx context.Context, openID string) (*models.User, error) {
	return r.first(ctx, "open_id = ?", openID)
}

func (r *UserRepository) first(ctx context.Context, query string, arg string) (*models.User, error) {
	var user models.User
	err := r.DB.WithContext(ctx).First(&user, query, arg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile sets the non-empty nickname and avatar values.
func (r *UserRepository) UpdateProfile(ctx context.Context, userID, nickname, avatar string) (*models.User, error) {
	user, err := r.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if nickname != "" {
		updates["nickname"] = nickname
	}
	if avatar != "" {
		updates["avatar"] = avatar
	}
	if len(updates) == 0 {
		return user, nil
	}
	if err := r.DB.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}
	return user, nil
}
