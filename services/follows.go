package services

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/yatube/models"
)

// FollowService manages subscription edges between users and authors.
type FollowService struct {
	db *gorm.DB
}

func NewFollowService(db *gorm.DB) *FollowService {
	return &FollowService{db: db}
}

// Follow subscribes userID to the author named username. Following twice is a no-op.
func (s *FollowService) Follow(ctx context.Context, userID uint, username string) error {
	author, err := s.author(ctx, username)
	if err != nil {
		return err
	}
	if author.ID == userID {
		return ErrSelfFollow
	}
	// the unique (user_id, author_id) index turns a repeated follow into a no-op
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit(clause.Associations).
		Create(&models.Follow{UserID: userID, AuthorID: author.ID}).Error
	return errors.Wrap(err, "create follow")
}

// Unfollow removes the edge from userID to username if it exists.
func (s *FollowService) Unfollow(ctx context.Context, userID uint, username string) error {
	author, err := s.author(ctx, username)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", userID, author.ID).
		Delete(&models.Follow{}).Error
	return errors.Wrap(err, "delete follow")
}

// IsFollowing reports whether userID follows authorID.
func (s *FollowService) IsFollowing(ctx context.Context, userID, authorID uint) (bool, error) {
	return isFollowing(ctx, s.db, userID, authorID)
}

func (s *FollowService) author(ctx context.Context, username string) (*models.User, error) {
	var author models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&author).Error; err != nil {
		return nil, notFound(err, "author "+username)
	}
	return &author, nil
}

func isFollowing(ctx context.Context, db *gorm.DB, userID, authorID uint) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&models.Follow{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&n).Error
	if err != nil {
		return false, errors.Wrap(err, "check follow")
	}
	return n > 0, nil
}
