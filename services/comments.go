package services

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

// CommentService attaches comments to posts.
type CommentService struct {
	db *gorm.DB
}

func NewCommentService(db *gorm.DB) *CommentService {
	return &CommentService{db: db}
}

// AddComment creates a comment by authorID on postID.
func (s *CommentService) AddComment(ctx context.Context, postID, authorID uint, text string) (*models.Comment, error) {
	text = utils.CleanText(text)
	if text == "" {
		return nil, invalid("text", "This field is required.")
	}

	db := s.db.WithContext(ctx)
	var post models.Post
	if err := db.Select("id").First(&post, postID).Error; err != nil {
		return nil, notFound(err, "post")
	}

	comment := models.Comment{PostID: post.ID, AuthorID: authorID, Text: text}
	if err := db.Omit(clause.Associations).Create(&comment).Error; err != nil {
		return nil, errors.Wrap(err, "create comment")
	}
	return &comment, nil
}

// Count returns the number of comments on postID.
func (s *CommentService) Count(ctx context.Context, postID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Comment{}).Where("post_id = ?", postID).Count(&n).Error
	return n, errors.Wrap(err, "count comments")
}
