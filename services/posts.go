package services

import (
	"bytes"
	"context"
	"io"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

// ImageUpload is an image attached to a post form.
type ImageUpload struct {
	Name string
	Body io.Reader
}

// PostInput is the validated content of the post form.
type PostInput struct {
	Text    string
	GroupID *uint
	Image   *ImageUpload
}

// PostService creates, edits and deletes posts.
type PostService struct {
	db    *gorm.DB
	files utils.FileStorage
}

func NewPostService(db *gorm.DB, files utils.FileStorage) *PostService {
	return &PostService{db: db, files: files}
}

// Get loads a post with author and group.
func (s *PostService) Get(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).Preload("Author").Preload("Group").First(&post, id).Error; err != nil {
		return nil, notFound(err, "post")
	}
	return &post, nil
}

// Create publishes a new post by authorID.
func (s *PostService) Create(ctx context.Context, authorID uint, in PostInput) (*models.Post, error) {
	post := models.Post{AuthorID: authorID}
	if err := s.apply(ctx, &post, in); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&post).Error; err != nil {
		_ = s.files.Delete(post.Image)
		return nil, errors.Wrap(err, "create post")
	}
	return &post, nil
}

// Update edits a post. Only its author may do so.
func (s *PostService) Update(ctx context.Context, postID, editorID uint, in PostInput) (*models.Post, error) {
	post, err := s.owned(ctx, postID, editorID)
	if err != nil {
		return nil, err
	}
	oldImage := post.Image
	if err := s.apply(ctx, post, in); err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Model(post).Omit(clause.Associations).
		Select("text", "group_id", "image", "updated_at").
		Updates(post).Error
	if err != nil {
		if post.Image != oldImage {
			_ = s.files.Delete(post.Image)
		}
		return nil, errors.Wrap(err, "update post")
	}
	if oldImage != post.Image {
		if err := s.files.Delete(oldImage); err != nil {
			utils.Sugar.Warnw("remove replaced image failed", "image", oldImage, "err", err)
		}
	}
	return post, nil
}

// Delete removes a post and its comments. Only its author may do so.
func (s *PostService) Delete(ctx context.Context, postID, editorID uint) error {
	post, err := s.owned(ctx, postID, editorID)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return errors.Wrap(err, "delete comments")
		}
		return errors.Wrap(tx.Delete(&models.Post{}, post.ID).Error, "delete post")
	})
	if err != nil {
		return err
	}
	if err := s.files.Delete(post.Image); err != nil {
		utils.Sugar.Warnw("remove post image failed", "image", post.Image, "err", err)
	}
	return nil
}

func (s *PostService) owned(ctx context.Context, postID, editorID uint) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).First(&post, postID).Error; err != nil {
		return nil, notFound(err, "post")
	}
	if post.AuthorID != editorID {
		return nil, ErrForbidden
	}
	return &post, nil
}

// apply validates in and copies it onto post, storing a new image if one was uploaded.
func (s *PostService) apply(ctx context.Context, post *models.Post, in PostInput) error {
	text := utils.CleanText(in.Text)
	if text == "" {
		return invalid("text", "This field is required.")
	}
	if in.GroupID != nil {
		var n int64
		if err := s.db.WithContext(ctx).Model(&models.Group{}).Where("id = ?", *in.GroupID).Count(&n).Error; err != nil {
			return errors.Wrap(err, "check group")
		}
		if n == 0 {
			return invalid("group", "Select a valid choice. That choice is not one of the available choices.")
		}
	}
	if in.Image != nil {
		b, format, err := utils.ReadImage(in.Image.Body)
		if err != nil {
			return invalid("image", err.Error())
		}
		name, err := s.files.Save(utils.ImageNamespace, utils.ImageFileName(in.Image.Name, format), bytes.NewReader(b))
		if err != nil {
			return errors.Wrap(err, "store image")
		}
		post.Image = name
	}
	post.Text = text
	post.GroupID = in.GroupID
	return nil
}
