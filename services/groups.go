package services

import (
	"context"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/cppla/yatube/models"
)

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

// GroupService manages topical groups.
type GroupService struct {
	db *gorm.DB
}

func NewGroupService(db *gorm.DB) *GroupService {
	return &GroupService{db: db}
}

// Create adds a group. The slug must be unique across groups.
func (s *GroupService) Create(ctx context.Context, title, slug, description string) (*models.Group, error) {
	title = strings.TrimSpace(title)
	slug = strings.TrimSpace(slug)
	switch {
	case title == "":
		return nil, invalid("title", "This field is required.")
	case len([]rune(title)) > 200:
		return nil, invalid("title", "Ensure this value has at most 200 characters.")
	case !slugPattern.MatchString(slug) || len(slug) > 50:
		return nil, invalid("slug", "Enter a valid slug consisting of letters, numbers, underscores or hyphens.")
	}

	var group *models.Group
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Group{}).Where("slug = ?", slug).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicateSlug
		}
		group = &models.Group{Title: title, Slug: slug, Description: strings.TrimSpace(description)}
		return tx.Create(group).Error
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateSlug) || errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateSlug
		}
		return nil, errors.Wrap(err, "create group")
	}
	return group, nil
}

// BySlug looks a group up by slug.
func (s *GroupService) BySlug(ctx context.Context, slug string) (*models.Group, error) {
	var group models.Group
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&group).Error; err != nil {
		return nil, notFound(err, "group "+slug)
	}
	return &group, nil
}

// List returns all groups ordered by title.
func (s *GroupService) List(ctx context.Context) ([]models.Group, error) {
	var groups []models.Group
	err := s.db.WithContext(ctx).Order("title ASC, id ASC").Find(&groups).Error
	return groups, errors.Wrap(err, "list groups")
}

// Delete removes the group; its posts survive without a group.
func (s *GroupService) Delete(ctx context.Context, slug string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var group models.Group
		if err := tx.Where("slug = ?", slug).First(&group).Error; err != nil {
			return notFound(err, "group "+slug)
		}
		if err := tx.Model(&models.Post{}).Where("group_id = ?", group.ID).
			Update("group_id", nil).Error; err != nil {
			return errors.Wrap(err, "detach posts")
		}
		return errors.Wrap(tx.Delete(&group).Error, "delete group")
	})
}
