package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// UserService handles accounts: registration, credentials and removal.
type UserService struct {
	db    *gorm.DB
	files utils.FileStorage
}

func NewUserService(db *gorm.DB, files utils.FileStorage) *UserService {
	return &UserService{db: db, files: files}
}

// SignupInput is the content of the sign-up form.
type SignupInput struct {
	FullName string
	Username string
	Email    string
	Password string
}

// Register creates a local account with a bcrypt password hash.
func (s *UserService) Register(ctx context.Context, in SignupInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || len(username) > 150 || !usernamePattern.MatchString(username) {
		return nil, invalid("username", "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	}
	hash, err := utils.HashPassword(in.Password)
	if errors.Is(err, utils.ErrPasswordTooShort) {
		return nil, invalid("password", fmt.Sprintf("This password is too short. It must contain at least %d characters.", utils.MinPasswordLength))
	}
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	user := models.User{
		Username:     username,
		FullName:     strings.TrimSpace(in.FullName),
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: hash,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := usernameTaken(tx, username)
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicateUsername
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateUsername) || errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateUsername
		}
		return nil, errors.Wrap(err, "create user")
	}
	return &user, nil
}

// Authenticate checks a username/password pair.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "load user")
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// UpsertOAuth returns the account linked to provider/providerID, creating it on first sign-in.
// The login is used as username, suffixed when already taken by another account.
func (s *UserService) UpsertOAuth(ctx context.Context, provider, providerID, login, name, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("provider = ? AND provider_id = ?", provider, providerID).First(&user).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		username := login
		for i := 1; ; i++ {
			taken, err := usernameTaken(tx, username)
			if err != nil {
				return err
			}
			if !taken {
				break
			}
			username = fmt.Sprintf("%s-%s%d", login, provider, i)
		}
		user = models.User{
			Username:   username,
			FullName:   name,
			Email:      email,
			Provider:   provider,
			ProviderID: providerID,
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, errors.Wrap(err, "upsert oauth user")
	}
	return &user, nil
}

// ByUsername looks a user up by username.
func (s *UserService) ByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound(err, "user "+username)
	}
	return &user, nil
}

// Delete removes a user with everything that depends on it: their posts and
// the comments on them, their own comments and every follow edge touching them.
func (s *UserService) Delete(ctx context.Context, username string) error {
	var images []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("username = ?", username).First(&user).Error; err != nil {
			return notFound(err, "user "+username)
		}

		var posts []models.Post
		if err := tx.Select("id", "image").Where("author_id = ?", user.ID).Find(&posts).Error; err != nil {
			return errors.Wrap(err, "list posts")
		}
		postIDs := lo.Map(posts, func(p models.Post, _ int) uint { return p.ID })
		images = lo.Filter(lo.Map(posts, func(p models.Post, _ int) string { return p.Image }),
			func(img string, _ int) bool { return img != "" })

		comments := tx.Where("author_id = ?", user.ID)
		if len(postIDs) > 0 {
			comments = comments.Or("post_id IN ?", postIDs)
		}
		steps := []struct {
			what string
			run  func() error
		}{
			{"comments", func() error { return comments.Delete(&models.Comment{}).Error }},
			{"posts", func() error { return tx.Where("author_id = ?", user.ID).Delete(&models.Post{}).Error }},
			{"follows", func() error {
				return tx.Where("user_id = ? OR author_id = ?", user.ID, user.ID).Delete(&models.Follow{}).Error
			}},
			{"user", func() error { return tx.Delete(&user).Error }},
		}
		for _, step := range steps {
			if err := step.run(); err != nil {
				return errors.Wrapf(err, "delete %s", step.what)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, img := range images {
		if err := s.files.Delete(img); err != nil {
			utils.Sugar.Warnw("remove post image failed", "image", img, "err", err)
		}
	}
	return nil
}

func usernameTaken(tx *gorm.DB, username string) (bool, error) {
	var n int64
	if err := tx.Model(&models.User{}).Where("username = ?", username).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}
