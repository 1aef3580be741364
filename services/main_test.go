package services

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

var smallGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x02, 0x00,
	0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xFF, 0xFF, 0xFF, 0x21, 0xF9, 0x04, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x2C, 0x00, 0x00, 0x00, 0x00,
	0x02, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x0C,
	0x0A, 0x00, 0x3B,
}

type fixture struct {
	ctx   context.Context
	db    *gorm.DB
	files *utils.LocalStorage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	config.Set(config.AppConfig{JWTSecret: "test-secret", LogLevel: "silent"})
	db, err := config.OpenDatabase(config.AppConfig{
		DBDriver:    "sqlite",
		DatabaseURI: filepath.Join(t.TempDir(), "yatube.sqlite3"),
		LogLevel:    "silent",
	})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db, models.All()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return &fixture{
		ctx:   context.Background(),
		db:    db,
		files: utils.NewLocalStorage(t.TempDir(), "/media/"),
	}
}

func (f *fixture) user(t *testing.T, username string) *models.User {
	t.Helper()
	u, err := NewUserService(f.db, f.files).Register(f.ctx, SignupInput{Username: username, Password: "s3cret-pass"})
	require.NoError(t, err)
	return u
}

func (f *fixture) group(t *testing.T, slug string) *models.Group {
	t.Helper()
	g, err := NewGroupService(f.db).Create(f.ctx, "Group "+slug, slug, "about "+slug)
	require.NoError(t, err)
	return g
}

func (f *fixture) post(t *testing.T, author *models.User, text string, group *models.Group) *models.Post {
	t.Helper()
	in := PostInput{Text: text}
	if group != nil {
		in.GroupID = &group.ID
	}
	p, err := NewPostService(f.db, f.files).Create(f.ctx, author.ID, in)
	require.NoError(t, err)
	return p
}

func gifUpload(name string) *ImageUpload {
	return &ImageUpload{Name: name, Body: bytes.NewReader(smallGIF)}
}
