package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cppla/yatube/models"
)

func TestCreateGroup(t *testing.T) {
	f := newFixture(t)
	groups := NewGroupService(f.db)

	g, err := groups.Create(f.ctx, "Cats", "cats", "all about cats")
	require.NoError(t, err)
	assert.Equal(t, "Cats", g.String())

	_, err = groups.Create(f.ctx, "Other cats", "cats", "")
	assert.ErrorIs(t, err, ErrDuplicateSlug)

	_, err = groups.Create(f.ctx, "Bad", "no spaces allowed", "")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = groups.Create(f.ctx, "", "empty-title", "")
	assert.ErrorIs(t, err, ErrValidation)

	list, err := groups.List(f.ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	found, err := groups.BySlug(f.ctx, "cats")
	require.NoError(t, err)
	assert.Equal(t, g.ID, found.ID)
}

func TestCreateGroupUniqueIndexRace(t *testing.T) {
	f := newFixture(t)
	groups := NewGroupService(f.db)

	// a concurrent create lands between the slug check and the insert
	f.db.Callback().Create().Before("gorm:create").Register("test:race", func(tx *gorm.DB) {
		if g, ok := tx.Statement.Dest.(*models.Group); ok && g.Slug == "dogs" {
			tx.Session(&gorm.Session{NewDB: true, SkipHooks: true}).Exec(`INSERT INTO "groups" (title, slug, description) VALUES (?, ?, ?)`, "Dogs", "dogs", "")
		}
	})
	t.Cleanup(func() { _ = f.db.Callback().Create().Remove("test:race") })

	_, err := groups.Create(f.ctx, "Dogs too", "dogs", "")
	assert.ErrorIs(t, err, ErrDuplicateSlug)
}

func TestDeleteGroupKeepsPosts(t *testing.T) {
	f := newFixture(t)
	leo := f.user(t, "leo")
	cats := f.group(t, "cats")
	post := f.post(t, leo, "survivor", cats)
	groups := NewGroupService(f.db)

	require.NoError(t, groups.Delete(f.ctx, "cats"))
	_, err := groups.BySlug(f.ctx, "cats")
	assert.ErrorIs(t, err, ErrNotFound)

	stored, err := NewPostService(f.db, f.files).Get(f.ctx, post.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.GroupID)
	assert.Nil(t, stored.Group)

	assert.ErrorIs(t, groups.Delete(f.ctx, "cats"), ErrNotFound)
}
