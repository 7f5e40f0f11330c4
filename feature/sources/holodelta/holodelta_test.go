package holodelta

import (
	"context"
	"path/filepath"
	"testing"

	"cardsync/core/catalog"
	"cardsync/core/database"
	"cardsync/core/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: "sqlite", Name: filepath.Join(t.TempDir(), "holodelta.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func seed(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.AutoMigrate(&Row{}))
	require.NoError(t, db.Create([]Row{
		{CardNumber: "hSD01-003", CardType: "ホロメン", Name: "AZKi", Text: "コラボエフェクト"},
		{CardNumber: "hSD01-001", CardType: "推しホロメン", Name: "ときのそら"},
		{CardNumber: "hBP01-045", CardType: "サポート・イベント", Name: "イベント"},
		{CardNumber: "", Name: "blank"},
	}).Error)
}

func TestCollect(t *testing.T) {
	db := setupDB(t)
	seed(t, db)

	records, err := New(db, nil).Collect(context.Background(), catalog.Filter{})
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "hBP01-045", records[0].Number)
	assert.Equal(t, "event", records[0].CardType)
	assert.Equal(t, "hSD01-001", records[1].Number)
	assert.Equal(t, reconcile.AnyVariant, records[1].Variant)
	assert.Equal(t, "oshi", records[1].CardType)
	assert.Equal(t, "コラボエフェクト", records[2].Text)
}

func TestCollect_Filter(t *testing.T) {
	db := setupDB(t)
	seed(t, db)

	records, err := New(db, nil).Collect(context.Background(), catalog.Filter{Expansion: "hSD01"})
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = New(db, nil).Collect(context.Background(), catalog.Filter{Number: "hSD01-003"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "AZKi", records[0].Name)
}

func TestCollect_SchemaMismatch(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, db.Exec("CREATE TABLE cards (card_number TEXT, name TEXT)").Error)

	_, err := New(db, nil).Collect(context.Background(), catalog.Filter{})
	assert.ErrorIs(t, err, reconcile.ErrSourceUnavailable)
	assert.ErrorContains(t, err, "card_type")
}

func TestCollect_NoDatabase(t *testing.T) {
	_, err := New(nil, nil).Collect(context.Background(), catalog.Filter{})
	assert.ErrorIs(t, err, reconcile.ErrSourceUnavailable)
}
