package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habit-tracker/model"
)

func newTestDB(t *testing.T) (*DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "habits.db")
	db, err := New(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, path
}

func TestLoadBeforeSave(t *testing.T) {
	db, _ := newTestDB(t)
	_, err := db.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoRecord)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	r := &model.Record{
		Habits: []model.Habit{
			{ID: "1", Name: "练琴", Target: "哈农练习第1条", Color: "#448AFF"},
			{ID: "2", Name: "健身", Target: "", Color: "#FF5252"},
		},
		History: model.History{
			"2026-10-13": {"健身", "练琴"},
			"2026-10-14": {"练琴"},
			"2026-10-12": {},
		},
	}
	require.NoError(t, db.Save(ctx, r))

	got, err := db.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestSaveReplacesEverything(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Save(ctx, model.DefaultRecord()))
	empty := &model.Record{Habits: []model.Habit{}, History: model.History{}}
	require.NoError(t, db.Save(ctx, empty))

	got, err := db.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, empty, got)
}

func TestReopenKeepsData(t *testing.T) {
	db, path := newTestDB(t)
	ctx := context.Background()
	want := model.DefaultRecord()
	require.NoError(t, db.Save(ctx, want))
	require.NoError(t, db.Close())

	reopened, err := New(path, nil)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestMigratesLegacyHabitsTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	conn, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = conn.Exec(`
		CREATE TABLE habits (position INTEGER PRIMARY KEY, name TEXT NOT NULL, target TEXT NOT NULL DEFAULT '');
		INSERT INTO habits (position, name, target) VALUES (0, '喝水', '8杯');
		CREATE TABLE meta (key TEXT PRIMARY KEY, value TEXT NOT NULL);
		INSERT INTO meta (key, value) VALUES ('saved_at', 'legacy');
	`)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	db, err := New(path, nil)
	require.NoError(t, err)
	defer db.Close()

	got, err := db.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got.Habits, 1)
	assert.Equal(t, "喝水", got.Habits[0].Name)
	// 颜色和ID由 store 在加载时补全
	assert.Empty(t, got.Habits[0].Color)
	assert.Empty(t, got.Habits[0].ID)
}

func TestSaveCanceledContext(t *testing.T) {
	db, _ := newTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, db.Save(ctx, model.DefaultRecord()))
	_, err := db.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoRecord)
}

func TestString(t *testing.T) {
	db, path := newTestDB(t)
	assert.Equal(t, "sqlite:"+path, db.String())
}
