package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habit-tracker/store"
)

func TestStoreWithSQLite(t *testing.T) {
	db, path := newTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, time.October, 14, 8, 0, 0, 0, time.Local)

	s := store.New(db, store.WithClock(func() time.Time { return now }))
	r := s.Load(ctx)
	require.Len(t, r.Habits, 3)

	_, err := s.AddHabit(ctx, "冥想", "")
	require.NoError(t, err)
	_, err = s.MarkDone(ctx, "冥想")
	require.NoError(t, err)
	require.NoError(t, s.DeleteHabit(ctx, "健身"))
	want := s.Record()
	require.NoError(t, db.Close())

	reopened, err := New(path, nil)
	require.NoError(t, err)
	defer reopened.Close()

	got := store.New(reopened).Load(ctx)
	assert.Equal(t, want, got)
	assert.Equal(t, []string{"冥想"}, got.History["2026-10-14"])
}
