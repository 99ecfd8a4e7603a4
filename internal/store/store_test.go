package store_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/einvoice-engine/internal/model"
	"github.com/rezonia/einvoice-engine/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_PutAndGet(t *testing.T) {
	s := openStore(t)

	record := &store.ConversionRecord{
		ID:         "conv-1",
		SourceFile: "invoice.pdf",
		Status:     store.StatusPending,
		Format:     model.FormatXRechnungUBL,
		RowVersion: 99, // ignored: Put resets to 1
	}
	require.NoError(t, s.Put(store.TableConversions, record))

	got, err := s.Get(store.TableConversions, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "conv-1", got.ID)
	assert.Equal(t, store.StatusPending, got.Status)
	assert.Equal(t, int64(1), got.RowVersion)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestStore_GetMissing(t *testing.T) {
	s := openStore(t)

	_, err := s.Get(store.TableConversions, "nope")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "record not found")
}

func TestStore_List(t *testing.T) {
	s := openStore(t)

	require.NoError(t, s.Put(store.TableConversions, &store.ConversionRecord{ID: "a", Status: store.StatusPending}))
	require.NoError(t, s.Put(store.TableConversions, &store.ConversionRecord{ID: "b", Status: store.StatusCompleted}))

	records, err := s.List(store.TableConversions)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestStore_ListEmpty(t *testing.T) {
	s := openStore(t)

	records, err := s.List(store.TableConversions)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStore_Delete(t *testing.T) {
	s := openStore(t)

	require.NoError(t, s.Put(store.TableConversions, &store.ConversionRecord{ID: "conv-1", Status: store.StatusPending}))
	require.NoError(t, s.Delete(store.TableConversions, "conv-1"))

	_, err := s.Get(store.TableConversions, "conv-1")
	assert.Error(t, err)

	assert.NoError(t, s.Delete(store.TableConversions, "nonexistent"))
}

func TestStore_UpdateIncrementsVersion(t *testing.T) {
	s := openStore(t)

	require.NoError(t, s.Put(store.TableConversions, &store.ConversionRecord{ID: "conv-1", Status: store.StatusPending}))

	err := s.Update(store.TableConversions, "conv-1", 1, func(r *store.ConversionRecord) error {
		r.Status = store.StatusCompleted
		r.XMLContent = "<Invoice/>"
		return nil
	})
	require.NoError(t, err)

	got, err := s.Get(store.TableConversions, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, got.Status)
	assert.Equal(t, "<Invoice/>", got.XMLContent)
	assert.Equal(t, int64(2), got.RowVersion)
}

func TestStore_UpdateVersionConflict(t *testing.T) {
	s := openStore(t)

	require.NoError(t, s.Put(store.TableConversions, &store.ConversionRecord{ID: "conv-1", Status: store.StatusPending}))

	// Another writer bumps the version to 2.
	require.NoError(t, s.Update(store.TableConversions, "conv-1", 1, func(r *store.ConversionRecord) error {
		r.Status = store.StatusProcessing
		return nil
	}))

	// Stale writer still expects version 1.
	err := s.Update(store.TableConversions, "conv-1", 1, func(r *store.ConversionRecord) error {
		r.Status = store.StatusFailed
		return nil
	})

	require.Error(t, err)
	var lockErr *model.OptimisticLockError
	require.True(t, errors.As(err, &lockErr))
	assert.Equal(t, store.TableConversions, lockErr.Table)
	assert.Equal(t, "conv-1", lockErr.ID)
	assert.Equal(t, int64(1), lockErr.ExpectedVersion)

	// The conflicting write must not have touched the record.
	got, err := s.Get(store.TableConversions, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, store.StatusProcessing, got.Status)
	assert.Equal(t, int64(2), got.RowVersion)
}

func TestStore_UpdateIgnoresCallerVersionWrites(t *testing.T) {
	s := openStore(t)

	require.NoError(t, s.Put(store.TableConversions, &store.ConversionRecord{ID: "conv-1", Status: store.StatusPending}))

	err := s.Update(store.TableConversions, "conv-1", 1, func(r *store.ConversionRecord) error {
		r.RowVersion = 42
		return nil
	})
	require.NoError(t, err)

	got, err := s.Get(store.TableConversions, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.RowVersion)
}

func TestStore_UpdateMutateErrorAborts(t *testing.T) {
	s := openStore(t)

	require.NoError(t, s.Put(store.TableConversions, &store.ConversionRecord{ID: "conv-1", Status: store.StatusPending}))

	boom := errors.New("mutate failed")
	err := s.Update(store.TableConversions, "conv-1", 1, func(r *store.ConversionRecord) error {
		r.Status = store.StatusFailed
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Get(store.TableConversions, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, store.StatusPending, got.Status)
	assert.Equal(t, int64(1), got.RowVersion)
}

func TestStore_UpdateMissingRecord(t *testing.T) {
	s := openStore(t)

	err := s.Update(store.TableConversions, "ghost", 1, func(r *store.ConversionRecord) error {
		return nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "record not found")
}
