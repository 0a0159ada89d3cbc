package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osidra/reclaim/internal/domain/entities"
	"github.com/osidra/reclaim/internal/domain/ports"
	"github.com/osidra/reclaim/internal/infrastructure/config"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(config.SQLiteConfig{
		Path: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	require.NoError(t, repo.EnsureSchema(context.Background()))
	return repo
}

func TestNewRepository_RequiresPath(t *testing.T) {
	_, err := NewRepository(config.SQLiteConfig{})
	assert.Error(t, err)
}

func TestRecordLifecycle(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	rec := &entities.Record{
		Ref:        entities.RecordRef{Type: "employee", Identity: "e1"},
		Attributes: map[string]any{"id": "e1", "name": "Ada"},
	}
	require.NoError(t, repo.InsertRecordWithIdentity(ctx, rec))

	got, err := repo.GetRecord(ctx, "employee", "e1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ada", got.Attributes["name"])

	require.NoError(t, repo.DeleteRecord(ctx, "employee", "e1"))

	got, err = repo.GetRecord(ctx, "employee", "e1")
	require.NoError(t, err)
	assert.Nil(t, got)

	err = repo.DeleteRecord(ctx, "employee", "e1")
	assert.ErrorIs(t, err, entities.ErrRecordNotFound)
}

func TestInsertRecord_AssignsSequentialIdentities(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first, err := repo.InsertRecord(ctx, &entities.Record{
		Ref:        entities.RecordRef{Type: "employee"},
		Attributes: map[string]any{"name": "Ada"},
	})
	require.NoError(t, err)
	assert.Equal(t, "1", first)

	second, err := repo.InsertRecord(ctx, &entities.Record{
		Ref:        entities.RecordRef{Type: "employee"},
		Attributes: map[string]any{"name": "Grace"},
	})
	require.NoError(t, err)
	assert.Equal(t, "2", second)

	// Sequences are independent per type.
	other, err := repo.InsertRecord(ctx, &entities.Record{
		Ref:        entities.RecordRef{Type: "department"},
		Attributes: map[string]any{"name": "Research"},
	})
	require.NoError(t, err)
	assert.Equal(t, "1", other)
}

func TestInsertRecordWithIdentity_BumpsSequence(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.InsertRecordWithIdentity(ctx, &entities.Record{
		Ref:        entities.RecordRef{Type: "employee", Identity: "7"},
		Attributes: map[string]any{"name": "Ada"},
	}))

	// The next auto-assignment must not collide with the forced identity.
	next, err := repo.InsertRecord(ctx, &entities.Record{
		Ref:        entities.RecordRef{Type: "employee"},
		Attributes: map[string]any{"name": "Grace"},
	})
	require.NoError(t, err)
	assert.Equal(t, "8", next)
}

func TestInsertRecordWithIdentity_RejectsDuplicate(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	rec := &entities.Record{
		Ref:        entities.RecordRef{Type: "employee", Identity: "e1"},
		Attributes: map[string]any{"name": "Ada"},
	}
	require.NoError(t, repo.InsertRecordWithIdentity(ctx, rec))
	assert.Error(t, repo.InsertRecordWithIdentity(ctx, rec))
}

func TestFindReferencing(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.InsertRecordWithIdentity(ctx, &entities.Record{
		Ref:        entities.RecordRef{Type: "employee", Identity: "e1"},
		Attributes: map[string]any{"department_id": "d1"},
	}))
	require.NoError(t, repo.InsertRecordWithIdentity(ctx, &entities.Record{
		Ref:        entities.RecordRef{Type: "employee", Identity: "e2"},
		Attributes: map[string]any{"department_id": "d1"},
	}))
	require.NoError(t, repo.InsertRecordWithIdentity(ctx, &entities.Record{
		Ref:        entities.RecordRef{Type: "employee", Identity: "e3"},
		Attributes: map[string]any{"department_id": "d2"},
	}))

	refs, err := repo.FindReferencing(ctx, "employee", "department_id", "d1")
	require.NoError(t, err)
	assert.Equal(t, []entities.RecordRef{
		{Type: "employee", Identity: "e1"},
		{Type: "employee", Identity: "e2"},
	}, refs)

	refs, err = repo.FindReferencing(ctx, "employee", "department_id", "d9")
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestFindReferencing_NumericIdentity(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	// Numeric foreign keys are matched by their text rendering.
	require.NoError(t, repo.InsertRecordWithIdentity(ctx, &entities.Record{
		Ref:        entities.RecordRef{Type: "grant", Identity: "g1"},
		Attributes: map[string]any{"employee_id": 42},
	}))

	refs, err := repo.FindReferencing(ctx, "grant", "employee_id", "42")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "g1", refs[0].Identity)
}

func TestSetRecordField_NilClears(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	ref := entities.RecordRef{Type: "notice", Identity: "n1"}
	require.NoError(t, repo.InsertRecordWithIdentity(ctx, &entities.Record{
		Ref:        ref,
		Attributes: map[string]any{"text": "kudos", "employee_id": "e1"},
	}))

	require.NoError(t, repo.SetRecordField(ctx, ref, "employee_id", nil))

	got, err := repo.GetRecord(ctx, "notice", "n1")
	require.NoError(t, err)
	assert.Nil(t, got.Attributes["employee_id"])
	assert.Equal(t, "kudos", got.Attributes["text"])

	err = repo.SetRecordField(ctx, entities.RecordRef{Type: "notice", Identity: "missing"}, "text", nil)
	assert.ErrorIs(t, err, entities.ErrRecordNotFound)
}

func TestSnapshotLifecycle(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	snap := &entities.Snapshot{
		Key:        "snap-1",
		EntityType: "employee",
		Identity:   "e1",
		Attributes: map[string]any{"id": "e1", "name": "Ada"},
		CapturedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.PutSnapshot(ctx, snap))

	got, err := repo.GetSnapshot(ctx, "snap-1")
	require.NoError(t, err)
	assert.Equal(t, "employee", got.EntityType)
	assert.Equal(t, "e1", got.Identity)
	assert.Equal(t, "Ada", got.Attributes["name"])
	assert.WithinDuration(t, snap.CapturedAt, got.CapturedAt, time.Second)

	require.NoError(t, repo.DeleteSnapshot(ctx, "snap-1"))
	_, err = repo.GetSnapshot(ctx, "snap-1")
	assert.ErrorIs(t, err, entities.ErrSnapshotNotFound)

	// Deleting again is a no-op.
	assert.NoError(t, repo.DeleteSnapshot(ctx, "snap-1"))
}

func TestManifestLifecycle(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	now := time.Now().UTC()
	manifest := &entities.Manifest{
		DeletionKey:  "del-1",
		RootType:     "department",
		RootIdentity: "d1",
		SnapshotKeys: []string{"s1", "s2"},
		Reason:       "cleanup",
		Actor:        "admin",
		CreatedAt:    now,
		ExpiresAt:    now.Add(time.Hour),
		State:        entities.ManifestActive,
	}
	members := []entities.RecordRef{
		{Type: "department", Identity: "d1"},
		{Type: "employee", Identity: "e1"},
	}
	require.NoError(t, repo.SaveManifest(ctx, manifest, members))

	got, err := repo.GetManifest(ctx, "del-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"s1", "s2"}, got.SnapshotKeys)
	assert.Equal(t, "cleanup", got.Reason)
	assert.Equal(t, entities.ManifestActive, got.State)

	missing, err := repo.GetManifest(ctx, "del-9")
	require.NoError(t, err)
	assert.Nil(t, missing)

	held, err := repo.FindActiveManifestByMember(ctx, entities.RecordRef{Type: "employee", Identity: "e1"})
	require.NoError(t, err)
	require.NotNil(t, held)
	assert.Equal(t, "del-1", held.DeletionKey)

	free, err := repo.FindActiveManifestByMember(ctx, entities.RecordRef{Type: "employee", Identity: "e9"})
	require.NoError(t, err)
	assert.Nil(t, free)

	require.NoError(t, repo.SetManifestState(ctx, "del-1", entities.ManifestRestored))
	held, err = repo.FindActiveManifestByMember(ctx, entities.RecordRef{Type: "employee", Identity: "e1"})
	require.NoError(t, err)
	assert.Nil(t, held, "non-active manifest must not hold members")

	require.NoError(t, repo.DeleteManifest(ctx, "del-1"))
	got, err = repo.GetManifest(ctx, "del-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	err = repo.SetManifestState(ctx, "del-1", entities.ManifestPurged)
	assert.ErrorIs(t, err, entities.ErrManifestNotFound)
}

func TestListManifests_FilterAndOrder(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	base := time.Now().UTC()
	seed := []entities.Manifest{
		{DeletionKey: "a", RootType: "employee", RootIdentity: "e1", SnapshotKeys: []string{"s1"}, CreatedAt: base.Add(-2 * time.Hour), ExpiresAt: base.Add(time.Hour), State: entities.ManifestActive},
		{DeletionKey: "b", RootType: "department", RootIdentity: "d1", SnapshotKeys: []string{"s2"}, CreatedAt: base.Add(-1 * time.Hour), ExpiresAt: base.Add(time.Hour), State: entities.ManifestActive},
		{DeletionKey: "c", RootType: "employee", RootIdentity: "e2", SnapshotKeys: []string{"s3"}, CreatedAt: base, ExpiresAt: base.Add(time.Hour), State: entities.ManifestRestored},
	}
	for i := range seed {
		require.NoError(t, repo.SaveManifest(ctx, &seed[i], nil))
	}

	all, err := repo.ListManifests(ctx, entities.ManifestFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].DeletionKey, "newest first")

	employees, err := repo.ListManifests(ctx, entities.ManifestFilter{RootType: "employee"})
	require.NoError(t, err)
	assert.Len(t, employees, 2)

	active, err := repo.ListManifests(ctx, entities.ManifestFilter{State: entities.ManifestActive})
	require.NoError(t, err)
	assert.Len(t, active, 2)

	paged, err := repo.ListManifests(ctx, entities.ManifestFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "b", paged[0].DeletionKey)
}

func TestFindExpiredManifests(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	now := time.Now().UTC()
	expired := entities.Manifest{
		DeletionKey: "old", RootType: "employee", RootIdentity: "e1",
		SnapshotKeys: []string{"s1"},
		CreatedAt:    now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour),
		State: entities.ManifestActive,
	}
	fresh := entities.Manifest{
		DeletionKey: "new", RootType: "employee", RootIdentity: "e2",
		SnapshotKeys: []string{"s2"},
		CreatedAt:    now, ExpiresAt: now.Add(time.Hour),
		State: entities.ManifestActive,
	}
	require.NoError(t, repo.SaveManifest(ctx, &expired, nil))
	require.NoError(t, repo.SaveManifest(ctx, &fresh, nil))

	got, err := repo.FindExpiredManifests(ctx, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "old", got[0].DeletionKey)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := repo.WithTx(ctx, func(tx ports.Tx) error {
		if err := tx.InsertRecordWithIdentity(ctx, &entities.Record{
			Ref:        entities.RecordRef{Type: "employee", Identity: "e1"},
			Attributes: map[string]any{"name": "Ada"},
		}); err != nil {
			return err
		}
		if err := tx.PutSnapshot(ctx, &entities.Snapshot{
			Key: "s1", EntityType: "employee", Identity: "e1",
			Attributes: map[string]any{}, CapturedAt: time.Now().UTC(),
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := repo.GetRecord(ctx, "employee", "e1")
	require.NoError(t, err)
	assert.Nil(t, got)
	_, err = repo.GetSnapshot(ctx, "s1")
	assert.ErrorIs(t, err, entities.ErrSnapshotNotFound)
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	err := repo.WithTx(ctx, func(tx ports.Tx) error {
		return tx.InsertRecordWithIdentity(ctx, &entities.Record{
			Ref:        entities.RecordRef{Type: "employee", Identity: "e1"},
			Attributes: map[string]any{"name": "Ada"},
		})
	})
	require.NoError(t, err)

	got, err := repo.GetRecord(ctx, "employee", "e1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ada", got.Attributes["name"])
}
