// Package mocks provides in-memory implementations of the engine's
// ports for tests.
package mocks

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/osidra/reclaim/internal/domain/entities"
	"github.com/osidra/reclaim/internal/domain/ports"
)

// Store is a mock implementation of ports.Store backed by maps. WithTx
// snapshots the maps before running the callback and restores them on
// error, so rollback behavior is observable in tests.
type Store struct {
	mu sync.Mutex

	Records     map[entities.RecordRef]*entities.Record
	Snapshots   map[string]*entities.Snapshot
	Manifests   map[string]*entities.Manifest
	Members     map[string][]entities.RecordRef
	IdentitySeq map[string]int64

	// Err is returned by every operation when set.
	Err error
	// DeleteErr is returned by DeleteRecord when set; used to force a
	// mid-transaction failure.
	DeleteErr error
	// NoOverride makes SupportsIdentityOverride report false.
	NoOverride bool
}

var (
	_ ports.Store = (*Store)(nil)
	_ ports.Tx    = (*Store)(nil)
)

// NewStore creates an empty mock store.
func NewStore() *Store {
	return &Store{
		Records:     make(map[entities.RecordRef]*entities.Record),
		Snapshots:   make(map[string]*entities.Snapshot),
		Manifests:   make(map[string]*entities.Manifest),
		Members:     make(map[string][]entities.RecordRef),
		IdentitySeq: make(map[string]int64),
	}
}

// Seed inserts records directly, bypassing error injection.
func (m *Store) Seed(recs ...*entities.Record) {
	for _, rec := range recs {
		m.Records[rec.Ref] = rec.Clone()
	}
}

// EnsureSchema is a no-op.
func (m *Store) EnsureSchema(_ context.Context) error { return m.Err }

// Close is a no-op.
func (m *Store) Close() error { return nil }

// SupportsIdentityOverride reports the configured capability.
func (m *Store) SupportsIdentityOverride() bool { return !m.NoOverride }

// WithTx runs fn against the store itself, restoring pre-transaction
// state when fn fails.
func (m *Store) WithTx(_ context.Context, fn func(tx ports.Tx) error) error {
	if m.Err != nil {
		return m.Err
	}
	backup := m.clone()
	if err := fn(m); err != nil {
		m.restore(backup)
		return err
	}
	return nil
}

// GetRecord fetches one record; (nil, nil) when absent.
func (m *Store) GetRecord(_ context.Context, entityType, identity string) (*entities.Record, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.Records[entities.RecordRef{Type: entityType, Identity: identity}]
	if !ok {
		return nil, nil
	}
	return rec.Clone(), nil
}

// FindReferencing scans records of entityType for field == identity.
func (m *Store) FindReferencing(_ context.Context, entityType, field, identity string) ([]entities.RecordRef, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var refs []entities.RecordRef
	for ref, rec := range m.Records {
		if ref.Type != entityType {
			continue
		}
		if rec.FieldString(field) == identity {
			refs = append(refs, ref)
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Less(refs[j]) })
	return refs, nil
}

// InsertRecord inserts with the next per-type identity.
func (m *Store) InsertRecord(_ context.Context, rec *entities.Record) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.IdentitySeq[rec.Ref.Type]++
	identity := strconv.FormatInt(m.IdentitySeq[rec.Ref.Type], 10)
	stored := rec.Clone()
	stored.Ref.Identity = identity
	m.Records[stored.Ref] = stored
	return identity, nil
}

// InsertRecordWithIdentity inserts verbatim, failing on a taken identity.
func (m *Store) InsertRecordWithIdentity(_ context.Context, rec *entities.Record) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.Records[rec.Ref]; exists {
		return fmt.Errorf("identity taken: %s", rec.Ref)
	}
	m.Records[rec.Ref] = rec.Clone()
	if id, err := strconv.ParseInt(rec.Ref.Identity, 10, 64); err == nil && id > m.IdentitySeq[rec.Ref.Type] {
		m.IdentitySeq[rec.Ref.Type] = id
	}
	return nil
}

// SetRecordField overwrites one attribute value.
func (m *Store) SetRecordField(_ context.Context, ref entities.RecordRef, field string, value any) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.Records[ref]
	if !ok {
		return fmt.Errorf("%s: %w", ref, entities.ErrRecordNotFound)
	}
	if rec.Attributes == nil {
		rec.Attributes = make(map[string]any, 1)
	}
	rec.Attributes[field] = value
	return nil
}

// DeleteRecord hard-deletes a record.
func (m *Store) DeleteRecord(_ context.Context, entityType, identity string) error {
	if m.Err != nil {
		return m.Err
	}
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ref := entities.RecordRef{Type: entityType, Identity: identity}
	if _, ok := m.Records[ref]; !ok {
		return fmt.Errorf("%s: %w", ref, entities.ErrRecordNotFound)
	}
	delete(m.Records, ref)
	return nil
}

// PutSnapshot stores a snapshot.
func (m *Store) PutSnapshot(_ context.Context, snap *entities.Snapshot) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *snap
	m.Snapshots[snap.Key] = &copied
	return nil
}

// GetSnapshot fetches a snapshot by key.
func (m *Store) GetSnapshot(_ context.Context, key string) (*entities.Snapshot, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.Snapshots[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, entities.ErrSnapshotNotFound)
	}
	copied := *snap
	return &copied, nil
}

// DeleteSnapshot removes a snapshot. Idempotent.
func (m *Store) DeleteSnapshot(_ context.Context, key string) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Snapshots, key)
	return nil
}

// SaveManifest persists a manifest and its member refs.
func (m *Store) SaveManifest(_ context.Context, manifest *entities.Manifest, members []entities.RecordRef) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *manifest
	m.Manifests[manifest.DeletionKey] = &copied
	m.Members[manifest.DeletionKey] = append([]entities.RecordRef(nil), members...)
	return nil
}

// GetManifest fetches a manifest; (nil, nil) when absent.
func (m *Store) GetManifest(_ context.Context, deletionKey string) (*entities.Manifest, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	manifest, ok := m.Manifests[deletionKey]
	if !ok {
		return nil, nil
	}
	copied := *manifest
	return &copied, nil
}

// ListManifests returns manifests matching the filter, newest first.
func (m *Store) ListManifests(_ context.Context, filter entities.ManifestFilter) ([]entities.Manifest, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []entities.Manifest
	for _, manifest := range m.Manifests {
		if filter.RootType != "" && manifest.RootType != filter.RootType {
			continue
		}
		if filter.State != "" && manifest.State != filter.State {
			continue
		}
		result = append(result, *manifest)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].DeletionKey < result[j].DeletionKey
	})
	return result, nil
}

// FindExpiredManifests returns active manifests expired before now.
func (m *Store) FindExpiredManifests(_ context.Context, now time.Time) ([]entities.Manifest, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []entities.Manifest
	for _, manifest := range m.Manifests {
		if manifest.Expired(now) {
			result = append(result, *manifest)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DeletionKey < result[j].DeletionKey })
	return result, nil
}

// FindActiveManifestByMember returns the active manifest holding ref.
func (m *Store) FindActiveManifestByMember(_ context.Context, ref entities.RecordRef) (*entities.Manifest, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, members := range m.Members {
		manifest, ok := m.Manifests[key]
		if !ok || manifest.State != entities.ManifestActive {
			continue
		}
		for _, member := range members {
			if member == ref {
				copied := *manifest
				return &copied, nil
			}
		}
	}
	return nil, nil
}

// SetManifestState transitions a manifest's state.
func (m *Store) SetManifestState(_ context.Context, deletionKey string, state entities.ManifestState) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	manifest, ok := m.Manifests[deletionKey]
	if !ok {
		return fmt.Errorf("%s: %w", deletionKey, entities.ErrManifestNotFound)
	}
	manifest.State = state
	return nil
}

// DeleteManifest removes a manifest and its membership.
func (m *Store) DeleteManifest(_ context.Context, deletionKey string) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Manifests, deletionKey)
	delete(m.Members, deletionKey)
	return nil
}

// storeState is a deep copy of the mutable maps for rollback.
type storeState struct {
	records     map[entities.RecordRef]*entities.Record
	snapshots   map[string]*entities.Snapshot
	manifests   map[string]*entities.Manifest
	members     map[string][]entities.RecordRef
	identitySeq map[string]int64
}

func (m *Store) clone() storeState {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := storeState{
		records:     make(map[entities.RecordRef]*entities.Record, len(m.Records)),
		snapshots:   make(map[string]*entities.Snapshot, len(m.Snapshots)),
		manifests:   make(map[string]*entities.Manifest, len(m.Manifests)),
		members:     make(map[string][]entities.RecordRef, len(m.Members)),
		identitySeq: make(map[string]int64, len(m.IdentitySeq)),
	}
	for ref, rec := range m.Records {
		s.records[ref] = rec.Clone()
	}
	for key, snap := range m.Snapshots {
		copied := *snap
		s.snapshots[key] = &copied
	}
	for key, manifest := range m.Manifests {
		copied := *manifest
		s.manifests[key] = &copied
	}
	for key, members := range m.Members {
		s.members[key] = append([]entities.RecordRef(nil), members...)
	}
	for key, next := range m.IdentitySeq {
		s.identitySeq[key] = next
	}
	return s
}

func (m *Store) restore(s storeState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records = s.records
	m.Snapshots = s.snapshots
	m.Manifests = s.manifests
	m.Members = s.members
	m.IdentitySeq = s.identitySeq
}
