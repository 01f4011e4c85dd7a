package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/coachline/coaching-core/internal/core/domain"
	"github.com/coachline/coaching-core/internal/core/ports"
)

// ProfileStore is a map-backed ports.ProfileStore. Insert enforces id uniqueness the
// same way the relational store's primary key does.
type ProfileStore struct {
	mu   sync.RWMutex
	rows map[string]*domain.ProfileRecord
}

var _ ports.ProfileStore = (*ProfileStore)(nil)

// NewProfileStore returns an empty store.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{rows: make(map[string]*domain.ProfileRecord)}
}

func cloneProfile(rec *domain.ProfileRecord) *domain.ProfileRecord {
	c := *rec
	return &c
}

func (s *ProfileStore) Insert(_ context.Context, rec *domain.ProfileRecord) (*domain.ProfileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[rec.ID]; ok {
		return nil, domain.ErrProfileExists
	}
	row := cloneProfile(rec)
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	s.rows[row.ID] = row
	return cloneProfile(row), nil
}

func (s *ProfileStore) UpdateByID(_ context.Context, id string, patch domain.ProfilePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return domain.ErrProfileNotFound
	}
	if patch.ExpectStatus != nil && row.Status != *patch.ExpectStatus {
		return domain.ErrProfileStale
	}
	updated := patch.Apply(*row)
	s.rows[id] = &updated
	return nil
}

func (s *ProfileStore) SelectByID(_ context.Context, id string) (*domain.ProfileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return cloneProfile(row), nil
}

func (s *ProfileStore) SelectByStatus(_ context.Context, status domain.ProfileStatus) ([]*domain.ProfileRecord, error) {
	return s.selectWhere(func(r *domain.ProfileRecord) bool { return r.Status == status }), nil
}

func (s *ProfileStore) SelectByRole(_ context.Context, role domain.Role) ([]*domain.ProfileRecord, error) {
	return s.selectWhere(func(r *domain.ProfileRecord) bool { return r.Role == role }), nil
}

func (s *ProfileStore) selectWhere(match func(*domain.ProfileRecord) bool) []*domain.ProfileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.ProfileRecord
	for _, row := range s.rows {
		if match(row) {
			out = append(out, cloneProfile(row))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
