// Package memstore provides in-memory identity and profile stores used by tests and
// by the server when no database is configured.
package memstore

import (
	"context"
	"iter"
	"sort"
	"sync"
	"time"

	"github.com/coachline/coaching-core/internal/core/domain"
	"github.com/coachline/coaching-core/internal/core/ports"
)

// IdentityRepository is a map-backed ports.IdentityRepository with a unique email index.
type IdentityRepository struct {
	mu      sync.RWMutex
	byID    map[string]*domain.IdentityRecord
	byEmail map[string]string
}

var _ ports.IdentityRepository = (*IdentityRepository)(nil)

// NewIdentityRepository returns an empty repository.
func NewIdentityRepository() *IdentityRepository {
	return &IdentityRepository{
		byID:    make(map[string]*domain.IdentityRecord),
		byEmail: make(map[string]string),
	}
}

func cloneIdentity(rec *domain.IdentityRecord) *domain.IdentityRecord {
	c := *rec
	return &c
}

func (r *IdentityRepository) Insert(_ context.Context, rec *domain.IdentityRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[rec.Email]; ok {
		return domain.ErrIdentityExists
	}
	if _, ok := r.byID[rec.ID]; ok {
		return domain.ErrIdentityExists
	}
	r.byID[rec.ID] = cloneIdentity(rec)
	r.byEmail[rec.Email] = rec.ID
	return nil
}

func (r *IdentityRepository) FindByID(_ context.Context, id string) (*domain.IdentityRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrIdentityNotFound
	}
	return cloneIdentity(rec), nil
}

func (r *IdentityRepository) FindByEmail(_ context.Context, email string) (*domain.IdentityRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, domain.ErrIdentityNotFound
	}
	return cloneIdentity(r.byID[id]), nil
}

func (r *IdentityRepository) UpdateMetadata(_ context.Context, id string, patch domain.MetadataPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok {
		return domain.ErrIdentityNotFound
	}
	if patch.Email != nil && *patch.Email != rec.Email {
		if _, taken := r.byEmail[*patch.Email]; taken {
			return domain.ErrIdentityExists
		}
		delete(r.byEmail, rec.Email)
		r.byEmail[*patch.Email] = id
	}
	updated := patch.Apply(*rec)
	updated.UpdatedAt = time.Now().UTC()
	r.byID[id] = &updated
	return nil
}

// All yields a snapshot ordered by creation time; every range takes a fresh snapshot.
func (r *IdentityRepository) All(ctx context.Context) iter.Seq2[*domain.IdentityRecord, error] {
	return func(yield func(*domain.IdentityRecord, error) bool) {
		r.mu.RLock()
		snapshot := make([]*domain.IdentityRecord, 0, len(r.byID))
		for _, rec := range r.byID {
			snapshot = append(snapshot, cloneIdentity(rec))
		}
		r.mu.RUnlock()

		sort.Slice(snapshot, func(i, j int) bool {
			if snapshot[i].CreatedAt.Equal(snapshot[j].CreatedAt) {
				return snapshot[i].ID < snapshot[j].ID
			}
			return snapshot[i].CreatedAt.Before(snapshot[j].CreatedAt)
		})
		for _, rec := range snapshot {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func (r *IdentityRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok {
		return domain.ErrIdentityNotFound
	}
	delete(r.byEmail, rec.Email)
	delete(r.byID, id)
	return nil
}
