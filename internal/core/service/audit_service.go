package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/rs/zerolog"

	"github.com/coachline/coaching-core/internal/core/domain"
	"github.com/coachline/coaching-core/internal/core/ports"
	"github.com/coachline/coaching-core/internal/metrics"
)

// AuditOptions tunes the consistency checker.
type AuditOptions struct {
	// IncludeMissing also reports identities that have no profile row.
	IncludeMissing bool
	// StoreTimeout bounds each profile lookup. Non-positive means five seconds.
	StoreTimeout time.Duration
}

// AuditService detects role drift between the identity store and the profile store.
// It never repairs anything.
type AuditService struct {
	identities ports.IdentityStore
	profiles   ports.ProfileStore
	opts       AuditOptions
	log        zerolog.Logger
}

var _ ports.RoleAuditor = (*AuditService)(nil)

func NewAuditService(identities ports.IdentityStore, profiles ports.ProfileStore, opts AuditOptions, log zerolog.Logger) *AuditService {
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = defaultStoreTimeout
	}
	return &AuditService{identities: identities, profiles: profiles, opts: opts, log: log}
}

// RoleConsistency lazily yields every identity whose role disagrees with its profile
// row. Each range walks the identity store again, so the sequence is restartable.
// A store error is yielded once and ends the walk.
func (a *AuditService) RoleConsistency(ctx context.Context) iter.Seq2[domain.RoleMismatch, error] {
	return func(yield func(domain.RoleMismatch, error) bool) {
		for identity, err := range a.identities.ListAll(ctx) {
			if err != nil {
				yield(domain.RoleMismatch{}, fmt.Errorf("list identities: %w", err))
				return
			}
			profile, err := a.selectProfile(ctx, identity.ID)
			switch {
			case errors.Is(err, domain.ErrProfileNotFound):
				if !a.opts.IncludeMissing {
					continue
				}
				if !yield(domain.RoleMismatch{ID: identity.ID, IdentityRole: identity.Role}, nil) {
					return
				}
			case err != nil:
				yield(domain.RoleMismatch{}, fmt.Errorf("select profile %s: %w", identity.ID, err))
				return
			case profile.Role != identity.Role:
				m := domain.RoleMismatch{ID: identity.ID, IdentityRole: identity.Role, ProfileRole: profile.Role}
				if !yield(m, nil) {
					return
				}
			}
		}
	}
}

func (a *AuditService) selectProfile(ctx context.Context, id string) (*domain.ProfileRecord, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.opts.StoreTimeout)
	defer cancel()

	start := time.Now()
	rec, err := a.profiles.SelectByID(callCtx, id)
	metrics.StoreCallDuration.WithLabelValues(string(domain.StoreProfile), "audit_select").Observe(time.Since(start).Seconds())
	return rec, err
}

// Collect drains one full audit.
func (a *AuditService) Collect(ctx context.Context) ([]domain.RoleMismatch, error) {
	var out []domain.RoleMismatch
	for m, err := range a.RoleConsistency(ctx) {
		if err != nil {
			return out, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Reconciler runs the consistency checker on a fixed interval, logs every mismatch
// and publishes the drift count as a gauge.
type Reconciler struct {
	audit    *AuditService
	interval time.Duration
	log      zerolog.Logger
}

func NewReconciler(audit *AuditService, interval time.Duration, log zerolog.Logger) *Reconciler {
	return &Reconciler{audit: audit, interval: interval, log: log}
}

// Run blocks until ctx is cancelled. A non-positive interval disables it.
func (r *Reconciler) Run(ctx context.Context) {
	if r.interval <= 0 {
		r.log.Info().Msg("role reconciler disabled")
		return
	}
	r.log.Info().Dur("interval", r.interval).Msg("role reconciler started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		r.RunOnce(ctx)
		select {
		case <-ctx.Done():
			r.log.Info().Msg("role reconciler stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce performs a single audit pass and returns the number of mismatches found.
func (r *Reconciler) RunOnce(ctx context.Context) int {
	drift := 0
	for m, err := range r.audit.RoleConsistency(ctx) {
		if err != nil {
			metrics.AuditRunsTotal.WithLabelValues("error").Inc()
			if ctx.Err() == nil {
				r.log.Error().Err(err).Msg("role audit aborted")
			}
			return drift
		}
		drift++
		r.log.Warn().
			Str("id", m.ID).
			Str("identity_role", string(m.IdentityRole)).
			Str("profile_role", string(m.ProfileRole)).
			Msg("role drift detected")
	}
	metrics.AuditRunsTotal.WithLabelValues("ok").Inc()
	metrics.RoleDriftIdentities.Set(float64(drift))
	if drift > 0 {
		r.log.Warn().Int("count", drift).Msg("role audit found drift")
	} else {
		r.log.Debug().Msg("role audit clean")
	}
	return drift
}
