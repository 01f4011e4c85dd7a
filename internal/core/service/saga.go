package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coachline/coaching-core/internal/core/domain"
	"github.com/coachline/coaching-core/internal/metrics"
)

// storeCall runs one store operation under its own deadline on a context detached
// from the caller's cancellation, so a started write always runs to completion or
// explicit failure.
func (s *LifecycleService) storeCall(ctx context.Context, store domain.Store, op string, fn func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	start := time.Now()
	err := fn(callCtx)
	metrics.StoreCallDuration.WithLabelValues(string(store), op).Observe(time.Since(start).Seconds())
	return err
}

// compensate runs a reversing action against a store that already accepted a write.
func (s *LifecycleService) compensate(ctx context.Context, tr domain.Transition, store domain.Store, op string, fn func(ctx context.Context) error) error {
	err := s.storeCall(ctx, store, op, fn)
	result := "ok"
	if err != nil {
		result = "failed"
	}
	metrics.CompensationsTotal.WithLabelValues(string(tr), result).Inc()
	return err
}

// unavailable logs the raw store failure and returns its classified form.
func (s *LifecycleService) unavailable(tr domain.Transition, store domain.Store, op string, err error) error {
	s.log.Warn().
		Err(err).
		Str("transition", string(tr)).
		Str("store", string(store)).
		Str("op", op).
		Msg("store call failed")
	return fmt.Errorf("%s: %w", tr, domain.ErrUnavailable)
}

// syncFailure records and logs a dual-write failure.
func (s *LifecycleService) syncFailure(se *domain.SyncError) error {
	metrics.PartialFailuresTotal.WithLabelValues(partialKind(se.Kind)).Inc()

	ev := s.log.Error().
		Err(se.Cause).
		Str("kind", se.Kind.Error()).
		Str("transition", string(se.Transition)).
		Str("id", se.ID).
		Str("succeeded_store", string(se.Succeeded)).
		Str("failed_store", string(se.Failed)).
		Bool("compensated", se.Compensated)
	if se.Detail != "" {
		ev = ev.Str("detail", se.Detail)
	}
	if se.CompensationErr != nil {
		ev = ev.AnErr("compensation_error", se.CompensationErr).Bool("manual_cleanup", true)
	}
	ev.Msg("dual write left stores out of step")
	return se
}

// observe records the outcome of a finished transition.
func (s *LifecycleService) observe(tr domain.Transition, err error) {
	metrics.TransitionsTotal.WithLabelValues(string(tr), outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case domain.IsPartialFailure(err):
		return "partial_failure"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "unavailable"
	}
}

func partialKind(kind error) string {
	switch kind {
	case domain.ErrPartialRegistration:
		return "partial_registration"
	case domain.ErrRoleSyncFailure:
		return "role_sync_failure"
	case domain.ErrCoachCreationFailed:
		return "coach_creation_failed"
	default:
		return "unknown"
	}
}
