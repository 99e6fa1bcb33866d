// Package service holds the forum's business rules. Every mutating call takes
// the caller's policy.Principal explicitly and consults policy.Decide before
// touching storage.
package service

import (
	"context"
	"time"

	"forum/internal/middleware"
	"forum/internal/models"
	"forum/internal/observability"
	"forum/internal/policy"
	"forum/internal/repository"
)

// authorize runs the ownership policy and records the outcome.
func authorize(ctx context.Context, p policy.Principal, ownerID string, action policy.Action, resource string) error {
	d := policy.Decide(p, ownerID, action)
	observability.RecordDecision(string(action), d.Outcome.String())
	if !d.Allowed() {
		middleware.Logger.InfoContext(ctx, "policy denied",
			"resource", resource,
			"action", string(action),
			"principal", p.ID,
			"owner", ownerID,
		)
		return models.NewForbiddenError("You are not allowed to " + string(action) + " this " + resource)
	}
	return nil
}

// nextUpdatedAt returns now, nudged forward when the clock has not moved past
// prev so an update always changes updatedAt.
func nextUpdatedAt(now, prev time.Time) time.Time {
	if !now.After(prev) {
		return prev.Add(time.Microsecond)
	}
	return now
}

// resolveConflict decides what a failed versioned write means: the row is
// gone (NotFound) or someone else changed it (fatal Conflict). Neither case
// is retried.
func resolveConflict(ctx context.Context, resource string, id interface{}, exists func(context.Context) (bool, error)) error {
	ok, err := exists(ctx)
	if err != nil {
		return err
	}
	if !ok {
		observability.ConcurrencyConflicts.WithLabelValues(resource, "not_found").Inc()
		return models.NewNotFoundError(resource, id)
	}
	observability.ConcurrencyConflicts.WithLabelValues(resource, "conflict").Inc()
	middleware.Logger.WarnContext(ctx, "concurrent modification", "resource", resource, "id", id)
	return models.NewConflictError(resource, id, repository.ErrVersionConflict)
}

// expectedVersion prefers the version the client read, falling back to the
// one just loaded.
func expectedVersion(requested, loaded uint) uint {
	if requested != 0 {
		return requested
	}
	return loaded
}

func validationErr(err error) error {
	if err == nil {
		return nil
	}
	return models.NewValidationError(err.Error())
}

func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func idMismatch() error {
	return models.NewValidationError("ID in path does not match ID in body")
}
