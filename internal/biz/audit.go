package biz

import (
	"context"

	"VaultLane/internal/model"
)

// InvocationAuditor records finished logical calls.
// Implementations must not block the caller.
type InvocationAuditor interface {
	LogInvocation(ctx context.Context, inv *model.Invocation)
}

// VaultStateRepo mirrors pool status into shared storage.
// Following Kratos v2 DDD architecture, the interface lives in biz and the
// Redis implementation in data.
type VaultStateRepo interface {
	// Available reports whether a backing store is configured.
	Available() bool
	// SaveSnapshot stores the full index -> status mapping.
	SaveSnapshot(ctx context.Context, snapshot map[int]string) error
	// IncrementThrottle bumps the one-minute throttle counter of a credential.
	IncrementThrottle(ctx context.Context, index int) (int64, error)
	// ThrottleCounts returns the one-minute throttle counters for indices [0, size).
	ThrottleCounts(ctx context.Context, size int) (map[int]int64, error)
}
