package attachment

import (
	"context"
	"fmt"
)

// Unlimited is the quota sentinel meaning no size limit is enforced.
const Unlimited int64 = -1

// TableRegistry resolves configured table names into content type identifiers.
type TableRegistry interface {
	IDForTable(ctx context.Context, table string) (int64, error)
}

// Quota holds the global per-file bound and per content type overrides.
// An override replaces the default entirely, it is never combined with it.
type Quota struct {
	Default    int64
	PerContent map[int64]int64
}

// BuildQuota turns table-keyed configuration into identifier-keyed overrides.
func BuildQuota(ctx context.Context, registry TableRegistry, defaultMax int64, byTable map[string]int64) (Quota, error) {
	q := Quota{Default: defaultMax, PerContent: make(map[int64]int64, len(byTable))}
	for table, limit := range byTable {
		id, err := registry.IDForTable(ctx, table)
		if err != nil {
			return Quota{}, fmt.Errorf("resolve quota table %q: %w", table, err)
		}
		q.PerContent[id] = limit
	}
	return q, nil
}

// Resolve returns the maximum size in bytes for one upload targeting contentType.
// consumed is accepted for cumulative quotas but does not reduce the bound.
func (q Quota) Resolve(contentType int64, _ int64) int64 {
	if limit, ok := q.PerContent[contentType]; ok {
		return limit
	}
	return q.Default
}

// Check validates size against the resolved bound and reports a field error on violation.
func (q Quota) Check(field string, contentType int64, size int64, consumed int64) error {
	limit := q.Resolve(contentType, consumed)
	if limit < 0 || size <= limit {
		return nil
	}
	return &ValidationError{Field: field, Size: size, Max: limit, Err: ErrQuotaExceeded}
}
