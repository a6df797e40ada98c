package execution

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// CompanyLimiter caps how many heavy executions a single company can run at
// once, so one tenant cannot saturate shared storage. Acquire blocks until a
// slot frees up or ctx is done.
type CompanyLimiter struct {
	mu    sync.Mutex
	limit int64
	sems  map[string]*semaphore.Weighted
}

func NewCompanyLimiter(limit int64) *CompanyLimiter {
	if limit < 1 {
		limit = 1
	}
	return &CompanyLimiter{
		limit: limit,
		sems:  make(map[string]*semaphore.Weighted),
	}
}

func (l *CompanyLimiter) sem(companyID string) *semaphore.Weighted {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.sems[companyID]
	if !ok {
		s = semaphore.NewWeighted(l.limit)
		l.sems[companyID] = s
	}
	return s
}

func (l *CompanyLimiter) Acquire(ctx context.Context, companyID string) error {
	return l.sem(companyID).Acquire(ctx, 1)
}

func (l *CompanyLimiter) Release(companyID string) {
	l.sem(companyID).Release(1)
}
