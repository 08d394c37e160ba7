package gitstore

import "sync"

// projectLocks hands out one mutex per project id. Every mutating operation
// locks around its whole sequence, so concurrent callers against the same
// project serialize instead of racing at the repository layer. Locks are
// never removed; the map grows with the number of distinct projects touched.
type projectLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newProjectLocks() *projectLocks {
	return &projectLocks{locks: make(map[string]*sync.Mutex)}
}

func (p *projectLocks) get(projectID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.locks[projectID]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[projectID] = lock
	}
	return lock
}
