package index

import (
	"sync"
	"time"

	"github.com/MrSnakeDoc/nginxlb/internal/domain"
)

// StatusIndex keeps the last lifecycle outcome per host in memory.
// It is written by the cycle runner and read by the status endpoints.
// Nothing survives a restart.
type StatusIndex struct {
	mu        sync.RWMutex
	order     []string                  // hosts in configuration order
	outcomes  map[string]domain.Outcome // host -> last outcome
	lastCycle time.Time                 // end of the last completed cycle
	cycles    int
}

// NewStatusIndex creates an index for the given hosts, in configuration order.
func NewStatusIndex(hosts []string) *StatusIndex {
	return &StatusIndex{
		order:    append([]string(nil), hosts...),
		outcomes: make(map[string]domain.Outcome, len(hosts)),
	}
}

// Record stores the outcome of one route evaluation.
func (idx *StatusIndex) Record(o domain.Outcome) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if !idx.hasHost(o.Host) {
		idx.order = append(idx.order, o.Host)
	}
	idx.outcomes[o.Host] = o
}

func (idx *StatusIndex) hasHost(host string) bool {
	for _, h := range idx.order {
		if h == host {
			return true
		}
	}
	return false
}

// CompleteCycle marks the end of a full pass over all routes.
func (idx *StatusIndex) CompleteCycle(at time.Time) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.lastCycle = at
	idx.cycles++
}

// Get returns the last outcome recorded for host.
func (idx *StatusIndex) Get(host string) (domain.Outcome, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	o, ok := idx.outcomes[host]
	return o, ok
}

// All returns recorded outcomes in configuration order. Hosts not yet
// evaluated are omitted.
func (idx *StatusIndex) All() []domain.Outcome {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]domain.Outcome, 0, len(idx.outcomes))
	for _, host := range idx.order {
		if o, ok := idx.outcomes[host]; ok {
			out = append(out, o)
		}
	}
	return out
}

// Count returns the number of hosts with a recorded outcome.
func (idx *StatusIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.outcomes)
}

// LastCycle returns when the last cycle finished and how many have run.
func (idx *StatusIndex) LastCycle() (time.Time, int) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.lastCycle, idx.cycles
}
