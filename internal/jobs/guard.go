package jobs

import "sync"

// Guard tracks which jobs are in flight in this process.
type Guard struct {
	mu      sync.Mutex
	running map[string]bool
}

func NewGuard() *Guard {
	return &Guard{running: make(map[string]bool)}
}

// TryAcquire marks name as running; it returns false if it already was.
func (g *Guard) TryAcquire(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running[name] {
		return false
	}
	g.running[name] = true
	return true
}

func (g *Guard) Release(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.running, name)
}
