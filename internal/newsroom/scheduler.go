package newsroom

import "time"

// DefaultStagger is the gap between two consecutive publish slots.
const DefaultStagger = 15 * time.Minute

// Scheduler hands out staggered publish slots for one pipeline run. It is
// not safe for concurrent use; each run owns its own Scheduler.
type Scheduler struct {
	next    time.Time
	stagger time.Duration
}

// NewScheduler starts at now, or at latest+stagger when that is later.
// A zero latest means nothing has been scheduled yet.
func NewScheduler(latest, now time.Time, stagger time.Duration) *Scheduler {
	if stagger <= 0 {
		stagger = DefaultStagger
	}
	next := now
	if !latest.IsZero() {
		if candidate := latest.Add(stagger); candidate.After(next) {
			next = candidate
		}
	}
	return &Scheduler{next: next, stagger: stagger}
}

// Next is the slot the following article will get.
func (s *Scheduler) Next() time.Time {
	return s.next
}

// Assign returns the publish time for an article. A source date is kept as-is
// unless it is missing or later than the current slot.
func (s *Scheduler) Assign(sourceDate time.Time) time.Time {
	if sourceDate.IsZero() || sourceDate.After(s.next) {
		return s.next
	}
	return sourceDate
}

// Advance moves to the next slot once an article has been stored.
func (s *Scheduler) Advance() {
	s.next = s.next.Add(s.stagger)
}
