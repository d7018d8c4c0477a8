package verify

import (
	"sync"
	"time"

	"github.com/slogsolutions/WebBuyer/internal/domain/user"
)

// Outcome is one resolved phone challenge.
type Outcome struct {
	UserID      user.ID
	ChallengeID string
	Verified    bool
	OccurredAt  time.Time
}

const outcomeBuffer = 4

// Notifier fans challenge outcomes from the provider callback out to
// live sessions. Delivery is best effort: a subscriber that stopped
// draining loses the oldest outcome first, and a re-run of the booking
// gate reads the stored flag anyway.
type Notifier struct {
	mu     sync.Mutex
	subs   map[user.ID]map[int]chan Outcome
	nextID int
	closed bool
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[user.ID]map[int]chan Outcome)}
}

// Subscribe registers for one user's outcomes. The returned cancel
// must be called when the session ends; it closes the channel.
func (n *Notifier) Subscribe(userID user.ID) (<-chan Outcome, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan Outcome, outcomeBuffer)
	if n.closed {
		close(ch)
		return ch, func() {}
	}
	n.nextID += 1
	id := n.nextID
	if n.subs[userID] == nil {
		n.subs[userID] = make(map[int]chan Outcome)
	}
	n.subs[userID][id] = ch

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		subs, ok := n.subs[userID]
		if !ok {
			return
		}
		if got, ok := subs[id]; ok {
			delete(subs, id)
			if len(subs) == 0 {
				delete(n.subs, userID)
			}
			close(got)
		}
	}
	return ch, cancel
}

// Publish delivers an outcome to every subscriber of its user.
func (n *Notifier) Publish(outcome Outcome) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	for _, ch := range n.subs[outcome.UserID] {
		for {
			select {
			case ch <- outcome:
			default:
				// Full buffer: drop the oldest and retry.
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}

// Close ends every subscription.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	for _, subs := range n.subs {
		for _, ch := range subs {
			close(ch)
		}
	}
	n.subs = make(map[user.ID]map[int]chan Outcome)
}
