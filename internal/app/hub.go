package app

import (
	"sync"

	"exampro-service/internal/domain"
)

// hub fans leaderboard updates out to per-department subscribers.
type hub struct {
	mu          sync.Mutex
	subscribers map[string]map[chan domain.LeaderboardUpdate]struct{}
}

func newHub() *hub {
	return &hub{subscribers: make(map[string]map[chan domain.LeaderboardUpdate]struct{})}
}

func (h *hub) subscribe(departmentID string) (<-chan domain.LeaderboardUpdate, func()) {
	ch := make(chan domain.LeaderboardUpdate, 8)

	h.mu.Lock()
	subs, ok := h.subscribers[departmentID]
	if !ok {
		subs = make(map[chan domain.LeaderboardUpdate]struct{})
		h.subscribers[departmentID] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs := h.subscribers[departmentID]
		if _, ok := subs[ch]; !ok {
			return
		}
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(h.subscribers, departmentID)
		}
	}
	return ch, cancel
}

func (h *hub) publish(update domain.LeaderboardUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers[update.DepartmentID] {
		select {
		case ch <- update:
		default:
			// Full buffer: drop the oldest update so slow readers see the latest one.
			select {
			case <-ch:
			default:
			}
			ch <- update
		}
	}
}

func (h *hub) count(departmentID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[departmentID])
}
