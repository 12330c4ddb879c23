package workflow

import (
	"sync"
	"testing"
)

// NOTE: These tests are intentionally DB-free. They validate the intended
// concurrency semantics of the confirmation lifecycle:
// - at most one pending confirmation per (order, action) slot
// - a pending confirmation resolves exactly once under racing deciders/sweep
// - re-running an approved confirmation's executor is deduplicated
//
// Full MySQL-backed coverage lives in the INTEGRATION_TESTS-gated regression
// test in this package.

type fakeConfirmationStore struct {
	mu            sync.Mutex
	nextId        int
	pendingSlots  map[string]int // pending_key -> confirmation id
	status        map[int]string
	executed      map[string]bool // idempotency key -> done
	executorCalls int
}

func newFakeConfirmationStore() *fakeConfirmationStore {
	return &fakeConfirmationStore{
		pendingSlots: map[string]int{},
		status:       map[int]string{},
		executed:     map[string]bool{},
	}
}

// create models the insert hitting the pending_key unique index: the first
// writer takes the slot, later writers get the winner's id back.
func (s *fakeConfirmationStore) create(pendingKey string) (id int, conflictWith int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if winner, taken := s.pendingSlots[pendingKey]; taken {
		return 0, winner
	}
	s.nextId++
	s.pendingSlots[pendingKey] = s.nextId
	s.status[s.nextId] = "pending"
	return s.nextId, 0
}

// resolve models the compare-and-set UPDATE pinned on status = pending; the
// same statement clears the pending slot.
func (s *fakeConfirmationStore) resolve(id int, pendingKey, target string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status[id] != "pending" {
		return false
	}
	s.status[id] = target
	delete(s.pendingSlots, pendingKey)
	return true
}

// runExecutor models the claim on the execution idempotency key.
func (s *fakeConfirmationStore) runExecutor(key string, fn func()) {
	s.mu.Lock()
	if s.executed[key] {
		s.mu.Unlock()
		return
	}
	s.executed[key] = true
	s.mu.Unlock()

	fn()

	s.mu.Lock()
	s.executorCalls++
	s.mu.Unlock()
}

func TestPendingSlotHasOneWinnerUnderConcurrentCreates(t *testing.T) {
	s := newFakeConfirmationStore()
	const slot = "7:send_order"

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   []int
		conflicts []int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, conflictWith := s.create(slot)
			mu.Lock()
			if id != 0 {
				created = append(created, id)
			} else {
				conflicts = append(conflicts, conflictWith)
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(created) != 1 {
		t.Fatalf("expected exactly 1 created confirmation, got %d", len(created))
	}
	if len(conflicts) != 24 {
		t.Fatalf("expected 24 conflicts, got %d", len(conflicts))
	}
	for _, winner := range conflicts {
		if winner != created[0] {
			t.Fatalf("conflict named id %d, winner is %d", winner, created[0])
		}
	}

	// Resolving frees the slot for the next request.
	if !s.resolve(created[0], slot, "rejected") {
		t.Fatalf("resolve of the winner failed")
	}
	if id, _ := s.create(slot); id == 0 {
		t.Fatalf("slot still taken after resolution")
	}
}

func TestPendingConfirmationResolvesExactlyOnce(t *testing.T) {
	for run := 0; run < 100; run++ {
		s := newFakeConfirmationStore()
		const slot = "7:complete_order"
		id, _ := s.create(slot)

		// An approver, a rejecter and the expiry sweep race on the same row.
		var wg sync.WaitGroup
		results := make([]bool, 3)
		for i, target := range []string{"approved", "rejected", "expired"} {
			wg.Add(1)
			go func(i int, target string) {
				defer wg.Done()
				results[i] = s.resolve(id, slot, target)
			}(i, target)
		}
		wg.Wait()

		moved := 0
		for _, ok := range results {
			if ok {
				moved++
			}
		}
		if moved != 1 {
			t.Fatalf("run=%d expected exactly 1 winning resolution, got %d", run, moved)
		}
		if s.status[id] == "pending" {
			t.Fatalf("run=%d confirmation still pending after resolution", run)
		}
	}
}

func TestDuplicateApprovalRunsExecutorOnce(t *testing.T) {
	s := newFakeConfirmationStore()
	const key = "confirmation:42"

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.runExecutor(key, func() {})
		}()
	}
	wg.Wait()

	if s.executorCalls != 1 {
		t.Fatalf("expected exactly 1 executor call, got %d", s.executorCalls)
	}
}
