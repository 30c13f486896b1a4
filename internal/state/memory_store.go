package state

import (
	"context"
	"sort"
	"sync"
	"time"
)

type MemoryStore struct {
	mu  sync.RWMutex
	now func() time.Time

	submissions map[string]Submission
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:         func() time.Time { return time.Now().UTC() },
		submissions: make(map[string]Submission),
	}
}

func clone(s Submission) Submission {
	s.Titles = append([]string(nil), s.Titles...)
	s.SKUs = append([]string(nil), s.SKUs...)
	return s
}

func (s *MemoryStore) InsertSubmission(ctx context.Context, sub Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.submissions[sub.RunID]; ok {
		return ErrDuplicate
	}

	now := s.now()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	s.submissions[sub.RunID] = clone(sub)
	return nil
}

func (s *MemoryStore) UpdateSubmission(ctx context.Context, sub Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.submissions[sub.RunID]
	if !ok {
		return ErrNotFound
	}

	sub.CreatedAt = cur.CreatedAt
	sub.UpdatedAt = s.now()
	sub.LeaseUntil = time.Time{}
	s.submissions[sub.RunID] = clone(sub)
	return nil
}

func (s *MemoryStore) GetSubmission(ctx context.Context, runID string) (Submission, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.submissions[runID]
	if !ok {
		return Submission{}, false, nil
	}
	return clone(sub), true, nil
}

func (s *MemoryStore) ListSubmissions(ctx context.Context, limit int) ([]Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Submission, 0, len(s.submissions))
	for _, sub := range s.submissions {
		out = append(out, clone(sub))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].RunID < out[j].RunID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if limit <= 0 || limit > len(out) {
		return out, nil
	}
	return out[:limit], nil
}

func (s *MemoryStore) ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]Submission, error) {
	if limit <= 0 {
		limit = 10
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	var candidates []Submission
	for _, sub := range s.submissions {
		if sub.Pending() && !sub.LeaseUntil.After(now) {
			candidates = append(candidates, sub)
		}
	}

	// oldest first
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]Submission, 0, len(candidates))
	for _, sub := range candidates {
		sub.LeaseUntil = now.Add(lease)
		s.submissions[sub.RunID] = sub
		out = append(out, clone(sub))
	}
	return out, nil
}
