package memory

import (
	"context"
	"time"

	"github.com/SscSPs/invoice_review_app/internal/core/domain"
)

func (s *Store) SaveActivityLog(_ context.Context, entry domain.ActivityLog) error {
	s.write(func(st *state) { st.activity = append(st.activity, entry) })
	return nil
}

func (s *Store) DeleteExpiredSessions(_ context.Context, before time.Time) (int64, error) {
	var n int64
	s.write(func(st *state) {
		for id, expiresAt := range st.sessions {
			if expiresAt.Before(before) {
				delete(st.sessions, id)
				n++
			}
		}
	})
	return n, nil
}

func (s *Store) DeleteActivityLogsBefore(_ context.Context, before time.Time) (int64, error) {
	var n int64
	s.write(func(st *state) {
		kept := st.activity[:0:0]
		for _, entry := range st.activity {
			if entry.CreatedAt.Before(before) {
				n++
				continue
			}
			kept = append(kept, entry)
		}
		st.activity = kept
	})
	return n, nil
}

// AddSession records a session row. The auth collaborator owns sessions; the store
// only needs them to exercise pruning.
func (s *Store) AddSession(sessionID string, expiresAt time.Time) {
	s.write(func(st *state) { st.sessions[sessionID] = expiresAt })
}

// ActivityLogs returns a copy of the recorded activity, oldest first.
func (s *Store) ActivityLogs() []domain.ActivityLog {
	var out []domain.ActivityLog
	s.read(func(st *state) { out = append(out, st.activity...) })
	return out
}
