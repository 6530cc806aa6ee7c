// Package memory provides an in-memory implementation of every repository port,
// used for local development and for concurrency tests of the services.
//
// Transactions are serialized: Begin holds the store's write lock until Commit or
// Rollback and works on a private copy of the state that Commit swaps in. Plain
// writes take the same lock, so a caller holding a transaction must only use the
// ...InTx methods until it ends.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/SscSPs/invoice_review_app/internal/core/domain"
	portsrepo "github.com/SscSPs/invoice_review_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
)

var errForeignTx = errors.New("memory store: transaction was not started by this store")

type state struct {
	invoices  map[string]domain.Invoice
	balances  map[string]domain.AccountBalance
	entries   map[string][]domain.LedgerEntry // chain order per account
	budgets   map[string]domain.BudgetRequest
	deletions map[string]domain.InvoiceDeletionRequest
	activity  []domain.ActivityLog
	sessions  map[string]time.Time // session id -> expiry
	seq       int64
}

func newState() *state {
	return &state{
		invoices:  make(map[string]domain.Invoice),
		balances:  make(map[string]domain.AccountBalance),
		entries:   make(map[string][]domain.LedgerEntry),
		budgets:   make(map[string]domain.BudgetRequest),
		deletions: make(map[string]domain.InvoiceDeletionRequest),
		sessions:  make(map[string]time.Time),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.invoices {
		c.invoices[k] = copyInvoice(v)
	}
	for k, v := range s.balances {
		c.balances[k] = v
	}
	for k, v := range s.entries {
		c.entries[k] = append([]domain.LedgerEntry(nil), v...)
	}
	for k, v := range s.budgets {
		c.budgets[k] = v
	}
	for k, v := range s.deletions {
		c.deletions[k] = v
	}
	c.activity = append([]domain.ActivityLog(nil), s.activity...)
	for k, v := range s.sessions {
		c.sessions[k] = v
	}
	c.seq = s.seq
	return c
}

func copyInvoice(inv domain.Invoice) domain.Invoice {
	inv.EditHistory = append([]domain.EditRecord{}, inv.EditHistory...)
	return inv
}

// Store is the in-memory repository set.
type Store struct {
	writeMu sync.Mutex   // held for the whole of a transaction or a plain write
	mu      sync.RWMutex // guards cur
	cur     *state
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{cur: newState()}
}

// NewRepositoryProvider exposes the store through the repository ports.
func NewRepositoryProvider(s *Store) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		TxManager:           s,
		InvoiceRepo:         s,
		LedgerRepo:          s,
		BudgetRequestRepo:   s,
		DeletionRequestRepo: s,
		ActivityRepo:        s,
		MaintenanceRepo:     s,
	}
}

var (
	_ portsrepo.TransactionManager              = (*Store)(nil)
	_ portsrepo.InvoiceRepositoryFacade         = (*Store)(nil)
	_ portsrepo.LedgerRepositoryFacade          = (*Store)(nil)
	_ portsrepo.BudgetRequestRepositoryFacade   = (*Store)(nil)
	_ portsrepo.DeletionRequestRepositoryFacade = (*Store)(nil)
	_ portsrepo.ActivityLogRepository           = (*Store)(nil)
	_ portsrepo.MaintenanceRepository           = (*Store)(nil)
)

// memTx satisfies pgx.Tx for the ports; only the store itself interprets it.
type memTx struct {
	pgx.Tx
	working *state
	done    bool
}

// Begin starts a transaction, blocking until any other transaction ends.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.writeMu.Lock()
	s.mu.RLock()
	working := s.cur.clone()
	s.mu.RUnlock()
	return &memTx{working: working}, nil
}

// Commit publishes the transaction's state.
func (s *Store) Commit(_ context.Context, tx pgx.Tx) error {
	mt, ok := tx.(*memTx)
	if !ok {
		return errForeignTx
	}
	if mt.done {
		return pgx.ErrTxClosed
	}
	s.mu.Lock()
	s.cur = mt.working
	s.mu.Unlock()
	mt.done = true
	s.writeMu.Unlock()
	return nil
}

// Rollback discards the transaction's state. It is a no-op after Commit.
func (s *Store) Rollback(_ context.Context, tx pgx.Tx) error {
	mt, ok := tx.(*memTx)
	if !ok {
		return errForeignTx
	}
	if mt.done {
		return nil
	}
	mt.done = true
	s.writeMu.Unlock()
	return nil
}

func (s *Store) txState(tx pgx.Tx) (*state, error) {
	mt, ok := tx.(*memTx)
	if !ok {
		return nil, errForeignTx
	}
	if mt.done {
		return nil, pgx.ErrTxClosed
	}
	return mt.working, nil
}

// read runs fn against the committed state.
func (s *Store) read(fn func(st *state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.cur)
}

// write runs fn against the committed state, serialized with transactions.
func (s *Store) write(fn func(st *state)) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.cur)
}

func page[T any](items []T, limit, offset, def, maxLimit int) []T {
	if limit <= 0 {
		limit = def
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
