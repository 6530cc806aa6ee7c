package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/SscSPs/invoice_review_app/internal/apperrors"
	"github.com/SscSPs/invoice_review_app/internal/core/domain"
	"github.com/SscSPs/invoice_review_app/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

func (s *Store) FindBalance(_ context.Context, accountID string) (*domain.AccountBalance, error) {
	var (
		b  domain.AccountBalance
		ok bool
	)
	s.read(func(st *state) { b, ok = st.balances[accountID] })
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &b, nil
}

// before reports whether e sorts strictly before the cursor position.
func before(e domain.LedgerEntry, createdAt time.Time, seq int64) bool {
	if !e.CreatedAt.Equal(createdAt) {
		return e.CreatedAt.Before(createdAt)
	}
	return e.Seq < seq
}

func (s *Store) ListEntries(_ context.Context, accountID string, limit int, nextToken *string) ([]domain.LedgerEntry, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	var (
		cursorAt  time.Time
		cursorSeq int64
		hasCursor bool
	)
	if nextToken != nil && *nextToken != "" {
		var err error
		cursorAt, cursorSeq, err = pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, apperrors.Validationf("invalid nextToken: %v", err)
		}
		hasCursor = true
	}

	var entries []domain.LedgerEntry
	s.read(func(st *state) {
		chain := st.entries[accountID]
		for i := len(chain) - 1; i >= 0 && len(entries) <= limit; i-- {
			if hasCursor && !before(chain[i], cursorAt, cursorSeq) {
				continue
			}
			entries = append(entries, chain[i])
		}
	})

	var newNextToken *string
	if len(entries) > limit {
		entries = entries[:limit]
		last := entries[limit-1]
		token := pagination.EncodeToken(last.CreatedAt, last.Seq)
		newNextToken = &token
	}
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}
	return entries, newNextToken, nil
}

func (s *Store) ListAllEntriesInTx(_ context.Context, tx pgx.Tx, accountID string) ([]domain.LedgerEntry, error) {
	st, err := s.txState(tx)
	if err != nil {
		return nil, err
	}
	return append([]domain.LedgerEntry{}, st.entries[accountID]...), nil
}

func (s *Store) ListAccountIDs(_ context.Context) ([]string, error) {
	var ids []string
	s.read(func(st *state) {
		seen := make(map[string]struct{}, len(st.balances))
		for id := range st.balances {
			seen[id] = struct{}{}
		}
		for id := range st.entries {
			seen[id] = struct{}{}
		}
		ids = sortedKeys(seen)
	})
	return ids, nil
}

func (s *Store) LockAccountInTx(_ context.Context, tx pgx.Tx, accountID string, now time.Time) (*domain.AccountBalance, error) {
	st, err := s.txState(tx)
	if err != nil {
		return nil, err
	}
	b, ok := st.balances[accountID]
	if !ok {
		b = domain.AccountBalance{AccountID: accountID, Balance: decimal.Zero, LastUpdatedAt: now}
		st.balances[accountID] = b
	}
	return &b, nil
}

func (s *Store) FindLatestEntry(_ context.Context, accountID string) (*domain.LedgerEntry, error) {
	var latest *domain.LedgerEntry
	s.read(func(st *state) {
		if chain := st.entries[accountID]; len(chain) > 0 {
			e := chain[len(chain)-1]
			latest = &e
		}
	})
	return latest, nil
}

func (s *Store) FindLatestEntryInTx(_ context.Context, tx pgx.Tx, accountID string) (*domain.LedgerEntry, error) {
	st, err := s.txState(tx)
	if err != nil {
		return nil, err
	}
	chain := st.entries[accountID]
	if len(chain) == 0 {
		return nil, nil
	}
	latest := chain[len(chain)-1]
	return &latest, nil
}

func (s *Store) InsertEntryInTx(_ context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error {
	st, err := s.txState(tx)
	if err != nil {
		return err
	}
	chain := st.entries[entry.AccountID]
	if n := len(chain); n > 0 && entry.CreatedAt.Before(chain[n-1].CreatedAt) {
		return fmt.Errorf("entry %s predates the head of account %s", entry.EntryID, entry.AccountID)
	}
	st.seq++
	entry.Seq = st.seq
	st.entries[entry.AccountID] = append(chain, *entry)
	return nil
}

func (s *Store) UpdateProjectionInTx(_ context.Context, tx pgx.Tx, balance domain.AccountBalance) error {
	st, err := s.txState(tx)
	if err != nil {
		return err
	}
	if _, ok := st.balances[balance.AccountID]; !ok {
		return fmt.Errorf("%w: balance row for account %s", apperrors.ErrNotFound, balance.AccountID)
	}
	st.balances[balance.AccountID] = balance
	return nil
}

func (s *Store) SumByReferenceInTx(_ context.Context, tx pgx.Tx, accountID, referenceID string) (decimal.Decimal, error) {
	st, err := s.txState(tx)
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, e := range st.entries[accountID] {
		if e.ReferenceID != nil && *e.ReferenceID == referenceID {
			sum = sum.Add(e.Amount)
		}
	}
	return sum, nil
}

// CorruptBalance overwrites an account's cached balance without touching its ledger.
// It exists so tests can exercise chain verification and projection rebuilds.
func (s *Store) CorruptBalance(accountID string, balance decimal.Decimal) {
	s.write(func(st *state) {
		b := st.balances[accountID]
		b.AccountID = accountID
		b.Balance = balance
		st.balances[accountID] = b
	})
}
