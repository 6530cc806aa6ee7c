package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/SscSPs/invoice_review_app/internal/apperrors"
	"github.com/SscSPs/invoice_review_app/internal/core/domain"
	portsrepo "github.com/SscSPs/invoice_review_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
)

func (s *Store) FindInvoiceByID(_ context.Context, invoiceID string) (*domain.Invoice, error) {
	var (
		inv domain.Invoice
		ok  bool
	)
	s.read(func(st *state) { inv, ok = st.invoices[invoiceID] })
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	out := copyInvoice(inv)
	return &out, nil
}

func (s *Store) ListInvoices(_ context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	var matched []domain.Invoice
	s.read(func(st *state) {
		for _, inv := range st.invoices {
			if filter.SubmitterID != "" && inv.SubmitterID != filter.SubmitterID {
				continue
			}
			if filter.ReviewerID != "" && (inv.CurrentReviewerID == nil || *inv.CurrentReviewerID != filter.ReviewerID) {
				continue
			}
			if filter.Status != "" && inv.Status != filter.Status {
				continue
			}
			matched = append(matched, copyInvoice(inv))
		}
	})
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].InvoiceID < matched[j].InvoiceID
	})
	return page(matched, filter.Limit, filter.Offset, 20, 100), nil
}

func (s *Store) ListStaleClaims(_ context.Context, cutoff time.Time, limit int) ([]domain.Invoice, error) {
	var stale []domain.Invoice
	s.read(func(st *state) {
		for _, inv := range st.invoices {
			if inv.IsStale(cutoff) {
				stale = append(stale, copyInvoice(inv))
			}
		}
	})
	sort.Slice(stale, func(i, j int) bool { return stale[i].LastReviewPing.Before(*stale[j].LastReviewPing) })
	return page(stale, limit, 0, 500, 5000), nil
}

func (s *Store) ListStorageKeys(_ context.Context) ([]string, error) {
	var keys []string
	s.read(func(st *state) {
		for _, inv := range st.invoices {
			if inv.StorageKey != "" {
				keys = append(keys, inv.StorageKey)
			}
		}
	})
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) SaveInvoice(_ context.Context, inv domain.Invoice) error {
	var err error
	s.write(func(st *state) {
		if _, exists := st.invoices[inv.InvoiceID]; exists {
			err = fmt.Errorf("%w: invoice %s already exists", apperrors.ErrDuplicate, inv.InvoiceID)
			return
		}
		if inv.ResubmittedFrom != nil {
			for _, existing := range st.invoices {
				if existing.ResubmittedFrom != nil && *existing.ResubmittedFrom == *inv.ResubmittedFrom {
					err = fmt.Errorf("%w: invoice %s has already been resubmitted", apperrors.ErrConflict, *inv.ResubmittedFrom)
					return
				}
			}
		}
		st.invoices[inv.InvoiceID] = copyInvoice(inv)
	})
	return err
}

// guardedUpdate applies mutate to the invoice when cond holds; otherwise it returns
// ErrNotFound for a missing row or onMiss.
func (s *Store) guardedUpdate(invoiceID string, onMiss error, cond func(domain.Invoice) bool, mutate func(*domain.Invoice)) (*domain.Invoice, error) {
	var (
		out domain.Invoice
		err error
	)
	s.write(func(st *state) {
		inv, ok := st.invoices[invoiceID]
		if !ok {
			err = apperrors.ErrNotFound
			return
		}
		if !cond(inv) {
			err = onMiss
			return
		}
		mutate(&inv)
		st.invoices[invoiceID] = inv
		out = copyInvoice(inv)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) ClaimInvoice(_ context.Context, invoiceID, reviewerID string, now time.Time) (*domain.Invoice, error) {
	return s.guardedUpdate(invoiceID, apperrors.ErrConflict,
		func(inv domain.Invoice) bool { return inv.Status.IsClaimable() && inv.CurrentReviewerID == nil },
		func(inv *domain.Invoice) {
			reviewer, claimed, ping := reviewerID, now, now
			inv.Status = domain.InvoiceInReview
			inv.CurrentReviewerID = &reviewer
			inv.ReviewClaimedAt = &claimed
			inv.LastReviewPing = &ping
			inv.LastUpdatedAt = now
			inv.LastUpdatedBy = reviewerID
		})
}

func (s *Store) TouchReviewPing(_ context.Context, invoiceID, reviewerID string, now time.Time) (*domain.Invoice, error) {
	return s.guardedUpdate(invoiceID, apperrors.ErrNotOwner,
		func(inv domain.Invoice) bool { return inv.IsClaimedBy(reviewerID) },
		func(inv *domain.Invoice) {
			ping := now
			inv.LastReviewPing = &ping
		})
}

func (s *Store) ReleaseClaim(_ context.Context, invoiceID, reviewerID string, now time.Time) (*domain.Invoice, error) {
	actor := reviewerID
	if actor == "" {
		actor = domain.SystemActorID
	}
	return s.guardedUpdate(invoiceID, apperrors.ErrConflict,
		func(inv domain.Invoice) bool {
			return inv.Status == domain.InvoiceInReview && (reviewerID == "" || inv.IsClaimedBy(reviewerID))
		},
		func(inv *domain.Invoice) {
			inv.Status = domain.InvoicePending
			inv.ClearLease()
			inv.LastUpdatedAt = now
			inv.LastUpdatedBy = actor
		})
}

func (s *Store) ReclaimStaleClaim(_ context.Context, invoiceID string, cutoff, now time.Time) (bool, error) {
	_, err := s.guardedUpdate(invoiceID, apperrors.ErrConflict,
		func(inv domain.Invoice) bool { return inv.IsStale(cutoff) },
		func(inv *domain.Invoice) {
			inv.Status = domain.InvoicePending
			inv.ClearLease()
			inv.LastUpdatedAt = now
			inv.LastUpdatedBy = domain.SystemActorID
		})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, apperrors.ErrConflict), errors.Is(err, apperrors.ErrNotFound):
		return false, nil
	}
	return false, err
}

func (s *Store) FindInvoiceByIDForUpdate(_ context.Context, tx pgx.Tx, invoiceID string) (*domain.Invoice, error) {
	st, err := s.txState(tx)
	if err != nil {
		return nil, err
	}
	inv, ok := st.invoices[invoiceID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	out := copyInvoice(inv)
	return &out, nil
}

func (s *Store) UpdateInvoiceInTx(_ context.Context, tx pgx.Tx, inv domain.Invoice, guard portsrepo.InvoiceGuard) error {
	st, err := s.txState(tx)
	if err != nil {
		return err
	}
	current, ok := st.invoices[inv.InvoiceID]
	if !ok || current.Status != guard.Status ||
		(guard.ReviewerID != nil && (current.CurrentReviewerID == nil || *current.CurrentReviewerID != *guard.ReviewerID)) {
		return fmt.Errorf("%w: invoice %s is no longer %s", apperrors.ErrConflict, inv.InvoiceID, guard.Status)
	}
	// Only the mutable columns change.
	current.Status = inv.Status
	current.Amount = inv.Amount
	current.RejectionReason = inv.RejectionReason
	current.EditHistory = inv.EditHistory
	current.CurrentReviewerID = inv.CurrentReviewerID
	current.ReviewClaimedAt = inv.ReviewClaimedAt
	current.LastReviewPing = inv.LastReviewPing
	current.LastUpdatedAt = inv.LastUpdatedAt
	current.LastUpdatedBy = inv.LastUpdatedBy
	st.invoices[inv.InvoiceID] = copyInvoice(current)
	return nil
}

func (s *Store) DeleteInvoiceInTx(_ context.Context, tx pgx.Tx, invoiceID string) error {
	st, err := s.txState(tx)
	if err != nil {
		return err
	}
	if _, ok := st.invoices[invoiceID]; !ok {
		return apperrors.ErrNotFound
	}
	delete(st.invoices, invoiceID)
	return nil
}
