package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/SscSPs/invoice_review_app/internal/apperrors"
	"github.com/SscSPs/invoice_review_app/internal/core/domain"
	portsrepo "github.com/SscSPs/invoice_review_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
)

func (s *Store) SaveBudgetRequest(_ context.Context, br domain.BudgetRequest) error {
	var err error
	s.write(func(st *state) {
		if _, exists := st.budgets[br.RequestID]; exists {
			err = fmt.Errorf("%w: budget request %s", apperrors.ErrDuplicate, br.RequestID)
			return
		}
		st.budgets[br.RequestID] = br
	})
	return err
}

func (s *Store) FindBudgetRequestByID(_ context.Context, requestID string) (*domain.BudgetRequest, error) {
	var (
		br domain.BudgetRequest
		ok bool
	)
	s.read(func(st *state) { br, ok = st.budgets[requestID] })
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &br, nil
}

func (s *Store) ListBudgetRequests(_ context.Context, filter portsrepo.RequestFilter) ([]domain.BudgetRequest, error) {
	var matched []domain.BudgetRequest
	s.read(func(st *state) {
		for _, br := range st.budgets {
			if (filter.UserID == "" || br.UserID == filter.UserID) && (filter.Status == "" || br.Status == filter.Status) {
				matched = append(matched, br)
			}
		}
	})
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].RequestID < matched[j].RequestID
	})
	return page(matched, filter.Limit, filter.Offset, 20, 100), nil
}

func (s *Store) ReviewBudgetRequestInTx(_ context.Context, tx pgx.Tx, review domain.RequestReview) (*domain.BudgetRequest, error) {
	st, err := s.txState(tx)
	if err != nil {
		return nil, err
	}
	br, ok := st.budgets[review.RequestID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if br.Status != domain.RequestPending {
		return nil, fmt.Errorf("%w: budget request %s already reviewed", apperrors.ErrConflict, review.RequestID)
	}
	reviewer, reviewedAt := review.ReviewerID, review.ReviewedAt
	br.Status = review.Status()
	br.ReviewerID = &reviewer
	br.ReviewedAt = &reviewedAt
	br.RejectionReason = review.RejectionReason
	br.LastUpdatedAt = review.ReviewedAt
	br.LastUpdatedBy = review.ReviewerID
	st.budgets[review.RequestID] = br
	return &br, nil
}

func (s *Store) SaveDeletionRequest(_ context.Context, dr domain.InvoiceDeletionRequest) error {
	var err error
	s.write(func(st *state) {
		if _, exists := st.deletions[dr.RequestID]; exists {
			err = fmt.Errorf("%w: deletion request %s", apperrors.ErrDuplicate, dr.RequestID)
			return
		}
		if dr.Status == domain.RequestPending {
			for _, other := range st.deletions {
				if other.InvoiceID == dr.InvoiceID && other.Status == domain.RequestPending {
					err = fmt.Errorf("%w: invoice %s already has a pending deletion request", apperrors.ErrConflict, dr.InvoiceID)
					return
				}
			}
		}
		st.deletions[dr.RequestID] = dr
	})
	return err
}

func (s *Store) FindDeletionRequestByID(_ context.Context, requestID string) (*domain.InvoiceDeletionRequest, error) {
	var (
		dr domain.InvoiceDeletionRequest
		ok bool
	)
	s.read(func(st *state) { dr, ok = st.deletions[requestID] })
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &dr, nil
}

func (s *Store) ListDeletionRequests(_ context.Context, filter portsrepo.RequestFilter) ([]domain.InvoiceDeletionRequest, error) {
	var matched []domain.InvoiceDeletionRequest
	s.read(func(st *state) {
		for _, dr := range st.deletions {
			if (filter.UserID == "" || dr.RequestedBy == filter.UserID) && (filter.Status == "" || dr.Status == filter.Status) {
				matched = append(matched, dr)
			}
		}
	})
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].RequestID < matched[j].RequestID
	})
	return page(matched, filter.Limit, filter.Offset, 20, 100), nil
}

func (s *Store) ReviewDeletionRequestInTx(_ context.Context, tx pgx.Tx, review domain.RequestReview) (*domain.InvoiceDeletionRequest, error) {
	st, err := s.txState(tx)
	if err != nil {
		return nil, err
	}
	dr, ok := st.deletions[review.RequestID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if dr.Status != domain.RequestPending {
		return nil, fmt.Errorf("%w: deletion request %s already reviewed", apperrors.ErrConflict, review.RequestID)
	}
	reviewer, reviewedAt := review.ReviewerID, review.ReviewedAt
	dr.Status = review.Status()
	dr.ReviewedBy = &reviewer
	dr.ReviewedAt = &reviewedAt
	dr.RejectionReason = review.RejectionReason
	dr.LastUpdatedAt = review.ReviewedAt
	dr.LastUpdatedBy = review.ReviewerID
	st.deletions[review.RequestID] = dr
	return &dr, nil
}
