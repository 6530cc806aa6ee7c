package pgsql

import (
	portsrepo "github.com/SscSPs/invoice_review_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	maintenanceRepo := newPgxMaintenanceRepository(dbPool)

	return portsrepo.RepositoryProvider{
		TxManager:           NewTransactionManager(dbPool),
		InvoiceRepo:         newPgxInvoiceRepository(dbPool),
		LedgerRepo:          newPgxLedgerRepository(dbPool),
		BudgetRequestRepo:   newPgxBudgetRequestRepository(dbPool),
		DeletionRequestRepo: newPgxDeletionRequestRepository(dbPool),
		ActivityRepo:        maintenanceRepo,
		MaintenanceRepo:     maintenanceRepo,
	}
}
