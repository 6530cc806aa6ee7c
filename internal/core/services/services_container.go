package services

import (
	"time"

	"github.com/SscSPs/invoice_review_app/internal/core/ports"
	portsrepo "github.com/SscSPs/invoice_review_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/invoice_review_app/internal/core/ports/services"
	"github.com/SscSPs/invoice_review_app/internal/platform/config"
	"github.com/SscSPs/invoice_review_app/internal/utils/retry"
)

// Dependencies are the external collaborators shared by the services.
type Dependencies struct {
	ObjectStore ports.ObjectStore
	Notifier    ports.Notifier
	// Transient reports store errors worth retrying; nil disables retries.
	Transient retry.Classifier
	Clock     func() time.Time
}

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, deps Dependencies) *portssvc.ServiceContainer {
	options := []ServiceOption{
		WithActivityLog(repos.ActivityRepo),
		WithNotifier(deps.Notifier),
		WithRetry(retry.DefaultPolicy, deps.Transient),
	}
	if deps.Clock != nil {
		options = append(options, WithClock(deps.Clock))
	}

	container := &portssvc.ServiceContainer{}

	// Balance first since every workflow posts through it
	container.Balance = NewBalanceService(repos.TxManager, repos.LedgerRepo, options...)

	container.Invoice = NewInvoiceService(repos.TxManager, repos.InvoiceRepo, container.Balance, options...)
	container.BudgetRequest = NewBudgetRequestService(repos.TxManager, repos.BudgetRequestRepo, repos.LedgerRepo, container.Balance, options...)
	container.DeletionRequest = NewDeletionRequestService(repos.TxManager, repos.DeletionRequestRepo, repos.InvoiceRepo, container.Balance, deps.ObjectStore, options...)
	container.Sweeper = NewSweeperService(
		SweeperConfig{
			StaleAfter:        cfg.ReviewStaleAfter,
			ActivityRetention: cfg.ActivityLogRetention,
		},
		repos.InvoiceRepo,
		repos.MaintenanceRepo,
		deps.ObjectStore,
		container.Balance,
		options...,
	)

	return container
}
