package repositories

// RepositoryProvider holds all repository interfaces needed by services.
// This makes passing dependencies to the service container constructor cleaner.
type RepositoryProvider struct {
	TxManager           TransactionManager
	InvoiceRepo         InvoiceRepositoryFacade
	LedgerRepo          LedgerRepositoryFacade
	BudgetRequestRepo   BudgetRequestRepositoryFacade
	DeletionRequestRepo DeletionRequestRepositoryFacade
	ActivityRepo        ActivityLogRepository
	MaintenanceRepo     MaintenanceRepository
}
