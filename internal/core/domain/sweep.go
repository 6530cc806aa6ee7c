package domain

import "time"

// ClaimSweepReport summarises one stuck-claim repair run.
type ClaimSweepReport struct {
	Cutoff     time.Time `json:"cutoff"`
	Candidates int       `json:"candidates"`
	Reclaimed  []string  `json:"reclaimed"`
	Skipped    int       `json:"skipped"` // a ping or decision won the race
	Failed     int       `json:"failed"`
}

// OrphanReport lists storage objects with no invoice and invoices with no object.
type OrphanReport struct {
	StoredObjects     int      `json:"storedObjects"`
	ReferencedKeys    int      `json:"referencedKeys"`
	Unreferenced      []string `json:"unreferenced"`
	MissingForInvoice []string `json:"missingForInvoice"`
}

// PruneReport counts rows removed by the age-based pruning tasks.
type PruneReport struct {
	ExpiredSessions int64 `json:"expiredSessions"`
	StaleLogs       int64 `json:"staleLogs"`
}

// LedgerAuditReport collects the accounts whose chain or projection is inconsistent.
type LedgerAuditReport struct {
	AccountsChecked int           `json:"accountsChecked"`
	Inconsistent    []ChainReport `json:"inconsistent"`
}

// HygieneReport is the outcome of the daily hygiene run. Errors are per task.
type HygieneReport struct {
	Orphans *OrphanReport      `json:"orphans,omitempty"`
	Pruned  *PruneReport       `json:"pruned,omitempty"`
	Ledger  *LedgerAuditReport `json:"ledger,omitempty"`
	Errors  map[string]string  `json:"errors,omitempty"`
}
