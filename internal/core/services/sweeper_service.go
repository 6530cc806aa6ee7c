package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/SscSPs/invoice_review_app/internal/core/domain"
	"github.com/SscSPs/invoice_review_app/internal/core/ports"
	portsrepo "github.com/SscSPs/invoice_review_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/invoice_review_app/internal/core/ports/services"
	"golang.org/x/sync/errgroup"
)

// SweeperConfig holds the thresholds used by the repair tasks.
type SweeperConfig struct {
	StaleAfter        time.Duration
	ActivityRetention time.Duration
	BatchSize         int
}

// DefaultSweeperConfig reclaims claims silent for a day and keeps ninety days of activity.
var DefaultSweeperConfig = SweeperConfig{
	StaleAfter:        24 * time.Hour,
	ActivityRetention: 90 * 24 * time.Hour,
	BatchSize:         200,
}

type sweeperService struct {
	BaseService
	cfg             SweeperConfig
	invoiceRepo     portsrepo.InvoiceRepositoryFacade
	maintenanceRepo portsrepo.MaintenanceRepository
	objects         ports.ObjectStore
	ledger          portssvc.BalanceReaderSvc
}

// NewSweeperService creates the service behind the periodic repair and hygiene jobs.
func NewSweeperService(
	cfg SweeperConfig,
	invoiceRepo portsrepo.InvoiceRepositoryFacade,
	maintenanceRepo portsrepo.MaintenanceRepository,
	objects ports.ObjectStore,
	ledger portssvc.BalanceReaderSvc,
	options ...ServiceOption,
) portssvc.SweeperSvcFacade {
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultSweeperConfig.StaleAfter
	}
	if cfg.ActivityRetention <= 0 {
		cfg.ActivityRetention = DefaultSweeperConfig.ActivityRetention
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultSweeperConfig.BatchSize
	}
	return &sweeperService{
		BaseService:     newBaseService(options...),
		cfg:             cfg,
		invoiceRepo:     invoiceRepo,
		maintenanceRepo: maintenanceRepo,
		objects:         objects,
		ledger:          ledger,
	}
}

var _ portssvc.SweeperSvcFacade = (*sweeperService)(nil)

// ReclaimStuckClaims resets each stale lease with its own conditional update. A row whose
// reviewer pinged or decided after it was listed is skipped, not overwritten.
func (s *sweeperService) ReclaimStuckClaims(ctx context.Context, now time.Time) (*domain.ClaimSweepReport, error) {
	now = now.UTC().Truncate(time.Microsecond)
	cutoff := now.Add(-s.cfg.StaleAfter)
	report := &domain.ClaimSweepReport{Cutoff: cutoff, Reclaimed: []string{}}

	stale, err := s.invoiceRepo.ListStaleClaims(ctx, cutoff, s.cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale claims: %w", err)
	}
	report.Candidates = len(stale)

	for _, inv := range stale {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		var reclaimed bool
		err := s.withRetry(ctx, "reclaim stale claim", func(ctx context.Context) error {
			var reclaimErr error
			reclaimed, reclaimErr = s.invoiceRepo.ReclaimStaleClaim(ctx, inv.InvoiceID, cutoff, now)
			return reclaimErr
		})
		switch {
		case err != nil:
			report.Failed++
			s.LogError(ctx, err, "Failed to reclaim stale claim", slog.String("invoice_id", inv.InvoiceID))
		case !reclaimed:
			report.Skipped++
		default:
			report.Reclaimed = append(report.Reclaimed, inv.InvoiceID)
			reviewer := derefString(inv.CurrentReviewerID)
			s.LogInfo(ctx, "Reclaimed stale review claim",
				slog.String("invoice_id", inv.InvoiceID),
				slog.String("reviewer_id", reviewer))
			s.recordActivity(ctx, domain.EntityInvoice, inv.InvoiceID, "reclaimed", domain.SystemActorID, "previous reviewer "+reviewer)
			s.notify(ctx, reviewer, ports.NotifyInvoiceReclaimed, map[string]string{"invoiceId": inv.InvoiceID})
		}
	}

	if report.Candidates > 0 {
		s.LogInfo(ctx, "Stale claim sweep finished",
			slog.Int("candidates", report.Candidates),
			slog.Int("reclaimed", len(report.Reclaimed)),
			slog.Int("skipped", report.Skipped),
			slog.Int("failed", report.Failed))
	}
	return report, nil
}

func (s *sweeperService) AuditOrphans(ctx context.Context) (*domain.OrphanReport, error) {
	stored, err := s.objects.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stored objects: %w", err)
	}
	referenced, err := s.invoiceRepo.ListStorageKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoice storage keys: %w", err)
	}

	report := &domain.OrphanReport{
		StoredObjects:     len(stored),
		ReferencedKeys:    len(referenced),
		Unreferenced:      difference(stored, referenced),
		MissingForInvoice: difference(referenced, stored),
	}
	if len(report.Unreferenced) > 0 || len(report.MissingForInvoice) > 0 {
		s.GetLogger(ctx).Warn("Storage and invoice references disagree",
			slog.Int("unreferenced", len(report.Unreferenced)),
			slog.Int("missing", len(report.MissingForInvoice)))
	}
	return report, nil
}

func (s *sweeperService) PruneExpired(ctx context.Context, now time.Time) (*domain.PruneReport, error) {
	report := &domain.PruneReport{}
	var errs []error

	n, err := s.maintenanceRepo.DeleteExpiredSessions(ctx, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to prune sessions: %w", err))
	}
	report.ExpiredSessions = n

	n, err = s.maintenanceRepo.DeleteActivityLogsBefore(ctx, now.Add(-s.cfg.ActivityRetention))
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to prune activity logs: %w", err))
	}
	report.StaleLogs = n

	s.LogDebug(ctx, "Pruned expired rows",
		slog.Int64("sessions", report.ExpiredSessions),
		slog.Int64("activity_logs", report.StaleLogs))
	return report, errors.Join(errs...)
}

func (s *sweeperService) AuditLedger(ctx context.Context) (*domain.LedgerAuditReport, error) {
	accounts, err := s.ledger.ListAccountIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger accounts: %w", err)
	}

	report := &domain.LedgerAuditReport{Inconsistent: []domain.ChainReport{}}
	var errs []error
	for _, accountID := range accounts {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		chain, err := s.ledger.VerifyChain(ctx, accountID)
		if err != nil {
			errs = append(errs, fmt.Errorf("account %s: %w", accountID, err))
			continue
		}
		report.AccountsChecked++
		if !chain.Consistent() {
			report.Inconsistent = append(report.Inconsistent, *chain)
			s.GetLogger(ctx).Error("Ledger chain inconsistent",
				slog.String("account_id", accountID),
				slog.String("cached_balance", chain.CachedBalance.String()),
				slog.String("replayed_balance", chain.ReplayedBalance.String()))
		}
	}
	return report, errors.Join(errs...)
}

// RunHygiene runs the daily tasks concurrently. Each task reports its own error.
func (s *sweeperService) RunHygiene(ctx context.Context, now time.Time) *domain.HygieneReport {
	report := &domain.HygieneReport{}
	var (
		mu   sync.Mutex
		errs = map[string]string{}
	)
	record := func(task string, err error) {
		if err == nil {
			return
		}
		mu.Lock()
		errs[task] = err.Error()
		mu.Unlock()
		s.LogError(ctx, err, "Hygiene task failed", slog.String("task", task))
	}

	var g errgroup.Group
	g.Go(func() error {
		orphans, err := s.AuditOrphans(ctx)
		report.Orphans = orphans
		record("orphans", err)
		return nil
	})
	g.Go(func() error {
		pruned, err := s.PruneExpired(ctx, now)
		report.Pruned = pruned
		record("prune", err)
		return nil
	})
	g.Go(func() error {
		ledger, err := s.AuditLedger(ctx)
		report.Ledger = ledger
		record("ledger", err)
		return nil
	})
	_ = g.Wait()

	if len(errs) > 0 {
		report.Errors = errs
	}
	return report
}

// difference returns the sorted elements of a that are not in b.
func difference(a, b []string) []string {
	seen := make(map[string]struct{}, len(b))
	for _, k := range b {
		seen[k] = struct{}{}
	}
	out := []string{}
	for _, k := range a {
		if _, ok := seen[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
