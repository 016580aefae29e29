// Package verify compares the two stores and gates phase advancement and
// the read cutover. Checks classify as passed, failed, or warning; any
// failed check blocks progression.
package verify

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/neerajsamtani/ledgershift/internal/repositories/account"
	"github.com/neerajsamtani/ledgershift/internal/repositories/event"
	"github.com/neerajsamtani/ledgershift/internal/repositories/lineitem"
	"github.com/neerajsamtani/ledgershift/internal/repositories/reference"
	"github.com/neerajsamtani/ledgershift/internal/repositories/transaction"
	"github.com/neerajsamtani/ledgershift/internal/repositories/user"
	"github.com/neerajsamtani/ledgershift/pkg/database"
	"github.com/neerajsamtani/ledgershift/pkg/legacy"
	"github.com/neerajsamtani/ledgershift/pkg/models"
	"github.com/neerajsamtani/ledgershift/pkg/tracing"
)

// Verification modes. Spot-check samples a fixed-size random subset for
// field comparison; thorough compares every record.
const (
	ModeSpotCheck = "spot_check"
	ModeThorough  = "thorough"
)

// Field-comparison tolerances. Amounts crossed a float/decimal boundary
// during migration and timestamps lost sub-second precision.
const (
	DateTolerance = time.Second
)

// LegacyStore is the slice of the legacy store the suite reads.
type LegacyStore interface {
	Count(ctx context.Context, collection string) (int, error)
	ListAll(ctx context.Context, collection string) ([]legacy.Document, error)
}

// Suite runs the verification checks against both stores.
type Suite struct {
	db              database.DB
	legacy          LegacyStore
	logger          ectologger.Logger
	sampleSize      int
	amountTolerance float64

	refRepos  map[models.EntityType]*reference.Repository
	txnRepo   *transaction.Repository
	liRepo    *lineitem.Repository
	eventRepo *event.Repository
	acctRepo  *account.Repository
	userRepo  *user.Repository
}

type SuiteParams struct {
	DB                   database.DB
	Legacy               LegacyStore
	Logger               ectologger.Logger
	SampleSize           int
	AmountToleranceCents int
	ReferenceRepos       map[models.EntityType]*reference.Repository
	TransactionRepo      *transaction.Repository
	LineItemRepo         *lineitem.Repository
	EventRepo            *event.Repository
	AccountRepo          *account.Repository
	UserRepo             *user.Repository
}

func NewSuite(params SuiteParams) *Suite {
	sampleSize := params.SampleSize
	if sampleSize <= 0 {
		sampleSize = 25
	}
	toleranceCents := params.AmountToleranceCents
	if toleranceCents <= 0 {
		toleranceCents = 1
	}
	return &Suite{
		db:              params.DB,
		legacy:          params.Legacy,
		logger:          params.Logger,
		sampleSize:      sampleSize,
		amountTolerance: float64(toleranceCents) / 100,
		refRepos:        params.ReferenceRepos,
		txnRepo:         params.TransactionRepo,
		liRepo:          params.LineItemRepo,
		eventRepo:       params.EventRepo,
		acctRepo:        params.AccountRepo,
		userRepo:        params.UserRepo,
	}
}

// Run executes every check and aggregates them into a single gate.
func (s *Suite) Run(ctx context.Context, mode string) (*models.VerificationResult, error) {
	ctx, span := tracing.StartSpan(ctx, "verify.Suite.Run")
	defer span.End()

	if mode != ModeSpotCheck && mode != ModeThorough {
		return nil, fmt.Errorf("unknown verification mode %q", mode)
	}

	result := &models.VerificationResult{Mode: mode, StartedAt: time.Now().UTC()}

	if err := s.checkCountParity(ctx, result); err != nil {
		return nil, err
	}
	if err := s.checkFields(ctx, mode, result); err != nil {
		return nil, err
	}
	if err := s.checkReferentialIntegrity(ctx, result); err != nil {
		return nil, err
	}
	if err := s.checkDuplicateLegacyIDs(ctx, result); err != nil {
		return nil, err
	}

	result.FinishedAt = time.Now().UTC()

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"mode":     mode,
		"passed":   result.Passed(),
		"failed":   result.Count(models.CheckFailed),
		"warnings": result.Count(models.CheckWarning),
	}).Info("verification finished")

	return result, nil
}

// checkCountParity compares row counts per entity type and in total. The
// new store legitimately diverges upward from synthesized records (manual
// transactions, the Unknown payment method) and downward for reference
// data where legacy duplicate names collapse on upsert, so those
// directions warn instead of failing.
func (s *Suite) checkCountParity(ctx context.Context, result *models.VerificationResult) error {
	totalLegacy, totalNew := 0, int64(0)

	for _, entityType := range models.ReferenceEntityTypes {
		repo, ok := s.refRepos[entityType]
		if !ok {
			return fmt.Errorf("no %s repository registered", entityType)
		}
		legacyCount, err := s.legacy.Count(ctx, entityType.Table())
		if err != nil {
			return err
		}
		newCount, err := repo.Count(ctx)
		if err != nil {
			return err
		}
		totalLegacy += legacyCount
		totalNew += newCount

		name := "count_parity_" + string(entityType)
		switch {
		case int64(legacyCount) == newCount:
			result.Add(name, models.CheckPassed, fmt.Sprintf("%d rows in both stores", newCount))
		case newCount == 0 && legacyCount > 0:
			result.Add(name, models.CheckFailed, fmt.Sprintf("legacy has %d rows, new store has none", legacyCount))
		default:
			result.Add(name, models.CheckWarning, fmt.Sprintf("legacy %d vs new %d, name dedupe and sentinels shift reference counts", legacyCount, newCount))
		}
	}

	for _, source := range models.RawSources {
		legacyCount, err := s.legacy.Count(ctx, legacy.RawCollectionFor(source))
		if err != nil {
			return err
		}
		newCount, err := s.txnRepo.Count(ctx, source)
		if err != nil {
			return err
		}
		totalLegacy += legacyCount
		totalNew += newCount
		s.addParity(result, "count_parity_transactions_"+source, legacyCount, newCount)
	}

	checks := []struct {
		name       string
		collection string
		count      func(ctx context.Context) (int64, error)
	}{
		{"count_parity_line_items", legacy.CollectionLineItems, s.liRepo.Count},
		{"count_parity_events", legacy.CollectionEvents, s.eventRepo.Count},
		{"count_parity_accounts", legacy.CollectionAccounts, s.acctRepo.Count},
		{"count_parity_users", legacy.CollectionUsers, s.userRepo.Count},
	}
	for _, check := range checks {
		legacyCount, err := s.legacy.Count(ctx, check.collection)
		if err != nil {
			return err
		}
		newCount, err := check.count(ctx)
		if err != nil {
			return err
		}
		totalLegacy += legacyCount
		totalNew += newCount
		s.addParity(result, check.name, legacyCount, newCount)
	}

	s.addParity(result, "count_parity_total", totalLegacy, totalNew)
	return nil
}

func (s *Suite) addParity(result *models.VerificationResult, name string, legacyCount int, newCount int64) {
	switch {
	case int64(legacyCount) == newCount:
		result.Add(name, models.CheckPassed, fmt.Sprintf("%d rows in both stores", newCount))
	case newCount < int64(legacyCount):
		result.Add(name, models.CheckFailed, fmt.Sprintf("new store is missing rows, legacy %d vs new %d", legacyCount, newCount))
	default:
		result.Add(name, models.CheckWarning, fmt.Sprintf("new store has extra rows, legacy %d vs new %d", legacyCount, newCount))
	}
}

// anti-join orphan queries, one per required relationship
var referentialChecks = []struct {
	name  string
	query string
}{
	{
		"referential_line_items_transaction",
		`SELECT COUNT(*) FROM line_items li LEFT JOIN transactions t ON li.transaction_id = t.id WHERE t.id IS NULL`,
	},
	{
		"referential_line_items_payment_method",
		`SELECT COUNT(*) FROM line_items li LEFT JOIN payment_methods pm ON li.payment_method_id = pm.id WHERE li.payment_method_id IS NOT NULL AND pm.id IS NULL`,
	},
	{
		"referential_events_category",
		`SELECT COUNT(*) FROM events e LEFT JOIN categories c ON e.category_id = c.id WHERE c.id IS NULL`,
	},
	{
		"referential_event_line_items",
		`SELECT COUNT(*) FROM event_line_items eli LEFT JOIN line_items li ON eli.line_item_id = li.id WHERE li.id IS NULL`,
	},
	{
		"referential_event_tags",
		`SELECT COUNT(*) FROM event_tags et LEFT JOIN tags t ON et.tag_id = t.id WHERE t.id IS NULL`,
	},
}

func (s *Suite) checkReferentialIntegrity(ctx context.Context, result *models.VerificationResult) error {
	for _, check := range referentialChecks {
		var orphans int64
		if err := database.Reader(ctx, s.db).GetContext(ctx, &orphans, check.query); err != nil {
			return fmt.Errorf("referential check %s failed to run: %w", check.name, err)
		}
		if orphans > 0 {
			result.Add(check.name, models.CheckFailed, fmt.Sprintf("%d orphaned rows", orphans))
		} else {
			result.Add(check.name, models.CheckPassed, "no orphaned rows")
		}
	}
	return nil
}

var duplicateLegacyIDTables = []models.EntityType{
	models.EntityCategory,
	models.EntityPaymentMethod,
	models.EntityParty,
	models.EntityTag,
	models.EntityTransaction,
	models.EntityLineItem,
	models.EntityEvent,
	models.EntityAccount,
	models.EntityUser,
}

func (s *Suite) checkDuplicateLegacyIDs(ctx context.Context, result *models.VerificationResult) error {
	for _, entityType := range duplicateLegacyIDTables {
		query := fmt.Sprintf(
			`SELECT COUNT(*) FROM (SELECT legacy_id FROM %s WHERE legacy_id IS NOT NULL GROUP BY legacy_id HAVING COUNT(*) > 1) dup`,
			entityType.Table(),
		)
		var dups int64
		if err := database.Reader(ctx, s.db).GetContext(ctx, &dups, query); err != nil {
			return fmt.Errorf("duplicate check for %s failed to run: %w", entityType, err)
		}
		name := "unique_legacy_ids_" + string(entityType)
		if dups > 0 {
			result.Add(name, models.CheckFailed, fmt.Sprintf("%d legacy ids stored more than once", dups))
		} else {
			result.Add(name, models.CheckPassed, "no duplicate legacy ids")
		}
	}
	return nil
}
