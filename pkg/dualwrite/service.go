package dualwrite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"

	"github.com/neerajsamtani/ledgershift/internal/repositories/account"
	"github.com/neerajsamtani/ledgershift/internal/repositories/event"
	"github.com/neerajsamtani/ledgershift/internal/repositories/lineitem"
	"github.com/neerajsamtani/ledgershift/internal/repositories/reference"
	"github.com/neerajsamtani/ledgershift/internal/repositories/transaction"
	"github.com/neerajsamtani/ledgershift/internal/repositories/user"
	apperrors "github.com/neerajsamtani/ledgershift/pkg/errors"
	"github.com/neerajsamtani/ledgershift/pkg/legacy"
	"github.com/neerajsamtani/ledgershift/pkg/models"
	"github.com/neerajsamtani/ledgershift/pkg/tracing"
)

// LegacyWriter is the slice of the legacy store the write path needs.
type LegacyWriter interface {
	Create(ctx context.Context, collection string, doc legacy.Document) (legacy.Document, error)
	Update(ctx context.Context, collection, id string, doc legacy.Document) (legacy.Document, error)
	Delete(ctx context.Context, collection, id string) error
}

// Executor runs one dual write. Satisfied by *Coordinator.
type Executor interface {
	Execute(ctx context.Context, operation string, entityType models.EntityType, legacyID string, critical bool, writeLegacy WriteFunc, writeNew NewWriteFunc) (*Outcome, error)
}

// Service is the logical write entry point used by request handlers. Every
// write goes legacy-first through the coordinator under the entity's
// criticality policy.
type Service struct {
	executor  Executor
	legacy    LegacyWriter
	policy    Policy
	validate  *validator.Validate
	logger    ectologger.Logger
	refRepos  map[models.EntityType]*reference.Repository
	txnRepo   *transaction.Repository
	liRepo    *lineitem.Repository
	eventRepo *event.Repository
	acctRepo  *account.Repository
	userRepo  *user.Repository
}

type ServiceParams struct {
	Executor        Executor
	Legacy          LegacyWriter
	Policy          Policy
	Logger          ectologger.Logger
	ReferenceRepos  map[models.EntityType]*reference.Repository
	TransactionRepo *transaction.Repository
	LineItemRepo    *lineitem.Repository
	EventRepo       *event.Repository
	AccountRepo     *account.Repository
	UserRepo        *user.Repository
}

func NewService(params ServiceParams) *Service {
	policy := params.Policy
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Service{
		executor:  params.Executor,
		legacy:    params.Legacy,
		policy:    policy,
		validate:  validator.New(),
		logger:    params.Logger,
		refRepos:  params.ReferenceRepos,
		txnRepo:   params.TransactionRepo,
		liRepo:    params.LineItemRepo,
		eventRepo: params.EventRepo,
		acctRepo:  params.AccountRepo,
		userRepo:  params.UserRepo,
	}
}

// referenceCollections maps reference entity types to legacy collections.
var referenceCollections = map[models.EntityType]string{
	models.EntityCategory:      legacy.CollectionCategories,
	models.EntityPaymentMethod: legacy.CollectionPaymentMethods,
	models.EntityParty:         legacy.CollectionParties,
	models.EntityTag:           legacy.CollectionTags,
}

// legacyDocID extracts the generated record id from a legacy leg's result.
func legacyDocID(result any) string {
	doc, ok := result.(legacy.Document)
	if !ok || doc == nil {
		return ""
	}
	return doc.ID()
}

// CreateReference dual-writes a reference row. The new-store leg upserts by
// name so a live create converges with a concurrent batch migration of the
// same name.
func (s *Service) CreateReference(ctx context.Context, entityType models.EntityType, ref *models.Reference) (*models.Reference, error) {
	ctx, span := tracing.StartSpan(ctx, "dualwrite.Service.CreateReference")
	defer span.End()

	repo, ok := s.refRepos[entityType]
	if !ok {
		return nil, fmt.Errorf("no reference repository for entity type %q", entityType)
	}
	if err := s.validate.Struct(ref); err != nil {
		return nil, err
	}

	collection := referenceCollections[entityType]
	operation := fmt.Sprintf("create_%s", entityType)

	outcome, err := s.executor.Execute(ctx, operation, entityType, "", s.policy.Critical(entityType),
		func(ctx context.Context) (any, error) {
			return s.legacy.Create(ctx, collection, legacy.Document{
				"name":   ref.Name,
				"active": ref.Active,
			})
		},
		func(ctx context.Context, legacyResult any) (any, error) {
			if id := legacyDocID(legacyResult); id != "" {
				ref.LegacyID = &id
			}
			stored, _, err := repo.Upsert(ctx, ref)
			return stored, err
		},
	)
	if err != nil {
		return nil, err
	}

	if stored, ok := outcome.NewResult.(*models.Reference); ok && stored != nil {
		return stored, nil
	}
	return ref, nil
}

// UpdateReference dual-writes a rename or activation change.
func (s *Service) UpdateReference(ctx context.Context, entityType models.EntityType, ref *models.Reference) error {
	ctx, span := tracing.StartSpan(ctx, "dualwrite.Service.UpdateReference")
	defer span.End()

	repo, ok := s.refRepos[entityType]
	if !ok {
		return fmt.Errorf("no reference repository for entity type %q", entityType)
	}
	if err := s.validate.Struct(ref); err != nil {
		return err
	}

	legacyID := ""
	if ref.LegacyID != nil {
		legacyID = *ref.LegacyID
	}
	collection := referenceCollections[entityType]
	operation := fmt.Sprintf("update_%s", entityType)

	_, err := s.executor.Execute(ctx, operation, entityType, legacyID, s.policy.Critical(entityType),
		func(ctx context.Context) (any, error) {
			if legacyID == "" {
				// Row was born in the new store; there is no legacy twin.
				return nil, nil
			}
			return s.legacy.Update(ctx, collection, legacyID, legacy.Document{
				"name":   ref.Name,
				"active": ref.Active,
			})
		},
		func(ctx context.Context, _ any) (any, error) {
			return nil, repo.Update(ctx, ref)
		},
	)
	return err
}

// DeleteReference dual-writes a reference row removal. The new store's
// foreign keys veto deletes of categories still referenced by events.
func (s *Service) DeleteReference(ctx context.Context, entityType models.EntityType, ref *models.Reference) error {
	ctx, span := tracing.StartSpan(ctx, "dualwrite.Service.DeleteReference")
	defer span.End()

	repo, ok := s.refRepos[entityType]
	if !ok {
		return fmt.Errorf("no reference repository for entity type %q", entityType)
	}

	legacyID := ""
	if ref.LegacyID != nil {
		legacyID = *ref.LegacyID
	}
	collection := referenceCollections[entityType]
	operation := fmt.Sprintf("delete_%s", entityType)

	_, err := s.executor.Execute(ctx, operation, entityType, legacyID, s.policy.Critical(entityType),
		func(ctx context.Context) (any, error) {
			if legacyID == "" {
				return nil, nil
			}
			return nil, s.legacy.Delete(ctx, collection, legacyID)
		},
		func(ctx context.Context, _ any) (any, error) {
			return nil, repo.Delete(ctx, ref.ID)
		},
	)
	return err
}

// CreateTransaction dual-writes a raw ingested transaction. A duplicate
// (source, source_id) on the new-store leg means the batch migrator or a
// concurrent write got there first; that is an idempotent skip, not a
// failure.
func (s *Service) CreateTransaction(ctx context.Context, txn *models.Transaction) (*models.Transaction, error) {
	ctx, span := tracing.StartSpan(ctx, "dualwrite.Service.CreateTransaction")
	defer span.End()

	if err := s.validate.Struct(txn); err != nil {
		return nil, err
	}

	collection := legacy.RawCollectionFor(txn.Source)
	if collection == "" {
		return nil, fmt.Errorf("no legacy collection for source %q", txn.Source)
	}

	outcome, err := s.executor.Execute(ctx, "create_transaction", models.EntityTransaction, "", s.policy.Critical(models.EntityTransaction),
		func(ctx context.Context) (any, error) {
			doc := legacy.Document{}
			if len(txn.Payload) > 0 {
				if err := json.Unmarshal(txn.Payload, &doc); err != nil {
					return nil, err
				}
			}
			return s.legacy.Create(ctx, collection, doc)
		},
		func(ctx context.Context, legacyResult any) (any, error) {
			if id := legacyDocID(legacyResult); id != "" {
				txn.LegacyID = &id
			}
			stored, err := s.txnRepo.Create(ctx, txn)
			if apperrors.IsDuplicateKey(err) {
				return s.txnRepo.GetBySourceID(ctx, txn.Source, txn.SourceID)
			}
			return stored, err
		},
	)
	if err != nil {
		return nil, err
	}

	if stored, ok := outcome.NewResult.(*models.Transaction); ok && stored != nil {
		return stored, nil
	}
	return txn, nil
}

// CreateLineItem dual-writes a normalized line item. PaymentMethodID may be
// nil; the new-store leg falls back to the "Unknown" sentinel.
func (s *Service) CreateLineItem(ctx context.Context, li *models.LineItem) (*models.LineItem, error) {
	ctx, span := tracing.StartSpan(ctx, "dualwrite.Service.CreateLineItem")
	defer span.End()

	if err := s.validate.Struct(li); err != nil {
		return nil, err
	}

	outcome, err := s.executor.Execute(ctx, "create_line_item", models.EntityLineItem, "", s.policy.Critical(models.EntityLineItem),
		func(ctx context.Context) (any, error) {
			return s.legacy.Create(ctx, legacy.CollectionLineItems, legacy.Document{
				"description": li.Description,
				"amount":      li.Amount,
				"date":        li.OccurredAt,
			})
		},
		func(ctx context.Context, legacyResult any) (any, error) {
			if id := legacyDocID(legacyResult); id != "" {
				li.LegacyID = &id
			}
			if li.PaymentMethodID == nil {
				sentinel, err := s.EnsureUnknownPaymentMethod(ctx)
				if err != nil {
					return nil, err
				}
				li.PaymentMethodID = &sentinel.ID
			}
			stored, err := s.liRepo.Create(ctx, li)
			if apperrors.IsDuplicateKey(err) && li.LegacyID != nil {
				return s.liRepo.GetByLegacyID(ctx, *li.LegacyID)
			}
			return stored, err
		},
	)
	if err != nil {
		return nil, err
	}

	if stored, ok := outcome.NewResult.(*models.LineItem); ok && stored != nil {
		return stored, nil
	}
	return li, nil
}

// CreateEvent dual-writes an event and its memberships.
func (s *Service) CreateEvent(ctx context.Context, evt *models.Event, lineItemIDs, tagIDs []string) (*models.Event, error) {
	ctx, span := tracing.StartSpan(ctx, "dualwrite.Service.CreateEvent")
	defer span.End()

	if err := s.validate.Struct(evt); err != nil {
		return nil, err
	}

	outcome, err := s.executor.Execute(ctx, "create_event", models.EntityEvent, "", s.policy.Critical(models.EntityEvent),
		func(ctx context.Context) (any, error) {
			return s.legacy.Create(ctx, legacy.CollectionEvents, legacy.Document{
				"description": evt.Description,
				"amount":      evt.Amount,
				"date":        evt.OccurredAt,
			})
		},
		func(ctx context.Context, legacyResult any) (any, error) {
			if id := legacyDocID(legacyResult); id != "" {
				evt.LegacyID = &id
			}
			stored, err := s.eventRepo.Create(ctx, evt, lineItemIDs, tagIDs)
			if apperrors.IsDuplicateKey(err) && evt.LegacyID != nil {
				return s.eventRepo.GetByLegacyID(ctx, *evt.LegacyID)
			}
			return stored, err
		},
	)
	if err != nil {
		return nil, err
	}

	if stored, ok := outcome.NewResult.(*models.Event); ok && stored != nil {
		return stored, nil
	}
	return evt, nil
}

// CreateAccount dual-writes a financial account.
func (s *Service) CreateAccount(ctx context.Context, acct *models.Account) (*models.Account, error) {
	ctx, span := tracing.StartSpan(ctx, "dualwrite.Service.CreateAccount")
	defer span.End()

	if err := s.validate.Struct(acct); err != nil {
		return nil, err
	}

	outcome, err := s.executor.Execute(ctx, "create_account", models.EntityAccount, "", s.policy.Critical(models.EntityAccount),
		func(ctx context.Context) (any, error) {
			return s.legacy.Create(ctx, legacy.CollectionAccounts, legacy.Document{
				"name":        acct.Name,
				"institution": acct.Institution,
			})
		},
		func(ctx context.Context, legacyResult any) (any, error) {
			if id := legacyDocID(legacyResult); id != "" {
				acct.LegacyID = &id
			}
			stored, _, err := s.acctRepo.Upsert(ctx, acct)
			return stored, err
		},
	)
	if err != nil {
		return nil, err
	}

	if stored, ok := outcome.NewResult.(*models.Account); ok && stored != nil {
		return stored, nil
	}
	return acct, nil
}

// CreateUser dual-writes an app user.
func (s *Service) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	ctx, span := tracing.StartSpan(ctx, "dualwrite.Service.CreateUser")
	defer span.End()

	if err := s.validate.Struct(u); err != nil {
		return nil, err
	}

	outcome, err := s.executor.Execute(ctx, "create_user", models.EntityUser, "", s.policy.Critical(models.EntityUser),
		func(ctx context.Context) (any, error) {
			return s.legacy.Create(ctx, legacy.CollectionUsers, legacy.Document{
				"username":         u.Username,
				"email":            u.Email,
				"venmo_handle":     u.VenmoHandle,
				"splitwise_handle": u.SplitwiseHandle,
			})
		},
		func(ctx context.Context, legacyResult any) (any, error) {
			if id := legacyDocID(legacyResult); id != "" {
				u.LegacyID = &id
			}
			stored, _, err := s.userRepo.Upsert(ctx, u)
			return stored, err
		},
	)
	if err != nil {
		return nil, err
	}

	if stored, ok := outcome.NewResult.(*models.User); ok && stored != nil {
		return stored, nil
	}
	return u, nil
}

// DeleteLineItem dual-writes a line item removal. When the deleted line
// item was the last one owned by a synthesized manual transaction, the
// orphaned owner is removed too; that is the only delete cascade in the
// migration subsystem.
func (s *Service) DeleteLineItem(ctx context.Context, li *models.LineItem) error {
	ctx, span := tracing.StartSpan(ctx, "dualwrite.Service.DeleteLineItem")
	defer span.End()

	legacyID := ""
	if li.LegacyID != nil {
		legacyID = *li.LegacyID
	}

	_, err := s.executor.Execute(ctx, "delete_line_item", models.EntityLineItem, legacyID, s.policy.Critical(models.EntityLineItem),
		func(ctx context.Context) (any, error) {
			if legacyID == "" {
				return nil, nil
			}
			return nil, s.legacy.Delete(ctx, legacy.CollectionLineItems, legacyID)
		},
		func(ctx context.Context, _ any) (any, error) {
			if err := s.liRepo.Delete(ctx, li.ID); err != nil {
				return nil, err
			}

			owner, err := s.txnRepo.GetByID(ctx, li.TransactionID)
			if err != nil || owner == nil || owner.Source != models.SourceManual {
				return nil, err
			}
			siblings, err := s.liRepo.ListByTransaction(ctx, owner.ID)
			if err != nil {
				return nil, err
			}
			if len(siblings) == 0 {
				return nil, s.txnRepo.Delete(ctx, owner.ID)
			}
			return nil, nil
		},
	)
	return err
}

// EnsureUnknownPaymentMethod returns the "Unknown" sentinel payment method,
// creating it on first use. Safe to race: the name's uniqueness constraint
// makes concurrent creates converge on one row.
func (s *Service) EnsureUnknownPaymentMethod(ctx context.Context) (*models.Reference, error) {
	repo, ok := s.refRepos[models.EntityPaymentMethod]
	if !ok {
		return nil, fmt.Errorf("no payment method repository registered")
	}

	sentinel, _, err := repo.Upsert(ctx, &models.Reference{
		Name:   models.UnknownPaymentMethodName,
		Active: true,
	})
	return sentinel, err
}
