package readrouter

import (
	"context"

	"github.com/neerajsamtani/ledgershift/internal/repositories/account"
	"github.com/neerajsamtani/ledgershift/internal/repositories/event"
	"github.com/neerajsamtani/ledgershift/internal/repositories/lineitem"
	"github.com/neerajsamtani/ledgershift/internal/repositories/reference"
	"github.com/neerajsamtani/ledgershift/internal/repositories/transaction"
	"github.com/neerajsamtani/ledgershift/internal/repositories/user"
	"github.com/neerajsamtani/ledgershift/pkg/models"
)

// ReferenceHandler serves new-store reads for one reference table.
type ReferenceHandler struct {
	repo *reference.Repository
}

func NewReferenceHandler(repo *reference.Repository) *ReferenceHandler {
	return &ReferenceHandler{repo: repo}
}

func (h *ReferenceHandler) GetAll(ctx context.Context, filters map[string]string) ([]any, error) {
	refs, err := h.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]any, 0, len(refs))
	for i := range refs {
		if filters["active"] == "true" && !refs[i].Active {
			continue
		}
		records = append(records, &refs[i])
	}
	return records, nil
}

func (h *ReferenceHandler) GetByID(ctx context.Context, id string) (any, error) {
	ref, err := h.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ref == nil {
		ref, err = h.repo.GetByLegacyID(ctx, id)
		if err != nil {
			return nil, err
		}
	}
	if ref == nil {
		return nil, nil
	}
	return ref, nil
}

// TransactionHandler serves new-store reads for transactions.
type TransactionHandler struct {
	repo *transaction.Repository
}

func NewTransactionHandler(repo *transaction.Repository) *TransactionHandler {
	return &TransactionHandler{repo: repo}
}

func (h *TransactionHandler) GetAll(ctx context.Context, filters map[string]string) ([]any, error) {
	txns, err := h.repo.List(ctx, filters["source"])
	if err != nil {
		return nil, err
	}

	records := make([]any, 0, len(txns))
	for i := range txns {
		records = append(records, &txns[i])
	}
	return records, nil
}

func (h *TransactionHandler) GetByID(ctx context.Context, id string) (any, error) {
	txn, err := h.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		txn, err = h.repo.GetByLegacyID(ctx, id)
		if err != nil {
			return nil, err
		}
	}
	if txn == nil {
		return nil, nil
	}
	return txn, nil
}

// LineItemHandler serves new-store reads for line items.
type LineItemHandler struct {
	repo *lineitem.Repository
}

func NewLineItemHandler(repo *lineitem.Repository) *LineItemHandler {
	return &LineItemHandler{repo: repo}
}

func (h *LineItemHandler) GetAll(ctx context.Context, filters map[string]string) ([]any, error) {
	var items []models.LineItem
	var err error
	if txnID := filters["transaction_id"]; txnID != "" {
		items, err = h.repo.ListByTransaction(ctx, txnID)
	} else {
		items, err = h.repo.List(ctx)
	}
	if err != nil {
		return nil, err
	}

	records := make([]any, 0, len(items))
	for i := range items {
		records = append(records, &items[i])
	}
	return records, nil
}

func (h *LineItemHandler) GetByID(ctx context.Context, id string) (any, error) {
	li, err := h.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if li == nil {
		li, err = h.repo.GetByLegacyID(ctx, id)
		if err != nil {
			return nil, err
		}
	}
	if li == nil {
		return nil, nil
	}
	return li, nil
}

// EventHandler serves new-store reads for events.
type EventHandler struct {
	repo *event.Repository
}

func NewEventHandler(repo *event.Repository) *EventHandler {
	return &EventHandler{repo: repo}
}

func (h *EventHandler) GetAll(ctx context.Context, filters map[string]string) ([]any, error) {
	events, err := h.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]any, 0, len(events))
	for i := range events {
		if categoryID := filters["category_id"]; categoryID != "" && events[i].CategoryID != categoryID {
			continue
		}
		records = append(records, &events[i])
	}
	return records, nil
}

func (h *EventHandler) GetByID(ctx context.Context, id string) (any, error) {
	evt, err := h.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if evt == nil {
		evt, err = h.repo.GetByLegacyID(ctx, id)
		if err != nil {
			return nil, err
		}
	}
	if evt == nil {
		return nil, nil
	}
	return evt, nil
}

// AccountHandler serves new-store reads for accounts.
type AccountHandler struct {
	repo *account.Repository
}

func NewAccountHandler(repo *account.Repository) *AccountHandler {
	return &AccountHandler{repo: repo}
}

func (h *AccountHandler) GetAll(ctx context.Context, _ map[string]string) ([]any, error) {
	accts, err := h.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]any, 0, len(accts))
	for i := range accts {
		records = append(records, &accts[i])
	}
	return records, nil
}

func (h *AccountHandler) GetByID(ctx context.Context, id string) (any, error) {
	acct, err := h.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		acct, err = h.repo.GetByLegacyID(ctx, id)
		if err != nil {
			return nil, err
		}
	}
	if acct == nil {
		return nil, nil
	}
	return acct, nil
}

// UserHandler serves new-store reads for users.
type UserHandler struct {
	repo *user.Repository
}

func NewUserHandler(repo *user.Repository) *UserHandler {
	return &UserHandler{repo: repo}
}

func (h *UserHandler) GetAll(ctx context.Context, _ map[string]string) ([]any, error) {
	users, err := h.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]any, 0, len(users))
	for i := range users {
		records = append(records, &users[i])
	}
	return records, nil
}

func (h *UserHandler) GetByID(ctx context.Context, id string) (any, error) {
	u, err := h.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		u, err = h.repo.GetByLegacyID(ctx, id)
		if err != nil {
			return nil, err
		}
	}
	if u == nil {
		return nil, nil
	}
	return u, nil
}
