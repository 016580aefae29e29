// Package legacy wraps the SurrealDB document store the system is
// migrating away from. It stays a thin read/write adapter: shaping,
// resolution, and migration semantics live in the callers.
package legacy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Gobusters/ectologger"
	surrealdb "github.com/surrealdb/surrealdb.go"

	"github.com/neerajsamtani/ledgershift/config"
	"github.com/neerajsamtani/ledgershift/pkg/tracing"
)

// Connection is the slice of the SurrealDB driver the store uses. Narrow so
// tests can fake the wire without a running server.
type Connection interface {
	Use(ns string, db string) (any, error)
	Query(sql string, vars any) (any, error)
	Select(what string) (any, error)
	Create(thing string, data any) (any, error)
	Change(what string, data any) (any, error)
	Delete(what string) (any, error)
	Close()
}

// Store is the legacy-store adapter shared by the dual-write coordinator,
// the batch migrator, reconciliation and verification.
type Store struct {
	conn   Connection
	logger ectologger.Logger
}

func NewStore(conn Connection, logger ectologger.Logger) *Store {
	return &Store{conn: conn, logger: logger}
}

// Connect dials the legacy store and selects the configured namespace.
func Connect(cfg *config.Config, logger ectologger.Logger) (*Store, error) {
	db, err := surrealdb.New(cfg.LegacyURL)
	if err != nil {
		logger.WithError(err).Errorf("Failed to connect to legacy store at %s", cfg.LegacyURL)
		return nil, err
	}

	if cfg.LegacyUser != "" {
		if _, err := db.Signin(map[string]any{"user": cfg.LegacyUser, "pass": cfg.LegacyPassword}); err != nil {
			return nil, fmt.Errorf("legacy store signin: %w", err)
		}
	}

	if _, err := db.Use(cfg.LegacyNamespace, cfg.LegacyDatabase); err != nil {
		return nil, fmt.Errorf("legacy store use %s/%s: %w", cfg.LegacyNamespace, cfg.LegacyDatabase, err)
	}

	logger.Infof("Connected to legacy store at %s", cfg.LegacyURL)
	return NewStore(db, logger), nil
}

func (s *Store) Close() {
	s.conn.Close()
}

// ListAll returns every document in a collection.
func (s *Store) ListAll(ctx context.Context, collection string) ([]Document, error) {
	_, span := tracing.StartSpan(ctx, "legacy.Store.ListAll")
	defer span.End()

	raw, err := s.conn.Select(collection)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("collection", collection).Error("Failed to list legacy collection")
		return nil, err
	}

	return decodeDocuments(raw)
}

// GetByID returns a single document by its legacy id, or nil when missing.
func (s *Store) GetByID(ctx context.Context, collection, id string) (Document, error) {
	_, span := tracing.StartSpan(ctx, "legacy.Store.GetByID")
	defer span.End()

	raw, err := s.conn.Query("SELECT * FROM type::table($collection) WHERE id = $id", map[string]any{
		"collection": collection,
		"id":         id,
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"collection": collection, "id": id}).Error("Failed to get legacy document")
		return nil, err
	}

	docs, err := decodeQueryResult(raw)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0], nil
}

// Create inserts a document. Uniqueness is enforced store-side; callers
// classify duplicate-key errors as idempotent skips.
func (s *Store) Create(ctx context.Context, collection string, doc Document) (Document, error) {
	_, span := tracing.StartSpan(ctx, "legacy.Store.Create")
	defer span.End()

	raw, err := s.conn.Create(collection, doc)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("collection", collection).Error("Failed to create legacy document")
		return nil, err
	}

	return decodeDocument(raw)
}

// Update merges fields into an existing document.
func (s *Store) Update(ctx context.Context, collection, id string, doc Document) (Document, error) {
	_, span := tracing.StartSpan(ctx, "legacy.Store.Update")
	defer span.End()

	raw, err := s.conn.Change(recordID(collection, id), doc)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"collection": collection, "id": id}).Error("Failed to update legacy document")
		return nil, err
	}

	return decodeDocument(raw)
}

// Delete removes a document by id.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, span := tracing.StartSpan(ctx, "legacy.Store.Delete")
	defer span.End()

	if _, err := s.conn.Delete(recordID(collection, id)); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"collection": collection, "id": id}).Error("Failed to delete legacy document")
		return err
	}
	return nil
}

// Count returns the number of documents in a collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	_, span := tracing.StartSpan(ctx, "legacy.Store.Count")
	defer span.End()

	docs, err := s.ListAll(ctx, collection)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

// ListIDs returns the legacy ids present in a collection. Used by the
// reconciliation set difference.
func (s *Store) ListIDs(ctx context.Context, collection string) ([]string, error) {
	docs, err := s.ListAll(ctx, collection)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		if id := doc.ID(); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func recordID(collection, id string) string {
	if strings.Contains(id, ":") {
		return id
	}
	return collection + ":" + id
}

func decodeDocuments(raw any) ([]Document, error) {
	var docs []Document
	if err := roundTrip(raw, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func decodeDocument(raw any) (Document, error) {
	// Single-record responses arrive either bare or as a one-element slice.
	if arr, ok := raw.([]any); ok {
		if len(arr) == 0 {
			return nil, nil
		}
		raw = arr[0]
	}

	var doc Document
	if err := roundTrip(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func decodeQueryResult(raw any) ([]Document, error) {
	// Query responses wrap rows as [{"result": [...], "status": "OK"}].
	results, ok := raw.([]any)
	if !ok {
		return decodeDocuments(raw)
	}

	var docs []Document
	for _, res := range results {
		wrapper, ok := res.(map[string]any)
		if !ok {
			continue
		}
		batch, err := decodeDocuments(wrapper["result"])
		if err != nil {
			return nil, err
		}
		docs = append(docs, batch...)
	}
	return docs, nil
}

func roundTrip(src, dest any) error {
	b, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dest)
}
