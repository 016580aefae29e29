// Package errors defines the failure taxonomy for the migration layer.
// The split matters operationally: primary-write failures abort, secondary
// failures are policy-driven, duplicate keys are idempotent skips.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/lib/pq"
)

// PrimaryWriteFailure means the legacy (authoritative) store rejected a
// write. The dual write aborts and the new store is never attempted.
type PrimaryWriteFailure struct {
	Operation string
	Err       error
}

func NewPrimaryWriteFailure(operation string, err error) *PrimaryWriteFailure {
	return &PrimaryWriteFailure{Operation: operation, Err: err}
}

func (e *PrimaryWriteFailure) Error() string {
	return fmt.Sprintf("primary write failed for '%s': %v", e.Operation, e.Err)
}

func (e *PrimaryWriteFailure) Unwrap() error {
	return e.Err
}

// SecondaryWriteFailure means the new store rejected a write after the
// legacy write succeeded. Whether it propagates depends on the per-entity
// criticality policy; either way the drift is recorded for reconciliation.
type SecondaryWriteFailure struct {
	Operation string
	Critical  bool
	Err       error
}

func NewSecondaryWriteFailure(operation string, critical bool, err error) *SecondaryWriteFailure {
	return &SecondaryWriteFailure{Operation: operation, Critical: critical, Err: err}
}

func (e *SecondaryWriteFailure) Error() string {
	return fmt.Sprintf("secondary write failed for '%s': %v", e.Operation, e.Err)
}

func (e *SecondaryWriteFailure) Unwrap() error {
	return e.Err
}

// ReferentialIntegrityError is raised at migration time when a required
// parent cannot be resolved. Line items recover by synthesizing a manual
// transaction; events fail the single record.
type ReferentialIntegrityError struct {
	EntityType string
	LegacyID   string
	Reference  string
}

func NewReferentialIntegrityError(entityType, legacyID, reference string) *ReferentialIntegrityError {
	return &ReferentialIntegrityError{EntityType: entityType, LegacyID: legacyID, Reference: reference}
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("%s '%s' references unresolvable %s", e.EntityType, e.LegacyID, e.Reference)
}

// UnmigratedEntityError is raised when reads point at the new store for an
// entity type with no registered handler. Failing loudly here prevents
// missing data from being mistaken for empty data.
type UnmigratedEntityError struct {
	EntityType string
}

func NewUnmigratedEntityError(entityType string) *UnmigratedEntityError {
	return &UnmigratedEntityError{EntityType: entityType}
}

func (e *UnmigratedEntityError) Error() string {
	return fmt.Sprintf("entity type '%s' has not been migrated to the new store", e.EntityType)
}

func (e *UnmigratedEntityError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusNotImplemented, e.Error()).AddMetaValue("entity_type", e.EntityType)
}

func IsPrimaryWriteFailure(err error) bool {
	var target *PrimaryWriteFailure
	return errors.As(err, &target)
}

func IsSecondaryWriteFailure(err error) bool {
	var target *SecondaryWriteFailure
	return errors.As(err, &target)
}

func IsReferentialIntegrityError(err error) bool {
	var target *ReferentialIntegrityError
	return errors.As(err, &target)
}

func IsUnmigratedEntityError(err error) bool {
	var target *UnmigratedEntityError
	return errors.As(err, &target)
}

// IsDuplicateKey reports whether an error is a store-level uniqueness
// violation. Concurrent creators race to exactly one winner; the loser
// treats this as "already migrated" and skips.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" // unique_violation
	}

	// SurrealDB reports uniqueness violations as plain error strings.
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate key")
}
