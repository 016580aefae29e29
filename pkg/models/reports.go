package models

import "time"

// PhaseReport summarizes one batch-migration phase run. Phases always
// produce a report, never a silent partial success.
type PhaseReport struct {
	Phase      string    `json:"phase"`
	Migrated   int       `json:"migrated"`
	Skipped    int       `json:"skipped"`
	Errored    int       `json:"errored"`
	Messages   []string  `json:"messages,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func (r *PhaseReport) AddMessage(msg string) {
	r.Messages = append(r.Messages, msg)
}

// EntityReconciliation is the per-entity-type slice of a reconciliation run.
type EntityReconciliation struct {
	EntityType string   `json:"entity_type"`
	Missing    int      `json:"missing"`
	Synced     int      `json:"synced"`
	Skipped    int      `json:"skipped"`
	Errored    int      `json:"errored"`
	LegacyIDs  []string `json:"legacy_ids,omitempty"`
}

// ReconciliationReport summarizes a reconciliation run. In dry-run mode
// Synced stays zero and LegacyIDs enumerates what would be synced.
type ReconciliationReport struct {
	DryRun     bool                   `json:"dry_run"`
	Entities   []EntityReconciliation `json:"entities"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt time.Time              `json:"finished_at"`
}

func (r *ReconciliationReport) TotalSynced() int {
	total := 0
	for _, e := range r.Entities {
		total += e.Synced
	}
	return total
}

func (r *ReconciliationReport) TotalMissing() int {
	total := 0
	for _, e := range r.Entities {
		total += e.Missing
	}
	return total
}

// CheckStatus classifies a verification check.
type CheckStatus string

const (
	CheckPassed  CheckStatus = "passed"
	CheckFailed  CheckStatus = "failed"
	CheckWarning CheckStatus = "warning"
)

type VerificationCheck struct {
	Name    string      `json:"name"`
	Status  CheckStatus `json:"status"`
	Message string      `json:"message"`
}

// VerificationResult aggregates checks into a single gate: any failed check
// blocks phase progression and the read cutover. Warnings are informational.
type VerificationResult struct {
	Mode       string              `json:"mode"`
	Checks     []VerificationCheck `json:"checks"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
}

func (r *VerificationResult) Add(name string, status CheckStatus, message string) {
	r.Checks = append(r.Checks, VerificationCheck{Name: name, Status: status, Message: message})
}

func (r *VerificationResult) Passed() bool {
	for _, c := range r.Checks {
		if c.Status == CheckFailed {
			return false
		}
	}
	return true
}

func (r *VerificationResult) Count(status CheckStatus) int {
	n := 0
	for _, c := range r.Checks {
		if c.Status == status {
			n++
		}
	}
	return n
}
