package verify

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/neerajsamtani/ledgershift/pkg/legacy"
	"github.com/neerajsamtani/ledgershift/pkg/models"
	"github.com/neerajsamtani/ledgershift/pkg/tracing"
)

// maxMismatchMessages bounds the per-check message list so a badly
// diverged store does not produce a megabyte of report.
const maxMismatchMessages = 10

// checkFields compares records field by field across stores. Spot-check
// mode samples a random subset per entity type; thorough mode walks every
// record.
func (s *Suite) checkFields(ctx context.Context, mode string, result *models.VerificationResult) error {
	ctx, span := tracing.StartSpan(ctx, "verify.Suite.checkFields")
	defer span.End()

	liDocs, err := s.legacy.ListAll(ctx, legacy.CollectionLineItems)
	if err != nil {
		return err
	}
	evtDocs, err := s.legacy.ListAll(ctx, legacy.CollectionEvents)
	if err != nil {
		return err
	}

	if mode == ModeSpotCheck {
		liDocs = sample(liDocs, s.sampleSize)
		evtDocs = sample(evtDocs, s.sampleSize)
	}

	s.compareRecords(ctx, result, "field_comparison_line_items", liDocs, func(ctx context.Context, doc legacy.Document) []string {
		li, err := s.liRepo.GetByLegacyID(ctx, doc.ID())
		if err != nil || li == nil {
			return []string{"no new-store row"}
		}
		return s.fieldMismatches(doc.Float("amount"), li.Amount, doc.Time("date"), li.OccurredAt, doc.String("description"), li.Description)
	})

	s.compareRecords(ctx, result, "field_comparison_events", evtDocs, func(ctx context.Context, doc legacy.Document) []string {
		evt, err := s.eventRepo.GetByLegacyID(ctx, doc.ID())
		if err != nil || evt == nil {
			return []string{"no new-store row"}
		}
		return s.fieldMismatches(doc.Float("amount"), evt.Amount, doc.Time("date"), evt.OccurredAt, doc.String("description"), evt.Description)
	})

	return nil
}

func (s *Suite) compareRecords(ctx context.Context, result *models.VerificationResult, name string, docs []legacy.Document, compare func(ctx context.Context, doc legacy.Document) []string) {
	mismatched := 0
	messages := make([]string, 0, maxMismatchMessages)

	for _, doc := range docs {
		if doc.ID() == "" {
			continue
		}
		problems := compare(ctx, doc)
		if len(problems) == 0 {
			continue
		}
		mismatched++
		if len(messages) < maxMismatchMessages {
			messages = append(messages, fmt.Sprintf("%s: %v", doc.ID(), problems))
		}
	}

	if mismatched > 0 {
		result.Add(name, models.CheckFailed, fmt.Sprintf("%d of %d records diverge: %v", mismatched, len(docs), messages))
		return
	}
	result.Add(name, models.CheckPassed, fmt.Sprintf("%d records compared", len(docs)))
}

// fieldMismatches compares the shared fields of a legacy document and its
// new-store row. Amounts tolerate the configured cent threshold, dates a
// second of precision loss. A zero legacy date means the source never
// carried one and is not compared.
func (s *Suite) fieldMismatches(legacyAmount, newAmount float64, legacyDate, newDate time.Time, legacyDesc, newDesc string) []string {
	var problems []string

	if math.Abs(legacyAmount-newAmount) > s.amountTolerance {
		problems = append(problems, fmt.Sprintf("amount %.2f vs %.2f", legacyAmount, newAmount))
	}
	if !legacyDate.IsZero() {
		diff := legacyDate.Sub(newDate)
		if diff < 0 {
			diff = -diff
		}
		if diff > DateTolerance {
			problems = append(problems, fmt.Sprintf("date %s vs %s", legacyDate.Format(time.RFC3339), newDate.Format(time.RFC3339)))
		}
	}
	if legacyDesc != newDesc {
		problems = append(problems, "description differs")
	}

	return problems
}

func sample(docs []legacy.Document, n int) []legacy.Document {
	if len(docs) <= n {
		return docs
	}
	sampled := make([]legacy.Document, len(docs))
	copy(sampled, docs)
	rand.Shuffle(len(sampled), func(i, j int) {
		sampled[i], sampled[j] = sampled[j], sampled[i]
	})
	return sampled[:n]
}
