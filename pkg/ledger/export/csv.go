package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"mercator-hq/warden/pkg/ledger"
)

// CSVExporter writes one row per record. List fields are joined with "|".
type CSVExporter struct {
	// IncludeHeader writes a header row first.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

var csvHeader = []string{
	"seq", "id", "timestamp",
	"subject", "corridor", "proposal_id",
	"evidence", "policy",
	"outcome", "degraded", "mitigations", "reason_codes",
	"envelopes", "violations", "validation_errors",
	"prev_hash", "key_id",
}

// Export writes records as CSV.
func (e *CSVExporter) Export(ctx context.Context, records []*ledger.Record, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(csvHeader); err != nil {
			return NewExportError("csv", 0, err)
		}
	}
	for i, record := range records {
		if err := writer.Write(row(record)); err != nil {
			return NewExportError("csv", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return NewExportError("csv", len(records), err)
	}
	return nil
}

// ExportStream writes records from a channel as CSV, flushing every 100 rows.
func (e *CSVExporter) ExportStream(ctx context.Context, records <-chan *ledger.Record, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(csvHeader); err != nil {
			return NewExportError("csv", 0, err)
		}
	}

	count := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case record, ok := <-records:
			if !ok {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return NewExportError("csv", count, err)
				}
				return nil
			}

			if err := writer.Write(row(record)); err != nil {
				return NewExportError("csv", count, err)
			}
			count++

			if count%100 == 0 {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return NewExportError("csv", count, err)
				}
			}
		}
	}
}

func row(r *ledger.Record) []string {
	envelopes := make([]string, len(r.Envelopes))
	for i, e := range r.Envelopes {
		envelopes[i] = e.Name + ":" + formatFloat(e.Before) + "->" + formatFloat(e.After)
	}
	violations := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		violations[i] = v.String()
	}

	return []string{
		strconv.FormatInt(r.Sequence, 10),
		r.ID,
		r.Timestamp.Format(time.RFC3339Nano),
		r.Subject,
		r.Corridor,
		r.ProposalID,
		r.Evidence,
		r.Policy,
		string(r.Outcome),
		strconv.FormatBool(r.Degraded),
		strings.Join(r.Mitigations, "|"),
		strings.Join(r.ReasonCodes, "|"),
		strings.Join(envelopes, "|"),
		strings.Join(violations, "|"),
		strings.Join(r.ValidationErrors, "|"),
		r.PrevHash,
		r.KeyID,
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
