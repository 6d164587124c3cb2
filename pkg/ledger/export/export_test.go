package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"mercator-hq/warden/pkg/guard"
	"mercator-hq/warden/pkg/ledger"
	"mercator-hq/warden/pkg/ledger/storage"
)

func newLedger(t *testing.T, n int) *ledger.Ledger {
	t.Helper()
	signer, err := ledger.GenerateSigner("export-test")
	if err != nil {
		t.Fatalf("GenerateSigner() failed: %v", err)
	}
	l, err := ledger.Open(context.Background(), storage.NewMemoryBackend(), signer, ledger.Options{})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	for i := 0; i < n; i++ {
		_, err := l.Append(context.Background(), ledger.Draft{
			Subject:     "subject, with comma",
			Outcome:     guard.OutcomeForbidden,
			ReasonCodes: []string{guard.ReasonConsentRevoked, guard.ReasonCeilingViolation},
		})
		if err != nil {
			t.Fatalf("Append() failed: %v", err)
		}
	}
	return l
}

func TestJSONExporter(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, 3)

	for _, pretty := range []bool{false, true} {
		records, errs := Stream(ctx, l, 0, 2)

		var buf bytes.Buffer
		if err := NewJSONExporter(pretty).ExportStream(ctx, records, &buf); err != nil {
			t.Fatalf("ExportStream(pretty=%v) failed: %v", pretty, err)
		}
		if err := <-errs; err != nil {
			t.Fatalf("Stream() failed: %v", err)
		}

		var decoded []ledger.Record
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not a JSON array: %v\n%s", err, buf.String())
		}
		if len(decoded) != 3 || decoded[2].Sequence != 2 {
			t.Errorf("decoded %d records", len(decoded))
		}
	}

	var buf bytes.Buffer
	if err := NewJSONExporter(false).Export(ctx, nil, &buf); err != nil || buf.String() != "[]" {
		t.Errorf("Export(nil) = %q, %v", buf.String(), err)
	}
}

func TestCSVExporter(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, 2)

	records, err := l.Records(ctx, 0, 10)
	if err != nil {
		t.Fatalf("Records() failed: %v", err)
	}

	var buf bytes.Buffer
	if err := NewCSVExporter(true).Export(ctx, records, &buf); err != nil {
		t.Fatalf("Export() failed: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[1][3] != "subject, with comma" {
		t.Errorf("subject = %q", rows[1][3])
	}
	if rows[1][11] != strings.Join([]string{guard.ReasonCeilingViolation, guard.ReasonConsentRevoked}, "|") {
		t.Errorf("reason_codes = %q, want sorted", rows[1][11])
	}
}

func TestForFormat(t *testing.T) {
	if _, err := ForFormat("json", false); err != nil {
		t.Errorf("ForFormat(json) failed: %v", err)
	}
	if _, err := ForFormat("csv", false); err != nil {
		t.Errorf("ForFormat(csv) failed: %v", err)
	}
	if _, err := ForFormat("xml", false); err == nil {
		t.Error("ForFormat(xml) succeeded")
	}
}
