package export

import (
	"context"
	"fmt"
	"io"

	"mercator-hq/warden/pkg/ledger"
)

// Exporter writes records in one format.
type Exporter interface {
	Export(ctx context.Context, records []*ledger.Record, w io.Writer) error
	ExportStream(ctx context.Context, records <-chan *ledger.Record, w io.Writer) error
}

// ExportError reports a failed export.
type ExportError struct {
	Format      string
	RecordCount int
	Cause       error
}

// Error implements the error interface.
func (e *ExportError) Error() string {
	return fmt.Sprintf("export to %s failed after %d records: %v", e.Format, e.RecordCount, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ExportError) Unwrap() error {
	return e.Cause
}

// NewExportError creates a new ExportError.
func NewExportError(format string, count int, cause error) *ExportError {
	return &ExportError{Format: format, RecordCount: count, Cause: cause}
}

// ForFormat returns the exporter for "json" or "csv".
func ForFormat(format string, pretty bool) (Exporter, error) {
	switch format {
	case "json":
		return NewJSONExporter(pretty), nil
	case "csv":
		return NewCSVExporter(true), nil
	}
	return nil, fmt.Errorf("unsupported export format %q", format)
}

// Stream reads records from l starting at offset in batches and sends them
// on the returned channel. Both channels are closed when the ledger end is
// reached; a read failure is sent on the error channel first.
func Stream(ctx context.Context, l *ledger.Ledger, offset int64, batch int) (<-chan *ledger.Record, <-chan error) {
	if batch <= 0 {
		batch = 500
	}

	out := make(chan *ledger.Record, batch)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		for {
			records, err := l.Records(ctx, offset, batch)
			if err != nil {
				errCh <- err
				return
			}
			if len(records) == 0 {
				return
			}
			for _, r := range records {
				select {
				case out <- r:
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				}
			}
			offset += int64(len(records))
		}
	}()

	return out, errCh
}
