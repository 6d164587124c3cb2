package export

import (
	"context"
	"encoding/json"
	"io"

	"mercator-hq/warden/pkg/ledger"
)

// JSONExporter writes records as a JSON array.
type JSONExporter struct {
	// Pretty enables indentation.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export writes records as one JSON array.
func (e *JSONExporter) Export(ctx context.Context, records []*ledger.Record, w io.Writer) error {
	if records == nil {
		records = []*ledger.Record{}
	}

	var (
		data []byte
		err  error
	)
	if e.Pretty {
		data, err = json.MarshalIndent(records, "", "  ")
	} else {
		data, err = json.Marshal(records)
	}
	if err != nil {
		return NewExportError("json", len(records), err)
	}

	if _, err := w.Write(data); err != nil {
		return NewExportError("json", len(records), err)
	}
	return nil
}

// ExportStream writes records from a channel as a JSON array without
// holding them all in memory.
func (e *JSONExporter) ExportStream(ctx context.Context, records <-chan *ledger.Record, w io.Writer) error {
	if _, err := io.WriteString(w, "["); err != nil {
		return NewExportError("json", 0, err)
	}

	count := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case record, ok := <-records:
			if !ok {
				if _, err := io.WriteString(w, "]"); err != nil {
					return NewExportError("json", count, err)
				}
				return nil
			}

			if count > 0 {
				sep := ","
				if e.Pretty {
					sep = ",\n"
				}
				if _, err := io.WriteString(w, sep); err != nil {
					return NewExportError("json", count, err)
				}
			}

			data, err := e.serialize(record)
			if err != nil {
				return NewExportError("json", count, err)
			}
			if _, err := w.Write(data); err != nil {
				return NewExportError("json", count, err)
			}
			count++
		}
	}
}

func (e *JSONExporter) serialize(record *ledger.Record) ([]byte, error) {
	if e.Pretty {
		return json.MarshalIndent(record, "  ", "  ")
	}
	return json.Marshal(record)
}
