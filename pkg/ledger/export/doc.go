// Package export writes audit records as JSON or CSV.
//
// Exports are views for auditors and tooling; the ledger itself stays the
// source of truth and exported files are not verifiable on their own.
//
//	exporter := export.NewCSVExporter(true)
//	records, errs := export.Stream(ctx, l, 0, 500)
//	if err := exporter.ExportStream(ctx, records, os.Stdout); err != nil {
//		return err
//	}
//	return <-errs
package export
