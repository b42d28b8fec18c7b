package ingest

import (
	"context"

	"ledgerdash/internal/core"
	"ledgerdash/internal/log"
)

// Prepare runs Load, Clean and Validate on the file at path and logs the
// diagnostics summary. The same file always yields the same table.
func Prepare(ctx context.Context, path string, logger *log.Logger) (*core.Table, Diagnostics, error) {
	if err := ctx.Err(); err != nil {
		return nil, Diagnostics{}, err
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentIngest)

	raw, err := Load(path)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load ledger", log.FieldSource, path, log.FieldError, err)
		return nil, Diagnostics{}, err
	}
	logger.DebugContext(ctx, "Ledger read", log.FieldSource, path, log.FieldRows, raw.Len())

	table, diag := Validate(Clean(raw))
	diag.Source = path

	logger.InfoContext(ctx, "Ledger validated", diag.LogArgs()...)
	if diag.DuplicateRows > 0 || diag.DroppedNegatives() > 0 {
		logger.WarnContext(ctx, "Rows dropped during validation",
			"duplicate_rows", diag.DuplicateRows,
			"negative_amounts", diag.DroppedNegatives())
	}
	if n := diag.InvalidDates(); n > 0 {
		logger.WarnContext(ctx, "Dates failed to parse", "invalid_dates", n)
	}
	if diag.TransactionIDs != nil && diag.TransactionIDs.Duplicated > 0 {
		logger.WarnContext(ctx, "Transaction ids are not unique", "duplicated", diag.TransactionIDs.Duplicated)
	}
	return table, diag, nil
}
