package sheets

import "context"

// ValuesWriter is the slice of the Sheets API the exporter needs.
type ValuesWriter interface {
	// EnsureSheet creates the tab when it does not exist yet.
	EnsureSheet(ctx context.Context, title string) error
	// ReplaceValues clears the tab and writes values starting at A1.
	ReplaceValues(ctx context.Context, title string, values [][]any) error
}
