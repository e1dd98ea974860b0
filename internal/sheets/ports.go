// Package sheets defines the outbound ports for the spreadsheet service.
package sheets

import (
	"context"
	"fmt"

	"expensebot/internal/core"
)

// Roles understood by the spreadsheet service.
const (
	RoleWriter = "writer"
	RoleReader = "reader"
)

type (
	// Service provisions and reopens spreadsheets.
	Service interface {
		// Create makes a new spreadsheet with the given title and returns a
		// handle to its first worksheet.
		Create(ctx context.Context, title string) (Handle, error)
		// Open returns a handle to an existing spreadsheet by identifier.
		Open(ctx context.Context, sheetID string) (Handle, error)
	}

	// Handle is an open reference to one spreadsheet's first worksheet.
	Handle interface {
		// ID returns the spreadsheet identifier.
		ID() string
		// AppendRow appends one ordered row after the existing data.
		AppendRow(ctx context.Context, row []any) error
		// Records returns all data rows, header excluded.
		Records(ctx context.Context) ([]core.Record, error)
		// Share grants access on the whole spreadsheet.
		Share(ctx context.Context, g Grant) error
	}

	// Grant describes one access grant. An empty Email means
	// anyone-with-the-link.
	Grant struct {
		Email  string
		Role   string
		Notify bool
	}
)

// EditURL derives the canonical edit URL for a spreadsheet identifier.
func EditURL(sheetID string) string {
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/edit", sheetID)
}
