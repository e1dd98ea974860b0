package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TimeLayout is the timestamp format written into the Date column.
const TimeLayout = "2006-01-02 15:04:05"

// Header is the fixed first row of every provisioned sheet.
var Header = []string{"Date", "Category", "Amount"}

var (
	ErrBadExpenseFormat = errors.New("expense must be two tokens: category and amount")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyCategory    = errors.New("empty category")
)

type (
	// Expense is a single spend the user asked to log.
	Expense struct {
		LoggedAt time.Time
		Category string
		Amount   decimal.Decimal
	}

	// Record is one data row read back from a sheet. The date is kept as the
	// raw cell text since rows may predate this process.
	Record struct {
		Date     string
		Category string
		Amount   decimal.Decimal
	}
)

// ParseExpense interprets a message as "Category Amount". The category is
// taken verbatim, casing preserved; the amount must be a single decimal token.
func ParseExpense(text string, now time.Time) (Expense, error) {
	parts := strings.Fields(text)
	if len(parts) != 2 {
		return Expense{}, ErrBadExpenseFormat
	}
	amount, err := decimal.NewFromString(parts[1])
	if err != nil {
		return Expense{}, ErrInvalidAmount
	}
	return Expense{LoggedAt: now, Category: parts[0], Amount: amount}, nil
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if e.LoggedAt.IsZero() {
		return errors.New("zero timestamp")
	}
	return nil
}

// Row renders the expense as an ordered sheet row matching Header.
func (e Expense) Row() []any {
	return []any{e.LoggedAt.Format(TimeLayout), e.Category, e.Amount.String()}
}

// RecordFromRow converts a raw sheet row into a Record. Rows that do not
// carry all three cells or whose amount does not parse are skipped.
func RecordFromRow(cells []string) (Record, bool) {
	if len(cells) < 3 {
		return Record{}, false
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(cells[2]))
	if err != nil {
		return Record{}, false
	}
	return Record{
		Date:     strings.TrimSpace(cells[0]),
		Category: strings.TrimSpace(cells[1]),
		Amount:   amount,
	}, true
}

// Day returns the date portion of the record's timestamp, time discarded.
func (r Record) Day() string {
	if fields := strings.Fields(r.Date); len(fields) > 0 {
		return fields[0]
	}
	return r.Date
}
