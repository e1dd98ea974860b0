// Package google implements the sheets ports on the Google Sheets and Drive
// APIs using a service account.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"expensebot/internal/core"
	applog "expensebot/internal/log"
	ports "expensebot/internal/sheets"

	gdrive "google.golang.org/api/drive/v3"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Service struct {
	sheets *gsheet.Service
	drive  *gdrive.Service
	log    *applog.Logger
}

var _ ports.Service = (*Service)(nil)

// New builds the adapter from a service-account key document. The Drive scope
// is needed for creating spreadsheets owned by the service account and for
// permission grants; the Sheets scope covers row reads and appends.
func New(ctx context.Context, credentialsJSON []byte, logger *applog.Logger) (*Service, error) {
	if len(credentialsJSON) == 0 {
		return nil, errors.New("missing service account credentials")
	}
	opts := []goption.ClientOption{
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope, gdrive.DriveScope),
	}

	sheetSvc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	driveSvc, err := gdrive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return &Service{
		sheets: sheetSvc,
		drive:  driveSvc,
		log:    logger.WithComponent(applog.ComponentSheets),
	}, nil
}

func (s *Service) Create(ctx context.Context, title string) (ports.Handle, error) {
	resp, err := s.sheets.Spreadsheets.Create(&gsheet.Spreadsheet{
		Properties: &gsheet.SpreadsheetProperties{Title: title},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("create spreadsheet %q: %w", title, err)
	}

	worksheet := firstWorksheetTitle(resp.Sheets)
	s.log.InfoContext(ctx, "created spreadsheet",
		applog.FieldSheetID, resp.SpreadsheetId, "title", title)

	return &Workbook{svc: s, id: resp.SpreadsheetId, worksheet: worksheet}, nil
}

func (s *Service) Open(ctx context.Context, sheetID string) (ports.Handle, error) {
	resp, err := s.sheets.Spreadsheets.Get(sheetID).
		Fields("spreadsheetId,sheets.properties.title").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet %s: %w", sheetID, err)
	}
	return &Workbook{svc: s, id: resp.SpreadsheetId, worksheet: firstWorksheetTitle(resp.Sheets)}, nil
}

// Workbook is a handle bound to the first worksheet of one spreadsheet.
type Workbook struct {
	svc       *Service
	id        string
	worksheet string
}

var _ ports.Handle = (*Workbook)(nil)

func (w *Workbook) ID() string { return w.id }

func (w *Workbook) AppendRow(ctx context.Context, row []any) error {
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	_, err := w.svc.sheets.Spreadsheets.Values.Append(w.id, w.dataRange(), vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append row to %s: %w", w.id, err)
	}
	return nil
}

func (w *Workbook) Records(ctx context.Context) ([]core.Record, error) {
	resp, err := w.svc.sheets.Spreadsheets.Values.Get(w.id, w.dataRange()).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read rows from %s: %w", w.id, err)
	}

	var out []core.Record
	skipped := 0
	for i, row := range resp.Values {
		if i == 0 {
			// Header row.
			continue
		}
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = strings.TrimSpace(fmt.Sprint(v))
		}
		rec, ok := core.RecordFromRow(cells)
		if !ok {
			skipped++
			continue
		}
		out = append(out, rec)
	}
	if skipped > 0 {
		w.svc.log.WarnContext(ctx, "skipping unparsable rows",
			applog.FieldSheetID, w.id,
			"skipped", skipped)
	}
	return out, nil
}

func (w *Workbook) Share(ctx context.Context, g ports.Grant) error {
	perm := &gdrive.Permission{Role: g.Role}
	if g.Email != "" {
		perm.Type = "user"
		perm.EmailAddress = g.Email
	} else {
		perm.Type = "anyone"
	}

	call := w.svc.drive.Permissions.Create(w.id, perm).Context(ctx)
	if perm.Type == "user" {
		call = call.SendNotificationEmail(g.Notify)
	}
	if _, err := call.Do(); err != nil {
		return fmt.Errorf("share %s as %s/%s: %w", w.id, perm.Type, g.Role, err)
	}
	return nil
}

func (w *Workbook) dataRange() string {
	// Quote the worksheet title; spreadsheet-created defaults are plain
	// ("Sheet1") but renamed tabs may carry spaces or quotes.
	title := strings.ReplaceAll(w.worksheet, "'", "''")
	return fmt.Sprintf("'%s'!A:C", title)
}

func firstWorksheetTitle(tabs []*gsheet.Sheet) string {
	if len(tabs) > 0 && tabs[0].Properties != nil && tabs[0].Properties.Title != "" {
		return tabs[0].Properties.Title
	}
	return "Sheet1"
}
