package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	applog "expensebot/internal/log"
	"expensebot/internal/registry"
	"expensebot/internal/sheets"
	"expensebot/internal/sheets/memory"
)

func newProvisioner(t *testing.T, svc *memory.Service) (*Provisioner, *registry.Store) {
	t.Helper()
	logger := applog.FromSlog(slog.New(slog.NewTextHandler(os.Stderr, nil)), "test")
	store := registry.Open(filepath.Join(t.TempDir(), "expense_config.json"), logger)
	p := NewProvisioner(svc, store, logger)
	p.now = func() time.Time { return time.Unix(1700000000, 0) }
	return p, store
}

func TestSetupProvisionsSheet(t *testing.T) {
	ctx := context.Background()
	svc := memory.New()
	p, store := newProvisioner(t, svc)

	handle, url, err := p.Setup(ctx, "42", "user@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if want := "https://docs.google.com/spreadsheets/d/" + handle.ID() + "/edit"; url != want {
		t.Errorf("url = %q, want %q", url, want)
	}

	wb, ok := svc.Lookup(handle.ID())
	if !ok {
		t.Fatal("workbook not created")
	}
	if !strings.HasPrefix(wb.Title, "ExpenseTracker_42_") {
		t.Errorf("title = %q", wb.Title)
	}
	rows := wb.Rows()
	if len(rows) != 1 || rows[0][0] != "Date" || rows[0][1] != "Category" || rows[0][2] != "Amount" {
		t.Errorf("header rows = %v", rows)
	}

	grants := wb.Grants()
	if len(grants) != 2 {
		t.Fatalf("grants = %+v", grants)
	}
	if grants[0].Email != "user@example.com" || grants[0].Role != sheets.RoleWriter || !grants[0].Notify {
		t.Errorf("writer grant = %+v", grants[0])
	}
	if grants[1].Email != "" || grants[1].Role != sheets.RoleReader {
		t.Errorf("link grant = %+v", grants[1])
	}

	rec, ok := store.Lookup("42")
	if !ok {
		t.Fatal("record not stored")
	}
	if rec.SheetID != handle.ID() || rec.SheetURL != url {
		t.Errorf("record = %+v", rec)
	}
	if rec.Email == nil || *rec.Email != "user@example.com" {
		t.Errorf("email = %v", rec.Email)
	}
}

func TestSetupCreateFailurePropagates(t *testing.T) {
	svc := memory.New()
	svc.CreateErr = errors.New("quota exceeded")
	p, store := newProvisioner(t, svc)

	if _, _, err := p.Setup(context.Background(), "42", "user@example.com"); err == nil {
		t.Fatal("expected error")
	}
	if store.Has("42") {
		t.Error("failed setup must not record the user")
	}
}

func TestSetupShareFailureIsNonFatal(t *testing.T) {
	ctx := context.Background()
	svc := memory.New()
	svc.ShareErr = errors.New("permission api down")
	p, store := newProvisioner(t, svc)

	h, url, err := p.Setup(ctx, "1", "a@example.com")
	if err != nil {
		t.Fatalf("setup must succeed when only the grants fail: %v", err)
	}
	if url == "" {
		t.Fatal("missing url")
	}
	if !store.Has("1") {
		t.Error("record should be stored despite grant failures")
	}

	wb, _ := svc.Lookup(h.ID())
	if got := wb.Grants(); len(got) != 0 {
		t.Errorf("no grant should have been applied, got %+v", got)
	}
}

func TestSetupOverwritesPreviousSheet(t *testing.T) {
	ctx := context.Background()
	svc := memory.New()
	p, store := newProvisioner(t, svc)

	first, _, err := p.Setup(ctx, "1", "a@example.com")
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := p.Setup(ctx, "1", "a@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if first.ID() == second.ID() {
		t.Fatal("re-running setup should create a new sheet")
	}
	rec, _ := store.Lookup("1")
	if rec.SheetID != second.ID() {
		t.Errorf("record points at %s, want %s", rec.SheetID, second.ID())
	}
	// The first sheet is orphaned, not deleted.
	if _, ok := svc.Lookup(first.ID()); !ok {
		t.Error("old sheet should still exist")
	}
}

func TestSetupWithoutEmailStoresNull(t *testing.T) {
	svc := memory.New()
	p, store := newProvisioner(t, svc)

	h, _, err := p.Setup(context.Background(), "9", "")
	if err != nil {
		t.Fatal(err)
	}
	rec, _ := store.Lookup("9")
	if rec.Email != nil {
		t.Errorf("email = %v, want nil", rec.Email)
	}
	wb, _ := svc.Lookup(h.ID())
	grants := wb.Grants()
	if len(grants) != 1 || grants[0].Email != "" {
		t.Errorf("expected only the link grant, got %+v", grants)
	}
}
