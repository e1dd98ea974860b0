package bot

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"expensebot/internal/events"
	applog "expensebot/internal/log"
	"expensebot/internal/registry"
	"expensebot/internal/services"
	"expensebot/internal/sheets/memory"
)

type fakeSender struct {
	replies []string
}

func (f *fakeSender) Send(_, content string) error {
	f.replies = append(f.replies, content)
	return nil
}

type fakePublisher struct {
	events []events.ExpenseLogged
	err    error
}

func (f *fakePublisher) PublishExpenseLogged(_ context.Context, ev events.ExpenseLogged) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

type fixture struct {
	router *Router
	sheets *memory.Service
	store  *registry.Store
	sender *fakeSender
}

func newFixture(t *testing.T, publisher EventPublisher) *fixture {
	t.Helper()
	logger := applog.FromSlog(slog.New(slog.NewTextHandler(os.Stderr, nil)), "test")
	svc := memory.New()
	store := registry.Open(filepath.Join(t.TempDir(), "expense_config.json"), logger)
	prov := services.NewProvisioner(svc, store, logger)
	r := NewRouter(store, svc, prov, publisher, 5, logger)
	r.now = func() time.Time { return time.Date(2024, 3, 15, 12, 30, 0, 0, time.Local) }
	return &fixture{router: r, sheets: svc, store: store, sender: &fakeSender{}}
}

func (f *fixture) send(content string) []string {
	f.sender.replies = nil
	f.router.Handle(context.Background(), Message{
		AuthorID:  "42",
		ChannelID: "dm-42",
		Content:   content,
	}, f.sender)
	return f.sender.replies
}

func (f *fixture) setup(t *testing.T) {
	t.Helper()
	replies := f.send("!setup user@example.com")
	for _, r := range replies {
		if strings.HasPrefix(r, "✅ Setup complete!") {
			return
		}
	}
	t.Fatalf("setup did not complete: %v", replies)
}

func TestFirstMessageIsSwallowedUnlessCommand(t *testing.T) {
	f := newFixture(t, nil)

	replies := f.send("hello there")
	if len(replies) != 1 || !strings.HasPrefix(replies[0], "👋 **Welcome") {
		t.Fatalf("expected only the welcome, got %v", replies)
	}

	// Second identical message: no welcome, no expense, just the setup prompt.
	replies = f.send("hello there")
	if len(replies) != 1 || replies[0] != setupPrompt {
		t.Fatalf("got %v", replies)
	}
}

func TestFirstMessageHelpGetsWelcomeAndHelp(t *testing.T) {
	f := newFixture(t, nil)
	replies := f.send("help")
	if len(replies) != 2 {
		t.Fatalf("got %v", replies)
	}
	if !strings.HasPrefix(replies[0], "👋 **Welcome") {
		t.Errorf("first reply = %q", replies[0])
	}
	if !strings.HasPrefix(replies[1], "📋 **Expense Tracker Bot Commands:**") {
		t.Errorf("second reply = %q", replies[1])
	}
}

func TestSetupCommand(t *testing.T) {
	f := newFixture(t, nil)

	replies := f.send("!setup user@example.com")
	// Brand-new user: welcome precedes the setup confirmation.
	if len(replies) != 2 {
		t.Fatalf("got %v", replies)
	}
	last := replies[1]
	if !strings.HasPrefix(last, "✅ Setup complete!") {
		t.Fatalf("setup reply = %q", last)
	}
	if !strings.Contains(last, "https://docs.google.com/spreadsheets/d/") ||
		!strings.Contains(last, "/edit") {
		t.Errorf("setup reply lacks the sheet url: %q", last)
	}

	rec, ok := f.store.Lookup("42")
	if !ok {
		t.Fatal("user not recorded")
	}
	if rec.Email == nil || *rec.Email != "user@example.com" {
		t.Errorf("email = %v", rec.Email)
	}
	if rec.SheetURL != "https://docs.google.com/spreadsheets/d/"+rec.SheetID+"/edit" {
		t.Errorf("url = %q", rec.SheetURL)
	}
}

func TestSetupCreateFailureIsReported(t *testing.T) {
	f := newFixture(t, nil)
	f.sheets.CreateErr = errors.New("quota exceeded")

	replies := f.send("!setup user@example.com")
	last := replies[len(replies)-1]
	if !strings.HasPrefix(last, "❌ Error setting up your expense sheet:") {
		t.Fatalf("got %q", last)
	}
	if f.store.Has("42") {
		t.Error("failed setup must not record the user")
	}
}

func TestMalformedSetupFallsThrough(t *testing.T) {
	f := newFixture(t, nil)
	f.setup(t)

	// Two tokens but no @: handled as an expense attempt, amount unparsable.
	replies := f.send("!setup nomail")
	if len(replies) != 1 || replies[0] != expenseFormatHint {
		t.Fatalf("got %v", replies)
	}
}

func TestExpenseLogging(t *testing.T) {
	f := newFixture(t, nil)
	f.setup(t)

	replies := f.send("Food 250")
	if len(replies) != 1 || replies[0] != "Logged: Food - ₹250" {
		t.Fatalf("got %v", replies)
	}

	rec, _ := f.store.Lookup("42")
	wb, _ := f.sheets.Lookup(rec.SheetID)
	rows := wb.Rows()
	if len(rows) != 2 {
		t.Fatalf("rows = %v", rows)
	}
	if rows[1][0] != "2024-03-15 12:30:00" || rows[1][1] != "Food" || rows[1][2] != "250" {
		t.Errorf("appended row = %v", rows[1])
	}

	replies = f.send("Gas 45.50")
	if replies[0] != "Logged: Gas - ₹45.5" {
		t.Errorf("got %q", replies[0])
	}
}

func TestExpenseFormatErrors(t *testing.T) {
	f := newFixture(t, nil)
	f.setup(t)

	for _, in := range []string{"Food", "Food 250 extra", "Food abc", "just some words here"} {
		replies := f.send(in)
		if len(replies) != 1 || replies[0] != expenseFormatHint {
			t.Fatalf("%q: got %v", in, replies)
		}
	}

	rec, _ := f.store.Lookup("42")
	wb, _ := f.sheets.Lookup(rec.SheetID)
	if rows := wb.Rows(); len(rows) != 1 {
		t.Errorf("malformed input appended rows: %v", rows)
	}
}

func TestExpenseAppendErrorIsReported(t *testing.T) {
	f := newFixture(t, nil)
	f.setup(t)

	rec, _ := f.store.Lookup("42")
	wb, _ := f.sheets.Lookup(rec.SheetID)
	wb.AppendErr = errors.New("api down")

	replies := f.send("Food 250")
	if len(replies) != 1 || !strings.HasPrefix(replies[0], "Error: ") {
		t.Fatalf("got %v", replies)
	}
}

func TestLinkCommand(t *testing.T) {
	f := newFixture(t, nil)
	f.setup(t)

	rec, _ := f.store.Lookup("42")
	for _, in := range []string{"!sheet", "!URL", "!link"} {
		replies := f.send(in)
		if len(replies) != 1 || replies[0] != sheetLinkMessage(rec.SheetURL) {
			t.Fatalf("%q: got %v", in, replies)
		}
	}
}

func TestLinkCommandWithoutSetup(t *testing.T) {
	f := newFixture(t, nil)
	f.send("hello") // consume the welcome

	replies := f.send("!url")
	if len(replies) != 1 || replies[0] != setupPromptLink {
		t.Fatalf("got %v", replies)
	}
}

func TestSummaryCommand(t *testing.T) {
	f := newFixture(t, nil)
	f.setup(t)

	replies := f.send("!summary")
	if len(replies) != 2 || replies[0] != summaryAck {
		t.Fatalf("got %v", replies)
	}
	if replies[1] != "No expenses recorded yet." {
		t.Errorf("empty summary = %q", replies[1])
	}

	f.send("Food 100")
	f.send("Food 50")
	replies = f.send("!expenses")
	if !strings.Contains(replies[1], "• Food: ₹150.00 (100.0%)") ||
		!strings.Contains(replies[1], "**Total Expenses:** ₹150.00") {
		t.Errorf("summary = %q", replies[1])
	}
}

func TestSummaryFetchErrorIsReported(t *testing.T) {
	f := newFixture(t, nil)
	f.setup(t)

	rec, _ := f.store.Lookup("42")
	wb, _ := f.sheets.Lookup(rec.SheetID)
	wb.RecordsErr = errors.New("read failed")

	replies := f.send("!stats")
	if len(replies) != 2 || !strings.HasPrefix(replies[1], "Error generating summary:") {
		t.Fatalf("got %v", replies)
	}
}

func TestSummaryWithoutSetup(t *testing.T) {
	f := newFixture(t, nil)
	f.send("hello")

	replies := f.send("!summary")
	if len(replies) != 1 || replies[0] != setupPrompt {
		t.Fatalf("got %v", replies)
	}
}

func TestHelpCommandVariants(t *testing.T) {
	f := newFixture(t, nil)
	f.setup(t)

	for _, in := range []string{"!help", "help", "!commands", "!HELP"} {
		replies := f.send(in)
		if len(replies) != 1 || !strings.HasPrefix(replies[0], "📋 **Expense Tracker Bot Commands:**") {
			t.Fatalf("%q: got %v", in, replies)
		}
	}
}

func TestHandleReopenedAfterRestart(t *testing.T) {
	f := newFixture(t, nil)
	f.setup(t)
	f.send("Food 100")

	// A fresh router over the same registry and sheets service simulates a
	// process restart: the handle cache and welcomed set are gone.
	logger := applog.FromSlog(slog.New(slog.NewTextHandler(os.Stderr, nil)), "test")
	prov := services.NewProvisioner(f.sheets, f.store, logger)
	restarted := NewRouter(f.store, f.sheets, prov, nil, 5, logger)
	restarted.now = f.router.now

	sender := &fakeSender{}
	restarted.Handle(context.Background(), Message{AuthorID: "42", ChannelID: "dm-42", Content: "Food 50"}, sender)
	if len(sender.replies) != 1 || sender.replies[0] != "Logged: Food - ₹50" {
		t.Fatalf("got %v", sender.replies)
	}

	// A configured user gets no welcome after restart.
	for _, r := range sender.replies {
		if strings.HasPrefix(r, "👋") {
			t.Errorf("unexpected welcome: %q", r)
		}
	}
}

func TestReopenFailurePromptsSetup(t *testing.T) {
	f := newFixture(t, nil)
	f.setup(t)

	logger := applog.FromSlog(slog.New(slog.NewTextHandler(os.Stderr, nil)), "test")
	prov := services.NewProvisioner(f.sheets, f.store, logger)
	restarted := NewRouter(f.store, f.sheets, prov, nil, 5, logger)
	f.sheets.OpenErr = errors.New("sheet gone")

	sender := &fakeSender{}
	restarted.Handle(context.Background(), Message{AuthorID: "42", ChannelID: "dm-42", Content: "Food 50"}, sender)
	if len(sender.replies) != 1 || sender.replies[0] != setupPrompt {
		t.Fatalf("got %v", sender.replies)
	}
}

func TestExpenseEventPublished(t *testing.T) {
	pub := &fakePublisher{}
	f := newFixture(t, pub)
	f.setup(t)

	f.send("Food 250")
	if len(pub.events) != 1 {
		t.Fatalf("events = %+v", pub.events)
	}
	ev := pub.events[0]
	if ev.UserID != "42" || ev.Category != "Food" || ev.Amount != "250" {
		t.Errorf("event = %+v", ev)
	}
	rec, _ := f.store.Lookup("42")
	if ev.SheetID != rec.SheetID {
		t.Errorf("event sheet = %q, want %q", ev.SheetID, rec.SheetID)
	}
}

func TestPublishFailureDoesNotChangeReply(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	f := newFixture(t, pub)
	f.setup(t)

	replies := f.send("Food 250")
	if len(replies) != 1 || replies[0] != "Logged: Food - ₹250" {
		t.Fatalf("got %v", replies)
	}
}
