// Package bot routes inbound direct messages to setup, link, summary, help,
// or expense logging. The router owns all cross-message state: the user
// registry, the open-handle cache, and the welcomed set. Every failure path
// ends in a reply; nothing propagates past Handle.
package bot

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"expensebot/internal/cache"
	"expensebot/internal/core"
	"expensebot/internal/events"
	applog "expensebot/internal/log"
	"expensebot/internal/registry"
	"expensebot/internal/services"
	"expensebot/internal/sheets"
)

// handleCacheSize bounds the open-handle cache. Handles are tiny, the bound
// only matters for very large user counts.
const handleCacheSize = 1024

// Message is one inbound direct message, already filtered to DMs from other
// users.
type Message struct {
	AuthorID  string
	ChannelID string
	Content   string
}

// Sender delivers a plain-text reply to a channel.
type Sender interface {
	Send(channelID, content string) error
}

// EventPublisher emits expense events after successful appends.
type EventPublisher interface {
	PublishExpenseLogged(ctx context.Context, ev events.ExpenseLogged) error
}

type Router struct {
	store       *registry.Store
	sheets      sheets.Service
	provisioner *services.Provisioner
	publisher   EventPublisher // nil when the event stream is disabled
	log         *applog.Logger
	recentLimit int
	now         func() time.Time

	handles *cache.LRU[sheets.Handle]
	reopen  singleflight.Group

	// The platform library may dispatch messages on separate goroutines;
	// per-user serialization keeps registry and cache updates ordered.
	mu       sync.Mutex
	userLock map[string]*sync.Mutex
	welcomed map[string]struct{}
}

func NewRouter(store *registry.Store, svc sheets.Service, prov *services.Provisioner,
	publisher EventPublisher, recentLimit int, logger *applog.Logger) *Router {
	if recentLimit <= 0 {
		recentLimit = core.DefaultRecentLimit
	}
	return &Router{
		store:       store,
		sheets:      svc,
		provisioner: prov,
		publisher:   publisher,
		log:         logger.WithComponent(applog.ComponentBot),
		recentLimit: recentLimit,
		now:         time.Now,
		handles:     cache.NewLRU[sheets.Handle](handleCacheSize, 0),
		userLock:    map[string]*sync.Mutex{},
		welcomed:    map[string]struct{}{},
	}
}

// Handle processes one direct message end to end.
func (r *Router) Handle(ctx context.Context, msg Message, send Sender) {
	unlock := r.lockUser(msg.AuthorID)
	defer unlock()

	userID := msg.AuthorID
	text := strings.TrimSpace(msg.Content)
	lower := strings.ToLower(text)
	r.log.InfoContext(ctx, "direct message received", applog.FieldUserID, userID)

	// First contact: greet brand-new users, and swallow their message unless
	// it is itself a command. The welcomed set is process-local on purpose.
	if r.markWelcomed(userID) {
		r.reply(ctx, send, msg.ChannelID, welcomeMessage)
		if !isRecognizedCommand(text) {
			return
		}
	}

	if strings.HasPrefix(lower, "!setup ") {
		if email, ok := parseSetupEmail(text); ok {
			r.handleSetup(ctx, msg, email, send)
			return
		}
		// Malformed setup falls through; it usually ends in the format hint.
	}

	handle := r.resolveHandle(ctx, userID)

	switch lower {
	case "!sheet", "!url", "!link":
		if rec, ok := r.store.Lookup(userID); ok {
			r.reply(ctx, send, msg.ChannelID, sheetLinkMessage(rec.SheetURL))
		} else {
			r.reply(ctx, send, msg.ChannelID, setupPromptLink)
		}
		return

	case "!summary", "!expenses", "!stats":
		if handle == nil {
			r.reply(ctx, send, msg.ChannelID, setupPrompt)
			return
		}
		r.reply(ctx, send, msg.ChannelID, summaryAck)
		r.reply(ctx, send, msg.ChannelID, r.renderSummary(ctx, handle))
		return

	case "!help", "help", "!commands":
		r.reply(ctx, send, msg.ChannelID, helpMessage)
		return
	}

	if handle == nil {
		r.reply(ctx, send, msg.ChannelID, setupPrompt)
		return
	}

	r.handleExpense(ctx, msg, handle, send)
}

func (r *Router) handleSetup(ctx context.Context, msg Message, email string, send Sender) {
	handle, url, err := r.provisioner.Setup(ctx, msg.AuthorID, email)
	if err != nil {
		r.log.ErrorContext(ctx, "setup failed",
			applog.FieldUserID, msg.AuthorID, applog.FieldError, err)
		r.reply(ctx, send, msg.ChannelID, "❌ Error setting up your expense sheet: "+err.Error())
		return
	}
	r.handles.Set(msg.AuthorID, handle)
	r.reply(ctx, send, msg.ChannelID, setupCompleteMessage(url))
}

func (r *Router) handleExpense(ctx context.Context, msg Message, handle sheets.Handle, send Sender) {
	expense, err := core.ParseExpense(msg.Content, r.now())
	if err != nil {
		r.reply(ctx, send, msg.ChannelID, expenseFormatHint)
		return
	}

	if err := handle.AppendRow(ctx, expense.Row()); err != nil {
		r.log.ErrorContext(ctx, "appending expense row",
			applog.FieldUserID, msg.AuthorID,
			applog.FieldSheetID, handle.ID(),
			applog.FieldError, err)
		r.reply(ctx, send, msg.ChannelID, "Error: "+err.Error())
		return
	}

	r.log.InfoContext(ctx, "expense logged",
		applog.FieldUserID, msg.AuthorID,
		applog.FieldCategory, expense.Category,
		applog.FieldAmount, expense.Amount.String())
	r.reply(ctx, send, msg.ChannelID, "Logged: "+expense.Category+" - ₹"+expense.Amount.String())

	if r.publisher != nil {
		ev := events.ExpenseLogged{
			UserID:   msg.AuthorID,
			SheetID:  handle.ID(),
			Category: expense.Category,
			Amount:   expense.Amount.String(),
			LoggedAt: expense.LoggedAt,
		}
		if err := r.publisher.PublishExpenseLogged(ctx, ev); err != nil {
			// The user already has their confirmation; the stream is advisory.
			r.log.WarnContext(ctx, "publishing expense event", applog.FieldError, err)
		}
	}
}

func (r *Router) renderSummary(ctx context.Context, handle sheets.Handle) string {
	records, err := handle.Records(ctx)
	if err != nil {
		r.log.ErrorContext(ctx, "fetching records for summary",
			applog.FieldSheetID, handle.ID(), applog.FieldError, err)
		return "Error generating summary: " + err.Error()
	}
	return core.RenderSummary(records, r.recentLimit)
}

// resolveHandle returns the user's open handle: cache first, then a reopen by
// the stored sheet identifier. Returns nil for users who never ran setup or
// whose sheet cannot be reopened.
func (r *Router) resolveHandle(ctx context.Context, userID string) sheets.Handle {
	if h, ok := r.handles.Get(userID); ok {
		return h
	}
	rec, ok := r.store.Lookup(userID)
	if !ok {
		return nil
	}

	v, err, _ := r.reopen.Do(userID, func() (any, error) {
		return r.sheets.Open(ctx, rec.SheetID)
	})
	if err != nil {
		r.log.ErrorContext(ctx, "reopening stored sheet",
			applog.FieldUserID, userID,
			applog.FieldSheetID, rec.SheetID,
			applog.FieldError, err)
		return nil
	}
	handle := v.(sheets.Handle)
	r.handles.Set(userID, handle)
	return handle
}

// markWelcomed reports whether this is the user's first contact, recording it
// as seen either way.
func (r *Router) markWelcomed(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, seen := r.welcomed[userID]; seen {
		return false
	}
	r.welcomed[userID] = struct{}{}
	return !r.store.Has(userID)
}

func (r *Router) lockUser(userID string) func() {
	r.mu.Lock()
	l, ok := r.userLock[userID]
	if !ok {
		l = &sync.Mutex{}
		r.userLock[userID] = l
	}
	r.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func (r *Router) reply(ctx context.Context, send Sender, channelID, content string) {
	if err := send.Send(channelID, content); err != nil {
		r.log.ErrorContext(ctx, "sending reply",
			applog.FieldChannelID, channelID, applog.FieldError, err)
	}
}

// isRecognizedCommand mirrors the first-contact rule: a new user's first
// message is processed only when it is a bang command or mentions help/setup.
func isRecognizedCommand(text string) bool {
	if strings.HasPrefix(text, "!") {
		return true
	}
	lower := strings.ToLower(text)
	return strings.Contains(lower, "help") || strings.Contains(lower, "setup")
}

// parseSetupEmail extracts the email token from "!setup <email>". The email
// must be a single token containing "@".
func parseSetupEmail(text string) (string, bool) {
	parts := strings.Fields(text)
	if len(parts) != 2 || !strings.Contains(parts[1], "@") {
		return "", false
	}
	return parts[1], true
}
