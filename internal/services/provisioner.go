// Package services holds the use cases between the bot router and the
// outbound adapters.
package services

import (
	"context"
	"fmt"
	"time"

	"expensebot/internal/core"
	applog "expensebot/internal/log"
	"expensebot/internal/registry"
	"expensebot/internal/sheets"
)

// Provisioner creates and records personal expense sheets.
type Provisioner struct {
	sheets sheets.Service
	store  *registry.Store
	log    *applog.Logger
	now    func() time.Time
}

func NewProvisioner(svc sheets.Service, store *registry.Store, logger *applog.Logger) *Provisioner {
	return &Provisioner{
		sheets: svc,
		store:  store,
		log:    logger.WithComponent(applog.ComponentSheets),
		now:    time.Now,
	}
}

// Setup provisions a fresh spreadsheet for the user: create, write the header
// row, grant access, record the mapping, return the handle and edit URL.
//
// Only creation and the header append can fail the call. Both permission
// grants are best effort; a sheet without the intended collaborator access is
// still a working sheet, so those errors are logged and swallowed.
func (p *Provisioner) Setup(ctx context.Context, userID, email string) (sheets.Handle, string, error) {
	// The timestamp keeps titles practically unique without coordination.
	title := fmt.Sprintf("ExpenseTracker_%s_%d", userID, p.now().Unix())
	p.log.InfoContext(ctx, "provisioning sheet", applog.FieldUserID, userID, "title", title)

	handle, err := p.sheets.Create(ctx, title)
	if err != nil {
		return nil, "", fmt.Errorf("create sheet: %w", err)
	}

	header := make([]any, len(core.Header))
	for i, h := range core.Header {
		header[i] = h
	}
	if err := handle.AppendRow(ctx, header); err != nil {
		return nil, "", fmt.Errorf("write header row: %w", err)
	}

	if email != "" {
		err := handle.Share(ctx, sheets.Grant{Email: email, Role: sheets.RoleWriter, Notify: true})
		if err != nil {
			p.log.WarnContext(ctx, "sharing sheet with user failed",
				applog.FieldUserID, userID, applog.FieldEmail, email, applog.FieldError, err)
		}
	}
	if err := handle.Share(ctx, sheets.Grant{Role: sheets.RoleReader}); err != nil {
		p.log.WarnContext(ctx, "granting link access failed",
			applog.FieldUserID, userID, applog.FieldSheetID, handle.ID(), applog.FieldError, err)
	}

	url := sheets.EditURL(handle.ID())

	rec := registry.UserRecord{SheetID: handle.ID(), SheetURL: url}
	if email != "" {
		rec.Email = &email
	}
	p.store.Upsert(userID, rec)

	p.log.InfoContext(ctx, "sheet provisioned",
		applog.FieldUserID, userID, applog.FieldSheetID, handle.ID())
	return handle, url, nil
}
