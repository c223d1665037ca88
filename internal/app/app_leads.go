package app

import (
	"neuralflow/internal/domain"
	"neuralflow/internal/service"
)

// ============================================================
// Waitlist and contact
// ============================================================

// InitialView picks the page shown on launch.
func (a *App) InitialView() service.View {
	return a.core.Leads.InitialView()
}

func (a *App) WaitlistStatus() service.WaitlistStatus {
	return a.core.Leads.Status(ShareBaseURL)
}

// JoinWaitlist signs up email, crediting the referral from the launch link.
func (a *App) JoinWaitlist(email string) (service.WaitlistStatus, error) {
	if _, err := a.core.Leads.JoinWaitlist(a.ctx, email, ""); err != nil {
		return service.WaitlistStatus{}, err
	}
	return a.core.Leads.Status(ShareBaseURL), nil
}

func (a *App) SubmitContact(email, message string) error {
	_, err := a.core.Leads.SubmitContact(a.ctx, email, message)
	return err
}

// ============================================================
// Admin dashboard
// ============================================================

func (a *App) ListLeads(filter domain.LeadFilter) []domain.Lead {
	return a.core.Leads.List(filter)
}

func (a *App) LeadStats() domain.LeadStats {
	return a.core.Leads.Stats()
}

func (a *App) MarkLeadsProcessed(ids []string) (int, error) {
	return a.core.Leads.MarkProcessed(a.ctx, ids)
}

func (a *App) DeleteLeads(ids []string) (int, error) {
	return a.core.Leads.Delete(a.ctx, ids)
}

// SyncLeads pushes the lead table to the configured sink now.
func (a *App) SyncLeads() (*service.SyncResult, error) {
	return a.core.Sync.RunOnce(a.ctx)
}

// LastSync is the most recent sync run, or nil.
func (a *App) LastSync() *service.SyncResult {
	return a.core.Sync.LastResult()
}
