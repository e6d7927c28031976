package app

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"

	"jijisauti/api/internal/authz"
	"jijisauti/api/internal/ledger"
	"jijisauti/api/internal/search"
	"jijisauti/api/internal/store"
	"jijisauti/api/internal/util"
	"jijisauti/api/internal/wizard"
)

// WizardSink binds a report-wizard instance to this service and session.
// The wizard validates and sanitizes the draft; the sink only persists.
func (s *Service) WizardSink(session Session) wizard.ReportSink {
	return &wizardSink{svc: s, session: session}
}

// WizardCredits is the wizard's credit granter for a session. Sessions
// without a user get a no-op granter, matching the anonymous path where the
// wizard skips the reward anyway.
func (s *Service) WizardCredits(session Session) wizard.CreditGranter {
	return &wizardCredits{svc: s, session: session}
}

type wizardSink struct {
	svc     *Service
	session Session
}

func (ws *wizardSink) CreateReport(ctx context.Context, report wizard.Report) (string, error) {
	actor := ws.session.actor()
	decision := authz.Authorize(authz.KindIssue, authz.OpCreate, actor)
	draft := authz.ApplyCreateHook(authz.KindIssue, authz.Record{"is_public": true}, actor)
	if !decision.Permits(actor, draft) {
		return "", forbiddenError()
	}

	issue := store.Issue{
		ID:               util.NewID("iss"),
		Category:         report.Category,
		Subcategory:      report.Subcategory,
		Title:            report.Title,
		Description:      report.Description,
		Address:          report.Address,
		Latitude:         report.Latitude,
		Longitude:        report.Longitude,
		Urgency:          report.Urgency,
		Status:           "reported",
		IsPublic:         true,
		IsAnonymous:      report.Anonymous,
		FollowUp:         report.FollowUp,
		PreferredContact: report.PreferredContact,
		ContactPhone:     report.ContactPhone,
		ContactEmail:     report.ContactEmail,
	}
	if ownerID, ok := draft["reported_by"].(string); ok && !report.Anonymous {
		issue.ReportedBy = &ownerID
	}

	if err := ws.svc.store.InsertIssue(ctx, issue); err != nil {
		return "", fmt.Errorf("insert issue: %w", err)
	}

	if ws.svc.media != nil {
		attachments := append(append([]wizard.Evidence{}, report.Photos...), report.Documents...)
		if report.VoiceNote != nil {
			attachments = append(attachments, wizard.Evidence{
				Name:     "voice-note.webm",
				MimeType: "audio/webm",
				Data:     report.VoiceNote.Data,
			})
		}
		for _, att := range attachments {
			key, err := ws.svc.media.PutEvidence(ctx, issue.ID, att.Name, att.MimeType, bytes.NewReader(att.Data), int64(len(att.Data)))
			if err != nil {
				log.Printf("evidence upload failed for issue %s: %v", issue.ID, err)
				continue
			}
			if err := ws.svc.store.InsertEvidence(ctx, store.EvidenceObject{
				ID:        util.NewID("evd"),
				IssueID:   issue.ID,
				ObjectKey: key,
				Name:      att.Name,
				MimeType:  att.MimeType,
				SizeBytes: int64(len(att.Data)),
			}); err != nil {
				log.Printf("evidence record failed for issue %s: %v", issue.ID, err)
			}
		}
	}

	if _, err := ws.svc.ledger.Append(issue.ID, ledger.Entry{
		Kind:  "issue",
		Event: "created",
		To:    issue.Status,
	}, ws.session.UserName); err != nil {
		log.Printf("ledger append failed for issue %s: %v", issue.ID, err)
	}

	ws.svc.search.IndexIssue(search.IssueRecord{
		ID:          issue.ID,
		Title:       issue.Title,
		Description: issue.Description,
		Category:    issue.Category,
		Status:      issue.Status,
		IsPublic:    issue.IsPublic,
	})

	return issue.ID, nil
}

type wizardCredits struct {
	svc     *Service
	session Session
}

func (wc *wizardCredits) GrantCredits(ctx context.Context, amount int, reason, refID string) error {
	if wc.session.UserID == "" {
		return nil
	}
	if amount <= 0 {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION", "Credit amount must be positive", nil)
	}
	return wc.svc.store.GrantCredits(ctx, util.NewID("txn"), wc.session.UserID, amount, reason, refID)
}
