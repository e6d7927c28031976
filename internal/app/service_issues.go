package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"jijisauti/api/internal/authz"
	"jijisauti/api/internal/export"
	"jijisauti/api/internal/ledger"
	"jijisauti/api/internal/search"
	"jijisauti/api/internal/store"
	"jijisauti/api/internal/util"
	"jijisauti/api/internal/wizard"
)

// reportCreditReward is the fixed civic-credit award for a non-anonymous
// issue report.
const reportCreditReward = 25

var issueStatuses = map[string]bool{
	"reported":    true,
	"in_review":   true,
	"in_progress": true,
	"resolved":    true,
	"closed":      true,
}

type ReportIssueInput struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Address     string `json:"address"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Urgency   int      `json:"urgency"`

	Anonymous        bool   `json:"anonymous"`
	FollowUp         bool   `json:"followUp"`
	PreferredContact string `json:"preferredContact"`
	ContactPhone     string `json:"contactPhone"`
	ContactEmail     string `json:"contactEmail"`
}

// ReportIssue persists a finished issue report, awards civic credits,
// records the creation in the transparency ledger, and indexes the issue
// for search. Anonymous reports skip the credit award and notification.
func (s *Service) ReportIssue(ctx context.Context, session Session, input ReportIssueInput) (map[string]any, error) {
	actor := session.actor()
	decision := authz.Authorize(authz.KindIssue, authz.OpCreate, actor)

	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION", "Title and description are required", nil)
	}
	category, ok := wizard.CategoryByName(input.Category)
	if !ok {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION", "Unknown category", map[string]any{"categories": wizard.CategoryNames()})
	}
	if strings.TrimSpace(input.Address) == "" && (input.Latitude == nil || input.Longitude == nil) {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION", "An address or coordinates are required", nil)
	}
	urgency := input.Urgency
	if urgency < 1 || urgency > 5 {
		urgency = category.DefaultUrgency
	}

	// Anonymous reports carry no follow-up channel regardless of what the
	// client sent.
	followUp := input.FollowUp
	preferredContact := strings.TrimSpace(input.PreferredContact)
	if preferredContact == "" {
		preferredContact = "none"
	}
	if input.Anonymous {
		followUp = false
		preferredContact = "none"
	}
	if followUp {
		switch preferredContact {
		case "phone":
			if strings.TrimSpace(input.ContactPhone) == "" {
				return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION", "A phone number is required for phone follow-up", nil)
			}
		case "email":
			if strings.TrimSpace(input.ContactEmail) == "" {
				return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION", "An email address is required for email follow-up", nil)
			}
		default:
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION", "Follow-up requires a contact channel", nil)
		}
	}

	draft := authz.ApplyCreateHook(authz.KindIssue, authz.Record{"is_public": true}, actor)
	if !decision.Permits(actor, draft) {
		return nil, forbiddenError()
	}

	issue := store.Issue{
		ID:               util.NewID("iss"),
		Category:         category.Name,
		Subcategory:      strings.TrimSpace(input.Subcategory),
		Title:            title,
		Description:      description,
		Address:          strings.TrimSpace(input.Address),
		Latitude:         input.Latitude,
		Longitude:        input.Longitude,
		Urgency:          urgency,
		Status:           "reported",
		IsPublic:         true,
		IsAnonymous:      input.Anonymous,
		FollowUp:         followUp,
		PreferredContact: preferredContact,
		ContactPhone:     strings.TrimSpace(input.ContactPhone),
		ContactEmail:     strings.TrimSpace(input.ContactEmail),
	}
	if ownerID, ok := draft["reported_by"].(string); ok && !input.Anonymous {
		issue.ReportedBy = &ownerID
	}

	if err := s.store.InsertIssue(ctx, issue); err != nil {
		return nil, fmt.Errorf("insert issue: %w", err)
	}

	if _, err := s.ledger.Append(issue.ID, ledger.Entry{
		Kind:  "issue",
		Event: "created",
		To:    issue.Status,
	}, session.UserName); err != nil {
		log.Printf("ledger append failed for issue %s: %v", issue.ID, err)
	}

	s.search.IndexIssue(search.IssueRecord{
		ID:          issue.ID,
		Title:       issue.Title,
		Description: issue.Description,
		Category:    issue.Category,
		Status:      issue.Status,
		IsPublic:    issue.IsPublic,
	})

	creditsAwarded := 0
	if !input.Anonymous && actor != nil {
		if err := s.store.GrantCredits(ctx, util.NewID("txn"), actor.ID, reportCreditReward, "issue_report", issue.ID); err != nil {
			// The report stands even when the reward fails.
			log.Printf("credit grant failed for issue %s: %v", issue.ID, err)
		} else {
			creditsAwarded = reportCreditReward
		}
	}

	if creditsAwarded > 0 && s.SMTPConfigured() {
		if user, err := s.store.GetUserByID(ctx, session.UserID); err == nil && user.Email != "" {
			if err := s.mail.SendIssueReceivedEmail(user.Email, user.DisplayName, issue.Title, issue.ID, creditsAwarded); err != nil {
				log.Printf("issue received email failed: %v", err)
			}
		}
	}

	view := issueView(issue)
	view["creditsAwarded"] = creditsAwarded
	return view, nil
}

func (s *Service) GetIssue(ctx context.Context, session Session, issueID string) (map[string]any, error) {
	issue, err := s.store.GetIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}
	actor := session.actor()
	decision := authz.Authorize(authz.KindIssue, authz.OpRead, actor)
	if !decision.Permits(actor, issueRecord(issue)) {
		// A private issue looks absent to outsiders.
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
	return issueView(issue), nil
}

func (s *Service) ListIssues(ctx context.Context, session Session, limit int) ([]map[string]any, error) {
	actor := session.actor()
	includeAll := actor != nil && (actor.Role == authz.RoleOfficial || actor.Role == authz.RoleAdmin)
	var viewerID *string
	if actor != nil {
		viewerID = &actor.ID
	}
	issues, err := s.store.ListIssues(ctx, viewerID, includeAll, limit)
	if err != nil {
		return nil, err
	}
	views := make([]map[string]any, 0, len(issues))
	for _, issue := range issues {
		views = append(views, issueView(issue))
	}
	return views, nil
}

func (s *Service) UpdateIssueStatus(ctx context.Context, session Session, issueID, status string) (map[string]any, error) {
	if !issueStatuses[status] {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION", "Unknown issue status", nil)
	}
	issue, err := s.store.GetIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}
	actor := session.actor()
	decision := authz.Authorize(authz.KindIssue, authz.OpUpdate, actor)
	if !decision.Permits(actor, issueRecord(issue)) {
		return nil, forbiddenError()
	}
	if err := s.store.UpdateIssueStatus(ctx, issueID, status); err != nil {
		return nil, err
	}

	if _, err := s.ledger.Append(issueID, ledger.Entry{
		Kind:  "issue",
		Event: "status_change",
		From:  issue.Status,
		To:    status,
	}, session.UserName); err != nil {
		log.Printf("ledger append failed for issue %s: %v", issueID, err)
	}

	issue.Status = status
	s.search.IndexIssue(search.IssueRecord{
		ID:          issue.ID,
		Title:       issue.Title,
		Description: issue.Description,
		Category:    issue.Category,
		Status:      issue.Status,
		IsPublic:    issue.IsPublic,
	})
	return issueView(issue), nil
}

// AssignIssueOfficial assigns a government official to an issue and moves it
// to in_progress. Officials and admins only.
func (s *Service) AssignIssueOfficial(ctx context.Context, session Session, issueID, officialID string) (map[string]any, error) {
	actor := session.actor()
	if actor == nil || (actor.Role != authz.RoleOfficial && actor.Role != authz.RoleAdmin) {
		return nil, forbiddenError()
	}
	issue, err := s.store.GetIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}
	official, err := s.store.GetUserByID(ctx, officialID)
	if err != nil {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION", "Unknown official", nil)
	}
	if authz.NormalizeRole(official.Role) != authz.RoleOfficial {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION", "Assignee is not an official", nil)
	}

	if err := s.store.AssignOfficial(ctx, issueID, officialID); err != nil {
		return nil, err
	}

	if _, err := s.ledger.Append(issueID, ledger.Entry{
		Kind:    "issue",
		Event:   "official_assigned",
		From:    issue.Status,
		To:      "in_progress",
		Details: map[string]string{"official": official.DisplayName},
	}, session.UserName); err != nil {
		log.Printf("ledger append failed for issue %s: %v", issueID, err)
	}

	if s.SMTPConfigured() && official.Email != "" {
		if err := s.mail.SendIssueAssignedEmail(official.Email, official.DisplayName, issue.Title, issue.ID, issue.Category, issue.Urgency); err != nil {
			log.Printf("issue assigned email failed: %v", err)
		}
	}

	issue.Status = "in_progress"
	issue.AssignedOfficial = &officialID
	s.search.IndexIssue(search.IssueRecord{
		ID:          issue.ID,
		Title:       issue.Title,
		Description: issue.Description,
		Category:    issue.Category,
		Status:      issue.Status,
		IsPublic:    issue.IsPublic,
	})
	return issueView(issue), nil
}

// AddEvidence stores an uploaded evidence file in object storage and links
// it to the issue. Upload is limited to the reporter, officials and admins.
func (s *Service) AddEvidence(ctx context.Context, session Session, issueID, name, mimeType string, reader io.Reader, size int64) (map[string]any, error) {
	if s.media == nil {
		return nil, domainError(http.StatusServiceUnavailable, "UPLOADS_UNAVAILABLE", "Evidence uploads are not configured", nil)
	}
	issue, err := s.store.GetIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}
	actor := session.actor()
	decision := authz.Authorize(authz.KindIssue, authz.OpUpdate, actor)
	if !decision.Permits(actor, issueRecord(issue)) {
		return nil, forbiddenError()
	}

	objectKey, err := s.media.PutEvidence(ctx, issueID, name, mimeType, reader, size)
	if err != nil {
		return nil, fmt.Errorf("store evidence: %w", err)
	}
	item := store.EvidenceObject{
		ID:        util.NewID("evd"),
		IssueID:   issueID,
		ObjectKey: objectKey,
		Name:      name,
		MimeType:  mimeType,
		SizeBytes: size,
	}
	if err := s.store.InsertEvidence(ctx, item); err != nil {
		return nil, fmt.Errorf("insert evidence: %w", err)
	}
	return map[string]any{
		"id":        item.ID,
		"issueId":   item.IssueID,
		"name":      item.Name,
		"mimeType":  item.MimeType,
		"sizeBytes": item.SizeBytes,
	}, nil
}

// ListEvidence returns the issue's evidence with short-lived download URLs.
func (s *Service) ListEvidence(ctx context.Context, session Session, issueID string) ([]map[string]any, error) {
	issue, err := s.store.GetIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}
	actor := session.actor()
	decision := authz.Authorize(authz.KindIssue, authz.OpRead, actor)
	if !decision.Permits(actor, issueRecord(issue)) {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}

	items, err := s.store.ListIssueEvidence(ctx, issueID)
	if err != nil {
		return nil, err
	}
	views := make([]map[string]any, 0, len(items))
	for _, item := range items {
		view := map[string]any{
			"id":        item.ID,
			"name":      item.Name,
			"mimeType":  item.MimeType,
			"sizeBytes": item.SizeBytes,
			"createdAt": item.CreatedAt,
		}
		if s.media != nil {
			if url, err := s.media.PresignGet(ctx, item.ObjectKey, 15*time.Minute); err == nil {
				view["url"] = url
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// IssueHistory returns the issue's transparency ledger, newest first.
func (s *Service) IssueHistory(ctx context.Context, session Session, issueID string, limit int) (map[string]any, error) {
	issue, err := s.store.GetIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}
	actor := session.actor()
	decision := authz.Authorize(authz.KindIssue, authz.OpRead, actor)
	if !decision.Permits(actor, issueRecord(issue)) {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}

	entries, err := s.ledger.Entries(issueID)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	commits, err := s.ledger.History(issueID, limit)
	if err != nil {
		return nil, fmt.Errorf("read ledger history: %w", err)
	}

	entryViews := make([]map[string]any, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		entryViews = append(entryViews, map[string]any{
			"event":      entry.Event,
			"from":       entry.From,
			"to":         entry.To,
			"details":    entry.Details,
			"recordedAt": entry.RecordedAt,
		})
	}
	commitViews := make([]map[string]any, 0, len(commits))
	for _, commit := range commits {
		commitViews = append(commitViews, map[string]any{
			"hash":      commit.Hash,
			"message":   commit.Message,
			"author":    commit.Author,
			"createdAt": commit.CreatedAt,
		})
	}
	return map[string]any{
		"issueId": issueID,
		"entries": entryViews,
		"commits": commitViews,
	}, nil
}

// ExportIssue renders the issue as a downloadable report.
func (s *Service) ExportIssue(ctx context.Context, session Session, issueID, format string, includeEvidence bool) (*export.Result, error) {
	if s.exporter == nil {
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Exports are not configured", nil)
	}
	issue, err := s.store.GetIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}
	actor := session.actor()
	decision := authz.Authorize(authz.KindIssue, authz.OpRead, actor)
	if !decision.Permits(actor, issueRecord(issue)) {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}

	result, err := s.exporter.ExportIssueReport(ctx, issueID, export.Format(format), includeEvidence)
	if err != nil {
		if errors.Is(err, export.ErrUnsupportedFormat) {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION", "Unsupported export format", nil)
		}
		return nil, err
	}
	return result, nil
}

// issueRecord is the rule-engine view of an issue row.
func issueRecord(issue store.Issue) authz.Record {
	record := authz.Record{
		"is_public": issue.IsPublic,
		"status":    issue.Status,
	}
	if issue.ReportedBy != nil {
		record["reported_by"] = *issue.ReportedBy
	}
	if issue.AssignedOfficial != nil {
		record["assigned_official"] = *issue.AssignedOfficial
	}
	return record
}

func issueView(issue store.Issue) map[string]any {
	view := map[string]any{
		"id":          issue.ID,
		"category":    issue.Category,
		"subcategory": issue.Subcategory,
		"title":       issue.Title,
		"description": issue.Description,
		"address":     issue.Address,
		"urgency":     issue.Urgency,
		"status":      issue.Status,
		"isPublic":    issue.IsPublic,
		"isAnonymous": issue.IsAnonymous,
		"createdAt":   issue.CreatedAt,
		"updatedAt":   issue.UpdatedAt,
	}
	if issue.Latitude != nil && issue.Longitude != nil {
		view["latitude"] = *issue.Latitude
		view["longitude"] = *issue.Longitude
	}
	// The reporter is never exposed on anonymous reports.
	if issue.ReportedBy != nil && !issue.IsAnonymous {
		view["reportedBy"] = *issue.ReportedBy
	}
	if issue.AssignedOfficial != nil {
		view["assignedOfficial"] = *issue.AssignedOfficial
	}
	return view
}
