package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"jijisauti/api/internal/authz"
	"jijisauti/api/internal/search"
	"jijisauti/api/internal/store"
	"jijisauti/api/internal/util"
)

var campaignStatuses = map[string]bool{
	"active":    true,
	"paused":    true,
	"completed": true,
}

type CreateCampaignInput struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Goal        string  `json:"goal"`
	IsPublic    *bool   `json:"isPublic,omitempty"`
	StartsAt    *string `json:"startsAt,omitempty"`
	EndsAt      *string `json:"endsAt,omitempty"`
}

func (s *Service) CreateCampaign(ctx context.Context, session Session, input CreateCampaignInput) (map[string]any, error) {
	actor := session.actor()
	decision := authz.Authorize(authz.KindCampaign, authz.OpCreate, actor)
	draft := authz.ApplyCreateHook(authz.KindCampaign, authz.Record{}, actor)
	if !decision.Permits(actor, draft) {
		return nil, forbiddenError()
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION", "Title is required", nil)
	}

	isPublic := true
	if input.IsPublic != nil {
		isPublic = *input.IsPublic
	}
	startsAt, err := parseOptionalTime(input.StartsAt)
	if err != nil {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION", "Invalid startsAt", nil)
	}
	endsAt, err := parseOptionalTime(input.EndsAt)
	if err != nil {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION", "Invalid endsAt", nil)
	}

	campaign := store.Campaign{
		ID:          util.NewID("cmp"),
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Goal:        strings.TrimSpace(input.Goal),
		Status:      "active",
		IsPublic:    isPublic,
		StartsAt:    startsAt,
		EndsAt:      endsAt,
	}
	if organizerID, ok := draft["organizer_id"].(string); ok {
		campaign.OrganizerID = &organizerID
	}

	if err := s.store.InsertCampaign(ctx, campaign); err != nil {
		return nil, fmt.Errorf("insert campaign: %w", err)
	}

	s.search.IndexCampaign(search.CampaignRecord{
		ID:          campaign.ID,
		Title:       campaign.Title,
		Description: campaign.Description,
		Status:      campaign.Status,
		IsPublic:    campaign.IsPublic,
	})
	return campaignView(campaign), nil
}

func (s *Service) GetCampaign(ctx context.Context, session Session, campaignID string) (map[string]any, error) {
	campaign, err := s.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	actor := session.actor()
	decision := authz.Authorize(authz.KindCampaign, authz.OpRead, actor)
	if !decision.Permits(actor, campaignRecord(campaign)) {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
	return campaignView(campaign), nil
}

func (s *Service) ListCampaigns(ctx context.Context, session Session) ([]map[string]any, error) {
	actor := session.actor()
	includeAll := actor != nil && actor.Role == authz.RoleAdmin
	var viewerID *string
	if actor != nil {
		viewerID = &actor.ID
	}
	campaigns, err := s.store.ListCampaigns(ctx, viewerID, includeAll)
	if err != nil {
		return nil, err
	}
	views := make([]map[string]any, 0, len(campaigns))
	for _, campaign := range campaigns {
		views = append(views, campaignView(campaign))
	}
	return views, nil
}

type UpdateCampaignInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

func (s *Service) UpdateCampaign(ctx context.Context, session Session, campaignID string, input UpdateCampaignInput) (map[string]any, error) {
	campaign, err := s.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	actor := session.actor()
	decision := authz.Authorize(authz.KindCampaign, authz.OpUpdate, actor)
	if !decision.Permits(actor, campaignRecord(campaign)) {
		return nil, forbiddenError()
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = campaign.Title
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		description = campaign.Description
	}
	status := strings.TrimSpace(input.Status)
	if status == "" {
		status = campaign.Status
	} else if !campaignStatuses[status] {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION", "Unknown campaign status", nil)
	}

	if err := s.store.UpdateCampaign(ctx, campaignID, title, description, status); err != nil {
		return nil, err
	}

	campaign.Title = title
	campaign.Description = description
	campaign.Status = status
	if campaign.IsPublic {
		s.search.IndexCampaign(search.CampaignRecord{
			ID:          campaign.ID,
			Title:       campaign.Title,
			Description: campaign.Description,
			Status:      campaign.Status,
			IsPublic:    campaign.IsPublic,
		})
	} else {
		s.search.DeleteCampaign(campaign.ID)
	}
	return campaignView(campaign), nil
}

type CreateEventInput struct {
	CampaignID  string  `json:"campaignId"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Venue       string  `json:"venue"`
	IsPublic    *bool   `json:"isPublic,omitempty"`
	StartsAt    *string `json:"startsAt,omitempty"`
}

func (s *Service) CreateEvent(ctx context.Context, session Session, input CreateEventInput) (map[string]any, error) {
	actor := session.actor()
	decision := authz.Authorize(authz.KindEvent, authz.OpCreate, actor)
	draft := authz.ApplyCreateHook(authz.KindEvent, authz.Record{}, actor)
	if !decision.Permits(actor, draft) {
		return nil, forbiddenError()
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION", "Title is required", nil)
	}

	event := store.Event{
		ID:          util.NewID("evt"),
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Venue:       strings.TrimSpace(input.Venue),
		Status:      "scheduled",
		IsPublic:    true,
	}
	if input.IsPublic != nil {
		event.IsPublic = *input.IsPublic
	}
	if organizerID, ok := draft["organizer_id"].(string); ok {
		event.OrganizerID = &organizerID
	}
	if campaignID := strings.TrimSpace(input.CampaignID); campaignID != "" {
		// Events may hang off a campaign; validate the link.
		if _, err := s.store.GetCampaign(ctx, campaignID); err != nil {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION", "Unknown campaign", nil)
		}
		event.CampaignID = &campaignID
	}
	startsAt, err := parseOptionalTime(input.StartsAt)
	if err != nil {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION", "Invalid startsAt", nil)
	}
	event.StartsAt = startsAt

	if err := s.store.InsertEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return eventView(event), nil
}

func (s *Service) ListEvents(ctx context.Context, session Session) ([]map[string]any, error) {
	actor := session.actor()
	includeAll := actor != nil && actor.Role == authz.RoleAdmin
	var viewerID *string
	if actor != nil {
		viewerID = &actor.ID
	}
	events, err := s.store.ListEvents(ctx, viewerID, includeAll)
	if err != nil {
		return nil, err
	}
	views := make([]map[string]any, 0, len(events))
	for _, event := range events {
		views = append(views, eventView(event))
	}
	return views, nil
}

func campaignRecord(campaign store.Campaign) authz.Record {
	record := authz.Record{
		"is_public": campaign.IsPublic,
		"status":    campaign.Status,
	}
	if campaign.OrganizerID != nil {
		record["organizer_id"] = *campaign.OrganizerID
	}
	return record
}

func campaignView(campaign store.Campaign) map[string]any {
	view := map[string]any{
		"id":          campaign.ID,
		"title":       campaign.Title,
		"description": campaign.Description,
		"goal":        campaign.Goal,
		"status":      campaign.Status,
		"isPublic":    campaign.IsPublic,
		"createdAt":   campaign.CreatedAt,
		"updatedAt":   campaign.UpdatedAt,
	}
	if campaign.OrganizerID != nil {
		view["organizerId"] = *campaign.OrganizerID
	}
	if campaign.StartsAt != nil {
		view["startsAt"] = *campaign.StartsAt
	}
	if campaign.EndsAt != nil {
		view["endsAt"] = *campaign.EndsAt
	}
	return view
}

func eventView(event store.Event) map[string]any {
	view := map[string]any{
		"id":          event.ID,
		"title":       event.Title,
		"description": event.Description,
		"venue":       event.Venue,
		"status":      event.Status,
		"isPublic":    event.IsPublic,
		"createdAt":   event.CreatedAt,
		"updatedAt":   event.UpdatedAt,
	}
	if event.CampaignID != nil {
		view["campaignId"] = *event.CampaignID
	}
	if event.OrganizerID != nil {
		view["organizerId"] = *event.OrganizerID
	}
	if event.StartsAt != nil {
		view["startsAt"] = *event.StartsAt
	}
	return view
}

// parseRFC3339 tolerates millisecond timestamps from JavaScript's
// Date.toISOString().
func parseRFC3339(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, s)
	}
	return t, err
}

func parseOptionalTime(s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := parseRFC3339(strings.TrimSpace(*s))
	if err != nil {
		return nil, err
	}
	return &t, nil
}
