package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"jijisauti/api/internal/authz"
	"jijisauti/api/internal/store"
	"jijisauti/api/internal/util"
)

var taskStatuses = map[string]bool{
	"open":        true,
	"in_progress": true,
	"completed":   true,
	"cancelled":   true,
}

type CreateJobInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
	PayNote     string `json:"payNote"`
}

func (s *Service) CreateJobPosting(ctx context.Context, session Session, input CreateJobInput) (map[string]any, error) {
	actor := session.actor()
	decision := authz.Authorize(authz.KindJobPosting, authz.OpCreate, actor)
	draft := authz.ApplyCreateHook(authz.KindJobPosting, authz.Record{}, actor)
	if !decision.Permits(actor, draft) {
		return nil, forbiddenError()
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION", "Title is required", nil)
	}

	job := store.JobPosting{
		ID:          util.NewID("job"),
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Location:    strings.TrimSpace(input.Location),
		PayNote:     strings.TrimSpace(input.PayNote),
		Status:      "open",
	}
	if postedBy, ok := draft["posted_by"].(string); ok {
		job.PostedBy = &postedBy
	}

	if err := s.store.InsertJobPosting(ctx, job); err != nil {
		return nil, fmt.Errorf("insert job posting: %w", err)
	}
	return jobView(job), nil
}

func (s *Service) ListJobPostings(ctx context.Context, limit int) ([]map[string]any, error) {
	jobs, err := s.store.ListJobPostings(ctx, limit)
	if err != nil {
		return nil, err
	}
	views := make([]map[string]any, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, jobView(job))
	}
	return views, nil
}

func (s *Service) DeleteJobPosting(ctx context.Context, session Session, jobID string) error {
	job, err := s.store.GetJobPosting(ctx, jobID)
	if err != nil {
		return err
	}
	actor := session.actor()
	decision := authz.Authorize(authz.KindJobPosting, authz.OpDelete, actor)
	if !decision.Permits(actor, jobRecord(job)) {
		return forbiddenError()
	}
	return s.store.DeleteJobPosting(ctx, jobID)
}

type WorkerProfileInput struct {
	Trade     string `json:"trade"`
	Bio       string `json:"bio"`
	Area      string `json:"area"`
	Available *bool  `json:"available,omitempty"`
}

// SaveWorkerProfile creates or updates the caller's own marketplace profile.
func (s *Service) SaveWorkerProfile(ctx context.Context, session Session, input WorkerProfileInput) (map[string]any, error) {
	actor := session.actor()
	decision := authz.Authorize(authz.KindWorkerProfile, authz.OpCreate, actor)
	draft := authz.ApplyCreateHook(authz.KindWorkerProfile, authz.Record{}, actor)
	if !decision.Permits(actor, draft) {
		return nil, forbiddenError()
	}

	trade := strings.TrimSpace(input.Trade)
	if trade == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION", "Trade is required", nil)
	}

	profile := store.WorkerProfile{
		ID:        util.NewID("wkr"),
		UserID:    actor.ID,
		Trade:     trade,
		Bio:       strings.TrimSpace(input.Bio),
		Area:      strings.TrimSpace(input.Area),
		Available: true,
	}
	if input.Available != nil {
		profile.Available = *input.Available
	}

	if err := s.store.UpsertWorkerProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("save worker profile: %w", err)
	}
	saved, err := s.store.GetWorkerProfile(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	return workerProfileView(saved), nil
}

func (s *Service) GetWorkerProfile(ctx context.Context, userID string) (map[string]any, error) {
	profile, err := s.store.GetWorkerProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return workerProfileView(profile), nil
}

func (s *Service) ListWorkerProfiles(ctx context.Context, trade string) ([]map[string]any, error) {
	profiles, err := s.store.ListWorkerProfiles(ctx, strings.TrimSpace(trade))
	if err != nil {
		return nil, err
	}
	views := make([]map[string]any, 0, len(profiles))
	for _, profile := range profiles {
		views = append(views, workerProfileView(profile))
	}
	return views, nil
}

func (s *Service) DeleteWorkerProfile(ctx context.Context, session Session, userID string) error {
	profile, err := s.store.GetWorkerProfile(ctx, userID)
	if err != nil {
		return err
	}
	actor := session.actor()
	decision := authz.Authorize(authz.KindWorkerProfile, authz.OpDelete, actor)
	if !decision.Permits(actor, authz.Record{"user_id": profile.UserID}) {
		return forbiddenError()
	}
	return s.store.DeleteWorkerProfile(ctx, userID)
}

type CreateTaskInput struct {
	Title      string  `json:"title"`
	Status     string  `json:"status"`
	AssignedTo *string `json:"assignedTo,omitempty"`
}

// CreateTask attaches a remediation task to an issue. A task arriving
// already completed is stamped with a completion time.
func (s *Service) CreateTask(ctx context.Context, session Session, issueID string, input CreateTaskInput) (map[string]any, error) {
	actor := session.actor()
	decision := authz.Authorize(authz.KindTask, authz.OpCreate, actor)

	if _, err := s.store.GetIssue(ctx, issueID); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION", "Title is required", nil)
	}
	status := strings.TrimSpace(input.Status)
	if status == "" {
		status = "open"
	}
	if !taskStatuses[status] {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION", "Unknown task status", nil)
	}

	draft := authz.Record{"status": status}
	draft = authz.ApplyCreateHook(authz.KindTask, draft, actor)
	if !decision.Permits(actor, draft) {
		return nil, forbiddenError()
	}

	task := store.Task{
		ID:         util.NewID("tsk"),
		IssueID:    issueID,
		Title:      title,
		Status:     status,
		AssignedTo: input.AssignedTo,
	}
	if createdBy, ok := draft["created_by"].(string); ok {
		task.CreatedBy = &createdBy
	}
	if completedAt, ok := draft["completed_at"].(time.Time); ok {
		task.CompletedAt = &completedAt
	}

	if err := s.store.InsertTask(ctx, task); err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return taskView(task), nil
}

func (s *Service) ListIssueTasks(ctx context.Context, session Session, issueID string) ([]map[string]any, error) {
	actor := session.actor()
	decision := authz.Authorize(authz.KindTask, authz.OpRead, actor)
	if !decision.Permits(actor, authz.Record{}) {
		return nil, forbiddenError()
	}
	if _, err := s.store.GetIssue(ctx, issueID); err != nil {
		return nil, err
	}
	tasks, err := s.store.ListIssueTasks(ctx, issueID)
	if err != nil {
		return nil, err
	}
	views := make([]map[string]any, 0, len(tasks))
	for _, task := range tasks {
		views = append(views, taskView(task))
	}
	return views, nil
}

type UpdateTaskInput struct {
	Status     string  `json:"status"`
	AssignedTo *string `json:"assignedTo,omitempty"`
}

// UpdateTask moves a task between statuses. Completion stamps completed_at
// once; officials may update any task, others only tasks assigned to them.
func (s *Service) UpdateTask(ctx context.Context, session Session, taskID string, input UpdateTaskInput) (map[string]any, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	actor := session.actor()
	decision := authz.Authorize(authz.KindTask, authz.OpUpdate, actor)
	if !decision.Permits(actor, taskRecord(task)) {
		return nil, forbiddenError()
	}

	status := strings.TrimSpace(input.Status)
	if status == "" {
		status = task.Status
	}
	if !taskStatuses[status] {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION", "Unknown task status", nil)
	}

	var completedAt sql.NullTime
	if status == "completed" && task.CompletedAt == nil {
		completedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	}

	if err := s.store.UpdateTask(ctx, taskID, status, input.AssignedTo, completedAt); err != nil {
		return nil, err
	}

	task.Status = status
	if input.AssignedTo != nil {
		task.AssignedTo = input.AssignedTo
	}
	if completedAt.Valid {
		task.CompletedAt = &completedAt.Time
	}
	return taskView(task), nil
}

func jobRecord(job store.JobPosting) authz.Record {
	record := authz.Record{"status": job.Status}
	if job.PostedBy != nil {
		record["posted_by"] = *job.PostedBy
	}
	return record
}

func jobView(job store.JobPosting) map[string]any {
	view := map[string]any{
		"id":          job.ID,
		"title":       job.Title,
		"description": job.Description,
		"location":    job.Location,
		"payNote":     job.PayNote,
		"status":      job.Status,
		"createdAt":   job.CreatedAt,
		"updatedAt":   job.UpdatedAt,
	}
	if job.PostedBy != nil {
		view["postedBy"] = *job.PostedBy
	}
	return view
}

func workerProfileView(profile store.WorkerProfile) map[string]any {
	return map[string]any{
		"id":        profile.ID,
		"userId":    profile.UserID,
		"trade":     profile.Trade,
		"bio":       profile.Bio,
		"area":      profile.Area,
		"available": profile.Available,
		"createdAt": profile.CreatedAt,
		"updatedAt": profile.UpdatedAt,
	}
}

func taskRecord(task store.Task) authz.Record {
	record := authz.Record{"status": task.Status}
	if task.AssignedTo != nil {
		record["assigned_to"] = *task.AssignedTo
	}
	if task.CreatedBy != nil {
		record["created_by"] = *task.CreatedBy
	}
	return record
}

func taskView(task store.Task) map[string]any {
	view := map[string]any{
		"id":        task.ID,
		"issueId":   task.IssueID,
		"title":     task.Title,
		"status":    task.Status,
		"createdAt": task.CreatedAt,
		"updatedAt": task.UpdatedAt,
	}
	if task.AssignedTo != nil {
		view["assignedTo"] = *task.AssignedTo
	}
	if task.CreatedBy != nil {
		view["createdBy"] = *task.CreatedBy
	}
	if task.CompletedAt != nil {
		view["completedAt"] = *task.CompletedAt
	}
	return view
}
