package app

import (
	"context"
	"database/sql"
	"testing"

	"jijisauti/api/internal/store"
)

func TestCreateTaskStampsCompletion(t *testing.T) {
	var inserted store.Task
	fs := &fakeStore{
		getIssueFn: func(context.Context, string) (store.Issue, error) {
			return store.Issue{ID: "iss-1", IsPublic: true}, nil
		},
		insertTaskFn: func(_ context.Context, task store.Task) error {
			inserted = task
			return nil
		},
	}
	svc := newTestService(fs)

	view, err := svc.CreateTask(context.Background(), officialSession("usr-off"), "iss-1", CreateTaskInput{
		Title:  "Clear the drain",
		Status: "completed",
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if inserted.CompletedAt == nil {
		t.Fatal("tasks created as completed must carry a completion time")
	}
	if inserted.CreatedBy == nil || *inserted.CreatedBy != "usr-off" {
		t.Fatalf("creator not stamped, got %v", inserted.CreatedBy)
	}
	if _, ok := view["completedAt"]; !ok {
		t.Fatal("completedAt missing from the task view")
	}
}

func TestCreateTaskRequiresSignIn(t *testing.T) {
	fs := &fakeStore{
		getIssueFn: func(context.Context, string) (store.Issue, error) {
			return store.Issue{ID: "iss-1", IsPublic: true}, nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.CreateTask(context.Background(), Session{}, "iss-1", CreateTaskInput{Title: "x"})
	if domainErr, ok := err.(*DomainError); !ok || domainErr.Status != 403 {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestUpdateTaskAuthorization(t *testing.T) {
	assignee := "usr-worker"
	fs := &fakeStore{
		getTaskFn: func(context.Context, string) (store.Task, error) {
			return store.Task{ID: "tsk-1", IssueID: "iss-1", Title: "Fix light", Status: "in_progress", AssignedTo: &assignee}, nil
		},
	}
	svc := newTestService(fs)

	t.Run("stranger denied", func(t *testing.T) {
		_, err := svc.UpdateTask(context.Background(), residentSession("usr-other"), "tsk-1", UpdateTaskInput{Status: "completed"})
		if domainErr, ok := err.(*DomainError); !ok || domainErr.Status != 403 {
			t.Fatalf("expected 403, got %v", err)
		}
	})

	t.Run("assignee completes", func(t *testing.T) {
		var gotCompleted sql.NullTime
		fs.updateTaskFn = func(_ context.Context, _ string, status string, _ *string, completedAt sql.NullTime) error {
			gotCompleted = completedAt
			return nil
		}
		view, err := svc.UpdateTask(context.Background(), residentSession("usr-worker"), "tsk-1", UpdateTaskInput{Status: "completed"})
		if err != nil {
			t.Fatalf("UpdateTask: %v", err)
		}
		if !gotCompleted.Valid {
			t.Fatal("completion must set completed_at")
		}
		if view["status"] != "completed" {
			t.Fatalf("status not updated, got %v", view["status"])
		}
	})

	t.Run("official may update any task", func(t *testing.T) {
		if _, err := svc.UpdateTask(context.Background(), officialSession("usr-off"), "tsk-1", UpdateTaskInput{Status: "cancelled"}); err != nil {
			t.Fatalf("UpdateTask as official: %v", err)
		}
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		_, err := svc.UpdateTask(context.Background(), officialSession("usr-off"), "tsk-1", UpdateTaskInput{Status: "abandoned"})
		if domainErr, ok := err.(*DomainError); !ok || domainErr.Status != 422 {
			t.Fatalf("expected 422, got %v", err)
		}
	})
}

func TestDeleteJobPostingOwnerOnly(t *testing.T) {
	owner := "usr-owner"
	deleted := false
	fs := &fakeStore{
		getJobFn: func(context.Context, string) (store.JobPosting, error) {
			return store.JobPosting{ID: "job-1", Title: "Mason needed", Status: "open", PostedBy: &owner}, nil
		},
		deleteJobFn: func(context.Context, string) error {
			deleted = true
			return nil
		},
	}
	svc := newTestService(fs)

	if err := svc.DeleteJobPosting(context.Background(), residentSession("usr-other"), "job-1"); err == nil {
		t.Fatal("strangers must not delete job postings")
	}
	if deleted {
		t.Fatal("delete reached the store despite the denial")
	}

	if err := svc.DeleteJobPosting(context.Background(), residentSession("usr-owner"), "job-1"); err != nil {
		t.Fatalf("owner delete failed: %v", err)
	}
	if !deleted {
		t.Fatal("owner delete never reached the store")
	}
}

func TestCreateJobPostingAnonymous(t *testing.T) {
	svc := newTestService(&fakeStore{})

	view, err := svc.CreateJobPosting(context.Background(), Session{}, CreateJobInput{Title: "Carpenter for school desks"})
	if err != nil {
		t.Fatalf("CreateJobPosting: %v", err)
	}
	if view["status"] != "open" {
		t.Fatalf("jobs start open, got %v", view["status"])
	}
	if _, ok := view["postedBy"]; ok {
		t.Fatal("anonymous postings must not carry a poster")
	}
}

func TestSaveWorkerProfileDefaultsAvailable(t *testing.T) {
	var saved store.WorkerProfile
	fs := &fakeStore{
		upsertWorkerFn: func(_ context.Context, profile store.WorkerProfile) error {
			saved = profile
			return nil
		},
	}
	fs.getWorkerFn = func(context.Context, string) (store.WorkerProfile, error) {
		return saved, nil
	}
	svc := newTestService(fs)

	view, err := svc.SaveWorkerProfile(context.Background(), residentSession("usr-1"), WorkerProfileInput{
		Trade: "plumber",
		Area:  "Kibera",
	})
	if err != nil {
		t.Fatalf("SaveWorkerProfile: %v", err)
	}
	if view["available"] != true {
		t.Fatal("profiles default to available")
	}
	if saved.UserID != "usr-1" {
		t.Fatalf("profile not bound to the caller, got %q", saved.UserID)
	}

	if _, err := svc.SaveWorkerProfile(context.Background(), residentSession("usr-1"), WorkerProfileInput{}); err == nil {
		t.Fatal("trade is required")
	}
}

func officialSession(id string) Session {
	return Session{UserID: id, UserName: "Official " + id, Role: "official", Verified: true}
}
