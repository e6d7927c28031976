package authz

import (
	"testing"
	"time"
)

func TestApplyCreateHookStampsOwner(t *testing.T) {
	actor := &Actor{ID: "u-123", Role: RoleResident}

	draft := ApplyCreateHook(KindIssue, Record{"title": "Pothole", "reported_by": "spoofed-id"}, actor)
	if draft["reported_by"] != "u-123" {
		t.Fatalf("client-supplied owner must be overwritten, got %v", draft["reported_by"])
	}
	if draft["title"] != "Pothole" {
		t.Fatalf("hook must not touch other fields")
	}
}

func TestApplyCreateHookIdempotent(t *testing.T) {
	actor := &Actor{ID: "u-123", Role: RoleResident}

	draft := ApplyCreateHook(KindCampaign, Record{}, actor)
	first := draft["organizer_id"]
	draft = ApplyCreateHook(KindCampaign, draft, actor)
	if draft["organizer_id"] != first {
		t.Fatalf("second application changed owner: %v -> %v", first, draft["organizer_id"])
	}
}

func TestApplyCreateHookAnonymous(t *testing.T) {
	draft := ApplyCreateHook(KindIssue, Record{"reported_by": "spoofed-id"}, nil)
	if _, present := draft["reported_by"]; present {
		t.Fatalf("anonymous create must not carry a client-supplied owner")
	}
}

func TestApplyCreateHookNilDraft(t *testing.T) {
	draft := ApplyCreateHook(KindIssue, nil, &Actor{ID: "u-1"})
	if draft == nil || draft["reported_by"] != "u-1" {
		t.Fatalf("nil draft should be initialized and stamped, got %v", draft)
	}
}

func TestApplyCreateHookCompletedTask(t *testing.T) {
	actor := &Actor{ID: "official-1", Role: RoleOfficial}

	draft := ApplyCreateHook(KindTask, Record{"status": "completed"}, actor)
	stamped, ok := draft["completed_at"].(time.Time)
	if !ok || stamped.IsZero() {
		t.Fatalf("completed task without timestamp should be stamped, got %v", draft["completed_at"])
	}

	// An existing timestamp is preserved.
	existing := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	draft = ApplyCreateHook(KindTask, Record{"status": "completed", "completed_at": existing}, actor)
	if draft["completed_at"] != existing {
		t.Fatalf("existing completion timestamp must be kept, got %v", draft["completed_at"])
	}

	// Only the completed status triggers stamping.
	draft = ApplyCreateHook(KindTask, Record{"status": "open"}, actor)
	if _, present := draft["completed_at"]; present {
		t.Fatalf("open task must not get a completion timestamp")
	}
}

func TestApplyCreateHookNoOwnerFieldIsNoop(t *testing.T) {
	// Kinds without declared ownership are left alone.
	draft := ApplyCreateHook(Kind("reference_data"), Record{"code": "WARD-7"}, &Actor{ID: "u-1"})
	if len(draft) != 1 || draft["code"] != "WARD-7" {
		t.Fatalf("hook on ownerless kind should be a no-op, got %v", draft)
	}
}
