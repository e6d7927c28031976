package authz

import "testing"

func actorWith(role Role) *Actor {
	return &Actor{ID: "user-1", Role: role, Verified: true}
}

func TestAuthorizeTotality(t *testing.T) {
	operations := []Operation{OpCreate, OpRead, OpUpdate, OpDelete}
	actors := []*Actor{
		nil,
		actorWith(RoleResident),
		actorWith(RoleInformalWorker),
		actorWith(RoleOfficial),
		actorWith(RoleAdmin),
	}

	for _, kind := range Kinds() {
		for _, op := range operations {
			for _, actor := range actors {
				decision := Authorize(kind, op, actor)
				switch decision.Effect {
				case EffectAllow, EffectDeny, EffectConditional:
				default:
					t.Fatalf("Authorize(%s, %s) returned unknown effect %d", kind, op, decision.Effect)
				}
			}
		}
	}
}

func TestAuthorizeUnknownKindDenies(t *testing.T) {
	decision := Authorize(Kind("mystery"), OpRead, actorWith(RoleResident))
	if decision.Effect != EffectDeny {
		t.Fatalf("unknown kind should deny, got effect %d", decision.Effect)
	}
}

func TestAdminAlwaysAllowed(t *testing.T) {
	admin := actorWith(RoleAdmin)
	for _, kind := range Kinds() {
		for _, op := range []Operation{OpCreate, OpRead, OpUpdate, OpDelete} {
			decision := Authorize(kind, op, admin)
			if decision.Effect != EffectAllow {
				t.Fatalf("admin should be allowed %s on %s, got effect %d", op, kind, decision.Effect)
			}
		}
	}
}

func TestOfficialElevation(t *testing.T) {
	official := actorWith(RoleOfficial)

	cases := []struct {
		name  string
		kind  Kind
		op    Operation
		allow bool
	}{
		{name: "issue update elevated", kind: KindIssue, op: OpUpdate, allow: true},
		{name: "task update elevated", kind: KindTask, op: OpUpdate, allow: true},
		{name: "campaign update not elevated", kind: KindCampaign, op: OpUpdate, allow: false},
		{name: "event update not elevated", kind: KindEvent, op: OpUpdate, allow: false},
		{name: "issue delete not elevated", kind: KindIssue, op: OpDelete, allow: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision := Authorize(tc.kind, tc.op, official)
			if tc.allow && decision.Effect != EffectAllow {
				t.Fatalf("expected unconditional allow, got effect %d", decision.Effect)
			}
			if !tc.allow && decision.Effect == EffectAllow {
				t.Fatalf("expected no elevation, got unconditional allow")
			}
		})
	}
}

func TestOwnershipImmutableForOtherActors(t *testing.T) {
	record := Record{"reported_by": "owner-id", "is_public": true}

	cases := []struct {
		name  string
		actor *Actor
	}{
		{name: "public actor", actor: nil},
		{name: "other resident", actor: &Actor{ID: "intruder", Role: RoleResident}},
		{name: "informal worker", actor: &Actor{ID: "intruder", Role: RoleInformalWorker}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision := Authorize(KindIssue, OpUpdate, tc.actor)
			if decision.Permits(tc.actor, record) {
				t.Fatalf("update on another user's issue should be refused")
			}
		})
	}
}

func TestPublicVisibilityGrantsReadNotUpdate(t *testing.T) {
	record := Record{"organizer_id": "someone-else", "is_public": true}

	read := Authorize(KindCampaign, OpRead, nil)
	if !read.Permits(nil, record) {
		t.Fatalf("public campaign should be readable by anyone")
	}

	update := Authorize(KindCampaign, OpUpdate, nil)
	if update.Permits(nil, record) {
		t.Fatalf("is_public must never grant update")
	}
}

func TestBudgetCycleStatusGating(t *testing.T) {
	resident := actorWith(RoleResident)
	decision := Authorize(KindBudgetCycle, OpRead, resident)

	cases := []struct {
		status string
		allow  bool
	}{
		{status: "open_submissions", allow: true},
		{status: "voting", allow: true},
		{status: "completed", allow: true},
		{status: "draft", allow: false},
		{status: "archived", allow: false},
	}

	for _, tc := range cases {
		t.Run(tc.status, func(t *testing.T) {
			got := decision.Permits(resident, Record{"status": tc.status})
			if got != tc.allow {
				t.Fatalf("cycle status %q: got %v, want %v", tc.status, got, tc.allow)
			}
		})
	}
}

func TestNormalizeRole(t *testing.T) {
	cases := []struct {
		in   string
		want Role
	}{
		{in: "admin", want: RoleAdmin},
		{in: "official", want: RoleOfficial},
		{in: "informal_worker", want: RoleInformalWorker},
		{in: "resident", want: RoleResident},
		{in: "superuser", want: RoleResident},
		{in: "", want: RoleResident},
	}

	for _, tc := range cases {
		if got := NormalizeRole(tc.in); got != tc.want {
			t.Fatalf("NormalizeRole(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
