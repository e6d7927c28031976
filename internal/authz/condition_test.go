package authz

import "testing"

func TestConditionMatches(t *testing.T) {
	owner := &Actor{ID: "u-owner", Role: RoleResident}
	stranger := &Actor{ID: "u-other", Role: RoleResident}

	cases := []struct {
		name   string
		cond   Condition
		actor  *Actor
		record Record
		want   bool
	}{
		{name: "always", cond: Always(), want: true},
		{name: "never", cond: Never(), record: Record{"anything": true}, want: false},
		{name: "signed in with actor", cond: SignedIn(), actor: stranger, want: true},
		{name: "signed in without actor", cond: SignedIn(), actor: nil, want: false},
		{name: "owner match", cond: OwnedBy("reported_by"), actor: owner, record: Record{"reported_by": "u-owner"}, want: true},
		{name: "owner mismatch", cond: OwnedBy("reported_by"), actor: stranger, record: Record{"reported_by": "u-owner"}, want: false},
		{name: "owner nil actor", cond: OwnedBy("reported_by"), actor: nil, record: Record{"reported_by": "u-owner"}, want: false},
		{name: "owner empty field", cond: OwnedBy("reported_by"), actor: owner, record: Record{"reported_by": ""}, want: false},
		{name: "equals true flag", cond: FieldEquals("is_public", true), record: Record{"is_public": true}, want: true},
		{name: "equals false flag", cond: FieldEquals("is_public", true), record: Record{"is_public": false}, want: false},
		{name: "equals missing field", cond: FieldEquals("is_public", true), record: Record{}, want: false},
		{name: "in set", cond: FieldIn("status", "voting", "completed"), record: Record{"status": "voting"}, want: true},
		{name: "not in set", cond: FieldIn("status", "voting", "completed"), record: Record{"status": "draft"}, want: false},
		{name: "in with non-string field", cond: FieldIn("status", "voting"), record: Record{"status": 3}, want: false},
		{
			name:   "disjunction public wins",
			cond:   AnyOf(FieldEquals("is_public", true), OwnedBy("reported_by")),
			actor:  stranger,
			record: Record{"is_public": true, "reported_by": "u-owner"},
			want:   true,
		},
		{
			name:   "disjunction owner wins",
			cond:   AnyOf(FieldEquals("is_public", true), OwnedBy("reported_by")),
			actor:  owner,
			record: Record{"is_public": false, "reported_by": "u-owner"},
			want:   true,
		},
		{
			name:   "disjunction neither",
			cond:   AnyOf(FieldEquals("is_public", true), OwnedBy("reported_by")),
			actor:  stranger,
			record: Record{"is_public": false, "reported_by": "u-owner"},
			want:   false,
		},
		{
			name:   "conjunction",
			cond:   AllOf(SignedIn(), FieldIn("status", "open")),
			actor:  stranger,
			record: Record{"status": "open"},
			want:   true,
		},
		{
			name:   "conjunction short-circuits",
			cond:   AllOf(Never(), Always()),
			record: Record{},
			want:   false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.cond.Matches(tc.actor, tc.record); got != tc.want {
				t.Fatalf("Matches = %v, want %v", got, tc.want)
			}
		})
	}
}
