package authz

// Budget cycle statuses visible to the public. Draft and archived cycles are
// admin-only until opened.
var publicCycleStatuses = []string{"open_submissions", "voting", "completed"}

// rules maps every (kind, operation) to its base decision. Role elevation
// (admin everywhere, official on issue/task update) is layered on in
// Authorize, not repeated per entry. A missing entry is a deny.
var rules = map[Kind]map[Operation]Decision{
	KindIssue: {
		// Anonymous reporting is allowed; the create hook simply leaves
		// reported_by unset when there is no actor.
		OpCreate: Allow(),
		OpRead:   When(AnyOf(FieldEquals("is_public", true), OwnedBy("reported_by"))),
		OpUpdate: When(OwnedBy("reported_by")),
		OpDelete: Deny(),
	},
	KindCampaign: {
		OpCreate: When(SignedIn()),
		OpRead:   When(AnyOf(FieldEquals("is_public", true), OwnedBy("organizer_id"))),
		OpUpdate: When(OwnedBy("organizer_id")),
		OpDelete: Deny(),
	},
	KindEvent: {
		OpCreate: When(SignedIn()),
		OpRead:   When(AnyOf(FieldEquals("is_public", true), OwnedBy("organizer_id"))),
		OpUpdate: When(OwnedBy("organizer_id")),
		OpDelete: Deny(),
	},
	KindBudgetCycle: {
		OpCreate: Deny(),
		OpRead:   When(FieldIn("status", publicCycleStatuses...)),
		OpUpdate: Deny(),
		OpDelete: Deny(),
	},
	KindProposal: {
		// Intentionally open to drive participation.
		OpCreate: Allow(),
		OpRead:   Allow(),
		OpUpdate: When(OwnedBy("submitted_by")),
		OpDelete: Deny(),
	},
	KindProposalVote: {
		OpCreate: When(SignedIn()),
		OpRead:   When(OwnedBy("voter_id")),
		// Votes are immutable once cast.
		OpUpdate: Deny(),
		OpDelete: Deny(),
	},
	KindJobPosting: {
		OpCreate: Allow(),
		OpRead:   Allow(),
		OpUpdate: When(OwnedBy("posted_by")),
		OpDelete: When(OwnedBy("posted_by")),
	},
	KindWorkerProfile: {
		OpCreate: When(SignedIn()),
		OpRead:   Allow(),
		OpUpdate: When(OwnedBy("user_id")),
		OpDelete: When(OwnedBy("user_id")),
	},
	KindTask: {
		OpCreate: When(SignedIn()),
		OpRead:   When(SignedIn()),
		OpUpdate: When(OwnedBy("assigned_to")),
		OpDelete: Deny(),
	},
	KindCreditTransaction: {
		// Written by the credit service only, never by clients.
		OpCreate: Deny(),
		OpRead:   When(OwnedBy("user_id")),
		OpUpdate: Deny(),
		OpDelete: Deny(),
	},
}

// officialElevated lists the kinds an official may update regardless of
// ownership. Officials get no extra rights on any other kind or operation.
var officialElevated = map[Kind]bool{
	KindIssue: true,
	KindTask:  true,
}

// Authorize resolves the decision for one (kind, operation, actor) triple.
// It is total: every input resolves to exactly one decision, and anything
// not declared resolves to a deny.
func Authorize(kind Kind, op Operation, actor *Actor) Decision {
	if actor != nil && actor.Role == RoleAdmin {
		return Allow()
	}
	if actor != nil && actor.Role == RoleOfficial && op == OpUpdate && officialElevated[kind] {
		return Allow()
	}

	ops, ok := rules[kind]
	if !ok {
		return Deny()
	}
	decision, ok := ops[op]
	if !ok {
		return Deny()
	}
	return decision
}

// Kinds returns every kind with declared rules, for totality checks and
// bootstrap validation.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(rules))
	for kind := range rules {
		kinds = append(kinds, kind)
	}
	return kinds
}
