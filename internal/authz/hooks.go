package authz

import "time"

// ownerFields maps each kind to the field the create hook stamps from the
// actor. Kinds absent here have no ownership and the hook is a no-op for
// them.
var ownerFields = map[Kind]string{
	KindIssue:             "reported_by",
	KindCampaign:          "organizer_id",
	KindEvent:             "organizer_id",
	KindBudgetCycle:       "created_by",
	KindProposal:          "submitted_by",
	KindProposalVote:      "voter_id",
	KindJobPosting:        "posted_by",
	KindWorkerProfile:     "user_id",
	KindTask:              "created_by",
	KindCreditTransaction: "user_id",
}

// ApplyCreateHook stamps trusted derived fields on a draft before it is
// persisted. The ownership field always comes from the actor, overwriting
// whatever the client sent; with no actor it is cleared rather than trusted.
// Tasks arriving already completed get a completion timestamp. The hook only
// adds trusted fields, it never validates.
func ApplyCreateHook(kind Kind, draft Record, actor *Actor) Record {
	if draft == nil {
		draft = Record{}
	}

	if field, ok := ownerFields[kind]; ok {
		if actor != nil {
			draft[field] = actor.ID
		} else {
			delete(draft, field)
		}
	}

	// Completion stamping applies to tasks only. Other status-bearing kinds
	// manage their own timestamps through explicit update paths.
	if kind == KindTask {
		if status, _ := draft["status"].(string); status == "completed" {
			if _, present := draft["completed_at"]; !present {
				draft["completed_at"] = time.Now().UTC()
			}
		}
	}

	return draft
}
