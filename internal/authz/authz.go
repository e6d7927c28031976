// Package authz decides, for every entity kind and operation, whether an
// actor may perform it, and stamps trusted fields on create. It is the
// server-side enforcement of the platform's access rules; handler-level
// checks elsewhere are UX only.
package authz

// Role is the closed set of platform roles. A nil *Actor is the public role.
type Role string

const (
	RoleResident       Role = "resident"
	RoleInformalWorker Role = "informal_worker"
	RoleOfficial       Role = "official"
	RoleAdmin          Role = "admin"
)

// Kind identifies a content entity kind with declared access rules.
type Kind string

const (
	KindIssue             Kind = "issue"
	KindCampaign          Kind = "campaign"
	KindEvent             Kind = "event"
	KindBudgetCycle       Kind = "budget_cycle"
	KindProposal          Kind = "proposal"
	KindProposalVote      Kind = "proposal_vote"
	KindJobPosting        Kind = "job_posting"
	KindWorkerProfile     Kind = "worker_profile"
	KindTask              Kind = "task"
	KindCreditTransaction Kind = "credit_transaction"
)

// Operation is one of the four persistence operations a rule can gate.
type Operation string

const (
	OpCreate Operation = "create"
	OpRead   Operation = "read"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Actor is the identity an operation is evaluated against. A nil pointer
// means an unauthenticated request.
type Actor struct {
	ID       string
	Role     Role
	Verified bool
}

// Record is the field view of an entity row a condition is matched against.
type Record map[string]any

// NormalizeRole maps an arbitrary role string onto the closed role set,
// defaulting to resident.
func NormalizeRole(role string) Role {
	switch Role(role) {
	case RoleResident, RoleInformalWorker, RoleOfficial, RoleAdmin:
		return Role(role)
	default:
		return RoleResident
	}
}

// Effect is the outcome class of an authorization decision.
type Effect int

const (
	EffectDeny Effect = iota
	EffectAllow
	EffectConditional
)

// Decision is the result of Authorize. A conditional decision carries the
// row filter the caller must apply; read paths translate it into query
// constraints, write paths match it against the target record.
type Decision struct {
	Effect Effect
	Filter Condition
}

// Allow grants the operation unconditionally.
func Allow() Decision { return Decision{Effect: EffectAllow} }

// Deny refuses the operation unconditionally.
func Deny() Decision { return Decision{Effect: EffectDeny} }

// When grants the operation only on records matching cond.
func When(cond Condition) Decision {
	return Decision{Effect: EffectConditional, Filter: cond}
}

// Permits reports whether the decision allows the operation on one concrete
// record.
func (d Decision) Permits(actor *Actor, record Record) bool {
	switch d.Effect {
	case EffectAllow:
		return true
	case EffectConditional:
		return d.Filter.Matches(actor, record)
	default:
		return false
	}
}
