package authz

// CondOp tags the variants of the condition AST.
type CondOp int

const (
	CondAlways CondOp = iota
	CondNever
	CondSignedIn
	CondOwner
	CondEquals
	CondIn
	CondAny
	CondAll
)

// Condition is a small declarative filter evaluated against the actor and a
// record. Store code may also inspect the variants to build equivalent query
// constraints; Matches is the reference interpretation.
type Condition struct {
	Op     CondOp
	Field  string
	Value  any
	Values []string
	Subs   []Condition
}

// Always matches every record.
func Always() Condition { return Condition{Op: CondAlways} }

// Never matches no record.
func Never() Condition { return Condition{Op: CondNever} }

// SignedIn matches any record when the actor is authenticated.
func SignedIn() Condition { return Condition{Op: CondSignedIn} }

// OwnedBy matches records whose field equals the actor's id.
func OwnedBy(field string) Condition { return Condition{Op: CondOwner, Field: field} }

// FieldEquals matches records whose field equals the literal value.
func FieldEquals(field string, value any) Condition {
	return Condition{Op: CondEquals, Field: field, Value: value}
}

// FieldIn matches records whose field is one of the given string values.
func FieldIn(field string, values ...string) Condition {
	return Condition{Op: CondIn, Field: field, Values: values}
}

// AnyOf matches when at least one sub-condition matches.
func AnyOf(subs ...Condition) Condition { return Condition{Op: CondAny, Subs: subs} }

// AllOf matches when every sub-condition matches.
func AllOf(subs ...Condition) Condition { return Condition{Op: CondAll, Subs: subs} }

// Matches evaluates the condition against one record. An unknown variant
// matches nothing.
func (c Condition) Matches(actor *Actor, record Record) bool {
	switch c.Op {
	case CondAlways:
		return true
	case CondNever:
		return false
	case CondSignedIn:
		return actor != nil
	case CondOwner:
		if actor == nil {
			return false
		}
		owner, ok := record[c.Field].(string)
		return ok && owner != "" && owner == actor.ID
	case CondEquals:
		return record[c.Field] == c.Value
	case CondIn:
		value, ok := record[c.Field].(string)
		if !ok {
			return false
		}
		for _, candidate := range c.Values {
			if candidate == value {
				return true
			}
		}
		return false
	case CondAny:
		for _, sub := range c.Subs {
			if sub.Matches(actor, record) {
				return true
			}
		}
		return false
	case CondAll:
		for _, sub := range c.Subs {
			if !sub.Matches(actor, record) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
