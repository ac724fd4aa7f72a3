package policy

import (
	"fmt"
	"strings"
)

// open operations are allowed when no role is configured for them.
var open = map[Operation]bool{
	OpStatus: true,
}

// Evaluator performs pure role-membership decisions.
type Evaluator struct {
	roles  map[Operation]map[string]struct{}
	admins map[string]struct{}
}

// NewEvaluator builds a deterministic, side-effect free evaluator.
func NewEvaluator(cfg Config) Evaluator {
	roles := make(map[Operation]map[string]struct{}, len(cfg.Roles))
	for op, ids := range cfg.Roles {
		set := toSet(ids)
		if len(set) == 0 {
			continue
		}
		roles[normalizeOperation(op)] = set
	}
	return Evaluator{
		roles:  roles,
		admins: toSet(cfg.AdminRoles),
	}
}

// Evaluate returns a deterministic decision for the given input.
func (e Evaluator) Evaluate(input Input) Decision {
	op := normalizeOperation(input.Operation)
	if !known(op) {
		return Decision{Action: ActionDeny, Reason: "unknown operation"}
	}
	if input.Actor.Administrator || hasAny(input.Actor.Roles, e.admins) {
		return Decision{Action: ActionAllow}
	}

	allowed, ok := e.roles[op]
	if !ok {
		if open[op] {
			return Decision{Action: ActionAllow}
		}
		return Decision{Action: ActionDeny, Reason: "no role configured for " + string(op)}
	}
	if hasAny(input.Actor.Roles, allowed) {
		return Decision{Action: ActionAllow}
	}
	return Decision{Action: ActionDeny, Reason: "missing role for " + string(op)}
}

// Authorize returns ErrUnauthorized when the actor may not perform op.
func (e Evaluator) Authorize(op Operation, actor Actor) error {
	d := e.Evaluate(Input{Operation: op, Actor: actor})
	if d.Action == ActionAllow {
		return nil
	}
	return &DeniedError{Operation: normalizeOperation(op), Reason: d.Reason}
}

// DeniedError carries the denied operation. It matches ErrUnauthorized.
type DeniedError struct {
	Operation Operation
	Reason    string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", ErrUnauthorized, e.Operation, e.Reason)
}

func (e *DeniedError) Is(target error) bool { return target == ErrUnauthorized }

func known(op Operation) bool {
	switch op {
	case OpAdd, OpRemove, OpRequest, OpReview, OpRefresh, OpStatus:
		return true
	default:
		return false
	}
}

func hasAny(roles []string, set map[string]struct{}) bool {
	for _, r := range roles {
		if _, ok := set[strings.TrimSpace(r)]; ok {
			return true
		}
	}
	return false
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		set[id] = struct{}{}
	}
	return set
}

func normalizeOperation(op Operation) Operation {
	return Operation(strings.ToLower(strings.TrimSpace(string(op))))
}
