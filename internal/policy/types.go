package policy

import (
	"errors"
	"strings"
)

// ErrUnauthorized is returned when an actor lacks the role an operation needs.
var ErrUnauthorized = errors.New("not authorized")

// Operation names a gated watchlist action.
type Operation string

const (
	OpAdd     Operation = "add"
	OpRemove  Operation = "remove"
	OpRequest Operation = "request"
	OpReview  Operation = "review"
	OpRefresh Operation = "refresh"
	OpStatus  Operation = "status"
)

// Action is the policy decision for an operation.
type Action string

const (
	ActionAllow Action = "allow"
	ActionDeny  Action = "deny"
)

// Config maps operations to the role ids allowed to perform them.
type Config struct {
	Roles      map[Operation][]string
	AdminRoles []string
}

// Actor is the identity invoking an operation.
type Actor struct {
	ID   string
	Name string
	// Display is how the actor is rendered in notices, e.g. a mention.
	Display       string
	Roles         []string
	Administrator bool
}

// System is the actor used by the scheduler, the gateway and the CLI.
func System(name string) Actor {
	return Actor{ID: name, Name: name, Display: name, Administrator: true}
}

// Label returns the best human-readable rendering of the actor.
func (a Actor) Label() string {
	if s := strings.TrimSpace(a.Display); s != "" {
		return s
	}
	if s := strings.TrimSpace(a.Name); s != "" {
		return s
	}
	return a.ID
}

// Input is the evaluation context.
type Input struct {
	Operation Operation
	Actor     Actor
}

// Decision is the deterministic policy result.
type Decision struct {
	Action Action
	Reason string
}
