package policy

import (
	"errors"
	"testing"
)

func testConfig() Config {
	return Config{
		Roles: map[Operation][]string{
			OpAdd:     {"role-add"},
			OpRemove:  {"role-add"},
			OpRequest: {"role-request"},
			OpReview:  {"role-review"},
		},
		AdminRoles: []string{"role-admin"},
	}
}

func TestEvaluate_AllowsActorWithConfiguredRole(t *testing.T) {
	ev := NewEvaluator(testConfig())
	d := ev.Evaluate(Input{Operation: OpAdd, Actor: Actor{ID: "u1", Roles: []string{"role-add"}}})

	if d.Action != ActionAllow {
		t.Fatalf("expected %q, got %q", ActionAllow, d.Action)
	}
}

func TestEvaluate_DeniesActorWithoutRole(t *testing.T) {
	ev := NewEvaluator(testConfig())
	d := ev.Evaluate(Input{Operation: OpReview, Actor: Actor{ID: "u1", Roles: []string{"role-request"}}})

	if d.Action != ActionDeny {
		t.Fatalf("expected %q, got %q", ActionDeny, d.Action)
	}
	if d.Reason == "" {
		t.Fatal("expected a deny reason")
	}
}

func TestEvaluate_StatusIsOpenWhenUnconfigured(t *testing.T) {
	ev := NewEvaluator(testConfig())
	d := ev.Evaluate(Input{Operation: OpStatus, Actor: Actor{ID: "anyone"}})

	if d.Action != ActionAllow {
		t.Fatalf("expected %q, got %q", ActionAllow, d.Action)
	}
}

func TestEvaluate_UnconfiguredGatedOperationDenies(t *testing.T) {
	ev := NewEvaluator(testConfig())
	d := ev.Evaluate(Input{Operation: OpRefresh, Actor: Actor{ID: "u1", Roles: []string{"role-add"}}})

	if d.Action != ActionDeny {
		t.Fatalf("expected %q, got %q", ActionDeny, d.Action)
	}
}

func TestEvaluate_AdministratorPassesEveryGate(t *testing.T) {
	ev := NewEvaluator(testConfig())
	for _, op := range []Operation{OpAdd, OpRemove, OpRequest, OpReview, OpRefresh} {
		if d := ev.Evaluate(Input{Operation: op, Actor: Actor{ID: "u1", Administrator: true}}); d.Action != ActionAllow {
			t.Fatalf("expected administrator allowed for %s, got %q", op, d.Action)
		}
		if d := ev.Evaluate(Input{Operation: op, Actor: Actor{ID: "u2", Roles: []string{"role-admin"}}}); d.Action != ActionAllow {
			t.Fatalf("expected admin role allowed for %s, got %q", op, d.Action)
		}
	}
}

func TestEvaluate_UnknownOperationDenies(t *testing.T) {
	ev := NewEvaluator(testConfig())
	d := ev.Evaluate(Input{Operation: "purge", Actor: Actor{ID: "u1", Administrator: true}})

	if d.Action != ActionDeny {
		t.Fatalf("expected %q, got %q", ActionDeny, d.Action)
	}
}

func TestEvaluate_OperationAndRolesAreNormalized(t *testing.T) {
	ev := NewEvaluator(Config{Roles: map[Operation][]string{"  ADD ": {" role-add "}}})
	d := ev.Evaluate(Input{Operation: " Add", Actor: Actor{ID: "u1", Roles: []string{"role-add"}}})

	if d.Action != ActionAllow {
		t.Fatalf("expected %q, got %q", ActionAllow, d.Action)
	}
}

func TestAuthorize_ReturnsUnauthorizedError(t *testing.T) {
	ev := NewEvaluator(testConfig())
	err := ev.Authorize(OpAdd, Actor{ID: "u1"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	var denied *DeniedError
	if !errors.As(err, &denied) || denied.Operation != OpAdd {
		t.Fatalf("expected DeniedError for add, got %#v", err)
	}
	if err := ev.Authorize(OpAdd, Actor{ID: "u1", Roles: []string{"role-add"}}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestActorLabel(t *testing.T) {
	if got := (Actor{ID: "1", Name: "alice", Display: "<@1>"}).Label(); got != "<@1>" {
		t.Fatalf("expected display label, got %q", got)
	}
	if got := (Actor{ID: "1", Name: "alice"}).Label(); got != "alice" {
		t.Fatalf("expected name label, got %q", got)
	}
	if got := (Actor{ID: "1"}).Label(); got != "1" {
		t.Fatalf("expected id label, got %q", got)
	}
}
