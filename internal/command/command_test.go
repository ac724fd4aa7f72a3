package command

import (
	"context"
	"strings"
	"testing"
)

type echoCommand struct{}

func (echoCommand) Name() string        { return "Echo" }
func (echoCommand) Description() string { return "echo args" }
func (echoCommand) Execute(_ context.Context, args string, env Env) Result {
	return Result{Content: env.Prefix + args}
}

func TestRegistry_LookupUsesPrefix(t *testing.T) {
	r := NewRegistry("!")
	r.Register(echoCommand{})

	cmd, args, ok := r.Lookup("  !echo   hello world ")
	if !ok || cmd.Name() != "Echo" || args != "hello world" {
		t.Fatalf("unexpected lookup: ok=%v args=%q", ok, args)
	}
	for _, miss := range []string{"echo hi", "/echo hi", "!", "!unknown"} {
		if _, _, ok := r.Lookup(miss); ok {
			t.Fatalf("expected %q not to match", miss)
		}
	}
}

func TestRegistry_DefaultPrefixAndDispatch(t *testing.T) {
	r := NewRegistry("")
	r.Register(echoCommand{})

	res, ok := r.Dispatch(context.Background(), "!ECHO x", Env{})
	if !ok {
		t.Fatal("expected dispatch to match")
	}
	if res.Content != "!x" {
		t.Fatalf("expected env prefix to be filled, got %q", res.Content)
	}
}

func TestRegistry_RegisterDuplicatePanics(t *testing.T) {
	r := NewRegistry("!")
	r.Register(echoCommand{})
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate register")
		}
	}()
	r.Register(echoCommand{})
}

func TestHelpCommand_ListsSortedCommands(t *testing.T) {
	r := NewRegistry("!")
	r.Register(&VersionCommand{})
	r.Register(&HelpCommand{})
	r.Register(echoCommand{})

	res, _ := r.Dispatch(context.Background(), "!help", Env{})
	if !res.Private {
		t.Fatal("expected help to be private")
	}
	lines := strings.Split(strings.TrimSpace(res.Content), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %q", res.Content)
	}
	if !strings.Contains(lines[0], "`!Echo`") || !strings.Contains(lines[1], "`!help`") || !strings.Contains(lines[2], "`!version`") {
		t.Fatalf("unexpected help output: %q", res.Content)
	}
}
