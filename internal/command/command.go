package command

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/MEKXH/warden/internal/notify"
	"github.com/MEKXH/warden/internal/policy"
)

// DefaultPrefix introduces text commands in chat.
const DefaultPrefix = "!"

// Env carries per-invocation context for a command.
type Env struct {
	Actor     policy.Actor
	RequestID string
	// Options holds named arguments from structured invocations such as
	// slash commands. Text invocations leave it nil and pass args instead.
	Options       map[string]string
	AttachmentURL string
	Prefix        string
	ListCommands  func() []Command // for help
}

// Option returns a trimmed named argument.
func (e Env) Option(name string) string {
	if e.Options == nil {
		return ""
	}
	return strings.TrimSpace(e.Options[name])
}

// Result is the reply to a command.
type Result struct {
	Title   string
	Content string
	Color   notify.Color
	Fields  []notify.Field
	// Private replies are shown to the invoking actor only.
	Private bool
}

// Message renders the result as a notice.
func (r Result) Message() notify.Message {
	return notify.Message{
		Title:       r.Title,
		Description: r.Content,
		Color:       r.Color,
		Fields:      r.Fields,
	}
}

// Command is the interface every chat command must implement.
type Command interface {
	// Name returns the command trigger without the prefix (e.g. "watchlist").
	Name() string
	// Description returns a short human-readable summary.
	Description() string
	// Execute runs the command. args is the trimmed text after the command name.
	Execute(ctx context.Context, args string, env Env) Result
}

// Registry holds registered commands and dispatches them.
type Registry struct {
	mu     sync.RWMutex
	prefix string
	cmds   map[string]Command
}

// NewRegistry creates an empty command registry for the given text prefix.
func NewRegistry(prefix string) *Registry {
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultPrefix
	}
	return &Registry{prefix: prefix, cmds: make(map[string]Command)}
}

// Prefix returns the text command prefix.
func (r *Registry) Prefix() string { return r.prefix }

// Register adds a command. Panics on duplicate names.
func (r *Registry) Register(cmd Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := strings.ToLower(cmd.Name())
	if _, dup := r.cmds[name]; dup {
		panic("command already registered: " + name)
	}
	r.cmds[name] = cmd
}

// Get returns a command by name.
func (r *Registry) Get(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.cmds[strings.ToLower(strings.TrimSpace(name))]
	return cmd, ok
}

// Lookup parses raw user input. If it starts with the prefix and matches a
// registered command, it returns the command, the remaining args, and true.
func (r *Registry) Lookup(content string) (Command, string, bool) {
	content = strings.TrimSpace(content)
	body, ok := strings.CutPrefix(content, r.prefix)
	if !ok {
		return nil, "", false
	}
	name, args, _ := strings.Cut(body, " ")
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, "", false
	}

	cmd, found := r.Get(name)
	if !found {
		return nil, "", false
	}
	return cmd, strings.TrimSpace(args), true
}

// List returns all registered commands sorted by name.
func (r *Registry) List() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Command, 0, len(r.cmds))
	for _, cmd := range r.cmds {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Dispatch looks up content and executes the matching command.
func (r *Registry) Dispatch(ctx context.Context, content string, env Env) (Result, bool) {
	cmd, args, ok := r.Lookup(content)
	if !ok {
		return Result{}, false
	}
	return r.Run(ctx, cmd, args, env), true
}

// Run executes cmd with registry defaults filled into env.
func (r *Registry) Run(ctx context.Context, cmd Command, args string, env Env) Result {
	if env.Prefix == "" {
		env.Prefix = r.prefix
	}
	if env.ListCommands == nil {
		env.ListCommands = r.List
	}
	return cmd.Execute(ctx, args, env)
}
