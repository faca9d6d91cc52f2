// Package repl is the interactive debugger surface. It owns no
// execution state: every command goes through the controller or the
// interpreter, and everything it prints about execution arrives through
// bus subscriptions like any other observer.
package repl

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	prompt "github.com/c-bata/go-prompt"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mgutz/ansi"

	"github.com/kesava/nanobasic/internal/config"
	"github.com/kesava/nanobasic/internal/debug"
	"github.com/kesava/nanobasic/internal/event"
	"github.com/kesava/nanobasic/internal/lang/interp"
)

// CmdFn executes a command with its remaining arguments.
type CmdFn func(args []string)

// CmdArg describes one positional argument for help output.
type CmdArg struct {
	Name     string
	Required bool
}

// Command is one entry in the declarative command table.
type Command struct {
	Name        string
	Aliases     []string
	Summary     string
	Description string
	Exec        CmdFn
	Args        []CmdArg
	Subcommands []Command
}

// REPL drives the interactive session.
type REPL struct {
	ctrl *debug.Controller
	in   *interp.Interpreter
	bus  *event.Bus
	cfg  *config.Config
	out  io.Writer

	commands []Command
	cmdMaps  map[*[]Command]map[string]Command
	lastArgs []string
	quit     bool

	red    func(string) string
	green  func(string) string
	yellow func(string) string
	blue   func(string) string
}

// Option configures a REPL.
type Option func(*REPL)

// WithOutput redirects command output, used by tests.
func WithOutput(w io.Writer) Option {
	return func(r *REPL) {
		r.out = w
	}
}

// New builds a REPL over the given collaborators and subscribes it to
// the execution and breakpoint topics.
func New(ctrl *debug.Controller, in *interp.Interpreter, bus *event.Bus, cfg *config.Config, opts ...Option) *REPL {
	if cfg == nil {
		cfg = config.Default()
	}
	r := &REPL{
		ctrl:    ctrl,
		in:      in,
		bus:     bus,
		cfg:     cfg,
		out:     os.Stdout,
		cmdMaps: make(map[*[]Command]map[string]Command),
	}
	for _, opt := range opts {
		opt(r)
	}

	if cfg.REPL.Color {
		r.red = ansi.ColorFunc("red")
		r.green = ansi.ColorFunc("green")
		r.yellow = ansi.ColorFunc("yellow")
		r.blue = ansi.ColorFunc("blue")
	} else {
		identity := func(s string) string { return s }
		r.red, r.green, r.yellow, r.blue = identity, identity, identity, identity
	}

	r.commands = r.buildCommands()
	r.subscribe()
	return r
}

// Run starts the prompt loop and blocks until quit.
func (r *REPL) Run() {
	fmt.Fprintln(r.out, "Type 'help' for a list of commands.")
	p := prompt.New(
		r.Execute,
		r.complete,
		prompt.OptionTitle("nanobasic debugger"),
		prompt.OptionPrefix(r.cfg.REPL.Prompt),
		prompt.OptionSetExitCheckerOnInput(func(_ string, breakline bool) bool {
			return breakline && r.quit
		}),
		prompt.OptionAddKeyBind(prompt.KeyBind{Key: prompt.ControlC, Fn: func(*prompt.Buffer) {
			fmt.Fprintln(r.out, "interrupt ignored, use 'quit' to exit")
		}}),
	)
	p.Run()
}

// Execute parses one input line and dispatches it. An empty line
// repeats the previous command.
func (r *REPL) Execute(input string) {
	args := splitArgs(strings.TrimSpace(input))

	if len(args) == 0 {
		if len(r.lastArgs) == 0 {
			r.helpExec(nil)
			return
		}
		args = r.lastArgs
	}
	r.lastArgs = args

	cmdList := &r.commands
	rest := args
	for {
		cmd, found := r.commandMap(cmdList)[rest[0]]
		if !found {
			fmt.Fprintf(r.out, "%s\n", r.red(fmt.Sprintf("unknown command %q", strings.Join(args, " "))))
			r.helpExec(nil)
			return
		}
		rest = rest[1:]

		if len(cmd.Subcommands) > 0 && len(rest) > 0 {
			cmdList = &cmd.Subcommands
			continue
		}
		if cmd.Exec == nil {
			fmt.Fprintf(r.out, "%s\n", r.red(fmt.Sprintf("%q needs a sub-command", cmd.Name)))
			r.helpExec(args)
			return
		}

		cmd.Exec(rest)
		return
	}
}

// splitArgs splits on spaces while keeping quoted sections intact.
func splitArgs(in string) []string {
	quoted := false
	args := strings.FieldsFunc(in, func(c rune) bool {
		if c == '"' {
			quoted = !quoted
		}
		return !quoted && c == ' '
	})
	for i, arg := range args {
		args[i] = strings.Trim(arg, `"`)
	}
	return args
}

func (r *REPL) commandMap(cmds *[]Command) map[string]Command {
	if m, ok := r.cmdMaps[cmds]; ok {
		return m
	}
	m := make(map[string]Command)
	for _, cmd := range *cmds {
		m[cmd.Name] = cmd
		for _, alias := range cmd.Aliases {
			m[alias] = cmd
		}
	}
	r.cmdMaps[cmds] = m
	return m
}

// complete resolves the command path under the cursor and ranks the
// candidates with fuzzy matching.
func (r *REPL) complete(doc prompt.Document) []prompt.Suggest {
	text := strings.TrimSpace(doc.Text)
	if text == "" {
		return nil
	}

	args := splitArgs(text)
	cmdList := &r.commands
	for len(args) > 1 {
		cmd, found := r.commandMap(cmdList)[args[0]]
		if !found || len(cmd.Subcommands) == 0 {
			break
		}
		cmdList = &cmd.Subcommands
		args = args[1:]
	}

	names := make([]string, 0, len(*cmdList))
	for _, cmd := range *cmdList {
		names = append(names, cmd.Name)
		names = append(names, cmd.Aliases...)
	}

	search := ""
	if len(args) > 0 {
		search = args[len(args)-1]
	}

	ranks := fuzzy.RankFind(search, names)
	sort.Sort(ranks)

	cmdMap := r.commandMap(cmdList)
	suggestions := make([]prompt.Suggest, 0, len(ranks))
	for _, rank := range ranks {
		cmd, ok := cmdMap[rank.Target]
		if !ok {
			continue
		}
		suggestions = append(suggestions, prompt.Suggest{
			Text:        rank.Target,
			Description: cmd.Summary,
		})
	}
	return suggestions
}

// subscribe wires the REPL to everything it reports on. The bus may be
// nil in tests that drive commands directly.
func (r *REPL) subscribe() {
	if r.bus == nil {
		return
	}
	r.bus.SubscribeFunc(debug.TopicPaused, func(_ context.Context, ev any) error { //nolint:errcheck
		if pe, ok := ev.(debug.PausedEvent); ok {
			r.printPaused(pe)
		}
		return nil
	})
	r.bus.SubscribeFunc(debug.TopicBreakpointHit, func(_ context.Context, ev any) error { //nolint:errcheck
		if he, ok := ev.(debug.BreakpointHitEvent); ok {
			fmt.Fprintf(r.out, "%s\n", r.yellow(fmt.Sprintf("breakpoint %s hit (count %d)",
				shortID(he.Breakpoint.ID), he.HitCount)))
		}
		return nil
	})
	r.bus.SubscribeFunc(debug.TopicBreakpointLog, func(_ context.Context, ev any) error { //nolint:errcheck
		if le, ok := ev.(debug.BreakpointLogEvent); ok {
			fmt.Fprintf(r.out, "%s\n", r.blue(fmt.Sprintf("log %d:%d: %s",
				le.Location.Line, le.Location.Column, le.Message)))
		}
		return nil
	})
	r.bus.SubscribeFunc(debug.TopicOutput, func(_ context.Context, ev any) error { //nolint:errcheck
		if oe, ok := ev.(debug.OutputEvent); ok {
			fmt.Fprintln(r.out, oe.Text)
		}
		return nil
	})
	r.bus.SubscribeFunc(debug.TopicException, func(_ context.Context, ev any) error { //nolint:errcheck
		if ee, ok := ev.(debug.ExceptionEvent); ok {
			fmt.Fprintf(r.out, "%s\n", r.red(fmt.Sprintf("runtime error at line %d: %s",
				ee.Location.Line, ee.Message)))
		}
		return nil
	})
	r.bus.SubscribeFunc(debug.TopicTerminated, func(_ context.Context, ev any) error { //nolint:errcheck
		if te, ok := ev.(debug.TerminatedEvent); ok {
			fmt.Fprintf(r.out, "%s\n", r.green("program terminated: "+te.Reason))
		}
		return nil
	})
	r.bus.SubscribeFunc(config.TopicConfigChanged, func(_ context.Context, ev any) error { //nolint:errcheck
		if ce, ok := ev.(config.ChangedEvent); ok {
			r.cfg = ce.Config
			fmt.Fprintf(r.out, "configuration reloaded from %s\n", ce.Path)
		}
		return nil
	})
}

func (r *REPL) printPaused(pe debug.PausedEvent) {
	fmt.Fprintf(r.out, "%s\n", r.yellow(fmt.Sprintf("paused (%s) at line %d",
		pe.Reason, pe.Location.Line)))
	r.printSourceContext(pe.Location.Line)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
