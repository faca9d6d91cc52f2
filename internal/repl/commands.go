package repl

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/kesava/nanobasic/internal/debug"
	"github.com/kesava/nanobasic/internal/lang/parser"
)

func (r *REPL) buildCommands() []Command {
	return []Command{
		{
			Name:        "help",
			Aliases:     []string{"h"},
			Summary:     "Show available commands",
			Description: "Show a summary of all commands or detailed help for one command",
			Exec:        r.helpExec,
			Args:        []CmdArg{{Name: "command"}},
		},
		{
			Name:    "load",
			Summary: "Load a program from a source file",
			Exec:    r.loadExec,
			Args:    []CmdArg{{Name: "file", Required: true}},
		},
		{
			Name:    "run",
			Aliases: []string{"r"},
			Summary: "Run the loaded program from the first line",
			Exec:    r.runExec,
		},
		{
			Name:    "continue",
			Aliases: []string{"c", "cont"},
			Summary: "Continue a paused program",
			Exec:    r.continueExec,
		},
		{
			Name:    "step",
			Aliases: []string{"s"},
			Summary: "Execute one statement and pause",
			Exec:    r.stepExec,
			Args:    []CmdArg{{Name: "count"}},
		},
		{
			Name:    "break",
			Aliases: []string{"b", "bp"},
			Summary: "Breakpoint management",
			Subcommands: []Command{
				{
					Name:    "list",
					Aliases: []string{"ls"},
					Summary: "List all breakpoints",
					Exec:    r.breakListExec,
				},
				{
					Name:    "set",
					Aliases: []string{"add"},
					Summary: "Set a breakpoint, optionally with a condition",
					Exec:    r.breakSetExec,
					Args: []CmdArg{
						{Name: "line", Required: true},
						{Name: "condition"},
					},
				},
				{
					Name:    "remove",
					Aliases: []string{"rm", "delete"},
					Summary: "Remove a breakpoint",
					Exec:    r.breakRemoveExec,
					Args:    []CmdArg{{Name: "line or id", Required: true}},
				},
				{
					Name:    "enable",
					Summary: "Enable a breakpoint",
					Exec:    func(args []string) { r.breakToggleExec(args, true) },
					Args:    []CmdArg{{Name: "line or id", Required: true}},
				},
				{
					Name:    "disable",
					Summary: "Disable a breakpoint without removing it",
					Exec:    func(args []string) { r.breakToggleExec(args, false) },
					Args:    []CmdArg{{Name: "line or id", Required: true}},
				},
				{
					Name:    "condition",
					Aliases: []string{"cond"},
					Summary: "Attach a variable condition, e.g. I == 3",
					Exec:    r.breakConditionExec,
					Args: []CmdArg{
						{Name: "line or id", Required: true},
						{Name: "expression", Required: true},
					},
				},
				{
					Name:    "hits",
					Summary: "Attach a hit-count condition, e.g. >=3, ==2 or %5",
					Exec:    r.breakHitsExec,
					Args: []CmdArg{
						{Name: "line or id", Required: true},
						{Name: "predicate", Required: true},
					},
				},
				{
					Name:    "log",
					Summary: "Make a breakpoint log-only with the given message",
					Exec:    r.breakLogExec,
					Args: []CmdArg{
						{Name: "line", Required: true},
						{Name: "message", Required: true},
					},
				},
				{
					Name:    "clear",
					Summary: "Remove all breakpoints",
					Exec:    r.breakClearExec,
				},
				{
					Name:    "export",
					Summary: "Export breakpoints to a JSON file",
					Exec:    r.breakExportExec,
					Args:    []CmdArg{{Name: "file", Required: true}},
				},
				{
					Name:    "import",
					Summary: "Import breakpoints from a JSON file",
					Exec:    r.breakImportExec,
					Args:    []CmdArg{{Name: "file", Required: true}},
				},
				{
					Name:    "stats",
					Summary: "Show breakpoint statistics",
					Exec:    r.breakStatsExec,
				},
			},
		},
		{
			Name:    "locals",
			Summary: "Dump the variables visible in the current frame",
			Exec:    r.localsExec,
		},
		{
			Name:    "frames",
			Aliases: []string{"bt", "backtrace"},
			Summary: "Show the call frame chain",
			Exec:    r.framesExec,
		},
		{
			Name:    "list",
			Aliases: []string{"l"},
			Summary: "List source around the current line",
			Exec:    r.listExec,
		},
		{
			Name:    "state",
			Summary: "Show the execution state",
			Exec:    r.stateExec,
		},
		{
			Name:    "history",
			Summary: "Show recent state transitions",
			Exec:    r.historyExec,
		},
		{
			Name:    "reset",
			Summary: "Reset execution back to idle",
			Exec:    r.resetExec,
		},
		{
			Name:    "quit",
			Aliases: []string{"q", "exit"},
			Summary: "Exit the debugger",
			Exec: func([]string) {
				r.quit = true
			},
		},
	}
}

func (r *REPL) errorf(format string, args ...any) {
	fmt.Fprintf(r.out, "%s\n", r.red(fmt.Sprintf(format, args...)))
}

func (r *REPL) helpExec(args []string) {
	printCmds := func(cmds []Command) {
		for _, cmd := range cmds {
			name := cmd.Name
			if len(cmd.Aliases) > 0 {
				name = fmt.Sprintf("%s (alias: %s)", cmd.Name, strings.Join(cmd.Aliases, ", "))
			}
			pad := 36 - len(name)
			if pad < 1 {
				pad = 1
			}
			fmt.Fprintf(r.out, "  %s%s%s\n", name, strings.Repeat(" ", pad), cmd.Summary)
		}
	}

	var describe func(cmds *[]Command, args []string) bool
	describe = func(cmds *[]Command, args []string) bool {
		cmd, ok := r.commandMap(cmds)[args[0]]
		if !ok {
			return false
		}
		args = args[1:]
		if len(cmd.Subcommands) > 0 && len(args) > 0 {
			if describe(&cmd.Subcommands, args) {
				return true
			}
		}

		usage := cmd.Name
		if len(cmd.Subcommands) > 0 {
			usage += " {sub-command}"
		}
		for _, arg := range cmd.Args {
			if arg.Required {
				usage += fmt.Sprintf(" {%s}", arg.Name)
			} else {
				usage += fmt.Sprintf(" [%s]", arg.Name)
			}
		}
		fmt.Fprintf(r.out, "%s - %s\n", usage, cmd.Summary)
		if cmd.Description != "" {
			fmt.Fprintln(r.out, cmd.Description)
		}
		if len(cmd.Subcommands) > 0 {
			fmt.Fprintln(r.out, "Sub-commands:")
			printCmds(cmd.Subcommands)
		}
		return true
	}

	if len(args) > 0 && describe(&r.commands, args) {
		return
	}
	fmt.Fprintln(r.out, "Commands:")
	printCmds(r.commands)
}

func (r *REPL) loadExec(args []string) {
	if len(args) == 0 {
		r.errorf("load needs a file path")
		return
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		r.errorf("load: %v", err)
		return
	}
	prog, err := parser.Parse(string(data))
	if err != nil {
		r.errorf("load: %v", err)
		return
	}
	r.in.Load(prog)
	fmt.Fprintf(r.out, "loaded %s (%d lines)\n", args[0], prog.Len())
}

func (r *REPL) runExec([]string) {
	if err := r.in.Run(context.Background()); err != nil {
		r.errorf("run: %v", err)
	}
}

func (r *REPL) continueExec([]string) {
	if err := r.in.Resume(context.Background()); err != nil {
		r.errorf("continue: %v", err)
	}
}

func (r *REPL) stepExec(args []string) {
	count := 1
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			r.errorf("step: bad count %q", args[0])
			return
		}
		count = n
	}
	for i := 0; i < count; i++ {
		if err := r.in.Step(context.Background(), debug.StepInto); err != nil {
			r.errorf("step: %v", err)
			return
		}
	}
}

// resolveBreakpoint maps a line number or an id prefix to a breakpoint.
// Digit-only arguments are tried as a line first; a miss falls through
// to prefix matching so short hex ids keep working.
func (r *REPL) resolveBreakpoint(arg string) (debug.Breakpoint, bool) {
	if line, err := strconv.Atoi(arg); err == nil {
		if loc, ok := r.statementLocation(line); ok {
			if bp, ok := r.ctrl.Registry().FindAt(loc); ok {
				return bp, true
			}
		}
	}
	for _, bp := range r.ctrl.Registry().List() {
		if strings.HasPrefix(bp.ID, arg) {
			return bp, true
		}
	}
	return debug.Breakpoint{}, false
}

// statementLocation finds the suspension location of the statement on
// the given program line.
func (r *REPL) statementLocation(line int) (debug.Location, bool) {
	prog := r.in.Program()
	if prog == nil {
		return debug.Location{}, false
	}
	idx := prog.IndexOfLine(line)
	if idx < 0 {
		return debug.Location{}, false
	}
	span, ok := prog.Lines[idx].Stmt.Span()
	if !ok {
		return debug.Location{}, false
	}
	return debug.Location{Line: span.Start.Line, Column: span.Start.Column}, true
}

func (r *REPL) breakListExec([]string) {
	bps := r.ctrl.Registry().List()
	if len(bps) == 0 {
		fmt.Fprintln(r.out, "no breakpoints")
		return
	}
	for _, bp := range bps {
		state := r.green("enabled")
		if !bp.Enabled {
			state = r.red("disabled")
		}
		detail := ""
		if bp.Condition != nil {
			switch bp.Condition.Kind() {
			case debug.ConditionLog:
				detail = fmt.Sprintf("  log %q", bp.LogMessage)
			default:
				detail = "  when " + bp.Condition.Expr()
			}
		}
		fmt.Fprintf(r.out, "  %s  line %-4d %s  hits %d%s\n",
			shortID(bp.ID), bp.Location.Line, state, bp.HitCount, detail)
	}
}

func (r *REPL) breakSetExec(args []string) {
	if len(args) == 0 {
		r.errorf("break set needs a line number")
		return
	}
	line, err := strconv.Atoi(args[0])
	if err != nil {
		r.errorf("break set: bad line %q", args[0])
		return
	}
	loc, ok := r.statementLocation(line)
	if !ok {
		r.errorf("break set: no statement on line %d", line)
		return
	}

	var opts []debug.BreakpointOption
	if len(args) > 1 {
		cond, err := debug.ParseCondition(debug.ConditionExpression, strings.Join(args[1:], " "))
		if err != nil {
			r.errorf("break set: %v", err)
			return
		}
		opts = append(opts, debug.WithCondition(cond))
	}

	bp := r.ctrl.Registry().Add(loc, opts...)
	fmt.Fprintf(r.out, "breakpoint %s at line %d\n", shortID(bp.ID), line)
}

func (r *REPL) breakRemoveExec(args []string) {
	if len(args) == 0 {
		r.errorf("break remove needs a line number or id")
		return
	}
	bp, ok := r.resolveBreakpoint(args[0])
	if !ok {
		r.errorf("no breakpoint matching %q", args[0])
		return
	}
	r.ctrl.Registry().Remove(bp.ID)
	fmt.Fprintf(r.out, "removed breakpoint %s\n", shortID(bp.ID))
}

func (r *REPL) breakToggleExec(args []string, enable bool) {
	if len(args) == 0 {
		r.errorf("need a line number or id")
		return
	}
	bp, ok := r.resolveBreakpoint(args[0])
	if !ok {
		r.errorf("no breakpoint matching %q", args[0])
		return
	}
	if bp.Enabled != enable {
		r.ctrl.Registry().Toggle(bp.ID)
	}
	state := "disabled"
	if enable {
		state = "enabled"
	}
	fmt.Fprintf(r.out, "breakpoint %s %s\n", shortID(bp.ID), state)
}

func (r *REPL) breakConditionExec(args []string) {
	if len(args) < 2 {
		r.errorf("break condition needs a breakpoint and an expression")
		return
	}
	bp, ok := r.resolveBreakpoint(args[0])
	if !ok {
		r.errorf("no breakpoint matching %q", args[0])
		return
	}
	cond, err := debug.ParseCondition(debug.ConditionExpression, strings.Join(args[1:], " "))
	if err != nil {
		r.errorf("break condition: %v", err)
		return
	}
	r.ctrl.Registry().SetCondition(bp.ID, cond)
	fmt.Fprintf(r.out, "breakpoint %s pauses when %s\n", shortID(bp.ID), cond.Expr())
}

func (r *REPL) breakHitsExec(args []string) {
	if len(args) < 2 {
		r.errorf("break hits needs a breakpoint and a predicate")
		return
	}
	bp, ok := r.resolveBreakpoint(args[0])
	if !ok {
		r.errorf("no breakpoint matching %q", args[0])
		return
	}
	cond, err := debug.ParseCondition(debug.ConditionHitCount, strings.Join(args[1:], " "))
	if err != nil {
		r.errorf("break hits: %v", err)
		return
	}
	r.ctrl.Registry().SetCondition(bp.ID, cond)
	fmt.Fprintf(r.out, "breakpoint %s pauses on hits %s\n", shortID(bp.ID), cond.Expr())
}

func (r *REPL) breakLogExec(args []string) {
	if len(args) < 2 {
		r.errorf("break log needs a line number and a message")
		return
	}
	line, err := strconv.Atoi(args[0])
	if err != nil {
		r.errorf("break log: bad line %q", args[0])
		return
	}
	loc, ok := r.statementLocation(line)
	if !ok {
		r.errorf("break log: no statement on line %d", line)
		return
	}
	msg := strings.Join(args[1:], " ")
	bp := r.ctrl.Registry().Add(loc, debug.WithLogMessage(msg))
	fmt.Fprintf(r.out, "log point %s at line %d\n", shortID(bp.ID), line)
}

func (r *REPL) breakClearExec([]string) {
	r.ctrl.Registry().Clear()
	fmt.Fprintln(r.out, "all breakpoints removed")
}

func (r *REPL) breakExportExec(args []string) {
	if len(args) == 0 {
		r.errorf("break export needs a file path")
		return
	}
	data, err := r.ctrl.Registry().ExportJSON()
	if err != nil {
		r.errorf("break export: %v", err)
		return
	}
	if err := os.WriteFile(args[0], []byte(data), 0o644); err != nil {
		r.errorf("break export: %v", err)
		return
	}
	fmt.Fprintf(r.out, "exported %d breakpoints to %s\n",
		r.ctrl.Registry().Statistics().Total, args[0])
}

func (r *REPL) breakImportExec(args []string) {
	if len(args) == 0 {
		r.errorf("break import needs a file path")
		return
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		r.errorf("break import: %v", err)
		return
	}
	result := r.ctrl.Registry().ImportJSON(string(data))
	if !result.Success {
		r.errorf("break import failed: %s", strings.Join(result.Errors, "; "))
		return
	}
	fmt.Fprintf(r.out, "imported %d breakpoints\n", result.Imported)
	for _, msg := range result.Errors {
		fmt.Fprintf(r.out, "  %s\n", r.yellow("skipped "+msg))
	}
}

func (r *REPL) breakStatsExec([]string) {
	s := r.ctrl.Registry().Statistics()
	fmt.Fprintf(r.out, "total %d  enabled %d  disabled %d  conditional %d  hits %d\n",
		s.Total, s.Enabled, s.Disabled, s.WithConditions, s.TotalHits)
}

func (r *REPL) localsExec([]string) {
	frame := r.in.Frame()
	if frame == nil {
		fmt.Fprintln(r.out, "no frame")
		return
	}
	snapshot := frame.Snapshot()
	if len(snapshot) == 0 {
		fmt.Fprintln(r.out, "no variables")
		return
	}
	cfg := spew.ConfigState{Indent: "  ", SortKeys: true, DisableMethods: true}
	fmt.Fprint(r.out, cfg.Sdump(snapshot))
}

func (r *REPL) framesExec([]string) {
	frame := r.in.Frame()
	if frame == nil {
		fmt.Fprintln(r.out, "no frame")
		return
	}
	for _, fi := range frame.Backtrace() {
		fmt.Fprintf(r.out, "  #%d %s (%d locals)\n", fi.Depth, fi.Name, len(fi.Locals))
	}
}

const listContext = 4

func (r *REPL) listExec([]string) {
	if r.in.Program() == nil {
		r.errorf("no program loaded")
		return
	}
	r.printSourceContext(r.in.CurrentLine())
}

// printSourceContext lists source lines around the given program line,
// marking breakpoints and the current line.
func (r *REPL) printSourceContext(current int) {
	prog := r.in.Program()
	if prog == nil {
		return
	}
	idx := prog.IndexOfLine(current)
	lo, hi := 0, prog.Len()
	if idx >= 0 {
		if idx-listContext > lo {
			lo = idx - listContext
		}
		if idx+listContext+1 < hi {
			hi = idx + listContext + 1
		}
	}

	for i := lo; i < hi; i++ {
		ln := prog.Lines[i]
		marker := "  "
		if loc, ok := r.statementLocation(ln.Number); ok {
			if _, set := r.ctrl.Registry().FindAt(loc); set {
				marker = r.red("* ")
			}
		}
		text := ln.Source
		if ln.Number == current {
			fmt.Fprintf(r.out, "%s=> %s\n", marker, r.yellow(text))
		} else {
			fmt.Fprintf(r.out, "%s   %s\n", marker, text)
		}
	}
}

func (r *REPL) stateExec([]string) {
	info := r.ctrl.StateInfo()
	display := info.Display
	switch {
	case info.IsPaused:
		display = r.yellow(display)
	case info.IsRunning:
		display = r.green(display)
	}
	fmt.Fprintf(r.out, "state: %s  step mode: %s\n", display, info.StepMode)
	if cont := r.in.Continuation(); cont.Active {
		fmt.Fprintf(r.out, "cursor: statement %d (line %d)\n", cont.Index, r.in.CurrentLine())
	}
}

func (r *REPL) historyExec([]string) {
	records := r.ctrl.History()
	if len(records) == 0 {
		fmt.Fprintln(r.out, "no transitions")
		return
	}
	for _, rec := range records {
		fmt.Fprintf(r.out, "  %s  %s -> %s  (%s)\n",
			rec.Timestamp.Format("15:04:05.000"), rec.From, rec.To, rec.Reason)
	}
}

func (r *REPL) resetExec([]string) {
	r.in.Reset()
	fmt.Fprintln(r.out, "execution reset")
}
