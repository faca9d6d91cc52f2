package repl

import (
	"bytes"
	"io"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/kesava/nanobasic/internal/config"
	"github.com/kesava/nanobasic/internal/debug"
	"github.com/kesava/nanobasic/internal/lang/interp"
	"github.com/kesava/nanobasic/internal/lang/parser"
)

const countdownProgram = "10 LET N = 3\n20 PRINT \"N =\"; N\n30 LET N = N - 1\n40 IF N > 0 THEN GOTO 20\n50 END\n"

type fixture struct {
	repl *REPL
	ctrl *debug.Controller
	out  *bytes.Buffer
}

// newFixture builds a REPL over a real controller and interpreter with
// colors off and no event bus, so tests see only direct command output.
func newFixture(t *testing.T, src string) *fixture {
	t.Helper()
	quiet := log.New(io.Discard, "", 0)
	machine := debug.NewMachine(debug.WithMachineLogger(quiet))
	registry := debug.NewRegistry(nil, debug.WithRegistryLogger(quiet))
	ctrl := debug.NewController(machine, registry, nil, debug.WithControllerLogger(quiet))

	out := &bytes.Buffer{}
	in := interp.New(ctrl, interp.WithOutput(out))
	if src != "" {
		prog, err := parser.Parse(src)
		if err != nil {
			t.Fatalf("Parse() failed: %v", err)
		}
		in.Load(prog)
	}

	cfg := config.Default()
	cfg.REPL.Color = false
	r := New(ctrl, in, nil, cfg, WithOutput(out))
	return &fixture{repl: r, ctrl: ctrl, out: out}
}

func TestExecute_UnknownCommand(t *testing.T) {
	f := newFixture(t, "")
	f.repl.Execute("frobnicate")
	if !strings.Contains(f.out.String(), `unknown command "frobnicate"`) {
		t.Errorf("output = %q, want unknown command error", f.out.String())
	}
}

func TestExecute_EmptyLineRepeatsLast(t *testing.T) {
	f := newFixture(t, countdownProgram)
	f.repl.Execute("break set 20")
	f.out.Reset()
	f.repl.Execute("break stats")
	first := f.out.String()
	f.out.Reset()
	f.repl.Execute("")
	if f.out.String() != first {
		t.Errorf("repeated command output = %q, want %q", f.out.String(), first)
	}
}

func TestExecute_Aliases(t *testing.T) {
	f := newFixture(t, countdownProgram)
	f.repl.Execute("b ls")
	if !strings.Contains(f.out.String(), "no breakpoints") {
		t.Errorf("output = %q, want empty breakpoint list", f.out.String())
	}
}

func TestBreakSetListRemove(t *testing.T) {
	f := newFixture(t, countdownProgram)

	f.repl.Execute("break set 20")
	if got := f.ctrl.Registry().Statistics().Total; got != 1 {
		t.Fatalf("breakpoints after set = %d, want 1", got)
	}

	f.out.Reset()
	f.repl.Execute("break list")
	listing := f.out.String()
	if !strings.Contains(listing, "line 20") || !strings.Contains(listing, "enabled") {
		t.Errorf("break list output = %q, want enabled breakpoint at line 20", listing)
	}

	f.repl.Execute("break remove 20")
	if got := f.ctrl.Registry().Statistics().Total; got != 0 {
		t.Errorf("breakpoints after remove = %d, want 0", got)
	}
}

func TestBreakSet_RejectsUnknownLine(t *testing.T) {
	f := newFixture(t, countdownProgram)
	f.repl.Execute("break set 99")
	if !strings.Contains(f.out.String(), "no statement on line 99") {
		t.Errorf("output = %q, want missing-line error", f.out.String())
	}
	if got := f.ctrl.Registry().Statistics().Total; got != 0 {
		t.Errorf("breakpoints = %d, want 0", got)
	}
}

func TestBreakSet_WithCondition(t *testing.T) {
	f := newFixture(t, countdownProgram)
	f.repl.Execute("break set 20 N == 1")

	bps := f.ctrl.Registry().List()
	if len(bps) != 1 {
		t.Fatalf("breakpoints = %d, want 1", len(bps))
	}
	if bps[0].Condition == nil || bps[0].Condition.Expr() != "N == 1" {
		t.Errorf("condition = %v, want N == 1", bps[0].Condition)
	}
}

func TestBreakEnableDisable(t *testing.T) {
	f := newFixture(t, countdownProgram)
	f.repl.Execute("break set 20")
	f.repl.Execute("break disable 20")

	bps := f.ctrl.Registry().List()
	if len(bps) != 1 || bps[0].Enabled {
		t.Fatalf("breakpoint after disable = %+v, want disabled", bps)
	}

	// Disabling again is a no-op, not a toggle back on.
	f.repl.Execute("break disable 20")
	if bps := f.ctrl.Registry().List(); bps[0].Enabled {
		t.Error("second disable re-enabled the breakpoint")
	}

	f.repl.Execute("break enable 20")
	if bps := f.ctrl.Registry().List(); !bps[0].Enabled {
		t.Error("breakpoint still disabled after enable")
	}
}

func TestBreakResolveByIDPrefix(t *testing.T) {
	f := newFixture(t, countdownProgram)
	f.repl.Execute("break set 20")
	id := f.ctrl.Registry().List()[0].ID

	f.repl.Execute("break remove " + id[:8])
	if got := f.ctrl.Registry().Statistics().Total; got != 0 {
		t.Errorf("breakpoints after remove by id prefix = %d, want 0", got)
	}
}

func TestBreakExportImport(t *testing.T) {
	f := newFixture(t, countdownProgram)
	f.repl.Execute("break set 20")
	f.repl.Execute("break set 30")

	path := filepath.Join(t.TempDir(), "bps.json")
	f.repl.Execute("break export " + path)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("export file missing: %v", err)
	}

	f.repl.Execute("break clear")
	if got := f.ctrl.Registry().Statistics().Total; got != 0 {
		t.Fatalf("breakpoints after clear = %d, want 0", got)
	}

	f.out.Reset()
	f.repl.Execute("break import " + path)
	if !strings.Contains(f.out.String(), "imported 2 breakpoints") {
		t.Errorf("import output = %q", f.out.String())
	}
	if got := f.ctrl.Registry().Statistics().Total; got != 2 {
		t.Errorf("breakpoints after import = %d, want 2", got)
	}
}

func TestRunAndStepCommands(t *testing.T) {
	f := newFixture(t, countdownProgram)

	f.repl.Execute("run")
	if !strings.Contains(f.out.String(), "N = 3") {
		t.Errorf("run output = %q, want program output", f.out.String())
	}
	if got := f.ctrl.Machine().State(); got != debug.StateTerminated {
		t.Errorf("state after run = %s, want terminated", got)
	}

	f.repl.Execute("reset")
	f.out.Reset()
	f.repl.Execute("step 2")
	if got := f.ctrl.Machine().State(); got != debug.StatePaused {
		t.Errorf("state after step = %s, want paused", got)
	}
}

func TestLocalsAndFrames(t *testing.T) {
	f := newFixture(t, countdownProgram)
	f.repl.Execute("step")
	f.out.Reset()

	f.repl.Execute("locals")
	if !strings.Contains(f.out.String(), `"N"`) {
		t.Errorf("locals output = %q, want variable N", f.out.String())
	}

	f.out.Reset()
	f.repl.Execute("frames")
	if !strings.Contains(f.out.String(), "#0 main") {
		t.Errorf("frames output = %q, want root frame", f.out.String())
	}
}

func TestListMarksCurrentLineAndBreakpoints(t *testing.T) {
	f := newFixture(t, countdownProgram)
	f.repl.Execute("break set 30")
	f.repl.Execute("step")
	f.out.Reset()

	f.repl.Execute("list")
	out := f.out.String()
	if !strings.Contains(out, "=> 20 PRINT") {
		t.Errorf("list output = %q, want current-line marker on line 20", out)
	}
	if !strings.Contains(out, "* ") {
		t.Errorf("list output = %q, want breakpoint marker", out)
	}
}

func TestLoadCommand(t *testing.T) {
	f := newFixture(t, "")
	path := filepath.Join(t.TempDir(), "prog.bas")
	if err := os.WriteFile(path, []byte("10 PRINT \"HI\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	f.repl.Execute("load " + path)
	if !strings.Contains(f.out.String(), "(1 lines)") {
		t.Errorf("load output = %q", f.out.String())
	}

	f.out.Reset()
	f.repl.Execute("run")
	if !strings.Contains(f.out.String(), "HI") {
		t.Errorf("run output = %q, want HI", f.out.String())
	}
}

func TestStateAndHistory(t *testing.T) {
	f := newFixture(t, countdownProgram)
	f.repl.Execute("run")
	f.out.Reset()

	f.repl.Execute("state")
	if !strings.Contains(f.out.String(), "terminated") {
		t.Errorf("state output = %q, want terminated", f.out.String())
	}

	f.out.Reset()
	f.repl.Execute("history")
	if !strings.Contains(f.out.String(), "idle -> running") {
		t.Errorf("history output = %q, want the start transition", f.out.String())
	}
}

func TestQuitSetsFlag(t *testing.T) {
	f := newFixture(t, "")
	f.repl.Execute("quit")
	if !f.repl.quit {
		t.Error("quit flag not set")
	}
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"break set 20", []string{"break", "set", "20"}},
		{`break log 20 "hit line 20"`, []string{"break", "log", "20", "hit line 20"}},
		{"  step   3 ", []string{"step", "3"}},
		{"", nil},
	}
	for _, tt := range tests {
		got := splitArgs(strings.TrimSpace(tt.in))
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitArgs(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestHelpListsCommands(t *testing.T) {
	f := newFixture(t, "")
	f.repl.Execute("help")
	out := f.out.String()
	for _, name := range []string{"run", "step", "break", "quit"} {
		if !strings.Contains(out, name) {
			t.Errorf("help output missing %q", name)
		}
	}

	f.out.Reset()
	f.repl.Execute("help break set")
	if !strings.Contains(f.out.String(), "set {line} [condition]") {
		t.Errorf("help break set output = %q", f.out.String())
	}
}
