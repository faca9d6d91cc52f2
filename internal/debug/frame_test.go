package debug

import "testing"

func TestFrame_LookupWalksChain(t *testing.T) {
	root := NewFrame("main", nil)
	root.Assign("x", 1.0)
	root.Assign("y", 2.0)

	child := NewFrame("branch", root)
	child.Assign("y", 20.0)
	child.Assign("z", 30.0)

	tests := []struct {
		name  string
		want  any
		found bool
	}{
		{"x", 1.0, true},
		{"y", 20.0, true}, // inner shadows outer
		{"z", 30.0, true},
		{"missing", nil, false},
	}

	for _, tt := range tests {
		got, ok := child.Lookup(tt.name)
		if ok != tt.found {
			t.Errorf("Lookup(%q) found = %v, want %v", tt.name, ok, tt.found)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("Lookup(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFrame_AssignWritesInnermost(t *testing.T) {
	root := NewFrame("main", nil)
	root.Assign("x", 1.0)

	child := NewFrame("branch", root)
	child.Assign("x", 2.0)

	if v, _ := child.Lookup("x"); v != 2.0 {
		t.Errorf("child x = %v, want 2", v)
	}
	if v, _ := root.Lookup("x"); v != 1.0 {
		t.Errorf("root x = %v, want 1 (assignment must not reach outer scope)", v)
	}
}

func TestFrame_Depth(t *testing.T) {
	root := NewFrame("main", nil)
	child := NewFrame("a", root)
	grandchild := NewFrame("b", child)

	if root.Depth() != 0 || child.Depth() != 1 || grandchild.Depth() != 2 {
		t.Errorf("depths = %d, %d, %d, want 0, 1, 2", root.Depth(), child.Depth(), grandchild.Depth())
	}
}

func TestFrame_SnapshotFlattensWithShadowing(t *testing.T) {
	root := NewFrame("main", nil)
	root.Assign("x", 1.0)
	root.Assign("y", 2.0)

	child := NewFrame("branch", root)
	child.Assign("y", 20.0)

	snap := child.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot size = %d, want 2", len(snap))
	}
	if snap["x"] != 1.0 || snap["y"] != 20.0 {
		t.Errorf("snapshot = %v, want x:1 y:20", snap)
	}

	// A snapshot is a copy; mutating it never touches the frame.
	snap["x"] = 99.0
	if v, _ := child.Lookup("x"); v != 1.0 {
		t.Errorf("frame x after snapshot mutation = %v, want 1", v)
	}
}

func TestFrame_Backtrace(t *testing.T) {
	root := NewFrame("main", nil)
	child := NewFrame("gosub-100", root)
	child.Assign("i", 3.0)

	bt := child.Backtrace()
	if len(bt) != 2 {
		t.Fatalf("backtrace length = %d, want 2", len(bt))
	}
	if bt[0].Name != "gosub-100" || bt[0].Depth != 1 {
		t.Errorf("innermost frame = %+v", bt[0])
	}
	if bt[1].Name != "main" || bt[1].Depth != 0 {
		t.Errorf("outermost frame = %+v", bt[1])
	}
	if bt[0].Locals["i"] != 3.0 {
		t.Errorf("innermost locals = %v", bt[0].Locals)
	}
}
