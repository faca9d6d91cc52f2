package debug

// Frame is a lexical scope for variable bindings, chained to an optional
// parent for outer-scope lookup. Frames form a chain, not a tree: one is
// created per branch or block execution and discarded when that branch
// completes.
type Frame struct {
	name   string
	locals map[string]any
	parent *Frame
	depth  int
}

// FrameInfo is a display-oriented summary of one frame in a backtrace.
type FrameInfo struct {
	Name   string         `json:"name"`
	Depth  int            `json:"depth"`
	Locals map[string]any `json:"locals"`
}

// NewFrame creates a frame with the given name chained to parent.
// Passing a nil parent creates a root frame at depth 0.
func NewFrame(name string, parent *Frame) *Frame {
	depth := 0
	if parent != nil {
		depth = parent.depth + 1
	}
	return &Frame{
		name:   name,
		locals: make(map[string]any),
		parent: parent,
		depth:  depth,
	}
}

// Name returns the frame name.
func (f *Frame) Name() string {
	return f.name
}

// Depth returns the call depth counter.
func (f *Frame) Depth() int {
	return f.depth
}

// Parent returns the enclosing frame, or nil for the root.
func (f *Frame) Parent() *Frame {
	return f.parent
}

// Lookup resolves a name by walking the chain to the root.
func (f *Frame) Lookup(name string) (any, bool) {
	for cur := f; cur != nil; cur = cur.parent {
		if v, ok := cur.locals[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Assign writes into the innermost frame. Assignment never reaches an
// outer scope; shadowing is deliberate.
func (f *Frame) Assign(name string, value any) {
	f.locals[name] = value
}

// LocalCount returns the number of bindings in this frame only.
func (f *Frame) LocalCount() int {
	return len(f.locals)
}

// Snapshot returns a read-only flattened view of every binding visible
// from this frame, with inner bindings shadowing outer ones. Condition
// evaluation and UI inspection work against snapshots, never live
// frames.
func (f *Frame) Snapshot() map[string]any {
	snap := make(map[string]any)
	// Walk outermost-first so inner frames overwrite.
	var chain []*Frame
	for cur := f; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		for k, v := range chain[i].locals {
			snap[k] = v
		}
	}
	return snap
}

// Backtrace returns the chain from this frame to the root, innermost
// first.
func (f *Frame) Backtrace() []FrameInfo {
	var out []FrameInfo
	for cur := f; cur != nil; cur = cur.parent {
		locals := make(map[string]any, len(cur.locals))
		for k, v := range cur.locals {
			locals[k] = v
		}
		out = append(out, FrameInfo{
			Name:   cur.name,
			Depth:  cur.depth,
			Locals: locals,
		})
	}
	return out
}
