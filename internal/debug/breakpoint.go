package debug

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/kesava/nanobasic/internal/event"
)

// Breakpoint is a registered source location that may suspend execution
// when reached.
type Breakpoint struct {
	// ID is an opaque unique identifier.
	ID string `json:"id"`

	// Location is the source position keying the breakpoint.
	Location Location `json:"location"`

	// Enabled indicates if the breakpoint is active.
	Enabled bool `json:"enabled"`

	// Condition is the optional typed predicate. Nil means always pause.
	Condition Condition `json:"-"`

	// LogMessage is recorded on each hit of a log-only breakpoint.
	LogMessage string `json:"logMessage,omitempty"`

	// HitCount is the number of times this location was reached while
	// enabled. It only ever increases.
	HitCount int `json:"hitCount"`

	// CreatedAt is the creation timestamp.
	CreatedAt time.Time `json:"createdAt"`

	// LastHitAt is the most recent hit timestamp; zero when never hit.
	LastHitAt time.Time `json:"lastHitAt,omitempty"`
}

// Hit describes a breakpoint that decided to pause execution.
type Hit struct {
	Breakpoint Breakpoint `json:"breakpoint"`
	HitCount   int        `json:"hitCount"`
}

// Statistics summarizes the registry for the UI layer.
type Statistics struct {
	Total          int `json:"total"`
	Enabled        int `json:"enabled"`
	Disabled       int `json:"disabled"`
	WithConditions int `json:"withConditions"`
	TotalHits      int `json:"totalHits"`
}

// ImportResult reports the outcome of ImportJSON. Per-entry failures
// accumulate in Errors without aborting the batch.
type ImportResult struct {
	Success  bool     `json:"success"`
	Imported int      `json:"imported"`
	Errors   []string `json:"errors"`
}

// BreakpointOption configures a breakpoint at Add time.
type BreakpointOption func(*Breakpoint)

// WithDisabled creates the breakpoint disabled.
func WithDisabled() BreakpointOption {
	return func(b *Breakpoint) {
		b.Enabled = false
	}
}

// WithCondition attaches a typed condition.
func WithCondition(c Condition) BreakpointOption {
	return func(b *Breakpoint) {
		b.Condition = c
	}
}

// WithLogMessage makes the breakpoint log-only: the message is recorded
// on each hit and execution never pauses there.
func WithLogMessage(msg string) BreakpointOption {
	return func(b *Breakpoint) {
		b.LogMessage = msg
		b.Condition = LogCondition{}
	}
}

// Registry owns the set of breakpoints keyed by source location. At most
// one breakpoint exists per location: Add returns the existing
// breakpoint unchanged when the location is already registered.
//
// Mutations are announced on the event bus (breakpoint.added, .removed,
// .toggled, .condition.changed, .hit, .log). The bus may be nil, in
// which case the registry is silent.
type Registry struct {
	mu    sync.RWMutex
	byID  map[string]*Breakpoint
	byLoc map[Location]string

	persistPath string

	bus    *event.Bus
	logger *log.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger used for condition failures.
func WithRegistryLogger(l *log.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = l
	}
}

// WithPersistPath sets the file used by Save and Load.
func WithPersistPath(path string) RegistryOption {
	return func(r *Registry) {
		r.persistPath = path
	}
}

// NewRegistry creates an empty breakpoint registry publishing on bus.
func NewRegistry(bus *event.Bus, opts ...RegistryOption) *Registry {
	r := &Registry{
		byID:   make(map[string]*Breakpoint),
		byLoc:  make(map[Location]string),
		bus:    bus,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) publish(ev any) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(context.Background(), ev) //nolint:errcheck // observer failures are logged by the bus
}

// Add registers a breakpoint at the given location. When one already
// exists there, the existing breakpoint is returned unchanged.
func (r *Registry) Add(loc Location, opts ...BreakpointOption) Breakpoint {
	r.mu.Lock()
	if id, ok := r.byLoc[loc]; ok {
		existing := *r.byID[id]
		r.mu.Unlock()
		return existing
	}

	bp := &Breakpoint{
		ID:        uuid.NewString(),
		Location:  loc,
		Enabled:   true,
		CreatedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(bp)
	}

	r.byID[bp.ID] = bp
	r.byLoc[loc] = bp.ID
	snapshot := *bp
	r.mu.Unlock()

	r.publish(BreakpointEvent{Action: "added", Breakpoint: snapshot})
	return snapshot
}

// Remove deletes a breakpoint by ID.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	bp, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.byID, id)
	delete(r.byLoc, bp.Location)
	snapshot := *bp
	r.mu.Unlock()

	r.publish(BreakpointEvent{Action: "removed", Breakpoint: snapshot})
	return true
}

// RemoveAt deletes the breakpoint at the given location.
func (r *Registry) RemoveAt(loc Location) bool {
	r.mu.RLock()
	id, ok := r.byLoc[loc]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	return r.Remove(id)
}

// Toggle flips the enabled flag. It returns the resulting enabled state
// and whether the breakpoint was found.
func (r *Registry) Toggle(id string) (bool, bool) {
	r.mu.Lock()
	bp, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return false, false
	}
	bp.Enabled = !bp.Enabled
	snapshot := *bp
	r.mu.Unlock()

	r.publish(BreakpointEvent{Action: "toggled", Breakpoint: snapshot})
	return snapshot.Enabled, true
}

// ToggleAt adds a breakpoint when the location is empty, or removes the
// existing one. It returns the affected breakpoint and true when one was
// added.
func (r *Registry) ToggleAt(loc Location) (Breakpoint, bool) {
	r.mu.RLock()
	id, exists := r.byLoc[loc]
	r.mu.RUnlock()

	if exists {
		r.mu.RLock()
		snapshot := *r.byID[id]
		r.mu.RUnlock()
		r.Remove(id)
		return snapshot, false
	}
	return r.Add(loc), true
}

// SetCondition replaces the breakpoint's condition. A nil condition
// makes the breakpoint unconditional.
func (r *Registry) SetCondition(id string, cond Condition) bool {
	r.mu.Lock()
	bp, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	bp.Condition = cond
	snapshot := *bp
	r.mu.Unlock()

	r.publish(BreakpointEvent{Action: "condition", Breakpoint: snapshot})
	return true
}

// FindAt returns the breakpoint at the given location, if any.
func (r *Registry) FindAt(loc Location) (Breakpoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byLoc[loc]
	if !ok {
		return Breakpoint{}, false
	}
	return *r.byID[id], true
}

// Find returns a breakpoint by ID.
func (r *Registry) Find(id string) (Breakpoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bp, ok := r.byID[id]
	if !ok {
		return Breakpoint{}, false
	}
	return *bp, true
}

// List returns all breakpoints ordered by location.
func (r *Registry) List() []Breakpoint {
	r.mu.RLock()
	out := make([]Breakpoint, 0, len(r.byID))
	for _, bp := range r.byID {
		out = append(out, *bp)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Location.Line != out[j].Location.Line {
			return out[i].Location.Line < out[j].Location.Line
		}
		return out[i].Location.Column < out[j].Location.Column
	})
	return out
}

// ListEnabled returns only the enabled breakpoints, ordered by location.
func (r *Registry) ListEnabled() []Breakpoint {
	all := r.List()
	out := all[:0]
	for _, bp := range all {
		if bp.Enabled {
			out = append(out, bp)
		}
	}
	return out
}

// Clear removes every breakpoint.
func (r *Registry) Clear() {
	r.mu.Lock()
	removed := make([]Breakpoint, 0, len(r.byID))
	for _, bp := range r.byID {
		removed = append(removed, *bp)
	}
	r.byID = make(map[string]*Breakpoint)
	r.byLoc = make(map[Location]string)
	r.mu.Unlock()

	for _, bp := range removed {
		r.publish(BreakpointEvent{Action: "removed", Breakpoint: bp})
	}
}

// Statistics summarizes the registry.
func (r *Registry) Statistics() Statistics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Statistics{Total: len(r.byID)}
	for _, bp := range r.byID {
		if bp.Enabled {
			stats.Enabled++
		} else {
			stats.Disabled++
		}
		if bp.Condition != nil {
			stats.WithConditions++
		}
		stats.TotalHits += bp.HitCount
	}
	return stats
}

// ShouldPauseAt decides whether execution must pause at the given
// location. It returns nil when no enabled breakpoint is registered
// there, when a log-only breakpoint recorded its message, or when a
// condition evaluated false.
//
// The hit count is incremented and the last-hit timestamp stamped before
// the condition runs: hit counting reflects "breakpoint reached",
// independent of whether the breakpoint actually pauses. A condition
// that fails to evaluate pauses anyway (fail-open) so a broken condition
// never silently hides a breakpoint.
func (r *Registry) ShouldPauseAt(loc Location, snapshot map[string]any) *Hit {
	r.mu.Lock()
	id, ok := r.byLoc[loc]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	bp := r.byID[id]
	if !bp.Enabled {
		r.mu.Unlock()
		return nil
	}

	bp.HitCount++
	bp.LastHitAt = time.Now()
	current := *bp
	r.mu.Unlock()

	if current.Condition == nil {
		return &Hit{Breakpoint: current, HitCount: current.HitCount}
	}

	if current.Condition.Kind() == ConditionLog {
		r.publish(BreakpointLogEvent{
			Breakpoint: current,
			Message:    current.LogMessage,
			Location:   loc,
		})
		return nil
	}

	pause, err := current.Condition.Evaluate(current.HitCount, snapshot)
	if err != nil {
		r.logger.Printf("debug: condition failed at %d:%d, pausing: %v", loc.Line, loc.Column, err)
		return &Hit{Breakpoint: current, HitCount: current.HitCount}
	}
	if !pause {
		return nil
	}
	return &Hit{Breakpoint: current, HitCount: current.HitCount}
}

// exportFile is the portable breakpoint set layout.
type exportFile struct {
	Version     string               `json:"version"`
	Breakpoints []exportedBreakpoint `json:"breakpoints"`
	ExportedAt  string               `json:"exportedAt"`
}

type exportedBreakpoint struct {
	Location   Location           `json:"location"`
	Enabled    bool               `json:"enabled"`
	Condition  *exportedCondition `json:"condition,omitempty"`
	LogMessage string             `json:"logMessage,omitempty"`
}

type exportedCondition struct {
	Kind string `json:"kind"`
	Expr string `json:"expr"`
}

// exportVersion is the current export schema version.
const exportVersion = "1.0"

// ExportJSON serializes the breakpoint set to the portable JSON format.
// IDs, hit counts and timestamps are deliberately not exported.
func (r *Registry) ExportJSON() (string, error) {
	file := exportFile{
		Version:     exportVersion,
		Breakpoints: make([]exportedBreakpoint, 0),
		ExportedAt:  time.Now().UTC().Format(time.RFC3339),
	}

	for _, bp := range r.List() {
		out := exportedBreakpoint{
			Location:   bp.Location,
			Enabled:    bp.Enabled,
			LogMessage: bp.LogMessage,
		}
		if bp.Condition != nil {
			out.Condition = &exportedCondition{
				Kind: string(bp.Condition.Kind()),
				Expr: bp.Condition.Expr(),
			}
		}
		file.Breakpoints = append(file.Breakpoints, out)
	}

	content, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal breakpoints: %w", err)
	}
	return string(content), nil
}

// ImportJSON imports a breakpoint set previously produced by ExportJSON.
// A payload whose "breakpoints" key is missing or not an array is
// rejected outright without touching the registry. Otherwise every
// well-formed entry is imported independently and per-entry failures
// accumulate in the result.
func (r *Registry) ImportJSON(text string) ImportResult {
	if !gjson.Valid(text) {
		return ImportResult{Errors: []string{"payload is not valid JSON"}}
	}

	entries := gjson.Get(text, "breakpoints")
	if !entries.Exists() || !entries.IsArray() {
		return ImportResult{Errors: []string{`payload is missing a "breakpoints" array`}}
	}

	result := ImportResult{Success: true}
	for i, entry := range entries.Array() {
		if err := r.importEntry(entry); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("breakpoint %d: %v", i, err))
			continue
		}
		result.Imported++
	}
	return result
}

func (r *Registry) importEntry(entry gjson.Result) error {
	line := entry.Get("location.line")
	if !line.Exists() || line.Int() <= 0 {
		return fmt.Errorf("missing or invalid location.line")
	}
	loc := Location{
		Line:   int(line.Int()),
		Column: int(entry.Get("location.column").Int()),
	}

	if _, exists := r.FindAt(loc); exists {
		return fmt.Errorf("duplicate location %d:%d", loc.Line, loc.Column)
	}

	var opts []BreakpointOption
	if enabled := entry.Get("enabled"); enabled.Exists() && !enabled.Bool() {
		opts = append(opts, WithDisabled())
	}
	if msg := entry.Get("logMessage"); msg.Exists() && msg.String() != "" {
		opts = append(opts, WithLogMessage(msg.String()))
	}
	if cond := entry.Get("condition"); cond.Exists() {
		kind := ConditionKind(cond.Get("kind").String())
		if kind != ConditionLog {
			parsed, err := ParseCondition(kind, cond.Get("expr").String())
			if err != nil {
				return err
			}
			opts = append(opts, WithCondition(parsed))
		}
	}

	r.Add(loc, opts...)
	return nil
}

// SetPersistPath sets the file used by Save and Load.
func (r *Registry) SetPersistPath(path string) {
	r.mu.Lock()
	r.persistPath = path
	r.mu.Unlock()
}

// PersistPath returns the file used by Save and Load, or empty when
// persistence is not configured.
func (r *Registry) PersistPath() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.persistPath
}

// Save writes the breakpoint set to the persist path.
func (r *Registry) Save() error {
	r.mu.RLock()
	path := r.persistPath
	r.mu.RUnlock()
	if path == "" {
		return fmt.Errorf("persist path not set")
	}

	content, err := r.ExportJSON()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// Load imports the breakpoint set from the persist path. A missing file
// is not an error.
func (r *Registry) Load() error {
	r.mu.RLock()
	path := r.persistPath
	r.mu.RUnlock()
	if path == "" {
		return fmt.Errorf("persist path not set")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read file: %w", err)
	}

	result := r.ImportJSON(string(content))
	if !result.Success {
		return fmt.Errorf("load breakpoints: %v", result.Errors)
	}
	return nil
}
