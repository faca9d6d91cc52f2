package topic

import "strings"

// Topic represents a hierarchical event type using dot notation.
// Examples: "execution.paused", "breakpoint.hit", "config.changed"
type Topic string

// Wildcard constants for pattern matching.
const (
	// WildcardSingle matches exactly one segment.
	WildcardSingle = "*"

	// WildcardMulti matches zero or more segments.
	WildcardMulti = "**"

	// Separator is the character used to separate topic segments.
	Separator = "."
)

// String returns the topic as a string.
func (t Topic) String() string {
	return string(t)
}

// Segments returns the topic split by the separator.
func (t Topic) Segments() []string {
	if t == "" {
		return nil
	}
	return strings.Split(string(t), Separator)
}

// Parent returns the parent topic by removing the last segment.
// Returns an empty topic if there is no parent.
//
// Example: "breakpoint.hit" -> "breakpoint"
func (t Topic) Parent() Topic {
	s := string(t)
	idx := strings.LastIndex(s, Separator)
	if idx < 0 {
		return ""
	}
	return Topic(s[:idx])
}

// Child returns a child topic by appending a segment.
//
// Example: "execution".Child("paused") -> "execution.paused"
func (t Topic) Child(segment string) Topic {
	if t == "" {
		return Topic(segment)
	}
	return Topic(string(t) + Separator + segment)
}

// Base returns the last segment of the topic.
//
// Example: "execution.state.changed" -> "changed"
func (t Topic) Base() string {
	s := string(t)
	idx := strings.LastIndex(s, Separator)
	if idx < 0 {
		return s
	}
	return s[idx+1:]
}

// IsWildcard returns true if the topic contains any wildcard characters.
func (t Topic) IsWildcard() bool {
	return strings.Contains(string(t), WildcardSingle)
}

// IsValid returns true if the topic is valid.
// A valid topic is non-empty and contains no empty segments.
func (t Topic) IsValid() bool {
	if t == "" {
		return false
	}
	for _, seg := range t.Segments() {
		if seg == "" {
			return false
		}
	}
	return true
}

// Match reports whether the concrete topic t matches the given pattern.
// The pattern may contain "*" (exactly one segment) and "**" (zero or
// more segments). The topic itself must be concrete.
//
// Examples:
//
//	Topic("breakpoint.hit").Match("breakpoint.*")  -> true
//	Topic("execution.paused").Match("**")          -> true
//	Topic("breakpoint.hit").Match("execution.*")   -> false
func (t Topic) Match(pattern Topic) bool {
	if !pattern.IsWildcard() {
		return t == pattern
	}
	return matchSegments(t.Segments(), pattern.Segments())
}

func matchSegments(segs, pat []string) bool {
	if len(pat) == 0 {
		return len(segs) == 0
	}

	switch pat[0] {
	case WildcardMulti:
		// "**" can match zero segments, or consume one and keep matching.
		if matchSegments(segs, pat[1:]) {
			return true
		}
		if len(segs) == 0 {
			return false
		}
		return matchSegments(segs[1:], pat)
	case WildcardSingle:
		if len(segs) == 0 {
			return false
		}
		return matchSegments(segs[1:], pat[1:])
	default:
		if len(segs) == 0 || segs[0] != pat[0] {
			return false
		}
		return matchSegments(segs[1:], pat[1:])
	}
}
