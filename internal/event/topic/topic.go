package topic

import (
	"errors"
	"strings"
)

// Topic is a hierarchical event type using dot notation.
type Topic string

// Wildcard and separator constants.
const (
	// WildcardSingle matches exactly one segment.
	WildcardSingle = "*"

	// WildcardMulti matches zero or more segments.
	WildcardMulti = "**"

	// Separator separates topic segments.
	Separator = "."
)

// ErrInvalidTopic is returned by Validate for malformed topics.
var ErrInvalidTopic = errors.New("invalid topic")

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

// Parent returns the topic without its last segment.
//
// Example: "property.content" -> "property"
func (t Topic) Parent() Topic {
	idx := strings.LastIndex(string(t), Separator)
	if idx < 0 {
		return ""
	}
	return t[:idx]
}

// Child appends a segment.
func (t Topic) Child(segment string) Topic {
	if t == "" {
		return Topic(segment)
	}
	return Topic(string(t) + Separator + segment)
}

// IsPattern reports whether the topic contains a wildcard segment.
func (t Topic) IsPattern() bool {
	for _, seg := range t.Segments() {
		if seg == WildcardSingle || seg == WildcardMulti {
			return true
		}
	}
	return false
}

// Validate checks that the topic is non-empty and has no empty segments.
func (t Topic) Validate() error {
	if t == "" {
		return ErrInvalidTopic
	}
	for _, seg := range t.Segments() {
		if seg == "" {
			return ErrInvalidTopic
		}
	}
	return nil
}

// Matches reports whether the concrete topic t is matched by pattern.
func (t Topic) Matches(pattern Topic) bool {
	return match(pattern.Segments(), t.Segments())
}

func match(pattern, segs []string) bool {
	for len(pattern) > 0 {
		head := pattern[0]
		if head == WildcardMulti {
			rest := pattern[1:]
			if len(rest) == 0 {
				return true
			}
			for i := 0; i <= len(segs); i++ {
				if match(rest, segs[i:]) {
					return true
				}
			}
			return false
		}
		if len(segs) == 0 {
			return false
		}
		if head != WildcardSingle && head != segs[0] {
			return false
		}
		pattern, segs = pattern[1:], segs[1:]
	}
	return len(segs) == 0
}
