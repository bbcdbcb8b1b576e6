package event

import "strings"

// Topic is a hierarchical event type using dot notation.
type Topic string

// Wildcard segments for subscription patterns.
const (
	// WildcardSingle matches exactly one segment.
	WildcardSingle = "*"

	// WildcardMulti matches zero or more segments.
	WildcardMulti = "**"

	separator = "."
)

// Topics published by scenetx components.
const (
	TopicHistoryCompleted Topic = "history.completed"
	TopicHistoryUndone    Topic = "history.undone"
	TopicHistoryRedone    Topic = "history.redone"
	TopicHistoryDiscarded Topic = "history.discarded"
	TopicHistoryCleared   Topic = "history.cleared"
	TopicConfigReloaded   Topic = "config.reloaded"
	TopicScriptFinished   Topic = "script.finished"
)

// String returns the topic as a string.
func (t Topic) String() string {
	return string(t)
}

func (t Topic) segments() []string {
	if t == "" {
		return nil
	}
	return strings.Split(string(t), separator)
}

// Child appends a segment.
func (t Topic) Child(segment string) Topic {
	if t == "" {
		return Topic(segment)
	}
	return t + separator + Topic(segment)
}

// IsValid reports whether the topic is non-empty and has no empty segments.
func (t Topic) IsValid() bool {
	if t == "" {
		return false
	}
	for _, seg := range t.segments() {
		if seg == "" {
			return false
		}
	}
	return true
}

// Matches reports whether t matches pattern, which may contain wildcards.
func (t Topic) Matches(pattern Topic) bool {
	return matchSegments(t.segments(), pattern.segments())
}

func matchSegments(topic, pattern []string) bool {
	ti := 0
	for pi := 0; pi < len(pattern); pi++ {
		switch pattern[pi] {
		case WildcardMulti:
			for ; ti <= len(topic); ti++ {
				if matchSegments(topic[ti:], pattern[pi+1:]) {
					return true
				}
			}
			return false
		case WildcardSingle:
			if ti >= len(topic) {
				return false
			}
		default:
			if ti >= len(topic) || pattern[pi] != topic[ti] {
				return false
			}
		}
		ti++
	}
	return ti == len(topic)
}

func (t Topic) segmentsContainWildcard() bool {
	for _, seg := range t.segments() {
		if seg == WildcardSingle || seg == WildcardMulti {
			return true
		}
	}
	return false
}
