// Package topic provides hierarchical event topics and wildcard matching.
//
// Topics use dot notation, with the most general segment first:
//
//	property.content      - a property's content changed
//	property.validation   - a property's validation status changed
//	element.disposed      - an element was disposed
//	index.changed         - an index's key set changed
//
// Patterns may contain wildcards:
//
//	property.*   - matches property.content, property.validation (one segment)
//	**           - matches every topic (zero or more segments)
package topic
