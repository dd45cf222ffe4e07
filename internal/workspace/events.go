package workspace

import (
	"github.com/dshills/sapphire/internal/event"
	"github.com/dshills/sapphire/internal/event/topic"
)

// Document event topics.
const (
	TopicSaved    topic.Topic = "workspace.document.saved"
	TopicReloaded topic.Topic = "workspace.document.reloaded"
	TopicClosed   topic.Topic = "workspace.document.closed"
)

// DocumentEvent reports a document lifecycle change.
type DocumentEvent struct {
	event.Base

	Document *Document
}

func newDocumentEvent(t topic.Topic, d *Document) *DocumentEvent {
	return &DocumentEvent{Base: event.NewBase(t), Document: d}
}
