package event

import (
	"testing"

	"github.com/dshills/sapphire/internal/event/topic"
)

type contentEvent struct {
	Base
	value string
}

func newContentEvent(v string) *contentEvent {
	return &contentEvent{Base: NewBase("property.content"), value: v}
}

type disposeEvent struct {
	Base
}

func newDisposeEvent() *disposeEvent {
	return &disposeEvent{Base: NewBase("element.disposed")}
}

func TestNewBase(t *testing.T) {
	a := NewBase("property.content")
	b := NewBase("property.content")

	if a.Topic() != topic.Topic("property.content") {
		t.Errorf("Topic() = %q", a.Topic())
	}
	if a.ID() == "" || a.ID() == b.ID() {
		t.Errorf("expected unique non-empty IDs, got %q and %q", a.ID(), b.ID())
	}
	if a.Time().IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestFiltered(t *testing.T) {
	var got []string
	l := Filtered(func(ev *contentEvent) {
		got = append(got, ev.value)
	})

	l.Handle(newContentEvent("a"))
	l.Handle(newDisposeEvent())
	l.Handle(newContentEvent("b"))

	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("filtered listener received %v", got)
	}
}

func TestForTopic(t *testing.T) {
	count := 0
	l := ForTopic("element.*", ListenerFunc(func(Event) { count++ }))

	l.Handle(newContentEvent("x"))
	l.Handle(newDisposeEvent())

	if count != 1 {
		t.Errorf("expected 1 matching delivery, got %d", count)
	}
}
