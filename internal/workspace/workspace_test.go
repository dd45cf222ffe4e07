package workspace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/dshills/sapphire/internal/event"
	"github.com/dshills/sapphire/internal/event/topic"
	"github.com/dshills/sapphire/internal/model"
	"github.com/dshills/sapphire/internal/sample/contacts"
	"github.com/dshills/sapphire/internal/xmlbind"
)

const twoContacts = `<?xml version="1.0" encoding="UTF-8"?>
<addressBook xmlns="http://sapphire.dev/ns/contacts">
  <contact><name>Ada</name></contact>
  <contact><name>Grace</name></contact>
</addressBook>
`

const oneContact = `<?xml version="1.0" encoding="UTF-8"?>
<addressBook xmlns="http://sapphire.dev/ns/contacts">
  <contact><name>Linus</name></contact>
</addressBook>
`

type recorder struct {
	mu     sync.Mutex
	topics []topic.Topic
}

func (r *recorder) Handle(ev event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, ev.Topic())
}

func (r *recorder) Topics() []topic.Topic {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]topic.Topic(nil), r.topics...)
}

func names(t *testing.T, m *contacts.Model, root *model.Element) []string {
	t.Helper()
	list, err := root.List(m.Contacts)
	if err != nil {
		t.Fatal(err)
	}
	elems, err := list.Elements()
	if err != nil {
		t.Fatal(err)
	}
	out := make([]string, len(elems))
	for i, e := range elems {
		out[i] = e.Text(m.Name)
	}
	return out
}

func TestOpen_MissingFile(t *testing.T) {
	m := contacts.New()
	fs := memfs.New()
	d, err := Open(fs, "books/new.xml", m.AddressBook)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if got := names(t, m, d.Root()); len(got) != 0 {
		t.Errorf("contacts = %v, want none", got)
	}

	list, _ := d.Root().List(m.Contacts)
	c, err := list.Insert(nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Write(m.Name, "Ada"); err != nil {
		t.Fatal(err)
	}
	if dirty, _ := d.Dirty(); !dirty {
		t.Error("Dirty() = false after edit, want true")
	}
	if err := d.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if dirty, _ := d.Dirty(); dirty {
		t.Error("Dirty() = true after Save, want false")
	}

	data, err := util.ReadFile(fs, "books/new.xml")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "<name>Ada</name>") {
		t.Errorf("saved document = %s", data)
	}
}

func TestWorkspace_OpenTwice(t *testing.T) {
	m := contacts.New()
	ws := New(memfs.New())

	a, err := ws.Open("a.xml", m.AddressBook)
	if err != nil {
		t.Fatal(err)
	}
	b, err := ws.Open("./a.xml", m.AddressBook)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("reopening a document returned a new one")
	}
	if _, err := ws.Open("a.xml", m.Contact); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Open() with other type error = %v, want ErrTypeMismatch", err)
	}
	if _, err := ws.Open("b.xml", m.AddressBook); err != nil {
		t.Fatal(err)
	}

	docs := ws.Documents()
	if len(docs) != 2 || docs[0].Path() != "a.xml" || docs[1].Path() != "b.xml" {
		t.Errorf("Documents() = %v", docs)
	}
	if docs[0].ID() == docs[1].ID() {
		t.Error("documents share an ID")
	}
}

func TestDocument_Reload(t *testing.T) {
	m := contacts.New()
	fs := memfs.New()
	if err := util.WriteFile(fs, "book.xml", []byte(twoContacts), 0o644); err != nil {
		t.Fatal(err)
	}
	ws := New(fs)
	rec := &recorder{}
	if _, err := ws.Attach(rec); err != nil {
		t.Fatal(err)
	}

	d, err := ws.Open("book.xml", m.AddressBook)
	if err != nil {
		t.Fatal(err)
	}
	list, _ := d.Root().List(m.Contacts)
	before, _ := list.Elements()
	if got := names(t, m, d.Root()); strings.Join(got, ",") != "Ada,Grace" {
		t.Fatalf("contacts = %v", got)
	}

	changed, err := d.Reload()
	if err != nil || changed {
		t.Errorf("Reload() of unchanged file = %v, %v, want false", changed, err)
	}

	if err := util.WriteFile(fs, "book.xml", []byte(oneContact), 0o644); err != nil {
		t.Fatal(err)
	}
	changed, err = d.Reload()
	if err != nil || !changed {
		t.Fatalf("Reload() = %v, %v, want true", changed, err)
	}
	if got := names(t, m, d.Root()); strings.Join(got, ",") != "Linus" {
		t.Errorf("contacts after reload = %v, want [Linus]", got)
	}
	for _, e := range before {
		if !e.Disposed() {
			t.Errorf("element %v survived reload", e)
		}
	}

	if err := d.Save(); err != nil {
		t.Fatal(err)
	}
	if changed, _ := d.Reload(); changed {
		t.Error("Reload() after Save reported a change")
	}

	want := []topic.Topic{TopicReloaded, TopicSaved}
	got := rec.Topics()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDocument_ReloadRetriesFailedRefresh(t *testing.T) {
	m := contacts.New()
	fs := memfs.New()
	if err := util.WriteFile(fs, "book.xml", []byte(twoContacts), 0o644); err != nil {
		t.Fatal(err)
	}
	d, err := New(fs).Open("book.xml", m.AddressBook)
	if err != nil {
		t.Fatal(err)
	}

	if err := util.WriteFile(fs, "book.xml", []byte(`<wrong/>`), 0o644); err != nil {
		t.Fatal(err)
	}
	for i := range 2 {
		if _, err := d.Reload(); !errors.Is(err, xmlbind.ErrCorruptedResource) {
			t.Errorf("Reload() #%d error = %v, want ErrCorruptedResource", i+1, err)
		}
	}

	if err := util.WriteFile(fs, "book.xml", []byte(oneContact), 0o644); err != nil {
		t.Fatal(err)
	}
	if changed, err := d.Reload(); err != nil || !changed {
		t.Fatalf("Reload() after repair = %v, %v, want true", changed, err)
	}
	if got := names(t, m, d.Root()); strings.Join(got, ",") != "Linus" {
		t.Errorf("contacts after repair = %v, want [Linus]", got)
	}
}

func TestDocument_Close(t *testing.T) {
	m := contacts.New()
	fs := memfs.New()
	if err := util.WriteFile(fs, "book.xml", []byte(twoContacts), 0o644); err != nil {
		t.Fatal(err)
	}
	ws := New(fs)
	rec := &recorder{}
	ws.Attach(rec)

	d, err := ws.Open("book.xml", m.AddressBook)
	if err != nil {
		t.Fatal(err)
	}
	root := d.Root()
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if !root.Disposed() {
		t.Error("root survived Close")
	}
	if _, ok := ws.Document("book.xml"); ok {
		t.Error("closed document is still open")
	}
	if err := d.Save(); !errors.Is(err, ErrClosed) {
		t.Errorf("Save() after Close error = %v, want ErrClosed", err)
	}
	if err := d.Do(func(*model.Element) error { return nil }); !errors.Is(err, ErrClosed) {
		t.Errorf("Do() after Close error = %v, want ErrClosed", err)
	}
	if got := rec.Topics(); len(got) != 1 || got[0] != TopicClosed {
		t.Errorf("events = %v, want [%v]", got, TopicClosed)
	}

	if err := ws.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := ws.Open("book.xml", m.AddressBook); !errors.Is(err, ErrClosed) {
		t.Errorf("Open() after Close error = %v, want ErrClosed", err)
	}
}

func TestWatcher_NotWatchable(t *testing.T) {
	ws := New(memfs.New())
	if _, err := ws.Watcher(); !errors.Is(err, ErrNotWatchable) {
		t.Errorf("Watcher() on memfs error = %v, want ErrNotWatchable", err)
	}
}

func TestWatcher_ReloadsExternalWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "book.xml")
	if err := os.WriteFile(path, []byte(twoContacts), 0o644); err != nil {
		t.Fatal(err)
	}

	m := contacts.New()
	ws := New(osfs.New(dir))
	d, err := ws.Open("book.xml", m.AddressBook)
	if err != nil {
		t.Fatal(err)
	}
	wt, err := ws.Watcher()
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- wt.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	if err := os.WriteFile(path, []byte(oneContact), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		var got []string
		d.Do(func(root *model.Element) error {
			got = names(t, m, root)
			return nil
		})
		if strings.Join(got, ",") == "Linus" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("contacts = %v after external write, want [Linus]", got)
		}
		time.Sleep(20 * time.Millisecond)
	}
	if wt.Reloads() < 1 {
		t.Errorf("Reloads() = %d, want at least 1", wt.Reloads())
	}
}
