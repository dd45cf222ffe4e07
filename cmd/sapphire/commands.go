package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/dshills/sapphire/internal/event"
	"github.com/dshills/sapphire/internal/export"
	"github.com/dshills/sapphire/internal/model"
	"github.com/dshills/sapphire/internal/workspace"
)

var (
	errNotFound = errors.New("contact not found")
	errInvalid  = errors.New("document is invalid")
)

type command struct {
	name     string
	usage    string
	help     string
	min, max int
	run      func(e *env, args []string) error
}

var commands []command

func init() {
	commands = []command{
		{"list", "list", "List contacts", 0, 0, cmdList},
		{"find", "find <name>", "Show the contacts with a name", 1, 1, cmdFind},
		{"add", "add <name> [email]", "Add a contact", 1, 2, cmdAdd},
		{"set", "set <name> <property> <value>", "Set a contact property", 3, 3, cmdSet},
		{"validate", "validate", "Validate the document", 0, 0, cmdValidate},
		{"dump", "dump [path]", "Print the document, or the value at a JSON path", 0, 1, cmdDump},
		{"watch", "watch", "Print contacts whenever the file changes", 0, 0, cmdWatch},
	}
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func (e *env) contacts(root *model.Element) (*model.List, error) {
	return root.List(e.model.Contacts)
}

func (e *env) print(c *model.Element) {
	m := e.model
	line := c.Text(m.Name)
	if email := c.Text(m.Email); email != "" {
		line += " <" + email + ">"
	}
	line += " [" + c.Text(m.Kind) + "]"
	if c.Text(m.Primary) == "yes" {
		line += " *"
	}
	fmt.Fprintln(e.out, line)
}

func cmdList(e *env, _ []string) error {
	return e.doc.Do(func(root *model.Element) error {
		l, err := e.contacts(root)
		if err != nil {
			return err
		}
		elems, err := l.Elements()
		if err != nil {
			return err
		}
		for _, c := range elems {
			e.print(c)
		}
		return nil
	})
}

// byName returns the contacts whose name matches ignoring case.
func (e *env) byName(root *model.Element, name string) ([]*model.Element, error) {
	l, err := e.contacts(root)
	if err != nil {
		return nil, err
	}
	ix, err := l.IndexWith(e.model.Name, model.CaseInsensitive)
	if err != nil {
		return nil, err
	}
	found, err := ix.Elements(name)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: %s", errNotFound, name)
	}
	return found, nil
}

func cmdFind(e *env, args []string) error {
	return e.doc.Do(func(root *model.Element) error {
		found, err := e.byName(root, args[0])
		if err != nil {
			return err
		}
		for _, c := range found {
			e.print(c)
		}
		return nil
	})
}

func cmdAdd(e *env, args []string) error {
	err := e.doc.Do(func(root *model.Element) error {
		l, err := e.contacts(root)
		if err != nil {
			return err
		}
		c, err := l.Insert(nil)
		if err != nil {
			return err
		}
		if err := c.Write(e.model.Name, args[0]); err != nil {
			return err
		}
		if len(args) > 1 {
			if err := c.Write(e.model.Email, args[1]); err != nil {
				return err
			}
		}
		st, err := c.Validation()
		if err != nil {
			return err
		}
		if !st.IsOK() {
			fmt.Fprintf(e.out, "%s: %s\n", st.Severity, st.Message)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return e.doc.Save()
}

func cmdSet(e *env, args []string) error {
	name, prop, value := args[0], args[1], args[2]
	p, ok := e.model.Property(prop)
	if !ok {
		return fmt.Errorf("unknown property %q (have %s)", prop, strings.Join(e.model.Contact.PropertyNames(), ", "))
	}
	err := e.doc.Do(func(root *model.Element) error {
		found, err := e.byName(root, name)
		if err != nil {
			return err
		}
		if len(found) > 1 {
			return fmt.Errorf("%d contacts are named %s", len(found), name)
		}
		c := found[0]
		if err := c.Write(p, value); err != nil {
			return err
		}
		f, err := c.Field(p)
		if err != nil {
			return err
		}
		st, err := f.Validation()
		if err != nil {
			return err
		}
		if !st.IsOK() {
			fmt.Fprintf(e.out, "%s: %s\n", st.Severity, st.Message)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return e.doc.Save()
}

func cmdValidate(e *env, _ []string) error {
	var st model.Status
	err := e.doc.Do(func(root *model.Element) error {
		var err error
		st, err = root.Validation()
		return err
	})
	if err != nil {
		return err
	}
	if st.IsOK() {
		fmt.Fprintln(e.out, "ok")
		return nil
	}
	printStatus(e, st)
	if st.Severity == model.SeverityError {
		return errInvalid
	}
	return nil
}

// printStatus prints the leaves of a status tree.
func printStatus(e *env, st model.Status) {
	if len(st.Children) == 0 {
		fmt.Fprintf(e.out, "%s: %s\n", st.Severity, st.Message)
		return
	}
	for _, child := range st.Children {
		if !child.IsOK() {
			printStatus(e, child)
		}
	}
}

func cmdDump(e *env, args []string) error {
	return e.doc.Do(func(root *model.Element) error {
		data, err := export.JSON(root, export.IncludeDefaults(), export.Indent())
		if err != nil {
			return err
		}
		if len(args) == 0 {
			_, err = e.out.Write(data)
			return err
		}
		res := gjson.GetBytes(data, args[0])
		if !res.Exists() {
			return fmt.Errorf("no value at %s", args[0])
		}
		if res.Type == gjson.String {
			_, err = fmt.Fprintln(e.out, res.Str)
		} else {
			_, err = fmt.Fprintln(e.out, res.Raw)
		}
		return err
	})
}

func cmdWatch(e *env, _ []string) error {
	reloaded := make(chan struct{}, 1)
	sub, err := e.ws.Attach(event.ForTopic(workspace.TopicReloaded, event.ListenerFunc(func(event.Event) {
		select {
		case reloaded <- struct{}{}:
		default:
		}
	})))
	if err != nil {
		return err
	}
	defer sub.Release()

	wt, err := e.ws.Watcher()
	if err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- wt.Run(e.ctx) }()

	if err := cmdList(e, nil); err != nil {
		return err
	}
	for {
		select {
		case err := <-done:
			return err
		case <-reloaded:
			fmt.Fprintln(e.out, "--")
			if err := cmdList(e, nil); err != nil {
				return err
			}
		}
	}
}
