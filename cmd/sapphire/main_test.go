package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tidwall/gjson"
)

func sapphire(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_AddListFind(t *testing.T) {
	file := filepath.Join(t.TempDir(), "book.xml")

	if code, _, errOut := sapphire(t, "-file", file, "add", "Ada", "ada@example.com"); code != 0 {
		t.Fatalf("add exit = %d: %s", code, errOut)
	}
	if code, _, errOut := sapphire(t, "-file", file, "add", "Grace"); code != 0 {
		t.Fatalf("add exit = %d: %s", code, errOut)
	}

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `<contact email="ada@example.com">`) {
		t.Errorf("saved document:\n%s", data)
	}

	code, out, _ := sapphire(t, "-file", file, "list")
	if code != 0 {
		t.Fatalf("list exit = %d", code)
	}
	want := "Ada <ada@example.com> [personal]\nGrace [personal]\n"
	if out != want {
		t.Errorf("list = %q, want %q", out, want)
	}

	code, out, _ = sapphire(t, "-file", file, "find", "ADA")
	if code != 0 || out != "Ada <ada@example.com> [personal]\n" {
		t.Errorf("find ADA = %d, %q", code, out)
	}
	if code, _, errOut := sapphire(t, "-file", file, "find", "Linus"); code != 1 || !strings.Contains(errOut, "contact not found") {
		t.Errorf("find Linus = %d, %q, want not found", code, errOut)
	}
}

func TestRun_SetValidate(t *testing.T) {
	file := filepath.Join(t.TempDir(), "book.xml")
	sapphire(t, "-file", file, "add", "Ada")

	code, out, _ := sapphire(t, "-file", file, "set", "ada", "Kind", "robot")
	if code != 0 || !strings.Contains(out, "robot") {
		t.Errorf("set Kind robot = %d, %q", code, out)
	}
	code, out, errOut := sapphire(t, "-file", file, "validate")
	if code != 1 || !strings.HasPrefix(out, "error: ") || !strings.Contains(errOut, "document is invalid") {
		t.Errorf("validate = %d, %q, %q, want error", code, out, errOut)
	}

	if code, _, _ := sapphire(t, "-file", file, "set", "Ada", "Primary", "yes"); code != 0 {
		t.Errorf("set Primary exit = %d", code)
	}
	if code, _, _ := sapphire(t, "-file", file, "set", "Ada", "Kind", "work"); code != 0 {
		t.Errorf("set Kind exit = %d", code)
	}
	code, out, _ = sapphire(t, "-file", file, "validate")
	if code != 0 || out != "ok\n" {
		t.Errorf("validate = %d, %q, want ok", code, out)
	}
	if _, out, _ := sapphire(t, "-file", file, "list"); out != "Ada [work] *\n" {
		t.Errorf("list = %q", out)
	}

	if code, _, errOut := sapphire(t, "-file", file, "set", "Ada", "Shoe", "42"); code != 1 || !strings.Contains(errOut, "unknown property") {
		t.Errorf("set Shoe = %d, %q", code, errOut)
	}
}

func TestRun_Config(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "book.xml")
	conf := filepath.Join(dir, "services.toml")
	err := os.WriteFile(conf, []byte(`
[[service]]
id = "contacts.email-domain"
kind = "validator"
when = { type = "Contact", property = "Email" }
params = { domain = "example.com" }
source = '''
function validate(v)
  if v.present and not string.find(v.text, "@" .. params.domain, 1, true) then
    return "warning", v.label .. " is outside " .. params.domain
  end
end
'''
`), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	sapphire(t, "-file", file, "add", "Ada", "ada@elsewhere.org")
	code, out, errOut := sapphire(t, "-file", file, "-config", conf, "validate")
	if code != 0 {
		t.Fatalf("validate exit = %d: %s", code, errOut)
	}
	if !strings.Contains(out, "warning: ") || !strings.Contains(out, "outside example.com") {
		t.Errorf("validate = %q, want domain warning", out)
	}

	if code, _, errOut := sapphire(t, "-file", file, "-config", filepath.Join(dir, "missing.toml"), "list"); code != 1 || errOut == "" {
		t.Errorf("missing config = %d, %q", code, errOut)
	}
}

func TestRun_Dump(t *testing.T) {
	file := filepath.Join(t.TempDir(), "book.xml")
	sapphire(t, "-file", file, "add", "Ada", "ada@example.com")

	code, out, _ := sapphire(t, "-file", file, "dump")
	if code != 0 {
		t.Fatalf("dump exit = %d", code)
	}
	for path, want := range map[string]string{
		"Contacts.#":       "1",
		"Contacts.0.Name":  "Ada",
		"Contacts.0.Email": "ada@example.com",
		"Contacts.0.Kind":  "personal",
	} {
		if got := gjson.Get(out, path).String(); got != want {
			t.Errorf("%s = %q, want %q", path, got, want)
		}
	}

	if code, out, _ := sapphire(t, "-file", file, "dump", "Contacts.0.Email"); code != 0 || out != "ada@example.com\n" {
		t.Errorf("dump Contacts.0.Email = %d, %q", code, out)
	}
	if code, out, _ := sapphire(t, "-file", file, "dump", "Contacts.#.Name"); code != 0 || out != `["Ada"]`+"\n" {
		t.Errorf("dump Contacts.#.Name = %d, %q", code, out)
	}
	if code, _, _ := sapphire(t, "-file", file, "dump", "Owner"); code != 1 {
		t.Errorf("dump Owner exit = %d, want 1", code)
	}
}

func TestRun_Usage(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"no command", nil, 2},
		{"unknown command", []string{"frobnicate"}, 2},
		{"missing argument", []string{"find"}, 2},
		{"too many arguments", []string{"list", "x"}, 2},
		{"bad log level", []string{"-log-level", "loud", "list"}, 2},
		{"version", []string{"-version"}, 0},
		{"help", []string{"-h"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code, _, _ := sapphire(t, tt.args...); code != tt.code {
				t.Errorf("exit = %d, want %d", code, tt.code)
			}
		})
	}
}
