package setupcheck

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	sitecmd "github.com/ounjeeh/staples/internal/cmd/site"
)

func validConfig(t *testing.T) sitecmd.Config {
	t.Helper()
	dir := t.TempDir()
	hash, err := bcrypt.GenerateFromPassword([]byte("let-me-in"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return sitecmd.Config{
		DBPath:            filepath.Join(dir, "staples.db"),
		MediaDir:          filepath.Join(dir, "media"),
		PublicBaseURL:     "https://ounjeeh.example.com",
		AdminPasswordHash: string(hash),
		AdminSecret:       strings.Repeat("k", 32),
		WebhookURL:        "https://crm.example.com/hook",
	}
}

func statuses(checks []Check) map[string]Status {
	out := make(map[string]Status, len(checks))
	for _, c := range checks {
		out[c.Name] = c.Status
	}
	return out
}

func TestChecksPassForValidConfig(t *testing.T) {
	for _, c := range Checks(context.Background(), validConfig(t)) {
		if c.Status != StatusOK {
			t.Errorf("%s = %s (%s)", c.Name, c.Status, c.Detail)
		}
	}
}

func TestChecksFlagProblems(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*sitecmd.Config)
		check  string
		want   Status
	}{
		{"placeholder base url", func(c *sitecmd.Config) { c.PublicBaseURL = "https://your-project-url.example.com" }, "public base url", StatusFail},
		{"relative base url", func(c *sitecmd.Config) { c.PublicBaseURL = "ounjeeh.example.com" }, "public base url", StatusFail},
		{"no admin", func(c *sitecmd.Config) { c.AdminPasswordHash, c.AdminSecret = "", "" }, "admin credentials", StatusWarn},
		{"plain password", func(c *sitecmd.Config) { c.AdminPasswordHash = "hunter2" }, "admin credentials", StatusFail},
		{"short secret", func(c *sitecmd.Config) { c.AdminSecret = "short" }, "admin credentials", StatusFail},
		{"no webhook", func(c *sitecmd.Config) { c.WebhookURL = "" }, "inquiry webhook", StatusWarn},
		{"bad webhook", func(c *sitecmd.Config) { c.WebhookURL = "ftp://crm" }, "inquiry webhook", StatusFail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(&cfg)
			if got := statuses(Checks(context.Background(), cfg))[tt.check]; got != tt.want {
				t.Fatalf("%s = %s, want %s", tt.check, got, tt.want)
			}
		})
	}
}

func TestCheckMediaFailsOnFile(t *testing.T) {
	cfg := validConfig(t)
	file := filepath.Join(t.TempDir(), "media")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg.MediaDir = file
	if got := checkMedia(cfg).Status; got != StatusFail {
		t.Fatalf("media = %s, want fail", got)
	}
}

func TestRunReportsAndFails(t *testing.T) {
	var out bytes.Buffer
	if err := Run(context.Background(), Config{Site: validConfig(t)}, &out); err != nil {
		t.Fatalf("run: %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "All checks passed.") {
		t.Fatalf("output = %q", out.String())
	}

	cfg := validConfig(t)
	cfg.AdminSecret = "short"
	out.Reset()
	err := Run(context.Background(), Config{Site: cfg}, &out)
	if !errors.Is(err, ErrChecksFailed) {
		t.Fatalf("err = %v, want ErrChecksFailed", err)
	}
	if !strings.Contains(out.String(), "[FAIL] admin credentials") {
		t.Fatalf("output = %q", out.String())
	}
}
