// Package setupcheck verifies that a site deployment is configured before it
// is started.
package setupcheck

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/bcrypt"

	sitecmd "github.com/ounjeeh/staples/internal/cmd/site"
	entrypoint "github.com/ounjeeh/staples/internal/platform/cmd"
	"github.com/ounjeeh/staples/internal/platform/config"
	"github.com/ounjeeh/staples/internal/platform/objectstore"
	"github.com/ounjeeh/staples/internal/services/admin"
	"github.com/ounjeeh/staples/internal/services/catalog/storage/sqlite"
)

// ErrChecksFailed is returned when at least one check fails.
var ErrChecksFailed = errors.New("setup checks failed")

// Status is the outcome of one check.
type Status string

const (
	StatusOK   Status = "ok"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// Check is one verified setup item.
type Check struct {
	Name   string
	Status Status
	Detail string
}

// Config is the site configuration under test.
type Config struct {
	Site sitecmd.Config
}

// ParseConfig reads the site environment and flags.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg.Site); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Site.DBPath, "db", cfg.Site.DBPath, "SQLite catalog database path")
	fs.StringVar(&cfg.Site.MediaDir, "media-dir", cfg.Site.MediaDir, "Directory holding uploaded media buckets")
	fs.StringVar(&cfg.Site.PublicBaseURL, "public-base-url", cfg.Site.PublicBaseURL, "Public base URL of the site")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run performs every check, reports them to out and fails when any check
// failed. Warnings do not fail the run.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	checks := Checks(ctx, cfg.Site)
	failed := false
	fmt.Fprintln(out, "OUNJEEH setup verification")
	for _, c := range checks {
		fmt.Fprintf(out, "  [%s] %s", strings.ToUpper(string(c.Status)), c.Name)
		if c.Detail != "" {
			fmt.Fprintf(out, ": %s", c.Detail)
		}
		fmt.Fprintln(out)
		if c.Status == StatusFail {
			failed = true
		}
	}
	if failed {
		fmt.Fprintln(out, "Some checks failed. Fix the issues above and run again.")
		return ErrChecksFailed
	}
	fmt.Fprintln(out, "All checks passed.")
	return nil
}

// Checks runs each setup check against cfg in order.
func Checks(ctx context.Context, cfg sitecmd.Config) []Check {
	return []Check{
		checkBaseURL(cfg),
		checkDatabase(ctx, cfg),
		checkMedia(cfg),
		checkAdmin(cfg),
		checkWebhook(cfg),
	}
}

func checkBaseURL(cfg sitecmd.Config) Check {
	c := Check{Name: "public base url"}
	if err := config.ValidateBaseURL("PUBLIC_BASE_URL", cfg.PublicBaseURL); err != nil {
		c.Status, c.Detail = StatusFail, err.Error()
		return c
	}
	c.Status, c.Detail = StatusOK, cfg.PublicBaseURL
	return c
}

func checkDatabase(ctx context.Context, cfg sitecmd.Config) Check {
	c := Check{Name: "catalog database"}
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		c.Status, c.Detail = StatusFail, err.Error()
		return c
	}
	defer store.Close()
	if err := store.Ping(ctx); err != nil {
		c.Status, c.Detail = StatusFail, err.Error()
		return c
	}
	c.Status, c.Detail = StatusOK, cfg.DBPath
	return c
}

func checkMedia(cfg sitecmd.Config) Check {
	c := Check{Name: "media buckets"}
	for _, name := range []string{sitecmd.ProductImagesBucket, sitecmd.TeamPhotosBucket} {
		if _, err := objectstore.NewFSBucket(cfg.MediaDir, name, cfg.PublicBaseURL); err != nil {
			c.Status, c.Detail = StatusFail, err.Error()
			return c
		}
	}
	c.Status, c.Detail = StatusOK, cfg.MediaDir
	return c
}

func checkAdmin(cfg sitecmd.Config) Check {
	c := Check{Name: "admin credentials"}
	hash := strings.TrimSpace(cfg.AdminPasswordHash)
	secret := strings.TrimSpace(cfg.AdminSecret)
	if hash == "" && secret == "" {
		c.Status, c.Detail = StatusWarn, "not set, the admin API stays disabled (run adminkey)"
		return c
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		c.Status, c.Detail = StatusFail, fmt.Sprintf("%sADMIN_PASSWORD_HASH is not a bcrypt hash", config.EnvPrefix)
		return c
	}
	if len(secret) < admin.MinSecretBytes {
		c.Status, c.Detail = StatusFail, fmt.Sprintf("%sADMIN_SESSION_SECRET must be at least %d bytes", config.EnvPrefix, admin.MinSecretBytes)
		return c
	}
	c.Status = StatusOK
	return c
}

func checkWebhook(cfg sitecmd.Config) Check {
	c := Check{Name: "inquiry webhook"}
	if strings.TrimSpace(cfg.WebhookURL) == "" {
		c.Status, c.Detail = StatusWarn, "not set, inquiries are only sent through WhatsApp"
		return c
	}
	if err := config.ValidateBaseURL("WEBHOOK_URL", cfg.WebhookURL); err != nil {
		c.Status, c.Detail = StatusFail, err.Error()
		return c
	}
	c.Status = StatusOK
	return c
}
