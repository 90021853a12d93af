// Package site parses site command flags and launches the storefront.
package site

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	entrypoint "github.com/ounjeeh/staples/internal/platform/cmd"
	"github.com/ounjeeh/staples/internal/platform/imageload"
	"github.com/ounjeeh/staples/internal/platform/objectstore"
	"github.com/ounjeeh/staples/internal/services/admin"
	"github.com/ounjeeh/staples/internal/services/catalog"
	"github.com/ounjeeh/staples/internal/services/catalog/storage/sqlite"
	"github.com/ounjeeh/staples/internal/services/inquiry"
	sitesvc "github.com/ounjeeh/staples/internal/services/site"
)

// Bucket names for uploaded media.
const (
	ProductImagesBucket = "product-images"
	TeamPhotosBucket    = "team-photos"
)

// Config holds site command configuration.
type Config struct {
	HTTPAddr          string        `env:"HTTP_ADDR" envDefault:"localhost:8080"`
	DBPath            string        `env:"DB_PATH" envDefault:"data/staples.db"`
	MediaDir          string        `env:"MEDIA_DIR" envDefault:"data/media"`
	PublicBaseURL     string        `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
	AdminPasswordHash string        `env:"ADMIN_PASSWORD_HASH"`
	AdminSecret       string        `env:"ADMIN_SESSION_SECRET"`
	AdminSessionTTL   time.Duration `env:"ADMIN_SESSION_TTL" envDefault:"12h"`
	WebhookURL        string        `env:"WEBHOOK_URL"`
	ImageRetries      int           `env:"IMAGE_MAX_RETRIES" envDefault:"3"`
	ImageRetryDelay   time.Duration `env:"IMAGE_RETRY_DELAY" envDefault:"1s"`
	ImageSettle       time.Duration `env:"IMAGE_SETTLE" envDefault:"1500ms"`
	ImageFailedTTL    time.Duration `env:"IMAGE_FAILED_TTL" envDefault:"30s"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite catalog database path")
	fs.StringVar(&cfg.MediaDir, "media-dir", cfg.MediaDir, "Directory holding uploaded media buckets")
	fs.StringVar(&cfg.PublicBaseURL, "public-base-url", cfg.PublicBaseURL, "Public base URL of this site")
	fs.StringVar(&cfg.WebhookURL, "webhook-url", cfg.WebhookURL, "CRM webhook for inquiries (empty disables)")
	fs.IntVar(&cfg.ImageRetries, "image-retries", cfg.ImageRetries, "Image load retries after the first attempt (0 disables)")
	fs.DurationVar(&cfg.ImageSettle, "image-settle", cfg.ImageSettle, "How long a page waits for images")

	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// AdminEnabled reports whether both admin credentials are configured.
func (c Config) AdminEnabled() bool {
	return strings.TrimSpace(c.AdminPasswordHash) != "" && strings.TrimSpace(c.AdminSecret) != ""
}

// Run starts the site.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSite, func(ctx context.Context, logger *zap.Logger) error {
		rt, err := newRuntime(cfg, logger)
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := rt.server.ListenAndServe(ctx); err != nil {
			return fmt.Errorf("serve site: %w", err)
		}
		return nil
	})
}

// runtime owns every long-lived dependency of the site process.
type runtime struct {
	server   *sitesvc.Server
	store    *sqlite.Store
	verifier *admin.Verifier
}

func newRuntime(cfg Config, logger *zap.Logger) (_ *runtime, err error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/"))
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("public base url %q is invalid", cfg.PublicBaseURL)
	}
	rt := &runtime{}
	defer func() {
		if err != nil {
			rt.Close()
		}
	}()

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open catalog store: %w", err)
	}
	rt.store = store

	mediaBase := base.String() + strings.TrimSuffix(sitesvc.MediaPrefix, "/")
	productImages, err := objectstore.NewFSBucket(cfg.MediaDir, ProductImagesBucket, mediaBase)
	if err != nil {
		return nil, fmt.Errorf("open %s bucket: %w", ProductImagesBucket, err)
	}
	teamPhotos, err := objectstore.NewFSBucket(cfg.MediaDir, TeamPhotosBucket, mediaBase)
	if err != nil {
		return nil, fmt.Errorf("open %s bucket: %w", TeamPhotosBucket, err)
	}

	retries := cfg.ImageRetries
	if retries <= 0 {
		retries = imageload.NoRetries
	}
	policy := imageload.Policy{MaxRetries: retries, BaseDelay: cfg.ImageRetryDelay}
	fetcher := imageload.NewHTTPFetcher(nil, base)

	tracker, err := sitesvc.NewImageTracker(sitesvc.TrackerConfig{
		Fetcher:   fetcher,
		Policy:    policy,
		Logger:    logger.Named("images"),
		Settle:    cfg.ImageSettle,
		FailedTTL: cfg.ImageFailedTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("init image tracker: %w", err)
	}

	var adminHandler http.Handler
	if cfg.AdminEnabled() {
		adminHandler, err = rt.newAdmin(cfg, store, productImages, teamPhotos, fetcher, policy, logger)
		if err != nil {
			tracker.Close()
			return nil, err
		}
	} else {
		logger.Info("admin API disabled: password hash or session secret not set")
	}

	relay := inquiry.NewRelay(inquiry.RelayConfig{URL: cfg.WebhookURL, Logger: logger.Named("relay")})
	if !relay.Enabled() {
		logger.Info("inquiry webhook disabled")
	}

	server, err := sitesvc.NewServer(sitesvc.Config{
		HTTPAddr:  cfg.HTTPAddr,
		Source:    catalog.NewSource(store, logger.Named("catalog")),
		Inquiries: inquiry.NewService(relay, logger.Named("inquiry")),
		Relay:     relay,
		Tracker:   tracker,
		Admin:     adminHandler,
		Media: map[string]http.Handler{
			productImages.Name(): productImages.Handler(),
			teamPhotos.Name():    teamPhotos.Handler(),
		},
		Health: store.Ping,
		Logger: logger,
	})
	if err != nil {
		tracker.Close()
		return nil, fmt.Errorf("init site server: %w", err)
	}
	rt.server = server
	return rt, nil
}

func (rt *runtime) newAdmin(cfg Config, store *sqlite.Store, products, team objectstore.Bucket, fetcher imageload.Fetcher, policy imageload.Policy, logger *zap.Logger) (http.Handler, error) {
	auth, err := admin.NewAuthenticator(admin.AuthConfig{
		PasswordHash: cfg.AdminPasswordHash,
		Secret:       []byte(strings.TrimSpace(cfg.AdminSecret)),
		TTL:          cfg.AdminSessionTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("init admin auth: %w", err)
	}
	verifier, err := admin.NewVerifier(admin.VerifierConfig{
		Marker:  store,
		Fetcher: fetcher,
		Policy:  policy,
		Logger:  logger.Named("verifier"),
	})
	if err != nil {
		return nil, fmt.Errorf("init image verifier: %w", err)
	}
	rt.verifier = verifier
	handler, err := admin.NewHandler(admin.Config{
		Auth:          auth,
		Products:      store,
		Team:          store,
		ProductImages: products,
		TeamPhotos:    team,
		Verifier:      verifier,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init admin api: %w", err)
	}
	return handler.Routes(), nil
}

// Close releases the runtime in reverse start order.
func (rt *runtime) Close() {
	if rt == nil {
		return
	}
	rt.server.Close()
	if rt.verifier != nil {
		rt.verifier.Close()
	}
	_ = rt.store.Close()
}
