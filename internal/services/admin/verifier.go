package admin

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ounjeeh/staples/internal/platform/imageload"
)

// ImageMarker records that a product image was fetched successfully.
type ImageMarker interface {
	MarkProductImageVerified(ctx context.Context, id string, at time.Time) error
}

// VerifierConfig wires a Verifier.
type VerifierConfig struct {
	Marker  ImageMarker
	Fetcher imageload.Fetcher
	Policy  imageload.Policy
	Clock   imageload.Clock
	Logger  *zap.Logger
}

// Verifier loads freshly uploaded product images through their public URL and
// marks each record verified once its image loads.
type Verifier struct {
	marker  ImageMarker
	fetcher imageload.Fetcher
	policy  imageload.Policy
	clock   imageload.Clock
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	closed  bool
	loaders map[string]*imageload.Loader
	wg      sync.WaitGroup
}

// NewVerifier builds a Verifier.
func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	if cfg.Marker == nil {
		return nil, errors.New("image marker is required")
	}
	if cfg.Fetcher == nil {
		return nil, errors.New("image fetcher is required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = imageload.SystemClock()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Verifier{
		marker:  cfg.Marker,
		fetcher: cfg.Fetcher,
		policy:  cfg.Policy,
		clock:   clock,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		loaders: make(map[string]*imageload.Loader),
	}, nil
}

// Track starts verifying locator for record id. A previous verification of the
// same record is abandoned.
func (v *Verifier) Track(id, locator string) error {
	loader, err := imageload.New(imageload.Request{
		Locator:  locator,
		AltText:  id,
		Priority: imageload.PriorityEager,
	}, imageload.Options{
		Fetcher: v.fetcher,
		Policy:  v.policy,
		Clock:   v.clock,
		Logger:  v.logger,
		OnLoaded: func() {
			if err := v.marker.MarkProductImageVerified(v.ctx, id, v.clock.Now()); err != nil {
				v.logger.Warn("mark product image verified", zap.String("record_id", id), zap.Error(err))
			}
		},
	})
	if err != nil {
		return err
	}

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return errors.New("image verifier is closed")
	}
	previous := v.loaders[id]
	v.loaders[id] = loader
	v.wg.Add(1)
	v.mu.Unlock()

	if previous != nil {
		previous.Unmount()
	}
	if err := loader.Mount(v.ctx); err != nil {
		v.forget(id, loader)
		v.wg.Done()
		return err
	}
	go func() {
		defer v.wg.Done()
		<-loader.Done()
		v.forget(id, loader)
	}()
	return nil
}

// Forget abandons the verification of record id, if any.
func (v *Verifier) Forget(id string) {
	v.mu.Lock()
	loader := v.loaders[id]
	delete(v.loaders, id)
	v.mu.Unlock()
	if loader != nil {
		loader.Unmount()
	}
}

// Pending reports how many verifications are still running.
func (v *Verifier) Pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.loaders)
}

// Close abandons every running verification and waits for them to stop.
func (v *Verifier) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	loaders := make([]*imageload.Loader, 0, len(v.loaders))
	for id, loader := range v.loaders {
		loaders = append(loaders, loader)
		delete(v.loaders, id)
	}
	v.mu.Unlock()

	for _, loader := range loaders {
		loader.Unmount()
	}
	v.cancel()
	v.wg.Wait()
}

func (v *Verifier) forget(id string, loader *imageload.Loader) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.loaders[id] == loader {
		delete(v.loaders, id)
	}
}
