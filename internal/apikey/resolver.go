package apikey

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/avrabe/mcp-loxone/internal/core"
	"github.com/avrabe/mcp-loxone/internal/secrets"
	"go.uber.org/zap"
)

// DefaultSecretName is the logical name the key is persisted under.
const DefaultSecretName = "SSE_API_KEY"

// ResolverConfig holds the inputs of key resolution.
type ResolverConfig struct {
	// Override is used verbatim when non-empty; the store is not touched.
	Override   string
	Store      secrets.Store
	SecretName string
	// Random defaults to crypto/rand.
	Random io.Reader
}

// Resolution is the outcome of a successful Resolve.
type Resolution struct {
	Key *Material
	// Warning is set when the key could not be made durable. The key is
	// still valid for this run; a restart will produce a different one.
	Warning error
}

// Resolver produces the run's Material: override, then store, then a newly
// generated key that is persisted back to the store.
type Resolver struct {
	cfg    ResolverConfig
	logger *zap.Logger

	// serializes Resolve so concurrent callers cannot generate two keys
	mu sync.Mutex
}

// NewResolver creates a resolver.
func NewResolver(cfg ResolverConfig, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SecretName == "" {
		cfg.SecretName = DefaultSecretName
	}
	return &Resolver{cfg: cfg, logger: logger.Named("apikey")}
}

// Resolve returns the key for this run. It fails with core.ErrKeyUnresolved
// only when no key at all can be produced.
func (r *Resolver) Resolve(ctx context.Context) (Resolution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cfg.Override != "" {
		m, err := NewMaterial(r.cfg.Override, SourceOverride)
		if err != nil {
			return Resolution{}, core.WrapError(core.ErrKeyUnresolved, err)
		}
		r.logger.Info("using API key override", zap.Object("key", m))
		return Resolution{Key: m}, nil
	}

	if r.cfg.Store == nil {
		m, err := r.generate()
		if err != nil {
			return Resolution{}, err
		}
		warn := core.WrapError(core.ErrSecretStore, errors.New("no secret store configured"))
		r.logger.Warn("generated API key is not persisted", zap.Object("key", m), zap.Error(warn))
		return Resolution{Key: m, Warning: warn}, nil
	}

	stored, err := r.cfg.Store.Get(ctx, r.cfg.SecretName)
	switch {
	case err == nil && stored != "":
		m, merr := NewMaterial(stored, SourceStore)
		if merr != nil {
			return Resolution{}, core.WrapError(core.ErrKeyUnresolved, merr)
		}
		r.logger.Info("loaded API key from secret store", zap.Object("key", m))
		return Resolution{Key: m}, nil

	case err == nil, errors.Is(err, core.ErrSecretNotFound):
		return r.generateAndPersist(ctx)

	default:
		// The store may well hold a key we cannot see; do not overwrite it.
		m, gerr := r.generate()
		if gerr != nil {
			return Resolution{}, gerr
		}
		r.logger.Warn("secret store unreadable, using a temporary API key",
			zap.Object("key", m), zap.Error(err))
		return Resolution{Key: m, Warning: err}, nil
	}
}

func (r *Resolver) generateAndPersist(ctx context.Context) (Resolution, error) {
	m, err := r.generate()
	if err != nil {
		return Resolution{}, err
	}

	if err := r.cfg.Store.Set(ctx, r.cfg.SecretName, m.Reveal()); err != nil {
		r.logger.Warn("failed to persist generated API key; it will change on restart",
			zap.Object("key", m), zap.Error(err))
		return Resolution{Key: m, Warning: err}, nil
	}

	r.logger.Info("generated new API key and stored it", zap.Object("key", m))
	return Resolution{Key: m}, nil
}

func (r *Resolver) generate() (*Material, error) {
	secret, err := Generate(r.cfg.Random)
	if err != nil {
		return nil, core.WrapError(core.ErrKeyUnresolved, err)
	}
	return NewMaterial(secret, SourceGenerated)
}

// Current returns the key a server would use right now without generating
// one. It returns core.ErrSecretNotFound when neither an override nor a
// stored key exists.
func (r *Resolver) Current(ctx context.Context) (*Material, error) {
	if r.cfg.Override != "" {
		return NewMaterial(r.cfg.Override, SourceOverride)
	}
	if r.cfg.Store == nil {
		return nil, core.WrapError(core.ErrConfigMissing, errors.New("no secret store configured"))
	}
	stored, err := r.cfg.Store.Get(ctx, r.cfg.SecretName)
	if err != nil {
		return nil, err
	}
	if stored == "" {
		return nil, core.WrapError(core.ErrSecretNotFound, fmt.Errorf("secret %q is empty", r.cfg.SecretName))
	}
	return NewMaterial(stored, SourceStore)
}

// Rotate generates a new key and persists it, replacing any stored key.
// Running servers keep their key until restarted.
func (r *Resolver) Rotate(ctx context.Context) (*Material, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cfg.Store == nil {
		return nil, core.WrapError(core.ErrConfigMissing, errors.New("no secret store configured"))
	}
	m, err := r.generate()
	if err != nil {
		return nil, err
	}
	if err := r.cfg.Store.Set(ctx, r.cfg.SecretName, m.Reveal()); err != nil {
		return nil, err
	}
	r.logger.Info("rotated API key", zap.Object("key", m))
	return m, nil
}

// Clear removes the stored key.
func (r *Resolver) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cfg.Store == nil {
		return core.WrapError(core.ErrConfigMissing, errors.New("no secret store configured"))
	}
	return r.cfg.Store.Delete(ctx, r.cfg.SecretName)
}
