package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/civic-registry/console/internal/listctl"
)

const (
	optionKeyPrefix     = "registry:options:"
	optionVersionPrefix = "registry:options:version:"
)

// Lookup sources reported to a CacheObserver.
const (
	SourceMemory = "memory"
	SourceRedis  = "redis"
	SourceAPI    = "api"
)

// CacheObserver records where option lookups were answered from.
type CacheObserver interface {
	ObserveOptionLookup(resource, source string)
}

// OptionStoreConfig configures an OptionStore.
type OptionStoreConfig struct {
	Client *Client
	// Redis is optional; without it only the in-process layer is used.
	Redis     redis.UniversalClient
	LocalTTL  time.Duration
	SharedTTL time.Duration
	Observer  CacheObserver
	Logger    *slog.Logger
}

// OptionStore serves dropdown options through an in-process cache, a shared
// Redis cache and finally the API. It implements listctl.OptionSource.
type OptionStore struct {
	client    *Client
	local     *gocache.Cache
	redis     redis.UniversalClient
	sharedTTL time.Duration
	observer  CacheObserver
	logger    *slog.Logger
	group     singleflight.Group
}

// NewOptionStore builds the store.
func NewOptionStore(cfg OptionStoreConfig) (*OptionStore, error) {
	if cfg.Client == nil {
		return nil, errors.New("registry: option store requires a client")
	}
	localTTL := cfg.LocalTTL
	if localTTL <= 0 {
		localTTL = time.Minute
	}
	sharedTTL := cfg.SharedTTL
	if sharedTTL <= 0 {
		sharedTTL = 10 * time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &OptionStore{
		client:    cfg.Client,
		local:     gocache.New(localTTL, 2*localTTL),
		redis:     cfg.Redis,
		sharedTTL: sharedTTL,
		observer:  cfg.Observer,
		logger:    logger,
	}, nil
}

// Options implements listctl.OptionSource.
func (s *OptionStore) Options(ctx context.Context, q listctl.OptionQuery) ([]listctl.Option, error) {
	key := q.Key()
	if cached, ok := s.local.Get(key); ok {
		s.observe(q.Resource, SourceMemory)
		return cached.([]listctl.Option), nil
	}

	resultChan := s.group.DoChan(key, func() (interface{}, error) {
		// Callers sharing this load must not lose it when the first one cancels.
		return s.load(context.WithoutCancel(ctx), q)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]listctl.Option), nil
	}
}

func (s *OptionStore) load(ctx context.Context, q listctl.OptionQuery) ([]listctl.Option, error) {
	key := q.Key()
	sharedKey, err := s.sharedKey(ctx, q)
	if err != nil {
		s.logger.Warn("option cache version lookup failed", slog.String("key", key), slog.Any("error", err))
	}
	if sharedKey != "" {
		payload, err := s.redis.Get(ctx, sharedKey).Bytes()
		switch {
		case err == nil:
			var options []listctl.Option
			if jsonErr := json.Unmarshal(payload, &options); jsonErr == nil {
				s.local.SetDefault(key, options)
				s.observe(q.Resource, SourceRedis)
				return options, nil
			}
		case !errors.Is(err, redis.Nil):
			s.logger.Warn("option cache read failed", slog.String("key", sharedKey), slog.Any("error", err))
		}
	}

	options, err := s.fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	s.observe(q.Resource, SourceAPI)
	s.local.SetDefault(key, options)
	if sharedKey != "" {
		if raw, err := json.Marshal(options); err == nil {
			if err := s.redis.Set(ctx, sharedKey, raw, s.sharedTTL).Err(); err != nil {
				s.logger.Warn("option cache write failed", slog.String("key", sharedKey), slog.Any("error", err))
			}
		}
	}
	return options, nil
}

func (s *OptionStore) fetch(ctx context.Context, q listctl.OptionQuery) ([]listctl.Option, error) {
	page, err := List[namedRecord](ctx, s.client, q.Resource, q.Values())
	if err != nil {
		return nil, err
	}
	options := make([]listctl.Option, 0, len(page.Items))
	for _, rec := range page.Items {
		options = append(options, listctl.Option{ID: rec.ID.String(), Label: rec.Name})
	}
	return options, nil
}

// sharedKey composes the Redis key with the resource's current version.
func (s *OptionStore) sharedKey(ctx context.Context, q listctl.OptionQuery) (string, error) {
	if s.redis == nil {
		return "", nil
	}
	ver, err := s.redis.Get(ctx, optionVersionPrefix+q.Resource).Int64()
	if errors.Is(err, redis.Nil) {
		ver = 0
	} else if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%s:v%d", optionKeyPrefix, q.Key(), ver), nil
}

// Invalidate drops every cached option list of resource. Shared entries are
// orphaned by bumping the resource version and expire on their own.
func (s *OptionStore) Invalidate(ctx context.Context, resource string) error {
	for key := range s.local.Items() {
		if key == resource || strings.HasPrefix(key, resource+":") {
			s.local.Delete(key)
		}
	}
	if s.redis == nil {
		return nil
	}
	if err := s.redis.Incr(ctx, optionVersionPrefix+resource).Err(); err != nil {
		return fmt.Errorf("registry: invalidate %s options: %w", resource, err)
	}
	return nil
}

// Warm loads the given option lists concurrently, at most limit at a time.
// It returns the number of lists loaded.
func (s *OptionStore) Warm(ctx context.Context, queries []listctl.OptionQuery, limit int) (int, error) {
	if limit <= 0 {
		limit = 4
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, q := range queries {
		g.Go(func() error {
			if _, err := s.Options(gctx, q); err != nil {
				return fmt.Errorf("warm %s: %w", q.Key(), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(queries), nil
}

func (s *OptionStore) observe(resource, source string) {
	if s.observer != nil {
		s.observer.ObserveOptionLookup(resource, source)
	}
}
