package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"thepup/internal/config"
	"thepup/internal/models/domain"
	"thepup/internal/utils/logger/sl"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "thepup"

// Cache: кэш публичных ответов API.
type Cache interface {
	Get(ctx context.Context, kind domain.Kind, key string, dst any) (bool, error)
	Set(ctx context.Context, kind domain.Kind, key string, value any) error
	Invalidate(ctx context.Context, kind domain.Kind) error
	Shutdown(ctx context.Context) error
}

// New возвращает Redis-кэш или заглушку, если адрес не задан.
func New(logger *slog.Logger, cfg config.CacheConfig) Cache {
	op := "cache.New()"
	log := logger.With(slog.String("op", op))

	if cfg.Address == "" {
		log.Info("redis address is empty, cache disabled")
		return Noop{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	log.Info("redis cache enabled", slog.String("addr", cfg.Address))

	return NewRedis(logger, client, cfg.TTL)
}

// Redis хранит JSON-ответы с TTL. Ключи включают версию раздела,
// так что Invalidate делает устаревшими сразу все ответы раздела.
type Redis struct {
	log    *slog.Logger
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedis(log *slog.Logger, client redis.UniversalClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Redis{log: log, client: client, ttl: ttl}
}

func versionKey(kind domain.Kind) string {
	return fmt.Sprintf("%s:ver:%s", keyPrefix, kind)
}

// dependsOn: разделы, от версий которых зависят ответы составного раздела.
var dependsOn = map[domain.Kind][]domain.Kind{
	domain.KindSearch: domain.CatalogKinds,
}

func (r *Redis) dataKey(ctx context.Context, kind domain.Kind, key string) (string, error) {
	kinds, ok := dependsOn[kind]
	if !ok {
		kinds = []domain.Kind{kind}
	}

	keys := make([]string, len(kinds))
	for i, k := range kinds {
		keys[i] = versionKey(k)
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return "", err
	}

	vers := make([]string, len(vals))
	for i, v := range vals {
		switch v := v.(type) {
		case string:
			vers[i] = v
		default:
			vers[i] = "0"
		}
	}

	return fmt.Sprintf("%s:%s:v%s:%s", keyPrefix, kind, strings.Join(vers, "."), key), nil
}

// Get читает значение в dst. Второе значение сообщает о попадании.
func (r *Redis) Get(ctx context.Context, kind domain.Kind, key string, dst any) (bool, error) {
	op := "cache.Get()"

	k, err := r.dataKey(ctx, kind, key)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	data, err := r.client.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		r.log.Warn("broken cache entry", slog.String("key", k), sl.Err(err))
		return false, nil
	}

	return true, nil
}

func (r *Redis) Set(ctx context.Context, kind domain.Kind, key string, value any) error {
	op := "cache.Set()"

	k, err := r.dataKey(ctx, kind, key)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := r.client.Set(ctx, k, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Invalidate увеличивает версию раздела; старые ключи доживут до TTL.
func (r *Redis) Invalidate(ctx context.Context, kind domain.Kind) error {
	if err := r.client.Incr(ctx, versionKey(kind)).Err(); err != nil {
		return fmt.Errorf("cache.Invalidate(): %w", err)
	}
	return nil
}

func (r *Redis) Shutdown(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("force exit cache: %w", ctx.Err())
	default:
		return r.client.Close()
	}
}

// Noop: кэш, который ничего не хранит.
type Noop struct{}

func (Noop) Get(context.Context, domain.Kind, string, any) (bool, error) { return false, nil }
func (Noop) Set(context.Context, domain.Kind, string, any) error         { return nil }
func (Noop) Invalidate(context.Context, domain.Kind) error               { return nil }
func (Noop) Shutdown(context.Context) error                              { return nil }
