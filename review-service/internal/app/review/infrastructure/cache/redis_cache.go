package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"jobber/pkg/logger"
	"jobber/pkg/metrics"
	"jobber/review-service/internal/app/review/entity"
	"jobber/review-service/internal/app/review/infrastructure"

	"github.com/redis/go-redis/v9"
)

const (
	serviceName      = "review-service"
	pendingEventsKey = "reviews:events:pending"
	deadEventsKey    = "reviews:events:dead"
	versionPrefix    = "reviews:version:"
	versionTTL       = 24 * time.Hour
)

// errStaleWrite - версия ключа изменилась между чтением из БД и записью в кеш
var errStaleWrite = errors.New("cache key invalidated since read")

// pendingEvent - событие в очереди ожидания, value хранится как есть (JSON)
type pendingEvent struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

type RedisCache struct {
	client *redis.Client
}

// NewRedisCache оборачивает готовый клиент (используется в тестах с miniredis)
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Connect создает клиент и проверяет соединение
func Connect(ctx context.Context, addr, password string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

func (r *RedisCache) GetReviews(ctx context.Context, key string) ([]entity.Review, error) {
	var reviews []entity.Review
	found, err := r.getJSON(ctx, key, &reviews)
	if err != nil || !found {
		return nil, err
	}
	if reviews == nil {
		reviews = make([]entity.Review, 0)
	}
	return reviews, nil
}

func (r *RedisCache) SetReviews(ctx context.Context, key string, reviews []entity.Review, ttl time.Duration, version int64) error {
	if reviews == nil {
		reviews = make([]entity.Review, 0)
	}
	return r.setJSON(ctx, key, reviews, ttl, version)
}

func (r *RedisCache) GetSummary(ctx context.Context, gigID string) (*entity.RatingSummary, error) {
	var summary entity.RatingSummary
	found, err := r.getJSON(ctx, infrastructure.SummaryKey(gigID), &summary)
	if err != nil || !found {
		return nil, err
	}
	return &summary, nil
}

func (r *RedisCache) SetSummary(ctx context.Context, summary *entity.RatingSummary, ttl time.Duration, version int64) error {
	return r.setJSON(ctx, infrastructure.SummaryKey(summary.GigID), summary, ttl, version)
}

// Version возвращает текущую версию ключа, 0 если ключ еще не сбрасывался
func (r *RedisCache) Version(ctx context.Context, key string) (int64, error) {
	timer := metrics.NewRedisTimer(serviceName, metrics.RedisOpGet)
	defer timer.ObserveDuration()

	version, err := r.client.Get(ctx, versionKey(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		metrics.RecordRedisError(serviceName, metrics.RedisOpGet)
		return 0, fmt.Errorf("failed to get version of %s: %w", key, err)
	}
	return version, nil
}

// Invalidate удаляет ключи и увеличивает их версии в одной транзакции
func (r *RedisCache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	timer := metrics.NewRedisTimer(serviceName, metrics.RedisOpDel)
	defer timer.ObserveDuration()

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		for _, key := range keys {
			pipe.Incr(ctx, versionKey(key))
			pipe.Expire(ctx, versionKey(key), versionTTL)
		}
		return nil
	})
	if err != nil {
		metrics.RecordRedisError(serviceName, metrics.RedisOpDel)
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	return nil
}

// PushPendingEvent добавляет событие в конец очереди (LPUSH + RPOP = FIFO)
func (r *RedisCache) PushPendingEvent(ctx context.Context, key string, value []byte) error {
	return r.pushPending(ctx, metrics.RedisOpLPush, key, value)
}

// RequeuePendingEvent возвращает событие туда, откуда его забирает RPOP
func (r *RedisCache) RequeuePendingEvent(ctx context.Context, key string, value []byte) error {
	return r.pushPending(ctx, metrics.RedisOpRPush, key, value)
}

// PopPendingEvent извлекает самое старое событие
// Поврежденные записи переносятся в reviews:events:dead и пропускаются
func (r *RedisCache) PopPendingEvent(ctx context.Context) (string, []byte, error) {
	for {
		data, err := r.popPending(ctx)
		if err != nil {
			return "", nil, err
		}

		var event pendingEvent
		if err := json.Unmarshal(data, &event); err != nil {
			r.deadLetter(ctx, data, err)
			continue
		}

		return event.Key, event.Value, nil
	}
}

func (r *RedisCache) pushPending(ctx context.Context, op metrics.RedisOperation, key string, value []byte) error {
	timer := metrics.NewRedisTimer(serviceName, op)
	defer timer.ObserveDuration()

	data, err := json.Marshal(pendingEvent{Key: key, Value: value})
	if err != nil {
		return fmt.Errorf("failed to marshal pending event: %w", err)
	}

	if op == metrics.RedisOpRPush {
		err = r.client.RPush(ctx, pendingEventsKey, data).Err()
	} else {
		err = r.client.LPush(ctx, pendingEventsKey, data).Err()
	}
	if err != nil {
		metrics.RecordRedisError(serviceName, op)
		return fmt.Errorf("failed to push pending event: %w", err)
	}
	return nil
}

func (r *RedisCache) popPending(ctx context.Context) ([]byte, error) {
	timer := metrics.NewRedisTimer(serviceName, metrics.RedisOpRPop)
	defer timer.ObserveDuration()

	data, err := r.client.RPop(ctx, pendingEventsKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, infrastructure.ErrNoPendingEvents
		}
		metrics.RecordRedisError(serviceName, metrics.RedisOpRPop)
		return nil, fmt.Errorf("failed to pop pending event: %w", err)
	}
	return data, nil
}

func (r *RedisCache) deadLetter(ctx context.Context, data []byte, cause error) {
	if err := r.client.LPush(ctx, deadEventsKey, data).Err(); err != nil {
		metrics.RecordRedisError(serviceName, metrics.RedisOpLPush)
		logger.Error().Err(err).Str("entry", string(data)).Msg("Malformed pending review event dropped")
		return
	}
	logger.Warn().Err(cause).Str("dead_list", deadEventsKey).Msg("Malformed pending review event moved to dead list")
}

func (r *RedisCache) Client() *redis.Client {
	return r.client
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

func (r *RedisCache) getJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	timer := metrics.NewRedisTimer(serviceName, metrics.RedisOpGet)
	defer timer.ObserveDuration()

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.RecordCacheMiss(serviceName, infrastructure.KeyKind(key))
			return false, nil
		}
		metrics.RecordRedisError(serviceName, metrics.RedisOpGet)
		return false, fmt.Errorf("failed to get %s from cache: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}

	metrics.RecordCacheHit(serviceName, infrastructure.KeyKind(key))
	return true, nil
}

// setJSON пишет значение, только если версия ключа не изменилась с момента чтения из БД
// Иначе запись пропускается: значение могло устареть
func (r *RedisCache) setJSON(ctx context.Context, key string, value interface{}, ttl time.Duration, version int64) error {
	timer := metrics.NewRedisTimer(serviceName, metrics.RedisOpSet)
	defer timer.ObserveDuration()

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, versionKey(key)).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return errStaleWrite
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, ttl)
			return nil
		})
		return err
	}, versionKey(key))

	if errors.Is(err, errStaleWrite) || errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	if err != nil {
		metrics.RecordRedisError(serviceName, metrics.RedisOpSet)
		return fmt.Errorf("failed to set %s in cache: %w", key, err)
	}
	return nil
}

// versionKey хранит версии отдельно от данных, чтобы id из URL не пересекались с ними
func versionKey(key string) string {
	return versionPrefix + key
}
