package host

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// Redis is a go-redis-backed Host, generalizing
// luvjson/crdtstorage/redis_adapter.go's keyPrefix + *redis.Client shape:
// the document blob, bytes-map fields, and structured-json value each
// get their own key under keyPrefix, and a parallel hash tracks each
// key's registered KeyType since Redis itself has no typed-key concept.
type Redis struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedis(client *redis.Client, keyPrefix string) *Redis {
	return &Redis{client: client, keyPrefix: keyPrefix}
}

func (r *Redis) docKey(key string) string   { return fmt.Sprintf("%s:doc:%s", r.keyPrefix, key) }
func (r *Redis) mapKey(key string) string   { return fmt.Sprintf("%s:map:%s", r.keyPrefix, key) }
func (r *Redis) jsonKey(key string) string  { return fmt.Sprintf("%s:json:%s", r.keyPrefix, key) }
func (r *Redis) kindsKey() string           { return fmt.Sprintf("%s:kinds", r.keyPrefix) }

func (r *Redis) RegisterKey(ctx context.Context, key string, kind KeyType) error {
	if err := r.client.HSet(ctx, r.kindsKey(), key, string(kind)).Err(); err != nil {
		return fmt.Errorf("host: register key %q: %w", key, err)
	}
	return nil
}

func (r *Redis) KeyType(ctx context.Context, key string) (KeyType, bool) {
	v, err := r.client.HGet(ctx, r.kindsKey(), key).Result()
	if err != nil {
		return "", false
	}
	return KeyType(v), true
}

// Keys lists the registered keys with the given prefix by scanning the
// kinds hash, which holds every key this Host has ever registered.
func (r *Redis) Keys(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	iter := r.client.HScan(ctx, r.kindsKey(), 0, prefix+"*", 0).Iterator()
	isField := true
	for iter.Next(ctx) {
		if isField {
			out = append(out, iter.Val())
		}
		isField = !isField
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("host: list keys %q: %w", prefix, err)
	}
	return out, nil
}

func (r *Redis) DeleteKey(ctx context.Context, key string) (bool, error) {
	n, err := r.client.HDel(ctx, r.kindsKey(), key).Result()
	if err != nil {
		return false, fmt.Errorf("host: delete key %q: %w", key, err)
	}
	if err := r.client.Del(ctx, r.docKey(key), r.mapKey(key), r.jsonKey(key)).Err(); err != nil {
		return false, fmt.Errorf("host: delete key %q payload: %w", key, err)
	}
	return n > 0, nil
}

func (r *Redis) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, r.docKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("host: get bytes %q: %w", key, err)
	}
	return data, true, nil
}

func (r *Redis) PutBytes(ctx context.Context, key string, data []byte) error {
	if err := r.client.Set(ctx, r.docKey(key), data, 0).Err(); err != nil {
		return fmt.Errorf("host: put bytes %q: %w", key, err)
	}
	return nil
}

func (r *Redis) GetBytesMap(ctx context.Context, key string) (map[string]string, bool, error) {
	fields, err := r.client.HGetAll(ctx, r.mapKey(key)).Result()
	if err != nil {
		return nil, false, fmt.Errorf("host: get bytes-map %q: %w", key, err)
	}
	if len(fields) == 0 {
		return nil, false, nil
	}
	return fields, true, nil
}

func (r *Redis) PutBytesMap(ctx context.Context, key string, fields map[string]string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.mapKey(key))
	if len(fields) > 0 {
		values := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			values[k] = v
		}
		pipe.HSet(ctx, r.mapKey(key), values)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("host: put bytes-map %q: %w", key, err)
	}
	return nil
}

func (r *Redis) GetStructuredJSON(ctx context.Context, key string) (any, bool, error) {
	data, err := r.client.Get(ctx, r.jsonKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("host: get structured-json %q: %w", key, err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, false, fmt.Errorf("host: decode structured-json %q: %w", key, err)
	}
	return v, true, nil
}

func (r *Redis) PutStructuredJSON(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("host: encode structured-json %q: %w", key, err)
	}
	if err := r.client.Set(ctx, r.jsonKey(key), data, 0).Err(); err != nil {
		return fmt.Errorf("host: put structured-json %q: %w", key, err)
	}
	return nil
}

// AppendLog pushes onto a per-prefix Redis list standing in for the
// host's append-only replay log — real log-file framing is outside this
// module's scope (spec.md §1).
func (r *Redis) AppendLog(ctx context.Context, name string, args ...string) error {
	rec, err := json.Marshal(LoggedCommand{Name: name, Args: args})
	if err != nil {
		return fmt.Errorf("host: encode log record: %w", err)
	}
	if err := r.client.RPush(ctx, fmt.Sprintf("%s:log", r.keyPrefix), rec).Err(); err != nil {
		return fmt.Errorf("host: append log: %w", err)
	}
	return nil
}

func (r *Redis) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := r.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("host: publish %q: %w", channel, err)
	}
	return nil
}

func (r *Redis) NotifyKeyspaceEvent(ctx context.Context, key, event string) error {
	channel := fmt.Sprintf("__keyspace@0__:%s", key)
	if err := r.client.Publish(ctx, channel, event).Err(); err != nil {
		return fmt.Errorf("host: notify keyspace event %q on %q: %w", event, key, err)
	}
	return nil
}

var _ Host = (*Redis)(nil)
