package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"studio_site/internal/storage"

	"github.com/redis/go-redis/v9"
)

// Key types as reported by TYPE.
const (
	TypeNone   = "none"
	TypeString = "string"
	TypeJSON   = "ReJSON-RL"
	TypeHash   = "hash"
)

// hashDataField holds the whole document when a hash stores it in one field.
const hashDataField = "data"

const maxWatchRetries = 5

var ErrConcurrentUpdate = errors.New("key kept changing during save")

type Config struct {
	Addr     string
	DB       int
	Password string
	Key      string
}

// DocumentStore keeps the site document under a single key. The key may be a
// plain string, a RedisJSON document or a hash; reads and writes keep
// whichever type is already there.
type DocumentStore struct {
	rdb *redis.Client
	key string
	log *slog.Logger
}

func New(cfg Config, log *slog.Logger) *DocumentStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		DB:       cfg.DB,
		Password: cfg.Password,
	})
	return NewWithClient(rdb, cfg.Key, log)
}

func NewWithClient(rdb *redis.Client, key string, log *slog.Logger) *DocumentStore {
	return &DocumentStore{rdb: rdb, key: key, log: log}
}

func (s *DocumentStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *DocumentStore) Close() error {
	return s.rdb.Close()
}

func (s *DocumentStore) Type(ctx context.Context) (string, error) {
	const op = "storage.redis.Type"

	t, err := s.rdb.Type(ctx, s.key).Result()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

// Load returns the document as raw JSON.
func (s *DocumentStore) Load(ctx context.Context) ([]byte, error) {
	const op = "storage.redis.Load"

	t, err := s.Type(ctx)
	if err != nil {
		return nil, err
	}

	s.log.Debug("loading document", slog.String("key", s.key), slog.String("type", t))

	switch t {
	case TypeNone:
		return nil, fmt.Errorf("%s: %s: %w", op, s.key, storage.ErrNotFound)

	case TypeString:
		b, err := s.rdb.Get(ctx, s.key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s: %s: %w", op, s.key, storage.ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return b, nil

	case TypeJSON:
		txt, err := s.rdb.Do(ctx, "JSON.GET", s.key).Text()
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s: %s: %w", op, s.key, storage.ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return []byte(txt), nil

	case TypeHash:
		fields, err := s.rdb.HGetAll(ctx, s.key).Result()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		b, err := hashToJSON(fields)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return b, nil

	default:
		return nil, fmt.Errorf("%s: %s is %q: %w", op, s.key, t, storage.ErrUnsupportedType)
	}
}

// Save replaces the document. data must be a JSON object.
func (s *DocumentStore) Save(ctx context.Context, data []byte) error {
	const op = "storage.redis.Save"

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%s: %w: %v", op, storage.ErrInvalidDocument, err)
	}
	if fields == nil {
		return fmt.Errorf("%s: %w: null body", op, storage.ErrInvalidDocument)
	}

	t, err := s.Type(ctx)
	if err != nil {
		return err
	}

	s.log.Debug("saving document",
		slog.String("key", s.key),
		slog.String("type", t),
		slog.Int("bytes", len(data)))

	switch t {
	case TypeNone, TypeString:
		err = s.rdb.Set(ctx, s.key, data, 0).Err()

	case TypeJSON:
		err = s.rdb.Do(ctx, "JSON.SET", s.key, "$", string(data)).Err()

	case TypeHash:
		err = s.saveHash(ctx, data, fields)

	default:
		return fmt.Errorf("%s: %s is %q: %w", op, s.key, t, storage.ErrUnsupportedType)
	}

	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// saveHash rewrites the hash in the shape it already has. The shape check and
// the rewrite run under WATCH; a concurrent change retries.
func (s *DocumentStore) saveHash(ctx context.Context, data []byte, fields map[string]json.RawMessage) error {
	write := func(tx *redis.Tx) error {
		t, err := tx.Type(ctx, s.key).Result()
		if err != nil {
			return err
		}
		if t != TypeHash && t != TypeNone {
			return fmt.Errorf("%s is %q: %w", s.key, t, storage.ErrUnsupportedType)
		}

		single, err := tx.HExists(ctx, s.key, hashDataField).Result()
		if err != nil {
			return err
		}

		values := make(map[string]interface{}, len(fields))
		if single {
			values[hashDataField] = string(data)
		} else {
			for k, v := range fields {
				values[k] = string(v)
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, s.key)
			if len(values) > 0 {
				pipe.HSet(ctx, s.key, values)
			}
			return nil
		})
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := s.rdb.Watch(ctx, write, s.key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		s.log.Debug("hash changed during save, retrying", slog.String("key", s.key), slog.Int("attempt", i+1))
	}

	return fmt.Errorf("%s: %w", s.key, ErrConcurrentUpdate)
}

// hashToJSON assembles a document from hash fields. A "data" field holding
// the whole document wins; otherwise every field is a top-level category.
// Field values that are not JSON are kept as strings.
func hashToJSON(fields map[string]string) ([]byte, error) {
	if raw, ok := fields[hashDataField]; ok && json.Valid([]byte(raw)) {
		return []byte(raw), nil
	}

	doc := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		if json.Valid([]byte(v)) {
			doc[k] = json.RawMessage(v)
			continue
		}
		quoted, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		doc[k] = quoted
	}

	return json.Marshal(doc)
}
