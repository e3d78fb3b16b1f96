// Package control is the per-application configuration store. It is a
// collaborator of the pipeline, not part of it: operators edit filter and
// appender preferences per application id, producers consult them. The
// delivery core never reads this store.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	"github.com/tidwall/gjson"

	"centrallog/pkg/config"
)

// maxUpdateRetries bounds optimistic-transaction retries under contention.
const maxUpdateRetries = 5

// ErrContention is returned when an update loses the optimistic transaction
// race too many times in a row.
var ErrContention = errors.New("control: update contention")

// AppConfig is one application's logging preferences.
type AppConfig struct {
	Filters   []string `json:"filters"`
	Appenders []string `json:"appenders"`
}

// Store keeps every application's config in a single JSON document under one
// Redis key. Concurrent updates are serialized with an optimistic WATCH
// transaction; a pubsub channel announces changes.
type Store struct {
	rdb     *redis.Client
	key     string
	channel string
}

// NewStore connects to Redis with the given settings.
func NewStore(cfg config.RedisConfig) *Store {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Store{
		rdb:     rdb,
		key:     cfg.ConfigKey,
		channel: cfg.Channel,
	}
}

// Get returns the stored preferences for an application. ok is false when
// the application has no entry yet.
func (s *Store) Get(ctx context.Context, appID int) (AppConfig, bool, error) {
	doc, err := s.rdb.Get(ctx, s.key).Result()
	if err == redis.Nil {
		return AppConfig{}, false, nil
	}
	if err != nil {
		return AppConfig{}, false, fmt.Errorf("control: fetch config: %w", err)
	}

	cfg, ok := appFromDocument(doc, appID)
	return cfg, ok, nil
}

// Update replaces an application's entry, leaving all others untouched, and
// publishes a change signal. Readers and writers of the same document are
// mutually excluded by the WATCH transaction: a concurrent change restarts
// the update.
func (s *Store) Update(ctx context.Context, appID int, cfg AppConfig) error {
	txf := func(tx *redis.Tx) error {
		doc, err := tx.Get(ctx, s.key).Result()
		if err != nil && err != redis.Nil {
			return err
		}

		updated, err := upsertApp(doc, appID, cfg)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key, updated, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.rdb.Watch(ctx, txf, s.key)
		if err == nil {
			if perr := s.rdb.Publish(ctx, s.channel, appKey(appID)).Err(); perr != nil {
				log.Printf("[control] publish update signal: %v", perr)
			}
			return nil
		}
		if err == redis.TxFailedErr {
			continue
		}
		return fmt.Errorf("control: update config: %w", err)
	}
	return ErrContention
}

// Watch subscribes to change signals and delivers the updated application
// keys until ctx is cancelled.
func (s *Store) Watch(ctx context.Context) <-chan string {
	out := make(chan string)
	pubsub := s.rdb.Subscribe(ctx, s.channel)
	ch := pubsub.Channel()

	go func() {
		defer pubsub.Close()
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Close releases the Redis connection.
func (s *Store) Close() error {
	return s.rdb.Close()
}

func appKey(appID int) string {
	return fmt.Sprintf("app_%d", appID)
}

// appFromDocument extracts one application's entry from the JSON document.
func appFromDocument(doc string, appID int) (AppConfig, bool) {
	entry := gjson.Get(doc, appKey(appID))
	if !entry.Exists() {
		return AppConfig{}, false
	}

	var cfg AppConfig
	for _, f := range entry.Get("filters").Array() {
		cfg.Filters = append(cfg.Filters, f.String())
	}
	for _, a := range entry.Get("appenders").Array() {
		cfg.Appenders = append(cfg.Appenders, a.String())
	}
	return cfg, true
}

// upsertApp replaces one application's entry in the document, preserving the
// rest. An empty or missing document starts fresh.
func upsertApp(doc string, appID int, cfg AppConfig) (string, error) {
	apps := map[string]AppConfig{}
	if doc != "" {
		if err := json.Unmarshal([]byte(doc), &apps); err != nil {
			return "", fmt.Errorf("corrupt config document: %w", err)
		}
	}

	apps[appKey(appID)] = cfg

	out, err := json.Marshal(apps)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
