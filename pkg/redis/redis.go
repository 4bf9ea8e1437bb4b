package redis

import (
	"FaceGate/internal/entity"
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	sessionKeyPrefix  = "facegate:session:"
	DefaultSessionTTL = 10 * time.Minute
)

var ErrSessionNotFound = errors.New("session state not found")

// IRedis mirrors per-session cadence state so other instances and operators can
// observe it. The in-memory registry stays authoritative.
type IRedis interface {
	SaveSession(ctx context.Context, state entity.SessionState) error
	GetSession(ctx context.Context, id string) (entity.SessionState, error)
	DeleteSession(ctx context.Context, id string) error
	Close() error
}

type Config struct {
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

type redisClient struct {
	client *redis.Client
	ttl    time.Duration
	log    *logrus.Logger
}

func New(cfg Config, log *logrus.Logger) IRedis {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultSessionTTL
	}

	log.Info(fmt.Sprintf("Connecting to Redis at %s...", cfg.Address))

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Error(fmt.Sprintf("Failed to connect to Redis: %v", err))
	} else {
		log.Info("Successfully connected to Redis")
	}

	return &redisClient{client: client, ttl: cfg.TTL, log: log}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func (r *redisClient) SaveSession(ctx context.Context, state entity.SessionState) error {
	key := sessionKey(state.ID)
	r.log.Debug(fmt.Sprintf("Saving session state for key %s", key))

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, map[string]interface{}{
			"id":                  state.ID,
			"generation":          strconv.FormatUint(state.Generation, 10),
			"last_detection_ms":   strconv.FormatInt(state.LastDetectionMs, 10),
			"last_face_direction": string(state.LastFaceDirection),
			"status":              string(state.Status),
		})
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		r.log.Error(fmt.Sprintf("Error saving session state for key %s: %v", key, err))
		return err
	}

	return nil
}

func (r *redisClient) GetSession(ctx context.Context, id string) (entity.SessionState, error) {
	key := sessionKey(id)
	r.log.Debug(fmt.Sprintf("Getting session state for key %s", key))

	cmd := r.client.HGetAll(ctx, key)
	values, err := cmd.Result()
	if err != nil {
		r.log.Error(fmt.Sprintf("Error getting session state for key %s: %v", key, err))
		return entity.SessionState{}, err
	}
	if len(values) == 0 {
		return entity.SessionState{}, ErrSessionNotFound
	}

	var state entity.SessionState
	if err := cmd.Scan(&state); err != nil {
		return entity.SessionState{}, fmt.Errorf("failed to scan session state: %w", err)
	}

	return state, nil
}

func (r *redisClient) DeleteSession(ctx context.Context, id string) error {
	key := sessionKey(id)
	r.log.Debug(fmt.Sprintf("Deleting session state for key %s", key))

	result, err := r.client.Del(ctx, key).Result()
	if err != nil {
		r.log.Error(fmt.Sprintf("Error deleting session state for key %s: %v", key, err))
		return err
	}

	if result == 0 {
		r.log.Debug(fmt.Sprintf("Session key %s not found for deletion", key))
	}

	return nil
}

func (r *redisClient) Close() error {
	return r.client.Close()
}
