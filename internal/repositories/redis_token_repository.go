package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"ledger_backend/internal/models"
)

const (
	redisUserTokenPrefix  = "jwt:user:"
	redisTokenIndexPrefix = "jwt:token:"
)

// upsertTokenScript replaces the user's record and moves the token index in one step.
// KEYS[1] user key, KEYS[2] new token index key; ARGV[1] record JSON, ARGV[2] user id, ARGV[3] index prefix.
var upsertTokenScript = redis.NewScript(`
local old = redis.call('GET', KEYS[1])
if old then
  local rec = cjson.decode(old)
  if rec.token and (ARGV[3] .. rec.token) ~= KEYS[2] then
    redis.call('DEL', ARGV[3] .. rec.token)
  end
end
redis.call('SET', KEYS[1], ARGV[1])
redis.call('SET', KEYS[2], ARGV[2])
return 1
`)

type redisTokenRepository struct {
	client *redis.Client
}

// NewRedisTokenRepository keeps token records in Redis: one JSON record per user
// plus a token -> user index. Records carry no TTL, matching the SQL table where
// stale rows stay until the next sign-in overwrites them.
func NewRedisTokenRepository(client *redis.Client) TokenRepository {
	return &redisTokenRepository{client: client}
}

// NewRedisClient builds a client from a redis:// URL, or from a plain address when url is empty.
func NewRedisClient(ctx context.Context, url, addr string) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:         addr,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
	if url != "" {
		parsed, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("parsing REDIS_URL: %w", err)
		}
		opts = parsed
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", opts.Addr, err)
	}
	return client, nil
}

func (r *redisTokenRepository) UpsertToken(ctx context.Context, token *models.JWTToken) error {
	userKey := redisUserTokenPrefix + strconv.FormatInt(token.UserID, 10)

	now := token.UpdatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}
	token.UpdatedAt = now
	token.ID = token.UserID

	existing, err := r.load(ctx, userKey)
	switch {
	case err == nil:
		token.CreatedAt = existing.CreatedAt
	case errors.Is(err, ErrNotFound):
		token.CreatedAt = now
	default:
		return err
	}

	payload, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("%w: encoding token record: %v", ErrDatabaseError, err)
	}

	keys := []string{userKey, redisTokenIndexPrefix + token.Token}
	if err := upsertTokenScript.Run(ctx, r.client, keys, payload, token.UserID, redisTokenIndexPrefix).Err(); err != nil {
		return fmt.Errorf("%w: upserting token for user ID %d: %v", ErrDatabaseError, token.UserID, err)
	}
	return nil
}

func (r *redisTokenRepository) FindTokenByValue(ctx context.Context, value string) (*models.JWTToken, error) {
	userID, err := r.client.Get(ctx, redisTokenIndexPrefix+value).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: finding token: %v", ErrDatabaseError, err)
	}

	token, err := r.load(ctx, redisUserTokenPrefix+userID)
	if err != nil {
		return nil, err
	}
	// The index may briefly point at a record that has since been replaced.
	if token.Token != value {
		return nil, ErrNotFound
	}
	return token, nil
}

func (r *redisTokenRepository) load(ctx context.Context, userKey string) (*models.JWTToken, error) {
	raw, err := r.client.Get(ctx, userKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: loading token record: %v", ErrDatabaseError, err)
	}
	token := &models.JWTToken{}
	if err := json.Unmarshal(raw, token); err != nil {
		return nil, fmt.Errorf("%w: decoding token record: %v", ErrDatabaseError, err)
	}
	return token, nil
}
