package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ayush/todo-api/internal/models"
)

// UserBackend is the authoritative user store behind the cache.
type UserBackend interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	SetUserActive(ctx context.Context, username string, active bool) error
	DeleteUser(ctx context.Context, id int64) (int64, error)
}

// CachedUserStore is a read-through Redis cache for username lookups, which
// every authenticated request performs. Misses are never cached, and writes
// that change a user evict it. Redis failures fall back to the backend.
//
// Writes also bump a per-user generation. A fill only lands if the
// generation it read before going to the backend is still current, so a
// lookup racing a deactivation cannot put the stale row back.
type CachedUserStore struct {
	backend UserBackend
	rdb     redis.UniversalClient
	ttl     time.Duration
	logger  *slog.Logger
}

func NewCachedUserStore(backend UserBackend, rdb redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *CachedUserStore {
	return &CachedUserStore{backend: backend, rdb: rdb, ttl: ttl, logger: logger}
}

// cachedUser mirrors models.User including the hash, which User hides from JSON.
type cachedUser struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

func userKey(username string) string { return "user:name:" + username }
func idKey(id int64) string { return "user:id:" + strconv.FormatInt(id, 10) }
func genKey(username string) string { return "user:gen:" + username }

func (c *CachedUserStore) CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error) {
	return c.backend.CreateUser(ctx, username, email, passwordHash)
}

func (c *CachedUserStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	raw, err := c.rdb.Get(ctx, userKey(username)).Bytes()
	switch {
	case err == nil:
		var cu cachedUser
		if jsonErr := json.Unmarshal(raw, &cu); jsonErr == nil {
			return &models.User{
				ID:           cu.ID,
				Username:     cu.Username,
				Email:        cu.Email,
				PasswordHash: cu.PasswordHash,
				IsActive:     cu.IsActive,
				CreatedAt:    cu.CreatedAt.In(models.KST),
			}, nil
		}
		c.logger.WarnContext(ctx, "discarding undecodable cached user", "username", username)
	case !errors.Is(err, redis.Nil):
		c.logger.WarnContext(ctx, "user cache read failed", "error", err)
	}

	gen, err := c.rdb.Get(ctx, genKey(username)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.logger.WarnContext(ctx, "user cache read failed", "error", err)
		return c.backend.GetUserByUsername(ctx, username)
	}

	u, err := c.backend.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	c.store(ctx, u, gen)
	return u, nil
}

func (c *CachedUserStore) SetUserActive(ctx context.Context, username string, active bool) error {
	if err := c.backend.SetUserActive(ctx, username, active); err != nil {
		return err
	}
	c.invalidate(ctx, username)
	return nil
}

func (c *CachedUserStore) DeleteUser(ctx context.Context, id int64) (int64, error) {
	n, err := c.backend.DeleteUser(ctx, id)
	if err != nil {
		return 0, err
	}
	if username, getErr := c.rdb.Get(ctx, idKey(id)).Result(); getErr == nil {
		c.invalidate(ctx, username, idKey(id))
	}
	return n, nil
}

// store caches u unless its generation moved away from gen since the
// backend read.
func (c *CachedUserStore) store(ctx context.Context, u *models.User, gen string) {
	raw, err := json.Marshal(cachedUser{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
	})
	if err != nil {
		return
	}

	gk := genKey(u.Username)
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, gk).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, userKey(u.Username), raw, c.ttl)
			pipe.Set(ctx, idKey(u.ID), u.Username, c.ttl)
			return nil
		})
		return err
	}, gk)
	switch {
	case err == nil:
	case errors.Is(err, errStaleFill), errors.Is(err, redis.TxFailedErr):
		c.logger.DebugContext(ctx, "skipping stale user cache fill", "username", u.Username)
	default:
		c.logger.WarnContext(ctx, "user cache write failed", "error", err)
	}
}

var errStaleFill = errors.New("user changed during cache fill")

// invalidate bumps the user's generation and evicts the cached row along
// with any extra keys.
func (c *CachedUserStore) invalidate(ctx context.Context, username string, extra ...string) {
	gk := genKey(username)
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, gk)
		if c.ttl > 0 {
			pipe.Expire(ctx, gk, c.ttl)
		}
		pipe.Del(ctx, append([]string{userKey(username)}, extra...)...)
		return nil
	})
	if err != nil {
		c.logger.WarnContext(ctx, "user cache evict failed", "error", err)
	}
}
