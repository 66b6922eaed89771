package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrTokenNotFound    = errors.New("token not found")
	ErrRedisUnavailable = errors.New("redis unavailable")
	ErrExtendFailed     = errors.New("token extend failed")
	ErrTokenDeleted     = errors.New("token delete failed")
)

const (
	UserTokenPrefix   = "login:user:token"
	UserTokenExpire   = 30 * time.Minute
	UserRefreshPrefix = "login:user:refresh"
	UserRefreshExpire = 24 * time.Hour
)

// TokenRepository 每个用户只保留最近一次登录签发的 access token 和 refresh token 的 jti
type TokenRepository struct {
	RDB *redis.Client
}

func (r *TokenRepository) key(uid string) string {
	return fmt.Sprintf("%s:%s", UserTokenPrefix, uid)
}

func (r *TokenRepository) refreshKey(uid string) string {
	return fmt.Sprintf("%s:%s", UserRefreshPrefix, uid)
}

func (r *TokenRepository) AddUserToken(ctx context.Context, uid, token string) error {
	if err := r.RDB.Set(ctx, r.key(uid), token, UserTokenExpire).Err(); err != nil {
		return ErrRedisUnavailable
	}
	return nil
}

func (r *TokenRepository) GetUserToken(ctx context.Context, uid string) (string, error) {
	token, err := r.RDB.Get(ctx, r.key(uid)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", ErrRedisUnavailable
	}
	return token, nil
}

func (r *TokenRepository) ExtendUserToken(ctx context.Context, uid string) error {
	if err := r.RDB.Expire(ctx, r.key(uid), UserTokenExpire).Err(); err != nil {
		return ErrExtendFailed
	}
	return nil
}

// AddRefreshToken 登记当前有效的 refresh token，旧的随之作废
func (r *TokenRepository) AddRefreshToken(ctx context.Context, uid, jti string) error {
	if err := r.RDB.Set(ctx, r.refreshKey(uid), jti, UserRefreshExpire).Err(); err != nil {
		return ErrRedisUnavailable
	}
	return nil
}

func (r *TokenRepository) GetRefreshToken(ctx context.Context, uid string) (string, error) {
	jti, err := r.RDB.Get(ctx, r.refreshKey(uid)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", ErrRedisUnavailable
	}
	return jti, nil
}

// DeleteUserToken 退出登录：access 和 refresh 一起删除
func (r *TokenRepository) DeleteUserToken(ctx context.Context, uid string) error {
	if err := r.RDB.Del(ctx, r.key(uid), r.refreshKey(uid)).Err(); err != nil {
		return ErrTokenDeleted
	}
	return nil
}
