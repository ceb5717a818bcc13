// basecampy | 2026
// denylist.go

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const denylistKeyPrefix = "denylist:access:"

// Denylist revokes still-valid access tokens at logout. Entries carry the
// token's remaining lifetime as TTL, so the set never grows past the
// population of live tokens.
type Denylist struct {
	client *redis.Client
}

func NewDenylist(client *redis.Client) *Denylist {
	return &Denylist{client: client}
}

func (d *Denylist) RevokeAccessToken(
	ctx context.Context,
	jti string,
	expiresAt time.Time,
) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	key := denylistKeyPrefix + jti
	if err := d.client.Set(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("denylist access token: %w", err)
	}

	return nil
}

func (d *Denylist) IsAccessTokenRevoked(
	ctx context.Context,
	jti string,
) (bool, error) {
	exists, err := d.client.Exists(ctx, denylistKeyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("check denylist: %w", err)
	}

	return exists > 0, nil
}
