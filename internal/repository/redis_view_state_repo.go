package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// viewStateKeyPrefix はティア表示済みフラグのRedisキー接頭辞。
const viewStateKeyPrefix = "feed:tiered_served:"

// RedisViewStateRepo はRedisを使用した表示済みフラグリポジトリ。
// キーにはセッション生存期間と同じTTLを設定し、
// 「セッションの間は生き、新しいセッションでは消えている」契約を満たす。
type RedisViewStateRepo struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisViewStateRepo はRedisViewStateRepoを生成する。
// ttlにはセッションの最大生存期間を指定する。
func NewRedisViewStateRepo(client *redis.Client, ttl time.Duration) *RedisViewStateRepo {
	return &RedisViewStateRepo{client: client, ttl: ttl}
}

// ConsumeUnseen はセッションが未表示状態だったかを返し、
// 同時にアトミックに表示済みへ遷移させる。
// SETNXの単一コマンドで判定と遷移を行うため、
// 競合するページ0読み込みのうちtrueを観測するのは高々1つ。
func (r *RedisViewStateRepo) ConsumeUnseen(ctx context.Context, sessionID string) (bool, error) {
	wasUnseen, err := r.client.SetNX(ctx, viewStateKeyPrefix+sessionID, "1", r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("表示済みフラグの更新に失敗しました: %w", err)
	}
	return wasUnseen, nil
}

// compile-time interface check
var _ ViewStateRepository = (*RedisViewStateRepo)(nil)
