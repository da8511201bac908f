package handler

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/hitoshi/shikujiri/internal/model"
)

// ReactionLabeler は「フォロー中ユーザーが反応しました」ラベルを生成する。
// 代表として表示するユーザーは反応者の中からランダムに選出する。
// 表示のたびに別のフォロー中ユーザーが見えることを意図した仕様であり、
// ランキング結果には一切影響しない表示層の整形にとどめる。
type ReactionLabeler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewReactionLabeler はReactionLabelerを生成する。
// rngがnilの場合は時刻シードの生成器を使用する。テストで決定的に差し替える。
func NewReactionLabeler(rng *rand.Rand) *ReactionLabeler {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &ReactionLabeler{rng: rng}
}

// Label は反応したフォロー中ユーザーのリストからラベル文字列を生成する。
// 空リストは空文字列になる。
func (l *ReactionLabeler) Label(reacting []model.ReactingFollowing) string {
	if len(reacting) == 0 {
		return ""
	}

	l.mu.Lock()
	representative := reacting[l.rng.Intn(len(reacting))]
	l.mu.Unlock()

	if len(reacting) == 1 {
		return fmt.Sprintf("%sさんが反応しました", representative.Nickname)
	}
	return fmt.Sprintf("%sさんほか%d人が反応しました", representative.Nickname, len(reacting)-1)
}
