// Package feed はパーソナライズドフィードの合成エンジンを提供する。
// 投稿ストアのページ取得、ソーシャルグラフによるエンリッチメント、
// ティアランキング/シャッフルの順序付け、セッションゲート、
// 無限スクロール用のページネーションを含む。
package feed

import (
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/hitoshi/shikujiri/internal/model"
)

// ティアは1回のセッションの最初のフィード表示にのみ適用される優先度バケット。
const (
	tierFollowedFresh = 1 // フォロー中の著者かつ鮮度ウィンドウ内
	tierRelevant      = 2 // フォロー中ユーザーのいいね、または興味タグ一致
	tierRest          = 3 // それ以外
)

// RankPriority はエンリッチ済みバッチをティアランキングで並べ替えた新しいスライスを返す。
// 入力は変更しない副作用なしの純関数。
//
//	ティア1: フォロー中の著者の投稿で、now - created_at < freshWindow のもの
//	ティア2: ティア1以外で、フォロー中ユーザーがいいねした、
//	        または閲覧者の興味タグがタイトル+本文に部分一致するもの
//	ティア3: 残り
//
// ティアは排他的にバッチを分割し、1-2-3の順に連結される。
// 各ティア内はcreated_at降順、同時刻はid降順の安定順序。
func RankPriority(
	posts []model.EnrichedPost,
	now time.Time,
	freshWindow time.Duration,
	followingIDs map[string]struct{},
	friendLikedIDs map[string]struct{},
	interestTags []string,
) []model.EnrichedPost {
	// ティアは投稿と対で持ち運ぶ。並び替え対象と分離した配列に持つと
	// ソート中の入れ替えでインデックスがずれる。
	entries := make([]tieredPost, len(posts))
	for i, p := range posts {
		entries[i] = tieredPost{
			post: p,
			tier: classifyTier(p, now, freshWindow, followingIDs, friendLikedIDs, interestTags),
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].tier != entries[j].tier {
			return entries[i].tier < entries[j].tier
		}
		if !entries[i].post.CreatedAt.Equal(entries[j].post.CreatedAt) {
			return entries[i].post.CreatedAt.After(entries[j].post.CreatedAt)
		}
		return entries[i].post.ID > entries[j].post.ID
	})

	ranked := make([]model.EnrichedPost, len(entries))
	for i, e := range entries {
		ranked[i] = e.post
	}
	return ranked
}

// tieredPost はランキング中に投稿とその分類ティアを対で保持する。
type tieredPost struct {
	post model.EnrichedPost
	tier int
}

// classifyTier は投稿を3つのティアのいずれかに分類する。
// ティア1該当の投稿はティア2の判定対象にならない（排他的分割）。
func classifyTier(
	p model.EnrichedPost,
	now time.Time,
	freshWindow time.Duration,
	followingIDs map[string]struct{},
	friendLikedIDs map[string]struct{},
	interestTags []string,
) int {
	if _, followed := followingIDs[p.AuthorID]; followed && now.Sub(p.CreatedAt) < freshWindow {
		return tierFollowedFresh
	}
	if _, liked := friendLikedIDs[p.ID]; liked {
		return tierRelevant
	}
	if matchesAnyTag(p, interestTags) {
		return tierRelevant
	}
	return tierRest
}

// matchesAnyTag はタイトル+本文がいずれかの興味タグを
// 大文字小文字を無視して部分一致で含むかを返す。
func matchesAnyTag(p model.EnrichedPost, tags []string) bool {
	if len(tags) == 0 {
		return false
	}
	text := strings.ToLower(p.Title + " " + p.Content)
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if strings.Contains(text, strings.ToLower(tag)) {
			return true
		}
	}
	return false
}

// RankShuffle はバッチの一様ランダム置換を新しいスライスで返す。
// 入力は変更しない。rand.ShuffleはFisher-Yatesで全順列を等確率に生成する。
// セッションで既にティアランキングを表示済みの場合に使用される。
func RankShuffle(posts []model.EnrichedPost, rng *rand.Rand) []model.EnrichedPost {
	shuffled := make([]model.EnrichedPost, len(posts))
	copy(shuffled, posts)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled
}
