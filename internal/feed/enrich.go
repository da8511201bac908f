package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/hitoshi/shikujiri/internal/metrics"
	"github.com/hitoshi/shikujiri/internal/model"
	"github.com/hitoshi/shikujiri/internal/repository"
)

// maxInterestTags は1ユーザーが持てる興味タグの上限。超過分は無視する。
const maxInterestTags = 5

// Enrichment は1バッチ分のエンリッチメント結果。
// ランキングに必要な集合と、バッジ付与済みの投稿ビューを持つ。
type Enrichment struct {
	Posts          []model.EnrichedPost
	FollowingIDs   map[string]struct{}
	FriendLikedIDs map[string]struct{}
	InterestTags   []string
}

// Enricher は投稿バッチにソーシャルグラフ情報を付与するサービス。
// 各ルックアップの失敗は空値への縮退として扱い、フィード自体は失敗させない。
type Enricher struct {
	follows   repository.FollowRepository
	reactions repository.ReactionRepository
	users     repository.UserRepository
	interests repository.InterestRepository
	logger    *slog.Logger
	metrics   metrics.FeedMetricsRecorder
}

// NewEnricher はEnricherの新しいインスタンスを生成する。
func NewEnricher(
	follows repository.FollowRepository,
	reactions repository.ReactionRepository,
	users repository.UserRepository,
	interests repository.InterestRepository,
	logger *slog.Logger,
	recorder metrics.FeedMetricsRecorder,
) *Enricher {
	return &Enricher{
		follows:   follows,
		reactions: reactions,
		users:     users,
		interests: interests,
		logger:    logger,
		metrics:   recorder,
	}
}

// Enrich は投稿バッチに閲覧者のソーシャルグラフ情報を付与する。
// バッチが空、または匿名閲覧者（viewerIDが空）の場合は
// ルックアップを一切発行せず、投稿をそのまま返す。
//
// フォロー集合・フォロー中ユーザーのいいね・興味タグの3ルックアップは
// 相互にデータ依存がないため並行に発行し、レイテンシを最遅の1件に抑える。
// ニックネーム解決のみ、いいね結果に入力集合が依存するため直列に続く。
// 解決するのはこのバッチで実際に反応したフォロー中ユーザーのIDに限る。
func (e *Enricher) Enrich(ctx context.Context, viewerID string, posts []model.Post) Enrichment {
	enr := Enrichment{
		Posts:          asEnriched(posts),
		FollowingIDs:   map[string]struct{}{},
		FriendLikedIDs: map[string]struct{}{},
	}
	if viewerID == "" || len(posts) == 0 {
		return enr
	}

	postIDs := make([]string, len(posts))
	for i, p := range posts {
		postIDs[i] = p.ID
	}

	var (
		followees []string
		followErr error

		likes    map[string][]string
		likesErr error

		nicknames map[string]string
		nickErr   error

		rawTags string
		tagsErr error
	)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		followees, followErr = e.follows.ListFolloweeIDs(ctx, viewerID)
	}()
	go func() {
		defer wg.Done()
		likes, likesErr = e.reactions.ListFolloweeLikes(ctx, viewerID, postIDs)
		if likesErr != nil {
			return
		}
		likerIDs := distinctLikerIDs(likes)
		if len(likerIDs) == 0 {
			return
		}
		nicknames, nickErr = e.users.FindNicknames(ctx, likerIDs)
	}()
	go func() {
		defer wg.Done()
		rawTags, tagsErr = e.interests.FindTagsRaw(ctx, viewerID)
	}()
	wg.Wait()

	if followErr != nil {
		e.degrade("following", viewerID, followErr)
	} else {
		for _, id := range followees {
			if id == viewerID {
				continue // 自己エッジは防御的に無視
			}
			enr.FollowingIDs[id] = struct{}{}
		}
	}

	if likesErr != nil {
		e.degrade("friend_likes", viewerID, likesErr)
		likes = nil
	}
	if nickErr != nil {
		// ニックネーム解決の失敗はバッジ付与を妨げない
		e.degrade("nicknames", viewerID, nickErr)
		nicknames = nil
	}

	if tagsErr != nil {
		e.degrade("interest_tags", viewerID, tagsErr)
	} else {
		enr.InterestTags = ParseInterestTags(rawTags)
	}

	for i := range enr.Posts {
		likers := likes[enr.Posts[i].ID]
		if len(likers) == 0 {
			continue
		}
		enr.FriendLikedIDs[enr.Posts[i].ID] = struct{}{}
		enr.Posts[i].Badge = model.FeedBadgeFriendLike
		for _, uid := range likers {
			if nick, ok := nicknames[uid]; ok {
				enr.Posts[i].ReactingFollowings = append(enr.Posts[i].ReactingFollowings,
					model.ReactingFollowing{UserID: uid, Nickname: nick})
			}
		}
	}

	return enr
}

// degrade はルックアップの縮退を記録する。
func (e *Enricher) degrade(lookup, viewerID string, err error) {
	e.logger.Warn("enrichment lookup degraded to empty value",
		slog.String("lookup", lookup),
		slog.String("viewer_id", viewerID),
		slog.String("error", err.Error()),
	)
	e.metrics.RecordEnrichmentDegraded(lookup)
}

// distinctLikerIDs はいいねマップに登場するユーザーIDの重複を除いた一覧を返す。
// 返却順はテストの再現性のため決定的にする。
func distinctLikerIDs(likes map[string][]string) []string {
	seen := map[string]struct{}{}
	var ids []string
	for _, likers := range likes {
		for _, id := range likers {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// asEnriched は投稿をバッジなしのEnrichedPostに変換する。
func asEnriched(posts []model.Post) []model.EnrichedPost {
	enriched := make([]model.EnrichedPost, len(posts))
	for i, p := range posts {
		enriched[i] = model.EnrichedPost{Post: p}
	}
	return enriched
}

// ParseInterestTags は保存形式の揺れを許容して興味タグ文字列を解釈する。
// JSON配列（`["a","b"]`）とカンマ区切り（`a,b`）の両形式を受け付け、
// パース不能な値は空集合へ縮退する（エラーにはしない）。
// 空要素は除去し、タグ数はmaxInterestTagsに切り詰める。
func ParseInterestTags(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var tags []string
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &tags); err != nil {
			return nil
		}
	} else {
		tags = strings.Split(raw, ",")
	}

	var cleaned []string
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		cleaned = append(cleaned, tag)
		if len(cleaned) == maxInterestTags {
			break
		}
	}
	return cleaned
}
