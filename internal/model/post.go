// Package model はドメインモデルを定義する。
package model

import "time"

// Post は失敗談の投稿を表す。
// 各種カウンタはストア側が管理する結果整合の集計値であり、
// フィードエンジンは読み取り専用で扱う。
type Post struct {
	ID           string
	AuthorID     string
	Title        string
	Content      string // リッチテキストHTML（画像埋め込みあり）
	IsPublic     bool
	ViewCount    int
	LikeCount    int
	CommentCount int
	SaveCount    int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FeedBadge はフィード上で投稿に付与される説明バッジの種別を表す。
type FeedBadge string

const (
	// FeedBadgeNone はバッジなしを表す。
	FeedBadgeNone FeedBadge = ""
	// FeedBadgeFriendLike はフォロー中ユーザーがいいねした投稿を表す。
	FeedBadgeFriendLike FeedBadge = "friend_like"
)

// ReactingFollowing は投稿に反応したフォロー中ユーザーを表す。
// 「〇〇さんが反応しました」ラベルの表示に使用される。
type ReactingFollowing struct {
	UserID   string
	Nickname string
}

// EnrichedPost は投稿にフィード表示用の付加情報を結合した読み取り専用ビュー。
// 永続化されず、1回のフィードレンダリングの間だけ存在する。
type EnrichedPost struct {
	Post
	Badge FeedBadge
	// ReactingFollowings はBadgeがFeedBadgeFriendLikeであり、
	// かつニックネームが1件以上解決できた場合のみ設定される。
	ReactingFollowings []ReactingFollowing
}
