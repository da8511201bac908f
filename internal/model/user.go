// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
type User struct {
	ID        string
	Nickname  string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Session はユーザーのログインセッションを表す。
// セッションIDはブラウジングセッションのスコープを兼ね、
// フィードのティア表示済みフラグもこのIDに紐づく。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Follow はフォロー関係の有向エッジを表す。ペイロードは持たない。
// フォロー機能が所有し、フィードエンジンは読み取りのみ行う。
type Follow struct {
	FollowerID string
	FolloweeID string
	CreatedAt  time.Time
}

// Reaction は投稿への「いいね」イベントを表す。
// フィードエンジンは「フォロー中ユーザーがいいねしたか」の判定にのみ使用する。
type Reaction struct {
	PostID    string
	UserID    string
	CreatedAt time.Time
}
