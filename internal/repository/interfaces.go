// Package repository はデータ永続化のインターフェースを定義する。
// フィードエンジンはドメインデータに対して読み取り専用であり、
// 書き込みを行うのはセッションゲートの表示済みフラグのみ。
package repository

import (
	"context"

	"github.com/hitoshi/shikujiri/internal/model"
)

// PostRepository は投稿ストアの読み取りインターフェース。
type PostRepository interface {
	// ListPublicPage は公開投稿をcreated_at降順（同時刻はid降順）でページ取得する。
	// viewerIDが空でない場合、そのユーザー自身の投稿を除外する。
	// pageは0始まり。返却件数がpageSize未満なら以降のページは存在しない。
	ListPublicPage(ctx context.Context, viewerID string, page, pageSize int) ([]model.Post, error)
}

// FollowRepository はフォローエッジの読み取りインターフェース。
type FollowRepository interface {
	// ListFolloweeIDs は指定ユーザーがフォローしている全ユーザーIDを返す。
	// 自己エッジは返さない。
	ListFolloweeIDs(ctx context.Context, followerID string) ([]string, error)
}

// ReactionRepository はいいねイベントの読み取りインターフェース。
type ReactionRepository interface {
	// ListFolloweeLikes は指定投稿バッチのうち、viewerがフォローしている
	// ユーザーがいいねしたものを、投稿ID→いいねしたフォロー中ユーザーID群の
	// マップで返す。フォロー集合の解決はストア側のJOINで行うため、
	// 呼び出し側がフォロー一覧を先に取得する必要はない。
	ListFolloweeLikes(ctx context.Context, viewerID string, postIDs []string) (map[string][]string, error)
}

// UserRepository はユーザープロフィールの読み取りインターフェース。
type UserRepository interface {
	// FindNicknames は指定ユーザーIDのニックネームをID→ニックネームのマップで返す。
	// 存在しないIDはマップに含まれない。
	FindNicknames(ctx context.Context, userIDs []string) (map[string]string, error)
}

// InterestRepository は興味タグの読み取りインターフェース。
type InterestRepository interface {
	// FindTagsRaw は指定ユーザーの興味タグを保存時の生文字列のまま返す。
	// JSON配列またはカンマ区切り文字列のいずれの形式もあり得る。
	// 未設定の場合は空文字列を返す。
	FindTagsRaw(ctx context.Context, userID string) (string, error)
}

// SessionRepository はセッションデータの読み取りインターフェース。
type SessionRepository interface {
	// FindByID は指定IDのセッションを取得する。期限切れまたは未存在の場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// ViewStateRepository はブラウジングセッションごとの
// 「ティアランキング表示済み」フラグの永続化インターフェース。
// フラグはセッションの生存期間だけ保持され、新しいセッションでは未表示に戻る。
type ViewStateRepository interface {
	// ConsumeUnseen はセッションが未表示状態だったかを返し、
	// 同時にアトミックに表示済みへ遷移させる。
	// 2つのページ0読み込みが競合しても、trueを観測するのは高々1回。
	// 表示済みセッションに対する呼び出しは冪等にfalseを返す。
	ConsumeUnseen(ctx context.Context, sessionID string) (bool, error)
}
