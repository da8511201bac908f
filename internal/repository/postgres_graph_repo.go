package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// PostgresFollowRepo はPostgreSQLを使用したフォローエッジリポジトリ。
type PostgresFollowRepo struct {
	db *sql.DB
}

// NewPostgresFollowRepo はPostgresFollowRepoを生成する。
func NewPostgresFollowRepo(db *sql.DB) *PostgresFollowRepo {
	return &PostgresFollowRepo{db: db}
}

// ListFolloweeIDs は指定ユーザーがフォローしている全ユーザーIDを返す。
// スキーマ上は自己エッジを禁止しているが、防御的にクエリでも除外する。
func (r *PostgresFollowRepo) ListFolloweeIDs(ctx context.Context, followerID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT followee_id FROM follow_edges
		 WHERE follower_id = $1 AND followee_id <> follower_id`,
		followerID,
	)
	if err != nil {
		return nil, fmt.Errorf("フォロー一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("フォロー行の読み取りに失敗しました: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("フォロー一覧の走査に失敗しました: %w", err)
	}

	return ids, nil
}

// PostgresReactionRepo はPostgreSQLを使用したいいねイベントリポジトリ。
type PostgresReactionRepo struct {
	db *sql.DB
}

// NewPostgresReactionRepo はPostgresReactionRepoを生成する。
func NewPostgresReactionRepo(db *sql.DB) *PostgresReactionRepo {
	return &PostgresReactionRepo{db: db}
}

// ListFolloweeLikes は指定投稿バッチのうちviewerのフォロー中ユーザーが
// いいねしたものを、投稿ID→いいねしたユーザーID群のマップで返す。
// フォロー集合との突き合わせはJOINで行い、単一の往復で解決する。
func (r *PostgresReactionRepo) ListFolloweeLikes(ctx context.Context, viewerID string, postIDs []string) (map[string][]string, error) {
	if len(postIDs) == 0 {
		return map[string][]string{}, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT pr.post_id, pr.user_id
		 FROM post_reactions pr
		 JOIN follow_edges fe
		   ON fe.followee_id = pr.user_id AND fe.follower_id = $1
		 WHERE pr.post_id = ANY($2)`,
		viewerID, pq.Array(postIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("フォロー中ユーザーのいいね取得に失敗しました: %w", err)
	}
	defer rows.Close()

	likes := make(map[string][]string)
	for rows.Next() {
		var postID, userID string
		if err := rows.Scan(&postID, &userID); err != nil {
			return nil, fmt.Errorf("いいね行の読み取りに失敗しました: %w", err)
		}
		likes[postID] = append(likes[postID], userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("いいね一覧の走査に失敗しました: %w", err)
	}

	return likes, nil
}

// compile-time interface check
var _ FollowRepository = (*PostgresFollowRepo)(nil)
var _ ReactionRepository = (*PostgresReactionRepo)(nil)
