package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/shikujiri/internal/model"
)

// PostgresPostRepo はPostgreSQLを使用した投稿リポジトリ。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

// ListPublicPage は公開投稿をcreated_at降順（同時刻はid降順）でページ取得する。
// viewerIDが空でない場合、そのユーザー自身の投稿を除外する。
// 順序キーが決定的であるため、連続するページ間で行の重複・欠落は発生しない。
func (r *PostgresPostRepo) ListPublicPage(ctx context.Context, viewerID string, page, pageSize int) ([]model.Post, error) {
	if page < 0 || pageSize <= 0 {
		return nil, fmt.Errorf("invalid page parameters: page=%d page_size=%d", page, pageSize)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, author_id, title, content, is_public,
		        view_count, like_count, comment_count, save_count,
		        created_at, updated_at
		 FROM posts
		 WHERE is_public = true
		   AND ($1 = '' OR author_id::text <> $1)
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2 OFFSET $3`,
		viewerID, pageSize, page*pageSize,
	)
	if err != nil {
		return nil, fmt.Errorf("公開投稿のページ取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var posts []model.Post
	for rows.Next() {
		var p model.Post
		if err := rows.Scan(
			&p.ID, &p.AuthorID, &p.Title, &p.Content, &p.IsPublic,
			&p.ViewCount, &p.LikeCount, &p.CommentCount, &p.SaveCount,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("投稿行の読み取りに失敗しました: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("投稿一覧の走査に失敗しました: %w", err)
	}

	return posts, nil
}

// compile-time interface check
var _ PostRepository = (*PostgresPostRepo)(nil)
