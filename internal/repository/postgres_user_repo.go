package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/shikujiri/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindNicknames は指定ユーザーIDのニックネームをID→ニックネームのマップで返す。
// 反応ラベルの表示に実際に必要なIDのみを渡すこと。
func (r *PostgresUserRepo) FindNicknames(ctx context.Context, userIDs []string) (map[string]string, error) {
	if len(userIDs) == 0 {
		return map[string]string{}, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, nickname FROM users WHERE id = ANY($1)`,
		pq.Array(userIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("ニックネームの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	nicknames := make(map[string]string, len(userIDs))
	for rows.Next() {
		var id, nickname string
		if err := rows.Scan(&id, &nickname); err != nil {
			return nil, fmt.Errorf("ユーザー行の読み取りに失敗しました: %w", err)
		}
		nicknames[id] = nickname
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ユーザー一覧の走査に失敗しました: %w", err)
	}

	return nicknames, nil
}

// PostgresInterestRepo はPostgreSQLを使用した興味タグリポジトリ。
type PostgresInterestRepo struct {
	db *sql.DB
}

// NewPostgresInterestRepo はPostgresInterestRepoを生成する。
func NewPostgresInterestRepo(db *sql.DB) *PostgresInterestRepo {
	return &PostgresInterestRepo{db: db}
}

// FindTagsRaw は指定ユーザーの興味タグを保存時の生文字列のまま返す。
// 形式の解釈（JSON配列/カンマ区切り）は呼び出し側が行う。未設定は空文字列。
func (r *PostgresInterestRepo) FindTagsRaw(ctx context.Context, userID string) (string, error) {
	var raw string
	err := r.db.QueryRowContext(ctx,
		`SELECT tags FROM user_interests WHERE user_id = $1`,
		userID,
	).Scan(&raw)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("興味タグの取得に失敗しました: %w", err)
	}

	return raw, nil
}

// PostgresSessionRepo はPostgreSQLを使用したセッションリポジトリ。
type PostgresSessionRepo struct {
	db *sql.DB
}

// NewPostgresSessionRepo はPostgresSessionRepoを生成する。
func NewPostgresSessionRepo(db *sql.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

// FindByID は指定IDのセッションを取得する。期限切れまたは未存在の場合はnilを返す。
func (r *PostgresSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	session := &model.Session{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, expires_at, created_at
		 FROM sessions WHERE id = $1 AND expires_at > now()`,
		id,
	).Scan(&session.ID, &session.UserID, &session.ExpiresAt, &session.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("セッションの取得に失敗しました: %w", err)
	}

	return session, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
var _ InterestRepository = (*PostgresInterestRepo)(nil)
var _ SessionRepository = (*PostgresSessionRepo)(nil)
