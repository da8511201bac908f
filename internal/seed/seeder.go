// Package seed はローカル開発用のデモデータ投入を提供する。
package seed

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

// デモデータの題材。失敗談コミュニティの投稿タイトルと興味タグ。
var (
	failureTitles = []string{
		"初めての営業で大失敗した話",
		"リリース直前に本番DBを消しかけた話",
		"起業1年目で資金繰りに詰まった話",
		"上司への報告を先延ばしにして炎上させた話",
		"マーケティング施策が完全に空振りした話",
		"面接で緊張しすぎて名前を間違えた話",
		"値付けを誤って赤字受注を続けた話",
		"採用を急ぎすぎてチームが崩壊した話",
	}
	interestTags = []string{
		"営業", "マーケティング", "起業", "エンジニアリング",
		"採用", "資金調達", "プロダクト", "キャリア",
	}
)

// Config はシーダーの投入量設定。
type Config struct {
	// Users は生成するユーザー数。
	Users int
	// PostsPerUser はユーザーあたりの投稿数。
	PostsPerUser int
	// FollowsPerUser はユーザーあたりのフォロー数。
	FollowsPerUser int
	// ReactionsPerUser はユーザーあたりのいいね数。
	ReactionsPerUser int
}

// DefaultConfig はデフォルトの投入量を返す。
func DefaultConfig() Config {
	return Config{
		Users:            20,
		PostsPerUser:     5,
		FollowsPerUser:   5,
		ReactionsPerUser: 10,
	}
}

// Seeder はデモデータをPostgresへ直接投入する。
// フィードエンジンは読み取り専用のため、書き込み側の機能が揃うまでの
// ローカル開発はこのシーダーでデータを用意する。
type Seeder struct {
	db     *sql.DB
	logger *slog.Logger
	faker  *gofakeit.Faker
	config Config
}

// NewSeeder はSeederを生成する。seedは乱数シード。
func NewSeeder(db *sql.DB, logger *slog.Logger, config Config, seed int64) *Seeder {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Seeder{
		db:     db,
		logger: logger,
		faker:  gofakeit.New(seed),
		config: config,
	}
}

// Run はデモデータを投入する。
// ユーザー → 投稿 → フォロー → いいね → 興味タグの順に生成し、
// フィードのバッジとティアランキングが観察できるグラフを作る。
func (s *Seeder) Run(ctx context.Context) error {
	userIDs, err := s.seedUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	postCount, err := s.seedPosts(ctx, userIDs)
	if err != nil {
		return fmt.Errorf("failed to seed posts: %w", err)
	}

	followCount, err := s.seedFollows(ctx, userIDs)
	if err != nil {
		return fmt.Errorf("failed to seed follows: %w", err)
	}

	reactionCount, err := s.seedReactions(ctx, userIDs)
	if err != nil {
		return fmt.Errorf("failed to seed reactions: %w", err)
	}

	interestCount, err := s.seedInterests(ctx, userIDs)
	if err != nil {
		return fmt.Errorf("failed to seed interests: %w", err)
	}

	if len(userIDs) > 0 {
		sessionID, err := s.seedSession(ctx, userIDs[0])
		if err != nil {
			return fmt.Errorf("failed to seed session: %w", err)
		}
		s.logger.Info("seeded a login session for manual testing",
			slog.String("user_id", userIDs[0]),
			slog.String("session_id", sessionID),
		)
	}

	s.logger.Info("seeding completed",
		slog.Int("users", len(userIDs)),
		slog.Int("posts", postCount),
		slog.Int("follows", followCount),
		slog.Int("reactions", reactionCount),
		slog.Int("interests", interestCount),
	)
	return nil
}

// seedUsers はユーザーを生成し、IDの一覧を返す。
func (s *Seeder) seedUsers(ctx context.Context) ([]string, error) {
	userIDs := make([]string, 0, s.config.Users)
	for i := 0; i < s.config.Users; i++ {
		id := uuid.NewString()
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO users (id, nickname, email, created_at, updated_at)
			 VALUES ($1, $2, $3, now(), now())`,
			id, s.faker.Username(), s.faker.Email(),
		)
		if err != nil {
			return nil, err
		}
		userIDs = append(userIDs, id)
	}
	return userIDs, nil
}

// seedPosts は各ユーザーの失敗談投稿を生成する。
// 一部を直近24時間以内に寄せ、鮮度ティアが観察できるようにする。
func (s *Seeder) seedPosts(ctx context.Context, userIDs []string) (int, error) {
	count := 0
	for _, userID := range userIDs {
		for i := 0; i < s.config.PostsPerUser; i++ {
			title := failureTitles[s.faker.Number(0, len(failureTitles)-1)]
			content := fmt.Sprintf("<p>%s</p><p>%s</p>",
				s.faker.Sentence(12), s.faker.Sentence(18))

			// 1/3を直近24時間、残りを過去30日に分散
			var createdAt time.Time
			if s.faker.Number(0, 2) == 0 {
				createdAt = time.Now().Add(-time.Duration(s.faker.Number(1, 23)) * time.Hour)
			} else {
				createdAt = time.Now().Add(-time.Duration(s.faker.Number(25, 720)) * time.Hour)
			}

			_, err := s.db.ExecContext(ctx,
				`INSERT INTO posts (id, author_id, title, content, is_public,
				                    view_count, like_count, comment_count, save_count,
				                    created_at, updated_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`,
				uuid.NewString(), userID, title, content,
				s.faker.Number(0, 9) != 0, // 1割を非公開にする
				s.faker.Number(0, 500), s.faker.Number(0, 50),
				s.faker.Number(0, 20), s.faker.Number(0, 30),
				createdAt,
			)
			if err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}

// seedFollows はフォローエッジを生成する。自己フォローは生成しない。
func (s *Seeder) seedFollows(ctx context.Context, userIDs []string) (int, error) {
	count := 0
	for _, followerID := range userIDs {
		for _, followeeID := range s.pickOthers(userIDs, followerID, s.config.FollowsPerUser) {
			res, err := s.db.ExecContext(ctx,
				`INSERT INTO follow_edges (follower_id, followee_id, created_at)
				 VALUES ($1, $2, now())
				 ON CONFLICT DO NOTHING`,
				followerID, followeeID,
			)
			if err != nil {
				return count, err
			}
			if n, _ := res.RowsAffected(); n > 0 {
				count++
			}
		}
	}
	return count, nil
}

// seedReactions は公開投稿へのいいねを生成する。
func (s *Seeder) seedReactions(ctx context.Context, userIDs []string) (int, error) {
	var postIDs []string
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM posts WHERE is_public = true`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		postIDs = append(postIDs, id)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(postIDs) == 0 {
		return 0, nil
	}

	count := 0
	for _, userID := range userIDs {
		for i := 0; i < s.config.ReactionsPerUser; i++ {
			postID := postIDs[s.faker.Number(0, len(postIDs)-1)]
			res, err := s.db.ExecContext(ctx,
				`INSERT INTO post_reactions (post_id, user_id, created_at)
				 VALUES ($1, $2, now())
				 ON CONFLICT DO NOTHING`,
				postID, userID,
			)
			if err != nil {
				return count, err
			}
			if n, _ := res.RowsAffected(); n > 0 {
				count++
			}
		}
	}
	return count, nil
}

// seedInterests は各ユーザーの興味タグを生成する。
// 実データに両形式が混在しているため、JSON配列とカンマ区切りを半々で保存する。
func (s *Seeder) seedInterests(ctx context.Context, userIDs []string) (int, error) {
	count := 0
	for i, userID := range userIDs {
		tags := s.pickTags(s.faker.Number(1, 3))

		var raw string
		if i%2 == 0 {
			encoded, err := json.Marshal(tags)
			if err != nil {
				return count, err
			}
			raw = string(encoded)
		} else {
			raw = strings.Join(tags, ",")
		}

		_, err := s.db.ExecContext(ctx,
			`INSERT INTO user_interests (user_id, tags, updated_at)
			 VALUES ($1, $2, now())
			 ON CONFLICT (user_id) DO UPDATE SET tags = $2, updated_at = now()`,
			userID, raw,
		)
		if err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// seedSession は手動テスト用のログインセッションを1件生成し、IDを返す。
// session_id Cookieに設定すると、そのユーザーとしてフィードを閲覧できる。
func (s *Seeder) seedSession(ctx context.Context, userID string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, expires_at, created_at)
		 VALUES ($1, $2, now() + interval '7 days', now())`,
		id, userID,
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// pickOthers は自分以外からn件を重複なく選ぶ。
func (s *Seeder) pickOthers(userIDs []string, selfID string, n int) []string {
	candidates := make([]string, 0, len(userIDs)-1)
	for _, id := range userIDs {
		if id != selfID {
			candidates = append(candidates, id)
		}
	}
	s.faker.ShuffleStrings(candidates)
	if n > len(candidates) {
		n = len(candidates)
	}
	return candidates[:n]
}

// pickTags は興味タグからn件を重複なく選ぶ。
func (s *Seeder) pickTags(n int) []string {
	tags := make([]string, len(interestTags))
	copy(tags, interestTags)
	s.faker.ShuffleStrings(tags)
	if n > len(tags) {
		n = len(tags)
	}
	return tags[:n]
}

