package feed

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/hitoshi/shikujiri/internal/metrics"
	"github.com/hitoshi/shikujiri/internal/model"
	"github.com/hitoshi/shikujiri/internal/repository"
	"github.com/hitoshi/shikujiri/internal/security"
)

// RankMode はページに適用された順序付けの種別を表す。
type RankMode string

const (
	// RankModePriority はティアランキング（セッション初回のページ0のみ）。
	RankModePriority RankMode = "priority"
	// RankModeShuffle は一様ランダムシャッフル（表示済みセッションのページ0）。
	RankModeShuffle RankMode = "shuffle"
	// RankModeStore はストア順そのまま（ページ1以降および匿名閲覧者）。
	RankModeStore RankMode = "store"
)

// Page は1回のフィードページ合成の結果。
type Page struct {
	Items   []model.EnrichedPost
	Page    int
	HasMore bool
	Mode    RankMode
}

// EnrichmentProvider はエンリッチメントサービスのインターフェース。
// テスト時にモックへ差し替え可能。
type EnrichmentProvider interface {
	Enrich(ctx context.Context, viewerID string, posts []model.Post) Enrichment
}

// ServiceConfig はServiceの動作パラメータ。
type ServiceConfig struct {
	// FreshWindow はティア1判定の鮮度ウィンドウ。ゼロ値は24時間。
	FreshWindow time.Duration
	// NewRand はシャッフル用乱数生成器のファクトリ。
	// 未設定の場合は時刻シードの生成器を使用する。テストで決定的に差し替える。
	NewRand func() *rand.Rand
	// Now は現在時刻の取得関数。未設定の場合はtime.Now。
	Now func() time.Time
}

// Service はフィード合成のサービス。
// ページ取得→エンリッチメント→セッションゲート→ランキングのパイプラインを駆動する。
// ドメインデータに対して読み取り専用であり、
// 書き込むのはセッションゲートの表示済みフラグのみ。
type Service struct {
	posts     repository.PostRepository
	enricher  EnrichmentProvider
	viewState repository.ViewStateRepository
	sanitizer security.ContentSanitizerService
	logger    *slog.Logger
	metrics   metrics.FeedMetricsRecorder

	freshWindow time.Duration
	newRand     func() *rand.Rand
	now         func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	posts repository.PostRepository,
	enricher EnrichmentProvider,
	viewState repository.ViewStateRepository,
	sanitizer security.ContentSanitizerService,
	logger *slog.Logger,
	recorder metrics.FeedMetricsRecorder,
	cfg ServiceConfig,
) *Service {
	if cfg.FreshWindow <= 0 {
		cfg.FreshWindow = 24 * time.Hour
	}
	if cfg.NewRand == nil {
		cfg.NewRand = func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		posts:       posts,
		enricher:    enricher,
		viewState:   viewState,
		sanitizer:   sanitizer,
		logger:      logger,
		metrics:     recorder,
		freshWindow: cfg.FreshWindow,
		newRand:     cfg.NewRand,
		now:         cfg.Now,
	}
}

// GetPage は指定閲覧者・セッションのフィードページを合成する。
//
//   - ページ0かつ閲覧者あり: エンリッチ後、セッションゲートが未表示なら
//     ティアランキング、表示済みならシャッフルを適用する。
//     ランキングモードはゲートからアトミックに取り出した値のみで決まり、
//     計算途中に変化する状態には依存しない。
//   - ページ1以降: バッジ付与のみ行い、ストア順のまま返す。
//     スクロールのたびに既表示の並びが変わるのを避けるため再ランキングしない。
//   - 匿名閲覧者: エンリッチメントもランキングも行わず、ストア順・バッジなし。
//
// 返却件数がpageSize未満の場合、HasMoreはfalseになる。
// ストア読み取りの失敗のみがエラーになる（エンリッチメントは内部で縮退する）。
func (s *Service) GetPage(ctx context.Context, viewerID, sessionID string, page, pageSize int) (*Page, error) {
	if page < 0 {
		return nil, model.NewInvalidPageError("pageは0以上で指定してください")
	}
	if pageSize < 1 {
		return nil, model.NewInvalidPageError("page_sizeは1以上で指定してください")
	}

	start := time.Now()

	posts, err := s.posts.ListPublicPage(ctx, viewerID, page, pageSize)
	if err != nil {
		s.metrics.RecordStoreError()
		return nil, model.NewStoreUnavailableError(err)
	}

	for i := range posts {
		posts[i].Content = s.sanitizer.Sanitize(posts[i].Content)
	}

	result := &Page{
		Page:    page,
		HasMore: len(posts) == pageSize,
		Mode:    RankModeStore,
	}

	if viewerID == "" {
		result.Items = asEnriched(posts)
	} else {
		enr := s.enricher.Enrich(ctx, viewerID, posts)
		result.Items = enr.Posts

		if page == 0 {
			if s.consumeUnseen(ctx, sessionID) {
				result.Items = RankPriority(result.Items, s.now(), s.freshWindow,
					enr.FollowingIDs, enr.FriendLikedIDs, enr.InterestTags)
				result.Mode = RankModePriority
			} else {
				result.Items = RankShuffle(result.Items, s.newRand())
				result.Mode = RankModeShuffle
			}
		}
	}

	s.metrics.RecordFeedPage(string(result.Mode), time.Since(start))
	s.metrics.RecordPostsServed(len(result.Items))

	s.logger.Info("feed page served",
		slog.String("viewer_id", viewerID),
		slog.Int("page", page),
		slog.String("mode", string(result.Mode)),
		slog.Int("count", len(result.Items)),
		slog.Bool("has_more", result.HasMore),
	)

	return result, nil
}

// consumeUnseen はセッションゲートから未表示フラグをアトミックに取り出す。
// セッションIDなし、またはゲート障害の場合はシャッフル側（false）へ縮退する。
func (s *Service) consumeUnseen(ctx context.Context, sessionID string) bool {
	if sessionID == "" {
		return false
	}
	unseen, err := s.viewState.ConsumeUnseen(ctx, sessionID)
	if err != nil {
		s.logger.Warn("session gate unavailable, falling back to shuffle",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		return false
	}
	return unseen
}
