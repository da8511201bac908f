package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/shikujiri/internal/model"
)

type mockPageLoader struct {
	calls     []int
	getPageFn func(ctx context.Context, viewerID, sessionID string, page, pageSize int) (*Page, error)
}

func (m *mockPageLoader) GetPage(ctx context.Context, viewerID, sessionID string, page, pageSize int) (*Page, error) {
	m.calls = append(m.calls, page)
	return m.getPageFn(ctx, viewerID, sessionID, page, pageSize)
}

// pagedLoader は全totalPages中のページを順に返すローダーを作る。
// 最終ページは部分ページになる。
func pagedLoader(totalPages, pageSize int) *mockPageLoader {
	m := &mockPageLoader{}
	m.getPageFn = func(ctx context.Context, viewerID, sessionID string, page, pageSize int) (*Page, error) {
		size := pageSize
		last := page == totalPages-1
		if last {
			size = pageSize / 2
		}
		items := make([]model.EnrichedPost, size)
		for i := range items {
			items[i] = model.EnrichedPost{Post: model.Post{
				ID:        sprintfID(page*pageSize + i),
				CreatedAt: time.Now(),
			}}
		}
		return &Page{Items: items, Page: page, HasMore: !last, Mode: RankModeStore}, nil
	}
	return m
}

// TestPaginator_LoadInitial はページ0の読み込みと状態遷移を検証する。
func TestPaginator_LoadInitial(t *testing.T) {
	loader := pagedLoader(3, 4)
	p := NewPaginator(loader, "viewer-1", "sess-1", 4)

	st := p.LoadInitial(context.Background())

	if len(st.Posts) != 4 {
		t.Errorf("posts = %d, want 4", len(st.Posts))
	}
	if st.NextPage != 1 {
		t.Errorf("next page = %d, want 1", st.NextPage)
	}
	if !st.HasMore {
		t.Error("has more should remain true")
	}
	if st.InitialLoading || st.FetchingMore {
		t.Error("loading flags should be cleared after completion")
	}
}

// TestPaginator_ScrollToEnd はスクロールの繰り返しで全ページを重複なく
// 読み込み、最終ページ以降は要求が止まることを検証する。
func TestPaginator_ScrollToEnd(t *testing.T) {
	loader := pagedLoader(3, 4)
	p := NewPaginator(loader, "viewer-1", "sess-1", 4)

	p.LoadInitial(context.Background())
	for i := 0; i < 10; i++ {
		p.OnScrollNearEnd(context.Background())
	}

	st := p.State()
	if st.HasMore {
		t.Error("has more should be false after final partial page")
	}
	// ページ0,1,2の3要求のみ。終端到達後のスクロールは無視される。
	want := []int{0, 1, 2}
	if len(loader.calls) != len(want) {
		t.Fatalf("loader calls = %v, want %v", loader.calls, want)
	}
	for i, page := range want {
		if loader.calls[i] != page {
			t.Fatalf("loader calls = %v, want %v", loader.calls, want)
		}
	}
	// 4+4+2件の累積
	if len(st.Posts) != 10 {
		t.Errorf("accumulated posts = %d, want 10", len(st.Posts))
	}
	seen := map[string]struct{}{}
	for _, post := range st.Posts {
		if _, dup := seen[post.ID]; dup {
			t.Errorf("duplicate post %s in accumulated list", post.ID)
		}
		seen[post.ID] = struct{}{}
	}
}

// TestPaginator_ScrollBeforeInitialIsIgnored は初回読み込み前の
// スクロールシグナルが無視されることを検証する。
func TestPaginator_ScrollBeforeInitialIsIgnored(t *testing.T) {
	loader := pagedLoader(3, 4)
	p := NewPaginator(loader, "viewer-1", "sess-1", 4)

	st := p.OnScrollNearEnd(context.Background())

	if len(loader.calls) != 0 {
		t.Errorf("loader calls = %v, want none before LoadInitial", loader.calls)
	}
	if len(st.Posts) != 0 {
		t.Error("state should be untouched")
	}
}

// TestPaginator_ErrorStopsPaginationUntilRetry はストア障害で自動
// ページネーションが停止し、Retryで失敗ページから再開することを検証する。
func TestPaginator_ErrorStopsPaginationUntilRetry(t *testing.T) {
	storeErr := model.NewStoreUnavailableError(errors.New("connection refused"))
	failing := true
	loader := &mockPageLoader{}
	inner := pagedLoader(3, 4)
	loader.getPageFn = func(ctx context.Context, viewerID, sessionID string, page, pageSize int) (*Page, error) {
		if page == 1 && failing {
			return nil, storeErr
		}
		return inner.getPageFn(ctx, viewerID, sessionID, page, pageSize)
	}
	p := NewPaginator(loader, "viewer-1", "sess-1", 4)

	p.LoadInitial(context.Background())
	st := p.OnScrollNearEnd(context.Background())

	if !errors.Is(st.Err, storeErr) {
		t.Fatalf("state err = %v, want store error", st.Err)
	}
	if len(st.Posts) != 4 {
		t.Errorf("posts = %d, want 4 (loaded pages preserved on error)", len(st.Posts))
	}

	// エラー状態中のスクロールは無視される
	before := len(loader.calls)
	p.OnScrollNearEnd(context.Background())
	if len(loader.calls) != before {
		t.Error("scroll during error state should not issue requests")
	}

	failing = false
	st = p.Retry(context.Background())
	if st.Err != nil {
		t.Fatalf("err after retry = %v, want nil", st.Err)
	}
	if len(st.Posts) != 8 {
		t.Errorf("posts after retry = %d, want 8", len(st.Posts))
	}
	if st.NextPage != 2 {
		t.Errorf("next page after retry = %d, want 2", st.NextPage)
	}
}

// TestPaginator_RetryWithoutErrorIsNoop はエラー状態でないRetryが
// 何もしないことを検証する。
func TestPaginator_RetryWithoutErrorIsNoop(t *testing.T) {
	loader := pagedLoader(3, 4)
	p := NewPaginator(loader, "viewer-1", "sess-1", 4)
	p.LoadInitial(context.Background())

	before := len(loader.calls)
	p.Retry(context.Background())
	if len(loader.calls) != before {
		t.Error("retry without error should not issue requests")
	}
}

// TestPaginator_InitialFailureRetriesPageZero はページ0の失敗後の
// Retryがページ0を再要求することを検証する。
func TestPaginator_InitialFailureRetriesPageZero(t *testing.T) {
	storeErr := model.NewStoreUnavailableError(errors.New("connection refused"))
	failing := true
	loader := &mockPageLoader{}
	inner := pagedLoader(3, 4)
	loader.getPageFn = func(ctx context.Context, viewerID, sessionID string, page, pageSize int) (*Page, error) {
		if failing {
			return nil, storeErr
		}
		return inner.getPageFn(ctx, viewerID, sessionID, page, pageSize)
	}
	p := NewPaginator(loader, "viewer-1", "sess-1", 4)

	st := p.LoadInitial(context.Background())
	if st.Err == nil {
		t.Fatal("initial load should fail")
	}

	failing = false
	st = p.Retry(context.Background())
	if st.Err != nil {
		t.Fatalf("err after retry = %v, want nil", st.Err)
	}
	if len(st.Posts) != 4 || st.NextPage != 1 {
		t.Errorf("state after retry = %d posts, next %d; want 4 posts, next 1", len(st.Posts), st.NextPage)
	}
	want := []int{0, 0}
	if len(loader.calls) != 2 || loader.calls[0] != want[0] || loader.calls[1] != want[1] {
		t.Errorf("loader calls = %v, want %v", loader.calls, want)
	}
}

// TestPaginator_ResetDiscardsInFlightResponse はローダー往復中にResetが
// 呼ばれた場合、その応答が状態へ反映されないことを検証する。
func TestPaginator_ResetDiscardsInFlightResponse(t *testing.T) {
	var p *Paginator
	loader := &mockPageLoader{}
	loader.getPageFn = func(ctx context.Context, viewerID, sessionID string, page, pageSize int) (*Page, error) {
		// 応答が届く前にフィードが作り直された状況を再現する
		p.Reset()
		return &Page{
			Items:   []model.EnrichedPost{{Post: model.Post{ID: "stale-1"}}},
			Page:    page,
			HasMore: true,
			Mode:    RankModeStore,
		}, nil
	}
	p = NewPaginator(loader, "viewer-1", "sess-1", 4)

	st := p.LoadInitial(context.Background())

	if len(st.Posts) != 0 {
		t.Errorf("stale response should be discarded, got %d posts", len(st.Posts))
	}
	if st.NextPage != 0 {
		t.Errorf("next page = %d, want 0 after reset", st.NextPage)
	}
	if !st.HasMore {
		t.Error("reset state should start with has more true")
	}
}
