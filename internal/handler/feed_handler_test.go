package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/shikujiri/internal/feed"
	"github.com/hitoshi/shikujiri/internal/middleware"
	"github.com/hitoshi/shikujiri/internal/model"
)

// --- モック定義 ---

type mockFeedService struct {
	getPageFn func(ctx context.Context, viewerID, sessionID string, page, pageSize int) (*feed.Page, error)
}

func (m *mockFeedService) GetPage(ctx context.Context, viewerID, sessionID string, page, pageSize int) (*feed.Page, error) {
	return m.getPageFn(ctx, viewerID, sessionID, page, pageSize)
}

func testFeedConfig() FeedHandlerConfig {
	return FeedHandlerConfig{DefaultPageSize: 20, MaxPageSize: 100}
}

func emptyPage(page int) *feed.Page {
	return &feed.Page{Items: []model.EnrichedPost{}, Page: page, HasMore: false, Mode: feed.RankModeStore}
}

// --- テスト ---

func TestGetFeed_DefaultPaging(t *testing.T) {
	var gotPage, gotPageSize int
	svc := &mockFeedService{
		getPageFn: func(ctx context.Context, viewerID, sessionID string, page, pageSize int) (*feed.Page, error) {
			gotPage, gotPageSize = page, pageSize
			return emptyPage(page), nil
		},
	}
	h := NewFeedHandler(svc, testFeedConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/feed", nil)
	w := httptest.NewRecorder()
	h.GetFeed(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotPage != 0 || gotPageSize != 20 {
		t.Errorf("page = %d, pageSize = %d; want 0, 20", gotPage, gotPageSize)
	}
}

func TestGetFeed_ExplicitPaging(t *testing.T) {
	var gotPage, gotPageSize int
	svc := &mockFeedService{
		getPageFn: func(ctx context.Context, viewerID, sessionID string, page, pageSize int) (*feed.Page, error) {
			gotPage, gotPageSize = page, pageSize
			return emptyPage(page), nil
		},
	}
	h := NewFeedHandler(svc, testFeedConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/feed?page=3&page_size=50", nil)
	w := httptest.NewRecorder()
	h.GetFeed(w, req)

	if gotPage != 3 || gotPageSize != 50 {
		t.Errorf("page = %d, pageSize = %d; want 3, 50", gotPage, gotPageSize)
	}
}

func TestGetFeed_InvalidParams(t *testing.T) {
	svc := &mockFeedService{
		getPageFn: func(ctx context.Context, viewerID, sessionID string, page, pageSize int) (*feed.Page, error) {
			t.Fatal("service should not be called for invalid params")
			return nil, nil
		},
	}
	h := NewFeedHandler(svc, testFeedConfig())

	tests := []struct {
		name  string
		query string
	}{
		{"非整数のpage", "?page=abc"},
		{"非整数のpage_size", "?page_size=xyz"},
		{"上限超過のpage_size", "?page_size=101"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/feed"+tt.query, nil)
			w := httptest.NewRecorder()
			h.GetFeed(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			var body apiErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("decode error: %v", err)
			}
			if body.Code != model.ErrCodeInvalidPage {
				t.Errorf("code = %q, want %q", body.Code, model.ErrCodeInvalidPage)
			}
		})
	}
}

func TestGetFeed_PassesViewerAndSession(t *testing.T) {
	var gotViewerID, gotSessionID string
	svc := &mockFeedService{
		getPageFn: func(ctx context.Context, viewerID, sessionID string, page, pageSize int) (*feed.Page, error) {
			gotViewerID, gotSessionID = viewerID, sessionID
			return emptyPage(page), nil
		},
	}
	h := NewFeedHandler(svc, testFeedConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/feed", nil)
	ctx := middleware.ContextWithUserID(req.Context(), "user-123")
	ctx = middleware.ContextWithSessionID(ctx, "sess-456")
	h.GetFeed(httptest.NewRecorder(), req.WithContext(ctx))

	if gotViewerID != "user-123" {
		t.Errorf("viewerID = %q, want user-123", gotViewerID)
	}
	if gotSessionID != "sess-456" {
		t.Errorf("sessionID = %q, want sess-456", gotSessionID)
	}
}

func TestGetFeed_AnonymousViewer(t *testing.T) {
	var gotViewerID string
	svc := &mockFeedService{
		getPageFn: func(ctx context.Context, viewerID, sessionID string, page, pageSize int) (*feed.Page, error) {
			gotViewerID = viewerID
			return emptyPage(page), nil
		},
	}
	h := NewFeedHandler(svc, testFeedConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/feed", nil)
	w := httptest.NewRecorder()
	h.GetFeed(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d (anonymous is allowed)", w.Code, http.StatusOK)
	}
	if gotViewerID != "" {
		t.Errorf("viewerID = %q, want empty for anonymous", gotViewerID)
	}
}

func TestGetFeed_ResponseShape(t *testing.T) {
	created := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	svc := &mockFeedService{
		getPageFn: func(ctx context.Context, viewerID, sessionID string, page, pageSize int) (*feed.Page, error) {
			return &feed.Page{
				Items: []model.EnrichedPost{
					{
						Post: model.Post{
							ID:        "post-1",
							AuthorID:  "author-1",
							Title:     "初めての営業で大失敗した話",
							Content:   "<p>本文</p>",
							LikeCount: 3,
							CreatedAt: created,
						},
						Badge: model.FeedBadgeFriendLike,
						ReactingFollowings: []model.ReactingFollowing{
							{UserID: "friend-1", Nickname: "田中"},
						},
					},
					{
						Post: model.Post{ID: "post-2", AuthorID: "author-2", CreatedAt: created},
					},
				},
				Page:    0,
				HasMore: true,
				Mode:    feed.RankModePriority,
			}, nil
		},
	}
	h := NewFeedHandler(svc, testFeedConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/feed", nil)
	w := httptest.NewRecorder()
	h.GetFeed(w, req)

	var body feedPageResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(body.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(body.Items))
	}
	if !body.HasMore {
		t.Error("has_more should be true")
	}

	first := body.Items[0]
	if first.FeedBadge != "friend_like" {
		t.Errorf("feed_badge = %q, want friend_like", first.FeedBadge)
	}
	if len(first.ReactingFollowings) != 1 || first.ReactingFollowings[0].Nickname != "田中" {
		t.Errorf("reacting_followings = %+v, want 田中", first.ReactingFollowings)
	}
	if first.ReactionLabel != "田中さんが反応しました" {
		t.Errorf("reaction_label = %q, want representative label", first.ReactionLabel)
	}
	if first.CreatedAt != "2026-08-30T12:00:00Z" {
		t.Errorf("created_at = %q, want RFC3339", first.CreatedAt)
	}

	second := body.Items[1]
	if second.FeedBadge != "" || second.ReactionLabel != "" {
		t.Errorf("post without friend like should carry no badge or label: %+v", second)
	}
}

func TestGetFeed_ServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			"ストア障害は503",
			model.NewStoreUnavailableError(errors.New("connection refused")),
			http.StatusServiceUnavailable,
			model.ErrCodeStoreUnavailable,
		},
		{
			"不正ページは400",
			model.NewInvalidPageError("pageは0以上で指定してください"),
			http.StatusBadRequest,
			model.ErrCodeInvalidPage,
		},
		{
			"未認証エラーは401",
			model.NewUnauthorizedError(),
			http.StatusUnauthorized,
			model.ErrCodeUnauthorized,
		},
		{
			"想定外エラーは500",
			errors.New("unexpected"),
			http.StatusInternalServerError,
			model.ErrCodeInternal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockFeedService{
				getPageFn: func(ctx context.Context, viewerID, sessionID string, page, pageSize int) (*feed.Page, error) {
					return nil, tt.err
				},
			}
			h := NewFeedHandler(svc, testFeedConfig())

			req := httptest.NewRequest(http.MethodGet, "/api/feed", nil)
			w := httptest.NewRecorder()
			h.GetFeed(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var body apiErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("decode error: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
		})
	}
}
