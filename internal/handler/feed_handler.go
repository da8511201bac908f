// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hitoshi/shikujiri/internal/feed"
	"github.com/hitoshi/shikujiri/internal/middleware"
	"github.com/hitoshi/shikujiri/internal/model"
)

// FeedServiceInterface はフィードハンドラーが必要とするサービスインターフェース。
type FeedServiceInterface interface {
	// GetPage は指定閲覧者・セッションのフィードページを合成する。
	GetPage(ctx context.Context, viewerID, sessionID string, page, pageSize int) (*feed.Page, error)
}

// FeedHandlerConfig はフィードハンドラーのページング設定。
type FeedHandlerConfig struct {
	// DefaultPageSize はpage_size未指定時のページサイズ。
	DefaultPageSize int
	// MaxPageSize はpage_sizeの上限。超過指定はINVALID_PAGEになる。
	MaxPageSize int
}

// FeedHandler はフィード取得のHTTPハンドラー。
type FeedHandler struct {
	service FeedServiceInterface
	config  FeedHandlerConfig
	labeler *ReactionLabeler
}

// NewFeedHandler はFeedHandlerを生成する。
func NewFeedHandler(service FeedServiceInterface, config FeedHandlerConfig) *FeedHandler {
	if config.DefaultPageSize < 1 {
		config.DefaultPageSize = 20
	}
	if config.MaxPageSize < config.DefaultPageSize {
		config.MaxPageSize = 100
	}
	return &FeedHandler{
		service: service,
		config:  config,
		labeler: NewReactionLabeler(nil),
	}
}

// reactingFollowingResponse は投稿に反応したフォロー中ユーザーのAPIレスポンス。
type reactingFollowingResponse struct {
	UserID   string `json:"user_id"`
	Nickname string `json:"nickname"`
}

// feedItemResponse はフィード1件のAPIレスポンス。
type feedItemResponse struct {
	ID                 string                      `json:"id"`
	AuthorID           string                      `json:"author_id"`
	Title              string                      `json:"title"`
	Content            string                      `json:"content"`
	ViewCount          int                         `json:"view_count"`
	LikeCount          int                         `json:"like_count"`
	CommentCount       int                         `json:"comment_count"`
	SaveCount          int                         `json:"save_count"`
	CreatedAt          string                      `json:"created_at"`
	FeedBadge          string                      `json:"feed_badge,omitempty"`
	ReactingFollowings []reactingFollowingResponse `json:"reacting_followings,omitempty"`
	ReactionLabel      string                      `json:"reaction_label,omitempty"`
}

// feedPageResponse はフィードページのAPIレスポンス。
type feedPageResponse struct {
	Items   []feedItemResponse `json:"items"`
	Page    int                `json:"page"`
	HasMore bool               `json:"has_more"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// GetFeed はフィードページを取得する。
// GET /api/feed?page=&page_size=
// セッションの有無で閲覧者を解決する。匿名も許可される。
func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := middleware.UserIDFromContext(r.Context())
	sessionID := middleware.SessionIDFromContext(r.Context())

	page, err := parseQueryInt(r, "page", 0)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidPageError("pageは整数で指定してください"))
		return
	}

	pageSize, err := parseQueryInt(r, "page_size", h.config.DefaultPageSize)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidPageError("page_sizeは整数で指定してください"))
		return
	}
	if pageSize > h.config.MaxPageSize {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidPageError("page_sizeが上限を超えています"))
		return
	}

	result, err := h.service.GetPage(r.Context(), viewerID, sessionID, page, pageSize)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.toFeedPageResponse(result))
}

// toFeedPageResponse はフィードページをAPIレスポンスに変換する。
// 反応ラベルの代表選出はここで行い、ランキングの結果には影響しない。
func (h *FeedHandler) toFeedPageResponse(page *feed.Page) feedPageResponse {
	items := make([]feedItemResponse, len(page.Items))
	for i, item := range page.Items {
		items[i] = feedItemResponse{
			ID:            item.ID,
			AuthorID:      item.AuthorID,
			Title:         item.Title,
			Content:       item.Content,
			ViewCount:     item.ViewCount,
			LikeCount:     item.LikeCount,
			CommentCount:  item.CommentCount,
			SaveCount:     item.SaveCount,
			CreatedAt:     item.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			FeedBadge:     string(item.Badge),
			ReactionLabel: h.labeler.Label(item.ReactingFollowings),
		}
		for _, rf := range item.ReactingFollowings {
			items[i].ReactingFollowings = append(items[i].ReactingFollowings,
				reactingFollowingResponse{UserID: rf.UserID, Nickname: rf.Nickname})
		}
	}
	return feedPageResponse{
		Items:   items,
		Page:    page.Page,
		HasMore: page.HasMore,
	}
}

// parseQueryInt はクエリパラメータを非負整数として解釈する。
// 未指定の場合はデフォルト値を返す。
func parseQueryInt(r *http.Request, key string, defaultValue int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(raw)
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}

// mapAPIErrorToHTTPStatus はAPIエラーコードをHTTPステータスコードに対応付ける。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidPage:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
