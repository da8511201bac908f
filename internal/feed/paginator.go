package feed

import (
	"context"

	"github.com/hitoshi/shikujiri/internal/model"
)

// State はフィード画面の明示的な状態オブジェクト。
// UIフレームワークに依存せず、Paginatorの各操作が更新後のコピーを返す。
type State struct {
	// Posts は取得済みページを順に連結した累積リスト。
	Posts []model.EnrichedPost
	// NextPage は次に要求するページ番号（0始まり）。
	NextPage int
	// HasMore はストアにまだページが残っているか。
	// 一度falseになったら以降のページ要求は行われない。
	HasMore bool
	// InitialLoading はページ0が実行中か。FetchingMoreとは排他。
	InitialLoading bool
	// FetchingMore はページ1以降が実行中か。InitialLoadingとは排他。
	FetchingMore bool
	// Err は直近のストア障害。設定されている間は自動ページネーションを停止し、
	// Retryによる明示的な再試行のみを受け付ける。
	Err error
}

// PageLoader はページ合成サービスのインターフェース。
// 通常は*Serviceが実装し、テストではモックに差し替える。
type PageLoader interface {
	GetPage(ctx context.Context, viewerID, sessionID string, page, pageSize int) (*Page, error)
}

// Paginator はフィードのページ単位の取得→追記ループを駆動する状態機械。
//
// すべてのメソッドは単一のイベントループ（協調スケジューリング）から
// 呼び出される契約であり、Paginator自身はロックを持たない。
// ローダーの往復がサスペンションポイントとなるため、その間にResetが
// 呼ばれた場合に備えて各完了は世代番号で「まだ有効か」を確認し、
// 無効になった応答は状態を変更せずに破棄する。
type Paginator struct {
	loader    PageLoader
	viewerID  string
	sessionID string
	pageSize  int

	gen   uint64
	state State
}

// NewPaginator はPaginatorの新しいインスタンスを生成する。
func NewPaginator(loader PageLoader, viewerID, sessionID string, pageSize int) *Paginator {
	return &Paginator{
		loader:    loader,
		viewerID:  viewerID,
		sessionID: sessionID,
		pageSize:  pageSize,
		state:     State{HasMore: true},
	}
}

// State は現在の状態のコピーを返す。
func (p *Paginator) State() State {
	return p.state
}

// LoadInitial はページ0を読み込み、フィードの累積を最初からやり直す。
// 実行中の読み込みがある間は何もしない。
func (p *Paginator) LoadInitial(ctx context.Context) State {
	if p.state.InitialLoading || p.state.FetchingMore {
		return p.state
	}

	p.state = State{HasMore: true, InitialLoading: true}
	gen := p.gen

	page, err := p.loader.GetPage(ctx, p.viewerID, p.sessionID, 0, p.pageSize)
	if p.gen != gen {
		// Reset後に届いた応答は破棄する
		return p.state
	}

	p.state.InitialLoading = false
	if err != nil {
		p.state.Err = err
		return p.state
	}

	p.state.Posts = page.Items
	p.state.NextPage = 1
	p.state.HasMore = page.HasMore
	return p.state
}

// OnScrollNearEnd はスクロール近接シグナルを受けて次ページを要求する。
// HasMoreがfalse、読み込み実行中、エラー状態、または初回読み込み前は何もしない。
// このガードにより同一ページへの重複要求は発生せず、
// ページNの追記が完了（または失敗）するまでページN+1は要求されない。
func (p *Paginator) OnScrollNearEnd(ctx context.Context) State {
	if !p.state.HasMore || p.state.InitialLoading || p.state.FetchingMore || p.state.Err != nil {
		return p.state
	}
	if p.state.NextPage == 0 {
		// ページ0はLoadInitialのみが要求する
		return p.state
	}
	return p.loadMore(ctx)
}

// Retry は直近のストア障害からの明示的な再試行。
// エラー状態を解除し、失敗したページを再要求する。取得済みの投稿は保持される。
// エラー状態でない場合は何もしない。
func (p *Paginator) Retry(ctx context.Context) State {
	if p.state.Err == nil {
		return p.state
	}
	p.state.Err = nil
	if p.state.NextPage == 0 {
		return p.LoadInitial(ctx)
	}
	return p.loadMore(ctx)
}

// Reset は新しいフィードセッションを開始する。
// 実行中の読み込みの応答は世代番号の不一致により破棄される。
func (p *Paginator) Reset() {
	p.gen++
	p.state = State{HasMore: true}
}

// loadMore は次ページを取得して累積リストへ追記する。
func (p *Paginator) loadMore(ctx context.Context) State {
	p.state.FetchingMore = true
	gen := p.gen

	page, err := p.loader.GetPage(ctx, p.viewerID, p.sessionID, p.state.NextPage, p.pageSize)
	if p.gen != gen {
		return p.state
	}

	p.state.FetchingMore = false
	if err != nil {
		// 取得済みの投稿は破棄しない
		p.state.Err = err
		return p.state
	}

	p.state.Posts = append(p.state.Posts, page.Items...)
	p.state.NextPage++
	p.state.HasMore = page.HasMore
	return p.state
}
