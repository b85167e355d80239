// Package session はサインイン状態の管理を提供する。
// IdPからの非同期な状態変化通知を唯一の情報源として、
// 「誰がサインインしているか」の一貫したビューを維持する。
package session

import (
	"context"
	"sync"
	"time"

	"github.com/ssato/atelier/internal/model"
)

// DefaultInitTimeout は初回通知を待つフォールバックタイムアウト。
// この時間までに通知が1件も届かない場合、未認証として確定する。
const DefaultInitTimeout = 5 * time.Second

// UserIdentity はIdPが報告したサインイン中のユーザーを表す。
type UserIdentity struct {
	Subject    string // IdP側のユーザーID
	Email      string
	Name       string
	PictureURL string
}

// Event はIdPからの状態変化通知を表す。
// Errがnilの場合、Identityがnilなら未認証、非nilなら認証済みを意味する。
type Event struct {
	Identity *UserIdentity
	Err      error
}

// IdentityProvider は対話型認証を行う外部IdPのインターフェース。
type IdentityProvider interface {
	// Subscribe は状態変化リスナーを登録し、解除関数を返す。
	// リスナーはセッション状態が変わるたびにEventを受け取る。
	Subscribe(fn func(Event)) (func(), error)

	// SignIn は対話型サインインフローを開始する。
	// 成功してもidentityは返さない。結果はSubscribeのリスナー経由で通知される。
	SignIn(ctx context.Context) error

	// SignOut はIdPにセッション終了を要求する。
	// 結果の未認証状態はリスナー経由で通知される。
	SignOut(ctx context.Context) error
}

// State はセッションの状態を表す。
type State string

const (
	// StateInitializing は初回通知もタイムアウトもまだの状態。
	StateInitializing State = "initializing"
	// StateAuthenticated はサインイン済みの状態。
	StateAuthenticated State = "authenticated"
	// StateUnauthenticated は未サインインの状態。
	StateUnauthenticated State = "unauthenticated"
)

// Snapshot はある時点のセッション状態のコピー。
type Snapshot struct {
	State    State
	Identity *UserIdentity
	Loading  bool
	Err      *model.AuthError
}

// Manager はサインイン状態の唯一の保持者。
//
// identityを書き換えるのはリスナーコールバックのみであり、
// SignIn/SignOutの完了ハンドラは直接identityを設定しない。
// 操作のローカルな完了とリスナーの非同期通知との競合を避けるための設計で、
// identityの更新はIdPの通知レイテンシに依存する。
type Manager struct {
	provider IdentityProvider

	mu          sync.Mutex
	identity    *UserIdentity
	loading     bool
	received    bool // 初回通知を受け取ったか
	inFlight    bool // SignInが実行中か
	lastErr     *model.AuthError
	timer       *time.Timer
	unsubscribe func()
}

// NewManager はManagerを生成し、リスナー登録とフォールバックタイマーの起動を行う。
// リスナー登録に失敗した場合も致命的とはせず、エラーチャネル経由で報告する
// （その場合、状態はタイマーにより未認証へ確定する）。
// initTimeoutが0以下の場合はDefaultInitTimeoutを使用する。
// 使い終わったらCloseを呼ぶこと。
func NewManager(provider IdentityProvider, initTimeout time.Duration) *Manager {
	if initTimeout <= 0 {
		initTimeout = DefaultInitTimeout
	}

	m := &Manager{
		provider: provider,
		loading:  true,
	}

	unsub, err := provider.Subscribe(m.handleEvent)
	if err != nil {
		m.mu.Lock()
		m.lastErr = Classify(err)
		m.mu.Unlock()
	} else {
		m.unsubscribe = unsub
	}

	// タイマーは1回だけ発火し、再アームしない
	m.timer = time.AfterFunc(initTimeout, m.handleTimeout)

	return m
}

// handleEvent はIdPからの状態変化通知を処理する。
// identityを書き換える唯一の経路。
func (m *Manager) handleEvent(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.received = true
	m.loading = false
	if m.timer != nil {
		m.timer.Stop()
	}

	if ev.Err != nil {
		// リスナーからのエラーはidentityを変更しない
		m.lastErr = Classify(ev.Err)
		return
	}

	m.identity = ev.Identity
}

// handleTimeout は初回通知のフォールバックタイムアウトを処理する。
// 通知が既に届いている場合、またはSignInが実行中の場合は何もしない。
// 実行中のSignInのloadingは、その完了処理が解除する。
func (m *Manager) handleTimeout() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.received && !m.inFlight {
		m.loading = false
	}
}

// SignIn は対話型サインインフローを開始する。
// 開始前にloadingを立て、前回のエラーをクリアする。
// 失敗時はエラーを分類して記録する。成否に関わらずloadingは解除される。
// 成功してもidentityはここでは設定されず、リスナー通知を待つ。
func (m *Manager) SignIn(ctx context.Context) error {
	m.mu.Lock()
	m.loading = true
	m.inFlight = true
	m.lastErr = nil
	m.mu.Unlock()

	err := m.provider.SignIn(ctx)

	m.mu.Lock()
	m.loading = false
	m.inFlight = false
	if err != nil {
		m.lastErr = Classify(err)
	}
	m.mu.Unlock()

	return err
}

// SignOut はIdPにセッション終了を要求する。
// 失敗時はIdPの生メッセージを記録するが、loadingは変更しない。
// 成功時の未認証状態はリスナー通知で反映される。
func (m *Manager) SignOut(ctx context.Context) error {
	err := m.provider.SignOut(ctx)
	if err != nil {
		m.mu.Lock()
		m.lastErr = &model.AuthError{Kind: model.AuthErrorGeneric, Message: err.Error()}
		m.mu.Unlock()
	}
	return err
}

// ClearError は記録されたエラーをクリアする。他の副作用はない。
func (m *Manager) ClearError() {
	m.mu.Lock()
	m.lastErr = nil
	m.mu.Unlock()
}

// Snapshot は現在のセッション状態のコピーを返す。
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := StateUnauthenticated
	if m.identity != nil {
		state = StateAuthenticated
	} else if m.loading {
		state = StateInitializing
	}

	return Snapshot{
		State:    state,
		Identity: m.identity,
		Loading:  m.loading,
		Err:      m.lastErr,
	}
}

// Close はリスナーとタイマーを解除する。
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.timer != nil {
		m.timer.Stop()
	}
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}
