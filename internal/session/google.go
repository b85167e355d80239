package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/ssato/atelier/internal/auth"
)

// GoogleProviderConfig は対話型Googleサインインの設定。
type GoogleProviderConfig struct {
	// ListenAddr はコールバックを受けるローカルアドレス。
	// OAuthクライアントのリダイレクトURLと一致させること。
	ListenAddr string

	// PromptURL は認証URLをユーザーに提示する関数。
	// 未設定の場合は標準出力に表示する。
	PromptURL func(url string)
}

// GoogleProvider はローカルコールバック方式の対話型Googleサインインを提供する。
// IdentityProviderを実装し、サインイン・サインアウトの結果は
// 登録済みリスナーへのEvent通知としてのみ反映される。
type GoogleProvider struct {
	oauth  auth.OAuthProvider
	config GoogleProviderConfig

	mu          sync.Mutex
	subscribers map[int]func(Event)
	nextID      int
}

// NewGoogleProvider はGoogleProviderを生成する。
func NewGoogleProvider(oauth auth.OAuthProvider, config GoogleProviderConfig) *GoogleProvider {
	if config.ListenAddr == "" {
		config.ListenAddr = "127.0.0.1:8910"
	}
	if config.PromptURL == nil {
		config.PromptURL = func(url string) {
			fmt.Printf("以下のURLをブラウザで開いてサインインしてください:\n%s\n", url)
		}
	}
	return &GoogleProvider{
		oauth:       oauth,
		config:      config,
		subscribers: make(map[int]func(Event)),
	}
}

// Subscribe は状態変化リスナーを登録し、解除関数を返す。
func (p *GoogleProvider) Subscribe(fn func(Event)) (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.subscribers[id] = fn

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subscribers, id)
	}, nil
}

// emit は登録済みリスナー全員にイベントを通知する。
func (p *GoogleProvider) emit(ev Event) {
	p.mu.Lock()
	fns := make([]func(Event), 0, len(p.subscribers))
	for _, fn := range p.subscribers {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// callbackResult はコールバックで受け取った認可コードまたはエラー。
type callbackResult struct {
	code string
	err  error
}

// SignIn はブラウザ経由の対話型サインインフローを実行する。
// ローカルのコールバック受け口を開き、認証URLをユーザーに提示し、
// 認可コードの到着を待ってトークン交換する。
// 成功時はリスナーにIdentityを通知し、identityを直接返すことはしない。
func (p *GoogleProvider) SignIn(ctx context.Context) error {
	state, err := generateState()
	if err != nil {
		return fmt.Errorf("failed to generate state: %w", err)
	}

	ln, err := net.Listen("tcp", p.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCallbackBlocked, err)
	}
	defer ln.Close()

	resultCh := make(chan callbackResult, 1)

	// deliverはコールバック結果を1件だけ通知する。
	// 2件目以降（リロードや迷い込んだリクエスト）は捨てて、
	// ハンドラのgoroutineをブロックさせない。
	deliver := func(result callbackResult) {
		select {
		case resultCh <- result:
		default:
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		// OAuthコールバック以外のリクエスト（favicon.ico等）は無視する
		if q.Get("code") == "" && q.Get("state") == "" && q.Get("error") == "" {
			http.NotFound(w, r)
			return
		}

		if errCode := q.Get("error"); errCode != "" {
			writeCallbackPage(w, "サインインは完了しませんでした。")
			if errCode == "access_denied" {
				deliver(callbackResult{err: ErrSignInCancelled})
				return
			}
			deliver(callbackResult{err: fmt.Errorf("oauth error: %s", errCode)})
			return
		}

		if q.Get("state") != state {
			writeCallbackPage(w, "サインインは完了しませんでした。")
			deliver(callbackResult{err: fmt.Errorf("oauth state mismatch")})
			return
		}

		code := q.Get("code")
		if code == "" {
			writeCallbackPage(w, "サインインは完了しませんでした。")
			deliver(callbackResult{err: fmt.Errorf("missing authorization code")})
			return
		}

		writeCallbackPage(w, "サインインが完了しました。このタブは閉じて構いません。")
		deliver(callbackResult{code: code})
	})

	server := &http.Server{Handler: mux}
	go server.Serve(ln)
	defer server.Close()

	p.config.PromptURL(p.oauth.LoginURL(state))

	var result callbackResult
	select {
	case <-ctx.Done():
		// 待機中の中断はユーザーによるキャンセルとして扱う
		return fmt.Errorf("%w: %v", ErrSignInCancelled, ctx.Err())
	case result = <-resultCh:
	}

	if result.err != nil {
		return result.err
	}

	userInfo, err := p.oauth.ExchangeCode(ctx, result.code)
	if err != nil {
		return classifyExchangeError(err)
	}

	p.emit(Event{Identity: &UserIdentity{
		Subject:    userInfo.ProviderUserID,
		Email:      userInfo.Email,
		Name:       userInfo.Name,
		PictureURL: userInfo.PictureURL,
	}})

	return nil
}

// SignOut はサインアウトを実行し、未認証状態をリスナーに通知する。
func (p *GoogleProvider) SignOut(ctx context.Context) error {
	p.emit(Event{Identity: nil})
	return nil
}

// classifyExchangeError はトークン交換エラーをセンチネルにマップする。
// Googleはリダイレクト先不一致・未許可オリジンをredirect_uri_mismatch等で返す。
func classifyExchangeError(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "redirect_uri_mismatch") ||
		strings.Contains(msg, "unauthorized_client") ||
		strings.Contains(msg, "origin_mismatch") {
		return fmt.Errorf("%w: %v", ErrUnauthorizedDomain, err)
	}
	return err
}

// writeCallbackPage はコールバック完了ページを表示する。
func writeCallbackPage(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<html><body><p>%s</p></body></html>", message)
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// compile-time interface check
var _ IdentityProvider = (*GoogleProvider)(nil)
