package oauth

import (
	"context"
	"fmt"
	"net/http"
)

// callbackResult carries the code/state pair received on /auth/callback,
// or the error the browser redirect reported.
type callbackResult struct {
	code  string
	state string
	err   error
}

// AwaitCallback runs a local HTTP listener on cfg.CallbackPort until
// /auth/callback is hit or CallbackTimeout elapses. Every other path 404s.
// Returns the code once the query state matches expectedState.
func AwaitCallback(ctx context.Context, cfg ClientConfig, expectedState string) (code string, err error) {
	ctx, cancel := context.WithTimeout(ctx, CallbackTimeout)
	defer cancel()

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if errParam := q.Get("error"); errParam != "" {
			select {
			case results <- callbackResult{err: fmt.Errorf("oauth: authorization denied: %s", errParam)}:
			default:
			}
			http.Error(w, "authorization denied, you may close this window", http.StatusOK)
			return
		}
		select {
		case results <- callbackResult{code: q.Get("code"), state: q.Get("state")}:
		default:
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "Authorization complete, you may close this window.")
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	srv := &http.Server{Addr: fmt.Sprintf("127.0.0.1:%d", cfg.CallbackPort), Handler: mux}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	defer srv.Close()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("oauth: callback timed out waiting for authorization")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return "", fmt.Errorf("oauth: callback listener failed: %w", err)
		}
		return "", fmt.Errorf("oauth: callback listener stopped unexpectedly")
	case res := <-results:
		if res.err != nil {
			return "", res.err
		}
		if res.state != expectedState {
			return "", fmt.Errorf("oauth: state mismatch, possible CSRF")
		}
		return res.code, nil
	}
}
