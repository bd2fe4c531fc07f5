package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleConfig holds the OAuth client registration used for Google sign-in.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	Scopes       []string
	// ListenAddr is the loopback address for the redirect listener. Defaults to 127.0.0.1:0.
	ListenAddr string
}

var defaultGoogleScopes = []string{
	"openid",
	"email",
	"profile",
	"https://www.googleapis.com/auth/gmail.modify",
}

// ErrGoogleNotConfigured is returned when no OAuth client id is set.
var ErrGoogleNotConfigured = errors.New("google sign-in is not configured: set api.google_client_id")

// GoogleAuthCode runs the loopback authorization-code flow. open receives the
// consent URL; the code Google redirects back with is returned for the backend
// to exchange.
func GoogleAuthCode(ctx context.Context, cfg GoogleConfig, open func(string) error) (string, error) {
	if strings.TrimSpace(cfg.ClientID) == "" {
		return "", ErrGoogleNotConfigured
	}
	addr := cfg.ListenAddr
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("listen for oauth redirect: %w", err)
	}
	defer ln.Close()

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = defaultGoogleScopes
	}
	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  "http://" + ln.Addr().String() + "/callback",
		Scopes:       scopes,
	}
	state := uuid.NewString()

	type result struct {
		code string
		err  error
	}
	done := make(chan result, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var res result
		switch {
		case q.Get("state") != state:
			res.err = errors.New("oauth state mismatch")
		case q.Get("error") != "":
			res.err = fmt.Errorf("google sign-in failed: %s", q.Get("error"))
		case q.Get("code") == "":
			res.err = errors.New("oauth redirect carried no code")
		default:
			res.code = q.Get("code")
		}
		if res.err != nil {
			http.Error(w, res.err.Error(), http.StatusBadRequest)
		} else {
			_, _ = fmt.Fprintln(w, "Signed in. You can close this window and return to mailkan.")
		}
		select {
		case done <- res:
		default:
		}
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("oauth redirect listener stopped", "err", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authURL := conf.AuthCodeURL(state, oauth2.AccessTypeOffline)
	if open != nil {
		if err := open(authURL); err != nil {
			return "", fmt.Errorf("open consent url: %w", err)
		}
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		return res.code, res.err
	}
}
