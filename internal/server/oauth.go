package server

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"golang.org/x/oauth2"
)

// successPage is shown in the browser once the token exchange completes.
const successPage = `<!DOCTYPE html>
<html>
<head>
    <title>genresort authorized</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .card { text-align: center; background: white; padding: 2rem;
                border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #7D56F4; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="card">
        <h1>Authorized</h1>
        <p>genresort can now read your liked songs. Close this window and return to the terminal.</p>
    </div>
</body>
</html>
`

// OAuthResult carries the outcome of the authorization code flow.
type OAuthResult struct {
	Token *oauth2.Token
	err   error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// OAuthHandler receives the single authorization callback during
// `genresort auth` and exchanges the code for a token.
//
// Implements [Handler] for registration with a [Router]. The handler is
// single-shot: the first callback wins and later hits are rejected, so a
// stray browser refresh cannot trigger a second exchange.
type OAuthHandler struct {
	config  *oauth2.Config
	state   string
	results chan OAuthResult
	claimed atomic.Bool
	once    sync.Once
}

// NewOAuthHandler creates a callback handler bound to the given OAuth2
// config and CSRF state token.
func NewOAuthHandler(config *oauth2.Config, state string) *OAuthHandler {
	return &OAuthHandler{
		config:  config,
		state:   state,
		results: make(chan OAuthResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{"/callback"}
}

// ServeHTTP handles the authorization callback.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.claimed.CompareAndSwap(false, true) {
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}

	query := r.URL.Query()
	if query.Get("state") != h.state {
		h.reject(w, http.StatusBadRequest, "State mismatch",
			fmt.Errorf("state parameter does not match"))
		return
	}

	code := query.Get("code")
	if code == "" {
		h.reject(w, http.StatusBadRequest, "Authorization denied",
			fmt.Errorf("authorization failed: %s (%s)",
				query.Get("error"), query.Get("error_description")))
		return
	}

	token, err := h.config.Exchange(r.Context(), code)
	if err != nil {
		h.reject(w, http.StatusInternalServerError, "Token exchange failed",
			fmt.Errorf("token exchange failed: %w", err))
		return
	}

	h.send(OAuthResult{Token: token})
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, successPage)
}

// reject reports a failed flow to both the browser and the waiting CLI.
func (h *OAuthHandler) reject(w http.ResponseWriter, status int, page string, err error) {
	h.send(OAuthResult{err: err})
	http.Error(w, page, status)
}

// send delivers the result exactly once and closes the channel.
func (h *OAuthHandler) send(result OAuthResult) {
	h.once.Do(func() {
		h.results <- result
		close(h.results)
	})
}

// Result returns the channel the flow outcome is delivered on.
//
// The channel receives exactly one result and is then closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.results
}
