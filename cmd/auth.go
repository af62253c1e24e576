package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/genresort/internal/catalog"
	"github.com/desertthunder/genresort/internal/server"
	"github.com/desertthunder/genresort/internal/shared"
)

const authTimeout = 2 * time.Minute

// Auth runs the OAuth2 authorization code flow against Spotify.
//
// A temporary callback server listens on the configured host and port, the
// user's browser is sent to the authorization page, and the exchanged token
// is written back to the config file.
func (r *Runner) Auth(ctx context.Context, configFile string, noBrowser bool) error {
	authorizer, ok := r.catalog.(catalog.Authorizer)
	if !ok {
		return fmt.Errorf("%w: set spotify client_id and client_secret first", shared.ErrMissingCredentials)
	}

	state, err := shared.GenerateState()
	if err != nil {
		return err
	}

	handler := server.NewOAuthHandler(authorizer.OAuthConfig(), state)
	router := server.NewBasicRouter()
	router.Handler(handler)

	addr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	srv := &http.Server{Addr: addr, Handler: router}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authURL := authorizer.AuthURL(state)
	if noBrowser {
		if err := r.writePlainln("Open this URL to authorize:\n%s", authURL); err != nil {
			return err
		}
	} else {
		r.logger.Info("opening browser for authorization")
		if err := shared.OpenBrowser(authURL); err != nil {
			r.logger.Warnf("could not open browser: %v", err)
			if err := r.writePlainln("Open this URL to authorize:\n%s", authURL); err != nil {
				return err
			}
		}
	}

	select {
	case err := <-serverErr:
		return fmt.Errorf("callback server failed: %w", err)
	case <-time.After(authTimeout):
		return fmt.Errorf("%w: no authorization callback received", shared.ErrTimeout)
	case <-ctx.Done():
		return ctx.Err()
	case result := <-handler.Result():
		if result.Error() != nil {
			return fmt.Errorf("%w: %v", shared.ErrAuthFailed, result.Error())
		}

		if err := r.config.Credentials.Spotify.Update(result.Token); err != nil {
			return err
		}
		if err := shared.SaveConfig(configFile, r.config); err != nil {
			return err
		}

		if spotify, ok := r.catalog.(*catalog.SpotifyCatalog); ok {
			spotify.SetToken(ctx, result.Token)
		}

		r.logger.Info("authorization complete, token saved")
		return r.writePlainln("Authorized with %s. You can now run 'genresort sync'.", r.catalog.Name())
	}
}

// AuthStatus reports whether a usable token is stored and when it expires.
func (r *Runner) AuthStatus(ctx context.Context) error {
	creds := r.config.Credentials.Spotify

	if creds.ClientID == "" || creds.ClientSecret == "" {
		return r.writePlainln("Not configured: missing spotify client credentials. Run 'genresort setup'.")
	}

	token := creds.Token()
	if token == nil {
		return r.writePlainln("Not authorized. Run 'genresort auth'.")
	}

	if !token.Expiry.IsZero() && token.Expiry.Before(time.Now()) {
		if token.RefreshToken != "" {
			return r.writePlainln("Access token expired at %s; it will refresh on the next sync.",
				token.Expiry.Format(time.RFC3339))
		}
		return r.writePlainln("Token expired at %s and no refresh token is stored. Run 'genresort auth'.",
			token.Expiry.Format(time.RFC3339))
	}

	who := ""
	if spotify, ok := r.catalog.(*catalog.SpotifyCatalog); ok {
		if err := spotify.Authenticate(ctx); err == nil {
			if user, err := spotify.UserProfile(ctx); err == nil {
				who = fmt.Sprintf(" as %s", user.DisplayName)
			}
		}
	}

	if token.Expiry.IsZero() {
		return r.writePlainln("Authorized%s.", who)
	}
	return r.writePlainln("Authorized%s. Access token valid until %s.", who, token.Expiry.Format(time.RFC3339))
}
