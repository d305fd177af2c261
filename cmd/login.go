package main

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/scorg/internal/server"
	"github.com/desertthunder/scorg/internal/services"
	"github.com/desertthunder/scorg/internal/shared"
)

// Login performs the OAuth2 authorization code flow with PKCE against SoundCloud.
//
// Starts a local HTTP server for the redirect, opens the browser for user authorization and saves the
// exchanged tokens to the config file.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	creds := r.config.Credentials.SoundCloud
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return fmt.Errorf("%w: SoundCloud client_id and client_secret must be set in %s", shared.ErrMissingCredentials, r.configPath)
	}

	svc, err := services.NewSoundCloudService(creds.Map(),
		services.WithHTTPClient(r.httpClient),
		services.WithLogger(r.logger),
	)
	if err != nil {
		return fmt.Errorf("failed to create SoundCloud service: %w", err)
	}

	token, err := r.authorize(ctx, svc, cmd.Duration("timeout"), !cmd.Bool("no-browser"))
	if err != nil {
		return err
	}

	if err := r.saveTokens(token); err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	if r.configPath != "" {
		r.writePlain("✓ Tokens saved to %s\n\n", r.configPath)
	}
	r.writePlain("You can now use: scorg organize --scope last-month\n")
	return nil
}

// authorizer is the part of [services.SoundCloudService] the login flow needs.
type authorizer interface {
	server.Exchanger
	AuthURL(state, verifier string) string
}

// authorize serves the redirect URI's path on the configured callback address and waits for the code.
func (r *Runner) authorize(ctx context.Context, svc authorizer, timeout time.Duration, openBrowser bool) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}
	verifier := oauth2.GenerateVerifier()

	handler := server.NewOAuthHandler(svc, state, verifier, callbackPath(r.config.Credentials.SoundCloud.RedirectURI))
	router := server.NewBasicRouter()
	router.Use(server.LoggingMiddleware(r.logger))
	router.Handler(handler)

	authURL := svc.AuthURL(state, verifier)
	addr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	r.logger.Info("starting OAuth callback server", "addr", addr)

	if openBrowser {
		r.writePlain("→ Opening browser for SoundCloud authorization...\n")
		if err := shared.OpenBrowser(authURL); err != nil {
			r.logger.Warnf("failed to open browser automatically %v", err)
			r.writePlainln("⚠ Could not open browser automatically.")
			openBrowser = false
		}
	}
	if !openBrowser {
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	r.writePlain("→ Waiting for authorization (%v timeout)...\n", timeout)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	token, err := server.WaitForCallback(ctx, addr, router, handler)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}
	return token, nil
}

// callbackPath returns the path component of redirectURI, defaulting to /callback.
func callbackPath(redirectURI string) string {
	u, err := url.Parse(redirectURI)
	if err != nil || u.Path == "" {
		return "/callback"
	}
	return u.Path
}
