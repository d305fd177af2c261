package services

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/scorg/internal/shared"
	"golang.org/x/oauth2"
)

// PersistingTokenSource wraps an [oauth2.TokenSource] and reports every rotated token.
type PersistingTokenSource struct {
	mu        sync.Mutex
	src       oauth2.TokenSource
	current   string
	onRefresh func(*oauth2.Token) error
	logger    *log.Logger
}

// NewPersistingTokenSource wraps src. initial is the token src starts from; onRefresh may be nil.
func NewPersistingTokenSource(src oauth2.TokenSource, initial *oauth2.Token, onRefresh func(*oauth2.Token) error, logger *log.Logger) *PersistingTokenSource {
	p := &PersistingTokenSource{src: src, onRefresh: onRefresh, logger: logger}
	if initial != nil {
		p.current = initial.AccessToken
	}
	return p
}

// Token returns a valid token, refreshing it when expired. A failed save is logged and the new token is still returned.
func (p *PersistingTokenSource) Token() (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	token, err := p.src.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrTokenExpired, err)
	}

	if token.AccessToken == p.current {
		return token, nil
	}
	p.current = token.AccessToken

	if p.logger != nil {
		p.logger.Debug("access token refreshed", "expiry", token.Expiry)
	}
	if p.onRefresh != nil {
		if err := p.onRefresh(token); err != nil && p.logger != nil {
			p.logger.Warn("failed to persist refreshed token", "error", err)
		}
	}

	return token, nil
}
