// SoundCloud API implementation of [Service]
//
// Response types based on https://developers.soundcloud.com/docs/api/explorer/open-api
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/scorg/internal/models"
	"github.com/desertthunder/scorg/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	soundcloudAuthURL  = "https://secure.soundcloud.com/authorize"
	soundcloudTokenURL = "https://secure.soundcloud.com/oauth/token"
	soundcloudBaseURL  = "https://api.soundcloud.com"

	defaultRedirectURI = "http://127.0.0.1:8080/callback"
	defaultPageSize    = 50
	maxPageSize        = 200
)

// legacyTimeLayout is the older timestamp format still returned by some endpoints.
const legacyTimeLayout = "2006/01/02 15:04:05 -0700"

// scID is a SoundCloud numeric identifier kept as a string.
type scID string

func (id *scID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		s = ""
	}
	*id = scID(s)
	return nil
}

func (id scID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// scTime accepts RFC 3339 and the legacy "2006/01/02 15:04:05 +0000" format.
type scTime struct {
	time.Time
}

func (t *scTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, legacyTimeLayout} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

// SoundCloudUser represents the uploader of a track.
type SoundCloudUser struct {
	ID       scID   `json:"id"`
	Username string `json:"username"`
}

// SoundCloudTrack represents a track resource.
type SoundCloudTrack struct {
	ID         scID           `json:"id"`
	Title      string         `json:"title"`
	DurationMS int64          `json:"duration"`
	CreatedAt  scTime         `json:"created_at"`
	User       SoundCloudUser `json:"user"`
}

// SoundCloudActivity is one entry of /me/activities/tracks.
type SoundCloudActivity struct {
	Type      string           `json:"type"` // track, track-repost, playlist, ...
	CreatedAt scTime           `json:"created_at"`
	Origin    *SoundCloudTrack `json:"origin"`
}

// SoundCloudPlaylist represents a playlist resource.
type SoundCloudPlaylist struct {
	ID         scID              `json:"id"`
	Title      string            `json:"title"`
	Sharing    string            `json:"sharing"`
	TrackCount int               `json:"track_count"`
	Tracks     []SoundCloudTrack `json:"tracks"`
}

type activityPage struct {
	Collection []SoundCloudActivity `json:"collection"`
	NextHref   string               `json:"next_href"`
}

type playlistPage struct {
	Collection []SoundCloudPlaylist `json:"collection"`
	NextHref   string               `json:"next_href"`
}

type trackRef struct {
	ID scID `json:"id"`
}

type playlistPayload struct {
	Playlist playlistBody `json:"playlist"`
}

type playlistBody struct {
	Title   string     `json:"title,omitempty"`
	Sharing string     `json:"sharing,omitempty"`
	Tracks  []trackRef `json:"tracks"`
}

func (t SoundCloudTrack) item(kind string) models.Item {
	return models.Item{
		ID:        string(t.ID),
		Title:     t.Title,
		User:      t.User.Username,
		Kind:      kind,
		Duration:  time.Duration(t.DurationMS) * time.Millisecond,
		CreatedAt: t.CreatedAt.Time,
	}
}

func (p SoundCloudPlaylist) collection() *models.Collection {
	count := p.TrackCount
	if count == 0 {
		count = len(p.Tracks)
	}
	return &models.Collection{ID: string(p.ID), Title: p.Title, Sharing: p.Sharing, TrackCount: count}
}

// APIError is a non-2xx response.
type APIError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("soundcloud API error: %s %s: status %d", e.Method, e.URL, e.Status)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Is matches [shared.ErrNotAuthenticated] for 401 responses and [shared.ErrAPIRequest] otherwise.
func (e *APIError) Is(target error) bool {
	if e.Status == http.StatusUnauthorized {
		return target == shared.ErrNotAuthenticated
	}
	return target == shared.ErrAPIRequest
}

// ClientOption configures a [SoundCloudService].
type ClientOption func(*SoundCloudService)

// WithHTTPClient sets the base HTTP client used for API and token requests.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(s *SoundCloudService) { s.baseClient = client }
}

// WithBaseURL sets a custom API base URL (useful for testing).
func WithBaseURL(u string) ClientOption {
	return func(s *SoundCloudService) { s.baseURL = strings.TrimRight(u, "/") }
}

// WithEndpoint overrides the OAuth2 authorize and token URLs.
func WithEndpoint(authURL, tokenURL string) ClientOption {
	return func(s *SoundCloudService) {
		s.config.Endpoint = oauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams}
	}
}

// WithLogger logs each request at debug level.
func WithLogger(logger *log.Logger) ClientOption {
	return func(s *SoundCloudService) { s.logger = logger }
}

// WithRateLimit paces requests to rps per second. Non-positive values disable pacing.
func WithRateLimit(rps float64) ClientOption {
	return func(s *SoundCloudService) {
		if rps <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithPageSize sets the page size for paginated endpoints.
func WithPageSize(n int) ClientOption {
	return func(s *SoundCloudService) {
		if n > 0 && n <= maxPageSize {
			s.pageSize = n
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(s *SoundCloudService) { s.timeout = d }
}

// SoundCloudService implements [Service] for the SoundCloud API.
// Uses [oauth2] for authentication with automatic token refresh.
type SoundCloudService struct {
	config     *oauth2.Config
	baseClient *http.Client
	httpClient *http.Client
	baseURL    string
	pageSize   int
	timeout    time.Duration
	limiter    *rate.Limiter
	logger     *log.Logger

	mu       sync.Mutex
	appended map[string][]string // playlist id -> track ids appended by this process
}

// NewSoundCloudService creates a SoundCloud service with the given OAuth2 credentials.
func NewSoundCloudService(credentials map[string]string, opts ...ClientOption) (*SoundCloudService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = defaultRedirectURI
	}

	s := &SoundCloudService{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:   soundcloudAuthURL,
				TokenURL:  soundcloudTokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		baseClient: http.DefaultClient,
		baseURL:    soundcloudBaseURL,
		pageSize:   defaultPageSize,
		timeout:    30 * time.Second,
		limiter:    rate.NewLimiter(rate.Limit(5), 1),
		logger:     log.New(io.Discard),
		appended:   make(map[string][]string),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *SoundCloudService) Name() string {
	return "SoundCloud"
}

// AuthURL returns the authorization URL for user login with a PKCE S256 challenge derived from verifier.
func (s *SoundCloudService) AuthURL(state, verifier string) string {
	return s.config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

// Exchange trades an authorization code for a token.
func (s *SoundCloudService) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.baseClient)
	token, err := s.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
	}
	return token, nil
}

// Authenticate installs token on the service. Expired tokens are refreshed on demand and
// onRefresh, when set, receives every new token so it can be persisted.
func (s *SoundCloudService) Authenticate(ctx context.Context, token *oauth2.Token, onRefresh func(*oauth2.Token) error) error {
	if token == nil || (token.AccessToken == "" && token.RefreshToken == "") {
		return fmt.Errorf("%w: no stored token, run login first", shared.ErrNotAuthenticated)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.baseClient)
	source := NewPersistingTokenSource(s.config.TokenSource(ctx, token), token, onRefresh, s.logger)

	s.httpClient = &http.Client{
		Transport: &oauth2.Transport{Source: source, Base: s.baseClient.Transport},
		Timeout:   s.timeout,
	}
	return nil
}

// doRequest performs an authenticated, rate-limited request and decodes a JSON response into result.
func (s *SoundCloudService) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	if s.httpClient == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	apiURL := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		apiURL = s.baseURL + endpoint
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json; charset=utf-8")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s %s: %w", shared.ErrAPIRequest, method, apiURL, err)
	}
	defer resp.Body.Close()

	s.logger.Debug("soundcloud request", "method", method, "url", apiURL, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{Method: method, URL: apiURL, Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// FetchAll follows next_href through /me/activities/tracks and returns every track or
// track repost with an origin, newest first.
func (s *SoundCloudService) FetchAll(ctx context.Context, opts FetchOptions) ([]models.Item, error) {
	next := fmt.Sprintf("/me/activities/tracks?limit=%d&linked_partitioning=true", s.pageSize)
	seen := make(map[string]bool)
	earlyStop := opts.StopAfter > 0 && !opts.Since.IsZero()
	stale := 0

	var items []models.Item
	for next != "" && !seen[next] {
		seen[next] = true

		var page activityPage
		if err := s.doRequest(ctx, http.MethodGet, next, nil, &page); err != nil {
			return nil, err
		}

		for _, entry := range page.Collection {
			if entry.Origin == nil || (entry.Type != "track" && entry.Type != "track-repost") {
				continue
			}

			item := entry.Origin.item(entry.Type)
			items = append(items, item)

			if !earlyStop {
				continue
			}
			if item.CreatedAt.Before(opts.Since) {
				stale++
			} else {
				stale = 0
			}
			if stale >= opts.StopAfter {
				s.logger.Debug("stopping stream early", "stale", stale, "since", opts.Since)
				return items, nil
			}
		}

		next = page.NextHref
	}

	return items, nil
}

// FindByName returns the first of the user's playlists titled name, or nil.
func (s *SoundCloudService) FindByName(ctx context.Context, name string) (*models.Collection, error) {
	next := fmt.Sprintf("/me/playlists?limit=%d&linked_partitioning=true&show_tracks=false", s.pageSize)
	seen := make(map[string]bool)

	for next != "" && !seen[next] {
		seen[next] = true

		page, err := s.playlists(ctx, next)
		if err != nil {
			return nil, err
		}

		for _, p := range page.Collection {
			if p.Title == name {
				return p.collection(), nil
			}
		}

		next = page.NextHref
	}

	return nil, nil
}

// playlists decodes either a linked-partitioning page or a bare array.
func (s *SoundCloudService) playlists(ctx context.Context, endpoint string) (*playlistPage, error) {
	var raw json.RawMessage
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &raw); err != nil {
		return nil, err
	}

	var page playlistPage
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &page.Collection); err != nil {
			return nil, fmt.Errorf("failed to decode playlists: %w", err)
		}
		return &page, nil
	}

	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("failed to decode playlists: %w", err)
	}
	return &page, nil
}

// Create makes an empty playlist.
func (s *SoundCloudService) Create(ctx context.Context, name, visibility string) (*models.Collection, error) {
	if visibility == "" {
		visibility = Public
	}

	payload := playlistPayload{Playlist: playlistBody{Title: name, Sharing: visibility, Tracks: []trackRef{}}}

	var created SoundCloudPlaylist
	if err := s.doRequest(ctx, http.MethodPost, "/playlists", payload, &created); err != nil {
		return nil, err
	}
	if created.ID == "" {
		return nil, fmt.Errorf("%w: create playlist %q returned no id", shared.ErrAPIRequest, name)
	}
	return created.collection(), nil
}

// Members returns the playlist's track ids together with ids this process already appended,
// which the API may not list yet.
func (s *SoundCloudService) Members(ctx context.Context, c *models.Collection) (map[string]struct{}, error) {
	ids, err := s.trackIDs(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{}, len(ids))
	for _, id := range s.withAppended(c.ID, ids) {
		set[id] = struct{}{}
	}
	return set, nil
}

// Append adds itemID to the playlist. The API replaces the whole track list on update,
// so the current list is read first.
func (s *SoundCloudService) Append(ctx context.Context, c *models.Collection, itemID string) error {
	current, err := s.trackIDs(ctx, c.ID)
	if err != nil {
		return err
	}

	ids := s.withAppended(c.ID, current)
	for _, id := range ids {
		if id == itemID {
			return nil
		}
	}
	ids = append(ids, itemID)

	refs := make([]trackRef, len(ids))
	for i, id := range ids {
		refs[i] = trackRef{ID: scID(id)}
	}

	endpoint := "/playlists/" + url.PathEscape(c.ID)
	if err := s.doRequest(ctx, http.MethodPut, endpoint, playlistPayload{Playlist: playlistBody{Tracks: refs}}, nil); err != nil {
		return err
	}

	s.mu.Lock()
	s.appended[c.ID] = append(s.appended[c.ID], itemID)
	s.mu.Unlock()

	c.TrackCount = len(ids)
	return nil
}

func (s *SoundCloudService) trackIDs(ctx context.Context, playlistID string) ([]string, error) {
	var playlist SoundCloudPlaylist
	if err := s.doRequest(ctx, http.MethodGet, "/playlists/"+url.PathEscape(playlistID), nil, &playlist); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
		}
		return nil, err
	}

	ids := make([]string, 0, len(playlist.Tracks))
	for _, t := range playlist.Tracks {
		if t.ID != "" {
			ids = append(ids, string(t.ID))
		}
	}
	return ids, nil
}

// withAppended returns ids followed by any locally appended ids missing from it.
func (s *SoundCloudService) withAppended(playlistID string, ids []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	present := make(map[string]bool, len(ids))
	for _, id := range ids {
		present[id] = true
	}

	out := append([]string(nil), ids...)
	for _, id := range s.appended[playlistID] {
		if !present[id] {
			out = append(out, id)
			present[id] = true
		}
	}
	return out
}
