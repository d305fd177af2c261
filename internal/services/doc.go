// Package services defines the remote collaborators of the synchronizer and implements them for SoundCloud.
//
// # Interfaces
//
// [StreamSource] yields the activity stream and [CollectionStore] finds, creates, reads and appends to
// named playlists. [Service] combines both.
//
// # SoundCloud Implementation
//
// [SoundCloudService] uses OAuth2 (authorization code with PKCE) for authentication with automatic token refresh.
// [PersistingTokenSource] hands every rotated token to a callback so the caller can save it.
//
// Requests go through a [rate.Limiter] and an [http.Client] with a timeout. The stream is read from
// /me/activities/tracks following next_href; only track and track-repost entries with an origin are kept.
// Timestamps are accepted in RFC 3339 and the legacy "2006/01/02 15:04:05 +0000" form.
//
// The playlist update endpoint replaces the full track list, so [SoundCloudService.Append] reads the
// playlist, merges the ids this process already appended (the API may lag behind its own writes), and PUTs
// the result.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : Authenticate() not called or a 401 response
//   - [shared.ErrTokenExpired] : refresh failed, login needed
//   - [shared.ErrAPIRequest] : HTTP request failed; non-2xx responses are [*APIError]
//   - [shared.ErrPlaylistNotFound] : playlist id not found
package services
