// package services defines the remote collaborators of the synchronizer and implements them for SoundCloud
package services

import (
	"context"
	"time"

	"github.com/desertthunder/scorg/internal/models"
)

// Visibility values accepted by [CollectionStore.Create].
const (
	Public  = "public"
	Private = "private"
)

// FetchOptions bounds a stream fetch.
type FetchOptions struct {
	// Since is the start of the scope interval; zero disables early stop.
	Since time.Time
	// StopAfter stops paginating after this many consecutive items older than Since. Zero disables it.
	StopAfter int
}

// StreamSource produces the user's activity stream.
type StreamSource interface {
	// FetchAll pages through the stream and returns every item. An error is distinct from an empty result.
	FetchAll(ctx context.Context, opts FetchOptions) ([]models.Item, error)
}

// CollectionStore manages named remote collections and their members.
type CollectionStore interface {
	// FindByName returns the collection titled name, or nil when none exists.
	FindByName(ctx context.Context, name string) (*models.Collection, error)

	// Create makes a new empty collection.
	Create(ctx context.Context, name, visibility string) (*models.Collection, error)

	// Members returns the identifiers currently in collection.
	Members(ctx context.Context, collection *models.Collection) (map[string]struct{}, error)

	// Append adds itemID to the end of collection.
	Append(ctx context.Context, collection *models.Collection, itemID string) error
}

// Service is a provider that is both a [StreamSource] and a [CollectionStore].
type Service interface {
	StreamSource
	CollectionStore

	// Name returns the name of the service (e.g., "SoundCloud")
	Name() string
}
