// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/desertthunder/scorg/internal/models"
	"github.com/desertthunder/scorg/internal/services"
)

// MockService is an in-memory [services.Service] that records every call.
//
// Errors keyed by collection name (FindErr, CreateErr, MembersErr) or item id (AppendErr) are returned by the matching call.
type MockService struct {
	Items      []models.Item
	FetchErr   error
	FindErr    map[string]error
	CreateErr  map[string]error
	MembersErr map[string]error
	AppendErr  map[string]error

	Calls     []string
	LastFetch services.FetchOptions

	collections []*models.Collection
	members     map[string][]string
	nextID      int
}

// NewMockService creates a MockService whose stream yields items.
func NewMockService(items ...models.Item) *MockService {
	return &MockService{
		Items:      items,
		FindErr:    map[string]error{},
		CreateErr:  map[string]error{},
		MembersErr: map[string]error{},
		AppendErr:  map[string]error{},
		members:    map[string][]string{},
	}
}

func (m *MockService) Name() string { return "mock" }

// Seed adds an existing collection holding ids.
func (m *MockService) Seed(name string, ids ...string) *models.Collection {
	m.nextID++
	c := &models.Collection{ID: fmt.Sprintf("pl-%d", m.nextID), Title: name, Sharing: services.Public, TrackCount: len(ids)}
	m.collections = append(m.collections, c)
	m.members[c.ID] = append([]string(nil), ids...)
	return c
}

// MembersOf returns the member ids of the first collection titled name, in append order.
func (m *MockService) MembersOf(name string) []string {
	for _, c := range m.collections {
		if c.Title == name {
			return m.members[c.ID]
		}
	}
	return nil
}

// CollectionNames returns every collection title in creation order.
func (m *MockService) CollectionNames() []string {
	names := make([]string, len(m.collections))
	for i, c := range m.collections {
		names[i] = c.Title
	}
	return names
}

// Mutations counts create and append calls.
func (m *MockService) Mutations() int {
	n := 0
	for _, call := range m.Calls {
		if strings.HasPrefix(call, "create:") || strings.HasPrefix(call, "append:") {
			n++
		}
	}
	return n
}

func (m *MockService) FetchAll(ctx context.Context, opts services.FetchOptions) ([]models.Item, error) {
	m.Calls = append(m.Calls, "fetch")
	m.LastFetch = opts
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	return append([]models.Item(nil), m.Items...), nil
}

func (m *MockService) FindByName(ctx context.Context, name string) (*models.Collection, error) {
	m.Calls = append(m.Calls, "find:"+name)
	if err := m.FindErr[name]; err != nil {
		return nil, err
	}
	for _, c := range m.collections {
		if c.Title == name {
			return c, nil
		}
	}
	return nil, nil
}

func (m *MockService) Create(ctx context.Context, name, visibility string) (*models.Collection, error) {
	m.Calls = append(m.Calls, "create:"+name)
	if err := m.CreateErr[name]; err != nil {
		return nil, err
	}
	c := m.Seed(name)
	c.Sharing = visibility
	return c, nil
}

func (m *MockService) Members(ctx context.Context, c *models.Collection) (map[string]struct{}, error) {
	m.Calls = append(m.Calls, "members:"+c.Title)
	if err := m.MembersErr[c.Title]; err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(m.members[c.ID]))
	for _, id := range m.members[c.ID] {
		set[id] = struct{}{}
	}
	return set, nil
}

func (m *MockService) Append(ctx context.Context, c *models.Collection, itemID string) error {
	m.Calls = append(m.Calls, "append:"+c.Title+":"+itemID)
	if err := m.AppendErr[itemID]; err != nil {
		return err
	}
	m.members[c.ID] = append(m.members[c.ID], itemID)
	c.TrackCount = len(m.members[c.ID])
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
