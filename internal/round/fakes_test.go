package round

import (
	"context"
	"sync"
	"time"

	"github.com/robalobadob/spotthebot/internal/snippet"
)

// fakeStore implements UserStore, StatsRecorder, SnippetStore and MarkerStore.
type fakeStore struct {
	mu          sync.Mutex
	users       map[string]*User // keyed by session key
	buckets     map[string]map[Bucket]int
	score       map[string]int
	ceiling     map[string]int
	snippets    []snippet.Snippet
	markers     map[string][2]int // tag -> {correct, incorrect}
	markerCalls int
	penaltySets []bool

	// injected failures
	statsErr  error
	recentErr error
	markerErr error
	clearErr  error
}

func newFakeStore(snips ...snippet.Snippet) *fakeStore {
	return &fakeStore{
		users: map[string]*User{
			"key-ada": {ID: "u-ada", PublicName: "ada"},
		},
		buckets:  map[string]map[Bucket]int{},
		score:    map[string]int{},
		ceiling:  map[string]int{},
		snippets: snips,
		markers:  map[string][2]int{},
	}
}

func (f *fakeStore) byID(id string) *User {
	for _, u := range f.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (f *fakeStore) GetUser(_ context.Context, key string) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[key]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	cp.RecentSnippetIDs = append([]string(nil), u.RecentSnippetIDs...)
	return &cp, nil
}

func (f *fakeStore) SetPenalty(_ context.Context, id string, pending bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !pending && f.clearErr != nil {
		return f.clearErr
	}
	f.byID(id).PenaltyPending = pending
	f.penaltySets = append(f.penaltySets, pending)
	return nil
}

func (f *fakeStore) AppendRecentSnippet(_ context.Context, id, snippetID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recentErr != nil {
		return f.recentErr
	}
	u := f.byID(id)
	u.RecentSnippetIDs = append(u.RecentSnippetIDs, snippetID)
	return nil
}

func (f *fakeStore) RecordBucket(_ context.Context, id string, b Bucket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statsErr != nil {
		return f.statsErr
	}
	if f.buckets[id] == nil {
		f.buckets[id] = map[Bucket]int{}
	}
	f.buckets[id][b]++
	return nil
}

func (f *fakeStore) ApplyDelta(_ context.Context, id string, _ bool, delta, maxPoints int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.score[id] += delta
	f.ceiling[id] += maxPoints
	return nil
}

func (f *fakeStore) NextSnippet(_ context.Context, u *User) (snippet.Snippet, error) {
	s, ok := snippet.Pick(f.snippets, u.RecentSnippetIDs, "test", u.ID)
	if !ok {
		return snippet.Snippet{}, ErrSnippetExhausted
	}
	return s, nil
}

func (f *fakeStore) UpdateMarkers(_ context.Context, tags []string, correct bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markerErr != nil {
		return f.markerErr
	}
	f.markerCalls++
	for _, t := range tags {
		c := f.markers[t]
		if correct {
			c[0]++
		} else {
			c[1]++
		}
		f.markers[t] = c
	}
	return nil
}

func (f *fakeStore) pending(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID(id).PenaltyPending
}

// fakeSession is a map-backed Session.
type fakeSession struct {
	values  map[string]string
	cleared int
}

func newSession(key string) *fakeSession {
	return &fakeSession{values: map[string]string{SessionKey: key}}
}

func (s *fakeSession) Value(k string) (string, bool) {
	v, ok := s.values[k]
	return v, ok
}

func (s *fakeSession) ClearIdentity() error {
	s.cleared++
	delete(s.values, IdentityKey)
	return nil
}

// fakeClock is a manually advanced Clock.
type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// words returns text with n words.
func words(n int) string {
	b := make([]byte, 0, n*2)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ' ')
		}
		b = append(b, 'w')
	}
	return string(b)
}
