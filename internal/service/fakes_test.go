package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/videohub/internal/media"
	"github.com/Skotchmaster/videohub/internal/repo"
	"github.com/Skotchmaster/videohub/internal/search"
	"github.com/Skotchmaster/videohub/internal/testutil"
	"github.com/Skotchmaster/videohub/pkg/tokens"
)

type fakeMedia struct {
	mu      sync.Mutex
	fail    map[string]error
	uploads []string
	deleted []string
}

func (f *fakeMedia) Upload(_ context.Context, localPath string) (*media.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if localPath == "" {
		return nil, media.ErrNoFile
	}
	if err := f.fail[localPath]; err != nil {
		return nil, err
	}
	f.uploads = append(f.uploads, localPath)
	key := "media/" + localPath
	return &media.Asset{URL: "https://cdn.example.com/" + key, Key: key}, nil
}

func (f *fakeMedia) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []any
}

func (f *fakePublisher) PublishEvent(_ context.Context, _, _ string, event any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

type fakeIndex struct {
	mu    sync.Mutex
	docs  map[string]search.ChannelDoc
	err   error
	query string
	from  int
	size  int
}

func (f *fakeIndex) Index(_ context.Context, doc search.ChannelDoc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.docs == nil {
		f.docs = map[string]search.ChannelDoc{}
	}
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeIndex) Search(_ context.Context, query string, from, size int) (int64, []search.ChannelDoc, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.query, f.from, f.size = query, from, size
	if f.err != nil {
		return 0, nil, f.err
	}
	var out []search.ChannelDoc
	for _, d := range f.docs {
		out = append(out, d)
	}
	return int64(len(out)), out, nil
}

type recordedEvent struct{ event, outcome string }

type fakeRecorder struct {
	mu   sync.Mutex
	seen []recordedEvent
}

func (f *fakeRecorder) RecordAuthEvent(event, outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, recordedEvent{event, outcome})
}

type harness struct {
	auth     *AuthService
	channels *ChannelService
	history  *HistoryService
	repo     *repo.GormRepo
	media    *fakeMedia
	pub      *fakePublisher
	index    *fakeIndex
	rec      *fakeRecorder
	codec    *tokens.Codec
}

var errBoom = errors.New("boom")

func newHarness(t *testing.T) *harness {
	t.Helper()
	r := repo.New(testutil.NewDB(t))
	codec := tokens.NewCodec([]byte("access-secret"), []byte("refresh-secret"), 15*time.Minute, 240*time.Hour)
	h := &harness{
		repo:  r,
		media: &fakeMedia{fail: map[string]error{}},
		pub:   &fakePublisher{},
		index: &fakeIndex{},
		rec:   &fakeRecorder{},
		codec: codec,
	}
	h.auth = NewAuthService(r, codec, h.media, h.pub, h.index, h.rec)
	h.channels = NewChannelService(r, h.pub, h.index)
	h.history = &HistoryService{Repo: r}
	return h
}

func registerInput(name string) RegisterInput {
	return RegisterInput{
		Username:   name,
		FullName:   "Full " + name,
		Email:      name + "@example.com",
		Password:   "Secret123",
		AvatarPath: "/tmp/" + name + "-avatar.png",
	}
}

func tokensIdentity(id uuid.UUID) tokens.Identity {
	return tokens.Identity{UserID: id.String(), Username: "ghost"}
}
