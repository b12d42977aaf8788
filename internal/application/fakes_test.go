package application

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/Tobito320/ryxsurf/internal/domain"
	"github.com/Tobito320/ryxsurf/internal/ports"
	"github.com/Tobito320/ryxsurf/internal/seal"
)

var testKDF = seal.Params{Time: 1, MemoryKiB: 8 * 1024, Threads: 1}

func mockAnyContext() interface{} {
	return mock.Anything
}

type fakeHandle struct{ id string }

func (h *fakeHandle) HandleID() string { return h.id }

type fakeEngine struct {
	created    int
	live       map[string]bool
	captureErr error
	noImage    bool
	captures   int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{live: map[string]bool{}}
}

func (e *fakeEngine) Create(context.Context, string) (ports.Handle, error) {
	e.created++
	h := &fakeHandle{id: fmt.Sprintf("h%d", e.created)}
	e.live[h.id] = true
	return h, nil
}

func (e *fakeEngine) Destroy(h ports.Handle) error {
	if !e.live[h.HandleID()] {
		return errors.New("double destroy")
	}
	delete(e.live, h.HandleID())
	return nil
}

func (e *fakeEngine) Navigate(context.Context, ports.Handle, string) error { return nil }

func (e *fakeEngine) CaptureSnapshot(context.Context, ports.Handle) (image.Image, error) {
	e.captures++
	if e.captureErr != nil {
		return nil, e.captureErr
	}
	if e.noImage {
		return nil, nil
	}
	return image.NewRGBA(image.Rect(0, 0, 8, 8)), nil
}

func (e *fakeEngine) OnTitleChanged(ports.Handle, func(string)) {}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fakeSnapshotStore struct {
	mu      sync.Mutex
	metas   map[string]ports.SnapshotMeta
	deleted []string
}

func newFakeSnapshotStore() *fakeSnapshotStore {
	return &fakeSnapshotStore{metas: map[string]ports.SnapshotMeta{}}
}

func (s *fakeSnapshotStore) Write(_ context.Context, _ image.Image, meta ports.SnapshotMeta) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := meta.TabID + ".png"
	s.metas[ref] = meta
	return ref, nil
}

func (s *fakeSnapshotStore) ReadMeta(_ context.Context, ref string) (ports.SnapshotMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, ok := s.metas[ref]
	if !ok {
		return ports.SnapshotMeta{}, errors.New("missing snapshot")
	}
	return meta, nil
}

func (s *fakeSnapshotStore) Delete(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.metas, ref)
	s.deleted = append(s.deleted, ref)
	return nil
}

type memoryRecordStore struct {
	meta    *ports.CryptoMeta
	record  *ports.StoredRecord
	saveErr error
	saves   int
	closed  bool
	onSave  func()
}

func (s *memoryRecordStore) LoadMeta(context.Context) (ports.CryptoMeta, bool, error) {
	if s.meta == nil {
		return ports.CryptoMeta{}, false, nil
	}
	return *s.meta, true, nil
}

func (s *memoryRecordStore) SaveMeta(_ context.Context, meta ports.CryptoMeta) error {
	s.meta = &meta
	return nil
}

func (s *memoryRecordStore) LoadRecord(context.Context) (ports.StoredRecord, bool, error) {
	if s.record == nil {
		return ports.StoredRecord{}, false, nil
	}
	return *s.record, true, nil
}

func (s *memoryRecordStore) SaveRecord(_ context.Context, record ports.StoredRecord) error {
	if s.onSave != nil {
		s.onSave()
	}
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.record = &record
	return nil
}

func (s *memoryRecordStore) Close() error {
	s.closed = true
	return nil
}

type memorySecretStore struct {
	values map[string]string
}

func newMemorySecretStore() *memorySecretStore {
	return &memorySecretStore{values: map[string]string{}}
}

func (s *memorySecretStore) Get(_ context.Context, key string) (string, error) {
	value, ok := s.values[key]
	if !ok {
		return "", fmt.Errorf("%s: %w", key, ports.ErrSecretNotFound)
	}
	return value, nil
}

func (s *memorySecretStore) Put(_ context.Context, key, value string) error {
	s.values[key] = value
	return nil
}

func (s *memorySecretStore) Delete(_ context.Context, key string) error {
	delete(s.values, key)
	return nil
}

// deferredExecutor queues work so tests decide when completions land.
type deferredExecutor struct {
	queue []func()
}

func (e *deferredExecutor) Go(work func(), done func()) {
	e.queue = append(e.queue, func() {
		work()
		done()
	})
}

func (e *deferredExecutor) Post(fn func()) { fn() }

func (e *deferredExecutor) Drain() {
	queue := e.queue
	e.queue = nil
	for _, fn := range queue {
		fn()
	}
}

// manualScheduler records scheduled callbacks and fires them on demand.
type manualScheduler struct {
	fns     []func()
	stopped int
}

func (s *manualScheduler) Every(_ time.Duration, fn func()) func() {
	s.fns = append(s.fns, fn)
	index := len(s.fns) - 1
	return func() {
		s.fns[index] = nil
		s.stopped++
	}
}

func (s *manualScheduler) Tick() {
	for _, fn := range s.fns {
		if fn != nil {
			fn()
		}
	}
}

type recordingMetrics struct {
	ports.NopMetrics
	loaded   int
	unloaded int
	captured int
	failed   int
	saves    int
	skipped  int
}

func (m *recordingMetrics) SetLoadedTabs(n int) { m.loaded = n }
func (m *recordingMetrics) TabsUnloaded(n int)  { m.unloaded += n }
func (m *recordingMetrics) SaveSkipped()        { m.skipped++ }

func (m *recordingMetrics) SnapshotCaptured(ok bool) {
	if ok {
		m.captured++
		return
	}
	m.failed++
}

func (m *recordingMetrics) SaveFinished(time.Duration, error) { m.saves++ }

type testTree struct {
	tree   *domain.SessionManager
	engine *fakeEngine
	clock  *fakeClock
	store  *fakeSnapshotStore
	snaps  *SnapshotManager
}

func newTestTree(opts ...Option) testTree {
	engine := newFakeEngine()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := newFakeSnapshotStore()
	snaps := NewSnapshotManager(engine, store, true, append([]Option{WithClock(clock)}, opts...)...)
	env := &domain.Env{Engine: engine, Clock: clock, TabClosed: snaps.TabClosed}

	return testTree{
		tree:   domain.NewSessionManager(env),
		engine: engine,
		clock:  clock,
		store:  store,
		snaps:  snaps,
	}
}

func mockAnyMeta() interface{} {
	return mock.AnythingOfType("ports.CryptoMeta")
}

func mockAnyRecord() interface{} {
	return mock.AnythingOfType("ports.StoredRecord")
}
