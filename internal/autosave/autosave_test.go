package autosave

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipforge/clipforge/internal/mediaref"
	"github.com/clipforge/clipforge/pkg/models"
)

// fakePersister records persisted documents and can be told to fail
type fakePersister struct {
	mu    sync.Mutex
	docs  []*models.Document
	fail  error
	block chan struct{}
}

func (f *fakePersister) Persist(ctx context.Context, doc *models.Document) error {
	if f.block != nil {
		<-f.block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.docs = append(f.docs, doc)
	return nil
}

func (f *fakePersister) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs)
}

func (f *fakePersister) last() *models.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.docs) == 0 {
		return nil
	}
	return f.docs[len(f.docs)-1]
}

func durableDoc(id string) *models.Document {
	return &models.Document{Tracks: []models.Track{
		{Type: models.TrackTypeVideo, Clips: []models.Clip{
			{ID: id, Src: "https://cdn.example.com/" + id + ".mp4", Start: 0, End: 10},
		}},
	}}
}

func ephemeralDoc() *models.Document {
	return &models.Document{Tracks: []models.Track{
		{Type: models.TrackTypeVideo, Clips: []models.Clip{
			{ID: "v1", Src: "blob:null/deadbeef", Start: 0, End: 10},
		}},
	}}
}

func TestQueueSaveMarksPendingImmediately(t *testing.T) {
	persister := &fakePersister{}
	p := New(persister, Options{Debounce: time.Hour})
	defer p.Close()

	assert.False(t, p.State().PendingChanges)
	p.QueueSave(durableDoc("v1"))
	assert.True(t, p.State().PendingChanges)
	assert.Zero(t, persister.count())
}

func TestDebounceCoalescesToLatest(t *testing.T) {
	persister := &fakePersister{}
	p := New(persister, Options{Debounce: 25 * time.Millisecond})
	defer p.Close()

	a := durableDoc("a")
	b := durableDoc("b")

	p.QueueSave(a)
	p.QueueSave(b)

	require.Eventually(t, func() bool { return persister.count() == 1 },
		time.Second, 5*time.Millisecond)

	assert.Same(t, b, persister.last())
	assert.False(t, p.State().PendingChanges)
	assert.Equal(t, 1, p.State().SaveCount)
	assert.False(t, p.State().LastSaveTime.IsZero())

	// Quiet window: no further persists
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, persister.count())
}

func TestValidationGateBlocksEphemeralReferences(t *testing.T) {
	persister := &fakePersister{}
	var cbErr error
	var cbMu sync.Mutex

	p := New(persister, Options{
		Debounce: 10 * time.Millisecond,
		OnError: func(err error) {
			cbMu.Lock()
			cbErr = err
			cbMu.Unlock()
		},
	})
	defer p.Close()

	p.QueueSave(ephemeralDoc())

	require.Eventually(t, func() bool { return p.State().Err != nil },
		time.Second, 5*time.Millisecond)

	assert.Zero(t, persister.count(), "collaborator must not be called")
	assert.True(t, errors.Is(p.State().Err, mediaref.ErrEphemeralReference))

	cbMu.Lock()
	defer cbMu.Unlock()
	require.Error(t, cbErr)
	assert.True(t, errors.Is(cbErr, mediaref.ErrEphemeralReference))
}

func TestPersistFailureRestoresPendingAndRetries(t *testing.T) {
	boom := errors.New("connection reset")
	persister := &fakePersister{fail: boom}
	p := New(persister, Options{Debounce: 10 * time.Millisecond})
	defer p.Close()

	doc := durableDoc("v1")
	p.QueueSave(doc)

	require.Eventually(t, func() bool { return p.State().Err != nil },
		time.Second, 5*time.Millisecond)

	s := p.State()
	assert.True(t, s.PendingChanges, "failed save must leave changes pending")
	assert.True(t, errors.Is(s.Err, boom))
	assert.Equal(t, 0, s.SaveCount)

	// Collaborator recovers; manual save re-attempts the same document
	persister.mu.Lock()
	persister.fail = nil
	persister.mu.Unlock()

	require.NoError(t, p.SaveNow(context.Background(), nil))
	assert.Same(t, doc, persister.last())
	assert.Equal(t, 1, p.State().SaveCount)
	assert.False(t, p.State().PendingChanges)
	assert.NoError(t, p.State().Err)
}

func TestSaveNowCancelsDebounce(t *testing.T) {
	persister := &fakePersister{}
	p := New(persister, Options{Debounce: 30 * time.Millisecond})
	defer p.Close()

	queued := durableDoc("queued")
	explicit := durableDoc("explicit")

	p.QueueSave(queued)
	require.NoError(t, p.SaveNow(context.Background(), explicit))
	assert.Same(t, explicit, persister.last())

	// The cancelled timer must not produce a stale double-save
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, persister.count())
}

func TestSaveNowWithNothingQueued(t *testing.T) {
	persister := &fakePersister{}
	p := New(persister, Options{Debounce: time.Hour})
	defer p.Close()

	require.NoError(t, p.SaveNow(context.Background(), nil))
	assert.Zero(t, persister.count())
}

func TestSaveNowRejectedWhileInFlight(t *testing.T) {
	persister := &fakePersister{block: make(chan struct{})}
	p := New(persister, Options{Debounce: 5 * time.Millisecond})
	defer p.Close()

	p.QueueSave(durableDoc("slow"))
	require.Eventually(t, func() bool { return p.State().IsSaving },
		time.Second, time.Millisecond)

	err := p.SaveNow(context.Background(), durableDoc("eager"))
	assert.ErrorIs(t, err, ErrSaveInFlight)

	close(persister.block)
	require.Eventually(t, func() bool { return p.State().SaveCount == 1 },
		time.Second, 5*time.Millisecond)
}

func TestQueueSaveDuringInFlightKeepsPending(t *testing.T) {
	persister := &fakePersister{block: make(chan struct{})}
	p := New(persister, Options{Debounce: 5 * time.Millisecond})
	defer p.Close()

	first := durableDoc("first")
	second := durableDoc("second")

	p.QueueSave(first)
	require.Eventually(t, func() bool { return p.State().IsSaving },
		time.Second, time.Millisecond)

	// Legal while a persist is in flight: updates the next cycle's document
	p.QueueSave(second)
	close(persister.block)

	require.Eventually(t, func() bool { return persister.count() == 2 },
		time.Second, 5*time.Millisecond)
	assert.Same(t, first, persister.docs[0])
	assert.Same(t, second, persister.last())
}

func TestClearPendingDiscardsWithoutPersisting(t *testing.T) {
	persister := &fakePersister{}
	p := New(persister, Options{Debounce: 20 * time.Millisecond})
	defer p.Close()

	p.QueueSave(durableDoc("v1"))
	p.ClearPending()

	assert.False(t, p.State().PendingChanges)
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, persister.count())
}

func TestCloseCancelsOutstandingTimer(t *testing.T) {
	persister := &fakePersister{}
	p := New(persister, Options{Debounce: 20 * time.Millisecond})

	p.QueueSave(durableDoc("v1"))
	p.Close()

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, persister.count())

	p.QueueSave(durableDoc("v2"))
	assert.False(t, p.State().PendingChanges)
	assert.ErrorIs(t, p.SaveNow(context.Background(), durableDoc("v3")), ErrClosed)
}
