package tally

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/juSt-jeLLy/clashofclouthosting/internal/common"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/logging"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLedger struct {
	entries []models.SubmittedEntry
	err     error
}

func (f fakeLedger) SubmittedEntries(context.Context) ([]models.SubmittedEntry, error) {
	return f.entries, f.err
}

type fakeMetadata struct {
	mu    sync.Mutex
	docs  map[string]models.MetadataDocument
	calls []string
}

func (f *fakeMetadata) Fetch(_ context.Context, cid string) (models.MetadataDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cid)
	d, ok := f.docs[cid]
	if !ok {
		return models.MetadataDocument{}, common.ErrNotFound
	}
	return d, nil
}

type fakeReactions struct {
	counts   map[string]int
	delay    time.Duration
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeReactions) ReactionCount(_ context.Context, ref models.ChatMessageRef) (int, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(f.delay)
	c, ok := f.counts[ref.MessageID]
	if !ok {
		return 0, errors.New("unknown message")
	}
	return c, nil
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]models.CachedEntry
	scores  map[string]int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]models.CachedEntry{}, scores: map[string]int{}}
}

func (f *fakeCache) Upsert(_ context.Context, cid, creator string, doc models.MetadataDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[cid] = models.CachedEntry{CID: cid, Creator: creator, Document: doc}
	return nil
}

func (f *fakeCache) Find(_ context.Context, cid string) (*models.CachedEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[cid]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &e, nil
}

func (f *fakeCache) UpdateScore(_ context.Context, cid string, score int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scores[cid] = score
	return nil
}

func doc(msg string) models.MetadataDocument {
	return models.MetadataDocument{Meme: "m", DiscordMessageURL: "https://discord.com/channels/1/2/" + msg, GifURL: "g"}
}

func TestTally_ScoresInLedgerOrder(t *testing.T) {
	ledger := fakeLedger{entries: []models.SubmittedEntry{
		{CID: "a", Creator: "0x1"}, {CID: "b", Creator: "0x1"}, {CID: "c", Creator: "0x2"},
	}}
	meta := &fakeMetadata{docs: map[string]models.MetadataDocument{"a": doc("10"), "b": doc("11"), "c": doc("12")}}
	reactions := &fakeReactions{counts: map[string]int{"10": 5, "11": 9, "12": 2}}

	results, err := New(ledger, meta, reactions, nil, 3, logging.Discard()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.EngagementResult{
		{CID: "a", Creator: "0x1", Score: 5},
		{CID: "b", Creator: "0x1", Score: 9},
		{CID: "c", Creator: "0x2", Score: 2},
	}, results)
}

func TestTally_ExcludeAndContinue(t *testing.T) {
	ledger := fakeLedger{entries: []models.SubmittedEntry{{CID: "ok"}, {CID: "missing"}, {CID: "badref"}, {CID: "deleted"}}}
	meta := &fakeMetadata{docs: map[string]models.MetadataDocument{
		"ok":      doc("1"),
		"badref":  {DiscordMessageURL: "https://discord.com/channels/x"},
		"deleted": doc("404"),
	}}
	reactions := &fakeReactions{counts: map[string]int{"1": 3}}

	results, err := New(ledger, meta, reactions, nil, 2, logging.Discard()).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.True(t, results[0].Eligible())
	assert.Equal(t, 3, results[0].Score)
	assert.ErrorIs(t, results[1].Err, common.ErrNotFound)
	assert.ErrorIs(t, results[2].Err, common.ErrReferenceParse)
	assert.Error(t, results[3].Err)
	assert.False(t, results[3].Eligible())
}

func TestTally_CacheFirst(t *testing.T) {
	cache := newFakeCache()
	require.NoError(t, cache.Upsert(context.Background(), "a", "0x1", doc("10")))
	ledger := fakeLedger{entries: []models.SubmittedEntry{{CID: "a", Creator: "0x1"}, {CID: "b", Creator: "0x2"}}}
	meta := &fakeMetadata{docs: map[string]models.MetadataDocument{"b": doc("11")}}
	reactions := &fakeReactions{counts: map[string]int{"10": 1, "11": 4}}

	results, err := New(ledger, meta, reactions, cache, 1, logging.Discard()).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, []string{"b"}, meta.calls, "cached entry must not hit storage")

	cached, err := cache.Find(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, "0x2", cached.Creator)
	assert.Equal(t, map[string]int{"a": 1, "b": 4}, cache.scores)
}

func TestTally_DuplicateSubmissionsCountOnce(t *testing.T) {
	ledger := fakeLedger{entries: []models.SubmittedEntry{{CID: "a", BlockNumber: 1}, {CID: "b", BlockNumber: 2}, {CID: "a", BlockNumber: 3}}}
	meta := &fakeMetadata{docs: map[string]models.MetadataDocument{"a": doc("1"), "b": doc("2")}}
	reactions := &fakeReactions{counts: map[string]int{"1": 1, "2": 2}}

	results, err := New(ledger, meta, reactions, nil, 4, logging.Discard()).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].CID)
	assert.Equal(t, "b", results[1].CID)
}

func TestTally_BoundedConcurrency(t *testing.T) {
	var list []models.SubmittedEntry
	docs := map[string]models.MetadataDocument{}
	counts := map[string]int{}
	for _, id := range []string{"1", "2", "3", "4", "5", "6", "7", "8"} {
		list = append(list, models.SubmittedEntry{CID: "cid" + id})
		docs["cid"+id] = doc(id)
		counts[id] = 1
	}
	reactions := &fakeReactions{counts: counts, delay: 10 * time.Millisecond}

	results, err := New(fakeLedger{entries: list}, &fakeMetadata{docs: docs}, reactions, nil, 3, logging.Discard()).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, results, 8)
	assert.LessOrEqual(t, reactions.peak.Load(), int32(3))
}

func TestTally_LedgerError(t *testing.T) {
	boom := errors.New("rpc down")
	_, err := New(fakeLedger{err: boom}, &fakeMetadata{}, &fakeReactions{}, nil, 1, logging.Discard()).Run(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestTally_EmptyLedger(t *testing.T) {
	results, err := New(fakeLedger{}, &fakeMetadata{}, &fakeReactions{}, nil, 1, logging.Discard()).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results)
}
