package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestRecordAndForDocument(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	require.NoError(t, l.Record(ctx, Event{Kind: KindSubmitted, DocID: "A", NStart: 0, NEnd: 5}))
	require.NoError(t, l.Record(ctx, Event{Kind: KindDispatched, DocID: "A", NStart: 0, NEnd: 5}))
	require.NoError(t, l.Record(ctx, Event{Kind: KindSubmitted, DocID: "B", NStart: 1, NEnd: 3}))

	events, err := l.ForDocument(ctx, "A")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, KindSubmitted, events[0].Kind)
	assert.Equal(t, KindDispatched, events[1].Kind)
	assert.True(t, events[0].Seq < events[1].Seq)
	assert.NotEmpty(t, events[0].ID)
	assert.False(t, events[0].CreatedAt.IsZero())
}

func TestRecentOrdersNewestFirst(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	require.NoError(t, l.Record(ctx, Event{Kind: KindSubmitted, DocID: "A"}))
	require.NoError(t, l.Record(ctx, Event{Kind: KindStopped}))

	events, err := l.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, KindStopped, events[0].Kind)
}

func TestForDocumentEmptyWhenUnknown(t *testing.T) {
	l := openTestLog(t)
	events, err := l.ForDocument(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, events)
}
