package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/checkqueue/internal/cerr"
	"github.com/roach88/checkqueue/internal/collab"
	"github.com/roach88/checkqueue/internal/testutil"
)

func TestLoggingAdapterRecordsCompletedOnCheckCompletedMessage(t *testing.T) {
	l := openTestLog(t)
	underlying := testutil.NewFakeLogger()
	a := NewLoggingAdapter(underlying, l)

	a.Log(collab.CheckCompletedMessage, "doc_id", "A")

	events, err := l.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, KindCompleted, events[0].Kind)
	assert.Contains(t, underlying.Logs, collab.CheckCompletedMessage)
}

func TestLoggingAdapterRecordsDispatchedForOtherMessages(t *testing.T) {
	l := openTestLog(t)
	a := NewLoggingAdapter(testutil.NewFakeLogger(), l)

	a.Log("worker stopping: STOP entry consumed")

	events, err := l.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, KindDispatched, events[0].Kind)
}

func TestLoggingAdapterRecordsDroppedForUnknownLocaleAndMissingDocument(t *testing.T) {
	l := openTestLog(t)
	a := NewLoggingAdapter(testutil.NewFakeLogger(), l)

	a.ReportError(cerr.New(cerr.UnknownLocale, "paragraph locale not registered").WithDoc("A", 0, 0))
	a.ReportError(cerr.New(cerr.DocumentNotFound, "document not found").WithDoc("B", 0, 0))

	events, err := l.Recent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, KindDropped, events[0].Kind)
	assert.Equal(t, KindDropped, events[1].Kind)
}

func TestLoggingAdapterRecordsFailedForCheckFailureAndPlainErrors(t *testing.T) {
	l := openTestLog(t)
	a := NewLoggingAdapter(testutil.NewFakeLogger(), l)

	a.ReportError(cerr.Wrap(cerr.CheckFailure, "check failed", errors.New("boom")).WithDoc("A", 0, 0))
	a.ReportError(errors.New("unstructured failure"))

	events, err := l.Recent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, KindFailed, events[0].Kind)
	assert.Equal(t, KindFailed, events[1].Kind)
}
