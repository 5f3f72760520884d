package chatview

import (
	"testing"
	"time"

	"wordclash/backend/pkg/realtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(sec int) time.Time {
	return time.Date(2026, 3, 1, 12, 0, sec, 0, time.UTC)
}

func TestOptimisticEchoReconciles(t *testing.T) {
	tl := NewTimeline()
	tl.AppendLocal("c1", 1, "hello", at(0))
	require.Equal(t, 1, tl.PendingCount())

	tl.Apply(realtime.MessageView{ID: 10, ClientMessageID: "c1", SenderID: 1, Text: "hello", SentAt: at(1)})

	msgs := tl.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, uint(10), msgs[0].ID)
	assert.False(t, msgs[0].Pending)
	assert.Equal(t, 0, tl.PendingCount())
}

func TestFailedSendRollsBackOptimisticCopy(t *testing.T) {
	tl := NewTimeline()
	tl.Apply(realtime.MessageView{ID: 10, SenderID: 2, Text: "before", SentAt: at(0)})
	tl.AppendLocal("c1", 1, "doomed", at(1))
	tl.Apply(realtime.MessageView{ID: 11, SenderID: 2, Text: "after", SentAt: at(2)})
	require.Equal(t, 1, tl.PendingCount())

	tl.Fail("c1")

	msgs := tl.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, uint(10), msgs[0].ID)
	assert.Equal(t, uint(11), msgs[1].ID)
	assert.Equal(t, 0, tl.PendingCount())

	// Indexes survive the removal: updates to the later message still land.
	tl.Apply(realtime.MessageView{
		ID: 11, SenderID: 2, Text: "after", SentAt: at(2),
		Reactions: map[uint]string{1: "👍"},
	})
	assert.Equal(t, "👍", tl.Messages()[1].Reactions[1])
}

func TestFailIgnoresConfirmedMessages(t *testing.T) {
	tl := NewTimeline()
	tl.AppendLocal("c1", 1, "hello", at(0))
	tl.Apply(realtime.MessageView{ID: 10, ClientMessageID: "c1", SenderID: 1, Text: "hello", SentAt: at(1)})

	// A late local timeout after the echo arrived must not drop the message.
	tl.Fail("c1")

	assert.Len(t, tl.Messages(), 1)
}

func TestServerIDDedupWinsOverClientID(t *testing.T) {
	tl := NewTimeline()
	tl.Apply(realtime.MessageView{ID: 10, ClientMessageID: "c1", SenderID: 1, Text: "hello", SentAt: at(0)})

	// The same frame redelivered after a resubscribe must not duplicate.
	tl.Apply(realtime.MessageView{ID: 10, ClientMessageID: "c1", SenderID: 1, Text: "hello", SentAt: at(0)})

	assert.Len(t, tl.Messages(), 1)
}

func TestReactionUpdateArrivesInPlace(t *testing.T) {
	tl := NewTimeline()
	tl.Apply(realtime.MessageView{ID: 10, SenderID: 1, Text: "react", SentAt: at(0)})
	tl.Apply(realtime.MessageView{ID: 11, SenderID: 2, Text: "later", SentAt: at(5)})

	tl.Apply(realtime.MessageView{
		ID: 10, SenderID: 1, Text: "react", SentAt: at(0),
		Reactions: map[uint]string{2: "🔥"},
	})

	msgs := tl.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "🔥", msgs[0].Reactions[2])
	assert.Equal(t, uint(11), msgs[1].ID)
}

func TestPeerMessagesInterleaveBySentAt(t *testing.T) {
	tl := NewTimeline()
	tl.AppendLocal("c1", 1, "mine", at(3))
	tl.Apply(realtime.MessageView{ID: 20, SenderID: 2, Text: "earlier", SentAt: at(1)})
	tl.Apply(realtime.MessageView{ID: 21, SenderID: 2, Text: "later", SentAt: at(6)})

	msgs := tl.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "earlier", msgs[0].Text)
	assert.Equal(t, "mine", msgs[1].Text)
	assert.Equal(t, "later", msgs[2].Text)
}

func TestDuplicateLocalAppendIgnored(t *testing.T) {
	tl := NewTimeline()
	tl.AppendLocal("c1", 1, "once", at(0))
	tl.AppendLocal("c1", 1, "once", at(0))
	assert.Len(t, tl.Messages(), 1)
}

func TestTypingThrottleLimitsRate(t *testing.T) {
	th := NewTypingThrottle()
	now := at(0)
	th.now = func() time.Time { return now }

	assert.True(t, th.ShouldSend())
	assert.False(t, th.ShouldSend())

	now = now.Add(time.Second)
	assert.False(t, th.ShouldSend())

	now = now.Add(3 * time.Second)
	assert.True(t, th.ShouldSend())
}

func TestTypingSetExpiresSilentPeers(t *testing.T) {
	ts := NewTypingSet()
	now := at(0)
	ts.now = func() time.Time { return now }

	ts.Observe(2, true)
	ts.Observe(3, true)
	assert.Len(t, ts.Active(), 2)

	ts.Observe(3, false)
	assert.Equal(t, []uint{2}, ts.Active())

	now = now.Add(10 * time.Second)
	assert.Empty(t, ts.Active())
}

func TestBackoffDoublesAndResets(t *testing.T) {
	b := NewBackoff()
	assert.Equal(t, time.Second, b.Next())
	assert.Equal(t, 2*time.Second, b.Next())
	assert.Equal(t, 4*time.Second, b.Next())

	for i := 0; i < 10; i++ {
		b.Next()
	}
	assert.Equal(t, 30*time.Second, b.Next())

	b.Reset()
	assert.Equal(t, time.Second, b.Next())
}
