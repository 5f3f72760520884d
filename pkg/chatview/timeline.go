// Package chatview holds the client-side chat state machinery: optimistic
// message reconciliation, typing throttling, and resubscribe backoff. The
// server never depends on it; it exists so web and test clients agree on the
// protocol's client half.
package chatview

import (
	"sort"
	"time"

	"wordclash/backend/pkg/realtime"
)

// Message is one timeline entry. Pending entries are local optimistic copies
// awaiting their server echo.
type Message struct {
	ID              uint
	ClientMessageID string
	SenderID        uint
	Text            string
	SentAt          time.Time
	ReplyToID       *uint
	Reactions       map[uint]string
	Pending         bool
}

// Timeline reconciles locally-appended optimistic messages with the frames
// arriving from the server. Dedup keys, in order: server id, then client
// message id.
type Timeline struct {
	messages []Message
	byID     map[uint]int
	byClient map[string]int
}

func NewTimeline() *Timeline {
	return &Timeline{
		byID:     map[uint]int{},
		byClient: map[string]int{},
	}
}

// AppendLocal inserts the optimistic copy shown before the server confirms.
func (t *Timeline) AppendLocal(clientMessageID string, senderID uint, text string, at time.Time) {
	if _, ok := t.byClient[clientMessageID]; ok {
		return
	}
	t.messages = append(t.messages, Message{
		ClientMessageID: clientMessageID,
		SenderID:        senderID,
		Text:            text,
		SentAt:          at,
		Pending:         true,
	})
	t.byClient[clientMessageID] = len(t.messages) - 1
}

// Apply folds a server frame into the timeline. A frame for a known server
// id updates in place (reaction changes arrive this way); a frame matching a
// pending client id confirms the optimistic copy; anything else is a new
// message from another participant.
func (t *Timeline) Apply(view realtime.MessageView) {
	if idx, ok := t.byID[view.ID]; ok {
		t.set(idx, view)
		return
	}
	if view.ClientMessageID != "" {
		if idx, ok := t.byClient[view.ClientMessageID]; ok {
			t.set(idx, view)
			t.byID[view.ID] = idx
			return
		}
	}

	t.messages = append(t.messages, fromView(view))
	idx := len(t.messages) - 1
	t.byID[view.ID] = idx
	if view.ClientMessageID != "" {
		t.byClient[view.ClientMessageID] = idx
	}
	t.restoreOrder()
}

// Fail rolls back the optimistic copy after the send is rejected or times
// out. Confirmed messages are left alone.
func (t *Timeline) Fail(clientMessageID string) {
	idx, ok := t.byClient[clientMessageID]
	if !ok || !t.messages[idx].Pending {
		return
	}
	t.messages = append(t.messages[:idx], t.messages[idx+1:]...)
	delete(t.byClient, clientMessageID)
	for i, m := range t.messages[idx:] {
		if m.ID != 0 {
			t.byID[m.ID] = idx + i
		}
		if m.ClientMessageID != "" {
			t.byClient[m.ClientMessageID] = idx + i
		}
	}
}

// Messages returns the timeline oldest-first.
func (t *Timeline) Messages() []Message {
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// PendingCount reports how many optimistic copies still await their echo.
func (t *Timeline) PendingCount() int {
	n := 0
	for _, m := range t.messages {
		if m.Pending {
			n++
		}
	}
	return n
}

func (t *Timeline) set(idx int, view realtime.MessageView) {
	clientID := t.messages[idx].ClientMessageID
	t.messages[idx] = fromView(view)
	if t.messages[idx].ClientMessageID == "" {
		t.messages[idx].ClientMessageID = clientID
	}
}

// restoreOrder re-sorts after an out-of-order arrival and rebuilds indexes.
// History backfill lands here.
func (t *Timeline) restoreOrder() {
	if sort.SliceIsSorted(t.messages, t.less) {
		return
	}
	sort.SliceStable(t.messages, t.less)
	for i, m := range t.messages {
		if m.ID != 0 {
			t.byID[m.ID] = i
		}
		if m.ClientMessageID != "" {
			t.byClient[m.ClientMessageID] = i
		}
	}
}

func (t *Timeline) less(i, j int) bool {
	return t.messages[i].SentAt.Before(t.messages[j].SentAt)
}

func fromView(v realtime.MessageView) Message {
	return Message{
		ID:              v.ID,
		ClientMessageID: v.ClientMessageID,
		SenderID:        v.SenderID,
		Text:            v.Text,
		SentAt:          v.SentAt,
		ReplyToID:       v.ReplyToID,
		Reactions:       v.Reactions,
	}
}
