package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	msgs     []*nats.Msg
	flushes  int
	closed   bool
	err      error
	flushErr error
}

func (f *fakeConn) PublishMsg(m *nats.Msg) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, m)
	return nil
}

func (f *fakeConn) FlushWithContext(context.Context) error {
	f.flushes++
	return f.flushErr
}

func (f *fakeConn) Close() { f.closed = true }

func TestPublishDecision(t *testing.T) {
	conn := &fakeConn{}
	p := newPublisher(conn, "", true, nil)
	ev := DecisionEvent{
		DocumentID:      "doc-1",
		Filename:        "bill.pdf",
		Context:         "invoice",
		Recommendation:  "reject",
		Action:          "block",
		ExactDuplicates: 1,
		OccurredAt:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	require.NoError(t, p.PublishDecision(context.Background(), ev))
	require.Len(t, conn.msgs, 1)
	msg := conn.msgs[0]
	assert.Equal(t, "docintel.decisions.reject", msg.Subject)
	assert.Equal(t, "doc-1", msg.Header.Get(nats.MsgIdHdr))
	assert.Equal(t, 1, conn.flushes)

	var got DecisionEvent
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, ev, got)

	p.Close()
	assert.True(t, conn.closed)
}

func TestPublishDecisionErrors(t *testing.T) {
	conn := &fakeConn{err: errors.New("connection closed")}
	p := newPublisher(conn, "custom", false, nil)
	err := p.PublishDecision(context.Background(), DecisionEvent{})
	assert.ErrorContains(t, err, "nats publish")
	assert.Equal(t, "custom", p.Subject(DecisionEvent{}))

	conn = &fakeConn{flushErr: context.DeadlineExceeded}
	p = newPublisher(conn, "custom", true, nil)
	assert.ErrorIs(t, p.PublishDecision(context.Background(), DecisionEvent{Recommendation: "accept"}), context.DeadlineExceeded)
}

func TestNoop(t *testing.T) {
	var p Publisher = Noop{}
	assert.NoError(t, p.PublishDecision(context.Background(), DecisionEvent{}))
}
