package partyline

import (
	"context"
	"errors"
	"testing"

	"github.com/danmuck/partyline/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type callLog struct {
	calls []string
}

func (l *callLog) handler(name string, result any, err error) Handler {
	return func(ctx context.Context, payload any) (any, error) {
		l.calls = append(l.calls, name)
		return result, err
	}
}

func joinWith(t *testing.T, b *Bus, name string, topic string, handlers ...Handler) *Member {
	t.Helper()
	topics := NewTopics()
	for _, h := range handlers {
		require.NoError(t, topics.Connect(topic, h))
	}
	m, err := b.Join(name, topics)
	require.NoError(t, err)
	return m
}

func TestAskAroundOrderAndNoMatchSkipping(t *testing.T) {
	testlog.Start(t)
	b := NewBus()
	calls := &callLog{}
	joinWith(t, b, "a", "q", calls.handler("a1", nil, ErrNoMatch), calls.handler("a2", "from-a2", nil))
	joinWith(t, b, "b", "q", calls.handler("b1", "from-b1", nil))
	joinWith(t, b, "c", "other", calls.handler("c1", "from-c1", nil))

	var got []any
	for v, err := range b.AskAround(context.Background(), "q", nil) {
		require.NoError(t, err)
		got = append(got, v)
	}

	assert.Equal(t, []any{"from-a2", "from-b1"}, got)
	assert.Equal(t, []string{"a1", "a2", "b1"}, calls.calls)
}

func TestAskAroundIsLazy(t *testing.T) {
	testlog.Start(t)
	b := NewBus()
	calls := &callLog{}
	joinWith(t, b, "first", "q", calls.handler("first", "one", nil))
	joinWith(t, b, "second", "q", calls.handler("second", "two", nil))

	seq := b.AskAround(context.Background(), "q", nil)
	assert.Empty(t, calls.calls, "handlers must not run before the sequence is consumed")

	v, ok, err := First(seq)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "one", v)
	assert.Equal(t, []string{"first"}, calls.calls)
}

func TestAskAroundIsSingleUse(t *testing.T) {
	testlog.Start(t)
	b := NewBus()
	calls := &callLog{}
	joinWith(t, b, "only", "q", calls.handler("only", "x", nil))

	seq := b.AskAround(context.Background(), "q", nil)
	for range seq {
	}
	for range seq {
		t.Fatalf("second range must yield nothing")
	}
	assert.Equal(t, []string{"only"}, calls.calls)
}

func TestAskAroundHardFailureAborts(t *testing.T) {
	testlog.Start(t)
	b := NewBus()
	boom := errors.New("boom")
	calls := &callLog{}
	joinWith(t, b, "a", "q", calls.handler("a", nil, boom))
	joinWith(t, b, "b", "q", calls.handler("b", "late", nil))

	_, ok, err := First(b.AskAround(context.Background(), "q", nil))
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a"}, calls.calls)
}

func TestAskAroundSnapshotsSubscribersAtCallTime(t *testing.T) {
	testlog.Start(t)
	b := NewBus()
	calls := &callLog{}
	joinWith(t, b, "early", "q", calls.handler("early", nil, ErrNoMatch))

	seq := b.AskAround(context.Background(), "q", nil)
	joinWith(t, b, "late", "q", calls.handler("late", "late", nil))

	_, ok, err := First(seq)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{"early"}, calls.calls)
}

func TestHandlersRunWithBroadcastSuppressed(t *testing.T) {
	testlog.Start(t)
	b := NewBus()
	var suppressed bool
	joinWith(t, b, "a", "q", func(ctx context.Context, payload any) (any, error) {
		suppressed = BroadcastSuppressed(ctx)
		return payload, nil
	})

	ctx := context.Background()
	require.False(t, BroadcastSuppressed(ctx))
	v, ok, err := First(b.AskAround(ctx, "q", "echo"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "echo", v)
	assert.True(t, suppressed)
}

func TestPingAnswersInJoinOrder(t *testing.T) {
	testlog.Start(t)
	b := NewBus()
	for _, name := range []string{"root", "one", "two"} {
		joinWith(t, b, name, TopicPing, Pong)
	}
	answers, err := Ping(context.Background(), b, map[string]string{"any": "payload"})
	require.NoError(t, err)
	assert.Equal(t, []any{"pong", "pong", "pong"}, answers)

	names := make([]string, 0, 3)
	for _, info := range b.Members() {
		names = append(names, info.Name)
		assert.Equal(t, 1, info.Topics[TopicPing])
	}
	assert.Equal(t, []string{"root", "one", "two"}, names)
}

func TestJoinRejectsDuplicatesAndBlankNames(t *testing.T) {
	testlog.Start(t)
	b := NewBus()
	_, err := b.Join("one", nil)
	require.NoError(t, err)

	_, err = b.Join("one", NewTopics())
	assert.ErrorIs(t, err, ErrDuplicateMember)
	assert.NotErrorIs(t, err, ErrAlreadyJoined)

	_, err = b.Join("  ", nil)
	assert.ErrorIs(t, err, ErrInvalidMember)
	assert.Equal(t, 1, b.Len())
}

func TestMemberConnectAfterJoin(t *testing.T) {
	testlog.Start(t)
	b := NewBus()
	m, err := b.Join("one", nil)
	require.NoError(t, err)
	require.NoError(t, m.Connect(TopicPing, Pong))
	assert.ErrorIs(t, m.Connect(TopicPing, nil), ErrHandlerNil)
	assert.ErrorIs(t, m.Connect(" ", Pong), ErrInvalidTopic)
	assert.Equal(t, 1, m.Count(TopicPing))

	got, ok := b.Member("one")
	require.True(t, ok)
	assert.Equal(t, m.ID(), got.ID())
}

func TestContextCarriesBus(t *testing.T) {
	testlog.Start(t)
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	b := NewBus()
	got, ok := FromContext(NewContext(context.Background(), b))
	require.True(t, ok)
	assert.Same(t, b, got)
}
