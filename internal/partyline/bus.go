package partyline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/danmuck/partyline/internal/observability"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNoMatch is the no-match signal: the handler does not own the
	// requested resource. It is skipped, never surfaced.
	ErrNoMatch = errors.New("partyline: no match")

	ErrAlreadyJoined   = errors.New("partyline: member already joined")
	ErrDuplicateMember = errors.New("partyline: member name taken")
	ErrInvalidMember   = errors.New("partyline: invalid member name")
)

// Member is one joined participant and its topic table.
type Member struct {
	id     uuid.UUID
	name   string
	bus    *Bus
	topics *Topics
}

func (m *Member) ID() uuid.UUID {
	return m.id
}

func (m *Member) Name() string {
	return m.name
}

// Connect subscribes h under topic after the member has joined.
func (m *Member) Connect(topic string, h Handler) error {
	m.bus.mu.Lock()
	defer m.bus.mu.Unlock()
	return m.topics.Connect(topic, h)
}

// Count reports how many handlers the member has under topic.
func (m *Member) Count(topic string) int {
	m.bus.mu.RLock()
	defer m.bus.mu.RUnlock()
	return m.topics.Count(topic)
}

// MemberInfo is a read-only view of a member for listings.
type MemberInfo struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Topics map[string]int `json:"topics"`
}

// Bus is the partyline shared by every app mounted behind one dispatcher.
// Members are kept in join order, which is the broadcast order.
type Bus struct {
	id uuid.UUID

	mu      sync.RWMutex
	members []*Member
	byName  map[string]*Member
}

func NewBus() *Bus {
	return &Bus{
		id:     uuid.New(),
		byName: make(map[string]*Member),
	}
}

func (b *Bus) ID() uuid.UUID {
	return b.id
}

// Join adds a member whose handlers are already connected on topics, so the
// member becomes visible to broadcasts with its full subscription set.
func (b *Bus) Join(name string, topics *Topics) (*Member, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidMember
	}
	if topics == nil {
		topics = NewTopics()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.byName[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateMember, name)
	}
	m := &Member{
		id:     uuid.New(),
		name:   name,
		bus:    b,
		topics: topics,
	}
	b.members = append(b.members, m)
	b.byName[name] = m

	log.Info().
		Str("bus", b.id.String()).
		Str("member", name).
		Str("member_id", m.id.String()).
		Strs("topics", topics.Names()).
		Msg("party_joined")
	return m, nil
}

func (b *Bus) Member(name string) (*Member, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	m, ok := b.byName[name]
	return m, ok
}

func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.members)
}

// Members lists members in join order.
func (b *Bus) Members() []MemberInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]MemberInfo, 0, len(b.members))
	for _, m := range b.members {
		counts := make(map[string]int)
		for _, topic := range m.topics.Names() {
			counts[topic] = m.topics.Count(topic)
		}
		out = append(out, MemberInfo{ID: m.id.String(), Name: m.name, Topics: counts})
	}
	return out
}

type subscription struct {
	member  string
	handler Handler
}

func (b *Bus) subscribers(topic string) []subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var subs []subscription
	for _, m := range b.members {
		for _, h := range m.topics.handlers[topic] {
			subs = append(subs, subscription{member: m.name, handler: h})
		}
	}
	return subs
}

// AskAround broadcasts payload on topic. The subscriber set is fixed when
// AskAround is called; handlers run only as the sequence is consumed, in
// join order and then subscription order. ErrNoMatch answers are skipped.
// Any other error is yielded once and ends the sequence. The sequence is
// single-use: ranging over it again yields nothing.
//
// Handlers receive ctx marked with SuppressBroadcast.
func (b *Bus) AskAround(ctx context.Context, topic string, payload any) iter.Seq2[any, error] {
	subs := b.subscribers(topic)
	var used atomic.Bool
	return func(yield func(any, error) bool) {
		if !used.CompareAndSwap(false, true) {
			return
		}
		observability.RecordAskAround(topic)
		inner := SuppressBroadcast(ctx)
		for _, sub := range subs {
			result, err := sub.handler(inner, payload)
			switch {
			case errors.Is(err, ErrNoMatch):
				observability.RecordHandlerCall(topic, sub.member, observability.OutcomeNoMatch)
				continue
			case err != nil:
				observability.RecordHandlerCall(topic, sub.member, observability.OutcomeError)
				log.Warn().
					Str("bus", b.id.String()).
					Str("topic", topic).
					Str("member", sub.member).
					Err(err).
					Msg("ask_around_failed")
				yield(nil, err)
				return
			}
			observability.RecordHandlerCall(topic, sub.member, observability.OutcomeMatch)
			if !yield(result, nil) {
				return
			}
		}
	}
}

// First consumes seq up to its first result. ok is false when no handler
// matched.
func First(seq iter.Seq2[any, error]) (result any, ok bool, err error) {
	for v, e := range seq {
		if e != nil {
			return nil, false, e
		}
		return v, true, nil
	}
	return nil, false, nil
}

// Ping asks every member on TopicPing and collects the answers in join order.
func Ping(ctx context.Context, b *Bus, payload any) ([]any, error) {
	var out []any
	for v, err := range b.AskAround(ctx, TopicPing, payload) {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}
