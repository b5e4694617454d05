package partyline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Well-known topics every participant subscribes on join.
const (
	TopicPing = "ping"
	TopicURL  = "url"
)

var (
	ErrHandlerNil   = errors.New("partyline: handler is nil")
	ErrInvalidTopic = errors.New("partyline: invalid topic")
)

// Handler answers one broadcast payload. Returning ErrNoMatch means "not
// mine"; any other error aborts the broadcast.
type Handler func(ctx context.Context, payload any) (any, error)

// Topics maps topic names to handlers in subscription order. It has no
// removal and is not safe for concurrent use on its own; once joined, the
// bus serializes access.
type Topics struct {
	handlers map[string][]Handler
}

func NewTopics() *Topics {
	return &Topics{handlers: make(map[string][]Handler)}
}

// Connect appends h to topic.
func (t *Topics) Connect(topic string, h Handler) error {
	if h == nil {
		return ErrHandlerNil
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return fmt.Errorf("%w: topic name is required", ErrInvalidTopic)
	}
	t.handlers[topic] = append(t.handlers[topic], h)
	return nil
}

// Handlers returns a copy of the handlers subscribed to topic.
func (t *Topics) Handlers(topic string) []Handler {
	return append([]Handler(nil), t.handlers[topic]...)
}

func (t *Topics) Count(topic string) int {
	return len(t.handlers[topic])
}

// Names lists subscribed topics in sorted order.
func (t *Topics) Names() []string {
	names := make([]string, 0, len(t.handlers))
	for name := range t.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pong is the liveness handler subscribed under TopicPing.
func Pong(context.Context, any) (any, error) {
	return "pong", nil
}
