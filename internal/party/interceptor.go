package party

import (
	"context"
	"fmt"
	"iter"
	"sync/atomic"
	"time"

	"github.com/danmuck/partyline/internal/observability"
	"github.com/danmuck/partyline/internal/partyline"
	"github.com/danmuck/partyline/internal/routing"
	"github.com/rs/zerolog/log"
)

// Interceptor is a routing.Resolver composed over an app's local resolver.
// Local resolution runs first; when it fails, and the context does not
// suppress broadcasts, the url topic is asked around.
type Interceptor struct {
	name        string
	next        routing.Resolver
	participant *Participant
}

var _ routing.Resolver = (*Interceptor)(nil)

type attempt struct {
	url    string
	err    error
	remote iter.Seq2[string, error]
}

// URLFor returns the local URL when there is one, else the first remote
// answer in join order. When nobody matches, the local error is returned
// unchanged.
func (i *Interceptor) URLFor(ctx context.Context, endpoint string, values routing.Values) (string, error) {
	start := time.Now()
	a := i.attempt(ctx, endpoint, values)
	if a.err == nil {
		observability.RecordResolution(i.name, observability.SourceLocal, time.Since(start))
		return a.url, nil
	}
	for url, err := range a.remote {
		if err != nil {
			observability.RecordResolution(i.name, observability.SourceError, time.Since(start))
			return "", err
		}
		observability.RecordResolution(i.name, observability.SourceRemote, time.Since(start))
		log.Debug().
			Str("app", i.name).
			Str("endpoint", endpoint).
			Str("url", url).
			Msg("url_resolved_remote")
		return url, nil
	}
	observability.RecordResolution(i.name, observability.SourceMiss, time.Since(start))
	return "", a.err
}

// Candidates yields every URL the endpoint resolves to: the local one first,
// then remote answers in join order. Remote handlers run only as far as the
// sequence is consumed. Like AskAround, the sequence is single-use.
func (i *Interceptor) Candidates(ctx context.Context, endpoint string, values routing.Values) iter.Seq2[string, error] {
	a := i.attempt(ctx, endpoint, values)
	var used atomic.Bool
	return func(yield func(string, error) bool) {
		if !used.CompareAndSwap(false, true) {
			return
		}
		if a.err == nil && !yield(a.url, nil) {
			return
		}
		for url, err := range a.remote {
			if !yield(url, err) || err != nil {
				return
			}
		}
	}
}

func (i *Interceptor) attempt(ctx context.Context, endpoint string, values routing.Values) attempt {
	o, rest := routing.Split(values)
	url, err := i.next.URLFor(ctx, endpoint, o.Attach(rest))
	return attempt{
		url:    url,
		err:    err,
		remote: i.askAround(ctx, endpoint, o, rest),
	}
}

func (i *Interceptor) askAround(ctx context.Context, endpoint string, o routing.Overrides, rest routing.Values) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if partyline.BroadcastSuppressed(ctx) {
			return
		}
		bus := i.participant.Bus()
		if bus == nil {
			return
		}
		query := URLQuery{Endpoint: endpoint, Values: o.Attach(rest)}
		for result, err := range bus.AskAround(ctx, partyline.TopicURL, query) {
			if err != nil {
				yield("", err)
				return
			}
			url, ok := result.(string)
			if !ok {
				yield("", fmt.Errorf("%w: %T", ErrUnexpectedAnswer, result))
				return
			}
			if !yield(url, nil) {
				return
			}
		}
	}
}
