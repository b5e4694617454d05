package party

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/danmuck/partyline/internal/app"
	"github.com/danmuck/partyline/internal/observability"
	"github.com/danmuck/partyline/internal/partyline"
	"github.com/danmuck/partyline/internal/routing"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// URLQuery is the payload of the url topic. Values keep the reserved
// override keys so the owner builds with the caller's overrides.
type URLQuery struct {
	Endpoint string         `json:"endpoint"`
	Values   routing.Values `json:"values"`
}

// Participant is one app's side of the partyline. It joins at most once.
type Participant struct {
	app *app.App

	mu         sync.RWMutex
	joined     bool
	bus        *partyline.Bus
	member     *partyline.Member
	invitation context.Context
}

func (p *Participant) App() *app.App {
	return p.app
}

func (p *Participant) Joined() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.joined
}

// Bus is the partyline joined, nil before the invitation.
func (p *Participant) Bus() *partyline.Bus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.bus
}

func (p *Participant) Member() *partyline.Member {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.member
}

// Join runs the invitation handshake against the bus carried by ctx. The
// context is kept, detached from cancellation and with broadcasts
// suppressed, as the one the url handler builds in. A second call returns
// partyline.ErrAlreadyJoined and changes nothing.
func (p *Participant) Join(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.joined {
		observability.RecordInvitation(p.app.ID, false)
		return partyline.ErrAlreadyJoined
	}
	bus, ok := partyline.FromContext(ctx)
	if !ok {
		return ErrNoBus
	}

	invitation := partyline.SuppressBroadcast(context.WithoutCancel(ctx))
	topics := partyline.NewTopics()
	if err := topics.Connect(partyline.TopicPing, partyline.Pong); err != nil {
		return err
	}
	if err := topics.Connect(partyline.TopicURL, p.handleURL); err != nil {
		return err
	}
	member, err := bus.Join(p.app.ID, topics)
	if err != nil {
		return err
	}

	p.invitation = invitation
	p.bus = bus
	p.member = member
	p.joined = true
	observability.RecordInvitation(p.app.ID, true)
	return nil
}

func (p *Participant) invitationContext() context.Context {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.invitation
}

// handleURL answers the url topic on behalf of the owning app. The caller's
// context is ignored: the build runs in the invitation context so the URL
// carries this app's mount.
func (p *Participant) handleURL(_ context.Context, payload any) (any, error) {
	var q URLQuery
	switch v := payload.(type) {
	case URLQuery:
		q = v
	case *URLQuery:
		if v == nil {
			return nil, partyline.ErrNoMatch
		}
		q = *v
	default:
		return nil, partyline.ErrNoMatch
	}

	url, err := p.app.URLFor(p.invitationContext(), q.Endpoint, q.Values)
	if errors.Is(err, routing.ErrBuild) {
		return nil, partyline.ErrNoMatch
	}
	if err != nil {
		return nil, err
	}
	return url, nil
}

func (p *Participant) invite(c *gin.Context) {
	err := p.Join(c.Request.Context())
	switch {
	case errors.Is(err, partyline.ErrAlreadyJoined):
		// Once joined the route does not exist.
		c.String(http.StatusNotFound, "404 page not found")
	case err != nil:
		log.Error().Str("app", p.app.ID).Err(err).Msg("party_join_failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.String(http.StatusOK, "ok")
	}
}

func (p *Participant) members(c *gin.Context) {
	bus := p.Bus()
	if bus == nil {
		c.String(http.StatusNotFound, "404 page not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"bus":     bus.ID().String(),
		"self":    p.app.ID,
		"members": bus.Members(),
	})
}
