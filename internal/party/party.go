// Package party makes apps mounted behind one dispatcher build URLs for each
// other's endpoints.
//
// Each app taking part gets an invitation route and an Interceptor composed
// over its local resolver. The dispatcher invites every mount once at
// startup; on its first invitation an app joins the shared partyline with a
// "ping" and a "url" handler. From then on a URL the app cannot build locally
// is asked around the partyline, first answer in join order wins, and a local
// answer always beats a remote one.
package party

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/danmuck/partyline/internal/app"
	"github.com/danmuck/partyline/internal/routing"
)

const (
	DefaultInvitePath = "/__invite__/"
	InviteEndpoint    = "partyline"
	MembersPath       = "/__party__/members"
	MembersEndpoint   = "partyline:members"
)

var (
	ErrNoLocalResolver    = errors.New("party: app has no local resolver")
	ErrAlreadyInitialized = errors.New("party: app already initialized")
	ErrNoBus              = errors.New("party: no partyline on request context")
	ErrUnexpectedAnswer   = errors.New("party: unexpected answer on url topic")
	ErrInvalidInvitePath  = errors.New("party: invite path must start with /")
	ErrDuplicateID        = errors.New("party: app id already taken")
)

// Party wires apps for the partyline. One Party may serve many apps.
type Party struct {
	invitePath string

	mu           sync.Mutex
	participants map[*app.App]*Participant
}

// New returns a Party using invitePath, or DefaultInvitePath when empty.
func New(invitePath string) (*Party, error) {
	invitePath = strings.TrimSpace(invitePath)
	if invitePath == "" {
		invitePath = DefaultInvitePath
	}
	if !strings.HasPrefix(invitePath, "/") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidInvitePath, invitePath)
	}
	return &Party{
		invitePath:   invitePath,
		participants: make(map[*app.App]*Participant),
	}, nil
}

func (p *Party) InvitePath() string {
	return p.invitePath
}

// Init mounts the invitation route on a and composes an Interceptor over its
// resolver. An app without a local route table is a setup error reported
// here, never at request time.
func (p *Party) Init(a *app.App) (*Participant, error) {
	if a == nil || a.Routes == nil || a.Resolver() == nil {
		return nil, ErrNoLocalResolver
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.participants[a]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyInitialized, a.ID)
	}
	for other := range p.participants {
		if other.ID == a.ID {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, a.ID)
		}
	}

	pt := &Participant{app: a}
	if err := a.Handle(http.MethodGet, p.invitePath, InviteEndpoint, pt.invite); err != nil {
		return nil, err
	}
	if err := a.Handle(http.MethodGet, MembersPath, MembersEndpoint, pt.members); err != nil {
		return nil, err
	}
	if err := a.Intercept(func(next routing.Resolver) routing.Resolver {
		return &Interceptor{name: a.ID, next: next, participant: pt}
	}); err != nil {
		return nil, err
	}
	p.participants[a] = pt
	return pt, nil
}

// MustInit is Init for startup code; it panics on misconfiguration.
func (p *Party) MustInit(a *app.App) *Participant {
	pt, err := p.Init(a)
	if err != nil {
		panic(err)
	}
	return pt
}

// Participant returns the participant Init created for a.
func (p *Party) Participant(a *app.App) (*Participant, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pt, ok := p.participants[a]
	return pt, ok
}
