// Package guard decides whether a protected screen may render.
package guard

import (
	"sync"

	"github.com/jrsteele09/go-learner-session/authctx"
	"github.com/jrsteele09/go-learner-session/navigation"
	"github.com/rs/zerolog/log"
)

// Action is what the protected screen should do.
type Action string

const (
	ActionWait     Action = "wait"
	ActionRedirect Action = "redirect"
	ActionRender   Action = "render"
)

// Decision is the guard's verdict for one snapshot. Target is only set for
// ActionRedirect.
type Decision struct {
	Action Action            `json:"action"`
	Target navigation.Screen `json:"target,omitempty"`
}

// Evaluate maps a session snapshot to a decision. It has no side effects.
func Evaluate(snapshot authctx.Snapshot) Decision {
	switch {
	case snapshot.Loading:
		return Decision{Action: ActionWait}
	case snapshot.User == nil:
		return Decision{Action: ActionRedirect, Target: navigation.ScreenLogin}
	default:
		return Decision{Action: ActionRender}
	}
}

// Source is the session the guard watches.
type Source interface {
	Snapshot() authctx.Snapshot
	Subscribe(fn func(authctx.Snapshot)) (unsubscribe func())
}

// Guard wraps the protected screens. It resets to the login screen once
// each time the session becomes signed out.
type Guard struct {
	navigator navigation.Navigator

	mu          sync.Mutex
	last        Decision
	lastVersion uint64
	seen        bool
	unsubscribe func()
}

func New(navigator navigation.Navigator) *Guard {
	return &Guard{navigator: navigator}
}

// Attach starts watching source, evaluating its current state first.
func (g *Guard) Attach(source Source) {
	g.mu.Lock()
	if g.unsubscribe != nil {
		g.unsubscribe()
	}
	g.mu.Unlock()

	unsubscribe := source.Subscribe(g.observe)
	g.observe(source.Snapshot())

	g.mu.Lock()
	g.unsubscribe = unsubscribe
	g.mu.Unlock()
}

// Detach stops watching the session.
func (g *Guard) Detach() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.unsubscribe != nil {
		g.unsubscribe()
		g.unsubscribe = nil
	}
}

// Current returns the latest decision.
func (g *Guard) Current() Decision {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.seen {
		return Decision{Action: ActionWait}
	}
	return g.last
}

func (g *Guard) observe(snapshot authctx.Snapshot) {
	g.mu.Lock()
	// Each state change is evaluated at most once.
	if g.seen && snapshot.Version <= g.lastVersion {
		g.mu.Unlock()
		return
	}
	decision := Evaluate(snapshot)
	entering := decision.Action == ActionRedirect && (!g.seen || g.last.Action != ActionRedirect)
	g.last = decision
	g.lastVersion = snapshot.Version
	g.seen = true
	g.mu.Unlock()

	if entering {
		log.Debug().Uint64("version", snapshot.Version).Msg("guard: no session, resetting to login")
		g.navigator.Reset(decision.Target)
	}
}
