// Package events carries in-process notifications between the transport,
// the session store and the CLI shell.
package events

import (
	evbus "github.com/asaskevich/EventBus"

	"github.com/optiflow/optiflow/internal/core/domain"
)

const (
	TopicAuthLost       = "auth:lost"
	TopicSessionChanged = "session:changed"
)

// Bus is a typed facade over EventBus. Handlers registered with the On*
// methods run on their own goroutine, one event at a time per handler, so a
// handler may publish again without deadlocking the publisher. Call WaitAsync
// to drain them.
//
// OnAuthLostSync handlers run inline on a second EventBus instance. EventBus
// holds its lock while an inline handler runs, so those handlers may publish
// session changes but must not publish auth-lost.
type Bus struct {
	bus    evbus.Bus
	inline evbus.Bus
}

// New creates an isolated bus. Each application root owns one.
func New() *Bus {
	return &Bus{bus: evbus.New(), inline: evbus.New()}
}

// PublishAuthLost runs the inline handlers to completion, then dispatches
// the asynchronous ones.
func (b *Bus) PublishAuthLost(ev domain.AuthLostEvent) {
	b.inline.Publish(TopicAuthLost, ev)
	b.bus.Publish(TopicAuthLost, ev)
}

func (b *Bus) OnAuthLost(fn func(domain.AuthLostEvent)) error {
	return b.bus.SubscribeAsync(TopicAuthLost, fn, true)
}

func (b *Bus) OnAuthLostSync(fn func(domain.AuthLostEvent)) error {
	return b.inline.Subscribe(TopicAuthLost, fn)
}

// PublishSessionChanged sends a copy of s so subscribers cannot mutate the
// store's state.
func (b *Bus) PublishSessionChanged(s domain.Session) {
	b.bus.Publish(TopicSessionChanged, s.Clone())
}

func (b *Bus) OnSessionChanged(fn func(domain.Session)) error {
	return b.bus.SubscribeAsync(TopicSessionChanged, fn, true)
}

// WaitAsync blocks until every dispatched handler has returned.
func (b *Bus) WaitAsync() {
	b.bus.WaitAsync()
}
