// Package hybrid composes a local in-process cache engine with a remote
// cache and a publish/subscribe channel into a two-tier cache whose local
// copies converge through invalidation messages.
package hybrid

import "context"

// Message is the invalidation broadcast after every write. OriginID is
// the writing instance's unique id; receivers drop their own echoes.
type Message struct {
	// OriginID identifies the publishing cache instance.
	OriginID string `json:"origin_id"`

	// Keys lists the affected keys. A key ending in "*" invalidates by
	// prefix. Nil together with FlushAll means "drop everything".
	Keys []string `json:"keys,omitempty"`

	// FlushAll invalidates the receiver's entire local tier.
	FlushAll bool `json:"flush_all,omitempty"`

	// Expired marks an invalidation caused by expiry rather than an
	// overt write; receivers remove the key as expired and suppress
	// their own re-broadcast.
	Expired bool `json:"expired,omitempty"`
}

// Bus is the message-bus collaborator: fire-and-forget publish plus
// subscription with per-subscription single-threaded delivery.
type Bus interface {
	// Publish delivers msg to all current subscribers.
	Publish(ctx context.Context, msg Message) error

	// Subscribe invokes handler for each received message until the
	// returned cancel func runs. Handlers on one subscription are never
	// invoked concurrently.
	Subscribe(ctx context.Context, handler func(Message)) (cancel func(), err error)
}
