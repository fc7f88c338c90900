package ports

import (
	"github.com/vulpemventures/coinselect/internal/core/domain"
)

type UtxoEventHandler func(event domain.UtxoEvent)

// RepoManager is the abstraction for any kind of service intended to manage
// domain repositories implementations of the same concrete type.
type RepoManager interface {
	// UtxoRepository returns the utxo repository.
	UtxoRepository() domain.UtxoRepository

	// RegisterHandlerForUtxoEvent registers an handler function, executed
	// whenever the given event type occurs.
	RegisterHandlerForUtxoEvent(
		eventType domain.UtxoEventType, handler UtxoEventHandler,
	)

	// Reset brings all the repos to their initial state by deleting any persisted data.
	Reset()

	// Close closes the connection with all concrete repositories
	// implementations.
	Close()
}
