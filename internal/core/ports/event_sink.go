package ports

import "github.com/vulpemventures/coinselect/internal/core/domain"

// SelectionEventSink is the abstraction for any kind of message bus
// interested in coin selection events.
// Delivery is best effort: errors returned by the sink are logged by the
// caller and never affect the outcome of a selection.
type SelectionEventSink interface {
	PublishSelectionEvent(event domain.SelectionEvent) error
}
