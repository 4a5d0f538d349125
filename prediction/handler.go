package prediction

import (
	"github.com/oomph-ac/netmove/movement"
	"github.com/oomph-ac/netmove/transport"
)

// Correction describes a prediction that diverged from the authoritative state.
type Correction struct {
	Sequence uint32
	// Predicted is the live state before the correction.
	Predicted movement.State
	// Authoritative is the state received for Sequence.
	Authoritative movement.State
	// Corrected is the live state after replaying the moves newer than Sequence.
	Corrected movement.State
	// Replayed is the amount of moves that were replayed.
	Replayed int
}

// Handler handles reconciliation events of a Context. Handlers are called on the goroutine ticking the
// Context and must not block.
type Handler interface {
	// HandleCorrection is called after the live state was snapped to an authoritative state.
	HandleCorrection(c Correction)
	// HandleDesync is called when the context can no longer reconcile incrementally. The next
	// authoritative update performs a full resync.
	HandleDesync(reason string)
	// HandleResync is called after a full resync to the update passed.
	HandleResync(u transport.Update)
}

// NopHandler implements Handler and does nothing.
type NopHandler struct{}

func (NopHandler) HandleCorrection(Correction)   {}
func (NopHandler) HandleDesync(string)           {}
func (NopHandler) HandleResync(transport.Update) {}
