package policies

import (
	"context"

	"github.com/slogsolutions/WebBuyer/internal/domain/booking"
)

// HandoffDispatcher passes a cleared booking attempt to the booking
// pipeline. Implementations must be durable: the summary flow treats a
// successful dispatch as the end of its responsibility.
type HandoffDispatcher interface {
	Dispatch(ctx context.Context, handoff *booking.Handoff) error
}
