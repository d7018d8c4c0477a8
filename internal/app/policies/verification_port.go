package policies

import (
	"context"
	"time"

	"github.com/slogsolutions/WebBuyer/internal/domain/user"
)

// Challenge is an open phone-confirmation sub-flow at the verification
// provider. The provider reports the outcome via callback; the card
// re-runs the booking gate from the top on success.
type Challenge struct {
	ID        string
	Provider  string
	ExpiresAt time.Time
}

// PhoneVerifier opens phone confirmation challenges with the external
// verification service.
type PhoneVerifier interface {
	StartChallenge(ctx context.Context, userID user.ID, phone string) (Challenge, error)
}
