package booking

import "github.com/slogsolutions/WebBuyer/internal/domain/user"

// EligibilityStatus is the outcome of the sequential booking gate.
type EligibilityStatus string

const (
	StatusEligible           EligibilityStatus = "ELIGIBLE"
	StatusUnauthenticated    EligibilityStatus = "UNAUTHENTICATED"
	StatusIdentityUnverified EligibilityStatus = "IDENTITY_UNVERIFIED"
	StatusPhoneUnverified    EligibilityStatus = "PHONE_UNVERIFIED"
)

// GateDecision says where a booking attempt stopped and why.
type GateDecision struct {
	Status EligibilityStatus
	Reason string
}

func (d GateDecision) Eligible() bool {
	return d.Status == StatusEligible
}

// EvaluateGate runs the ordered eligibility checks for a booking
// attempt. Each check only runs when every earlier one passed, and
// callers re-run the whole gate after a verification completes rather
// than resuming mid-way.
//
// A nil PhoneVerified passes the phone check: accounts that were never
// asked to confirm a phone are not blocked on it.
func EvaluateGate(u *user.User) GateDecision {
	switch {
	case u == nil:
		return GateDecision{Status: StatusUnauthenticated, Reason: "sign in to book this space"}
	case !u.IdentityVerified:
		return GateDecision{Status: StatusIdentityUnverified, Reason: "identity verification is pending"}
	case u.PhoneVerified != nil && !*u.PhoneVerified:
		return GateDecision{Status: StatusPhoneUnverified, Reason: "confirm your phone number to continue"}
	default:
		return GateDecision{Status: StatusEligible}
	}
}
