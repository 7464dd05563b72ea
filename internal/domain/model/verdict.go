package model

// Verdict is the final classified outcome of one scenario verification.
type Verdict string

const (
	VerdictAcceptedAsExpected Verdict = "ACCEPTED_AS_EXPECTED"
	VerdictRejectedAsExpected Verdict = "REJECTED_AS_EXPECTED"
	VerdictUnexpectedAccept   Verdict = "UNEXPECTED_ACCEPT"
	VerdictUnexpectedReject   Verdict = "UNEXPECTED_REJECT"
	VerdictTimedOut           Verdict = "TIMED_OUT_WITHOUT_CONVERGENCE"
	VerdictTransportError     Verdict = "TRANSPORT_ERROR"
)

func (v Verdict) String() string {
	return string(v)
}

// Expected reports whether the verdict is a passing outcome. A correctly
// rejected mutation passes just like a correctly accepted one.
func (v Verdict) Expected() bool {
	return v == VerdictAcceptedAsExpected || v == VerdictRejectedAsExpected
}
