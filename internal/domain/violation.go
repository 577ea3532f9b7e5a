package domain

// ViolationCode identifies a violated compliance rule. Codes are stable and
// externally visible; override eligibility is configured per code, not per
// message.
type ViolationCode string

const (
	ViolationCustomerSuspended   ViolationCode = "CUSTOMER_SUSPENDED"
	ViolationCustomerNotApproved ViolationCode = "CUSTOMER_NOT_APPROVED"
	ViolationLicenceMissing      ViolationCode = "LICENCE_MISSING"
	ViolationLicenceExpired      ViolationCode = "LICENCE_EXPIRED"
	ViolationThresholdExceeded   ViolationCode = "THRESHOLD_EXCEEDED"

	// Non-blocking warnings.
	WarningReVerificationDue ViolationCode = "RE_VERIFICATION_DUE"
	WarningThresholdBand     ViolationCode = "THRESHOLD_WARNING_BAND"
)

// Violation is one violated rule with its disposition.
type Violation struct {
	Code    ViolationCode `json:"code"`
	Message string        `json:"message"`
	// Blocking violations fail the transaction; warnings do not.
	Blocking bool `json:"blocking"`
	// OverrideEligible marks a blocking violation that may proceed with an
	// approved override instead of being an absolute rejection.
	OverrideEligible bool `json:"override_eligible"`
}

// BlockingViolations filters to the blocking subset.
func BlockingViolations(violations []Violation) []Violation {
	var out []Violation
	for _, v := range violations {
		if v.Blocking {
			out = append(out, v)
		}
	}
	return out
}
