package enums

type VerificationStatus string

const (
	VerificationNone      VerificationStatus = "none"
	VerificationTemporary VerificationStatus = "temporary"
	VerificationTrusted   VerificationStatus = "trusted"
)
