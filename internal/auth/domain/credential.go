package domain

// Purpose names one slot in the credential store. The set is fixed.
type Purpose string

const (
	PurposeAccessToken      Purpose = "access-token"
	PurposeRefreshToken     Purpose = "refresh-token"
	PurposeCachedUser       Purpose = "cached-user"
	PurposeBiometricEnabled Purpose = "biometric-enabled"
)

// AllPurposes lists every slot, in the order logout clears them.
var AllPurposes = []Purpose{
	PurposeAccessToken,
	PurposeRefreshToken,
	PurposeCachedUser,
	PurposeBiometricEnabled,
}

// Valid reports whether p is one of the four known slots.
func (p Purpose) Valid() bool {
	switch p {
	case PurposeAccessToken, PurposeRefreshToken, PurposeCachedUser, PurposeBiometricEnabled:
		return true
	}
	return false
}

func (p Purpose) String() string { return string(p) }
