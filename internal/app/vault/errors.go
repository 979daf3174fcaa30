package vault

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the vault. Callers are expected to match with
// errors.Is and decide how much to reveal: ErrNotAuthorized and
// ErrCredentialNotFound must stay distinguishable in logs but may be
// collapsed into one generic user-facing message so the API does not leak
// which tenants exist.
var (
	// ErrNotAuthorized means the principal may not perform the operation
	// on the tenant's credential slot.
	ErrNotAuthorized = errors.New("not authorized for tenant credential")

	// ErrCredentialNotFound means no credential record exists for the tenant.
	ErrCredentialNotFound = errors.New("tenant credential not found")

	// ErrDecryptFailed means stored ciphertext failed authentication: either
	// the master key is misconfigured or the record is corrupt. The operation
	// must not be retried and the condition warrants an operator alert.
	ErrDecryptFailed = errors.New("credential ciphertext failed authentication")
)

// ValidationKind classifies why a submitted credential document was rejected.
type ValidationKind string

const (
	// KindMissingField: a required field for the declared type is absent.
	KindMissingField ValidationKind = "missing_field"
	// KindWrongType: a recognised but unsupported discriminator (the legacy
	// interactive authorization flow) was submitted.
	KindWrongType ValidationKind = "wrong_type"
	// KindUnsupportedType: an unknown discriminator, or none at all.
	KindUnsupportedType ValidationKind = "unsupported_type"
)

// ValidationError reports a structurally invalid credential document.
type ValidationError struct {
	Kind  ValidationKind
	Field string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid credential document: %s %q", e.Kind, e.Field)
	}
	return fmt.Sprintf("invalid credential document: %s", e.Kind)
}

// AsValidationError unwraps err into a *ValidationError when possible.
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
