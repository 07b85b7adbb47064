package secret

import "context"

// AccessGate is a local, device-level presence check (biometric prompt,
// device-owner confirmation, ...) guarding release of key material. The
// check is performed by platform code outside this package; the vault only
// consumes the capability.
type AccessGate interface {
	// Confirm blocks until the user passes or refuses the presence check.
	// A refusal or an unavailable gate is reported as an error; the vault
	// maps any failure to ErrGateDenied.
	Confirm(ctx context.Context, reason string) error
}

// AccessGateFunc adapts a plain function to the [AccessGate] interface.
type AccessGateFunc func(ctx context.Context, reason string) error

func (f AccessGateFunc) Confirm(ctx context.Context, reason string) error {
	return f(ctx, reason)
}
