package interfaces

import "context"

// ConfirmationSource is the external signal that a human has completed an
// out-of-band step (SSO/MFA login in the visible browser window). Modeled as
// an explicit suspend/resume boundary so the interactive pause can be driven
// by a fake in tests instead of blocking on standard input.
type ConfirmationSource interface {
	// Await blocks until the user confirms or the context is cancelled.
	// The prompt describes what the user is expected to do.
	Await(ctx context.Context, prompt string) error
}
