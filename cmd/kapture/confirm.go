package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
)

// stdinConfirmation resumes the pipeline when the user presses ENTER,
// typically after finishing an SSO/MFA login in the browser window.
type stdinConfirmation struct {
	in *bufio.Reader
}

func newStdinConfirmation() *stdinConfirmation {
	return &stdinConfirmation{in: bufio.NewReader(os.Stdin)}
}

func (s *stdinConfirmation) Await(ctx context.Context, prompt string) error {
	fmt.Printf("\n%s\n> ", prompt)

	done := make(chan error, 1)
	go func() {
		_, err := s.in.ReadString('\n')
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
