package topogo

import (
	"errors"
	"fmt"

	"github.com/brepkit/topogo/descriptor"
	"github.com/brepkit/topogo/registry"
)

var (
	// ErrReferenceNotFound is returned when an unknown persistent id is
	// passed to Resolve or a registry accessor.
	ErrReferenceNotFound = errors.New("reference not found")

	// ErrKernelElementInvalid is returned when the element passed to Track
	// is nil or degenerate. The creation call fails whole; no half-populated
	// reference is stored.
	ErrKernelElementInvalid = errors.New("kernel element invalid")

	// ErrSessionClosed is returned when operations are attempted on a
	// closed session.
	ErrSessionClosed = errors.New("session closed")

	// ErrNoSnapshotStore is returned by Save/Load when the session was
	// built without a snapshot store.
	ErrNoSnapshotStore = errors.New("no snapshot store configured")
)

// translateError maps subpackage errors onto the session-level taxonomy so
// callers only match against the errors this package exports.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, registry.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrReferenceNotFound, err)
	}
	if errors.Is(err, descriptor.ErrInvalidElement) {
		return fmt.Errorf("%w: %w", ErrKernelElementInvalid, err)
	}
	return err
}
