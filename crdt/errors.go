package crdt

import "github.com/pkg/errors"

// ErrNotPresent is returned when an operation requires an element or
// field that is not currently present in the receiver's value, e.g.
// removing an element an ORSWOT does not contain. Removes are not
// idempotent against causal state: removing an absent element is a
// precondition failure, not a no-op.
var ErrNotPresent = errors.New("crdt: precondition failed: not present")

// ErrMalformed is returned by FromBinary when a blob's type tag or
// version byte does not match any known combination, or the payload
// cannot be decoded after the tag/version prefix checks out.
var ErrMalformed = errors.New("crdt: malformed binary state")

// wrapNotPresent annotates ErrNotPresent with which element or field
// triggered it, while remaining matchable via errors.Is(err, ErrNotPresent).
func wrapNotPresent(what string) error {
	return errors.Wrap(ErrNotPresent, what)
}
