package ws

import (
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// ProtocolVersion is the page protocol spoken by this server.
const ProtocolVersion = "1.1.0"

// ProtocolConstraint is the range of page script versions accepted.
const ProtocolConstraint = "^1.0.0"

// ErrIncompatibleProtocol is returned for page scripts outside ProtocolConstraint.
var ErrIncompatibleProtocol = errors.New("incompatible page protocol")

var supported = mustConstraint(ProtocolConstraint)

func mustConstraint(c string) *semver.Constraints {
	parsed, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return parsed
}

// CheckProtocol verifies that a page script version is supported.
func CheckProtocol(version string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrIncompatibleProtocol, version, err)
	}
	if !supported.Check(v) {
		return fmt.Errorf("%w: %s does not satisfy %s", ErrIncompatibleProtocol, v, ProtocolConstraint)
	}
	return nil
}
