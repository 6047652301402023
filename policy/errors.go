package policy

import "github.com/pkg/errors"

// Sentinel error kinds from the error-handling design. Every error the
// package returns wraps one of these, so a caller can classify a fault with
// errors.Is before it aborts the simulation.
var (
	ErrInvariantViolation          = errors.New("invariant violation")
	ErrConfigMissing               = errors.New("required config key missing")
	ErrReplacementCandidateInvalid = errors.New("replacement candidate invalid")
)

func invariantf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvariantViolation, format, args...)
}

func configMissingf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrConfigMissing, format, args...)
}

func candidateInvalidf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrReplacementCandidateInvalid, format, args...)
}
