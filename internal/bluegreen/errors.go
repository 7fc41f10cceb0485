package bluegreen

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors. Resolution errors abort an operation before any mutation.
var (
	ErrNotFound                    = errors.New("not found")
	ErrAmbiguousResult             = errors.New("ambiguous result")
	ErrMisconfiguredInfrastructure = errors.New("misconfigured infrastructure")
	ErrServiceUnhealthy            = errors.New("service unhealthy")
	ErrPartialCutover              = errors.New("partial cutover")
)

// TargetGroupLookupError reports a target group search that did not yield
// exactly one match.
type TargetGroupLookupError struct {
	Type  EnvType
	Color Color
	Scope string
	Count int
}

func (e *TargetGroupLookupError) Error() string {
	scope := ""
	if e.Scope != "" {
		scope = " in " + e.Scope
	}
	return fmt.Sprintf("target group %s/%s%s: found %d, want exactly one", e.Type, e.Color, scope, e.Count)
}

func (e *TargetGroupLookupError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Count == 0
	case ErrAmbiguousResult:
		return e.Count > 1
	}
	return false
}

// ServiceUnhealthyError names the services still unhealthy when the health
// gate ran out of polls.
type ServiceUnhealthyError struct {
	Services []string
	Polls    int
}

func (e *ServiceUnhealthyError) Error() string {
	return fmt.Sprintf("services still unhealthy after %d polls: %s", e.Polls, strings.Join(e.Services, ", "))
}

func (e *ServiceUnhealthyError) Is(target error) bool {
	return target == ErrServiceUnhealthy
}

// PartialCutoverError is returned when a rule rewrite fails. Rewritten lists
// the rules already pointing at the new target group; they are not rolled back.
type PartialCutoverError struct {
	Rewritten []string
	Failed    string
	Err       error
}

func (e *PartialCutoverError) Error() string {
	return fmt.Sprintf("rewrite of rule %s failed after %d rewritten rule(s) [%s]: %v",
		e.Failed, len(e.Rewritten), strings.Join(e.Rewritten, ", "), e.Err)
}

func (e *PartialCutoverError) Is(target error) bool {
	return target == ErrPartialCutover
}

func (e *PartialCutoverError) Unwrap() error {
	return e.Err
}

func misconfigured(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMisconfiguredInfrastructure, fmt.Sprintf(format, args...))
}
