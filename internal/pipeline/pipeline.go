// Package pipeline holds the pieces shared by the media pipelines:
// the stage-tagged error type that classifies failures as permanent
// (bad input, deterministic) or transient (infrastructure, retryable).
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Error is the result of a failed pipeline stage. Permanent errors come
// from the input itself (undecodable media, unsupported codec) and will
// fail identically on every retry; transient errors come from
// infrastructure and are worth retrying.
type Error struct {
	Stage     string
	Err       error
	Permanent bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Permanent wraps err as a deterministic input failure at the given stage.
func Permanent(stage string, err error) error {
	return &Error{Stage: stage, Err: err, Permanent: true}
}

// Transient wraps err as a retryable infrastructure failure at the given stage.
func Transient(stage string, err error) error {
	return &Error{Stage: stage, Err: err}
}

// Classify wraps err at the given stage as transient when it is an
// infrastructure-class failure (cancelled or timed-out context, network
// error) and permanent otherwise. Stages that run external tools against
// remote sources use it so a per-attempt timeout is retried instead of
// being archived as a bad input.
func Classify(stage string, err error) error {
	if isInfrastructure(err) {
		return Transient(stage, err)
	}
	return Permanent(stage, err)
}

func isInfrastructure(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsPermanent reports whether err (or anything it wraps) is a permanent
// pipeline error.
func IsPermanent(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Permanent
}

// Stage returns the stage tag of err, or "" if it is not a pipeline error.
func Stage(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Stage
	}
	return ""
}
