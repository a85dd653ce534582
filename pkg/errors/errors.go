package errors

import (
	"errors"
	"fmt"
)

// Common error types
var (
	// Subnet errors
	ErrSubnetParse = errors.New("invalid subnet")
	ErrSubnetsRead = errors.New("failed to read subnets")

	// Probe service errors
	ErrBinaryNotFound = errors.New("xray binary not found")
	ErrTemplateRead   = errors.New("failed to read config template")
	ErrServiceStart   = errors.New("failed to start proxy service")

	// Scan errors
	ErrNoSubnets = errors.New("subnet list is empty")
)

// SubnetError represents an error scoped to a single subnet descriptor
type SubnetError struct {
	Subnet string
	Err    error
}

func (e *SubnetError) Error() string {
	return fmt.Sprintf("subnet %q: %v", e.Subnet, e.Err)
}

func (e *SubnetError) Unwrap() error {
	return e.Err
}

// ServiceError represents a fatal failure of the local proxy service.
// It indicates the probing mechanism itself is unusable, not that a
// single address failed.
type ServiceError struct {
	Binary string
	Err    error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("proxy service (%s): %v", e.Binary, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}
