package blemidi

import (
	"errors"

	"github.com/leandrodaf/blemidi/internal/parser"
	"github.com/leandrodaf/blemidi/internal/resolver"
)

// Setup errors. Lookups fail with a *NotFoundError that matches these via errors.Is.
var (
	ErrServiceNotFound        = resolver.ErrServiceNotFound
	ErrCharacteristicNotFound = resolver.ErrCharacteristicNotFound
)

// NotFoundError carries the UUIDs a non-conforming peripheral actually exposes.
type NotFoundError = resolver.NotFoundError

// Decode errors, reported per payload and never fatal to a channel.
var (
	ErrMalformedHeader        = parser.ErrMalformedHeader
	ErrUnexpectedContinuation = parser.ErrUnexpectedContinuation
	ErrTruncatedMessage       = parser.ErrTruncatedMessage
)

// Lifecycle errors.
var (
	ErrAlreadyStarted = errors.New("input channel already started")
	ErrNilConsumer    = errors.New("nil consumer")
	ErrNilTransport   = errors.New("nil transport")
)
