package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, caches and gateways return
// these (optionally wrapped) so services can translate them into domain errors.
//
// - ErrNotFound: record does not exist in the backend
// - ErrUnavailable: backend temporarily unreachable (connection, timeout, closed pool)
// - ErrRejected: remote provider answered but refused the request
//
// For validation errors (bad line code, blank recipient), use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("unavailable")
	ErrRejected    = errors.New("rejected")
)
