package store

import (
	"fmt"

	"railalert/pkg/platform/sentinel"
)

// unavailable tags a backend failure so the registry can degrade reads.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
}
