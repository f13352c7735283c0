package service

import (
	"context"

	"railalert/internal/subscription/models"
)

// Resolver picks the recipients for an outbound alert.
type Resolver struct {
	registry      *Registry
	testRecipient models.Recipient
}

// NewResolver builds a resolver. testRecipient is the operator address used in
// test mode; it is normalized here and may be empty, in which case test-mode
// resolution yields no recipients.
func NewResolver(registry *Registry, testRecipient string) (*Resolver, error) {
	r := &Resolver{registry: registry}
	if testRecipient != "" {
		rec, err := models.NormalizeRecipient(testRecipient)
		if err != nil {
			return nil, err
		}
		r.testRecipient = rec
	}
	return r, nil
}

// Resolve returns the effective recipients for line. Order of preference:
// test address (test mode only), store, cache for the line, then GENERAL read
// the same way. A healthy store also refreshes the cache, so the cache only
// answers with data the store can no longer confirm while the store is down.
// The result is never nil.
func (r *Resolver) Resolve(ctx context.Context, line string, testMode bool) ([]models.Recipient, error) {
	if testMode {
		if r.testRecipient == "" {
			return []models.Recipient{}, nil
		}
		return []models.Recipient{r.testRecipient}, nil
	}

	l := models.NormalizeLine(line)
	reg := r.registry

	recipients, err := reg.storeRecipients(ctx, l)
	if err != nil {
		reg.degraded(ctx, "resolve", err)
	} else if len(recipients) > 0 {
		return recipients, nil
	}

	recipients, err = reg.cacheRecipients(ctx, l)
	if err != nil {
		return nil, err
	}
	if len(recipients) > 0 || l == models.LineGeneral {
		return nonNil(recipients), nil
	}
	general, err := reg.ListRecipients(ctx, string(models.LineGeneral))
	if err != nil {
		return nil, err
	}
	return nonNil(general), nil
}

func nonNil(recipients []models.Recipient) []models.Recipient {
	if recipients == nil {
		return []models.Recipient{}
	}
	return recipients
}
