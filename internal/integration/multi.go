package integration

import (
	"context"

	"github.com/hashicorp/go-multierror"
)

// MultiIntegration publishes the events to all of its integrations. A
// failing integration does not prevent publishing to the others.
type MultiIntegration struct {
	integrations []Integration
}

// NewMultiIntegration creates a new MultiIntegration.
func NewMultiIntegration(integrations ...Integration) *MultiIntegration {
	return &MultiIntegration{
		integrations: integrations,
	}
}

// PublishUplink publishes the uplink event to all integrations.
func (m *MultiIntegration) PublishUplink(ctx context.Context, pl UplinkEvent) error {
	var result error
	for _, i := range m.integrations {
		if err := i.PublishUplink(ctx, pl); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}

// Close closes all integrations.
func (m *MultiIntegration) Close() error {
	var result error
	for _, i := range m.integrations {
		if err := i.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}
