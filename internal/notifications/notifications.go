package notifications

import (
	"context"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/djvirus9/secops-dashboard/internal/models"
)

// Notifier sends a chat message about a finding event.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, f models.Finding, isNew bool) error
}

// Ticketing opens a tracking ticket for a finding.
type Ticketing interface {
	Name() string
	CreateIssue(ctx context.Context, f models.Finding) (string, error)
}

// Status reports which channels the dispatcher can reach.
type Status struct {
	SlackConfigured bool `json:"slack_configured"`
	JiraConfigured  bool `json:"jira_configured"`
}

// Dispatcher fans finding events out to the configured channels.
// Only high and critical findings notify at all. A brand-new finding
// gets a chat message and a ticket; a repeat occurrence gets a chat
// message only, so each finding has at most one ticket over its life.
// Delivery failures are logged and never propagate to ingestion.
type Dispatcher struct {
	notifier  Notifier
	ticketing Ticketing
}

func NewDispatcher(notifier Notifier, ticketing Ticketing) *Dispatcher {
	return &Dispatcher{notifier: notifier, ticketing: ticketing}
}

// Status reports which channels are configured.
func (d *Dispatcher) Status() Status {
	return Status{
		SlackConfigured: d.notifier != nil,
		JiraConfigured:  d.ticketing != nil,
	}
}

// Dispatch applies the notification policy to one finding event.
func (d *Dispatcher) Dispatch(ctx context.Context, f models.Finding, isNew bool) {
	if f.Severity.Rank() < models.SeverityHigh.Rank() {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	if d.notifier != nil {
		g.Go(func() error {
			if err := d.notifier.Notify(gctx, f, isNew); err != nil {
				log.Error().Err(err).
					Str("channel", d.notifier.Name()).
					Str("finding_id", f.ID).
					Msg("Chat notification failed")
			}
			return nil
		})
	}
	if d.ticketing != nil && isNew {
		g.Go(func() error {
			key, err := d.ticketing.CreateIssue(gctx, f)
			if err != nil {
				log.Error().Err(err).
					Str("channel", d.ticketing.Name()).
					Str("finding_id", f.ID).
					Msg("Ticket creation failed")
				return nil
			}
			log.Info().Str("ticket", key).Str("finding_id", f.ID).Msg("Ticket created")
			return nil
		})
	}
	g.Wait()
}
