package bluegreen

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"lcdp.dev/bluegreen/internal/log"
	"lcdp.dev/bluegreen/internal/metrics"
)

const (
	DefaultHealthInterval = 30 * time.Second
	DefaultHealthRetries  = 26
)

// HealthGate polls ECS until every service runs its desired task count.
type HealthGate struct {
	Interval time.Duration
	Retries  int
	// Sleep waits between polls. It must return early with ctx's error.
	Sleep func(ctx context.Context, d time.Duration) error

	services ServiceAPI
	logger   zerolog.Logger
}

func NewHealthGate(services ServiceAPI) *HealthGate {
	return &HealthGate{
		Interval: DefaultHealthInterval,
		Retries:  DefaultHealthRetries,
		Sleep:    sleepContext,
		services: services,
		logger:   log.WithComponent("health"),
	}
}

// WaitUntilHealthy polls up to Retries times, sleeping Interval between
// polls. It succeeds on the first poll where every service is healthy.
func (g *HealthGate) WaitUntilHealthy(ctx context.Context, services []*Service) error {
	retries := max(g.Retries, 1)
	unhealthy := serviceNames(services)

	for poll := 1; poll <= retries; poll++ {
		names, err := g.poll(ctx, services)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			metrics.HealthPolls.WithLabelValues(metrics.PollError).Inc()
			g.logger.Warn().Err(err).Int("poll", poll).Msg("service status query failed")
		case len(names) == 0:
			metrics.HealthPolls.WithLabelValues(metrics.PollHealthy).Inc()
			g.logger.Info().Int("poll", poll).Int("services", len(services)).Msg("services healthy")
			return nil
		default:
			unhealthy = names
			metrics.HealthPolls.WithLabelValues(metrics.PollUnhealthy).Inc()
			g.logger.Info().Int("poll", poll).Int("retries", retries).Strs("unhealthy", names).Msg("waiting for services")
		}

		if poll == retries {
			break
		}
		if err := g.Sleep(ctx, g.Interval); err != nil {
			return err
		}
	}

	return &ServiceUnhealthyError{Services: unhealthy, Polls: retries}
}

// poll returns the names of the services not yet healthy.
func (g *HealthGate) poll(ctx context.Context, services []*Service) ([]string, error) {
	byCluster := make(map[string][]*Service)
	var clusters []string
	for _, s := range services {
		if _, ok := byCluster[s.Cluster]; !ok {
			clusters = append(clusters, s.Cluster)
		}
		byCluster[s.Cluster] = append(byCluster[s.Cluster], s)
	}

	var unhealthy []string
	for _, cluster := range clusters {
		members := byCluster[cluster]
		arns := make([]string, 0, len(members))
		for _, s := range members {
			arns = append(arns, s.ARN)
		}

		statuses, err := g.services.DescribeServices(ctx, cluster, arns)
		if err != nil {
			return nil, err
		}
		healthy := make(map[string]bool, len(statuses))
		for _, st := range statuses {
			healthy[st.ARN] = Healthy(st)
		}
		for _, s := range members {
			if !healthy[s.ARN] {
				unhealthy = append(unhealthy, s.Name)
			}
		}
	}
	return unhealthy, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func serviceNames(services []*Service) []string {
	names := make([]string, 0, len(services))
	for _, s := range services {
		names = append(names, s.Name)
	}
	return names
}
