package bluegreen

import (
	"context"
	"fmt"

	"lcdp.dev/bluegreen/internal/aws/autoscaling"
	"lcdp.dev/bluegreen/internal/aws/ecs"
	"lcdp.dev/bluegreen/internal/utils"
)

const (
	// DefaultDesiredCount is the task count a started service runs.
	DefaultDesiredCount = 2
	// DefaultMaxCapacity applies to services without a scalable target.
	DefaultMaxCapacity = 4
)

// Service is an ECS service member of a default environment.
type Service struct {
	Name        string
	ARN         string
	Cluster     string
	ResourceID  string
	MinCapacity int
	MaxCapacity int

	services ServiceAPI
	scaling  ScalingAPI
}

// NewService reads the scaling bounds of the service at arn. A service
// without a scalable target gets DefaultMaxCapacity.
func NewService(ctx context.Context, services ServiceAPI, scaling ScalingAPI, cluster, arn string) (*Service, error) {
	name := utils.ShortName(arn)
	if name == "" || name == arn {
		return nil, fmt.Errorf("invalid service ARN %q", arn)
	}

	svc := &Service{
		Name:        name,
		ARN:         arn,
		Cluster:     cluster,
		ResourceID:  autoscaling.ECSResourceID(cluster, name),
		MaxCapacity: DefaultMaxCapacity,
		services:    services,
		scaling:     scaling,
	}

	target, err := scaling.GetECSScalableTarget(ctx, svc.ResourceID)
	if err != nil {
		return nil, fmt.Errorf("scalable target of %s: %w", name, err)
	}
	if target != nil {
		svc.MinCapacity = target.MinCapacity
		if target.MaxCapacity > 0 {
			svc.MaxCapacity = target.MaxCapacity
		}
	}
	return svc, nil
}

// Start registers the scaling bounds of the service and asks ECS to run
// DefaultDesiredCount fresh tasks.
func (s *Service) Start(ctx context.Context) error {
	maxCapacity := max(s.MaxCapacity, DefaultDesiredCount)
	if err := s.scaling.RegisterECSScalableTarget(ctx, s.ResourceID, DefaultDesiredCount, maxCapacity); err != nil {
		return fmt.Errorf("start %s: %w", s.Name, err)
	}
	if err := s.services.SetDesiredCount(ctx, s.Cluster, s.ARN, DefaultDesiredCount); err != nil {
		return fmt.Errorf("start %s: %w", s.Name, err)
	}
	s.MinCapacity = DefaultDesiredCount
	s.MaxCapacity = maxCapacity
	return nil
}

// Healthy reports whether an active service runs all of its desired tasks.
// A service scaled to zero is not healthy: it serves no traffic.
func Healthy(svc ecs.ECSService) bool {
	return svc.Status == ecs.StatusActive &&
		svc.DesiredCount > 0 &&
		svc.RunningCount == svc.DesiredCount
}
