package bluegreen

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"lcdp.dev/bluegreen/internal/log"
)

// Builder assembles Environment values from live state.
type Builder struct {
	resolver TargetGroupResolver
	services ServiceAPI
	scaling  ScalingAPI
	naming   NamingScheme
	scope    Scope
	logger   zerolog.Logger
}

func NewBuilder(resolver TargetGroupResolver, services ServiceAPI, scaling ScalingAPI, naming NamingScheme, scope Scope) *Builder {
	return &Builder{
		resolver: resolver,
		services: services,
		scaling:  scaling,
		naming:   naming,
		scope:    scope,
		logger:   log.WithComponent("environment"),
	}
}

// Build resolves the target group of (color, envType) and, for default
// environments, the services of cluster belonging to color. Services that
// cannot be constructed are reported in Dropped.
func (b *Builder) Build(ctx context.Context, color Color, envType EnvType, cluster string) (*Environment, error) {
	tgARN, err := b.resolver.ResolveTargetGroup(ctx, envType, color, b.scope)
	if err != nil {
		return nil, fmt.Errorf("build %s/%s environment: %w", color, envType, err)
	}

	env := &Environment{
		Color:          color,
		Type:           envType,
		TargetGroupARN: tgARN,
	}
	if envType == Maintenance {
		return env, nil
	}
	env.Cluster = cluster

	arns, err := b.services.ListServiceARNs(ctx, cluster)
	if err != nil {
		return nil, fmt.Errorf("build %s/%s environment: %w", color, envType, err)
	}

	logger := log.WithColor(b.logger, string(color), string(envType))
	for _, arn := range arns {
		if !b.naming.BelongsTo(arn, color) {
			continue
		}
		svc, err := NewService(ctx, b.services, b.scaling, cluster, arn)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn().Err(err).Str("service", arn).Msg("service dropped")
			env.Dropped = append(env.Dropped, arn)
			continue
		}
		env.Services = append(env.Services, svc)
	}

	logger.Debug().
		Str("target_group", tgARN).
		Int("services", len(env.Services)).
		Int("dropped", len(env.Dropped)).
		Msg("environment built")
	return env, nil
}
