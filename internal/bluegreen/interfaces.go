package bluegreen

import (
	"context"

	"lcdp.dev/bluegreen/internal/aws/autoscaling"
	"lcdp.dev/bluegreen/internal/aws/ecr"
	"lcdp.dev/bluegreen/internal/aws/ecs"
	"lcdp.dev/bluegreen/internal/aws/elb"
	"lcdp.dev/bluegreen/internal/aws/tagging"
)

// LoadBalancerAPI is the subset of the load balancer client the engine needs.
type LoadBalancerAPI interface {
	FindLoadBalancers(ctx context.Context, name string) ([]elb.LoadBalancer, error)
	ListLoadBalancers(ctx context.Context) ([]elb.LoadBalancer, error)
	ListListeners(ctx context.Context, lbARN string) ([]elb.Listener, error)
	ListRules(ctx context.Context, listenerARN string) ([]elb.Rule, error)
	ListTargetGroups(ctx context.Context, lbARN string) ([]elb.TargetGroup, error)
	FindTargetGroups(ctx context.Context, name string) ([]elb.TargetGroup, error)
	GetTargetHealth(ctx context.Context, targetGroupARN string) (elb.TargetHealth, error)
	GetResourceTags(ctx context.Context, arns []string) ([]elb.ResourceTags, error)
	SetRuleTargetGroup(ctx context.Context, ruleARN, targetGroupARN string) error
}

type TagSearchAPI interface {
	FindResources(ctx context.Context, filters []tagging.TagFilter, resourceType string) ([]tagging.TaggedResource, error)
}

type ServiceAPI interface {
	ListServiceARNs(ctx context.Context, cluster string) ([]string, error)
	DescribeServices(ctx context.Context, cluster string, arns []string) ([]ecs.ECSService, error)
	SetDesiredCount(ctx context.Context, cluster, serviceARN string, desired int) error
}

type ScalingAPI interface {
	GetECSScalableTarget(ctx context.Context, resourceID string) (*autoscaling.AutoScalingTarget, error)
	RegisterECSScalableTarget(ctx context.Context, resourceID string, minCapacity, maxCapacity int) error
}

type ImageAPI interface {
	ListRepositoryNames(ctx context.Context, prefix string) ([]string, error)
	FindImageByTag(ctx context.Context, repoName, tag string) (*ecr.ECRImage, error)
	GetImageManifest(ctx context.Context, repoName, digest string) (string, error)
}

var (
	_ LoadBalancerAPI = (*elb.Client)(nil)
	_ TagSearchAPI    = (*tagging.Client)(nil)
	_ ServiceAPI      = (*ecs.Client)(nil)
	_ ScalingAPI      = (*autoscaling.Client)(nil)
	_ ImageAPI        = (*ecr.Client)(nil)
)
