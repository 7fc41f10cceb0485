package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/applicationautoscaling"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"

	awsautoscaling "lcdp.dev/bluegreen/internal/aws/autoscaling"
	awsecr "lcdp.dev/bluegreen/internal/aws/ecr"
	awsecs "lcdp.dev/bluegreen/internal/aws/ecs"
	awselb "lcdp.dev/bluegreen/internal/aws/elb"
	awstagging "lcdp.dev/bluegreen/internal/aws/tagging"
)

// ServiceClient bundles the clients of every AWS service the cutover touches.
// One is built per command invocation and passed down explicitly.
type ServiceClient struct {
	AccountID   string
	ELB         *awselb.Client
	ECS         *awsecs.Client
	ECR         *awsecr.Client
	AutoScaling *awsautoscaling.Client
	Tagging     *awstagging.Client
}

func NewServiceClient(ctx context.Context, profile, region string) (*ServiceClient, error) {
	cfg, err := LoadConfig(ctx, profile, region)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &ServiceClient{
		AccountID:   GetAccountID(ctx, cfg),
		ELB:         awselb.NewClient(elbv2.NewFromConfig(cfg)),
		ECS:         awsecs.NewClient(ecs.NewFromConfig(cfg)),
		ECR:         awsecr.NewClient(ecr.NewFromConfig(cfg)),
		AutoScaling: awsautoscaling.NewClient(applicationautoscaling.NewFromConfig(cfg)),
		Tagging:     awstagging.NewClient(resourcegroupstaggingapi.NewFromConfig(cfg)),
	}, nil
}
