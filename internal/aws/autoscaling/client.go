package autoscaling

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/applicationautoscaling"
	astypes "github.com/aws/aws-sdk-go-v2/service/applicationautoscaling/types"
)

type ApplicationAutoScalingAPI interface {
	DescribeScalableTargets(ctx context.Context, params *applicationautoscaling.DescribeScalableTargetsInput, optFns ...func(*applicationautoscaling.Options)) (*applicationautoscaling.DescribeScalableTargetsOutput, error)
	RegisterScalableTarget(ctx context.Context, params *applicationautoscaling.RegisterScalableTargetInput, optFns ...func(*applicationautoscaling.Options)) (*applicationautoscaling.RegisterScalableTargetOutput, error)
}

type Client struct {
	api ApplicationAutoScalingAPI
}

func NewClient(api ApplicationAutoScalingAPI) *Client {
	return &Client{api: api}
}

// ECSResourceID builds the application autoscaling resource id of an ECS
// service.
func ECSResourceID(clusterName, serviceName string) string {
	return fmt.Sprintf("service/%s/%s", clusterName, serviceName)
}

// GetECSScalableTarget returns the scalable target registered for resourceID,
// or nil when the service has none.
func (c *Client) GetECSScalableTarget(ctx context.Context, resourceID string) (*AutoScalingTarget, error) {
	out, err := c.api.DescribeScalableTargets(ctx, &applicationautoscaling.DescribeScalableTargetsInput{
		ServiceNamespace:  astypes.ServiceNamespaceEcs,
		ResourceIds:       []string{resourceID},
		ScalableDimension: astypes.ScalableDimensionECSServiceDesiredCount,
	})
	if err != nil {
		return nil, fmt.Errorf("DescribeScalableTargets: %w", err)
	}
	if len(out.ScalableTargets) == 0 {
		return nil, nil
	}

	t := out.ScalableTargets[0]
	return &AutoScalingTarget{
		MinCapacity: int(aws.ToInt32(t.MinCapacity)),
		MaxCapacity: int(aws.ToInt32(t.MaxCapacity)),
		ResourceID:  resourceID,
	}, nil
}

// RegisterECSScalableTarget creates or updates the desired count bounds of an
// ECS service.
func (c *Client) RegisterECSScalableTarget(ctx context.Context, resourceID string, minCapacity, maxCapacity int) error {
	_, err := c.api.RegisterScalableTarget(ctx, &applicationautoscaling.RegisterScalableTargetInput{
		ServiceNamespace:  astypes.ServiceNamespaceEcs,
		ResourceId:        aws.String(resourceID),
		ScalableDimension: astypes.ScalableDimensionECSServiceDesiredCount,
		MinCapacity:       aws.Int32(int32(minCapacity)),
		MaxCapacity:       aws.Int32(int32(maxCapacity)),
	})
	if err != nil {
		return fmt.Errorf("RegisterScalableTarget %s: %w", resourceID, err)
	}
	return nil
}
