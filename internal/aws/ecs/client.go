package ecs

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsecs "github.com/aws/aws-sdk-go-v2/service/ecs"
	"lcdp.dev/bluegreen/internal/utils"
)

// maxDescribeServices is the DescribeServices limit on services per call.
const maxDescribeServices = 10

type ECSAPI interface {
	ListServices(ctx context.Context, params *awsecs.ListServicesInput, optFns ...func(*awsecs.Options)) (*awsecs.ListServicesOutput, error)
	DescribeServices(ctx context.Context, params *awsecs.DescribeServicesInput, optFns ...func(*awsecs.Options)) (*awsecs.DescribeServicesOutput, error)
	UpdateService(ctx context.Context, params *awsecs.UpdateServiceInput, optFns ...func(*awsecs.Options)) (*awsecs.UpdateServiceOutput, error)
}

type Client struct {
	api ECSAPI
}

func NewClient(api ECSAPI) *Client {
	return &Client{api: api}
}

func (c *Client) ListServiceARNs(ctx context.Context, clusterName string) ([]string, error) {
	var allARNs []string
	var nextToken *string

	for {
		listOut, err := c.api.ListServices(ctx, &awsecs.ListServicesInput{
			Cluster:   aws.String(clusterName),
			NextToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("ListServices: %w", err)
		}
		allARNs = append(allARNs, listOut.ServiceArns...)
		if listOut.NextToken == nil {
			break
		}
		nextToken = listOut.NextToken
	}
	return allARNs, nil
}

// DescribeServices returns the runtime state of the given services. Services
// unknown to ECS are reported by AWS as failures and left out of the result.
func (c *Client) DescribeServices(ctx context.Context, clusterName string, serviceARNs []string) ([]ECSService, error) {
	var services []ECSService
	for i := 0; i < len(serviceARNs); i += maxDescribeServices {
		end := min(i+maxDescribeServices, len(serviceARNs))
		descOut, err := c.api.DescribeServices(ctx, &awsecs.DescribeServicesInput{
			Cluster:  aws.String(clusterName),
			Services: serviceARNs[i:end],
		})
		if err != nil {
			return nil, fmt.Errorf("DescribeServices: %w", err)
		}
		for _, svc := range descOut.Services {
			services = append(services, ECSService{
				Name:         aws.ToString(svc.ServiceName),
				ARN:          aws.ToString(svc.ServiceArn),
				Status:       aws.ToString(svc.Status),
				DesiredCount: int(svc.DesiredCount),
				RunningCount: int(svc.RunningCount),
			})
		}
	}
	return services, nil
}

// SetDesiredCount scales a service to desired tasks and forces a new
// deployment so the tasks pull the current image of their tag.
func (c *Client) SetDesiredCount(ctx context.Context, clusterName, serviceARN string, desired int) error {
	_, err := c.api.UpdateService(ctx, &awsecs.UpdateServiceInput{
		Cluster:            aws.String(clusterName),
		Service:            aws.String(serviceARN),
		DesiredCount:       aws.Int32(int32(desired)),
		ForceNewDeployment: true,
	})
	if err != nil {
		return fmt.Errorf("UpdateService %s: %w", utils.ShortName(serviceARN), err)
	}
	return nil
}
