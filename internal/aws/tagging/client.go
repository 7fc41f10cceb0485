package tagging

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	rgt "github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"
	rgttypes "github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi/types"
)

// ResourceTypeTargetGroup is the resource type filter for ALB target groups.
const ResourceTypeTargetGroup = "elasticloadbalancing:targetgroup"

type TaggingAPI interface {
	GetResources(ctx context.Context, params *rgt.GetResourcesInput, optFns ...func(*rgt.Options)) (*rgt.GetResourcesOutput, error)
}

type Client struct {
	api TaggingAPI
}

func NewClient(api TaggingAPI) *Client {
	return &Client{api: api}
}

// FindResources returns every resource of resourceType matching all filters.
func (c *Client) FindResources(ctx context.Context, filters []TagFilter, resourceType string) ([]TaggedResource, error) {
	tagFilters := make([]rgttypes.TagFilter, 0, len(filters))
	for _, f := range filters {
		tagFilters = append(tagFilters, rgttypes.TagFilter{
			Key:    aws.String(f.Key),
			Values: f.Values,
		})
	}

	var resources []TaggedResource
	var token *string
	for {
		input := &rgt.GetResourcesInput{
			TagFilters:      tagFilters,
			PaginationToken: token,
		}
		if resourceType != "" {
			input.ResourceTypeFilters = []string{resourceType}
		}

		out, err := c.api.GetResources(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("GetResources: %w", err)
		}

		for _, m := range out.ResourceTagMappingList {
			tags := make(map[string]string, len(m.Tags))
			for _, t := range m.Tags {
				tags[aws.ToString(t.Key)] = aws.ToString(t.Value)
			}
			resources = append(resources, TaggedResource{
				ARN:  aws.ToString(m.ResourceARN),
				Tags: tags,
			})
		}

		// The API signals the last page with an empty token, not a nil one.
		if aws.ToString(out.PaginationToken) == "" {
			break
		}
		token = out.PaginationToken
	}
	return resources, nil
}
