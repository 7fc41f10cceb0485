package ecr

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsecr "github.com/aws/aws-sdk-go-v2/service/ecr"
	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"
)

type ECRAPI interface {
	DescribeRepositories(ctx context.Context, params *awsecr.DescribeRepositoriesInput, optFns ...func(*awsecr.Options)) (*awsecr.DescribeRepositoriesOutput, error)
	DescribeImages(ctx context.Context, params *awsecr.DescribeImagesInput, optFns ...func(*awsecr.Options)) (*awsecr.DescribeImagesOutput, error)
	BatchGetImage(ctx context.Context, params *awsecr.BatchGetImageInput, optFns ...func(*awsecr.Options)) (*awsecr.BatchGetImageOutput, error)
}

type Client struct {
	api ECRAPI
}

func NewClient(api ECRAPI) *Client {
	return &Client{api: api}
}

// ListRepositories returns the names of every repository of the registry.
func (c *Client) ListRepositories(ctx context.Context) ([]string, error) {
	var names []string
	var nextToken *string

	for {
		out, err := c.api.DescribeRepositories(ctx, &awsecr.DescribeRepositoriesInput{
			NextToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("DescribeRepositories: %w", err)
		}

		for _, r := range out.Repositories {
			names = append(names, aws.ToString(r.RepositoryName))
		}

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}
	return names, nil
}

// ListRepositoryNames returns the sorted names of the repositories starting
// with prefix.
func (c *Client) ListRepositoryNames(ctx context.Context, prefix string) ([]string, error) {
	all, err := c.ListRepositories(ctx)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, name := range all {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// FindImageByTag returns the image of repoName tagged tag, or nil when the
// repository or the tag does not exist.
func (c *Client) FindImageByTag(ctx context.Context, repoName, tag string) (*ECRImage, error) {
	out, err := c.api.DescribeImages(ctx, &awsecr.DescribeImagesInput{
		RepositoryName: aws.String(repoName),
		ImageIds:       []ecrtypes.ImageIdentifier{{ImageTag: aws.String(tag)}},
	})
	if err != nil {
		var imageNotFound *ecrtypes.ImageNotFoundException
		var repoNotFound *ecrtypes.RepositoryNotFoundException
		if errors.As(err, &imageNotFound) || errors.As(err, &repoNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("DescribeImages %s:%s: %w", repoName, tag, err)
	}
	if len(out.ImageDetails) == 0 {
		return nil, nil
	}

	return &ECRImage{Digest: aws.ToString(out.ImageDetails[0].ImageDigest)}, nil
}

// GetImageManifest returns the raw manifest of the image with digest.
func (c *Client) GetImageManifest(ctx context.Context, repoName, digest string) (string, error) {
	out, err := c.api.BatchGetImage(ctx, &awsecr.BatchGetImageInput{
		RepositoryName: aws.String(repoName),
		ImageIds:       []ecrtypes.ImageIdentifier{{ImageDigest: aws.String(digest)}},
	})
	if err != nil {
		return "", fmt.Errorf("BatchGetImage %s@%s: %w", repoName, digest, err)
	}
	if len(out.Images) == 0 {
		if len(out.Failures) > 0 {
			return "", fmt.Errorf("BatchGetImage %s@%s: %s", repoName, digest, aws.ToString(out.Failures[0].FailureReason))
		}
		return "", fmt.Errorf("BatchGetImage %s@%s: no image returned", repoName, digest)
	}
	return aws.ToString(out.Images[0].ImageManifest), nil
}

// ShortDigest truncates the hex part of a digest to 12 characters for display.
func ShortDigest(digest string) string {
	if parts := strings.SplitN(digest, ":", 2); len(parts) == 2 && len(parts[1]) > 12 {
		return parts[0] + ":" + parts[1][:12]
	}
	return digest
}
