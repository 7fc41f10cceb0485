package ecs

import (
	"context"
	"fmt"
	"strings"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awsecs "github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
)

type mockECSAPI struct {
	listServicesFunc     func(ctx context.Context, params *awsecs.ListServicesInput, optFns ...func(*awsecs.Options)) (*awsecs.ListServicesOutput, error)
	describeServicesFunc func(ctx context.Context, params *awsecs.DescribeServicesInput, optFns ...func(*awsecs.Options)) (*awsecs.DescribeServicesOutput, error)
	updateServiceFunc    func(ctx context.Context, params *awsecs.UpdateServiceInput, optFns ...func(*awsecs.Options)) (*awsecs.UpdateServiceOutput, error)
}

func (m *mockECSAPI) ListServices(ctx context.Context, params *awsecs.ListServicesInput, optFns ...func(*awsecs.Options)) (*awsecs.ListServicesOutput, error) {
	return m.listServicesFunc(ctx, params, optFns...)
}
func (m *mockECSAPI) DescribeServices(ctx context.Context, params *awsecs.DescribeServicesInput, optFns ...func(*awsecs.Options)) (*awsecs.DescribeServicesOutput, error) {
	return m.describeServicesFunc(ctx, params, optFns...)
}
func (m *mockECSAPI) UpdateService(ctx context.Context, params *awsecs.UpdateServiceInput, optFns ...func(*awsecs.Options)) (*awsecs.UpdateServiceOutput, error) {
	return m.updateServiceFunc(ctx, params, optFns...)
}

func TestListServiceARNs_Pagination(t *testing.T) {
	calls := 0
	mock := &mockECSAPI{
		listServicesFunc: func(ctx context.Context, params *awsecs.ListServicesInput, optFns ...func(*awsecs.Options)) (*awsecs.ListServicesOutput, error) {
			calls++
			if awssdk.ToString(params.Cluster) != "prod" {
				t.Errorf("Cluster = %s, want prod", awssdk.ToString(params.Cluster))
			}
			if calls == 1 {
				return &awsecs.ListServicesOutput{
					ServiceArns: []string{"arn:aws:ecs:eu-west-3:123456:service/prod/lcdp-verde-billing-service-blue"},
					NextToken:   awssdk.String("page2"),
				}, nil
			}
			return &awsecs.ListServicesOutput{
				ServiceArns: []string{"arn:aws:ecs:eu-west-3:123456:service/prod/lcdp-verde-billing-service-green"},
			}, nil
		},
	}

	arns, err := NewClient(mock).ListServiceARNs(context.Background(), "prod")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 ListServices calls, got %d", calls)
	}
	if len(arns) != 2 {
		t.Fatalf("expected 2 service ARNs, got %d", len(arns))
	}
}

func TestListServiceARNs_Error(t *testing.T) {
	mock := &mockECSAPI{
		listServicesFunc: func(ctx context.Context, params *awsecs.ListServicesInput, optFns ...func(*awsecs.Options)) (*awsecs.ListServicesOutput, error) {
			return nil, fmt.Errorf("cluster not found")
		},
	}

	_, err := NewClient(mock).ListServiceARNs(context.Background(), "prod")
	if err == nil || !strings.Contains(err.Error(), "ListServices") {
		t.Fatalf("expected wrapped ListServices error, got %v", err)
	}
}

func TestDescribeServices_Batches(t *testing.T) {
	var arns []string
	for i := range 23 {
		arns = append(arns, fmt.Sprintf("arn:aws:ecs:eu-west-3:123456:service/prod/svc-%d", i))
	}

	var batches []int
	mock := &mockECSAPI{
		describeServicesFunc: func(ctx context.Context, params *awsecs.DescribeServicesInput, optFns ...func(*awsecs.Options)) (*awsecs.DescribeServicesOutput, error) {
			batches = append(batches, len(params.Services))
			var services []ecstypes.Service
			for _, arn := range params.Services {
				services = append(services, ecstypes.Service{
					ServiceArn:   awssdk.String(arn),
					ServiceName:  awssdk.String(arn[strings.LastIndex(arn, "/")+1:]),
					Status:       awssdk.String("ACTIVE"),
					DesiredCount: 2,
					RunningCount: 1,
					PendingCount: 1,
				})
			}
			return &awsecs.DescribeServicesOutput{Services: services}, nil
		},
	}

	services, err := NewClient(mock).DescribeServices(context.Background(), "prod", arns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batches) != 3 || batches[0] != 10 || batches[1] != 10 || batches[2] != 3 {
		t.Errorf("batches = %v, want [10 10 3]", batches)
	}
	if len(services) != 23 {
		t.Fatalf("expected 23 services, got %d", len(services))
	}
	svc := services[0]
	if svc.Name != "svc-0" {
		t.Errorf("Name = %s, want svc-0", svc.Name)
	}
	if svc.DesiredCount != 2 || svc.RunningCount != 1 {
		t.Errorf("counts = %d/%d, want 2/1", svc.DesiredCount, svc.RunningCount)
	}
	if svc.Status != StatusActive {
		t.Errorf("Status = %s, want %s", svc.Status, StatusActive)
	}
}

func TestSetDesiredCount(t *testing.T) {
	var got *awsecs.UpdateServiceInput
	mock := &mockECSAPI{
		updateServiceFunc: func(ctx context.Context, params *awsecs.UpdateServiceInput, optFns ...func(*awsecs.Options)) (*awsecs.UpdateServiceOutput, error) {
			got = params
			return &awsecs.UpdateServiceOutput{}, nil
		},
	}

	err := NewClient(mock).SetDesiredCount(context.Background(), "prod", "arn:aws:ecs:eu-west-3:123456:service/prod/web", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("UpdateService was not called")
	}
	if awssdk.ToString(got.Cluster) != "prod" {
		t.Errorf("Cluster = %s, want prod", awssdk.ToString(got.Cluster))
	}
	if awssdk.ToInt32(got.DesiredCount) != 2 {
		t.Errorf("DesiredCount = %d, want 2", awssdk.ToInt32(got.DesiredCount))
	}
	if !got.ForceNewDeployment {
		t.Error("ForceNewDeployment = false, want true")
	}
}

func TestSetDesiredCount_Error(t *testing.T) {
	mock := &mockECSAPI{
		updateServiceFunc: func(ctx context.Context, params *awsecs.UpdateServiceInput, optFns ...func(*awsecs.Options)) (*awsecs.UpdateServiceOutput, error) {
			return nil, fmt.Errorf("service not active")
		},
	}

	err := NewClient(mock).SetDesiredCount(context.Background(), "prod", "arn:aws:ecs:eu-west-3:123456:service/prod/web", 2)
	if err == nil || !strings.Contains(err.Error(), "UpdateService web") {
		t.Fatalf("expected wrapped UpdateService error, got %v", err)
	}
}
