package elb

import (
	"context"
	"fmt"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockELBAPI struct {
	describeLoadBalancersFunc func(ctx context.Context, params *elbv2.DescribeLoadBalancersInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeLoadBalancersOutput, error)
	describeListenersFunc     func(ctx context.Context, params *elbv2.DescribeListenersInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeListenersOutput, error)
	describeTargetGroupsFunc  func(ctx context.Context, params *elbv2.DescribeTargetGroupsInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeTargetGroupsOutput, error)
	describeTargetHealthFunc  func(ctx context.Context, params *elbv2.DescribeTargetHealthInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeTargetHealthOutput, error)
	describeRulesFunc         func(ctx context.Context, params *elbv2.DescribeRulesInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeRulesOutput, error)
	describeTagsFunc          func(ctx context.Context, params *elbv2.DescribeTagsInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeTagsOutput, error)
	modifyRuleFunc            func(ctx context.Context, params *elbv2.ModifyRuleInput, optFns ...func(*elbv2.Options)) (*elbv2.ModifyRuleOutput, error)
}

func (m *mockELBAPI) DescribeLoadBalancers(ctx context.Context, params *elbv2.DescribeLoadBalancersInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeLoadBalancersOutput, error) {
	return m.describeLoadBalancersFunc(ctx, params, optFns...)
}
func (m *mockELBAPI) DescribeListeners(ctx context.Context, params *elbv2.DescribeListenersInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeListenersOutput, error) {
	return m.describeListenersFunc(ctx, params, optFns...)
}
func (m *mockELBAPI) DescribeTargetGroups(ctx context.Context, params *elbv2.DescribeTargetGroupsInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeTargetGroupsOutput, error) {
	return m.describeTargetGroupsFunc(ctx, params, optFns...)
}
func (m *mockELBAPI) DescribeTargetHealth(ctx context.Context, params *elbv2.DescribeTargetHealthInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeTargetHealthOutput, error) {
	return m.describeTargetHealthFunc(ctx, params, optFns...)
}
func (m *mockELBAPI) DescribeRules(ctx context.Context, params *elbv2.DescribeRulesInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeRulesOutput, error) {
	return m.describeRulesFunc(ctx, params, optFns...)
}
func (m *mockELBAPI) DescribeTags(ctx context.Context, params *elbv2.DescribeTagsInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeTagsOutput, error) {
	return m.describeTagsFunc(ctx, params, optFns...)
}
func (m *mockELBAPI) ModifyRule(ctx context.Context, params *elbv2.ModifyRuleInput, optFns ...func(*elbv2.Options)) (*elbv2.ModifyRuleOutput, error) {
	return m.modifyRuleFunc(ctx, params, optFns...)
}

func TestFindLoadBalancers(t *testing.T) {
	mock := &mockELBAPI{
		describeLoadBalancersFunc: func(ctx context.Context, params *elbv2.DescribeLoadBalancersInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeLoadBalancersOutput, error) {
			assert.Equal(t, []string{"prod-alb"}, params.Names)
			return &elbv2.DescribeLoadBalancersOutput{
				LoadBalancers: []elbtypes.LoadBalancer{
					{
						LoadBalancerName: awssdk.String("prod-alb"),
						LoadBalancerArn:  awssdk.String("arn:aws:elasticloadbalancing:eu-west-3:123456:loadbalancer/app/prod-alb/abc123"),
						Type:             elbtypes.LoadBalancerTypeEnumApplication,
						State:            &elbtypes.LoadBalancerState{Code: elbtypes.LoadBalancerStateEnumActive},
						Scheme:           elbtypes.LoadBalancerSchemeEnumInternetFacing,
						DNSName:          awssdk.String("prod-alb-123.eu-west-3.elb.amazonaws.com"),
					},
				},
			}, nil
		},
	}

	client := NewClient(mock)
	lbs, err := client.FindLoadBalancers(context.Background(), "prod-alb")
	require.NoError(t, err)
	require.Len(t, lbs, 1)

	lb := lbs[0]
	assert.Equal(t, "prod-alb", lb.Name)
	assert.Equal(t, "application", lb.Type)
	assert.Equal(t, "active", lb.State)
	assert.Equal(t, "internet-facing", lb.Scheme)
}

func TestFindLoadBalancers_NotFound(t *testing.T) {
	mock := &mockELBAPI{
		describeLoadBalancersFunc: func(ctx context.Context, params *elbv2.DescribeLoadBalancersInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeLoadBalancersOutput, error) {
			return nil, &elbtypes.LoadBalancerNotFoundException{Message: awssdk.String("not found")}
		},
	}

	lbs, err := NewClient(mock).FindLoadBalancers(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, lbs)
}

func TestFindLoadBalancers_Error(t *testing.T) {
	mock := &mockELBAPI{
		describeLoadBalancersFunc: func(ctx context.Context, params *elbv2.DescribeLoadBalancersInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeLoadBalancersOutput, error) {
			return nil, fmt.Errorf("access denied")
		},
	}

	_, err := NewClient(mock).FindLoadBalancers(context.Background(), "prod-alb")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DescribeLoadBalancers")
}

func TestListLoadBalancers_Pagination(t *testing.T) {
	calls := 0
	mock := &mockELBAPI{
		describeLoadBalancersFunc: func(ctx context.Context, params *elbv2.DescribeLoadBalancersInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeLoadBalancersOutput, error) {
			calls++
			assert.Empty(t, params.Names)
			if calls == 1 {
				assert.Nil(t, params.Marker)
				return &elbv2.DescribeLoadBalancersOutput{
					LoadBalancers: []elbtypes.LoadBalancer{{LoadBalancerName: awssdk.String("lcdp-verde-alb")}},
					NextMarker:    awssdk.String("page2"),
				}, nil
			}
			assert.Equal(t, "page2", awssdk.ToString(params.Marker))
			return &elbv2.DescribeLoadBalancersOutput{
				LoadBalancers: []elbtypes.LoadBalancer{{LoadBalancerName: awssdk.String("tools-alb")}},
			}, nil
		},
	}

	lbs, err := NewClient(mock).ListLoadBalancers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, lbs, 2)
	assert.Equal(t, "lcdp-verde-alb", lbs[0].Name)
	assert.Equal(t, "tools-alb", lbs[1].Name)
}

func TestListListeners(t *testing.T) {
	calls := 0
	mock := &mockELBAPI{
		describeListenersFunc: func(ctx context.Context, params *elbv2.DescribeListenersInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeListenersOutput, error) {
			calls++
			if calls == 1 {
				return &elbv2.DescribeListenersOutput{
					Listeners: []elbtypes.Listener{
						{
							ListenerArn: awssdk.String("arn:listener-80"),
							Port:        awssdk.Int32(80),
							Protocol:    elbtypes.ProtocolEnumHttp,
							DefaultActions: []elbtypes.Action{
								{Type: elbtypes.ActionTypeEnumRedirect},
							},
						},
					},
					NextMarker: awssdk.String("page2"),
				}, nil
			}
			assert.Equal(t, "page2", awssdk.ToString(params.Marker))
			return &elbv2.DescribeListenersOutput{
				Listeners: []elbtypes.Listener{
					{
						ListenerArn: awssdk.String("arn:listener-443"),
						Port:        awssdk.Int32(443),
						Protocol:    elbtypes.ProtocolEnumHttps,
						DefaultActions: []elbtypes.Action{
							{
								Type:           elbtypes.ActionTypeEnumForward,
								TargetGroupArn: awssdk.String("arn:tg-blue"),
							},
						},
					},
				},
			}, nil
		},
	}

	listeners, err := NewClient(mock).ListListeners(context.Background(), "arn:lb")
	require.NoError(t, err)
	require.Len(t, listeners, 2)
	assert.Equal(t, 2, calls)

	assert.Equal(t, 80, listeners[0].Port)
	assert.Equal(t, "HTTP", listeners[0].Protocol)
	assert.Equal(t, "redirect", listeners[0].DefaultActions[0].Type)

	assert.Equal(t, 443, listeners[1].Port)
	assert.Equal(t, "HTTPS", listeners[1].Protocol)
	assert.Equal(t, []string{"arn:tg-blue"}, listeners[1].DefaultActions[0].TargetGroups())
}

func TestListListeners_WeightedForward(t *testing.T) {
	mock := &mockELBAPI{
		describeListenersFunc: func(ctx context.Context, params *elbv2.DescribeListenersInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeListenersOutput, error) {
			return &elbv2.DescribeListenersOutput{
				Listeners: []elbtypes.Listener{
					{
						ListenerArn: awssdk.String("arn:listener"),
						Port:        awssdk.Int32(443),
						Protocol:    elbtypes.ProtocolEnumHttps,
						DefaultActions: []elbtypes.Action{
							{
								Type: elbtypes.ActionTypeEnumForward,
								ForwardConfig: &elbtypes.ForwardActionConfig{
									TargetGroups: []elbtypes.TargetGroupTuple{
										{TargetGroupArn: awssdk.String("arn:tg-blue"), Weight: awssdk.Int32(100)},
										{TargetGroupArn: awssdk.String("arn:tg-green"), Weight: awssdk.Int32(0)},
									},
								},
							},
						},
					},
				},
			}, nil
		},
	}

	listeners, err := NewClient(mock).ListListeners(context.Background(), "arn:lb")
	require.NoError(t, err)
	require.Len(t, listeners, 1)
	assert.Equal(t, []string{"arn:tg-blue", "arn:tg-green"}, listeners[0].DefaultActions[0].TargetGroups())
}

func TestListRules(t *testing.T) {
	mock := &mockELBAPI{
		describeRulesFunc: func(ctx context.Context, params *elbv2.DescribeRulesInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeRulesOutput, error) {
			assert.Equal(t, "arn:listener", awssdk.ToString(params.ListenerArn))
			return &elbv2.DescribeRulesOutput{
				Rules: []elbtypes.Rule{
					{
						RuleArn:  awssdk.String("arn:rule-1"),
						Priority: awssdk.String("1"),
						Conditions: []elbtypes.RuleCondition{
							{
								Field:            awssdk.String("host-header"),
								HostHeaderConfig: &elbtypes.HostHeaderConditionConfig{Values: []string{"api.example.com"}},
							},
							{
								Field:             awssdk.String("path-pattern"),
								PathPatternConfig: &elbtypes.PathPatternConditionConfig{Values: []string{"/v1/*"}},
							},
						},
						Actions: []elbtypes.Action{
							{
								Type:           elbtypes.ActionTypeEnumForward,
								TargetGroupArn: awssdk.String("arn:tg-blue"),
							},
						},
					},
					{
						RuleArn:  awssdk.String("arn:rule-legacy"),
						Priority: awssdk.String("2"),
						Conditions: []elbtypes.RuleCondition{
							{Field: awssdk.String("host-header"), Values: []string{"admin.example.com"}},
						},
					},
					{
						RuleArn:   awssdk.String("arn:rule-default"),
						Priority:  awssdk.String("default"),
						IsDefault: awssdk.Bool(true),
					},
				},
			}, nil
		},
	}

	rules, err := NewClient(mock).ListRules(context.Background(), "arn:listener")
	require.NoError(t, err)
	require.Len(t, rules, 3)

	hosts, ok := rules[0].HostHeaderValues()
	assert.True(t, ok)
	assert.Equal(t, []string{"api.example.com"}, hosts)
	assert.Equal(t, "arn:tg-blue", rules[0].ForwardTargetGroupARN())

	hosts, ok = rules[1].HostHeaderValues()
	assert.True(t, ok)
	assert.Equal(t, []string{"admin.example.com"}, hosts)
	assert.Equal(t, "", rules[1].ForwardTargetGroupARN())

	_, ok = rules[2].HostHeaderValues()
	assert.False(t, ok)
	assert.True(t, rules[2].IsDefault)
}

func TestListTargetGroups(t *testing.T) {
	mock := &mockELBAPI{
		describeTargetGroupsFunc: func(ctx context.Context, params *elbv2.DescribeTargetGroupsInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeTargetGroupsOutput, error) {
			assert.Equal(t, "arn:lb", awssdk.ToString(params.LoadBalancerArn))
			return &elbv2.DescribeTargetGroupsOutput{
				TargetGroups: []elbtypes.TargetGroup{
					{
						TargetGroupName: awssdk.String("verde-default-blue"),
						TargetGroupArn:  awssdk.String("arn:aws:elasticloadbalancing:eu-west-3:123456:targetgroup/verde-default-blue/abc123"),
						Protocol:        elbtypes.ProtocolEnumHttp,
						Port:            awssdk.Int32(8080),
						TargetType:      elbtypes.TargetTypeEnumIp,
					},
				},
			}, nil
		},
	}

	tgs, err := NewClient(mock).ListTargetGroups(context.Background(), "arn:lb")
	require.NoError(t, err)
	require.Len(t, tgs, 1)
	assert.Equal(t, "verde-default-blue", tgs[0].Name)
	assert.Equal(t, 8080, tgs[0].Port)
	assert.Equal(t, "ip", tgs[0].TargetType)
}

func TestListTargetGroups_Unfiltered(t *testing.T) {
	calls := 0
	mock := &mockELBAPI{
		describeTargetGroupsFunc: func(ctx context.Context, params *elbv2.DescribeTargetGroupsInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeTargetGroupsOutput, error) {
			calls++
			assert.Nil(t, params.LoadBalancerArn)
			if calls == 1 {
				return &elbv2.DescribeTargetGroupsOutput{
					TargetGroups: []elbtypes.TargetGroup{{TargetGroupName: awssdk.String("verde-default-blue")}},
					NextMarker:   awssdk.String("page2"),
				}, nil
			}
			return &elbv2.DescribeTargetGroupsOutput{
				TargetGroups: []elbtypes.TargetGroup{{TargetGroupName: awssdk.String("verde-maintenance-green")}},
			}, nil
		},
	}

	tgs, err := NewClient(mock).ListTargetGroups(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, tgs, 2)
	assert.Equal(t, "verde-maintenance-green", tgs[1].Name)
}

func TestFindTargetGroups(t *testing.T) {
	mock := &mockELBAPI{
		describeTargetGroupsFunc: func(ctx context.Context, params *elbv2.DescribeTargetGroupsInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeTargetGroupsOutput, error) {
			assert.Equal(t, []string{"verde-default-blue"}, params.Names)
			return &elbv2.DescribeTargetGroupsOutput{
				TargetGroups: []elbtypes.TargetGroup{{
					TargetGroupName: awssdk.String("verde-default-blue"),
					TargetGroupArn:  awssdk.String("arn:aws:elasticloadbalancing:eu-west-3:123456:targetgroup/verde-default-blue/abc123"),
				}},
			}, nil
		},
	}

	tgs, err := NewClient(mock).FindTargetGroups(context.Background(), "verde-default-blue")
	require.NoError(t, err)
	require.Len(t, tgs, 1)
	assert.Equal(t, "arn:aws:elasticloadbalancing:eu-west-3:123456:targetgroup/verde-default-blue/abc123", tgs[0].ARN)
}

func TestFindTargetGroups_NotFound(t *testing.T) {
	mock := &mockELBAPI{
		describeTargetGroupsFunc: func(ctx context.Context, params *elbv2.DescribeTargetGroupsInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeTargetGroupsOutput, error) {
			return nil, &elbtypes.TargetGroupNotFoundException{Message: awssdk.String("One or more target groups not found")}
		},
	}

	tgs, err := NewClient(mock).FindTargetGroups(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, tgs)
}

func TestGetTargetHealth(t *testing.T) {
	mock := &mockELBAPI{
		describeTargetHealthFunc: func(ctx context.Context, params *elbv2.DescribeTargetHealthInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeTargetHealthOutput, error) {
			return &elbv2.DescribeTargetHealthOutput{
				TargetHealthDescriptions: []elbtypes.TargetHealthDescription{
					{TargetHealth: &elbtypes.TargetHealth{State: elbtypes.TargetHealthStateEnumHealthy}},
					{TargetHealth: &elbtypes.TargetHealth{State: elbtypes.TargetHealthStateEnumHealthy}},
					{TargetHealth: &elbtypes.TargetHealth{State: elbtypes.TargetHealthStateEnumUnhealthy}},
					{TargetHealth: &elbtypes.TargetHealth{State: elbtypes.TargetHealthStateEnumDraining}},
				},
			}, nil
		},
	}

	health, err := NewClient(mock).GetTargetHealth(context.Background(), "arn:tg")
	require.NoError(t, err)
	assert.Equal(t, 4, health.Registered)
	assert.Equal(t, 2, health.HealthyCount)
	assert.Equal(t, 1, health.UnhealthyCount)
}

func TestGetResourceTags_BatchesOfTwenty(t *testing.T) {
	var arns []string
	for i := range 45 {
		arns = append(arns, fmt.Sprintf("arn:tg-%02d", i))
	}

	var batchSizes []int
	mock := &mockELBAPI{
		describeTagsFunc: func(ctx context.Context, params *elbv2.DescribeTagsInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeTagsOutput, error) {
			batchSizes = append(batchSizes, len(params.ResourceArns))
			var descs []elbtypes.TagDescription
			// Reverse order to check the client restores request order.
			for i := len(params.ResourceArns) - 1; i >= 0; i-- {
				arn := params.ResourceArns[i]
				descs = append(descs, elbtypes.TagDescription{
					ResourceArn: awssdk.String(arn),
					Tags:        []elbtypes.Tag{{Key: awssdk.String("Name"), Value: awssdk.String(arn)}},
				})
			}
			return &elbv2.DescribeTagsOutput{TagDescriptions: descs}, nil
		},
	}

	tags, err := NewClient(mock).GetResourceTags(context.Background(), arns)
	require.NoError(t, err)
	assert.Equal(t, []int{20, 20, 5}, batchSizes)
	require.Len(t, tags, 45)
	for i, rt := range tags {
		assert.Equal(t, arns[i], rt.ARN)
		assert.Equal(t, arns[i], rt.Tags["Name"])
	}
}

func TestGetResourceTags_Error(t *testing.T) {
	mock := &mockELBAPI{
		describeTagsFunc: func(ctx context.Context, params *elbv2.DescribeTagsInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeTagsOutput, error) {
			return nil, fmt.Errorf("throttled")
		},
	}

	_, err := NewClient(mock).GetResourceTags(context.Background(), []string{"arn:tg"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DescribeTags")
}

func TestSetRuleTargetGroup(t *testing.T) {
	var got *elbv2.ModifyRuleInput
	mock := &mockELBAPI{
		modifyRuleFunc: func(ctx context.Context, params *elbv2.ModifyRuleInput, optFns ...func(*elbv2.Options)) (*elbv2.ModifyRuleOutput, error) {
			got = params
			return &elbv2.ModifyRuleOutput{}, nil
		},
	}

	err := NewClient(mock).SetRuleTargetGroup(context.Background(), "arn:rule-1", "arn:tg-green")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "arn:rule-1", awssdk.ToString(got.RuleArn))
	require.Len(t, got.Actions, 1)
	assert.Equal(t, elbtypes.ActionTypeEnumForward, got.Actions[0].Type)
	assert.Equal(t, "arn:tg-green", awssdk.ToString(got.Actions[0].TargetGroupArn))
}

func TestSetRuleTargetGroup_Error(t *testing.T) {
	mock := &mockELBAPI{
		modifyRuleFunc: func(ctx context.Context, params *elbv2.ModifyRuleInput, optFns ...func(*elbv2.Options)) (*elbv2.ModifyRuleOutput, error) {
			return nil, fmt.Errorf("rule not found")
		},
	}

	err := NewClient(mock).SetRuleTargetGroup(context.Background(), "arn:rule-1", "arn:tg-green")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ModifyRule arn:rule-1")
}
