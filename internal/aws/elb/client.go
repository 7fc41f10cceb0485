package elb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"
)

// maxTagBatch is the DescribeTags limit on resource ARNs per call.
const maxTagBatch = 20

type ELBAPI interface {
	DescribeLoadBalancers(ctx context.Context, params *elbv2.DescribeLoadBalancersInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeLoadBalancersOutput, error)
	DescribeListeners(ctx context.Context, params *elbv2.DescribeListenersInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeListenersOutput, error)
	DescribeTargetGroups(ctx context.Context, params *elbv2.DescribeTargetGroupsInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeTargetGroupsOutput, error)
	DescribeTargetHealth(ctx context.Context, params *elbv2.DescribeTargetHealthInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeTargetHealthOutput, error)
	DescribeRules(ctx context.Context, params *elbv2.DescribeRulesInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeRulesOutput, error)
	DescribeTags(ctx context.Context, params *elbv2.DescribeTagsInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeTagsOutput, error)
	ModifyRule(ctx context.Context, params *elbv2.ModifyRuleInput, optFns ...func(*elbv2.Options)) (*elbv2.ModifyRuleOutput, error)
}

type Client struct {
	api ELBAPI
}

func NewClient(api ELBAPI) *Client {
	return &Client{api: api}
}

// FindLoadBalancers returns the load balancers registered under name. An
// unknown name yields an empty slice, not an error.
func (c *Client) FindLoadBalancers(ctx context.Context, name string) ([]LoadBalancer, error) {
	out, err := c.api.DescribeLoadBalancers(ctx, &elbv2.DescribeLoadBalancersInput{
		Names: []string{name},
	})
	if err != nil {
		var notFound *elbtypes.LoadBalancerNotFoundException
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("DescribeLoadBalancers: %w", err)
	}

	return buildLoadBalancers(out.LoadBalancers), nil
}

// ListLoadBalancers returns every load balancer of the region.
func (c *Client) ListLoadBalancers(ctx context.Context) ([]LoadBalancer, error) {
	var lbs []LoadBalancer
	var marker *string

	for {
		out, err := c.api.DescribeLoadBalancers(ctx, &elbv2.DescribeLoadBalancersInput{
			Marker: marker,
		})
		if err != nil {
			return nil, fmt.Errorf("DescribeLoadBalancers: %w", err)
		}
		lbs = append(lbs, buildLoadBalancers(out.LoadBalancers)...)

		if out.NextMarker == nil {
			break
		}
		marker = out.NextMarker
	}
	return lbs, nil
}

func (c *Client) ListListeners(ctx context.Context, lbARN string) ([]Listener, error) {
	var listeners []Listener
	var marker *string

	for {
		out, err := c.api.DescribeListeners(ctx, &elbv2.DescribeListenersInput{
			LoadBalancerArn: aws.String(lbARN),
			Marker:          marker,
		})
		if err != nil {
			return nil, fmt.Errorf("DescribeListeners: %w", err)
		}

		for _, l := range out.Listeners {
			listeners = append(listeners, Listener{
				ARN:            aws.ToString(l.ListenerArn),
				Port:           int(aws.ToInt32(l.Port)),
				Protocol:       string(l.Protocol),
				DefaultActions: buildActions(l.DefaultActions),
			})
		}

		if out.NextMarker == nil {
			break
		}
		marker = out.NextMarker
	}
	return listeners, nil
}

// ListTargetGroups returns the target groups attached to the load balancer
// lbARN. An empty lbARN lists every target group of the region, including
// those no listener forwards to.
func (c *Client) ListTargetGroups(ctx context.Context, lbARN string) ([]TargetGroup, error) {
	var tgs []TargetGroup
	var marker *string

	for {
		input := &elbv2.DescribeTargetGroupsInput{Marker: marker}
		if lbARN != "" {
			input.LoadBalancerArn = aws.String(lbARN)
		}
		out, err := c.api.DescribeTargetGroups(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("DescribeTargetGroups: %w", err)
		}
		tgs = append(tgs, buildTargetGroups(out.TargetGroups)...)

		if out.NextMarker == nil {
			break
		}
		marker = out.NextMarker
	}
	return tgs, nil
}

// FindTargetGroups returns the target groups named name. An unknown name
// yields an empty slice, not an error.
func (c *Client) FindTargetGroups(ctx context.Context, name string) ([]TargetGroup, error) {
	out, err := c.api.DescribeTargetGroups(ctx, &elbv2.DescribeTargetGroupsInput{
		Names: []string{name},
	})
	if err != nil {
		var notFound *elbtypes.TargetGroupNotFoundException
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("DescribeTargetGroups %s: %w", name, err)
	}
	return buildTargetGroups(out.TargetGroups), nil
}

// GetTargetHealth counts the targets registered in a target group and how
// many of them are healthy or unhealthy.
func (c *Client) GetTargetHealth(ctx context.Context, targetGroupARN string) (TargetHealth, error) {
	out, err := c.api.DescribeTargetHealth(ctx, &elbv2.DescribeTargetHealthInput{
		TargetGroupArn: aws.String(targetGroupARN),
	})
	if err != nil {
		return TargetHealth{}, fmt.Errorf("DescribeTargetHealth for %s: %w", targetGroupARN, err)
	}

	health := TargetHealth{Registered: len(out.TargetHealthDescriptions)}
	for _, th := range out.TargetHealthDescriptions {
		if th.TargetHealth == nil {
			continue
		}
		switch th.TargetHealth.State {
		case elbtypes.TargetHealthStateEnumHealthy:
			health.HealthyCount++
		case elbtypes.TargetHealthStateEnumUnhealthy:
			health.UnhealthyCount++
		}
	}
	return health, nil
}

func (c *Client) ListRules(ctx context.Context, listenerARN string) ([]Rule, error) {
	var rules []Rule
	var marker *string

	for {
		out, err := c.api.DescribeRules(ctx, &elbv2.DescribeRulesInput{
			ListenerArn: aws.String(listenerARN),
			Marker:      marker,
		})
		if err != nil {
			return nil, fmt.Errorf("DescribeRules: %w", err)
		}

		for _, r := range out.Rules {
			rule := Rule{
				ARN:       aws.ToString(r.RuleArn),
				Priority:  aws.ToString(r.Priority),
				IsDefault: aws.ToBool(r.IsDefault),
				Actions:   buildActions(r.Actions),
			}
			for _, cond := range r.Conditions {
				rule.Conditions = append(rule.Conditions, buildCondition(cond))
			}
			rules = append(rules, rule)
		}

		if out.NextMarker == nil {
			break
		}
		marker = out.NextMarker
	}
	return rules, nil
}

// GetResourceTags describes the tags of arns in batches of maxTagBatch. The
// result follows the order of arns; resources AWS does not report are omitted.
func (c *Client) GetResourceTags(ctx context.Context, arns []string) ([]ResourceTags, error) {
	var result []ResourceTags
	for i := 0; i < len(arns); i += maxTagBatch {
		end := min(i+maxTagBatch, len(arns))
		batch := arns[i:end]

		out, err := c.api.DescribeTags(ctx, &elbv2.DescribeTagsInput{
			ResourceArns: batch,
		})
		if err != nil {
			return nil, fmt.Errorf("DescribeTags: %w", err)
		}

		byARN := make(map[string]map[string]string, len(out.TagDescriptions))
		for _, td := range out.TagDescriptions {
			tags := make(map[string]string, len(td.Tags))
			for _, t := range td.Tags {
				tags[aws.ToString(t.Key)] = aws.ToString(t.Value)
			}
			byARN[aws.ToString(td.ResourceArn)] = tags
		}
		for _, arn := range batch {
			if tags, ok := byARN[arn]; ok {
				result = append(result, ResourceTags{ARN: arn, Tags: tags})
			}
		}
	}
	return result, nil
}

// SetRuleTargetGroup replaces the actions of a rule with a single forward
// to targetGroupARN.
func (c *Client) SetRuleTargetGroup(ctx context.Context, ruleARN, targetGroupARN string) error {
	_, err := c.api.ModifyRule(ctx, &elbv2.ModifyRuleInput{
		RuleArn: aws.String(ruleARN),
		Actions: []elbtypes.Action{
			{
				Type:           elbtypes.ActionTypeEnumForward,
				TargetGroupArn: aws.String(targetGroupARN),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ModifyRule %s: %w", ruleARN, err)
	}
	return nil
}

func buildLoadBalancers(in []elbtypes.LoadBalancer) []LoadBalancer {
	lbs := make([]LoadBalancer, 0, len(in))
	for _, lb := range in {
		var state string
		if lb.State != nil {
			state = string(lb.State.Code)
		}
		lbs = append(lbs, LoadBalancer{
			Name:    aws.ToString(lb.LoadBalancerName),
			ARN:     aws.ToString(lb.LoadBalancerArn),
			Type:    string(lb.Type),
			State:   state,
			Scheme:  string(lb.Scheme),
			DNSName: aws.ToString(lb.DNSName),
		})
	}
	return lbs
}

func buildTargetGroups(in []elbtypes.TargetGroup) []TargetGroup {
	tgs := make([]TargetGroup, 0, len(in))
	for _, tg := range in {
		tgs = append(tgs, TargetGroup{
			Name:       aws.ToString(tg.TargetGroupName),
			ARN:        aws.ToString(tg.TargetGroupArn),
			Protocol:   string(tg.Protocol),
			Port:       int(aws.ToInt32(tg.Port)),
			TargetType: string(tg.TargetType),
		})
	}
	return tgs
}

func buildActions(actions []elbtypes.Action) []Action {
	result := make([]Action, 0, len(actions))
	for _, a := range actions {
		action := Action{
			Type:           string(a.Type),
			TargetGroupARN: aws.ToString(a.TargetGroupArn),
		}
		if action.TargetGroupARN == "" && a.ForwardConfig != nil {
			for _, tg := range a.ForwardConfig.TargetGroups {
				if arn := aws.ToString(tg.TargetGroupArn); arn != "" {
					action.ForwardTargetGroups = append(action.ForwardTargetGroups, arn)
				}
			}
		}
		result = append(result, action)
	}
	return result
}

// buildCondition flattens the typed config blocks and the legacy Values
// field into one Values list.
func buildCondition(c elbtypes.RuleCondition) Condition {
	cond := Condition{Field: aws.ToString(c.Field)}
	switch {
	case c.HostHeaderConfig != nil:
		cond.Values = c.HostHeaderConfig.Values
	case c.PathPatternConfig != nil:
		cond.Values = c.PathPatternConfig.Values
	case c.HttpRequestMethodConfig != nil:
		cond.Values = c.HttpRequestMethodConfig.Values
	case c.SourceIpConfig != nil:
		cond.Values = c.SourceIpConfig.Values
	default:
		cond.Values = c.Values
	}
	if cond.Field == "" && c.HostHeaderConfig != nil {
		cond.Field = FieldHostHeader
	}
	return cond
}
