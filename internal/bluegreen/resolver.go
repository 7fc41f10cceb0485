package bluegreen

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"

	"lcdp.dev/bluegreen/internal/aws/tagging"
	"lcdp.dev/bluegreen/internal/log"
)

// Target group tag keys.
const (
	TagColor = "Color"
	TagType  = "Type"
)

// Scope restricts target group resolution to resources tagged Key=Value.
// The zero Scope matches every target group.
type Scope struct {
	Key   string
	Value string
}

func (s Scope) String() string {
	if s.Value == "" {
		return ""
	}
	return s.Key + "=" + s.Value
}

// TargetGroupResolver finds the unique target group of an environment.
type TargetGroupResolver interface {
	ResolveTargetGroup(ctx context.Context, envType EnvType, color Color, scope Scope) (string, error)
}

// TagSearchResolver queries the resource tagging API.
type TagSearchResolver struct {
	api TagSearchAPI
}

func NewTagSearchResolver(api TagSearchAPI) *TagSearchResolver {
	return &TagSearchResolver{api: api}
}

func (r *TagSearchResolver) ResolveTargetGroup(ctx context.Context, envType EnvType, color Color, scope Scope) (string, error) {
	filters := []tagging.TagFilter{{Key: TagType}, {Key: TagColor}}
	if scope.Value != "" {
		filters = append(filters, tagging.TagFilter{Key: scope.Key, Values: []string{scope.Value}})
	}

	resources, err := r.api.FindResources(ctx, filters, tagging.ResourceTypeTargetGroup)
	if err != nil {
		return "", err
	}

	var matches []string
	for _, res := range resources {
		if matchesTargetGroup(res.Tags, envType, color, scope) {
			matches = append(matches, res.ARN)
		}
	}
	return exactlyOne(matches, envType, color, scope)
}

// DescribeResolver lists every target group of the region and reads their
// tags. Target groups no listener forwards to, like an idle maintenance
// page, are found too.
type DescribeResolver struct {
	api LoadBalancerAPI
}

func NewDescribeResolver(api LoadBalancerAPI) *DescribeResolver {
	return &DescribeResolver{api: api}
}

func (r *DescribeResolver) ResolveTargetGroup(ctx context.Context, envType EnvType, color Color, scope Scope) (string, error) {
	tgs, err := r.api.ListTargetGroups(ctx, "")
	if err != nil {
		return "", err
	}
	if len(tgs) == 0 {
		return exactlyOne(nil, envType, color, scope)
	}

	arns := make([]string, 0, len(tgs))
	for _, tg := range tgs {
		arns = append(arns, tg.ARN)
	}
	tags, err := r.api.GetResourceTags(ctx, arns)
	if err != nil {
		return "", err
	}

	var matches []string
	for _, rt := range tags {
		if matchesTargetGroup(rt.Tags, envType, color, scope) {
			matches = append(matches, rt.ARN)
		}
	}
	return exactlyOne(matches, envType, color, scope)
}

// FallbackResolver tries Primary first and falls back to Fallback unless
// Primary found more than one match.
type FallbackResolver struct {
	Primary  TargetGroupResolver
	Fallback TargetGroupResolver

	logger zerolog.Logger
}

func NewFallbackResolver(primary, fallback TargetGroupResolver) *FallbackResolver {
	return &FallbackResolver{
		Primary:  primary,
		Fallback: fallback,
		logger:   log.WithComponent("resolver"),
	}
}

func (r *FallbackResolver) ResolveTargetGroup(ctx context.Context, envType EnvType, color Color, scope Scope) (string, error) {
	arn, err := r.Primary.ResolveTargetGroup(ctx, envType, color, scope)
	if err == nil {
		return arn, nil
	}
	if errors.Is(err, ErrAmbiguousResult) || ctx.Err() != nil {
		return "", err
	}

	event := r.logger.Warn().Err(err).
		Str("type", string(envType)).
		Str("color", string(color)).
		Str("scope", scope.String())
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		event = event.Str("code", apiErr.ErrorCode())
	}
	event.Msg("tag search failed, describing target groups")

	return r.Fallback.ResolveTargetGroup(ctx, envType, color, scope)
}

func matchesTargetGroup(tags map[string]string, envType EnvType, color Color, scope Scope) bool {
	if !strings.EqualFold(tagValue(tags, TagType), string(envType)) {
		return false
	}
	if !strings.EqualFold(tagValue(tags, TagColor), string(color)) {
		return false
	}
	if scope.Value != "" && tags[scope.Key] != scope.Value {
		return false
	}
	return true
}

func exactlyOne(matches []string, envType EnvType, color Color, scope Scope) (string, error) {
	if len(matches) != 1 {
		return "", &TargetGroupLookupError{
			Type:  envType,
			Color: color,
			Scope: scope.String(),
			Count: len(matches),
		}
	}
	return matches[0], nil
}

// tagValue looks key up exactly, then ignoring case.
func tagValue(tags map[string]string, key string) string {
	if v, ok := tags[key]; ok {
		return v
	}
	for k, v := range tags {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

var _ TargetGroupResolver = (*TagSearchResolver)(nil)
var _ TargetGroupResolver = (*DescribeResolver)(nil)
var _ TargetGroupResolver = (*FallbackResolver)(nil)
