package bluegreen

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"lcdp.dev/bluegreen/internal/aws/elb"
	"lcdp.dev/bluegreen/internal/log"
)

// Production listener protocol and port, by SSL flag.
const (
	ProtocolHTTPS = "HTTPS"
	ProtocolHTTP  = "HTTP"
	PortHTTPS     = 443
	PortHTTP      = 80
)

// ALBReader derives the production state of a load balancer.
type ALBReader struct {
	api    LoadBalancerAPI
	logger zerolog.Logger
}

func NewALBReader(api LoadBalancerAPI) *ALBReader {
	return &ALBReader{api: api, logger: log.WithComponent("alb")}
}

// ResolveLoadBalancer returns the only load balancer named name.
func (r *ALBReader) ResolveLoadBalancer(ctx context.Context, name string) (elb.LoadBalancer, error) {
	lbs, err := r.api.FindLoadBalancers(ctx, name)
	if err != nil {
		return elb.LoadBalancer{}, err
	}
	switch len(lbs) {
	case 0:
		return elb.LoadBalancer{}, fmt.Errorf("load balancer %q: %w", name, ErrNotFound)
	case 1:
		return lbs[0], nil
	default:
		return elb.LoadBalancer{}, fmt.Errorf("load balancer %q: %d matches: %w", name, len(lbs), ErrAmbiguousResult)
	}
}

// ResolveLoadBalancerNameContains returns the only load balancer whose name
// contains fragment.
func (r *ALBReader) ResolveLoadBalancerNameContains(ctx context.Context, fragment string) (elb.LoadBalancer, error) {
	lbs, err := r.api.ListLoadBalancers(ctx)
	if err != nil {
		return elb.LoadBalancer{}, err
	}

	var matches []elb.LoadBalancer
	for _, lb := range lbs {
		if strings.Contains(lb.Name, fragment) {
			matches = append(matches, lb)
		}
	}
	switch len(matches) {
	case 0:
		return elb.LoadBalancer{}, fmt.Errorf("load balancer named *%s*: %w", fragment, ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		names := make([]string, 0, len(matches))
		for _, lb := range matches {
			names = append(names, lb.Name)
		}
		return elb.LoadBalancer{}, fmt.Errorf("load balancer named *%s*: %s: %w", fragment, strings.Join(names, ", "), ErrAmbiguousResult)
	}
}

// ResolveProductionListener picks the HTTPS:443 listener when sslEnabled,
// HTTP:80 otherwise. With several candidates, selector must hold the ARN of
// one of them.
func (r *ALBReader) ResolveProductionListener(ctx context.Context, lb elb.LoadBalancer, sslEnabled bool, selector string) (elb.Listener, error) {
	protocol, port := ProtocolHTTP, PortHTTP
	if sslEnabled {
		protocol, port = ProtocolHTTPS, PortHTTPS
	}

	listeners, err := r.api.ListListeners(ctx, lb.ARN)
	if err != nil {
		return elb.Listener{}, err
	}

	var candidates []elb.Listener
	for _, l := range listeners {
		if strings.EqualFold(l.Protocol, protocol) && l.Port == port {
			candidates = append(candidates, l)
		}
	}

	if len(candidates) == 0 {
		return elb.Listener{}, fmt.Errorf("%s:%d listener on %s: %w", protocol, port, lb.Name, ErrNotFound)
	}
	if selector != "" {
		for _, l := range candidates {
			if l.ARN == selector {
				return l, nil
			}
		}
		return elb.Listener{}, fmt.Errorf("listener %s is not a %s:%d listener of %s: %w", selector, protocol, port, lb.Name, ErrNotFound)
	}
	if len(candidates) > 1 {
		return elb.Listener{}, fmt.Errorf("%d %s:%d listeners on %s, select one by ARN: %w", len(candidates), protocol, port, lb.Name, ErrAmbiguousResult)
	}
	return candidates[0], nil
}

// ResolveProductionColorAndType follows the default forward action of the
// listener to its target group and reads the Color and Type tags.
func (r *ALBReader) ResolveProductionColorAndType(ctx context.Context, listener elb.Listener) (Color, EnvType, error) {
	tgARN, err := defaultForwardTargetGroup(listener)
	if err != nil {
		return "", "", err
	}

	tags, err := r.api.GetResourceTags(ctx, []string{tgARN})
	if err != nil {
		return "", "", err
	}
	if len(tags) == 0 {
		return "", "", misconfigured("no tags on target group %s", tgARN)
	}

	color, err := ParseColor(tagValue(tags[0].Tags, TagColor))
	if err != nil {
		return "", "", misconfigured("target group %s: %s tag: %v", tgARN, TagColor, err)
	}
	envType, err := ParseEnvType(tagValue(tags[0].Tags, TagType))
	if err != nil {
		return "", "", misconfigured("target group %s: %s tag: %v", tgARN, TagType, err)
	}

	r.logger.Info().
		Str("listener", listener.ARN).
		Str("target_group", tgARN).
		Str("color", string(color)).
		Str("type", string(envType)).
		Msg("production environment found")
	return color, envType, nil
}

// ListUncoloredRules returns the rules of listener routing hosts that name
// no color. Rules without a host-header condition are left out.
func (r *ALBReader) ListUncoloredRules(ctx context.Context, listener elb.Listener) ([]elb.Rule, error) {
	rules, err := r.api.ListRules(ctx, listener.ARN)
	if err != nil {
		return nil, err
	}

	var uncolored []elb.Rule
	for _, rule := range rules {
		if IsUncolored(rule) {
			uncolored = append(uncolored, rule)
		}
	}
	r.logger.Debug().Int("rules", len(rules)).Int("uncolored", len(uncolored)).Msg("listener rules read")
	return uncolored, nil
}

// RulesByHostPrefix returns the rules of every listener of lb with a host
// value starting with one of prefixes. Each rule is returned once.
func (r *ALBReader) RulesByHostPrefix(ctx context.Context, lb elb.LoadBalancer, prefixes []string) ([]elb.Rule, error) {
	listeners, err := r.api.ListListeners(ctx, lb.ARN)
	if err != nil {
		return nil, err
	}

	var matched []elb.Rule
	seen := make(map[string]bool)
	for _, l := range listeners {
		rules, err := r.api.ListRules(ctx, l.ARN)
		if err != nil {
			return nil, err
		}
		for _, rule := range rules {
			if seen[rule.ARN] || !hostStartsWith(rule, prefixes) {
				continue
			}
			seen[rule.ARN] = true
			matched = append(matched, rule)
		}
	}
	return matched, nil
}

// ResolveTargetGroupByName returns the target group named name.
func (r *ALBReader) ResolveTargetGroupByName(ctx context.Context, name string) (elb.TargetGroup, error) {
	tgs, err := r.api.FindTargetGroups(ctx, name)
	if err != nil {
		return elb.TargetGroup{}, err
	}
	switch len(tgs) {
	case 0:
		return elb.TargetGroup{}, fmt.Errorf("target group %q: %w", name, ErrNotFound)
	case 1:
		return tgs[0], nil
	default:
		return elb.TargetGroup{}, fmt.Errorf("target group %q: %d matches: %w", name, len(tgs), ErrAmbiguousResult)
	}
}

// RunningTargetGroups returns the target groups whose name contains fragment
// and that have at least one registered target.
func (r *ALBReader) RunningTargetGroups(ctx context.Context, fragment string) ([]elb.TargetGroup, error) {
	tgs, err := r.api.ListTargetGroups(ctx, "")
	if err != nil {
		return nil, err
	}

	var running []elb.TargetGroup
	for _, tg := range tgs {
		if !strings.Contains(tg.Name, fragment) {
			continue
		}
		health, err := r.api.GetTargetHealth(ctx, tg.ARN)
		if err != nil {
			return nil, err
		}
		if health.Registered > 0 {
			running = append(running, tg)
		}
	}
	return running, nil
}

// IsUncolored reports whether rule has a host-header condition and none of
// its host values contains blue or green.
func IsUncolored(rule elb.Rule) bool {
	hosts, ok := rule.HostHeaderValues()
	if !ok {
		return false
	}
	for _, h := range hosts {
		if isColoredHost(h) {
			return false
		}
	}
	return true
}

func hostStartsWith(rule elb.Rule, prefixes []string) bool {
	hosts, _ := rule.HostHeaderValues()
	for _, h := range hosts {
		for _, p := range prefixes {
			if strings.HasPrefix(strings.ToLower(h), strings.ToLower(p)) {
				return true
			}
		}
	}
	return false
}

func isColoredHost(host string) bool {
	h := strings.ToLower(host)
	for _, c := range Colors {
		if strings.Contains(h, c.Lower()) {
			return true
		}
	}
	return false
}

func defaultForwardTargetGroup(listener elb.Listener) (string, error) {
	var forwards []elb.Action
	for _, a := range listener.DefaultActions {
		if a.Type == elb.ActionTypeForward {
			forwards = append(forwards, a)
		}
	}
	switch len(forwards) {
	case 0:
		return "", misconfigured("listener %s has no forward default action", listener.ARN)
	case 1:
	default:
		return "", fmt.Errorf("listener %s has %d forward default actions: %w", listener.ARN, len(forwards), ErrAmbiguousResult)
	}

	tgs := forwards[0].TargetGroups()
	switch len(tgs) {
	case 0:
		return "", misconfigured("forward default action of listener %s has no target group", listener.ARN)
	case 1:
		return tgs[0], nil
	default:
		return "", fmt.Errorf("listener %s forwards to %d target groups: %w", listener.ARN, len(tgs), ErrAmbiguousResult)
	}
}
