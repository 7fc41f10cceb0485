package bluegreen

import (
	"context"
	"slices"
	"sync"
	"time"

	"lcdp.dev/bluegreen/internal/aws/autoscaling"
	"lcdp.dev/bluegreen/internal/aws/ecr"
	"lcdp.dev/bluegreen/internal/aws/ecs"
	"lcdp.dev/bluegreen/internal/aws/elb"
	"lcdp.dev/bluegreen/internal/aws/tagging"
)

type fakeLB struct {
	loadBalancers []elb.LoadBalancer
	listeners     []elb.Listener
	rules         []elb.Rule
	targetGroups  []elb.TargetGroup
	targetHealth  map[string]elb.TargetHealth
	tags          map[string]map[string]string

	// listenerRules overrides rules per listener ARN.
	listenerRules map[string][]elb.Rule

	// attachedTargetGroups, when set, are the only target groups listed for
	// a load balancer ARN.
	attachedTargetGroups []string

	findErr          error
	listTGErr        error
	tagsErr          error
	setRuleTargetErr map[string]error

	tagCalls           [][]string
	targetGroupQueries []string
	modified           []ruleTarget
}

type ruleTarget struct {
	Rule        string
	TargetGroup string
}

func (f *fakeLB) FindLoadBalancers(ctx context.Context, name string) ([]elb.LoadBalancer, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	var out []elb.LoadBalancer
	for _, lb := range f.loadBalancers {
		if lb.Name == name {
			out = append(out, lb)
		}
	}
	return out, nil
}

func (f *fakeLB) ListLoadBalancers(ctx context.Context) ([]elb.LoadBalancer, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.loadBalancers, nil
}

func (f *fakeLB) ListListeners(ctx context.Context, lbARN string) ([]elb.Listener, error) {
	return f.listeners, nil
}

func (f *fakeLB) ListRules(ctx context.Context, listenerARN string) ([]elb.Rule, error) {
	if f.listenerRules != nil {
		return f.listenerRules[listenerARN], nil
	}
	return f.rules, nil
}

func (f *fakeLB) ListTargetGroups(ctx context.Context, lbARN string) ([]elb.TargetGroup, error) {
	f.targetGroupQueries = append(f.targetGroupQueries, lbARN)
	if f.listTGErr != nil {
		return nil, f.listTGErr
	}
	if lbARN == "" || f.attachedTargetGroups == nil {
		return f.targetGroups, nil
	}
	var out []elb.TargetGroup
	for _, tg := range f.targetGroups {
		if slices.Contains(f.attachedTargetGroups, tg.ARN) {
			out = append(out, tg)
		}
	}
	return out, nil
}

func (f *fakeLB) FindTargetGroups(ctx context.Context, name string) ([]elb.TargetGroup, error) {
	var out []elb.TargetGroup
	for _, tg := range f.targetGroups {
		if tg.Name == name {
			out = append(out, tg)
		}
	}
	return out, nil
}

func (f *fakeLB) GetTargetHealth(ctx context.Context, targetGroupARN string) (elb.TargetHealth, error) {
	return f.targetHealth[targetGroupARN], nil
}

func (f *fakeLB) GetResourceTags(ctx context.Context, arns []string) ([]elb.ResourceTags, error) {
	f.tagCalls = append(f.tagCalls, arns)
	if f.tagsErr != nil {
		return nil, f.tagsErr
	}
	var out []elb.ResourceTags
	for _, arn := range arns {
		if tags, ok := f.tags[arn]; ok {
			out = append(out, elb.ResourceTags{ARN: arn, Tags: tags})
		}
	}
	return out, nil
}

func (f *fakeLB) SetRuleTargetGroup(ctx context.Context, ruleARN, targetGroupARN string) error {
	if err := f.setRuleTargetErr[ruleARN]; err != nil {
		return err
	}
	f.modified = append(f.modified, ruleTarget{Rule: ruleARN, TargetGroup: targetGroupARN})
	return nil
}

type fakeTags struct {
	resources []tagging.TaggedResource
	err       error
	filters   []tagging.TagFilter
	calls     int
}

func (f *fakeTags) FindResources(ctx context.Context, filters []tagging.TagFilter, resourceType string) ([]tagging.TaggedResource, error) {
	f.calls++
	f.filters = filters
	if f.err != nil {
		return nil, f.err
	}
	return f.resources, nil
}

type fakeServices struct {
	mu sync.Mutex

	arns    map[string][]string
	listErr error
	// describe answers one poll. poll starts at 1.
	describe func(poll int, cluster string, arns []string) ([]ecs.ECSService, error)
	setErr   map[string]error

	listCalls int
	polls     int
	started   []string
}

func (f *fakeServices) ListServiceARNs(ctx context.Context, cluster string) ([]string, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.arns[cluster], nil
}

func (f *fakeServices) DescribeServices(ctx context.Context, cluster string, arns []string) ([]ecs.ECSService, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if f.describe == nil {
		return steady(arns), nil
	}
	return f.describe(f.polls, cluster, arns)
}

func (f *fakeServices) SetDesiredCount(ctx context.Context, cluster, serviceARN string, desired int) error {
	if err := f.setErr[serviceARN]; err != nil {
		return err
	}
	f.started = append(f.started, serviceARN)
	return nil
}

type registration struct {
	ResourceID string
	Min, Max   int
}

type fakeScaling struct {
	targets    map[string]*autoscaling.AutoScalingTarget
	getErr     map[string]error
	registered []registration
}

func (f *fakeScaling) GetECSScalableTarget(ctx context.Context, resourceID string) (*autoscaling.AutoScalingTarget, error) {
	if err := f.getErr[resourceID]; err != nil {
		return nil, err
	}
	return f.targets[resourceID], nil
}

func (f *fakeScaling) RegisterECSScalableTarget(ctx context.Context, resourceID string, minCapacity, maxCapacity int) error {
	f.registered = append(f.registered, registration{ResourceID: resourceID, Min: minCapacity, Max: maxCapacity})
	return nil
}

type fakeImages struct {
	repos     []string
	images    map[string]*ecr.ECRImage // repo:tag
	manifests map[string]string        // digest
}

func (f *fakeImages) ListRepositoryNames(ctx context.Context, prefix string) ([]string, error) {
	return f.repos, nil
}

func (f *fakeImages) FindImageByTag(ctx context.Context, repoName, tag string) (*ecr.ECRImage, error) {
	return f.images[repoName+":"+tag], nil
}

func (f *fakeImages) GetImageManifest(ctx context.Context, repoName, digest string) (string, error) {
	return f.manifests[digest], nil
}

type recordingSleeper struct {
	sleeps []time.Duration
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.sleeps = append(r.sleeps, d)
	return ctx.Err()
}

// steady reports every service running its desired count.
func steady(arns []string) []ecs.ECSService {
	out := make([]ecs.ECSService, 0, len(arns))
	for _, arn := range arns {
		out = append(out, ecs.ECSService{ARN: arn, Status: ecs.StatusActive, DesiredCount: 2, RunningCount: 2})
	}
	return out
}

// lagging reports every service with one task short.
func lagging(arns []string) []ecs.ECSService {
	out := make([]ecs.ECSService, 0, len(arns))
	for _, arn := range arns {
		out = append(out, ecs.ECSService{ARN: arn, Status: ecs.StatusActive, DesiredCount: 2, RunningCount: 1})
	}
	return out
}

// stopped reports every service scaled to zero.
func stopped(arns []string) []ecs.ECSService {
	out := make([]ecs.ECSService, 0, len(arns))
	for _, arn := range arns {
		out = append(out, ecs.ECSService{ARN: arn, Status: ecs.StatusActive})
	}
	return out
}

func serviceARN(cluster, name string) string {
	return "arn:aws:ecs:eu-west-3:123456789012:service/" + cluster + "/" + name
}

func forwardRule(arn, host, targetGroup string) elb.Rule {
	return elb.Rule{
		ARN:        arn,
		Conditions: []elb.Condition{{Field: elb.FieldHostHeader, Values: []string{host}}},
		Actions:    []elb.Action{{Type: elb.ActionTypeForward, TargetGroupARN: targetGroup}},
	}
}

func newTestGate(services ServiceAPI, sleeper *recordingSleeper) *HealthGate {
	gate := NewHealthGate(services)
	gate.Sleep = sleeper.Sleep
	return gate
}
