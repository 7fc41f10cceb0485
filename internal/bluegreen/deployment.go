package bluegreen

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"lcdp.dev/bluegreen/internal/aws/elb"
	"lcdp.dev/bluegreen/internal/log"
	"lcdp.dev/bluegreen/internal/metrics"
)

// Deployment is a snapshot of one blue/green pair behind a load balancer.
type Deployment struct {
	LoadBalancer    elb.LoadBalancer
	Listener        elb.Listener
	UncoloredRules  []elb.Rule
	ProductionColor Color
	ProductionType  EnvType

	// Repositories is only filled when an image tag was requested.
	Repositories        []Repository
	DroppedRepositories []string

	environments map[Color]map[EnvType]*Environment
}

// Environment returns the environment of color and envType.
func (d *Deployment) Environment(color Color, envType EnvType) *Environment {
	return d.environments[color][envType]
}

// Production returns the environment the listener currently forwards to.
func (d *Deployment) Production() *Environment {
	return d.Environment(d.ProductionColor, d.ProductionType)
}

// Idle returns the default environment of the color not in production.
func (d *Deployment) Idle() *Environment {
	return d.Environment(d.ProductionColor.Opposite(), Default)
}

// LoadOptions selects the pair to load.
type LoadOptions struct {
	// LoadBalancerNameContains selects the load balancer by a fragment of
	// its name when LoadBalancerName is empty.
	LoadBalancerName         string
	LoadBalancerNameContains string

	Cluster    string
	SSLEnabled bool
	// ListenerARN disambiguates between several production listeners.
	ListenerARN string
	// ImageTag, when set, resolves the repositories named in Repositories,
	// or every repository starting with RepositoryPrefix.
	ImageTag         string
	Repositories     []string
	RepositoryPrefix string
}

// Loader reads a Deployment from live state.
type Loader struct {
	LoadBalancers LoadBalancerAPI
	// Tags is optional. Without it target groups are resolved by describing
	// the load balancer.
	Tags     TagSearchAPI
	Services ServiceAPI
	Scaling  ScalingAPI
	Images   ImageAPI
	Naming   NamingScheme
	Scope    Scope

	logger zerolog.Logger
}

func NewLoader(lbs LoadBalancerAPI, tags TagSearchAPI, services ServiceAPI, scaling ScalingAPI, images ImageAPI, naming NamingScheme, scope Scope) *Loader {
	return &Loader{
		LoadBalancers: lbs,
		Tags:          tags,
		Services:      services,
		Scaling:       scaling,
		Images:        images,
		Naming:        naming,
		Scope:         scope,
		logger:        log.WithComponent("loader"),
	}
}

// Load resolves the load balancer, its production listener and color, the
// uncolored rules and the four environments of the pair.
func (l *Loader) Load(ctx context.Context, opts LoadOptions) (*Deployment, error) {
	reader := NewALBReader(l.LoadBalancers)

	lb, err := l.LoadBalancer(ctx, opts)
	if err != nil {
		return nil, err
	}
	listener, err := reader.ResolveProductionListener(ctx, lb, opts.SSLEnabled, opts.ListenerARN)
	if err != nil {
		return nil, err
	}
	color, envType, err := reader.ResolveProductionColorAndType(ctx, listener)
	if err != nil {
		return nil, err
	}
	rules, err := reader.ListUncoloredRules(ctx, listener)
	if err != nil {
		return nil, err
	}

	d := &Deployment{
		LoadBalancer:    lb,
		Listener:        listener,
		UncoloredRules:  rules,
		ProductionColor: color,
		ProductionType:  envType,
		environments:    make(map[Color]map[EnvType]*Environment),
	}
	metrics.SetProductionColor(string(color), colorLabels()...)

	builder := NewBuilder(l.resolver(), l.Services, l.Scaling, l.Naming, l.Scope)
	for _, c := range Colors {
		d.environments[c] = make(map[EnvType]*Environment)
		for _, t := range []EnvType{Default, Maintenance} {
			env, err := builder.Build(ctx, c, t, opts.Cluster)
			if err != nil {
				return nil, err
			}
			d.environments[c][t] = env
		}
	}

	if opts.ImageTag != "" {
		if err := l.loadRepositories(ctx, d, opts); err != nil {
			return nil, err
		}
	}

	l.logger.Info().
		Str("load_balancer", lb.Name).
		Str("production", d.Production().String()).
		Int("uncolored_rules", len(rules)).
		Msg("deployment loaded")
	return d, nil
}

// LoadBalancer resolves the load balancer selected by opts.
func (l *Loader) LoadBalancer(ctx context.Context, opts LoadOptions) (elb.LoadBalancer, error) {
	reader := NewALBReader(l.LoadBalancers)
	switch {
	case opts.LoadBalancerName != "":
		return reader.ResolveLoadBalancer(ctx, opts.LoadBalancerName)
	case opts.LoadBalancerNameContains != "":
		return reader.ResolveLoadBalancerNameContains(ctx, opts.LoadBalancerNameContains)
	default:
		return elb.LoadBalancer{}, fmt.Errorf("no load balancer name given")
	}
}

func (l *Loader) resolver() TargetGroupResolver {
	describe := NewDescribeResolver(l.LoadBalancers)
	if l.Tags == nil {
		return describe
	}
	return NewFallbackResolver(NewTagSearchResolver(l.Tags), describe)
}

func (l *Loader) loadRepositories(ctx context.Context, d *Deployment, opts LoadOptions) error {
	if l.Images == nil {
		return fmt.Errorf("image tag %q requested without an image registry", opts.ImageTag)
	}

	names := opts.Repositories
	if len(names) == 0 {
		discovered, err := DiscoverRepositories(ctx, l.Images, opts.RepositoryPrefix)
		if err != nil {
			return err
		}
		names = discovered
	}

	repos, dropped, err := ResolveRepositories(ctx, l.Images, names, opts.ImageTag)
	if err != nil {
		return err
	}
	d.Repositories = repos
	d.DroppedRepositories = dropped
	if len(dropped) > 0 {
		l.logger.Warn().Str("tag", opts.ImageTag).Strs("repositories", dropped).Msg("repositories without image dropped")
	}
	return nil
}
