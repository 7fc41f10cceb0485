package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	awsclient "lcdp.dev/bluegreen/internal/aws"
	"lcdp.dev/bluegreen/internal/bluegreen"
	"lcdp.dev/bluegreen/internal/config"
	"lcdp.dev/bluegreen/internal/log"
	"lcdp.dev/bluegreen/internal/metrics"
)

var errNoCluster = errors.New("no cluster: set --cluster or cluster in the config file")

// Options holds the flags shared by every command.
type Options struct {
	Profile     string
	Region      string
	ALBName     string
	ALBMatch    string
	Cluster     string
	SSL         bool
	ListenerARN string
	Workspace   string
	ScopeTag    string
	MetricsFile string
	LogLevel    string
	LogJSON     bool
}

// AddFlags registers the shared flags as persistent flags of cmd.
func (o *Options) AddFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVarP(&o.Profile, "profile", "p", "", "AWS profile to use")
	f.StringVarP(&o.Region, "region", "r", "", "AWS region to use")
	f.StringVar(&o.ALBName, "alb", "", "name of the application load balancer")
	f.StringVar(&o.ALBMatch, "alb-match", "", "select the load balancer whose name contains this fragment")
	f.StringVar(&o.Cluster, "cluster", "", "ECS cluster running both environments")
	f.BoolVar(&o.SSL, "ssl", false, "production listener is HTTPS:443 instead of HTTP:80")
	f.StringVar(&o.ListenerARN, "listener-arn", "", "production listener ARN when several qualify")
	f.StringVar(&o.Workspace, "workspace", "", "workspace scoping target groups and service names")
	f.StringVar(&o.ScopeTag, "tag", "", "target group tag holding the workspace (default \"workspace\")")
	f.StringVar(&o.MetricsFile, "metrics-file", "", "write prometheus metrics to this file on exit")
	f.StringVar(&o.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	f.BoolVar(&o.LogJSON, "log-json", false, "log as JSON")
}

// runtime is everything a command needs, built from flags and config.
type runtime struct {
	cfg      *config.Config
	load     bluegreen.LoadOptions
	client   *awsclient.ServiceClient
	loader   *bluegreen.Loader
	executor *bluegreen.Executor
}

// resolve merges flags over the config file. Flags win.
func (o *Options) resolve(cmd *cobra.Command, cfg *config.Config) (*config.Config, error) {
	merged := *cfg
	merged.DefaultProfile, merged.DefaultRegion = cfg.Merge(o.Profile, o.Region)
	merged.ALBName = config.Override(o.ALBName, cfg.ALBName)
	merged.ALBNameContains = config.Override(o.ALBMatch, cfg.ALBNameContains)
	merged.Cluster = config.Override(o.Cluster, cfg.Cluster)
	merged.ListenerARN = config.Override(o.ListenerARN, cfg.ListenerARN)
	merged.Workspace = config.Override(o.Workspace, cfg.Workspace)
	merged.ScopeTag = config.Override(o.ScopeTag, cfg.ScopeTag)
	merged.MetricsFile = config.Override(o.MetricsFile, cfg.MetricsFile)
	merged.LogLevel = config.Override(o.LogLevel, cfg.LogLevel)
	if cmd.Flags().Changed("ssl") {
		merged.SSLEnabled = o.SSL
	}
	if cmd.Flags().Changed("log-json") {
		merged.LogJSON = o.LogJSON
	}

	if merged.ALBName == "" && merged.ALBNameContains == "" {
		return nil, fmt.Errorf("no load balancer: set --alb, --alb-match or alb_name in the config file")
	}
	return &merged, nil
}

func (o *Options) setup(cmd *cobra.Command) (*runtime, error) {
	fileCfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg, err := o.resolve(cmd, fileCfg)
	if err != nil {
		return nil, err
	}

	log.Init(log.Config{
		Level:      log.Level(strings.ToLower(config.Override(cfg.LogLevel, string(log.InfoLevel)))),
		JSONOutput: cfg.LogJSON,
		Output:     cmd.ErrOrStderr(),
	})

	client, err := awsclient.NewServiceClient(cmd.Context(), cfg.DefaultProfile, cfg.DefaultRegion)
	if err != nil {
		return nil, fmt.Errorf("initializing AWS client: %w", err)
	}
	log.Logger.Debug().Str("account", client.AccountID).Str("region", cfg.DefaultRegion).Msg("AWS client ready")

	naming, scope := namingFor(cfg)
	gate := bluegreen.NewHealthGate(client.ECS)
	gate.Interval = cfg.HealthInterval()
	gate.Retries = cfg.HealthPolls()

	return &runtime{
		cfg: cfg,
		load: bluegreen.LoadOptions{
			LoadBalancerName:         cfg.ALBName,
			LoadBalancerNameContains: cfg.ALBNameContains,
			Cluster:                  cfg.Cluster,
			SSLEnabled:               cfg.SSLEnabled,
			ListenerARN:              cfg.ListenerARN,
			RepositoryPrefix:         cfg.Prefix(),
		},
		client:   client,
		loader:   bluegreen.NewLoader(client.ELB, client.Tagging, client.ECS, client.AutoScaling, client.ECR, naming, scope),
		executor: bluegreen.NewExecutor(client.ELB, gate, naming),
	}, nil
}

// namingFor picks the service naming scheme and target group scope.
func namingFor(cfg *config.Config) (bluegreen.NamingScheme, bluegreen.Scope) {
	scope := bluegreen.Scope{Key: cfg.ScopeKey(), Value: cfg.Workspace}
	if cfg.Workspace == "" || cfg.LegacyNaming {
		return bluegreen.LegacyNaming{}, scope
	}
	return bluegreen.WorkspaceNaming{Workspace: cfg.Workspace, RepositoryPrefix: cfg.Prefix()}, scope
}

// finish writes the metrics textfile when one is configured.
func (rt *runtime) finish() {
	if rt.cfg.MetricsFile == "" {
		return
	}
	if err := metrics.WriteTextfile(rt.cfg.MetricsFile); err != nil {
		log.Logger.Warn().Err(err).Str("path", rt.cfg.MetricsFile).Msg("metrics not written")
	}
}

// loadDeployment reads the deployment snapshot.
func (rt *runtime) loadDeployment(ctx context.Context, opts bluegreen.LoadOptions) (*bluegreen.Deployment, error) {
	if opts.Cluster == "" {
		return nil, errNoCluster
	}
	defer metrics.NewTimer().ObserveOperation("load")
	return rt.loader.Load(ctx, opts)
}
