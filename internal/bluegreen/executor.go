package bluegreen

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"lcdp.dev/bluegreen/internal/aws/elb"
	"lcdp.dev/bluegreen/internal/log"
	"lcdp.dev/bluegreen/internal/metrics"
)

// DefaultSettleDelay lets the scheduler register a selective start before
// the health gate polls.
const DefaultSettleDelay = 10 * time.Second

// Operation names recorded in metrics.
const (
	OpStart   = "start"
	OpDeploy  = "deploy"
	OpBalance = "balance"
	OpCutover = "cutover"
	OpSwitch  = "switch"
)

// StartResult is the outcome of starting services of an environment.
type StartResult struct {
	Environment *Environment
	Started     []string
	State       State
}

// BalanceResult is the outcome of a rule rewrite.
type BalanceResult struct {
	From      *Environment
	To        *Environment
	Rewritten []string
	Skipped   []string
	State     State
}

// Executor starts environments and moves traffic between them.
type Executor struct {
	SettleDelay time.Duration

	lb     LoadBalancerAPI
	gate   *HealthGate
	naming NamingScheme
	logger zerolog.Logger
}

func NewExecutor(lb LoadBalancerAPI, gate *HealthGate, naming NamingScheme) *Executor {
	return &Executor{
		SettleDelay: DefaultSettleDelay,
		lb:          lb,
		gate:        gate,
		naming:      naming,
		logger:      log.WithComponent("executor"),
	}
}

// StartEnvironmentAndWaitForHealth starts every service of env and waits for
// all of them to be healthy.
func (e *Executor) StartEnvironmentAndWaitForHealth(ctx context.Context, env *Environment) (*StartResult, error) {
	defer metrics.NewTimer().ObserveOperation(OpStart)

	logger := log.WithColor(e.logger, string(env.Color), string(env.Type))
	result := &StartResult{Environment: env, State: StateStarting}

	if err := checkServing(env); err != nil {
		result.State = StateFailed
		logger.Error().Err(err).Strs("dropped", env.Dropped).Msg("environment cannot serve traffic")
		return result, err
	}

	logger.Info().Int("services", len(env.Services)).Msg("starting environment")
	started, err := e.start(ctx, env.Services)
	result.Started = started
	if err != nil {
		result.State = StateFailed
		return result, err
	}

	if err := e.gate.WaitUntilHealthy(ctx, env.Services); err != nil {
		result.State = StateFailed
		logger.Error().Err(err).Msg("environment unhealthy")
		return result, err
	}

	result.State = StateHealthy
	logger.Info().Msg("environment healthy")
	return result, nil
}

// DeploySelectedRepositories starts the services of env built from repos,
// then waits for the whole environment to be healthy. No matching service
// is not an error.
func (e *Executor) DeploySelectedRepositories(ctx context.Context, env *Environment, repos []string) (*StartResult, error) {
	defer metrics.NewTimer().ObserveOperation(OpDeploy)

	logger := log.WithColor(e.logger, string(env.Color), string(env.Type))
	result := &StartResult{Environment: env, State: StateStopped}

	suffixes := make([]string, 0, len(repos))
	for _, r := range repos {
		suffixes = append(suffixes, e.naming.ExpectedSuffix(r, env.Color))
	}

	var selected []*Service
	for _, s := range env.Services {
		if matchesAny(s.ResourceID, suffixes) {
			selected = append(selected, s)
		}
	}
	if len(selected) == 0 {
		logger.Info().Strs("repositories", repos).Msg("no service matches, nothing to deploy")
		return result, nil
	}

	result.State = StateStarting
	logger.Info().Strs("services", serviceNames(selected)).Msg("deploying services")
	started, err := e.start(ctx, selected)
	result.Started = started
	if err != nil {
		result.State = StateFailed
		return result, err
	}

	if err := e.gate.Sleep(ctx, e.SettleDelay); err != nil {
		result.State = StateFailed
		return result, err
	}

	if err := e.gate.WaitUntilHealthy(ctx, env.Services); err != nil {
		result.State = StateFailed
		logger.Error().Err(err).Msg("environment unhealthy after deploy")
		return result, err
	}

	result.State = StateHealthy
	return result, nil
}

// Balance points every rule forwarding to from's target group at to's
// target group. Rules bound elsewhere are skipped. Rewrites are applied one
// by one and are not rolled back on failure. The forward action of each
// rewritten rule is updated in rules.
func (e *Executor) Balance(ctx context.Context, from, to *Environment, rules []elb.Rule) (*BalanceResult, error) {
	defer metrics.NewTimer().ObserveOperation(OpBalance)

	result := &BalanceResult{From: from, To: to}
	logger := e.logger.With().
		Str("from", from.String()).
		Str("to", to.String()).
		Logger()

	for i := range rules {
		rule := &rules[i]
		current := rule.ForwardTargetGroupARN()
		if from.TargetGroupARN == to.TargetGroupARN || current != from.TargetGroupARN {
			result.Skipped = append(result.Skipped, rule.ARN)
			continue
		}

		if err := e.lb.SetRuleTargetGroup(ctx, rule.ARN, to.TargetGroupARN); err != nil {
			metrics.RuleRewriteFailures.Inc()
			logger.Error().Err(err).Str("rule", rule.ARN).Strs("rewritten", result.Rewritten).Msg("rule rewrite failed")
			result.State = StateFailed
			return result, &PartialCutoverError{
				Rewritten: result.Rewritten,
				Failed:    rule.ARN,
				Err:       err,
			}
		}

		rule.Actions = []elb.Action{{Type: elb.ActionTypeForward, TargetGroupARN: to.TargetGroupARN}}
		result.Rewritten = append(result.Rewritten, rule.ARN)
		metrics.RulesRewritten.Inc()
		logger.Info().Str("rule", rule.ARN).Str("target_group", to.TargetGroupARN).Msg("rule rewritten")
	}

	result.State = StateSwapped
	metrics.SetProductionColor(string(to.Color), colorLabels()...)
	logger.Info().Int("rewritten", len(result.Rewritten)).Int("skipped", len(result.Skipped)).Msg("traffic switched")
	return result, nil
}

// Cutover brings to up, waits for it to be healthy and only then moves the
// rules from from to to.
func (e *Executor) Cutover(ctx context.Context, from, to *Environment, rules []elb.Rule) (*BalanceResult, error) {
	defer metrics.NewTimer().ObserveOperation(OpCutover)

	if _, err := e.StartEnvironmentAndWaitForHealth(ctx, to); err != nil {
		return &BalanceResult{From: from, To: to, State: StateFailed}, fmt.Errorf("cutover to %s aborted: %w", to, err)
	}
	return e.Balance(ctx, from, to, rules)
}

// Switch moves the rules from from to to once the running services of to are
// healthy. The services of to are not started.
func (e *Executor) Switch(ctx context.Context, from, to *Environment, rules []elb.Rule) (*BalanceResult, error) {
	defer metrics.NewTimer().ObserveOperation(OpSwitch)

	aborted := &BalanceResult{From: from, To: to, State: StateFailed}
	if err := checkServing(to); err != nil {
		return aborted, fmt.Errorf("switch to %s aborted: %w", to, err)
	}
	if err := e.gate.WaitUntilHealthy(ctx, to.Services); err != nil {
		return aborted, fmt.Errorf("switch to %s aborted: %w", to, err)
	}
	return e.Balance(ctx, from, to, rules)
}

// checkServing fails for a default environment without services. Maintenance
// environments serve from their target group alone.
func checkServing(env *Environment) error {
	if env.Type != Default || len(env.Services) > 0 {
		return nil
	}
	if len(env.Dropped) > 0 {
		return fmt.Errorf("%s has no services (%d dropped): %w", env, len(env.Dropped), ErrServiceUnhealthy)
	}
	return fmt.Errorf("%s has no services: %w", env, ErrServiceUnhealthy)
}

func (e *Executor) start(ctx context.Context, services []*Service) ([]string, error) {
	var started []string
	for _, s := range services {
		if err := s.Start(ctx); err != nil {
			e.logger.Error().Err(err).Str("service", s.Name).Msg("service start failed")
			return started, err
		}
		started = append(started, s.Name)
		metrics.ServicesStarted.Inc()
		e.logger.Info().Str("service", s.Name).Str("cluster", s.Cluster).Msg("service started")
	}
	return started, nil
}

func colorLabels() []string {
	labels := make([]string, 0, len(Colors))
	for _, c := range Colors {
		labels = append(labels, string(c))
	}
	return labels
}
