package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/spf13/cobra"

	awsecr "lcdp.dev/bluegreen/internal/aws/ecr"
	"lcdp.dev/bluegreen/internal/bluegreen"
	"lcdp.dev/bluegreen/internal/log"
	"lcdp.dev/bluegreen/internal/theme"
	"lcdp.dev/bluegreen/internal/utils"
)

type envRow struct {
	Color       string
	Type        string
	TargetGroup string
	Healthy     int
	Unhealthy   int
	Services    int
	Running     int
	Dropped     int
	Live        bool
}

type ruleRow struct {
	Priority    string
	Hosts       string
	TargetGroup string
}

type statusReport struct {
	LoadBalancer string
	Listener     string
	Production   string
	Environments []envRow
	Rules        []ruleRow
	ImageTag     string
	Repositories []bluegreen.Repository
	Dropped      []string
}

func NewStatusCmd(opts *Options) *cobra.Command {
	var imageTag string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the live color, both environments and the uncolored rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer rt.finish()

			load := rt.load
			load.ImageTag = imageTag
			d, err := rt.loadDeployment(cmd.Context(), load)
			if err != nil {
				return err
			}

			report := rt.collectStatus(cmd.Context(), d)
			report.ImageTag = imageTag
			return renderStatus(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringVar(&imageTag, "image-tag", "", "also resolve this image tag in every deployable repository")

	return cmd
}

func (rt *runtime) collectStatus(ctx context.Context, d *bluegreen.Deployment) statusReport {
	report := statusReport{
		LoadBalancer: d.LoadBalancer.Name,
		Listener:     fmt.Sprintf("%s:%d", d.Listener.Protocol, d.Listener.Port),
		Production:   d.Production().String(),
		Repositories: d.Repositories,
		Dropped:      d.DroppedRepositories,
	}

	names := make(map[string]string)
	for _, c := range bluegreen.Colors {
		for _, t := range []bluegreen.EnvType{bluegreen.Default, bluegreen.Maintenance} {
			env := d.Environment(c, t)
			names[env.TargetGroupARN] = utils.SecondToLast(env.TargetGroupARN)

			row := envRow{
				Color:       string(c),
				Type:        string(t),
				TargetGroup: utils.SecondToLast(env.TargetGroupARN),
				Services:    len(env.Services),
				Dropped:     len(env.Dropped),
				Live:        c == d.ProductionColor && t == d.ProductionType,
			}
			health, err := rt.client.ELB.GetTargetHealth(ctx, env.TargetGroupARN)
			if err != nil {
				log.Logger.Warn().Err(err).Str("target_group", row.TargetGroup).Msg("target health unavailable")
			}
			row.Healthy, row.Unhealthy = health.HealthyCount, health.UnhealthyCount
			row.Running = rt.countRunning(ctx, env)
			report.Environments = append(report.Environments, row)
		}
	}

	for _, r := range d.UncoloredRules {
		hosts, _ := r.HostHeaderValues()
		tg := r.ForwardTargetGroupARN()
		name, ok := names[tg]
		if !ok {
			name = utils.SecondToLast(tg)
		}
		report.Rules = append(report.Rules, ruleRow{
			Priority:    r.Priority,
			Hosts:       strings.Join(hosts, ", "),
			TargetGroup: name,
		})
	}
	return report
}

// countRunning returns how many services of env are active and run their
// desired count. Services scaled to zero are not counted.
func (rt *runtime) countRunning(ctx context.Context, env *bluegreen.Environment) int {
	if len(env.Services) == 0 {
		return 0
	}
	arns := make([]string, 0, len(env.Services))
	for _, s := range env.Services {
		arns = append(arns, s.ARN)
	}
	statuses, err := rt.client.ECS.DescribeServices(ctx, env.Cluster, arns)
	if err != nil {
		log.Logger.Warn().Err(err).Str("environment", env.String()).Msg("service status unavailable")
		return 0
	}
	running := 0
	for _, st := range statuses {
		if bluegreen.Healthy(st) {
			running++
		}
	}
	return running
}

func renderStatus(w io.Writer, r statusReport) error {
	var b strings.Builder

	header := lipgloss.JoinVertical(lipgloss.Left,
		theme.DashboardTitleStyle.Render("Blue/green status"),
		theme.LabelStyle.Render("Load balancer")+r.LoadBalancer,
		theme.LabelStyle.Render("Listener")+r.Listener,
		theme.LabelStyle.Render("Production")+renderProduction(r.Production),
	)
	b.WriteString(theme.DashboardBoxStyle.Render(header))
	b.WriteString("\n\n")

	envs := make([][]string, 0, len(r.Environments))
	for _, e := range r.Environments {
		state := ""
		if e.Live {
			state = theme.RenderStatus("live")
		}
		services := "-"
		if e.Type == string(bluegreen.Default) {
			services = fmt.Sprintf("%d/%d", e.Running, e.Services)
		}
		dropped := ""
		if e.Dropped > 0 {
			dropped = theme.ErrorStyle.Render(fmt.Sprintf("%d dropped", e.Dropped))
		}
		envs = append(envs, []string{
			theme.RenderEnv(e.Color),
			e.Type,
			e.TargetGroup,
			fmt.Sprintf("%d/%d", e.Healthy, e.Healthy+e.Unhealthy),
			services,
			dropped,
			state,
		})
	}
	b.WriteString(newTable("COLOR", "TYPE", "TARGET GROUP", "TARGETS", "SERVICES", "", "").Rows(envs...).String())
	b.WriteString("\n\n")

	if len(r.Rules) == 0 {
		b.WriteString(theme.MutedStyle.Render("No uncolored rules"))
	} else {
		rules := make([][]string, 0, len(r.Rules))
		for _, rule := range r.Rules {
			rules = append(rules, []string{rule.Priority, rule.Hosts, rule.TargetGroup})
		}
		b.WriteString(newTable("PRIORITY", "HOSTS", "TARGET GROUP").Rows(rules...).String())
	}
	b.WriteString("\n")

	if r.ImageTag != "" {
		b.WriteString("\n")
		b.WriteString(theme.DashboardTitleStyle.Render("Images tagged " + r.ImageTag))
		b.WriteString("\n")
		for _, repo := range r.Repositories {
			fmt.Fprintf(&b, "  %s %s\n", theme.RenderStatus("active"), repo.Name+"@"+awsecr.ShortDigest(repo.Digest))
		}
		for _, name := range r.Dropped {
			fmt.Fprintf(&b, "  %s %s\n", theme.RenderStatus("dropped"), name)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func renderProduction(p string) string {
	color, envType, _ := strings.Cut(p, "/")
	out := theme.RenderEnv(color)
	if envType == string(bluegreen.Maintenance) {
		out += " " + theme.WarningStyle.Render(envType)
	} else {
		out += " " + envType
	}
	return out
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(theme.MutedStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return theme.TableHeaderStyle
			}
			return theme.TableCellStyle
		})
}
