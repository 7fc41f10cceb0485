package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"lcdp.dev/bluegreen/internal/aws/elb"
	"lcdp.dev/bluegreen/internal/bluegreen"
	"lcdp.dev/bluegreen/internal/theme"
	"lcdp.dev/bluegreen/internal/utils"
)

var errNothingToInspect = errors.New("nothing to inspect: use --host-prefix, --running or --target-group")

type inspectQuery struct {
	HostPrefixes []string
	Running      string
	TargetGroup  string
}

func (q inspectQuery) empty() bool {
	return len(q.HostPrefixes) == 0 && q.Running == "" && q.TargetGroup == ""
}

type targetGroupRow struct {
	Name      string
	Port      int
	Healthy   int
	Unhealthy int
}

type inspectReport struct {
	LoadBalancer string
	Rules        []ruleRow
	Running      []targetGroupRow
	TargetGroup  *targetGroupRow
}

func NewInspectCmd(opts *Options) *cobra.Command {
	var query inspectQuery

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Look up rules and target groups outside of the blue/green pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			if query.empty() {
				return errNothingToInspect
			}
			rt, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer rt.finish()

			lb, err := rt.loader.LoadBalancer(cmd.Context(), rt.load)
			if err != nil {
				return explain(err)
			}
			report, err := collectInspect(cmd.Context(), rt.client.ELB, lb, query)
			if err != nil {
				return explain(err)
			}
			return renderInspect(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringSliceVar(&query.HostPrefixes, "host-prefix", nil, "rules of any listener with a host starting with one of these")
	cmd.Flags().StringVar(&query.Running, "running", "", "target groups with registered targets whose name contains this")
	cmd.Flags().StringVar(&query.TargetGroup, "target-group", "", "target group with this exact name")

	return cmd
}

func collectInspect(ctx context.Context, api bluegreen.LoadBalancerAPI, lb elb.LoadBalancer, q inspectQuery) (inspectReport, error) {
	reader := bluegreen.NewALBReader(api)
	report := inspectReport{LoadBalancer: lb.Name}

	if len(q.HostPrefixes) > 0 {
		rules, err := reader.RulesByHostPrefix(ctx, lb, q.HostPrefixes)
		if err != nil {
			return report, err
		}
		for _, r := range rules {
			hosts, _ := r.HostHeaderValues()
			report.Rules = append(report.Rules, ruleRow{
				Priority:    r.Priority,
				Hosts:       strings.Join(hosts, ", "),
				TargetGroup: utils.SecondToLast(r.ForwardTargetGroupARN()),
			})
		}
	}

	if q.Running != "" {
		tgs, err := reader.RunningTargetGroups(ctx, q.Running)
		if err != nil {
			return report, err
		}
		for _, tg := range tgs {
			row, err := targetGroupHealth(ctx, api, tg)
			if err != nil {
				return report, err
			}
			report.Running = append(report.Running, row)
		}
	}

	if q.TargetGroup != "" {
		tg, err := reader.ResolveTargetGroupByName(ctx, q.TargetGroup)
		if err != nil {
			return report, err
		}
		row, err := targetGroupHealth(ctx, api, tg)
		if err != nil {
			return report, err
		}
		report.TargetGroup = &row
	}
	return report, nil
}

func targetGroupHealth(ctx context.Context, api bluegreen.LoadBalancerAPI, tg elb.TargetGroup) (targetGroupRow, error) {
	health, err := api.GetTargetHealth(ctx, tg.ARN)
	if err != nil {
		return targetGroupRow{}, err
	}
	return targetGroupRow{
		Name:      tg.Name,
		Port:      tg.Port,
		Healthy:   health.HealthyCount,
		Unhealthy: health.UnhealthyCount,
	}, nil
}

func renderInspect(w io.Writer, r inspectReport) error {
	var b strings.Builder
	b.WriteString(theme.DashboardTitleStyle.Render("Load balancer " + r.LoadBalancer))
	b.WriteString("\n")

	if r.Rules != nil {
		rows := make([][]string, 0, len(r.Rules))
		for _, rule := range r.Rules {
			rows = append(rows, []string{rule.Priority, rule.Hosts, rule.TargetGroup})
		}
		b.WriteString(newTable("PRIORITY", "HOSTS", "TARGET GROUP").Rows(rows...).String())
		b.WriteString("\n")
	}

	groups := r.Running
	if r.TargetGroup != nil {
		groups = append(groups, *r.TargetGroup)
	}
	if len(groups) > 0 {
		rows := make([][]string, 0, len(groups))
		for _, tg := range groups {
			rows = append(rows, []string{
				tg.Name,
				fmt.Sprintf("%d", tg.Port),
				fmt.Sprintf("%d/%d", tg.Healthy, tg.Healthy+tg.Unhealthy),
			})
		}
		b.WriteString(newTable("TARGET GROUP", "PORT", "TARGETS").Rows(rows...).String())
		b.WriteString("\n")
	}

	if r.Rules == nil && len(groups) == 0 {
		b.WriteString(theme.MutedStyle.Render("No match"))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
