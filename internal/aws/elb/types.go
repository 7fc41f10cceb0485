package elb

import "strings"

const (
	ActionTypeForward = "forward"
	FieldHostHeader   = "host-header"
)

type LoadBalancer struct {
	Name    string
	ARN     string
	Type    string // "application" / "network" / "gateway"
	State   string
	Scheme  string // "internet-facing" / "internal"
	DNSName string
}

type Listener struct {
	ARN            string
	Port           int
	Protocol       string
	DefaultActions []Action
}

// Action is a listener or rule action. Forward actions carry either a single
// TargetGroupARN or a weighted ForwardTargetGroups list.
type Action struct {
	Type                string
	TargetGroupARN      string
	ForwardTargetGroups []string
}

// TargetGroups returns every target group the action forwards to.
func (a Action) TargetGroups() []string {
	if a.TargetGroupARN != "" {
		return []string{a.TargetGroupARN}
	}
	return a.ForwardTargetGroups
}

type Condition struct {
	Field  string
	Values []string
}

type Rule struct {
	ARN        string
	Priority   string
	IsDefault  bool
	Conditions []Condition
	Actions    []Action
}

// HostHeaderValues returns the values of every host-header condition of the
// rule and whether at least one such condition exists.
func (r Rule) HostHeaderValues() ([]string, bool) {
	var values []string
	found := false
	for _, c := range r.Conditions {
		if !strings.EqualFold(c.Field, FieldHostHeader) {
			continue
		}
		found = true
		values = append(values, c.Values...)
	}
	return values, found
}

// ForwardTargetGroupARN returns the target group of the rule's first forward
// action, or "" when the rule does not forward.
func (r Rule) ForwardTargetGroupARN() string {
	for _, a := range r.Actions {
		if a.Type != ActionTypeForward {
			continue
		}
		if tgs := a.TargetGroups(); len(tgs) > 0 {
			return tgs[0]
		}
	}
	return ""
}

type TargetGroup struct {
	Name       string
	ARN        string
	Protocol   string
	Port       int
	TargetType string // "instance" / "ip" / "lambda"
}

type TargetHealth struct {
	Registered     int
	HealthyCount   int
	UnhealthyCount int
}

// ResourceTags holds the tags of one resource as returned by DescribeTags.
type ResourceTags struct {
	ARN  string
	Tags map[string]string
}
