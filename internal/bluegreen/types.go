package bluegreen

import (
	"fmt"
	"strings"
)

// Color identifies one of the two parallel environments.
type Color string

const (
	Blue  Color = "BLUE"
	Green Color = "GREEN"
)

// Colors lists both colors in a stable order.
var Colors = []Color{Blue, Green}

// ParseColor accepts any casing of blue or green.
func ParseColor(s string) (Color, error) {
	switch c := Color(strings.ToUpper(strings.TrimSpace(s))); c {
	case Blue, Green:
		return c, nil
	}
	return "", fmt.Errorf("invalid color %q", s)
}

func (c Color) Opposite() Color {
	if c == Blue {
		return Green
	}
	return Blue
}

// Lower returns the color as it appears in tags and service names.
func (c Color) Lower() string {
	return strings.ToLower(string(c))
}

// EnvType distinguishes the serving environment from its maintenance page.
type EnvType string

const (
	Default     EnvType = "DEFAULT"
	Maintenance EnvType = "MAINTENANCE"
)

func ParseEnvType(s string) (EnvType, error) {
	switch t := EnvType(strings.ToUpper(strings.TrimSpace(s))); t {
	case Default, Maintenance:
		return t, nil
	}
	return "", fmt.Errorf("invalid environment type %q", s)
}

func (t EnvType) Lower() string {
	return strings.ToLower(string(t))
}

// State is the outcome of an executor operation.
type State string

const (
	StateStopped  State = "STOPPED"
	StateStarting State = "STARTING"
	StateHealthy  State = "HEALTHY"
	StateFailed   State = "FAILED"
	StateSwapped  State = "SWAPPED"
)

// Environment is one color of one type, rebuilt from live state for every
// operation.
type Environment struct {
	Color          Color
	Type           EnvType
	Cluster        string
	TargetGroupARN string
	Services       []*Service
	// Dropped holds the ARNs of services that matched the color but could
	// not be constructed.
	Dropped []string
}

func (e *Environment) String() string {
	return fmt.Sprintf("%s/%s", e.Color, e.Type)
}

// Repository is an image resolved for a deploy tag.
type Repository struct {
	Name     string
	Tag      string
	Digest   string
	Manifest string
}
