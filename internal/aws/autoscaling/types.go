package autoscaling

type AutoScalingTarget struct {
	MinCapacity int
	MaxCapacity int
	ResourceID  string
}
