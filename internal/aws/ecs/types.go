package ecs

// StatusActive is the status of a service that can run tasks. Deleted
// services report DRAINING, then INACTIVE.
const StatusActive = "ACTIVE"

type ECSService struct {
	Name         string
	ARN          string
	Status       string
	DesiredCount int
	RunningCount int
}
