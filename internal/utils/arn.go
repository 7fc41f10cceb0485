package utils

import "strings"

// ShortName returns the resource name at the end of an ARN: the service name
// of both ECS service ARN formats (service/<name> and
// service/<cluster>/<name>). Strings without "/" are returned as is.
func ShortName(arn string) string {
	if i := strings.LastIndex(arn, "/"); i >= 0 {
		return arn[i+1:]
	}
	return arn
}

// SecondToLast returns the segment before the last "/", which is the name
// in target group and load balancer ARNs (targetgroup/<name>/<id>).
func SecondToLast(arn string) string {
	parts := strings.Split(arn, "/")
	if len(parts) < 2 {
		return arn
	}
	return parts[len(parts)-2]
}
