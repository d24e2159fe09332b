package cache

import "fmt"

func JobStatusKey(jobID string) string {
	return fmt.Sprintf("studioshots:job:%s", jobID)
}

func RateLimitKey(client string) string {
	return fmt.Sprintf("studioshots:ratelimit:%s", client)
}
