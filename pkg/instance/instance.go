package instance

import (
	"os"

	"github.com/biblionet/biblionet-backend/pkg/env"
)

// GetID returns the worker instance identifier. Cron locks record it as owner.
func GetID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker-0"
	}
	return env.First(host, "BIBLIONET_WORKER_ID", "WORKER_ID")
}
