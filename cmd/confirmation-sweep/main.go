// confirmation-sweep runs one expiry pass and exits. Intended for running the
// sweep as a scheduled job instead of the in-process loop
// (set EXPIRY_SWEEP=false on the server when using this).
//
// Usage:
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/confirmation-sweep
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"bitbucket.org/xxlgroup/orderhub_backend/config"
	"bitbucket.org/xxlgroup/orderhub_backend/workflow"
)

func main() {
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized. Set DB_* env vars.")
		os.Exit(1)
	}

	batchSize := 500
	if raw := os.Getenv("SWEEP_BATCH_SIZE"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			batchSize = n
		}
	}

	expired, err := workflow.SweepExpiredConfirmations(context.Background(), batchSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sweep finished with error (expired=%d): %v\n", expired, err)
		os.Exit(1)
	}
	fmt.Printf("sweep complete: expired=%d\n", expired)
}
