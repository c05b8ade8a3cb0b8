// Command wizqueued runs the WizQueue API server and invoice workers without
// the wizqueue CLI. WIZQUEUE_CONFIG selects the configuration file.
package main

import (
	"context"
	"log"
	"os"

	"wizqueue/internal/config"
	"wizqueue/internal/daemonrun"
)

func main() {
	cfg, _, _, err := config.Load(os.Getenv("WIZQUEUE_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{}); err != nil {
		log.Fatalf("wizqueued: %v", err)
	}
}
