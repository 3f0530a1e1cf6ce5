package main

import (
	"caseharvest/cmd/caseharvest/commands"
	"caseharvest/lib/telemetry"
	"context"
)

func main() {
	telemetry.SetupFromEnv(context.Background(), "caseharvest")
	commands.ExecuteContext(context.Background())
}
