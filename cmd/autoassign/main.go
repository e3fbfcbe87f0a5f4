package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Zyedbelm/reservation-assignation-sub003/internal/app"
	domainjobs "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain/jobs"
)

// Runs one automatic assignment pass and prints the run record.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx)
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	if !application.Services.AutoAssign.Enabled() {
		fmt.Println("assignment engine is not configured (ASSIGNMENT_ENGINE_URL)")
		application.Close()
		os.Exit(1)
	}

	run, err := application.Services.AutoAssign.Run(ctx, domainjobs.TriggerManual)
	if run != nil {
		out, _ := json.MarshalIndent(run, "", "  ")
		fmt.Println(string(out))
	}
	if err != nil {
		fmt.Printf("auto assign: %v\n", err)
		application.Close()
		os.Exit(1)
	}
}
