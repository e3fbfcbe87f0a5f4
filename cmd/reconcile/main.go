package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/Zyedbelm/reservation-assignation-sub003/internal/app"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/services"
)

func main() {
	var adminUser string
	var force bool
	var dryRun bool
	flag.StringVar(&adminUser, "admin-user", "", "user_id of the admin running the reconciliation")
	flag.BoolVar(&force, "force", false, "run even if the one-time reconciliation already completed")
	flag.BoolVar(&dryRun, "dry-run", false, "report what would change without writing")
	flag.Parse()

	adminID, err := uuid.Parse(strings.TrimSpace(adminUser))
	if err != nil || adminID == uuid.Nil {
		fmt.Println("-admin-user must be a valid user_id")
		os.Exit(2)
	}

	ctx := context.Background()
	application, err := app.New(ctx)
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	res, err := application.Services.Reconcile.Reconcile(ctx, adminID, services.ReconcileOptions{
		Force:     force,
		DryRun:    dryRun,
		ClaimedBy: "cli:" + adminID.String(),
	})
	if err != nil {
		fmt.Printf("reconcile: %v\n", err)
		application.Close()
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(out))
	if res.Failed > 0 {
		application.Close()
		os.Exit(1)
	}
}
