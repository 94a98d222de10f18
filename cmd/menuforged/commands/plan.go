package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/menuforge/menuforge/pkg/catalog"
	"github.com/menuforge/menuforge/pkg/config"
	"github.com/menuforge/menuforge/pkg/menu"
	"github.com/menuforge/menuforge/pkg/optimizer"
	"github.com/menuforge/menuforge/pkg/worker"
)

func newPlanCommand() *cobra.Command {
	var (
		requestFile string
		seed        int64
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan a menu offline from a request file",
		Long: `Run the optimizer once, in process, without a store or HTTP server.

The request file carries the same JSON body the API accepts. Results
are printed to stdout.`,
		Example: `  # Plan from a request file
  menuforged plan --request request.json

  # Reproducible run
  menuforged plan --request request.json --seed 42`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			raw, err := os.ReadFile(requestFile)
			if err != nil {
				return fmt.Errorf("read request: %w", err)
			}
			var req menu.Request
			if err := json.Unmarshal(raw, &req); err != nil {
				return fmt.Errorf("parse request: %w", err)
			}
			if err := req.Validate(); err != nil {
				return err
			}

			dishes, err := catalog.Preprocess(req.Dishes, &req, cfg.Orchestrator.ExcludedCategories)
			if err != nil {
				return err
			}

			plans, err := worker.InProcessRunner{}.Run(cmd.Context(), &worker.Job{
				Dishes: dishes,
				Constraints: optimizer.Constraints{
					DinerCount:  req.DinerCount,
					TotalBudget: req.TotalBudget,
				},
				Config: cfg.Orchestrator.Optimizer,
				Seed:   seed,
			})
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(plans, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().StringVarP(&requestFile, "request", "r", "", "request JSON file")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 = time-based)")
	cmd.MarkFlagRequired("request")

	return cmd
}
