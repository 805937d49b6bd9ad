package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kgarbacinski/AutoViralAI/internal/graph"
	"github.com/kgarbacinski/AutoViralAI/internal/pipeline"
	"github.com/kgarbacinski/AutoViralAI/internal/types"
)

var (
	cyclePipeline string
	autoApprove   bool
)

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Run a single pipeline cycle in the foreground",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.close()

		switch cyclePipeline {
		case "creation":
			exec, err := a.orch.RunCreationCycle(ctx)
			if err != nil {
				return err
			}
			if exec.Status == graph.StatusAwaitingApproval {
				pending := a.orch.PendingApprovals()
				if !autoApprove {
					fmt.Printf("Suspended for approval: %s\n", pending[0].ThreadID)
					fmt.Printf("Top post:\n%s\n", pending[0].Payload.SelectedPost.Content)
					return nil
				}
				exec, err = a.orch.ResumeCreation(ctx, pending[0].ThreadID,
					pipeline.HumanDecision{Decision: pipeline.DecisionApprove})
				if err != nil {
					return err
				}
			}
			printCreationResult(exec)
			return nil

		case "learning":
			exec, err := a.orch.RunLearningCycle(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Learning cycle finished: %d metric sets collected, %d pattern updates.\n",
				len(exec.State.CollectedMetrics), len(exec.State.PatternUpdates))
			if exec.State.NewStrategy != nil {
				fmt.Printf("Strategy iteration: %d\n", exec.State.NewStrategy.Iteration)
			}
			return nil

		default:
			return types.NewErrorf(types.CONFIG_VALIDATION_FAILED,
				"unknown pipeline %q (want creation or learning)", cyclePipeline)
		}
	},
}

func init() {
	cycleCmd.Flags().StringVar(&cyclePipeline, "pipeline", "creation", "pipeline to run: creation or learning")
	cycleCmd.Flags().BoolVar(&autoApprove, "auto-approve", false, "approve the top post without asking")
}

func printCreationResult(exec graph.Execution[pipeline.CreationState]) {
	state := exec.State
	if state.GoalReached {
		fmt.Printf("Follower goal reached (%d/%d), nothing to do.\n",
			state.CurrentFollowerCount, state.TargetFollowerCount)
		return
	}
	if state.PublishedPost != nil {
		fmt.Printf("Published %s (composite %.1f):\n%s\n",
			state.PublishedPost.PostID, state.PublishedPost.CompositeScore, state.PublishedPost.Content)
	} else {
		fmt.Println("Cycle finished without publishing.")
	}
	for _, e := range state.Errors {
		fmt.Printf("warning: %s\n", e)
	}
}
