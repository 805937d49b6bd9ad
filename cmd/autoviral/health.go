package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check database, adapters, and orchestrator status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.db.Ping(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
		fmt.Printf("database: ok (%s)\n", a.db.Path())

		followers, err := a.social.FollowerCount(ctx)
		if err != nil {
			return fmt.Errorf("social platform: %w", err)
		}
		posts, err := a.social.UserPosts(ctx, 5)
		if err != nil {
			return fmt.Errorf("social platform: %w", err)
		}
		fmt.Printf("social platform: ok (%d followers, %d recent posts)\n", followers, len(posts))

		niche, err := a.kb.GetNicheConfig(ctx)
		if err != nil {
			return fmt.Errorf("knowledge base: %w", err)
		}
		if niche == nil {
			fmt.Println("knowledge base: ok (no niche configured, run init-account)")
		} else {
			fmt.Printf("knowledge base: ok (niche %q)\n", niche.Niche)
		}

		creation, learning := a.orch.CycleCounts()
		fmt.Printf("orchestrator: %d creation cycles, %d learning cycles, paused=%v, pending=%d\n",
			creation, learning, a.orch.IsPaused(), len(a.orch.PendingApprovals()))
		return nil
	},
}
