package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/kgarbacinski/AutoViralAI/internal/bot"
)

// stopGrace bounds how long shutdown waits for in-flight cycles.
const stopGrace = 30 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the agent daemon with scheduler and Telegram approval bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.close()

		// The bot needs the orchestrator to apply decisions and the
		// orchestrator needs the bot for notifications, so the
		// notifier is wired after both exist.
		var approver *bot.Bot
		if cfg.Telegram.BotToken != "" {
			approver, err = bot.New(cfg.Telegram, a.orch, a.kb)
			if err != nil {
				return err
			}
			a.orch.SetNotifier(approver)
		} else {
			slog.Warn("no telegram token configured, approvals only via CLI")
		}

		if err := a.orch.Start(ctx); err != nil {
			return err
		}
		slog.Info("agent running",
			"account", cfg.Core.AccountID,
			"posting_times", cfg.Scheduler.PostingTimes,
		)

		if approver != nil {
			go approver.Start(ctx)
		}

		<-ctx.Done()
		slog.Info("shutting down")

		stopCtx, cancel := context.WithTimeout(context.Background(), stopGrace)
		defer cancel()
		return a.orch.Stop(stopCtx)
	},
}
