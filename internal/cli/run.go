package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/soyeahso/tellerbot/internal/config"
	"github.com/soyeahso/tellerbot/internal/engine"
	"github.com/soyeahso/tellerbot/internal/fetch"
	"github.com/soyeahso/tellerbot/internal/store"
	"github.com/soyeahso/tellerbot/internal/telegram"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var seedFirst bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			db, err := openDB(cfg)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()
			st := store.New(db)

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if seedFirst {
				if err := st.Seed(ctx); err != nil {
					return fmt.Errorf("seeding catalog: %w", err)
				}
			}

			api := telegram.NewClient(cfg.Telegram.Token, cfg.Telegram.BaseURL, log)
			receipts := fetch.NewClient(time.Duration(cfg.Receipt.TimeoutSeconds)*time.Second, log)

			eng := engine.New(api, st, receipts, engine.Options{
				Admins:        cfg.Admins,
				CacheCapacity: cfg.Cache.Capacity,
				MessageWeight: cfg.Cache.MessageWeight,
				SlidingTTL:    time.Duration(cfg.Cache.SlidingHours) * time.Hour,
				AbsoluteTTL:   time.Duration(cfg.Cache.AbsoluteDays) * 24 * time.Hour,
			}, log)

			poller := telegram.NewPoller(api, eng.HandleUpdate, cfg.Telegram.PollTimeout, log)
			return poller.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&seedFirst, "seed", false, "populate an empty service catalog before starting")

	return cmd
}
