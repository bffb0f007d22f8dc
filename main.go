package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"salahStreakAPI/internal/astro"
	"salahStreakAPI/internal/config"
	"salahStreakAPI/internal/logging"
	"salahStreakAPI/internal/notification"
	"salahStreakAPI/internal/store"
	"salahStreakAPI/internal/widget"
	"salahStreakAPI/services"
	"salahStreakAPI/utils"
)

var cfg *config.Config

func main() {
	root := &cobra.Command{
		Use:           "salahstreak",
		Short:         "SalahStreak prayer tracking API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return err
			}
			logging.Setup(cfg.LogLevel, cfg.LogPretty)
			return nil
		},
	}

	root.AddCommand(serveCmd(), migrateCmd(), closeDayCmd(), windowsCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

// app holds the wired dependencies shared by every subcommand.
type app struct {
	db         *pgxpool.Pool
	store      *store.PgStore
	dispatcher *services.NotificationDispatcher
	prayers    *services.PrayerService
	stats      *services.StatsService
	snapshots  widget.Reader
	closers    []func()
}

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.DBPoolMaxConns)
	poolConfig.MinConns = int32(cfg.DBPoolMinConns)
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Int32("max_conns", poolConfig.MaxConns).Msg("connected to database")
	return pool, nil
}

// bootstrap connects to the database, applies migrations and wires the
// services. Push delivery and widget publishing degrade to no-ops when
// their backends are not configured.
func bootstrap(ctx context.Context, cfg *config.Config) (*app, error) {
	pool, err := openPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &app{db: pool, closers: []func(){pool.Close}}

	if err := store.RunMigrations(ctx, pool); err != nil {
		a.close()
		return nil, err
	}

	a.store = store.NewPgStore(pool, cfg.Timezone)

	a.dispatcher = services.NewNotificationDispatcher(a.store, cfg.DispatchInterval)
	fcmService, err := notification.NewFCMService(cfg.FCMCredentialsFile)
	if err != nil {
		log.Warn().Err(err).Msg("could not initialize FCM, falling back to mock push provider")
		a.dispatcher.SetPushProvider(&services.MockPushProvider{})
	} else {
		a.dispatcher.SetPushProvider(fcmService)
		log.Info().Msg("FCM push provider initialized")
	}

	a.prayers = services.NewPrayerService(
		a.store,
		services.NewWindowService(astro.NewSolarCalculator()),
		services.NewReminderScheduler(a.dispatcher),
		a.publisher(ctx, cfg),
		cfg.Timezone,
	)
	a.stats = services.NewStatsService(a.store, cfg.Timezone)

	return a, nil
}

func (a *app) publisher(ctx context.Context, cfg *config.Config) widget.Publisher {
	var publishers widget.MultiPublisher

	if cfg.RedisAddr != "" {
		rp := widget.NewRedisPublisher(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := rp.Ping(pingCtx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis not reachable, snapshots will be retried on publish")
		}
		cancel()
		publishers = append(publishers, rp)
		a.snapshots = rp
		a.closers = append(a.closers, func() { _ = rp.Close() })
	}

	if cfg.MQTTBrokerURL != "" {
		mp, err := widget.NewMQTTPublisher(cfg.MQTTBrokerURL, cfg.MQTTClientID, cfg.MQTTTopic)
		if err != nil {
			log.Warn().Err(err).Msg("MQTT publisher disabled")
		} else {
			publishers = append(publishers, mp)
			a.closers = append(a.closers, mp.Close)
		}
	}

	if len(publishers) == 0 {
		log.Info().Msg("no widget publisher configured")
		return nil
	}
	return publishers
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := openPool(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()
			return store.RunMigrations(cmd.Context(), pool)
		},
	}
}

func closeDayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close-day [yyyy-MM-dd]",
		Short: "Process the end of a day (defaults to yesterday)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			date := utils.AddDays(utils.StartOfDay(now, cfg.Timezone), -1)
			if len(args) == 1 {
				var err error
				if date, err = utils.ParseDate(args[0], cfg.Timezone); err != nil {
					return err
				}
			}

			a, err := bootstrap(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			closures, err := a.prayers.CloseDay(cmd.Context(), date, now)
			if err != nil {
				return fmt.Errorf("failed to close %s: %w", utils.DateString(date), err)
			}
			return printJSON(closures)
		},
	}
}

func windowsCmd() *cobra.Command {
	var dateArg string

	cmd := &cobra.Command{
		Use:   "windows",
		Short: "Print the prayer windows for a date under the stored settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			date := utils.StartOfDay(time.Now(), cfg.Timezone)
			if dateArg != "" {
				var err error
				if date, err = utils.ParseDate(dateArg, cfg.Timezone); err != nil {
					return err
				}
			}

			a, err := bootstrap(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			windows, err := a.prayers.Windows(cmd.Context(), date)
			if err != nil {
				return err
			}
			return printJSON(windows)
		},
	}
	cmd.Flags().StringVar(&dateArg, "date", "", "date as yyyy-MM-dd (default today)")
	return cmd
}
