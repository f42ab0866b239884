package main

import (
	"fmt"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"social-service/internal/auth"
	"social-service/internal/db"
	"social-service/internal/jobs"
	"social-service/internal/repositories"
	"social-service/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync()

		database, err := db.Connect(cmd.Context(), cfg.DatabaseDSN)
		if err != nil {
			return fmt.Errorf("connect db: %w", err)
		}
		defer database.Close()
		if err := db.Migrate(cmd.Context(), database); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		zap.L().Info("migrations_applied")
		return nil
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the maintenance jobs once: expired stories, stale presence and storage usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync()

		database, err := openDatabase(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		broker, err := openBroker(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer broker.Close()

		store, err := storage.Open(cfg.StoragePath, cfg.MaxUploadBytes)
		if err != nil {
			return err
		}
		defer store.Close()

		scheduler, err := jobs.NewScheduler(cfg.SweepCron,
			jobs.PurgeStories(repositories.NewStoryRepo(database)),
			jobs.ReapPresence(broker, cfg.PresenceTTL),
			jobs.RecordStorageUsage(store),
		)
		if err != nil {
			return err
		}
		return scheduler.RunOnce(cmd.Context())
	},
}

var (
	tokenUser int
	tokenRole string
	tokenTTL  time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a signed access token for local testing",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync()

		if tokenUser <= 0 {
			return fmt.Errorf("--user must be a positive id")
		}
		ttl := cfg.TokenTTL
		if tokenTTL > 0 {
			ttl = tokenTTL
		}
		token, err := auth.NewTokens(cfg.JWTSecret, cfg.Service, ttl).Issue(tokenUser, tokenRole)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var otpAccount string

var otpSecretCmd = &cobra.Command{
	Use:   "otp-secret",
	Short: "Generate a TOTP secret for the admin console",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := totp.Generate(totp.GenerateOpts{
			Issuer:      "social-service",
			AccountName: otpAccount,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ADMIN_OTP_SECRET=%s\n%s\n", key.Secret(), key.URL())
		return nil
	},
}

func init() {
	tokenCmd.Flags().IntVar(&tokenUser, "user", 0, "user id to embed")
	tokenCmd.Flags().StringVar(&tokenRole, "role", "user", "role claim, e.g. user or admin")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime; defaults to TOKEN_TTL")
	otpSecretCmd.Flags().StringVar(&otpAccount, "account", "admin", "account label shown by authenticator apps")

	rootCmd.AddCommand(migrateCmd, sweepCmd, tokenCmd, otpSecretCmd)
}
