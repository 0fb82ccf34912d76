package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/projectshelf/backend/api"
	"github.com/projectshelf/backend/config"
	"github.com/projectshelf/backend/dashboard"
	"github.com/projectshelf/backend/database"
	"github.com/projectshelf/backend/discovery"
	"github.com/projectshelf/backend/drafts"
	"github.com/projectshelf/backend/identity"
	"github.com/projectshelf/backend/metrics"
	"github.com/projectshelf/backend/models"
	"github.com/projectshelf/backend/services"
	"github.com/projectshelf/backend/workflow"
)

const (
	Version = "0.4.0"
	appName = "projectshelf"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Student project repository backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), envFile)
		},
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path of the .env file to load")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API",
			RunE: func(cmd *cobra.Command, args []string) error {
				return serve(cmd.Context(), envFile)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update the database schema",
			RunE: func(cmd *cobra.Command, args []string) error {
				db, _, err := connect(cmd.Context(), envFile)
				if err != nil {
					return err
				}
				defer db.Close()
				if err := db.Migrate(); err != nil {
					return errors.Wrap(err, "migrate")
				}
				log.Info().Msg("Schema is up to date")
				return nil
			},
		},
		createAdminCmd(&envFile),
		generateCmd(&envFile),
		&cobra.Command{
			Use:   "column-report",
			Short: "List database columns that no model maps to",
			RunE: func(cmd *cobra.Command, args []string) error {
				db, _, err := connect(cmd.Context(), envFile)
				if err != nil {
					return err
				}
				defer db.Close()
				report, err := models.ColumnReport(db.DB())
				if err != nil {
					return err
				}
				models.PrintColumnReport(report)
				return nil
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("%s version %s\n", appName, Version)
			},
		},
	)
	return cmd
}

func createAdminCmd(envFile *string) *cobra.Command {
	var in workflow.RegisterInput

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Seed a head of department account",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, settings, err := connect(cmd.Context(), *envFile)
			if err != nil {
				return err
			}
			defer db.Close()

			if in.Password == "" {
				in.Password = os.Getenv("ADMIN_PASSWORD")
			}
			svc := workflow.NewService(db, services.NewNotifier(settings.ResendAPIKey, settings.ResendFrom), metrics.NewDefault())
			profile, err := svc.CreateHOD(cmd.Context(), in)
			if err != nil {
				return errors.Wrap(err, "create head of department")
			}
			log.Info().Str("profile_id", profile.ID.String()).Str("email", profile.Email).Msg("Head of department created")
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&in.FullName, "name", "", "Full name")
	cmd.Flags().StringVar(&in.Password, "password", "", "Password (defaults to $ADMIN_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func generateCmd(envFile *string) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate typed query helpers for the models",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := connect(cmd.Context(), *envFile)
			if err != nil {
				return err
			}
			defer db.Close()
			models.GenerateQueries(db.DB(), outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "./query", "Output directory")
	return cmd
}

// connect loads settings and opens the database.
func connect(ctx context.Context, envFile string) (database.Database, config.Settings, error) {
	config.LoadDotEnv(envFile)
	env := config.New()
	if err := config.OverlaySSM(ctx, env); err != nil {
		return database.Database{}, config.Settings{}, errors.Wrap(err, "load ssm parameters")
	}

	settings, err := config.Load(env)
	if err != nil {
		return database.Database{}, settings, err
	}
	if level, err := zerolog.ParseLevel(settings.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	gormDB, err := database.Open(settings.DatabaseDSN, settings.ReadReplicaDSN)
	if err != nil {
		return database.Database{}, settings, err
	}
	return database.New(gormDB), settings, nil
}

func serve(ctx context.Context, envFile string) error {
	log.Info().Msg("Initializing app...")

	db, settings, err := connect(ctx, envFile)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return errors.Wrap(err, "migrate")
	}

	m := metrics.NewDefault()
	svc := workflow.NewService(db, services.NewNotifier(settings.ResendAPIKey, settings.ResendFrom), m)

	draftStore, closeDrafts, err := newDraftStore(ctx, settings)
	if err != nil {
		return err
	}
	defer closeDrafts()

	server := api.NewServer(api.Dependencies{
		Workflow: svc,
		Browser:  discovery.NewBrowser(db),
		Board:    dashboard.NewBoard(svc),
		Drafts:   drafts.NewManager(draftStore, db),
		Tokens:   identity.NewTokenIssuer(settings.JWTSecret, settings.TokenTTL),
		Resolver: identity.NewResolver(svc, identity.NewHODEmailOverride(settings.HODEmails)),
		Metrics:  m,
		Ping:     db.Ping,
	}, settings)

	// Start and listenToInterrupt both send once; neither may block after shutdown.
	errChannel := make(chan error, 2)

	go server.Start(errChannel)

	// Listen for interrupt signals to gracefully shutdown the server
	go listenToInterrupt(errChannel)

	fatalErr := <-errChannel
	log.Info().Msgf("Closing server: %v", fatalErr)

	server.ShutdownGracefully(30 * time.Second)
	svc.Wait()
	return nil
}

// newDraftStore uses Redis when REDIS_ADDR is set and process memory otherwise.
func newDraftStore(ctx context.Context, settings config.Settings) (drafts.Store, func(), error) {
	if settings.RedisAddr == "" {
		log.Warn().Msg("REDIS_ADDR not set, drafts are kept in memory")
		return drafts.NewMemoryStore(settings.DraftTTL), func() {}, nil
	}

	store, err := drafts.NewRedisStore(ctx, settings.RedisAddr, settings.RedisPassword, settings.DraftTTL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "connect to redis")
	}
	return store, func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("Closing redis draft store")
		}
	}, nil
}

// listenToInterrupt waits for SIGINT or SIGTERM and then sends an error to the error channel.
func listenToInterrupt(errChannel chan<- error) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	errChannel <- fmt.Errorf("%s", <-c)
}
