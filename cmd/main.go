package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/GeloSwift/Life-Planner-Code/internal/caldav"
	"github.com/GeloSwift/Life-Planner-Code/internal/config"
	"github.com/GeloSwift/Life-Planner-Code/internal/google"
	"github.com/GeloSwift/Life-Planner-Code/internal/httpapi"
	"github.com/GeloSwift/Life-Planner-Code/internal/models"
	"github.com/GeloSwift/Life-Planner-Code/internal/store"
	"github.com/GeloSwift/Life-Planner-Code/internal/syncer"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "lifeplanner",
		Usage: "Life Planner backend: workout sessions synced to external calendars.",
		Commands: []*cli.Command{
			serveCommand(),
			discoverCommand(),
			verifyCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API server.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "Listen address. Overrides LISTEN_ADDR."},
		},
		Action: func(c *cli.Context) error {
			cfg := config.Load()
			if c.IsSet("listen") {
				cfg.ListenAddr = c.String("listen")
			}
			logger := setupLogger(cfg.LogLevel)

			st := store.NewMemory()
			// The in-memory store starts empty; seed a user so the
			// header-based development auth has someone to act as.
			if err := st.SaveUser(c.Context, &models.User{Email: "dev@localhost"}); err != nil {
				return fmt.Errorf("seed development user: %w", err)
			}

			tokens := google.NewTokenClient(logger, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
			events := google.NewEventsClient(logger)
			dav := caldav.NewService(logger, cfg.CalDAVServerURL)
			engine := syncer.NewSyncer(logger, tokens, events, dav, st, cfg.GoogleCalendarID, cfg.FrontendURL)
			handler := httpapi.NewHandler(logger, st, engine, tokens, dav, nil)

			logger.Info("Starting API server.", "addr", cfg.ListenAddr)
			if err := http.ListenAndServe(cfg.ListenAddr, handler.Routes()); err != nil {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		},
	}
}

func discoverCommand() *cli.Command {
	return &cli.Command{
		Name:  "discover",
		Usage: "Run CalDAV discovery against real credentials and list the calendars.",
		Flags: caldavFlags(),
		Action: func(c *cli.Context) error {
			logger := setupLogger(c.String("log-level"))
			dav := caldav.NewService(logger, c.String("server"))

			disc, err := dav.Discover(c.Context, caldavLink(c))
			if err != nil {
				return fmt.Errorf("discovery failed: %w", err)
			}

			fmt.Printf("Principal:     %s\n", disc.PrincipalURL)
			fmt.Printf("Calendar home: %s\n", disc.CalendarHome)
			for _, cal := range disc.Calendars {
				fmt.Printf("  %-24s %s\n", cal.DisplayName, cal.Href)
			}
			return nil
		},
	}
}

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Check CalDAV credentials: valid credentials are the ones discovery succeeds with.",
		Flags: caldavFlags(),
		Action: func(c *cli.Context) error {
			logger := setupLogger(c.String("log-level"))
			dav := caldav.NewService(logger, c.String("server"))

			if err := dav.Verify(c.Context, caldavLink(c)); err != nil {
				return fmt.Errorf("credentials rejected: %w", err)
			}
			fmt.Println("Credentials OK.")
			return nil
		},
	}
}

func caldavFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "apple-id", EnvVars: []string{"APPLE_ID"}, Required: true, Usage: "Apple ID (or account name on another CalDAV server)."},
		&cli.StringFlag{Name: "app-password", EnvVars: []string{"APPLE_APP_PASSWORD"}, Required: true, Usage: "App-specific password."},
		&cli.StringFlag{Name: "server", EnvVars: []string{"CALDAV_SERVER_URL"}, Usage: "CalDAV server URL. Defaults to iCloud."},
		&cli.StringFlag{Name: "log-level", EnvVars: []string{"LOG_LEVEL"}, Value: "info", Usage: "Log level: debug, info, warn, error."},
	}
}

func caldavLink(c *cli.Context) models.AppleCalendarLink {
	return models.AppleCalendarLink{
		AppleID:     c.String("apple-id"),
		AppPassword: c.String("app-password"),
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
