package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/FocusLoopHQ/FocusLoop/internal/api"
	"github.com/FocusLoopHQ/FocusLoop/internal/chat"
	"github.com/FocusLoopHQ/FocusLoop/internal/detector"
	"github.com/FocusLoopHQ/FocusLoop/internal/engine"
	"github.com/FocusLoopHQ/FocusLoop/internal/genai"
	"github.com/FocusLoopHQ/FocusLoop/internal/lockfile"
	"github.com/FocusLoopHQ/FocusLoop/internal/notify"
	"github.com/FocusLoopHQ/FocusLoop/internal/scheduler"
	"github.com/FocusLoopHQ/FocusLoop/internal/session"
	"github.com/FocusLoopHQ/FocusLoop/internal/store"
	"github.com/FocusLoopHQ/FocusLoop/internal/util"
	"github.com/FocusLoopHQ/FocusLoop/internal/voice"
	"github.com/FocusLoopHQ/FocusLoop/internal/whatsapp"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for FocusLoop state data
	DefaultStateDir = "/var/lib/focusloop"
	// DefaultAppDBFileName is the default SQLite database filename for application data
	DefaultAppDBFileName = "focusloop.db"
	// DefaultWhatsAppDBFileName is the default SQLite database filename for whatsmeow
	DefaultWhatsAppDBFileName = "whatsmeow.db"
	// DefaultOutboxPollInterval is how often staged nudges are claimed for delivery
	DefaultOutboxPollInterval = 5 * time.Second
)

// errNoPersistenceProvider signals a store without durable queue repos.
var errNoPersistenceProvider = errors.New("store does not implement PersistenceProvider")

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	// Only one FocusLoop instance may own the state directory.
	lock, err := lockfile.AcquireLock(*flags.stateDir)
	if err != nil {
		slog.Error("Failed to acquire state directory lock", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := lock.Release(); err != nil {
			slog.Error("Failed to release state directory lock", "error", err)
		}
	}()

	slog.Info("Bootstrapping FocusLoop with configured modules")
	slog.Debug("Final configuration",
		"state_dir", *flags.stateDir,
		"app_dsn_set", *flags.dbDSN != "",
		"api_addr", *flags.apiAddr,
		"notify_channel", *flags.notifyChannel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, flags); err != nil {
		slog.Error("FocusLoop failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("FocusLoop exited successfully")
}

// run wires the modules together and serves until the context is cancelled.
func run(ctx context.Context, flags Flags) error {
	st, err := openStore(flags)
	if err != nil {
		return err
	}
	defer st.Close()

	pp, ok := st.(store.PersistenceProvider)
	if !ok {
		slog.Error("Store does not expose durable queue repositories")
		return errNoPersistenceProvider
	}

	gen, err := genai.NewClient(buildGenAIOptions(flags)...)
	if err != nil {
		return err
	}

	eng := engine.NewEngine(gen, st)
	recovered, err := eng.RecoverActiveBlocks()
	if err != nil {
		slog.Warn("Failed to recover active work blocks", "error", err)
	} else if recovered > 0 {
		slog.Info("Recovered active work blocks", "count", recovered)
	}
	go eng.Run(ctx)

	det := detector.NewDetector(gen, st)
	sessions := session.NewService(gen, st, pp.JobRepo())
	chatSvc := chat.NewService(gen, st)
	voiceSvc := voice.NewService(gen)

	svc, err := buildNotifyService(flags)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := svc.Stop(); err != nil {
			slog.Error("Failed to stop notify service", "error", err)
		}
	}()

	// Reminder jobs stage nudges in the durable outbox; the sender delivers
	// them through the channel notifier with retry on transient failures.
	runner := store.NewJobRunner(pp.JobRepo())
	session.RegisterJobHandlers(runner, st, notify.NewOutboxNotifier(pp.OutboxRepo()))
	if err := runner.RecoverStaleJobs(); err != nil {
		slog.Warn("Failed to recover stale jobs", "error", err)
	}
	go runner.Run(ctx)

	notifier := notify.NewNotifier(svc, st)
	pollInterval := time.Duration(util.ParseIntEnv("FOCUSLOOP_OUTBOX_POLL_SECONDS", int(DefaultOutboxPollInterval/time.Second))) * time.Second
	sender := store.NewOutboxSender(pp.OutboxRepo(), notify.NewOutboxSendFunc(notifier), pollInterval)
	if err := sender.RecoverStaleMessages(); err != nil {
		slog.Warn("Failed to recover stale outbox messages", "error", err)
	}
	go sender.Run(ctx)

	// Inbound replies route into the engine when a block is running, the
	// companion chat otherwise.
	router := notify.NewResponseRouter(svc, st, eng, func(ctx context.Context, userID, message string) string {
		return chatSvc.SendMessage(ctx, userID, message).Text
	}, pp.DedupRepo())
	go router.Run(ctx)

	sched := scheduler.NewScheduler()
	defer sched.Stop()
	if *flags.defaultCron != "" {
		expr := *flags.defaultCron
		err := sched.AddJob(expr, func() {
			if _, err := sessions.MorningKickoff(context.Background()); err != nil {
				slog.Error("Morning kickoff sweep failed", "error", err)
			}
		})
		if err != nil {
			slog.Error("Failed to schedule morning kickoff", "error", err, "cron", expr)
			return err
		}
		slog.Info("Morning kickoff scheduled", "cron", expr)
	}

	server := api.NewServer(eng, det, sessions, chatSvc, voiceSvc, st, gen, buildAPIOptions(flags)...)
	return server.Run(ctx)
}

// Config holds environment configuration
type Config struct {
	StateDir         string
	ApplicationDSN   string
	WhatsAppDSN      string
	GroqKey          string
	GroqBaseURL      string
	GroqModel        string
	APIAddr          string
	DefaultCron      string
	NotifyChannel    string
	TwilioConfigured bool
}

// Flags holds command line flag values
type Flags struct {
	qrOutput      *string
	numeric       *bool
	stateDir      *string
	dbDSN         *string
	whatsappDSN   *string
	groqKey       *string
	groqBaseURL   *string
	groqModel     *string
	apiAddr       *string
	defaultCron   *string
	notifyChannel *string
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		StateDir:       os.Getenv("FOCUSLOOP_STATE_DIR"),
		ApplicationDSN: os.Getenv("FOCUSLOOP_DB_DSN"),
		WhatsAppDSN:    os.Getenv("WHATSAPP_DB_DSN"),
		GroqKey:        os.Getenv("GROQ_API_KEY"),
		GroqBaseURL:    os.Getenv("GROQ_BASE_URL"),
		GroqModel:      os.Getenv("GROQ_MODEL"),
		APIAddr:        os.Getenv("API_ADDR"),
		DefaultCron:    os.Getenv("FOCUSLOOP_DEFAULT_SCHEDULE"),
		NotifyChannel:  os.Getenv("FOCUSLOOP_NOTIFY_CHANNEL"),
		TwilioConfigured: os.Getenv("TWILIO_ACCOUNT_SID") != "" &&
			os.Getenv("TWILIO_AUTH_TOKEN") != "" &&
			os.Getenv("TWILIO_FROM_NUMBER") != "",
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No FOCUSLOOP_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	} else {
		slog.Debug("FOCUSLOOP_STATE_DIR found in environment", "state_dir", config.StateDir)
	}

	// Application data falls back to DATABASE_URL, then SQLite in the state dir.
	if config.ApplicationDSN == "" {
		config.ApplicationDSN = os.Getenv("DATABASE_URL")
		if config.ApplicationDSN != "" {
			slog.Debug("Using DATABASE_URL as application DSN", "dsn_set", true)
		}
	}
	if config.ApplicationDSN == "" {
		config.ApplicationDSN = filepath.Join(config.StateDir, DefaultAppDBFileName)
		slog.Debug("No application DSN provided, defaulting to SQLite", "sqlite_path", config.ApplicationDSN)
	}

	// whatsmeow keeps its own database. It wants foreign keys on for SQLite.
	if config.WhatsAppDSN == "" {
		config.WhatsAppDSN = "file:" + filepath.Join(config.StateDir, DefaultWhatsAppDBFileName) + "?_foreign_keys=on"
		slog.Debug("No WhatsApp DSN provided, defaulting to SQLite", "sqlite_path", config.WhatsAppDSN)
	}

	// Auto-select the nudge channel when not pinned: Twilio when its env
	// credentials are complete, otherwise no outbound channel. WhatsApp is
	// opt-in because first run requires an interactive pairing flow.
	if config.NotifyChannel == "" {
		if config.TwilioConfigured {
			config.NotifyChannel = "twilio"
		} else {
			config.NotifyChannel = "none"
		}
		slog.Debug("No FOCUSLOOP_NOTIFY_CHANNEL set, auto-selected", "channel", config.NotifyChannel)
	}

	slog.Debug("environment variables loaded",
		"FOCUSLOOP_STATE_DIR", config.StateDir,
		"FOCUSLOOP_DB_DSN_SET", config.ApplicationDSN != "",
		"WHATSAPP_DB_DSN_SET", config.WhatsAppDSN != "",
		"GROQ_API_KEY_SET", config.GroqKey != "",
		"GROQ_BASE_URL", config.GroqBaseURL,
		"GROQ_MODEL", config.GroqModel,
		"API_ADDR", config.APIAddr,
		"FOCUSLOOP_DEFAULT_SCHEDULE", config.DefaultCron,
		"FOCUSLOOP_NOTIFY_CHANNEL", config.NotifyChannel,
		"TWILIO_CONFIGURED", config.TwilioConfigured)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		qrOutput:      flag.String("qr-output", "", "path to write WhatsApp login QR code"),
		numeric:       flag.Bool("numeric-code", false, "use numeric WhatsApp login code instead of QR code"),
		stateDir:      flag.String("state-dir", config.StateDir, "state directory for FocusLoop data (overrides $FOCUSLOOP_STATE_DIR)"),
		dbDSN:         flag.String("db-dsn", config.ApplicationDSN, "application database DSN (overrides $FOCUSLOOP_DB_DSN or $DATABASE_URL)"),
		whatsappDSN:   flag.String("whatsapp-db-dsn", config.WhatsAppDSN, "whatsmeow database DSN (overrides $WHATSAPP_DB_DSN)"),
		groqKey:       flag.String("groq-api-key", config.GroqKey, "Groq API key (overrides $GROQ_API_KEY)"),
		groqBaseURL:   flag.String("groq-base-url", config.GroqBaseURL, "Groq-compatible endpoint base URL (overrides $GROQ_BASE_URL)"),
		groqModel:     flag.String("groq-model", config.GroqModel, "chat completion model (overrides $GROQ_MODEL)"),
		apiAddr:       flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		defaultCron:   flag.String("default-cron", config.DefaultCron, "cron schedule for the morning kickoff sweep (overrides $FOCUSLOOP_DEFAULT_SCHEDULE)"),
		notifyChannel: flag.String("notify-channel", config.NotifyChannel, "nudge delivery channel: whatsapp, twilio, or none (overrides $FOCUSLOOP_NOTIFY_CHANNEL)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"qrOutput", *flags.qrOutput,
		"numeric", *flags.numeric,
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"whatsappDSN_set", *flags.whatsappDSN != "",
		"groqKeySet", *flags.groqKey != "",
		"apiAddr", *flags.apiAddr,
		"defaultCron", *flags.defaultCron,
		"notifyChannel", *flags.notifyChannel)

	// Follow the state directory when the DSNs were left at their defaults.
	if *flags.stateDir != config.StateDir {
		if *flags.dbDSN == filepath.Join(config.StateDir, DefaultAppDBFileName) {
			*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultAppDBFileName)
			slog.Debug("Updated application DSN based on state directory", "new_state_dir", *flags.stateDir)
		}
		if *flags.whatsappDSN == "file:"+filepath.Join(config.StateDir, DefaultWhatsAppDBFileName)+"?_foreign_keys=on" {
			*flags.whatsappDSN = "file:" + filepath.Join(*flags.stateDir, DefaultWhatsAppDBFileName) + "?_foreign_keys=on"
			slog.Debug("Updated WhatsApp DSN based on state directory", "new_state_dir", *flags.stateDir)
		}
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	for _, dsn := range []string{*flags.dbDSN, *flags.whatsappDSN} {
		if store.DetectDSNType(dsn) == "postgres" {
			continue
		}
		dir := filepath.Dir(strings.TrimPrefix(strings.SplitN(dsn, "?", 2)[0], "file:"))
		slog.Debug("Creating state directory for file-based database", "state_dir", dir)
		if err := os.MkdirAll(dir, 0755); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", dir)
			return err
		}
	}
	return nil
}

// openStore opens the application store, choosing the backend by DSN shape.
func openStore(flags Flags) (store.Store, error) {
	dsn := *flags.dbDSN
	if store.DetectDSNType(dsn) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, opening PostgreSQL store", "dsn_set", true)
		return store.NewPostgresStore(store.WithPostgresDSN(dsn))
	}
	slog.Debug("Detected SQLite DSN, opening SQLite store", "db_path", dsn)
	return store.NewSQLiteStore(store.WithSQLiteDSN(dsn))
}

// buildGenAIOptions constructs Groq gateway configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.groqKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.groqKey))
	}
	if *flags.groqBaseURL != "" {
		genaiOpts = append(genaiOpts, genai.WithBaseURL(*flags.groqBaseURL))
	}
	if *flags.groqModel != "" {
		genaiOpts = append(genaiOpts, genai.WithModel(*flags.groqModel))
	}
	if util.ParseBoolEnv("FOCUSLOOP_GENAI_DEBUG", false) {
		genaiOpts = append(genaiOpts, genai.WithDebugMode(true, *flags.stateDir))
	}
	return genaiOpts
}

// buildWhatsAppOptions constructs WhatsApp client configuration options
func buildWhatsAppOptions(flags Flags) []whatsapp.Option {
	var waOpts []whatsapp.Option
	if *flags.qrOutput != "" {
		waOpts = append(waOpts, whatsapp.WithQRCodeOutput(*flags.qrOutput))
	}
	if *flags.numeric {
		waOpts = append(waOpts, whatsapp.WithNumericCode())
	}
	if *flags.whatsappDSN != "" {
		waOpts = append(waOpts, whatsapp.WithDBDSN(*flags.whatsappDSN))
	}
	return waOpts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	return apiOpts
}

// buildNotifyService creates the nudge delivery channel named by the flags.
func buildNotifyService(flags Flags) (notify.Service, error) {
	switch *flags.notifyChannel {
	case "whatsapp":
		client, err := whatsapp.NewClient(buildWhatsAppOptions(flags)...)
		if err != nil {
			return nil, err
		}
		return notify.NewWhatsAppService(client), nil
	case "twilio":
		client, err := notify.NewTwilioClient()
		if err != nil {
			return nil, err
		}
		return notify.NewTwilioService(client), nil
	default:
		slog.Info("No nudge channel configured, using no-op delivery")
		return notify.NewNoopService(), nil
	}
}
