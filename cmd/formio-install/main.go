package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/systemstart/formio-install/pkg/api"
	"github.com/systemstart/formio-install/pkg/logging"
	"github.com/systemstart/formio-install/pkg/processing"
	"github.com/systemstart/formio-install/pkg/store/sqlite"
)

var version = "dev"

const (
	_ = iota
	exitLoggingFailed
	exitDotenvError
	exitLoadConfigurationFileFailed
	exitInvalidConfiguration
	exitLoadContextFailed
	exitWorkDirectoryCreateFailed
	exitLockFailed
	exitAlreadyRunning
	exitOpenDatabaseFailed
	exitInstallFailed
)

const lockFilename = ".formio-install.lock"

var (
	configFile    string
	workDirectory string
	databaseFile  string
	contextFile   string
	loggingType   string
	logLevel      string
	showVersion   bool

	download    bool
	extract     bool
	importStep  bool
	createUser  bool
	application string
	templateArg string
)

func init() {
	pflag.StringVarP(
		&configFile,
		"config",
		"c",
		"",
		"installer configuration YAML file")
	pflag.StringVar(
		&workDirectory,
		"work-directory",
		".",
		"directory receiving the client and app bundles")
	pflag.StringVar(
		&databaseFile,
		"database",
		"formio.db",
		"SQLite database of the data platform (relative to the work directory)")
	pflag.StringVar(
		&contextFile,
		"context-file",
		"",
		"YAML file of extra config template placeholders")
	pflag.StringVar(
		&loggingType,
		"logging-type",
		"tint",
		"logging type: json, text or tint")
	pflag.StringVar(
		&logLevel,
		"log-level",
		"info",
		"logging level: debug, info, warn, error")
	pflag.BoolVar(
		&showVersion,
		"version",
		false,
		"print version and exit")
	pflag.BoolVar(
		&download,
		"download",
		true,
		"download the admin client bundle")
	pflag.BoolVar(
		&extract,
		"extract",
		true,
		"extract the admin client bundle")
	pflag.BoolVar(
		&importStep,
		"import",
		true,
		"import the project template")
	pflag.BoolVar(
		&createUser,
		"user",
		true,
		"create the root user account")
	pflag.StringVar(
		&application,
		"app",
		"",
		"companion app repository (owner/repo or GitHub URL)")
	pflag.StringVar(
		&templateArg,
		"template",
		"",
		"project template: client, app, a file path, or empty for the built-in template")
}

func main() {
	pflag.Parse()

	if showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := logging.Initialize(loggingType, logLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitLoggingFailed)
	}
	includeEnv()

	cfg := loadConfiguration()
	extra := loadExtraContext()
	ensureWorkDirectory(cfg.WorkDir)

	lock := acquireLock(cfg.WorkDir)
	defer func() { _ = lock.Unlock() }()

	store := openDatabase(cfg.WorkDir)
	defer func() { _ = store.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("installing", "workDirectory", cfg.WorkDir, "app", cfg.App)
	outcome := processing.Install(ctx, cfg, store, extra, nil)
	if outcome.Err != nil {
		code := exitInstallFailed
		if errors.Is(outcome.Err, processing.ErrInvalidConfig) {
			code = exitInvalidConfiguration
		}
		slog.Error("install failed", "step", outcome.FailedStep(), "error", outcome.Err)
		_ = lock.Unlock()
		_ = store.Close()
		os.Exit(code)
	}

	if outcome.Account != nil {
		slog.Info("root account ready", "email", outcome.Account.Email)
	}
	slog.Info("install successful")
}

func includeEnv() {
	err := godotenv.Load()
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("failed to load .env", "error", err)
			os.Exit(exitDotenvError)
		}
		slog.Info("no .env file found")
	} else {
		slog.Info("using .env file")
	}
}

func loadConfiguration() *api.Config {
	cfg, err := api.LoadConfig(configFile)
	if err != nil {
		slog.Error("failed to load configuration", "filename", configFile, "error", err)
		os.Exit(exitLoadConfigurationFileFailed)
	}

	applyFlags(cfg)
	applyEnv(cfg)

	if err := cfg.Resolve(workDirectory); err != nil {
		slog.Error("failed to resolve configuration", "error", err)
		os.Exit(exitInvalidConfiguration)
	}
	return cfg
}

// applyFlags lets explicitly set flags override the configuration file.
func applyFlags(cfg *api.Config) {
	pflag.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "download":
			cfg.Steps.Download = download
		case "extract":
			cfg.Steps.Extract = extract
		case "import":
			cfg.Steps.Import = importStep
		case "user":
			cfg.Steps.User = createUser
		case "app":
			cfg.App = application
		case "template":
			cfg.Template = templateArg
		}
	})
}

func applyEnv(cfg *api.Config) {
	if email := os.Getenv("ROOT_EMAIL"); email != "" {
		cfg.Root.Email = email
	}
	if password := os.Getenv("ROOT_PASSWORD"); password != "" {
		cfg.Root.Password = password
	}
}

func loadExtraContext() map[string]string {
	if contextFile == "" {
		return nil
	}
	ctx, err := processing.LoadContextFile(contextFile)
	if err != nil {
		slog.Error("failed to load context file", "filename", contextFile, "error", err)
		os.Exit(exitLoadContextFailed)
	}
	return ctx
}

func ensureWorkDirectory(dir string) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		slog.Error("failed to create work directory", "directory", dir, "error", err)
		os.Exit(exitWorkDirectoryCreateFailed)
	}
}

func acquireLock(dir string) *flock.Flock {
	lock := flock.New(filepath.Join(dir, lockFilename))
	locked, err := lock.TryLock()
	if err != nil {
		slog.Error("failed to lock work directory", "directory", dir, "error", err)
		os.Exit(exitLockFailed)
	}
	if !locked {
		slog.Error("another installer is running in this work directory", "directory", dir)
		os.Exit(exitAlreadyRunning)
	}
	return lock
}

func openDatabase(dir string) *sqlite.Store {
	path := databaseFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	store, err := sqlite.Open(path)
	if err != nil {
		slog.Error("failed to open database", "filename", path, "error", err)
		os.Exit(exitOpenDatabaseFailed)
	}
	return store
}
