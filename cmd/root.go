package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/vibejira/internal/auth"
	"github.com/joescharf/vibejira/internal/config"
	"github.com/joescharf/vibejira/internal/jira"
	"github.com/joescharf/vibejira/internal/logger"
	"github.com/joescharf/vibejira/internal/output"
	"github.com/joescharf/vibejira/internal/resolver"
	"github.com/joescharf/vibejira/internal/store"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	dataStore store.Store

	verbose bool
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "vibejira",
	Short: "Mirror JIRA projects, tickets and comments behind a REST API",
	Long: `vibejira keeps a local copy of JIRA projects, tickets and comments and
serves them over an authenticated REST API. Tickets that are not mirrored yet
are fetched from JIRA on first read.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		reportError(err)
		os.Exit(1)
	}
}

// reportError prints a command failure to stderr. Flag parsing errors can
// arrive before initDeps has built the UI.
func reportError(err error) {
	if ui == nil {
		ui = output.New()
	}
	ui.Error("%v", err)
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/vibejira/config.yaml)")
}

func initConfig() {
	v := viper.GetViper()

	configDir, err := configDirFunc()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
		os.Exit(1)
	}

	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	config.BindEnv(v)
	config.SetDefaults(v, configDir)

	// Read config file if it exists (optional)
	_ = v.ReadInConfig()
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	logger.Init(logger.Options{
		Level:  viper.GetString("log.level"),
		Format: viper.GetString("log.format"),
		Debug:  verbose,
	})

	// Store is opened lazily so config/version commands run without a db.
}

// loadConfig decodes and validates the effective configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(viper.GetViper())
}

// getStore returns the shared store, initializing it on first call.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	s, err := store.Open(cfg.DB.Driver, cfg.DB.Source())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	ctx := rootCmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

// newResolver wires the JIRA client configured in cfg to s.
func newResolver(cfg *config.Config, s store.Store) *resolver.Resolver {
	client := jira.NewClient(jira.Config{
		BaseURL: cfg.Jira.BaseURL,
		Email:   cfg.Jira.Email,
		Token:   cfg.Jira.Token,
		Timeout: cfg.Jira.Timeout,
	})
	return resolver.New(s, client)
}

// newAuthenticator builds the token authenticator. It fails when no signing
// secret is configured.
func newAuthenticator(cfg *config.Config, s store.Store) (*auth.Authenticator, error) {
	if err := cfg.RequireSecret(); err != nil {
		return nil, err
	}
	return auth.NewAuthenticator(s, auth.NewBcryptHasher(0), auth.NewTokenService(cfg.Auth.Secret, cfg.Auth.TokenTTL)), nil
}
