package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lukman83/pricepulse/config"
	"github.com/lukman83/pricepulse/internal/amazon"
	"github.com/lukman83/pricepulse/internal/api"
	"github.com/lukman83/pricepulse/internal/fetch"
	"github.com/lukman83/pricepulse/internal/flipkart"
	"github.com/lukman83/pricepulse/internal/logger"
	"github.com/lukman83/pricepulse/internal/mail"
	"github.com/lukman83/pricepulse/internal/myntra"
	"github.com/lukman83/pricepulse/internal/pipeline"
	"github.com/lukman83/pricepulse/internal/platform"
	"github.com/lukman83/pricepulse/internal/stealth"
	"github.com/lukman83/pricepulse/internal/store"
)

var (
	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:               "pricepulse",
	Short:             "PricePulse - retail price tracker CLI & MCP server",
	Long:              "Tracks Amazon, Flipkart and Myntra product prices and emails subscribers about price drops and restocks.",
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
	PersistentPostRun: func(*cobra.Command, []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	f := rootCmd.PersistentFlags()
	f.String("db", "", "SQLite database path (default from $PRICEPULSE_DB_PATH or ./pricepulse.db)")
	f.String("delay-profile", "", "Delay profile: cautious, normal, aggressive, none")
	f.Bool("respect-robots", false, "Respect robots.txt rules")
	f.Bool("headless", false, "Retry blocked or failed fetches in a headless browser")
	f.Int("max-concurrent", 0, "Products refreshed in parallel")
	f.Float64("threshold", 0, "Discount percent that triggers a threshold alert")
	f.Int("retries", 0, "Retries for network errors and 5xx responses")
}

func initConfig(cmd *cobra.Command, _ []string) error {
	cfg = config.DefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Flags override env only when set explicitly.
	f := cmd.Root().PersistentFlags()
	if f.Changed("db") {
		cfg.DBPath, _ = f.GetString("db")
	}
	if f.Changed("delay-profile") {
		cfg.DelayProfile, _ = f.GetString("delay-profile")
	}
	if f.Changed("respect-robots") {
		cfg.RespectRobots, _ = f.GetBool("respect-robots")
	}
	if f.Changed("headless") {
		cfg.HeadlessFallback, _ = f.GetBool("headless")
	}
	if f.Changed("max-concurrent") {
		cfg.MaxConcurrent, _ = f.GetInt("max-concurrent")
	}
	if f.Changed("threshold") {
		cfg.ThresholdPercent, _ = f.GetFloat64("threshold")
	}
	if f.Changed("retries") {
		cfg.FetchRetries, _ = f.GetInt("retries")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	var err error
	log, err = logger.New(cfg.Env)
	return err
}

// app is the wired pipeline plus the resources a command must release.
type app struct {
	pipe  *pipeline.Pipeline
	store *store.SQLite
	cron  *api.Cron
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		log.Warn("close store", zap.Error(err))
	}
}

// service exposes the pipeline to MCP with cycle runs going through the
// same overlap guard as the HTTP trigger.
func (a *app) service() service {
	return service{Pipeline: a.pipe, cron: a.cron}
}

type service struct {
	*pipeline.Pipeline
	cron *api.Cron
}

func (s service) RunCycle(ctx context.Context) (*pipeline.Summary, error) {
	return s.cron.Trigger(ctx)
}

func openApp() (*app, error) {
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	profile, err := stealth.ParseDelayProfile(cfg.DelayProfile)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	proxy := stealth.ProxyConfig{
		Username: cfg.ProxyUsername,
		Password: cfg.ProxyPassword,
		Host:     cfg.ProxyHost,
		Port:     cfg.ProxyPort,
	}
	if !proxy.Enabled() {
		log.Info("proxy not configured, fetching directly")
	}

	var fetcher fetch.Fetcher = fetch.New(nil, fetch.Options{
		Proxy:         proxy,
		Timeout:       cfg.FetchTimeout,
		Retries:       cfg.FetchRetries,
		RatePerSecond: cfg.RatePerSecond,
		RateBurst:     cfg.RateBurst,
		DelayProfile:  profile,
		RespectRobots: cfg.RespectRobots,
	})
	if cfg.HeadlessFallback {
		fetcher = &fetch.Fallback{
			Primary:   fetcher,
			Secondary: &fetch.Headless{Proxy: proxy, Timeout: cfg.FetchTimeout},
			Logger:    log,
		}
	}

	pipe := pipeline.New(pipeline.Deps{
		Store:      db,
		Fetcher:    fetcher,
		Extractors: platform.NewRegistry(amazon.New(), flipkart.New(), myntra.New()),
		Mailer:     buildMailer(),
		Logger:     log,
	}, pipeline.Config{
		ThresholdPercent: cfg.ThresholdPercent,
		MaxConcurrent:    cfg.MaxConcurrent,
		ItemTimeout:      cfg.ItemTimeout,
	})

	return &app{pipe: pipe, store: db, cron: api.NewCron(pipe, log)}, nil
}

func buildMailer() mail.Mailer {
	if !cfg.SMTPEnabled() {
		log.Info("SMTP not configured, notifications disabled")
		return mail.Disabled{}
	}
	m, err := mail.NewSMTPMailer(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.SMTPFrom,
	})
	if err != nil {
		log.Warn("SMTP misconfigured, notifications disabled", zap.Error(err))
		return mail.Disabled{}
	}
	return m
}
