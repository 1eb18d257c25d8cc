package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"k8s.io/klog"
	"sigs.k8s.io/prow/pkg/metrics"
	"sigs.k8s.io/prow/pkg/pjutil"

	"github.com/openshift/oncall-chat-bot/pkg/command"
	"github.com/openshift/oncall-chat-bot/pkg/config"
	"github.com/openshift/oncall-chat-bot/pkg/lookup"
	"github.com/openshift/oncall-chat-bot/pkg/pagerduty"
)

const apiKeyEnv = "PAGERDUTY_API_KEY"

var (
	onCallBotMetrics = metrics.NewMetrics("oncall_chat_bot")
)

type options struct {
	ConfigPath  string
	Port        int
	HealthPort  int
	GracePeriod time.Duration
	LogLevel    string
}

func (o *options) Validate() error {
	if o.Port == o.HealthPort {
		return fmt.Errorf("--port and --health-port must differ, both are %d", o.Port)
	}
	if o.GracePeriod < 0 {
		return fmt.Errorf("--grace-period may not be negative")
	}
	if _, err := logrus.ParseLevel(o.LogLevel); err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	emptyFlags := flag.NewFlagSet("empty", flag.ContinueOnError)
	klog.InitFlags(emptyFlags)
	opt := &options{}

	pflag.StringVar(&opt.ConfigPath, "config", "", "Path to the YAML configuration file. Defaults are used when unset.")
	pflag.IntVar(&opt.Port, "port", 8080, "Port to listen on.")
	pflag.IntVar(&opt.HealthPort, "health-port", 8081, "Port the liveness and readiness probes are served on.")
	pflag.DurationVar(&opt.GracePeriod, "grace-period", 5*time.Second, "On shutdown, try to finish in-flight lookups for the specified duration.")
	pflag.StringVar(&opt.LogLevel, "log-level", logrus.InfoLevel.String(), "Level of the request logs.")
	pflag.CommandLine.AddGoFlagSet(emptyFlags)
	pflag.Parse()
	klog.SetOutput(os.Stderr)

	if err := opt.Validate(); err != nil {
		return fmt.Errorf("unable to validate program arguments: %w", err)
	}
	level, _ := logrus.ParseLevel(opt.LogLevel)
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.JSONFormatter{})

	// let k8s know that we're alive
	health := pjutil.NewHealthOnPort(opt.HealthPort)

	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return fmt.Errorf("the %s environment variable must be set", apiKeyEnv)
	}

	cfg, err := config.Load(opt.ConfigPath)
	if err != nil {
		return fmt.Errorf("unable to load configuration: %w", err)
	}

	queueMetrics := pagerduty.NewMetrics("oncall_chat_bot")
	if err := queueMetrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("unable to register metrics: %w", err)
	}

	executorOptions := cfg.ExecutorOptions()
	executorOptions.Logger = logrus.NewEntry(logrus.StandardLogger())
	executor := pagerduty.NewHTTPExecutor(executorOptions)
	queue := pagerduty.NewQueue(cfg.Concurrency, executor, queueMetrics, logrus.WithField("component", "queue"))

	client := pagerduty.NewClient(pagerduty.NewEndpoint(cfg.Scheme, cfg.Host), queue)
	service := lookup.NewService(client, lookup.Options{
		SearchLimit:  cfg.SearchLimit,
		ResultLimit:  cfg.ResultLimit,
		UserCacheTTL: cfg.UserCacheTTL,
		Logger:       logrus.WithField("component", "lookup"),
	})

	klog.Infof("Relaying lookups to %s://%s with %d concurrent requests", cfg.Scheme, cfg.Host, cfg.Concurrency)
	bot := &server{
		service:  service,
		commands: command.SupportedCommands(),
		apiKey:   apiKey,
	}
	Start(bot, opt.Port, opt.GracePeriod, health, prometheus.DefaultGatherer, onCallBotMetrics, queue.Shutdown)
	return nil
}
