package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/finopscloud/sla-engine/pkg/alert"
	"github.com/finopscloud/sla-engine/pkg/api"
	"github.com/finopscloud/sla-engine/pkg/config"
	"github.com/finopscloud/sla-engine/pkg/escalation"
	"github.com/finopscloud/sla-engine/pkg/lifecycle"
	"github.com/finopscloud/sla-engine/pkg/mail"
	"github.com/finopscloud/sla-engine/pkg/schedule"
	"github.com/finopscloud/sla-engine/pkg/sla"
	"github.com/finopscloud/sla-engine/pkg/store"
	"github.com/finopscloud/sla-engine/pkg/sweep"
	"github.com/finopscloud/sla-engine/pkg/system"
	"github.com/finopscloud/sla-engine/pkg/version"
)

func main() {
	var (
		debug      bool
		configPath string
	)
	flag.BoolVar(&debug, "debug", false, "enables debug mode")
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	log := system.SetupLogger(debug)
	defer func() { _ = log.Sync() }()
	log.With("version", version.Version).Info("Starting sla-engine")

	cfg, err := config.Load(configPath)
	if err != nil {
		if configPath != "" {
			log.Fatalf("Error loading sla-engine config: %v", err)
		}
		log.Warnw("Config file not loaded, using defaults", "error", err)
	}
	cfg.Defaults()

	if debug {
		log.Infof("%#v", cfg)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	taskStore, closeStore := buildTaskStore(ctx, cfg, log)
	defer closeStore()

	timerStore := buildTimerStore(cfg, log)
	sink := buildSink(cfg, log.Desugar())
	defer func() { _ = sink.Close() }()

	mailQueue := buildMailQueue(cfg, log)
	if mailQueue != nil {
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = mailQueue.Stop(stopCtx)
		}()
	}

	evaluator := schedule.Evaluator{MonthlyDayOfMonth: cfg.Engine.MonthlyDayOfMonth}
	classifier := sla.NewClassifier(cfg.Engine.WarningWindowDuration())

	var notifier lifecycle.Notifier
	if mailQueue != nil {
		notifier = lifecycle.NewMailNotifier(mailQueue, log)
	}
	manager := lifecycle.NewManager(taskStore, evaluator, notifier, sink, log)

	escScheduler := escalation.NewScheduler(timerStore, taskStore, classifier, sink, mailQueue,
		cfg.Engine.EscalationIntervalDuration(), log)

	sw := sweep.New(taskStore, evaluator, classifier, manager, escScheduler, sink, log)
	sw.WarningAlerts = cfg.Engine.WarningAlerts

	server := api.NewServer(log.Desugar(), cfg, debug)
	err = server.RegisterAll([]api.APIController{
		api.NewTasksController(taskStore, manager, evaluator, classifier, escScheduler, log),
	})
	if err != nil {
		log.Fatalf("Error registering API controllers: %v", err)
	}

	go sw.Run(ctx, cfg.Engine.SweepIntervalDuration())
	go escScheduler.Run(ctx, time.Second)

	serverErr := make(chan error, 1)
	go func() { serverErr <- server.Listen() }()

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			log.Errorw("HTTP server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("HTTP server shutdown failed", "error", err)
	}
	log.Info("sla-engine stopped")
}

func buildTaskStore(ctx context.Context, cfg config.Config, log *zap.SugaredLogger) (store.TaskStore, func()) {
	if cfg.Engine.Store == "memory" {
		log.Warn("Using in-memory task store; all state is lost on restart")
		return store.NewMemoryStore(), func() {}
	}

	ms, err := store.NewMongoStore(cfg.MongoDB, log)
	if err != nil {
		log.Fatalf("Error connecting to task store: %v", err)
	}
	return ms, func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ms.Close(closeCtx); err != nil {
			log.Errorw("Task store close failed", "error", err)
		}
	}
}

func buildTimerStore(cfg config.Config, log *zap.SugaredLogger) escalation.TimerStore {
	if cfg.Redis.Addr == "" {
		log.Warn("No redis address configured; escalation timers will not survive restarts")
		return escalation.NewMemoryTimerStore()
	}
	client, err := escalation.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Fatalf("Error connecting to redis: %v", err)
	}
	return escalation.NewRedisTimerStore(client, cfg.Redis.KeyPrefix)
}

func buildSink(cfg config.Config, log *zap.Logger) alert.Sink {
	sinks := []alert.Sink{alert.NewLogSink(log)}

	if cfg.Webhook.URL != "" {
		sinks = append(sinks, alert.NewWebhookSink(alert.WebhookSinkConfig{
			Name:    "webhook",
			URL:     cfg.Webhook.URL,
			Headers: cfg.Webhook.Headers,
			Timeout: cfg.Webhook.TimeoutDuration(),
		}, log))
	}

	if len(cfg.Kafka.Brokers) > 0 {
		ks, err := alert.NewKafkaSink(alert.KafkaSinkConfig{
			Name:          "kafka",
			Brokers:       cfg.Kafka.Brokers,
			Topic:         cfg.Kafka.Topic,
			TLSEnabled:    cfg.Kafka.TLSEnabled,
			SASLMechanism: cfg.Kafka.SASLMechanism,
			SASLUsername:  cfg.Kafka.SASLUsername,
			SASLPassword:  cfg.Kafka.SASLPassword,
			WriteTimeout:  cfg.Kafka.WriteTimeoutDuration(),
		}, log)
		if err != nil {
			log.Sugar().Fatalf("Error building kafka alert sink: %v", err)
		}
		sinks = append(sinks, ks)
	}

	if len(sinks) == 1 {
		return sinks[0]
	}
	return alert.NewMultiSink(sinks, log)
}

func buildMailQueue(cfg config.Config, log *zap.SugaredLogger) *mail.Queue {
	if cfg.Mail.Host == "" {
		log.Warn("No mail host configured; delay and overdue notices are disabled")
		return nil
	}
	sender := mail.NewSender(cfg.Mail)
	queue := mail.NewQueue(sender, log, cfg.Mail.RetryCount, cfg.Mail.RetryBackoffMs, cfg.Mail.QueueSize)
	queue.Start()
	return queue
}
