// Package main contains the entrypoint for the adviser bot.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/adviserbot/internal/advice"
	"github.com/edgard/adviserbot/internal/ai"
	"github.com/edgard/adviserbot/internal/bot"
	"github.com/edgard/adviserbot/internal/bot/handlers"
	"github.com/edgard/adviserbot/internal/bot/tasks"
	"github.com/edgard/adviserbot/internal/config"
	"github.com/edgard/adviserbot/internal/conversation"
	"github.com/edgard/adviserbot/internal/database"
	"github.com/edgard/adviserbot/internal/logger"
	"github.com/edgard/adviserbot/internal/search"
	"github.com/edgard/adviserbot/internal/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run wires every component, blocks until shutdown and returns the exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "", "Path to configuration file (defaults to ./config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Log)
	log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	store, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Error("Failed to open database", "driver", cfg.Database.Driver, "error", err)
		return 1
	}
	defer store.Close()

	aiClient, err := ai.New(ctx, cfg.AI, log)
	if err != nil {
		log.Error("Failed to initialize AI client", "provider", cfg.AI.Provider, "error", err)
		return 1
	}

	searchClient, err := search.New(ctx, cfg.Search, log)
	if err != nil {
		log.Error("Failed to initialize search client", "error", err)
		return 1
	}

	generator := advice.NewGenerator(aiClient, aiClient, searchClient, log)

	// The text handler needs the machine, which needs a sender bound to tg.
	var textHandler tgbot.HandlerFunc
	// One worker dispatching synchronously keeps arrival order up to the
	// queue, which then runs each user's updates in sequence.
	queue := handlers.NewUserQueue(log)
	botOpts := []tgbot.Option{
		tgbot.WithWorkers(1),
		tgbot.WithNotAsyncHandlers(),
		tgbot.WithMiddlewares(queue.Middleware, logger.Middleware(log), handlers.PrivateOnly(log)),
		tgbot.WithDefaultHandler(func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			textHandler(ctx, b, update)
		}),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}
	sender := telegram.NewSender(tg, log)

	scheduler, err := bot.NewScheduler(log, &cfg.Scheduler, nil, bot.AdviceDeps{
		Store:     store,
		Generator: generator,
		Sender:    sender,
		Messages:  cfg.Messages,
	})
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}
	scheduler.RegisterTasks(tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger: log,
		Store:  store,
		Advice: scheduler,
	}))

	machine := conversation.NewMachine(conversation.Deps{
		Store:      store,
		Advisor:    generator,
		Subscriber: scheduler,
		Sender:     sender,
		Messages:   cfg.Messages,
		Chat:       cfg.Chat,
		Logger:     log,
	})

	hDeps := handlers.HandlerDeps{
		Logger:        log,
		Config:        cfg,
		Store:         store,
		Machine:       machine,
		Subscriptions: scheduler,
	}

	textHandler = handlers.NewTextHandler(hDeps)

	registered := handlers.RegisterAllCommands(hDeps)
	if err := telegram.RegisterHandlers(tg, log, registered); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}

	me, err := tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return 1
	}
	log.Info("Retrieved bot info", "bot_id", me.ID, "bot_username", me.Username)

	app := bot.NewBot(log, cfg, store, tg, registered, scheduler)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")
	queue.Wait()

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}
