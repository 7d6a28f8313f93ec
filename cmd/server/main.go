package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mklimuk/orbit/pkg/ai"
	"github.com/mklimuk/orbit/pkg/api"
	"github.com/mklimuk/orbit/pkg/automation"
	"github.com/mklimuk/orbit/pkg/config"
	"github.com/mklimuk/orbit/pkg/db"
	"github.com/mklimuk/orbit/pkg/digest"
	"github.com/mklimuk/orbit/pkg/integration/calendar"
	"github.com/mklimuk/orbit/pkg/integration/discord"
	"github.com/mklimuk/orbit/pkg/integration/telegram"
	"github.com/mklimuk/orbit/pkg/notion"
	"github.com/mklimuk/orbit/pkg/snapshot"
	"github.com/mklimuk/orbit/pkg/store"
	"github.com/mklimuk/orbit/pkg/sync"
	"github.com/mklimuk/orbit/pkg/task"
	"github.com/mklimuk/orbit/pkg/vault"
)

func main() {
	configPath := flag.String("config", "", "Path to orbit.yaml")
	port := flag.String("port", "", "HTTP Port (overrides config)")
	debug := flag.Bool("debug", false, "Log normalization details")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != "" {
		cfg.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize DB
	database, err := db.NewDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer database.Close()

	if err := database.InitSchema(); err != nil {
		log.Fatalf("Failed to init schema: %v", err)
	}

	repo := db.NewRepository(database)

	// Local tasks live in SQLite unless the vault is asked to hold them
	var backend store.Backend = repo
	var ownDirs []string
	if cfg.Vault.StoreLocal {
		var committer vault.Committer
		if cfg.Vault.GitSync {
			gitManager := sync.NewGitManager(cfg.Vault.Path)
			gitManager.SSHKeyPath = cfg.Vault.SSHKeyPath
			gitManager.AuthorEmail = cfg.Vault.AuthorEmail
			committer = gitManager
		}
		templates := vault.NewTemplateEngine(filepath.Join(cfg.Vault.Path, "Templates"))
		vaultStore := vault.NewStore(cfg.Vault.Path, vault.DefaultTaskDir, templates, committer)
		backend = vaultStore
		ownDirs = append(ownDirs, vaultStore.Dir())
	}
	local := store.New(backend)
	if err := local.Load(ctx); err != nil {
		log.Fatalf("Failed to load local tasks: %v", err)
	}

	// Sources
	var sources []snapshot.Source
	if cfg.Notion.Enabled() {
		ncfg := notion.Config{
			Token:      cfg.Notion.Token,
			DatabaseID: cfg.Notion.DatabaseID,
			Version:    cfg.Notion.Version,
			PageSize:   cfg.Notion.PageSize,
			SkipDone:   cfg.Notion.SkipDone,
		}
		sources = append(sources, notion.NewSource(notion.NewClient(ncfg).Database, ncfg))
	}
	if cfg.Vault.Path != "" {
		exclude := append(append([]string{}, cfg.Vault.Exclude...), ownDirs...)
		sources = append(sources, vault.NewSource(cfg.Vault.Path, exclude...))
	}
	sources = append(sources, local)

	normalizer := task.NewNormalizer(task.WithLogger(logger))
	refresher := snapshot.NewRefresher(snapshot.NewLoader(normalizer, sources...), repo, cfg.RefreshInterval)
	refresher.Start()
	defer refresher.Stop()

	handler := &api.Handler{
		Snapshots: refresher,
		Store:     local,
		History:   repo,
	}

	// Initialize AI Client (Optional)
	if cfg.AI.APIKey != "" {
		gen, err := ai.New(ctx, cfg.AI.Provider, cfg.AI.APIKey, cfg.AI.Model)
		if err != nil {
			log.Printf("Failed to create AI client: %v", err)
		} else {
			defer gen.Close()
			handler.AI = gen
			log.Printf("AI provider %s enabled", cfg.AI.Provider)
		}
	}

	commands := digest.NewCommands(refresher, local)
	var notifiers []digest.Notifier

	// Initialize Discord Bot (Optional)
	if cfg.Discord.Token != "" {
		bot, err := discord.NewBot(cfg.Discord.Token, cfg.Discord.ChannelID, commands)
		if err != nil {
			log.Printf("Failed to create Discord bot: %v", err)
		} else if err := bot.Start(); err != nil {
			log.Printf("Failed to start Discord bot: %v", err)
		} else {
			log.Println("Discord Bot started")
			defer bot.Stop()
			if cfg.Discord.ChannelID != "" {
				notifiers = append(notifiers, bot)
			}
		}
	}

	// Initialize Telegram Bot (Optional)
	if cfg.Telegram.Token != "" {
		tgBot, err := telegram.NewBot(cfg.Telegram.Token, cfg.Telegram.ChatID, commands)
		if err != nil {
			log.Printf("Failed to create Telegram bot: %v", err)
		} else if err := tgBot.Start(); err != nil {
			log.Printf("Failed to start Telegram bot: %v", err)
		} else {
			log.Println("Telegram Bot started")
			defer tgBot.Stop()
			if cfg.Telegram.ChatID != 0 {
				notifiers = append(notifiers, tgBot)
			}
		}
	}

	// Scheduled jobs
	jobs := automation.NewService(30 * time.Second)
	if len(notifiers) > 0 && cfg.Digest.Schedule != "" {
		schedule, err := automation.Parse(cfg.Digest.Schedule, cfg.Digest.Timezone)
		if err != nil {
			log.Fatalf("Invalid digest schedule: %v", err)
		}
		jobs.Add(automation.Job{Name: "digest", Schedule: schedule, Run: commands.Job(notifiers...)})
	}

	// Initialize Calendar publishing (Optional)
	if cfg.Calendar.Enabled() {
		svc, err := calendar.NewService(ctx, cfg.Calendar.CredentialsFile, cfg.Calendar.CalendarID)
		if err != nil {
			log.Printf("Failed to create Calendar service: %v", err)
		} else {
			syncer := calendar.NewSyncer(svc, repo, refresher)
			schedule, err := automation.Parse(cfg.Calendar.Schedule, cfg.Digest.Timezone)
			if err != nil {
				log.Fatalf("Invalid calendar schedule: %v", err)
			}
			jobs.Add(automation.Job{Name: "calendar-sync", Schedule: schedule, Run: func(ctx context.Context) error {
				_, err := syncer.SyncCurrent(ctx)
				return err
			}})
			handler.Calendar = syncer
			log.Printf("Calendar publishing to %s enabled", cfg.Calendar.CalendarID)
		}
	}

	jobs.Start()
	defer jobs.Stop()
	handler.Jobs = jobs

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}
