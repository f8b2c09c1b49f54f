package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"habit-reward-system/config"
	"habit-reward-system/handlers"
	"habit-reward-system/middleware"
	"habit-reward-system/models"
	"habit-reward-system/services"
	"habit-reward-system/utils"
	"habit-reward-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info("no .env file found, reading environment variables directly")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("invalid LOG_LEVEL %q: %v", cfg.LogLevel, err)
	}
	log.SetLevel(level)

	// TranslateError maps driver unique-violation errors onto
	// gorm.ErrDuplicatedKey, which the reward ledger relies on.
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database: ", err)
	}

	if err := db.AutoMigrate(
		&models.UserProgress{},
		&models.Streak{},
		&models.Inventory{},
		&models.RewardLedgerEntry{},
		&models.RewardDailyCounter{},
		&models.DailyActivityAggregate{},
		&models.WeeklyChallengeSet{},
		&models.StreamAccount{},
		&models.Task{},
		&models.Goal{},
		&models.Event{},
	); err != nil {
		log.Fatal("failed to migrate database: ", err)
	}

	streakService := services.NewStreakService(db)
	rewardService := services.NewRewardService(db, streakService)
	challengeService := services.NewChallengeService(db)
	adminService := services.NewAdminService(db)

	liveClient := services.NewLiveStatusClient(
		cfg.LiveProviderBaseURL,
		cfg.LiveProviderTokenURL,
		cfg.LiveProviderClientID,
		cfg.LiveProviderClientSecret,
	)
	sweepWorker := workers.NewLiveSweepWorker(db, liveClient, cfg.LiveXPPerHour)

	var archiver *utils.LedgerArchiver
	if cfg.ArchiveEnabled() {
		archiver, err = utils.NewLedgerArchiver(
			cfg.ArchiveAccountID,
			cfg.ArchiveAccessKeyID,
			cfg.ArchiveAccessKeySecret,
			cfg.ArchiveBucket,
		)
		if err != nil {
			log.Fatal("failed to initialize ledger archiver: ", err)
		}
	} else {
		log.Warn("archive settings incomplete, monthly ledger export disabled")
	}

	sched, err := workers.NewScheduler(db, sweepWorker, archiver, cfg.LiveSweepInterval)
	if err != nil {
		log.Fatal("failed to build scheduler: ", err)
	}
	sched.Start()

	app := fiber.New()

	// Only the Gateway talks to this service.
	app.Use(middleware.GatewayAuthMiddleware(cfg.ServiceToken))

	origins := strings.Split(cfg.AllowedOrigins, ",")
	for i, origin := range origins {
		origins[i] = strings.TrimSpace(origin)
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(origins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	handlers.SetupRewardRoutes(app, rewardService, challengeService)
	handlers.SetupAdminRoutes(app, adminService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			log.Error("server error: ", err)
		}
	}()

	log.Infof("server running on port %d", cfg.Port)

	<-ctx.Done()
	log.Info("shutting down")
	if err := sched.Stop(); err != nil {
		log.Warn("scheduler shutdown: ", err)
	}
	if err := app.Shutdown(); err != nil {
		log.Warn("server shutdown: ", err)
	}
}
