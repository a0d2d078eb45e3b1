package main // entry point: wires the store, services and HTTP server

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/mintgate/ticket-engine/internal/config"
	"github.com/mintgate/ticket-engine/internal/database"
	"github.com/mintgate/ticket-engine/internal/handler"
	"github.com/mintgate/ticket-engine/internal/queue"
	"github.com/mintgate/ticket-engine/internal/repository"
	"github.com/mintgate/ticket-engine/internal/router"
	"github.com/mintgate/ticket-engine/internal/service"
	"github.com/mintgate/ticket-engine/internal/signing"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	var store repository.Store
	switch cfg.StoreDriver {
	case "memory":
		// In-process store for local development; state dies with the
		// process.
		log.Println("using in-memory store; data will not survive a restart")
		store = repository.NewMemoryStore()
	default:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.Fatalf("opening database: %v", err)
		}
		defer db.Close()
		store = repository.NewSQLStore(db)
	}

	var custodian signing.Custodian
	if cfg.CustodyURL != "" {
		custodian = signing.NewHTTPCustodian(cfg.CustodyURL)
	} else {
		log.Println("no CUSTODY_URL set; using in-process key custodian")
		custodian = signing.NewLocalCustodian()
	}

	var registrar service.Registrar
	if cfg.RegistrarURL != "" {
		registrar = service.NewHTTPRegistrar(cfg.RegistrarURL)
	}

	var notifier service.Notifier
	if cfg.RabbitURL != "" {
		notifier = service.NewRabbitNotifier(cfg.RabbitURL)
		go func() {
			if err := queue.StartIssuanceConsumer(); err != nil {
				log.Printf("issuance consumer stopped: %v", err)
			}
		}()
	}

	holds := service.NewHoldService(store, cfg.HoldTTL)
	waitlist := service.NewQueueService(store)
	issuance := service.NewIssuanceService(store, custodian, registrar, notifier)
	transfers := service.NewTransferService(store)
	verify := service.NewVerifyService(store)
	events := service.NewEventService(store)

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; rate limiting and response caching disabled")
	}

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e, router.Handlers{
		Holds:     handler.NewHoldHandler(holds),
		Queue:     handler.NewQueueHandler(waitlist),
		Payments:  handler.NewPaymentWebhookHandler(issuance),
		Transfers: handler.NewTransferHandler(transfers),
		Verify:    handler.NewVerifyHandler(verify),
		Organizer: handler.NewOrganizerHandler(events, issuance),
	}, &cfg, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, store=%s)", addr, cfg.Env, cfg.StoreDriver)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
