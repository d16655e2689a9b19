package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timberwood/outreach/internal/api"
	"github.com/timberwood/outreach/internal/archive"
	"github.com/timberwood/outreach/internal/config"
	"github.com/timberwood/outreach/internal/mailer"
	"github.com/timberwood/outreach/internal/outreach"
	"github.com/timberwood/outreach/internal/research"
	"github.com/timberwood/outreach/internal/session"
	"github.com/timberwood/outreach/internal/storage"
)

// checkPortAvailable verifies that the target port is not already in
// use, so startup fails fast instead of racing a stale process.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v", port, addr, err)
	}
	ln.Close()
	return nil
}

// pickSender selects the outbound transport: SES when enabled, then
// Web3Forms, then plain SMTP.
func pickSender(ctx context.Context, cfg *config.Config) (mailer.Sender, string, error) {
	if cfg.SES.Enabled {
		s, err := mailer.NewSESSender(ctx, cfg.SES)
		if err != nil {
			return nil, "", fmt.Errorf("initializing SES sender: %w", err)
		}
		return s, "ses", nil
	}
	if cfg.Web3Forms.Enabled {
		return mailer.NewWeb3FormsSender(cfg.Web3Forms), "web3forms", nil
	}
	return mailer.NewSMTPSender(cfg.SMTP), "smtp", nil
}

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}
	log.Printf("Pre-flight check passed: port %d is available", port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sender, transport, err := pickSender(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize sender: %v", err)
	}
	log.Printf("Email transport: %s", transport)

	researcher := research.NewWebResearcher(cfg.Tavily, cfg.Groq)

	var sessions *session.Store
	if cfg.Redis.Addr != "" {
		store := session.NewStore(cfg.Redis, cfg.Session)
		if err := store.Ping(ctx); err != nil {
			log.Printf("Redis unavailable, session persistence disabled: %v", err)
			store.Close()
		} else {
			sessions = store
			log.Printf("Session persistence: redis at %s", cfg.Redis.Addr)
		}
	}

	var history *archive.Store
	var onOutcome func(outreach.SendOutcome)
	if cfg.Database.Enabled {
		history, err = archive.NewStore(cfg.Database)
		if err != nil {
			log.Fatalf("Failed to open send-history archive: %v", err)
		}
		defer history.Close()
		if err := history.Migrate(ctx); err != nil {
			log.Fatalf("Failed to migrate archive schema: %v", err)
		}
		onOutcome = func(o outreach.SendOutcome) {
			rec := &archive.SendRecord{
				CampaignName: o.CampaignName,
				BusinessKey:  o.BusinessKey,
				Email:        o.Email,
				Status:       string(o.Status),
				Message:      o.Message,
				SentAt:       o.SentAt,
			}
			if err := history.RecordSend(context.Background(), rec); err != nil {
				log.Printf("Failed to archive send record: %v", err)
			}
		}
		log.Println("Send-history archive enabled")
	}

	exporter, err := storage.NewExporter(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize exporter: %v", err)
	}

	handlers := api.NewHandlers(cfg, sender, researcher, sessions, exporter, history, onOutcome)
	if sessions != nil {
		if id, err := sessions.Last(ctx); err == nil {
			if err := handlers.RestoreSession(ctx, id); err != nil {
				log.Printf("Could not restore session %s: %v", id, err)
			} else {
				log.Printf("Restored session %s", id)
			}
		}
	}
	router := api.SetupRoutes(handlers)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: router,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if sessions != nil {
		sessions.Close()
	}
	log.Println("Server stopped")
}
