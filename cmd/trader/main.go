// Command trader runs the trending scanner, the price/autosell loop, the
// lending sentinel, the websocket broadcast hub, and the Telegram control
// surface as one process.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/trendrunner/tokentrader/config"
	"github.com/trendrunner/tokentrader/internal/chart"
	"github.com/trendrunner/tokentrader/internal/hub"
	"github.com/trendrunner/tokentrader/internal/marketdata"
	"github.com/trendrunner/tokentrader/internal/notify"
	"github.com/trendrunner/tokentrader/internal/orchestrator"
	"github.com/trendrunner/tokentrader/internal/pipeline"
	"github.com/trendrunner/tokentrader/internal/risk"
	"github.com/trendrunner/tokentrader/internal/sentinel"
	"github.com/trendrunner/tokentrader/internal/signer"
	"github.com/trendrunner/tokentrader/internal/store"
	"github.com/trendrunner/tokentrader/internal/trader"
)

func main() {
	log.Println("trendrunner starting")

	cfg := config.Load()

	db, err := store.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("store open failed: %v", err)
	}

	client := marketdata.NewClient(cfg)
	cooldown := risk.NewCooldownTracker()

	notifier := notify.New(cfg)
	push := notify.NewPushService("serviceAccountKey.json", "trendrunner-critical")
	notifier.Notify("trendrunner restarted")

	scheduler := orchestrator.NewScheduler(db, client, decimal.NewFromFloat(cfg.StartingCash), time.Duration(cfg.RecentWindowHours)*time.Hour)

	var evmSigner, splSigner trader.Signer
	var evmSignerConcrete *signer.EVMSigner
	if cfg.EVMRPCURL != "" && cfg.EVMSignerKey != "" {
		s, err := signer.NewEVMSigner(context.Background(), cfg.EVMRPCURL, cfg.EVMSignerKey)
		if err != nil {
			log.Printf("evm signer disabled: %v", err)
		} else {
			evmSigner = s
			evmSignerConcrete = s
		}
	}
	if cfg.SolanaRPCURL != "" && cfg.SolanaSignerKey != "" {
		splSigner = signer.NewSPLSigner(cfg.SolanaRPCURL, cfg.SolanaSignerKey)
	}

	tr := trader.New(cfg, client, db, db, evmSigner, splSigner, scheduler)

	h := hub.New(scheduler)
	scheduler.AttachHub(h)

	// The headless-browser capturer and the vision model are both
	// out-of-scope collaborators; Overlay composes cleanly around a nil
	// pair and Evaluate degrades to (0, false) without them.
	overlay := chart.NewOverlay(nil, nil, 300, 1800, 20)

	deps := pipeline.Deps{
		Client:    client,
		Cooldown:  cooldown,
		Analytics: db,
		Trader:    tr,
		Vision:    overlay,
		Routes:    nil, // meta-aggregator route client is an out-of-scope collaborator
	}

	cashBook := orchestrator.NewCashBook(decimal.NewFromFloat(cfg.StartingCash))
	scanner := orchestrator.NewScanner(cfg, deps, db, cashBook)
	priceLoop := orchestrator.NewPriceLoop(cfg, db, client, db, db, db, scheduler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	go scheduler.Run(ctx)
	scanner.Start(ctx)
	priceLoop.Start(ctx)
	if push != nil {
		go push.StartWorker(ctx)
	}
	// The lending sentinel only comes alive once an Aave V3 deployment is
	// configured; without a pool contract address it stays the dormant
	// contract the vision/route collaborators above also degrade to.
	if evmSignerConcrete != nil && cfg.AavePoolAddress != "" {
		pool, err := sentinel.NewAavePool(evmSignerConcrete.Client(), cfg.AavePoolAddress, evmSignerConcrete.Address())
		if err != nil {
			log.Printf("aave pool reader disabled: %v", err)
		} else {
			var rescue sentinel.RescueExecutor
			if cfg.AaveUSDCAddress != "" {
				r, err := sentinel.NewAaveRescue(evmSignerConcrete, cfg.AavePoolAddress, cfg.AaveUSDCAddress)
				if err != nil {
					log.Printf("aave rescue executor disabled: %v", err)
				} else {
					rescue = r
				}
			}
			lendingSentinel := sentinel.New(cfg, pool, rescue, notifier, push)
			go lendingSentinel.Run(ctx)
		}
	}

	go notifier.PollCommands(func() string {
		return scheduler.Snapshot(ctx)
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.HandleWebSocket)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"degraded"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	srv := &http.Server{Addr: cfg.APIHost + ":" + strconv.Itoa(cfg.APIPort), Handler: mux}
	go func() {
		log.Printf("http server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}

