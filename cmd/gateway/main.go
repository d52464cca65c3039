package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/nathanyu/stock-exchange/internal/domain"
	"github.com/nathanyu/stock-exchange/internal/eventloop"
	"github.com/nathanyu/stock-exchange/internal/feed/redisfeed"
	"github.com/nathanyu/stock-exchange/internal/feed/wsfeed"
	"github.com/nathanyu/stock-exchange/internal/handler"
	"github.com/nathanyu/stock-exchange/internal/marketdata"
	"github.com/nathanyu/stock-exchange/internal/matching"
	"github.com/nathanyu/stock-exchange/internal/middleware"
	"github.com/nathanyu/stock-exchange/internal/ordermanager"
	"github.com/nathanyu/stock-exchange/internal/publisher"
)

func main() {
	symbols := flag.String("symbols", "AAPL,GOOG,MSFT", "comma-separated list of symbols to register")
	queueCapacity := flag.Int("queue-capacity", 8192, "capacity of the producer-to-matching ring buffer (rounded up to a power of two)")
	synthetic := flag.Int("synthetic-orders", 0, "number of synthetic orders to generate at startup, for local load testing (0 disables)")
	flag.Parse()

	log.Println("Starting stock exchange gateway...")

	// --- Core components ---

	pub := publisher.New()
	engine := matching.NewEngine(pub)
	for _, s := range strings.Split(*symbols, ",") {
		if s = strings.TrimSpace(s); s != "" {
			engine.AddSymbol(domain.SymbolId(s))
		}
	}

	pipeline := eventloop.NewPipeline(engine, *queueCapacity)
	manager := ordermanager.NewManager(pipeline)

	agg := marketdata.NewAggregator(time.Minute)
	agg.StartRotation()

	feed := wsfeed.New()

	// Publisher.OnTrade accepts a single handler, so fan trades out to
	// both the candle aggregator and the websocket feed from one
	// registration.
	pub.OnTrade(func(t domain.Trade) {
		agg.OnTrade(t)
		feed.OnTrade(t)
	})
	pub.OnTopOfBook(feed.OnTopOfBook)

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		sink := redisfeed.New(client)
		pub.OnDepthSnapshot(sink.OnDepthSnapshot)
		log.Printf("[gateway] depth snapshots mirrored to redis at %s", addr)
	}

	if *synthetic > 0 {
		go seedSyntheticOrders(manager, strings.Split(*symbols, ","), *synthetic)
	}

	// --- HTTP Server ---
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	r := gin.Default()
	r.Use(middleware.PrometheusMiddleware())

	h := handler.NewHandler(manager, engine, agg, pipeline)
	h.RegisterRoutes(r)
	r.GET("/v1/stream", func(c *gin.Context) { feed.ServeWS(c.Writer, c.Request) })

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	// --- Metrics Server ---
	metricsPort := os.Getenv("METRICS_PORT")
	if metricsPort == "" {
		metricsPort = "9090"
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:    ":" + metricsPort,
		Handler: metricsMux,
	}

	go func() {
		log.Printf("Metrics server listening on :%s", metricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("metrics server error: %v", err)
		}
	}()

	go func() {
		log.Printf("HTTP server listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Stop the HTTP server, which feeds the pipeline, before running the
	// pipeline's drain protocol.
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	pipeline.Shutdown()
	agg.Stop()

	if err := metricsSrv.Shutdown(ctx); err != nil {
		log.Printf("Metrics server shutdown error: %v", err)
	}

	log.Println("Stock exchange gateway stopped.")
}

// seedSyntheticOrders submits n random limit orders spread across
// symbols through the normal intake bridge, purely so a freshly
// started gateway has something in its books to query locally.
func seedSyntheticOrders(manager *ordermanager.Manager, symbols []string, n int) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < n; i++ {
		symbol := domain.SymbolId(strings.TrimSpace(symbols[r.Intn(len(symbols))]))
		side := domain.SideBuy
		if r.Intn(2) == 1 {
			side = domain.SideSell
		}
		price := domain.Price(9000 + r.Intn(2000))
		qty := domain.Quantity(1 + r.Intn(100))

		if _, err := manager.SubmitOrder(domain.TraderId(1), symbol, side, domain.OrderTypeLimit, domain.TIFDay, price, qty); err != nil {
			log.Printf("[gateway] synthetic order rejected: %v", err)
		}
	}
	log.Printf("[gateway] seeded %d synthetic orders", n)
}
