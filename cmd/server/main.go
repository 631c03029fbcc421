// main.go
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"golang.org/x/sync/errgroup"

	"github.com/ZanzyTHEbar/agentgraph"
	"github.com/ZanzyTHEbar/agentgraph/internal/agents"
	"github.com/ZanzyTHEbar/agentgraph/internal/cache"
	"github.com/ZanzyTHEbar/agentgraph/internal/config"
	"github.com/ZanzyTHEbar/agentgraph/internal/gateway"
	"github.com/ZanzyTHEbar/agentgraph/internal/httpapi"
	"github.com/ZanzyTHEbar/agentgraph/internal/tools"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Ensure GEMINI_API_KEY environment variable is set
	if cfg.Gateway.APIKey == "" {
		log.Fatal("GEMINI_API_KEY environment variable not set.")
	}
	if cfg.Search.APIKey == "" {
		log.Fatal("TAVILY_API_KEY environment variable not set.")
	}

	// Initialize Genkit with the Google AI plugin
	pluginLoader, err := genkit.Init(ctx,
		genkit.WithPlugins(&googlegenai.GoogleAI{}),
		genkit.WithDefaultModel(cfg.Gateway.Model),
	)
	if err != nil {
		log.Fatal("Genkit initialization failed:", err)
	}
	defer pluginLoader.Shutdown(ctx)

	// Create dependencies
	modelGateway := gateway.NewGenkitGateway()
	searchTool := tools.NewTavilySearch(cfg.Search.APIKey)
	classificationCache := cache.NewInMemoryCache(cfg.Cache.TTL.Std())

	runtime, err := agentgraph.New(
		agentgraph.WithConfig(cfg.Runtime()),
		agentgraph.WithOrchestrator(agents.NewOrchestrator(modelGateway, classificationCache)),
		agentgraph.WithDataProcessor(agents.NewDataProcessor(modelGateway)),
		agentgraph.WithDecisionMaker(agents.NewDecisionMaker(modelGateway, searchTool, cfg.Runtime())),
		agentgraph.WithCommunicator(agents.NewCommunicator(modelGateway)),
	)
	if err != nil {
		log.Fatal("Runtime initialization failed:", err)
	}
	defer runtime.Close()

	api := httpapi.NewServer(runtime)
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
	}

	signalCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(signalCtx)
	g.Go(func() error {
		log.Printf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		log.Printf("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("Server error:", err)
	}
	log.Printf("Server stopped")

	// Give the event bus a moment to drain before exit.
	time.Sleep(100 * time.Millisecond)
}
