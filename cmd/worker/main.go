package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/tkaracan/caliper/internal/config"
	"github.com/tkaracan/caliper/internal/extract"
	"github.com/tkaracan/caliper/internal/extract/edgelist"
	neo4jstore "github.com/tkaracan/caliper/internal/graphstore/neo4j"
	"github.com/tkaracan/caliper/internal/snapshot"
	temporalmod "github.com/tkaracan/caliper/internal/temporal"

	temporalclient "go.temporal.io/sdk/client"
)

func main() {
	var cfg *config.Config
	if len(os.Args) > 1 {
		loaded, err := config.Load(os.Args[1])
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	registry := extract.NewRegistry()
	registry.Register(edgelist.New())

	store, err := snapshot.NewStore(cfg.Snapshots.Dir)
	if err != nil {
		log.Fatalf("snapshot store: %v", err)
	}

	deps := &temporalmod.Dependencies{
		Registry: registry,
		Store:    store,
	}

	// The graph store is optional; workflows that request persistence fail
	// if it is not configured.
	if cfg.Graph.URI != "" {
		ctx := context.Background()
		repo, err := neo4jstore.NewNeo4j(ctx, cfg.Graph.URI, cfg.Graph.Username, cfg.Graph.Password)
		if err != nil {
			log.Fatalf("graph store: %v", err)
		}
		defer repo.Close(ctx)
		deps.Repo = repo
	}

	temporalmod.SetDependencies(deps)

	c, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w, err := temporalmod.StartWorker(c, cfg.Temporal.TaskQueue)
	if err != nil {
		log.Fatalf("worker: %v", err)
	}

	fmt.Printf("Worker started on task queue: %s\n", cfg.Temporal.TaskQueue)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	w.Stop()
	fmt.Println("Worker stopped")
}
