package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tkaracan/caliper/internal/analyzer"
	"github.com/tkaracan/caliper/internal/config"
	"github.com/tkaracan/caliper/internal/extract"
	"github.com/tkaracan/caliper/internal/extract/edgelist"
	"github.com/tkaracan/caliper/internal/graph"
	"github.com/tkaracan/caliper/internal/graphstore"
	neo4jstore "github.com/tkaracan/caliper/internal/graphstore/neo4j"
	"github.com/tkaracan/caliper/internal/observability"
	"github.com/tkaracan/caliper/internal/predict"
	"github.com/tkaracan/caliper/internal/sdp"
	"github.com/tkaracan/caliper/internal/server"
	"github.com/tkaracan/caliper/internal/snapshot"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "caliper",
		Short: "Dependency coupling analyzer for module graphs",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path")

	rootCmd.AddCommand(
		newAnalyzeCmd(&configPath),
		newSnapshotCmd(&configPath),
		newPredictCmd(&configPath),
		newExportCmd(),
		newServeCmd(&configPath),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads the config file when given, defaults otherwise.
func loadConfig(path string) *config.Config {
	if path == "" {
		return config.Default()
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config load failed (%v), using defaults\n", err)
		return config.Default()
	}
	return cfg
}

func newRegistry() *extract.Registry {
	registry := extract.NewRegistry()
	registry.Register(edgelist.New())
	return registry
}

func collectInput(ctx context.Context, registry *extract.Registry, extractor string, inputs []string) (extract.Fragment, error) {
	e, err := registry.Get(extractor)
	if err != nil {
		return extract.Fragment{}, err
	}
	sources := make([]extract.Source, len(inputs))
	for i, path := range inputs {
		sources[i] = extract.Source{Name: path, Path: path}
	}
	return extract.Collect(ctx, e, sources)
}

func newAnalyzeCmd(configPath *string) *cobra.Command {
	var (
		inputs     []string
		extractor  string
		project    string
		threshold  float64
		jsonOutput bool
		save       bool
		store      bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the coupling analysis over one or more edge-list files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(*configPath)
			if project == "" {
				project = cfg.Analysis.Project
			}
			if threshold == 0 {
				threshold = cfg.Analysis.SDPThreshold
			}

			ctx := cmd.Context()
			tp, err := observability.InitTracing(ctx, &observability.TracingConfig{
				ServiceName:  "caliper",
				OTLPEndpoint: cfg.Tracing.Endpoint,
				SampleRate:   cfg.Tracing.SampleRate,
			})
			if err != nil {
				return fmt.Errorf("init tracing: %w", err)
			}
			defer tp.Shutdown(context.Background())

			frag, err := collectInput(ctx, newRegistry(), extractor, inputs)
			if err != nil {
				return err
			}

			input := analyzer.Input{Edges: frag.Edges, TypeCounts: frag.TypeCounts}
			result, err := analyzer.Run(ctx, input)
			if err != nil {
				return err
			}
			if threshold > 0 {
				result.Violations = sdp.AboveThreshold(result.Violations, threshold)
			}

			if jsonOutput {
				data, err := result.JSON()
				if err != nil {
					return err
				}
				fmt.Println(string(data))
			} else {
				fmt.Print(result.Summary())
			}

			if save {
				id, err := saveSnapshot(cfg, project, input, result)
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "Snapshot saved: %s\n", id)
			}

			if store {
				repo, err := openGraphStore(ctx, cfg)
				if err != nil {
					return err
				}
				defer repo.Close(ctx)
				if err := repo.StoreRun(ctx, project, result.Graph, result.Metrics); err != nil {
					return fmt.Errorf("store graph: %w", err)
				}
				fmt.Fprintf(os.Stderr, "Graph stored for project %s\n", project)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&inputs, "input", nil, "Edge-list file (repeatable)")
	cmd.Flags().StringVar(&extractor, "extractor", "edgelist", "Extractor plugin name")
	cmd.Flags().StringVar(&project, "project", "", "Project name for snapshots and the graph store")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Minimum deltaI for reported violations")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the full result as JSON")
	cmd.Flags().BoolVar(&save, "save", false, "Save the run as a snapshot")
	cmd.Flags().BoolVar(&store, "store", false, "Persist the graph to the graph database")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func saveSnapshot(cfg *config.Config, project string, input analyzer.Input, result *analyzer.Result) (string, error) {
	store, err := snapshot.NewStore(cfg.Snapshots.Dir)
	if err != nil {
		return "", fmt.Errorf("open snapshot store: %w", err)
	}
	snap, err := snapshot.NewSnapshot(project, input, result)
	if err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}
	if err := store.Save(snap, result); err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}
	return snap.ID, nil
}

func openGraphStore(ctx context.Context, cfg *config.Config) (graphstore.Repository, error) {
	if cfg.Graph.URI == "" {
		return nil, fmt.Errorf("graph store not configured (set graph.uri)")
	}
	return neo4jstore.NewNeo4j(ctx, cfg.Graph.URI, cfg.Graph.Username, cfg.Graph.Password)
}

func newSnapshotCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect and manage saved analysis snapshots",
	}

	openStore := func() (*snapshot.Store, error) {
		cfg := loadConfig(*configPath)
		return snapshot.NewStore(cfg.Snapshots.Dir)
	}

	// Accepts an ID first, then falls back to tag lookup.
	resolve := func(store *snapshot.Store, ref string) (*snapshot.Snapshot, error) {
		if snap, err := store.Load(ref); err == nil {
			return snap, nil
		}
		return store.FindByTag(ref)
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			summaries := store.List()
			if len(summaries) == 0 {
				fmt.Println("No snapshots.")
				return nil
			}
			fmt.Printf("%-18s %-12s %-20s %8s %7s %11s  %s\n",
				"ID", "PROJECT", "CREATED", "MODULES", "CYCLES", "VIOLATIONS", "TAG")
			for _, s := range summaries {
				fmt.Printf("%-18s %-12s %-20s %8d %7d %11d  %s\n",
					s.ID, s.Project, s.CreatedAt.Format(time.RFC3339),
					s.ModuleCount, s.CycleCount, s.ViolationCount, s.Tag)
			}
			return nil
		},
	}

	var diffJSON bool
	diffCmd := &cobra.Command{
		Use:   "diff <old> <new>",
		Short: "Diff two snapshots by ID or tag",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			oldSnap, err := resolve(store, args[0])
			if err != nil {
				return err
			}
			newSnap, err := resolve(store, args[1])
			if err != nil {
				return err
			}
			d, err := snapshot.Diff(oldSnap, newSnap, store)
			if err != nil {
				return err
			}
			if diffJSON {
				data, err := json.MarshalIndent(d, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
			} else {
				fmt.Print(d.Format())
			}
			return nil
		},
	}
	diffCmd.Flags().BoolVar(&diffJSON, "json", false, "Output the diff as JSON")

	tagCmd := &cobra.Command{
		Use:   "tag <id> <tag>",
		Short: "Assign a tag to a snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			return store.Tag(args[0], args[1])
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			return store.Delete(args[0])
		},
	}

	cmd.AddCommand(listCmd, diffCmd, tagCmd, deleteCmd)
	return cmd
}

func newPredictCmd(configPath *string) *cobra.Command {
	var (
		inputs          []string
		predictionsPath string
		tolerance       float64
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Compare predicted metrics against computed ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(*configPath)
			if tolerance == 0 {
				tolerance = cfg.Analysis.PredictTolerance
			}

			data, err := os.ReadFile(predictionsPath)
			if err != nil {
				return fmt.Errorf("read predictions: %w", err)
			}
			var predictions []predict.Prediction
			if err := json.Unmarshal(data, &predictions); err != nil {
				return fmt.Errorf("parse predictions: %w", err)
			}

			ctx := cmd.Context()
			frag, err := collectInput(ctx, newRegistry(), "edgelist", inputs)
			if err != nil {
				return err
			}
			result, err := analyzer.Run(ctx, analyzer.Input{Edges: frag.Edges, TypeCounts: frag.TypeCounts})
			if err != nil {
				return err
			}

			comparison := predict.Compare(predictions, result.Metrics, tolerance)
			for _, d := range comparison.Diffs {
				mark := "MISS"
				if d.Match {
					mark = "OK  "
				}
				fmt.Printf("  [%s] %s.%s: predicted %s, actual %s\n",
					mark, d.Module, d.Field, d.Predicted, d.Actual)
			}
			fmt.Printf("\n%d/%d predictions matched\n", comparison.Matched, comparison.Total)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&inputs, "input", nil, "Edge-list file (repeatable)")
	cmd.Flags().StringVar(&predictionsPath, "predictions", "", "JSON file of predicted metrics")
	cmd.Flags().Float64Var(&tolerance, "tolerance", 0, "Allowed numeric miss for a match")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("predictions")
	return cmd
}

func newExportCmd() *cobra.Command {
	var (
		inputs []string
		format string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the dependency graph as DOT or JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			frag, err := collectInput(ctx, newRegistry(), "edgelist", inputs)
			if err != nil {
				return err
			}
			g, err := graph.Build(frag.Edges, frag.TypeCounts)
			if err != nil {
				return err
			}

			var data []byte
			switch format {
			case "dot":
				data = []byte(graph.ExportDOT(g))
			case "json":
				data, err = graph.ExportJSON(g)
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown format %q (want dot or json)", format)
			}

			if out == "" {
				fmt.Print(string(data))
				return nil
			}
			return os.WriteFile(out, data, 0o644)
		},
	}

	cmd.Flags().StringSliceVar(&inputs, "input", nil, "Edge-list file (repeatable)")
	cmd.Flags().StringVar(&format, "format", "dot", "Output format: dot or json")
	cmd.Flags().StringVar(&out, "out", "", "Output file (default stdout)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newServeCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve analysis runs over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(*configPath)
			ctx := cmd.Context()

			tp, err := observability.InitTracing(ctx, &observability.TracingConfig{
				ServiceName:  "caliper",
				OTLPEndpoint: cfg.Tracing.Endpoint,
				SampleRate:   cfg.Tracing.SampleRate,
			})
			if err != nil {
				return fmt.Errorf("init tracing: %w", err)
			}

			audit, err := observability.NewAuditLogger(&observability.AuditConfig{
				Enabled:    cfg.Server.AuditLog != "",
				OutputPath: cfg.Server.AuditLog,
			})
			if err != nil {
				return fmt.Errorf("open audit log: %w", err)
			}

			store, err := snapshot.NewStore(cfg.Snapshots.Dir)
			if err != nil {
				return fmt.Errorf("open snapshot store: %w", err)
			}

			registry := observability.NewMetricsRegistry()
			analyze := server.NewAnalyzeServer(&server.AnalyzeConfig{
				Store:   store,
				Project: cfg.Analysis.Project,
				Metrics: registry.NewRunMetrics(),
				Audit:   audit,
			})

			health := server.NewHealthServer(&server.HealthConfig{Version: "0.1.0"})
			health.RegisterCheck("snapshots", server.SnapshotStoreHealthChecker(cfg.Snapshots.Dir, nil))

			mux := http.NewServeMux()
			analyze.Register(mux)
			mux.Handle("/metrics", registry.Handler())
			mux.Handle("/", health.Handler())

			shutdown := server.NewShutdownHandler(nil)
			shutdown.RegisterHook("tracing", 80, tp.Shutdown)
			shutdown.RegisterHook("audit-logger", 95, func(context.Context) error { return audit.Close() })

			httpServer := &http.Server{
				Addr:         cfg.Server.Addr,
				Handler:      mux,
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 30 * time.Second,
			}
			shutdown.RegisterHook("http-server", 10, httpServer.Shutdown)
			shutdown.Start()
			health.SetReady(true)

			log.Printf("caliper serving on %s", cfg.Server.Addr)
			go func() {
				if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Printf("http server: %v", err)
					shutdown.Shutdown()
				}
			}()

			shutdown.Wait()
			return nil
		},
	}
	return cmd
}
