// Package main is the Kotae CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperdocs/kotae/internal/answer"
	"github.com/hyperdocs/kotae/internal/config"
	"github.com/hyperdocs/kotae/internal/convstore"
	"github.com/hyperdocs/kotae/internal/ingest"
	"github.com/hyperdocs/kotae/internal/llm"
	"github.com/hyperdocs/kotae/internal/models"
	"github.com/hyperdocs/kotae/internal/server"
	"github.com/hyperdocs/kotae/internal/vectorstore"
	"github.com/hyperdocs/kotae/internal/watcher"
	"github.com/hyperdocs/kotae/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kotae/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ask":
		runAsk()
	case "orgs":
		runOrgs()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("kotae version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (document loading, query analysis, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	loaded, err := components.Library.LoadAll(ctx)
	if err != nil {
		logger.Fatal("Failed to load organizations", zap.Error(err))
	}
	logger.Info("organizations loaded", zap.Int("count", loaded))

	var watchCancel context.CancelFunc
	if cfg.Ingest.WatchOrDefault() {
		lib := components.Library
		watchOpts := []watcher.Option{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watchSvc := watcher.NewWatcher(
			cfg.Storage.OrganizationsDir,
			func(orgID string) {
				if err := lib.LoadOrg(context.Background(), orgID); err != nil {
					logger.Warn("watch reload failed", zap.String("org_id", orgID), zap.Error(err))
				}
			},
			func(orgID string) {
				lib.RemoveOrg(orgID)
				logger.Info("organization removed", zap.String("org_id", orgID))
			},
			watchOpts...,
		)
		var watchCtx context.Context
		watchCtx, watchCancel = context.WithCancel(context.Background())
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	srv := server.NewServer(
		components.Orchestrator,
		components.Library,
		components.Convs,
		&cfg.Server,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if cfg.Storage.VectorIndexPath != "" && components.Vectors != nil {
		if err := components.Vectors.Save(cfg.Storage.VectorIndexPath); err != nil {
			logger.Warn("vector index save failed",
				zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(err))
		}
	}
	if watchCancel != nil {
		watchCancel()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
}

// buildQuery joins all positional args with spaces so multi-word questions
// work the same with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = run the pipeline in-process)")
	orgID := fs.String("org", "", "organization ID (required)")
	userID := fs.String("user", "cli", "user ID for conversation history")
	conversationID := fs.String("conversation", "", "conversation ID to continue")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if *orgID == "" || fs.NArg() < 1 {
		fmt.Println("Usage: kotae ask --org <org-id> [flags] <question>")
		os.Exit(1)
	}
	query := buildQuery(fs.Args())
	if query == "" {
		fmt.Println("Usage: kotae ask --org <org-id> [flags] <question>")
		os.Exit(1)
	}

	var ans *models.Answer
	if *serverURL != "" {
		res, err := askViaHTTP(*serverURL, *orgID, query, *userID, *conversationID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
		ans = res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()

		components, err := initializeComponents(cfg, logger, cfg.Debug)
		if err != nil {
			logger.Fatal("Failed to initialize", zap.Error(err))
		}
		defer components.Close()

		ctx := context.Background()
		if err := components.Library.LoadOrg(ctx, *orgID); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load organization %q: %v\n", *orgID, err)
			os.Exit(1)
		}
		org, ok := components.Library.Snapshot(*orgID)
		if !ok {
			fmt.Fprintf(os.Stderr, "Organization not found: %s\n", *orgID)
			os.Exit(1)
		}
		ans = components.Orchestrator.Answer(ctx, query, org, *userID, *conversationID)
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(ans); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		printAnswer(ans)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func printAnswer(ans *models.Answer) {
	fmt.Println(ans.Response)
	fmt.Println()
	fmt.Printf("confidence:      %.2f (%s)\n", ans.Confidence.Overall, ans.Confidence.Level)
	fmt.Printf("query_type:      %s\n", ans.QueryType)
	if ans.ConversationID != "" {
		fmt.Printf("conversation_id: %s\n", ans.ConversationID)
	}
	if len(ans.Sources) > 0 {
		fmt.Println("\n# sources")
		for _, src := range ans.Sources {
			fmt.Printf("  %s (chunk %d, relevance %.2f)\n", src.DocumentName, src.ChunkIndex, src.Relevance)
		}
	}
	if len(ans.FollowUpQuestions) > 0 {
		fmt.Println("\n# follow-up questions")
		for _, q := range ans.FollowUpQuestions {
			fmt.Printf("  %s\n", q)
		}
	}
	if ans.Escalation != nil && ans.Escalation.ShouldEscalate {
		fmt.Printf("\n# escalation: %s urgency, route to %s\n",
			ans.Escalation.Urgency, ans.Escalation.Department)
	}
}

func askViaHTTP(serverURL, orgID, query, userID, conversationID string) (*models.Answer, error) {
	payload := map[string]string{
		"query":   query,
		"user_id": userID,
	}
	if conversationID != "" {
		payload["conversation_id"] = conversationID
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/api/v1/organizations/%s/query", serverURL, orgID)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var ans models.Answer
	if err := json.NewDecoder(resp.Body).Decode(&ans); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &ans, nil
}

func runOrgs() {
	fs := flag.NewFlagSet("orgs", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/v1/organizations")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "List failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var out struct {
		Organizations []struct {
			ID        string `json:"id"`
			Name      string `json:"name"`
			Documents int    `json:"documents"`
		} `json:"organizations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}
	for _, org := range out.Organizations {
		fmt.Printf("%s\t%s\t%d document(s)\n", org.ID, org.Name, org.Documents)
	}
}

// statusResponse is the shape of GET /api/v1/status.
type statusResponse struct {
	Organizations map[string]struct {
		Name      string `json:"name"`
		Documents int    `json:"documents"`
		Chunks    int    `json:"chunks"`
	} `json:"organizations"`
	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/v1/status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Status failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("documents: %d\n", status.Documents)
		fmt.Printf("chunks:    %d\n", status.Chunks)
		if len(status.Organizations) > 0 {
			fmt.Println("\n# organizations")
			for id, org := range status.Organizations {
				fmt.Printf("  %s (%s): %d document(s), %d chunk(s)\n", id, org.Name, org.Documents, org.Chunks)
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	LLM          *llm.Client
	Vectors      *vectorstore.MemoryStore
	Convs        convstore.Store
	Library      *ingest.Library
	Orchestrator *answer.Orchestrator
}

func (c *Components) Close() {
	if c.Convs != nil {
		_ = c.Convs.Close()
	}
	if c.Vectors != nil {
		_ = c.Vectors.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	// .env is optional; the API key may already be in the environment.
	_ = godotenv.Load()
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		logger.Warn("OPENAI_API_KEY is not set; LLM requests will fail and answers fall back to keyword retrieval")
	}

	client := llm.NewClient(
		cfg.LLM.BaseURL,
		apiKey,
		cfg.LLM.ChatModel,
		cfg.LLM.EmbeddingModel,
		llm.WithEmbeddingCache(cfg.LLM.EmbeddingCacheSize),
		llm.WithMaxRetries(cfg.LLM.MaxRetries),
	)

	vectors, err := vectorstore.NewMemoryStore(cfg.LLM.EmbeddingDimensions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	if cfg.Storage.VectorIndexPath != "" {
		if loadErr := vectors.Load(cfg.Storage.VectorIndexPath); loadErr != nil && !errors.Is(loadErr, os.ErrNotExist) {
			logger.Warn("vector index load skipped",
				zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(loadErr))
		}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DatabasePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	convs, err := convstore.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize conversation store: %w", err)
	}

	if err := os.MkdirAll(cfg.Storage.OrganizationsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create organizations directory: %w", err)
	}
	chunker := ingest.NewChunker(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	libOpts := []ingest.LibraryOption{}
	if debug {
		libOpts = append(libOpts, ingest.WithLogger(logger))
	}
	library := ingest.NewLibrary(cfg.Storage.OrganizationsDir, chunker, client, vectors, libOpts...)

	orchOpts := []answer.Option{
		answer.WithMaxPerDocument(cfg.Retrieval.MaxPerDocument),
		answer.WithConversationLimits(
			cfg.Conversation.MaxMessages,
			cfg.Conversation.MaxTokens,
			cfg.Conversation.SummaryTrigger,
		),
	}
	if debug {
		orchOpts = append(orchOpts, answer.WithLogger(logger))
	}
	orchestrator := answer.NewOrchestrator(client, vectors, convs, orchOpts...)

	return &Components{
		LLM:          client,
		Vectors:      vectors,
		Convs:        convs,
		Library:      library,
		Orchestrator: orchestrator,
	}, nil
}

func printUsage() {
	fmt.Println(`kotae - Document question answering over organization libraries

Usage:
  kotae server [flags]                     Start the HTTP server
  kotae ask --org <id> [flags] <question>  Ask a question against an organization's documents
  kotae orgs [flags]                       List loaded organizations
  kotae status [flags]                     Show document and chunk counts
  kotae version                            Show version
  kotae help                               Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kotae/config.yaml)
  --debug            Enable debug logging (document loading, query analysis, etc.)

Ask Flags:
  --org string           Organization ID (required)
  --user string          User ID for conversation history (default: cli)
  --conversation string  Conversation ID to continue a previous exchange
  --server string        Server URL (default: http://localhost:8080). Use empty (--server "") to run the pipeline in-process.
  --config string        Config file path (for in-process mode)
  --output string        Output format: text or json (default: text)

Examples:
  kotae server
  kotae ask --org acme "What is the refund policy?"
  kotae ask --org acme --output json what is covered by the warranty
  kotae ask --org acme --conversation 1b9d6bcd "What about digital goods?"
  kotae orgs
  kotae status`)
}
