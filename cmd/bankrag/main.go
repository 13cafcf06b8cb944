package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/bankrag/ai/core/embedding"
	"github.com/hrygo/bankrag/ai/core/llm"
	"github.com/hrygo/bankrag/ai/core/retrieval"
	"github.com/hrygo/bankrag/ai/rag"
	"github.com/hrygo/bankrag/internal/profile"
	"github.com/hrygo/bankrag/internal/version"
	"github.com/hrygo/bankrag/knowledge"
	"github.com/hrygo/bankrag/server"
	"github.com/hrygo/bankrag/store"
	"github.com/hrygo/bankrag/store/db"
)

var rootCmd = &cobra.Command{
	Use:   "bankrag",
	Short: `A retrieval-augmented banking Q&A service. Answers customer questions from a curated knowledge base with source attribution and confidence scoring.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// Try to load .env file from current directory (ignore error if file doesn't exist)
		_ = godotenv.Load()
		return nil
	},
	Run: func(_ *cobra.Command, _ []string) {
		instanceProfile := &profile.Profile{
			Mode:    viper.GetString("mode"),
			Addr:    viper.GetString("addr"),
			Port:    viper.GetInt("port"),
			Data:    viper.GetString("data"),
			DSN:     viper.GetString("dsn"),
			Version: version.GetCurrentVersion(viper.GetString("mode")),
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			slog.Error("invalid configuration", "error", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		s, st, err := bootstrap(ctx, instanceProfile)
		if err != nil {
			slog.Error("failed to start service", "error", err)
			os.Exit(1)
		}
		defer st.Close()

		c := make(chan os.Signal, 1)
		// Trigger graceful shutdown on SIGINT or SIGTERM.
		signal.Notify(c, terminationSignals...)

		go func() {
			<-c
			s.Shutdown(ctx)
			cancel()
		}()

		printGreetings(instanceProfile)

		if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start server", "error", err)
			cancel()
		}

		<-ctx.Done()
	},
}

// bootstrap assembles the store, index, and pipeline.
func bootstrap(ctx context.Context, instanceProfile *profile.Profile) (*server.Server, *store.Store, error) {
	dbDriver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		return nil, nil, err
	}
	st := store.New(dbDriver, instanceProfile)
	if err := st.Migrate(ctx); err != nil {
		return nil, nil, err
	}

	if err := seedKnowledgeBase(ctx, st); err != nil {
		return nil, nil, err
	}

	embedder, err := embedding.NewProvider(&embedding.Config{
		BaseURL:   instanceProfile.EmbeddingBaseURL,
		APIKey:    instanceProfile.EmbeddingAPIKey,
		Model:     instanceProfile.EmbeddingModel,
		Dimension: instanceProfile.EmbeddingDimension,
		BatchSize: instanceProfile.EmbeddingBatchSize,
		Timeout:   time.Duration(instanceProfile.EmbeddingTimeout) * time.Second,
	})
	if err != nil {
		return nil, nil, err
	}

	var llmService llm.Service
	if instanceProfile.IsLLMEnabled() {
		llmService, err = llm.NewService(&llm.Config{
			Provider: instanceProfile.LLMProvider,
			Model:    instanceProfile.LLMModel,
			APIKey:   instanceProfile.LLMAPIKey,
			BaseURL:  instanceProfile.LLMBaseURL,
			Timeout:  instanceProfile.LLMTimeout,
		})
		if err != nil {
			return nil, nil, err
		}
		go llmService.Warmup(ctx)
	} else {
		slog.Warn("no LLM API key configured, answers will use the deterministic fallback path")
	}

	catalog := retrieval.NewCatalog(st, embedder)
	if err := catalog.Bootstrap(ctx); err != nil {
		return nil, nil, err
	}

	retriever := retrieval.NewRetriever(embedder, catalog)
	generator := rag.NewGenerator(llmService)
	pipeline, err := rag.NewPipeline(retriever, generator, &rag.Config{
		TopK:               instanceProfile.TopK,
		RelevanceThreshold: instanceProfile.RelevanceThreshold,
		EscalationPolicy:   instanceProfile.EscalationPolicy,
		MaxConcurrentCalls: instanceProfile.MaxConcurrentCalls,
	})
	if err != nil {
		return nil, nil, err
	}

	return server.NewServer(instanceProfile, st, catalog, pipeline), st, nil
}

// seedKnowledgeBase loads the built-in banking documents on first startup.
func seedKnowledgeBase(ctx context.Context, st *store.Store) error {
	docs, err := st.ListDocuments(ctx, nil)
	if err != nil {
		return err
	}
	if len(docs) > 0 {
		return nil
	}
	for _, doc := range knowledge.Documents() {
		if _, err := st.CreateDocument(ctx, doc); err != nil {
			return err
		}
	}
	slog.Info("seeded built-in knowledge base", "documents", len(knowledge.Documents()))
	return nil
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("port", 28090)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 28090, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("dsn", "", "database source name(aka. DSN)")

	for _, flag := range []string{"mode", "addr", "port", "data", "dsn"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("bankrag")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func printGreetings(profile *profile.Profile) {
	fmt.Printf("BankRAG %s started successfully!\n", profile.Version)
	if profile.IsDev() {
		fmt.Fprint(os.Stderr, "Development mode is enabled\n")
	}
	fmt.Printf("Data directory: %s\n", profile.Data)
	fmt.Printf("Mode: %s\n", profile.Mode)
	if len(profile.Addr) == 0 {
		fmt.Printf("Server running on port %d\n", profile.Port)
	} else {
		fmt.Printf("Server running on %s:%d\n", profile.Addr, profile.Port)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
