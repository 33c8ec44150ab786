package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	flagAddr         string
	flagSettingsPath string
	flagSystemPrompt string
	flagUserPrompt   string
	flagAnthropicKey string
	flagOpenAIKey    string
	flagDebug        bool

	flagFormat string
)

func main() {
	// Missing .env is fine; real environments set variables directly.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "postforge",
		Short: "Generate and publish Instagram posts from article URLs",
		Long: `postforge turns a spreadsheet of article URLs into ready-to-post
Instagram content: each page is rendered and summarized into a caption,
hashtags, and a generated square image, then exported or published.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&flagSettingsPath, "settings", "", "Path to settings YAML file (overrides embedded default)")
	rootCmd.PersistentFlags().StringVar(&flagSystemPrompt, "system-prompt", "", "Path to composer system prompt file")
	rootCmd.PersistentFlags().StringVar(&flagUserPrompt, "user-prompt", "", "Path to composer user prompt template file")
	rootCmd.PersistentFlags().StringVar(&flagAnthropicKey, "anthropic-key", "", "Anthropic API key (defaults to ANTHROPIC_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&flagOpenAIKey, "openai-key", "", "OpenAI API key (defaults to OPENAI_API_KEY)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (overrides settings)")

	processCmd := &cobra.Command{
		Use:   "process <spreadsheet>",
		Short: "Process a spreadsheet of URLs and print the export",
		Args:  cobra.ExactArgs(1),
		RunE:  runProcess,
	}
	processCmd.Flags().StringVar(&flagFormat, "format", "csv", "Export format: csv, json, html, or markdown")

	rootCmd.AddCommand(serveCmd, processCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func configOverrides() *ConfigOverrides {
	overrides := &ConfigOverrides{}
	if flagSettingsPath != "" {
		overrides.SettingsPath = &flagSettingsPath
	}
	if flagSystemPrompt != "" {
		overrides.ComposerPromptPath = &flagSystemPrompt
	}
	if flagUserPrompt != "" {
		overrides.ComposerUserPromptPath = &flagUserPrompt
	}
	return overrides
}

func apiKeys() (anthropicKey, openaiKey string, err error) {
	anthropicKey = flagAnthropicKey
	if anthropicKey == "" {
		anthropicKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if anthropicKey == "" {
		return "", "", fmt.Errorf("Anthropic API key required: set ANTHROPIC_API_KEY or use --anthropic-key")
	}

	openaiKey = flagOpenAIKey
	if openaiKey == "" {
		openaiKey = os.Getenv("OPENAI_API_KEY")
	}
	if openaiKey == "" {
		return "", "", fmt.Errorf("OpenAI API key required: set OPENAI_API_KEY or use --openai-key")
	}
	return anthropicKey, openaiKey, nil
}

func setupLogging() {
	if flagDebug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}
}

// buildPipeline wires the batch pipeline from configuration. The returned
// cleanup tears down the shared browser process.
func buildPipeline(cfg *Config, anthropicKey, openaiKey string) (*BatchOrchestrator, func()) {
	chrome := newChromeRenderer(cfg.Settings.FetchTimeout())
	fetcher := NewPageFetcher(chrome, cfg.Settings.Pipeline.BodyExcerptLimit)
	composer := NewCaptionComposer(anthropicKey, cfg)
	materializer := NewImageMaterializer(openaiKey, cfg)
	pacer := NewFixedPacer(cfg.Settings.ItemDelay())

	orchestrator := NewBatchOrchestrator(fetcher, composer, materializer, pacer)
	return orchestrator, chrome.Close
}

// publisherFactory selects the posting backend from configuration: the
// private mobile API by default, or the Graph API for business accounts.
func publisherFactory(cfg *Config) func() Publisher {
	if cfg.Settings.Publisher.Mode == "graph" {
		token := os.Getenv("INSTAGRAM_GRAPH_TOKEN")
		accountID := cfg.Settings.Publisher.GraphAccountID
		return func() Publisher {
			return NewGraphPublisher(token, accountID)
		}
	}

	contentDir := cfg.Settings.Server.ContentDir
	sessionDir := cfg.Settings.Server.SessionDir
	return func() Publisher {
		return NewInstagramPublisher(contentDir, sessionDir)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging()

	anthropicKey, openaiKey, err := apiKeys()
	if err != nil {
		return err
	}

	cfg, err := LoadConfig(configOverrides())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	addr := cfg.Settings.Server.Addr
	if flagAddr != "" {
		addr = flagAddr
	}

	orchestrator, cleanup := buildPipeline(cfg, anthropicKey, openaiKey)
	defer cleanup()

	server := NewServer(cfg, orchestrator, NewExporter(), NewSessionRegistry(), publisherFactory(cfg))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.ListenAndServe(ctx, addr); err != nil && ctx.Err() == nil {
		return fmt.Errorf("server: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

func runProcess(cmd *cobra.Command, args []string) error {
	setupLogging()

	anthropicKey, openaiKey, err := apiKeys()
	if err != nil {
		return err
	}

	cfg, err := LoadConfig(configOverrides())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	urls, err := ExtractURLs(args[0])
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return fmt.Errorf("no URLs found in %s", args[0])
	}

	orchestrator, cleanup := buildPipeline(cfg, anthropicKey, openaiKey)
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result := orchestrator.Run(ctx, urls)
	slog.Info("batch finished",
		"total", result.TotalProcessed,
		"succeeded", result.SuccessCount,
		"failed", result.ErrorCount,
	)
	for _, pe := range result.Errors {
		slog.Warn("url failed", "url", pe.URL, "err", pe.Message)
	}

	if len(result.Posts) == 0 {
		return fmt.Errorf("no posts generated")
	}

	content, err := NewExporter().Export(result.Posts, flagFormat)
	if err != nil {
		return err
	}
	fmt.Println(content)
	return nil
}
