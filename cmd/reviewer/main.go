package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pavelanni/reviewer/internal/archive"
	"github.com/pavelanni/reviewer/internal/classconfig"
	"github.com/pavelanni/reviewer/internal/handler"
	appI18n "github.com/pavelanni/reviewer/internal/i18n"
	"github.com/pavelanni/reviewer/internal/llm"
	"github.com/pavelanni/reviewer/internal/metrics"
	"github.com/pavelanni/reviewer/internal/model"
	"github.com/pavelanni/reviewer/internal/store"
)

func main() {
	_ = godotenv.Load()
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "reviewer",
		Short: "AI exam review powered by LLMs",
	}

	serve := serveCmd()
	root.AddCommand(serve, analyzeCmd(), classesCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `reviewer --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP review server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", store.MemoryPath, "SQLite database path (sessions are lost on restart with :memory:)")
	f.StringP("lang", "l", "en", "UI language (en, hi)")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /review)")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.Int("max-upload-mb", 20, "Maximum size of one uploaded document in MB")
	f.String("metadata-dir", "", "Directory with class_<N>_metadata.json overrides")
	f.Duration("session-ttl", 24*time.Hour, "Idle time after which a session is removed")
	f.Duration("sweep-interval", 10*time.Minute, "How often expired sessions are removed")
	f.String("archive", "none", "Archive sink for uploaded documents (none, local, github, minio)")
	f.String("archive-dir", "archive", "Directory for the local archive sink")
	f.String("github-token", "", "GitHub token for the github archive sink (or GITHUB_TOKEN)")
	f.String("github-repo", "", "Repository owner/name for the github archive sink (or GITHUB_REPO)")
	f.String("github-branch", "", "Branch for the github archive sink (default branch when empty)")
	f.String("minio-endpoint", "", "S3-compatible endpoint for the minio archive sink")
	f.String("minio-access-key", "", "Access key for the minio archive sink")
	f.String("minio-secret-key", "", "Secret key for the minio archive sink")
	f.String("minio-bucket", "", "Bucket for the minio archive sink")
	f.Bool("minio-use-ssl", true, "Use TLS for the minio archive sink")
	f.String("minio-region", "", "Region for the minio archive sink")
	f.AddFlagSet(llmFlags())
	f.AddFlagSet(logFlags())
	return cmd
}

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze local exam documents and print the JSON result",
		RunE:  runAnalyze,
	}
	f := cmd.Flags()
	f.String("answer-sheet", "", "Student answer sheet file (required)")
	f.String("question-paper", "", "Question paper file (required)")
	f.String("answer-key", "", "Answer key file")
	f.String("syllabus", "", "Syllabus file")
	f.String("class", classconfig.Classes[0], "Class level (5-12)")
	f.String("subject", "", "Subject (class default when empty)")
	f.String("board", "", "Board (class default when empty)")
	f.String("exam-type", "", "Exam type (class default when empty)")
	f.String("strictness", "", "Checking strictness (class default when empty)")
	f.String("answer-depth", "", "Expected answer depth (class default when empty)")
	f.String("feedback-tone", "", "Feedback tone (class default when empty)")
	f.String("explanation-level", "", "Explanation level (class default when empty)")
	f.StringSlice("focus-areas", nil, "Focus areas (repeatable)")
	f.String("metadata-dir", "", "Directory with class_<N>_metadata.json overrides")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.AddFlagSet(llmFlags())
	f.AddFlagSet(logFlags())

	_ = cmd.MarkFlagRequired("answer-sheet")
	_ = cmd.MarkFlagRequired("question-paper")

	return cmd
}

func classesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classes",
		Short: "Print the effective class configuration as JSON",
		RunE:  runClasses,
	}
	f := cmd.Flags()
	f.String("class", "", "Only this class level (all when empty)")
	f.String("metadata-dir", "", "Directory with class_<N>_metadata.json overrides")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.AddFlagSet(logFlags())
	return cmd
}

func llmFlags() *pflag.FlagSet {
	f := pflag.NewFlagSet("llm", pflag.ContinueOnError)
	f.String("llm-provider", "gemini", "Model provider (gemini, openai)")
	f.String("llm-url", "", "Base URL for the openai provider")
	f.String("llm-key", "", "API key for the model provider (or GEMINI_API_KEY)")
	f.String("llm-model", "", "Model name (provider default when empty)")
	f.Duration("llm-timeout", 5*time.Minute, "Upper bound for one model call")
	f.Bool("stream", true, "Use the streaming generation API")
	return f
}

func logFlags() *pflag.FlagSet {
	f := pflag.NewFlagSet("log", pflag.ContinueOnError)
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return f
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("REVIEWER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// Well-known variable names are accepted next to the prefixed ones.
	_ = v.BindEnv("llm-key", "REVIEWER_LLM_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("github-token", "REVIEWER_GITHUB_TOKEN", "GITHUB_TOKEN")
	_ = v.BindEnv("github-repo", "REVIEWER_GITHUB_REPO", "GITHUB_REPO")

	v.SetConfigName("reviewer")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/reviewer")
	v.AddConfigPath("/etc/reviewer")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// newLLMClient builds the model client. A missing credential returns
// llm.ErrConfigMissing.
func newLLMClient(ctx context.Context, v *viper.Viper) (*llm.Client, error) {
	backend, err := llm.NewBackend(ctx, llm.ProviderConfig{
		Provider: strings.ToLower(strings.TrimSpace(v.GetString("llm-provider"))),
		BaseURL:  v.GetString("llm-url"),
		APIKey:   v.GetString("llm-key"),
		Model:    v.GetString("llm-model"),
	})
	if err != nil {
		if errors.Is(err, llm.ErrConfigMissing) {
			return nil, fmt.Errorf("%w: set --llm-key, REVIEWER_LLM_KEY or GEMINI_API_KEY", err)
		}
		return nil, fmt.Errorf("create LLM backend: %w", err)
	}
	return llm.New(backend, llm.WithStreaming(v.GetBool("stream"))), nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize i18n.
	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	metrics.Register()

	llmClient, err := newLLMClient(ctx, v)
	if err != nil {
		return err
	}
	if err := llmClient.Ping(ctx); err != nil {
		slog.Warn("LLM health check failed", "provider", llmClient.Provider(), "error", err)
	} else {
		slog.Info("LLM endpoint OK", "provider", llmClient.Provider(), "model", llmClient.Model())
	}

	// Open database.
	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	sink, err := archive.New(archive.Config{
		Kind:         strings.ToLower(v.GetString("archive")),
		LocalDir:     v.GetString("archive-dir"),
		GitHubToken:  v.GetString("github-token"),
		GitHubRepo:   v.GetString("github-repo"),
		GitHubBranch: v.GetString("github-branch"),
		Minio: archive.MinioConfig{
			Endpoint:  v.GetString("minio-endpoint"),
			AccessKey: v.GetString("minio-access-key"),
			SecretKey: v.GetString("minio-secret-key"),
			Bucket:    v.GetString("minio-bucket"),
			UseSSL:    v.GetBool("minio-use-ssl"),
			Region:    v.GetString("minio-region"),
		},
	})
	if err != nil {
		return fmt.Errorf("create archive sink: %w", err)
	}

	// Normalize base path.
	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	cfg := model.Config{
		BasePath:      basePath,
		SecureCookies: v.GetBool("secure-cookies"),
		MaxUploadMB:   v.GetInt("max-upload-mb"),
		LLMTimeout:    v.GetDuration("llm-timeout"),
		Stream:        v.GetBool("stream"),
		SessionTTL:    v.GetDuration("session-ttl"),
	}

	h, err := handler.New(db, llmClient, classconfig.NewLoader(v.GetString("metadata-dir")), sink, cfg)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))

	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
		r.Get(basePath, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, basePath+"/", http.StatusMovedPermanently)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}

	if interval := v.GetDuration("sweep-interval"); interval > 0 {
		go h.Sweep(ctx, interval)
	}

	addr := v.GetString("addr")
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			"addr", addr,
			"provider", llmClient.Provider(),
			"model", llmClient.Model(),
			"stream", cfg.Stream,
			"lang", lang,
			"base_path", basePath,
			"archive", v.GetString("archive"),
		)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func runClasses(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	loader := classconfig.NewLoader(v.GetString("metadata-dir"))
	classes := classconfig.Classes
	if c := v.GetString("class"); c != "" {
		if !classconfig.IsValidClass(c) {
			return fmt.Errorf("unknown class %q (want one of %s)", c, strings.Join(classconfig.Classes, ", "))
		}
		classes = []string{c}
	}

	type entry struct {
		*classconfig.ClassConfig
		Source classconfig.Source `json:"source"`
	}
	var out []entry
	for _, c := range classes {
		cfg := loader.Load(c)
		out = append(out, entry{ClassConfig: cfg, Source: cfg.Source})
	}
	return writeJSON(v.GetString("output"), out)
}

// writeJSON writes v indented to path, or to stdout for "" and "-".
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	var w io.Writer
	if path == "" || path == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)
	return nil
}
