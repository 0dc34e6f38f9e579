package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vsxhub/vsxhub/pkg/config"
	"github.com/vsxhub/vsxhub/pkg/extension"
	"github.com/vsxhub/vsxhub/pkg/observability"
	"github.com/vsxhub/vsxhub/pkg/publish"
	"github.com/vsxhub/vsxhub/pkg/ratelimit"
	"github.com/vsxhub/vsxhub/pkg/registry"
	"github.com/vsxhub/vsxhub/pkg/storage"
	"github.com/vsxhub/vsxhub/pkg/store"

	_ "modernc.org/sqlite"
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint, split out for testing.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stderr)
		return 2
	}

	switch args[1] {
	case "publish":
		return runPublishCmd(args[2:], stdout, stderr)
	case "inspect":
		return runInspectCmd(args[2:], stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Usage: vsxhub <command> [flags]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "Commands:")
	_, _ = fmt.Fprintln(w, "  publish <file.vsix>   ingest an extension package")
	_, _ = fmt.Fprintln(w, "  inspect <file.vsix>   print the package's derived metadata")
}

func setupLogging(level string) {
	var slogLevel slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		slogLevel = slog.LevelDebug
	case "WARN":
		slogLevel = slog.LevelWarn
	case "ERROR":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(handler))
}

func runPublishCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("publish", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	profilesDir := cmd.String("profiles", "", "directory holding namespace profile YAML files")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if cmd.NArg() != 1 {
		_, _ = fmt.Fprintln(stderr, "Usage: vsxhub publish [flags] <file.vsix>")
		return 2
	}

	cfg := config.Load()
	setupLogging(cfg.LogLevel)
	ctx := context.Background()

	var telemetry *observability.Provider
	if cfg.TelemetryEnabled {
		obsCfg := observability.DefaultConfig()
		obsCfg.OTLPEndpoint = cfg.OTLPEndpoint
		provider, err := observability.New(ctx, obsCfg)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "telemetry init failed: %v\n", err)
			return 1
		}
		telemetry = provider
		defer func() { _ = telemetry.Shutdown(ctx) }()
	}

	service, cleanup, err := buildService(ctx, cfg, *profilesDir, telemetry)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "setup failed: %v\n", err)
		return 1
	}
	defer cleanup()

	file, err := os.Open(cmd.Arg(0))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "open package: %v\n", err)
		return 1
	}
	defer func() { _ = file.Close() }()

	result, err := service.Publish(ctx, file)
	if err != nil {
		if publish.IsUserError(err) {
			_, _ = fmt.Fprintf(stderr, "rejected: %v\n", err)
			return 3
		}
		_, _ = fmt.Fprintf(stderr, "publish failed: %v\n", err)
		return 1
	}

	_, _ = fmt.Fprintf(stdout, "published %s.%s %s (%d resources)\n",
		result.Metadata.Namespace, result.Metadata.Name, result.Metadata.Version, len(result.Resources))
	for _, warning := range result.Warnings {
		_, _ = fmt.Fprintf(stdout, "warning: %s\n", warning)
	}
	return 0
}

func buildService(ctx context.Context, cfg *config.Config, profilesDir string,
	telemetry *observability.Provider) (*publish.Service, func(), error) {
	blobs, err := storage.NewStoreFromEnv(ctx)
	if err != nil {
		return nil, nil, err
	}

	db, err := sql.Open("sqlite", filepath.Join(cfg.DataDir, "vsxhub.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	versions, err := store.NewSQLiteVersionStore(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	var catalog registry.Catalog = registry.NewMemoryCatalog()
	var pgDB *sql.DB
	if cfg.DatabaseURL != "" {
		pgDB, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		pg := registry.NewPostgresCatalog(pgDB)
		if err := pg.Init(ctx); err != nil {
			_ = db.Close()
			_ = pgDB.Close()
			return nil, nil, fmt.Errorf("init catalog schema: %w", err)
		}
		catalog = pg
	}

	var limiter ratelimit.Limiter
	if cfg.RedisAddr != "" {
		limiter = ratelimit.NewRedisLimiter(cfg.RedisAddr, "", 0, ratelimit.DefaultPolicy)
	} else {
		limiter = ratelimit.NewLocalLimiter(ratelimit.DefaultPolicy)
	}

	var profiles map[string]*config.NamespaceProfile
	if profilesDir != "" {
		profiles, err = config.LoadAllProfiles(profilesDir)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
	}

	service := publish.New(blobs, versions, catalog, limiter, telemetry, publish.Options{
		SizeLimit:           cfg.SizeLimitBytes(),
		IncludeWebResources: cfg.IncludeWebResources,
		Profiles:            profiles,
	})

	cleanup := func() {
		_ = db.Close()
		if pgDB != nil {
			_ = pgDB.Close()
		}
	}
	return service, cleanup, nil
}

func runInspectCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("inspect", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	webResources := cmd.Bool("web-resources", false, "list web resources of web extensions")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if cmd.NArg() != 1 {
		_, _ = fmt.Fprintln(stderr, "Usage: vsxhub inspect [flags] <file.vsix>")
		return 2
	}

	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	file, err := os.Open(cmd.Arg(0))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "open package: %v\n", err)
		return 1
	}
	defer func() { _ = file.Close() }()

	processor := extension.New(file, extension.Options{
		SizeLimit:           cfg.SizeLimitBytes(),
		IncludeWebResources: *webResources,
	})
	defer func() { _ = processor.Close() }()

	md, err := processor.Metadata()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "inspect failed: %v\n", err)
		if extension.IsUserError(err) {
			return 3
		}
		return 1
	}

	resources, err := processor.Resources(md)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "inspect failed: %v\n", err)
		return 1
	}

	output := struct {
		Metadata  *extension.Metadata `json:"metadata"`
		Resources []string            `json:"resources"`
	}{Metadata: md}
	for _, res := range resources {
		name := res.Name
		if name == "" {
			name = "(package)"
		}
		output.Resources = append(output.Resources, fmt.Sprintf("%s: %s (%d bytes)", res.Kind, name, len(res.Content)))
	}

	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(output); err != nil {
		_, _ = fmt.Fprintf(stderr, "encode output: %v\n", err)
		return 1
	}
	return 0
}
