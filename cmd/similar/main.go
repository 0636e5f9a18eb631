// Package main is the similar CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/similar/internal/catalog"
	"github.com/hyperjump/similar/internal/cli"
	"github.com/hyperjump/similar/internal/config"
	"github.com/hyperjump/similar/internal/embedding"
	"github.com/hyperjump/similar/internal/evaluation"
	"github.com/hyperjump/similar/internal/models"
	"github.com/hyperjump/similar/internal/recommend"
	"github.com/hyperjump/similar/internal/report"
	"github.com/hyperjump/similar/internal/server"
	"github.com/hyperjump/similar/internal/similarity"
	"github.com/hyperjump/similar/internal/storage"
	"github.com/hyperjump/similar/internal/watcher"
	"github.com/hyperjump/similar/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/similar/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in the
// current directory wins if it exists, so "similar server" from a project dir uses
// the project's config. A missing default file yields the built-in defaults.
// Returns the config and the path that was actually loaded ("" for defaults).
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
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			cfg := &config.Config{}
			config.ApplyDefaults(cfg)
			return cfg, "", nil
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
	case "import":
		runImport()
	case "recommend":
		runRecommend()
	case "similarity":
		runSimilarity()
	case "evaluate":
		runEvaluate()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("similar version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// setup loads and validates the config and builds the logger.
func setup(configPath string, debugFlag bool) (*config.Config, string, *zap.Logger) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fail("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		fail("Invalid config: %v", err)
	}
	logger, err := utils.NewLogger(cfg.Debug || debugFlag)
	if err != nil {
		fail("Failed to create logger: %v", err)
	}
	return cfg, resolved, logger
}

// sessionOptions maps the recommend and index sections onto session options.
func sessionOptions(cfg *config.Config, logger *zap.Logger) (recommend.Options, error) {
	mode, err := similarity.ParseExclusionMode(cfg.Recommend.Exclusion)
	if err != nil {
		return recommend.Options{}, err
	}
	return recommend.Options{
		IndexType: cfg.Index.Type,
		Exclusion: mode,
		Normalize: cfg.Data.Normalize,
		MinK:      cfg.Recommend.MinK,
		MaxK:      cfg.Recommend.MaxK,
		DefaultK:  cfg.Recommend.DefaultK,
		CacheSize: cfg.Recommend.CacheSize,
		Logger:    logger,
	}, nil
}

// dataSource describes where the session comes from. Without a metadata file
// the catalog is read from the database filled by "similar import".
func dataSource(ctx context.Context, cfg *config.Config, store storage.Storage) (recommend.Source, error) {
	src := recommend.Source{MetadataPath: cfg.Data.MetadataPath, Vectors: cfg.Data.Variants.Paths()}
	if src.MetadataPath != "" {
		return src, nil
	}
	if store == nil {
		return src, fmt.Errorf("data.metadata_path is not set and no database is open")
	}
	items, err := store.ListItems(ctx)
	if err != nil {
		return src, fmt.Errorf("read catalog from database: %w", err)
	}
	if len(items) == 0 {
		return src, fmt.Errorf("catalog is empty: set data.metadata_path or run \"similar import\"")
	}
	src.Items = items
	return src, nil
}

// openSession loads a session straight from the configured files.
func openSession(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*recommend.Session, error) {
	var store storage.Storage
	if cfg.Data.MetadataPath == "" {
		s, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		defer s.Close()
		store = s
	}
	src, err := dataSource(ctx, cfg, store)
	if err != nil {
		return nil, err
	}
	opts, err := sessionOptions(cfg, logger)
	if err != nil {
		return nil, err
	}
	return recommend.Load(ctx, src, opts)
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, logger := setup(*configPath, *debug)
	defer logger.Sync()
	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", cfg.Debug || *debug),
	)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src, err := dataSource(ctx, cfg, store)
	if err != nil {
		logger.Fatal("Failed to resolve data source", zap.Error(err))
	}
	opts, err := sessionOptions(cfg, logger)
	if err != nil {
		logger.Fatal("Invalid recommend options", zap.Error(err))
	}

	holder := recommend.NewHolder(nil)
	reloader := recommend.NewReloader(holder, src, opts)
	// A bad data file at startup leaves the server up so a fix can be picked
	// up by the watcher or POST /api/v1/reload.
	if err := reloader.Reload(ctx); err != nil {
		logger.Error("Initial session load failed", zap.Error(err))
	}
	if sess, err := holder.Session(); err == nil {
		st := sess.Status()
		logger.Info("session loaded", zap.Int("items", st.Items), zap.Int("variants", len(st.Variants)), zap.String("index", st.IndexType))
	}

	if cfg.Watch.Enabled {
		watchSvc := watcher.NewWatcher(
			src.Paths(),
			func(changed []string) {
				logger.Info("data files changed", zap.Strings("files", changed))
				_ = reloader.Reload(ctx)
			},
			watcher.WithLogger(logger),
			watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMS)*time.Millisecond),
		)
		if err := watchSvc.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	srv := server.NewServer(holder, store, cfg, logger, reloader)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	_ = srv.Stop(stopCtx)
	if sess := holder.Swap(nil); sess != nil {
		_ = sess.Close()
	}
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, _, logger := setup(*configPath, false)
	defer logger.Sync()

	path := cfg.Data.MetadataPath
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}
	if path == "" {
		fail("Usage: similar import [flags] <metadata.tsv>")
	}
	items, err := embedding.LoadMetadataTSV(path)
	if err != nil {
		fail("Import failed: %v", err)
	}
	if _, err := catalog.New(items); err != nil {
		fail("Invalid catalog: %v", err)
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		fail("Failed to initialize storage: %v", err)
	}
	defer store.Close()
	if err := store.ReplaceItems(context.Background(), items); err != nil {
		fail("Import failed: %v", err)
	}
	logger.Debug("catalog imported", zap.String("path", path), zap.Int("items", len(items)))
	fmt.Printf("Imported %d items into %s\n", len(items), cfg.Storage.DatabasePath)
}

// argsReorder moves any flags (and their values) that appear after the positional
// arguments to the front so that flag.Parse sees them. Go's flag package stops at
// the first non-flag argument, so "similar recommend toy story -k 5" would
// otherwise leave -k unparsed.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// buildQuery joins positional args so multi-word titles work with or without quotes.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// parseIDs reads a comma- or space-separated list of item ids.
func parseIDs(s string) ([]int64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	ids := make([]int64, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid item id %q", f)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// splitList splits a comma-separated flag value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseVariantFlag(s string) models.Variant {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	v, err := models.ParseVariant(s)
	if err != nil {
		fail("%v", err)
	}
	return v
}

func outputFormat(s string) cli.OutputFormat {
	format, err := cli.ParseOutputFormat(s)
	if err != nil {
		fail("%v", err)
	}
	return format
}

// resolveItem accepts a numeric id or a title query answered by the title index.
func resolveItem(sess *recommend.Session, query string) (int64, error) {
	if id, err := strconv.ParseInt(query, 10, 64); err == nil {
		return id, nil
	}
	hits, err := sess.FindTitles(query, 1)
	if err != nil {
		return 0, err
	}
	if len(hits) == 0 {
		return 0, fmt.Errorf("%w: no title matches %q", models.ErrUnknownID, query)
	}
	return hits[0].ID, nil
}

func runRecommend() {
	fs := flag.NewFlagSet("recommend", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = load data files directly)")
	variant := fs.String("variant", "", "embedding variant: content, collaborative or hybrid (default: first loaded)")
	k := fs.Int("k", 0, "number of similar items (default from config)")
	titles := fs.Bool("titles", false, "list matching titles instead of recommending")
	format := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: similar recommend [flags] <item-id | title>\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(argsReorder(os.Args[2:]))

	query := buildQuery(fs.Args())
	if query == "" {
		fs.Usage()
		os.Exit(1)
	}
	out := outputFormat(*format)
	v := parseVariantFlag(*variant)

	if *serverURL != "" {
		id, err := strconv.ParseInt(query, 10, 64)
		if err != nil {
			id, err = findTitleViaHTTP(*serverURL, query)
			if err != nil {
				fail("Recommend failed: %v", err)
			}
		}
		resp, err := recommendViaHTTP(*serverURL, recommend.Request{ItemID: id, Variant: v, K: *k})
		if err != nil {
			fail("Recommend failed: %v", err)
		}
		if err := cli.WriteRecommendations(os.Stdout, resp, out); err != nil {
			fail("Output failed: %v", err)
		}
		return
	}

	cfg, _, logger := setup(*configPath, false)
	defer logger.Sync()
	sess, err := openSession(context.Background(), cfg, logger)
	if err != nil {
		fail("Failed to load data: %v", err)
	}
	defer sess.Close()

	if *titles {
		hits, err := sess.FindTitles(query, cfg.Recommend.MaxK)
		if err != nil {
			fail("Title search failed: %v", err)
		}
		if err := cli.WriteTitleHits(os.Stdout, hits, out); err != nil {
			fail("Output failed: %v", err)
		}
		return
	}

	id, err := resolveItem(sess, query)
	if err != nil {
		fail("Recommend failed: %v", err)
	}
	resp, err := sess.Recommend(recommend.Request{ItemID: id, Variant: v, K: *k})
	if err != nil {
		fail("Recommend failed: %v", err)
	}
	if err := cli.WriteRecommendations(os.Stdout, resp, out); err != nil {
		fail("Output failed: %v", err)
	}
}

func getJSON(target string, v interface{}) error {
	resp, err := http.Get(target)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func recommendViaHTTP(serverURL string, req recommend.Request) (*recommend.Response, error) {
	q := url.Values{}
	q.Set("item", strconv.FormatInt(req.ItemID, 10))
	if req.Variant != "" {
		q.Set("variant", string(req.Variant))
	}
	if req.K != 0 {
		q.Set("k", strconv.Itoa(req.K))
	}
	var resp recommend.Response
	if err := getJSON(strings.TrimRight(serverURL, "/")+"/api/v1/recommendations?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func findTitleViaHTTP(serverURL, query string) (int64, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", "1")
	var out struct {
		Items []struct {
			ID int64 `json:"id"`
		} `json:"items"`
	}
	if err := getJSON(strings.TrimRight(serverURL, "/")+"/api/v1/items?"+q.Encode(), &out); err != nil {
		return 0, err
	}
	if len(out.Items) == 0 {
		return 0, fmt.Errorf("no title matches %q", query)
	}
	return out.Items[0].ID, nil
}

func runSimilarity() {
	fs := flag.NewFlagSet("similarity", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	variant := fs.String("variant", "", "embedding variant (default: first loaded)")
	left := fs.String("ids", "", "query item ids, comma separated")
	right := fs.String("against", "", "candidate item ids; when set, prints pairwise similarities instead of top-k")
	k := fs.Int("k", 0, "neighbours per query item (default from config)")
	format := fs.String("output", "text", "output format: text or json")
	xlsxPath := fs.String("xlsx", "", "also write the rows to this Excel file")
	_ = fs.Parse(os.Args[2:])

	leftIDs, err := parseIDs(*left)
	if err != nil {
		fail("%v", err)
	}
	if len(leftIDs) == 0 {
		fail("Usage: similar similarity -ids 1,2,3 [-k 10 | -against 4,5,6] [flags]")
	}
	out := outputFormat(*format)
	v := parseVariantFlag(*variant)

	cfg, _, logger := setup(*configPath, false)
	defer logger.Sync()
	sess, err := openSession(context.Background(), cfg, logger)
	if err != nil {
		fail("Failed to load data: %v", err)
	}
	defer sess.Close()

	var rows []models.SimilarityRow
	if *right != "" {
		rightIDs, err := parseIDs(*right)
		if err != nil {
			fail("%v", err)
		}
		rows, err = sess.CosineSimilarity(v, leftIDs, rightIDs)
		if err != nil {
			fail("Similarity failed: %v", err)
		}
	} else {
		kk := *k
		if kk == 0 {
			kk = cfg.Recommend.DefaultK
		}
		rows, err = sess.TopSimilar(v, leftIDs, kk)
		if err != nil {
			fail("Similarity failed: %v", err)
		}
	}

	titleOf := func(id int64) string {
		it, err := sess.Catalog().Item(id)
		if err != nil {
			return ""
		}
		return it.Title
	}
	if err := cli.WriteSimilarityRows(os.Stdout, rows, titleOf, out); err != nil {
		fail("Output failed: %v", err)
	}
	if *xlsxPath != "" {
		if err := writeFile(*xlsxPath, func(w io.Writer) error { return report.WriteSimilarity(w, rows, titleOf) }); err != nil {
			fail("Write report failed: %v", err)
		}
	}
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func runEvaluate() {
	fs := flag.NewFlagSet("evaluate", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	k := fs.Int("k", 0, "cutoff k (default from config)")
	metricNames := fs.String("metrics", "", "comma separated metrics: precision_recall, spearman (default: both)")
	groupCol := fs.String("group", "", "group column (default from config)")
	predCol := fs.String("predicted", "", "prediction column (default from config)")
	targetCol := fs.String("target", "", "target column (default from config)")
	format := fs.String("output", "text", "output format: text or json")
	xlsxPath := fs.String("xlsx", "", "also write the report to this Excel file")
	save := fs.Bool("save", false, "store the run in the database")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: similar evaluate [flags] <table.csv|table.tsv|table.xlsx>\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}
	path := fs.Arg(0)
	out := outputFormat(*format)

	cfg, _, logger := setup(*configPath, false)
	defer logger.Sync()

	cols := cfg.Evaluation.Columns()
	if *groupCol != "" {
		cols.Group = *groupCol
	}
	if *predCol != "" {
		cols.Predicted = *predCol
	}
	if *targetCol != "" {
		cols.Target = *targetCol
	}
	kk := *k
	if kk == 0 {
		kk = cfg.Evaluation.K
	}

	table, err := evaluation.LoadTable(path)
	if err != nil {
		fail("Failed to read table: %v", err)
	}
	rep, err := evaluation.Evaluate(table, cols, kk, splitList(*metricNames)...)
	if err != nil {
		fail("Evaluation failed: %v", err)
	}
	logger.Debug("evaluation completed", zap.String("path", path), zap.Int("rows", table.Len()), zap.Int("groups", rep.Summary.Groups))

	if err := cli.WriteEvaluation(os.Stdout, rep, out); err != nil {
		fail("Output failed: %v", err)
	}
	if *xlsxPath != "" {
		if err := writeFile(*xlsxPath, func(w io.Writer) error { return report.WriteEvaluation(w, rep) }); err != nil {
			fail("Write report failed: %v", err)
		}
	}
	if *save {
		id, err := saveRun(context.Background(), cfg.Storage.DatabasePath, path, rep)
		if err != nil {
			fail("Save failed: %v", err)
		}
		fmt.Fprintf(os.Stderr, "Saved evaluation run %s\n", id)
	}
}

// saveRun stores rep in the database at dbPath and returns the run id.
func saveRun(ctx context.Context, dbPath, source string, rep *evaluation.Report) (string, error) {
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return "", err
	}
	defer store.Close()
	body, err := json.Marshal(rep)
	if err != nil {
		return "", err
	}
	run := &models.EvaluationRun{
		ID:      uuid.NewString(),
		Source:  source,
		K:       rep.K,
		Metrics: rep.Metrics,
		Groups:  rep.Summary.Groups,
		Report:  body,
	}
	if err := store.CreateRun(ctx, run); err != nil {
		return "", err
	}
	return run.ID, nil
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = load data files directly)")
	format := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	out := outputFormat(*format)

	var st recommend.Status
	if *serverURL != "" {
		var resp struct {
			Session recommend.Status `json:"session"`
		}
		if err := getJSON(strings.TrimRight(*serverURL, "/")+"/api/v1/status", &resp); err != nil {
			fail("Status failed: %v", err)
		}
		st = resp.Session
	} else {
		cfg, _, logger := setup(*configPath, false)
		defer logger.Sync()
		sess, err := openSession(context.Background(), cfg, logger)
		if err != nil {
			fail("Failed to load data: %v", err)
		}
		defer sess.Close()
		st = sess.Status()
	}
	if err := cli.WriteStatus(os.Stdout, st, out); err != nil {
		fail("Output failed: %v", err)
	}
}

func printUsage() {
	fmt.Println(`similar - Embedding similarity search and ranking evaluation

Usage:
  similar server [flags]                  Start the HTTP server
  similar import [flags] [metadata.tsv]   Store the item catalog in the database
  similar recommend [flags] <id|title>    Show the items most similar to one item
  similar similarity [flags]              Batch top-k or pairwise similarity by id
  similar evaluate [flags] <table>        Precision/recall@k and Spearman per group
  similar status [flags]                  Show loaded variants and index settings
  similar version                         Show version
  similar help                            Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/similar/config.yaml)
  --output string    Output format: text or json (default: text)

Server Flags:
  --debug            Enable debug logging

Recommend Flags:
  --server string    Server URL; empty loads data files directly
  --variant string   content, collaborative or hybrid (default: first loaded)
  --k int            Number of similar items (default: recommend.default_k)
  --titles           List matching titles instead of recommending

Similarity Flags:
  --ids string       Query item ids, comma separated
  --k int            Neighbours per query item
  --against string   Candidate ids for pairwise similarity
  --xlsx string      Also write rows to an Excel file

Evaluate Flags:
  --k int            Cutoff (default: evaluation.k)
  --metrics string   precision_recall, spearman (default: both)
  --group, --predicted, --target string   Column names
  --xlsx string      Also write the report to an Excel file
  --save             Store the run in the database

Examples:
  similar server
  similar import data/movies.tsv
  similar recommend --variant hybrid --k 10 "toy story"
  similar recommend --server http://localhost:8080 1
  similar similarity --ids 1,2 --k 5 --output json
  similar similarity --ids 1 --against 2,3,4
  similar evaluate --k 10 --xlsx report.xlsx predictions.csv
  similar status --output json`)
}
