package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pders01/vsearch/internal/api"
	"github.com/pders01/vsearch/internal/config"
	"github.com/pders01/vsearch/internal/debuglog"
	"github.com/pders01/vsearch/internal/index"
	"github.com/pders01/vsearch/internal/orchestrator"
	"github.com/pders01/vsearch/internal/params"
	"github.com/pders01/vsearch/internal/resolve"
	"github.com/pders01/vsearch/internal/resolve/builtin"
	"github.com/pders01/vsearch/internal/storage"
	"github.com/pders01/vsearch/internal/tui"
	"github.com/pders01/vsearch/internal/validation"
)

// Version is the version of the application, set at build time
var Version = "dev"

var (
	configPath string
	dbPath     string
	debugMode  bool
	quiet      bool

	searchDemo      string
	searchFile      string
	searchThreshold int
	searchCount     int
	searchTimeout   time.Duration
	searchNoHistory bool

	historyLimit int
)

var rootCmd = &cobra.Command{
	Use:   "vsearch",
	Short: "Find visually similar fashion products from the terminal",
	Long: `vsearch queries a visual product-search service with an uploaded image,
an image URL or one of the built-in demo images, and lists the catalog
items that look most alike.

Run without a subcommand to start the interactive interface.`,
	SilenceUsage: true,
	RunE:         runTUI,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("vsearch %s\n", Version)
		fmt.Println("Visual product search")
		fmt.Println("github.com/pders01/vsearch")
	},
}

var configGenCmd = &cobra.Command{
	Use:   "generate-config",
	Short: "Write the default configuration to ~/.config/vsearch/config.toml",
	Run: func(cmd *cobra.Command, args []string) {
		home, _ := os.UserHomeDir()
		configFile := filepath.Join(home, ".config", "vsearch", "config.toml")

		if err := config.GenerateDefaultConfig(configFile); err != nil {
			log.Fatalf("Failed to generate config: %v", err)
		}
		fmt.Printf("Generated default configuration at: %s\n", configFile)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search [image-url]",
	Short: "Run one similarity search and print the matches",
	Example: `  vsearch search https://example.com/shoe.jpg
  vsearch search --demo demo/watch.jpg --threshold 50
  vsearch search --file ~/Pictures/bag.png --count 10`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the search service is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.API.Timeout)
		defer cancel()

		h, err := api.NewClient(cfg.API).Health(ctx)
		if err != nil {
			return fmt.Errorf("%s unreachable: %w", cfg.API.BaseURL, err)
		}
		status := h.Status()
		if status == "" {
			status = "ok"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", cfg.API.BaseURL, status)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show catalog statistics reported by the search service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.API.Timeout)
		defer cancel()

		stats, err := api.NewClient(cfg.API).Stats(ctx)
		if err != nil {
			return fmt.Errorf("fetching stats: %w", err)
		}
		printStats(cmd.OutOrStdout(), stats)
		return nil
	},
}

var productCmd = &cobra.Command{
	Use:   "product <id>",
	Short: "Show one catalog product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.API.Timeout)
		defer cancel()

		client := api.NewClient(cfg.API)
		p, err := client.Product(ctx, api.ProductID(args[0]))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s\n", p.Name)
		fmt.Fprintf(out, "  id:       %s\n", p.ID)
		if p.Category != "" {
			fmt.Fprintf(out, "  category: %s\n", p.Category)
		}
		if p.ImagePath != "" {
			fmt.Fprintf(out, "  image:    %s\n", client.ImageURL(p.ImagePath))
		}
		return nil
	},
}

var resolversCmd = &cobra.Command{
	Use:   "resolvers",
	Short: "List the link resolvers applied to image URLs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, res := range newResolver(cfg).List() {
			fmt.Fprintf(out, "%-10s priority %d\n", res.Name(), res.Priority())
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent searches",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		records, err := store.RecentSearches(historyLimit)
		if err != nil {
			return fmt.Errorf("loading history: %w", err)
		}
		printHistory(cmd.OutOrStdout(), records)
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all searches and seen products",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.ClearHistory(); err != nil {
			return fmt.Errorf("clearing history: %w", err)
		}
		idx, err := index.Open(store, cfg.Database.SearchIndex)
		if err != nil {
			return err
		}
		defer idx.Close()
		if err := idx.OnHistoryCleared(); err != nil {
			return fmt.Errorf("clearing product index: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to history database (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Write debug logs")
	rootCmd.Flags().BoolVar(&quiet, "quiet", false, "Skip startup banner")

	searchCmd.Flags().StringVar(&searchDemo, "demo", "", "Search with a demo image id (e.g. demo/scarf.jpg)")
	searchCmd.Flags().StringVar(&searchFile, "file", "", "Upload a local image file")
	searchCmd.Flags().IntVar(&searchThreshold, "threshold", 0, "Minimum similarity in percent (default from config)")
	searchCmd.Flags().IntVar(&searchCount, "count", 0, "Number of results (default from config)")
	searchCmd.Flags().DurationVar(&searchTimeout, "timeout", time.Minute, "Give up after this long")
	searchCmd.Flags().BoolVar(&searchNoHistory, "no-history", false, "Do not record the search")
	searchCmd.MarkFlagsMutuallyExclusive("demo", "file")

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of searches to list")
	historyCmd.AddCommand(historyClearCmd)

	rootCmd.AddCommand(versionCmd, configGenCmd, searchCmd, healthCmd, statsCmd, productCmd, resolversCmd, historyCmd)
}

func main() {
	err := rootCmd.Execute()
	debuglog.Close()
	if err != nil {
		os.Exit(1)
	}
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if !quiet {
		tui.ShowBanner(Version)
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	// Find is unavailable without the index; searching still works.
	idx, err := index.Open(store, cfg.Database.SearchIndex)
	if err != nil {
		debuglog.Warnf("product index disabled: %v", err)
		idx = nil
	} else {
		defer idx.Close()
	}

	app := tui.NewApp(cfg, store, idx)
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running interface: %w", err)
	}
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sel := params.Selections{
		ThresholdPercent: cfg.Search.DefaultThreshold,
		ResultCount:      cfg.Search.DefaultResultCount,
	}
	if cmd.Flags().Changed("threshold") {
		sel.ThresholdPercent = searchThreshold
	}
	if cmd.Flags().Changed("count") {
		sel.ResultCount = searchCount
	}
	sel.ResultCount = params.ClampResultCount(sel.ResultCount)

	ctx, cancel := context.WithTimeout(cmd.Context(), searchTimeout)
	defer cancel()

	switch {
	case searchFile != "":
		up, err := readUpload(searchFile)
		if err != nil {
			return err
		}
		sel.Method = params.MethodUpload
		sel.Upload = up
	case searchDemo != "":
		sel.Method = params.MethodDemo
		sel.DemoID = searchDemo
	case len(args) == 1:
		sel.Method = params.MethodURL
		// Same rewrite the interactive form applies before previewing.
		link := newResolver(cfg).Resolve(ctx, strings.TrimSpace(args[0]))
		if link.Changed() {
			fmt.Fprintf(cmd.OutOrStdout(), "Resolved via %s: %s\n", link.Resolver, link.ImageURL)
		}
		sel.URL = link.ImageURL
	default:
		return errors.New("give an image URL, --demo or --file")
	}

	p, err := params.NewBuilder(validation.NewImageURLValidator()).Build(sel)
	if err != nil {
		return err
	}

	client := api.NewClient(cfg.API)
	orch := orchestrator.New(client, cfg)

	start := time.Now()
	out, err := orch.Wait(ctx, orch.Submit(p))
	if err != nil {
		return fmt.Errorf("search did not finish: %w", err)
	}

	if !searchNoHistory {
		recordSearch(cfg, storage.NewRecord(p, out, time.Since(start)))
	}

	printOutcome(cmd.OutOrStdout(), out, client)
	if out.Kind == orchestrator.KindFailure && out.Reason == orchestrator.ReasonRequest {
		return errors.New(out.Message)
	}
	return nil
}

func newResolver(cfg *config.Config) *resolve.Registry {
	r := resolve.NewRegistry(cfg.Preview.Timeout)
	builtin.RegisterDefaults(r)
	return r
}

func readUpload(path string) (*params.UploadSource, error) {
	clean, mimeType, err := validation.NewPermissiveFilePathValidator().ValidateImageFile(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(clean)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	if sniffed := params.DetectMIMEType(data); strings.HasPrefix(sniffed, "image/") {
		mimeType = sniffed
	}
	return &params.UploadSource{Filename: filepath.Base(clean), Data: data, MIMEType: mimeType}, nil
}

// recordSearch keeps the outcome in history. The index picks the products
// up on its next open.
func recordSearch(cfg *config.Config, rec *storage.SearchRecord) {
	store, err := openStore(cfg)
	if err != nil {
		debuglog.Warnf("search not recorded: %v", err)
		return
	}
	defer store.Close()

	if err := store.SaveSearch(rec); err != nil {
		debuglog.Warnf("search not recorded: %v", err)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if dbPath != "" {
		cfg.Database.Path = expandTilde(dbPath)
	}

	level := debuglog.ParseLogLevel(cfg.Logging.Level)
	if debugMode {
		level = debuglog.LevelDebug
	}
	if err := debuglog.Setup(level, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	return cfg, nil
}

func openStore(cfg *config.Config) (*storage.Store, error) {
	store, err := storage.NewStore(cfg.Database.Path, cfg.Database.Timeout, cfg.Database.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("opening history at %s: %w", cfg.Database.Path, err)
	}
	return store, nil
}

func expandTilde(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

func printOutcome(w io.Writer, out orchestrator.Outcome, client *api.Client) {
	switch out.Kind {
	case orchestrator.KindSuccess:
		fmt.Fprintf(w, "Found %d visually similar items\n\n", len(out.Items))
		for i, p := range out.Items {
			fmt.Fprintf(w, "%2d. %-40s %6.1f%%  %s\n", i+1, p.Name, p.Similarity*100, p.Category)
			if p.ImagePath != "" {
				fmt.Fprintf(w, "    %s\n", client.ImageURL(p.ImagePath))
			}
		}
	case orchestrator.KindFailure:
		fmt.Fprintln(w, out.Message)
	}
}

func printStats(w io.Writer, stats api.Stats) {
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if n, ok := stats.Int(k); ok {
			fmt.Fprintf(w, "%-24s %s\n", k, humanize.Comma(int64(n)))
			continue
		}
		fmt.Fprintf(w, "%-24s %v\n", k, stats[k])
	}
}

func printHistory(w io.Writer, records []*storage.SearchRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No searches yet")
		return
	}
	for _, rec := range records {
		summary := rec.Outcome
		if rec.Outcome == orchestrator.KindSuccess.String() {
			summary = fmt.Sprintf("%d items", len(rec.Products))
		}
		fmt.Fprintf(w, "%-14s [%s] %s · %s · %.0f%% threshold\n",
			humanize.Time(rec.CreatedAt), rec.SourceKind, rec.SourceLabel, summary, rec.Threshold*100)
	}
}
