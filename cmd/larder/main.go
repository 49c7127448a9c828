// larder: recipe ingredient costing and reconciliation.
//
// Prices recipe lines from the ingredient library, keeps stored line costs
// and recipe yields in step with it, and edits recipes interactively.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/larder/larder/internal/config"
	"github.com/larder/larder/internal/costing"
	"github.com/larder/larder/internal/database"
	"github.com/larder/larder/internal/database/seed"
	"github.com/larder/larder/internal/editor"
	"github.com/larder/larder/internal/models"
	"github.com/larder/larder/internal/report"
	"github.com/larder/larder/internal/services/recipes"
)

// Build information (set via ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

type options struct {
	configPath  string
	migrateOnly bool
	migrateDown bool
	status      bool
	backup      bool
	seedData    bool
	ingredients string
	recipe      string
	recompute   bool
	edit        bool
	debugMode   bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flag.BoolVar(&opts.migrateOnly, "migrate-only", false, "Run migrations and exit")
	flag.BoolVar(&opts.migrateDown, "migrate-down", false, "Roll back the latest migration and exit")
	flag.BoolVar(&opts.status, "status", false, "Show database and migration status and exit")
	flag.BoolVar(&opts.backup, "backup", false, "Write a database backup and exit")
	flag.BoolVar(&opts.seedData, "seed", false, "Load reference units, ingredients and sample recipes")
	flag.StringVar(&opts.ingredients, "ingredients", "", "List library ingredients whose name contains the given text (\"*\" for all)")
	flag.StringVar(&opts.recipe, "recipe", "", "Recipe id or name to work on")
	flag.BoolVar(&opts.recompute, "recompute", false, "Re-derive stored line costs and yield of -recipe")
	flag.BoolVar(&opts.edit, "edit", false, "Open the interactive editor for -recipe")
	flag.BoolVar(&opts.debugMode, "debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("larder version %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		slog.Info("received shutdown signal", "signal", sig)
		cancel()

		// Force exit after timeout
		time.AfterFunc(10*time.Second, func() {
			slog.Error("forced shutdown after timeout")
			os.Exit(1)
		})
	}()

	if err := run(ctx, opts); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	if (opts.recompute || opts.edit) && opts.recipe == "" {
		return errors.New("-recompute and -edit need -recipe")
	}

	cfg, cfgPath, err := config.Load(opts.configPath, true)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logLevel := slog.LevelInfo
	if opts.debugMode {
		logLevel = slog.LevelDebug
	} else {
		switch cfg.Logging.Level {
		case config.LogLevelDebug:
			logLevel = slog.LevelDebug
		case config.LogLevelWarn:
			logLevel = slog.LevelWarn
		case config.LogLevelError:
			logLevel = slog.LevelError
		}
	}

	var logHandler slog.Handler
	logPath, err := config.EnsureLogDir(cfg)
	if err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}

	if logPath != "" {
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer logFile.Close()

		logHandler = slog.NewJSONHandler(logFile, &slog.HandlerOptions{
			Level: logLevel,
		})
	} else {
		logHandler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		})
	}

	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	slog.Info("larder starting",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cfgPath,
	)

	dbPath, err := config.EnsureDataDir(cfg)
	if err != nil {
		return fmt.Errorf("ensuring data directory: %w", err)
	}

	backupDir, err := config.BackupDir(dbPath)
	if err != nil {
		slog.Warn("failed to create backup directory", "error", err)
		backupDir = ""
	}

	db, err := database.Open(dbPath, &cfg.Database, backupDir)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		slog.Info("closing database")
		if err := db.Close(); err != nil {
			slog.Error("error closing database", "error", err)
		}
	}()

	migrator, err := database.NewMigrator(db)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}

	if opts.migrateDown {
		res, err := migrator.MigrateDown(ctx)
		if err != nil {
			return fmt.Errorf("rolling back migration: %w", err)
		}
		slog.Info("rolled back migration", "to_version", res.TargetVersion)
		return nil
	}

	result, err := migrator.MigrateUp(ctx)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	if len(result.Applied) > 0 {
		slog.Info("applied migrations",
			"count", len(result.Applied),
			"to_version", result.TargetVersion,
		)
	}

	if opts.migrateOnly {
		slog.Info("migrations complete, exiting")
		return nil
	}

	switch {
	case opts.seedData:
		return seedCatalog(ctx, db, cfg)
	case opts.status:
		return printStatus(ctx, db, migrator)
	case opts.backup:
		path, err := db.Backup(ctx)
		if err != nil {
			return fmt.Errorf("backing up database: %w", err)
		}
		fmt.Println(path)
		return nil
	}

	svc := recipes.NewService(db.DB, cfg.Costing, logger)

	if opts.ingredients != "" {
		return listIngredients(ctx, svc, cfg, opts.ingredients)
	}
	if opts.recipe == "" {
		return listRecipes(ctx, svc)
	}

	recipe, err := svc.FindRecipe(ctx, opts.recipe)
	if err != nil {
		return fmt.Errorf("finding recipe %q: %w", opts.recipe, err)
	}

	switch {
	case opts.recompute:
		res, err := svc.Recompute(ctx, recipe.ID)
		if err != nil {
			return fmt.Errorf("recomputing %s: %w", recipe.Name, err)
		}
		fmt.Println(res.Batch.Summary())
		if res.YieldUpdated {
			fmt.Printf("Yield updated to %s %s\n", report.FormatQuantity(res.Yield.Quantity), recipe.YieldUnitRef)
		}
		return res.Batch.Err()

	case opts.edit:
		return runEditor(ctx, svc, cfg, logger, recipe.ID)
	}

	sheet, err := svc.CostSheet(ctx, recipe.ID)
	if err != nil {
		return fmt.Errorf("building cost sheet: %w", err)
	}
	fmt.Print(report.Render(sheet, report.Options{
		Currency: cfg.Kitchen.Currency,
		Decimals: cfg.Costing.CurrencyDecimals,
	}))
	return nil
}

func seedCatalog(ctx context.Context, db *database.DB, cfg *config.Config) error {
	var (
		cat *seed.Catalog
		err error
	)
	if cfg.Catalog.SeedFile != "" {
		cat, err = seed.LoadFile(cfg.Catalog.SeedFile)
	} else {
		cat, err = seed.Default()
	}
	if err != nil {
		return fmt.Errorf("loading seed catalog: %w", err)
	}

	res, err := seed.NewGenerator(db.DB, cfg.Costing.CurrencyDecimals).Generate(ctx, cat)
	if err != nil {
		return fmt.Errorf("generating seed data: %w", err)
	}

	slog.Info("seed data generation complete",
		"units", res.Units,
		"ingredients", res.Ingredients,
		"recipes", res.Recipes,
		"lines", res.Lines,
		"skipped_recipes", res.SkippedRecipes,
	)
	return nil
}

func printStatus(ctx context.Context, db *database.DB, migrator *database.Migrator) error {
	stats, err := db.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("reading database stats: %w", err)
	}
	fmt.Printf("Database:  %s\n", stats.Path)
	fmt.Printf("Size:      %d bytes (WAL %d bytes, %d pages)\n", stats.SizeBytes, stats.WALSizeBytes, stats.PageCount)
	fmt.Printf("Journal:   %s\n", stats.JournalMode)
	fmt.Printf("Schema:    version %d\n", stats.SchemaVersion)

	migrations, err := migrator.Status(ctx)
	if err != nil {
		return fmt.Errorf("reading migration status: %w", err)
	}
	for _, m := range migrations {
		state := "pending"
		if m.Applied {
			state = "applied " + m.AppliedAt.Format(time.DateTime)
		}
		fmt.Printf("  %03d %-24s %s\n", m.Version, m.Description, state)
	}
	return nil
}

func listRecipes(ctx context.Context, svc *recipes.Service) error {
	list, err := svc.ListRecipes(ctx)
	if err != nil {
		return fmt.Errorf("listing recipes: %w", err)
	}
	if len(list) == 0 {
		fmt.Println("No recipes. Run with -seed to load the sample library.")
		return nil
	}
	for _, r := range list {
		fmt.Printf("%s  %s\n", r.ID, r.Name)
	}
	return nil
}

func listIngredients(ctx context.Context, svc *recipes.Service, cfg *config.Config, match string) error {
	filter := models.IngredientFilter{}
	if match != "*" {
		filter.NameContains = match
	}

	page := models.DefaultPagination()
	for {
		list, err := svc.ListIngredients(ctx, filter, page)
		if err != nil {
			return fmt.Errorf("listing ingredients: %w", err)
		}
		if list.Total == 0 {
			fmt.Println("No matching ingredients.")
			return nil
		}
		for _, ing := range list.Ingredients {
			price := "no cost data"
			if cost, err := costing.ResolveUnitCost(ing); err == nil {
				price = fmt.Sprintf("%s%.4f/%s", cfg.Kitchen.Currency, cost, ing.BaseUnit)
			}
			fmt.Printf("%s  %-28s %s\n", ing.ID, ing.Name, price)
		}
		if page.Page >= page.TotalPages(list.Total) {
			return nil
		}
		page.Page++
	}
}

func runEditor(ctx context.Context, svc *recipes.Service, cfg *config.Config, logger *slog.Logger, recipeID string) error {
	recipe, err := svc.GetRecipe(ctx, recipeID)
	if err != nil {
		return fmt.Errorf("loading recipe: %w", err)
	}
	calc, err := svc.Calculator(ctx)
	if err != nil {
		return fmt.Errorf("loading unit catalog: %w", err)
	}

	t, restored, err := svc.OpenTracker(ctx, recipe.ID)
	if err != nil {
		return fmt.Errorf("opening recipe: %w", err)
	}
	if restored {
		slog.Info("restored unsaved draft", "recipe", recipe.ID, "pending", len(t.Pending()))
	}

	opts := editor.OptionsFromConfig(cfg)
	opts.Logger = logger
	// The editor outlives a shutdown signal long enough to store its draft.
	m := editor.New(context.WithoutCancel(ctx), recipe, t, svc, svc.Reconciler(calc), calc, opts)

	p := tea.NewProgram(m, tea.WithAltScreen())

	go func() {
		<-ctx.Done()
		p.Send(editor.QuitMsg{})
	}()

	slog.Info("starting editor", "recipe", recipe.Name)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("editor error: %w", err)
	}
	return nil
}
