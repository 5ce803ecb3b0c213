package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gin-gonic/gin"
	"github.com/kass/restaurant-map/pkg/config"
	"github.com/kass/restaurant-map/pkg/dataset"
	"github.com/kass/restaurant-map/pkg/mapview"
	"github.com/kass/restaurant-map/pkg/models"
	"github.com/kass/restaurant-map/pkg/postgis"
	"github.com/kass/restaurant-map/pkg/server"
	"github.com/kass/restaurant-map/pkg/store"
	"github.com/kass/restaurant-map/pkg/tui"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	configFile string
	dataPaths  []string
	verbose    bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "restaurant-map",
	Short: "Map of visited and wishlisted restaurants",
	Long:  `Browse a personal restaurant list on a terminal map, filter it by rating and name, or serve it as JSON.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return err
		}
		if len(dataPaths) > 0 {
			cfg.Data.Paths = dataPaths
		}
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		}
		return nil
	},
}

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Open the interactive map",
	Long:  `Show the restaurants on a terminal map beside the filterable list.`,
	RunE:  runView,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the filtered restaurant list",
	Long:  `Print the Rated and To Visit groups for the given filters.`,
	RunE:  runList,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the restaurant view as JSON",
	Long:  `Start an HTTP server answering filtered view and nearest-restaurant queries.`,
	RunE:  runServe,
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load the dataset into PostGIS",
	Long:  `Create the restaurants table in PostGIS and insert the dataset read from the configured paths.`,
	RunE:  runImport,
}

var (
	pickEnabled bool
	minRating   float64
	searchText  string
	jsonOutput  bool
	listenAddr  string
	importDSN   string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yaml", "Config file path")
	rootCmd.PersistentFlags().StringArrayVarP(&dataPaths, "data", "d", nil, "Dataset path, URL or postgres:// DSN (repeatable, first that loads wins)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	viewCmd.Flags().BoolVar(&pickEnabled, "pick", false, "Fill latitude/longitude fields by clicking the map")

	listCmd.Flags().Float64VarP(&minRating, "min-rating", "r", 0, "Minimum rating (0 for no floor)")
	listCmd.Flags().StringVarP(&searchText, "search", "s", "", "Case-insensitive name search")
	listCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the view as JSON")

	serveCmd.Flags().StringVarP(&listenAddr, "addr", "a", "", "Listen address (overrides server.addr)")

	importCmd.Flags().StringVar(&importDSN, "dsn", "", "PostGIS DSN (overrides postgis.dsn and DATABASE_URL)")

	rootCmd.AddCommand(viewCmd, listCmd, serveCmd, importCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLoader() *dataset.Loader {
	loader := dataset.NewLoader(cfg.Data.Paths, cfg.DataTimeout())
	loader.DB = postgis.LoadDSN
	return loader
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runView(cmd *cobra.Command, args []string) error {
	f, err := tea.LogToFile(cfg.Log.File, "restaurant-map")
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	ctx, cancel := signalContext()
	defer cancel()

	err = tui.Run(ctx, newLoader(), tui.Options{
		Map:          cfg.MapOptions(),
		Policy:       cfg.FloorPolicy(),
		RatingFloors: cfg.Filter.RatingFloors,
		Pick:         pickEnabled,
	})
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

func runList(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	restaurants, err := newLoader().Load(ctx)
	if err != nil {
		printError(fmt.Sprintf("%s: %v", store.LoadErrorMessage, err))
		return err
	}

	criteria := store.FilterCriteria{Search: searchText}
	if cmd.Flags().Changed("min-rating") && minRating > 0 {
		criteria.MinRating = &minRating
	}
	view := store.BuildView(restaurants, criteria, cfg.FloorPolicy())

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}

	printTitle("Restaurant Map")
	if view.Empty() {
		printInfo(store.NoMatchesMessage)
		return nil
	}
	printGroup(store.GroupRated, view.Rated)
	printGroup(store.GroupToVisit, view.ToVisit)
	fmt.Println()
	printStat("Shown", fmt.Sprintf("%d of %d", view.Len(), len(restaurants)))
	printStat("Bounds", fmt.Sprintf("%.4f,%.4f to %.4f,%.4f",
		view.Bounds.Min.Lat(), view.Bounds.Min.Lon(), view.Bounds.Max.Lat(), view.Bounds.Max.Lon()))
	return nil
}

func printGroup(title string, group []*models.Restaurant) {
	if len(group) == 0 {
		return
	}
	printSubtitle(fmt.Sprintf("%s (%d)", title, len(group)))
	for _, r := range group {
		line := r.Name
		if r.IsRated() {
			line = fmt.Sprintf("%s %s(%s/10)%s", r.Name, colorYellow, mapview.FormatRating(*r.Rating), colorReset)
		}
		if addr := models.Str(r.Address); addr != "" {
			line += fmt.Sprintf(" %s%s%s", colorBlue, addr, colorReset)
		}
		fmt.Printf("  %s\n", line)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	restaurants, err := newLoader().Load(ctx)
	if err != nil {
		return err
	}

	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	srv, err := server.New(restaurants, cfg.FloorPolicy())
	if err != nil {
		return fmt.Errorf("failed to index restaurants: %w", err)
	}

	addr := cfg.Server.Addr
	if listenAddr != "" {
		addr = listenAddr
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(cfg.Server.AllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Serving %d restaurants on %s", len(restaurants), addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	dsn := cfg.PostGIS.DSN
	if importDSN != "" {
		dsn = importDSN
	}
	if dsn == "" {
		return fmt.Errorf("no PostGIS DSN: set --dsn, postgis.dsn or %s", config.EnvDatabaseURL)
	}

	// Reading from the target database would import nothing new
	var paths []string
	for _, p := range cfg.Data.Paths {
		if !strings.HasPrefix(p, "postgres://") && !strings.HasPrefix(p, "postgresql://") {
			paths = append(paths, p)
		}
	}
	loader := dataset.NewLoader(paths, cfg.DataTimeout())
	restaurants, err := loader.Load(ctx)
	if err != nil {
		return err
	}

	db, err := postgis.Open(ctx, dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.InitSchema(ctx); err != nil {
		return err
	}

	if isatty.IsTerminal(os.Stdout.Fd()) {
		if err := tui.RunImport(ctx, db, restaurants); err != nil {
			return err
		}
	} else {
		start := time.Now()
		err := db.BulkInsertRestaurants(ctx, restaurants, func(done, total int) {
			if done%100 == 0 || done == total {
				log.Printf("Imported %d/%d restaurants", done, total)
			}
		})
		if err != nil {
			return err
		}
		printSuccess(fmt.Sprintf("Imported %d restaurants in %v", len(restaurants), time.Since(start).Round(time.Millisecond)))
	}

	count, err := db.Count(ctx)
	if err != nil {
		return err
	}
	printStat("Rows in PostGIS", count)
	return nil
}
