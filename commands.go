package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"dnamatcher/config"
	"dnamatcher/database"
	"dnamatcher/dna"
	"dnamatcher/logging"
	"dnamatcher/matcher"
	"dnamatcher/neural"
	"dnamatcher/types"
	"dnamatcher/weights"
)

// app holds the wired components shared by the subcommands.
type app struct {
	cfg     *config.Config
	store   *database.Store
	service *matcher.Service
}

func newRootCommand() *cobra.Command {
	var (
		configPath string
		dbPath     string
		logFile    string
		debug      bool
	)

	application := &app{}

	root := &cobra.Command{
		Use:           "dnamatcher",
		Short:         "Photo fingerprinting and lost-and-found matching",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.DBPath = dbPath
			}
			if logFile != "" {
				cfg.LogFile = logFile
			}
			cfg.Debug = cfg.Debug || debug

			if err := logging.Setup(cfg.LogFile, cfg.Debug); err != nil {
				return err
			}

			store, err := database.Open(cfg.DBPath)
			if err != nil {
				return err
			}

			provider := weights.NewProvider(weights.BaseTable, cfg.Weights.CacheTTL)
			neuralProvider := neural.NewProvider(
				cfg.Neural.EncoderPath,
				cfg.Neural.ClassifierPath,
				cfg.Neural.LabelsPath,
			)

			application.cfg = cfg
			application.store = store
			application.service = &matcher.Service{
				Store:     store,
				Extractor: dna.NewExtractor(neuralProvider, nil),
				Matcher:   matcher.New(store, provider, cfg.Matcher),
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if application.store != nil {
				application.store.Close()
			}
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to TOML config file")
	root.PersistentFlags().StringVar(&dbPath, "db", "", "override database path")
	root.PersistentFlags().StringVar(&logFile, "log-file", "", "duplicate log output to file")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newCaseCommand(application),
		newExtractCommand(application),
		newMatchCommand(application),
		newCompareCommand(application),
		newStatsCommand(application),
	)
	return root
}

func newCaseCommand(a *app) *cobra.Command {
	caseCmd := &cobra.Command{
		Use:   "case",
		Short: "Manage lost and found cases",
	}

	var (
		caseType string
		category string
		lat, lon float64
		radius   float64
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Register a new case",
		RunE: func(cmd *cobra.Command, args []string) error {
			ct := types.CaseType(caseType)
			if ct != types.CaseLost && ct != types.CaseFound {
				return fmt.Errorf("invalid case type %q, want lost or found", caseType)
			}
			c := &types.Case{
				ID:             uuid.NewString(),
				Type:           ct,
				Category:       category,
				Latitude:       lat,
				Longitude:      lon,
				SearchRadiusKM: radius,
			}
			if err := a.store.SaveCase(cmd.Context(), c); err != nil {
				return err
			}
			fmt.Println(c.ID)
			return nil
		},
	}
	add.Flags().StringVar(&caseType, "type", "", "case type: lost or found")
	add.Flags().StringVar(&category, "category", "", "item category (pets, documents, vehicles, ...)")
	add.Flags().Float64Var(&lat, "lat", 0, "report latitude")
	add.Flags().Float64Var(&lon, "lon", 0, "report longitude")
	add.Flags().Float64Var(&radius, "radius", 0, "search radius in km")
	add.MarkFlagRequired("type")

	resolve := &cobra.Command{
		Use:   "resolve <case-id>",
		Short: "Mark a case resolved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.store.ResolveCase(cmd.Context(), args[0])
		},
	}

	caseCmd.AddCommand(add, resolve)
	return caseCmd
}

func newExtractCommand(a *app) *cobra.Command {
	var (
		caseID  string
		photoID string
	)
	cmd := &cobra.Command{
		Use:   "extract <image-file>",
		Short: "Extract a photo's fingerprint into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			imageBytes, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if photoID == "" {
				photoID = uuid.NewString()
			}

			opts := dna.Options{PhotoID: photoID, CaseID: caseID, SourcePath: args[0]}
			if c, err := a.store.CaseByID(cmd.Context(), caseID); err != nil {
				return err
			} else if c != nil {
				opts.CaseType = c.Type
				opts.Category = c.Category
			}

			record, extractErr := a.service.Extractor.Extract(cmd.Context(), imageBytes, opts)
			if record != nil {
				if err := a.store.SaveDNA(cmd.Context(), record); err != nil {
					return err
				}
				fmt.Printf("photo:   %s\n", record.PhotoID)
				fmt.Printf("dna:     %s\n", record.DNAID)
				fmt.Printf("status:  %s\n", record.Status)
				fmt.Printf("quality: %.0f (%s)\n", record.QualityScore, record.QualityTier)
			}
			return extractErr
		},
	}
	cmd.Flags().StringVar(&caseID, "case", "", "case the photo belongs to")
	cmd.Flags().StringVar(&photoID, "photo", "", "photo id (generated when omitted)")
	cmd.MarkFlagRequired("case")
	return cmd
}

func newMatchCommand(a *app) *cobra.Command {
	var caseID string
	cmd := &cobra.Command{
		Use:   "match <photo-id> [image-file]",
		Short: "Search the opposite-type corpus for matches",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var imageBytes []byte
			if len(args) == 2 {
				b, err := os.ReadFile(args[1])
				if err != nil {
					return err
				}
				imageBytes = b
			}

			result, err := a.service.FindMatchesForPhoto(cmd.Context(), args[0], caseID, imageBytes)
			if err != nil {
				return err
			}

			persistMatches(cmd.Context(), a.store, result.Matches)
			printMatches(result)
			return nil
		},
	}
	cmd.Flags().StringVar(&caseID, "case", "", "case id, needed when the photo is not yet extracted")
	return cmd
}

func newCompareCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <image-a> <image-b>",
		Short: "Compare two images directly, without touching the store",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			records := make([]*types.VisualDNA, 2)
			for i, path := range args {
				imageBytes, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				record, err := a.service.Extractor.Extract(cmd.Context(), imageBytes,
					dna.Options{PhotoID: path, SourcePath: path})
				if err != nil {
					return fmt.Errorf("extract %s: %w", path, err)
				}
				records[i] = record
			}

			cmp := matcher.CompareDNA(records[0], records[1], nil)
			fmt.Printf("overall:    %.1f\n", cmp.Overall)
			fmt.Printf("match type: %s\n", cmp.MatchType)
			for _, r := range cmp.Reasons {
				fmt.Printf("  %s %s (%.0f)\n", r.Icon, r.Text, r.Score)
			}
			if len(cmp.MatchedIdentifiers) > 0 {
				fmt.Printf("identifiers: %s\n", strings.Join(cmp.MatchedIdentifiers, ", "))
			}
			return nil
		},
	}
	return cmd
}

func newStatsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print corpus counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.store.GetStats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("open cases:      %d\n", st.OpenCases)
			fmt.Printf("photos:          %d\n", st.TotalPhotos)
			fmt.Printf("failed photos:   %d\n", st.FailedPhotos)
			fmt.Printf("stored matches:  %d\n", st.StoredMatches)
			fmt.Printf("confirmed:       %d\n", st.Confirmed)
			return nil
		},
	}
}

func persistMatches(ctx context.Context, store *database.Store, matches []types.MatchRecord) {
	for i := range matches {
		if err := store.SaveMatch(ctx, &matches[i]); err != nil {
			logging.Warn("failed to persist match", "match", matches[i].ID, "error", err)
		}
	}
}

func printMatches(result *matcher.SearchResult) {
	if len(result.Matches) == 0 {
		fmt.Printf("no matches (%s, scanned %d records)\n",
			result.Outcome.Verdict, result.Outcome.Visited)
		return
	}

	fmt.Printf("%d match(es):\n", len(result.Matches))
	for i, m := range result.Matches {
		fmt.Printf("%2d. %s  %.1f  [%s]\n", i+1, m.TargetPhotoID, m.Overall, m.MatchType)
		for _, r := range m.Reasons {
			fmt.Printf("      %s %s\n", r.Icon, r.Text)
		}
	}
}
