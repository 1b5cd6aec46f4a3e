package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/derekprior/kickoff/internal/config"
	"github.com/derekprior/kickoff/internal/logging"
	"github.com/derekprior/kickoff/internal/settings"
	"github.com/derekprior/kickoff/internal/store"
)

// app carries what every command needs once flags are parsed.
type app struct {
	settingsFile string
	configFile   string

	settings *settings.Settings
	logger   *zap.Logger
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	s, err := settings.Load(a.settingsFile)
	if err != nil {
		return err
	}
	logger, err := logging.New(s.Log.Level, s.Log.Format)
	if err != nil {
		return err
	}
	a.settings = s
	a.logger = logger
	return nil
}

func (a *app) tournamentPath() (string, error) {
	path := a.configFile
	if path == "" {
		path = a.settings.Tournament
	}
	if _, err := os.Stat(path); err != nil {
		return "", errors.Newf("no tournament file found at %s. Run `kickoff init` or pass --config", path)
	}
	return path, nil
}

func (a *app) loadTournament() (*config.Config, error) {
	path, err := a.tournamentPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "loading tournament")
	}
	return cfg, nil
}

func (a *app) openStore(ctx context.Context) (*store.Store, error) {
	return store.Open(ctx, a.settings.Database.Driver, a.settings.Database.DSN, a.logger)
}

func main() {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:               "kickoff",
		Short:             "Football tournament fixture scheduler",
		PersistentPreRunE: a.setup,
	}
	rootCmd.PersistentFlags().StringVar(&a.settingsFile, "settings", "", "Path to settings file (default: kickoff.yaml in current directory)")
	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", "Path to tournament file (default: the settings' tournament path)")

	var initOutputPath string
	initCmd := &cobra.Command{
		Use:          "init",
		Short:        "Create a starter tournament.yaml in the current directory",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(initOutputPath)
		},
	}
	initCmd.Flags().StringVarP(&initOutputPath, "output", "o", "tournament.yaml", "Output path for the tournament file")

	teamsCmd := &cobra.Command{
		Use:   "teams",
		Short: "Manage stored groups and teams",
	}
	importCmd := &cobra.Command{
		Use:          "import",
		Short:        "Replace the stored groups and teams with those of the tournament file",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTeamsImport(cmd.Context())
		},
	}
	teamsCmd.AddCommand(importCmd)

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Generate, validate and inspect schedules",
	}

	var gen generateOptions
	generateCmd := &cobra.Command{
		Use:          "generate",
		Short:        "Generate the schedule, or regenerate it from one stage on",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runGenerate(cmd.Context(), gen)
		},
	}
	generateCmd.Flags().StringVar(&gen.stage, "stage", "", "Regenerate this stage and the ones after it, keeping earlier stages from the database")
	generateCmd.Flags().BoolVar(&gen.fromDB, "from-db", false, "Take groups and teams from the database instead of the tournament file")
	generateCmd.Flags().BoolVar(&gen.dryRun, "dry-run", false, "Do not store the generated schedule")
	generateCmd.Flags().StringVarP(&gen.output, "output", "o", "schedule.xlsx", "Output Excel file path (empty to skip)")

	validateCmd := &cobra.Command{
		Use:          "validate <schedule.xlsx>",
		Short:        "Validate a schedule workbook against the tournament rules",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runValidate(args[0])
		},
	}

	var showStage string
	showCmd := &cobra.Command{
		Use:          "show",
		Short:        "Print the stored schedule",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runShow(cmd.Context(), showStage)
		},
	}
	showCmd.Flags().StringVar(&showStage, "stage", "", "Only show this stage")

	var clearStage string
	clearCmd := &cobra.Command{
		Use:          "clear",
		Short:        "Delete the stored schedule",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runClear(cmd.Context(), clearStage)
		},
	}
	clearCmd.Flags().StringVar(&clearStage, "stage", "", "Only delete this stage")

	scheduleCmd.AddCommand(generateCmd, validateCmd, showCmd, clearCmd)
	rootCmd.AddCommand(initCmd, teamsCmd, scheduleCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	if err != nil {
		os.Exit(1)
	}
}
