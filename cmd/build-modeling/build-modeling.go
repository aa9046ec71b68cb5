package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/vbauerster/mpb"
	"github.com/willbeason/review-risk/pkg/olist"
	"golang.org/x/term"
)

const (
	FlagDataDir   = "data-dir"
	FlagSavePath  = "save-path"
	FlagStrictZip = "strict-zip"
	FlagProfile   = "profile"
	FlagProgress  = "progress"
	FlagLogLevel  = "log-level"
	FlagEnvFile   = "env-file"
)

// Config keys. With the OLIST prefix they are read from OLIST_DATA_DIR and
// OLIST_MODELING_PATH.
const (
	keyDataDir      = "data_dir"
	keyModelingPath = "modeling_path"
)

const (
	defaultDataDir      = "data"
	defaultModelingPath = "data/modeling.parquet"
	defaultWidth        = 80
)

func main() {
	err := newCmd().Execute()
	if err != nil {
		os.Exit(1)
	}
}

func newCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "build-modeling",
		Short:   "joins the Olist extracts into a labelled order-level modeling table",
		Args:    cobra.NoArgs,
		Version: "0.1.0",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runE(cmd, v)
		},
	}

	cmd.Flags().String(FlagDataDir, defaultDataDir, "directory holding the Olist CSV extracts")
	cmd.Flags().String(FlagSavePath, defaultModelingPath, "where to write the table; .parquet for Parquet, otherwise CSV")
	cmd.Flags().Bool(FlagStrictZip, false, "never match orders without a zip code prefix to geolocation prefix 0")
	cmd.Flags().Bool(FlagProfile, false, "print a value profile of every column")
	cmd.Flags().Bool(FlagProgress, false, "show progress bars while loading")
	cmd.Flags().String(FlagLogLevel, "info", "log level (debug, info, warn, error)")
	cmd.Flags().String(FlagEnvFile, ".env", "optional dotenv file to load before reading the environment")

	bindConfig(v, cmd.Flags())

	return cmd
}

// bindConfig lets the environment stand in for the path flags.
func bindConfig(v *viper.Viper, flags *pflag.FlagSet) {
	_ = v.BindPFlag(keyDataDir, flags.Lookup(FlagDataDir))
	_ = v.BindPFlag(keyModelingPath, flags.Lookup(FlagSavePath))
	v.SetEnvPrefix("OLIST")
	v.AutomaticEnv()
}

func runE(cmd *cobra.Command, v *viper.Viper) error {
	envFile, err := cmd.Flags().GetString(FlagEnvFile)
	if err != nil {
		return err
	}
	if envFile != "" {
		err = godotenv.Load(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %q: %w", envFile, err)
		}
	}

	level, err := cmd.Flags().GetString(FlagLogLevel)
	if err != nil {
		return err
	}
	logger, err := newLogger(level)
	if err != nil {
		return err
	}

	strict, err := cmd.Flags().GetBool(FlagStrictZip)
	if err != nil {
		return err
	}
	withProfile, err := cmd.Flags().GetBool(FlagProfile)
	if err != nil {
		return err
	}
	withProgress, err := cmd.Flags().GetBool(FlagProgress)
	if err != nil {
		return err
	}

	dataDir := v.GetString(keyDataDir)
	savePath := v.GetString(keyModelingPath)

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Data dir: %s\n", dataDir)
	_, _ = fmt.Fprintf(out, "Save path: %s\n", savePath)

	opts := olist.Options{
		Logger:        logger,
		Report:        out,
		Profile:       withProfile,
		StrictZipJoin: strict,
		SavePath:      savePath,
	}
	if withProgress {
		opts.Progress = mpb.New(mpb.WithWidth(terminalWidth()))
	}

	record, err := olist.BuildModelingTable(cmd.Context(), dataDir, opts)
	if err != nil {
		logger.Error("building modeling table", "error", err)
		return err
	}
	record.Release()
	if opts.Progress != nil {
		opts.Progress.Wait()
	}

	_, _ = fmt.Fprintln(out, "Done.")
	return nil
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width
}

func newLogger(level string) (*slog.Logger, error) {
	var slogLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level %q", level)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel}))
	slog.SetDefault(logger)
	return logger, nil
}
