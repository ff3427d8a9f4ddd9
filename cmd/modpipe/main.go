package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-shiori/modpipe"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	// Execute
	err := newRootCmd().Execute()
	if err != nil {
		logrus.Fatalln(err)
	}
}

func newRootCmd() *cobra.Command {
	// Prepare cmd
	cmd := &cobra.Command{
		Use:   "modpipe",
		Short: "Scrape, download and unpack game mods",
		Long: `modpipe runs in three independent stages:

  modpipe parse    read mod pages listed in the links file into the results file
  modpipe fetch    download one archive per result into the downloads directory
  modpipe unpack   extract and organize every archive into the output directory

Paths and other settings are read from modpipe.yaml (or .toml/.json) and
from MODPIPE_* environment variables.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolP("quiet", "q", false, "only log warnings and the final summary")
	cmd.PersistentFlags().Bool("verbose", false, "more verbose logging")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "parse",
			Short: "Parse mod pages into the results file",
			Args:  cobra.NoArgs,
			RunE:  parseHandler,
		},
		&cobra.Command{
			Use:   "fetch",
			Short: "Download one archive for every parsed mod",
			Args:  cobra.NoArgs,
			RunE:  fetchHandler,
		},
		&cobra.Command{
			Use:   "unpack",
			Short: "Extract and organize downloaded archives",
			Args:  cobra.NoArgs,
			RunE:  unpackHandler,
		},
	)

	return cmd
}

type runOptions struct {
	cfg              config
	enableLog        bool
	enableVerboseLog bool
}

func prepareRun(cmd *cobra.Command) (runOptions, error) {
	// Parse flags
	disableLog, _ := cmd.Flags().GetBool("quiet")
	useVerboseLog, _ := cmd.Flags().GetBool("verbose")

	switch {
	case disableLog:
		logrus.SetLevel(logrus.WarnLevel)
	case useVerboseLog:
		logrus.SetLevel(logrus.DebugLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}

	cfg, err := loadConfig(viper.New())
	if err != nil {
		return runOptions{}, err
	}

	return runOptions{
		cfg:              cfg,
		enableLog:        !disableLog,
		enableVerboseLog: !disableLog && useVerboseLog,
	}, nil
}

func parseHandler(cmd *cobra.Command, args []string) error {
	opts, err := prepareRun(cmd)
	if err != nil {
		return err
	}

	parser := &modpipe.Parser{
		Selectors:           opts.cfg.Parser,
		UserAgent:           opts.cfg.UserAgent,
		EnableLog:           opts.enableLog,
		EnableVerboseLog:    opts.enableVerboseLog,
		RequestTimeout:      time.Duration(opts.cfg.Timeout) * time.Second,
		SkipTLSVerification: opts.cfg.Insecure,
	}
	parser.Validate()

	summary, err := modpipe.ParseLinks(context.Background(), parser, opts.cfg.LinksFile, opts.cfg.ResultsFile)
	if err != nil {
		return err
	}

	printSummary(cmd, summary)
	return nil
}

func fetchHandler(cmd *cobra.Command, args []string) error {
	opts, err := prepareRun(cmd)
	if err != nil {
		return err
	}

	fetcher := &modpipe.Fetcher{
		DownloadsDir:        opts.cfg.DownloadsDir,
		IncludePatchVersion: opts.cfg.IncludePatchVersion,
		UserAgent:           opts.cfg.UserAgent,
		EnableLog:           opts.enableLog,
		EnableVerboseLog:    opts.enableVerboseLog,
		RequestTimeout:      time.Duration(opts.cfg.Timeout) * time.Second,
		SkipTLSVerification: opts.cfg.Insecure,
	}
	fetcher.Validate()

	summary, err := modpipe.FetchArchives(context.Background(), fetcher, opts.cfg.ResultsFile)
	if err != nil {
		return err
	}

	printSummary(cmd, summary)
	return nil
}

func unpackHandler(cmd *cobra.Command, args []string) error {
	opts, err := prepareRun(cmd)
	if err != nil {
		return err
	}

	unpacker := &modpipe.Unpacker{
		DownloadsDir: opts.cfg.DownloadsDir,
		OutputDir:    opts.cfg.OutputDir,
		Cleaner: &modpipe.Cleaner{
			JunkFiles:   opts.cfg.Cleanup.JunkFiles,
			JunkDirs:    opts.cfg.Cleanup.JunkDirs,
			KeepRoots:   opts.cfg.Cleanup.KeepRoots,
			GameVersion: opts.cfg.GameVersion,
		},
		EnableLog:        opts.enableLog,
		EnableVerboseLog: opts.enableVerboseLog,
	}
	if err := unpacker.Validate(); err != nil {
		return err
	}

	summary, err := unpacker.Run(context.Background())
	if err != nil {
		return err
	}

	printSummary(cmd, summary)
	return nil
}

// printSummary writes the end of run summary. Per-item failures are part
// of the summary and don't change the exit status.
func printSummary(cmd *cobra.Command, summary modpipe.Summary) {
	fmt.Fprintln(cmd.OutOrStdout(), summary.String())
}
