package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/thrivegame/thrive-launcher-cli/internal/config"
	"github.com/thrivegame/thrive-launcher-cli/internal/exitcodes"
	ui "github.com/thrivegame/thrive-launcher-cli/internal/ui"
)

// Version information - set via -ldflags during build
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// rootCmd wires the CLI surface using Cobra. Persistent flags are
// applied to a loaded config in loadCfg(). Subcommands implement the
// actual operations (versions, install, play, devbuild, update, etc.).
var rootCmd = &cobra.Command{
	Use:           "thrive-launcher",
	Short:         "Thrive Launcher",
	Long:          "Install, update and play Thrive: releases, store builds and DevBuilds.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Record rendering flags after parsing but before command
		// execution.
		ui.InitGlobal(flagNoColor, flagNoEmoji)

		// Set NO_COLOR env so libraries respect the flag too.
		if flagNoColor {
			os.Setenv("NO_COLOR", "1")
		}
	},
}

var (
	flagHome           string
	flagInfoURL        string
	flagDevCenterURL   string
	flagOutput         string
	flagVerbose        bool
	flagQuiet          bool
	flagNoColor        bool
	flagNoEmoji        bool
	flagYes            bool
	flagNonInteractive bool
)

func init() {
	// Persistent flags to override defaults
	rootCmd.PersistentFlags().StringVar(&flagHome, "home", "", "Launcher home directory (overrides env)")
	rootCmd.PersistentFlags().StringVar(&flagInfoURL, "info-url", "", "Launcher info blob URL (overrides default)")
	rootCmd.PersistentFlags().StringVar(&flagDevCenterURL, "devcenter-url", "", "DevCenter base URL (overrides default)")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "text", "Output format: json|yaml|text")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Quiet mode: minimal output (suppresses extras)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable ANSI colors")
	rootCmd.PersistentFlags().BoolVar(&flagNoEmoji, "no-emoji", false, "Disable emoji output")
	rootCmd.PersistentFlags().BoolVarP(&flagYes, "yes", "y", false, "Assume yes for all prompts")
	rootCmd.PersistentFlags().BoolVar(&flagNonInteractive, "non-interactive", false, "Fail instead of prompting")

	// Replace root help to present grouped, example-rich output.
	// Only apply custom help to the root command; subcommands use cobra's
	// default help.
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd != rootCmd {
			fmt.Fprintln(os.Stdout, cmd.UsageString())
			return
		}
		// Help runs before PersistentPreRun, so manually configure colors
		c := ui.NewColorConfig()
		c.Enabled = c.Enabled && !flagNoColor
		c.EmojiEnabled = c.EmojiEnabled && !flagNoEmoji
		w := os.Stdout

		// Fixed column width for command alignment (longest command + buffer)
		const cmdWidth = 30

		fmt.Fprintln(w, c.Header(" Thrive Launcher "))
		fmt.Fprintln(w, c.Description("Install, update and play Thrive: releases, store builds and DevBuilds."))
		fmt.Fprintln(w, c.Separator(50))
		fmt.Fprintln(w)

		fmt.Fprintln(w, c.SubHeader("USAGE"))
		fmt.Fprintf(w, "  %s <command> [flags]\n", "thrive-launcher")
		fmt.Fprintln(w)

		fmt.Fprintln(w, c.SubHeader("Quick Start"))
		fmt.Fprintln(w, c.FormatCommandAligned("play [version]", "Install if needed, then play", cmdWidth))
		fmt.Fprintln(w, c.FormatCommandAligned("versions", "List playable versions", cmdWidth))
		fmt.Fprintln(w)

		fmt.Fprintln(w, c.SubHeader("Installing"))
		fmt.Fprintln(w, c.FormatCommandAligned("install <version>", "Install a release", cmdWidth))
		fmt.Fprintln(w, c.FormatCommandAligned("devbuild <botd|latest|id>", "Resolve and install a DevBuild", cmdWidth))
		fmt.Fprintln(w)

		fmt.Fprintln(w, c.SubHeader("Maintenance"))
		fmt.Fprintln(w, c.FormatCommandAligned("update", "Update the launcher itself", cmdWidth))
		fmt.Fprintln(w, c.FormatCommandAligned("logs", "Show or follow the game log", cmdWidth))
		fmt.Fprintln(w, c.FormatCommandAligned("doctor", "Check the local setup", cmdWidth))
		fmt.Fprintln(w, c.FormatCommandAligned("version", "Show launcher version", cmdWidth))
		fmt.Fprintln(w)

		fmt.Fprintln(w, c.SubHeader("FLAGS"))
		fmt.Fprint(w, cmd.Flags().FlagUsages())
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "versions",
		Short: "List playable versions and their install state",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDeps()
			if err != nil {
				return err
			}
			return handleVersions(d)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "install <version>",
		Short: "Install a release (a number, or latest)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDeps()
			if err != nil {
				return err
			}
			return handleInstall(d, args[0])
		},
	})

	playCmd := &cobra.Command{
		Use:   "play [version]",
		Short: "Install if needed, then launch and supervise the game",
		Args:  cobra.RangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDeps()
			if err != nil {
				return err
			}
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return handlePlay(d, name)
		},
	}
	rootCmd.AddCommand(playCmd)

	var devBuildResolveOnly bool
	devBuildCmd := &cobra.Command{
		Use:   "devbuild <botd|latest|id>",
		Short: "Resolve and install a DevBuild from the DevCenter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDeps()
			if err != nil {
				return err
			}
			return handleDevBuild(d, args[0], devBuildResolveOnly)
		},
	}
	devBuildCmd.Flags().BoolVar(&devBuildResolveOnly, "resolve-only", false, "Show what the selection resolves to without installing")
	rootCmd.AddCommand(devBuildCmd)

	var logsFollow bool
	var logsLines int
	var logsFile string
	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Show or follow the game log",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDeps()
			if err != nil {
				return err
			}
			return handleLogs(d, logsFile, logsFollow, logsLines)
		},
	}
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Keep following the log as it grows")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 50, "Number of trailing lines to show")
	logsCmd.Flags().StringVar(&logsFile, "file", "", "Log file path (defaults to the game's log location)")
	rootCmd.AddCommand(logsCmd)

	var updateCheckFailed bool
	var updateRetry bool
	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Update the launcher itself",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDeps()
			if err != nil {
				return err
			}
			return handleUpdate(d, updateCheckFailed, updateRetry)
		},
	}
	updateCmd.Flags().BoolVar(&updateCheckFailed, "check-failed", false, "Check whether a previous update attempt got stuck")
	updateCmd.Flags().BoolVar(&updateRetry, "retry", false, "With --check-failed, retry the stuck attempt's installer")
	rootCmd.AddCommand(updateCmd)

	var doctorStrict bool
	doctorCmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check disk space, tools and connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDeps()
			if err != nil {
				return err
			}
			return handleDoctor(d, doctorStrict)
		},
	}
	doctorCmd.Flags().BoolVar(&doctorStrict, "strict", false, "Exit non-zero when any check fails")
	rootCmd.AddCommand(doctorCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show launcher version",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := ui.NewPrinterFromGlobal(flagOutput)
			v := struct {
				Version   string `json:"version" yaml:"version"`
				Commit    string `json:"commit" yaml:"commit"`
				BuildDate string `json:"build_date" yaml:"build_date"`
			}{Version, Commit, BuildDate}
			if p.Structured(v) {
				return nil
			}
			if flagQuiet {
				fmt.Println(Version)
				return nil
			}
			p.KeyValueLine("Version", Version, "")
			p.KeyValueLine("Commit", Commit, "dim")
			p.KeyValueLine("Built", BuildDate, "dim")
			return nil
		},
	})
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitcodes.CodeForError(err))
	}
}

// loadCfg reads defaults + env via internal/config.Load() and then
// applies overrides from persistent flags (home, info-url, devcenter-url).
func loadCfg() config.Config {
	cfg := config.Load()
	if flagHome != "" {
		cfg.HomeDir = flagHome
		cfg.InstallsDir = filepath.Join(flagHome, "installed")
		cfg.ObjectCache = filepath.Join(flagHome, "dehydrated")
		cfg.TempDir = filepath.Join(flagHome, "temp")
	}
	if flagInfoURL != "" {
		cfg.InfoURL = flagInfoURL
	}
	if flagDevCenterURL != "" {
		cfg.DevCenterURL = flagDevCenterURL
	}
	return cfg
}

// parseBuildID parses a manual DevBuild selection.
func parseBuildID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil && id > 0
}
