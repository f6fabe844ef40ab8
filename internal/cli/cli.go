package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/happyhackingspace/chaincrf"
	"github.com/happyhackingspace/chaincrf/crf"
	"github.com/happyhackingspace/chaincrf/internal/banner"
	"github.com/happyhackingspace/chaincrf/internal/config"
	"github.com/spf13/cobra"
)

// CLI encapsulates the command-line interface with its dependencies.
type CLI struct {
	version     string
	verbose     bool
	silent      bool
	configPath  string
	config      config.Config
	initialized bool
	rootCmd     *cobra.Command
}

// New creates a new CLI instance with the given version string.
func New(version string) *CLI {
	c := &CLI{version: version}
	c.setupCommands()
	return c
}

// setupCommands initializes all CLI commands and their configurations.
func (c *CLI) setupCommands() {
	c.rootCmd = &cobra.Command{
		Use:           "chaincrf",
		Short:         "Linear-chain CRF tagger over precomputed emission scores",
		Version:       c.version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.initApp()
		},
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	c.rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable verbose/debug output")
	c.rootCmd.PersistentFlags().BoolVarP(&c.silent, "silent", "s", false, "Suppress all logging and banner")
	c.rootCmd.PersistentFlags().StringVar(&c.configPath, "config", "", "Path to config file (default: user config dir)")

	defaultHelp := c.rootCmd.HelpFunc()
	c.rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		_ = c.initApp()
		defaultHelp(cmd, args)
	})

	c.rootCmd.AddCommand(c.newInitCommand())
	c.rootCmd.AddCommand(c.newDecodeCommand())
	c.rootCmd.AddCommand(c.newScoreCommand())
	c.rootCmd.AddCommand(c.newInspectCommand())
	c.rootCmd.AddCommand(c.newUpCommand())
}

// Run executes the CLI and returns any error.
func (c *CLI) Run() error {
	err := c.rootCmd.Execute()
	if err != nil {
		slog.Error("Command failed", "error", err)
	}
	return err
}

// initApp initializes logging, prints the banner and loads the config file.
func (c *CLI) initApp() error {
	if c.initialized {
		return nil
	}
	c.initialized = true

	level := slog.LevelInfo
	if c.verbose {
		level = slog.LevelDebug
	}
	if c.silent {
		level = slog.Level(100)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
	if !c.silent {
		fmt.Fprint(os.Stderr, banner.Banner(c.version))
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.config = cfg
	slog.Debug("Config loaded", "path", c.configPath, "model", cfg.Model, "method", cfg.Method)
	return nil
}

// modelPath resolves the model file: the explicit argument, then the config
// file, then a model.json found from the working directory.
func (c *CLI) modelPath(arg string) (string, error) {
	if arg != "" {
		return arg, nil
	}
	if c.config.Model != "" {
		return c.config.Model, nil
	}
	path, err := chaincrf.Find("model.json")
	if err != nil {
		return "", fmt.Errorf("no model given: %w", err)
	}
	slog.Debug("Model auto-detected", "path", path)
	return path, nil
}

func (c *CLI) loadTagger(arg string, cfg crf.Config) (*chaincrf.Tagger, error) {
	path, err := c.modelPath(arg)
	if err != nil {
		return nil, err
	}
	slog.Debug("Loading model", "path", path)
	return chaincrf.Load(path, cfg)
}
