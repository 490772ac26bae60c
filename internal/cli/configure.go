package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Scilence2022/CodeXomics-sub009/internal/config"
)

var (
	configurePort      int
	configureSecret    string
	configurePlugins   []string
	configureWatch     bool
	configureRemote    string
	configureMetrics   string
	configureNoHistory bool
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Write dispatcher configuration",
	Long: `Write the dispatcher configuration file. Values not set by a flag
keep their current value, or the default when no configuration exists yet.`,
	RunE: runConfigure,
}

func init() {
	configureCmd.Flags().IntVar(&configurePort, "gateway-port", 0, "gateway listen port")
	configureCmd.Flags().StringVar(&configureSecret, "shared-secret", "", "gateway shared secret (empty disables auth)")
	configureCmd.Flags().StringSliceVar(&configurePlugins, "plugin-dir", nil, "plugin directory (repeatable)")
	configureCmd.Flags().BoolVar(&configureWatch, "watch-plugins", false, "reload plugins when their directories change")
	configureCmd.Flags().StringVar(&configureRemote, "remote-endpoint", "", "remote delegate websocket endpoint (enables the delegate)")
	configureCmd.Flags().StringVar(&configureMetrics, "metrics-addr", "", "metrics listen address (enables metrics)")
	configureCmd.Flags().BoolVar(&configureNoHistory, "no-history", false, "disable the call history store")
	rootCmd.AddCommand(configureCmd)
}

func runConfigure(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("gateway-port") {
		cfg.Gateway.Port = configurePort
	}
	if flags.Changed("shared-secret") {
		cfg.Gateway.SharedSecret = configureSecret
	}
	if flags.Changed("plugin-dir") {
		cfg.Plugins.Dirs = configurePlugins
	}
	if flags.Changed("watch-plugins") {
		cfg.Plugins.Watch = configureWatch
	}
	if flags.Changed("remote-endpoint") {
		cfg.Remote.Enabled = configureRemote != ""
		cfg.Remote.Endpoint = configureRemote
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Enabled = configureMetrics != ""
		cfg.Metrics.Addr = configureMetrics
	}
	if flags.Changed("no-history") {
		cfg.History.Enabled = !configureNoHistory
	}

	validator := config.NewValidator()
	if errs := validator.ValidateConfig(cfg); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "config error: %v\n", e)
		}
		return fmt.Errorf("invalid configuration")
	}

	loader := config.NewLoader(cfgFile)
	if err := loader.Save(cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Printf("Configuration saved to: %s\n", loader.GetConfigPath())
	return nil
}
