package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"edgescan/internal/app"
)

var (
	appInstance *app.App
	version     = "dev"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "edgescan",
	Short: "Scan CDN edge IPs for endpoints that perform well through a proxy tunnel",
	Long: `edgescan - find well-performing CDN edge IPs

  Expands provider address blocks into a bounded sample of candidate IPs,
  probes each one through a disposable xray tunnel, and writes per-IP
  download/upload speed and latency statistics to a timestamped CSV.

  Quick start:
    edgescan scan --subnets subnets.txt --template client.json
    edgescan scan --subnets https://example.com/iplist --upload -n 3
    edgescan history`,
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		appInstance, err = app.New()
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if appInstance != nil {
			return appInstance.Close()
		}
		return nil
	},
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("edgescan %s\n", version)
	},
}
