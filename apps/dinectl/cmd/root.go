package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	dinetap "github.com/dinetap/dinetap-go"
	sdkconfig "github.com/dinetap/dinetap-go/config"

	"github.com/dinetap/dinetap-go/apps/dinectl/cmd/config"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   config.AppName,
	Short: "dinectl is a CLI for the DineTap ordering platform",
	Long:  `A command-line client for browsing menus, placing and tracking orders, calling a waiter and managing group orders on a DineTap venue.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := zerolog.WarnLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		zlog.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			Level(level).
			With().
			Timestamp().
			Logger()
		return config.InitConfig()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&config.CfgFile, "config", "",
		fmt.Sprintf("config file (default is $HOME/.%s/config.yaml)", config.AppName))
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// newClient builds an SDK client for the current context and runs the session
// bootstrap so stored credentials come back to life.
func newClient(cmd *cobra.Command) (*dinetap.Client, error) {
	ctxCfg, err := config.GetCurrentContext()
	if err != nil {
		return nil, err
	}

	cfg := &sdkconfig.Config{
		BaseURL:     ctxCfg.ServerEndpoint,
		HTTPTimeout: 30 * time.Second,
		StorePath:   ctxCfg.DefaultStorePath(),
		TableCode:   ctxCfg.TableCode,
		VenueID:     ctxCfg.VenueID,
	}
	client, err := dinetap.New(cfg)
	if err != nil {
		return nil, err
	}
	client.Bootstrap(cmd.Context(), nil)
	return client, nil
}
