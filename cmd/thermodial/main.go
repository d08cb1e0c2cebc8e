// Thermodial is a terminal thermostat dial for climate entities.
//
// It follows one climate entity (Home Assistant over its websocket API, an
// MQTT climate device, or a built-in simulator) and lets the set-point be
// dragged or tapped with the mouse or nudged from the keyboard. Changes are
// written back once the dial has been left alone for a moment.
//
// Usage:
//
//	thermodial [command] [flags]
//
// Running without arguments opens the dial for the default instance.
// See 'thermodial --help' for available commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/thermodial/internal/config"
	"github.com/muurk/thermodial/internal/logging"
	"github.com/muurk/thermodial/internal/tui"
	"github.com/muurk/thermodial/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath string
	logLevel   string
	logFile    string
	logJSON    bool
	conn       connFlags
)

var rootCmd = &cobra.Command{
	Use:   "thermodial",
	Short: "Terminal thermostat dial",
	Long: `A thermostat dial for the terminal.

Drag the ring or tap the arrows with the mouse, or use the arrow keys, to
change the set-point of a climate entity. Dual set-point entities (heat_cool)
show a low and a high handle. The new value is sent once the dial has been
left alone for a moment.

The entity can live in Home Assistant (websocket API), behind an MQTT broker,
or in the built-in simulator (--backend demo).

If no command is specified, the dial opens for the default instance.`,
	Version: version.Version,
	Example: `  # Open the dial for the default instance in the config file
  thermodial

  # Home Assistant, token from the environment
  THERMODIAL_TOKEN=... thermodial --url http://homeassistant.local:8123 --entity climate.living_room

  # MQTT climate device
  thermodial --backend mqtt --url tcp://broker:1883 --prefix homeassistant --entity climate.office

  # Try it out without any hardware
  thermodial --backend demo`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.InitializeWithOptions(logging.Options{
			Level: logLevel,
			File:  logFile,
			JSON:  logJSON,
		})
	},
	RunE: runDial,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/thermodial/config.yaml, or "+config.ConfigPathEnvVar+")")
	pf.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent when unset")
	pf.StringVar(&logFile, "log-file", "", "Write logs to this file instead of stderr")
	pf.BoolVar(&logJSON, "log-json", false, "Write logs as JSON")
	conn.register(pf)

	rootCmd.AddCommand(versionCmd)
}

func runDial(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	reg, path, err := loadRegistry()
	if err != nil {
		return err
	}
	t, err := resolveTarget(ctx, reg, conn)
	if err != nil {
		return err
	}
	dialCfg, err := reg.DialConfig()
	if err != nil {
		return fmt.Errorf("invalid dial settings in %s: %w", path, err)
	}
	backend, err := openBackend(ctx, t, conn)
	if err != nil {
		return err
	}

	logging.Info("Opening dial",
		zap.String("kind", t.Kind),
		zap.String("entity_id", t.EntityID),
		zap.String("url", t.URL),
	)

	err = tui.Run(ctx, tui.Options{
		Backend: backend,
		Dial:    dialCfg,
		Title:   t.EntityID,
		Source:  t.source(),
	})
	if err != nil {
		return err
	}

	if t.Name != "" {
		reg.UpdateInstanceLastSeen(t.Name)
		if err := reg.SaveFile(path); err != nil {
			logging.Warn("Failed to record last connection", zap.Error(err))
		}
	}
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("thermodial %s (commit: %s)\n", version.Version, version.Commit)
	},
}
