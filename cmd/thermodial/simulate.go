package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/thermodial/internal/climate"
	"github.com/muurk/thermodial/internal/discovery"
	"github.com/muurk/thermodial/internal/logging"
	"github.com/muurk/thermodial/internal/mqttclimate"
	"github.com/muurk/thermodial/internal/server"
	"github.com/muurk/thermodial/internal/ui"
)

// defaultSimToken is used when no token is given, so that a quick
// 'thermodial simulate' and 'thermodial --token ...' pair just works.
const defaultSimToken = "thermodial-simulator"

// Simulate command flags
var (
	simHost      string
	simPort      int
	simCert      string
	simKey       string
	simDrift     time.Duration
	simAdvertise bool
	simLocation  string
	simMQTT      string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a simulated Home Assistant with one climate entity",
	Long: `Start a small stand-in for Home Assistant that serves the websocket API
and a read-only slice of the REST API for one simulated climate entity.

The simulated room drifts toward the set-point while the entity is heating or
cooling. Point the dial (or anything else that speaks the Home Assistant
websocket API) at it to try things out without a real installation.

With --mqtt the same entity is also published on an MQTT broker using the
thermodial climate topics, so 'thermodial --backend mqtt' can drive it.`,
	Example: `  # Serve climate.simulated on port 8123
  thermodial simulate

  # Custom entity and token, announced over mDNS
  thermodial simulate --entity climate.lab --token secret --advertise

  # Serve wss with your own certificate
  thermodial simulate --cert cert.pem --key key.pem --port 8443

  # Also bridge the entity to an MQTT broker
  thermodial simulate --mqtt tcp://localhost:1883`,
	Args: cobra.NoArgs,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().StringVar(&simHost, "host", "", "Listen address (empty = all interfaces)")
	simulateCmd.Flags().IntVar(&simPort, "port", 8123, "Listen port")
	simulateCmd.Flags().StringVar(&simCert, "cert", "", "TLS certificate file (serves wss when set with --key)")
	simulateCmd.Flags().StringVar(&simKey, "key", "", "TLS private key file")
	simulateCmd.Flags().DurationVar(&simDrift, "drift", climate.DefaultDriftInterval, "Simulated thermal tick (0 keeps the room temperature fixed)")
	simulateCmd.Flags().BoolVar(&simAdvertise, "advertise", false, "Announce the simulator over mDNS so 'thermodial scan' finds it")
	simulateCmd.Flags().StringVar(&simLocation, "location", "Simulated Home", "Location name reported to clients")
	simulateCmd.Flags().StringVar(&simMQTT, "mqtt", "", "Also publish the entity on this MQTT broker")

	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if (simCert != "") != (simKey != "") {
		return fmt.Errorf("both --cert and --key must be provided together, or neither")
	}
	for _, f := range []string{simCert, simKey} {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", f)
		}
	}

	entityID := firstNonEmpty(conn.entity, "climate.simulated")
	token := firstNonEmpty(conn.token, os.Getenv(TokenEnvVar), defaultSimToken)

	sim := climate.NewSimulator(climate.DefaultSimulatedState(entityID))
	srv, err := server.New(&server.Config{
		Host:          simHost,
		Port:          simPort,
		CertPath:      simCert,
		KeyPath:       simKey,
		Token:         token,
		LocationName:  simLocation,
		DriftInterval: simDrift,
	}, sim)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	scheme := "http"
	if simCert != "" {
		scheme = "https"
	}
	host := simHost
	if host == "" {
		host = "localhost"
	}
	baseURL := fmt.Sprintf("%s://%s:%d", scheme, host, simPort)

	params := []ui.Param{
		{Key: "URL", Value: baseURL},
		{Key: "Entity", Value: entityID},
		{Key: "Token", Value: token},
		{Key: "Drift", Value: simDrift.String()},
	}
	if simMQTT != "" {
		params = append(params, ui.Param{Key: "MQTT", Value: simMQTT + " " + mqttclimate.TopicsFor(conn.prefix, entityID).State})
	}
	p := ui.NewPrinter(cmd.OutOrStdout())
	p.PrintHeader("Simulated Home Assistant", "thermodial simulate", params...)
	p.Println(fmt.Sprintf("Connect with: thermodial --url %s --entity %s --token %s", baseURL, entityID, token))
	p.Newline()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if simAdvertise {
		ad, err := discovery.Advertise(simLocation, simPort, map[string]string{
			"base_url":      baseURL,
			"location_name": simLocation,
			"version":       server.DefaultHAVersion,
			"uuid":          "thermodial-" + strconv.Itoa(os.Getpid()),
		})
		if err != nil {
			return err
		}
		defer ad.Shutdown()
		logging.Info("Advertising simulator over mDNS", zap.String("service", discovery.ServiceType))
	}

	if simMQTT != "" {
		mc, err := mqttclimate.Dial(mqttclimate.BrokerConfig{
			URL:      simMQTT,
			ClientID: fmt.Sprintf("thermodial-sim-%d", os.Getpid()),
			Username: conn.username,
			Password: firstNonEmpty(conn.password, os.Getenv(MQTTPasswordEnvVar)),
		})
		if err != nil {
			return fmt.Errorf("failed to connect to MQTT broker: %w", err)
		}
		defer func() {
			cancel()
			_ = mc.Close()
		}()
		bridge := mqttclimate.NewBridge(mc, sim, conn.prefix, entityID)
		go func() {
			if err := bridge.Run(ctx); err != nil && ctx.Err() == nil {
				logging.Error("MQTT bridge stopped", zap.Error(err))
			}
		}()
	}

	return srv.Start()
}
