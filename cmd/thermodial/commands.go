package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/muurk/thermodial/internal/climate"
	"github.com/muurk/thermodial/internal/dial"
	"github.com/muurk/thermodial/internal/discovery"
	"github.com/muurk/thermodial/internal/logging"
	"github.com/muurk/thermodial/internal/ui"
)

// Command flags
var (
	scanTimeout  int
	outputFormat string
	callTimeout  time.Duration
)

func init() {
	rootCmd.PersistentFlags().DurationVar(&callTimeout, "timeout", 15*time.Second, "Timeout for one-shot commands")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(modeCmd)
}

// scanCmd discovers Home Assistant instances on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for Home Assistant instances on the network",
	Long: `Scan for Home Assistant instances using mDNS/DNS-SD discovery.

Home Assistant announces itself as _home-assistant._tcp. Every instance found
is listed with its URL, location name and version.`,
	Example: `  # Scan for 5 seconds (default)
  thermodial scan

  # Longer scan for busy networks
  thermodial scan --scan-timeout 15`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanTimeout, "scan-timeout", int(discovery.DefaultScanTimeout/time.Second), "Scan timeout in seconds")
}

func runScan(cmd *cobra.Command, args []string) error {
	p := ui.NewPrinter(cmd.OutOrStdout())
	p.PrintHeader("Home Assistant Discovery", "thermodial scan",
		ui.Param{Key: "Service", Value: discovery.ServiceType},
		ui.Param{Key: "Timeout", Value: fmt.Sprintf("%ds", scanTimeout)},
	)

	instances, err := discovery.QuickScan(cmd.Context(), time.Duration(scanTimeout)*time.Second)
	if err != nil {
		p.PrintError("Scan failed", err, []string{
			"Check that multicast traffic is allowed on this network",
			"Pass --url to connect without discovery",
		})
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(instances) == 0 {
		p.PrintError("No instances found", fmt.Errorf("nothing answered within %ds", scanTimeout), []string{
			"Ensure Home Assistant is running and the zeroconf integration is enabled",
			"Make sure this computer is on the same network segment",
			"Try increasing --scan-timeout",
			"Use --url to specify the address manually",
		})
		return nil
	}

	for i, inst := range instances {
		details := []ui.Param{
			{Key: "URL", Value: inst.BaseURL()},
			{Key: "Host", Value: strings.TrimSuffix(inst.Hostname, ".")},
		}
		if v := inst.Version(); v != "" {
			details = append(details, ui.Param{Key: "Version", Value: v})
		}
		if id := inst.UUID(); id != "" {
			details = append(details, ui.Param{Key: "UUID", Value: id})
		}
		p.PrintSuccess(fmt.Sprintf("%d. %s", i+1, inst.LocationName()), details...)
	}

	p.Println(fmt.Sprintf("Use 'thermodial --url %s --entity climate.<name>' to open the dial", instances[0].BaseURL()))
	p.Println("Use 'thermodial config init --url <url> --entity <entity>' to save it")
	return nil
}

// statusCmd prints the entity and a still picture of the dial
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current state of the climate entity",
	Long: `Connect to the climate entity, wait for its state and print it together
with a still picture of the dial.`,
	Example: `  # Default instance
  thermodial status

  # Machine readable
  thermodial status --format json
  thermodial status --format yaml`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, json, yaml)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withEntity(cmd, func(ctx context.Context, env entityEnv, st climate.State) error {
		out := cmd.OutOrStdout()
		switch outputFormat {
		case "json":
			data, err := json.MarshalIndent(st, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal JSON: %w", err)
			}
			_, err = fmt.Fprintln(out, string(data))
			return err
		case "yaml":
			data, err := yaml.Marshal(st)
			if err != nil {
				return fmt.Errorf("failed to marshal YAML: %w", err)
			}
			_, err = out.Write(data)
			return err
		case "detailed":
		default:
			return fmt.Errorf("unknown format %q (want detailed, json or yaml)", outputFormat)
		}

		w, err := dial.NewWidget(env.dialCfg)
		if err != nil {
			return err
		}
		w, _ = w.HandleEvent(dial.ExternalState{State: st})

		p := ui.NewPrinter(out)
		p.PrintHeader(entityTitle(st), "thermodial status", stateParams(env.target, st)...)
		p.PrintDial(w.Config, dial.Project(w))
		return nil
	})
}

// setCmd writes set-points without opening the dial
var setCmd = &cobra.Command{
	Use:   "set <temperature> | set <low> <high>",
	Short: "Set the target temperature",
	Long: `Write a new set-point without opening the dial.

One value sets the target temperature. Two values set the low and high
temperatures of an entity in heat_cool mode.`,
	Example: `  thermodial set 21.5
  thermodial set 19 24 --entity climate.office`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSet,
}

func runSet(cmd *cobra.Command, args []string) error {
	req, err := parseTemperatures(args)
	if err != nil {
		return err
	}

	return withEntity(cmd, func(ctx context.Context, env entityEnv, st climate.State) error {
		p := ui.NewPrinter(cmd.OutOrStdout())
		if req.IsDual() != st.IsDual() {
			want := "one temperature"
			if st.IsDual() {
				want = "a low and a high temperature"
			}
			err := fmt.Errorf("%s is in %s mode and takes %s", st.EntityID, st.Mode, want)
			p.PrintError("Set-point rejected", err, nil)
			return err
		}
		if !climate.NeedsWrite(st, req) {
			p.PrintWarning("Nothing to change",
				ui.Param{Key: "Entity", Value: st.EntityID},
				ui.Param{Key: "Set-point", Value: req.String()},
			)
			return nil
		}

		err := env.backend.SetTemperature(ctx, req)
		logging.LogCommit(st.EntityID, req, err)
		if err != nil {
			p.PrintError("Set-point not accepted", err, []string{
				fmt.Sprintf("The entity accepts %s to %s", formatTemp(st.Min, st.Unit), formatTemp(st.Max, st.Unit)),
				"Run 'thermodial status' to see the current mode",
			})
			return fmt.Errorf("failed to set temperature: %w", err)
		}
		p.PrintSuccess("Set-point sent",
			ui.Param{Key: "Entity", Value: st.EntityID},
			ui.Param{Key: "Was", Value: climate.TemperatureRequest{Target: st.Target, Low: st.TargetLow, High: st.TargetHigh}.String()},
			ui.Param{Key: "Now", Value: req.String()},
		)
		return nil
	})
}

// modeCmd switches the hvac mode
var modeCmd = &cobra.Command{
	Use:   "mode <hvac_mode>",
	Short: "Switch the hvac mode",
	Long: `Switch the hvac mode of the climate entity, e.g. off, heat, cool or
heat_cool. Only modes the entity lists are accepted.`,
	Example: `  thermodial mode heat
  thermodial mode off --instance bedroom`,
	Args: cobra.ExactArgs(1),
	RunE: runMode,
}

func runMode(cmd *cobra.Command, args []string) error {
	mode := args[0]
	return withEntity(cmd, func(ctx context.Context, env entityEnv, st climate.State) error {
		p := ui.NewPrinter(cmd.OutOrStdout())
		if len(st.AvailableModes) > 0 && !slices.Contains(st.AvailableModes, mode) {
			err := fmt.Errorf("%s does not support mode %q", st.EntityID, mode)
			p.PrintError("Mode rejected", err, []string{
				"Available modes: " + strings.Join(st.AvailableModes, ", "),
			})
			return err
		}
		if st.Mode == mode {
			p.PrintWarning("Nothing to change", ui.Param{Key: "Mode", Value: mode})
			return nil
		}

		err := env.backend.SetMode(ctx, mode)
		logging.LogModeChange(st.EntityID, mode, err)
		if err != nil {
			return fmt.Errorf("failed to set mode: %w", err)
		}
		p.PrintSuccess("Mode changed",
			ui.Param{Key: "Entity", Value: st.EntityID},
			ui.Param{Key: "Was", Value: st.Mode},
			ui.Param{Key: "Now", Value: mode},
		)
		return nil
	})
}

// entityEnv is what one-shot commands get to work with.
type entityEnv struct {
	target  target
	backend climate.Backend
	dialCfg dial.Config
}

// withEntity connects to the selected entity, waits for its first state and
// calls fn. The backend is closed afterwards.
func withEntity(cmd *cobra.Command, fn func(ctx context.Context, env entityEnv, st climate.State) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), callTimeout)
	defer cancel()

	reg, _, err := loadRegistry()
	if err != nil {
		return err
	}
	t, err := resolveTarget(ctx, reg, conn)
	if err != nil {
		return err
	}
	dialCfg, err := reg.DialConfig()
	if err != nil {
		return err
	}
	backend, err := openBackend(ctx, t, conn)
	if err != nil {
		return err
	}
	defer func() {
		_ = backend.Close()
	}()

	env := entityEnv{target: t, backend: backend, dialCfg: dialCfg}
	err = climate.Once(ctx, backend, func(ctx context.Context, st climate.State) error {
		return fn(ctx, env, st)
	})
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s did not answer within %s: %w", t.EntityID, callTimeout, err)
	}
	return err
}

func entityTitle(st climate.State) string {
	if st.Name != "" {
		return st.Name
	}
	return st.EntityID
}

// stateParams lists the entity attributes shown in headers.
func stateParams(t target, st climate.State) []ui.Param {
	params := []ui.Param{
		{Key: "Entity", Value: st.EntityID},
		{Key: "Source", Value: t.source()},
		{Key: "Mode", Value: st.Mode},
	}
	if st.Action != "" {
		params = append(params, ui.Param{Key: "Action", Value: st.Action})
	}
	if st.Ambient != nil {
		params = append(params, ui.Param{Key: "Ambient", Value: formatTemp(*st.Ambient, st.Unit)})
	}
	switch {
	case st.IsDual():
		params = append(params, ui.Param{Key: "Band", Value: formatTemp(*st.TargetLow, st.Unit) + " - " + formatTemp(*st.TargetHigh, st.Unit)})
	case st.Target != nil:
		params = append(params, ui.Param{Key: "Target", Value: formatTemp(*st.Target, st.Unit)})
	}
	if st.Preset != "" {
		params = append(params, ui.Param{Key: "Preset", Value: st.Preset})
	}
	params = append(params, ui.Param{Key: "Range", Value: formatTemp(st.Min, st.Unit) + " - " + formatTemp(st.Max, st.Unit)})
	return params
}

func formatTemp(v float64, unit string) string {
	if unit == "" {
		unit = "°C"
	}
	return fmt.Sprintf("%.1f%s", v, unit)
}
