package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/thermodial/internal/config"
	"github.com/muurk/thermodial/internal/ui"
)

// Config command flags
var (
	forceInit  bool
	assumeYes  bool
	setDefault bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the thermodial configuration file",
	Long: `Create and inspect the configuration file.

The file names the climate entities the dial can open (instances) and holds
dial preferences. Access tokens and MQTT passwords are never written to it;
pass them with --token/--password or ` + TokenEnvVar + `/` + MQTTPasswordEnvVar + `.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration file",
	Long: `Write a configuration file with a demo instance and, when --url and
--entity are given, a Home Assistant instance that becomes the default.`,
	Example: `  thermodial config init
  thermodial config init --url http://homeassistant.local:8123 --entity climate.living_room
  thermodial config init --force`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the configuration in effect",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add or replace a named instance",
	Long: `Add an instance built from --backend, --url, --entity, --prefix,
--username and --insecure. An existing instance with the same name is
replaced.`,
	Example: `  thermodial config add office --backend mqtt --url tcp://broker:1883 --entity climate.office
  thermodial config add home --url http://homeassistant.local:8123 --entity climate.hall --default`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigAdd,
}

var configRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a named instance",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigRemove,
}

func init() {
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing configuration file")
	configInitCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask before overwriting")
	configAddCmd.Flags().BoolVar(&setDefault, "default", false, "Make this the default instance")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configAddCmd)
	configCmd.AddCommand(configRemoveCmd)
	rootCmd.AddCommand(configCmd)
}

func registryPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.GetConfigPath()
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, err := registryPath()
	if err != nil {
		return err
	}

	if forceInit && !assumeYes {
		if _, err := os.Stat(path); err == nil {
			ok := ui.Confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Overwrite configuration",
				[]string{
					"The existing file at " + path + " will be replaced",
					"All named instances and dial settings in it are lost",
				}, "overwrite")
			if !ok {
				return nil
			}
		}
	}

	reg, err := config.CreateDefaultConfig(path, conn.url, conn.entity, forceInit)
	if err != nil {
		return err
	}

	p := ui.NewPrinter(cmd.OutOrStdout())
	p.PrintSuccess("Configuration written",
		ui.Param{Key: "Path", Value: path},
		ui.Param{Key: "Instances", Value: strings.Join(reg.InstanceNames(), ", ")},
		ui.Param{Key: "Default", Value: reg.Preferences.DefaultInstance},
	)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	reg, path, err := loadRegistry()
	if err != nil {
		return err
	}
	data, err := reg.Marshal()
	if err != nil {
		return err
	}

	p := ui.NewPrinter(cmd.OutOrStdout())
	exists := "yes"
	if _, err := os.Stat(path); err != nil {
		exists = "no (showing defaults)"
	}
	p.PrintHeader("Configuration", "thermodial config show",
		ui.Param{Key: "Path", Value: path},
		ui.Param{Key: "Exists", Value: exists},
	)
	p.Println(string(data))
	return nil
}

func runConfigAdd(cmd *cobra.Command, args []string) error {
	name := args[0]
	reg, path, err := loadRegistry()
	if err != nil {
		return err
	}

	inst := &config.Instance{
		Kind:     firstNonEmpty(conn.kind, config.KindHass),
		URL:      conn.url,
		EntityID: conn.entity,
		Prefix:   conn.prefix,
		Username: conn.username,
		Insecure: conn.insecure,
	}
	if inst.Kind == config.KindDemo && inst.EntityID == "" {
		inst.EntityID = demoEntity
	}
	if err := reg.SetInstance(name, inst); err != nil {
		return err
	}
	if setDefault {
		reg.Preferences.DefaultInstance = name
	}
	if err := reg.SaveFile(path); err != nil {
		return err
	}

	p := ui.NewPrinter(cmd.OutOrStdout())
	p.PrintSuccess("Instance saved",
		ui.Param{Key: "Name", Value: name},
		ui.Param{Key: "Kind", Value: inst.Kind},
		ui.Param{Key: "Entity", Value: inst.EntityID},
		ui.Param{Key: "Default", Value: reg.Preferences.DefaultInstance},
		ui.Param{Key: "Path", Value: path},
	)
	return nil
}

func runConfigRemove(cmd *cobra.Command, args []string) error {
	name := args[0]
	reg, path, err := loadRegistry()
	if err != nil {
		return err
	}
	if reg.GetInstance(name) == nil {
		return fmt.Errorf("instance %q not found in %s", name, path)
	}
	reg.RemoveInstance(name)
	if err := reg.SaveFile(path); err != nil {
		return err
	}
	ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Instance removed", ui.Param{Key: "Name", Value: name})
	return nil
}
