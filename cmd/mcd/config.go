package main

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/celikgo/autoz-dashboard/internal/config"
)

//go:embed sample-config.yaml
var sampleConfig string

// newConfigCmd creates the config command and its subcommands
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the mcd configuration file",
		Long: `Create, inspect and check the file listing the clusters on the home view.

Examples:
  mcd config init          # Write a sample configuration file
  mcd config show          # Print the loaded configuration
  mcd config validate      # Contact every configured cluster
  mcd config path          # Show which file is used`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigValidateCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

func newConfigInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "init",
		Annotations: map[string]string{skipConfig: "true"},
		Short:       "Write a sample configuration file",
		Long: `Write a sample configuration to $XDG_CONFIG_HOME/mcd/config.yaml
(~/.config/mcd/config.yaml when XDG_CONFIG_HOME is unset). Replace the contexts
with your own, see 'kubectl config get-contexts'.`,

		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := getConfigInitPath()
			if err != nil {
				return fmt.Errorf("failed to determine config path: %w", err)
			}

			if _, err := os.Stat(configPath); err == nil {
				if force, _ := cmd.Flags().GetBool("force"); !force {
					return fmt.Errorf("configuration file already exists at %s\nUse --force to overwrite", configPath)
				}
				fmt.Printf("⚠️  Overwriting %s\n", configPath)
			}

			if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
				return fmt.Errorf("failed to create config directory: %w", err)
			}
			if err := os.WriteFile(configPath, []byte(sampleConfig), 0644); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}

			fmt.Printf("✅ Configuration file created at: %s\n", configPath)
			fmt.Println("Edit the clusters, then run 'mcd config validate' and 'mcd home'.")
			return nil
		},
	}

	cmd.Flags().Bool("force", false, "overwrite existing configuration file")
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the loaded configuration",
		Long: `Print the home view settings and the clusters read from the configuration file,
with defaults applied. Clusters added at runtime through 'mcd serve' are not included.`,

		RunE: func(cmd *cobra.Command, args []string) error {
			return printOutput(appConfig, func(w *tabwriter.Writer) {
				fmt.Fprintf(w, "File:\t%s\n", appConfigPath)
				fmt.Fprintf(w, "Timeout:\t%ds\n", appConfig.Timeout)
				fmt.Fprintf(w, "Quick access size:\t%d\n", appConfig.Home.MaxRecent)
				fmt.Fprintf(w, "Recent file:\t%s\n", getValueOrDefault(appConfig.Home.RecentFile, "in memory"))
				fmt.Fprintf(w, "Event poll interval:\t%ds\n", appConfig.Home.PollInterval)
				fmt.Fprintf(w, "Event namespace:\t%s\n", getValueOrDefault(appConfig.Home.EventNamespace, "all"))
				fmt.Fprintf(w, "Event field selector:\t%s\n", getValueOrDefault(appConfig.Home.EventFieldSelector, "none"))
				fmt.Fprintf(w, "Server address:\t%s\n", appConfig.Server.Addr)
				fmt.Fprintln(w)

				fmt.Fprintln(w, "NAME\tCONTEXT\tSERVER\tKUBECONFIG\tENVIRONMENT\tREGION\tDEFAULT")
				for _, c := range appConfig.Clusters {
					defaultMarker := ""
					if c.IsDefault {
						defaultMarker = "⭐"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
						c.Name,
						getValueOrDefault(c.Context, "-"),
						getValueOrDefault(c.Server, "-"),
						getValueOrDefault(c.KubeConfig, "~/.kube/config"),
						getValueOrDefault(c.Environment, "-"),
						getValueOrDefault(c.Region, "-"),
						defaultMarker,
					)
				}
			})
		},
	}
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and contact every cluster",
		Long: `The file is parsed and validated when mcd starts: names must be unique, every
cluster needs a context or a server, and kubeconfig files must exist. This command
then asks each cluster's API server for its version.`,

		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("✅ %s is valid, %d cluster(s) defined\n\n", appConfigPath, len(appConfig.Clusters))

			// A failing cluster is reported below, not returned
			_ = clusterManager.ConnectAll()

			statuses := clusterManager.ListClusters()
			connected := 0
			for _, status := range statuses {
				if status.Connected {
					connected++
					fmt.Printf("✅ %s\n", status.Name)
				} else {
					fmt.Printf("❌ %s: %s\n", status.Name, status.Error)
				}
			}

			fmt.Printf("\n%d/%d clusters reachable\n", connected, len(statuses))
			if connected < len(statuses) {
				fmt.Println("Check the context names with 'kubectl config get-contexts' and that credentials have not expired.")
			}
			return nil
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "path",
		Annotations: map[string]string{skipConfig: "true"},
		Short:       "Show which configuration file is used",

		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := findConfigPath()
			if configPath == "" {
				fmt.Println("No configuration file found. Searched:")
				fmt.Println("  ./mcd-config.yaml")
				fmt.Println("  ~/.mcd/config.yaml")
				fmt.Println("  $XDG_CONFIG_HOME/mcd/config.yaml")
				fmt.Println("Run 'mcd config init' to create one.")
				return nil
			}

			info, err := os.Stat(configPath)
			if err != nil {
				fmt.Printf("%s (does not exist)\n", configPath)
				return nil
			}
			fmt.Printf("%s (modified %s)\n", configPath, info.ModTime().Format("2006-01-02 15:04:05"))
			return nil
		},
	}
}

// getConfigInitPath returns where 'config init' writes, following XDG
func getConfigInitPath() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "mcd", "config.yaml"), nil
}

// findConfigPath returns the configuration file in use, or "" when none exists
func findConfigPath() string {
	if path := viper.GetString("config"); path != "" {
		return path
	}
	path := config.FindDefaultConfigPath()
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
