package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/viper"
	"sigs.k8s.io/yaml"
)

// printOutput writes v as JSON or YAML depending on --output, or calls table
// for the default human-readable format
func printOutput(v interface{}, table func(w *tabwriter.Writer)) error {
	switch viper.GetString("output") {
	case "json":
		jsonData, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal output to JSON: %w", err)
		}
		fmt.Println(string(jsonData))
		return nil
	case "yaml":
		yamlData, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal output to YAML: %w", err)
		}
		fmt.Print(string(yamlData))
		return nil
	default:
		// A tabwriter keeps the columns aligned whatever the content
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		table(w)
		return w.Flush()
	}
}

// truncate shortens long messages for table display
func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}

// getValueOrDefault returns the value if not empty, otherwise returns the default
func getValueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
