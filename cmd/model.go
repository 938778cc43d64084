/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/longkey1/aichat/internal/aichat"
	"github.com/longkey1/aichat/internal/aichat/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var modelNoVerify bool

// modelCmd represents the model command
var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Manage saved models",
	Long: `Manage the models saved in the configuration file.

A saved model is a model name and the source serving it (gemini or ollama).
Chats, 'aichat once' and prompt files refer to saved models by name.`,
}

// modelListCmd represents the model list command
var modelListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved models",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if len(cfg.Models) == 0 {
			fmt.Println("No models saved.")
			fmt.Println("\nAdd one with:")
			fmt.Println("  aichat model add <name> <source>")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSOURCE\tDEFAULT")
		fmt.Fprintln(w, "----\t------\t-------")
		for _, m := range cfg.Models {
			defaultMark := ""
			if m.Name == cfg.DefaultModel {
				defaultMark = "Yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", m.Name, m.Source, defaultMark)
		}
		return w.Flush()
	},
}

// modelSelectCmd represents the model select command
var modelSelectCmd = &cobra.Command{
	Use:   "select <name>",
	Short: "Make a saved model the default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		err := updateConfig(func(cfg *config.Config) error {
			return cfg.SelectDefault(args[0])
		})
		if err != nil {
			return err
		}
		fmt.Printf("Default model set to %s\n", args[0])
		return nil
	},
}

// modelAddCmd represents the model add command
var modelAddCmd = &cobra.Command{
	Use:   "add <name> <source>",
	Short: "Save a model",
	Long: `Save a model under its source name. The model is looked up on its source
first; use --no-verify to save it without a connection.

Example:
  aichat model add gemini-2.0-flash gemini
  aichat model add llama3.2 ollama`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		// The merged config checks the source and reaches it with any
		// environment override; only the file config is written.
		m := config.Model{Name: args[0], Source: args[1]}
		if err := cfg.AddModel(m.Name, m.Source); err != nil {
			return err
		}

		if !modelNoVerify {
			client, err := newModel(cfg, m)
			if err != nil {
				return err
			}
			if err := client.Verify(cmd.Context()); err != nil {
				return fmt.Errorf("verifying model %s: %w", m.Ref(), err)
			}
		}

		var isDefault bool
		err = updateConfig(func(stored *config.Config) error {
			if err := stored.AddModel(m.Name, m.Source); err != nil {
				return err
			}
			isDefault = stored.DefaultModel == m.Name
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Printf("Model %s saved\n", m.Ref())
		if isDefault {
			fmt.Println("It is now the default model.")
		}
		return nil
	},
}

// modelRemoveCmd represents the model remove command
var modelRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a saved model",
	Long:  `Remove a saved model. The default model cannot be removed; select another one first.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		err := updateConfig(func(cfg *config.Config) error {
			return cfg.RemoveModel(args[0])
		})
		if err != nil {
			return err
		}
		fmt.Printf("Model %s removed\n", args[0])
		return nil
	},
}

// modelSetAPICmd represents the model setapi command
var modelSetAPICmd = &cobra.Command{
	Use:   "setapi <source> <key>",
	Short: "Set the API key of a source",
	Long: `Set the API key of a source in the configuration file.
The key may also be an environment variable reference such as $GEMINI_API_KEY.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		err := updateConfig(func(cfg *config.Config) error {
			return cfg.SetAPIKey(args[0], args[1])
		})
		if err != nil {
			return err
		}
		fmt.Printf("API key of %s set to %s\n", args[0], maskToken(args[1]))
		return nil
	},
}

// modelAvailableCmd represents the model available command
var modelAvailableCmd = &cobra.Command{
	Use:   "available [source]",
	Short: "List the models offered by the source(s)",
	Long: `List all models offered by a source.
Fetches the latest model information directly from the source's API.

If no source is specified, lists models from all configured sources.

Example:
  aichat model available           # List models from all sources
  aichat model available gemini    # List Gemini models
  aichat model available ollama    # List locally pulled Ollama models`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		sources := cfg.SourceNames()
		if len(args) > 0 {
			if !slices.Contains(sources, args[0]) {
				return fmt.Errorf("%w '%s'\nConfigured sources: %s", config.ErrUnknownSource, args[0], strings.Join(sources, ", "))
			}
			sources = []string{args[0]}
		}

		type sourceResult struct {
			source string
			models []aichat.ModelInfo
			err    error
		}

		var results []sourceResult
		for _, source := range sources {
			result := sourceResult{source: source}

			// Any model name reaches the listing endpoint.
			client, err := newModel(cfg, config.Model{Name: "list", Source: source})
			if err != nil {
				result.err = err
				results = append(results, result)
				continue
			}

			logger.Debug("listing models", zap.String("source", source))
			models, err := client.ListModels(cmd.Context())
			if err != nil {
				result.err = fmt.Errorf("failed to list models: %w", err)
			} else if len(models) == 0 {
				result.err = fmt.Errorf("no models returned from API")
			}
			result.models = models
			results = append(results, result)
		}

		// Display successful results first
		successCount := 0
		for _, result := range results {
			if result.err != nil {
				continue
			}
			if successCount > 0 {
				fmt.Println()
			}
			successCount++

			fmt.Printf("Available models for %s:\n\n", result.source)
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MODEL ID\tSAVED\tDEFAULT\tDESCRIPTION")
			fmt.Fprintln(w, "--------\t-----\t-------\t-----------")
			for _, info := range result.models {
				saved := ""
				if m, ok := cfg.FindModel(info.ID); ok && m.Source == result.source {
					saved = "Yes"
				}
				defaultMark := ""
				if info.IsDefault {
					defaultMark = "Yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", info.ID, saved, defaultMark, info.Description)
			}
			w.Flush()

			fmt.Printf("\nSave a model with: aichat model add <model id> %s\n", result.source)
		}

		// Display errors at the end
		errorCount := 0
		for _, result := range results {
			if result.err == nil {
				continue
			}
			if errorCount == 0 && successCount > 0 {
				fmt.Println()
			}
			errorCount++
			fmt.Fprintf(os.Stderr, "Warning: Skipping %s - %v\n", result.source, result.err)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelCmd)
	modelCmd.AddCommand(modelListCmd)
	modelCmd.AddCommand(modelSelectCmd)
	modelCmd.AddCommand(modelAddCmd)
	modelCmd.AddCommand(modelRemoveCmd)
	modelCmd.AddCommand(modelSetAPICmd)
	modelCmd.AddCommand(modelAvailableCmd)

	modelAddCmd.Flags().BoolVar(&modelNoVerify, "no-verify", false, "Save the model without checking it on its source")
}
