package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/longkey1/aichat/internal/aichat/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const configFields = "configfile, default_model, models, sources, chat_dir, prompt_dirs, stream, markdown, timeout_seconds, generation"

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config [field]",
	Short: "Display current configuration",
	Long: `Display the current configuration values.
This command shows all configuration values loaded from the config file and environment variables.
API keys are masked.

If a field name is specified, only that field's value is displayed.
Available fields: ` + configFields + `

Examples:
  aichat config                  # Show all configuration
  aichat config default_model    # Show only the default model
  aichat config chat_dir         # Show only the chat directory`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if len(args) > 0 {
			field := strings.ReplaceAll(strings.ToLower(args[0]), "_", "")
			switch field {
			case "configfile":
				fmt.Println(viper.ConfigFileUsed())
			case "defaultmodel", "model":
				fmt.Println(cfg.DefaultModel)
			case "models":
				for _, m := range cfg.Models {
					fmt.Println(m.Ref())
				}
			case "sources":
				printSources(cfg)
			case "chatdir":
				fmt.Println(cfg.ChatDir)
			case "promptdirs":
				fmt.Println(strings.Join(cfg.PromptDirs, ","))
			case "stream":
				fmt.Println(cfg.Stream)
			case "markdown":
				fmt.Println(cfg.Markdown)
			case "timeoutseconds", "timeout":
				fmt.Println(cfg.TimeoutSeconds)
			case "generation":
				printGeneration(cfg)
			default:
				return fmt.Errorf("unknown field: %s\nAvailable fields: %s", args[0], configFields)
			}
			return nil
		}

		fmt.Printf("ConfigFile: %s\n", viper.ConfigFileUsed())
		fmt.Printf("DefaultModel: %s\n", cfg.DefaultModel)
		refs := make([]string, 0, len(cfg.Models))
		for _, m := range cfg.Models {
			refs = append(refs, m.Ref())
		}
		fmt.Printf("Models: %s\n", strings.Join(refs, ","))
		printSources(cfg)
		fmt.Printf("ChatDirectory: %s\n", cfg.ChatDir)
		fmt.Printf("PromptDirectories: %s\n", strings.Join(cfg.PromptDirs, ","))
		fmt.Printf("Stream: %v\n", cfg.Stream)
		fmt.Printf("Markdown: %v\n", cfg.Markdown)
		fmt.Printf("TimeoutSeconds: %d\n", cfg.TimeoutSeconds)
		printGeneration(cfg)
		return nil
	},
}

// configFindCmd represents the config find command
var configFindCmd = &cobra.Command{
	Use:   "find",
	Short: "Print the path of the config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

var resetYes bool

// configResetCmd represents the config reset command
var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Replace the config file with the defaults",
	Long: `Replace the config file with the default settings.
Saved models and API keys are lost. Chats are not touched.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath()
		if err != nil {
			return err
		}
		if !resetYes && !confirm(fmt.Sprintf("Reset %s to the defaults? [y/N]: ", path)) {
			fmt.Println("Reset cancelled.")
			return nil
		}
		if err := config.NewDefaultConfig(filepath.Dir(path)).Save(path); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		fmt.Printf("Configuration file reset: %s\n", path)
		return nil
	},
}

func printSources(cfg *config.Config) {
	for _, name := range cfg.SourceNames() {
		src := cfg.Sources[name]
		key := "-"
		if src.APIKey != "" {
			key = maskToken(src.APIKey)
			if strings.HasPrefix(src.APIKey, "$") {
				// Env references are not secret.
				key = src.APIKey
			}
		}
		fmt.Printf("Source[%s]: base_url=%s api_key=%s\n", name, src.BaseURL, key)
	}
}

func printGeneration(cfg *config.Config) {
	g := cfg.Generation
	fmt.Printf("Generation: temperature=%v top_p=%v top_k=%d max_output_tokens=%d\n",
		g.Temperature, g.TopP, g.TopK, g.MaxOutputTokens)
}

// maskToken returns a masked version of the token for security
func maskToken(token string) string {
	if len(token) <= 8 {
		return "********"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configFindCmd)
	configCmd.AddCommand(configResetCmd)

	configResetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Reset without asking for confirmation")
}
