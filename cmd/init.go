package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/longkey1/aichat/internal/aichat/config"
	"github.com/spf13/cobra"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the configuration file",
	Long: `Initialize the configuration file with default settings.
The config file will be created at $HOME/.config/aichat/config.toml by default.
You can specify a different location using the --config option.

The chats and prompts directories are created next to it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		configDir, err := config.DefaultDir()
		if err != nil {
			return err
		}
		configFile := filepath.Join(configDir, "config.toml")
		if cfgFile != "" {
			configFile = cfgFile
			configDir = filepath.Dir(cfgFile)
		}

		// Check if config file already exists
		if _, err := os.Stat(configFile); err == nil {
			return fmt.Errorf("config file already exists at: %s", configFile)
		}

		cfg := config.NewDefaultConfig(configDir)
		if err := cfg.Save(configFile); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}

		for _, dir := range append([]string{cfg.ChatDir}, cfg.PromptDirs...) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
		}

		fmt.Printf("Configuration file created at: %s\n", configFile)
		fmt.Printf("Chats directory created at: %s\n", cfg.ChatDir)
		fmt.Printf("Prompts directory created at: %s\n", cfg.PromptDirs[0])
		fmt.Println("\nNext, save a model with: aichat model add <name> <source>")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
