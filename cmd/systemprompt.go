package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/longkey1/aichat/internal/aichat/chat"
	"github.com/spf13/cobra"
)

var systemPromptChat string

// systemPromptCmd represents the systemprompt command
var systemPromptCmd = &cobra.Command{
	Use:   "systemprompt",
	Short: "Show or change the system prompt of a chat",
}

// systemPromptShowCmd represents the systemprompt show command
var systemPromptShowCmd = &cobra.Command{
	Use:   "show [chat]",
	Short: "Show the system prompt of a chat",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, name, err := systemPromptTarget(args)
		if err != nil {
			return err
		}
		transcript, err := store.Open(name)
		if err != nil {
			return fmt.Errorf("opening chat: %w", err)
		}
		fmt.Println(transcript.SystemPrompt())
		return nil
	},
}

// systemPromptSetCmd represents the systemprompt set command
var systemPromptSetCmd = &cobra.Command{
	Use:   "set <text>",
	Short: "Set the system prompt of a chat",
	Long: `Set the system prompt of a chat. The words of the arguments are joined
with spaces. The chat is created when it does not exist.

Example:
  aichat systemprompt set --chat work "You are a concise assistant."`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setSystemPrompt(strings.Join(args, " "))
	},
}

// systemPromptLoadCmd represents the systemprompt load command
var systemPromptLoadCmd = &cobra.Command{
	Use:   "load <file>",
	Short: "Set the system prompt of a chat from a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("%w: %s", chat.ErrNotFound, args[0])
			}
			return fmt.Errorf("reading system prompt file: %w", err)
		}
		return setSystemPrompt(string(data))
	},
}

func systemPromptTarget(args []string) (*chat.Store, string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, "", err
	}
	name := systemPromptChat
	if len(args) > 0 {
		name = args[0]
	}
	if name == "" {
		name = chat.DefaultChatName
	}
	return chat.NewStore(cfg.ChatDir), name, nil
}

func setSystemPrompt(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("system prompt is empty")
	}

	store, name, err := systemPromptTarget(nil)
	if err != nil {
		return err
	}
	if _, _, err := store.Select(name); err != nil {
		return fmt.Errorf("selecting chat: %w", err)
	}
	if err := store.SetSystemPrompt(name, text); err != nil {
		return fmt.Errorf("setting system prompt: %w", err)
	}
	fmt.Printf("Successfully set system prompt of chat %s\n", name)
	return nil
}

func init() {
	rootCmd.AddCommand(systemPromptCmd)
	systemPromptCmd.AddCommand(systemPromptShowCmd)
	systemPromptCmd.AddCommand(systemPromptSetCmd)
	systemPromptCmd.AddCommand(systemPromptLoadCmd)

	systemPromptCmd.PersistentFlags().StringVarP(&systemPromptChat, "chat", "c", "", "Chat to change (default \"chat\")")
}
