/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/longkey1/aichat/internal/aichat/chat"
	"github.com/longkey1/aichat/internal/aichat/display"
	"github.com/longkey1/aichat/internal/aichat/interactive"
	promptpkg "github.com/longkey1/aichat/internal/aichat/prompt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var errEmptyMessage = errors.New("message is empty")

var (
	onceModel      string
	oncePrompt     string
	onceArgs       []string
	onceChat       string
	onceEditor     bool
	onceNoStream   bool
	onceNoMarkdown bool
)

// onceCmd represents the once command
var onceCmd = &cobra.Command{
	Use:   "once [message]",
	Short: "Send a single message to the model",
	Long: `Send a message to the model and print the reply.

If no message is provided as an argument, it reads from stdin.
If --editor flag is set, it opens the default editor (from EDITOR environment variable) to compose the message.

Without --chat nothing is saved. With --chat the turn is sent with the history
of that chat and both messages are appended to it.

The prompt file should be in TOML format with the following structure:
system = "System prompt with optional {{input}} placeholder"
user = "User prompt with optional {{input}} placeholder"
model = "optional-saved-model-name"  # Optional: overrides the default model for this prompt

Other {{tokens}} are filled with --arg key:value.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		var message string
		if onceEditor {
			message, err = getMessageFromEditor()
			if err != nil {
				return fmt.Errorf("getting message from editor: %w", err)
			}
		} else if len(args) > 0 {
			message = strings.Join(args, " ")
		} else {
			input, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("reading from stdin: %w", err)
			}
			message = strings.TrimSpace(string(input))
		}

		rendered, err := promptpkg.FormatMessage(message, oncePrompt, cfg.PromptDirs, onceArgs, logger)
		if err != nil {
			return fmt.Errorf("formatting message with prompt: %w", err)
		}

		// Model priority: flag > prompt file > default
		modelName := rendered.Model
		if cmd.Flags().Changed("model") {
			modelName = onceModel
		}
		m, model, err := resolveModel(cfg, modelName)
		if err != nil {
			return err
		}

		store := chat.NewStore(cfg.ChatDir)
		transcript := chat.NewTranscript(chat.WithOutput(os.Stderr))
		if onceChat != "" {
			name, created, err := store.Select(onceChat)
			if err != nil {
				return fmt.Errorf("selecting chat: %w", err)
			}
			if transcript, err = store.Open(name, chat.WithOutput(os.Stderr)); err != nil {
				return fmt.Errorf("opening chat: %w", err)
			}
			logger.Debug("using chat", zap.String("chat", name), zap.Bool("created", created))
		}

		// A prompt's system text only fills an empty system prompt.
		if rendered.System != "" && transcript.SystemPrompt() == "" {
			transcript.SetSystemPrompt(strings.TrimSpace(rendered.System))
		}
		if !transcript.AddMessage(chat.NewMessage(chat.RoleUser, rendered.User)) {
			return errEmptyMessage
		}

		logger.Debug("sending message",
			zap.String("model", m.Ref()),
			zap.String("prompt", oncePrompt),
			zap.Int("messages", transcript.Len()))

		printer := display.New(os.Stdout, cfg.Markdown && !onceNoMarkdown)
		reply, err := interactive.Complete(cmd.Context(), interactive.CompleteConfig{
			Model:      model,
			Transcript: transcript,
			Printer:    printer,
			Stream:     cfg.Stream && !onceNoStream,
			Generation: cfg.GenerationConfig(),
			Logger:     logger,
		})
		if err != nil {
			return fmt.Errorf("chat request failed: %w", err)
		}
		if !transcript.AddMessage(chat.NewMessage(chat.RoleAssistant, reply)) {
			logger.Warn("model returned an empty response", zap.String("model", m.Ref()))
		}

		if onceChat != "" {
			if err := store.Save(onceChat, transcript, m.Ref(), false); err != nil {
				return fmt.Errorf("saving chat: %w", err)
			}
		}
		return nil
	},
}

// getMessageFromEditor opens the default editor and returns the edited message
func getMessageFromEditor() (string, error) {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		return "", fmt.Errorf("EDITOR environment variable is not set")
	}

	tmpFile, err := os.CreateTemp("", "aichat-*.md")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmpFile.Name())
	tmpFile.Close()

	cmd := exec.Command(editor, tmpFile.Name())
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to open editor: %w", err)
	}

	content, err := os.ReadFile(tmpFile.Name())
	if err != nil {
		return "", fmt.Errorf("failed to read edited content: %w", err)
	}

	return strings.TrimSpace(string(content)), nil
}

func init() {
	rootCmd.AddCommand(onceCmd)

	onceCmd.Flags().StringVarP(&onceModel, "model", "m", "", "Saved model to use (see 'aichat model list')")
	onceCmd.Flags().StringVarP(&oncePrompt, "prompt", "p", "", "Name of the prompt template (without .toml extension)")
	onceCmd.Flags().StringArrayVar(&onceArgs, "arg", []string{}, "Key-value pairs for prompt template (format: key:value)")
	onceCmd.Flags().StringVarP(&onceChat, "chat", "c", "", "Chat to continue and save the turn to")
	onceCmd.Flags().BoolVarP(&onceEditor, "editor", "e", false, "Use default editor (from EDITOR environment variable) to compose message")
	onceCmd.Flags().BoolVar(&onceNoStream, "nostream", false, "Print the reply only once it is complete")
	onceCmd.Flags().BoolVar(&onceNoMarkdown, "nomarkdown", false, "Do not render the reply as markdown")
}
