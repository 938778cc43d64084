/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/longkey1/aichat/internal/aichat/chat"
	"github.com/longkey1/aichat/internal/aichat/display"
	"github.com/longkey1/aichat/internal/aichat/interactive"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const historyFile = ".history"

var (
	startModel      string
	startNoStream   bool
	startNoMarkdown bool
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start [chat]",
	Short: "Start an interactive chat",
	Long: `Start an interactive chat with continuous conversation.

The chat is loaded from and saved to <chat_dir>/<chat>.yaml. Without a name,
the most recently used chat is continued; a chat named "chat" is created when
there is none. A named chat that does not exist yet is created.

Type help inside the chat for the list of commands.

Examples:
  aichat start               # Continue the most recent chat
  aichat start work          # Start or continue the chat named work
  aichat start --nostream    # Print replies only once they are complete`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		m, model, err := resolveModel(cfg, startModel)
		if err != nil {
			return err
		}

		var name string
		if len(args) > 0 {
			name = args[0]
		}
		store := chat.NewStore(cfg.ChatDir)
		name, created, err := store.Select(name)
		if err != nil {
			return fmt.Errorf("selecting chat: %w", err)
		}
		transcript, err := store.Open(name, chat.WithOutput(os.Stdout))
		if err != nil {
			return fmt.Errorf("opening chat: %w", err)
		}
		path, err := store.Path(name)
		if err != nil {
			return err
		}

		printer := display.New(os.Stdout, cfg.Markdown && !startNoMarkdown)
		if created {
			printer.Info("Chat %s created", name)
		} else {
			printer.Info("Continuing chat %s (%d messages)", name, transcript.Len())
		}
		printer.Dim("Model: %s, type help for commands", m.Ref())

		logger.Debug("starting interactive chat",
			zap.String("chat", name),
			zap.String("path", path),
			zap.String("model", m.Ref()))

		reader := interactive.NewTerminalReader(filepath.Join(cfg.ChatDir, historyFile))
		defer func() {
			if err := reader.Close(); err != nil {
				logger.Warn("failed to close terminal", zap.Error(err))
			}
		}()

		session := interactive.New(interactive.Config{
			Input:      reader,
			Output:     os.Stdout,
			Printer:    printer,
			Model:      model,
			ModelRef:   m.Ref(),
			Transcript: transcript,
			Path:       path,
			Stream:     cfg.Stream && !startNoStream,
			Generation: cfg.GenerationConfig(),
			Logger:     logger,
		})
		if err := session.Run(cmd.Context()); err != nil {
			return fmt.Errorf("interactive mode: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(startCmd)

	startCmd.Flags().StringVarP(&startModel, "model", "m", "", "Saved model to use instead of the default")
	startCmd.Flags().BoolVar(&startNoStream, "nostream", false, "Print replies only once they are complete")
	startCmd.Flags().BoolVar(&startNoMarkdown, "nomarkdown", false, "Do not render replies as markdown")
}
