package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/longkey1/aichat/internal/aichat/chat"
	"github.com/spf13/cobra"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all chats",
	Long:  `List all saved chats sorted by most recently used.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		chats, err := chat.NewStore(cfg.ChatDir).List()
		if err != nil {
			return fmt.Errorf("listing chats: %w", err)
		}

		if len(chats) == 0 {
			fmt.Println("No chats found.")
			fmt.Println("\nStart a new chat with:")
			fmt.Println("  aichat start <name>")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tMODEL\tLAST USED\tMESSAGES")
		fmt.Fprintln(w, "----\t-----\t---------\t--------")
		for _, c := range chats {
			model := c.Model
			if model == "" {
				model = "-"
			}
			messages := fmt.Sprint(c.Messages)
			if c.Err != nil {
				messages = "unreadable"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				c.Name,
				model,
				c.LastUsed.Format("2006-01-02 15:04"),
				messages,
			)
		}
		w.Flush()

		fmt.Println("\nUse 'aichat show <name>' to view a chat.")
		return nil
	},
}

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <chat>",
	Short: "Show the system prompt and messages of a chat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		transcript, err := chat.NewStore(cfg.ChatDir).Open(args[0], chat.WithOutput(os.Stdout))
		if err != nil {
			return fmt.Errorf("opening chat: %w", err)
		}
		if m := transcript.Model(); m != "" {
			fmt.Printf("Model: %s\n", m)
		}
		transcript.Display()
		return nil
	},
}

var deleteYes bool

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete <chat>",
	Short: "Delete a chat",
	Long: `Delete a saved chat permanently.

Warning: This action cannot be undone.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		name := args[0]
		store := chat.NewStore(cfg.ChatDir)
		if !store.Exists(name) {
			return fmt.Errorf("%w: chat %s", chat.ErrNotFound, name)
		}

		if !deleteYes && !confirm(fmt.Sprintf("Are you sure you want to delete chat %s? [y/N]: ", name)) {
			fmt.Println("Deletion cancelled.")
			return nil
		}

		if err := store.Delete(name); err != nil {
			return fmt.Errorf("deleting chat: %w", err)
		}
		fmt.Printf("Chat %s deleted successfully.\n", name)
		return nil
	},
}

// confirm asks a yes/no question on stdin.
func confirm(question string) bool {
	fmt.Print(question)
	answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(deleteCmd)

	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Delete without asking for confirmation")
}
