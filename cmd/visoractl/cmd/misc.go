package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/your-org/visora/internal/assistant"
)

var sessionCmd = &cobra.Command{
	Use:   "session <user-id>",
	Short: "Create the session record for --room and a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, func(ctx context.Context, tk *assistant.Toolkit) string {
			return tk.CreateSession(ctx, roomName, args[0])
		})
	},
}

var weatherCmd = &cobra.Command{
	Use:   "weather <city>",
	Short: "Show the current weather for a city",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		city := strings.Join(args, " ")
		return runTool(cmd, func(ctx context.Context, tk *assistant.Toolkit) string {
			return tk.GetWeather(ctx, city)
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the web",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		return runTool(cmd, func(ctx context.Context, tk *assistant.Toolkit) string {
			return tk.SearchWeb(ctx, query)
		})
	},
}

var emailCmd = &cobra.Command{
	Use:   "email <to>",
	Short: "Send a plain text email",
	Long: `Send a plain text email through the configured SMTP account.

Examples:
  visoractl email bob@example.com --subject "Hello" --message "See you at 5"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		subject := mustGetString(cmd, "subject")
		message := mustGetString(cmd, "message")
		cc := mustGetString(cmd, "cc")
		return runTool(cmd, func(ctx context.Context, tk *assistant.Toolkit) string {
			return tk.SendEmail(ctx, args[0], subject, message, cc)
		})
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd, weatherCmd, searchCmd, emailCmd)

	emailCmd.Flags().String("subject", "", "Subject line")
	emailCmd.Flags().String("message", "", "Message body")
	emailCmd.Flags().String("cc", "", "Optional CC address")
}
