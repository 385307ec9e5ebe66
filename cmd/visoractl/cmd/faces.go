package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/your-org/visora/internal/assistant"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <name>",
	Short: "Capture a face and register it in the face database",
	Long: `Capture frames with a visible face and register the person under the
given name.

Examples:
  visoractl enroll "Ana Lopez" --room hall
  visoractl enroll Ana --collection Family`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		collection := mustGetString(cmd, "collection")
		return runTool(cmd, func(ctx context.Context, tk *assistant.Toolkit) string {
			return tk.AddPerson(ctx, roomName, args[0], collection)
		})
	},
}

var recognizeCmd = &cobra.Command{
	Use:   "recognize",
	Short: "Capture frames and identify the person in front of the camera",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, func(ctx context.Context, tk *assistant.Toolkit) string {
			return tk.RecognizeFace(ctx, roomName)
		})
	},
}

func init() {
	rootCmd.AddCommand(enrollCmd, recognizeCmd)

	enrollCmd.Flags().String("collection", "", "Collection to register into (defaults to the configured one)")
}
