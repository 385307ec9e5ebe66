package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/your-org/visora/internal/assistant"
	"github.com/your-org/visora/internal/capture"
)

var cameraCmd = &cobra.Command{
	Use:   "camera <on|off|switch>",
	Short: "Turn the session camera on or off, or switch between front and back",
	Long: `Change the camera state for the session of --room.

Examples:
  # Turn on the front camera in the kitchen session
  visoractl camera on --room kitchen --type user

  # Flip to the other camera
  visoractl camera switch --room kitchen`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cameraType := mustGetString(cmd, "type")
		return runTool(cmd, func(ctx context.Context, tk *assistant.Toolkit) string {
			return tk.ControlCamera(ctx, roomName, args[0], cameraType)
		})
	},
}

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture frames from the camera and report face detection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		count := mustGetInt(cmd, "count")
		return runTool(cmd, func(ctx context.Context, tk *assistant.Toolkit) string {
			return tk.CaptureFrames(ctx, roomName, count)
		})
	},
}

func init() {
	rootCmd.AddCommand(cameraCmd, captureCmd)

	cameraCmd.Flags().String("type", "", "Camera to use: user (front) or environment (back)")
	captureCmd.Flags().Int("count", 3, fmt.Sprintf("Number of frames to capture (%d-%d)", capture.MinFrames, capture.MaxFrames))
}
