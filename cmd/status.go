package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/displaytoggle/internal/display"
	"github.com/bnema/displaytoggle/internal/ipc"
	"github.com/bnema/displaytoggle/internal/output"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether the displaytoggle daemon is running",
	Long:  `Check whether the displaytoggle daemon is running, which backend it uses and its last error.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := ipc.NewClientWithTimeout(probeTimeout)
		if err != nil {
			return fmt.Errorf("failed to create IPC client: %w", err)
		}
		defer client.Close()

		status, err := client.Status(cmd.Context())
		if errors.Is(err, ipc.ErrNotRunning) {
			return output.Print(output.Status{Running: false})
		}
		if err != nil {
			return fmt.Errorf("failed to get daemon status: %w", err)
		}

		return output.Print(output.Status{
			Running:   true,
			Backend:   status.Backend,
			Displays:  len(status.State.Displays),
			On:        display.OnCount(status.State.Displays),
			LastError: status.LastError,
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
