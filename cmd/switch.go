package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/displaytoggle/internal/display"
	"github.com/bnema/displaytoggle/internal/logger"
	"github.com/bnema/displaytoggle/internal/output"
)

var onCmd = &cobra.Command{
	Use:   "on <id|name>",
	Short: "Turn a display on",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setDisplay(cmd, args[0], true)
	},
}

var offCmd = &cobra.Command{
	Use:   "off <id|name>",
	Short: "Turn a display off",
	Long: `Turn a display off. The last display that is on cannot be turned off.

Displays are given by the identifier shown by list or by name:
  displaytoggle off 2
  displaytoggle off "DELL U2720Q"

Example usage in window manager configs:
  Hyprland: bind = $mainMod SHIFT, F9, exec, displaytoggle off 2
  i3/Sway:  bindsym $mod+Shift+F9 exec displaytoggle off 2
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setDisplay(cmd, args[0], false)
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Turn every display back on",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(svc service) error {
			if err := svc.RestoreAll(cmd.Context()); err != nil {
				return fmt.Errorf("failed to restore displays: %w", err)
			}
			return output.Print(output.Change{Action: "restore", Enabled: true})
		})
	},
}

func init() {
	rootCmd.AddCommand(onCmd)
	rootCmd.AddCommand(offCmd)
	rootCmd.AddCommand(restoreCmd)
}

func setDisplay(cmd *cobra.Command, ref string, enabled bool) error {
	return withService(cmd.Context(), func(svc service) error {
		st, err := svc.Snapshot(cmd.Context())
		if err != nil {
			return err
		}

		d, err := display.Lookup(st.Displays, ref)
		if err != nil {
			return err
		}

		logger.Debugf("Turning %s display %d (%s)", onOff(enabled), d.ID, d.Name)
		if err := svc.SetDisplay(cmd.Context(), d.ID, enabled); err != nil {
			return fmt.Errorf("failed to turn %s %s: %w", onOff(enabled), d.Name, err)
		}

		return output.Print(output.Change{Action: onOff(enabled), ID: d.ID, Name: d.Name, Enabled: enabled})
	})
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}
