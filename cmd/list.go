package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bnema/displaytoggle/internal/output"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List displays and whether they are on",
	Long: `List every display known to the system, including displays that are
currently turned off, with the identifier to pass to on and off.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(svc service) error {
			st, err := svc.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			return output.Print(output.DisplayList{Backend: svc.BackendName(), Displays: st.Displays})
		})
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
