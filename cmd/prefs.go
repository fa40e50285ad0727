package cmd

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/bnema/displaytoggle/internal/logger"
	"github.com/bnema/displaytoggle/internal/output"
	"github.com/bnema/displaytoggle/internal/state"
)

var prefsInteractive bool

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show or change preferences",
	Long: `Show the auto-disable and launch at login preferences.

With --interactive a form lets you change both.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(svc service) error {
			st, err := svc.Snapshot(cmd.Context())
			if err != nil {
				return err
			}

			if prefsInteractive {
				want, err := editPreferences(st)
				if err != nil {
					return err
				}
				if err := applyPreferences(cmd, svc, st, want); err != nil {
					return err
				}
				return output.Print(want)
			}

			return output.Print(preferencesOf(st))
		})
	},
}

var prefsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change preferences",
	Example: `  displaytoggle prefs set --auto-disable
  displaytoggle prefs set --auto-disable=false --launch-at-login`,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		if !flags.Changed("auto-disable") && !flags.Changed("launch-at-login") {
			return fmt.Errorf("nothing to change: use --auto-disable or --launch-at-login")
		}

		return withService(cmd.Context(), func(svc service) error {
			st, err := svc.Snapshot(cmd.Context())
			if err != nil {
				return err
			}

			want := preferencesOf(st)
			if flags.Changed("auto-disable") {
				want.AutoDisableBuiltin, _ = flags.GetBool("auto-disable")
			}
			if flags.Changed("launch-at-login") {
				want.LaunchAtLogin, _ = flags.GetBool("launch-at-login")
			}

			if err := applyPreferences(cmd, svc, st, want); err != nil {
				return err
			}
			return output.Print(want)
		})
	},
}

func init() {
	prefsCmd.Flags().BoolVarP(&prefsInteractive, "interactive", "i", false, "Edit preferences in a form")
	prefsSetCmd.Flags().Bool("auto-disable", false, "Turn the built-in display off while an external display is on")
	prefsSetCmd.Flags().Bool("launch-at-login", false, "Start displaytoggle with the user session")

	prefsCmd.AddCommand(prefsSetCmd)
	rootCmd.AddCommand(prefsCmd)
}

func preferencesOf(st state.State) output.Preferences {
	return output.Preferences{
		AutoDisableBuiltin: st.AutoDisableBuiltin,
		LaunchAtLogin:      st.LaunchAtLogin,
	}
}

// editPreferences asks for both preferences, starting from the current values
func editPreferences(st state.State) (output.Preferences, error) {
	want := preferencesOf(st)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Auto-disable built-in display").
				Description("Turn the built-in display off while an external display is on").
				Affirmative("On").
				Negative("Off").
				Value(&want.AutoDisableBuiltin),
			huh.NewConfirm().
				Title("Launch at login").
				Description("Start displaytoggle with the user session").
				Affirmative("On").
				Negative("Off").
				Value(&want.LaunchAtLogin),
		),
	)

	if err := form.Run(); err != nil {
		return output.Preferences{}, fmt.Errorf("preferences cancelled: %w", err)
	}
	return want, nil
}

// applyPreferences sends the preferences that differ from the current state
func applyPreferences(cmd *cobra.Command, svc service, st state.State, want output.Preferences) error {
	ctx := cmd.Context()

	if want.AutoDisableBuiltin != st.AutoDisableBuiltin {
		logger.Debugf("Setting auto-disable to %v", want.AutoDisableBuiltin)
		if err := svc.SetAutoDisable(ctx, want.AutoDisableBuiltin); err != nil {
			return fmt.Errorf("failed to set auto-disable: %w", err)
		}
	}

	if want.LaunchAtLogin != st.LaunchAtLogin {
		logger.Debugf("Setting launch at login to %v", want.LaunchAtLogin)
		if err := svc.SetLaunchAtLogin(ctx, want.LaunchAtLogin); err != nil {
			return fmt.Errorf("failed to set launch at login: %w", err)
		}
	}

	return nil
}
