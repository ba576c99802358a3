package main

import (
	"os"

	"github.com/matheus3301/botchat/internal/daemon"
	"github.com/matheus3301/botchat/internal/profile"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var profileFlag string
	cmd := &cobra.Command{
		Use:          "botchatd",
		Short:        "Per-profile delivery daemon serving botchat.v1.ChatService on a Unix socket",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			name, err := resolveProfile(profileFlag)
			if err != nil {
				return err
			}
			fx.New(daemon.Module(daemon.Params{Profile: name})).Run()
			return nil
		},
	}
	cmd.Flags().StringVar(&profileFlag, "profile", "", "profile name (overrides config default)")
	return cmd
}

// resolveProfile validates the profile name and creates its directory.
func resolveProfile(flag string) (string, error) {
	name := profile.Resolve(flag)
	if err := profile.ValidateName(name); err != nil {
		return "", err
	}
	if err := profile.EnsureDir(name); err != nil {
		return "", err
	}
	return name, nil
}
