package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/matheus3301/botchat/internal/client"
	"github.com/matheus3301/botchat/internal/profile"
	"github.com/spf13/cobra"
)

var (
	profileFlag string
	jsonFlag    bool
	timeoutFlag time.Duration
)

// rootCmd is the botchatctl entry point
var rootCmd = &cobra.Command{
	Use:           "botchatctl",
	Short:         "Control a running botchatd",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&profileFlag, "profile", "", "profile name (overrides config default)")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 10*time.Second, "per-call timeout")

	networkCmd.AddCommand(networkUpCmd, networkDownCmd)
	rootCmd.AddCommand(
		statusCmd,
		connectCmd,
		disconnectCmd,
		sendCmd,
		messagesCmd,
		conversationsCmd,
		watchCmd,
		networkCmd,
		journalCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// dial resolves the profile and connects to its daemon.
func dial() (*client.Client, string, error) {
	name := profile.Resolve(profileFlag)
	if err := profile.ValidateName(name); err != nil {
		return nil, "", err
	}
	c, err := client.New(profile.SocketPath(name))
	if err != nil {
		return nil, "", fmt.Errorf("cannot connect to daemon for profile %q: %w", name, err)
	}
	return c, name, nil
}

// withClient runs fn against the daemon with the per-call timeout.
func withClient(fn func(ctx context.Context, c *client.Client) error) error {
	c, _, err := dial()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), timeoutFlag)
	defer cancel()
	return fn(ctx, c)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
