package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strings"
	"time"

	"github.com/matheus3301/botchat/internal/chat"
	"github.com/matheus3301/botchat/internal/client"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return withClient(func(ctx context.Context, c *client.Client) error {
			st, err := c.Status(ctx)
			if err != nil {
				return err
			}
			if jsonFlag {
				return printJSON(st)
			}
			fmt.Printf("Profile:    %s\n", st.Profile)
			fmt.Printf("Network:    %s\n", onOff(st.Online, "online", "offline"))
			fmt.Printf("Connected:  %s\n", onOff(st.Connected, "yes", "no"))
			fmt.Printf("Transport:  %s\n", st.TransportState)
			fmt.Printf("Pending:    %d\n", st.Pending)
			fmt.Printf("Journal:    %s\n", onOff(st.Journal, "enabled", "disabled"))
			fmt.Printf("Uptime:     %s\n", (time.Duration(st.UptimeMs) * time.Millisecond).Truncate(time.Second))
			if len(st.Deliveries) > 0 {
				kinds := slices.Sorted(maps.Keys(st.Deliveries))
				fmt.Println("Deliveries:")
				for _, k := range kinds {
					fmt.Printf("  %-12s %d\n", k, st.Deliveries[k])
				}
			}
			return nil
		})
	},
}

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect to the real-time endpoint",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return withClient(func(ctx context.Context, c *client.Client) error {
			return c.Connect(ctx)
		})
	},
}

var disconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Disconnect; queued messages are kept",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return withClient(func(ctx context.Context, c *client.Client) error {
			return c.Disconnect(ctx)
		})
	},
}

var sendChat string

var sendCmd = &cobra.Command{
	Use:   "send <text>...",
	Short: "Queue a message for a conversation",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *client.Client) error {
			msg, err := c.Send(ctx, strings.Join(args, " "), sendChat)
			if err != nil {
				return err
			}
			if jsonFlag {
				return printJSON(msg)
			}
			fmt.Printf("%s %s\n", msg.ID, msg.Status)
			return nil
		})
	},
}

var messagesChat string

var messagesCmd = &cobra.Command{
	Use:   "messages",
	Short: "List messages, newest first, or one conversation oldest first",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return withClient(func(ctx context.Context, c *client.Client) error {
			msgs, err := c.Messages(ctx, messagesChat)
			if err != nil {
				return err
			}
			if jsonFlag {
				return printJSON(msgs)
			}
			for _, m := range msgs {
				printMessage(m)
			}
			return nil
		})
	},
}

var conversationsCmd = &cobra.Command{
	Use:     "conversations",
	Aliases: []string{"convs"},
	Short:   "List conversations",
	Args:    cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return withClient(func(ctx context.Context, c *client.Client) error {
			convs, err := c.Conversations(ctx)
			if err != nil {
				return err
			}
			if jsonFlag {
				return printJSON(convs)
			}
			for _, cv := range convs {
				marker := " "
				if cv.Unread > 0 {
					marker = "*"
				}
				fmt.Printf("%s %-4s %-18s %s\n", marker, cv.ID, cv.Name, cv.LastMessage)
			}
			return nil
		})
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream the message view until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		c, _, err := dial()
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		w, err := c.Watch(ctx)
		if err != nil {
			return err
		}
		for {
			snap, err := w.Recv()
			if errors.Is(err, io.EOF) || grpcstatus.Code(err) == codes.Canceled {
				return nil
			}
			if err != nil {
				return err
			}
			if jsonFlag {
				if err := printJSON(snap); err != nil {
					return err
				}
				continue
			}
			fmt.Printf("-- %s, %s, %d messages\n",
				onOff(snap.Online, "online", "offline"),
				onOff(snap.Connected, "connected", "disconnected"),
				len(snap.Messages))
			if len(snap.Messages) > 0 {
				printMessage(snap.Messages[0])
			}
		}
	},
}

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Flip the daemon's network switch",
}

var networkUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Mark the network reachable",
	Args:  cobra.NoArgs,
	RunE:  func(_ *cobra.Command, _ []string) error { return setNetwork(true) },
}

var networkDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Mark the network unreachable",
	Args:  cobra.NoArgs,
	RunE:  func(_ *cobra.Command, _ []string) error { return setNetwork(false) },
}

func setNetwork(online bool) error {
	return withClient(func(ctx context.Context, c *client.Client) error {
		return c.SetNetwork(ctx, online)
	})
}

var (
	journalMsg   string
	journalLimit int
	journalLinks bool
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Show recorded delivery events",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return withClient(func(ctx context.Context, c *client.Client) error {
			if journalLinks {
				return printLinks(ctx, c)
			}
			events, err := c.DeliveryEvents(ctx, journalMsg, journalLimit)
			if err != nil {
				return err
			}
			if jsonFlag {
				return printJSON(events)
			}
			for _, e := range events {
				at := time.UnixMilli(e.OccurredAt).Format(time.TimeOnly)
				fmt.Printf("%s  %-12s %s chat=%s %s\n", at, e.Kind, e.MsgID, e.ChatID, e.Detail)
			}
			return nil
		})
	},
}

func init() {
	sendCmd.Flags().StringVarP(&sendChat, "chat", "c", chat.DefaultChatID, "conversation id")
	messagesCmd.Flags().StringVarP(&messagesChat, "chat", "c", "", "conversation id (empty lists every message)")
	journalCmd.Flags().StringVar(&journalMsg, "msg", "", "message id (empty lists every message)")
	journalCmd.Flags().IntVarP(&journalLimit, "limit", "n", 50, "maximum rows")
	journalCmd.Flags().BoolVar(&journalLinks, "links", false, "show connectivity changes instead of deliveries")
	journalCmd.MarkFlagsMutuallyExclusive("links", "msg")
}

func printLinks(ctx context.Context, c *client.Client) error {
	events, err := c.LinkEvents(ctx, journalLimit)
	if err != nil {
		return err
	}
	if jsonFlag {
		return printJSON(events)
	}
	for _, e := range events {
		at := time.UnixMilli(e.OccurredAt).Format(time.TimeOnly)
		fmt.Printf("%s  %-24s %s\n", at, e.Kind, e.Detail)
	}
	return nil
}

func printMessage(m chat.Message) {
	who := "bot"
	if m.FromMe {
		who = "me"
	}
	at := m.Time().Format("15:04:05")
	fmt.Printf("%s [%s] %-3s %-7s %s\n", at, m.ChatID, who, m.Status, m.Content)
}

func onOff(v bool, yes, no string) string {
	if v {
		return yes
	}
	return no
}
