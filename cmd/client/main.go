// Command client is an interactive terminal client for the relay.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/omochice/alisa-relay/internal/client"
	"github.com/omochice/alisa-relay/internal/transport/ws"
)

var serverAddr string

var rootCmd = &cobra.Command{
	Use:   "alisa-client",
	Short: "Chat with the relay from a terminal",
	Long: `Type a message and press enter to chat. Replies stream in as they are
generated. Lines starting with /mode switch the conversational mode, for
example "/mode teasing". Type quit to exit.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVarP(&serverAddr, "server", "s", "localhost:8000", "relay address (host:port)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	c := client.New("ws://"+serverAddr+ws.Path, nil)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer c.Disconnect()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Connected to %s. Type your messages (or 'quit' to exit):\n", serverAddr)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "quit" {
			return nil
		}
		if err := c.Send(text); err != nil {
			return err
		}

		reply, err := c.Collect(ctx, func(tok string) { fmt.Fprint(out, tok) })
		if err != nil {
			return err
		}
		switch {
		case reply.Err != "":
			fmt.Fprintf(out, "\n*** error: %s ***\n", reply.Err)
		case reply.ModeChanged:
			fmt.Fprintln(out, "*** mode changed ***")
		default:
			fmt.Fprintf(out, "\n[%s]\n", reply.Emotion)
		}
	}
}
