package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/LeonardoBeccarini/greenhouse_project/internal/services/client"
	"github.com/LeonardoBeccarini/greenhouse_project/pkg/cipher"
)

func main() {
	var (
		addr    string
		timeout time.Duration
	)
	rootCmd := &cobra.Command{
		Use:   "greenhouse-client [addr]",
		Short: "Interactive client for the greenhouse server",
		Long: `greenhouse-client connects to a greenhouse server, sends each line typed on
stdin and prints every line the server sends back. Set GREENHOUSE_CIPHER_KEY
to the same key as the server when line encryption is enabled.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				addr = args[0]
			}
			codec, err := cipher.FromEnv()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c, err := client.Dial(ctx, addr, codec, timeout)
			if err != nil {
				return err
			}
			defer c.Close()
			return c.Run(ctx, os.Stdin, os.Stdout)
		},
	}
	rootCmd.Flags().StringVar(&addr, "addr", "localhost:8080", "server address")
	rootCmd.Flags().DurationVar(&timeout, "dial-timeout", 10*time.Second, "give up connecting after this long")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
