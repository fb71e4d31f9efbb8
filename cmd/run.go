package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rpanzer-aviatrix/speedtest/internal/config"
	"github.com/rpanzer-aviatrix/speedtest/internal/output"
	"github.com/rpanzer-aviatrix/speedtest/internal/session"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [small|medium|large]",
		Short: "Run a speed test in the terminal",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load(configPath)
			if err != nil {
				output.PrintError("Failed to load configuration")
				os.Exit(1)
			}
			spec, ok := cfg.Lookup(args[0])
			if !ok {
				output.PrintError(fmt.Sprintf("Invalid file selection %q (choose small, medium or large)", args[0]))
				os.Exit(1)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sess := session.New(spec, clientConfig())
			if err := sess.Run(ctx, &consoleSink{}); err != nil {
				fmt.Println()
				output.PrintError("Speed test interrupted")
				os.Exit(1)
			}
		},
	}
	return cmd
}

// consoleSink renders session events as a live progress line on stdout.
type consoleSink struct {
	sawProgress bool
}

func (c *consoleSink) Send(ev session.Event) error {
	switch ev.Type {
	case session.EventStarted:
		output.PrintInfo(fmt.Sprintf("Testing %s file %s %s", ev.FileSize, output.StyleSymbols["arrow"], ev.URL))
	case session.EventProgress:
		c.sawProgress = true
		width := min(30, output.TerminalWidth()/3)
		bar := output.ProgressBar(ev.DownloadedBytes, ev.TotalBytes, width)
		fmt.Printf("\r%s %s at %.2f Mbps   ", bar, output.FormatBytes(uint64(ev.DownloadedBytes)), ev.ThroughputMbps)
	case session.EventCompleted:
		if c.sawProgress {
			fmt.Println()
		}
		output.PrintSuccess(fmt.Sprintf("%s Downloaded %s in %.2fs at %.2f Mbps",
			output.StyleSymbols["pass"], output.FormatBytes(uint64(ev.DownloadedBytes)), ev.ElapsedSeconds, ev.ThroughputMbps))
	case session.EventError:
		if c.sawProgress {
			fmt.Println()
		}
		output.PrintError(fmt.Sprintf("%s Speed test failed: %s", output.StyleSymbols["fail"], ev.Message))
	}
	return nil
}
