package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/saker-ai/realtime-assistant/pkg/eventbus"
	"github.com/saker-ai/realtime-assistant/pkg/realtime"
	"github.com/saker-ai/realtime-assistant/pkg/runtime"
)

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Text conversation with the realtime service",
		Long: `Connects to the realtime service with text-only modalities and reads
one user message per line from stdin. Tool calls run against the configured
backends. Ctrl-D or Ctrl-C ends the conversation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runChat(ctx, os.Stdin, cmd.OutOrStdout())
		},
	}
}

func runChat(ctx context.Context, in io.Reader, out io.Writer) error {
	cfg, logger, err := runtime.Bootstrap(configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()
	if err := cfg.Realtime.Validate(); err != nil {
		return err
	}

	registry, release, err := runtime.BuildTools(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer release()

	clientCfg := cfg.ClientConfig()
	clientCfg.Session.Modalities = []string{"text"}
	clientCfg.Session.TurnDetection = nil
	clientCfg.Response.Modalities = []string{"text"}

	client := realtime.New(clientCfg, registry, realtime.WithLogger(logger.Named("realtime")))
	defer client.Close()

	printer := &chatPrinter{out: out}
	if err := client.On(realtime.ConversationTextDelta, eventbus.Func(printer.onTextDelta)); err != nil {
		return err
	}

	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer client.Disconnect()
	if cfg.Persona.Welcome != "" {
		fmt.Fprintln(out, cfg.Persona.Welcome)
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			if !client.IsConnected() {
				return fmt.Errorf("realtime connection lost")
			}
			if err := client.SendUserText(ctx, text); err != nil {
				logger.Error("send user text failed", zap.Error(err))
				return err
			}
		}
	}
}

type chatPrinter struct {
	out io.Writer
}

func (p *chatPrinter) onTextDelta(ev eventbus.Event) {
	delta, ok := ev.Payload.(realtime.TextDelta)
	if !ok {
		return
	}
	if delta.Started {
		fmt.Fprint(p.out, "\nassistant: ")
	}
	fmt.Fprint(p.out, delta.Delta)
}
