package chatcmder

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/agrosolve/agrosolve/chat"
	"github.com/agrosolve/agrosolve/cmd/agrosolve/setup"
	"github.com/agrosolve/agrosolve/tui"
)

const chatLongDesc string = `Chat with AgroSolve in the terminal.

Type a question and press enter. Attach a photo with /image PATH; it is
sent with the next message. ctrl+l clears the conversation and drops any
reply still on its way. esc or ctrl+c quits.

The conversation lives only in memory and is lost on exit.`

const chatShortDesc string = "Chat in the terminal"

type chatCommander struct {
	flags   setup.Flags
	logFile string
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	setup.AddFlags(cmd, &cmder.flags)
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Write logs to this file (the screen is owned by the chat)")

	return cmd
}

func (c *chatCommander) run(ctx context.Context, cmd *cobra.Command) error {
	var logOut io.Writer
	if c.logFile != "" {
		f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("could not open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}

	app, err := setup.New(ctx, &c.flags, logOut)
	if err != nil {
		return err
	}
	defer app.Close()

	session := chat.NewSession(uuid.NewString(), app.Adapter, app.Logger)
	defer session.Close()

	return tui.Run(ctx, session, tui.MarkdownStyle(cmd.OutOrStdout()))
}
