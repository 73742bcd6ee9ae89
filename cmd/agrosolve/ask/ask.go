package askcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/agrosolve/agrosolve/cmd/agrosolve/setup"
	"github.com/agrosolve/agrosolve/pkg/advice"
	"github.com/agrosolve/agrosolve/pkg/datauri"
	"github.com/agrosolve/agrosolve/tui"
)

const askLongDesc string = `Ask AgroSolve a single question.

The prompt is every argument joined by spaces. With --image a photo is
sent along; a photo without a prompt is diagnosed with the default
question. Replies are rendered as markdown when stdout is a terminal.

Examples:
  agrosolve ask how deep should I plant garlic
  agrosolve ask --image leaf.jpg "what is wrong with this tomato?"
  agrosolve ask --raw --image leaf.jpg > diagnosis.md`

const askShortDesc string = "Ask a single question"

type askCommander struct {
	flags     setup.Flags
	imagePath string
	raw       bool
}

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask [prompt...]",
		Short: askShortDesc,
		Long:  askLongDesc,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, strings.Join(args, " "))
		},
	}

	setup.AddFlags(cmd, &cmder.flags)
	cmd.Flags().StringVarP(&cmder.imagePath, "image", "i", "", "Path to a photo to send with the prompt")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print the reply without markdown rendering")

	return cmd
}

func (c *askCommander) run(ctx context.Context, cmd *cobra.Command, prompt string) error {
	prompt = strings.TrimSpace(prompt)

	image, err := c.loadImage()
	if err != nil {
		return err
	}
	if prompt == "" && image == "" {
		return errors.New("nothing to ask: pass a prompt, an --image, or both")
	}

	app, err := setup.New(ctx, &c.flags, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer app.Close()

	result := app.Adapter.Advise(ctx, prompt, image)
	if err := c.print(cmd.OutOrStdout(), advice.Present(result)); err != nil {
		return err
	}

	if !result.OK() && result.Kind != advice.KindNoText {
		cmd.SilenceUsage = true
		return fmt.Errorf("advice failed (%s)", result.Kind)
	}
	return nil
}

func (c *askCommander) loadImage() (string, error) {
	if c.imagePath == "" {
		return "", nil
	}

	data, err := os.ReadFile(c.imagePath)
	if err != nil {
		return "", fmt.Errorf("could not read image: %w", err)
	}
	return datauri.Encode(datauri.Detect(data), data), nil
}

func (c *askCommander) print(out io.Writer, text string) error {
	f, isFile := out.(*os.File)
	if c.raw || !isFile || !term.IsTerminal(int(f.Fd())) {
		_, err := fmt.Fprintln(out, text)
		return err
	}

	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		width = 80
	}

	rendered, err := tui.RenderMarkdown(text, tui.MarkdownStyle(f), width)
	if err != nil {
		rendered = text
	}
	_, err = fmt.Fprintln(out, rendered)
	return err
}
