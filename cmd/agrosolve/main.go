package main

import (
	"os"

	"github.com/spf13/cobra"

	askcmder "github.com/agrosolve/agrosolve/cmd/agrosolve/ask"
	chatcmder "github.com/agrosolve/agrosolve/cmd/agrosolve/chat"
	servecmder "github.com/agrosolve/agrosolve/cmd/agrosolve/serve"
)

const rootLongDesc string = `AgroSolve AI answers farming and gardening questions and diagnoses
plant problems from photos, using a hosted Gemini model.

Set GEMINI_API_KEY (or GOOGLE_API_KEY) in the environment or in a .env
file in the working directory.`

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agrosolve",
		Short: "Agricultural advice assistant",
		Long:  rootLongDesc,
	}

	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())

	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
