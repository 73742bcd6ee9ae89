package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/agrosolve/agrosolve/chat"
)

// Run shows the chat screen until the user quits or ctx is canceled.
func Run(ctx context.Context, session *chat.Session, style string) error {
	p := tea.NewProgram(
		NewModel(ctx, session, style),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
