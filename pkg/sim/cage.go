package sim

import (
	"context"

	"github.com/gwillem/linebot/pkg/robot"
)

// Cage is a simulated two-position cage that records its moves.
type Cage struct {
	Moves []string
}

var _ robot.Actuator = (*Cage)(nil)

func (c *Cage) Up(ctx context.Context, wait bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.Moves = append(c.Moves, "up")
	return nil
}

func (c *Cage) Down(ctx context.Context, wait bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.Moves = append(c.Moves, "down")
	return nil
}

// Position returns the last commanded position, or "" before any move.
func (c *Cage) Position() string {
	if len(c.Moves) == 0 {
		return ""
	}
	return c.Moves[len(c.Moves)-1]
}
