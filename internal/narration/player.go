package narration

import (
	"context"
	"fmt"
	"os/exec"
)

// Player plays an audio file to completion.
type Player interface {
	Play(ctx context.Context, path string) error
}

// CommandPlayer plays files with an external program such as aplay or afplay.
type CommandPlayer struct {
	command string
	run     runFunc
}

// NewCommandPlayer returns ErrUnavailable when command is not on PATH.
func NewCommandPlayer(command string) (*CommandPlayer, error) {
	if command == "" {
		command = "aplay"
	}
	if _, err := exec.LookPath(command); err != nil {
		return nil, fmt.Errorf("%w: %s not found", ErrUnavailable, command)
	}
	return &CommandPlayer{command: command, run: execRun}, nil
}

// Play blocks until playback ends or ctx is canceled.
func (p *CommandPlayer) Play(ctx context.Context, path string) error {
	args := []string{path}
	if p.command == "aplay" {
		args = []string{"-q", path}
	}
	return p.run(ctx, "", p.command, args...)
}
