package sound

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Player plays a sound file to completion or until ctx is done.
type Player interface {
	Play(ctx context.Context, cue string, volume float64) error
}

// paVolumeNorm is 100% volume for paplay.
const paVolumeNorm = 65536

// ExecPlayer plays cues by running an external command, paplay by default.
// The arguments may contain {volume} and {cue} placeholders.
type ExecPlayer struct {
	Command string
	Args    []string
}

func NewExecPlayer(command string, args []string) *ExecPlayer {
	if command == "" {
		command = "paplay"
		args = []string{"--volume={volume}", "{cue}"}
	}
	if len(args) == 0 {
		args = []string{"{cue}"}
	}
	return &ExecPlayer{Command: command, Args: args}
}

func (p *ExecPlayer) Play(ctx context.Context, cue string, volume float64) error {
	replacer := strings.NewReplacer(
		"{volume}", fmt.Sprintf("%d", int(volume*paVolumeNorm)),
		"{cue}", cue,
	)
	args := make([]string, 0, len(p.Args))
	for _, a := range p.Args {
		args = append(args, replacer.Replace(a))
	}

	cmd := exec.CommandContext(ctx, p.Command, args...)
	var errb bytes.Buffer
	cmd.Stderr = &errb

	err := cmd.Run()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		if errb.Len() > 0 {
			return fmt.Errorf("%s failed: %v: %s", p.Command, err, strings.TrimSpace(errb.String()))
		}
		return fmt.Errorf("%s failed: %v", p.Command, err)
	}
	return nil
}
