package agent

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/famboard/famboard-api/internal/board"
)

// ExecSink plays audio by piping it into an external player command,
// typically aplay or mpg123 on the display device.
type ExecSink struct {
	command string
	args    []string
	logger  *zap.Logger
}

// NewExecSink parses a player command line such as "mpg123 -q -".
func NewExecSink(commandLine string, logger *zap.Logger) (*ExecSink, error) {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return nil, fmt.Errorf("player command is empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecSink{command: fields[0], args: fields[1:], logger: logger}, nil
}

// PlayCue plays a short built-in tone for the cue.
func (s *ExecSink) PlayCue(ctx context.Context, cue board.Cue) error {
	return s.PlayAudio(ctx, cueTone(cue))
}

// PlayAudio pipes the audio bytes into the player command's stdin.
func (s *ExecSink) PlayAudio(ctx context.Context, audio []byte) error {
	if len(audio) == 0 {
		return fmt.Errorf("no audio to play")
	}
	cmd := exec.CommandContext(ctx, s.command, s.args...)
	cmd.Stdin = bytes.NewReader(audio)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("player %s: %w (%s)", s.command, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// cueTone renders a square-wave beep as a WAV payload. The alert cue is
// longer and higher pitched than the chime.
func cueTone(cue board.Cue) []byte {
	const sampleRate = 8000
	freq, millis := 660, 200
	if cue == board.CueAlert {
		freq, millis = 880, 600
	}
	samples := sampleRate * millis / 1000
	data := make([]byte, samples)
	period := sampleRate / freq
	for i := range data {
		if (i/(period/2))%2 == 0 {
			data[i] = 0xC0
		} else {
			data[i] = 0x40
		}
	}
	return wrapWAV(data, sampleRate)
}

func wrapWAV(pcm []byte, sampleRate int) []byte {
	var buf bytes.Buffer
	dataLen := len(pcm)
	writeU32 := func(v uint32) {
		buf.Write([]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
	}
	writeU16 := func(v uint16) {
		buf.Write([]byte{byte(v), byte(v >> 8)})
	}
	buf.WriteString("RIFF")
	writeU32(uint32(36 + dataLen))
	buf.WriteString("WAVEfmt ")
	writeU32(16)
	writeU16(1) // PCM
	writeU16(1) // mono
	writeU32(uint32(sampleRate))
	writeU32(uint32(sampleRate)) // byte rate, 8-bit mono
	writeU16(1)
	writeU16(8)
	buf.WriteString("data")
	writeU32(uint32(dataLen))
	buf.Write(pcm)
	return buf.Bytes()
}

// LogNotifier surfaces notifications in the agent log. Headless displays
// have no notification tray, so permission is always granted.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier constructs a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Permitted always reports true.
func (n *LogNotifier) Permitted() bool {
	return true
}

// Notify writes the notification to the log.
func (n *LogNotifier) Notify(ctx context.Context, notification board.Notification) error {
	n.logger.Info("notification",
		zap.String("tag", notification.Tag),
		zap.String("body", notification.Body),
		zap.Bool("sticky", notification.RequireInteraction))
	return nil
}
