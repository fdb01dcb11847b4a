package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"layeh.com/gopus"
)

const (
	sampleRate   = 48000
	channels     = 2
	frameSize    = 960
	maxOpusBytes = 4000

	// pcmFrameBytes is one 20ms frame of interleaved 16-bit stereo.
	pcmFrameBytes = frameSize * channels * 2
)

// Sink receives encoded Opus frames.
type Sink interface {
	// WaitReady blocks until the sink can accept audio.
	WaitReady(ctx context.Context) error
	Speaking(speaking bool) error
	// Send blocks until the frame is accepted or ctx is done.
	Send(ctx context.Context, frame []byte) error
}

type Encoder interface {
	Encode(pcm []int16, frameSize, maxDataBytes int) ([]byte, error)
}

// Player decodes audio files with ffmpeg and streams them as Opus.
type Player struct {
	ffmpegPath string
	newEncoder func() (Encoder, error)
}

func NewPlayer(ffmpegPath string) *Player {
	return &Player{
		ffmpegPath: ffmpegPath,
		newEncoder: func() (Encoder, error) {
			return gopus.NewEncoder(sampleRate, channels, gopus.Audio)
		},
	}
}

// Play streams path into sink until the file ends, decoding fails or ctx is
// cancelled. A natural end returns nil.
func (p *Player) Play(ctx context.Context, path string, sink Sink) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("open audio file: %w", err)
	}

	enc, err := p.newEncoder()
	if err != nil {
		return fmt.Errorf("create opus encoder: %w", err)
	}

	if err := sink.WaitReady(ctx); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, p.ffmpegPath, decodeArgs(path)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	if err := sink.Speaking(true); err != nil {
		slog.Warn("Failed to set speaking state", "error", err)
	}
	defer func() {
		if err := sink.Speaking(false); err != nil {
			slog.Debug("Failed to clear speaking state", "error", err)
		}
	}()

	streamErr := streamFrames(ctx, stdout, enc, sink)
	if streamErr != nil {
		// unblock ffmpeg if it is still writing
		_ = cmd.Process.Kill()
	}
	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if streamErr != nil {
		return streamErr
	}
	if waitErr != nil {
		return fmt.Errorf("ffmpeg: %w: %s", waitErr, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func decodeArgs(path string) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", path,
		"-ac", "2",
		"-f", "s16le",
		"-ar", "48000",
		"pipe:1",
	}
}

// streamFrames encodes fixed-size PCM frames from r and hands them to sink.
// A trailing partial frame is padded with silence.
func streamFrames(ctx context.Context, r io.Reader, enc Encoder, sink Sink) error {
	pcmBuf := make([]byte, pcmFrameBytes)
	samples := make([]int16, frameSize*channels)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := io.ReadFull(r, pcmBuf)
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, io.ErrUnexpectedEOF):
			clear(pcmBuf[n:])
		case err != nil:
			return fmt.Errorf("read pcm: %w", err)
		}

		toSamples(pcmBuf, samples)

		frame, encErr := enc.Encode(samples, frameSize, maxOpusBytes)
		if encErr != nil {
			return fmt.Errorf("encode opus: %w", encErr)
		}
		if sendErr := sink.Send(ctx, frame); sendErr != nil {
			return sendErr
		}

		if err != nil {
			return nil
		}
	}
}

func toSamples(pcm []byte, out []int16) {
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
	}
}
