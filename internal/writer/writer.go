// Package writer implements the lossless video writer (spec.md C8) by
// piping raw RGB frames into an external ffmpeg process, the same
// os/exec-driven pattern the teacher's service/audio_service.go uses for
// convertWAVToMP3WithFFmpeg, generalized from a one-shot stdin/stdout
// conversion to a long-lived process fed frame batch by frame batch.
//
// Unlike original_source/src/ffmpeg_wrap.py's LosslessWriter, which falls
// back to a cv2.VideoWriter MJPEG writer when ffmpeg is missing, this
// writer fails closed: MJPEG is lossy and spec.md §4.8 only permits a
// fallback writer that is "still... lossless". No such fallback exists in
// this dependency set, so a missing ffmpeg binary is reported as IoError
// rather than silently downgrading the artifact (see DESIGN.md).
package writer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/kodestego/stegovid/internal/videoio"
	"github.com/kodestego/stegovid/models"
)

// Writer pipes raw RGB24 frames to ffmpeg and mux a lossless Matroska
// file. It implements videoio.FrameSink.
type Writer struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
	path   string
}

// New starts the ffmpeg process for the given dimensions/codec. path is
// normalized to a .mkv extension per spec.md §6.
func New(ctx context.Context, path string, w, h int, fps float64, codec models.Codec) (*Writer, error) {
	if !codec.IsValid() {
		return nil, fmt.Errorf("%w: unsupported codec %q", models.ErrIO, codec)
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("%w: ffmpeg binary not found on PATH: %v", models.ErrIO, err)
	}

	mkvPath := forceMKV(path)
	if fps <= 0 {
		fps = 25
	}

	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-s", fmt.Sprintf("%dx%d", w, h),
		"-r", fmt.Sprintf("%g", fps),
		"-i", "-",
	}
	args = append(args, codecArgs(codec)...)
	args = append(args, mkvPath)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: opening ffmpeg stdin: %v", models.ErrIO, err)
	}
	wr := &Writer{cmd: cmd, stdin: stdin, path: mkvPath}
	cmd.Stderr = &wr.stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: starting ffmpeg: %v", models.ErrIO, err)
	}
	log.Printf("[INFO] writer: started ffmpeg for %s at %dx%d@%g (%s)", mkvPath, w, h, fps, codec)
	return wr, nil
}

func codecArgs(codec models.Codec) []string {
	switch codec {
	case models.CodecFFV1:
		return []string{
			"-c:v", "ffv1",
			"-level", "3",
			"-slicecrc", "1",
			"-pix_fmt", "rgb24",
			"-g", "1",
		}
	case models.CodecH264RGB:
		return []string{
			"-c:v", "libx264rgb",
			"-preset", "veryslow",
			"-crf", "0",
			"-pix_fmt", "rgb24",
			"-g", "1",
		}
	default:
		return nil
	}
}

func forceMKV(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".mkv") {
		return path
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".mkv"
}

// WriteFrames writes each frame's flat RGB bytes to ffmpeg's stdin, in
// order.
func (w *Writer) WriteFrames(ctx context.Context, frames []videoio.Frame) error {
	for _, f := range frames {
		if _, err := w.stdin.Write(f.Pix); err != nil {
			return fmt.Errorf("%w: writing frame to ffmpeg: %v", models.ErrIO, err)
		}
	}
	return nil
}

// Close finishes feeding ffmpeg and waits for it to finalize the file.
func (w *Writer) Close() error {
	if err := w.stdin.Close(); err != nil {
		return fmt.Errorf("%w: closing ffmpeg stdin: %v", models.ErrIO, err)
	}
	if err := w.cmd.Wait(); err != nil {
		return fmt.Errorf("%w: ffmpeg exited with error: %v; stderr: %s", models.ErrIO, err, w.stderr.String())
	}
	return nil
}

// Path returns the final, extension-normalized output path.
func (w *Writer) Path() string {
	return w.path
}
