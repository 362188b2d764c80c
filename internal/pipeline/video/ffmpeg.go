package video

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
)

var (
	ErrFFmpegNotFound  = errors.New("video: ffmpeg binary not found")
	ErrFFprobeNotFound = errors.New("video: ffprobe binary not found")
)

// Engine abstracts the external media toolchain so the pipeline can be
// tested without ffmpeg installed.
type Engine interface {
	// Probe inspects the source and returns its technical properties.
	Probe(ctx context.Context, sourceURL string) (ProbeResult, error)

	// ExtractFrame writes a single JPEG frame taken at the given offset
	// to outputPath.
	ExtractFrame(ctx context.Context, sourceURL string, atSeconds float64, outputPath string) error

	// TranscodePreview writes an H.264 MP4 clip of the first maxSeconds
	// of the source to outputPath, reporting progress in [0,1] as it
	// goes. The progress callback may be nil.
	TranscodePreview(ctx context.Context, sourceURL string, outputPath string, maxSeconds float64, progress func(ratio float64)) error
}

// FFmpegEngine shells out to ffmpeg and ffprobe. Sources are read
// directly over presigned HTTP URLs so originals are never copied to
// local disk.
type FFmpegEngine struct {
	ffmpegPath  string
	ffprobePath string
	maxHeight   int
}

type EngineConfig struct {
	FFmpegPath  string
	FFprobePath string
	// MaxHeight caps the preview clip resolution; taller sources are
	// scaled down preserving aspect ratio.
	MaxHeight int
}

func NewFFmpegEngine(cfg EngineConfig) (*FFmpegEngine, error) {
	ffmpegPath := cfg.FFmpegPath
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	ffprobePath := cfg.FFprobePath
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	maxHeight := cfg.MaxHeight
	if maxHeight <= 0 {
		maxHeight = 720
	}

	if _, err := exec.LookPath(ffmpegPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFFmpegNotFound, err)
	}
	if _, err := exec.LookPath(ffprobePath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFFprobeNotFound, err)
	}

	return &FFmpegEngine{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		maxHeight:   maxHeight,
	}, nil
}

func (e *FFmpegEngine) Probe(ctx context.Context, sourceURL string) (ProbeResult, error) {
	cmd := exec.CommandContext(ctx, e.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		sourceURL,
	)
	output, err := cmd.Output()
	if err != nil {
		// A killed process reports "signal: killed"; surface the context
		// error instead so callers can classify the failure.
		if ctx.Err() != nil {
			return ProbeResult{}, fmt.Errorf("ffprobe: %w", ctx.Err())
		}
		return ProbeResult{}, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probe ffprobeOutput
	if err := json.Unmarshal(output, &probe); err != nil {
		return ProbeResult{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	return probe.toResult(), nil
}

func (e *FFmpegEngine) ExtractFrame(ctx context.Context, sourceURL string, atSeconds float64, outputPath string) error {
	cmd := exec.CommandContext(ctx, e.ffmpegPath,
		"-ss", fmt.Sprintf("%.2f", atSeconds),
		"-i", sourceURL,
		"-vframes", "1",
		"-q:v", "2",
		"-y",
		outputPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("frame extraction: %w", ctx.Err())
		}
		return fmt.Errorf("frame extraction failed: %w, output: %s", err, string(output))
	}
	return nil
}

func (e *FFmpegEngine) TranscodePreview(ctx context.Context, sourceURL string, outputPath string, maxSeconds float64, progress func(ratio float64)) error {
	args := []string{
		"-i", sourceURL,
		"-t", fmt.Sprintf("%.2f", maxSeconds),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-vf", fmt.Sprintf("scale=-2:'min(%d,ih)'", e.maxHeight),
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "+faststart",
		"-progress", "pipe:1",
		"-nostats",
		"-y",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("transcode pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("transcode start: %w", err)
	}

	readProgress(stdout, maxSeconds, progress)

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("transcode: %w", ctx.Err())
		}
		return fmt.Errorf("transcode failed: %w, stderr: %s", err, stderr.String())
	}
	if progress != nil {
		progress(1)
	}
	return nil
}

// readProgress consumes ffmpeg's key=value progress stream and reports
// the out_time fraction of the clip length.
func readProgress(r io.Reader, totalSeconds float64, progress func(float64)) {
	if progress == nil || totalSeconds <= 0 {
		// Drain the pipe so ffmpeg is not blocked on a full buffer.
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
		}
		return
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		value, ok := strings.CutPrefix(line, "out_time_us=")
		if !ok {
			continue
		}
		us, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			continue
		}
		ratio := float64(us) / 1e6 / totalSeconds
		if ratio > 1 {
			ratio = 1
		}
		if ratio >= 0 {
			progress(ratio)
		}
	}
}
