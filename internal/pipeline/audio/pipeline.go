// Package audio extracts technical metadata from audio assets. Audio
// has no raster renditions; a completed audio asset carries duration,
// codec, and bitrate but no thumbnail or preview keys.
package audio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/contenthub/contenthub/internal/blobstore"
	"github.com/contenthub/contenthub/internal/catalog"
	"github.com/contenthub/contenthub/internal/lifecycle"
	"github.com/contenthub/contenthub/internal/logger"
	"github.com/contenthub/contenthub/internal/pipeline"
	"github.com/google/uuid"
)

// Prober inspects an audio source. Satisfied by FFprobe below and by
// fakes in tests.
type Prober interface {
	Probe(ctx context.Context, sourceURL string) (Info, error)
}

// Info is the probed shape of an audio file.
type Info struct {
	Duration   float64
	BitRate    int64
	Codec      string
	Container  string
	SampleRate int
	Channels   int
}

type Pipeline struct {
	store         catalog.Store
	blobs         blobstore.Storage
	tracker       *lifecycle.Tracker
	prober        Prober
	presignExpiry int
}

func NewPipeline(store catalog.Store, blobs blobstore.Storage, prober Prober, presignExpirySecs int) *Pipeline {
	if presignExpirySecs <= 0 {
		presignExpirySecs = 900
	}
	return &Pipeline{
		store:         store,
		blobs:         blobs,
		tracker:       lifecycle.NewTracker(store),
		prober:        prober,
		presignExpiry: presignExpirySecs,
	}
}

func (p *Pipeline) Process(ctx context.Context, assetID uuid.UUID, fileKey string) error {
	log := logger.FromContext(ctx)

	if err := p.tracker.MarkProcessing(ctx, assetID); err != nil {
		if errors.Is(err, lifecycle.ErrAlreadyCompleted) {
			log.Info("asset already completed, skipping")
			return nil
		}
		return pipeline.Transient("mark_processing", err)
	}

	sourceURL, err := p.blobs.GetPresignedURL(ctx, fileKey, p.presignExpiry)
	if err != nil {
		return pipeline.Transient("presign", err)
	}

	info, err := p.prober.Probe(ctx, sourceURL)
	if err != nil {
		return pipeline.Classify("probe", fmt.Errorf("probe audio: %w", err))
	}
	log.Info("audio probed",
		"codec", info.Codec, "duration", info.Duration, "bitrate", info.BitRate)

	meta := catalog.Metadata{
		AssetID:      assetID,
		Container:    &info.Container,
		AudioCodec:   &info.Codec,
		CustomFields: map[string]string{},
	}
	if info.BitRate > 0 {
		meta.BitRate = &info.BitRate
	}
	if info.SampleRate > 0 {
		meta.CustomFields["sample_rate"] = strconv.Itoa(info.SampleRate)
	}
	if info.Channels > 0 {
		meta.CustomFields["channels"] = strconv.Itoa(info.Channels)
	}
	if err := p.store.CreateMetadata(ctx, meta); err != nil {
		return pipeline.Transient("metadata", err)
	}

	duration := info.Duration
	if err := p.tracker.MarkCompleted(ctx, assetID, lifecycle.Completion{Duration: &duration}); err != nil {
		return pipeline.Transient("mark_completed", err)
	}
	return nil
}

// FFprobe is the production Prober.
type FFprobe struct {
	path string
}

func NewFFprobe(path string) (*FFprobe, error) {
	if path == "" {
		path = "ffprobe"
	}
	if _, err := exec.LookPath(path); err != nil {
		return nil, fmt.Errorf("audio: ffprobe binary not found: %w", err)
	}
	return &FFprobe{path: path}, nil
}

type ffprobeAudioOutput struct {
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
		Name     string `json:"format_name"`
	} `json:"format"`
}

func (f *FFprobe) Probe(ctx context.Context, sourceURL string) (Info, error) {
	cmd := exec.CommandContext(ctx, f.path,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		sourceURL,
	)
	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return Info{}, fmt.Errorf("ffprobe: %w", ctx.Err())
		}
		return Info{}, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probe ffprobeAudioOutput
	if err := json.Unmarshal(output, &probe); err != nil {
		return Info{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	info := Info{Container: strings.Split(probe.Format.Name, ",")[0]}
	if probe.Format.Duration != "" {
		if d, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
			info.Duration = d
		}
	}
	if probe.Format.BitRate != "" {
		if b, err := strconv.ParseInt(probe.Format.BitRate, 10, 64); err == nil {
			info.BitRate = b
		}
	}
	for _, stream := range probe.Streams {
		if stream.CodecType != "audio" {
			continue
		}
		info.Codec = stream.CodecName
		info.Channels = stream.Channels
		if sr, err := strconv.Atoi(stream.SampleRate); err == nil {
			info.SampleRate = sr
		}
		break
	}

	if info.Codec == "" {
		return Info{}, errors.New("no audio stream found")
	}
	return info, nil
}
