package video

import (
	"strconv"
	"strings"
)

// ProbeResult is the subset of ffprobe output the pipeline consumes.
type ProbeResult struct {
	Duration   float64
	Width      int
	Height     int
	FrameRate  float64
	BitRate    int64
	VideoCodec string
	AudioCodec string
	Container  string
	HasAudio   bool
}

// ffprobeOutput mirrors the JSON emitted by
// ffprobe -print_format json -show_format -show_streams.
type ffprobeOutput struct {
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
		Name     string `json:"format_name"`
	} `json:"format"`
}

// ParseFrameRate converts ffprobe's rational frame rate ("30/1",
// "24000/1001") to a float. Zero denominators and malformed input yield
// 0 rather than an error; a missing frame rate never fails a job.
func ParseFrameRate(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	parts := strings.Split(s, "/")
	switch len(parts) {
	case 1:
		f, err := strconv.ParseFloat(parts[0], 64)
		if err != nil || f < 0 {
			return 0
		}
		return f
	case 2:
		num, errN := strconv.ParseFloat(parts[0], 64)
		den, errD := strconv.ParseFloat(parts[1], 64)
		if errN != nil || errD != nil || den <= 0 || num < 0 {
			return 0
		}
		return num / den
	default:
		return 0
	}
}

func (o *ffprobeOutput) toResult() ProbeResult {
	res := ProbeResult{
		Container: strings.Split(o.Format.Name, ",")[0],
	}

	if o.Format.Duration != "" {
		if d, err := strconv.ParseFloat(o.Format.Duration, 64); err == nil {
			res.Duration = d
		}
	}
	if o.Format.BitRate != "" {
		if b, err := strconv.ParseInt(o.Format.BitRate, 10, 64); err == nil {
			res.BitRate = b
		}
	}

	for _, stream := range o.Streams {
		switch stream.CodecType {
		case "video":
			res.VideoCodec = stream.CodecName
			res.Width = stream.Width
			res.Height = stream.Height
			res.FrameRate = ParseFrameRate(stream.RFrameRate)
		case "audio":
			res.AudioCodec = stream.CodecName
			res.HasAudio = true
		}
	}
	return res
}
