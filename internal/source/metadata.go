package source

import (
	"encoding/json"
	"fmt"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Inspector reads the native duration of a media file.
type Inspector interface {
	Duration(path string) (float64, error)
}

// FFInspector is an Inspector backed by ffprobe.
type FFInspector struct{}

type formatOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Duration  string `json:"duration"`
	} `json:"streams"`
}

func (FFInspector) Duration(path string) (float64, error) {
	raw, err := ffmpeg.Probe(path)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var out formatOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return 0, fmt.Errorf("ffprobe %s: decode: %w", path, err)
	}

	// Container duration first, then any stream that reports one.
	candidates := []string{out.Format.Duration}
	for _, s := range out.Streams {
		candidates = append(candidates, s.Duration)
	}
	for _, c := range candidates {
		if c == "" || c == "N/A" {
			continue
		}
		d, err := strconv.ParseFloat(c, 64)
		if err == nil && d > 0 {
			return d, nil
		}
	}
	return 0, fmt.Errorf("ffprobe %s: no duration reported", path)
}
