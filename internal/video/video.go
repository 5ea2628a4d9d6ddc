package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ivlev/wallpaper2video/internal/media"
	"github.com/ivlev/wallpaper2video/internal/system"
	"github.com/ivlev/wallpaper2video/internal/timeline"
)

// RenderOptions control the encoder. VideoCodec "auto" picks the best available
// H.264 encoder.
type RenderOptions struct {
	FPS        int
	VideoCodec string
	AudioCodec string
	Quality    int
}

type Encoder interface {
	Render(ctx context.Context, tl *timeline.Timeline, outputPath string, opts RenderOptions) (string, error)
}

// FFmpegEncoder rasterizes a timeline frame by frame and pipes raw RGBA into ffmpeg,
// which also builds the audio mix.
type FFmpegEncoder struct{}

func (e *FFmpegEncoder) Render(ctx context.Context, tl *timeline.Timeline, outputPath string, opts RenderOptions) (string, error) {
	if opts.FPS <= 0 {
		return "", fmt.Errorf("fps must be positive, got %d", opts.FPS)
	}
	if opts.VideoCodec == "" || opts.VideoCodec == "auto" {
		opts.VideoCodec, _ = system.GetBestH264Encoder()
	}
	if opts.AudioCodec == "" {
		opts.AudioCodec = "aac"
	}
	if err := checkEven(tl.OutputSize()); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return "", err
	}

	args := buildArgs(tl, outputPath, opts)
	log.Debug().Str("args", strings.Join(args, " ")).Msg("ffmpeg")

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return "", fmt.Errorf("stdin pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("ffmpeg start error: %w", err)
	}

	if err := e.writeFrames(ctx, stdin, tl, opts.FPS); err != nil {
		stdin.Close()
		_ = cmd.Wait()
		return "", err
	}
	stdin.Close()

	if err := cmd.Wait(); err != nil {
		return "", fmt.Errorf("ffmpeg wait error: %w, output: %s", err, tail(stderr.String(), 2000))
	}
	return outputPath, nil
}

// FrameCount is the number of frames needed to cover the timeline.
func FrameCount(tl *timeline.Timeline, fps int) int {
	return int(math.Round(tl.Duration() * float64(fps)))
}

func (e *FFmpegEncoder) writeFrames(ctx context.Context, w io.Writer, tl *timeline.Timeline, fps int) error {
	size := tl.OutputSize()
	frame := system.GetImage(image.Rect(0, 0, size.W, size.H))
	defer system.PutImage(frame)

	total := FrameCount(tl, fps)
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		p, local := tl.SceneAt(float64(i) / float64(fps))
		if err := p.Scene.Composite.RenderInto(frame, local); err != nil {
			return fmt.Errorf("scene %d at %.3fs: %w", p.Index, local, err)
		}
		if err := e.writeRawRGBA(w, frame); err != nil {
			return fmt.Errorf("write raw error: %w", err)
		}
		if i > 0 && i%(fps*5) == 0 {
			log.Info().Int("frame", i).Int("total", total).Msg("rendering")
		}
	}
	return nil
}

func (e *FFmpegEncoder) writeRawRGBA(w io.Writer, img image.Image) error {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 || rgba.Rect.Min.X != 0 || rgba.Rect.Min.Y != 0 {
		rgba = image.NewRGBA(bounds)
		draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
	}
	_, err := w.Write(rgba.Pix)
	return err
}

// buildArgs assembles the ffmpeg command line: raw video on stdin, one input per
// narration delayed to its scene offset, and the music bed looped, trimmed and
// attenuated. Audio inputs are summed without normalisation.
func buildArgs(tl *timeline.Timeline, outputPath string, opts RenderOptions) []string {
	size := tl.OutputSize()
	total := tl.Duration()

	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", size.String(),
		"-framerate", fmt.Sprintf("%d", opts.FPS),
		"-i", "-",
	}

	var filters, labels []string
	input := 1
	for _, seg := range tl.AudioMix() {
		if seg.Loop {
			args = append(args, "-stream_loop", "-1")
		}
		args = append(args, "-i", seg.Path)

		label := fmt.Sprintf("[a%d]", input)
		chain := fmt.Sprintf("[%d:a]atrim=0:%s,asetpts=PTS-STARTPTS", input, seconds(seg.Duration))
		if seg.Start > 0 {
			chain += fmt.Sprintf(",adelay=%d:all=1", int(math.Round(seg.Start*1000)))
		}
		if seg.Volume != 1 {
			chain += fmt.Sprintf(",volume=%.3f", seg.Volume)
		}
		filters = append(filters, chain+label)
		labels = append(labels, label)
		input++
	}

	audioOut := ""
	switch len(labels) {
	case 0:
	case 1:
		audioOut = labels[0]
	default:
		filters = append(filters, fmt.Sprintf("%samix=inputs=%d:duration=longest:normalize=0[aout]", strings.Join(labels, ""), len(labels)))
		audioOut = "[aout]"
	}

	if len(filters) > 0 {
		args = append(args, "-filter_complex", strings.Join(filters, ";"))
	}
	args = append(args, "-map", "0:v")
	if audioOut != "" {
		args = append(args, "-map", audioOut, "-c:a", opts.AudioCodec)
	}

	args = append(args, "-c:v", opts.VideoCodec, "-pix_fmt", "yuv420p", "-r", fmt.Sprintf("%d", opts.FPS))
	args = append(args, qualityArgs(opts.VideoCodec, opts.Quality)...)
	args = append(args, "-t", seconds(total), outputPath)
	return args
}

func qualityArgs(encoder string, quality int) []string {
	switch encoder {
	case "h264_videotoolbox":
		// VideoToolbox не везде понимает -q:v, задаём битрейт.
		return []string{"-b:v", fmt.Sprintf("%dk", quality*100)}
	case "h264_nvenc":
		return []string{"-cq", fmt.Sprintf("%d", quality)}
	default: // libx264
		return []string{"-crf", fmt.Sprintf("%d", quality), "-preset", "medium"}
	}
}

func seconds(v float64) string {
	return fmt.Sprintf("%.3f", v)
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func checkEven(size media.Size) error {
	if size.W%2 != 0 || size.H%2 != 0 {
		return fmt.Errorf("yuv420p needs even dimensions, got %s", size)
	}
	return nil
}
