package system

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// AudioExtensions are the files picked up as music beds.
var AudioExtensions = []string{".mp3", ".wav", ".m4a", ".ogg", ".aac", ".flac"}

func InitResourceLimits() {
	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		log.Warn().Err(err).Msg("не удалось получить лимит файлов")
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		log.Warn().Err(err).Msg("не удалось установить лимит файлов")
		return
	}
	log.Debug().Uint64("nofile", rLimit.Cur).Msg("open file limit raised")
}

// Resources is a snapshot of the host used to size worker pools.
type Resources struct {
	LogicalCPUs int
	TotalMemory uint64
	FreeMemory  uint64
}

// frameBudget is the memory one worker needs to hold a few full-HD RGBA frames.
const frameBudget = 64 << 20

// Detect reads CPU and memory figures. Missing figures fall back to runtime values.
func Detect() Resources {
	r := Resources{LogicalCPUs: runtime.NumCPU()}
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		r.LogicalCPUs = n
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		r.TotalMemory = vm.Total
		r.FreeMemory = vm.Available
	}
	return r
}

// Workers returns the number of parallel jobs to run. A positive requested value
// wins; otherwise one job per CPU, capped by available memory.
func (r Resources) Workers(requested int) int {
	if requested > 0 {
		return requested
	}
	n := r.LogicalCPUs
	if r.FreeMemory > 0 {
		if byMem := int(r.FreeMemory / frameBudget); byMem < n {
			n = byMem
		}
	}
	if n < 1 {
		n = 1
	}
	return n
}

// FindLatestAudio returns the most recently modified audio file in dir.
func FindLatestAudio(dir string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() || !IsAudio(f.Name()) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("в папке %s не найдено аудио-файлов", dir)
	}
	return latestFile, nil
}

func IsAudio(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range AudioExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

var (
	encoderOnce sync.Once
	encoderName string
)

// GetBestH264Encoder picks a hardware H.264 encoder when ffmpeg offers one.
// Порядок: VideoToolbox (macOS), NVENC, затем программный libx264.
func GetBestH264Encoder() (string, string) {
	encoderOnce.Do(func() {
		encoderName = "libx264"
		out, err := exec.Command("ffmpeg", "-hide_banner", "-encoders").CombinedOutput()
		if err != nil {
			return
		}
		for _, name := range []string{"h264_videotoolbox", "h264_nvenc"} {
			if strings.Contains(string(out), name) {
				encoderName = name
				return
			}
		}
	})
	return encoderName, ""
}
