package pipeline

import (
	"errors"
	"fmt"

	"github.com/ivlev/wallpaper2video/internal/media"
)

// Describe turns an error into a message for the person who made the request.
// Each error kind gets its own advice.
func Describe(err error) string {
	var (
		empty       *media.EmptySequenceError
		unsupported *media.UnsupportedAssetError
		narration   *media.NarrationUnavailableError
		timing      *media.TimingInconsistencyError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &empty):
		return fmt.Sprintf("Nothing to show: %v. Add at least one wallpaper or clip.", empty)
	case errors.As(err, &unsupported):
		return fmt.Sprintf("Cannot use %q. Upload a PNG, JPG, GIF, WebP, PDF or a video clip and try again.", unsupported.Path)
	case errors.As(err, &narration):
		return fmt.Sprintf("Voice-over could not be prepared (%v). Check the narration settings and retry.", narration.Err)
	case errors.As(err, &timing):
		return fmt.Sprintf("Internal timing error (%v). This is a bug, please report it.", timing)
	default:
		return fmt.Sprintf("Video generation failed: %v", err)
	}
}
