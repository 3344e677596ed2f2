package printer

import (
	"fmt"
	"strings"
)

const progressBarWidth = 20

// FormatProgress returns a text progress bar.
// Examples: "[--------------------]   0%", "[########------------]  40%".
func FormatProgress(progress int) string {
	progress = max(0, min(progress, 100))
	filled := progress * progressBarWidth / 100

	return fmt.Sprintf("[%s%s] %3d%%",
		strings.Repeat("#", filled),
		strings.Repeat("-", progressBarWidth-filled),
		progress,
	)
}

// FormatJobProgress returns the progress of a provider job, or "-" when the provider
// doesn't report it.
func FormatJobProgress(progress *int) string {
	if progress == nil {
		return "-"
	}
	return fmt.Sprintf("%d%%", *progress)
}
