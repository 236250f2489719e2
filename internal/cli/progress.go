package cli

import (
	"fmt"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"recipes/internal/usecase"
)

// newProgress returns a progress callback drawing a bar on stderr, or
// nil when --quiet is set.
func newProgress(label string, bytes bool) usecase.ProgressFunc {
	if quiet {
		return nil
	}

	var bar *progressbar.ProgressBar
	var mu sync.Mutex
	var start time.Time

	return func(processed, total int64, stage string) {
		mu.Lock()
		defer mu.Unlock()

		if bar == nil {
			start = time.Now()
			bar = progressbar.NewOptions64(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(bytes),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription(fmt.Sprintf("[cyan]%s[reset]", label)),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}

		bar.Set64(processed)

		if processed > 0 && processed < total {
			elapsed := time.Since(start)
			rate := float64(processed) / elapsed.Seconds()
			if rate > 0 {
				eta := time.Duration(float64(total-processed)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]%s[reset] ETA: %s", label, formatDuration(eta)))
			}
		}
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
