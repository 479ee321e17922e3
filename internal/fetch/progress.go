package fetch

import (
	"regexp"
	"strconv"
	"strings"

	"subgen/internal/job"
)

var downloadPercentPattern = regexp.MustCompile(`^\[download\]\s+(\d+(?:\.\d+)?)%`)

// parseProgress extracts a percentage from a yt-dlp "[download]" line.
func parseProgress(line string) (job.Progress, bool) {
	trimmed := strings.TrimSpace(line)
	match := downloadPercentPattern.FindStringSubmatch(trimmed)
	if match == nil {
		if strings.HasPrefix(trimmed, "[ExtractAudio]") {
			return job.Progress{Stage: job.StageFetching, Percent: -1, Message: "extracting audio"}, true
		}
		return job.Progress{}, false
	}
	percent, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return job.Progress{}, false
	}
	if percent > 100 {
		percent = 100
	}
	message := strings.TrimSpace(strings.TrimPrefix(trimmed, "[download]"))
	return job.Progress{Stage: job.StageFetching, Percent: percent, Message: message}, true
}
