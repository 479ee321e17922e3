package deps

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrNotFound reports that an executable could not be located.
var ErrNotFound = errors.New("executable not found")

// fallbackDirs covers GUI launches and cron jobs whose PATH omits the usual
// package manager prefixes.
var fallbackDirs = []string{"/usr/local/bin", "/opt/homebrew/bin", "/usr/bin", "/bin"}

// FindExecutable resolves name to an absolute executable path. Names that
// contain a path separator are checked directly; bare names are looked up on
// PATH first and then in the fallback directories.
func FindExecutable(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrNotFound)
	}
	if strings.ContainsRune(name, filepath.Separator) {
		info, err := os.Stat(name)
		if err != nil || !isExecutable(info) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return filepath.Abs(name)
	}
	if path, err := exec.LookPath(name); err == nil {
		return filepath.Abs(path)
	}
	for _, dir := range fallbackDirs {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && isExecutable(info) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

// FFmpegLocation returns the directory holding ffmpeg, suitable for the
// download tool's --ffmpeg-location flag. An explicit configured location
// wins; otherwise ffmpeg is discovered like any other executable. The empty
// string means the download tool should rely on its own lookup.
func FFmpegLocation(configured string) string {
	if configured = strings.TrimSpace(configured); configured != "" {
		if info, err := os.Stat(configured); err == nil && !info.IsDir() {
			return filepath.Dir(configured)
		}
		return configured
	}
	path, err := FindExecutable("ffmpeg")
	if err != nil {
		return ""
	}
	return filepath.Dir(path)
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
