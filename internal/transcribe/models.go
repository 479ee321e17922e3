package transcribe

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"subgen/internal/job"
)

var modelFiles = map[job.ModelTier]string{
	job.ModelFastest:  "ggml-base-q5_1.bin",
	job.ModelBalanced: "ggml-small.bin",
	job.ModelAccurate: "ggml-large-v3-turbo.bin",
}

// ModelFile returns the catalog filename for tier.
func ModelFile(tier job.ModelTier) (string, bool) {
	name, ok := modelFiles[tier]
	return name, ok
}

// ModelInfo describes a tier's resolved model file.
type ModelInfo struct {
	Tier    job.ModelTier
	File    string
	Path    string
	Present bool
	Size    int64
}

// Catalog resolves model locations from a directory plus per-tier overrides.
type Catalog struct {
	Dir       string
	Overrides map[string]string
}

// Path returns the model path for tier. Unknown tiers fail with
// MalformedOutput since they indicate an invalid request.
func (c Catalog) Path(tier job.ModelTier) (string, error) {
	if override := strings.TrimSpace(c.Overrides[string(tier)]); override != "" {
		return override, nil
	}
	name, ok := ModelFile(tier)
	if !ok {
		return "", job.TranscribeError(job.KindMalformedOutput, fmt.Sprintf("unknown model tier %q", tier), nil)
	}
	return filepath.Join(c.Dir, name), nil
}

// Resolve returns the model path for tier after checking the file exists.
func (c Catalog) Resolve(tier job.ModelTier) (string, error) {
	path, err := c.Path(tier)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return "", job.TranscribeError(job.KindModelMissing, "model file not found: "+path, err)
	case err != nil:
		return "", job.TranscribeError(job.KindModelMissing, "model file unreadable: "+path, err)
	case info.IsDir() || info.Size() == 0:
		return "", job.TranscribeError(job.KindModelMissing, "model file empty or not a file: "+path, nil)
	}
	return path, nil
}

// List reports every tier in catalog order.
func (c Catalog) List() []ModelInfo {
	tiers := job.ModelTiers()
	infos := make([]ModelInfo, 0, len(tiers))
	for _, tier := range tiers {
		path, _ := c.Path(tier)
		info := ModelInfo{Tier: tier, Path: path}
		info.File, _ = ModelFile(tier)
		if st, err := os.Stat(path); err == nil && !st.IsDir() {
			info.Present = st.Size() > 0
			info.Size = st.Size()
		}
		infos = append(infos, info)
	}
	return infos
}
