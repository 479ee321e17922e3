package job

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ModelTier selects the speech-recognition model by speed/quality trade-off.
type ModelTier string

const (
	ModelFastest  ModelTier = "fastest"
	ModelBalanced ModelTier = "balanced"
	ModelAccurate ModelTier = "accurate"
)

// ModelTiers lists the recognized tiers from fastest to most accurate.
func ModelTiers() []ModelTier {
	return []ModelTier{ModelFastest, ModelBalanced, ModelAccurate}
}

// ParseModelTier normalizes raw into a recognized tier.
func ParseModelTier(raw string) (ModelTier, error) {
	tier := ModelTier(strings.ToLower(strings.TrimSpace(raw)))
	if tier.Valid() {
		return tier, nil
	}
	return "", fmt.Errorf("unknown model tier %q (want one of fastest, balanced, accurate)", raw)
}

// Valid reports whether t is one of the recognized tiers.
func (t ModelTier) Valid() bool {
	switch t {
	case ModelFastest, ModelBalanced, ModelAccurate:
		return true
	default:
		return false
	}
}

// Options is the configuration snapshot resolved when a batch is submitted.
type Options struct {
	Model        ModelTier
	Language     string
	OutputDir    string
	CookiesFile  string
	SkipExisting bool
}

// Job is one source-to-subtitle unit of work.
type Job struct {
	ID      string
	Index   int
	Source  string
	Options Options
}

// New creates a job for source at the given submission index.
func New(index int, source string, opts Options) Job {
	return Job{
		ID:      uuid.NewString(),
		Index:   index,
		Source:  source,
		Options: opts,
	}
}

// ShortID returns the first eight characters of the job identifier.
func (j Job) ShortID() string {
	if len(j.ID) <= 8 {
		return j.ID
	}
	return j.ID[:8]
}

// Label renders a human-friendly position label such as "2/5".
func (j Job) Label(total int) string {
	if total <= 0 {
		return fmt.Sprintf("#%d", j.Index+1)
	}
	return fmt.Sprintf("%d/%d", j.Index+1, total)
}
