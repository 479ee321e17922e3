package language

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Auto requests automatic language detection.
const Auto = "auto"

type entry struct {
	code2 string
	code3 string
	alt3  string
	words []string
}

var languages = []entry{
	{"en", "eng", "", []string{"english"}},
	{"zh", "zho", "chi", []string{"chinese", "mandarin"}},
	{"yue", "yue", "", []string{"cantonese"}},
	{"ja", "jpn", "", []string{"japanese"}},
	{"ko", "kor", "", []string{"korean"}},
	{"es", "spa", "", []string{"spanish"}},
	{"fr", "fra", "fre", []string{"french"}},
	{"de", "deu", "ger", []string{"german"}},
	{"it", "ita", "", []string{"italian"}},
	{"pt", "por", "", []string{"portuguese"}},
	{"ru", "rus", "", []string{"russian"}},
	{"ar", "ara", "", []string{"arabic"}},
	{"hi", "hin", "", []string{"hindi"}},
	{"nl", "nld", "dut", []string{"dutch"}},
	{"pl", "pol", "", []string{"polish"}},
	{"sv", "swe", "", []string{"swedish"}},
	{"vi", "vie", "", []string{"vietnamese"}},
	{"th", "tha", "", []string{"thai"}},
}

var (
	byCode map[string]*entry
	byWord map[string]*entry
)

func init() {
	byCode = make(map[string]*entry, len(languages)*3)
	byWord = make(map[string]*entry, len(languages))
	for i := range languages {
		e := &languages[i]
		byCode[e.code2] = e
		byCode[e.code3] = e
		if e.alt3 != "" {
			byCode[e.alt3] = e
		}
		for _, w := range e.words {
			byWord[w] = e
		}
	}
}

// Resolve maps a language hint onto the code whisper expects. Unknown but
// well-formed BCP 47 tags resolve to their base language.
func Resolve(hint string) (string, error) {
	code := strings.ToLower(strings.TrimSpace(hint))
	if code == "" || code == Auto {
		return Auto, nil
	}
	if e, ok := byCode[code]; ok {
		return e.code2, nil
	}
	if e, ok := byWord[code]; ok {
		return e.code2, nil
	}
	tag, err := language.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return "", fmt.Errorf("unrecognized language %q", hint)
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return "", fmt.Errorf("unrecognized language %q", hint)
	}
	if e, ok := byCode[base.String()]; ok {
		return e.code2, nil
	}
	if iso3 := base.ISO3(); iso3 != "" {
		if e, ok := byCode[iso3]; ok {
			return e.code2, nil
		}
	}
	return base.String(), nil
}

// DisplayName returns an English name for a code, "Auto-detect" for Auto and
// the uppercased input when the code is unknown.
func DisplayName(code string) string {
	code = strings.TrimSpace(code)
	switch strings.ToLower(code) {
	case "":
		return "Unknown"
	case Auto:
		return "Auto-detect"
	}
	tag, err := language.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return strings.ToUpper(code)
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return strings.ToUpper(code)
}
