package diarization

import (
	"fmt"
	"regexp"
	"strconv"
)

var labelNumber = regexp.MustCompile(`\d+`)

// LabelCandidates returns the lookup forms of label in probe order:
// SPEAKER_07, SPEAKER_7, Speaker_7, speaker_7, then label itself, without
// duplicates. A label with no number yields only itself.
func LabelCandidates(label string) []string {
	n, ok := labelIndex(label)
	if !ok {
		return []string{label}
	}
	forms := []string{
		fmt.Sprintf("SPEAKER_%02d", n),
		fmt.Sprintf("SPEAKER_%d", n),
		fmt.Sprintf("Speaker_%d", n),
		fmt.Sprintf("speaker_%d", n),
		label,
	}
	out := make([]string, 0, len(forms))
	seen := make(map[string]struct{}, len(forms))
	for _, f := range forms {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// LabelKey returns the canonical form of label. Labels that differ only in
// case or zero padding share a key.
func LabelKey(label string) string {
	return LabelCandidates(label)[0]
}

// SameLabel reports whether a and b name the same diarization speaker.
func SameLabel(a, b string) bool {
	return LabelKey(a) == LabelKey(b)
}

// labelIndex extracts the first decimal number in label.
func labelIndex(label string) (int, bool) {
	m := labelNumber.FindString(label)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}
