package command

import (
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/rbright/aurora/internal/textnorm"
)

// DefaultFuzzyThreshold is the Jaro-Winkler similarity a word needs to match a phrase.
const DefaultFuzzyThreshold = 0.85

// Options configures a Classifier. Zero values select defaults.
type Options struct {
	Threshold  float64
	Vocabulary *Vocabulary
}

// Classifier maps free text onto a Command. It is immutable and safe for concurrent use.
type Classifier struct {
	threshold float64
	vocab     *Vocabulary
}

// NewClassifier builds a classifier. Changing the threshold or vocabulary means building a new one.
func NewClassifier(opts Options) *Classifier {
	threshold := opts.Threshold
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultFuzzyThreshold
	}
	vocab := opts.Vocabulary
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	return &Classifier{threshold: threshold, vocab: vocab}
}

// Threshold returns the fuzzy similarity threshold in use.
func (c *Classifier) Threshold() float64 { return c.threshold }

// Classify returns the first matching intent in priority order, or Unknown with the normalized text.
func (c *Classifier) Classify(raw string) Command {
	t := textnorm.Normalize(raw)
	words := textnorm.Words(t)
	v := c.vocab
	has := func(g Group) bool { return c.matches(t, words, g) }

	if has(v.Quit) {
		return Quit{}
	}
	if has(v.EndConversation) {
		return EndConversation{}
	}
	if has(v.Screenshot) {
		return Screenshot{}
	}

	if has(v.PowerTarget) {
		switch {
		case has(v.Poweroff):
			return Poweroff{}
		case has(v.Reboot):
			return Reboot{}
		case has(v.Sleep):
			return Sleep{}
		}
	}

	if query, ok := searchQuery(t, v.Search); ok {
		return FindInInternet{Query: query}
	}

	if has(v.Minimum) && has(v.Brightness) {
		return BrightnessMin{}
	}
	if has(v.Maximum) {
		if has(v.Volume) {
			return VolumeMax{}
		}
		if has(v.Brightness) {
			return BrightnessMax{}
		}
	}

	if has(v.Mute) {
		return VolumeMute{}
	}

	if has(v.Increase) {
		if has(v.Volume) {
			return VolumeUp{}
		}
		if has(v.Brightness) {
			return BrightnessUp{}
		}
	}
	if has(v.Decrease) {
		if has(v.Volume) {
			return VolumeDown{}
		}
		if has(v.Brightness) {
			return BrightnessDown{}
		}
	}

	if has(v.Open) {
		for _, app := range Apps {
			if has(v.Apps[app]) {
				return OpenApp{App: app}
			}
		}
	}

	if has(v.Next) {
		return AudioNext{}
	}
	if has(v.Previous) {
		return AudioPrevious{}
	}

	if has(v.Enable) || has(v.Disable) {
		for _, toggle := range Toggles {
			if has(v.Toggles[toggle]) {
				return SystemToggle{Toggle: toggle}
			}
		}
	}

	if has(v.Pause) {
		return AudioPause{}
	}

	return Unknown{Text: t}
}

func (c *Classifier) matches(text string, words []string, g Group) bool {
	for _, phrase := range g.Phrases {
		if g.Literal {
			if textnorm.ContainsPhrase(text, phrase) {
				return true
			}
			continue
		}
		if strings.Contains(text, phrase) {
			return true
		}
		for _, w := range words {
			if matchr.JaroWinkler(w, phrase, false) >= c.threshold {
				return true
			}
		}
	}
	return false
}

// searchQuery returns the text after a leading search verb. The remainder must be non-empty.
func searchQuery(text string, verbs Group) (string, bool) {
	for _, verb := range verbs.Phrases {
		if rest, ok := strings.CutPrefix(text, verb+" "); ok {
			rest = strings.TrimSpace(rest)
			if rest != "" {
				return rest, true
			}
		}
	}
	return "", false
}
