package command

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rbright/aurora/internal/textnorm"
	"gopkg.in/yaml.v3"
)

//go:embed vocabulary.yaml
var defaultVocabularyYAML []byte

// Group is one phrase list. Literal groups only match whole-word phrases and never fuzzy-match.
type Group struct {
	Literal bool     `yaml:"literal"`
	Phrases []string `yaml:"phrases"`
}

// UnmarshalYAML accepts either a plain phrase list or a mapping with literal/phrases keys.
func (g *Group) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		return node.Decode(&g.Phrases)
	case yaml.MappingNode:
		type plain Group
		var raw plain
		if err := decodeStrict(node, &raw); err != nil {
			return err
		}
		*g = Group(raw)
		return nil
	default:
		return fmt.Errorf("line %d: group must be a list or a mapping", node.Line)
	}
}

// Vocabulary holds the phrase lists for every intent group.
type Vocabulary struct {
	Quit            Group            `yaml:"quit"`
	EndConversation Group            `yaml:"end_conversation"`
	Screenshot      Group            `yaml:"screenshot"`
	PowerTarget     Group            `yaml:"power_target"`
	Poweroff        Group            `yaml:"poweroff"`
	Reboot          Group            `yaml:"reboot"`
	Sleep           Group            `yaml:"sleep"`
	Search          Group            `yaml:"search"`
	Minimum         Group            `yaml:"minimum"`
	Maximum         Group            `yaml:"maximum"`
	Mute            Group            `yaml:"mute"`
	Increase        Group            `yaml:"increase"`
	Decrease        Group            `yaml:"decrease"`
	Volume          Group            `yaml:"volume"`
	Brightness      Group            `yaml:"brightness"`
	Open            Group            `yaml:"open"`
	Apps            map[App]Group    `yaml:"apps"`
	Next            Group            `yaml:"next"`
	Previous        Group            `yaml:"previous"`
	Enable          Group            `yaml:"enable"`
	Disable         Group            `yaml:"disable"`
	Toggles         map[Toggle]Group `yaml:"toggles"`
	Pause           Group            `yaml:"pause"`
}

// DefaultVocabulary returns the built-in English and Ukrainian phrase lists.
func DefaultVocabulary() *Vocabulary {
	v, err := ParseVocabulary(defaultVocabularyYAML)
	if err != nil {
		panic(fmt.Sprintf("invalid built-in vocabulary: %v", err))
	}
	return v
}

// ParseVocabulary decodes a vocabulary document and normalizes its phrases.
func ParseVocabulary(data []byte) (*Vocabulary, error) {
	var v Vocabulary
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&v); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode vocabulary: %w", err)
	}
	if err := v.validateKeys(); err != nil {
		return nil, err
	}
	v.normalize()
	return &v, nil
}

// LoadVocabulary reads path and appends its phrases to the built-in vocabulary.
func LoadVocabulary(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary %q: %w", path, err)
	}
	extra, err := ParseVocabulary(data)
	if err != nil {
		return nil, fmt.Errorf("vocabulary %q: %w", path, err)
	}
	base := DefaultVocabulary()
	base.Merge(extra)
	return base, nil
}

// Merge appends the phrases of other to v. A literal flag set in other wins.
func (v *Vocabulary) Merge(other *Vocabulary) {
	if other == nil {
		return
	}
	for _, pair := range v.groupPairs(other) {
		mergeGroup(pair[0], pair[1])
	}
	for app, g := range other.Apps {
		cur := v.Apps[app]
		mergeGroup(&cur, &g)
		if v.Apps == nil {
			v.Apps = map[App]Group{}
		}
		v.Apps[app] = cur
	}
	for toggle, g := range other.Toggles {
		cur := v.Toggles[toggle]
		mergeGroup(&cur, &g)
		if v.Toggles == nil {
			v.Toggles = map[Toggle]Group{}
		}
		v.Toggles[toggle] = cur
	}
}

func mergeGroup(dst, src *Group) {
	dst.Phrases = append(dst.Phrases, src.Phrases...)
	if src.Literal {
		dst.Literal = true
	}
}

func (v *Vocabulary) groups() []*Group {
	return []*Group{
		&v.Quit, &v.EndConversation, &v.Screenshot,
		&v.PowerTarget, &v.Poweroff, &v.Reboot, &v.Sleep,
		&v.Search, &v.Minimum, &v.Maximum, &v.Mute,
		&v.Increase, &v.Decrease, &v.Volume, &v.Brightness,
		&v.Open, &v.Next, &v.Previous, &v.Enable, &v.Disable, &v.Pause,
	}
}

func (v *Vocabulary) groupPairs(other *Vocabulary) [][2]*Group {
	mine := v.groups()
	theirs := other.groups()
	pairs := make([][2]*Group, len(mine))
	for i := range mine {
		pairs[i] = [2]*Group{mine[i], theirs[i]}
	}
	return pairs
}

func (v *Vocabulary) validateKeys() error {
	known := map[App]bool{}
	for _, app := range Apps {
		known[app] = true
	}
	for app := range v.Apps {
		if !known[app] {
			return fmt.Errorf("unknown app %q", app)
		}
	}
	knownToggles := map[Toggle]bool{}
	for _, toggle := range Toggles {
		knownToggles[toggle] = true
	}
	for toggle := range v.Toggles {
		if !knownToggles[toggle] {
			return fmt.Errorf("unknown toggle %q", toggle)
		}
	}
	return nil
}

func (v *Vocabulary) normalize() {
	for _, g := range v.groups() {
		g.Phrases = normalizePhrases(g.Phrases)
	}
	for app, g := range v.Apps {
		g.Phrases = normalizePhrases(g.Phrases)
		v.Apps[app] = g
	}
	for toggle, g := range v.Toggles {
		g.Phrases = normalizePhrases(g.Phrases)
		v.Toggles[toggle] = g
	}
}

func normalizePhrases(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		if n := textnorm.Normalize(p); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func decodeStrict(node *yaml.Node, out any) error {
	data, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(out)
}
