package diabicus

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// CaseFile is the on-disk form of case definitions. JSON files parse too.
//
//	facts:
//	  - title: Golden ratio
//	    test: {name: close_to, args: ["φ"]}
//	    message: "{{.Result}} is the golden ratio"
//	special_music:
//	  - file: music/pi.mp3
//	    test: {name: pi_digits, args: [5]}
type CaseFile struct {
	Facts        []FactDef  `yaml:"facts"`
	SpecialMusic []MusicDef `yaml:"special_music"`
}

// FactDef is one fact as written in a case file.
type FactDef struct {
	Title   string        `yaml:"title"`
	Link    string        `yaml:"link"`
	Source  string        `yaml:"source"`
	OEIS    string        `yaml:"oeis"`
	Wiki    string        `yaml:"wiki"`
	Weight  any           `yaml:"weight"`
	Tags    []string      `yaml:"tags"`
	Test    PredicateSpec `yaml:"test"`
	Message StringList    `yaml:"message"`
}

// MusicDef is one special-music trigger as written in a case file. Times
// are in seconds.
type MusicDef struct {
	File     string        `yaml:"file"`
	Link     string        `yaml:"link"`
	Cite     string        `yaml:"cite"`
	Start    float64       `yaml:"start"`
	End      float64       `yaml:"end"`
	Duration float64       `yaml:"duration"`
	Weight   any           `yaml:"weight"`
	Tags     []string      `yaml:"tags"`
	Test     PredicateSpec `yaml:"test"`
}

// StringList decodes from a single string or a list of strings.
type StringList []string

func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*l = StringList{s}
		return nil
	}
	var ss []string
	if err := node.Decode(&ss); err != nil {
		return err
	}
	*l = ss
	return nil
}

// CaseSet is a loaded case file.
type CaseSet struct {
	Facts        []*Fact
	SpecialMusic []*SpecialMusicCase
}

// Loader compiles case files against a Registry.
type Loader struct {
	registry *Registry
	logger   *zap.Logger

	// seed drives each fact's message shuffle; 0 leaves them random.
	seed  uint64
	facts uint64
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

func WithLoaderLogger(l *zap.Logger) LoaderOption {
	return func(ld *Loader) { ld.logger = l }
}

// WithLoaderSeed makes message rotation reproducible: the n-th fact compiled
// by the loader shuffles from a PCG seeded with (seed, n). Zero keeps
// random rotation.
func WithLoaderSeed(seed uint64) LoaderOption {
	return func(ld *Loader) { ld.seed = seed }
}

func NewLoader(reg *Registry, opts ...LoaderOption) *Loader {
	l := &Loader{registry: reg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	if l.registry == nil {
		l.registry = NewRegistry()
	}
	return l
}

// LoadFile reads and compiles the case file at path.
func (l *Loader) LoadFile(path string) (*CaseSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open case file: %w", err)
	}
	defer f.Close()
	set, err := l.Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	l.logger.Info("cases loaded",
		zap.String("path", path),
		zap.Int("facts", len(set.Facts)),
		zap.Int("special_music", len(set.SpecialMusic)))
	return set, nil
}

// Load decodes and compiles a case file. Any unknown predicate, bad
// argument or unparsable message fails the whole load.
func (l *Loader) Load(r io.Reader) (*CaseSet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read case file: %w", err)
	}
	var file CaseFile
	if len(bytes.TrimSpace(data)) > 0 {
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("decode case file: %w", err)
		}
	}

	set := &CaseSet{}
	for i, def := range file.Facts {
		fact, err := l.compileFact(def)
		if err != nil {
			return nil, fmt.Errorf("fact %d (%s): %w", i, def.Title, err)
		}
		set.Facts = append(set.Facts, fact)
	}
	for i, def := range file.SpecialMusic {
		music, err := l.compileMusic(def)
		if err != nil {
			return nil, fmt.Errorf("special music %d (%s): %w", i, def.File, err)
		}
		set.SpecialMusic = append(set.SpecialMusic, music)
	}
	return set, nil
}

func (l *Loader) compileTest(name string, spec PredicateSpec) (Predicate, error) {
	if spec.IsZero() {
		l.logger.Warn("case has no test and will never apply", zap.String("case", name))
		return nil, nil
	}
	return l.registry.Compile(spec)
}

func (l *Loader) compileFact(def FactDef) (*Fact, error) {
	test, err := l.compileTest(def.Title, def.Test)
	if err != nil {
		return nil, err
	}
	messages := make([]Message, 0, len(def.Message))
	for i, src := range def.Message {
		m, err := l.registry.CompileMessage(src)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		messages = append(messages, m)
	}
	info := FactInfo{
		Title:  def.Title,
		Link:   def.Link,
		Source: def.Source,
		OEIS:   def.OEIS,
		Wiki:   def.Wiki,
		Weight: l.weight(def.Title, def.Weight),
		Tags:   def.Tags,
	}
	opts := []FactOption{WithFactLogger(l.logger)}
	if l.seed != 0 {
		opts = append(opts, WithFactRand(rand.New(rand.NewPCG(l.seed, l.facts))))
	}
	l.facts++
	return NewFact(info, test, messages, opts...), nil
}

func (l *Loader) compileMusic(def MusicDef) (*SpecialMusicCase, error) {
	test, err := l.compileTest(def.File, def.Test)
	if err != nil {
		return nil, err
	}
	info := MusicInfo{
		File:     def.File,
		Link:     def.Link,
		Cite:     def.Cite,
		Start:    seconds(def.Start),
		End:      seconds(def.End),
		Duration: seconds(def.Duration),
		Weight:   l.weight(def.File, def.Weight),
		Tags:     def.Tags,
	}
	return NewSpecialMusicCase(info, test), nil
}

// weight reads a weight field: absent is 1, a number is itself, anything
// else is NaN, which selection treats as 0 and CheckCases reports.
func (l *Loader) weight(name string, w any) float64 {
	switch w := w.(type) {
	case nil:
		return 1
	case int:
		return float64(w)
	case float64:
		return w
	}
	l.logger.Warn("non-numeric weight", zap.String("case", name), zap.Any("weight", w))
	return math.NaN()
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
