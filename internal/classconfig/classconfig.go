// Package classconfig loads the per-class form options (subjects, boards,
// exam types and evaluation presets) used to build the exam form.
package classconfig

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/pavelanni/reviewer/internal/model"
)

//go:embed defaults/*.json
var defaultsFS embed.FS

// Classes are the class levels offered on the form.
var Classes = []string{"5", "6", "7", "8", "9", "10", "11", "12"}

// FocusAreas are the selectable evaluation focus areas.
var FocusAreas = []string{
	"Conceptual Understanding",
	"Problem Solving",
	"Written Communication",
	"Calculation Accuracy",
	"Diagram/Graph Quality",
	"Time Management",
	"Stepwise method",
}

// DefaultFocusAreas are preselected on a fresh form.
var DefaultFocusAreas = []string{"Conceptual Understanding", "Stepwise method"}

// Source records where a configuration came from.
type Source string

const (
	SourceFile     Source = "file"
	SourceEmbedded Source = "embedded"
	SourceBuiltin  Source = "builtin"
)

// Choice is an option list with a default selection.
type Choice struct {
	Options     []string `json:"options"`
	Default     string   `json:"default"`
	Description string   `json:"description,omitempty"`
}

// ClassConfig is the form configuration for one class level.
type ClassConfig struct {
	Class              string              `json:"class"`
	AvailableSubjects  []string            `json:"available_subjects"`
	DefaultSubject     string              `json:"default_subject"`
	Boards             []string            `json:"boards"`
	DefaultBoard       string              `json:"default_board"`
	ExamTypes          []string            `json:"exam_types"`
	DefaultExamType    string              `json:"default_exam_type"`
	CheckingStrictness Choice              `json:"checking_strictness"`
	AnswerDepth        Choice              `json:"answer_depth"`
	FeedbackTone       Choice              `json:"feedback_tone"`
	ExplanationLevel   Choice              `json:"explanation_level"`
	KeyTopics          map[string][]string `json:"key_topics"`

	Source Source `json:"-"`
}

// Builtin returns the hardcoded configuration used when no document is available.
func Builtin(class string) *ClassConfig {
	return &ClassConfig{
		Class:             class,
		AvailableSubjects: []string{"Mathematics"},
		DefaultSubject:    "Mathematics",
		Boards:            []string{"CBSE"},
		DefaultBoard:      "CBSE",
		ExamTypes:         []string{"Unit Test"},
		DefaultExamType:   "Unit Test",
		CheckingStrictness: Choice{
			Options: []string{"Lenient", "Moderate", "Strict", "Very Strict"},
			Default: "Moderate",
		},
		AnswerDepth: Choice{
			Options: []string{"Basic", "Intermediate", "Advanced", "Expert"},
			Default: "Intermediate",
		},
		FeedbackTone: Choice{
			Options: []string{"Highly Encouraging", "Balanced", "Direct", "Critical"},
			Default: "Balanced",
		},
		ExplanationLevel: Choice{
			Options: []string{"Simple", "Moderate", "Grade-appropriate", "Exam-Oriented"},
			Default: "Grade-appropriate",
		},
		KeyTopics: map[string][]string{},
		Source:    SourceBuiltin,
	}
}

// Loader reads class documents from an optional directory, then from the
// embedded defaults, then falls back to Builtin.
type Loader struct {
	dir    string
	schema *jsonschema.Schema
}

// NewLoader creates a loader. An empty dir uses only the embedded defaults.
func NewLoader(dir string) *Loader {
	return &Loader{
		dir:    dir,
		schema: jsonschema.MustCompileString("class_metadata.schema.json", classSchema),
	}
}

// IsValidClass reports whether class is one of the offered class levels.
func IsValidClass(class string) bool {
	return slices.Contains(Classes, class)
}

// Load returns the configuration for class. It never fails: problems are
// logged and the next fallback is used.
func (l *Loader) Load(class string) *ClassConfig {
	name := fileName(class)

	if l.dir != "" {
		cfg, err := l.readFile(os.DirFS(l.dir), name)
		switch {
		case err == nil:
			cfg.Source = SourceFile
			return cfg.normalize(class)
		case errors.Is(err, fs.ErrNotExist):
			slog.Debug("class metadata not found in directory", "class", class, "dir", l.dir)
		default:
			slog.Warn("error loading class metadata", "class", class, "path", filepath.Join(l.dir, name), "error", err)
		}
	}

	cfg, err := l.readFile(defaultsFS, "defaults/"+name)
	if err == nil {
		cfg.Source = SourceEmbedded
		return cfg.normalize(class)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("error loading embedded class metadata", "class", class, "error", err)
	}

	return Builtin(class)
}

func (l *Loader) readFile(fsys fs.FS, name string) (*ClassConfig, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	if err := l.schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("validate %s: %w", name, err)
	}

	var cfg ClassConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return &cfg, nil
}

func fileName(class string) string {
	return "class_" + class + "_metadata.json"
}

// normalize fills missing lists from Builtin and makes every default a member
// of its option list.
func (c *ClassConfig) normalize(class string) *ClassConfig {
	b := Builtin(class)
	c.Class = class

	c.AvailableSubjects, c.DefaultSubject = pick(c.AvailableSubjects, c.DefaultSubject, b.AvailableSubjects, b.DefaultSubject)
	c.Boards, c.DefaultBoard = pick(c.Boards, c.DefaultBoard, b.Boards, b.DefaultBoard)
	c.ExamTypes, c.DefaultExamType = pick(c.ExamTypes, c.DefaultExamType, b.ExamTypes, b.DefaultExamType)
	c.CheckingStrictness.Options, c.CheckingStrictness.Default = pickChoice(c.CheckingStrictness, b.CheckingStrictness)
	c.AnswerDepth.Options, c.AnswerDepth.Default = pickChoice(c.AnswerDepth, b.AnswerDepth)
	c.FeedbackTone.Options, c.FeedbackTone.Default = pickChoice(c.FeedbackTone, b.FeedbackTone)
	c.ExplanationLevel.Options, c.ExplanationLevel.Default = pickChoice(c.ExplanationLevel, b.ExplanationLevel)
	if c.KeyTopics == nil {
		c.KeyTopics = map[string][]string{}
	}
	return c
}

func pick(options []string, def string, fbOptions []string, fbDef string) ([]string, string) {
	if len(options) == 0 {
		options = fbOptions
	}
	if slices.Contains(options, def) {
		return options, def
	}
	if slices.Contains(options, fbDef) {
		return options, fbDef
	}
	return options, options[0]
}

func pickChoice(c, fallback Choice) ([]string, string) {
	return pick(c.Options, c.Default, fallback.Options, fallback.Default)
}

// Topics returns the key topics configured for subject.
func (c *ClassConfig) Topics(subject string) []string {
	return c.KeyTopics[subject]
}

// DefaultSettings builds the initial form selection for this class.
func (c *ClassConfig) DefaultSettings() model.EvaluationSettings {
	return model.EvaluationSettings{
		Class:            c.Class,
		Subject:          c.DefaultSubject,
		Board:            c.DefaultBoard,
		ExamType:         c.DefaultExamType,
		Strictness:       model.ParseStrictness(c.CheckingStrictness.Default),
		StrictnessLabel:  c.CheckingStrictness.Default,
		AnswerDepth:      c.AnswerDepth.Default,
		FeedbackTone:     c.FeedbackTone.Default,
		ExplanationLevel: c.ExplanationLevel.Default,
		FocusAreas:       slices.Clone(DefaultFocusAreas),
		KeyTopics:        c.Topics(c.DefaultSubject),
	}
}
