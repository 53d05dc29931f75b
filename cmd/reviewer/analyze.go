package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/reviewer/internal/classconfig"
	"github.com/pavelanni/reviewer/internal/handler"
	"github.com/pavelanni/reviewer/internal/llm"
	"github.com/pavelanni/reviewer/internal/model"
)

// documentFlags maps each slot to the flag naming its file.
var documentFlags = map[model.DocumentKind]string{
	model.DocAnswerSheet:   "answer-sheet",
	model.DocQuestionPaper: "question-paper",
	model.DocAnswerKey:     "answer-key",
	model.DocSyllabus:      "syllabus",
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	ctx, cancel := context.WithTimeout(cmd.Context(), v.GetDuration("llm-timeout"))
	defer cancel()

	class := v.GetString("class")
	if !classconfig.IsValidClass(class) {
		return fmt.Errorf("unknown class %q (want one of %s)", class, strings.Join(classconfig.Classes, ", "))
	}
	settings, err := analyzeSettings(classconfig.NewLoader(v.GetString("metadata-dir")).Load(class), v)
	if err != nil {
		return err
	}

	docs, err := readDocuments(v)
	if err != nil {
		return err
	}

	if errs := handler.Validate(validator.New(validator.WithRequiredStructEnabled()), &settings, docs); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return fmt.Errorf("cannot analyze: %s", strings.Join(msgs, "; "))
	}

	client, err := newLLMClient(ctx, v)
	if err != nil {
		return err
	}

	run := model.RunInfo{
		ID:        uuid.NewString(),
		Provider:  client.Provider(),
		Model:     client.Model(),
		StartedAt: time.Now().UTC(),
	}
	out, err := client.Analyze(ctx, settings, docs)
	run.FinishedAt = time.Now().UTC()
	if err != nil {
		writeRawOutput(os.Stderr, err)
		return fmt.Errorf("analyze: %w", err)
	}

	export := model.AnalysisExport{
		RunInfo:   run,
		Settings:  settings,
		Documents: docs.Summarize(),
		Result:    out.Result,
	}
	for _, ue := range out.Warnings {
		slog.Warn("document omitted", "kind", ue.Kind, "file", ue.Filename, "error", ue.Err)
		export.Warnings = append(export.Warnings, ue.Error())
	}
	slog.Info("analysis complete", "run", run.ID, "elapsed", run.FinishedAt.Sub(run.StartedAt))
	return writeJSON(v.GetString("output"), export)
}

// writeRawOutput prints the model text behind a malformed response so it can
// be inspected.
func writeRawOutput(w io.Writer, err error) {
	var malformed *llm.MalformedJSONError
	if errors.As(err, &malformed) && malformed.Raw != "" {
		fmt.Fprintf(w, "raw model output:\n%s\n", malformed.Raw)
	}
}

// analyzeSettings starts from the class defaults and applies every non-empty
// selection flag. Unlike the form, an option the class does not offer is an error.
func analyzeSettings(cfg *classconfig.ClassConfig, v *viper.Viper) (model.EvaluationSettings, error) {
	s := cfg.DefaultSettings()

	fields := []struct {
		flag    string
		options []string
		dst     *string
	}{
		{"subject", cfg.AvailableSubjects, &s.Subject},
		{"board", cfg.Boards, &s.Board},
		{"exam-type", cfg.ExamTypes, &s.ExamType},
		{"strictness", cfg.CheckingStrictness.Options, &s.StrictnessLabel},
		{"answer-depth", cfg.AnswerDepth.Options, &s.AnswerDepth},
		{"feedback-tone", cfg.FeedbackTone.Options, &s.FeedbackTone},
		{"explanation-level", cfg.ExplanationLevel.Options, &s.ExplanationLevel},
	}
	for _, f := range fields {
		val := v.GetString(f.flag)
		if val == "" {
			continue
		}
		if !slices.Contains(f.options, val) {
			return s, fmt.Errorf("--%s %q is not offered for class %s (want one of %s)",
				f.flag, val, cfg.Class, strings.Join(f.options, ", "))
		}
		*f.dst = val
	}
	s.Strictness = model.ParseStrictness(s.StrictnessLabel)
	s.KeyTopics = cfg.Topics(s.Subject)

	areas := v.GetStringSlice("focus-areas")
	if len(areas) > 0 {
		s.FocusAreas = nil
	}
	for _, fa := range areas {
		if !slices.Contains(classconfig.FocusAreas, fa) {
			return s, fmt.Errorf("unknown focus area %q (want one of %s)", fa, strings.Join(classconfig.FocusAreas, ", "))
		}
		if !slices.Contains(s.FocusAreas, fa) {
			s.FocusAreas = append(s.FocusAreas, fa)
		}
	}
	return s, nil
}

// readDocuments loads every slot whose flag names a file.
func readDocuments(v *viper.Viper) (model.Documents, error) {
	docs := model.Documents{}
	for _, kind := range model.DocumentKinds {
		path := v.GetString(documentFlags[kind])
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", documentFlags[kind], err)
		}
		mediaType, err := handler.DetectMediaType(data)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", documentFlags[kind], path, err)
		}
		docs[kind] = &model.Document{
			Kind:      kind,
			Filename:  filepath.Base(path),
			MediaType: mediaType,
			Data:      data,
		}
	}
	return docs, nil
}
