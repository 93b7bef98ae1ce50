package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pavelanni/docquiz/internal/chat"
	appI18n "github.com/pavelanni/docquiz/internal/i18n"
	"github.com/pavelanni/docquiz/internal/model"
	"github.com/pavelanni/docquiz/internal/service"
)

func askCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Answer a question about an indexed document",
		RunE:  runAsk,
	}
	f := cmd.Flags()
	addCommonFlags(f)
	f.String("document", "", "Document identifier (required)")
	f.StringP("question", "q", "", "Question to ask (required)")
	f.String("history", "", "JSON file with previous turns")
	f.String("language", "", "Response language (default --lang)")
	f.String("model", "", "Model override")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	_ = cmd.MarkFlagRequired("document")
	_ = cmd.MarkFlagRequired("question")
	return cmd
}

func examCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exam",
		Short: "Generate an exam from an indexed document",
		RunE:  runExam,
	}
	f := cmd.Flags()
	addCommonFlags(f)
	f.String("document", "", "Document identifier (required)")
	f.String("title", "", "Exam title")
	f.Int("true-false", 0, "Number of true/false questions")
	f.Int("multiple-choice", 0, "Number of multiple-choice questions")
	f.Int("open", 0, "Number of open questions")
	f.Int("fill-in-blank", 0, "Number of fill-in-blank questions")
	f.StringP("difficulty", "d", "medium", "Difficulty (easy, medium, hard)")
	f.String("language", "", "Exam language (default --lang)")
	f.String("model", "", "Model override")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	_ = cmd.MarkFlagRequired("document")
	return cmd
}

func regenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "regenerate",
		Short: "Replace one question of a generated exam",
		RunE:  runRegenerate,
	}
	f := cmd.Flags()
	addCommonFlags(f)
	f.String("exam", "", "Exam JSON file produced by the exam command (required)")
	f.String("question-id", "", "ID of the question to replace (required)")
	f.String("model", "", "Model override")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	_ = cmd.MarkFlagRequired("exam")
	_ = cmd.MarkFlagRequired("question-id")
	return cmd
}

func loadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load FILE...",
		Short: "Index pre-chunked passage files",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runLoad,
	}
	addCommonFlags(cmd.Flags())
	return cmd
}

func deleteIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete-index",
		Short: "Delete the vector index and cached text of a document",
		RunE:  runDeleteIndex,
	}
	addCommonFlags(cmd.Flags())
	cmd.Flags().String("document", "", "Document identifier (required)")
	_ = cmd.MarkFlagRequired("document")
	return cmd
}

func writeOutput(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	var w io.Writer
	if path == "" || path == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, _ = fmt.Fprintln(w)
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func runAsk(cmd *cobra.Command, _ []string) error {
	v, cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	req := chat.AnswerRequest{
		DocumentID: v.GetString("document"),
		Question:   v.GetString("question"),
		Language:   v.GetString("language"),
		Model:      v.GetString("model"),
	}
	if path := v.GetString("history"); path != "" {
		if err := readJSON(path, &req.History); err != nil {
			return err
		}
	}

	ans, err := a.svc.AnswerQuestion(cmd.Context(), req)
	if err != nil {
		return err
	}
	if err := writeOutput(v.GetString("output"), ans); err != nil {
		return err
	}
	if ans.ErrorCode != "" {
		return errors.New(ans.Error)
	}
	return nil
}

func runExam(cmd *cobra.Command, _ []string) error {
	v, cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	req := service.ExamRequest{
		DocumentID: v.GetString("document"),
		Title:      v.GetString("title"),
		Config: model.ExamConfig{
			Counts: model.TypeCounts{
				TrueFalse:      v.GetInt("true-false"),
				MultipleChoice: v.GetInt("multiple-choice"),
				Open:           v.GetInt("open"),
				FillInBlank:    v.GetInt("fill-in-blank"),
			},
			Difficulty: model.Difficulty(v.GetString("difficulty")),
			Language:   v.GetString("language"),
			Model:      v.GetString("model"),
		},
	}

	res, err := a.svc.GenerateExam(cmd.Context(), req)
	if err != nil {
		return err
	}
	if err := writeOutput(v.GetString("output"), res); err != nil {
		return err
	}
	if res.ErrorCode != "" {
		return errors.New(res.Error)
	}

	ctx := appI18n.WithLanguage(cmd.Context(), res.Language)
	slog.Info(appI18n.Tp(ctx, "ExamSummary", len(res.Questions)), "document_id", res.DocumentID, "complete", res.Complete())
	if len(res.Skipped) > 0 {
		slog.Warn(appI18n.Tp(ctx, "QuestionsSkipped", len(res.Skipped)))
	}
	return nil
}

func runRegenerate(cmd *cobra.Command, _ []string) error {
	v, cfg, err := setup(cmd)
	if err != nil {
		return err
	}

	var res model.ExamResult
	if err := readJSON(v.GetString("exam"), &res); err != nil {
		return err
	}
	id := v.GetString("question-id")
	var original *model.Question
	var existing []string
	for i, q := range res.Questions {
		if q.ID == id {
			original = &res.Questions[i]
			continue
		}
		existing = append(existing, q.Text)
	}
	if original == nil {
		return fmt.Errorf("question %q not found in %s", id, v.GetString("exam"))
	}

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	q, err := a.svc.RegenerateQuestion(cmd.Context(), service.RegenerateRequest{
		DocumentID: res.DocumentID,
		Original:   *original,
		Config: model.ExamConfig{
			Difficulty: res.Difficulty,
			Language:   res.Language,
			Model:      v.GetString("model"),
		},
		Existing: existing,
	})
	if err != nil {
		return err
	}
	return writeOutput(v.GetString("output"), q)
}

func runLoad(cmd *cobra.Command, args []string) error {
	_, cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	if cfg.Index == "" {
		slog.Warn("vector index is in memory; loaded passages are lost when the command exits", "hint", "set --index")
	}
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if _, err := a.loader.Load(cmd.Context(), path, data); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

func runDeleteIndex(cmd *cobra.Command, _ []string) error {
	v, cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	deleted, err := a.svc.DeleteDocumentIndex(cmd.Context(), v.GetString("document"))
	if err != nil {
		return err
	}
	if !deleted {
		slog.Warn("document had no index", "document_id", v.GetString("document"))
	}
	return nil
}
