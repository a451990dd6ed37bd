package main

import (
	"context"
	"os"

	"github.com/unixpickle/anyspeech/anyctc"
	"github.com/unixpickle/anyspeech/anydata"
	"github.com/unixpickle/anyspeech/anyds2"
	"github.com/unixpickle/anyspeech/anyeval"
	"github.com/unixpickle/anyspeech/anysearch"
	"github.com/unixpickle/anyspeech/internal/config"
	"github.com/unixpickle/essentials"
)

func runEval(ctx context.Context, args []string) error {
	s, err := newSession("eval", args, (*config.Config).ValidateEval)
	if err != nil {
		return err
	}
	cfg := s.Config.Eval

	entries, err := anydata.LoadManifestFile(cfg.Manifest)
	if err != nil {
		return err
	}
	model, err := anyds2.Load(cfg.ModelPath)
	if err != nil {
		return err
	}
	if err := s.checkModel(model); err != nil {
		return err
	}

	var decoder anysearch.Decoder = anysearch.GreedyDecoder{}
	if cfg.Decoder == "prefix" {
		decoder = &anyctc.PrefixDecoder{Blank: s.Vocab.Blank, BlankThresh: cfg.BlankThresh}
	}
	evaluator := &anyeval.Evaluator{
		Model:         model,
		Vocab:         s.Vocab,
		Creator:       s.Creator,
		Decoder:       decoder,
		PrintInterval: cfg.PrintInterval,
		Truncate:      cfg.Truncate,
		Logger:        s.Logger,
	}
	list := &anydata.ManifestList{
		Creator:    s.Creator,
		FeatureDir: s.Config.Audio.FeatureDir,
		Entries:    entries,
	}
	s.Logger.Info().Int("examples", list.Len()).Str("decoder", cfg.Decoder).Msg("start evaluation")
	report, err := evaluator.Evaluate(ctx, list, cfg.BatchSize)
	if err != nil {
		return err
	}

	path := runPath(cfg.TranscriptsPath, s.RunID)
	if err := writeTranscripts(path, report.Rows); err != nil {
		return err
	}

	cer, err := report.CER()
	if err != nil {
		return err
	}
	s.Logger.Info().Float64("cer", cer).Str("transcripts", path).Msg("finished evaluation")
	return nil
}

func writeTranscripts(path string, rows []anyeval.Row) error {
	f, err := os.Create(path)
	if err != nil {
		return essentials.AddCtx("write transcripts", err)
	}
	if err := anyeval.WriteCSV(f, rows); err != nil {
		f.Close()
		return essentials.AddCtx("write transcripts", err)
	}
	return essentials.AddCtx("write transcripts", f.Close())
}
