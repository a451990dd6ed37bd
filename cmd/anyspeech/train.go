package main

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyspeech/anycer"
	"github.com/unixpickle/anyspeech/anyctc"
	"github.com/unixpickle/anyspeech/anydata"
	"github.com/unixpickle/anyspeech/anyds2"
	"github.com/unixpickle/anyspeech/anyeval"
	"github.com/unixpickle/anyspeech/anysgd"
	"github.com/unixpickle/anyspeech/internal/config"
	"github.com/unixpickle/essentials"
)

func runTrain(ctx context.Context, args []string) error {
	s, err := newSession("train", args, (*config.Config).ValidateTrain)
	if err != nil {
		return err
	}
	cfg := s.Config.Train

	entries, err := anydata.LoadManifestFile(cfg.Manifest)
	if err != nil {
		return err
	}
	trainCount := cfg.TrainCount
	if trainCount == 0 {
		trainCount = len(entries)
	}
	trainEntries, validEntries := anydata.Split(entries, trainCount, cfg.Seed)
	s.Logger.Info().
		Int("train", len(trainEntries)).
		Int("valid", len(validEntries)).
		Msg("split manifest")

	model, err := loadOrCreateModel(s)
	if err != nil {
		return err
	}

	var trainList anydata.SampleList = &anydata.ManifestList{
		Creator:    s.Creator,
		FeatureDir: s.Config.Audio.FeatureDir,
		Entries:    trainEntries,
	}
	if cfg.Preload {
		preloaded, err := anydata.Preload(trainList)
		if err != nil {
			return err
		}
		trainList = &anydata.SortSampleList{
			SortableSampleList: preloaded,
			BatchSize:          cfg.BatchSize,
		}
	}
	validList := &anydata.ManifestList{
		Creator:    s.Creator,
		FeatureDir: s.Config.Audio.FeatureDir,
		Entries:    validEntries,
	}

	transformer, err := anysgd.NewTransformer(cfg.Optimizer)
	if err != nil {
		return err
	}
	trainer := &anyctc.Trainer{Model: model, Vocab: s.Vocab, Creator: s.Creator}
	progress := &progressGradienter{
		Trainer:       trainer,
		PrintInterval: cfg.PrintInterval,
		Logger:        s.Logger,
	}
	validator := &anyeval.Validator{Trainer: trainer, Logger: s.Logger}

	if err := os.MkdirAll(cfg.ResultDir, 0755); err != nil {
		return essentials.AddCtx("create result directory", err)
	}
	trainCSV := filepath.Join(cfg.ResultDir, "train-"+s.RunID+".csv")
	validCSV := filepath.Join(cfg.ResultDir, "valid-"+s.RunID+".csv")
	var trainPoints, validPoints []anyeval.EpochPoint

	sgd := &anysgd.SGD{
		Fetcher:     trainer,
		Gradienter:  progress,
		Transformer: transformer,
		Samples:     trainList,
		Rater:       anysgd.ConstRater(cfg.LearningRate),
		BatchSize:   cfg.BatchSize,
		EpochFunc: func(epoch int) error {
			point := progress.EndEpoch()
			trainPoints = append(trainPoints, point)
			s.Logger.Info().
				Int("epoch", epoch).
				Float64("loss", point.Loss).
				Float64("cer", point.CER).
				Msg("finished epoch")
			if err := model.Save(cfg.ModelPath); err != nil {
				return err
			}
			if err := writeEpochCSV(trainCSV, trainPoints); err != nil {
				return err
			}
			if validList.Len() > 0 {
				point, err := validator.Validate(ctx, validList, cfg.BatchSize)
				if err != nil {
					return err
				}
				validPoints = append(validPoints, point)
				if err := writeEpochCSV(validCSV, validPoints); err != nil {
					return err
				}
			}
			if epoch >= cfg.Epochs {
				return anysgd.ErrStop
			}
			return nil
		},
	}

	s.Logger.Info().
		Int("params", len(model.Parameters())).
		Str("optimizer", cfg.Optimizer).
		Msg("start training")
	err = sgd.Run(ctx)
	if errors.Is(err, context.Canceled) {
		s.Logger.Warn().Msg("training interrupted, saving model")
		return model.Save(cfg.ModelPath)
	}
	return err
}

func loadOrCreateModel(s *session) (*anyds2.Model, error) {
	path := s.Config.Train.ModelPath
	if _, err := os.Stat(path); err == nil {
		model, err := anyds2.Load(path)
		if err != nil {
			return nil, err
		}
		if err := s.checkModel(model); err != nil {
			return nil, err
		}
		s.Logger.Info().Str("path", path).Msg("loaded model")
		return model, nil
	}
	model, err := anyds2.New(s.Creator, s.Config.Model.DS2(s.Vocab.NumClasses()))
	if err != nil {
		return nil, err
	}
	if err := s.checkModel(model); err != nil {
		return nil, err
	}
	s.Logger.Info().Str("path", path).Msg("created model")
	return model, nil
}

// progressGradienter wraps a Trainer to accumulate epoch
// statistics and log them periodically.
type progressGradienter struct {
	Trainer       *anyctc.Trainer
	PrintInterval int
	Logger        zerolog.Logger

	steps     int
	costSum   float64
	costCount int
	stats     anycer.Stats
}

func (p *progressGradienter) Gradient(b anysgd.Batch) anydiff.Grad {
	grad := p.Trainer.Gradient(b)
	n := len(b.(*anydata.Batch).Labels)
	p.costSum += p.Trainer.LastCost * float64(n)
	p.costCount += n
	p.stats = p.stats.Add(p.Trainer.LastStats)
	p.steps++
	if p.PrintInterval > 0 && p.steps%p.PrintInterval == 0 {
		p.Logger.Info().
			Int("step", p.steps).
			Float64("loss", p.Trainer.LastCost).
			Float64("cer", p.stats.RateOrNaN()).
			Msg("training progress")
	}
	return grad
}

// EndEpoch returns the statistics since the last call.
// The CER is cumulative over the epoch, and NaN if no
// reference characters were seen.
func (p *progressGradienter) EndEpoch() anyeval.EpochPoint {
	point := anyeval.EpochPoint{Loss: math.NaN(), CER: p.stats.RateOrNaN()}
	if p.costCount > 0 {
		point.Loss = p.costSum / float64(p.costCount)
	}
	p.costSum = 0
	p.costCount = 0
	p.stats = anycer.Stats{}
	return point
}

func writeEpochCSV(path string, points []anyeval.EpochPoint) error {
	f, err := os.Create(path)
	if err != nil {
		return essentials.AddCtx("write epoch results", err)
	}
	if err := anyeval.WriteEpochCSV(f, points); err != nil {
		f.Close()
		return essentials.AddCtx("write epoch results", err)
	}
	return essentials.AddCtx("write epoch results", f.Close())
}
