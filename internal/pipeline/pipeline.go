// Package pipeline runs contest cycles: every entry is generated,
// distributed, archived and submitted to the ledger in turn, and a winner is
// later resolved from live engagement.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/juSt-jeLLy/clashofclouthosting/internal/archiver"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/common"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/ledger"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/logging"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/models"
)

type ContentGenerator interface {
	Generate(ctx context.Context, keywords string) (models.Content, error)
}

type Publisher interface {
	Distribute(ctx context.Context, content models.Content) (models.Distribution, error)
}

type MetadataArchiver interface {
	Archive(ctx context.Context, content models.Content, dist models.Distribution) (string, error)
}

type EntrySubmitter interface {
	SubmitEntry(ctx context.Context, cid, creator string, doc *models.MetadataDocument) (ledger.DispatchResult, error)
}

type Tallier interface {
	Run(ctx context.Context) ([]models.EngagementResult, error)
}

type WinnerResolver interface {
	Resolve(ctx context.Context, snapshot []models.EngagementResult) (models.WinnerDecision, error)
}

// Deps are the stages a Pipeline drives. Tally and Resolver are only needed
// by ResolveWinner.
type Deps struct {
	Generator ContentGenerator
	Publisher Publisher
	Archiver  MetadataArchiver
	Submitter EntrySubmitter
	Tally     Tallier
	Resolver  WinnerResolver
}

type Pipeline struct {
	deps         Deps
	creator      string
	entryTimeout time.Duration
	metrics      *Metrics
	logger       logging.Logger
}

func New(deps Deps, creator string, entryTimeout time.Duration, metrics *Metrics, logger logging.Logger) *Pipeline {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Pipeline{
		deps:         deps,
		creator:      creator,
		entryTimeout: entryTimeout,
		metrics:      metrics,
		logger:       logger.With("module", "pipeline"),
	}
}

// RunCycle produces n entries one after another. A failed entry is recorded
// in the report and the cycle moves on to the next one. The error is non-nil
// only for n < 1 or when ctx ends, in which case the report holds the
// entries finished so far.
func (p *Pipeline) RunCycle(ctx context.Context, n int, keywords string) (models.CycleReport, error) {
	report := models.CycleReport{CycleID: uuid.NewString(), Keywords: keywords}
	if n < 1 {
		return report, fmt.Errorf("%w: entry count %d", common.ErrInvalidEntry, n)
	}

	logger := p.logger.With("cycle", report.CycleID)
	logger.Info(ctx, "cycle started", "entries", n, "keywords", keywords)

	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		out := p.runEntry(ctx, i, keywords)
		report.Entries = append(report.Entries, out)
		if out.Err != nil {
			logger.Error(ctx, "entry failed", "index", i, "stage", string(out.Stage), "error", out.Err)
			continue
		}
		logger.Info(ctx, "entry submitted", "index", i, "cid", out.CID, "tx", out.TxHash)
	}

	logger.Info(ctx, "cycle finished", "submitted", report.Submitted(), "entries", n)
	return report, nil
}

// GenerateOne runs a single entry outside of a cycle.
func (p *Pipeline) GenerateOne(ctx context.Context, keywords string) (models.EntryOutcome, error) {
	out := p.runEntry(ctx, 1, keywords)
	return out, out.Err
}

// ResolveWinner tallies the ledger's entries and declares the winner. The
// snapshot is returned even when no winner could be declared.
func (p *Pipeline) ResolveWinner(ctx context.Context) (models.WinnerDecision, []models.EngagementResult, error) {
	if p.deps.Tally == nil || p.deps.Resolver == nil {
		return models.WinnerDecision{}, nil, errors.New("pipeline: resolution stages not configured")
	}

	start := time.Now()
	snapshot, err := p.deps.Tally.Run(ctx)
	p.metrics.stageDuration.WithLabelValues("tally").Observe(time.Since(start).Seconds())
	if err != nil {
		return models.WinnerDecision{}, nil, fmt.Errorf("tally: %w", err)
	}
	for _, r := range snapshot {
		if r.Eligible() {
			p.metrics.tallyEntries.WithLabelValues("scored").Inc()
		} else {
			p.metrics.tallyEntries.WithLabelValues("excluded").Inc()
		}
	}

	decision, err := p.deps.Resolver.Resolve(ctx, snapshot)
	if err != nil {
		p.metrics.winners.WithLabelValues("error").Inc()
		return decision, snapshot, err
	}
	p.metrics.winners.WithLabelValues("ok").Inc()
	return decision, snapshot, nil
}

func (p *Pipeline) runEntry(ctx context.Context, index int, keywords string) models.EntryOutcome {
	out := models.EntryOutcome{Index: index}
	if p.entryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.entryTimeout)
		defer cancel()
	}

	var content models.Content
	err := p.stage(models.StageGenerate, func() error {
		var err error
		content, err = p.deps.Generator.Generate(ctx, keywords)
		return err
	})
	if err != nil {
		out.Stage = models.StageGenerate
		if errors.Is(err, common.ErrImageLookup) {
			out.Stage = models.StageImage
		}
		return p.fail(out, err)
	}

	var dist models.Distribution
	if err := p.stage(models.StageDistribute, func() error {
		var err error
		dist, err = p.deps.Publisher.Distribute(ctx, content)
		return err
	}); err != nil {
		out.Stage = models.StageDistribute
		return p.fail(out, err)
	}
	out.ChatMessageURL = dist.ChatMessage.URL()
	out.SocialPostURL = dist.SocialPostURL

	if err := p.stage(models.StageArchive, func() error {
		var err error
		out.CID, err = p.deps.Archiver.Archive(ctx, content, dist)
		return err
	}); err != nil {
		out.Stage = models.StageArchive
		return p.fail(out, err)
	}

	doc := archiver.BuildDocument(content, dist)
	if err := p.stage(models.StageSubmit, func() error {
		res, err := p.deps.Submitter.SubmitEntry(ctx, out.CID, p.creator, &doc)
		out.TxHash = res.TxHash
		return err
	}); err != nil {
		out.Stage = models.StageSubmit
		return p.fail(out, err)
	}

	out.Stage = models.StageDone
	p.metrics.entries.WithLabelValues(string(models.StageDone), "ok").Inc()
	return out
}

func (p *Pipeline) stage(s models.Stage, fn func() error) error {
	start := time.Now()
	err := fn()
	p.metrics.stageDuration.WithLabelValues(string(s)).Observe(time.Since(start).Seconds())
	return err
}

func (p *Pipeline) fail(out models.EntryOutcome, err error) models.EntryOutcome {
	out.Err = err
	p.metrics.entries.WithLabelValues(string(out.Stage), "error").Inc()
	return out
}
