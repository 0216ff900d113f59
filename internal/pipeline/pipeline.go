// Package pipeline wires the extraction stages together: tokens are
// normalized, affix lines resolved, a snapshot built, and two snapshots
// scored and compared. Every call is a short synchronous computation over
// immutable inputs, so concurrent requests share nothing but the catalog.
package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/d4tools/loothound/internal/catalog"
	"github.com/d4tools/loothound/internal/compare"
	"github.com/d4tools/loothound/internal/config"
	"github.com/d4tools/loothound/internal/model"
	"github.com/d4tools/loothound/internal/normalize"
	"github.com/d4tools/loothound/internal/resolve"
	"github.com/d4tools/loothound/internal/score"
	"github.com/d4tools/loothound/internal/snapshot"
)

// Pipeline runs extraction and scoring over one catalog.
type Pipeline struct {
	cat      *catalog.Catalog
	resolver *resolve.Resolver
	builder  *snapshot.Builder
	epsilon  float64
}

// New creates a pipeline over the given catalog and tunables.
func New(cat *catalog.Catalog, resolverCfg config.ResolverConfig, scoreCfg config.ScoreConfig) *Pipeline {
	return &Pipeline{
		cat:      cat,
		resolver: resolve.New(cat, resolverCfg),
		builder:  snapshot.NewBuilder(cat),
		epsilon:  scoreCfg.Epsilon,
	}
}

// Epsilon returns the configured score equality band.
func (p *Pipeline) Epsilon() float64 { return p.epsilon }

// Extract runs tokens through normalization, resolution, and snapshot
// construction. Resolution failures are non-fatal: the failing lines are
// retained as unresolved in the snapshot provenance.
func (p *Pipeline) Extract(tokens []model.RawToken, src snapshot.Source) (*model.ItemSnapshot, error) {
	fields := normalize.Normalize(tokens)

	itemType, class := p.context(fields)

	var resolved []model.ResolvedAffix
	var unresolved []string
	order := 0
	for _, f := range fields {
		if f.Kind != model.FieldAffixLine || f.Socket {
			continue
		}
		ra, err := p.resolver.Resolve(f, itemType, class, order)
		order++
		if err != nil {
			var failure *resolve.Failure
			if eris.As(err, &failure) {
				zap.L().Info("pipeline: unresolved affix line",
					zap.String("text", failure.Text),
					zap.String("reason", string(failure.Reason)),
					zap.String("source", src.Ref),
				)
				unresolved = append(unresolved, f.Text)
				continue
			}
			return nil, eris.Wrap(err, "pipeline: resolve")
		}
		resolved = append(resolved, *ra)
	}

	snap, err := p.builder.Build(fields, resolved, unresolved, src)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: build snapshot")
	}
	return snap, nil
}

// context pre-reads the header and footer fields so the resolver can filter
// candidates by item type and class before the snapshot exists.
func (p *Pipeline) context(fields []model.NormalizedField) (itemType, class string) {
	for _, f := range fields {
		switch f.Kind {
		case model.FieldType:
			if it := p.cat.MatchItemType(f.Text); it != nil {
				itemType = it.InternalID
			}
		case model.FieldFooter:
			if class == "" {
				class = p.matchClass(f.Text)
			}
		}
	}
	return itemType, class
}

func (p *Pipeline) matchClass(text string) string {
	folded := normalize.Fold(text)
	for _, cl := range p.cat.Classes() {
		if folded == normalize.Fold(cl.Name) {
			return cl.InternalID
		}
	}
	return ""
}

// ScoreTokens extracts a snapshot and scores it against a build.
func (p *Pipeline) ScoreTokens(tokens []model.RawToken, build *model.Build, src snapshot.Source) (*model.ItemSnapshot, model.ScoreResult, error) {
	snap, err := p.Extract(tokens, src)
	if err != nil {
		return nil, model.ScoreResult{}, err
	}
	return snap, score.Score(snap, build), nil
}

// Compare extracts both token sequences and compares the snapshots under the
// build.
func (p *Pipeline) Compare(tokensA, tokensB []model.RawToken, build *model.Build, srcA, srcB snapshot.Source) (*model.ComparisonResult, error) {
	snapA, err := p.Extract(tokensA, srcA)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: extract item A")
	}
	snapB, err := p.Extract(tokensB, srcB)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: extract item B")
	}

	res := compare.Compare(snapA, snapB, build, p.epsilon)
	zap.L().Info("pipeline: comparison complete",
		zap.String("id", res.ID),
		zap.String("build", build.Name),
		zap.String("winner", string(res.Winner)),
		zap.Float64("delta", res.Delta),
	)
	return &res, nil
}

// CompareRequest is one unit of batch work.
type CompareRequest struct {
	TokensA []model.RawToken
	TokensB []model.RawToken
	Build   *model.Build
	SrcA    snapshot.Source
	SrcB    snapshot.Source
}

// CompareBatch runs comparisons concurrently, one goroutine per request. A
// failing request does not abort the others; failed slots are nil in the
// result slice and the first error is returned.
func (p *Pipeline) CompareBatch(ctx context.Context, reqs []CompareRequest) ([]*model.ComparisonResult, error) {
	results := make([]*model.ComparisonResult, len(reqs))
	g, ctx := errgroup.WithContext(ctx)

	for i, req := range reqs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return eris.Wrap(err, "pipeline: batch cancelled")
			}
			res, err := p.Compare(req.TokensA, req.TokensB, req.Build, req.SrcA, req.SrcB)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	err := g.Wait()
	return results, err
}
