package diabicus

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"

	"go.uber.org/zap"
)

// Case is a reactive rule: a test over a calculation and a selection
// weight. Facts and special-music triggers are both Cases.
//
// Test receives the calculation being reacted to and a History whose last
// entry is that same calculation. It must not block past ctx.
type Case interface {
	Test(ctx context.Context, formula string, result Value, hist History) (bool, error)
	Weight() float64
	String() string
}

// Predicate is a compiled case test.
type Predicate func(ctx context.Context, formula string, result Value, hist History) (bool, error)

// caseBase holds what every concrete Case shares.
type caseBase struct {
	test   Predicate
	weight float64
	tags   []string
}

func newCaseBase(test Predicate, weight float64, tags []string) caseBase {
	return caseBase{test: test, weight: weight, tags: append([]string(nil), tags...)}
}

// Test runs the case's predicate. A case without one never applies.
func (b *caseBase) Test(ctx context.Context, formula string, result Value, hist History) (bool, error) {
	if b.test == nil {
		return false, nil
	}
	return b.test(ctx, formula, result, hist)
}

func (b *caseBase) Weight() float64 { return b.weight }

// ValidWeight reports whether the weight is a finite, non-negative number.
func (b *caseBase) ValidWeight() bool { return sanitizeWeight(b.weight) == b.weight }

func (b *caseBase) Tags() []string { return append([]string(nil), b.tags...) }

func (b *caseBase) HasTag(tag string) bool {
	for _, t := range b.tags {
		if t == tag {
			return true
		}
	}
	return false
}

// sanitizeWeight maps NaN, infinities and negatives to 0.
func sanitizeWeight(w float64) float64 {
	if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		return 0
	}
	return w
}

// ============================================================
// Collection
// ============================================================

type collectionOptions struct {
	runner Runner
	logger *zap.Logger
	rnd    *rand.Rand
}

// CollectionOption configures a Collection.
type CollectionOption func(*collectionOptions)

// WithRunner sets the deadline applied to every test and message.
func WithRunner(r Runner) CollectionOption {
	return func(o *collectionOptions) { o.runner = r }
}

func WithCollectionLogger(l *zap.Logger) CollectionOption {
	return func(o *collectionOptions) { o.logger = l }
}

// WithRand sets the source of randomness for picks.
func WithRand(r *rand.Rand) CollectionOption {
	return func(o *collectionOptions) { o.rnd = r }
}

// WithSeed is WithRand over a PCG source seeded with seed.
func WithSeed(seed uint64) CollectionOption {
	return WithRand(rand.New(rand.NewPCG(seed, seed)))
}

// Collection owns an immutable list of cases and picks applicable ones by
// weighted random choice. It is safe for concurrent use.
type Collection[C Case] struct {
	cases []C
	collectionOptions
	mu sync.Mutex
}

func NewCollection[C Case](cases []C, opts ...CollectionOption) *Collection[C] {
	c := &Collection[C]{
		cases: append([]C(nil), cases...),
		collectionOptions: collectionOptions{
			runner: NewRunner(DefaultCaseTimeout),
			logger: zap.NewNop(),
		},
	}
	for _, opt := range opts {
		opt(&c.collectionOptions)
	}
	if c.rnd == nil {
		c.rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return c
}

func (c *Collection[C]) Len() int       { return len(c.cases) }
func (c *Collection[C]) Cases() []C     { return append([]C(nil), c.cases...) }
func (c *Collection[C]) Runner() Runner { return c.runner }

// Pick returns one case that applies to the calculation, or false when
// none does.
func (c *Collection[C]) Pick(ctx context.Context, formula string, result Value, hist History) (C, bool) {
	return c.Choose(c.Applicable(ctx, formula, result, hist))
}

// Applicable tests every case under the runner's deadline. A case whose
// test times out, fails or panics is logged and treated as not applying.
func (c *Collection[C]) Applicable(ctx context.Context, formula string, result Value, hist History) []C {
	var out []C
	for _, cs := range c.cases {
		if c.applies(ctx, cs, formula, result, hist) {
			out = append(out, cs)
		}
	}
	c.logger.Info("applicable cases found", zap.Int("count", len(out)), zap.Int("of", len(c.cases)))
	return out
}

func (c *Collection[C]) applies(ctx context.Context, cs C, formula string, result Value, hist History) bool {
	name := cs.String()
	ok, err := isolate(ctx, c.runner, name, PhaseTest, func(ctx context.Context) (bool, error) {
		return cs.Test(ctx, formula, result, hist)
	})
	if err != nil {
		c.logger.Warn("case test failed",
			zap.String("case", name),
			zap.String("formula", formula),
			zap.Stringer("result", result),
			zap.Stringer("history", hist),
			zap.Error(err))
		return false
	}
	c.logger.Debug("case tested", zap.String("case", name), zap.Bool("applies", ok))
	return ok
}

// Choose draws one of cases with probability proportional to its weight.
// Invalid and negative weights count as 0. When every weight is 0 the
// choice is uniform; an empty list yields false.
func (c *Collection[C]) Choose(cases []C) (C, bool) {
	var zero C
	if len(cases) == 0 {
		c.logger.Info("no cases to pick")
		return zero, false
	}

	total := 0.0
	for _, cs := range cases {
		total += sanitizeWeight(cs.Weight())
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if total == 0 {
		picked := cases[c.rnd.IntN(len(cases))]
		c.logger.Info("total weight 0, picked uniformly", zap.Stringer("case", picked))
		return picked, true
	}

	r := c.rnd.Float64() * total
	cum := 0.0
	for _, cs := range cases {
		cum += sanitizeWeight(cs.Weight())
		if cum > r {
			c.logger.Info("picked case", zap.Stringer("case", cs))
			return cs, true
		}
	}
	// Rounding can leave r at or just above the final sum; take the last
	// case that carries weight.
	for i := len(cases) - 1; i >= 0; i-- {
		if sanitizeWeight(cases[i].Weight()) > 0 {
			return cases[i], true
		}
	}
	return zero, false
}
