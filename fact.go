package diabicus

import (
	"context"
	"math/rand/v2"
	"sync"

	"go.uber.org/zap"
)

// Message is a compiled fact message.
type Message func(ctx context.Context, formula string, result Value, hist History) (string, error)

// FactInfo describes a fact. Weight is used as given; loaders apply the
// default of 1.
type FactInfo struct {
	Title  string
	Link   string
	Source string
	OEIS   string
	Wiki   string
	Weight float64
	Tags   []string
}

// Fact is a Case that, when it applies, shows one of several messages.
// Messages are handed out in a shuffled order that is reshuffled once
// every message has been used.
type Fact struct {
	caseBase
	Title  string
	Link   string
	Source string
	OEIS   string
	Wiki   string

	messages []Message
	logger   *zap.Logger

	mu    sync.Mutex
	rnd   *rand.Rand
	order []int
	pos   int
}

// FactOption configures a Fact.
type FactOption func(*Fact)

func WithFactLogger(l *zap.Logger) FactOption {
	return func(f *Fact) { f.logger = l }
}

func WithFactRand(r *rand.Rand) FactOption {
	return func(f *Fact) { f.rnd = r }
}

func NewFact(info FactInfo, test Predicate, messages []Message, opts ...FactOption) *Fact {
	f := &Fact{
		caseBase: newCaseBase(test, info.Weight, info.Tags),
		Title:    info.Title,
		Link:     info.Link,
		Source:   info.Source,
		OEIS:     info.OEIS,
		Wiki:     info.Wiki,
		messages: append([]Message(nil), messages...),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.rnd == nil {
		f.rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	f.order = make([]int, len(f.messages))
	for i := range f.order {
		f.order[i] = i
	}
	f.reshuffle()
	return f
}

func (f *Fact) String() string { return f.Title }

// Messages returns the compiled messages in declaration order.
func (f *Fact) Messages() []Message { return append([]Message(nil), f.messages...) }

func (f *Fact) reshuffle() {
	f.rnd.Shuffle(len(f.order), func(i, j int) { f.order[i], f.order[j] = f.order[j], f.order[i] })
	f.pos = 0
}

// Message renders the next message in rotation under r's deadline. A
// message that fails, panics or times out is logged and skipped in favour
// of the next one; when none succeeds the title is shown.
func (f *Fact) Message(ctx context.Context, r Runner, formula string, result Value, hist History) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	// A reshuffle mid-call can bring a failed message round again; try
	// each one at most once.
	tried := make([]bool, len(f.messages))
	for n := 0; n < len(f.messages); {
		idx := f.order[f.pos]
		f.pos++
		if f.pos == len(f.order) {
			f.reshuffle()
		}
		if tried[idx] {
			continue
		}
		tried[idx] = true
		n++
		msg, err := isolate(ctx, r, f.Title, PhaseMessage, func(ctx context.Context) (string, error) {
			return f.messages[idx](ctx, formula, result, hist)
		})
		if err == nil {
			return msg
		}
		f.logger.Warn("fact message failed",
			zap.String("fact", f.Title),
			zap.Int("message", idx),
			zap.String("formula", formula),
			zap.Stringer("result", result),
			zap.Stringer("history", hist),
			zap.Error(err))
	}
	return f.Title
}

// PickFact picks an applicable fact from facts and renders its next
// message with the collection's runner.
func PickFact(ctx context.Context, facts *Collection[*Fact], formula string, result Value, hist History) (*Fact, string, bool) {
	fact, ok := facts.Pick(ctx, formula, result, hist)
	if !ok {
		return nil, "", false
	}
	return fact, fact.Message(ctx, facts.Runner(), formula, result, hist), true
}
