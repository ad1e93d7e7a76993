package pipeline

import (
	"context"
	"time"

	apperrors "github.com/Skryldev/darkroom-develop/errors"

	"github.com/Skryldev/darkroom-develop/core"
)

// Pipeline runs one dependency-ordered node chain for one worker class
// (Full, Preview, or Secondary), with a bounded per-node intermediate cache
// and a pending change-flag bitset (spec.md §3 "Pipeline", §4.4, §4.5, §4.6).
//
// A Pipeline is owned by exactly one develop.State pipeline slot and must
// only be driven under that slot's mutex (spec.md §5 lock order).
type Pipeline struct {
	Class Class

	cache   *Cache
	changed *ChangeFlags
	hooks   []core.Hook
	logger  core.Logger

	maxRetries int
	retryDelay time.Duration
}

// New returns a Pipeline of the given class with a cache bounded to
// cacheSize entries.
func New(class Class, cacheSize int) (*Pipeline, error) {
	c, err := NewCache(cacheSize)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		Class:      class,
		cache:      c,
		changed:    NewChangeFlags(),
		maxRetries: 1,
		retryDelay: 10 * time.Millisecond,
	}, nil
}

// AddHook registers a node-timing observer.
func (p *Pipeline) AddHook(h core.Hook) { p.hooks = append(p.hooks, h) }

// SetLogger attaches a structured logger.
func (p *Pipeline) SetLogger(l core.Logger) { p.logger = l }

// Flags returns the pipeline's pending change flags for the caller
// (develop.State) to mutate under its own lock discipline.
func (p *Pipeline) Flags() *ChangeFlags { return p.changed }

// Run executes nodes in dependency order against input, honouring shutdown
// for cooperative cancellation between nodes and within a node's own
// Process call. It implements the §4.5 step-6 run loop: cache
// invalidation per the §4.6 change-flag reaction table, cache probe, node
// execution with a bounded retry on transient errors (the teacher's
// retry-with-goto pattern generalized from one image to a node chain), and
// full cache flush when CacheObsolete dominates regardless of which other
// bits are set (see DESIGN.md's Open Question decision).
func (p *Pipeline) Run(ctx context.Context, nodes []Node, input *core.Buffer, shutdown *core.Shutdown) (*core.Buffer, core.ControlFlow, error) {
	switch {
	case p.changed.CacheObsolete || p.changed.Synch() || p.changed.Remove():
		// SYNCH (topology unchanged, params/order refreshed) and REMOVE
		// (module set changed) both demand a full flush per the §4.6 table;
		// cache_obsolete dominates regardless of which bits are set.
		p.cache.Flush()
	case p.changed.TopChanged():
		p.invalidateFromTail(nodes)
	}
	// ZOOMED needs no extra step here: every node's Fingerprint hashes its
	// own roi, so a changed viewport already produces a miss for every
	// affected node without help from this switch.
	p.changed.Reset()

	current := input
	for _, node := range nodes {
		if shutdown.IsSet() {
			return nil, core.FlowInterrupted, interrupted(node.Instance.Op)
		}
		if err := ctx.Err(); err != nil {
			return nil, core.FlowInterrupted, apperrors.Wrap(apperrors.CategoryPipelineInterrupted, node.Instance.Op, err)
		}

		if cached, ok := p.cache.Get(node.Fingerprint); ok {
			current = cached
			continue
		}

		out, flow, err := p.runNode(ctx, node, current, shutdown)
		if err != nil {
			return nil, flow, err
		}
		if flow == core.FlowInterrupted {
			return nil, flow, interrupted(node.Instance.Op)
		}
		p.cache.Put(node.Fingerprint, out)
		current = out
	}
	return current, core.FlowOK, nil
}

// invalidateFromTail evicts the cache entry for every node ranked at or
// after the lowest-ranked node matching one of the pipeline's pending
// TOP_CHANGED keys. A node's own Fingerprint only hashes its own op,
// params, and roi — not its upstream input — so a downstream node whose
// own params never changed would otherwise keep hitting its old,
// now-stale cached output forever.
func (p *Pipeline) invalidateFromTail(nodes []Node) {
	keys := p.changed.TailKeys()
	if len(keys) == 0 {
		return
	}
	minRank := -1
	for _, n := range nodes {
		for _, k := range keys {
			if n.Instance.Key() == k && (minRank == -1 || n.Instance.Rank < minRank) {
				minRank = n.Instance.Rank
			}
		}
	}
	if minRank == -1 {
		return
	}
	for _, n := range nodes {
		if n.Instance.Rank >= minRank {
			p.cache.Delete(n.Fingerprint)
		}
	}
}

// runNode executes one node with hook notification and a bounded retry on
// transient errors.
func (p *Pipeline) runNode(ctx context.Context, node Node, input *core.Buffer, shutdown *core.Shutdown) (*core.Buffer, core.ControlFlow, error) {
	p.notifyBefore(ctx, node.Instance.Op)

	var (
		out  *core.Buffer
		flow core.ControlFlow
		err  error
	)

	attempts := p.maxRetries + 1
	start := time.Now()
process:
	for i := 0; i < attempts; i++ {
		out, flow, err = node.Module.Process(ctx, node.Instance, input, node.RoiIn, node.RoiOut, shutdown)
		if err == nil || !apperrors.IsRetryable(err) {
			break process
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				err = apperrors.Wrap(apperrors.CategoryPipelineInterrupted, node.Instance.Op, ctx.Err())
				break process
			case <-time.After(p.retryDelay):
			}
		}
	}
	elapsed := time.Since(start)

	p.notifyAfter(ctx, node.Instance.Op, elapsed, err)
	return out, flow, err
}

func (p *Pipeline) notifyBefore(ctx context.Context, op string) {
	for _, h := range p.hooks {
		h.BeforeNode(ctx, op)
	}
}

func (p *Pipeline) notifyAfter(ctx context.Context, op string, d time.Duration, err error) {
	for _, h := range p.hooks {
		h.AfterNode(ctx, op, d, err)
	}
}
