package export

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rpattn/catalog-export/internal/domain"
	"github.com/rpattn/catalog-export/internal/fields"
	"github.com/rpattn/catalog-export/internal/filter"
	"github.com/rpattn/catalog-export/internal/modifier"
	"github.com/rpattn/catalog-export/internal/relationloader"
	"github.com/rpattn/catalog-export/internal/repository"
	"github.com/rpattn/catalog-export/internal/serializer"
)

// State is a step of one export run.
type State string

const (
	StateConfigured  State = "CONFIGURED"
	StateFiltering   State = "FILTERING"
	StateResolving   State = "RESOLVING"
	StateSerializing State = "SERIALIZING"
	StateDone        State = "DONE"
	StateFailed      State = "FAILED"
)

const defaultChunkSize = 500

// Plan is everything a run needs besides the catalog.
type Plan struct {
	Filters    domain.FilterGroup
	Fields     []domain.SelectedField
	Context    domain.ExportContext
	Currencies domain.CurrencyTable
	// Limit caps the rows handed to the encoder; matching continues past it so
	// Stats.Matched stays exact. Zero means no cap.
	Limit int
}

// Stats summarises a finished run.
type Stats struct {
	Matched int
	Emitted int
	Chunks  int
}

type column struct {
	domain.Column
	field    fields.Field
	selected domain.SelectedField
	known    bool
}

// Runner drives a single export run through its states. A Runner is used
// once and is not safe for concurrent use.
type Runner struct {
	catalog   repository.CatalogRepository
	relations repository.RelationRepository
	registry  *fields.Registry
	chunkSize int

	state     State
	plan      Plan
	columns   []column
	predicate filter.Predicate
	modifiers *modifier.Pipeline
	warned    map[string]struct{}
}

// NewRunner creates a runner reading chunkSize products per query. relations
// backs the relation loaders when the context carries none.
func NewRunner(
	catalog repository.CatalogRepository,
	relations repository.RelationRepository,
	registry *fields.Registry,
	chunkSize int,
) *Runner {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &Runner{
		catalog:   catalog,
		relations: relations,
		registry:  registry,
		chunkSize: chunkSize,
		state:     StateConfigured,
		warned:    make(map[string]struct{}),
	}
}

// State returns the current state.
func (r *Runner) State() State {
	return r.state
}

// Prepare validates the plan and compiles its filter tree. Nothing is read
// from the catalog until Run.
func (r *Runner) Prepare(plan Plan) error {
	if r.state != StateConfigured {
		return eris.Errorf("export: runner already in state %s", r.state)
	}
	problems := &domain.ValidationError{}
	if len(plan.Fields) == 0 {
		problems.Add("fields", "at least one field is required")
	}

	seen := make(map[string]int, len(plan.Fields))
	columns := make([]column, 0, len(plan.Fields))
	for i, selected := range plan.Fields {
		path := fmt.Sprintf("fields[%d]", i)
		key := strings.TrimSpace(selected.Key)
		if key == "" {
			problems.Add(path+".key", "key is required")
			continue
		}
		if first, dup := seen[key]; dup {
			problems.Add(path+".key", "duplicate key %q, first used at fields[%d]", key, first)
			continue
		}
		seen[key] = i

		field, known := r.registry.Lookup(key)
		if !known {
			field = r.registry.Field(key)
			r.warnOnce(key, "selected field is not in the registry, column will be empty")
		}
		label := strings.TrimSpace(selected.Label)
		if label == "" {
			label = field.Spec.Label
		}
		selected.Key = key
		columns = append(columns, column{
			Column:   domain.Column{Key: key, Label: label},
			field:    field,
			selected: selected,
			known:    known,
		})
	}

	predicate, err := filter.Compile(plan.Filters, r.registry, plan.Context)
	if err != nil {
		var verr *domain.ValidationError
		if !errors.As(err, &verr) {
			r.state = StateFailed
			return err
		}
		problems.Problems = append(problems.Problems, verr.Problems...)
	}
	if err := problems.OrNil(); err != nil {
		r.state = StateFailed
		return err
	}

	r.plan = plan
	r.columns = columns
	r.predicate = predicate
	r.modifiers = modifier.New(plan.Currencies)
	return nil
}

// Columns lists the output columns in profile order. Valid after Prepare.
func (r *Runner) Columns() []domain.Column {
	out := make([]domain.Column, len(r.columns))
	for i, c := range r.columns {
		out[i] = c.Column
	}
	return out
}

// Run reads the catalog in id order and streams every matching row to enc.
// Any encoder error is fatal and leaves the runner FAILED.
func (r *Runner) Run(ctx context.Context, enc serializer.Encoder) (Stats, error) {
	var stats Stats
	if r.predicate == nil || r.state != StateConfigured {
		return stats, eris.Errorf("export: runner not prepared (state %s)", r.state)
	}

	loaders := relationloader.FromContext(ctx)
	if loaders == nil && r.relations != nil {
		loaders = relationloader.New(r.relations)
	}

	if err := enc.Begin(r.Columns()); err != nil {
		return stats, r.fail(err)
	}

	var afterID int64
	for {
		if err := ctx.Err(); err != nil {
			return stats, r.fail(eris.Wrap(err, "export: run cancelled"))
		}

		r.transition(StateFiltering)
		chunk, err := r.catalog.ListChunk(ctx, afterID, r.chunkSize)
		if err != nil {
			return stats, r.fail(eris.Wrap(err, "export: read catalog chunk"))
		}
		if len(chunk) == 0 {
			break
		}
		stats.Chunks++
		afterID = chunk[len(chunk)-1].ID

		if loaders != nil {
			if err := loaders.Hydrate(ctx, chunk); err != nil {
				return stats, r.fail(eris.Wrap(err, "export: load relations"))
			}
		}

		matched := make([]*domain.Product, 0, len(chunk))
		for i := range chunk {
			if r.predicate(&chunk[i]) {
				matched = append(matched, &chunk[i])
			}
		}
		stats.Matched += len(matched)

		for _, p := range matched {
			if r.plan.Limit > 0 && stats.Emitted >= r.plan.Limit {
				break
			}
			r.transition(StateResolving)
			values := r.buildRow(p)

			r.transition(StateSerializing)
			if err := enc.WriteRow(values); err != nil {
				return stats, r.fail(err)
			}
			stats.Emitted++
		}

		if len(chunk) < r.chunkSize {
			break
		}
	}

	if err := enc.Close(); err != nil {
		return stats, r.fail(err)
	}
	r.transition(StateDone)
	return stats, nil
}

func (r *Runner) buildRow(p *domain.Product) []any {
	values := make([]any, len(r.columns))
	for i, col := range r.columns {
		raw := r.resolve(col, p)
		values[i] = r.modifiers.Apply(col.field.Spec, col.selected, raw)
	}
	return values
}

// resolve never lets a single column abort the run.
func (r *Runner) resolve(col column, p *domain.Product) (raw any) {
	if !col.known {
		return nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.warnOnce(col.Key, fmt.Sprintf("resolver panicked: %v", rec))
			raw = nil
		}
	}()
	return col.field.Resolve(p, r.plan.Context)
}

func (r *Runner) warnOnce(key, msg string) {
	if _, done := r.warned[key]; done {
		return
	}
	r.warned[key] = struct{}{}
	zap.L().Warn(msg, zap.String("field", key))
}

func (r *Runner) transition(next State) {
	if r.state == next {
		return
	}
	zap.L().Debug("export state", zap.String("from", string(r.state)), zap.String("to", string(next)))
	r.state = next
}

func (r *Runner) fail(err error) error {
	r.transition(StateFailed)
	return err
}
