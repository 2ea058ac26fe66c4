package job

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/recordlink/internal/derive"
	"github.com/sells-group/recordlink/internal/fetcher"
	"github.com/sells-group/recordlink/internal/merge"
	"github.com/sells-group/recordlink/internal/reconcile"
	"github.com/sells-group/recordlink/internal/resolve"
	"github.com/sells-group/recordlink/internal/table"
	"github.com/sells-group/recordlink/internal/tableio"
)

// Defaults supplies values a job leaves unset.
type Defaults struct {
	Role      string
	AgeBounds derive.AgeBounds
	Quantiles []float64
}

// Inputs holds the three loaded source tables.
type Inputs struct {
	Pivot    *table.Table
	Entities *table.Table
	Facts    *table.Table
}

// LoadInputs reads the three sources concurrently. f downloads sources given
// as http(s) URLs and may be nil when every source is local.
func LoadInputs(ctx context.Context, s Sources, f fetcher.Fetcher) (*Inputs, error) {
	var in Inputs
	g, gctx := errgroup.WithContext(ctx)

	for _, src := range []struct {
		name string
		spec Source
		dst  **table.Table
	}{
		{"pivot", s.Pivot, &in.Pivot},
		{"entities", s.Entities, &in.Entities},
		{"facts", s.Facts, &in.Facts},
	} {
		g.Go(func() error {
			t, err := tableio.Load(gctx, src.spec.Path, tableio.Options{
				Format:    tableio.Format(src.spec.Format),
				SheetName: src.spec.Sheet,
				Fetcher:   f,
			})
			if err != nil {
				return eris.Wrapf(err, "job: load %s", src.name)
			}
			zap.L().Debug("source loaded",
				zap.String("source", src.name),
				zap.String("path", src.spec.Path),
				zap.Int("rows", t.Len()),
			)
			*src.dst = t
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &in, nil
}

// Prepare builds the source's key columns, then applies its transforms in order.
func Prepare(t *table.Table, s Source) (*table.Table, error) {
	out := t
	var err error
	for _, k := range s.Keys {
		if out, err = resolve.WithKeyColumn(out, k.Column, k.From...); err != nil {
			return nil, err
		}
	}
	for _, tr := range s.Transforms {
		fn, ok := reconcile.Lookup(tr.Func)
		if !ok {
			return nil, eris.Errorf("job: unknown transform %q", tr.Func)
		}
		if out, err = out.MapColumns(tr.Columns, fn, tr.Substitute, tr.Prefix); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Run prepares the inputs, merges them and applies the combine, dedupe and
// derive steps, in that order.
func (j *Job) Run(in *Inputs, d Defaults) (*table.Table, error) {
	log := zap.L().With(zap.String("component", "job"), zap.String("job", j.Name))

	pivot, err := Prepare(in.Pivot, j.Sources.Pivot)
	if err != nil {
		return nil, eris.Wrap(err, "job: prepare pivot")
	}
	entities, err := Prepare(in.Entities, j.Sources.Entities)
	if err != nil {
		return nil, eris.Wrap(err, "job: prepare entities")
	}
	facts, err := Prepare(in.Facts, j.Sources.Facts)
	if err != nil {
		return nil, eris.Wrap(err, "job: prepare facts")
	}

	spec := j.Merge.Spec()
	if spec.Role == "" {
		spec.Role = d.Role
	}
	out, err := merge.EntityFact(pivot, entities, facts, spec)
	if err != nil {
		return nil, eris.Wrap(err, "job: merge")
	}
	log.Info("merged", zap.Int("rows", out.Len()), zap.String("role", spec.Role))

	for _, c := range j.Combine {
		if out, err = combine(out, c); err != nil {
			return nil, eris.Wrap(err, "job: combine")
		}
	}

	if len(j.Dedupe) > 0 {
		before := out.Len()
		if out, err = merge.GroupAggregate(out, j.Dedupe...); err != nil {
			return nil, eris.Wrap(err, "job: dedupe")
		}
		log.Info("duplicates aggregated", zap.Int("before", before), zap.Int("after", out.Len()))
	}

	if out, err = j.Derive.apply(out, d); err != nil {
		return nil, eris.Wrap(err, "job: derive")
	}
	return out, nil
}

func (s DeriveSteps) apply(t *table.Table, d Defaults) (*table.Table, error) {
	var err error
	if a := s.Age; a != nil {
		outCol := a.Out
		if outCol == "" {
			outCol = "age"
		}
		if t, err = derive.ComputeAge(t, a.Birth, a.Release, outCol, a.Bounds(d.AgeBounds)); err != nil {
			return nil, err
		}
	}
	if r := s.ROI; r != nil {
		if t, err = derive.ComputeROI(t, r.Revenue, r.Budget); err != nil {
			return nil, err
		}
	}
	if q := s.Quantile; q != nil {
		qs := q.Quantiles
		if len(qs) == 0 {
			qs = d.Quantiles
		}
		if t, err = derive.QuantileBucket(t, q.Column, qs); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// combine writes the set union of two list columns to c.Out.
func combine(t *table.Table, c Combine) (*table.Table, error) {
	cols, err := t.Schema().Columns("combine", c.Left, c.Right)
	if err != nil {
		return nil, err
	}
	vals := make([]table.Value, t.Len())
	for i, r := range t.Records() {
		vals[i] = reconcile.MergeLists(cols[0].Of(r), cols[1].Of(r))
	}
	out, err := t.WithColumn(c.Out, vals)
	if err != nil {
		return nil, err
	}
	var drop []string
	for _, name := range []string{c.Left, c.Right} {
		if name != c.Out {
			drop = append(drop, name)
		}
	}
	return out.Drop(drop...), nil
}
