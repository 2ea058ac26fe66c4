// Package job describes a merge run in YAML: three sources, the keys and
// column transforms applied to each, the pivot/entity/fact merge, and the
// derived metrics and outputs of the merged table.
package job

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/recordlink/internal/derive"
	"github.com/sells-group/recordlink/internal/merge"
	"github.com/sells-group/recordlink/internal/reconcile"
	"github.com/sells-group/recordlink/internal/tableio"
)

// Job is a complete merge job.
type Job struct {
	Name    string      `yaml:"name"`
	Sources Sources     `yaml:"sources"`
	Merge   MergeConfig `yaml:"merge"`
	Combine []Combine   `yaml:"combine"`
	Dedupe  []string    `yaml:"dedupe"`
	Derive  DeriveSteps `yaml:"derive"`
	Output  Output      `yaml:"output"`
}

// Sources holds the three inputs of the merge.
type Sources struct {
	Pivot    Source `yaml:"pivot"`
	Entities Source `yaml:"entities"`
	Facts    Source `yaml:"facts"`
}

// Source is one input file and the preparation applied to it.
type Source struct {
	Path       string      `yaml:"path"`
	Format     string      `yaml:"format"`
	Sheet      string      `yaml:"sheet"`
	Keys       []KeySpec   `yaml:"keys"`
	Transforms []Transform `yaml:"transforms"`
}

// KeySpec builds a normalized key column from one or more source columns.
type KeySpec struct {
	Column string   `yaml:"column"`
	From   []string `yaml:"from"`
}

// Transform maps columns through a named reconciler.
type Transform struct {
	Func       string   `yaml:"func"`
	Columns    []string `yaml:"columns"`
	Prefix     string   `yaml:"prefix"`
	Substitute bool     `yaml:"substitute"`
}

// MergeConfig mirrors merge.Spec.
type MergeConfig struct {
	PivotEntityKey string   `yaml:"pivot_entity_key"`
	EntityKey      string   `yaml:"entity_key"`
	PivotFactKey   string   `yaml:"pivot_fact_key"`
	FactKey        string   `yaml:"fact_key"`
	Columns        []string `yaml:"columns"`
	RoleColumn     string   `yaml:"role_column"`
	Role           string   `yaml:"role"`
}

// Spec converts the config to a merge.Spec.
func (m MergeConfig) Spec() merge.Spec {
	return merge.Spec{
		PivotEntityKey: m.PivotEntityKey,
		EntityKey:      m.EntityKey,
		PivotFactKey:   m.PivotFactKey,
		FactKey:        m.FactKey,
		Columns:        m.Columns,
		RoleColumn:     m.RoleColumn,
		Role:           m.Role,
	}
}

// Combine folds two comma-separated list columns into Out with a set union.
// Left and Right are dropped unless one of them is Out.
type Combine struct {
	Out   string `yaml:"out"`
	Left  string `yaml:"left"`
	Right string `yaml:"right"`
}

// DeriveSteps lists the derived metrics to compute after the merge.
type DeriveSteps struct {
	Age      *AgeStep      `yaml:"age"`
	ROI      *ROIStep      `yaml:"roi"`
	Quantile *QuantileStep `yaml:"quantile"`
}

// AgeStep configures derive.ComputeAge. An unset bound falls back to the
// configured default for that side only.
type AgeStep struct {
	Birth   string   `yaml:"birth"`
	Release string   `yaml:"release"`
	Out     string   `yaml:"out"`
	Min     *float64 `yaml:"min"`
	Max     *float64 `yaml:"max"`
}

// Bounds merges the step's bounds over d.
func (a AgeStep) Bounds(d derive.AgeBounds) derive.AgeBounds {
	if a.Min != nil {
		d.Min = *a.Min
	}
	if a.Max != nil {
		d.Max = *a.Max
	}
	return d
}

// ROIStep configures derive.ComputeROI.
type ROIStep struct {
	Revenue string `yaml:"revenue"`
	Budget  string `yaml:"budget"`
}

// QuantileStep configures derive.QuantileBucket. Empty quantiles use the
// configured defaults.
type QuantileStep struct {
	Column    string    `yaml:"column"`
	Quantiles []float64 `yaml:"quantiles"`
}

// Output names where the result goes. Any combination may be set.
type Output struct {
	CSV   string   `yaml:"csv"`
	Table string   `yaml:"table"`
	Keys  []string `yaml:"keys"`
}

// Load reads a job file. Relative source and output paths are resolved
// against the file's directory; http(s) sources are kept as given.
func Load(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "job: read %s", path)
	}

	var wrapper struct {
		Job Job `yaml:"job"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "job: parse")
	}

	j := &wrapper.Job
	if j.Name == "" {
		j.Name = stem(path)
	}
	dir := filepath.Dir(path)
	for _, s := range []*Source{&j.Sources.Pivot, &j.Sources.Entities, &j.Sources.Facts} {
		s.Path = resolvePath(dir, s.Path)
	}
	j.Output.CSV = resolvePath(dir, j.Output.CSV)

	if err := j.Validate(); err != nil {
		return nil, err
	}
	return j, nil
}

// Validate checks the parts of a job that can be checked without data.
// Column names are validated later against the loaded tables.
func (j *Job) Validate() error {
	for _, src := range []struct {
		name string
		s    Source
	}{
		{"pivot", j.Sources.Pivot},
		{"entities", j.Sources.Entities},
		{"facts", j.Sources.Facts},
	} {
		name, s := src.name, src.s
		if s.Path == "" {
			return eris.Errorf("job: sources.%s.path is required", name)
		}
		for _, k := range s.Keys {
			if k.Column == "" || len(k.From) == 0 {
				return eris.Errorf("job: sources.%s.keys entries need column and from", name)
			}
		}
		for _, tr := range s.Transforms {
			if _, ok := reconcile.Lookup(tr.Func); !ok {
				return eris.Errorf("job: sources.%s: unknown transform %q", name, tr.Func)
			}
		}
	}
	for _, c := range j.Combine {
		if c.Out == "" || c.Left == "" || c.Right == "" {
			return eris.New("job: combine entries need out, left and right")
		}
	}
	if len(j.Output.Keys) > 0 && j.Output.Table == "" {
		return eris.New("job: output.keys requires output.table")
	}
	return nil
}

func resolvePath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) || tableio.IsRemote(p) {
		return p
	}
	return filepath.Join(dir, p)
}

func stem(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
