// Package merge joins a pivot (bridge) table with an entity table and a fact
// table on exact, pre-normalized keys.
package merge

import (
	"go.uber.org/zap"

	"github.com/sells-group/recordlink/internal/table"
)

// AnyRole disables the role filter.
const AnyRole = "any"

const op = "merge entity fact"

// Validation stages reported in *table.InvalidArgumentError.
const (
	StageRole       = "role"
	StageKeys       = "keys"
	StageProjection = "projection"
)

// Spec describes a pivot/entity/fact merge.
type Spec struct {
	PivotEntityKey string   // entity key column in the pivot table
	EntityKey      string   // key column in the entity table
	PivotFactKey   string   // fact key column in the pivot table
	FactKey        string   // key column in the fact table
	Columns        []string // projection of the joined table
	RoleColumn     string   // role tag column in the pivot table
	Role           string   // role to keep; "" or AnyRole keeps every row
}

func (s Spec) anyRole() bool { return s.Role == "" || s.Role == AnyRole }

// EntityFact merges entities with facts through the pivot table:
//  1. Keep pivot rows tagged with Role (all rows for AnyRole)
//  2. Drop pivot rows without an entity key and inner-join the entities,
//     after dropping keyless entities and keeping the first row per key
//  3. Inner-join the facts; a fact appears once per matching pivot row
//  4. Project onto Columns
//  5. Drop rows that are equal on every projected column
//
// Shared column names follow the dataframe-merge convention: identically
// named join keys are coalesced, other shared names get "_x" (left) and "_y"
// (right). Missing keys never match. All validation happens before any row
// is joined; errors name the failing stage and column.
func EntityFact(pivot, entities, facts *table.Table, spec Spec) (*table.Table, error) {
	log := zap.L().With(zap.String("component", "merge"))

	if err := validateRole(pivot, spec); err != nil {
		return nil, err
	}
	if err := validateKeys(pivot, entities, facts, spec); err != nil {
		return nil, err
	}

	// Only the two pivot keys take part in the join.
	bridgeCols := []string{spec.PivotFactKey, spec.PivotEntityKey}
	if spec.PivotFactKey == spec.PivotEntityKey {
		bridgeCols = bridgeCols[:1]
	}
	first, err := planJoin(bridgeCols, entities.Columns(), spec.PivotEntityKey, spec.EntityKey)
	if err != nil {
		return nil, err
	}
	factKey := first.leftNames[spec.PivotFactKey]
	second, err := planJoin(first.names, facts.Columns(), factKey, spec.FactKey)
	if err != nil {
		return nil, err
	}
	joinedSchema, err := table.NewSchema(second.names...)
	if err != nil {
		return nil, table.Invalid(op, StageKeys, "", err.Error())
	}
	if len(spec.Columns) == 0 {
		return nil, table.Invalid(op, StageProjection, "", "no columns requested")
	}
	for _, c := range spec.Columns {
		if !joinedSchema.Has(c) {
			return nil, table.Invalid(op, StageProjection, c, "column not present in joined pivot, entity and fact tables")
		}
	}

	bridge := pivot
	if !spec.anyRole() {
		roleCol, _ := pivot.Schema().Lookup(op, spec.RoleColumn)
		bridge = pivot.Filter(func(r table.Record) bool {
			s, ok := roleCol.Of(r).Str()
			return ok && s == spec.Role
		})
	}
	bridge, err = bridge.DropMissing(spec.PivotEntityKey)
	if err != nil {
		return nil, err
	}
	if bridge, err = bridge.Project(bridgeCols...); err != nil {
		return nil, err
	}

	uniqueEntities, err := entities.DropMissing(spec.EntityKey)
	if err != nil {
		return nil, err
	}
	if uniqueEntities, err = uniqueEntities.DropDuplicatesOn(spec.EntityKey); err != nil {
		return nil, err
	}

	withEntities, err := first.join(bridge, uniqueEntities)
	if err != nil {
		return nil, err
	}
	joined, err := second.join(withEntities, facts)
	if err != nil {
		return nil, err
	}

	projected, err := joined.Project(spec.Columns...)
	if err != nil {
		return nil, table.Invalid(op, StageProjection, "", err.Error())
	}
	out := projected.DropDuplicates()

	log.Debug("merge complete",
		zap.String("role", spec.Role),
		zap.Int("pivot_rows", bridge.Len()),
		zap.Int("entities", uniqueEntities.Len()),
		zap.Int("joined", joined.Len()),
		zap.Int("rows", out.Len()),
	)
	return out, nil
}

func validateRole(pivot *table.Table, spec Spec) error {
	if spec.anyRole() {
		return nil
	}
	roleCol, err := pivot.Schema().Lookup(op, spec.RoleColumn)
	if err != nil {
		return table.Invalid(op, StageRole, spec.RoleColumn, "role column not found in pivot table")
	}
	for _, r := range pivot.Records() {
		if s, ok := roleCol.Of(r).Str(); ok && s == spec.Role {
			return nil
		}
	}
	return table.Invalid(op, StageRole, spec.Role, `role must be "any" or a value of column `+spec.RoleColumn)
}

func validateKeys(pivot, entities, facts *table.Table, spec Spec) error {
	checks := []struct {
		t      *table.Table
		col    string
		source string
	}{
		{pivot, spec.PivotEntityKey, "pivot"},
		{pivot, spec.PivotFactKey, "pivot"},
		{entities, spec.EntityKey, "entity"},
		{facts, spec.FactKey, "fact"},
	}
	for _, c := range checks {
		if c.col == "" || !c.t.Has(c.col) {
			return table.Invalid(op, StageKeys, c.col, "key column not found in "+c.source+" table")
		}
	}
	return nil
}
