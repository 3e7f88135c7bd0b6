package dbengine

import (
	"github.com/govindnetworks/siodb/server/iomgr/dbengine/reg"
	"github.com/govindnetworks/siodb/server/iomgr/expr"
)

// ConstraintDefinition is a content-deduplicated (kind, expression) pair.
// Multiple constraints across tables share one definition when their kind
// and serialized expression are identical.
type ConstraintDefinition struct {
	database       *Database
	id             uint64
	constraintType reg.ConstraintType
	expression     expr.Expression
	serialized     []byte
	hash           uint64
}

// newConstraintDefinition allocates a fresh definition id in the requested
// partition and builds the definition object. Caller registers it.
func newConstraintDefinition(system bool, database *Database,
	constraintType reg.ConstraintType, expression expr.Expression) *ConstraintDefinition {
	serialized := expr.Serialize(expression)
	return &ConstraintDefinition{
		database:       database,
		id:             database.generateNextConstraintDefinitionID(system),
		constraintType: constraintType,
		expression:     expression,
		serialized:     serialized,
		hash:           reg.ComputeConstraintDefinitionHash(constraintType, serialized),
	}
}

// loadConstraintDefinition materializes a definition from its registry row.
func loadConstraintDefinition(database *Database, record reg.ConstraintDefinitionRecord) (*ConstraintDefinition, error) {
	expression, err := expr.Deserialize(record.Expression)
	if err != nil {
		return nil, err
	}
	return &ConstraintDefinition{
		database:       database,
		id:             record.ID,
		constraintType: record.Type,
		expression:     expression,
		serialized:     record.Expression,
		hash:           record.Hash,
	}, nil
}

// ID returns the definition id.
func (cd *ConstraintDefinition) ID() uint64 {
	return cd.id
}

// Type returns the constraint kind.
func (cd *ConstraintDefinition) Type() reg.ConstraintType {
	return cd.constraintType
}

// Expression returns the parsed constraint expression.
func (cd *ConstraintDefinition) Expression() expr.Expression {
	return cd.expression
}

// SerializedExpression returns the canonical expression bytes.
func (cd *ConstraintDefinition) SerializedExpression() []byte {
	return cd.serialized
}

// Hash returns the content hash over (kind, serialized expression).
func (cd *ConstraintDefinition) Hash() uint64 {
	return cd.hash
}

// IsSystem reports whether the definition lives in the system id partition.
func (cd *ConstraintDefinition) IsSystem() bool {
	return IsSystemObjectID(cd.id)
}

// Record returns the registry row of the definition.
func (cd *ConstraintDefinition) Record() reg.ConstraintDefinitionRecord {
	return reg.ConstraintDefinitionRecord{
		ID:         cd.id,
		Type:       cd.constraintType,
		Expression: cd.serialized,
		Hash:       cd.hash,
	}
}
