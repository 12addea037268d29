package querycore

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	gocache_store "github.com/eko/gocache/store/go_cache/v4"
	gocachelib "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// docTypeConstraint mirrors the source's Constraint<ObjectTypeName>: either
// a concrete result document type, or "insufficient context to know".
type docTypeConstraint struct {
	insufficientContext bool
	typeName            string
}

// PipelineTypes is the result of a completed native-query type inference
// run (§4.7's into_types output).
type PipelineTypes struct {
	ResultDocumentType string
	ObjectTypes        map[string]ObjectType
	Parameters         map[string]Type
	Warnings           []error
}

// PipelineTypeContext accumulates type information while a native-query
// aggregation pipeline is analyzed stage by stage (§4.7).
type PipelineTypeContext struct {
	schema       *Schema
	typeNameRoot string

	nextVarID uint32

	inputDocType *docTypeConstraint
	objectTypes  map[string]ObjectTypeConstraint
	localNames   map[string]bool

	variables           map[TypeVariable]constraintSet
	parameterVariables  map[string]TypeVariable
	parameterOrder      []string

	warnings []error
	logger   *zap.SugaredLogger

	suffixCache *cache.Cache[int]
}

// NewPipelineTypeContext starts inference for one native-query pipeline.
// inputCollectionDocType is the source collection's committed document
// type, if the pipeline reads from a collection rather than `$documents`.
func NewPipelineTypeContext(schema *Schema, inputCollectionDocType string, hasInput bool, typeNameRoot string, logger *zap.SugaredLogger) *PipelineTypeContext {
	var input *docTypeConstraint
	if hasInput {
		input = &docTypeConstraint{typeName: inputCollectionDocType}
	}
	gocacheClient := gocachelib.New(5*time.Minute, 10*time.Minute)
	return &PipelineTypeContext{
		schema:             schema,
		typeNameRoot:       typeNameRoot,
		inputDocType:       input,
		objectTypes:        map[string]ObjectTypeConstraint{},
		localNames:         map[string]bool{},
		variables:          map[TypeVariable]constraintSet{},
		parameterVariables: map[string]TypeVariable{},
		logger:             logger,
		suffixCache:        cache.New[int](gocache_store.NewGoCache(gocacheClient)),
	}
}

// FreshVariable mints a new, as-yet-unconstrained type variable.
func (c *PipelineTypeContext) FreshVariable(variance Variance) TypeVariable {
	v := TypeVariable{ID: c.nextVarID, Variance: variance}
	c.nextVarID++
	c.variables[v] = constraintSet{}
	return v
}

// AddConstraint records one more piece of evidence about v.
func (c *PipelineTypeContext) AddConstraint(v TypeVariable, tc TypeConstraint) {
	set, ok := c.variables[v]
	if !ok {
		set = constraintSet{}
		c.variables[v] = set
	}
	set.add(tc)
}

// InsertObjectType registers an intermediate object-type constraint
// discovered while inferring a stage's output shape.
func (c *PipelineTypeContext) InsertObjectType(name string, otc ObjectTypeConstraint) {
	c.objectTypes[name] = otc
}

var trailingSuffix = regexp.MustCompile(`^(.*)_([0-9]+)$`)

// UniqueTypeName returns a name distinct from every type already committed
// in the enclosing schema or minted earlier in this context (§4.7). A
// colliding name's pre-existing numeric suffix is incremented rather than
// having a new one appended, so `foo_2` collides into `foo_3`.
func (c *PipelineTypeContext) UniqueTypeName(desired string) string {
	ctx := context.Background()
	base, startSuffix := desired, 0
	if m := trailingSuffix.FindStringSubmatch(desired); m != nil {
		base = m[1]
		fmt.Sscanf(m[2], "%d", &startSuffix)
	}

	next := startSuffix
	if cached, err := c.suffixCache.Get(ctx, base); err == nil {
		if cached > next {
			next = cached
		}
	}

	candidate := desired
	for c.nameTaken(candidate) {
		next++
		candidate = fmt.Sprintf("%s_%d", base, next)
	}
	c.localNames[candidate] = true
	_ = c.suffixCache.Set(ctx, base, next)
	return candidate
}

func (c *PipelineTypeContext) nameTaken(name string) bool {
	if c.localNames[name] {
		return true
	}
	if _, ok := c.objectTypes[name]; ok {
		return true
	}
	if c.schema != nil {
		if _, ok := c.schema.ObjectTypes[name]; ok {
			return true
		}
	}
	return false
}

// RegisterParameter merges constraints observed for a native-query input
// parameter, minting its type variable on first use.
func (c *PipelineTypeContext) RegisterParameter(name string, constraints ...TypeConstraint) TypeVariable {
	v, ok := c.parameterVariables[name]
	if !ok {
		v = c.FreshVariable(Covariant)
		c.parameterVariables[name] = v
		c.parameterOrder = append(c.parameterOrder, name)
	}
	for _, tc := range constraints {
		c.AddConstraint(v, tc)
	}
	return v
}

// SetStageDocType commits the output document type for the stage just
// processed, replacing the context-local object-type map with the one that
// produced it.
func (c *PipelineTypeContext) SetStageDocType(typeName string, objectTypes map[string]ObjectTypeConstraint) {
	c.inputDocType = &docTypeConstraint{typeName: typeName}
	c.objectTypes = objectTypes
}

// UnknownStageDocType records that a stage's output type could not be
// determined, carrying warning forward rather than aborting inference.
func (c *PipelineTypeContext) UnknownStageDocType(warning error) {
	c.inputDocType = &docTypeConstraint{insufficientContext: true}
	c.objectTypes = map[string]ObjectTypeConstraint{}
	c.warnings = append(c.warnings, warning)
	if c.logger != nil {
		c.logger.Warnw("stage produced an indeterminate document type", "error", warning)
	}
}

func (c *PipelineTypeContext) Warnings() []error { return c.warnings }

// CurrentDocTypeName returns the name of the input document type for the
// stage about to be processed, and false if inference has already given up
// on this pipeline (insufficientContext) or hasn't started.
func (c *PipelineTypeContext) CurrentDocTypeName() (string, bool) {
	if c.inputDocType == nil || c.inputDocType.insufficientContext {
		return "", false
	}
	return c.inputDocType.typeName, true
}

// CurrentFields returns the field constraints of the current input document
// type: the context-local constraint if this type was produced by an
// earlier stage, otherwise the committed schema's concrete fields lifted
// into the constraint language.
func (c *PipelineTypeContext) CurrentFields() ObjectTypeConstraint {
	name, ok := c.CurrentDocTypeName()
	if !ok {
		return ObjectTypeConstraint{}
	}
	if otc, ok := c.objectTypes[name]; ok {
		return otc
	}
	if c.schema != nil {
		if ot, ok := c.schema.ObjectTypes[name]; ok {
			return objectTypeConstraintFromSchema(ot)
		}
	}
	return ObjectTypeConstraint{}
}

func objectTypeConstraintFromSchema(ot ObjectType) ObjectTypeConstraint {
	fields := make(map[string]TypeConstraint, len(ot.Fields))
	for _, f := range ot.Fields {
		fields[f.Name] = constraintFromType(f.Type)
	}
	return ObjectTypeConstraint{Fields: fields}
}

// IntoTypes finalizes inference: it runs the solver over every accumulated
// variable and object-type constraint, then reports the pipeline's result
// document type, its object types, and the inferred type of each
// parameter.
func (c *PipelineTypeContext) IntoTypes() (PipelineTypes, error) {
	if c.inputDocType == nil {
		return PipelineTypes{}, ErrIncompletePipeline
	}
	if c.inputDocType.insufficientContext {
		return PipelineTypes{}, &NotImplementedError{Feature: "inferring a result document type for this pipeline shape"}
	}

	required := make([]TypeVariable, 0, len(c.parameterVariables))
	for _, name := range c.parameterOrder {
		required = append(required, c.parameterVariables[name])
	}

	result, err := Solve(c.objectTypes, c.variables, required)
	if err != nil {
		if failed, ok := err.(*FailedToUnifyError); ok {
			return PipelineTypes{}, &UnableToInferTypesError{ProblemParameters: c.parameterNames(failed.UnsolvedVariables)}
		}
		return PipelineTypes{}, err
	}

	params := make(map[string]Type, len(c.parameterVariables))
	for name, v := range c.parameterVariables {
		if t, ok := result.Solutions[v]; ok {
			params[name] = t
		} else {
			params[name] = ExtendedJSON()
		}
	}

	return PipelineTypes{
		ResultDocumentType: c.inputDocType.typeName,
		ObjectTypes:        result.ObjectTypes,
		Parameters:         params,
		Warnings:           c.warnings,
	}, nil
}

func (c *PipelineTypeContext) parameterNames(vars []TypeVariable) []string {
	unsolved := make(map[TypeVariable]bool, len(vars))
	for _, v := range vars {
		unsolved[v] = true
	}
	var names []string
	for _, name := range c.parameterOrder {
		if unsolved[c.parameterVariables[name]] {
			names = append(names, name)
		}
	}
	return names
}
