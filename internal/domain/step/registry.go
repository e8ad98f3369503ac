package step

// WorkflowType selects a pipeline layout from the registry.
type WorkflowType string

// TypeStandard is the standard order-preparation pipeline.
const TypeStandard WorkflowType = "standard"

// DefinitionsFor returns the canonical ordered step definitions for a
// workflow type. Unknown types fall back to the standard pipeline; the
// registry is pure and total.
func DefinitionsFor(t WorkflowType) []Definition {
	switch t {
	case TypeStandard:
		return standardPipeline()
	default:
		return standardPipeline()
	}
}

// standardPipeline builds the six-step preparation chain. Dependencies
// default to the immediately preceding step; filing overrides the chain
// because it needs both document artifacts but not the task set.
func standardPipeline() []Definition {
	defs := []Definition{
		NewDefinition(IDValidate, 1, KindValidation, nil, false),
		NewDefinition(IDEstimate, 2, KindAccountingEstimate, nil, true),
		NewDefinition(IDDocuments, 3, KindDocumentSet, nil, false),
		NewDefinition(IDAccountingDocument, 4, KindDocumentSet, nil, false),
		NewDefinition(IDTasks, 5, KindProductionTasks, nil, false),
		NewDefinition(IDFiling, 6, KindFileFiling, []ID{IDDocuments, IDAccountingDocument}, false),
	}
	return chainDefaults(defs)
}

// chainDefaults fills in the default linear dependency for every
// definition that does not declare its own.
func chainDefaults(defs []Definition) []Definition {
	out := make([]Definition, 0, len(defs))
	var prev *Definition
	for i := range defs {
		d := defs[i]
		if len(d.dependsOn) == 0 && prev != nil {
			d.dependsOn = []ID{prev.id}
		}
		out = append(out, d)
		prev = &defs[i]
	}
	return out
}
