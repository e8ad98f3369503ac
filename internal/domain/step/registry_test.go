package step

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefinitionsFor_StandardPipeline(t *testing.T) {
	defs := DefinitionsFor(TypeStandard)
	require.Len(t, defs, 6)

	ids := make([]ID, 0, len(defs))
	for _, d := range defs {
		ids = append(ids, d.ID())
	}
	assert.Equal(t, []ID{IDValidate, IDEstimate, IDDocuments, IDAccountingDocument, IDTasks, IDFiling}, ids)

	// Order positions are contiguous and match declaration order.
	for i, d := range defs {
		assert.Equal(t, i+1, d.Order())
	}
}

func TestDefinitionsFor_DefaultLinearChain(t *testing.T) {
	defs := DefinitionsFor(TypeStandard)
	byID := make(map[ID]Definition)
	for _, d := range defs {
		byID[d.ID()] = d
	}

	assert.Empty(t, byID[IDValidate].DependsOn())
	assert.Equal(t, []ID{IDValidate}, byID[IDEstimate].DependsOn())
	assert.Equal(t, []ID{IDEstimate}, byID[IDDocuments].DependsOn())
	assert.Equal(t, []ID{IDDocuments}, byID[IDAccountingDocument].DependsOn())
	assert.Equal(t, []ID{IDAccountingDocument}, byID[IDTasks].DependsOn())
}

func TestDefinitionsFor_FilingNeedsBothDocumentArtifacts(t *testing.T) {
	defs := DefinitionsFor(TypeStandard)
	filing := defs[len(defs)-1]

	require.Equal(t, IDFiling, filing.ID())
	assert.Equal(t, []ID{IDDocuments, IDAccountingDocument}, filing.DependsOn())
}

func TestDefinitionsFor_StaleCapability(t *testing.T) {
	for _, d := range DefinitionsFor(TypeStandard) {
		if d.Kind() == KindValidation {
			assert.False(t, d.StaleCapable(), "validation must not track staleness")
		} else {
			assert.True(t, d.StaleCapable(), "%s should track staleness", d.ID())
		}
	}
}

func TestDefinitionsFor_OnlyEstimateIsSkippable(t *testing.T) {
	for _, d := range DefinitionsFor(TypeStandard) {
		assert.Equal(t, d.ID() == IDEstimate, d.Skippable(), "skippable mismatch for %s", d.ID())
	}
}

func TestDefinition_DependsOnReturnsCopy(t *testing.T) {
	def := NewDefinition(IDFiling, 6, KindFileFiling, []ID{IDDocuments, IDAccountingDocument}, false)

	deps := def.DependsOn()
	deps[0] = "tampered"

	assert.Equal(t, []ID{IDDocuments, IDAccountingDocument}, def.DependsOn())
}

func TestDefinitionsFor_UnknownTypeFallsBackToStandard(t *testing.T) {
	assert.Equal(t, DefinitionsFor(TypeStandard), DefinitionsFor(WorkflowType("unknown")))
}
