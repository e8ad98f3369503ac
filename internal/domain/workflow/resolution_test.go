package workflow

import (
	"testing"

	"github.com/signwerk/orderprep/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolutionFlow_Lifecycle(t *testing.T) {
	f, err := newResolutionFlow()
	require.NoError(t, err)
	defer f.stop()

	assert.Equal(t, ResolutionClosed, f.state())

	// Events the machine does not accept leave it where it is.
	f.submit()
	assert.Equal(t, ResolutionClosed, f.state())
	f.rejected()
	assert.Equal(t, ResolutionClosed, f.state())

	f.open([]ports.AmbiguousItem{{LineID: "l1", Suggested: "halo-lit"}})
	assert.Equal(t, ResolutionOpen, f.state())
	assert.Len(t, f.view().Items, 1)

	f.submit()
	assert.Equal(t, ResolutionResolving, f.state())

	// A rejected submission reopens with the items intact.
	f.rejected()
	assert.Equal(t, ResolutionOpen, f.state())
	assert.Len(t, f.view().Items, 1)

	f.submit()
	f.resolved()
	assert.Equal(t, ResolutionClosed, f.state())
	assert.Empty(t, f.view().Items)

	f.open([]ports.AmbiguousItem{{LineID: "l2"}})
	f.cancel()
	assert.Equal(t, ResolutionClosed, f.state())
	assert.Empty(t, f.view().Items)
}

func TestResolutionView_Open(t *testing.T) {
	assert.False(t, ResolutionView{}.Open(), "zero value must not count as open")
	assert.False(t, ResolutionView{State: ResolutionClosed}.Open())
	assert.True(t, ResolutionView{State: ResolutionOpen}.Open())
	assert.True(t, ResolutionView{State: ResolutionResolving}.Open())
}
