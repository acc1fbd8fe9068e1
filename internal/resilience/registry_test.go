package resilience_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watertime/watertime/internal/resilience"
)

func TestRegistry(t *testing.T) {
	registry := resilience.NewRegistry()

	cfgB := fastConfig("b-upstream")
	cfgB.Registry = registry
	resilience.NewClient(cfgB)
	cfgA := fastConfig("a-upstream")
	cfgA.Registry = registry
	resilience.NewClient(cfgA)

	registry.RecordFailure("a-upstream", errors.New("boom"))
	registry.RecordSuccess("unknown")

	all := registry.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a-upstream", all[0].Name)
	assert.Equal(t, "boom", all[0].LastError)
	assert.True(t, all[0].Healthy())
	assert.False(t, all[0].Degraded())

	_, ok := registry.Health("unknown")
	assert.False(t, ok)
}
