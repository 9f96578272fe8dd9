package coordination_test

import (
	"testing"

	"enginefleet/internal/coordination"

	"github.com/stretchr/testify/assert"
)

func TestStaticAlwaysLeads(t *testing.T) {
	var l coordination.Leader = coordination.Static{}
	assert.True(t, l.IsLeader())
	assert.NoError(t, l.Close())
}
