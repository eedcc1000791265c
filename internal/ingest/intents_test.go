package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollapseKeepsLastIntentPerColumn(t *testing.T) {
	updates := []FieldUpdate{
		Set("mode", "demo"),
		Set("voltage", 3.9),
		Set("mode", "transit"),
		Add("total_distance", 12.5),
	}

	out := Collapse(updates)
	assert.Len(t, out, 3)

	// First-appearance order is preserved, later values win.
	assert.Equal(t, "mode", out[0].Column)
	assert.Equal(t, "transit", out[0].Value)
	assert.Equal(t, "voltage", out[1].Column)
	assert.Equal(t, "total_distance", out[2].Column)
	assert.Equal(t, OpAdd, out[2].Op)
}

func TestCollapseEmpty(t *testing.T) {
	assert.Empty(t, Collapse(nil))
}

func TestHasColumn(t *testing.T) {
	updates := []FieldUpdate{Set("voltage", 3.9)}
	assert.True(t, hasColumn(updates, "voltage"))
	assert.False(t, hasColumn(updates, "mode"))
}
