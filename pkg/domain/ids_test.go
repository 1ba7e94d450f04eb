package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obeli-sk/webui/pkg/domain"
)

func TestExecutionID_Parent(t *testing.T) {
	child := domain.ExecutionID{ID: "E_01.2.5"}

	parent, ok := child.Parent()
	require.True(t, ok)
	assert.Equal(t, "E_01.2", parent.ID)

	grandparent, ok := parent.Parent()
	require.True(t, ok)
	assert.Equal(t, "E_01", grandparent.ID)

	_, ok = grandparent.Parent()
	assert.False(t, ok, "top-level id has no parent")
}

func TestExecutionID_AsHierarchy(t *testing.T) {
	id := domain.ExecutionID{ID: "E_01.2.5"}

	parts := id.AsHierarchy()
	require.Len(t, parts, 3)
	assert.Equal(t, "E_01", parts[0].Segment)
	assert.Equal(t, "E_01", parts[0].ID.ID)
	assert.Equal(t, "2", parts[1].Segment)
	assert.Equal(t, "E_01.2", parts[1].ID.ID)
	assert.Equal(t, "5", parts[2].Segment)
	assert.Equal(t, "E_01.2.5", parts[2].ID.ID)
}

func TestExecutionID_AsHierarchyTopLevel(t *testing.T) {
	id := domain.ExecutionID{ID: "E_01"}

	parts := id.AsHierarchy()
	require.Len(t, parts, 1)
	assert.Equal(t, id, parts[0].ID)
}

func TestExecutionID_LastSegment(t *testing.T) {
	assert.Equal(t, "5", domain.ExecutionID{ID: "E_01.2.5"}.LastSegment())
	assert.Equal(t, "E_01", domain.ExecutionID{ID: "E_01"}.LastSegment())
}

func TestExecutionID_JSONRoundTrip(t *testing.T) {
	id := domain.ExecutionID{ID: "E_01.2"}

	data, err := id.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"E_01.2"`, string(data))

	var decoded domain.ExecutionID
	require.NoError(t, decoded.UnmarshalJSON(data))
	assert.Equal(t, id, decoded)
}

func TestJoinSetId_String(t *testing.T) {
	assert.Equal(t, "o:", domain.JoinSetId{Kind: domain.JoinSetKindOneOff}.String())
	assert.Equal(t, "n:http", domain.JoinSetId{Kind: domain.JoinSetKindNamed, Name: "http"}.String())
	assert.Equal(t, "g:fetch", domain.JoinSetId{Kind: domain.JoinSetKindGenerated, Name: "fetch"}.String())
}

func TestDelayID_String(t *testing.T) {
	assert.Equal(t, "Delay_D_01", domain.DelayID{ID: "D_01"}.String())
}

func TestGenerateColor_Deterministic(t *testing.T) {
	a := domain.GenerateColor("E_01")
	b := domain.GenerateColor("E_01")
	assert.Equal(t, a, b)
	assert.Contains(t, a, "hsl(")

	assert.NotEqual(t, a, domain.GenerateColor("E_02"))
}

func TestGenerateColorHex_Format(t *testing.T) {
	hex := domain.GenerateColorHex("E_01")
	assert.Regexp(t, `^#[0-9a-f]{6}$`, hex)
	assert.Equal(t, hex, domain.GenerateColorHex("E_01"))
}
