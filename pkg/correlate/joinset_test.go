package correlate_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obeli-sk/webui/pkg/correlate"
	"github.com/obeli-sk/webui/pkg/domain"
)

var (
	jsA = domain.JoinSetId{Kind: domain.JoinSetKindGenerated, Name: "a"}
	jsB = domain.JoinSetId{Kind: domain.JoinSetKindNamed, Name: "b"}
)

func joinNext(version domain.Version, joinSet domain.JoinSetId) domain.ExecutionEvent {
	return domain.ExecutionEvent{Version: version, Variant: domain.JoinNext{JoinSet: joinSet}}
}

func childRequest(version domain.Version, joinSet domain.JoinSetId, child string) domain.ExecutionEvent {
	return domain.ExecutionEvent{Version: version, Variant: domain.JoinSetRequest{
		JoinSet: joinSet,
		Request: domain.ChildExecutionRequest{ChildID: domain.ExecutionID{ID: child}},
	}}
}

func childFinished(joinSet domain.JoinSetId, child string) domain.JoinSetResponse {
	return domain.JoinSetResponse{JoinSet: joinSet, Variant: domain.ChildExecutionFinished{
		ChildID: domain.ExecutionID{ID: child},
		Result:  domain.ResultDetail{OK: true},
	}}
}

func TestJoinNextToResponse_FIFOPerJoinSet(t *testing.T) {
	events := []domain.ExecutionEvent{
		joinNext(3, jsA),
		joinNext(5, jsB),
		joinNext(7, jsA),
	}
	responses := map[domain.JoinSetId][]domain.JoinSetResponse{
		jsA: {childFinished(jsA, "E.1"), childFinished(jsA, "E.2")},
		jsB: {childFinished(jsB, "E.3")},
	}

	result := correlate.JoinNextToResponse(events, responses)
	require.Len(t, result, 3)
	assert.Equal(t, "E.1", result[3].Variant.(domain.ChildExecutionFinished).ChildID.ID)
	assert.Equal(t, "E.3", result[5].Variant.(domain.ChildExecutionFinished).ChildID.ID)
	assert.Equal(t, "E.2", result[7].Variant.(domain.ChildExecutionFinished).ChildID.ID)
}

func TestJoinNextToResponse_JoinBeyondResponses(t *testing.T) {
	events := []domain.ExecutionEvent{
		joinNext(3, jsA),
		joinNext(4, jsA),
	}
	responses := map[domain.JoinSetId][]domain.JoinSetResponse{
		jsA: {childFinished(jsA, "E.1")},
	}

	result := correlate.JoinNextToResponse(events, responses)
	require.Len(t, result, 1)
	_, blocked := result[4]
	assert.False(t, blocked, "second join has no response yet")
}

func TestJoinNextToResponse_CountsJoinNextTry(t *testing.T) {
	events := []domain.ExecutionEvent{
		{Version: 2, Variant: domain.JoinNextTry{JoinSet: jsA}},
		joinNext(4, jsA),
	}
	responses := map[domain.JoinSetId][]domain.JoinSetResponse{
		jsA: {childFinished(jsA, "E.1"), childFinished(jsA, "E.2")},
	}

	result := correlate.JoinNextToResponse(events, responses)
	assert.Equal(t, "E.1", result[2].Variant.(domain.ChildExecutionFinished).ChildID.ID)
	assert.Equal(t, "E.2", result[4].Variant.(domain.ChildExecutionFinished).ChildID.ID)
}

func TestParentExecutionBounds_BothFound(t *testing.T) {
	events := []domain.ExecutionEvent{
		childRequest(5, jsA, "E.1"),
		childRequest(6, jsA, "E.2"),
		joinNext(9, jsA),
		joinNext(10, jsA),
	}
	responses := map[domain.JoinSetId][]domain.JoinSetResponse{
		jsA: {childFinished(jsA, "E.1"), childFinished(jsA, "E.2")},
	}

	start, end := correlate.ParentExecutionBounds(events, responses, domain.ExecutionID{ID: "E.1"})
	require.NotNil(t, start)
	require.NotNil(t, end)
	assert.Equal(t, domain.Version(5), *start)
	assert.Equal(t, domain.Version(9), *end)
}

func TestParentExecutionBounds_ResponseOrderDecidesEnd(t *testing.T) {
	// E.2 finished first, so the first JoinNext consumes E.2 and the second
	// one closes E.1.
	events := []domain.ExecutionEvent{
		childRequest(5, jsA, "E.1"),
		childRequest(6, jsA, "E.2"),
		joinNext(9, jsA),
		joinNext(10, jsA),
	}
	responses := map[domain.JoinSetId][]domain.JoinSetResponse{
		jsA: {childFinished(jsA, "E.2"), childFinished(jsA, "E.1")},
	}

	start, end := correlate.ParentExecutionBounds(events, responses, domain.ExecutionID{ID: "E.1"})
	require.NotNil(t, start)
	require.NotNil(t, end)
	assert.Equal(t, domain.Version(5), *start)
	assert.Equal(t, domain.Version(10), *end)
}

func TestParentExecutionBounds_ChildStillRunning(t *testing.T) {
	events := []domain.ExecutionEvent{
		childRequest(5, jsA, "E.1"),
		joinNext(9, jsA),
	}

	start, end := correlate.ParentExecutionBounds(events, nil, domain.ExecutionID{ID: "E.1"})
	require.NotNil(t, start)
	assert.Equal(t, domain.Version(5), *start)
	assert.Nil(t, end)
}

func TestParentExecutionBounds_UnknownChild(t *testing.T) {
	start, end := correlate.ParentExecutionBounds(nil, nil, domain.ExecutionID{ID: "E.9"})
	assert.Nil(t, start)
	assert.Nil(t, end)
}

func TestChildResults(t *testing.T) {
	finishedAt := time.Unix(100, 0)
	responses := map[domain.JoinSetId][]domain.JoinSetResponse{
		jsA: {
			{JoinSet: jsA, CreatedAt: finishedAt, Variant: domain.ChildExecutionFinished{
				ChildID: domain.ExecutionID{ID: "E.1"},
				Result:  domain.ResultDetail{OK: false, Detail: "boom"},
			}},
			{JoinSet: jsA, Variant: domain.DelayFinished{Delay: domain.DelayID{ID: "D1"}}},
		},
	}

	results := correlate.ChildResults(responses)
	require.Len(t, results, 1)
	got := results[domain.ExecutionID{ID: "E.1"}]
	assert.False(t, got.Result.OK)
	assert.Equal(t, "boom", got.Result.Detail)
	assert.Equal(t, finishedAt, got.FinishedAt)
}
