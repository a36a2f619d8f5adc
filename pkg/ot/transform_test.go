package ot

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransformInsertInsert(t *testing.T) {
	cases := []struct {
		name     string
		in       SimpleOp
		applied  SimpleOp
		wantPos  int
	}{
		{"strictly before", SimpleOp{Pos: 0}, SimpleOp{Pos: 5, Text: "xx"}, 0},
		{"strictly after", SimpleOp{Pos: 5}, SimpleOp{Pos: 0, Text: "xx"}, 7},
		{"tie smaller user wins", SimpleOp{Pos: 0, UserID: "aaa"}, SimpleOp{Pos: 0, Text: "Hi", UserID: "bbb"}, 0},
		{"tie larger user shifts", SimpleOp{Pos: 0, UserID: "bbb"}, SimpleOp{Pos: 0, Text: "Hi", UserID: "aaa"}, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := transformInsertInsert(tc.in, tc.applied)
			require.Equal(t, tc.wantPos, got.Pos)
		})
	}
}

func TestTransformInsertDelete(t *testing.T) {
	cases := []struct {
		name    string
		in      SimpleOp
		applied SimpleOp
		wantPos int
	}{
		{"before deleted range", SimpleOp{Pos: 0}, SimpleOp{Pos: 1, Length: 3}, 0},
		{"after deleted range", SimpleOp{Pos: 5}, SimpleOp{Pos: 1, Length: 3}, 2},
		{"inside deleted range clamps to start", SimpleOp{Pos: 3}, SimpleOp{Pos: 1, Length: 3}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := transformInsertDelete(tc.in, tc.applied)
			require.Equal(t, tc.wantPos, got.Pos)
		})
	}
}

func TestTransformDeleteInsert(t *testing.T) {
	cases := []struct {
		name       string
		in         SimpleOp
		applied    SimpleOp
		wantPos    int
		wantLength int
	}{
		{"delete entirely before insert", SimpleOp{Pos: 0, Length: 2}, SimpleOp{Pos: 5, Text: "xx"}, 0, 2},
		{"delete entirely after insert", SimpleOp{Pos: 5, Length: 2}, SimpleOp{Pos: 1, Text: "xx"}, 7, 2},
		{"insert lands inside delete range widens it", SimpleOp{Pos: 0, Length: 3}, SimpleOp{Pos: 1, Text: "xx"}, 0, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := transformDeleteInsert(tc.in, tc.applied)
			require.Equal(t, tc.wantPos, got.Pos)
			require.Equal(t, tc.wantLength, got.Length)
		})
	}
}

func TestTransformDeleteDelete(t *testing.T) {
	cases := []struct {
		name       string
		in         SimpleOp
		applied    SimpleOp
		wantPos    int
		wantLength int
	}{
		{"non-overlap before", SimpleOp{Pos: 0, Length: 2}, SimpleOp{Pos: 5, Length: 2}, 0, 2},
		{"non-overlap after", SimpleOp{Pos: 5, Length: 2}, SimpleOp{Pos: 0, Length: 2}, 3, 2},
		{"full overlap", SimpleOp{Pos: 1, Length: 3}, SimpleOp{Pos: 0, Length: 6}, 0, 0},
		{"partial overlap from the right", SimpleOp{Pos: 2, Length: 4}, SimpleOp{Pos: 0, Length: 4}, 0, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := transformDeleteDelete(tc.in, tc.applied)
			require.Equal(t, tc.wantPos, got.Pos)
			require.Equal(t, tc.wantLength, got.Length)
		})
	}
}

// TestScenarioB is the spec §8 concurrent-insert-at-position-0 tie-break scenario.
func TestScenarioB(t *testing.T) {
	// Client A (user "aaa") wins the race and commits first.
	// Client B (user "bbb")'s op is transformed against A's committed op.
	incoming := Edit{Position: 0, InsertText: "Hi", BaseVersion: 0}
	missed := []AppliedOp{{Position: 0, InsertText: "Hi", UserID: "aaa"}}

	got := Transform(incoming, "bbb", missed)
	require.Equal(t, 2, got.Position)

	final := ApplyOperation("Hi", got.Position, got.DeleteLen, got.InsertText)
	require.Equal(t, "HiHi", final)
}

// TestScenarioC is the spec §8 insert-vs-delete-overlap scenario.
func TestScenarioC(t *testing.T) {
	content := "abcdef"
	content = ApplyOperation(content, 1, 3, "") // Op1: delete [1,4) -> "aef"
	require.Equal(t, "aef", content)

	incoming := Edit{Position: 3, InsertText: "X", BaseVersion: 0}
	missed := []AppliedOp{{Position: 1, DeleteLen: 3, UserID: "op1"}}

	got := Transform(incoming, "op2", missed)
	require.Equal(t, 1, got.Position)

	final := ApplyOperation(content, got.Position, got.DeleteLen, got.InsertText)
	require.Equal(t, "aXef", final)
}

// TestPairwiseSymmetry checks spec §8 invariant 3: applying a then
// transform(b,a) matches applying b then transform(a,b), for concurrent
// inserts at the same position with a deterministic tie-break.
func TestPairwiseSymmetry(t *testing.T) {
	base := "hello"
	a := AppliedOp{Position: 2, InsertText: "A", UserID: "alice"}
	b := AppliedOp{Position: 2, InsertText: "B", UserID: "bob"}

	aFirst := ApplyOperation(base, a.Position, a.DeleteLen, a.InsertText)
	bTransformed := Transform(Edit{Position: b.Position, InsertText: b.InsertText}, b.UserID, []AppliedOp{a})
	aFirst = ApplyOperation(aFirst, bTransformed.Position, bTransformed.DeleteLen, bTransformed.InsertText)

	bFirst := ApplyOperation(base, b.Position, b.DeleteLen, b.InsertText)
	aTransformed := Transform(Edit{Position: a.Position, InsertText: a.InsertText}, a.UserID, []AppliedOp{b})
	bFirst = ApplyOperation(bFirst, aTransformed.Position, aTransformed.DeleteLen, aTransformed.InsertText)

	require.Equal(t, aFirst, bFirst)
}

func TestApplyOperationClampsPosition(t *testing.T) {
	require.Equal(t, "helloX", ApplyOperation("hello", 999, 0, "X"))
	require.Equal(t, "X", ApplyOperation("hello", -3, 999, "X"))
	require.Equal(t, "", ApplyOperation("hello", 0, 999, ""))
}
