package domain

import "testing"

func TestIssueStoryPoints(t *testing.T) {
	var unestimated Issue
	if unestimated.Estimated() {
		t.Fatal("issue without points should not be estimated")
	}
	if got := unestimated.StoryPoints(); got != 0 {
		t.Fatalf("StoryPoints() = %v, want 0", got)
	}

	points := 5.0
	estimated := Issue{Key: "CARE-1", Points: &points}
	if !estimated.Estimated() {
		t.Fatal("issue with points should be estimated")
	}
	if got := estimated.StoryPoints(); got != 5 {
		t.Fatalf("StoryPoints() = %v, want 5", got)
	}
}
