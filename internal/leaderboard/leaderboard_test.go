package leaderboard

import (
	"testing"

	"examprep-contest-core/internal/queue"
)

func TestSubmittedQuestionIDs(t *testing.T) {
	batch := queue.SubmissionBatch{
		Submissions: []queue.SubmissionItem{
			{QuestionID: "q1"},
			{QuestionID: "q2"},
		},
	}
	ids := submittedQuestionIDs(batch)
	if len(ids) != 2 || ids[0] != "q1" || ids[1] != "q2" {
		t.Errorf("got %v, want [q1 q2]", ids)
	}
}

func TestSubmittedQuestionIDsEmptyBatch(t *testing.T) {
	ids := submittedQuestionIDs(queue.SubmissionBatch{})
	if len(ids) != 0 {
		t.Errorf("got %v, want empty slice", ids)
	}
}

func TestComputeAccuracyAllCorrect(t *testing.T) {
	got := computeAccuracy(2, 2)
	if got != 100.0 {
		t.Errorf("got %v, want 100.0", got)
	}
}

func TestComputeAccuracyPartial(t *testing.T) {
	got := computeAccuracy(1, 4)
	if got != 25.0 {
		t.Errorf("got %v, want 25.0", got)
	}
}

func TestComputeAccuracyZeroAttempted(t *testing.T) {
	got := computeAccuracy(0, 0)
	if got != 0.0 {
		t.Errorf("got %v, want 0.0", got)
	}
}
