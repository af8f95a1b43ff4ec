// Package evaluator is the pure scoring kernel of the contest pipeline: a
// deterministic function from (question, answer) to (is_correct, marks).
// It performs no I/O, holds no state across calls, and allocates only the
// small index sets each question shape needs.
package evaluator

import (
	"log"
	"sort"
	"strconv"

	"examprep-contest-core/internal/question"
)

// Evaluate grades a single answer against a question, switching on the
// question's type to one unexported evaluator per shape; each reads only
// the optional answer fields its shape uses. Unknown types score
// (false, 0).
func Evaluate(q question.Question, userAnswer []string) (isCorrect bool, marks int) {
	switch q.Type {
	case question.TypeInteger:
		return evaluateInteger(q, userAnswer)
	case question.TypeMCQ:
		return evaluateMCQ(q, userAnswer)
	case question.TypeSCQ:
		return evaluateSCQ(q, userAnswer)
	case question.TypeMatch:
		return evaluateMatch(q, userAnswer)
	default:
		return false, 0
	}
}

func evaluateInteger(q question.Question, userAnswer []string) (bool, int) {
	if len(userAnswer) != 1 {
		return false, -1
	}
	parsed, err := strconv.Atoi(userAnswer[0])
	if err != nil {
		return false, -1
	}
	if q.IntegerAnswer == nil || parsed != *q.IntegerAnswer {
		return false, -1
	}
	return true, q.Marks
}

func evaluateMCQ(q question.Question, userAnswer []string) (bool, int) {
	if len(q.MCQCorrectOption) == 0 {
		return false, 0
	}

	correct := make(map[int]struct{}, len(q.MCQCorrectOption))
	for _, idx := range q.MCQCorrectOption {
		correct[idx] = struct{}{}
	}

	selected := make(map[int]struct{}, len(userAnswer))
	for _, ans := range userAnswer {
		idx := question.OptionIndex(q.MCQOptions, ans)
		if idx < 0 {
			log.Printf("evaluator: mcq option text not found among options: %q", ans)
			continue
		}
		selected[idx] = struct{}{}
	}

	wrongPicked := 0
	correctPicked := 0
	for idx := range selected {
		if _, ok := correct[idx]; ok {
			correctPicked++
		} else {
			wrongPicked++
		}
	}

	if wrongPicked > 0 {
		return false, -2
	}
	if correctPicked == len(correct) {
		return true, q.Marks
	}
	return false, correctPicked
}

func evaluateSCQ(q question.Question, userAnswer []string) (bool, int) {
	if len(userAnswer) != 1 || q.SCQCorrectOptions == nil {
		return false, -1
	}
	idx := question.OptionIndex(q.SCQOptions, userAnswer[0])
	if idx < 0 || idx != *q.SCQCorrectOptions {
		return false, -1
	}
	return true, q.Marks
}

func evaluateMatch(q question.Question, userAnswer []string) (bool, int) {
	if len(q.MCQCorrectOption) == 0 {
		return false, -1
	}

	userIndices := make([]int, 0, len(userAnswer))
	for _, ans := range userAnswer {
		idx := question.OptionIndex(q.MCQOptions, ans)
		if idx < 0 {
			log.Printf("evaluator: match option text not found among options: %q", ans)
			continue
		}
		userIndices = append(userIndices, idx)
	}

	correctIndices := append([]int(nil), q.MCQCorrectOption...)
	sort.Ints(userIndices)
	sort.Ints(correctIndices)

	if len(userIndices) != len(correctIndices) {
		return false, -1
	}
	for i := range userIndices {
		if userIndices[i] != correctIndices[i] {
			return false, -1
		}
	}
	return true, q.Marks
}
