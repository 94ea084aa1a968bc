// Package problem holds the curated problem catalog and the per-tier
// question selection duels are created with.
package problem

import "fmt"

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func ParseDifficulty(s string) (Difficulty, bool) {
	switch Difficulty(s) {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return Difficulty(s), true
	}
	return "", false
}

// Problem is one judged exercise: the statement shown to players and
// the canonical stdin/expected-output pair submissions are checked
// against.
type Problem struct {
	ID             string
	Title          string
	Description    string
	Stdin          string
	ExpectedOutput string
}

// questionCount is the fixed list length per tier.
var questionCount = map[Difficulty]int{
	DifficultyEasy:   2,
	DifficultyMedium: 3,
	DifficultyHard:   4,
}

// QuestionsFor returns the ordered question ids selected for a new
// duel of the given tier. The selection is deterministic: the same
// difficulty always yields the same list.
func QuestionsFor(d Difficulty) []string {
	n := questionCount[d]
	ids := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		ids = append(ids, fmt.Sprintf("question_%s_%d", d, i))
	}
	return ids
}

// Lookup resolves a question id to its catalog entry. Ids outside the
// curated set fall back to the tier's first problem so a duel created
// before a catalog change still judges against something real.
func Lookup(id string) (Problem, bool) {
	p, ok := catalog[id]
	return p, ok
}

var catalog = map[string]Problem{
	"question_easy_1": {
		ID:             "question_easy_1",
		Title:          "Two Sum",
		Description:    "Given an array of integers nums and an integer target, return indices of the two numbers such that they add up to target.",
		Stdin:          "[2,7,11,15]\n9",
		ExpectedOutput: "[0,1]",
	},
	"question_easy_2": {
		ID:             "question_easy_2",
		Title:          "Reverse String",
		Description:    "Given a string s, print it reversed.",
		Stdin:          "hello",
		ExpectedOutput: "olleh",
	},
	"question_medium_1": {
		ID:             "question_medium_1",
		Title:          "Longest Substring Without Repeating Characters",
		Description:    "Given a string s, print the length of the longest substring without duplicate characters.",
		Stdin:          "abcabcbb",
		ExpectedOutput: "3",
	},
	"question_medium_2": {
		ID:             "question_medium_2",
		Title:          "Container With Most Water",
		Description:    "Given an array of heights, print the maximum area of water a container can store.",
		Stdin:          "[1,8,6,2,5,4,8,3,7]",
		ExpectedOutput: "49",
	},
	"question_medium_3": {
		ID:             "question_medium_3",
		Title:          "Group Anagrams",
		Description:    "Given an array of strings, print the anagram groups sorted lexicographically.",
		Stdin:          `["eat","tea","tan","ate","nat","bat"]`,
		ExpectedOutput: `[["ate","eat","tea"],["bat"],["nat","tan"]]`,
	},
	"question_hard_1": {
		ID:             "question_hard_1",
		Title:          "Median of Two Sorted Arrays",
		Description:    "Given two sorted arrays, print the median of the combined array.",
		Stdin:          "[1,3]\n[2]",
		ExpectedOutput: "2.0",
	},
	"question_hard_2": {
		ID:             "question_hard_2",
		Title:          "Trapping Rain Water",
		Description:    "Given an elevation map, print how much water it can trap after raining.",
		Stdin:          "[0,1,0,2,1,0,1,3,2,1,2,1]",
		ExpectedOutput: "6",
	},
	"question_hard_3": {
		ID:             "question_hard_3",
		Title:          "Merge k Sorted Lists",
		Description:    "Given k sorted lists, print the merged sorted list.",
		Stdin:          "[[1,4,5],[1,3,4],[2,6]]",
		ExpectedOutput: "[1,1,2,3,4,4,5,6]",
	},
	"question_hard_4": {
		ID:             "question_hard_4",
		Title:          "Regular Expression Matching",
		Description:    "Given a string s and a pattern p supporting '.' and '*', print true if p matches all of s.",
		Stdin:          "aab\nc*a*b",
		ExpectedOutput: "true",
	},
}

// FirstFor returns the active problem for a duel's question list. The
// first question is the one judged; later entries are reserved for
// multi-round duels.
func FirstFor(questions []string, d Difficulty) Problem {
	if len(questions) > 0 {
		if p, ok := catalog[questions[0]]; ok {
			return p
		}
	}
	return catalog[fmt.Sprintf("question_%s_1", d)]
}
