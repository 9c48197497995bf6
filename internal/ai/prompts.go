package ai

import (
	"fmt"
	"strings"
)

// IncorrectItem is one wrongly answered question sent for remediation.
type IncorrectItem struct {
	Question      string
	CorrectAnswer string
	UserResponse  string
}

const quizPromptTemplate = `
    Generate %d quiz questions with answers for %s at grade %s level with %s difficulty.
    Follow this specific format:
    1. [Question]
    A) [Option A]
    B) [Option B]
    C) [Option C]
    D) [Option D]
    **Answer:** [Correct Answer in format: Letter) Answer]

    Example:
    1. What is the sum of 2 + 1?
    A) 1
    B) 2
    C) 3
    D) 4
    **Answer:** C) 3

    Please provide the questions exactly in this format. do exactly as i say don't differ from it
    `

// QuizPrompt asks for totalQuestions questions in the numbered layout the
// quiz parser understands.
func QuizPrompt(grade, subject string, totalQuestions int, difficulty string) string {
	return fmt.Sprintf(quizPromptTemplate, totalQuestions, subject, grade, difficulty)
}

// HintPrompt asks for a short hint that does not reveal the answer.
func HintPrompt(question string) string {
	return "Provide a hint for this quiz question:\n[Question: \"" + question + "\"]\n" +
		"The hint should not give away the correct answer, but guide the user toward understanding the concept. and make the hint as small as possible."
}

// SuggestionPrompt enumerates every incorrect answer and asks for 2 to 3
// improvement suggestions per item.
func SuggestionPrompt(items []IncorrectItem) string {
	blocks := make([]string, 0, len(items))
	for _, it := range items {
		blocks = append(blocks, fmt.Sprintf("Question: %s\nCorrect Answer: %s\nUser's Response: %s",
			it.Question, it.CorrectAnswer, it.UserResponse))
	}
	return "The user answered some questions incorrectly. For each, provide a brief explanation of the correct answer " +
		"and offer exactly 2 to 3 specific suggestions to improve in the related topic. " +
		"Do not provide any additional information or explanations beyond the suggestions.\n\n" +
		"Questions and responses:\n\n" +
		strings.Join(blocks, "\n\n") + "\n"
}
