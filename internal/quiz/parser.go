package quiz

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	answerMarker    = "**Answer:**"
	optionPrefixLen = 3 // "A) "
	optionsPerBlock = 4
)

var questionSplit = regexp.MustCompile(`\n\d+\.\s+`)

// ParsedQuestion is one question extracted from model output, before ids
// are assigned.
type ParsedQuestion struct {
	Question      string
	Options       []string
	CorrectAnswer string
}

// ParseQuestions extracts questions from text laid out as
//
//	N. <question>
//	A) <opt>
//	B) <opt>
//	C) <opt>
//	D) <opt>
//	**Answer:** <Letter>) <text>
//
// Anything before the first "\nN. " marker is discarded. Each option line
// loses its first three bytes. Blocks that do not follow the layout are
// kept as-is: short blocks yield fewer options and a missing answer line
// yields an empty CorrectAnswer. Stored quizzes depend on this contract.
func ParseQuestions(raw string) ([]ParsedQuestion, error) {
	blocks := splitBlocks(raw)
	if len(blocks) == 0 {
		return nil, ErrNoQuestions
	}
	out := make([]ParsedQuestion, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, parseBlock(b))
	}
	return out, nil
}

// ParseQuestionsStrict is ParseQuestions with shape checks: every block must
// have four options and an answer letter between A and D. The first
// offending block is reported as a *MalformedBlockError.
func ParseQuestionsStrict(raw string) ([]ParsedQuestion, error) {
	blocks := splitBlocks(raw)
	if len(blocks) == 0 {
		return nil, ErrNoQuestions
	}
	out := make([]ParsedQuestion, 0, len(blocks))
	for i, b := range blocks {
		pq := parseBlock(b)
		if reason := checkShape(b, pq); reason != "" {
			return nil, &MalformedBlockError{Index: i, Reason: reason}
		}
		out = append(out, pq)
	}
	return out, nil
}

func splitBlocks(raw string) []string {
	parts := questionSplit.Split(raw, -1)
	if len(parts) < 2 {
		return nil
	}
	return parts[1:]
}

func parseBlock(block string) ParsedQuestion {
	lines := strings.Split(block, "\n")
	pq := ParsedQuestion{Question: strings.TrimSpace(lines[0])}

	end := 1 + optionsPerBlock
	if end > len(lines) {
		end = len(lines)
	}
	pq.Options = make([]string, 0, optionsPerBlock)
	for _, line := range lines[1:end] {
		if len(line) <= optionPrefixLen {
			pq.Options = append(pq.Options, "")
			continue
		}
		pq.Options = append(pq.Options, strings.TrimSpace(line[optionPrefixLen:]))
	}

	for _, line := range lines {
		if strings.HasPrefix(line, answerMarker) {
			pq.CorrectAnswer = answerLetter(line)
			break
		}
	}
	return pq
}

// answerLetter returns the first character after "**Answer:** ".
func answerLetter(line string) string {
	_, rest, ok := strings.Cut(line, answerMarker+" ")
	if !ok || rest == "" {
		return ""
	}
	_, size := utf8.DecodeRuneInString(rest)
	return strings.TrimSpace(rest[:size])
}

func checkShape(block string, pq ParsedQuestion) string {
	if pq.Question == "" {
		return "empty question text"
	}
	if len(pq.Options) != optionsPerBlock {
		return "expected 4 option lines"
	}
	lines := strings.Split(block, "\n")
	for i, o := range pq.Options {
		label := string(rune('A'+i)) + ")"
		if !strings.HasPrefix(strings.TrimSpace(lines[i+1]), label) {
			return "option line " + label + " missing"
		}
		if o == "" {
			return "empty option"
		}
	}
	if !strings.Contains(block, answerMarker) {
		return "missing answer line"
	}
	switch pq.CorrectAnswer {
	case "A", "B", "C", "D":
		return ""
	default:
		return "answer letter must be one of A-D"
	}
}
