package ai

import (
	"fmt"
	"strings"
)

type Intent int

const (
	Complete Intent = iota
	Explain
	Optimize
	Debug
)

func ParseIntent(s string) (Intent, error) {
	switch s {
	case "complete", "":
		return Complete, nil
	case "explain":
		return Explain, nil
	case "optimize":
		return Optimize, nil
	case "debug":
		return Debug, nil
	default:
		return -1, ErrIntentNotSupported
	}
}

func (i Intent) String() string {
	switch i {
	case Complete:
		return "complete"
	case Explain:
		return "explain"
	case Optimize:
		return "optimize"
	case Debug:
		return "debug"
	default:
		return ""
	}
}

type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

func (i Intent) GenerationConfig() GenerationConfig {
	switch i {
	case Explain:
		return GenerationConfig{0.5, 300}
	case Optimize:
		return GenerationConfig{0.6, 400}
	case Debug:
		return GenerationConfig{0.5, 500}
	default:
		return GenerationConfig{0.7, 150}
	}
}

type Request struct {
	Intent       Intent `json:"intent"`
	Code         string `json:"code"`
	Language     string `json:"language"`
	Line         int    `json:"line"`
	Context      string `json:"context,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

func (req Request) Prompt() string {
	lang := req.Language
	fence := "```" + lang + "\n" + req.Code + "\n```"

	switch req.Intent {
	case Explain:
		return fmt.Sprintf("Explain this %s code briefly in 2-3 sentences:\n%s\n\nBe concise and focus on what the code does.",
			lang, fence)

	case Optimize:
		return fmt.Sprintf("Suggest optimizations for this %s code. Focus on performance and readability:\n%s\n\nProvide 2-3 specific suggestions with brief explanations.",
			lang, fence)

	case Debug:
		errorContext := ""
		if req.ErrorMessage != "" {
			errorContext = "Error: " + req.ErrorMessage + "\n"
		}

		return fmt.Sprintf("Help debug this %s code:\n%s\n%s\n\nIdentify potential issues and suggest fixes.",
			lang, errorContext, fence)

	default:
		context := ""
		if req.Context != "" {
			context = "Context: " + req.Context
		}

		return fmt.Sprintf("You are an expert %s programmer.\n\nCurrent code (line %d):\n%s\n\n%s\n\nProvide a brief, single-line code suggestion to complete or improve the code at line %d. Only return the suggestion code without explanations or markdown formatting.",
			lang, req.Line, fence, context, req.Line)
	}
}

const (
	MinInputLength      = 3
	MaxSuggestionLength = 500
	WindowRadius        = 5
)

// Window returns the lines within radius of the 1-based line.
func Window(code string, line int, radius int) string {
	lines := strings.Split(code, "\n")

	start := line - 1 - radius
	if start < 0 {
		start = 0
	}

	end := line + radius
	if end > len(lines) {
		end = len(lines)
	}

	if start >= end {
		return ""
	}

	return strings.Join(lines[start:end], "\n")
}

// Worth reports whether the input carries enough text to ask for a suggestion.
func Worth(code string) bool {
	return len(strings.TrimSpace(code)) >= MinInputLength
}

// Acceptable reports whether a suggestion may be shown to the user.
func Acceptable(suggestion string) bool {
	n := len(suggestion)
	return n > 0 && n < MaxSuggestionLength
}
