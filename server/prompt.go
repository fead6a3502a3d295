package server

import (
	"strings"

	"github.com/Laisky/errors/v2"
)

// Prompt is the structured polishing instruction sent to the backend.
// It renders in a fixed order so every backend sees the same layout.
type Prompt struct {
	Task        string   // Required: what the model should do
	Guidelines  []string // Rules the rewrite must follow
	Input       string   // Required: the text to polish
	OutputLabel string   // Heading the model completes after
}

// Default polishing instruction for customer support replies.
var (
	defaultTask       = "아래 문장을 자연스럽고 정확한 한국어로 교정해 주세요."
	defaultGuidelines = []string{
		"맞춤법, 띄어쓰기, 오타, 문법 오류를 수정해 주세요.",
		"어투는 공손하고 부드럽게 유지해 주세요.",
		"전문 CS 상담사 마인드로, 친절하고 신뢰감 있는 답변 스타일로 다듬어 주세요.",
	}
)

const (
	inputLabel  = "[원문]"
	outputLabel = "[교정된 문장]"
)

// PolishPrompt builds the default polishing prompt for text.
func PolishPrompt(text string) *Prompt {
	return &Prompt{
		Task:        defaultTask,
		Guidelines:  append([]string(nil), defaultGuidelines...),
		Input:       text,
		OutputLabel: outputLabel,
	}
}

// Render converts the prompt to the string sent to the backend.
func (p *Prompt) Render() string {
	var b strings.Builder

	b.WriteString(p.Task)
	b.WriteString("\n")
	for _, g := range p.Guidelines {
		b.WriteString("- ")
		b.WriteString(g)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(inputLabel)
	b.WriteString("\n")
	b.WriteString(p.Input)
	b.WriteString("\n\n")
	b.WriteString(p.OutputLabel)
	return b.String()
}

// Validate checks that the prompt has its required fields.
func (p *Prompt) Validate() error {
	if p.Task == "" {
		return errors.New("prompt missing required Task field")
	}
	if strings.TrimSpace(p.Input) == "" {
		return errors.New("prompt missing required Input field")
	}
	if p.OutputLabel == "" {
		return errors.New("prompt missing required OutputLabel field")
	}
	return nil
}

// inputOf extracts the user text from a rendered polishing prompt.
func inputOf(rendered string) string {
	start := strings.Index(rendered, inputLabel+"\n")
	if start == -1 {
		return ""
	}
	start += len(inputLabel) + 1
	end := strings.LastIndex(rendered, "\n\n"+outputLabel)
	if end < start {
		return strings.TrimSpace(rendered[start:])
	}
	return strings.TrimSpace(rendered[start:end])
}
