package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Prompts holds the model prompt templates. Placeholders: {role},
// {interview_type}, {qa} in Feedback; {raw} in Repair.
type Prompts struct {
	Feedback string `yaml:"feedback"`
	Repair   string `yaml:"repair"`
}

const defaultFeedbackPrompt = `You are an expert interview coach. Analyze the following QUESTIONS AND ANSWERS and provide constructive feedback.

NOTE: Base all feedback and scoring ONLY on the candidate's answers below.

JOB ROLE: {role}
INTERVIEW TYPE: {interview_type}

QUESTIONS AND ANSWERS:
{qa}

Return a single JSON object only, exactly with these keys: strengths (array of strings), improvements (array of strings), recommendations (array of strings), technicalKnowledge (integer 0-10), problemSolving (integer 0-10), communication (integer 0-10), totalScore (integer 0-30), detailedAnalysis (string).

Keep arrays short (3-6 concise bullets). Do not include any duplicate sections or repeat the same content twice. If the candidate skipped questions or provided very short answers, reflect that in the scores.`

const defaultRepairPrompt = `You previously generated this output: '''
{raw}
'''

Please convert that output into a single VALID JSON object with these keys exactly: strengths (array of short strings), improvements (array of short strings), recommendations (array of short strings), technicalKnowledge (integer 0-10), problemSolving (integer 0-10), communication (integer 0-10), totalScore (integer 0-30), detailedAnalysis (string). Return only the JSON object and nothing else.`

// DefaultPrompts returns the built-in prompt templates.
func DefaultPrompts() Prompts {
	return Prompts{Feedback: defaultFeedbackPrompt, Repair: defaultRepairPrompt}
}

// LoadPrompts reads prompt overrides from a YAML file. An empty path returns
// the defaults; a missing template field keeps its default.
func LoadPrompts(path string) (Prompts, error) {
	p := DefaultPrompts()
	if path == "" {
		return p, nil
	}
	// #nosec G304 -- Configuration files are expected to be safe
	content, err := os.ReadFile(path)
	if err != nil {
		return Prompts{}, fmt.Errorf("op=config.LoadPrompts: %w", err)
	}
	var over Prompts
	if err := yaml.Unmarshal(content, &over); err != nil {
		return Prompts{}, fmt.Errorf("op=config.LoadPrompts: %w", err)
	}
	if strings.TrimSpace(over.Feedback) != "" {
		p.Feedback = over.Feedback
	}
	if strings.TrimSpace(over.Repair) != "" {
		p.Repair = over.Repair
	}
	return p, nil
}

// RenderFeedback fills the feedback template.
func (p Prompts) RenderFeedback(role, interviewType, qaBlock string) string {
	r := strings.NewReplacer("{role}", role, "{interview_type}", interviewType, "{qa}", qaBlock)
	return r.Replace(p.Feedback)
}

// RenderRepair fills the repair template with the previous raw model output.
func (p Prompts) RenderRepair(raw string) string {
	return strings.ReplaceAll(p.Repair, "{raw}", raw)
}
