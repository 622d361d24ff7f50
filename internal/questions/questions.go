// Package questions renders question generation prompts and extracts the
// question list from the model's reply.
package questions

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/fairyhunter13/interview-feedback/internal/domain"
)

// ErrNoQuestions is returned when a reply carries no usable JSON array.
var ErrNoQuestions = errors.New("no question array in reply")

// CustomPrompt renders the job-requirements prompt.
func CustomPrompt(jobDescription string, skills []string, count int) string {
	return fmt.Sprintf("Create %[1]d targeted interview questions based on the following job requirements and skills:\n\n"+
		"Job Description:\n%[2]s\n\n"+
		"Required Skills:\n%[3]s\n\n"+
		"Generate %[1]d technical and behavioral questions that would effectively assess a candidate's suitability for this role. "+
		"The questions should specifically address the listed skills and job requirements. "+
		"Focus on challenging questions that reveal both technical proficiency and practical experience. "+
		"Include at least one problem-solving scenario related to the job description. "+
		"Return only the questions as an array of strings, without any additional text. "+
		"STRICTLY RETURN AS ARRAY OF STRINGS inside a ```json fenced block.",
		count, strings.TrimSpace(jobDescription), strings.Join(skills, ", "))
}

// PersonalPrompt renders the profile-based prompt.
func PersonalPrompt(experience []domain.Experience, projects []domain.Project, skills []string, count int) string {
	exp := make([]string, 0, len(experience))
	for _, e := range experience {
		exp = append(exp, fmt.Sprintf("%s at %s (%s - %s): %s", e.Position, e.Company, e.StartDate, e.EndDate, e.Description))
	}
	proj := make([]string, 0, len(projects))
	for _, p := range projects {
		proj = append(proj, fmt.Sprintf("Project: %s - %s", p.Name, p.Description))
	}
	return fmt.Sprintf("Based on the following user profile, generate %[1]d personalized interview questions:\n\n"+
		"Experience:\n%[2]s\n\n"+
		"Projects:\n%[3]s\n\n"+
		"Skills:\n%[4]s\n\n"+
		"Generate %[1]d questions that cover the user's experience, projects, and skills. "+
		"Focus on challenging technical questions related to their skills and projects, and behavioral questions based on their experience. "+
		"Return only the questions as an array of strings inside a ```json fenced block, without any additional text.",
		count, strings.Join(exp, "\n"), strings.Join(proj, "\n"), strings.Join(skills, ", "))
}

var (
	fencedArray = regexp.MustCompile("```(?:json)?\\s*(\\[[\\s\\S]*?\\])\\s*```")
	bareArray   = regexp.MustCompile(`(?s)\[.*\]`)
)

// Extract pulls the question list out of a reply. A fenced JSON array is
// preferred; a bare array anywhere in the text is accepted as a fallback.
func Extract(reply string) ([]string, error) {
	var candidates []string
	if m := fencedArray.FindStringSubmatch(reply); m != nil {
		candidates = append(candidates, m[1])
	}
	if m := bareArray.FindString(reply); m != "" {
		candidates = append(candidates, m)
	}
	for _, c := range candidates {
		var qs []string
		if err := json.Unmarshal([]byte(c), &qs); err != nil {
			continue
		}
		out := qs[:0]
		for _, q := range qs {
			if q = strings.TrimSpace(q); q != "" {
				out = append(out, q)
			}
		}
		if len(out) > 0 {
			return out, nil
		}
	}
	return nil, ErrNoQuestions
}

// Context numbers stored questions one per line for the interviewer agent.
func Context(qs []string) string {
	lines := make([]string, len(qs))
	for i, q := range qs {
		lines[i] = fmt.Sprintf("%d. %s", i+1, q)
	}
	return strings.Join(lines, "\n")
}
