package feedback

import (
	"fmt"
	"strings"

	"github.com/fairyhunter13/interview-feedback/internal/domain"
)

// Field labels shared by the prompt template and the parser. Changing one
// here changes both sides of the contract.
const (
	LabelLabel       = "Label"
	LabelQuestion    = "Question"
	LabelYourAnswer  = "Your Answer"
	LabelFeedback    = "Feedback"
	LabelCategory    = "Category"
	LabelSuggestions = "Suggestions for improvement"

	LabelRelevantResponses        = "Relevant Responses"
	LabelClarityAndStructure      = "Clarity and Structure"
	LabelProfessionalLanguage     = "Professional Language"
	LabelInitialIdeas             = "Initial Ideas"
	LabelAdditionalNotableAspects = "Additional Notable Aspects"
	LabelScore                    = "Score"
)

// Categories is the enumerated category vocabulary offered to the model.
var Categories = []string{
	"Formality of Language",
	"Clarity of Content",
	"Logical Organization",
	"Conciseness",
	"Relevance to Question",
	"Completeness of Answer",
}

// ExampleItem is the worked per-item example embedded in the prompt.
const ExampleItem = LabelLabel + ": Needs Improvement\n" +
	LabelQuestion + ": Tell me about your previous work experience\n" +
	LabelYourAnswer + ": I worked at companies and did stuff\n" +
	LabelFeedback + ": Your response lacks specific details and professional language\n" +
	LabelCategory + ": Formality of Language, Clarity of Content, Completeness of Answer\n" +
	LabelSuggestions + ": Use more formal business language, Provide specific details about roles and responsibilities, Include timeline and company names with concrete achievements"

// ExampleSummary is the worked summary example embedded in the prompt.
const ExampleSummary = LabelRelevantResponses + ": Your responses needed more alignment with the questions asked\n" +
	LabelClarityAndStructure + ": Responses lacked proper structure and organization\n" +
	LabelProfessionalLanguage + ": Language used was too informal for an interview setting\n" +
	LabelInitialIdeas + ": You showed some creative thinking in your approaches\n" +
	LabelAdditionalNotableAspects + ": Need to improve response completeness\n" +
	LabelScore + ": 5/10"

// Preamble opens every feedback prompt, ahead of any transcript text.
const Preamble = "Analyze the following interview conversation based on the transcript and provide feedback directly to the interviewee."

// BuildPrompt renders exchanges into the fixed instruction template.
func BuildPrompt(exchanges []domain.Exchange) string {
	var b strings.Builder
	b.WriteString(Preamble)
	b.WriteString("\n\n")
	for i, ex := range exchanges {
		n := i + 1
		fmt.Fprintf(&b, "Question %d: %s\nAnswer %d: %s\n\n", n, ex.Assistant, n, ex.Client)
	}

	b.WriteString("For each response, STRICTLY FOLLOW this exact formatting WITHOUT ANY ASTERISKS:\n\n")
	fmt.Fprintf(&b, "%s: [%s/%s]\n", LabelLabel, domain.LabelGood, domain.LabelNeedsImprovement)
	fmt.Fprintf(&b, "%s: [Interviewer's question]\n", LabelQuestion)
	fmt.Fprintf(&b, "%s: [Interviewee's answer]\n", LabelYourAnswer)
	fmt.Fprintf(&b, "%s: [Provide direct feedback to the interviewee]\n", LabelFeedback)
	fmt.Fprintf(&b, "%s: [List applicable categories from:\n", LabelCategory)
	for i, c := range Categories {
		b.WriteString("- " + c)
		if i == len(Categories)-1 {
			b.WriteString("]")
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "%s: [Specific improvements for each listed category]\n\n", LabelSuggestions)

	b.WriteString("Overall Performance Summary\n")
	b.WriteString("After analyzing all individual responses, provide a summary using this format:\n\n")
	fmt.Fprintf(&b, "%s: [How well answers aligned with questions]\n", LabelRelevantResponses)
	fmt.Fprintf(&b, "%s: [Coherence and organization of answers]\n", LabelClarityAndStructure)
	fmt.Fprintf(&b, "%s: [Professionalism of language]\n", LabelProfessionalLanguage)
	fmt.Fprintf(&b, "%s: [Originality or thoughtfulness]\n", LabelInitialIdeas)
	fmt.Fprintf(&b, "%s: [Other strengths or improvement areas]\n", LabelAdditionalNotableAspects)
	fmt.Fprintf(&b, "%s: [X/10]\n\n", LabelScore)

	b.WriteString("IMPORTANT INSTRUCTIONS:\n")
	b.WriteString("1. Use the EXACT format shown above\n")
	b.WriteString("2. Do NOT use asterisks anywhere\n")
	b.WriteString("3. Be direct and specific in your feedback\n")
	b.WriteString("4. Address the interviewee directly\n\n")

	b.WriteString("Example:\n")
	b.WriteString(ExampleItem)
	b.WriteString("\n\nExample Overall Performance Summary:\n")
	b.WriteString(ExampleSummary)
	b.WriteString("\n")
	return b.String()
}
