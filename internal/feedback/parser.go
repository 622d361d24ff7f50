package feedback

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fairyhunter13/interview-feedback/internal/domain"
	"github.com/fairyhunter13/interview-feedback/pkg/textx"
)

// Report describes how well a completion matched the tagged-line grammar.
type Report struct {
	Items             int      `json:"items"`
	SummaryPresent    bool     `json:"summary_present"`
	Anomalies         []string `json:"anomalies"`
	IgnoredParagraphs int      `json:"ignored_paragraphs"`
}

// Degradation reasons reported for a parse that still counts as completed.
const (
	DegradedEmpty     = "empty"
	DegradedNoSummary = "no_summary"
	DegradedAnomaly   = "anomaly"
)

// Degraded lists the degradation reasons that apply to this parse.
func (r Report) Degraded() []string {
	var out []string
	switch {
	case r.Items == 0 && !r.SummaryPresent:
		out = append(out, DegradedEmpty)
	case !r.SummaryPresent:
		out = append(out, DegradedNoSummary)
	}
	if len(r.Anomalies) > 0 {
		out = append(out, DegradedAnomaly)
	}
	return out
}

// parseState is the position of the parser between paragraphs. It decides
// what a paragraph holding only item fields (no Label line) does.
type parseState int

const (
	// awaitingItem: no item has been opened yet, or the last one was flushed.
	awaitingItem parseState = iota
	// insideItem: an item is open and the previous paragraph belonged to it.
	insideItem
	// insideSummary: the previous paragraph was a summary paragraph. An item
	// opened before it is still open and may be amended.
	insideSummary
)

func (s parseState) String() string {
	switch s {
	case insideItem:
		return "inside_item"
	case insideSummary:
		return "inside_summary"
	default:
		return "awaiting_item"
	}
}

type paragraphKind int

const (
	paragraphIgnored paragraphKind = iota
	paragraphSummary
	paragraphDetail
	paragraphAmendment
)

var (
	paragraphSplit = regexp.MustCompile(`\n(?:[ \t]*\n)+`)
	fieldLine      = regexp.MustCompile(`^[*_]*([A-Za-z][A-Za-z ]*?)[*_]*\s*:[*_]*\s*(.*)$`)

	// listMarker strips bullets, headings, quotes and ordinals such as "1." or "2)".
	listMarker = regexp.MustCompile(`^[\s\-*#>]*(?:\d+[.)]\s*)?[\s\-*#>]*`)
)

var itemLabels = map[string]bool{
	LabelLabel:       true,
	LabelQuestion:    true,
	LabelYourAnswer:  true,
	LabelFeedback:    true,
	LabelCategory:    true,
	LabelSuggestions: true,
}

var summaryLabels = map[string]bool{
	LabelRelevantResponses:        true,
	LabelClarityAndStructure:      true,
	LabelProfessionalLanguage:     true,
	LabelInitialIdeas:             true,
	LabelAdditionalNotableAspects: true,
	LabelScore:                    true,
}

// canonicalLabels maps a lower-cased, space-collapsed label to its template spelling.
var canonicalLabels = func() map[string]string {
	out := make(map[string]string, len(itemLabels)+len(summaryLabels))
	for l := range itemLabels {
		out[foldLabel(l)] = l
	}
	for l := range summaryLabels {
		out[foldLabel(l)] = l
	}
	return out
}()

func foldLabel(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

type field struct {
	label string
	value string
}

// parser walks paragraphs with three states. open is non-nil from the first
// Label line until the next one or the end of input.
type parser struct {
	state   parseState
	open    *domain.FeedbackItem
	items   []domain.FeedbackItem
	summary *domain.InterviewSummary
	report  Report
}

// Parse converts raw completion text into a feedback aggregate. It never
// fails: unmatched text is skipped and recorded in the report.
func Parse(text string) (domain.FeedbackAggregate, Report) {
	p := &parser{state: awaitingItem}
	text = strings.TrimSpace(textx.NormalizeNewlines(text))
	if text != "" {
		for _, para := range paragraphSplit.Split(text, -1) {
			p.paragraph(para)
		}
	}
	p.finish()
	agg := domain.FeedbackAggregate{Feedback: p.items, Summary: p.summary}
	if agg.Feedback == nil {
		agg.Feedback = []domain.FeedbackItem{}
	}
	p.report.Items = len(agg.Feedback)
	p.report.SummaryPresent = agg.Summary != nil
	return agg, p.report
}

// classify applies paragraph-level mutual exclusion: any summary field makes
// the whole paragraph a summary paragraph.
func classify(fields []field) (kind paragraphKind, droppedLabel bool) {
	summary, label := false, false
	for _, f := range fields {
		summary = summary || summaryLabels[f.label]
		label = label || f.label == LabelLabel
	}
	switch {
	case summary:
		return paragraphSummary, label
	case label:
		return paragraphDetail, false
	case len(fields) > 0:
		return paragraphAmendment, false
	default:
		return paragraphIgnored, false
	}
}

func (p *parser) paragraph(para string) {
	fields := scanFields(para)
	kind, droppedLabel := classify(fields)
	switch kind {
	case paragraphSummary:
		if droppedLabel {
			p.anomaly("label line dropped from summary paragraph")
		}
		p.enterSummary(fields)
	case paragraphDetail:
		p.readItems(fields)
	case paragraphAmendment:
		p.amend(fields)
	default:
		p.report.IgnoredParagraphs++
	}
}

// enterSummary fills summary fields without resetting ones set earlier.
func (p *parser) enterSummary(fields []field) {
	if p.summary == nil {
		p.summary = &domain.InterviewSummary{}
	}
	for _, f := range fields {
		switch f.label {
		case LabelRelevantResponses:
			p.summary.RelevantResponses = f.value
		case LabelClarityAndStructure:
			p.summary.ClarityAndStructure = f.value
		case LabelProfessionalLanguage:
			p.summary.ProfessionalLanguage = f.value
		case LabelInitialIdeas:
			p.summary.InitialIdeas = f.value
		case LabelAdditionalNotableAspects:
			p.summary.AdditionalNotableAspects = f.value
		case LabelScore:
			p.summary.Score = f.value
		}
	}
	p.state = insideSummary
}

// readItems walks a detail paragraph line by line. Every Label line closes
// the open item and starts a new one. Field lines ahead of the first Label
// line amend the open item when one exists.
func (p *parser) readItems(fields []field) {
	for _, f := range fields {
		if f.label == LabelLabel {
			p.flush()
			p.open = &domain.FeedbackItem{Label: p.normalizeLabel(f.value)}
			p.state = insideItem
			continue
		}
		if p.state == awaitingItem || p.open == nil {
			p.anomaly(fmt.Sprintf("%s before any %s line", f.label, LabelLabel))
			continue
		}
		setItemField(p.open, f)
	}
}

// amend handles a paragraph of item fields without a Label line.
func (p *parser) amend(fields []field) {
	switch p.state {
	case insideItem:
	case insideSummary:
		if p.open == nil {
			p.report.IgnoredParagraphs++
			return
		}
	default:
		p.report.IgnoredParagraphs++
		return
	}
	for _, f := range fields {
		setItemField(p.open, f)
	}
	p.state = insideItem
}

// flush closes the open item. The caller sets the next state.
func (p *parser) flush() {
	if p.open != nil {
		p.items = append(p.items, *p.open)
		p.open = nil
	}
}

func (p *parser) finish() {
	p.flush()
	p.state = awaitingItem
}

func (p *parser) anomaly(msg string) {
	p.report.Anomalies = append(p.report.Anomalies, msg)
}

func (p *parser) normalizeLabel(v string) domain.Label {
	l := NormalizeLabel(v)
	if !l.Known() {
		p.anomaly(fmt.Sprintf("unknown label %q", v))
	}
	return l
}

func setItemField(it *domain.FeedbackItem, f field) {
	switch f.label {
	case LabelQuestion:
		it.Question = f.value
	case LabelYourAnswer:
		it.YourAnswer = f.value
	case LabelFeedback:
		it.Feedback = f.value
	case LabelCategory:
		v := f.value
		it.Category = &v
	case LabelSuggestions:
		v := f.value
		it.SuggestionsForImprovement = &v
	}
}

// scanFields returns the recognized field lines of a paragraph in order,
// with labels mapped to their template spelling.
func scanFields(para string) []field {
	var out []field
	for _, line := range strings.Split(para, "\n") {
		line = listMarker.ReplaceAllString(line, "")
		m := fieldLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		name, ok := canonicalLabels[foldLabel(m[1])]
		if !ok {
			continue
		}
		out = append(out, field{label: name, value: strings.TrimSpace(strings.Trim(m[2], "* "))})
	}
	return out
}

// NormalizeLabel maps a raw label value onto the verdict vocabulary:
// brackets dropped, upper-cased, spaces and hyphens turned into underscores.
func NormalizeLabel(v string) domain.Label {
	v = strings.TrimSpace(strings.Trim(strings.TrimSpace(v), "[]().*_."))
	v = strings.ToUpper(v)
	v = strings.Join(strings.FieldsFunc(v, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == '\t'
	}), "_")
	return domain.Label(v)
}
