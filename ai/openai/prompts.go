package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/clausematch/ai"
)

const judgeSystemPrompt = `You are an expert in contract review. You decide whether two contract clauses
cover the same subject. A later review stage judges legal force, so here you judge semantic similarity only.

Criteria:
1. Judge by subject: what is each clause about?
2. Different wording is fine when the meaning is similar.
3. Ignore differences in legal force ("guarantees" vs "endeavours to ensure" are both about quality).
4. Clauses in the same category with different specifics do NOT match (termination for bankruptcy vs
   termination for non-payment; duties of the provider vs duties of the recipient).

Output ONLY valid JSON. Do not include any preamble, explanation, greeting, or acknowledgment. Start your
response directly with the opening brace { and end with the closing brace }.`

const singleOutputSchema = `{
    "is_match": true or false,
    "confidence": a number from 0.0 to 1.0,
    "reasoning": "the subject of each clause and why they do or do not match"
}`

const reverseOutputSchema = `{
    "results": [
        {"index": 1, "is_match": true or false, "confidence": 0.0 to 1.0, "reasoning": "..."}
    ]
}`

const forwardOutputSchema = `{
    "results": [
        {"index": 1, "is_match": true or false, "confidence": 0.0 to 1.0, "reasoning": "..."}
    ],
    "summary": "whether the standard clause is covered anywhere in the user contract",
    "risk": "the risk of the user contract lacking this clause",
    "recommendation": "what the user should add or change"
}`

const appendixNote = "Note: this standard clause refers to an appendix ([별지]). The appendix is a form the " +
	"user fills in, so check whether the user clause carries its content or format. A reference to the " +
	"appendix alone may be a partial match."

// buildSinglePrompt renders the user prompt comparing one standard clause
// with one user clause.
func buildSinglePrompt(standard, user ai.Passage) string {
	var b strings.Builder
	b.WriteString("Standard clause:\n")
	writePassage(&b, standard)
	if standard.ReferencesAppendix() {
		b.WriteString("\n")
		b.WriteString(appendixNote)
		b.WriteString("\n")
	}
	b.WriteString("\nUser clause:\n")
	writePassage(&b, user)
	fmt.Fprintf(&b, "\nDo these two clauses cover the same subject? Respond with JSON:\n%s\n", singleOutputSchema)
	return b.String()
}

// buildBatchPrompt renders the user prompt judging every candidate of req
// against its anchor.
func buildBatchPrompt(req ai.BatchRequest) string {
	var b strings.Builder
	anchorLabel, candidateLabel, schema := "User clause", "Standard clause candidates", reverseOutputSchema
	if req.Direction == ai.Forward {
		anchorLabel, candidateLabel, schema = "Standard clause (possibly missing from the user contract)",
			"User clause candidates", forwardOutputSchema
	}

	b.WriteString(anchorLabel)
	b.WriteString(":\n")
	writePassage(&b, req.Anchor)
	if req.Direction == ai.Forward && req.Anchor.ReferencesAppendix() {
		b.WriteString("\n")
		b.WriteString(appendixNote)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(candidateLabel)
	b.WriteString(":\n")
	for i, c := range req.Candidates {
		fmt.Fprintf(&b, "\n[%d] (retrieval score %.2f)\n", i+1, c.Score)
		writePassage(&b, c)
		if req.Direction == ai.Reverse && c.ReferencesAppendix() {
			b.WriteString(appendixNote)
			b.WriteString("\n")
		}
	}

	fmt.Fprintf(&b, "\nJudge every candidate against the %s. Return exactly %d results, using the candidate "+
		"numbers as index. Respond with JSON:\n%s\n", strings.ToLower(anchorLabel), len(req.Candidates), schema)
	return b.String()
}

func writePassage(b *strings.Builder, p ai.Passage) {
	if p.Title != "" {
		fmt.Fprintf(b, "Title: %s\n", compactText(p.Title))
	}
	fmt.Fprintf(b, "Text: %s\n", compactText(p.Text))
}
