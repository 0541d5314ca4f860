package aireview

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/procurelane/evalengine/internal/domain"
)

// narrativePromptText asks the oracle for a free-form comparative assessment
// of every proposal in one round trip. Batching all submissions into a
// single call keeps latency and cost bounded; one call per submission would
// multiply both.
const narrativePromptText = `You are an independent procurement assessor reviewing vendor proposals for a tender.

Tender: {{.Tender.Title}}
Submission deadline: {{.Tender.Deadline.Format "2006-01-02"}}
Evaluation criteria (name, weight, score range):
{{- range .Tender.Criteria}}
- {{.Name}} (weight {{printf "%.0f" .Weight}}, scored {{printf "%.0f" .MinScore}} to {{printf "%.0f" .MaxScore}})
{{- end}}

{{range $i, $s := .Submissions -}}
Proposal {{inc $i}} (submission {{$s.ID}}, vendor {{$s.VendorID}}):
  Submitted: {{$s.SubmittedAt.Format "2006-01-02"}}
  Documents:
{{- if $s.Documents}}
{{- range $s.Documents}}
    - {{.Name}} ({{.Type}}, {{.Size}} bytes)
{{- end}}
{{- else}}
    (none)
{{- end}}

{{end -}}
Assess each proposal against every criterion and compare their strengths and weaknesses. Keep the proposals in the order given.`

// restatePromptText asks the oracle to restate its own narrative as strict
// JSON. The schema requires each entry to echo the submission id it scores;
// merging is by that id, never by array position alone, so a reordered or
// dropped entry cannot be attributed to the wrong submission.
const restatePromptText = `Below is your evaluation of {{len .Submissions}} proposals:

{{.Narrative}}

Restate this evaluation as a strict JSON array with exactly one entry per proposal, preserving the original proposal order. Each entry must have this shape:

{"submission_id": "<id>", "subscores": { {{- range $i, $c := .Tender.Criteria}}{{if $i}}, {{end}}"{{$c.Name}}": <number or null>{{end -}} }, "final_score": <number or null>}

The submission ids, in proposal order, are:
{{- range .Submissions}}
- {{.ID}}
{{- end}}

Respond with the JSON array only. No prose, no markdown fences.`

var promptFuncs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

var (
	narrativeTmpl = template.Must(template.New("narrative").Funcs(promptFuncs).Parse(narrativePromptText))
	restateTmpl   = template.Must(template.New("restate").Funcs(promptFuncs).Parse(restatePromptText))
)

type promptData struct {
	Tender      domain.Tender
	Submissions []domain.Submission
	Narrative   string
}

// buildNarrativePrompt renders the first-call prompt embedding the tender
// followed by each submission labeled "Proposal i".
func buildNarrativePrompt(tender domain.Tender, submissions []domain.Submission) (string, error) {
	var buf bytes.Buffer
	if err := narrativeTmpl.Execute(&buf, promptData{Tender: tender, Submissions: submissions}); err != nil {
		return "", fmt.Errorf("rendering narrative prompt: %w", err)
	}
	return buf.String(), nil
}

// buildRestatePrompt renders the second-call prompt that turns the narrative
// into machine-readable scores.
func buildRestatePrompt(tender domain.Tender, submissions []domain.Submission, narrative string) (string, error) {
	var buf bytes.Buffer
	data := promptData{Tender: tender, Submissions: submissions, Narrative: narrative}
	if err := restateTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering restatement prompt: %w", err)
	}
	return buf.String(), nil
}
