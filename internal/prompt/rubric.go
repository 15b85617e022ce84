package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain"
)

// Criterion is one scored dimension of a rubric. Float criteria take
// values in [0, 1]; boolean criteria take true or false and score as 1
// or 0.
type Criterion struct {
	Name        string
	Description string
	Boolean     bool
}

// Rubric describes what a judge scores and in what order. The order is
// part of the contract: the aggregate is the unweighted mean over the
// criteria as declared.
type Rubric struct {
	Subject  string
	Criteria []Criterion
}

// CriterionNames returns the criterion names in rubric order
func (r Rubric) CriterionNames() []string {
	names := make([]string, len(r.Criteria))
	for i, c := range r.Criteria {
		names[i] = c.Name
	}
	return names
}

func (r Rubric) criterion(name string) (Criterion, bool) {
	for _, c := range r.Criteria {
		if c.Name == name {
			return c, true
		}
	}
	return Criterion{}, false
}

// Assessment is a parsed judge verdict: one value per rubric criterion
// plus the judge's rationale.
type Assessment struct {
	Rubric    Rubric
	Values    map[string]float64
	Rationale string
}

// Aggregate returns the unweighted mean of the criterion values in
// rubric order. Every criterion contributes equally regardless of type.
func (a *Assessment) Aggregate() float64 {
	if len(a.Rubric.Criteria) == 0 {
		return 0
	}
	var sum float64
	for _, c := range a.Rubric.Criteria {
		sum += a.Values[c.Name]
	}
	return sum / float64(len(a.Rubric.Criteria))
}

// Value returns the score for one criterion
func (a *Assessment) Value(name string) float64 {
	return a.Values[name]
}

// BuildJudgePrompt renders the evaluation request sent to the judge
// LLM. Fields are ordered name/value pairs of the material under
// review.
func (r Rubric) BuildJudgePrompt(fields []JudgeField) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are a strict evaluator. Assess the following %s.\n\n", r.Subject)

	sb.WriteString("Criteria:\n")
	for _, c := range r.Criteria {
		kind := "a value from 0.0 to 1.0"
		if c.Boolean {
			kind = "true or false"
		}
		fmt.Fprintf(&sb, "- %s (%s): %s\n", c.Name, kind, c.Description)
	}
	sb.WriteString("\n")

	for _, f := range fields {
		fmt.Fprintf(&sb, "%s:\n%s\n\n", f.Name, f.Value)
	}

	sb.WriteString("Respond with exactly one line per criterion in the form \"name: value\", ")
	sb.WriteString("using the criterion names above, then a final line \"rationale: <your reasoning>\". ")
	sb.WriteString("Do not add any other text.")

	return sb.String()
}

// JudgeField is one name/value pair shown to the judge
type JudgeField struct {
	Name  string
	Value string
}

// ParseAssessment extracts criterion values and the rationale from a
// judge response. A missing criterion is a hard error rather than a
// zero score, so transport or formatting failures never masquerade as
// bad program output.
func (r Rubric) ParseAssessment(content string) (*Assessment, error) {
	values := make(map[string]float64, len(r.Criteria))
	var rationale []string
	inRationale := false

	for _, rawLine := range strings.Split(content, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}

		name, rest, found := strings.Cut(line, ":")
		if found {
			key := normalizeCriterionName(name)
			if key == "rationale" {
				inRationale = true
				if trimmed := strings.TrimSpace(rest); trimmed != "" {
					rationale = append(rationale, trimmed)
				}
				continue
			}
			if c, ok := r.criterion(key); ok {
				value, err := parseCriterionValue(c, strings.TrimSpace(rest))
				if err != nil {
					return nil, fmt.Errorf("%w: criterion %q: %v", domain.ErrMalformedVerdict, c.Name, err)
				}
				values[c.Name] = value
				inRationale = false
				continue
			}
		}

		if inRationale {
			rationale = append(rationale, line)
		}
	}

	for _, c := range r.Criteria {
		if _, ok := values[c.Name]; !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrMissingCriterion, c.Name)
		}
	}

	return &Assessment{
		Rubric:    r,
		Values:    values,
		Rationale: strings.Join(rationale, "\n"),
	}, nil
}

// normalizeCriterionName lowers the name and strips list markers and
// emphasis the judge may add around it.
func normalizeCriterionName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.Trim(name, "-*# ")
	name = strings.ReplaceAll(name, " ", "_")
	return name
}

func parseCriterionValue(c Criterion, raw string) (float64, error) {
	raw = strings.TrimSpace(strings.Trim(raw, "*`"))
	if raw == "" {
		return 0, fmt.Errorf("empty value")
	}

	if c.Boolean {
		switch strings.ToLower(raw) {
		case "true", "yes", "1":
			return 1, nil
		case "false", "no", "0":
			return 0, nil
		}
		return 0, fmt.Errorf("not a boolean: %q", raw)
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", raw)
	}
	if f < 0 || f > 1 {
		return 0, fmt.Errorf("value %v outside [0, 1]", f)
	}
	return f, nil
}
