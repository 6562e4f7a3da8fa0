package generator

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/carpenike/repcoach/internal/program"
)

//go:embed prompts/daily_prompt.md
var dailyPrompt string

//go:embed prompts/batch_prompt.md
var batchPrompt string

var (
	promptFuncs = template.FuncMap{"join": strings.Join}

	dailyTmpl = template.Must(template.New("daily").Funcs(promptFuncs).Parse(dailyPrompt))
	batchTmpl = template.Must(template.New("batch").Funcs(promptFuncs).Parse(batchPrompt))
)

type promptData struct {
	Goal        string
	Date        string
	Days        int
	StartDate   string
	EndDate     string
	Vocabulary  []program.VocabularyEntry
	Intensities string
	Example     string
	Stats       string
}

// BuildDailyPrompt renders the single-day prompt. It is deterministic in its
// inputs; the only error is stats that are not valid JSON.
func BuildDailyPrompt(stats json.RawMessage, goal string, date time.Time) (string, error) {
	statsText, err := formatStats(stats)
	if err != nil {
		return "", err
	}
	example, err := exampleJSON(exampleProgram(date))
	if err != nil {
		return "", err
	}
	return render(dailyTmpl, promptData{
		Goal:        goal,
		Date:        date.Format(program.DateLayout),
		Vocabulary:  program.Vocabulary(),
		Intensities: intensityList(),
		Example:     example,
		Stats:       statsText,
	})
}

// BuildBatchPrompt renders the prompt for days consecutive programs starting
// at start.
func BuildBatchPrompt(stats json.RawMessage, goal string, days int, start time.Time) (string, error) {
	if days < 1 {
		return "", fmt.Errorf("generator: batch prompt needs at least one day, got %d", days)
	}
	statsText, err := formatStats(stats)
	if err != nil {
		return "", err
	}

	sample := []*program.Program{exampleProgram(start)}
	if days > 1 {
		sample = append(sample, exampleProgram(start.AddDate(0, 0, 1)))
	}
	example, err := exampleJSON(sample)
	if err != nil {
		return "", err
	}

	return render(batchTmpl, promptData{
		Goal:        goal,
		Days:        days,
		StartDate:   start.Format(program.DateLayout),
		EndDate:     start.AddDate(0, 0, days-1).Format(program.DateLayout),
		Vocabulary:  program.Vocabulary(),
		Intensities: intensityList(),
		Example:     example,
		Stats:       statsText,
	})
}

func render(tmpl *template.Template, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("generator: render %s prompt: %w", tmpl.Name(), err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// formatStats re-indents stats for the prompt. Absent or null stats render
// as {}.
func formatStats(stats json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(stats)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "{}", nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, trimmed, "", "  "); err != nil {
		return "", fmt.Errorf("%w: stats: %v", ErrInvalidRequest, err)
	}
	return buf.String(), nil
}

func intensityList() string {
	var parts []string
	for _, in := range program.Intensities() {
		parts = append(parts, fmt.Sprintf(`**"%s"**`, in))
	}
	return strings.Join(parts, ", ")
}

func exampleProgram(date time.Time) *program.Program {
	return &program.Program{
		Nom:         program.DisplayName(date),
		Date:        date.Format(program.DateLayout),
		Commentaire: "Programme oriente puissance & cardio",
		Exercices: []program.Exercise{
			{
				Type:        program.StreetWorkout,
				SubType:     "Pompes",
				Series:      "4",
				Repetitions: "15",
				RestTime:    "60",
				Intensity:   program.Elevee,
			},
			{
				Type:      program.Course,
				SubType:   "Sprint",
				Series:    "1",
				Distance:  "5",
				Duration:  "1500",
				Intensity: program.Moderee,
			},
		},
	}
}

func exampleJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("generator: encode prompt example: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
