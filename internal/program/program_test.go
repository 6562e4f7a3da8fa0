package program

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"
)

// recordingLogger captures warnings for assertions.
type recordingLogger struct {
	warnings []string
	debugs   []string
}

func (l *recordingLogger) Debug(msg string, _ ...any) { l.debugs = append(l.debugs, msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.warnings = append(l.warnings, msg) }

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

// decode parses JSON the way llm.ExtractJSON does, keeping numbers as json.Number.
func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", s, err)
	}
	return v
}

// --- Vocabulary ---

func TestAllowedSubTypes_EveryTypeNonEmpty(t *testing.T) {
	if len(Types()) != 7 {
		t.Fatalf("types = %d, want 7", len(Types()))
	}
	for _, typ := range Types() {
		if len(AllowedSubTypes(typ)) == 0 {
			t.Errorf("AllowedSubTypes(%q) is empty", typ)
		}
	}
}

func TestAllowedSubTypes_UnknownType(t *testing.T) {
	if got := AllowedSubTypes("Yoga"); got != nil {
		t.Errorf("AllowedSubTypes(Yoga) = %v, want nil", got)
	}
}

func TestAllowedSubTypes_ReturnsCopy(t *testing.T) {
	subs := AllowedSubTypes(StreetWorkout)
	subs[0] = "Mutated"
	if AllowedSubTypes(StreetWorkout)[0] != "Pompes" {
		t.Error("caller mutation leaked into the vocabulary")
	}
}

func TestAllowedSubTypes_CardioAndShadowShareVocabulary(t *testing.T) {
	if !slices.Equal(AllowedSubTypes(CardioLibre), AllowedSubTypes(ShadowBoxing)) {
		t.Error("Cardio libre and Shadow Boxing vocabularies differ")
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		raw    string
		want   ExerciseType
		wantOK bool
	}{
		{"Street Workout", StreetWorkout, true},
		{"  street   workout ", StreetWorkout, true},
		{"COURSE", Course, true},
		{"renfo avec charges", RenfoAvecCharges, true},
		{"Yoga", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseType(tt.raw)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseType(%q) = %q, %v; want %q, %v", tt.raw, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

// --- Normalizer ---

func TestNormalizeIntensity(t *testing.T) {
	tests := []struct {
		raw    string
		want   Intensity
		wantOK bool
	}{
		{"Faible", Faible, true},
		{"basse", Faible, true},
		{" LOW ", Faible, true},
		{"Moderee", Moderee, true},
		{"modere", Moderee, true},
		{"moyenne", Moderee, true},
		{"medium", Moderee, true},
		{"Elevee", Elevee, true},
		{"haute", Elevee, true},
		{"forte", Elevee, true},
		{"HIGH", Elevee, true},
		{"extreme", Moderee, false},
		{"", Moderee, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := NormalizeIntensity(tt.raw)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("NormalizeIntensity(%q) = %q, %v; want %q, %v", tt.raw, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestNormalizeIntensity_Idempotent(t *testing.T) {
	inputs := []string{"low", "haute", "moyenne", "nonsense", "", "Elevee", "Modérée"}
	for _, in := range inputs {
		once, _ := NormalizeIntensity(in)
		twice, ok := NormalizeIntensity(string(once))
		if twice != once {
			t.Errorf("NormalizeIntensity not idempotent for %q: %q then %q", in, once, twice)
		}
		if !ok {
			t.Errorf("canonical value %q not recognised", once)
		}
	}
}

func TestCorrectSubType(t *testing.T) {
	tests := []struct {
		name     string
		typ      ExerciseType
		proposed string
		want     string
	}{
		{"valid kept", StreetWorkout, "Tractions", "Tractions"},
		{"invalid defaults", StreetWorkout, "Yoga", "Pompes"},
		{"empty defaults", Course, "", "Sprint"},
		{"other type's subtype", Plyometrie, "Pompes", "Sauts sur boite"},
		{"case sensitive", Course, "sprint", "Sprint"},
		{"unknown type", "Yoga", "Pompes", ""},
		{"repos", ReposActif, "Roulements d'epaules", "Roulements d'epaules"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CorrectSubType(tt.typ, tt.proposed); got != tt.want {
				t.Errorf("CorrectSubType(%q, %q) = %q, want %q", tt.typ, tt.proposed, got, tt.want)
			}
		})
	}
}

func TestCorrectSubType_DefaultIsFirstEntry(t *testing.T) {
	for _, typ := range Types() {
		want := AllowedSubTypes(typ)[0]
		if got := CorrectSubType(typ, "not-a-subtype"); got != want {
			t.Errorf("CorrectSubType(%q, invalid) = %q, want %q", typ, got, want)
		}
	}
}

func TestNormalizer_LogsSoftWarnings(t *testing.T) {
	log := &recordingLogger{}
	n := Normalizer{Log: log}

	if got := n.Intensity("ultra"); got != Moderee {
		t.Errorf("intensity = %q, want Moderee", got)
	}
	if got := n.SubType(Course, "Nage"); got != "Sprint" {
		t.Errorf("subType = %q, want Sprint", got)
	}
	if got := n.Type("Yoga"); got != DefaultType {
		t.Errorf("type = %q, want %q", got, DefaultType)
	}
	if len(log.warnings) != 3 {
		t.Errorf("warnings = %d, want 3: %v", len(log.warnings), log.warnings)
	}

	// Recognised values and empty sub-types stay quiet.
	log.warnings = nil
	n.Intensity("haute")
	n.SubType(Course, "Endurance")
	n.SubType(Course, "")
	n.Type("")
	if len(log.warnings) != 0 {
		t.Errorf("unexpected warnings: %v", log.warnings)
	}
}

func TestNormalizer_NilLogger(t *testing.T) {
	n := Normalizer{}
	if got := n.Intensity("???"); got != Moderee {
		t.Errorf("intensity = %q", got)
	}
	if got := n.Type("???"); got != DefaultType {
		t.Errorf("type = %q", got)
	}
}

// --- Mapper ---

func TestMap_EndToEndExample(t *testing.T) {
	raw := decode(t, `{
		"nom": "whatever the model says",
		"date": "1999-12-31",
		"commentaire": "Focus haut du corps",
		"exercices": [
			{"type": "Street Workout", "subType": "Pompes", "series": "4",
			 "repetitions": "15", "restTime": "45", "intensity": "haute", "accompli": true}
		]
	}`)

	p, err := Mapper{}.Map(raw, mustDate(t, "2024-03-01"))
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if p.Date != "2024-03-01" {
		t.Errorf("date = %q, want 2024-03-01", p.Date)
	}
	if p.Nom != "Programme IA – 2024-03-01" {
		t.Errorf("nom = %q", p.Nom)
	}
	if p.Commentaire != "Focus haut du corps" {
		t.Errorf("commentaire = %q", p.Commentaire)
	}
	if len(p.Exercices) != 1 {
		t.Fatalf("exercices = %d, want 1", len(p.Exercices))
	}
	ex := p.Exercices[0]
	if ex.Intensity != Elevee {
		t.Errorf("intensity = %q, want Elevee", ex.Intensity)
	}
	if ex.SubType != "Pompes" {
		t.Errorf("subType = %q, want Pompes", ex.SubType)
	}
	if ex.Accompli {
		t.Error("accompli = true, want false")
	}
	if ex.Series != "4" || ex.Repetitions != "15" || ex.RestTime != "45" {
		t.Errorf("numeric fields = %q/%q/%q", ex.Series, ex.Repetitions, ex.RestTime)
	}
}

func TestMap_Defaults(t *testing.T) {
	raw := decode(t, `{"exercices": [{}]}`)

	p, err := Mapper{}.Map(raw, mustDate(t, "2024-01-01"))
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	want := Exercise{
		Type:      StreetWorkout,
		SubType:   "Pompes",
		Series:    "1",
		RestTime:  "60",
		Intensity: Moderee,
	}
	if p.Exercices[0] != want {
		t.Errorf("exercise = %+v, want %+v", p.Exercices[0], want)
	}
	if p.Commentaire != "" {
		t.Errorf("commentaire = %q, want empty", p.Commentaire)
	}
}

func TestMap_NumericCoercion(t *testing.T) {
	raw := decode(t, `{"exercices": [
		{"type": "Course", "subType": "Endurance", "series": 2, "distance": 5.5,
		 "duration": "1500", "repetitions": "beaucoup", "restTime": null}
	]}`)

	p, err := Mapper{}.Map(raw, mustDate(t, "2024-01-01"))
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	ex := p.Exercices[0]
	if ex.Series != "2" {
		t.Errorf("series = %q, want 2", ex.Series)
	}
	if ex.Distance != "5.5" {
		t.Errorf("distance = %q, want 5.5", ex.Distance)
	}
	if ex.Duration != "1500" {
		t.Errorf("duration = %q, want 1500", ex.Duration)
	}
	if ex.Repetitions != "" {
		t.Errorf("repetitions = %q, want empty", ex.Repetitions)
	}
	if ex.RestTime != "60" {
		t.Errorf("restTime = %q, want 60", ex.RestTime)
	}
}

func TestMap_NumericRejectsNonDecimalText(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"nan", `"NaN"`},
		{"inf", `"Inf"`},
		{"infinity", `"infinity"`},
		{"negative infinity", `"-Inf"`},
		{"hex float", `"0x1p4"`},
		{"exponent string", `"1e3"`},
		{"exponent number", `1e3`},
		{"leading plus", `"+5"`},
		{"trailing dot", `"5."`},
		{"underscore", `"1_000"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := decode(t, `{"exercices": [
				{"type": "Course", "subType": "Endurance", "series": `+tt.value+`,
				 "distance": `+tt.value+`, "duration": `+tt.value+`,
				 "repetitions": `+tt.value+`, "restTime": `+tt.value+`}
			]}`)
			p, err := Mapper{}.Map(raw, mustDate(t, "2024-01-01"))
			if err != nil {
				t.Fatalf("Map: %v", err)
			}
			ex := p.Exercices[0]
			if ex.Series != DefaultSeries {
				t.Errorf("series = %q, want %q", ex.Series, DefaultSeries)
			}
			if ex.Distance != "" {
				t.Errorf("distance = %q, want empty", ex.Distance)
			}
			if ex.Duration != "" {
				t.Errorf("duration = %q, want empty", ex.Duration)
			}
			if ex.Repetitions != "" {
				t.Errorf("repetitions = %q, want empty", ex.Repetitions)
			}
			if ex.RestTime != DefaultRestTime {
				t.Errorf("restTime = %q, want %q", ex.RestTime, DefaultRestTime)
			}
		})
	}
}

func TestMap_NumericKeepsPlainDecimals(t *testing.T) {
	raw := decode(t, `{"exercices": [
		{"type": "Course", "subType": "Endurance", "series": " 4 ", "distance": "0.75",
		 "duration": 90, "repetitions": "-3", "restTime": 45.5}
	]}`)
	p, err := Mapper{}.Map(raw, mustDate(t, "2024-01-01"))
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	ex := p.Exercices[0]
	want := map[string][2]string{
		"series":      {ex.Series, "4"},
		"distance":    {ex.Distance, "0.75"},
		"duration":    {ex.Duration, "90"},
		"repetitions": {ex.Repetitions, "-3"},
		"restTime":    {ex.RestTime, "45.5"},
	}
	for field, got := range want {
		if got[0] != got[1] {
			t.Errorf("%s = %q, want %q", field, got[0], got[1])
		}
	}
}

func TestMap_FloatInputFromPlainUnmarshal(t *testing.T) {
	var raw any
	if err := json.Unmarshal([]byte(`{"exercices":[{"series":3}]}`), &raw); err != nil {
		t.Fatal(err)
	}
	p, err := Mapper{}.Map(raw, mustDate(t, "2024-01-01"))
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if p.Exercices[0].Series != "3" {
		t.Errorf("series = %q, want 3", p.Exercices[0].Series)
	}
}

func TestMap_Deduplicates(t *testing.T) {
	raw := decode(t, `{"exercices": [
		{"type": "Street Workout", "subType": "Pompes", "series": "4"},
		{"type": "Street Workout", "subType": "Pompes", "series": "9"},
		{"type": "Street Workout", "subType": "Dips"},
		{"type": "Street Workout", "subType": "Inconnu"}
	]}`)
	log := &recordingLogger{}

	p, err := Mapper{Normalizer: Normalizer{Log: log}}.Map(raw, mustDate(t, "2024-01-01"))
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	// The unknown sub-type corrects to Pompes and collides with the first entry.
	if len(p.Exercices) != 2 {
		t.Fatalf("exercices = %d, want 2: %+v", len(p.Exercices), p.Exercices)
	}
	if p.Exercices[0].Series != "4" {
		t.Errorf("first occurrence not kept: series = %q", p.Exercices[0].Series)
	}
	if p.Exercices[1].SubType != "Dips" {
		t.Errorf("second exercise = %q, want Dips", p.Exercices[1].SubType)
	}
	if len(log.debugs) != 2 {
		t.Errorf("duplicate debug logs = %d, want 2", len(log.debugs))
	}
}

func TestMap_SubTypesAlwaysInVocabulary(t *testing.T) {
	raw := decode(t, `{"exercices": [
		{"type": "Course", "subType": "Nage"},
		{"type": "Plyometrie", "subType": "Skaters"},
		{"type": "Yoga", "subType": "Lotus"},
		{"type": 42, "subType": ["x"]},
		"not an object",
		{"type": "shadow boxing", "subType": "Travail vitesse"}
	]}`)

	p, err := Mapper{}.Map(raw, mustDate(t, "2024-01-01"))
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	for _, ex := range p.Exercices {
		if !slices.Contains(AllowedSubTypes(ex.Type), ex.SubType) {
			t.Errorf("exercise %q/%q outside vocabulary", ex.Type, ex.SubType)
		}
	}
	last := p.Exercices[len(p.Exercices)-1]
	if last.Type != ShadowBoxing || last.SubType != "Travail vitesse" {
		t.Errorf("last = %q/%q", last.Type, last.SubType)
	}
}

func TestMap_MissingExercises(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"absent", `{"nom": "x"}`},
		{"object", `{"exercices": {"type": "Course"}}`},
		{"string", `{"exercices": "none"}`},
		{"array root", `[{"exercices": []}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Mapper{}.Map(decode(t, tt.raw), mustDate(t, "2024-01-01"))
			if !errors.Is(err, ErrMissingExercises) {
				t.Errorf("err = %v, want ErrMissingExercises", err)
			}
		})
	}
}

func TestMap_EmptyExercisesIsValid(t *testing.T) {
	p, err := Mapper{}.Map(decode(t, `{"exercices": []}`), mustDate(t, "2024-01-01"))
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if len(p.Exercices) != 0 {
		t.Errorf("exercices = %d, want 0", len(p.Exercices))
	}
	out, _ := json.Marshal(p)
	if !json.Valid(out) || !strings.Contains(string(out), `"exercices":[]`) {
		t.Errorf("marshalled = %s, want empty exercices array", out)
	}
}

// --- Fallback ---

func TestFallbackProgram(t *testing.T) {
	p := FallbackProgram(mustDate(t, "2024-05-10"))

	if p.Date != "2024-05-10" {
		t.Errorf("date = %q", p.Date)
	}
	if p.Commentaire != FallbackComment {
		t.Errorf("commentaire = %q", p.Commentaire)
	}
	if len(p.Exercices) != 2 {
		t.Fatalf("exercices = %d, want 2", len(p.Exercices))
	}
	if p.Exercices[0].Type != StreetWorkout || p.Exercices[1].Type != Course {
		t.Errorf("types = %q, %q", p.Exercices[0].Type, p.Exercices[1].Type)
	}
	for _, ex := range p.Exercices {
		if !slices.Contains(AllowedSubTypes(ex.Type), ex.SubType) {
			t.Errorf("fallback exercise %q/%q outside vocabulary", ex.Type, ex.SubType)
		}
		if ex.Accompli {
			t.Error("fallback exercise marked accompli")
		}
	}
}

func TestFallbackProgram_FreshEachCall(t *testing.T) {
	d := mustDate(t, "2024-05-10")
	a := FallbackProgram(d)
	a.Exercices[0].Series = "99"
	if b := FallbackProgram(d); b.Exercices[0].Series != "3" {
		t.Errorf("fallback shared state: series = %q", b.Exercices[0].Series)
	}
}

func TestDisplayName(t *testing.T) {
	got := DisplayName(mustDate(t, "2024-12-25"))
	if want := fmt.Sprintf("Programme IA – %s", "2024-12-25"); got != want {
		t.Errorf("DisplayName = %q, want %q", got, want)
	}
}
