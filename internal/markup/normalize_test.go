package markup

import (
	"errors"
	"strings"
	"testing"

	"textinput-service/internal/domain"
)

const lesson = `<section>
<asq-text-input-q id="no-uid"><asq-stem>This is a stem</asq-stem></asq-text-input-q>
<asq-text-input-q id="uid" uid="a-uid">
  <asq-stem><h2>Root of 9?</h2></asq-stem>
  <asq-solution>^3$</asq-solution>
  <asq-solution>three</asq-solution>
  <asq-hint><em>odd</em> number</asq-hint>
</asq-text-input-q>
<asq-text-input-q-stats for="uid" show-viewer="all"></asq-text-input-q-stats>
<asq-text-input-q-stats for="missing"></asq-text-input-q-stats>
</section>`

func fixedUID(id string) func() string {
	return func() string { return id }
}

func TestNormalizeExtractsQuestions(t *testing.T) {
	res, err := Normalize(lesson, fixedUID("generated"))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(res.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(res.Questions))
	}

	first := res.Questions[0]
	if first.UID != "generated" {
		t.Fatalf("expected generated uid, got %q", first.UID)
	}
	if first.Data.Stem != "This is a stem" {
		t.Fatalf("unexpected stem %q", first.Data.Stem)
	}
	if first.HasSolution() || first.Data.Hint != "" {
		t.Fatalf("expected ungraded question, got %+v", first.Data)
	}

	second := res.Questions[1]
	if second.UID != "a-uid" {
		t.Fatalf("expected existing uid kept, got %q", second.UID)
	}
	if second.Type != domain.TextInputType {
		t.Fatalf("unexpected type %q", second.Type)
	}
	if second.Data.Stem != "<h2>Root of 9?</h2>" {
		t.Fatalf("unexpected stem %q", second.Data.Stem)
	}
	if second.Data.Solution != "^3$" {
		t.Fatalf("expected first solution, got %q", second.Data.Solution)
	}
	if second.Data.Hint != "<em>odd</em> number" {
		t.Fatalf("unexpected hint %q", second.Data.Hint)
	}
	if strings.Contains(second.Data.HTML, "asq-solution") || strings.Contains(second.Data.HTML, "asq-hint") {
		t.Fatalf("stored html leaks solution or hint: %s", second.Data.HTML)
	}
}

func TestNormalizeStripsAuthoringElements(t *testing.T) {
	res, err := Normalize(lesson, fixedUID("generated"))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	for _, leaked := range []string{"asq-solution", "asq-hint", "three", "^3$"} {
		if strings.Contains(res.HTML, leaked) {
			t.Fatalf("output still contains %q: %s", leaked, res.HTML)
		}
	}
	if !strings.Contains(res.HTML, `uid="generated"`) {
		t.Fatalf("expected assigned uid in output: %s", res.HTML)
	}
	if !strings.Contains(res.HTML, `for-uid="a-uid"`) {
		t.Fatalf("expected for-uid on stats element: %s", res.HTML)
	}
}

func TestNormalizeStats(t *testing.T) {
	res, err := Normalize(lesson, fixedUID("generated"))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(res.Stats) != 1 {
		t.Fatalf("expected stats for existing question only, got %+v", res.Stats)
	}
	if res.Stats[0].QuestionUID != "a-uid" || res.Stats[0].ShowViewer != domain.ShowViewerAll {
		t.Fatalf("unexpected stats %+v", res.Stats[0])
	}
}

func TestNormalizeStatsDefaultsToSelf(t *testing.T) {
	src := `<asq-text-input-q id="q"></asq-text-input-q><asq-text-input-q-stats for="q"></asq-text-input-q-stats>`
	res, err := Normalize(src, fixedUID("u1"))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(res.Stats) != 1 || res.Stats[0].ShowViewer != domain.ShowViewerSelf {
		t.Fatalf("expected self visibility, got %+v", res.Stats)
	}
}

func TestNormalizeRejectsUnknownShowViewer(t *testing.T) {
	src := `<asq-text-input-q id="q"></asq-text-input-q><asq-text-input-q-stats for="q" show-viewer="everyone"></asq-text-input-q-stats>`
	_, err := Normalize(src, fixedUID("u1"))
	if !errors.Is(err, domain.ErrInvalidShowViewer) {
		t.Fatalf("expected ErrInvalidShowViewer, got %v", err)
	}
}

func TestNormalizeIgnoresStatsForOtherElements(t *testing.T) {
	src := `<div id="q"></div><asq-text-input-q-stats for="q" show-viewer="all"></asq-text-input-q-stats>`
	res, err := Normalize(src, fixedUID("u1"))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(res.Stats) != 0 || len(res.Questions) != 0 {
		t.Fatalf("expected nothing extracted, got %+v", res)
	}
}

func TestNormalizeIsRepeatable(t *testing.T) {
	first, err := Normalize(lesson, fixedUID("generated"))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	second, err := Normalize(lesson, fixedUID("generated"))
	if err != nil {
		t.Fatalf("normalize again: %v", err)
	}
	if first.HTML != second.HTML {
		t.Fatalf("expected identical output for identical input")
	}

	// feeding the output back keeps the assigned uids
	again, err := Normalize(first.HTML, fixedUID("other"))
	if err != nil {
		t.Fatalf("normalize output: %v", err)
	}
	if again.Questions[0].UID != "generated" {
		t.Fatalf("expected uid to survive re-parse, got %q", again.Questions[0].UID)
	}
}

func TestNormalizeFullDocument(t *testing.T) {
	src := `<!DOCTYPE html><html><head><title>t</title></head><body><asq-text-input-q><asq-solution>x</asq-solution></asq-text-input-q></body></html>`
	res, err := Normalize(src, fixedUID("u1"))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if !strings.HasPrefix(res.HTML, "<!DOCTYPE html>") || !strings.Contains(res.HTML, "<title>t</title>") {
		t.Fatalf("expected full document preserved, got %s", res.HTML)
	}
	if len(res.Questions) != 1 || res.Questions[0].Data.Solution != "x" {
		t.Fatalf("unexpected questions %+v", res.Questions)
	}
}

func TestNormalizeSelfClosingCustomElements(t *testing.T) {
	src := `<section><asq-text-input-q-stats for="a" show-viewer="all"/><asq-text-input-q id="a"><asq-stem>Stem</asq-stem><asq-solution>x</asq-solution></asq-text-input-q><p>after</p><br/></section>`
	res, err := Normalize(src, fixedUID("u1"))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(res.Questions) != 1 || len(res.Stats) != 1 {
		t.Fatalf("expected one question and one stats config, got %+v / %+v", res.Questions, res.Stats)
	}
	if res.Stats[0].QuestionUID != "u1" || res.Stats[0].ShowViewer != domain.ShowViewerAll {
		t.Fatalf("unexpected stats %+v", res.Stats[0])
	}
	for _, want := range []string{
		`for-uid="u1"></asq-text-input-q-stats><asq-text-input-q id="a" uid="u1">`,
		`</asq-text-input-q><p>after</p>`,
		`</p><br/></section>`,
	} {
		if !strings.Contains(res.HTML, want) {
			t.Fatalf("self-closing stats element swallowed its siblings, missing %q in %s", want, res.HTML)
		}
	}
}
