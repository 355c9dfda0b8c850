package registry

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/medscribe/internal/models"
)

// tickingClock returns a clock that advances one second per call.
func tickingClock() func() time.Time {
	t := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestAdd_assignsMonotonicIDs(t *testing.T) {
	r := New(WithClock(tickingClock()))
	id1, ok := r.Add(models.SourceAudio, "consult.mp3", "patient has a cough", nil)
	if !ok || id1 != 1 {
		t.Fatalf("first add: id=%d ok=%v", id1, ok)
	}
	id2, _ := r.Add(models.SourceOCR, "labs.png", "Hb 12.1", nil)
	r.Discard(id2)
	id3, _ := r.Add(models.SourceManual, "note", "follow up", nil)
	if id3 != 3 {
		t.Errorf("ids must never be reused: got %d, want 3", id3)
	}
	got, _ := r.Get(id1)
	if got.Status != models.StatusPending || got.EditedText != got.RawText || got.WordCount != 4 {
		t.Errorf("new source: %+v", got)
	}
	if got.CreatedAt.IsZero() || got.ConfirmedAt != nil {
		t.Errorf("timestamps: created=%v confirmed=%v", got.CreatedAt, got.ConfirmedAt)
	}
}

func TestAdd_emptyTextIsIgnored(t *testing.T) {
	r := New()
	for _, text := range []string{"", "   \n\t"} {
		if id, ok := r.Add(models.SourceAudio, "silence.wav", text, nil); ok || id != 0 {
			t.Errorf("Add(%q) = %d, %v; want 0, false", text, id, ok)
		}
	}
	if r.Len() != 0 {
		t.Errorf("registry should stay empty, has %d", r.Len())
	}
}

func TestGet_returnsCopy(t *testing.T) {
	r := New()
	id, _ := r.Add(models.SourceOCR, "scan.jpg", "text", map[string]interface{}{"size_kb": 12.5})
	got, ok := r.Get(id)
	if !ok {
		t.Fatal("source not found")
	}
	got.EditedText = "mutated"
	got.Metadata["size_kb"] = 0
	again, _ := r.Get(id)
	if again.EditedText != "text" || again.Metadata["size_kb"] != 12.5 {
		t.Errorf("registry state leaked through copy: %+v", again)
	}
	if _, ok := r.Get(99); ok {
		t.Error("unknown id should not be found")
	}
}

func TestUpdateText_recomputesWordCount(t *testing.T) {
	r := New()
	id, _ := r.Add(models.SourceOCR, "scan.jpg", "one two three four five", nil)
	if !r.UpdateText(id, "just two") {
		t.Fatal("UpdateText returned false")
	}
	got, _ := r.Get(id)
	if got.WordCount != 2 {
		t.Errorf("word count = %d, want 2", got.WordCount)
	}
	if got.RawText != "one two three four five" {
		t.Errorf("raw text must not change: %q", got.RawText)
	}
	if got.Status != models.StatusPending {
		t.Errorf("editing must not change status: %s", got.Status)
	}
	if r.UpdateText(42, "x") {
		t.Error("UpdateText on unknown id should be a no-op")
	}
}

func TestConfirm_idempotent(t *testing.T) {
	r := New(WithClock(tickingClock()))
	id, _ := r.Add(models.SourceAudio, "a.mp3", "text", nil)
	if !r.Confirm(id) {
		t.Fatal("Confirm returned false")
	}
	first, _ := r.Get(id)
	if first.Status != models.StatusConfirmed || first.ConfirmedAt == nil {
		t.Fatalf("after confirm: %+v", first)
	}
	r.Confirm(id)
	second, _ := r.Get(id)
	if !second.ConfirmedAt.Equal(*first.ConfirmedAt) {
		t.Errorf("re-confirm changed timestamp: %v -> %v", first.ConfirmedAt, second.ConfirmedAt)
	}
	if r.Confirm(77) {
		t.Error("Confirm on unknown id should return false")
	}
}

func TestBulkConfirm_idempotent(t *testing.T) {
	r := New(WithClock(tickingClock()))
	a, _ := r.Add(models.SourceAudio, "a.mp3", "alpha", nil)
	b, _ := r.Add(models.SourceOCR, "b.png", "beta", nil)
	c, _ := r.Add(models.SourceManual, "c", "gamma", nil)
	r.Confirm(a)
	before, _ := r.Get(a)

	if n := r.BulkConfirm(); n != 2 {
		t.Errorf("first BulkConfirm changed %d, want 2", n)
	}
	gotB, _ := r.Get(b)
	gotC, _ := r.Get(c)
	if !gotB.ConfirmedAt.Equal(*gotC.ConfirmedAt) {
		t.Errorf("bulk confirm should share one timestamp: %v vs %v", gotB.ConfirmedAt, gotC.ConfirmedAt)
	}
	afterA, _ := r.Get(a)
	if !afterA.ConfirmedAt.Equal(*before.ConfirmedAt) {
		t.Error("already confirmed source should keep its timestamp")
	}

	snapshot := r.ListConfirmed()
	if n := r.BulkConfirm(); n != 0 {
		t.Errorf("second BulkConfirm changed %d, want 0", n)
	}
	again := r.ListConfirmed()
	if len(again) != len(snapshot) {
		t.Fatalf("confirmed set changed: %d -> %d", len(snapshot), len(again))
	}
	for i := range again {
		if again[i].ID != snapshot[i].ID || !again[i].ConfirmedAt.Equal(*snapshot[i].ConfirmedAt) {
			t.Errorf("source %d changed on second bulk confirm", again[i].ID)
		}
	}
}

func TestDiscard_removesFromEveryView(t *testing.T) {
	r := New()
	a, _ := r.Add(models.SourceAudio, "a.mp3", "alpha", nil)
	b, _ := r.Add(models.SourceOCR, "b.png", "beta", nil)
	r.Confirm(a)
	if r.AllConfirmed() {
		t.Fatal("b is still pending")
	}
	if !r.Discard(b) {
		t.Fatal("Discard returned false")
	}
	for name, list := range map[string][]models.Source{
		"all": r.ListAll(), "pending": r.ListPending(), "confirmed": r.ListConfirmed(),
	} {
		for _, s := range list {
			if s.ID == b {
				t.Errorf("discarded source still in %s view", name)
			}
		}
	}
	if !r.AllConfirmed() {
		t.Error("remaining set is fully confirmed")
	}
	r.Discard(a)
	if r.AllConfirmed() {
		t.Error("empty registry is never all-confirmed")
	}
	if r.Discard(a) {
		t.Error("discarding twice should return false")
	}
}

func TestListViews_preserveInsertionOrder(t *testing.T) {
	r := New()
	var ids []int
	for _, name := range []string{"1.png", "2.png", "3.png", "4.png"} {
		id, _ := r.Add(models.SourceOCR, name, "text "+name, nil)
		ids = append(ids, id)
	}
	r.Confirm(ids[3])
	r.Confirm(ids[1])
	confirmed := r.ListConfirmed()
	if len(confirmed) != 2 || confirmed[0].ID != ids[1] || confirmed[1].ID != ids[3] {
		t.Errorf("confirmed order: %+v", confirmed)
	}
	pending := r.ListPending()
	if len(pending) != 2 || pending[0].ID != ids[0] || pending[1].ID != ids[2] {
		t.Errorf("pending order: %+v", pending)
	}
}

func TestCombinedText(t *testing.T) {
	r := New()
	if r.CombinedText() != "" {
		t.Error("empty registry yields empty text")
	}
	a, _ := r.Add(models.SourceAudio, "consult.mp3", "Patient reports headache.", nil)
	b, _ := r.Add(models.SourceOCR, "labs.png", "PENDING TEXT", nil)
	c, _ := r.Add(models.SourceOCR, "xray.jpg", "No fracture.", nil)
	d, _ := r.Add(models.SourceManual, "gone", "DISCARDED TEXT", nil)
	if r.CombinedText() != "" {
		t.Error("nothing confirmed yields empty text")
	}
	r.Confirm(c)
	r.Confirm(a)
	r.Confirm(d)
	r.Discard(d)
	r.UpdateText(a, "Patient reports severe headache.")
	_ = b

	rule := strings.Repeat("=", 60)
	want := "\n" + rule + "\nSOURCE: consult.mp3 (AUDIO)\n" + rule + "\n\nPatient reports severe headache.\n\n" +
		"\n\n" + rule + "\nSOURCE: xray.jpg (OCR)\n" + rule + "\n\nNo fracture.\n\n"
	got := r.CombinedText()
	if got != want {
		t.Errorf("CombinedText mismatch\n got: %q\nwant: %q", got, want)
	}
	if strings.Contains(got, "PENDING TEXT") || strings.Contains(got, "DISCARDED TEXT") {
		t.Error("combined text must exclude pending and discarded sources")
	}
	if strings.Index(got, "consult.mp3") > strings.Index(got, "xray.jpg") {
		t.Error("combined text must keep insertion order")
	}
}

func TestSummary_scenario(t *testing.T) {
	r := New()
	r.Add(models.SourceAudio, "consult.mp3", "three word text", nil)
	r.Add(models.SourceOCR, "report.png", "two words", nil)

	sum := r.Summary()
	if sum.Total != 2 || sum.Confirmed != 0 || sum.Pending != 2 {
		t.Errorf("before bulk confirm: %+v", sum)
	}
	if sum.TotalWords != 0 {
		t.Errorf("total words counts confirmed only, got %d", sum.TotalWords)
	}

	r.BulkConfirm()
	sum = r.Summary()
	if sum.Total != 2 || sum.Confirmed != 2 || sum.Pending != 0 {
		t.Errorf("after bulk confirm: %+v", sum)
	}
	if sum.TotalWords != 5 {
		t.Errorf("total words = %d, want 5", sum.TotalWords)
	}
	if sum.ByType[models.SourceAudio] != 1 || sum.ByType[models.SourceOCR] != 1 || sum.ByType[models.SourceManual] != 0 {
		t.Errorf("by type = %v", sum.ByType)
	}
	if _, ok := sum.ByType[models.SourceManual]; !ok {
		t.Error("by type should list every type")
	}
	if !r.AllConfirmed() {
		t.Error("all sources confirmed")
	}
}

func TestClear(t *testing.T) {
	r := New()
	r.Add(models.SourceManual, "n", "note", nil)
	r.Clear()
	if r.Len() != 0 || r.AllConfirmed() {
		t.Error("Clear should empty the registry")
	}
	if id, _ := r.Add(models.SourceManual, "n2", "note", nil); id != 2 {
		t.Errorf("ids continue after Clear: got %d", id)
	}
}

// TestAllConfirmed_randomSequences checks the all-confirmed predicate against a
// simple model over random add/confirm/discard sequences.
func TestAllConfirmed_randomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for run := 0; run < 200; run++ {
		r := New()
		model := map[int]bool{} // id -> confirmed
		var ids []int
		for step := 0; step < 30; step++ {
			switch op := rng.Intn(4); {
			case op == 0 || len(ids) == 0:
				id, _ := r.Add(models.SourceOCR, "f", "word", nil)
				ids = append(ids, id)
				model[id] = false
			case op == 1:
				id := ids[rng.Intn(len(ids))]
				r.Confirm(id)
				if _, ok := model[id]; ok {
					model[id] = true
				}
			case op == 2:
				id := ids[rng.Intn(len(ids))]
				r.Discard(id)
				delete(model, id)
			case op == 3:
				r.BulkConfirm()
				for id := range model {
					model[id] = true
				}
			}
			want := len(model) > 0
			for _, confirmed := range model {
				if !confirmed {
					want = false
				}
			}
			if got := r.AllConfirmed(); got != want {
				t.Fatalf("run %d step %d: AllConfirmed = %v, want %v", run, step, got, want)
			}
			if r.Len() != len(model) {
				t.Fatalf("run %d step %d: Len = %d, want %d", run, step, r.Len(), len(model))
			}
		}
	}
}
