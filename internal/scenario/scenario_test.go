package scenario

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mejango/rev-sim/internal/ledger"
	"github.com/mejango/rev-sim/internal/model"
	"github.com/mejango/rev-sim/internal/stage"
)

// --- Preset tests ---

func TestPresets_AllReplayable(t *testing.T) {
	for _, sc := range Presets() {
		tl, err := stage.NewTimeline(sc.Stages)
		if err != nil {
			t.Errorf("%s: invalid stages: %v", sc.ID, err)
			continue
		}
		eng, err := ledger.NewEngine(model.NewEventLog(sc.Events), tl)
		if err != nil {
			t.Errorf("%s: engine failed: %v", sc.ID, err)
			continue
		}

		// Every preset ends with positive supply and backing.
		st := eng.StateAt(eng.MaxDay())
		if !st.TotalSupply.IsPositive() {
			t.Errorf("%s: final supply not positive: %s", sc.ID, st.TotalSupply)
		}
		if !st.Backing.IsPositive() {
			t.Errorf("%s: final backing not positive: %s", sc.ID, st.Backing)
		}
	}
}

func TestPresets_UniqueIDsAndNames(t *testing.T) {
	ids := map[string]bool{}
	names := map[string]bool{}
	for _, sc := range Presets() {
		if ids[sc.ID] {
			t.Errorf("duplicate preset ID %q", sc.ID)
		}
		if names[sc.Name] {
			t.Errorf("duplicate preset name %q", sc.Name)
		}
		ids[sc.ID] = true
		names[sc.Name] = true
	}
}

func TestPresets_AllEventsAdmissible(t *testing.T) {
	for _, sc := range Presets() {
		log := model.NewEventLog(sc.Events)
		if log.Len() != len(sc.Events) {
			t.Errorf("%s: %d of %d events dropped by the log filter",
				sc.ID, len(sc.Events)-log.Len(), len(sc.Events))
		}
	}
}

func TestPresetByID(t *testing.T) {
	sc, ok := PresetByID("default-sample")
	if !ok || sc.Name != "Default Sample" {
		t.Errorf("expected default-sample preset, got (%+v, %v)", sc, ok)
	}
	if _, ok := PresetByID("missing"); ok {
		t.Error("expected miss for unknown preset ID")
	}
}

// --- Import/export tests ---

func TestExportImport_RoundTrip(t *testing.T) {
	orig, _ := PresetByID("default-sample")

	var buf bytes.Buffer
	if err := ExportJSON(&buf, orig); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	got, err := ImportJSON(&buf)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}

	if got.Name != orig.Name || len(got.Events) != len(orig.Events) || len(got.Stages) != len(orig.Stages) {
		t.Errorf("round trip changed scenario: %+v", got)
	}
	for i, ev := range got.Events {
		if ev.Day != orig.Events[i].Day || ev.Kind != orig.Events[i].Kind {
			t.Errorf("event %d changed: %+v != %+v", i, ev, orig.Events[i])
		}
		if !ev.Amount.Equal(orig.Events[i].Amount) {
			t.Errorf("event %d amount changed: %s != %s", i, ev.Amount, orig.Events[i].Amount)
		}
	}
}

func TestImportJSON_DefaultsStages(t *testing.T) {
	sc, err := ImportJSON(strings.NewReader(`{"name":"Bare","events":[]}`))
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if len(sc.Stages) != 1 {
		t.Errorf("expected default stages filled in, got %d", len(sc.Stages))
	}
}

func TestImportJSON_Malformed(t *testing.T) {
	if _, err := ImportJSON(strings.NewReader(`{not json`)); err == nil {
		t.Error("expected error for malformed input")
	}
}

func TestImportJSON_RejectsBadEventType(t *testing.T) {
	in := `{"name":"Bad","events":[{"day":0,"type":"bogus","amount":"1"}]}`
	if _, err := ImportJSON(strings.NewReader(in)); err == nil {
		t.Error("expected error for unknown event type")
	}
}

func TestExportFilename(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Conservative Growth", "conservative_growth.json"},
		{"VC-Fueled Growth!", "vc_fueled_growth.json"},
		{"   ", "scenario.json"},
	}
	for _, tc := range cases {
		if got := ExportFilename(tc.in); got != tc.want {
			t.Errorf("ExportFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

// --- Default stage tests ---

func TestDefaultStages_Valid(t *testing.T) {
	tl, err := stage.NewTimeline(DefaultStages())
	if err != nil {
		t.Fatalf("default stages invalid: %v", err)
	}
	cfg := tl.AtDay(0)
	if !cfg.OpenEnded {
		t.Error("default stage should be open-ended")
	}
	if !cfg.InvestorSplit.Equal(cfg.Splits["Team"]) {
		t.Errorf("expected 50/50 split, got investor=%s team=%s",
			cfg.InvestorSplit, cfg.Splits["Team"])
	}
}
