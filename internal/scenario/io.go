package scenario

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/mejango/rev-sim/internal/model"
)

// ExportJSON writes the scenario in the shared wire format, indented for
// human-editable files.
func ExportJSON(w io.Writer, s model.Scenario) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("export scenario %q: %w", s.Name, err)
	}
	return nil
}

// ImportJSON reads a scenario from the wire format. Scenarios exported
// without stages fall back to the default single-stage configuration.
func ImportJSON(r io.Reader) (model.Scenario, error) {
	var s model.Scenario
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return model.Scenario{}, fmt.Errorf("import scenario: %w", err)
	}
	if len(s.Stages) == 0 {
		s.Stages = DefaultStages()
	}
	return s, nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-z0-9]+`)

// ExportFilename derives a download filename from a scenario name.
func ExportFilename(name string) string {
	slug := unsafeFilenameChars.ReplaceAllString(strings.ToLower(name), "_")
	slug = strings.Trim(slug, "_")
	if slug == "" {
		slug = "scenario"
	}
	return slug + ".json"
}
