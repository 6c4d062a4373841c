package family

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go-melody/config"
)

func loadReference(t *testing.T) *Table {
	t.Helper()
	table, err := Load(filepath.Join("..", "data", "instruments.json"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	return table
}

func TestReferenceTableHasSixteenFamilies(t *testing.T) {
	table := loadReference(t)
	if table.Len() != 16 {
		t.Fatalf("Len() = %d, want 16", table.Len())
	}
	if table.Name(0) != "Piano" {
		t.Fatalf("family 0 = %q, want Piano", table.Name(0))
	}
	if got := table.Normalized(0); got != 0 {
		t.Fatalf("Normalized(0) = %f, want 0", got)
	}
	if got := table.Normalized(40); got != 5.0/16.0 {
		t.Fatalf("Normalized(40) = %f, want %f", got, 5.0/16.0)
	}
}

func TestRepresentativeProgramStaysInFamily(t *testing.T) {
	table := loadReference(t)
	for p := 0; p < 128; p++ {
		program := uint8(p)
		norm := table.Normalized(program)
		if norm < 0 || norm >= 1 {
			t.Fatalf("Normalized(%d) = %f outside [0,1)", p, norm)
		}
		rep := table.RepresentativeProgram(norm)
		if table.Family(rep) != table.Family(program) {
			t.Fatalf("program %d: representative %d is in family %d, want %d",
				p, rep, table.Family(rep), table.Family(program))
		}
	}
}

func TestFirstOccurrenceFixesIDAndRepresentative(t *testing.T) {
	table, err := Parse(strings.NewReader(`[
		{"hexcode": "0x10", "family": "Organ"},
		{"hexcode": "0x00", "family": "Piano"},
		{"hexcode": "0x11", "family": "Organ"},
		{"hexcode": "2a", "family": "Strings"}
	]`))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if table.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", table.Len())
	}
	if table.Family(0x11) != 0 || table.Family(0x00) != 1 || table.Family(0x2a) != 2 {
		t.Fatalf("unexpected family ids")
	}
	if rep := table.RepresentativeProgram(table.Normalized(0x11)); rep != 0x10 {
		t.Fatalf("representative = %#x, want 0x10", rep)
	}
	// unknown programs default to family 0
	if table.Family(100) != 0 {
		t.Fatalf("unknown program family = %d, want 0", table.Family(100))
	}
}

func TestRepresentativeProgramClamps(t *testing.T) {
	table := loadReference(t)
	if got := table.RepresentativeProgram(1.5); table.Family(got) != table.Len()-1 {
		t.Fatalf("RepresentativeProgram(1.5) = %d, expected last family", got)
	}
	if got := table.RepresentativeProgram(-1); got != 0 {
		t.Fatalf("RepresentativeProgram(-1) = %d, want 0", got)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: `{{`},
		{name: "empty", data: `[]`},
		{name: "missing family", data: `[{"hexcode": "0x00"}]`},
		{name: "bad hexcode", data: `[{"hexcode": "zz", "family": "Piano"}]`},
		{name: "out of range", data: `[{"hexcode": "0xFF", "family": "Piano"}]`},
		{name: "object", data: `{"hexcode": "0x00", "family": "Piano"}`},
	}

	for _, tt := range tests {
		if _, err := Parse(strings.NewReader(tt.data)); err == nil {
			t.Fatalf("%s: expected error", tt.name)
		}
	}
}

func TestLoadMissingFileIsConfigError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if !config.IsConfig(err) {
		t.Fatalf("expected config error, got %v", err)
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte(`[1, 2]`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); !config.IsConfig(err) {
		t.Fatalf("expected config error for malformed file, got %v", err)
	}
}
