// Package family groups General MIDI programs into coarse instrument families.
//
// A Table is built once from a reference file and never changes afterwards;
// callers construct it at startup and pass it to whatever needs lookups.
package family

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"go-melody/config"
)

//go:embed schema.json
var schemaData []byte

// Entry is one record of the reference file
type Entry struct {
	Hexcode    string `json:"hexcode"`
	Family     string `json:"family"`
	Instrument string `json:"instrument,omitempty"`
}

// Table maps program numbers to family ids and back
type Table struct {
	names          []string      // family id -> name
	representative []uint8       // family id -> first program seen
	byProgram      map[uint8]int // program -> family id
}

// Load reads and validates a reference file
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, config.Wrap(err, fmt.Sprintf("instrument reference file %s could not be opened", path))
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return nil, config.Wrap(err, fmt.Sprintf("instrument reference file %s is malformed", path))
	}
	return t, nil
}

// Parse builds a table from a JSON array of {hexcode, family} objects.
// The first occurrence of a family name fixes its id and its representative program.
func Parse(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	if err := validate(data); err != nil {
		return nil, err
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return FromEntries(entries)
}

// FromEntries builds a table from already decoded entries
func FromEntries(entries []Entry) (*Table, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("no instruments in reference data")
	}

	t := &Table{byProgram: make(map[uint8]int)}
	ids := make(map[string]int)

	for i, e := range entries {
		program, err := parseHex(e.Hexcode)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}

		id, ok := ids[e.Family]
		if !ok {
			id = len(t.names)
			ids[e.Family] = id
			t.names = append(t.names, e.Family)
			t.representative = append(t.representative, program)
		}
		t.byProgram[program] = id
	}
	return t, nil
}

func validate(data []byte) error {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaData))
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return err
	}
	if !result.Valid() {
		var msgs []string
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("invalid reference data: %s", strings.Join(msgs, "; "))
	}
	return nil
}

func parseHex(s string) (uint8, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0, fmt.Errorf("bad hexcode %q", s)
	}
	if v > 127 {
		return 0, fmt.Errorf("program %d out of range", v)
	}
	return uint8(v), nil
}

// Len returns the number of distinct families
func (t *Table) Len() int {
	return len(t.names)
}

// Name returns the family name for an id
func (t *Table) Name(id int) string {
	if id < 0 || id >= len(t.names) {
		return ""
	}
	return t.names[id]
}

// Family returns the family id of a program; unknown programs fall into family 0
func (t *Table) Family(program uint8) int {
	return t.byProgram[program]
}

// Normalized returns the family id scaled into [0, 1)
func (t *Table) Normalized(program uint8) float64 {
	return float64(t.Family(program)) / float64(len(t.names))
}

// RepresentativeProgram maps a normalized family value back to the first
// program listed for that family
func (t *Table) RepresentativeProgram(normalized float64) uint8 {
	// epsilon absorbs the rounding of id/n*n for family counts that aren't powers of two
	id := int(math.Floor(normalized*float64(len(t.names)) + 1e-9))
	id = max(0, min(id, len(t.names)-1))
	return t.representative[id]
}
