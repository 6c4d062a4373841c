package dataset

import (
	"bytes"
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"go-melody/family"
	"go-melody/midi"
	"go-melody/roll"
	"go-melody/window"
)

func testTable(t *testing.T) *family.Table {
	t.Helper()
	table, err := family.FromEntries([]family.Entry{
		{Hexcode: "0x00", Family: "Piano"},
		{Hexcode: "0x49", Family: "Pipe"},
	})
	if err != nil {
		t.Fatalf("FromEntries() error: %v", err)
	}
	return table
}

// melody returns a roll of n alternating single-pitch steps
func melody(n int) roll.Roll {
	r := make(roll.Roll, n)
	for i := range r {
		row := make([]float64, roll.Width)
		row[60+i%2+1] = 1
		r[i] = row
	}
	return r
}

// writeMelody writes a one-track file of n quarter-second notes
func writeMelody(t *testing.T, dir, name string, program uint8, n int) string {
	t.Helper()
	tr := &midi.Track{Program: program}
	for i := 0; i < n; i++ {
		start := float64(i) * 0.25
		tr.Notes = append(tr.Notes, midi.Note{Pitch: uint8(60 + i%5), Start: start, End: start + 0.25, Velocity: 100})
	}
	path := filepath.Join(dir, name)
	if err := midi.WriteFile(path, []*midi.Track{tr}, midi.DefaultTempo); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func testLoader(t *testing.T, windowSize int) *Loader {
	return &Loader{
		Encoder: Encoder{
			Table:      testTable(t),
			WindowSize: windowSize,
			FS:         roll.DefaultFS,
			Threshold:  roll.StrictThreshold,
		},
		Workers: 3,
	}
}

func TestLoaderSkipsFailingFiles(t *testing.T) {
	dir := t.TempDir()
	good1 := writeMelody(t, dir, "a.mid", 0, 30)
	good2 := writeMelody(t, dir, "b.mid", 73, 30)
	short := writeMelody(t, dir, "c.mid", 0, 4)
	garbage := filepath.Join(dir, "d.mid")
	if err := os.WriteFile(garbage, []byte("not a midi file"), 0644); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "missing.mid")

	l := testLoader(t, 8)
	paths := []string{good1, short, garbage, good2, missing}
	results, err := l.Load(context.Background(), paths)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(results) != len(paths) {
		t.Fatalf("expected %d results, got %d", len(paths), len(results))
	}
	for i, r := range results {
		if r.Path != paths[i] {
			t.Fatalf("result %d is for %s, want %s", i, r.Path, paths[i])
		}
		wantErr := i == 1 || i == 2 || i == 4
		if (r.Err != nil) != wantErr {
			t.Fatalf("result %d: err = %v, want failure %v", i, r.Err, wantErr)
		}
		if r.Err != nil && !IsParse(r.Err) {
			t.Fatalf("result %d: error not tagged as parse failure: %v", i, r.Err)
		}
	}

	records, err := l.Records(context.Background(), paths)
	if err != nil {
		t.Fatalf("Records() error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Family != 0 || records[1].Family != 0.5 {
		t.Fatalf("families = %v, %v; want 0, 0.5", records[0].Family, records[1].Family)
	}
	if records[0].Roll.Len() != 30 || records[0].Roll.Cols() != roll.Width {
		t.Fatalf("roll is %d x %d, want 30 x %d", records[0].Roll.Len(), records[0].Roll.Cols(), roll.Width)
	}
}

func TestLoaderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := testLoader(t, 8)
	if _, err := l.Load(ctx, []string{"a.mid", "b.mid"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Load() error = %v, want context.Canceled", err)
	}
}

func TestEncoderSkipsDrumsAndPolyphony(t *testing.T) {
	mono := &midi.Track{Program: 73}
	poly := &midi.Track{Program: 0}
	drums := &midi.Track{IsDrum: true, Channel: midi.DrumChannel}
	for i := 0; i < 12; i++ {
		start := float64(i) * 0.25
		n := midi.Note{Pitch: 60, Start: start, End: start + 0.25, Velocity: 90}
		mono.Notes = append(mono.Notes, n)
		drums.Notes = append(drums.Notes, n)
		poly.Notes = append(poly.Notes, n, midi.Note{Pitch: 67, Start: start, End: start + 0.25, Velocity: 90})
	}

	e := Encoder{Table: testTable(t), WindowSize: 4, FS: roll.DefaultFS, Threshold: roll.StrictThreshold}
	records := e.Encode(&midi.File{Path: "x.mid", Tracks: []*midi.Track{poly, mono, drums}})
	if len(records) != 1 {
		t.Fatalf("expected only the monophonic track, got %d records", len(records))
	}
	if records[0].Family != 0.5 || records[0].Source != "x.mid" {
		t.Fatalf("unexpected record %+v", records[0])
	}
}

// countingPool records which indices each refill asked for
type countingPool struct {
	RecordPool
	calls [][]int
}

func (p *countingPool) Load(ctx context.Context, indices []int) ([]Record, error) {
	p.calls = append(p.calls, append([]int(nil), indices...))
	return p.RecordPool.Load(ctx, indices)
}

func TestGeneratorRoundRobinVisitsWholePool(t *testing.T) {
	const size, inRAM = 7, 3

	pool := &countingPool{}
	for i := 0; i < size; i++ {
		pool.RecordPool = append(pool.RecordPool, Record{Roll: melody(6)})
	}
	// each record yields 3 windows of size 2, one batch of 3
	g := NewGenerator(pool, GeneratorOptions{
		Window:    window.Options{Size: 2},
		BatchSize: 3,
		MaxInRAM:  inRAM,
	})

	ctx := context.Background()
	for g.Refills() < (size+inRAM-1)/inRAM {
		if _, err := g.Next(ctx); err != nil {
			t.Fatalf("Next() error: %v", err)
		}
	}

	seen := make(map[int]int)
	for _, call := range pool.calls {
		for _, i := range call {
			seen[i]++
		}
	}
	for i := 0; i < size; i++ {
		if seen[i] != 1 {
			t.Fatalf("item %d visited %d times in one cycle, calls %v", i, seen[i], pool.calls)
		}
	}

	// the next refill starts over at the beginning
	for g.Refills() == 3 {
		if _, err := g.Next(ctx); err != nil {
			t.Fatalf("Next() error: %v", err)
		}
	}
	if got := pool.calls[3]; !reflect.DeepEqual(got, []int{0, 1, 2}) {
		t.Fatalf("fourth refill = %v, want [0 1 2]", got)
	}
}

func TestGeneratorDropsPartialBatch(t *testing.T) {
	// 10 steps, window 2 -> 7 windows -> 2 batches of 3, one window dropped
	pool := &countingPool{RecordPool: RecordPool{{Roll: melody(10)}}}
	g := NewGenerator(pool, GeneratorOptions{
		Window:    window.Options{Size: 2},
		BatchSize: 3,
		MaxInRAM:  4,
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		b, err := g.Next(ctx)
		if err != nil {
			t.Fatalf("Next() error: %v", err)
		}
		if b.Len() != 3 || len(b.Targets) != 3 {
			t.Fatalf("batch %d has %d inputs and %d targets", i, b.Len(), len(b.Targets))
		}
		if len(b.Inputs[0]) != 2 {
			t.Fatalf("context length = %d, want 2", len(b.Inputs[0]))
		}
	}
	if g.Refills() != 1 {
		t.Fatalf("expected 1 refill, got %d", g.Refills())
	}
	if _, err := g.Next(ctx); err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if g.Refills() != 2 {
		t.Fatalf("third batch should come from a new refill, refills = %d", g.Refills())
	}
}

func TestGeneratorExhausted(t *testing.T) {
	ctx := context.Background()

	empty := NewGenerator(RecordPool{}, GeneratorOptions{Window: window.Options{Size: 2}, BatchSize: 1})
	if _, err := empty.Next(ctx); !errors.Is(err, ErrExhausted) {
		t.Fatalf("empty pool: err = %v, want ErrExhausted", err)
	}

	// rolls too short for a single window
	short := RecordPool{{Roll: melody(3)}, {Roll: melody(2)}, {Roll: melody(3)}}
	g := NewGenerator(short, GeneratorOptions{Window: window.Options{Size: 2}, BatchSize: 1, MaxInRAM: 2})
	if _, err := g.Next(ctx); !errors.Is(err, ErrExhausted) {
		t.Fatalf("short pool: err = %v, want ErrExhausted", err)
	}
}

func TestGeneratorCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewGenerator(RecordPool{{Roll: melody(10)}}, GeneratorOptions{Window: window.Options{Size: 2}, BatchSize: 1})
	if _, err := g.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestGeneratorShuffleDrawsWithoutReplacement(t *testing.T) {
	pool := &countingPool{}
	for i := 0; i < 10; i++ {
		pool.RecordPool = append(pool.RecordPool, Record{Roll: melody(6)})
	}
	g := NewGenerator(pool, GeneratorOptions{
		Window:    window.Options{Size: 2},
		BatchSize: 3,
		MaxInRAM:  4,
		Shuffle:   true,
		Rand:      rand.New(rand.NewPCG(1, 2)),
	})
	if _, err := g.Next(context.Background()); err != nil {
		t.Fatalf("Next() error: %v", err)
	}

	call := pool.calls[0]
	if len(call) != 4 {
		t.Fatalf("refill drew %d items, want 4", len(call))
	}
	seen := make(map[int]bool)
	for _, i := range call {
		if seen[i] {
			t.Fatalf("item %d drawn twice in %v", i, call)
		}
		seen[i] = true
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := OpenStore(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("OpenStore() error: %v", err)
	}
	defer s.Close()

	in := []Record{
		{Source: "a.mid", Roll: melody(5), Family: 0.25},
		{Source: "b.mid", Roll: roll.Encode(&midi.Track{Notes: []midi.Note{
			{Pitch: 60, Start: 0, End: 0.5, Velocity: 90},
			{Pitch: 64, Start: 1, End: 1.25, Velocity: 90},
		}}, roll.DefaultFS), Family: 0.5},
	}
	if err := s.Put(ctx, in); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	n, err := s.Count(ctx)
	if err != nil || n != 2 {
		t.Fatalf("Count() = %d, %v; want 2", n, err)
	}

	out, err := s.All(ctx)
	if err != nil {
		t.Fatalf("All() error: %v", err)
	}
	if !reflect.DeepEqual(out, in) {
		t.Fatalf("All() = %+v, want %+v", out, in)
	}
}

func TestPrepareStoresUsableTracks(t *testing.T) {
	dir := t.TempDir()
	writeMelody(t, dir, "a.mid", 0, 30)
	writeMelody(t, dir, "b.mid", 73, 25)
	writeMelody(t, dir, "c.mid", 0, 3)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	paths, err := ListMIDI(dir)
	if err != nil {
		t.Fatalf("ListMIDI() error: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("ListMIDI() found %d files, want 3", len(paths))
	}

	ctx := context.Background()
	s, err := OpenStore(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("OpenStore() error: %v", err)
	}
	defer s.Close()

	stats, err := Prepare(ctx, paths, testLoader(t, 8), s, nil)
	if err != nil {
		t.Fatalf("Prepare() error: %v", err)
	}
	if stats.Files != 3 || stats.Skipped != 1 || stats.Tracks != 2 || stats.Events != 55 {
		t.Fatalf("stats = %+v", stats)
	}
	if n, _ := s.Count(ctx); n != 2 {
		t.Fatalf("store holds %d records, want 2", n)
	}
}

func TestListMIDIMissingDir(t *testing.T) {
	if _, err := ListMIDI(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected an error for a missing data dir")
	}
}

func TestOpenStoreUsesWAL(t *testing.T) {
	s, err := OpenStore(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("OpenStore() error: %v", err)
	}
	defer s.Close()

	var mode string
	if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Fatalf("journal_mode = %q, want wal", mode)
	}

	if _, err := OpenStore(t.TempDir()); err == nil {
		t.Fatalf("expected an error opening a directory as a store")
	}
}

func TestLogSkipKeepsWarnOnOneLine(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.InfoLevel})

	logSkip(logger, "bad.mid", parseError(errors.New("bad header"), "bad.mid"))

	out := strings.TrimSpace(buf.String())
	if strings.Count(out, "\n") != 0 {
		t.Fatalf("warn record spans several lines:\n%s", out)
	}
	if !strings.Contains(out, "bad header") || strings.Contains(out, ".go:") {
		t.Fatalf("unexpected warn record: %q", out)
	}
}
