package repository

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/paiban/roster/pkg/model"
)

func bigGrid(staff, days int) model.Grid {
	g := make(model.Grid, staff)
	for i := 0; i < staff; i++ {
		row := make(map[int]string, days)
		for d := 1; d <= days; d++ {
			row[d] = []string{"D", "E", "N", model.CodeOff}[(i+d)%4]
		}
		g[fmt.Sprintf("n%03d", i)] = row
	}
	return g
}

func TestSplitChunks_RoundTrip(t *testing.T) {
	grid := bigGrid(80, 31)
	data, err := json.Marshal(grid)
	if err != nil {
		t.Fatal(err)
	}

	chunks := splitChunks(data, 1024)
	if len(chunks) < 2 {
		t.Fatalf("Expected grid to be split, got %d chunk(s) for %d bytes", len(chunks), len(data))
	}
	for i, c := range chunks {
		if len(c) > 1024 {
			t.Errorf("Chunk %d exceeds size: %d", i, len(c))
		}
	}

	var back model.Grid
	if err := json.Unmarshal(joinChunks(chunks), &back); err != nil {
		t.Fatalf("Failed to decode joined chunks: %v", err)
	}
	if !back.Equal(grid) {
		t.Error("Joined chunks should reproduce the original grid")
	}
}

func TestSplitChunks_Small(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		size int
		want int
	}{
		{"empty", []byte{}, 16, 1},
		{"exact", make([]byte, 16), 16, 1},
		{"one over", make([]byte, 17), 16, 2},
		{"three", make([]byte, 40), 16, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(splitChunks(tt.data, tt.size)); got != tt.want {
				t.Errorf("Expected %d chunks, got %d", tt.want, got)
			}
		})
	}
}

func TestTailOf(t *testing.T) {
	grid := model.Grid{
		"a": {27: "D", 28: "E", 29: "N", 30: model.CodeOff, 31: "N"},
		"b": {31: model.CodeReqOff},
	}

	tail := TailOf(grid, 31, 3)

	want := []string{"N", model.CodeOff, "N"}
	if fmt.Sprint(tail["a"]) != fmt.Sprint(want) {
		t.Errorf("Expected %v, got %v", want, tail["a"])
	}
	if fmt.Sprint(tail["b"]) != fmt.Sprint([]string{model.CodeOff, model.CodeOff, model.CodeReqOff}) {
		t.Errorf("Missing cells should be OFF, got %v", tail["b"])
	}

	if got := len(TailOf(grid, 28, 40)["a"]); got != 28 {
		t.Errorf("Tail should not exceed the month, got %d", got)
	}
}

func TestNewRosterRepository_DefaultChunk(t *testing.T) {
	r := NewRosterRepository(nil, 0)
	if r.chunkBytes != DefaultChunkBytes {
		t.Errorf("Expected default chunk size, got %d", r.chunkBytes)
	}
}
