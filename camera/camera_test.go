package camera

import (
	"math"
	"testing"
)

func TestNew(t *testing.T) {
	v := New(100, 30, 8, 16)

	if w, h := v.FieldSize(); w != 800 || h != 480 {
		t.Errorf("expected field 800x480, got %vx%v", w, h)
	}

	d := New(-4, 10, 0, -1)
	if d.Cols != 0 || d.CellW != 1 || d.CellH != 1 {
		t.Errorf("bad sizes not defaulted: %+v", d)
	}
}

func TestFieldToCell(t *testing.T) {
	v := New(100, 30, 8, 16)

	testCases := []struct {
		x, y     float64
		col, row int
		ok       bool
	}{
		{0, 0, 0, 0, true},
		{7.9, 15.9, 0, 0, true},
		{8, 16, 1, 1, true},
		{799.5, 479, 99, 29, true},
		{800, 480, 99, 29, true}, // far edge
		{800.1, 10, 0, 0, false},
		{-0.1, 10, 0, 0, false},
		{math.NaN(), 10, 0, 0, false},
	}

	for _, tc := range testCases {
		col, row, ok := v.FieldToCell(tc.x, tc.y)
		if col != tc.col || row != tc.row || ok != tc.ok {
			t.Errorf("FieldToCell(%v, %v) = (%d, %d, %v), want (%d, %d, %v)",
				tc.x, tc.y, col, row, ok, tc.col, tc.row, tc.ok)
		}
	}
}

func TestCellRoundtrip(t *testing.T) {
	v := New(40, 20, 8, 16)

	for _, c := range [][2]int{{0, 0}, {39, 19}, {12, 7}} {
		x, y := v.CellToField(c[0], c[1])
		col, row, ok := v.FieldToCell(x, y)
		if !ok || col != c[0] || row != c[1] {
			t.Errorf("roundtrip failed: %v -> (%v,%v) -> (%d,%d)", c, x, y, col, row)
		}
	}
}

func TestClamp(t *testing.T) {
	v := New(10, 5, 2, 2)

	if col, row := v.Clamp(-50, 1000); col != 0 || row != 4 {
		t.Errorf("Clamp = (%d, %d), want (0, 4)", col, row)
	}

	v.Resize(0, 0)
	if col, row := v.Clamp(5, 5); col != 0 || row != 0 {
		t.Errorf("empty grid Clamp = (%d, %d)", col, row)
	}
	if _, _, ok := v.FieldToCell(0, 0); ok {
		t.Error("empty grid reported a cell")
	}
}
