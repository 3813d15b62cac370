package bitpack_test

import (
	"testing"

	"github.com/ezoic/glassboost/core/bitpack"
)

func TestCountBitsRequired(t *testing.T) {
	cases := []struct {
		max  uint64
		want int
	}{
		{0, 1},
		{1, 1},
		{2, 2},
		{3, 2},
		{4, 3},
		{255, 8},
		{256, 9},
	}
	for _, c := range cases {
		if got := bitpack.CountBitsRequired(c.max); got != c.want {
			t.Errorf("CountBitsRequired(%d): expected %d, got %d", c.max, c.want, got)
		}
	}
}

func TestItemsPerWordAndStride(t *testing.T) {
	// 2 states -> 1 bit -> 64 items/word, 1 bit stride
	if got := bitpack.ItemsPerWord(1); got != 64 {
		t.Errorf("ItemsPerWord(1): expected 64, got %d", got)
	}
	// 5 bits -> 12 items/word, stride 64/12 = 5 bits
	items := bitpack.ItemsPerWord(5)
	if items != 12 {
		t.Errorf("ItemsPerWord(5): expected 12, got %d", items)
	}
	if got := bitpack.BitsPerItem(items); got != 5 {
		t.Errorf("BitsPerItem(12): expected 5, got %d", got)
	}
}

func TestPackRoundTrip(t *testing.T) {
	indexes := []int{0, 1, 2, 3, 2, 1, 0, 3, 3}
	itemsPerWord := bitpack.ItemsPerWord(bitpack.CountBitsRequired(3))

	words, err := bitpack.Pack(indexes, itemsPerWord)
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}
	if want := bitpack.WordCount(len(indexes), itemsPerWord); len(words) != want {
		t.Fatalf("expected %d words, got %d", want, len(words))
	}

	r := bitpack.NewReader(words, itemsPerWord)
	for i, want := range indexes {
		if got := r.Next(); got != want {
			t.Errorf("item %d: expected %d, got %d", i, want, got)
		}
	}
}

func TestPackTailWord(t *testing.T) {
	// 21 items of 3 bits ride in words of 21 items (stride 3): one full word
	// plus nothing; 22 items need a second, partial word.
	itemsPerWord := bitpack.ItemsPerWord(3)
	indexes := make([]int, 22)
	for i := range indexes {
		indexes[i] = i % 8
	}
	words, err := bitpack.Pack(indexes, itemsPerWord)
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}
	if len(words) != 2 {
		t.Fatalf("expected 2 words, got %d", len(words))
	}
	r := bitpack.NewReader(words, itemsPerWord)
	for i, want := range indexes {
		if got := r.Next(); got != want {
			t.Errorf("item %d: expected %d, got %d", i, want, got)
		}
	}
}

func TestPackRejectsOversizedIndex(t *testing.T) {
	itemsPerWord := bitpack.ItemsPerWord(2) // 2-bit items
	if _, err := bitpack.Pack([]int{4}, itemsPerWord); err == nil {
		t.Error("expected error for index that does not fit the item width")
	}
}
