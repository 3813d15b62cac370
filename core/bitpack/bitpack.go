// Package bitpack packs small integer bin indexes into 64-bit words and
// decodes them again. Feature columns stored this way stay cache-resident at
// the cost of a shift-and-mask per lookup.
//
// Layout: a word holds ItemsPerWord indexes, the first index in the lowest
// bits. Each index occupies BitsPerItem bits where BitsPerItem is
// WordBits/ItemsPerWord, so the decode loop is a single mask and shift.
package bitpack

import (
	"math/bits"

	"github.com/ezoic/glassboost/pkg/errors"
)

// WordBits is the storage word width.
const WordBits = 64

// CountBitsRequired returns the number of bits needed to represent maxValue.
// maxValue 0 still requires one bit so that packing stays well defined.
func CountBitsRequired(maxValue uint64) int {
	n := bits.Len64(maxValue)
	if n == 0 {
		n = 1
	}
	return n
}

// ItemsPerWord returns the maximum number of items of the given bit width
// that fit in one word.
func ItemsPerWord(bitsRequired int) int {
	if bitsRequired < 1 {
		bitsRequired = 1
	}
	if bitsRequired > WordBits {
		return 1
	}
	return WordBits / bitsRequired
}

// BitsPerItem returns the stride of one item inside a word holding
// itemsPerWord items.
func BitsPerItem(itemsPerWord int) int {
	return WordBits / itemsPerWord
}

// Mask returns the extraction mask for items of the given stride.
func Mask(bitsPerItem int) uint64 {
	if bitsPerItem >= WordBits {
		return ^uint64(0)
	}
	return (uint64(1) << uint(bitsPerItem)) - 1
}

// WordCount returns the number of words needed for caseCount items at
// itemsPerWord items per word.
func WordCount(caseCount, itemsPerWord int) int {
	return (caseCount + itemsPerWord - 1) / itemsPerWord
}

// Pack packs indexes into words, first index in the lowest bits of the first
// word. Every index must fit in BitsPerItem(itemsPerWord) bits.
func Pack(indexes []int, itemsPerWord int) ([]uint64, error) {
	bitsPerItem := BitsPerItem(itemsPerWord)
	mask := Mask(bitsPerItem)
	words := make([]uint64, WordCount(len(indexes), itemsPerWord))
	for i, idx := range indexes {
		if idx < 0 || uint64(idx)&^mask != 0 {
			return nil, errors.NewValueError("bitpack.Pack", "index does not fit the item width")
		}
		word := i / itemsPerWord
		shift := uint((i % itemsPerWord) * bitsPerItem)
		words[word] |= uint64(idx) << shift
	}
	return words, nil
}

// Reader decodes a packed word stream item by item. The caller bounds the
// total number of reads at the case count; the final word may hold fewer
// valid items than ItemsPerWord.
type Reader struct {
	words       []uint64
	itemsPerWord int
	bitsPerItem int
	mask        uint64

	word      uint64
	remaining int
	pos       int
}

// NewReader creates a reader over words holding itemsPerWord items each.
func NewReader(words []uint64, itemsPerWord int) *Reader {
	bitsPerItem := BitsPerItem(itemsPerWord)
	return &Reader{
		words:       words,
		itemsPerWord: itemsPerWord,
		bitsPerItem: bitsPerItem,
		mask:        Mask(bitsPerItem),
	}
}

// Next returns the next index in the stream.
func (r *Reader) Next() int {
	if r.remaining == 0 {
		r.word = r.words[r.pos]
		r.pos++
		r.remaining = r.itemsPerWord
	}
	idx := int(r.word & r.mask)
	r.word >>= uint(r.bitsPerItem)
	r.remaining--
	return idx
}
