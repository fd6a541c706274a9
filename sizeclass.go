package rpheap

import "github.com/cznic/mathutil"

// classSizes is the exact table from spec.md §3: 32 classes in 16-byte
// steps over [16,512], 16 classes in 32-byte steps over [544,1024], 16
// classes in 64-byte steps over [1088,2048]. Each entry already includes
// the 1-byte small-object header, matching the original allocator's
// class_sizes[] table.
var classSizes = [classNum]uint16{
	// Range 0 — 16-byte steps.
	16, 32, 48, 64, 80, 96, 112, 128,
	144, 160, 176, 192, 208, 224, 240, 256,
	272, 288, 304, 320, 336, 352, 368, 384,
	400, 416, 432, 448, 464, 480, 496, 512,

	// Range 1 — 32-byte steps.
	544, 576, 608, 640, 672, 704, 736, 768,
	800, 832, 864, 896, 928, 960, 992, 1024,

	// Range 2 — 64-byte steps.
	1088, 1152, 1216, 1280, 1344, 1408, 1472, 1536,
	1600, 1664, 1728, 1792, 1856, 1920, 1984, 2048,
}

// rangeOffset is the base class index of each of the 3 ranges.
var rangeOffset = [classPagesNum]int{0, 32, 48}

const (
	sizeClassRangeShift = 8
	sizeClassRangeMult  = 512
	sizeClassBaseShift  = 4
)

// classSizeDecode maps a requested payload size (0 < size < smallAllocationLimit)
// to its size-class index and the page-block page count that class's
// page-blocks are carved from. It is the direct translation of the original
// class_size_decode: a log2 by mathutil.BitLen to pick the range, then a
// subtract-and-shift to pick the sub-class within the range.
func classSizeDecode(size int) (classIdx int, pageCount int) {
	rangeIdx := mathutil.BitLen(size>>sizeClassRangeShift|1) - 1
	subrangeIdx := (size - sizeClassRangeMult*rangeIdx) >> (sizeClassBaseShift + rangeIdx)

	pageCount = pageBlockPageCount(rangeIdx)
	return rangeOffset[rangeIdx] + subrangeIdx, pageCount
}

// classSizeDecodeByObjectSize recovers the class index for a page-block
// from its stored object size (used by Free, which only has the page-block
// header to work from, not the original request size). Subtracting 1 lands
// the lookup on the same range/sub-class the original allocation used,
// mirroring the free-path use of class_size_decode(page->object_size - 1, ...)
// in the original allocator.cpp.
func classSizeDecodeByObjectSize(objectSize int) int {
	idx, _ := classSizeDecode(objectSize - 1)
	return idx
}
