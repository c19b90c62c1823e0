package cpu

import (
	"fmt"

	"github.com/born-ml/layernet/internal/parallel"
	"github.com/born-ml/layernet/internal/tensor"
)

// MaxPool2D performs non-overlapping 2D max pooling (stride == pool size).
//
// Input shape:  [batch, planes, inSize, inSize]
// Output shape: [batch, planes, outSize, outSize]
//
// For every output value selectors records the flat input index the maximum
// was read from; ties keep the first position in row-major window order.
// With PadZeros, border windows that extend past the input consider only the
// in-bounds values.
//
// Example (2x2 pool):
//
//	Input: [[1,2,3,4],    Output: [[6,8],
//	        [5,6,7,8],             [14,16]]
//	        [9,10,11,12],
//	        [13,14,15,16]]
func (cpu *CPUBackend) MaxPool2D(output []float32, selectors []int32, input []float32, g tensor.PoolGeometry) {
	if g.PoolSize <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid pool size %d", g.PoolSize))
	}
	inArea := g.InSize * g.InSize
	out := g.OutSize()
	outArea := out * out
	checkLen("maxpool2d", "input", len(input), g.Batch*g.Planes*inArea)
	checkLen("maxpool2d", "output", len(output), g.OutputLen())
	if len(selectors) < g.OutputLen() {
		panic(fmt.Sprintf("maxpool2d: selectors has %d elements, need %d", len(selectors), g.OutputLen()))
	}

	parallel.ForBatch(g.Batch, g.Planes, func(b, p int) {
		plane := b*g.Planes + p
		inBase := plane * inArea
		outBase := plane * outArea
		for oy := 0; oy < out; oy++ {
			y0 := oy * g.PoolSize
			y1 := min(y0+g.PoolSize, g.InSize)
			for ox := 0; ox < out; ox++ {
				x0 := ox * g.PoolSize
				x1 := min(x0+g.PoolSize, g.InSize)

				best := inBase + y0*g.InSize + x0
				maxVal := input[best]
				for y := y0; y < y1; y++ {
					for x := x0; x < x1; x++ {
						idx := inBase + y*g.InSize + x
						if input[idx] > maxVal {
							maxVal = input[idx]
							best = idx
						}
					}
				}
				output[outBase+oy*out+ox] = maxVal
				selectors[outBase+oy*out+ox] = int32(best)
			}
		}
	}, cpu.parallel)
}
