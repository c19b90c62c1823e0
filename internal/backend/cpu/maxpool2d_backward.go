package cpu

import (
	"fmt"

	"github.com/born-ml/layernet/internal/tensor"
)

// MaxPool2DBackward routes each output gradient to the input position its
// selector recorded. Every other input gradient is zero.
func (cpu *CPUBackend) MaxPool2DBackward(gradInput, gradOutput []float32, selectors []int32, g tensor.PoolGeometry) {
	inLen := g.Batch * g.Planes * g.InSize * g.InSize
	outLen := g.OutputLen()
	checkLen("maxpool2d_backward", "gradInput", len(gradInput), inLen)
	checkLen("maxpool2d_backward", "gradOutput", len(gradOutput), outLen)
	if len(selectors) < outLen {
		panic(fmt.Sprintf("maxpool2d_backward: selectors has %d elements, need %d", len(selectors), outLen))
	}

	clear(gradInput[:inLen])
	for i := 0; i < outLen; i++ {
		gradInput[selectors[i]] += gradOutput[i]
	}
}
