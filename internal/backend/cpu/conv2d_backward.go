package cpu

import (
	"github.com/born-ml/layernet/internal/parallel"
	"github.com/born-ml/layernet/internal/tensor"
)

// Conv2DInputBackward computes the gradient with respect to the input of Conv2D.
//
// Per batch item:
//
//	colGrad [C*K*K, outArea] = filters^T [C*K*K, F] @ gradOutput [F, outArea]
//	gradInput = col2im(colGrad)
func (cpu *CPUBackend) Conv2DInputBackward(gradInput, gradOutput, filters []float32, g tensor.ConvGeometry) {
	checkLen("conv2d_input_backward", "gradOutput", len(gradOutput), g.OutputLen())
	checkLen("conv2d_input_backward", "filters", len(filters), g.FilterLen())
	checkLen("conv2d_input_backward", "gradInput", len(gradInput), g.InputLen())

	colRows := g.InPlanes * g.FilterSize * g.FilterSize
	outArea := g.OutSize() * g.OutSize()
	inCube := g.InPlanes * g.InSize * g.InSize
	outCube := g.OutPlanes * outArea

	parallel.ForChunks(g.Batch, func(start, end int) {
		col := make([]float32, colRows*outArea)
		for b := start; b < end; b++ {
			gemm(col, filters, gradOutput[b*outCube:(b+1)*outCube], colRows, g.OutPlanes, outArea, true, false, 0)
			col2im(gradInput[b*inCube:(b+1)*inCube], col, g)
		}
	}, cpu.parallel)
}

// Conv2DFilterBackward computes the gradient with respect to the filters,
// summed over the batch:
//
//	gradFilters [F, C*K*K] = sum_b gradOutput_b [F, outArea] @ col_b^T [outArea, C*K*K]
//
// Each worker accumulates a private partial sum which is reduced at the end.
func (cpu *CPUBackend) Conv2DFilterBackward(gradFilters, gradOutput, input []float32, g tensor.ConvGeometry) {
	checkLen("conv2d_filter_backward", "gradOutput", len(gradOutput), g.OutputLen())
	checkLen("conv2d_filter_backward", "input", len(input), g.InputLen())
	checkLen("conv2d_filter_backward", "gradFilters", len(gradFilters), g.FilterLen())

	colRows := g.InPlanes * g.FilterSize * g.FilterSize
	outArea := g.OutSize() * g.OutSize()
	inCube := g.InPlanes * g.InSize * g.InSize
	outCube := g.OutPlanes * outArea
	filterLen := g.FilterLen()

	partials := make(chan []float32, g.Batch)
	parallel.ForChunks(g.Batch, func(start, end int) {
		col := make([]float32, colRows*outArea)
		acc := make([]float32, filterLen)
		for b := start; b < end; b++ {
			im2col(col, input[b*inCube:(b+1)*inCube], g)
			gemm(acc, gradOutput[b*outCube:(b+1)*outCube], col, g.OutPlanes, outArea, colRows, false, true, 1)
		}
		partials <- acc
	}, cpu.parallel)
	close(partials)

	dst := gradFilters[:filterLen]
	clear(dst)
	for acc := range partials {
		for i, v := range acc {
			dst[i] += v
		}
	}
}
