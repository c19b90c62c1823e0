// Package tensor defines the shapes, activations and compute-backend contract
// shared by layers and backends.
//
// Buffers are plain host-visible []float32 slices owned by layers. A Backend
// reads and writes them through its kernels; device backends stage them to
// device memory as needed. Every kernel is run-to-completion from the caller's
// point of view: when a kernel returns, its destination slice holds the final
// result. Layers therefore never issue explicit barriers between dependent
// kernels.
package tensor

// Backend defines the kernels that layers dispatch to.
//
// Destination slices are always fully overwritten, never accumulated into,
// unless the method says otherwise. Slices may be longer than the geometry
// requires; only the leading elements are touched. Kernels panic on
// programmer errors such as destination slices that are too short.
//
// Implementations:
//   - CPU: pure Go with gonum BLAS (internal/backend/cpu)
//   - WebGPU: WGSL compute shaders (internal/backend/webgpu)
type Backend interface {
	// MatMul computes c = op(a) @ op(b), where op transposes its argument
	// when the corresponding flag is set. After op, a is m×k, b is k×n and
	// c is m×n.
	MatMul(c, a, b []float32, m, k, n int, transA, transB bool)

	// Conv2D computes a stride-1 zero-padded convolution.
	Conv2D(output, input, filters []float32, g ConvGeometry)

	// Conv2DInputBackward computes the gradient with respect to the input.
	Conv2DInputBackward(gradInput, gradOutput, filters []float32, g ConvGeometry)

	// Conv2DFilterBackward computes the gradient with respect to the filters,
	// summed over the batch.
	Conv2DFilterBackward(gradFilters, gradOutput, input []float32, g ConvGeometry)

	// MaxPool2D pools the input and records, for every output value, the
	// flat input index it was taken from.
	MaxPool2D(output []float32, selectors []int32, input []float32, g PoolGeometry)

	// MaxPool2DBackward routes every output gradient to its selected input.
	MaxPool2DBackward(gradInput, gradOutput []float32, selectors []int32, g PoolGeometry)

	// Activate computes output[i] = fn(input[i]) for i < n. output and input
	// may alias.
	Activate(output, input []float32, n int, fn Activation)

	// ActivateBackward computes gradInput[i] = gradOutput[i] * fn'(output[i])
	// for i < n, using the activated output. gradInput and gradOutput may alias.
	ActivateBackward(gradInput, gradOutput, output []float32, n int, fn Activation)

	// Name returns a human-readable backend name.
	Name() string

	// Device returns the device kernels run on.
	Device() Device

	// Release frees device resources. The backend must not be used afterwards.
	Release()
}
