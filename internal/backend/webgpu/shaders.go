//go:build windows

package webgpu

// WGSL compute shaders for the layer kernels.
// Using string constants instead of embed for simplicity.

// workgroupSize is the default number of threads per 1D workgroup.
const workgroupSize = 256

// tileSize is the edge of 2D workgroups.
const tileSize = 16

// convTile is the edge of the convolution workgroup's spatial tile.
const convTile = 8

// matmulShader computes C = op(A) @ op(B).
// After op, A is [M, K], B is [K, N], C is [M, N].
const matmulShader = `
@group(0) @binding(0) var<storage, read> a: array<f32>;
@group(0) @binding(1) var<storage, read> b: array<f32>;
@group(0) @binding(2) var<storage, read_write> result: array<f32>;

struct Params {
    M: u32,
    K: u32,
    N: u32,
    trans_a: u32,
    trans_b: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(16, 16)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let row = global_id.y;
    let col = global_id.x;

    if (row >= params.M || col >= params.N) {
        return;
    }

    var sum: f32 = 0.0;
    for (var k: u32 = 0u; k < params.K; k = k + 1u) {
        var a_idx = row * params.K + k;
        if (params.trans_a != 0u) {
            a_idx = k * params.M + row;
        }
        var b_idx = k * params.N + col;
        if (params.trans_b != 0u) {
            b_idx = col * params.K + k;
        }
        sum = sum + a[a_idx] * b[b_idx];
    }

    result[row * params.N + col] = sum;
}
`

// conv2dShader performs a stride-1 zero-padded 2D convolution.
// Input: [batch, in_planes, in_size, in_size].
// Filters: [out_planes, in_planes, k, k].
// Output: [batch, out_planes, out_size, out_size].
// global_id.z enumerates (batch, out_plane) pairs.
const conv2dShader = `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read> filters: array<f32>;
@group(0) @binding(2) var<storage, read_write> output: array<f32>;

struct Params {
    batch: u32,
    in_planes: u32,
    in_size: u32,
    out_planes: u32,
    k: u32,
    padding: u32,
    out_size: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(8, 8, 1)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let b = global_id.z / params.out_planes;
    let f = global_id.z % params.out_planes;
    let oy = global_id.y;
    let ox = global_id.x;

    if (b >= params.batch || oy >= params.out_size || ox >= params.out_size) {
        return;
    }

    let in_size = i32(params.in_size);
    let pad = i32(params.padding);
    let area = params.in_size * params.in_size;
    var sum: f32 = 0.0;

    for (var c: u32 = 0u; c < params.in_planes; c = c + 1u) {
        let in_base = (b * params.in_planes + c) * area;
        let f_base = (f * params.in_planes + c) * params.k * params.k;
        for (var ky: u32 = 0u; ky < params.k; ky = ky + 1u) {
            let y = i32(oy + ky) - pad;
            if (y < 0 || y >= in_size) {
                continue;
            }
            for (var kx: u32 = 0u; kx < params.k; kx = kx + 1u) {
                let x = i32(ox + kx) - pad;
                if (x < 0 || x >= in_size) {
                    continue;
                }
                sum = sum + input[in_base + u32(y) * params.in_size + u32(x)] * filters[f_base + ky * params.k + kx];
            }
        }
    }

    output[((b * params.out_planes + f) * params.out_size + oy) * params.out_size + ox] = sum;
}
`

// maxPool2dShader performs non-overlapping max pooling and records the flat
// input index of every maximum. Ties keep the first position.
const maxPool2dShader = `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read_write> output: array<f32>;
@group(0) @binding(2) var<storage, read_write> selectors: array<i32>;

struct Params {
    total: u32,
    in_size: u32,
    pool: u32,
    out_size: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx >= params.total) {
        return;
    }

    let out_area = params.out_size * params.out_size;
    let plane = idx / out_area;
    let rem = idx % out_area;
    let oy = rem / params.out_size;
    let ox = rem % params.out_size;

    let in_base = plane * params.in_size * params.in_size;
    let y0 = oy * params.pool;
    let x0 = ox * params.pool;
    let y1 = min(y0 + params.pool, params.in_size);
    let x1 = min(x0 + params.pool, params.in_size);

    var best = in_base + y0 * params.in_size + x0;
    var max_val = input[best];
    for (var y = y0; y < y1; y = y + 1u) {
        for (var x = x0; x < x1; x = x + 1u) {
            let i = in_base + y * params.in_size + x;
            if (input[i] > max_val) {
                max_val = input[i];
                best = i;
            }
        }
    }

    output[idx] = max_val;
    selectors[idx] = i32(best);
}
`

// activationShader applies the activation selected by params.kind.
// Kinds follow tensor.Activation: 0 linear, 1 relu, 2 tanh, 3 scaled tanh, 4 sigmoid.
const activationShader = `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
    kind: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

fn activate(x: f32, kind: u32) -> f32 {
    switch kind {
        case 1u: { return max(x, 0.0); }
        case 2u: { return tanh(x); }
        case 3u: { return 1.7159 * tanh(0.6666667 * x); }
        case 4u: { return 1.0 / (1.0 + exp(-x)); }
        default: { return x; }
    }
}

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx < params.size) {
        result[idx] = activate(input[idx], params.kind);
    }
}
`

// activationBackwardShader computes grad_in = grad_out * f'(y) from the activated output y.
const activationBackwardShader = `
@group(0) @binding(0) var<storage, read> grad_out: array<f32>;
@group(0) @binding(1) var<storage, read> output: array<f32>;
@group(0) @binding(2) var<storage, read_write> grad_in: array<f32>;

struct Params {
    size: u32,
    kind: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

fn derivative(y: f32, kind: u32) -> f32 {
    switch kind {
        case 1u: { return select(0.0, 1.0, y > 0.0); }
        case 2u: { return 1.0 - y * y; }
        case 3u: { return 0.6666667 * (1.7159 - y * y / 1.7159); }
        case 4u: { return y * (1.0 - y); }
        default: { return 1.0; }
    }
}

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx < params.size) {
        grad_in[idx] = grad_out[idx] * derivative(output[idx], params.kind);
    }
}
`
