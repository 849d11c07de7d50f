// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

// WGSL sources for the four compute passes. All passes share one bind
// group layout; unused bindings cost nothing. The quantization scale
// must stay in sync with field.QuantScale, and the density curve and
// epsilon guards with field/normalize.go, so the conformance tolerance
// against the CPU reference stays a pure quantization bound.

// shaderCommon holds the bind group declarations and shared helpers
// prepended to every pass.
const shaderCommon = `
struct Params {
    bounds_min: vec4<f32>,
    bounds_size: vec4<f32>,
    n: u32,
    point_count: u32,
    capacity: u32,
    _pad0: u32,
    iso: f32,
    radius: f32,
    _pad1: f32,
    _pad2: f32,
}

struct Point {
    pos: vec4<f32>,
    color: vec4<f32>,
}

struct Vertex {
    pos: vec4<f32>,
    normal: vec4<f32>,
    color: vec4<f32>,
}

@group(0) @binding(0) var<uniform> params: Params;
@group(0) @binding(1) var<storage, read> points: array<Point>;
@group(0) @binding(2) var<storage, read_write> accum: array<atomic<i32>>;
@group(0) @binding(3) var<storage, read_write> field: array<vec4<f32>>;
@group(0) @binding(4) var<storage, read> edge_table: array<u32>;
@group(0) @binding(5) var<storage, read> tri_table: array<i32>;
@group(0) @binding(6) var<storage, read_write> vertices: array<Vertex>;
@group(0) @binding(7) var<storage, read_write> counter: atomic<u32>;

const QUANT_SCALE: f32 = 4096.0;

fn cell_index(x: u32, y: u32, z: u32) -> u32 {
    return x + y * params.n + z * params.n * params.n;
}

fn cell_count() -> u32 {
    return params.n * params.n * params.n;
}
`

// clearShaderSource zeroes the quantized accumulators; one thread per
// accumulator slot (4 channels per cell).
const clearShaderSource = shaderCommon + `
@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    let i = gid.x;
    if (i >= cell_count() * 4u) {
        return;
    }
    atomicStore(&accum[i], 0);
}
`

// splatShaderSource accumulates one point's gaussian footprint per
// thread. Contributions are quantized to fixed point and added with
// integer atomics; the accumulator layout is four planes of n^3 slots
// (weight, r, g, b).
const splatShaderSource = shaderCommon + `
@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    let i = gid.x;
    if (i >= params.point_count) {
        return;
    }
    let radius = params.radius;
    if (radius <= 0.0) {
        return;
    }

    let n = i32(params.n);
    let cells = cell_count();
    let p = points[i].pos.xyz;
    let color = points[i].color.xyz;

    let gp = (p - params.bounds_min.xyz) / params.bounds_size.xyz * f32(n);
    let reach = i32(ceil(radius));
    let sigma = radius * 0.5;
    let inv2s2 = 1.0 / (2.0 * sigma * sigma);

    let cx = i32(floor(gp.x));
    let cy = i32(floor(gp.y));
    let cz = i32(floor(gp.z));

    for (var dz = -reach; dz <= reach; dz++) {
        let z = cz + dz;
        if (z < 0 || z >= n) {
            continue;
        }
        for (var dy = -reach; dy <= reach; dy++) {
            let y = cy + dy;
            if (y < 0 || y >= n) {
                continue;
            }
            for (var dx = -reach; dx <= reach; dx++) {
                let x = cx + dx;
                if (x < 0 || x >= n) {
                    continue;
                }
                let center = vec3<f32>(f32(x) + 0.5, f32(y) + 0.5, f32(z) + 0.5);
                let d = gp - center;
                let d2 = dot(d, d);
                if (d2 > radius * radius) {
                    continue;
                }
                let w = exp(-d2 * inv2s2);
                let qw = i32(round(w * QUANT_SCALE));
                if (qw == 0) {
                    continue;
                }
                let idx = cell_index(u32(x), u32(y), u32(z));
                atomicAdd(&accum[idx], qw);
                atomicAdd(&accum[cells + idx], i32(round(color.x * w * QUANT_SCALE)));
                atomicAdd(&accum[cells * 2u + idx], i32(round(color.y * w * QUANT_SCALE)));
                atomicAdd(&accum[cells * 3u + idx], i32(round(color.z * w * QUANT_SCALE)));
            }
        }
    }
}
`

// normalizeShaderSource converts raw accumulators to the field buffer:
// color average in xyz, saturated density in w. One thread per cell.
const normalizeShaderSource = shaderCommon + `
@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    let i = gid.x;
    let cells = cell_count();
    if (i >= cells) {
        return;
    }
    let w = f32(atomicLoad(&accum[i])) / QUANT_SCALE;
    let density = 1.0 - exp(-w * 0.5);

    var color = vec3<f32>(0.5, 0.5, 0.5);
    if (w > 0.001) {
        let sum = vec3<f32>(
            f32(atomicLoad(&accum[cells + i])),
            f32(atomicLoad(&accum[cells * 2u + i])),
            f32(atomicLoad(&accum[cells * 3u + i])),
        ) / QUANT_SCALE;
        color = sum / w;
    }
    field[i] = vec4<f32>(color, density);
}
`

// marchShaderSource runs marching cubes with one thread per cell. Each
// thread reads its 8 corners, interpolates the active edges, and bumps
// the triangle counter once per emitted triangle; slots past capacity
// are dropped while the counter keeps recording demand.
const marchShaderSource = shaderCommon + `
const CORNER = array<vec3<i32>, 8>(
    vec3<i32>(0, 0, 0), vec3<i32>(1, 0, 0), vec3<i32>(1, 1, 0), vec3<i32>(0, 1, 0),
    vec3<i32>(0, 0, 1), vec3<i32>(1, 0, 1), vec3<i32>(1, 1, 1), vec3<i32>(0, 1, 1),
);

const EDGE_A = array<i32, 12>(0, 1, 2, 3, 4, 5, 6, 7, 0, 1, 2, 3);
const EDGE_B = array<i32, 12>(1, 2, 3, 0, 5, 6, 7, 4, 4, 5, 6, 7);

fn grid_to_world(gp: vec3<f32>) -> vec3<f32> {
    return params.bounds_min.xyz + gp / f32(params.n) * params.bounds_size.xyz;
}

fn interp_factor(d0: f32, d1: f32, iso: f32) -> f32 {
    if (abs(iso - d0) < 1e-5) {
        return 0.0;
    }
    if (abs(iso - d1) < 1e-5) {
        return 1.0;
    }
    if (abs(d1 - d0) < 1e-5) {
        return 0.0;
    }
    return (iso - d0) / (d1 - d0);
}

fn emit(w0: vec3<f32>, w1: vec3<f32>, w2: vec3<f32>,
        c0: vec3<f32>, c1: vec3<f32>, c2: vec3<f32>) {
    let cr = cross(w1 - w0, w2 - w0);
    let len = length(cr);
    if (len < 1e-4) {
        return;
    }
    let normal = vec4<f32>(cr / len, 0.0);

    let slot = atomicAdd(&counter, 1u);
    if (slot >= params.capacity) {
        return;
    }
    let base = slot * 3u;
    vertices[base] = Vertex(vec4<f32>(w0, 1.0), normal, vec4<f32>(c0, 1.0));
    vertices[base + 1u] = Vertex(vec4<f32>(w1, 1.0), normal, vec4<f32>(c1, 1.0));
    vertices[base + 2u] = Vertex(vec4<f32>(w2, 1.0), normal, vec4<f32>(c2, 1.0));
}

@compute @workgroup_size(4, 4, 4)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    let n = params.n;
    if (gid.x >= n - 1u || gid.y >= n - 1u || gid.z >= n - 1u) {
        return;
    }
    let iso = params.iso;

    var density: array<f32, 8>;
    var color: array<vec3<f32>, 8>;
    var cube_index = 0u;
    for (var i = 0; i < 8; i++) {
        let o = CORNER[i];
        let f = field[cell_index(gid.x + u32(o.x), gid.y + u32(o.y), gid.z + u32(o.z))];
        density[i] = f.w;
        color[i] = f.xyz;
        if (f.w < iso) {
            cube_index |= 1u << u32(i);
        }
    }

    let edges = edge_table[cube_index];
    if (edges == 0u) {
        return;
    }

    var verts: array<vec3<f32>, 12>;
    var cols: array<vec3<f32>, 12>;
    for (var e = 0; e < 12; e++) {
        if ((edges & (1u << u32(e))) == 0u) {
            continue;
        }
        let a = EDGE_A[e];
        let b = EDGE_B[e];
        let oa = CORNER[a];
        let ob = CORNER[b];
        let pa = vec3<f32>(gid) + vec3<f32>(oa) + vec3<f32>(0.5);
        let pb = vec3<f32>(gid) + vec3<f32>(ob) + vec3<f32>(0.5);
        let t = interp_factor(density[a], density[b], iso);
        verts[e] = pa + (pb - pa) * t;
        cols[e] = color[a] + (color[b] - color[a]) * t;
    }

    let tri_base = cube_index * 16u;
    for (var i = 0u; i < 15u; i += 3u) {
        let e0 = tri_table[tri_base + i];
        if (e0 == -1) {
            break;
        }
        let e1 = tri_table[tri_base + i + 1u];
        let e2 = tri_table[tri_base + i + 2u];
        emit(grid_to_world(verts[e0]), grid_to_world(verts[e1]), grid_to_world(verts[e2]),
            cols[e0], cols[e1], cols[e2]);
    }
}
`
