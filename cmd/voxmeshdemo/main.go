// Command voxmeshdemo reconstructs a mesh from a synthetic point cloud
// and reports timing, backend selection, and mesh statistics. With
// -output it writes the mesh as binary STL.
package main

import (
	"encoding/binary"
	"flag"
	"log"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"time"

	"cogentcore.org/core/math32"

	"github.com/gogpu/voxelmesh"
	_ "github.com/gogpu/voxelmesh/backend/native"
	_ "github.com/gogpu/voxelmesh/backend/wgpu"
)

func main() {
	var (
		points     = flag.Int("points", 20000, "number of points in the synthetic cloud")
		resolution = flag.Int("resolution", 64, "grid cells per axis")
		iso        = flag.Float64("iso", 0.5, "iso-value for surface extraction")
		radius     = flag.Float64("radius", 2, "splat radius in grid cells")
		backend    = flag.String("backend", "", "force a backend (wgpu, native-parallel, native)")
		output     = flag.String("output", "", "write mesh as binary STL to this file")
		verbose    = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	if *verbose {
		voxelmesh.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	rec, err := selectBackend(*backend)
	if err != nil {
		log.Fatalf("Failed to initialize backend: %v", err)
	}
	defer rec.Close()
	log.Printf("Backend: %s", rec.Name())

	cloud := torusCloud(*points)
	log.Printf("Cloud: %d points", cloud.Len())

	params := voxelmesh.Params{
		IsoValue:    float32(*iso),
		SplatRadius: float32(*radius),
		Resolution:  *resolution,
	}

	start := time.Now()
	mesh, err := rec.Reconstruct(cloud, params)
	if err != nil {
		log.Fatalf("Reconstruction failed: %v", err)
	}
	elapsed := time.Since(start)

	log.Printf("Mesh: %d triangles in %v (resolution %d, iso %.2f)",
		mesh.TriangleCount, elapsed, *resolution, *iso)

	if *output != "" {
		if err := writeSTL(*output, mesh); err != nil {
			log.Fatalf("Failed to write STL: %v", err)
		}
		log.Printf("Mesh saved to %s", *output)
	}
}

func selectBackend(name string) (voxelmesh.Reconstructor, error) {
	if name == "" {
		return voxelmesh.InitDefault()
	}
	rec := voxelmesh.Get(name)
	if rec == nil {
		log.Fatalf("Unknown backend %q; registered: %v", name, voxelmesh.Available())
	}
	if err := rec.Init(); err != nil {
		return nil, err
	}
	return rec, nil
}

// torusCloud samples points on a torus surface with a height-based
// color ramp, a shape with a hole so the reconstruction shows genus.
func torusCloud(n int) *voxelmesh.PointCloud {
	const (
		major = 2.0
		minor = 0.7
	)
	rng := rand.New(rand.NewSource(42))
	cloud := &voxelmesh.PointCloud{
		Positions: make([]math32.Vector3, n),
		Colors:    make([]math32.Vector3, n),
	}
	for i := range cloud.Positions {
		u := rng.Float64() * 2 * math.Pi
		v := rng.Float64() * 2 * math.Pi
		x := (major + minor*math.Cos(v)) * math.Cos(u)
		y := minor * math.Sin(v)
		z := (major + minor*math.Cos(v)) * math.Sin(u)
		cloud.Positions[i] = math32.Vec3(float32(x), float32(y), float32(z))

		t := float32(y/minor+1) / 2
		cloud.Colors[i] = math32.Vec3(t, 0.3, 1-t)
	}
	return cloud
}

// writeSTL writes the mesh in binary STL: an 80-byte header, a uint32
// triangle count, then 50 bytes per triangle (normal, three vertices,
// attribute count). STL carries no color; the color channel is dropped.
func writeSTL(path string, mesh *voxelmesh.Mesh) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var header [80]byte
	copy(header[:], "voxmeshdemo binary STL")
	if _, err := f.Write(header[:]); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(mesh.TriangleCount)); err != nil {
		return err
	}

	buf := make([]byte, 50)
	for tri := 0; tri < mesh.TriangleCount; tri++ {
		base := tri * 9
		// Per-face normal is replicated per vertex; take the first.
		off := 0
		for c := 0; c < 3; c++ {
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(mesh.Normals[base+c]))
			off += 4
		}
		for v := 0; v < 3; v++ {
			for c := 0; c < 3; c++ {
				binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(mesh.Positions[base+v*3+c]))
				off += 4
			}
		}
		buf[48], buf[49] = 0, 0
		if _, err := f.Write(buf); err != nil {
			return err
		}
	}
	return f.Sync()
}
