package loaders

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spaghettifunk/simplegfx/engine/math"
	"github.com/spaghettifunk/simplegfx/engine/renderer/metadata"
)

// MeshResourceParams are used when loading a mesh.
type MeshResourceParams struct {
	// Store texture V as 1-v so image row 0 samples at the top.
	FlipV bool
}

// ObjLoader reads Wavefront OBJ geometry: v, vt and f records. Polygons are
// fan-triangulated; normals, groups and materials are ignored.
type ObjLoader struct{}

func (ol *ObjLoader) Load(path string, params interface{}) (*metadata.Resource, error) {
	flipV := true
	if p, ok := params.(*MeshResourceParams); ok && p != nil {
		flipV = p.FlipV
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	mesh, err := ParseObj(f, flipV)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &metadata.Resource{
		Name:     filepath.Base(path),
		FullPath: path,
		Type:     metadata.ResourceTypeMesh,
		DataSize: uint64(len(mesh.Indices)),
		Data:     mesh,
	}, nil
}

func (ol *ObjLoader) Unload(r *metadata.Resource) error {
	r.Data = nil
	return nil
}

// ParseObj reads OBJ records from r.
func ParseObj(r io.Reader, flipV bool) (*metadata.MeshData, error) {
	mesh := &metadata.MeshData{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || text[0] == '#' {
			continue
		}
		fields := strings.Fields(text)
		switch fields[0] {
		case "v":
			v, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			mesh.Positions = append(mesh.Positions, math.NewVec3(v[0], v[1], v[2]))
		case "vt":
			v, err := parseFloats(fields[1:], 2)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			if flipV {
				v[1] = 1 - v[1]
			}
			mesh.TexCoords = append(mesh.TexCoords, math.NewVec2(v[0], v[1]))
		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: face needs at least 3 corners", line)
			}
			corners := make([]metadata.MeshIndex, 0, len(fields)-1)
			for _, c := range fields[1:] {
				idx, err := parseCorner(c, len(mesh.Positions), len(mesh.TexCoords))
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", line, err)
				}
				corners = append(corners, idx)
			}
			for i := 1; i+1 < len(corners); i++ {
				mesh.Indices = append(mesh.Indices, corners[0], corners[i], corners[i+1])
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return mesh, nil
}

func parseFloats(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("expected %d components, got %d", n, len(fields))
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(v)
	}
	return out, nil
}

// parseCorner resolves v, v/vt, v//vn and v/vt/vn to zero based indices.
func parseCorner(s string, positions, texcoords int) (metadata.MeshIndex, error) {
	parts := strings.Split(s, "/")
	p, err := resolveIndex(parts[0], positions)
	if err != nil {
		return metadata.MeshIndex{}, err
	}
	idx := metadata.MeshIndex{Position: p, TexCoord: -1}
	if len(parts) > 1 && parts[1] != "" {
		t, err := resolveIndex(parts[1], texcoords)
		if err != nil {
			return metadata.MeshIndex{}, err
		}
		idx.TexCoord = t
	}
	return idx, nil
}

func resolveIndex(s string, count int) (int32, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	switch {
	case i > 0 && i <= count:
		return int32(i - 1), nil
	case i < 0 && -i <= count:
		return int32(count + i), nil
	default:
		return 0, fmt.Errorf("index %d out of range [1, %d]", i, count)
	}
}
