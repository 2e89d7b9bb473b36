package assets

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spaghettifunk/vkplayground/engine/assets/loaders"
	"github.com/spaghettifunk/vkplayground/engine/core"
	"github.com/spaghettifunk/vkplayground/engine/renderer/metadata"
)

func TestMain(m *testing.M) {
	core.SetLogOutput(io.Discard)
	os.Exit(m.Run())
}

// spirv returns n little endian words starting with the SPIR-V magic number.
func spirv(n int) []byte {
	b := make([]byte, 4*n)
	copy(b, []byte{0x03, 0x02, 0x23, 0x07})
	for i := 4; i < len(b); i++ {
		b[i] = byte(i)
	}
	return b
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func newManager(t *testing.T, dir string) *AssetManager {
	t.Helper()
	am, err := NewAssetManager()
	if err != nil {
		t.Fatal(err)
	}
	if err := am.Initialize(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { am.Shutdown() })
	return am
}

func TestInitializeIndexesKnownTypes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "shaders", "triangle.vert.spv"), spirv(4))
	writeFile(t, filepath.Join(dir, "shaders", "triangle.frag.spv"), spirv(4))
	writeFile(t, filepath.Join(dir, "shaders", "triangle.vert"), []byte("#version 450"))
	writeFile(t, filepath.Join(dir, "blob.bin"), []byte{1, 2, 3})

	am := newManager(t, dir)

	if got := am.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}
	tests := []struct {
		name string
		want metadata.ResourceType
		ok   bool
	}{
		{"shaders/triangle.vert.spv", metadata.ResourceTypeShaderBinary, true},
		{"shaders/triangle.frag.spv", metadata.ResourceTypeShaderBinary, true},
		{"blob.bin", metadata.ResourceTypeBinary, true},
		{"shaders/triangle.vert", metadata.ResourceTypeNone, false},
	}
	for _, tt := range tests {
		info, ok := am.Lookup(tt.name)
		if ok != tt.ok {
			t.Errorf("Lookup(%q) found = %v, want %v", tt.name, ok, tt.ok)
			continue
		}
		if ok && info.Type != tt.want {
			t.Errorf("Lookup(%q).Type = %d, want %d", tt.name, info.Type, tt.want)
		}
	}
}

func TestLoadShaderSet(t *testing.T) {
	dir := t.TempDir()
	vert := spirv(5)
	writeFile(t, filepath.Join(dir, "shaders", "triangle.vert.spv"), vert)
	writeFile(t, filepath.Join(dir, "shaders", "triangle.frag.spv"), spirv(3))

	am := newManager(t, dir)
	set, err := am.LoadShaderSet("shaders/triangle.vert.spv", "shaders/triangle.frag.spv")
	if err != nil {
		t.Fatalf("LoadShaderSet() error = %v", err)
	}

	if set.Vertex.Name != "vertex" || set.Fragment.Name != "fragment" {
		t.Errorf("names = %q, %q", set.Vertex.Name, set.Fragment.Name)
	}
	if set.Vertex.DataSize != uint64(len(vert)) || len(set.Vertex.Code) != 5 {
		t.Errorf("vertex size = %d bytes, %d words", set.Vertex.DataSize, len(set.Vertex.Code))
	}
	if set.Vertex.Code[0] != 0x07230203 {
		t.Errorf("first word = %#x, want the SPIR-V magic number", set.Vertex.Code[0])
	}
	if set.Vertex.ID == set.Fragment.ID {
		t.Error("different binaries share an ID")
	}

	info, _ := am.Lookup("shaders/triangle.vert.spv")
	if info.LastLoaded.IsZero() {
		t.Error("LastLoaded not updated after load")
	}
}

func TestLoadAssetErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "odd.spv"), []byte{1, 2, 3, 4, 5, 6})
	writeFile(t, filepath.Join(dir, "empty.spv"), nil)

	am := newManager(t, dir)

	tests := []struct {
		name string
		want error
	}{
		{"missing.spv", ErrAssetNotFound},
		{"odd.spv", loaders.ErrInvalidShaderBinary},
		{"empty.spv", loaders.ErrInvalidShaderBinary},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := am.LoadAsset(tt.name, nil)
			if !errors.Is(err, tt.want) {
				t.Fatalf("LoadAsset(%q) error = %v, want %v", tt.name, err, tt.want)
			}
		})
	}
}

func TestWatcherTracksNewAndRemovedFiles(t *testing.T) {
	dir := t.TempDir()
	am := newManager(t, dir)

	path := filepath.Join(dir, "late.spv")
	writeFile(t, path, spirv(2))
	waitFor(t, func() bool {
		_, ok := am.Lookup("late.spv")
		return ok
	})

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		_, ok := am.Lookup("late.spv")
		return !ok
	})
}

func TestContentAddressedIDs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.spv"), spirv(4))
	writeFile(t, filepath.Join(dir, "b.spv"), spirv(4))

	am := newManager(t, dir)
	a, err := am.LoadAsset("a.spv", nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := am.LoadAsset("b.spv", nil)
	if err != nil {
		t.Fatal(err)
	}
	if a.ID != b.ID {
		t.Errorf("identical contents got IDs %s and %s", a.ID, b.ID)
	}
	if a.Name != "a.spv" {
		t.Errorf("Name = %q, want the file name", a.Name)
	}
}

func TestShutdownWithoutInitialize(t *testing.T) {
	am, err := NewAssetManager()
	if err != nil {
		t.Fatal(err)
	}
	if err := am.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := am.Initialize(t.TempDir()); !errors.Is(err, ErrClosed) {
		t.Fatalf("Initialize after Shutdown error = %v, want ErrClosed", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
