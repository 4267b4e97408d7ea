package classfile

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// classBytes builds a minimal class with one method carrying a body.
func classBytes(name string) []byte {
	w := &classWriter{}
	w.u4(classFileMagic)
	w.u2(0)
	w.u2(52)

	w.u2(8)
	w.utf8(name)               // 1
	w.u1(tagClass)             // 2
	w.u2(1)                    //
	w.utf8("java/lang/Object") // 3
	w.u1(tagClass)             // 4
	w.u2(3)                    //
	w.utf8("m")                // 5
	w.utf8("()V")              // 6
	w.utf8("Code")             // 7

	w.u2(AccPublic)
	w.u2(2)
	w.u2(4)
	w.u2(0) // interfaces
	w.u2(0) // fields

	w.u2(1)
	w.u2(AccPublic)
	w.u2(5)
	w.u2(6)
	w.u2(1)
	w.u2(7) // "Code"
	w.u4(13)
	w.u2(0)
	w.u2(1)
	w.u4(1)
	w.raw([]byte{0xb1}) // return
	w.u2(0)
	w.u2(0)

	w.u2(0) // class attributes
	return w.buf
}

func writeClassFile(t *testing.T, dir, path, className string) {
	t.Helper()
	full := filepath.Join(dir, path)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, classBytes(className), 0o644))
}

func TestLoadPoolFromDirectory(t *testing.T) {
	dir := t.TempDir()
	writeClassFile(t, dir, "p/Foo.class", "p/Foo")
	writeClassFile(t, dir, "p/sub/Bar.class", "p/sub/Bar")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o644))

	pool, err := LoadPool(t.Context(), LoaderOptions{Inputs: []string{dir}})
	require.NoError(t, err)
	require.Equal(t, 2, pool.Size())

	foo := pool.Get("p/Foo")
	require.NotNil(t, foo)
	require.False(t, foo.Library)
	require.NotNil(t, foo.Methods[0].Code)
	require.NotNil(t, pool.Get("p/sub/Bar"))
}

func TestLoadPoolFromJar(t *testing.T) {
	jar := filepath.Join(t.TempDir(), "app.jar")
	f, err := os.Create(jar)
	require.NoError(t, err)
	zw := zip.NewWriter(f)

	entry, err := zw.Create("p/Foo.class")
	require.NoError(t, err)
	_, err = entry.Write(classBytes("p/Foo"))
	require.NoError(t, err)

	readme, err := zw.Create("META-INF/MANIFEST.MF")
	require.NoError(t, err)
	_, err = readme.Write([]byte("Manifest-Version: 1.0\n"))
	require.NoError(t, err)

	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	pool, err := LoadPool(t.Context(), LoaderOptions{Inputs: []string{jar}})
	require.NoError(t, err)
	require.Equal(t, 1, pool.Size())
	require.NotNil(t, pool.Get("p/Foo"))
}

func TestLoadPoolLibraryClasses(t *testing.T) {
	libDir := t.TempDir()
	writeClassFile(t, libDir, "p/Shared.class", "p/Shared")
	writeClassFile(t, libDir, "p/LibOnly.class", "p/LibOnly")

	progDir := t.TempDir()
	writeClassFile(t, progDir, "p/Shared.class", "p/Shared")

	pool, err := LoadPool(t.Context(), LoaderOptions{
		Inputs:        []string{progDir},
		LibraryInputs: []string{libDir},
		Workers:       2,
	})
	require.NoError(t, err)
	require.Equal(t, 2, pool.Size())

	// Library classes lose their method bodies.
	libOnly := pool.Get("p/LibOnly")
	require.True(t, libOnly.Library)
	require.Nil(t, libOnly.Methods[0].Code)

	// The program class replaces its library twin.
	shared := pool.Get("p/Shared")
	require.False(t, shared.Library)
	require.NotNil(t, shared.Methods[0].Code)
}

func TestLoadPoolSkipsUnreadableClass(t *testing.T) {
	dir := t.TempDir()
	writeClassFile(t, dir, "p/Good.class", "p/Good")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Broken.class"), []byte("not a class"), 0o644))

	pool, err := LoadPool(t.Context(), LoaderOptions{Inputs: []string{dir}})
	require.NoError(t, err)
	require.Equal(t, 1, pool.Size())
}

func TestLoadPoolInputErrors(t *testing.T) {
	_, err := LoadPool(t.Context(), LoaderOptions{})
	require.Error(t, err)

	_, err = LoadPool(t.Context(), LoaderOptions{
		Inputs: []string{filepath.Join(t.TempDir(), "missing.jar")},
	})
	require.Error(t, err)
}
