package checkpointer

import "fmt"

// fileEnumerator enumerates filenames
type fileEnumerator struct {
	i         int
	name      string
	extension string
}

// next returns the name of the next consecutive enumerated file
func (f *fileEnumerator) next() string {
	f.i++
	return fmt.Sprintf("%v%d%v", f.name, f.i, f.extension)
}

// FilenameEnumerator returns a function which returns filenames with
// an increasing integer suffix, starting at start+1. The filename
// parameter is the full filename with its path, while the extension
// parameter determines the file extension and should include the dot.
func FilenameEnumerator(start int, filename, extension string) func() string {
	enum := fileEnumerator{i: start, name: filename, extension: extension}
	return enum.next
}
