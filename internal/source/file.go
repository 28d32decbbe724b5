package source

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Stdin is the path that selects standard input.
const Stdin = "-"

// Load reads the dataset at path. Shapefiles (.shp) are converted to features;
// anything else is read as GeoJSON text. The whole document is held in memory.
func Load(path string) (*Collection, error) {
	if strings.EqualFold(filepath.Ext(path), ".shp") {
		return ReadShapefile(path)
	}

	data, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseCollection(data)
}

// ReadFile returns the raw bytes of a GeoJSON file, or of stdin for "-".
func ReadFile(path string) ([]byte, error) {
	if path == Stdin {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, eris.Wrap(err, "source: read stdin")
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "source: read %s", path)
	}
	return data, nil
}
