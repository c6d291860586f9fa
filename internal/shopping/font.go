package shopping

import (
	"errors"
	"fmt"
	"os"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

// ErrFont reports a configured font that cannot be read or parsed.
var ErrFont = errors.New("shopping: font unavailable")

// LoadFont returns the TrueType font at path, or the embedded Go Regular face
// when path is empty. The bytes are parsed once to reject non-TrueType files.
func LoadFont(path string) ([]byte, error) {
	data := goregular.TTF
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFont, err)
		}
		data = raw
	}

	if _, err := truetype.Parse(data); err != nil {
		return nil, fmt.Errorf("%w: parse %q: %v", ErrFont, path, err)
	}
	return data, nil
}
