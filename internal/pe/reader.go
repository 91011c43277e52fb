// Package pe decodes the DOS, COFF and section headers of PE images.
package pe

import (
	"os"

	"github.com/h2non/filetype"
	"github.com/pkg/errors"
)

// KindData is reported for content no file-type matcher recognizes.
const KindData = "data"

// Image is the raw content of a file to decode.
type Image struct {
	path string
	data []byte
	kind string
}

// Load reads the whole file at path.
func Load(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(ErrIO, "%s: %v", path, err)
	}
	return NewImage(path, data), nil
}

// NewImage wraps data already in memory. path is only used for display.
func NewImage(path string, data []byte) *Image {
	return &Image{
		path: path,
		data: data,
		kind: detectKind(data),
	}
}

// Path returns the file path.
func (i *Image) Path() string {
	return i.path
}

// Data returns the file content.
func (i *Image) Data() []byte {
	return i.data
}

// Size returns the file size in bytes.
func (i *Image) Size() int64 {
	return int64(len(i.data))
}

// Kind returns the MIME type sniffed from the leading bytes.
func (i *Image) Kind() string {
	return i.kind
}

func detectKind(data []byte) string {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return KindData
	}
	return kind.MIME.Value
}
