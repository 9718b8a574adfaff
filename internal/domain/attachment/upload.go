package attachment

import (
	"bytes"
	"io"
	"mime/multipart"
)

// Upload is an incoming file that has not been stored yet.
type Upload interface {
	Filename() string
	Size() int64
	Open() (io.ReadCloser, error)
}

type fileHeaderUpload struct {
	header *multipart.FileHeader
}

// FromFileHeader wraps a multipart form file.
func FromFileHeader(h *multipart.FileHeader) Upload {
	return fileHeaderUpload{header: h}
}

func (u fileHeaderUpload) Filename() string { return u.header.Filename }
func (u fileHeaderUpload) Size() int64      { return u.header.Size }

func (u fileHeaderUpload) Open() (io.ReadCloser, error) {
	return u.header.Open()
}

type bytesUpload struct {
	name string
	data []byte
}

// FromBytes builds an Upload from in-memory content.
func FromBytes(name string, data []byte) Upload {
	return bytesUpload{name: name, data: data}
}

func (u bytesUpload) Filename() string { return u.name }
func (u bytesUpload) Size() int64      { return int64(len(u.data)) }

func (u bytesUpload) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(u.data)), nil
}
