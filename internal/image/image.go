// Package image defines the executable image container: static bytes
// followed by code bytes, with no header, footer, or relocation table
// embedded in the byte stream itself.
package image

import (
	"encoding/json"
	"fmt"
	"os"
)

// Image is the final assembler output and the VM loader's input.
type Image struct {
	Static []byte
	Code   []byte
}

// Bytes concatenates Static and Code into the flat buffer the loader maps
// at address 0.
func (img Image) Bytes() []byte {
	out := make([]byte, 0, len(img.Static)+len(img.Code))
	out = append(out, img.Static...)
	out = append(out, img.Code...)
	return out
}

// CodeStart is the absolute address of the first code byte: the VM's
// initial PC.
func (img Image) CodeStart() uint64 {
	return uint64(len(img.Static))
}

// sidecar carries the one offset the flat byte stream can't express on its
// own: where .code begins. It travels next to the image file rather than
// inside it, since the image format itself stays header-free.
type sidecar struct {
	CodeStart uint64 `json:"code_start"`
}

func sidecarPath(imgPath string) string {
	return imgPath + ".meta.json"
}

// WriteFile writes img's flat byte stream to path and its code-start offset
// to a small JSON sidecar next to it.
func WriteFile(path string, img Image) error {
	if err := os.WriteFile(path, img.Bytes(), 0o644); err != nil {
		return err
	}
	meta, err := json.Marshal(sidecar{CodeStart: img.CodeStart()})
	if err != nil {
		return err
	}
	return os.WriteFile(sidecarPath(path), meta, 0o644)
}

// LoadFile reads the flat byte stream at path and its code-start offset from
// the sidecar WriteFile wrote alongside it, and splits the stream into
// Static/Code accordingly.
func LoadFile(path string) (Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, err
	}
	metaRaw, err := os.ReadFile(sidecarPath(path))
	if err != nil {
		return Image{}, fmt.Errorf("reading image metadata: %w", err)
	}
	var meta sidecar
	if err := json.Unmarshal(metaRaw, &meta); err != nil {
		return Image{}, fmt.Errorf("parsing image metadata: %w", err)
	}
	if meta.CodeStart > uint64(len(data)) {
		return Image{}, fmt.Errorf("image metadata code_start %d exceeds image length %d", meta.CodeStart, len(data))
	}
	return Image{Static: data[:meta.CodeStart], Code: data[meta.CodeStart:]}, nil
}
