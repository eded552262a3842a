package imageprep

import (
	"fmt"
	"io"
	"net/http"
	"os"
)

// SniffMediaType reports the media type of a file from its leading bytes,
// never from its extension. TIFF is handled explicitly because the stdlib
// sniffing table does not cover it.
func (p *Preparer) SniffMediaType(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file for sniffing: %w", err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := f.Read(head)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read file head: %w", err)
	}
	head = head[:n]

	if isTIFF(head) {
		return "image/tiff", nil
	}
	return http.DetectContentType(head), nil
}

func isTIFF(head []byte) bool {
	if len(head) < 4 {
		return false
	}
	littleEndian := head[0] == 'I' && head[1] == 'I' && head[2] == 0x2A && head[3] == 0x00
	bigEndian := head[0] == 'M' && head[1] == 'M' && head[2] == 0x00 && head[3] == 0x2A
	return littleEndian || bigEndian
}
