package payload

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/bryanwahyu/bioscan/internal/domain/exams"
)

// DefaultMaxBytes inline-data limit for a single request.
const DefaultMaxBytes int64 = 20 << 20

// pdfMagic must appear within the first KiB of a PDF file.
var pdfMagic = []byte("%PDF-")

// Encoder turns documents into base64 payloads.
type Encoder struct {
	MaxBytes int64
}

func NewEncoder(maxBytes int64) *Encoder {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Encoder{MaxBytes: maxBytes}
}

// Encode reads r fully and returns its base64 payload.
func (e *Encoder) Encode(name string, r io.Reader) (exams.Payload, error) {
	if r == nil {
		return exams.Payload{}, fmt.Errorf("%w: no file", exams.ErrFileRead)
	}
	data, err := io.ReadAll(io.LimitReader(r, e.limit()+1))
	if err != nil {
		return exams.Payload{}, fmt.Errorf("%w: %v", exams.ErrFileRead, err)
	}
	if err := e.check(data); err != nil {
		return exams.Payload{}, err
	}
	return exams.Payload{
		Name:     name,
		MIMEType: exams.MIMETypePDF,
		Data:     base64.StdEncoding.EncodeToString(data),
	}, nil
}

// FromDataURL accepts either plain base64 or a data URL
// ("data:application/pdf;base64,...") and strips the prefix.
func (e *Encoder) FromDataURL(name, s string) (exams.Payload, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		meta, rest, ok := strings.Cut(s, ",")
		if !ok || !strings.HasSuffix(meta, ";base64") {
			return exams.Payload{}, fmt.Errorf("%w: malformed data URL", exams.ErrFileRead)
		}
		s = rest
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return exams.Payload{}, fmt.Errorf("%w: invalid base64: %v", exams.ErrFileRead, err)
	}
	return e.Encode(name, bytes.NewReader(data))
}

// Decode returns the raw bytes of p.
func Decode(p exams.Payload) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(p.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %v", exams.ErrFileRead, err)
	}
	return data, nil
}

func (e *Encoder) limit() int64 {
	if e.MaxBytes <= 0 {
		return DefaultMaxBytes
	}
	return e.MaxBytes
}

func (e *Encoder) check(data []byte) error {
	switch {
	case len(data) == 0:
		return fmt.Errorf("%w: empty file", exams.ErrFileRead)
	case int64(len(data)) > e.limit():
		return fmt.Errorf("%w: file exceeds %d bytes", exams.ErrFileRead, e.limit())
	case !bytes.Contains(data[:min(len(data), 1024)], pdfMagic):
		return fmt.Errorf("%w: not a PDF document", exams.ErrFileRead)
	}
	return nil
}
