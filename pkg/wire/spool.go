package wire

import (
	"bytes"

	"github.com/klauspost/compress/zstd"
)

// CopySpool buffers COPY_IN/COPY_OUT payloads that exceed
// threshold through a zstd stream instead of holding them
// uncompressed in memory — pure space optimization (SPEC_FULL.md
// §4.2); it never changes combine semantics or processed counts.
type CopySpool struct {
	threshold int
	small     bytes.Buffer
	spooled   bool
	enc       *zstd.Encoder
	sink      bytes.Buffer
	rawSize   int64
}

// NewCopySpool creates a spool that switches to zstd compression once
// more than thresholdBytes have been written.
func NewCopySpool(thresholdBytes int) *CopySpool {
	return &CopySpool{threshold: thresholdBytes}
}

// Write appends a COPY data chunk.
func (s *CopySpool) Write(p []byte) (int, error) {
	s.rawSize += int64(len(p))
	if !s.spooled && s.small.Len()+len(p) > s.threshold {
		if err := s.beginSpool(); err != nil {
			return 0, err
		}
	}
	if s.spooled {
		return s.enc.Write(p)
	}
	return s.small.Write(p)
}

func (s *CopySpool) beginSpool() error {
	enc, err := zstd.NewWriter(&s.sink)
	if err != nil {
		return err
	}
	if _, err := enc.Write(s.small.Bytes()); err != nil {
		return err
	}
	s.small.Reset()
	s.enc = enc
	s.spooled = true
	return nil
}

// Close finalizes the zstd stream, if one was started.
func (s *CopySpool) Close() error {
	if s.enc != nil {
		return s.enc.Close()
	}
	return nil
}

// RawSize returns the total uncompressed bytes written.
func (s *CopySpool) RawSize() int64 { return s.rawSize }

// Spooled reports whether this COPY stream crossed the threshold and
// is being held compressed rather than in a plain buffer.
func (s *CopySpool) Spooled() bool { return s.spooled }

// Bytes returns the buffered payload directly when it never crossed
// the spool threshold (the common case for small COPY batches).
func (s *CopySpool) Bytes() ([]byte, bool) {
	if s.spooled {
		return nil, false
	}
	return s.small.Bytes(), true
}

// CompressedBytes returns the zstd-compressed bytes once the stream
// has been Close()d, when the spool did cross the threshold.
func (s *CopySpool) CompressedBytes() ([]byte, bool) {
	if !s.spooled {
		return nil, false
	}
	return s.sink.Bytes(), true
}
