package player

import (
	"bytes"
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/dhowden/tag"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/wav"
)

type codec int

const (
	codecUnknown codec = iota
	codecMP3
	codecFLAC
	codecWAV
)

func (c codec) String() string {
	switch c {
	case codecMP3:
		return "MP3"
	case codecFLAC:
		return "FLAC"
	case codecWAV:
		return "WAV"
	default:
		return "unknown"
	}
}

// memSource is a fully buffered source; decoders need it seekable.
type memSource struct {
	*bytes.Reader
}

func newMemSource(data []byte) *memSource {
	return &memSource{Reader: bytes.NewReader(data)}
}

func (*memSource) Close() error { return nil }

// detectCodec picks a decoder from the content type, then the URL
// extension, then the leading bytes.
func detectCodec(contentType, rawURL string, data []byte) codec {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mt {
		case "audio/mpeg", "audio/mp3", "audio/mpeg3":
			return codecMP3
		case "audio/flac", "audio/x-flac":
			return codecFLAC
		case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
			return codecWAV
		}
	}
	if u := strings.SplitN(rawURL, "?", 2)[0]; u != "" {
		switch strings.ToLower(path.Ext(u)) {
		case ".mp3":
			return codecMP3
		case ".flac":
			return codecFLAC
		case ".wav":
			return codecWAV
		}
	}
	return sniffCodec(data)
}

func sniffCodec(data []byte) codec {
	switch {
	case len(data) >= 4 && string(data[:4]) == "fLaC":
		return codecFLAC
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return codecWAV
	case len(data) >= 3 && string(data[:3]) == "ID3":
		// FLAC files occasionally carry an ID3v2 prefix too.
		if off := id3v2Size(data); off > 0 && len(data) >= off+4 && string(data[off:off+4]) == "fLaC" {
			return codecFLAC
		}
		return codecMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return codecMP3
	default:
		return codecUnknown
	}
}

// id3v2Size returns the byte length of a leading ID3v2 tag, or 0.
func id3v2Size(data []byte) int {
	if len(data) < 10 || string(data[:3]) != "ID3" {
		return 0
	}
	// syncsafe integer: 7 bits per byte
	size := int(data[6])<<21 | int(data[7])<<14 | int(data[8])<<7 | int(data[9])
	return 10 + size
}

func decode(c codec, data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	switch c {
	case codecMP3:
		return decodeMP3(newMemSource(data))
	case codecFLAC:
		// the FLAC decoder does not skip ID3v2 on its own
		if off := id3v2Size(data); off > 0 && off < len(data) {
			data = data[off:]
		}
		return flac.Decode(newMemSource(data))
	case codecWAV:
		return wav.Decode(newMemSource(data))
	default:
		return nil, beep.Format{}, ErrUnsupportedFormat
	}
}

// readMetadata extracts tags from a buffered source. Missing or
// unreadable tags yield nil.
func readMetadata(data []byte) *Metadata {
	m, err := tag.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	md := &Metadata{Title: m.Title(), Artist: m.Artist(), Album: m.Album()}
	if md.Title == "" && md.Artist == "" && md.Album == "" {
		return nil
	}
	return md
}

func describeFormat(c codec, f beep.Format) string {
	return fmt.Sprintf("%s %dHz %dbit", c, f.SampleRate, f.Precision*8)
}
