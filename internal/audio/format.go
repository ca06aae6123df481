package audio

import "bytes"

// Format identifies the container format of a submitted recording.
type Format string

const (
	FormatWebM Format = "webm"
	FormatWAV  Format = "wav"
	FormatOgg  Format = "ogg"
	FormatMP3  Format = "mp3"
)

// DetectFormat sniffs the container format from the first bytes of the
// recording. Browser recordings are WebM by default, so unrecognized
// payloads fall back to FormatWebM.
func DetectFormat(data []byte) Format {
	switch {
	case len(data) >= 4 && bytes.Equal(data[:4], []byte{0x1A, 0x45, 0xDF, 0xA3}):
		// EBML header, used by WebM/Matroska containers
		return FormatWebM
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return FormatWAV
	case len(data) >= 4 && bytes.Equal(data[:4], []byte("OggS")):
		return FormatOgg
	case len(data) >= 3 && bytes.Equal(data[:3], []byte("ID3")):
		return FormatMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		// Raw MPEG audio frame sync
		return FormatMP3
	default:
		return FormatWebM
	}
}

// Extension returns the spool file suffix for the format, including the
// leading dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// ContentType returns the MIME type used when uploading the recording
// for transcription.
func (f Format) ContentType() string {
	switch f {
	case FormatWAV:
		return "audio/wav"
	case FormatOgg:
		return "audio/ogg"
	case FormatMP3:
		return "audio/mpeg"
	default:
		return "audio/webm"
	}
}
