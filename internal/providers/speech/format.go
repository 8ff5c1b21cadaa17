package speech

import "bytes"

// Audio container formats the providers understand.
const (
	FormatWAV  = "wav"
	FormatWebM = "webm"
)

var (
	riffMagic = []byte("RIFF")
	ebmlMagic = []byte{0x1A, 0x45, 0xDF, 0xA3}
)

// DetectFormat sniffs the audio container from the first four bytes.
// RIFF maps to WAV and the EBML magic to WebM; anything else defaults to WAV,
// which is what the capture frontend records.
func DetectFormat(audio []byte) string {
	if len(audio) < 4 {
		return FormatWAV
	}
	switch {
	case bytes.HasPrefix(audio, riffMagic):
		return FormatWAV
	case bytes.HasPrefix(audio, ebmlMagic):
		return FormatWebM
	default:
		return FormatWAV
	}
}
