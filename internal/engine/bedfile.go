package engine

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"

	"github.com/kmoroz/aurora/internal/logger"
)

// bedExts lists the formats the loader understands.
var bedExts = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".ogg":  true,
	".flac": true,
}

// loadBedFile decodes one ambient bed fully into interleaved stereo int16
// at the engine sample rate.
func loadBedFile(path string) (*bed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var (
		samples  []int16
		rate     int
		channels int
	)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav":
		samples, rate, channels, err = decodeWAV(f)
	case ".mp3":
		samples, rate, channels, err = decodeMP3(f)
	case ".ogg":
		samples, rate, channels, err = decodeOGG(f)
	case ".flac":
		samples, rate, channels, err = decodeFLAC(f)
	default:
		return nil, fmt.Errorf("unsupported bed format: %s", ext)
	}
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("bed %s decoded to no samples", filepath.Base(path))
	}

	if channels == 1 {
		samples = monoToStereo(samples)
	}
	if rate != sampleRate {
		samples = resampleStereo(samples, rate, sampleRate)
	}

	return &bed{
		title:   bedTitle(path),
		samples: samples,
	}, nil
}

// bedTitle prefers the ID3 title of an mp3 bed and falls back to the
// filename.
func bedTitle(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".mp3") {
		tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
		if err == nil {
			defer tag.Close()
			if t := strings.TrimSpace(tag.Title()); t != "" {
				return t
			}
		}
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func decodeWAV(f *os.File) ([]int16, int, int, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, 0, fmt.Errorf("invalid WAV file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("reading WAV PCM data: %w", err)
	}

	bitDepth := int(dec.BitDepth)
	out := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		var s int
		switch bitDepth {
		case 8:
			// 8-bit WAV is unsigned
			s = (v - 128) << 8
		case 16:
			s = v
		case 24:
			s = v >> 8
		case 32:
			s = v >> 16
		default:
			return nil, 0, 0, fmt.Errorf("unsupported WAV bit depth: %d", bitDepth)
		}
		if s > 32767 {
			s = 32767
		} else if s < -32768 {
			s = -32768
		}
		out[i] = int16(s)
	}
	return out, int(dec.SampleRate), int(dec.NumChans), nil
}

func decodeMP3(f *os.File) ([]int16, int, int, error) {
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decoding MP3: %w", err)
	}
	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("reading MP3 PCM data: %w", err)
	}
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	// go-mp3 always emits 16-bit stereo at the source rate
	return out, dec.SampleRate(), 2, nil
}

func decodeOGG(f *os.File) ([]int16, int, int, error) {
	r, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decoding OGG: %w", err)
	}

	var out []int16
	buf := make([]float32, 4096)
	for {
		n, err := r.Read(buf)
		for _, s := range buf[:n] {
			if s > 1 {
				s = 1
			} else if s < -1 {
				s = -1
			}
			out = append(out, int16(s*32767))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, 0, fmt.Errorf("reading OGG samples: %w", err)
		}
	}
	return out, r.SampleRate(), r.Channels(), nil
}

func decodeFLAC(f *os.File) ([]int16, int, int, error) {
	stream, err := flac.New(f)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decoding FLAC: %w", err)
	}

	info := stream.Info
	channels := int(info.NChannels)
	bps := int(info.BitsPerSample)

	var out []int16
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, 0, fmt.Errorf("reading FLAC frame: %w", err)
		}
		n := int(frame.Subframes[0].NSamples)
		for i := range n {
			for ch := range channels {
				s := int(frame.Subframes[ch].Samples[i])
				switch {
				case bps > 16:
					s >>= bps - 16
				case bps < 16:
					s <<= 16 - bps
				}
				if s > 32767 {
					s = 32767
				} else if s < -32768 {
					s = -32768
				}
				out = append(out, int16(s))
			}
		}
	}
	return out, int(info.SampleRate), channels, nil
}

func monoToStereo(samples []int16) []int16 {
	stereo := make([]int16, len(samples)*2)
	for i, s := range samples {
		stereo[i*2] = s
		stereo[i*2+1] = s
	}
	return stereo
}

// resampleStereo converts interleaved stereo by linear interpolation.
// Plenty for ambient beds; nothing here needs a polyphase filter.
func resampleStereo(samples []int16, fromRate, toRate int) []int16 {
	if fromRate == toRate || len(samples) < 4 {
		return samples
	}

	frames := len(samples) / 2
	ratio := float64(fromRate) / float64(toRate)
	outFrames := int(float64(frames) / ratio)
	if outFrames == 0 {
		return nil
	}

	out := make([]int16, outFrames*2)
	for i := range outFrames {
		srcPos := float64(i) * ratio
		idx := int(srcPos)
		frac := srcPos - float64(idx)
		for ch := range 2 {
			if idx >= frames-1 {
				out[i*2+ch] = samples[(frames-1)*2+ch]
				continue
			}
			a := float64(samples[idx*2+ch])
			b := float64(samples[(idx+1)*2+ch])
			out[i*2+ch] = int16(a + frac*(b-a))
		}
	}
	return out
}

// scanBeds loads every decodable bed in dir, in name order. Beds that fail
// to decode are skipped so one broken file never silences the rest.
func scanBeds(dir string) ([]*bed, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading beds dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if bedExts[strings.ToLower(filepath.Ext(e.Name()))] {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	var beds []*bed
	for _, p := range paths {
		b, err := loadBedFile(p)
		if err != nil {
			logger.Warnf("skipping bed %s: %v", filepath.Base(p), err)
			continue
		}
		beds = append(beds, b)
		logger.Debugf("loaded bed %q (%d frames)", b.title, len(b.samples)/2)
	}
	return beds, nil
}
