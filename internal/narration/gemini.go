package narration

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"google.golang.org/genai"

	"polyglot/internal/logging"
)

// Gemini TTS returns raw 16-bit little-endian mono PCM at 24 kHz.
const (
	pcmSampleRate    = 24000
	pcmChannels      = 1
	pcmBitsPerSample = 16
)

// speechModel is the slice of the genai Models service the narrator uses.
type speechModel interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiNarrator synthesizes speech with a Gemini TTS model.
type GeminiNarrator struct {
	models speechModel
	model  string
	voice  string
	cache  *Cache
}

// NewGeminiNarrator creates a narrator backed by the Gemini API.
func NewGeminiNarrator(ctx context.Context, apiKey, model, voice string, cache *Cache) (*GeminiNarrator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini narration needs GEMINI_API_KEY", ErrUnavailable)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	if voice == "" {
		voice = "Aoede"
	}
	return &GeminiNarrator{models: client.Models, model: model, voice: voice, cache: cache}, nil
}

// Name returns "gemini".
func (n *GeminiNarrator) Name() string { return "gemini" }

// Synthesize requests audio for text and stores it as a WAV file.
func (n *GeminiNarrator) Synthesize(ctx context.Context, text, locale string) (Audio, error) {
	path, ok := n.cache.Path(n.Name(), n.voice, locale, text)
	if ok {
		return Audio{Path: path, Cached: true}, nil
	}

	err := n.cache.fill(path, func(tmp string) error {
		pcm, err := n.generate(ctx, text, locale)
		if err != nil {
			return err
		}
		f, err := os.Create(tmp)
		if err != nil {
			return err
		}
		if err := writeWAV(f, pcm); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	})
	if err != nil {
		return Audio{}, fmt.Errorf("gemini synthesis failed: %w", err)
	}
	logging.NarrationDebug("[Gemini] synthesized %d chars to %s", len(text), path)
	return Audio{Path: path}, nil
}

func (n *GeminiNarrator) generate(ctx context.Context, text, locale string) ([]byte, error) {
	prompt := text
	if locale != "" {
		prompt = fmt.Sprintf("Read aloud slowly and clearly for a language learner (language: %s):\n%s", locale, text)
	}
	resp, err := n.models.GenerateContent(ctx, n.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{
			ResponseModalities: []string{"audio"},
			SpeechConfig: &genai.SpeechConfig{
				VoiceConfig: &genai.VoiceConfig{
					PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: n.voice},
				},
			},
		})
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("empty speech response")
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData.Data, nil
		}
	}
	return nil, fmt.Errorf("speech response carried no audio")
}

// writeWAV wraps raw PCM in a canonical 44-byte RIFF header.
func writeWAV(w io.Writer, pcm []byte) error {
	byteRate := pcmSampleRate * pcmChannels * pcmBitsPerSample / 8
	header := struct {
		ChunkID       [4]byte
		ChunkSize     uint32
		Format        [4]byte
		Subchunk1ID   [4]byte
		Subchunk1Size uint32
		AudioFormat   uint16
		NumChannels   uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
		Subchunk2ID   [4]byte
		Subchunk2Size uint32
	}{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(36 + len(pcm)),
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   pcmChannels,
		SampleRate:    pcmSampleRate,
		ByteRate:      uint32(byteRate),
		BlockAlign:    pcmChannels * pcmBitsPerSample / 8,
		BitsPerSample: pcmBitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: uint32(len(pcm)),
	}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return err
	}
	_, err := w.Write(pcm)
	return err
}
