package ppio

import (
	"strings"

	"github.com/uniedit/mediagen/internal/adapter/outbound/mediaprovider/providerkit"
	"github.com/uniedit/mediagen/internal/domain/media"
	"github.com/uniedit/mediagen/internal/module/gateway/route"
)

type audioInput = providerkit.Input[*media.AudioParams]

func audioRoutes() *route.Router[audioInput] {
	return route.New(media.ProviderPPIO,
		route.Route[audioInput]{
			Name:  "minimax-speech-2.6",
			Match: route.Exact("minimax-speech-2.6", "minimax-speech-2.6-hd", "minimax-speech-2.6-turbo"),
			Build: buildSpeech26,
		},
	)
}

func buildSpeech26(in audioInput) (route.Request, error) {
	p := in.Params
	if strings.TrimSpace(p.Text) == "" {
		return route.Request{}, media.NewValidationError(media.ErrInvalidInput, "%s needs text", p.Model)
	}
	opts := media.OptionsOf[media.SpeechOptions](p.Options)

	variant := "hd"
	switch {
	case p.Model == "minimax-speech-2.6-turbo":
		variant = "turbo"
	case p.Model == "minimax-speech-2.6" && opts.Variant == "turbo":
		variant = "turbo"
	}

	payload := map[string]any{
		"text":          p.Text,
		"output_format": providerkit.Or(p.OutputFormat, "url"),
	}
	if opts.Stream != nil {
		payload["stream"] = *opts.Stream
	}
	providerkit.SetIf(payload, "language_boost", opts.LanguageBoost)

	voice := map[string]any{}
	providerkit.SetIf(voice, "voice_id", opts.VoiceID)
	providerkit.SetIf(voice, "emotion", opts.Emotion)
	if opts.Speed != nil {
		voice["speed"] = *opts.Speed
	}
	if opts.Volume != nil {
		voice["vol"] = *opts.Volume
	}
	if opts.Pitch != nil {
		voice["pitch"] = *opts.Pitch
	}
	if opts.LatexRead != nil {
		voice["latex_read"] = *opts.LatexRead
	}
	if opts.TextNormalization != nil {
		voice["text_normalization"] = *opts.TextNormalization
	}
	if len(voice) > 0 {
		payload["voice_setting"] = voice
	}

	audio := map[string]any{}
	providerkit.SetIf(audio, "format", opts.Format)
	if opts.SampleRate != nil {
		audio["sample_rate"] = *opts.SampleRate
	}
	if opts.Bitrate != nil {
		audio["bitrate"] = *opts.Bitrate
	}
	if opts.Channel != nil {
		audio["channel"] = *opts.Channel
	}
	if len(audio) > 0 {
		payload["audio_setting"] = audio
	}

	endpoint := "/minimax-speech-2.6-" + variant
	return route.Request{Endpoint: endpoint, CanonicalModelID: "minimax-speech-2.6-" + variant, Payload: payload}, nil
}
