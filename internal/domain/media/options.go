package media

import (
	"encoding/json"
	"fmt"
)

// ModelOptions carries knobs that only one model family understands.
// Builders type-switch on the concrete type; a nil or foreign value means defaults.
type ModelOptions interface {
	OptionsTag() string
}

// OptionsOf returns o as *T, or a zero *T when o holds another family.
func OptionsOf[T any, PT interface {
	*T
	ModelOptions
}](o ModelOptions) *T {
	if v, ok := o.(PT); ok && v != nil {
		return v
	}
	return new(T)
}

// NanoBananaOptions configures the nano-banana family.
type NanoBananaOptions struct {
	Resolution string `json:"resolution,omitempty"`
}

// SeedreamOptions configures the seedream image family.
type SeedreamOptions struct {
	SequentialImageGeneration string `json:"sequential_image_generation,omitempty"`
	MaxImages                 *int   `json:"max_images,omitempty"`
	Watermark                 *bool  `json:"watermark,omitempty"`
	ImageResolution           string `json:"image_resolution,omitempty"`
}

// ZImageOptions configures z-image turbo.
type ZImageOptions struct {
	ImageSize             string `json:"image_size,omitempty"`
	NumInferenceSteps     int    `json:"num_inference_steps,omitempty"`
	EnablePromptExpansion bool   `json:"enable_prompt_expansion,omitempty"`
	Acceleration          string `json:"acceleration,omitempty"`
}

// Veo31Options configures veo 3.1.
type Veo31Options struct {
	Fast          bool  `json:"fast,omitempty"`
	EnhancePrompt *bool `json:"enhance_prompt,omitempty"`
	GenerateAudio *bool `json:"generate_audio,omitempty"`
	AutoFix       *bool `json:"auto_fix,omitempty"`
}

// KlingElement is a reusable subject reference for kling o1.
type KlingElement struct {
	FrontalImageURL    string   `json:"frontal_image_url"`
	ReferenceImageURLs []string `json:"reference_image_urls,omitempty"`
}

// KlingOptions configures the kling video family.
type KlingOptions struct {
	CfgScale             *float64       `json:"cfg_scale,omitempty"`
	Quality              string         `json:"quality,omitempty"`
	KeepAudio            bool           `json:"keep_audio,omitempty"`
	Sound                bool           `json:"sound,omitempty"`
	CharacterOrientation string         `json:"character_orientation,omitempty"`
	Elements             []KlingElement `json:"elements,omitempty"`
}

// SoraOptions configures sora 2.
type SoraOptions struct {
	Pro     bool   `json:"pro,omitempty"`
	Quality string `json:"quality,omitempty"`
}

// SeedanceOptions configures the seedance video family.
type SeedanceOptions struct {
	Version     string `json:"version,omitempty"`
	Fast        *bool  `json:"fast,omitempty"`
	CameraFixed bool   `json:"camera_fixed,omitempty"`
	LastImage   string `json:"last_image,omitempty"`
}

// HailuoOptions configures the minimax hailuo family.
type HailuoOptions struct {
	Pro             bool  `json:"pro,omitempty"`
	Fast            *bool `json:"fast,omitempty"`
	PromptOptimizer *bool `json:"prompt_optimizer,omitempty"`
}

// ViduOptions configures vidu q1.
type ViduOptions struct {
	Style             string `json:"style,omitempty"`
	MovementAmplitude string `json:"movement_amplitude,omitempty"`
	BGM               bool   `json:"bgm,omitempty"`
}

// PixverseOptions configures pixverse.
type PixverseOptions struct {
	Fast bool `json:"fast,omitempty"`
}

// WanOptions configures wan 2.5.
type WanOptions struct {
	PromptExtend *bool `json:"prompt_extend,omitempty"`
	Audio        *bool `json:"audio,omitempty"`
}

// SpeechOptions configures minimax speech synthesis.
type SpeechOptions struct {
	Variant           string   `json:"variant,omitempty"`
	VoiceID           string   `json:"voice_id,omitempty"`
	Speed             *float64 `json:"speed,omitempty"`
	Volume            *float64 `json:"vol,omitempty"`
	Pitch             *int     `json:"pitch,omitempty"`
	Emotion           string   `json:"emotion,omitempty"`
	SampleRate        *int     `json:"sample_rate,omitempty"`
	Bitrate           *int     `json:"bitrate,omitempty"`
	Format            string   `json:"format,omitempty"`
	Channel           *int     `json:"channel,omitempty"`
	LanguageBoost     string   `json:"language_boost,omitempty"`
	Stream            *bool    `json:"stream,omitempty"`
	LatexRead         *bool    `json:"latex_read,omitempty"`
	TextNormalization *bool    `json:"text_normalization,omitempty"`
}

// ModelScopeOptions configures ModelScope inference models.
type ModelScopeOptions struct {
	Width    int      `json:"width,omitempty"`
	Height   int      `json:"height,omitempty"`
	Steps    *int     `json:"steps,omitempty"`
	Guidance *float64 `json:"guidance,omitempty"`
}

func (*NanoBananaOptions) OptionsTag() string { return "nano_banana" }
func (*SeedreamOptions) OptionsTag() string   { return "seedream" }
func (*ZImageOptions) OptionsTag() string     { return "z_image" }
func (*Veo31Options) OptionsTag() string      { return "veo31" }
func (*KlingOptions) OptionsTag() string      { return "kling" }
func (*SoraOptions) OptionsTag() string       { return "sora" }
func (*SeedanceOptions) OptionsTag() string   { return "seedance" }
func (*HailuoOptions) OptionsTag() string     { return "hailuo" }
func (*ViduOptions) OptionsTag() string       { return "vidu" }
func (*PixverseOptions) OptionsTag() string   { return "pixverse" }
func (*WanOptions) OptionsTag() string        { return "wan" }
func (*SpeechOptions) OptionsTag() string     { return "speech" }
func (*ModelScopeOptions) OptionsTag() string { return "modelscope" }

var optionsFactories = map[string]func() ModelOptions{
	"nano_banana": func() ModelOptions { return &NanoBananaOptions{} },
	"seedream":    func() ModelOptions { return &SeedreamOptions{} },
	"z_image":     func() ModelOptions { return &ZImageOptions{} },
	"veo31":       func() ModelOptions { return &Veo31Options{} },
	"kling":       func() ModelOptions { return &KlingOptions{} },
	"sora":        func() ModelOptions { return &SoraOptions{} },
	"seedance":    func() ModelOptions { return &SeedanceOptions{} },
	"hailuo":      func() ModelOptions { return &HailuoOptions{} },
	"vidu":        func() ModelOptions { return &ViduOptions{} },
	"pixverse":    func() ModelOptions { return &PixverseOptions{} },
	"wan":         func() ModelOptions { return &WanOptions{} },
	"speech":      func() ModelOptions { return &SpeechOptions{} },
	"modelscope":  func() ModelOptions { return &ModelScopeOptions{} },
}

// DecodeOptions builds the options value named by tag from raw JSON.
// An empty tag yields nil options.
func DecodeOptions(tag string, raw json.RawMessage) (ModelOptions, error) {
	if tag == "" {
		return nil, nil
	}
	factory, ok := optionsFactories[tag]
	if !ok {
		return nil, NewValidationError(ErrInvalidInput, "unknown options type %q", tag)
	}
	opts := factory()
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, opts); err != nil {
			return nil, NewValidationError(ErrInvalidInput, "decode %s options: %v", tag, err)
		}
	}
	return opts, nil
}

// describeOptions renders options for logs.
func describeOptions(o ModelOptions) string {
	if o == nil {
		return "none"
	}
	return fmt.Sprintf("%s%+v", o.OptionsTag(), o)
}
