package ppio

import (
	"strings"

	"github.com/uniedit/mediagen/internal/adapter/outbound/mediaprovider/providerkit"
	"github.com/uniedit/mediagen/internal/domain/media"
	"github.com/uniedit/mediagen/internal/module/gateway/mediaref"
	"github.com/uniedit/mediagen/internal/module/gateway/route"
)

type videoInput = providerkit.Input[*media.VideoParams]

// Vidu modes.
const (
	ModeTextImageToVideo = "text-image-to-video"
	ModeStartEndFrame    = "start-end-frame"
	ModeReferenceToVideo = "reference-to-video"
)

const maxPromptRunes = 2500

func videoRoutes() *route.Router[videoInput] {
	return route.New(media.ProviderPPIO,
		route.Route[videoInput]{
			Name:  "kling-2.5-turbo",
			Match: route.Exact("kling-2.5-turbo"),
			Build: buildKlingTurbo,
		},
		route.Route[videoInput]{
			Name:  "minimax-hailuo-2.3",
			Match: route.Exact("minimax-hailuo-2.3", "minimax-hailuo-2.3-fast"),
			Build: buildHailuo23,
		},
		route.Route[videoInput]{
			Name:  "minimax-hailuo-02",
			Match: route.Exact("minimax-hailuo-02"),
			Build: buildHailuo02,
		},
		route.Route[videoInput]{
			Name:  "vidu-q1",
			Match: route.Contains("vidu-q1"),
			Build: buildViduQ1,
		},
		route.Route[videoInput]{
			Name:  "pixverse-v4.5",
			Match: route.Exact("pixverse-v4.5"),
			Build: buildPixverse,
		},
		route.Route[videoInput]{
			Name:  "wan-2.5-preview",
			Match: route.Exact("wan-2.5-preview"),
			Build: buildWan25,
		},
		route.Route[videoInput]{
			Name:  "seedance-v1",
			Match: route.Exact("seedance-v1", "seedance-v1-lite", "seedance-v1-pro"),
			Build: buildSeedance,
		},
	)
}

var (
	klingRatios         = []string{"16:9", "9:16", "1:1"}
	klingQualities      = []string{"std", "pro"}
	pixverseResolutions = []string{"360p", "540p", "720p", "1080p"}
)

func buildKlingTurbo(in videoInput) (route.Request, error) {
	p := in.Params
	opts := media.OptionsOf[media.KlingOptions](p.Options)
	prompt := mediaref.Truncate(p.Prompt, maxPromptRunes)
	if strings.TrimSpace(prompt) == "" {
		return route.Request{}, media.NewValidationError(media.ErrInvalidInput, "kling-2.5-turbo needs a non-empty prompt")
	}
	cfg := 0.5
	if opts.CfgScale != nil {
		cfg = mediaref.ClampFloat(*opts.CfgScale, 0, 1)
	}
	duration := "5"
	if p.Duration == 10 {
		duration = "10"
	}

	payload := map[string]any{
		"prompt":    prompt,
		"duration":  duration,
		"cfg_scale": cfg,
		"mode":      mediaref.OneOf(opts.Quality, klingQualities, "pro"),
	}
	if p.NegativePrompt != "" {
		payload["negative_prompt"] = mediaref.Truncate(p.NegativePrompt, maxPromptRunes)
	}

	endpoint := "/async/kling-2.5-turbo-t2v"
	if len(p.Images) > 0 {
		refs, err := in.Stage(p.Images[:1])
		if err != nil {
			return route.Request{}, err
		}
		endpoint = "/async/kling-2.5-turbo-i2v"
		payload["image"] = mediaref.StripDataURI(refs[0])
	} else {
		payload["aspect_ratio"] = mediaref.OneOf(p.AspectRatio, klingRatios, "16:9")
	}
	return route.Request{Endpoint: endpoint, CanonicalModelID: "kling-2.5-turbo", Payload: payload}, nil
}

// hailuoShape allows 6s or 10s clips; 10s clips only render at 768P.
func hailuoShape(duration int, resolution string) (int, string) {
	if duration == 10 {
		return 10, "768P"
	}
	if strings.ToUpper(resolution) == "1080P" {
		return 6, "1080P"
	}
	return 6, "768P"
}

func hailuoPayload(p *media.VideoParams) map[string]any {
	opts := media.OptionsOf[media.HailuoOptions](p.Options)
	duration, resolution := hailuoShape(p.Duration, p.Resolution)
	return map[string]any{
		"prompt":                  p.Prompt,
		"duration":                duration,
		"resolution":              resolution,
		"enable_prompt_expansion": providerkit.BoolOr(opts.PromptOptimizer, true),
	}
}

func buildHailuo23(in videoInput) (route.Request, error) {
	p := in.Params
	opts := media.OptionsOf[media.HailuoOptions](p.Options)
	payload := hailuoPayload(p)

	if len(p.Images) == 0 {
		return route.Request{Endpoint: "/async/minimax-hailuo-2.3-t2v", CanonicalModelID: p.Model, Payload: payload}, nil
	}
	refs, err := in.Stage(p.Images[:1])
	if err != nil {
		return route.Request{}, err
	}
	payload["image"] = refs[0]
	endpoint := "/async/minimax-hailuo-2.3-i2v"
	if p.Model == "minimax-hailuo-2.3-fast" || providerkit.BoolOr(opts.Fast, false) {
		endpoint = "/async/minimax-hailuo-2.3-fast-i2v"
	}
	return route.Request{Endpoint: endpoint, CanonicalModelID: p.Model, Payload: payload}, nil
}

func buildHailuo02(in videoInput) (route.Request, error) {
	p := in.Params
	payload := hailuoPayload(p)
	if len(p.Images) > 0 {
		n := min(len(p.Images), 2)
		refs, err := in.Stage(p.Images[:n])
		if err != nil {
			return route.Request{}, err
		}
		payload["image"] = refs[0]
		if n == 2 {
			payload["end_image"] = refs[1]
		}
	}
	return route.Request{Endpoint: "/async/minimax-hailuo-02", CanonicalModelID: "minimax-hailuo-02", Payload: payload}, nil
}

func buildViduQ1(in videoInput) (route.Request, error) {
	p := in.Params
	opts := media.OptionsOf[media.ViduOptions](p.Options)
	mode := providerkit.Or(p.Mode, ModeTextImageToVideo)

	var (
		endpoint string
		take     int
	)
	switch mode {
	case ModeTextImageToVideo:
		endpoint = "/async/vidu-q1-text2video"
		if len(p.Images) > 0 {
			endpoint, take = "/async/vidu-q1-img2video", 1
		}
	case ModeStartEndFrame:
		if err := mediaref.RequireCount(mode, len(p.Images), 2, 0); err != nil {
			return route.Request{}, err
		}
		endpoint, take = "/async/vidu-q1-startend2video", 2
	case ModeReferenceToVideo:
		if err := mediaref.RequireCount(mode, len(p.Images), 1, 7); err != nil {
			return route.Request{}, err
		}
		if strings.TrimSpace(p.Prompt) == "" {
			return route.Request{}, media.NewValidationError(media.ErrInvalidInput, "mode %s needs a prompt", mode)
		}
		endpoint, take = "/async/vidu-q1-reference2video", len(p.Images)
	default:
		return route.Request{}, media.NewValidationError(media.ErrInvalidInput, "vidu-q1 does not support mode %q", mode)
	}

	payload := map[string]any{
		"prompt":             p.Prompt,
		"duration":           providerkit.IntOr(p.Duration, 5),
		"resolution":         providerkit.Or(p.Resolution, "1080p"),
		"movement_amplitude": providerkit.Or(opts.MovementAmplitude, "auto"),
		"bgm":                opts.BGM,
	}
	if p.Seed != nil {
		payload["seed"] = *p.Seed
	}
	if endpoint == "/async/vidu-q1-text2video" {
		payload["aspect_ratio"] = providerkit.Or(p.AspectRatio, "16:9")
		payload["style"] = providerkit.Or(opts.Style, "general")
	}
	if mode == ModeReferenceToVideo {
		payload["aspect_ratio"] = providerkit.Or(p.AspectRatio, "16:9")
	}
	if take > 0 {
		refs, err := in.Stage(p.Images[:take])
		if err != nil {
			return route.Request{}, err
		}
		payload["images"] = refs
	}
	return route.Request{Endpoint: endpoint, CanonicalModelID: "vidu-q1", Payload: payload}, nil
}

func buildPixverse(in videoInput) (route.Request, error) {
	p := in.Params
	opts := media.OptionsOf[media.PixverseOptions](p.Options)
	resolution := mediaref.OneOf(strings.ToLower(p.Resolution), pixverseResolutions, "540p")
	if opts.Fast && resolution == "1080p" {
		resolution = "720p"
	}

	payload := map[string]any{
		"prompt":     p.Prompt,
		"resolution": resolution,
		"fast_mode":  opts.Fast,
	}
	providerkit.SetIf(payload, "negative_prompt", p.NegativePrompt)

	endpoint := "/async/pixverse-v4.5-t2v"
	if len(p.Images) > 0 {
		refs, err := in.Stage(p.Images[:1])
		if err != nil {
			return route.Request{}, err
		}
		endpoint = "/async/pixverse-v4.5-i2v"
		payload["image"] = mediaref.StripDataURI(refs[0])
	} else {
		payload["aspect_ratio"] = providerkit.Or(p.AspectRatio, "16:9")
	}
	return route.Request{Endpoint: endpoint, CanonicalModelID: "pixverse-v4.5", Payload: payload}, nil
}

func buildWan25(in videoInput) (route.Request, error) {
	p := in.Params
	opts := media.OptionsOf[media.WanOptions](p.Options)

	input := map[string]any{"prompt": p.Prompt}
	providerkit.SetIf(input, "negative_prompt", p.NegativePrompt)
	parameters := map[string]any{
		"duration":      providerkit.IntOr(p.Duration, 5),
		"prompt_extend": providerkit.BoolOr(opts.PromptExtend, true),
		"watermark":     false,
		"audio":         providerkit.BoolOr(opts.Audio, true),
	}

	endpoint := "/async/wan-2.5-t2v-preview"
	if len(p.Images) > 0 {
		refs, err := in.Stage(p.Images[:1])
		if err != nil {
			return route.Request{}, err
		}
		endpoint = "/async/wan-2.5-i2v-preview"
		input["img_url"] = mediaref.ToDataURI(refs[0])
		parameters["resolution"] = providerkit.Or(p.Resolution, "1080P")
	} else {
		parameters["size"] = providerkit.Or(p.Size, "1920*1080")
	}
	payload := map[string]any{"input": input, "parameters": parameters}
	return route.Request{Endpoint: endpoint, CanonicalModelID: "wan-2.5-preview", Payload: payload}, nil
}

func buildSeedance(in videoInput) (route.Request, error) {
	p := in.Params
	opts := media.OptionsOf[media.SeedanceOptions](p.Options)
	variant := "lite"
	if p.Model == "seedance-v1-pro" || (p.Model == "seedance-v1" && opts.Version == "pro") {
		variant = "pro"
	}

	payload := map[string]any{
		"prompt":       p.Prompt,
		"resolution":   providerkit.Or(p.Resolution, "720p"),
		"aspect_ratio": providerkit.Or(p.AspectRatio, "16:9"),
		"duration":     providerkit.IntOr(p.Duration, 5),
		"camera_fixed": opts.CameraFixed,
		"seed":         -1,
	}

	kind := "t2v"
	if len(p.Images) > 0 {
		refs, err := in.Stage(p.Images[:1])
		if err != nil {
			return route.Request{}, err
		}
		kind = "i2v"
		payload["image"] = refs[0]
		if opts.LastImage != "" {
			last, err := in.Stage([]media.Reference{opts.LastImage})
			if err != nil {
				return route.Request{}, err
			}
			payload["last_image"] = last[0]
		}
	}
	endpoint := "/async/seedance-v1-" + variant + "-" + kind
	return route.Request{Endpoint: endpoint, CanonicalModelID: "seedance-v1-" + variant, Payload: payload}, nil
}
