package fal

import (
	"fmt"

	"github.com/uniedit/mediagen/internal/adapter/outbound/mediaprovider/providerkit"
	"github.com/uniedit/mediagen/internal/domain/media"
	"github.com/uniedit/mediagen/internal/module/gateway/mediaref"
	"github.com/uniedit/mediagen/internal/module/gateway/route"
)

type videoInput = providerkit.Input[*media.VideoParams]

// Video modes understood by the fal routes.
const (
	ModeTextImageToVideo      = "text-image-to-video"
	ModeTextToVideo           = "text-to-video"
	ModeImageToVideo          = "image-to-video"
	ModeStartEndFrame         = "start-end-frame"
	ModeReferenceToVideo      = "reference-to-video"
	ModeVideoToVideoEdit      = "video-to-video-edit"
	ModeVideoToVideoReference = "video-to-video-reference"
)

func videoRoutes() *route.Router[videoInput] {
	return route.New(media.ProviderFal,
		route.Route[videoInput]{
			Name:  "veo-3.1",
			Match: route.Contains("veo3.1", "veo-3.1"),
			Build: buildVeo31,
		},
		route.Route[videoInput]{
			Name:  "kling-video-o1",
			Match: route.Contains("kling-video-o1", "kling-video/o1"),
			Build: buildKlingVideoO1,
		},
		route.Route[videoInput]{
			Name:  "sora-2",
			Match: route.Contains("sora-2", "sora2"),
			Build: buildSora2,
		},
		route.Route[videoInput]{
			Name:  "seedance-v1",
			Match: route.Contains("seedance"),
			Build: buildSeedance,
		},
		route.Route[videoInput]{
			Name:  "hailuo-2.3",
			Match: route.Contains("minimax-hailuo-2.3-fal", "fal-ai-minimax-hailuo-2.3"),
			Build: buildHailuo23,
		},
	)
}

var (
	veoPresets      = []string{"16:9", "9:16", "1:1"}
	soraPresets     = []string{"16:9", "9:16"}
	seedancePresets = []string{"21:9", "16:9", "4:3", "1:1", "3:4", "9:16"}
)

func buildVeo31(in videoInput) (route.Request, error) {
	p := in.Params
	opts := media.OptionsOf[media.Veo31Options](p.Options)
	mode := providerkit.Or(p.Mode, ModeTextImageToVideo)
	fast := ""
	if opts.Fast {
		fast = "fast/"
	}

	var endpoint string
	switch mode {
	case ModeStartEndFrame:
		if err := mediaref.RequireCount(mode, len(p.Images), 2, 0); err != nil {
			return route.Request{}, err
		}
		endpoint = "fal-ai/veo3.1/" + fast + "first-last-frame-to-video"
	case ModeReferenceToVideo:
		if err := mediaref.RequireCount(mode, len(p.Images), 1, 0); err != nil {
			return route.Request{}, err
		}
		endpoint = "fal-ai/veo3.1/reference-to-video"
	default:
		if len(p.Images) > 0 {
			endpoint = "fal-ai/veo3.1/" + fast + "image-to-video"
		} else {
			endpoint = "fal-ai/veo3.1"
			if opts.Fast {
				endpoint += "/fast"
			}
		}
	}

	payload := map[string]any{
		"prompt":   p.Prompt,
		"duration": fmt.Sprintf("%ds", providerkit.IntOr(p.Duration, 8)),
	}
	ratio := p.AspectRatio
	if ratio == mediaref.Auto && len(p.Images) > 0 {
		ratio = in.Shape.Preset(p.Images[0], veoPresets, "16:9")
	}
	if r, ok := providerkit.ExplicitRatio(ratio); ok {
		payload["aspect_ratio"] = r
	}
	providerkit.SetIf(payload, "resolution", p.Resolution)
	if opts.EnhancePrompt != nil {
		payload["enhance_prompt"] = *opts.EnhancePrompt
	}
	if opts.GenerateAudio != nil {
		payload["generate_audio"] = *opts.GenerateAudio
	}
	if opts.AutoFix != nil {
		payload["auto_fix"] = *opts.AutoFix
	}

	if len(p.Images) > 0 {
		refs, err := in.Stage(p.Images)
		if err != nil {
			return route.Request{}, err
		}
		switch mode {
		case ModeStartEndFrame:
			payload["first_frame_url"] = refs[0]
			payload["last_frame_url"] = refs[1]
		case ModeReferenceToVideo:
			payload["image_urls"] = refs
		default:
			payload["image_url"] = refs[0]
		}
	}
	return route.Request{Endpoint: endpoint, CanonicalModelID: "fal-ai/veo3.1", Payload: payload}, nil
}

func buildKlingVideoO1(in videoInput) (route.Request, error) {
	p := in.Params
	opts := media.OptionsOf[media.KlingOptions](p.Options)
	mode := providerkit.Or(p.Mode, ModeImageToVideo)

	var endpoint string
	switch mode {
	case ModeImageToVideo:
		if err := mediaref.RequireCount(mode, len(p.Images), 1, 0); err != nil {
			return route.Request{}, err
		}
		endpoint = "fal-ai/kling-video/o1/image-to-video"
	case ModeReferenceToVideo:
		endpoint = "fal-ai/kling-video/o1/reference-to-video"
	case ModeVideoToVideoEdit, ModeVideoToVideoReference:
		if err := mediaref.RequireCount(mode, len(p.Videos), 1, 0); err != nil {
			return route.Request{}, err
		}
		endpoint = "fal-ai/kling-video/o1/video-to-video/edit"
		if mode == ModeVideoToVideoReference {
			endpoint = "fal-ai/kling-video/o1/video-to-video/reference"
		}
	default:
		return route.Request{}, media.NewValidationError(media.ErrInvalidInput, "kling-video-o1: unknown mode %q", mode)
	}

	payload := map[string]any{
		"prompt":   p.Prompt,
		"duration": providerkit.DurationString(p.Duration, "5"),
	}
	refs, err := in.Stage(p.Images)
	if err != nil {
		return route.Request{}, err
	}
	ratio, hasRatio := providerkit.ExplicitRatio(p.AspectRatio)

	switch mode {
	case ModeImageToVideo:
		payload["start_image_url"] = refs[0]
		if len(refs) > 1 {
			payload["end_image_url"] = refs[1]
		}
	case ModeReferenceToVideo:
		if len(refs) > 0 {
			payload["image_urls"] = refs
		}
		if len(opts.Elements) > 0 {
			payload["elements"] = opts.Elements
		}
		if hasRatio {
			payload["aspect_ratio"] = ratio
		}
	default:
		videos, err := in.Stage(p.Videos)
		if err != nil {
			return route.Request{}, err
		}
		payload["video_url"] = videos[0]
		payload["keep_audio"] = opts.KeepAudio
		if len(refs) > 0 {
			payload["image_urls"] = refs
		}
		if len(opts.Elements) > 0 {
			payload["elements"] = opts.Elements
		}
		if mode == ModeVideoToVideoReference && hasRatio {
			payload["aspect_ratio"] = ratio
		}
	}
	return route.Request{Endpoint: endpoint, CanonicalModelID: "fal-ai/kling-video/o1", Payload: payload}, nil
}

func buildSora2(in videoInput) (route.Request, error) {
	p := in.Params
	opts := media.OptionsOf[media.SoraOptions](p.Options)
	hasImages := len(p.Images) > 0

	endpoint := "fal-ai/sora-2/text-to-video"
	if hasImages {
		endpoint = "fal-ai/sora-2/image-to-video"
	}
	if opts.Pro {
		endpoint += "/pro"
	}

	payload := map[string]any{
		"prompt":       p.Prompt,
		"duration":     providerkit.IntOr(p.Duration, 4),
		"delete_video": true,
	}
	ratio := p.AspectRatio
	if hasImages {
		if ratio == mediaref.Smart {
			ratio = in.Shape.Preset(p.Images[0], soraPresets, mediaref.Auto)
		}
		if ratio != "" && ratio != mediaref.Smart {
			payload["aspect_ratio"] = ratio
		}
		providerkit.SetIf(payload, "resolution", p.Resolution)
		refs, err := in.Stage(p.Images[:1])
		if err != nil {
			return route.Request{}, err
		}
		payload["image_url"] = refs[0]
	} else {
		if r, ok := providerkit.ExplicitRatio(ratio); ok {
			payload["aspect_ratio"] = r
		} else {
			payload["aspect_ratio"] = "16:9"
		}
		resolution := p.Resolution
		if resolution == "" || resolution == mediaref.Auto {
			resolution = "720p"
		}
		payload["resolution"] = resolution
	}
	return route.Request{Endpoint: endpoint, CanonicalModelID: "fal-ai/sora-2", Payload: payload}, nil
}

func buildSeedance(in videoInput) (route.Request, error) {
	p := in.Params
	opts := media.OptionsOf[media.SeedanceOptions](p.Options)
	mode := providerkit.Or(p.Mode, ModeTextToVideo)
	version := "lite"
	if opts.Version == "pro" {
		version = "pro"
	}
	fast := ""
	if providerkit.BoolOr(opts.Fast, true) && version == "pro" && mode != ModeReferenceToVideo {
		fast = "/fast"
	}

	var endpoint string
	switch mode {
	case ModeReferenceToVideo:
		if err := mediaref.RequireCount(mode, len(p.Images), 1, 0); err != nil {
			return route.Request{}, err
		}
		endpoint = "fal-ai/bytedance/seedance/v1/lite/reference-to-video"
	case ModeImageToVideo:
		if err := mediaref.RequireCount(mode, len(p.Images), 1, 0); err != nil {
			return route.Request{}, err
		}
		endpoint = "fal-ai/bytedance/seedance/v1/" + version + fast + "/image-to-video"
	default:
		endpoint = "fal-ai/bytedance/seedance/v1/" + version + fast + "/text-to-video"
	}

	payload := map[string]any{
		"prompt":                p.Prompt,
		"duration":              providerkit.DurationString(p.Duration, "5"),
		"enable_safety_checker": false,
		"resolution":            providerkit.Or(p.Resolution, "720p"),
		"camera_fixed":          opts.CameraFixed,
	}
	ratio := p.AspectRatio
	if mediaref.IsSentinel(ratio) && len(p.Images) > 0 {
		fallback := mediaref.Auto
		if mode == ModeTextToVideo {
			fallback = "16:9"
		}
		ratio = in.Shape.Preset(p.Images[0], seedancePresets, fallback)
	}
	if ratio != "" && ratio != mediaref.Smart {
		payload["aspect_ratio"] = ratio
	}

	if len(p.Images) > 0 {
		refs, err := in.Stage(p.Images)
		if err != nil {
			return route.Request{}, err
		}
		switch mode {
		case ModeReferenceToVideo:
			payload["reference_image_urls"] = refs
		case ModeImageToVideo:
			payload["image_url"] = refs[0]
			if len(refs) > 1 {
				payload["end_image_url"] = refs[1]
			}
		}
	}
	return route.Request{Endpoint: endpoint, CanonicalModelID: "fal-ai/bytedance/seedance/v1", Payload: payload}, nil
}

func buildHailuo23(in videoInput) (route.Request, error) {
	p := in.Params
	opts := media.OptionsOf[media.HailuoOptions](p.Options)
	version := "standard"
	if opts.Pro {
		version = "pro"
	}

	endpoint := "fal-ai/minimax/hailuo-2.3/" + version + "/text-to-video"
	if len(p.Images) > 0 {
		if providerkit.BoolOr(opts.Fast, true) {
			endpoint = "fal-ai/minimax/hailuo-2.3-fast/" + version + "/image-to-video"
		} else {
			endpoint = "fal-ai/minimax/hailuo-2.3/" + version + "/image-to-video"
		}
	}

	payload := map[string]any{
		"prompt":           p.Prompt,
		"prompt_optimizer": providerkit.BoolOr(opts.PromptOptimizer, true),
	}
	if version == "standard" {
		payload["duration"] = providerkit.DurationString(p.Duration, "6")
	}
	if len(p.Images) > 0 {
		refs, err := in.Stage(p.Images[:1])
		if err != nil {
			return route.Request{}, err
		}
		payload["image_url"] = refs[0]
	}
	return route.Request{Endpoint: endpoint, CanonicalModelID: "fal-ai/minimax/hailuo-2.3", Payload: payload}, nil
}
