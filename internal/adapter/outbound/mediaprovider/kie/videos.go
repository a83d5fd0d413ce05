package kie

import (
	"github.com/uniedit/mediagen/internal/adapter/outbound/mediaprovider/providerkit"
	"github.com/uniedit/mediagen/internal/domain/media"
	"github.com/uniedit/mediagen/internal/module/gateway/mediaref"
	"github.com/uniedit/mediagen/internal/module/gateway/route"
)

type videoInput = providerkit.Input[*media.VideoParams]

// Video modes understood by the KIE routes.
const (
	ModeTextImageToVideo = "text-image-to-video"
	ModeImageToVideo     = "image-to-video"
	ModeMotionControl    = "motion-control"
	ModeProfessional     = "professional"
	ModeSpicy            = "spicy"
)

func videoRoutes() *route.Router[videoInput] {
	return route.New(media.ProviderKIE,
		route.Route[videoInput]{
			Name:  "grok-imagine-video",
			Match: route.Exact("kie-grok-imagine-video", "grok-imagine-video-kie"),
			Build: buildGrokImagineVideo,
		},
		route.Route[videoInput]{
			Name:  "sora-2",
			Match: route.Exact("kie-sora-2", "sora-2-kie"),
			Build: buildSora2,
		},
		route.Route[videoInput]{
			Name:  "seedance-v3",
			Match: route.Exact("kie-seedance-v3", "seedance-v3-kie"),
			Build: buildSeedanceV3,
		},
		route.Route[videoInput]{
			Name:  "hailuo-02",
			Match: route.Exact("kie-hailuo-02", "hailuo-02-kie"),
			Build: buildHailuo02,
		},
		route.Route[videoInput]{
			Name:  "hailuo-2.3",
			Match: route.Exact("kie-hailuo-2-3", "hailuo-2-3-kie"),
			Build: buildHailuo23,
		},
		route.Route[videoInput]{
			Name:  "kling-2.6",
			Match: route.Exact("kie-kling-v2-6", "kling-v2-6-kie"),
			Build: buildKling26,
		},
	)
}

var seedanceResolutions = []string{"480p", "720p", "1080p"}

// stageFirst stages only the first image.
func stageFirst(in videoInput) (string, error) {
	refs, err := in.Stage(in.Params.Images[:1])
	if err != nil {
		return "", err
	}
	return refs[0], nil
}

func buildGrokImagineVideo(in videoInput) (route.Request, error) {
	p := in.Params
	input := map[string]any{"prompt": p.Prompt}
	model := "grok-imagine/text-to-video"
	if len(p.Images) > 0 {
		ref, err := stageFirst(in)
		if err != nil {
			return route.Request{}, err
		}
		model = "grok-imagine/image-to-video"
		input["image_urls"] = []string{ref}
	} else {
		providerkit.SetIf(input, "aspect_ratio", p.AspectRatio)
	}
	if p.Mode != "" {
		mode := p.Mode
		if mode == ModeSpicy && len(p.Images) > 0 {
			mode = "normal"
		}
		input["mode"] = mode
	}
	return task(model, input), nil
}

func buildSora2(in videoInput) (route.Request, error) {
	p := in.Params
	opts := media.OptionsOf[media.SoraOptions](p.Options)
	pro := opts.Pro || p.Mode == ModeProfessional

	input := map[string]any{
		"prompt":           p.Prompt,
		"n_frames":         providerkit.DurationString(p.Duration, "10"),
		"remove_watermark": true,
	}
	if ratio := providerkit.Or(p.AspectRatio, "16:9"); ratio != mediaref.Smart {
		input["aspect_ratio"] = ratio
	}
	if pro {
		input["size"] = providerkit.Or(opts.Quality, "standard")
	}

	kind := "text-to-video"
	if len(p.Images) > 0 {
		ref, err := stageFirst(in)
		if err != nil {
			return route.Request{}, err
		}
		kind = "image-to-video"
		input["image_urls"] = []string{ref}
	}
	model := "sora-2-" + kind
	if pro {
		model = "sora-2-pro-" + kind
	}
	return task(model, input), nil
}

func buildSeedanceV3(in videoInput) (route.Request, error) {
	p := in.Params
	opts := media.OptionsOf[media.SeedanceOptions](p.Options)
	pro := opts.Version == "pro"
	fast := providerkit.BoolOr(opts.Fast, true)
	hasImage := len(p.Images) > 0

	input := map[string]any{
		"prompt":                p.Prompt,
		"resolution":            mediaref.OneOf(p.Resolution, seedanceResolutions, "720p"),
		"duration":              providerkit.DurationString(p.Duration, "5"),
		"enable_safety_checker": false,
	}

	var model string
	switch {
	case !hasImage && pro:
		model = "bytedance/v1-pro-text-to-video"
	case !hasImage:
		model = "bytedance/v1-lite-text-to-video"
	case pro && fast:
		model = "bytedance/v1-pro-fast-image-to-video"
	case pro:
		model = "bytedance/v1-pro-image-to-video"
	default:
		model = "bytedance/v1-lite-image-to-video"
	}

	if !hasImage {
		if ratio := providerkit.Or(p.AspectRatio, "16:9"); ratio != mediaref.Smart {
			input["aspect_ratio"] = ratio
		}
	}
	if !(pro && fast && hasImage) {
		input["camera_fixed"] = opts.CameraFixed
	}
	if hasImage {
		ref, err := stageFirst(in)
		if err != nil {
			return route.Request{}, err
		}
		input["image_url"] = ref
	}
	return task(model, input), nil
}

func buildHailuo02(in videoInput) (route.Request, error) {
	p := in.Params
	opts := media.OptionsOf[media.HailuoOptions](p.Options)
	duration := providerkit.IntOr(p.Duration, 6)
	resolution := providerkit.Or(p.Resolution, "768P")
	pro := duration == 6 && resolution == "1080P"

	input := map[string]any{"prompt": p.Prompt}
	kind := "text-to-video"
	if len(p.Images) > 0 {
		n := min(len(p.Images), 2)
		refs, err := in.Stage(p.Images[:n])
		if err != nil {
			return route.Request{}, err
		}
		kind = "image-to-video"
		input["image_url"] = refs[0]
		if n == 2 {
			input["end_image_url"] = refs[1]
		}
	}
	if !pro {
		input["duration"] = providerkit.DurationString(duration, "6")
		if len(p.Images) > 0 {
			input["resolution"] = resolution
		}
	}
	if providerkit.BoolOr(opts.PromptOptimizer, false) {
		input["prompt_optimizer"] = true
	}

	tier := "standard"
	if pro {
		tier = "pro"
	}
	return task("hailuo/02-"+kind+"-"+tier, input), nil
}

func buildHailuo23(in videoInput) (route.Request, error) {
	p := in.Params
	if err := mediaref.RequireCount(ModeImageToVideo, len(p.Images), 1, 0); err != nil {
		return route.Request{}, err
	}
	opts := media.OptionsOf[media.HailuoOptions](p.Options)
	ref, err := stageFirst(in)
	if err != nil {
		return route.Request{}, err
	}

	model := "hailuo/2-3-image-to-video-standard"
	if opts.Pro || p.Mode == "pro" {
		model = "hailuo/2-3-image-to-video-pro"
	}
	input := map[string]any{
		"prompt":     p.Prompt,
		"image_url":  ref,
		"duration":   providerkit.DurationString(p.Duration, "6"),
		"resolution": providerkit.Or(p.Resolution, "768P"),
	}
	return task(model, input), nil
}

func buildKling26(in videoInput) (route.Request, error) {
	p := in.Params
	opts := media.OptionsOf[media.KlingOptions](p.Options)
	mode := providerkit.Or(p.Mode, ModeTextImageToVideo)

	if mode == ModeMotionControl {
		if err := mediaref.RequireCount(mode, len(p.Images), 1, 0); err != nil {
			return route.Request{}, err
		}
		if len(p.Videos) == 0 {
			return route.Request{}, media.NewValidationError(media.ErrReferenceCount, "mode %s needs a reference video", mode)
		}
		images, err := in.Stage(p.Images)
		if err != nil {
			return route.Request{}, err
		}
		videos, err := in.Stage(p.Videos[:1])
		if err != nil {
			return route.Request{}, err
		}
		return task("kling-2.6/motion-control", map[string]any{
			"prompt":                p.Prompt,
			"input_urls":            images,
			"video_urls":            videos,
			"character_orientation": providerkit.Or(opts.CharacterOrientation, "video"),
			"mode":                  providerkit.Or(p.Resolution, "720p"),
		}), nil
	}

	input := map[string]any{
		"prompt":   p.Prompt,
		"duration": providerkit.DurationString(p.Duration, "5"),
		"sound":    opts.Sound,
	}
	model := "kling-2.6/text-to-video"
	if len(p.Images) > 0 {
		refs, err := in.Stage(p.Images)
		if err != nil {
			return route.Request{}, err
		}
		model = "kling-2.6/image-to-video"
		input["image_urls"] = refs
	} else {
		input["aspect_ratio"] = providerkit.Or(p.AspectRatio, "16:9")
	}
	return task(model, input), nil
}
