package fal

import (
	"github.com/uniedit/mediagen/internal/adapter/outbound/mediaprovider/providerkit"
	"github.com/uniedit/mediagen/internal/domain/media"
	"github.com/uniedit/mediagen/internal/module/gateway/mediaref"
	"github.com/uniedit/mediagen/internal/module/gateway/route"
)

type imageInput = providerkit.Input[*media.ImageParams]

func imageRoutes() *route.Router[imageInput] {
	return route.New(media.ProviderFal,
		route.Route[imageInput]{
			Name:     "nano-banana-pro",
			Priority: 20,
			Match:    route.Exact("fal-ai/nano-banana-pro", "nano-banana-pro", "fal-ai-nano-banana-pro"),
			Build:    buildNanoBananaPro,
		},
		route.Route[imageInput]{
			Name:     "nano-banana",
			Priority: 10,
			Match:    route.Exact("fal-ai/nano-banana", "nano-banana"),
			Build:    buildNanoBanana,
		},
		route.Route[imageInput]{
			Name:  "seedream-v4",
			Match: route.Exact("bytedance-seedream-v4", "fal-ai-bytedance-seedream-v4"),
			Build: buildSeedreamV4,
		},
		route.Route[imageInput]{
			Name:  "z-image-turbo",
			Match: route.Exact("fal-ai-z-image-turbo", "fal-ai/z-image/turbo"),
			Build: buildZImageTurbo,
		},
		route.Route[imageInput]{
			Name:  "kling-image-o1",
			Match: route.Exact("fal-ai/kling-image/o1", "fal-ai-kling-image-o1", "kling-o1"),
			Build: buildKlingImageO1,
		},
	)
}

func buildNanoBanana(in imageInput) (route.Request, error) {
	p := in.Params
	payload := map[string]any{"prompt": p.Prompt}
	if p.NumImages > 0 {
		payload["num_images"] = p.NumImages
	}
	if p.AspectRatio != "" && p.AspectRatio != mediaref.Auto {
		payload["aspect_ratio"] = p.AspectRatio
	}

	endpoint := "fal-ai/nano-banana"
	if len(p.Images) > 0 {
		refs, err := in.Stage(p.Images)
		if err != nil {
			return route.Request{}, err
		}
		payload["image_urls"] = refs
		endpoint += "/edit"
	}
	return route.Request{Endpoint: endpoint, CanonicalModelID: "fal-ai/nano-banana", Payload: payload}, nil
}

func buildNanoBananaPro(in imageInput) (route.Request, error) {
	p := in.Params
	opts := media.OptionsOf[media.NanoBananaOptions](p.Options)

	payload := map[string]any{"prompt": p.Prompt}
	if p.NumImages > 0 {
		payload["num_images"] = p.NumImages
	}
	if ratio, ok := providerkit.ExplicitRatio(p.AspectRatio); ok {
		payload["aspect_ratio"] = ratio
	}
	providerkit.SetIf(payload, "resolution", providerkit.Or(opts.Resolution, p.Resolution))

	endpoint := "fal-ai/nano-banana-pro"
	if len(p.Images) > 0 {
		refs, err := in.Stage(p.Images)
		if err != nil {
			return route.Request{}, err
		}
		payload["image_urls"] = refs
		endpoint += "/edit"
	}
	return route.Request{Endpoint: endpoint, CanonicalModelID: "fal-ai/nano-banana-pro", Payload: payload}, nil
}

func buildSeedreamV4(in imageInput) (route.Request, error) {
	p := in.Params
	size := map[string]any{"width": 2048, "height": 2048}
	if w, h, ok := mediaref.ParseSize(p.Size); ok {
		size = map[string]any{"width": w, "height": h}
	}
	payload := map[string]any{
		"prompt":                p.Prompt,
		"image_size":            size,
		"num_images":            providerkit.IntOr(p.NumImages, 1),
		"enable_safety_checker": false,
	}

	endpoint := "fal-ai/bytedance/seedream/v4/text-to-image"
	if len(p.Images) > 0 {
		refs, err := in.Stage(p.Images)
		if err != nil {
			return route.Request{}, err
		}
		payload["image_urls"] = refs
		endpoint = "fal-ai/bytedance/seedream/v4/edit"
	}
	return route.Request{Endpoint: endpoint, CanonicalModelID: endpoint, Payload: payload}, nil
}

func buildZImageTurbo(in imageInput) (route.Request, error) {
	p := in.Params
	opts := media.OptionsOf[media.ZImageOptions](p.Options)

	var size any = "landscape_4_3"
	if sz := providerkit.Or(opts.ImageSize, p.Size); sz != "" {
		if w, h, ok := mediaref.ParseSize(sz); ok {
			size = map[string]any{"width": w, "height": h}
		} else {
			size = sz
		}
	}
	payload := map[string]any{
		"prompt":                  p.Prompt,
		"image_size":              size,
		"num_inference_steps":     providerkit.IntOr(opts.NumInferenceSteps, 8),
		"num_images":              providerkit.IntOr(p.NumImages, 1),
		"enable_safety_checker":   false,
		"output_format":           "png",
		"enable_prompt_expansion": opts.EnablePromptExpansion,
		"acceleration":            providerkit.Or(opts.Acceleration, "none"),
	}
	if len(p.Images) > 0 {
		refs, err := in.Stage(p.Images)
		if err != nil {
			return route.Request{}, err
		}
		payload["image_urls"] = refs
	}
	return route.Request{Endpoint: "fal-ai/z-image/turbo", CanonicalModelID: "fal-ai/z-image/turbo", Payload: payload}, nil
}

func buildKlingImageO1(in imageInput) (route.Request, error) {
	p := in.Params
	if err := mediaref.RequireCount("kling-image-o1", len(p.Images), 1, 0); err != nil {
		return route.Request{}, err
	}

	payload := map[string]any{"prompt": p.Prompt}
	if p.NumImages > 0 {
		payload["num_images"] = p.NumImages
	}
	ratio := p.AspectRatio
	if ratio == mediaref.Auto {
		ratio = in.Shape.Format(p.Images[0], "1:1")
	}
	if r, ok := providerkit.ExplicitRatio(ratio); ok {
		payload["aspect_ratio"] = r
	}
	providerkit.SetIf(payload, "resolution", p.Resolution)

	refs, err := in.Stage(p.Images)
	if err != nil {
		return route.Request{}, err
	}
	payload["image_urls"] = refs
	return route.Request{Endpoint: "fal-ai/kling-image/o1", CanonicalModelID: "fal-ai/kling-image/o1", Payload: payload}, nil
}
