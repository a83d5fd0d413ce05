package kie

import (
	"github.com/uniedit/mediagen/internal/adapter/outbound/mediaprovider/providerkit"
	"github.com/uniedit/mediagen/internal/domain/media"
	"github.com/uniedit/mediagen/internal/module/gateway/route"
)

type imageInput = providerkit.Input[*media.ImageParams]

func imageRoutes() *route.Router[imageInput] {
	return route.New(media.ProviderKIE,
		route.Route[imageInput]{
			Name:  "nano-banana-pro",
			Match: route.Exact("kie-nano-banana-pro", "nano-banana-pro"),
			Build: buildNanoBananaPro,
		},
		route.Route[imageInput]{
			Name:  "grok-imagine",
			Match: route.Exact("kie-grok-imagine", "grok-imagine-kie"),
			Build: buildGrokImagine,
		},
		route.Route[imageInput]{
			Name:  "z-image",
			Match: route.Exact("kie-z-image", "z-image-kie"),
			Build: buildZImage,
		},
		route.Route[imageInput]{
			Name:  "seedream-4.5",
			Match: route.Exact("kie-seedream-4.5", "seedream-4.5-kie"),
			Build: buildSeedream45,
		},
		route.Route[imageInput]{
			Name:  "seedream-4.0",
			Match: route.Exact("kie-seedream-4.0", "seedream-4.0-kie"),
			Build: buildSeedream40,
		},
	)
}

// task wraps input in the createTask body.
func task(model string, input map[string]any) route.Request {
	return route.Request{
		Endpoint:         createTaskPath,
		CanonicalModelID: model,
		Payload:          map[string]any{"model": model, "input": input},
	}
}

func setRatio(input map[string]any, key, ratio string) {
	if v, ok := providerkit.ExplicitRatio(ratio); ok {
		input[key] = v
	}
}

func buildNanoBananaPro(in imageInput) (route.Request, error) {
	p := in.Params
	opts := media.OptionsOf[media.NanoBananaOptions](p.Options)
	input := map[string]any{"prompt": p.Prompt}
	setRatio(input, "aspect_ratio", p.AspectRatio)
	providerkit.SetIf(input, "resolution", providerkit.Or(opts.Resolution, p.Resolution))
	if len(p.Images) > 0 {
		refs, err := in.Stage(p.Images)
		if err != nil {
			return route.Request{}, err
		}
		input["image_input"] = refs
	}
	return task("nano-banana-pro", input), nil
}

func buildGrokImagine(in imageInput) (route.Request, error) {
	input := map[string]any{"prompt": in.Params.Prompt}
	setRatio(input, "aspect_ratio", in.Params.AspectRatio)
	return task("grok-imagine/text-to-image", input), nil
}

func buildZImage(in imageInput) (route.Request, error) {
	input := map[string]any{"prompt": in.Params.Prompt}
	setRatio(input, "aspect_ratio", in.Params.AspectRatio)
	return task("z-image", input), nil
}

func buildSeedream45(in imageInput) (route.Request, error) {
	p := in.Params
	input := map[string]any{"prompt": p.Prompt}
	setRatio(input, "aspect_ratio", p.AspectRatio)
	providerkit.SetIf(input, "quality", p.Quality)

	model := "seedream/4.5-text-to-image"
	if len(p.Images) > 0 {
		refs, err := in.Stage(p.Images)
		if err != nil {
			return route.Request{}, err
		}
		model = "seedream/4.5-edit"
		input["image_urls"] = refs
	}
	return task(model, input), nil
}

func buildSeedream40(in imageInput) (route.Request, error) {
	p := in.Params
	opts := media.OptionsOf[media.SeedreamOptions](p.Options)
	input := map[string]any{"prompt": p.Prompt}
	setRatio(input, "image_size", p.Size)
	providerkit.SetIf(input, "image_resolution", providerkit.Or(opts.ImageResolution, p.Resolution))
	if opts.MaxImages != nil {
		input["max_images"] = *opts.MaxImages
	}

	model := "bytedance/seedream-v4-text-to-image"
	if len(p.Images) > 0 {
		refs, err := in.Stage(p.Images)
		if err != nil {
			return route.Request{}, err
		}
		model = "bytedance/seedream-v4-edit"
		input["image_urls"] = refs
	}
	return task(model, input), nil
}
