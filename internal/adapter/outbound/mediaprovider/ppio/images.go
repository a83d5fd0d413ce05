package ppio

import (
	"github.com/uniedit/mediagen/internal/adapter/outbound/mediaprovider/providerkit"
	"github.com/uniedit/mediagen/internal/domain/media"
	"github.com/uniedit/mediagen/internal/module/gateway/route"
)

type imageInput = providerkit.Input[*media.ImageParams]

func imageRoutes() *route.Router[imageInput] {
	return route.New(media.ProviderPPIO,
		route.Route[imageInput]{
			Name:  "seedream-4.0",
			Match: route.Contains("seedream"),
			Build: buildSeedream,
		},
	)
}

func buildSeedream(in imageInput) (route.Request, error) {
	p := in.Params
	opts := media.OptionsOf[media.SeedreamOptions](p.Options)

	payload := map[string]any{
		"prompt":    p.Prompt,
		"watermark": providerkit.BoolOr(opts.Watermark, false),
	}
	providerkit.SetIf(payload, "size", p.Size)
	providerkit.SetIf(payload, "sequential_image_generation", opts.SequentialImageGeneration)
	if opts.MaxImages != nil {
		payload["max_images"] = *opts.MaxImages
	}
	if len(p.Images) > 0 {
		refs, err := in.Stage(p.Images)
		if err != nil {
			return route.Request{}, err
		}
		payload["images"] = refs
	}
	return route.Request{Endpoint: "/seedream-4.0", CanonicalModelID: "seedream-4.0", Payload: payload}, nil
}
