package modelscope

import (
	"fmt"
	"strings"

	"github.com/uniedit/mediagen/internal/adapter/outbound/mediaprovider/providerkit"
	"github.com/uniedit/mediagen/internal/domain/media"
	"github.com/uniedit/mediagen/internal/module/gateway/mediaref"
	"github.com/uniedit/mediagen/internal/module/gateway/route"
)

type imageInput = providerkit.Input[*media.ImageParams]

const (
	generationsPath = "/v1/images/generations"
	maxReferences   = 3
	customModel     = "modelscope-custom"
	qwenImageEdit   = "Qwen/Qwen-Image-Edit-2509"
)

// PresetModels are the inference models offered out of the box. Any "<org>/<name>" id also routes.
var PresetModels = []string{
	"Tongyi-MAI/Z-Image-Turbo",
	"MusePublic/Qwen-image",
	"black-forest-labs/FLUX.1-Krea-dev",
	"MusePublic/14_ckpt_SD_XL",
	"MusePublic/majicMIX_realistic",
}

func imageRoutes() *route.Router[imageInput] {
	return route.New(media.ProviderModelScope,
		route.Route[imageInput]{
			Name:  "unified",
			Match: func(id string) bool { return strings.Contains(id, "/") || id == customModel },
			Build: buildUnified,
		},
	)
}

func buildUnified(in imageInput) (route.Request, error) {
	p := in.Params
	opts := media.OptionsOf[media.ModelScopeOptions](p.Options)
	payload := map[string]any{
		"model":  p.Model,
		"prompt": p.Prompt,
	}
	switch {
	case opts.Width > 0 && opts.Height > 0:
		payload["size"] = fmt.Sprintf("%dx%d", opts.Width, opts.Height)
	case p.Size != "" && !mediaref.IsSentinel(p.Size):
		payload["size"] = p.Size
	}
	if opts.Steps != nil {
		payload["steps"] = *opts.Steps
	}
	if p.Seed != nil {
		payload["seed"] = *p.Seed
	}
	if p.Model != qwenImageEdit {
		providerkit.SetIf(payload, "negative_prompt", p.NegativePrompt)
		if opts.Guidance != nil {
			payload["guidance"] = *opts.Guidance
		}
	}
	if len(p.Images) > 0 {
		refs, err := in.Stage(p.Images[:min(len(p.Images), maxReferences)])
		if err != nil {
			return route.Request{}, err
		}
		payload["image_url"] = refs
	}
	return route.Request{Endpoint: generationsPath, CanonicalModelID: p.Model, Payload: payload}, nil
}
