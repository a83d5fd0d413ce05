package ppio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniedit/mediagen/internal/domain/media"
)

type noShape struct{}

func (noShape) Preset(_ media.Reference, _ []string, fallback string) string { return fallback }
func (noShape) Format(_ media.Reference, fallback string) string           { return fallback }

// stageSpy wraps every reference as a png data URI.
type stageSpy struct{ calls int }

func (s *stageSpy) stage(refs []media.Reference) ([]string, error) {
	s.calls++
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = "data:image/png;base64," + r
	}
	return out, nil
}

func videoIn(p *media.VideoParams) (videoInput, *stageSpy) {
	spy := &stageSpy{}
	return videoInput{Params: p, Stage: spy.stage, Shape: noShape{}}, spy
}

func TestVideoRoutes_Match(t *testing.T) {
	r := videoRoutes()
	tests := []struct {
		model string
		want  string
	}{
		{"kling-2.5-turbo", "kling-2.5-turbo"},
		{"minimax-hailuo-2.3", "minimax-hailuo-2.3"},
		{"minimax-hailuo-2.3-fast", "minimax-hailuo-2.3"},
		{"minimax-hailuo-02", "minimax-hailuo-02"},
		{"vidu-q1", "vidu-q1"},
		{"pixverse-v4.5", "pixverse-v4.5"},
		{"wan-2.5-preview", "wan-2.5-preview"},
		{"seedance-v1-pro", "seedance-v1"},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			rt, ok := r.Find(tt.model)
			require.True(t, ok)
			assert.Equal(t, tt.want, rt.Name)
		})
	}

	_, ok := r.Find("kling-2.6-pro")
	assert.False(t, ok)
}

func TestBuildKlingTurbo(t *testing.T) {
	cfg := 3.5
	in, _ := videoIn(&media.VideoParams{
		Model:    "kling-2.5-turbo",
		Prompt:   "a boat",
		Images:   []string{"aGVsbG8="},
		Duration: 7,
		Options:  &media.KlingOptions{CfgScale: &cfg, Quality: "std"},
	})

	req, err := buildKlingTurbo(in)

	require.NoError(t, err)
	assert.Equal(t, "/async/kling-2.5-turbo-i2v", req.Endpoint)
	assert.Equal(t, "aGVsbG8=", req.Payload["image"])
	assert.Equal(t, "5", req.Payload["duration"])
	assert.Equal(t, 1.0, req.Payload["cfg_scale"])
	assert.Equal(t, "std", req.Payload["mode"])
	assert.NotContains(t, req.Payload, "aspect_ratio")
}

func TestBuildKlingTurbo_TextDefaults(t *testing.T) {
	in, spy := videoIn(&media.VideoParams{Model: "kling-2.5-turbo", Prompt: "a boat", AspectRatio: "4:3", Duration: 10})

	req, err := buildKlingTurbo(in)

	require.NoError(t, err)
	assert.Equal(t, "/async/kling-2.5-turbo-t2v", req.Endpoint)
	assert.Equal(t, "16:9", req.Payload["aspect_ratio"])
	assert.Equal(t, "10", req.Payload["duration"])
	assert.Equal(t, 0.5, req.Payload["cfg_scale"])
	assert.Equal(t, "pro", req.Payload["mode"])
	assert.Zero(t, spy.calls)
}

func TestBuildKlingTurbo_EmptyPrompt(t *testing.T) {
	in, spy := videoIn(&media.VideoParams{Model: "kling-2.5-turbo", Prompt: "  ", Images: []string{"x"}})

	_, err := buildKlingTurbo(in)

	assert.ErrorIs(t, err, media.ErrInvalidInput)
	assert.True(t, media.IsValidation(err))
	assert.Zero(t, spy.calls)
}

func TestHailuoShape(t *testing.T) {
	tests := []struct {
		duration   int
		resolution string
		wantD      int
		wantR      string
	}{
		{0, "", 6, "768P"},
		{6, "1080p", 6, "1080P"},
		{10, "1080P", 10, "768P"},
		{8, "720P", 6, "768P"},
	}
	for _, tt := range tests {
		d, r := hailuoShape(tt.duration, tt.resolution)
		assert.Equal(t, tt.wantD, d)
		assert.Equal(t, tt.wantR, r)
	}
}

func TestBuildHailuo23_Endpoints(t *testing.T) {
	fast := true
	tests := []struct {
		name   string
		params *media.VideoParams
		want   string
	}{
		{"text", &media.VideoParams{Model: "minimax-hailuo-2.3", Prompt: "x"}, "/async/minimax-hailuo-2.3-t2v"},
		{"image", &media.VideoParams{Model: "minimax-hailuo-2.3", Prompt: "x", Images: []string{"a"}}, "/async/minimax-hailuo-2.3-i2v"},
		{"fast model", &media.VideoParams{Model: "minimax-hailuo-2.3-fast", Prompt: "x", Images: []string{"a"}}, "/async/minimax-hailuo-2.3-fast-i2v"},
		{"fast option", &media.VideoParams{Model: "minimax-hailuo-2.3", Prompt: "x", Images: []string{"a"}, Options: &media.HailuoOptions{Fast: &fast}}, "/async/minimax-hailuo-2.3-fast-i2v"},
		{"fast without image", &media.VideoParams{Model: "minimax-hailuo-2.3-fast", Prompt: "x"}, "/async/minimax-hailuo-2.3-t2v"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, _ := videoIn(tt.params)
			req, err := buildHailuo23(in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.Endpoint)
			assert.Equal(t, true, req.Payload["enable_prompt_expansion"])
		})
	}
}

func TestBuildHailuo02_EndImage(t *testing.T) {
	in, _ := videoIn(&media.VideoParams{Model: "minimax-hailuo-02", Prompt: "x", Images: []string{"a", "b", "c"}})

	req, err := buildHailuo02(in)

	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,a", req.Payload["image"])
	assert.Equal(t, "data:image/png;base64,b", req.Payload["end_image"])
}

func TestBuildViduQ1_Modes(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		in, _ := videoIn(&media.VideoParams{Model: "vidu-q1", Prompt: "x"})
		req, err := buildViduQ1(in)
		require.NoError(t, err)
		assert.Equal(t, "/async/vidu-q1-text2video", req.Endpoint)
		assert.Equal(t, "general", req.Payload["style"])
		assert.Equal(t, "16:9", req.Payload["aspect_ratio"])
		assert.Equal(t, 5, req.Payload["duration"])
		assert.NotContains(t, req.Payload, "seed")
	})

	t.Run("image keeps first", func(t *testing.T) {
		in, _ := videoIn(&media.VideoParams{Model: "vidu-q1", Prompt: "x", Images: []string{"a", "b"}})
		req, err := buildViduQ1(in)
		require.NoError(t, err)
		assert.Equal(t, "/async/vidu-q1-img2video", req.Endpoint)
		assert.Equal(t, []string{"data:image/png;base64,a"}, req.Payload["images"])
		assert.NotContains(t, req.Payload, "style")
	})

	t.Run("start end needs two", func(t *testing.T) {
		in, spy := videoIn(&media.VideoParams{Model: "vidu-q1", Prompt: "x", Mode: ModeStartEndFrame, Images: []string{"a"}})
		_, err := buildViduQ1(in)
		assert.ErrorIs(t, err, media.ErrReferenceCount)
		assert.Zero(t, spy.calls)
	})

	t.Run("reference caps at seven", func(t *testing.T) {
		refs := []string{"1", "2", "3", "4", "5", "6", "7", "8"}
		in, _ := videoIn(&media.VideoParams{Model: "vidu-q1", Prompt: "x", Mode: ModeReferenceToVideo, Images: refs})
		_, err := buildViduQ1(in)
		assert.ErrorIs(t, err, media.ErrReferenceCount)
	})

	t.Run("reference needs prompt", func(t *testing.T) {
		in, _ := videoIn(&media.VideoParams{Model: "vidu-q1", Mode: ModeReferenceToVideo, Images: []string{"a"}})
		_, err := buildViduQ1(in)
		assert.ErrorIs(t, err, media.ErrInvalidInput)
	})

	t.Run("unknown mode", func(t *testing.T) {
		in, _ := videoIn(&media.VideoParams{Model: "vidu-q1", Prompt: "x", Mode: "loop"})
		_, err := buildViduQ1(in)
		assert.ErrorIs(t, err, media.ErrInvalidInput)
	})
}

func TestBuildPixverse_FastDowngradesResolution(t *testing.T) {
	in, _ := videoIn(&media.VideoParams{
		Model:      "pixverse-v4.5",
		Prompt:     "x",
		Resolution: "1080P",
		Images:     []string{"aGVsbG8="},
		Options:    &media.PixverseOptions{Fast: true},
	})

	req, err := buildPixverse(in)

	require.NoError(t, err)
	assert.Equal(t, "/async/pixverse-v4.5-i2v", req.Endpoint)
	assert.Equal(t, "720p", req.Payload["resolution"])
	assert.Equal(t, "aGVsbG8=", req.Payload["image"])
}

func TestBuildWan25_Shapes(t *testing.T) {
	in, _ := videoIn(&media.VideoParams{Model: "wan-2.5-preview", Prompt: "x"})
	req, err := buildWan25(in)
	require.NoError(t, err)
	assert.Equal(t, "/async/wan-2.5-t2v-preview", req.Endpoint)
	params := req.Payload["parameters"].(map[string]any)
	assert.Equal(t, "1920*1080", params["size"])
	assert.Equal(t, true, params["audio"])
	assert.Equal(t, false, params["watermark"])

	in, _ = videoIn(&media.VideoParams{Model: "wan-2.5-preview", Prompt: "x", Images: []string{"aGVsbG8="}})
	req, err = buildWan25(in)
	require.NoError(t, err)
	assert.Equal(t, "/async/wan-2.5-i2v-preview", req.Endpoint)
	input := req.Payload["input"].(map[string]any)
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", input["img_url"])
	assert.Equal(t, "1080P", req.Payload["parameters"].(map[string]any)["resolution"])
}

func TestBuildSeedance_Variants(t *testing.T) {
	in, _ := videoIn(&media.VideoParams{Model: "seedance-v1-pro", Prompt: "x"})
	req, err := buildSeedance(in)
	require.NoError(t, err)
	assert.Equal(t, "/async/seedance-v1-pro-t2v", req.Endpoint)
	assert.Equal(t, -1, req.Payload["seed"])

	in, _ = videoIn(&media.VideoParams{
		Model:   "seedance-v1",
		Prompt:  "x",
		Images:  []string{"a"},
		Options: &media.SeedanceOptions{Version: "pro", LastImage: "z"},
	})
	req, err = buildSeedance(in)
	require.NoError(t, err)
	assert.Equal(t, "/async/seedance-v1-pro-i2v", req.Endpoint)
	assert.Equal(t, "data:image/png;base64,z", req.Payload["last_image"])

	in, _ = videoIn(&media.VideoParams{Model: "seedance-v1-lite", Prompt: "x", Options: &media.SeedanceOptions{Version: "pro"}})
	req, err = buildSeedance(in)
	require.NoError(t, err)
	assert.Equal(t, "/async/seedance-v1-lite-t2v", req.Endpoint)
}

func TestBuildSeedream(t *testing.T) {
	maxImages := 3
	spy := &stageSpy{}
	in := imageInput{
		Params: &media.ImageParams{
			Model:   "seedream-4.0",
			Prompt:  "x",
			Size:    "2K",
			Images:  []string{"a"},
			Options: &media.SeedreamOptions{SequentialImageGeneration: "auto", MaxImages: &maxImages},
		},
		Stage: spy.stage,
		Shape: noShape{},
	}

	req, err := buildSeedream(in)

	require.NoError(t, err)
	assert.Equal(t, "/seedream-4.0", req.Endpoint)
	assert.Equal(t, false, req.Payload["watermark"])
	assert.Equal(t, "2K", req.Payload["size"])
	assert.Equal(t, "auto", req.Payload["sequential_image_generation"])
	assert.Equal(t, 3, req.Payload["max_images"])
	assert.Equal(t, []string{"data:image/png;base64,a"}, req.Payload["images"])
}

func TestBuildSpeech26_Variants(t *testing.T) {
	speed := 1.2
	tests := []struct {
		model   string
		variant string
		want    string
	}{
		{"minimax-speech-2.6", "", "/minimax-speech-2.6-hd"},
		{"minimax-speech-2.6", "turbo", "/minimax-speech-2.6-turbo"},
		{"minimax-speech-2.6-hd", "turbo", "/minimax-speech-2.6-hd"},
		{"minimax-speech-2.6-turbo", "", "/minimax-speech-2.6-turbo"},
	}
	for _, tt := range tests {
		t.Run(tt.model+"/"+tt.variant, func(t *testing.T) {
			in := audioInput{Params: &media.AudioParams{
				Model:   tt.model,
				Text:    "hello",
				Options: &media.SpeechOptions{Variant: tt.variant, VoiceID: "v1", Speed: &speed},
			}}
			req, err := buildSpeech26(in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.Endpoint)
			assert.Equal(t, "url", req.Payload["output_format"])
			assert.Equal(t, map[string]any{"voice_id": "v1", "speed": 1.2}, req.Payload["voice_setting"])
			assert.NotContains(t, req.Payload, "audio_setting")
		})
	}
}

func TestBuildSpeech26_RequiresText(t *testing.T) {
	_, err := buildSpeech26(audioInput{Params: &media.AudioParams{Model: "minimax-speech-2.6"}})
	assert.ErrorIs(t, err, media.ErrInvalidInput)
}
