package mediaprovider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniedit/mediagen/internal/adapter/outbound/mediaprovider/providerkit"
	"github.com/uniedit/mediagen/internal/domain/media"
)

func TestDefaultRegistry_Providers(t *testing.T) {
	r := NewDefaultRegistry(providerkit.Deps{})

	assert.Equal(t, []media.ProviderID{
		media.ProviderFal,
		media.ProviderKIE,
		media.ProviderModelScope,
		media.ProviderPPIO,
	}, r.Providers())
}

func TestDefaultRegistry_Create(t *testing.T) {
	r := NewDefaultRegistry(providerkit.Deps{})

	for _, id := range r.Providers() {
		t.Run(string(id), func(t *testing.T) {
			a, err := r.Create(id, media.ClientConfig{APIKey: "k"})
			require.NoError(t, err)
			assert.Equal(t, id, a.Provider())
		})
	}
}

func TestRegistry_CreateErrors(t *testing.T) {
	r := NewDefaultRegistry(providerkit.Deps{})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := r.Create("midjourney", media.ClientConfig{APIKey: "k"})
		assert.ErrorIs(t, err, media.ErrUnknownProvider)
		assert.True(t, media.IsValidation(err))
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := r.Create(media.ProviderKIE, media.ClientConfig{})
		assert.ErrorIs(t, err, media.ErrMissingCredentials)
	})
}

func TestRegistry_RegisterOverrides(t *testing.T) {
	r := NewRegistry(providerkit.Deps{})
	var gotDeps providerkit.Deps
	r.Register(media.ProviderFal, func(cfg media.ClientConfig, deps providerkit.Deps) (media.Adapter, error) {
		gotDeps = deps
		return nil, nil
	})

	_, err := r.Create(media.ProviderFal, media.ClientConfig{})

	require.NoError(t, err)
	assert.NotNil(t, gotDeps.Logger)
	assert.Equal(t, []media.ProviderID{media.ProviderFal}, r.Providers())
}
