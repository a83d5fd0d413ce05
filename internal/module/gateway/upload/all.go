package upload

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/uniedit/mediagen/internal/domain/media"
	"github.com/uniedit/mediagen/internal/module/gateway/mediaref"
)

// All uploads refs in parallel and keeps their order. One failure cancels the rest.
func All(ctx context.Context, up media.Uploader, refs []media.Reference) ([]string, error) {
	out := make([]string, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	for i, ref := range refs {
		if mediaref.IsRemote(ref) {
			out[i] = ref
			continue
		}
		g.Go(func() error {
			url, err := up.Upload(gctx, ref)
			if err != nil {
				return fmt.Errorf("upload reference %d: %w", i, err)
			}
			out[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Normalize applies policy to refs, using up for PolicyUpload. The input slice is not modified.
func Normalize(ctx context.Context, policy mediaref.Policy, up media.Uploader, refs []media.Reference) ([]string, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	if policy != mediaref.PolicyUpload {
		return mediaref.ConvertAll(policy, refs), nil
	}
	if allRemote(refs) {
		return append([]string(nil), refs...), nil
	}
	if up == nil || !up.Available() {
		return nil, media.NewValidationError(media.ErrNoUploader, "%d local references need an uploader", countLocal(refs))
	}
	return All(ctx, up, refs)
}

func countLocal(refs []media.Reference) int {
	n := 0
	for _, r := range refs {
		if !mediaref.IsRemote(r) {
			n++
		}
	}
	return n
}

func allRemote(refs []media.Reference) bool {
	for _, r := range refs {
		if !mediaref.IsRemote(r) {
			return false
		}
	}
	return true
}
