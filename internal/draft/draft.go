// Package draft converts between a live slot sequence and its persisted
// form.
package draft

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/kozaktomas/fieldreport/internal/constants"
	"github.com/kozaktomas/fieldreport/internal/database"
	"github.com/kozaktomas/fieldreport/internal/imaging"
	"github.com/kozaktomas/fieldreport/internal/slots"
)

// FromSlots builds the persisted image set of a slot sequence. Images are
// re-encoded with profile p; an image that cannot be re-encoded is stored
// with its original bytes.
func FromSlots(ctx context.Context, a *slots.Allocator, p imaging.Profile) (database.ImageSet, error) {
	flat := a.Slots()
	stored := make([]*database.StoredImage, len(flat))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(constants.RenderConcurrency)
	for pos, img := range flat {
		if !img.Resolvable() {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := imaging.Normalize(img.Source, p)
			if err != nil {
				log.Printf("WARNING: storing image %s uncompressed: %v", img.ID, err)
				data = img.Source
			}
			stored[pos] = &database.StoredImage{
				ID:       img.ID,
				Data:     data,
				Role:     img.Role,
				Caption:  img.Caption,
				Position: pos,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return database.ImageSet{}, err
	}

	set := database.ImageSet{PairCount: a.PairCount()}
	for _, s := range stored {
		if s == nil {
			continue
		}
		switch s.Role {
		case slots.RoleBefore:
			set.Before = append(set.Before, *s)
		case slots.RoleAfter:
			set.After = append(set.After, *s)
		default:
			set.Upload = append(set.Upload, *s)
		}
	}
	return set, nil
}

// ToSlots rebuilds the slot sequence of a persisted image set. Stored
// positions are used when they are distinct; otherwise images are laid
// out by role, before k at 2k, after k at 2k+1 and uploads behind the
// pairs.
func ToSlots(set database.ImageSet) *slots.Allocator {
	all := set.All()
	pairCount := set.PairCount
	if !distinctPositions(all) {
		pairCount = max(len(set.Before), len(set.After))
		all = conventionalPositions(set, pairCount)
	}

	size := 0
	for _, s := range all {
		size = max(size, s.Position+1)
	}
	flat := make([]*slots.Image, size)
	for _, s := range all {
		flat[s.Position] = &slots.Image{
			ID:      s.ID,
			Source:  s.Data,
			Role:    s.Role,
			Caption: s.Caption,
		}
	}
	return slots.Restore(flat, pairCount)
}

func distinctPositions(imgs []database.StoredImage) bool {
	seen := make(map[int]bool, len(imgs))
	for _, img := range imgs {
		if img.Position < 0 || seen[img.Position] {
			return false
		}
		seen[img.Position] = true
	}
	return true
}

func conventionalPositions(set database.ImageSet, pairCount int) []database.StoredImage {
	var out []database.StoredImage
	place := func(imgs []database.StoredImage, pos func(k int) int) {
		for k, img := range imgs {
			img.Position = pos(k)
			out = append(out, img)
		}
	}
	place(set.Before, func(k int) int { return 2 * k })
	place(set.After, func(k int) int { return 2*k + 1 })
	place(set.Upload, func(k int) int { return 2*pairCount + k })
	return out
}
