package openimage

import (
	"context"
	"log/slog"
	"sync"

	"github.com/corona10/goimagehash"
)

// dedupThreshold is the maximum Hamming distance between two dHash values
// below which images are considered perceptually identical.
const dedupThreshold = 10

// dedupRecords drops records whose thumbnail is a perceptual near-duplicate of
// an earlier record. Thumbnails are hashed concurrently; comparison runs in
// input order so the first occurrence wins. Records that cannot be hashed
// are kept.
func dedupRecords(ctx context.Context, dl *Downloader, records []ImageRecord, workers int) []ImageRecord {
	hashes := make([]*goimagehash.ImageHash, len(records))

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := range records {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			_, img, err := dl.DownloadImage(ctx, records[i].classifyRef())
			if err != nil {
				return
			}
			h, err := goimagehash.DifferenceHash(img)
			if err != nil {
				return
			}
			hashes[i] = h
		}(i)
	}
	wg.Wait()

	var seen []*goimagehash.ImageHash
	out := records[:0:0]
	for i, r := range records {
		h := hashes[i]
		if h != nil && isNearDuplicate(h, seen) {
			slog.Debug("openimage: dedup rejected", "url", r.ImageURL)
			continue
		}
		if h != nil {
			seen = append(seen, h)
		}
		out = append(out, r)
	}
	return out
}

func isNearDuplicate(h *goimagehash.ImageHash, seen []*goimagehash.ImageHash) bool {
	for _, s := range seen {
		if dist, err := h.Distance(s); err == nil && dist < dedupThreshold {
			return true
		}
	}
	return false
}
