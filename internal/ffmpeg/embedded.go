//go:build ffmpeg_embedded

package ffmpeg

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
)

// release builds place the platform zip under assets/
//
//go:embed assets/*
var bundledArchives embed.FS

func openEmbeddedAsset(asset string) (io.ReadCloser, bool, error) {
	f, err := bundledArchives.Open("assets/" + asset)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("open embedded %s: %w", asset, err)
	}
	return f, true, nil
}
