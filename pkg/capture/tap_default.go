//go:build !darwin

package capture

import (
	"context"
	"time"

	"github.com/offlinefirst/keymapd/pkg/keys"
)

func defaultSource(clock func() time.Time) Source {
	return SourceFunc(func(ctx context.Context, _ Handler) error {
		return ErrTapUnavailable
	})
}

type unsupportedPoster struct{}

func defaultPoster() Poster {
	return unsupportedPoster{}
}

func (unsupportedPoster) Post(keys.KeySpec) error {
	return ErrPostUnsupported
}
