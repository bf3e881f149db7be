package systems

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spaghettifunk/skytex/engine/assets"
	"github.com/spaghettifunk/skytex/engine/core"
	"github.com/spaghettifunk/skytex/engine/renderer/metadata"
)

var errTaskCancelled = errors.New("load task cancelled")

// loadTask fetches and decodes one texture off the graphics thread. The
// texture reaches into the task only through cancel; the pixel buffer
// leaves the task only through deliver.
type loadTask struct {
	texture    *Texture
	identifier string
	started    time.Time

	source   assets.Fetcher
	decoders *assets.DecoderRegistry
	deliver  func(completion)

	cancelled atomic.Bool
	ctx       context.Context
	abort     context.CancelFunc
}

func newLoadTask(t *Texture, source assets.Fetcher, decoders *assets.DecoderRegistry, deliver func(completion)) *loadTask {
	ctx, abort := context.WithCancel(context.Background())
	return &loadTask{
		texture:    t,
		identifier: t.Name,
		started:    time.Now(),
		source:     source,
		decoders:   decoders,
		deliver:    deliver,
		ctx:        ctx,
		abort:      abort,
	}
}

// cancel marks the task so that nothing it produces is delivered, and
// aborts an outstanding network fetch. It never blocks.
func (lt *loadTask) cancel() {
	lt.cancelled.Store(true)
	lt.abort()
}

// run is the job entry point. Network fetches return immediately and the
// task resumes on the fetcher's callback.
func (lt *loadTask) run() error {
	if lt.cancelled.Load() {
		return nil
	}
	if assets.IsNetworkIdentifier(lt.identifier) {
		lt.source.FetchNetwork(lt.ctx, lt.identifier, lt.onBytes)
		return nil
	}
	lt.onBytes(lt.source.FetchFile(lt.identifier))
	return nil
}

func (lt *loadTask) onBytes(data []byte, err error) {
	pixels, err := lt.decode(data, err)
	lt.finish(pixels, err)
}

// decode turns a fetch outcome into a pixel buffer or a typed error.
func (lt *loadTask) decode(data []byte, fetchErr error) (*metadata.PixelBuffer, error) {
	if lt.cancelled.Load() {
		return nil, errTaskCancelled
	}
	if fetchErr != nil {
		var fe *core.FetchError
		if !errors.As(fetchErr, &fe) {
			fetchErr = &core.FetchError{Identifier: lt.identifier, Err: fetchErr}
		}
		return nil, fetchErr
	}

	decoder, ok := lt.decoders.Lookup(lt.identifier)
	if !ok {
		return nil, &core.DecodeError{Identifier: lt.identifier, Err: core.ErrUnsupportedFormat}
	}

	lt.texture.state.CompareAndSwap(int32(metadata.LoadStateLoadingBytes), int32(metadata.LoadStateLoadingImage))

	pixels, err := decoder(data)
	if err != nil {
		return nil, &core.DecodeError{Identifier: lt.identifier, Err: err}
	}
	if pixels == nil {
		return nil, &core.DecodeError{Identifier: lt.identifier, Err: core.ErrEmptyImage}
	}
	if pixels.Width <= 0 || pixels.Height <= 0 {
		return nil, &core.DecodeError{Identifier: lt.identifier, Err: core.ErrEmptyImage}
	}
	if err := pixels.Validate(); err != nil {
		return nil, &core.DecodeError{Identifier: lt.identifier, Err: fmt.Errorf("%w: %v", core.ErrCorruptData, err)}
	}
	return pixels, nil
}

func (lt *loadTask) finish(pixels *metadata.PixelBuffer, err error) {
	// A cancelled task delivers nothing. If cancel lands after this check
	// the graphics thread discards the completion instead.
	if lt.cancelled.Load() {
		return
	}
	lt.deliver(completion{task: lt, pixels: pixels, err: err, started: lt.started})
}
