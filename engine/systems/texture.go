package systems

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/spaghettifunk/skytex/engine/assets"
	"github.com/spaghettifunk/skytex/engine/core"
	"github.com/spaghettifunk/skytex/engine/renderer"
	"github.com/spaghettifunk/skytex/engine/renderer/metadata"
)

type TextureSystemConfig struct {
	/** @brief The maximum number of textures that can be alive at once. */
	MaxTextureCount uint32
	/** @brief Resample images the hardware cannot take as they are. When false such images fail to load. */
	AllowRescale bool
	/** @brief Returned by DefaultParams. */
	DefaultParams metadata.TextureParams
}

// TextureStats is a snapshot of the texture system counters.
type TextureStats struct {
	Created       uint64
	Scheduled     uint64
	Destroyed     uint64
	Loaded        uint64
	Failed        uint64
	Discarded     uint64
	InFlight      int
	Live          int
	AverageLoadMS float64
}

// TextureSystem creates textures, loads them on the job system and uploads
// the results on the graphics thread during Update.
type TextureSystem struct {
	Config *TextureSystemConfig

	jobSystem *JobSystem
	source    assets.Source
	decoders  *assets.DecoderRegistry
	gfx       renderer.GraphicsContext
	events    *core.EventSystem

	ids     *core.IdentifierRegistry
	metrics *core.LoadMetrics

	initialized atomic.Bool
	// Read only after Initialize.
	caps           metadata.Capabilities
	defaultTexture *Texture

	completions *completionQueue
	drainBuf    []completion

	mu        sync.Mutex
	inFlight  map[*loadTask]struct{}
	created   uint64
	scheduled uint64
	destroyed uint64
}

func NewTextureSystem(config *TextureSystemConfig, js *JobSystem, source assets.Source, decoders *assets.DecoderRegistry, gfx renderer.GraphicsContext, events *core.EventSystem) (*TextureSystem, error) {
	if config.MaxTextureCount == 0 {
		err := fmt.Errorf("func NewTextureSystem - config.MaxTextureCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	if js == nil || source == nil || decoders == nil || gfx == nil {
		return nil, errors.New("func NewTextureSystem - job system, asset source, decoders and graphics context are required")
	}
	if config.DefaultParams.DynamicRange == nil {
		config.DefaultParams.DynamicRange = metadata.LinearRange{}
	}

	return &TextureSystem{
		Config:      config,
		jobSystem:   js,
		source:      source,
		decoders:    decoders,
		gfx:         gfx,
		events:      events,
		ids:         core.NewIdentifierRegistry(),
		metrics:     core.NewLoadMetrics(),
		completions: newCompletionQueue(64),
		inFlight:    make(map[*loadTask]struct{}),
	}, nil
}

// Initialize reads the hardware limits and uploads the fallback texture.
// It must run on the graphics thread once a context is current.
func (ts *TextureSystem) Initialize() error {
	if ts.initialized.Load() {
		core.LogWarn("texture system already initialized")
		return nil
	}
	if !ts.gfx.IsCurrent() {
		return core.ErrNoCurrentContext
	}

	caps := metadata.Capabilities{
		MaxTextureSize: ts.gfx.MaxTextureSize(),
		NPOT:           ts.gfx.SupportsNPOT(metadata.PixelFormatRGBA),
		NPOTLuminance:  ts.gfx.SupportsNPOT(metadata.PixelFormatLuminance),
		FloatTextures:  ts.gfx.SupportsFloatFormat(),
	}
	if caps.MaxTextureSize < 1 {
		return fmt.Errorf("%w: max texture size %d", core.ErrCapability, caps.MaxTextureSize)
	}
	ts.caps = caps
	core.LogInfo("texture capabilities: max size %d, npot %t, npot luminance %t, float %t",
		caps.MaxTextureSize, caps.NPOT, caps.NPOTLuminance, caps.FloatTextures)

	// The fallback is generated in code so it can never fail to load from disk.
	def := newTexture(ts, metadata.DEFAULT_TEXTURE_NAME, metadata.TextureParams{
		Filter:       metadata.TextureFilterModeNearest,
		Wrap:         metadata.TextureRepeatRepeat,
		DynamicRange: metadata.LinearRange{},
	}, metadata.LoadingModeImmediate)
	def.ID = uuid.New()
	def.flags = metadata.TextureFlagBits(metadata.TextureFlagIsDefault)
	if err := ts.upload(def, metadata.CreateCheckerboardPixels()); err != nil {
		return fmt.Errorf("failed to create default texture: %w", err)
	}
	ts.defaultTexture = def

	ts.initialized.Store(true)
	return nil
}

// Capabilities returns the hardware limits read by Initialize.
func (ts *TextureSystem) Capabilities() metadata.Capabilities {
	return ts.caps
}

// DefaultTexture returns the checkerboard to draw in place of a texture
// that failed to load.
func (ts *TextureSystem) DefaultTexture() *Texture {
	return ts.defaultTexture
}

// DefaultParams returns the configured texture parameters.
func (ts *TextureSystem) DefaultParams() metadata.TextureParams {
	return ts.Config.DefaultParams
}

// CreateTexture returns a new texture for identifier. Immediate mode loads
// before returning and must run on the graphics thread; Asynchronous
// starts loading in the background; LazyAsynchronous waits for the first
// Bind. Misuse panics with a *core.ContractError.
func (ts *TextureSystem) CreateTexture(identifier string, params metadata.TextureParams, mode metadata.LoadingMode) *Texture {
	if !ts.initialized.Load() {
		core.ContractViolation("CreateTexture(%q) called before Initialize or after Shutdown", identifier)
	}
	if identifier == "" {
		core.ContractViolation("CreateTexture called with an empty identifier")
	}
	if assets.Extension(identifier) == "pvr" {
		core.ContractViolation("CreateTexture(%q): PVR containers cannot be loaded directly", identifier)
	}
	switch mode {
	case metadata.LoadingModeImmediate:
		if assets.IsNetworkIdentifier(identifier) {
			core.ContractViolation("CreateTexture(%q): network textures cannot be loaded in immediate mode", identifier)
		}
		if !ts.gfx.IsCurrent() {
			core.ContractViolation("CreateTexture(%q): immediate mode requires the graphics thread", identifier)
		}
	case metadata.LoadingModeAsynchronous, metadata.LoadingModeLazyAsynchronous:
	default:
		core.ContractViolation("CreateTexture(%q): unknown loading mode %d", identifier, mode)
	}
	if params.DynamicRange != nil {
		if err := params.DynamicRange.Validate(); err != nil {
			core.ContractViolation("CreateTexture(%q): %s", identifier, err)
		}
	}

	t := newTexture(ts, identifier, params, mode)
	if uint32(ts.ids.Count()) >= ts.Config.MaxTextureCount {
		t.ID = uuid.New()
		t.err = &core.UploadError{
			Identifier: identifier,
			Err:        fmt.Errorf("%w: texture limit of %d reached", core.ErrCapability, ts.Config.MaxTextureCount),
		}
		t.state.Store(int32(metadata.LoadStateLoadError))
		core.LogError(t.err.Error())
		return t
	}
	t.ID = ts.ids.AquireNewID(t)

	ts.mu.Lock()
	ts.created++
	ts.mu.Unlock()

	switch mode {
	case metadata.LoadingModeImmediate:
		ts.loadImmediate(t)
	case metadata.LoadingModeAsynchronous:
		ts.scheduleLoad(t)
	}
	return t
}

func (ts *TextureSystem) loadImmediate(t *Texture) {
	t.state.Store(int32(metadata.LoadStateLoadingBytes))
	task := newLoadTask(t, ts.source, ts.decoders, nil)
	pixels, err := task.decode(ts.source.FetchFile(t.Name))
	ts.complete(completion{task: task, pixels: pixels, err: err, started: task.started})
}

// scheduleLoad moves an Unloaded texture to LoadingBytes and submits its
// load task. Only the caller that wins the transition schedules.
func (ts *TextureSystem) scheduleLoad(t *Texture) {
	task := newLoadTask(t, ts.source, ts.decoders, ts.completions.push)

	t.mu.Lock()
	if t.destroyed || !t.state.CompareAndSwap(int32(metadata.LoadStateUnloaded), int32(metadata.LoadStateLoadingBytes)) {
		t.mu.Unlock()
		task.abort()
		return
	}
	t.task = task
	t.mu.Unlock()

	ts.mu.Lock()
	ts.inFlight[task] = struct{}{}
	ts.scheduled++
	ts.mu.Unlock()

	err := ts.jobSystem.Submit(metadata.JobTask{
		JobType:  metadata.JOB_TYPE_RESOURCE_LOAD,
		Priority: metadata.JOB_PRIORITY_NORMAL,
		Name:     "load texture " + t.Name,
		OnStart:  task.run,
	})
	if err != nil {
		task.finish(nil, &core.FetchError{Identifier: t.Name, Err: fmt.Errorf("%w: %v", core.ErrAborted, err)})
	}
}

// Update hands finished loads to the uploader. It must be called on the
// graphics thread, typically once per frame.
func (ts *TextureSystem) Update() {
	if !ts.gfx.IsCurrent() {
		core.ContractViolation("TextureSystem.Update called without a current graphics context")
	}
	if !ts.initialized.Load() {
		core.ContractViolation("TextureSystem.Update called before Initialize or after Shutdown")
	}

	ts.drainBuf = ts.completions.drain(ts.drainBuf[:0])
	for i := range ts.drainBuf {
		ts.complete(ts.drainBuf[i])
		ts.drainBuf[i] = completion{}
	}

	ts.markStale()
}

func (ts *TextureSystem) complete(c completion) {
	task := c.task
	t := task.texture
	task.abort()

	ts.mu.Lock()
	delete(ts.inFlight, task)
	ts.mu.Unlock()

	if task.cancelled.Load() {
		ts.discard(c)
		return
	}

	t.mu.Lock()
	if t.task == task {
		t.task = nil
	}
	destroyed := t.destroyed
	t.mu.Unlock()
	if destroyed {
		ts.discard(c)
		return
	}

	elapsed := time.Since(c.started).Seconds()
	err := c.err
	if err == nil {
		err = ts.upload(t, c.pixels)
		if errors.Is(err, errTaskCancelled) {
			ts.discard(c)
			return
		}
	} else if c.pixels != nil {
		releasePixels(c.pixels)
	}

	if err != nil {
		ts.fail(t, err)
		ts.metrics.RecordLoad(elapsed, true)
		return
	}
	ts.metrics.RecordLoad(elapsed, false)

	core.LogDebug("texture '%s' loaded in %.1fms", t.Name, elapsed*1000)
	if ts.events != nil {
		ctx := core.EventContext{}
		ctx.Data.C[0] = t.Name
		ctx.Data.U32[0] = uint32(t.width)
		ctx.Data.U32[1] = uint32(t.height)
		ts.events.Fire(core.EVENT_CODE_TEXTURE_LOADED, t, ctx)
	}
}

// discard drops the completion of a cancelled load without any graphics call.
func (ts *TextureSystem) discard(c completion) {
	if c.pixels != nil {
		releasePixels(c.pixels)
	}
	ts.metrics.RecordDiscard()
	core.LogDebug("discarded load of destroyed texture '%s'", c.task.identifier)
}

func (ts *TextureSystem) fail(t *Texture, err error) {
	t.mu.Lock()
	if t.destroyed {
		t.mu.Unlock()
		return
	}
	t.err = err
	t.state.Store(int32(metadata.LoadStateLoadError))
	t.mu.Unlock()

	core.LogWarn("failed to load texture '%s': %s", t.Name, err)
	if ts.events != nil {
		ctx := core.EventContext{}
		ctx.Data.C[0] = t.Name
		ctx.Data.C[1] = err.Error()
		ts.events.Fire(core.EVENT_CODE_TEXTURE_LOAD_FAILED, t, ctx)
	}
}

func (ts *TextureSystem) markStale() {
	changed := ts.source.DrainChanged()
	if len(changed) == 0 {
		return
	}
	names := make(map[string]struct{}, len(changed))
	for _, id := range changed {
		names[id] = struct{}{}
	}

	for _, owner := range ts.ids.Owners() {
		t, ok := owner.(*Texture)
		if !ok {
			continue
		}
		if _, ok := names[t.Name]; !ok || t.loadState() != metadata.LoadStateLoaded {
			continue
		}
		t.mu.Lock()
		t.stale = true
		t.mu.Unlock()

		core.LogInfo("source of texture '%s' changed", t.Name)
		if ts.events != nil {
			ctx := core.EventContext{}
			ctx.Data.C[0] = t.Name
			ts.events.Fire(core.EVENT_CODE_TEXTURE_SOURCE_CHANGED, t, ctx)
		}
	}
}

// DestroyTexture releases the GPU texture and cancels an in-flight load
// without waiting for it. Destroying a texture twice is a no-op. A loaded
// texture may only be destroyed on the graphics thread.
func (ts *TextureSystem) DestroyTexture(t *Texture) {
	if t == nil {
		return
	}
	if t == ts.defaultTexture {
		core.LogWarn("DestroyTexture called for the default texture, ignoring")
		return
	}

	t.mu.Lock()
	if t.destroyed {
		t.mu.Unlock()
		return
	}
	if t.loadState() == metadata.LoadStateLoaded && !ts.gfx.IsCurrent() {
		t.mu.Unlock()
		core.ContractViolation("DestroyTexture(%q): loaded textures must be destroyed on the graphics thread", t.Name)
	}
	t.destroyed = true
	task := t.task
	t.task = nil
	prev := metadata.LoadState(t.state.Swap(int32(metadata.LoadStateUnloaded)))
	handle := renderer.TextureHandle(t.handle.Swap(uint64(renderer.InvalidTextureHandle)))
	t.mu.Unlock()

	if task != nil {
		task.cancel()
		ts.mu.Lock()
		delete(ts.inFlight, task)
		ts.mu.Unlock()
	}
	if prev == metadata.LoadStateLoaded && handle != renderer.InvalidTextureHandle {
		ts.gfx.DeleteTexture(handle)
	}
	if err := ts.ids.ReleaseID(t.ID); err != nil {
		core.LogDebug("texture '%s' had no registered id: %s", t.Name, err)
	}

	ts.mu.Lock()
	ts.destroyed++
	ts.mu.Unlock()
}

// InFlight returns the number of load tasks that have not been consumed
// or cancelled.
func (ts *TextureSystem) InFlight() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.inFlight)
}

func (ts *TextureSystem) Stats() TextureStats {
	loaded, failed, discarded := ts.metrics.Counts()
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return TextureStats{
		Created:       ts.created,
		Scheduled:     ts.scheduled,
		Destroyed:     ts.destroyed,
		Loaded:        loaded,
		Failed:        failed,
		Discarded:     discarded,
		InFlight:      len(ts.inFlight),
		Live:          ts.ids.Count(),
		AverageLoadMS: ts.metrics.AverageLoadMS(),
	}
}

// Shutdown destroys every live texture, including the default one, and
// drops pending completions. It must run on the graphics thread.
func (ts *TextureSystem) Shutdown() error {
	if !ts.initialized.Swap(false) {
		return nil
	}
	for _, owner := range ts.ids.Owners() {
		if t, ok := owner.(*Texture); ok {
			ts.DestroyTexture(t)
		}
	}

	for _, c := range ts.completions.drain(nil) {
		ts.discard(c)
	}

	if def := ts.defaultTexture; def != nil {
		if h := renderer.TextureHandle(def.handle.Swap(uint64(renderer.InvalidTextureHandle))); h != renderer.InvalidTextureHandle {
			def.state.Store(int32(metadata.LoadStateUnloaded))
			ts.gfx.DeleteTexture(h)
		}
		ts.defaultTexture = nil
	}
	return nil
}
