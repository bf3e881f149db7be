package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/skytex/engine/assets/loaders"
	"github.com/spaghettifunk/skytex/engine/core"
	"github.com/spaghettifunk/skytex/engine/renderer/metadata"
)

// Fetcher retrieves the raw bytes of a resource.
type Fetcher interface {
	// FetchFile reads a local file. It blocks and must not be called on
	// the graphics thread.
	FetchFile(identifier string) ([]byte, error)
	// FetchNetwork starts a GET of url and returns immediately. onComplete
	// is called exactly once, on a goroutine owned by the fetcher.
	// Cancelling ctx aborts the request.
	FetchNetwork(ctx context.Context, url string, onComplete func(data []byte, err error))
}

// Source is the view of asset storage the texture pipeline works with.
type Source interface {
	Fetcher
	// Probe returns the dimensions of a local image from its header only.
	Probe(identifier string) (width, height int, ok bool)
	// DrainChanged returns the identifiers whose files changed since the
	// previous call.
	DrainChanged() []string
}

// IsNetworkIdentifier reports whether identifier names a network resource.
func IsNetworkIdentifier(identifier string) bool {
	lower := strings.ToLower(identifier)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

type AssetManagerConfig struct {
	// Directories relative identifiers are resolved against, in order.
	SearchPaths []string
	// Watch the search paths and report changed sources.
	Watch          bool
	NetworkTimeout time.Duration
	UserAgent      string
}

type AssetInfo struct {
	Path string
	// Identifiers that resolved to Path.
	Identifiers []string
	Type        metadata.ResourceType
	LastLoaded  time.Time
}

type AssetManager struct {
	config  *AssetManagerConfig
	assets  map[string]*AssetInfo
	loaders map[metadata.ResourceType]Loader
	client  *http.Client

	mutex   sync.RWMutex
	changed map[string]struct{}

	done     chan struct{}
	stopped  chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
}

func NewAssetManager(config *AssetManagerConfig) (*AssetManager, error) {
	if config == nil {
		return nil, errors.New("asset manager config is nil")
	}
	if config.NetworkTimeout < 0 {
		return nil, &core.ConfigError{Field: "network.timeout", Value: config.NetworkTimeout.String()}
	}

	return &AssetManager{
		config:  config,
		assets:  make(map[string]*AssetInfo),
		loaders: make(map[metadata.ResourceType]Loader),
		client:  &http.Client{Timeout: config.NetworkTimeout},
		changed: make(map[string]struct{}),
	}, nil
}

func (am *AssetManager) Initialize() error {
	am.registerLoader(metadata.ResourceTypeBinary, &loaders.BinaryLoader{})

	if !am.config.Watch {
		return nil
	}

	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	am.fsnotify = fsWatch
	am.done = make(chan struct{})
	am.stopped = make(chan struct{})
	go am.start()

	for _, dir := range am.config.SearchPaths {
		if _, err := os.Stat(dir); err != nil {
			core.LogWarn("assets: not watching search path '%s': %s", dir, err)
			continue
		}
		if err := am.addRecursive(dir); err != nil {
			return err
		}
	}
	return nil
}

func (am *AssetManager) Shutdown() error {
	am.mutex.Lock()
	if am.isClosed || am.fsnotify == nil {
		am.isClosed = true
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	am.mutex.Unlock()

	close(am.done)
	<-am.stopped
	return nil
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType metadata.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// Resolve maps an identifier to a file path. Absolute paths are used as
// they are; relative ones are looked up in the search paths, falling back
// to the working directory.
func (am *AssetManager) Resolve(identifier string) string {
	if filepath.IsAbs(identifier) {
		return filepath.Clean(identifier)
	}
	for _, dir := range am.config.SearchPaths {
		candidate := filepath.Join(dir, identifier)
		if _, err := os.Stat(candidate); err == nil {
			if abs, err := filepath.Abs(candidate); err == nil {
				return abs
			}
			return candidate
		}
	}
	if abs, err := filepath.Abs(identifier); err == nil {
		return abs
	}
	return identifier
}

// LoadAsset resolves identifier and loads it with the loader registered for
// resourceType.
func (am *AssetManager) LoadAsset(identifier string, resourceType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	loader, exists := am.loaders[resourceType]
	if !exists {
		return nil, fmt.Errorf("no loader registered for asset type: %d", resourceType)
	}

	path := am.Resolve(identifier)
	res, err := loader.Load(path, resourceType, params)
	if err != nil {
		return nil, err
	}
	am.track(path, identifier, resourceType)
	return res, nil
}

func (am *AssetManager) UnloadAsset(res *metadata.Resource) error {
	if res == nil {
		return nil
	}
	loader, exists := am.loaders[res.ResourceType]
	if !exists {
		return fmt.Errorf("no loader registered for asset type: %d", res.ResourceType)
	}
	return loader.Unload(res)
}

func (am *AssetManager) FetchFile(identifier string) ([]byte, error) {
	res, err := am.LoadAsset(identifier, metadata.ResourceTypeBinary, identifier)
	if err != nil {
		return nil, fileFetchError(identifier, err)
	}
	data := res.Data
	if err := am.UnloadAsset(res); err != nil {
		core.LogWarn("asset manager: unloading %q: %v", identifier, err)
	}
	return data, nil
}

func fileFetchError(identifier string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		err = fmt.Errorf("%w: %v", core.ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		err = fmt.Errorf("%w: %v", core.ErrPermission, err)
	}
	return &core.FetchError{Identifier: identifier, Err: err}
}

func (am *AssetManager) FetchNetwork(ctx context.Context, url string, onComplete func(data []byte, err error)) {
	go func() {
		data, err := am.fetchNetwork(ctx, url)
		onComplete(data, err)
	}()
}

func (am *AssetManager) fetchNetwork(ctx context.Context, url string) ([]byte, error) {
	transportError := func(err error) error {
		cause := core.ErrNetwork
		if ctx.Err() != nil {
			cause = core.ErrAborted
		}
		return &core.FetchError{Identifier: url, Err: fmt.Errorf("%w: %v", cause, err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, transportError(err)
	}
	if am.config.UserAgent != "" {
		req.Header.Set("User-Agent", am.config.UserAgent)
	}

	resp, err := am.client.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		cause := core.ErrNetwork
		switch resp.StatusCode {
		case http.StatusNotFound, http.StatusGone:
			cause = core.ErrNotFound
		case http.StatusUnauthorized, http.StatusForbidden:
			cause = core.ErrPermission
		}
		return nil, &core.FetchError{Identifier: url, StatusCode: resp.StatusCode, Err: cause}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(err)
	}
	return data, nil
}

func (am *AssetManager) Probe(identifier string) (int, int, bool) {
	if IsNetworkIdentifier(identifier) {
		return 0, 0, false
	}
	cfg, _, err := loaders.ProbeImage(am.Resolve(identifier))
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, false
	}
	return cfg.Width, cfg.Height, true
}

func (am *AssetManager) DrainChanged() []string {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	if len(am.changed) == 0 {
		return nil
	}
	ids := slices.Sorted(maps.Keys(am.changed))
	clear(am.changed)
	return ids
}

// AddRecursive starts watching the named directory and all sub-directories.
func (am *AssetManager) addRecursive(name string) error {
	if am.isClosed {
		return errors.New("asset watcher already closed")
	}
	abs, err := filepath.Abs(name)
	if err != nil {
		return err
	}
	return am.watchRecursive(abs, false)
}

func (am *AssetManager) start() {
	defer close(am.stopped)
	for {
		select {

		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					if err := am.watchRecursive(e.Name, false); err != nil {
						core.LogWarn("assets: cannot watch '%s': %s", e.Name, err)
					}
				}
				continue
			}
			// Handle create or modify events
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				am.handleFileEvent(e.Name)
			}
			if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				am.handleFileEvent(e.Name)
				am.removeAsset(e.Name)
			}

		case e, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("assets: watcher: %s", e)

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

// watchRecursive adds all directories under the given one to the watch list.
func (am *AssetManager) watchRecursive(path string, unWatch bool) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fi.IsDir() {
			return nil
		}
		if unWatch {
			return am.fsnotify.Remove(walkPath)
		}
		return am.fsnotify.Add(walkPath)
	})
}

func (am *AssetManager) track(path, identifier string, resourceType metadata.ResourceType) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	info, ok := am.assets[path]
	if !ok {
		info = &AssetInfo{Path: path, Type: resourceType}
		am.assets[path] = info
	}
	if !slices.Contains(info.Identifiers, identifier) {
		info.Identifiers = append(info.Identifiers, identifier)
	}
	info.LastLoaded = time.Now()
}

// Handle the creation or modification of a file that was loaded before.
func (am *AssetManager) handleFileEvent(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	info, ok := am.assets[filepath.Clean(path)]
	if !ok {
		return
	}
	for _, id := range info.Identifiers {
		am.changed[id] = struct{}{}
	}
	core.LogDebug("assets: source '%s' changed", path)
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	delete(am.assets, filepath.Clean(path))
}

// Asset returns the index entry of a loaded file.
func (am *AssetManager) Asset(path string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[filepath.Clean(path)]
	if !ok {
		return AssetInfo{}, false
	}
	return *info, true
}
