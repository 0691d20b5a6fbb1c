package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/spaghettifunk/shadowproxy/engine/assets"
	"github.com/spaghettifunk/shadowproxy/engine/combine"
	"github.com/spaghettifunk/shadowproxy/engine/core"
	"github.com/spaghettifunk/shadowproxy/engine/preview"
	"github.com/spaghettifunk/shadowproxy/engine/resources"
	"github.com/spaghettifunk/shadowproxy/engine/scene"
	"github.com/spaghettifunk/shadowproxy/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine completed initialization and is ready to generate
	EngineStageInitialized
	// Engine is generating or watching
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

type Engine struct {
	currentStage  Stage
	config        *ApplicationConfig
	assetManager  *assets.AssetManager
	systemManager *systems.SystemManager
	combiner      *combine.Combiner
	clock         *core.Clock
	runCount      int

	changes chan string
	mu      sync.Mutex
	cancel  context.CancelFunc
}

func New(config *ApplicationConfig) (*Engine, error) {
	core.SetLogLevel(config.Level())

	sm, err := systems.NewSystemManager(config.systemsConfig())
	if err != nil {
		core.LogError("%s", err)
		return nil, err
	}

	return &Engine{
		currentStage:  EngineStageUninitialized,
		config:        config,
		assetManager:  assets.NewAssetManager(),
		systemManager: sm,
		combiner:      combine.NewCombinerFromSystems(sm),
		clock:         core.NewClock(),
		changes:       make(chan string, 1),
	}, nil
}

func (e *Engine) Initialize() error {
	if !core.EventSystemInitialize() {
		return fmt.Errorf("failed to initialize the event system")
	}
	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	core.EventRegister(core.EVENT_CODE_SCENE_CHANGED, e, e.onEvent)

	e.currentStage = EngineStageInitialized
	core.LogInfo("%s initialized: scene '%s', root '%s', output '%s'.", e.config.Name, e.config.Scene, e.config.Root, e.config.Output)
	return nil
}

/**
 * @brief Generates the proxy once, then keeps regenerating on every scene
 * change when watch mode is on. Returns when ctx is cancelled or an
 * application quit event arrives.
 */
func (e *Engine) Run(ctx context.Context) error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("engine not initialized")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()
	e.currentStage = EngineStageRunning
	e.clock.Start()

	deps, err := e.Generate()
	if !e.config.Watch {
		return err
	}
	if err != nil {
		core.LogError("%s", err)
	}

	w, err := e.assetManager.NewWatcher(assets.DefaultDebounce)
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Track(append([]string{e.config.Scene}, deps...)...); err != nil {
		return err
	}

	watchErr := make(chan error, 1)
	go func() {
		watchErr <- w.Run(ctx)
	}()
	core.LogInfo("watching '%s' for changes.", e.config.Scene)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-watchErr:
			return err
		case path := <-e.changes:
			core.LogInfo("regenerating after change to '%s'.", path)
			deps, err := e.Generate()
			if err != nil {
				core.LogError("%s", err)
				continue
			}
			// The scene may reference new mesh files.
			if err := w.Track(deps...); err != nil {
				core.LogError("%s", err)
			}
		}
	}
}

/**
 * @brief One full run: load the scene, collect the sources under the root,
 * combine them and persist the result.
 *
 * @return The files the scene depends on besides the scene file itself.
 */
func (e *Engine) Generate() ([]string, error) {
	e.runCount++

	s, err := e.assetManager.LoadScene(e.config.Scene, e.systemManager.MaterialSystem)
	if err != nil {
		return nil, fmt.Errorf("loading scene: %w", err)
	}
	root, err := s.Find(e.config.Root)
	if err != nil {
		return s.Dependencies, err
	}
	static, skinned, err := scene.Collect(root)
	if err != nil {
		return s.Dependencies, err
	}

	result, err := e.combiner.Combine(static, skinned)
	metrics := e.combiner.Metrics()
	metrics.Log()
	if err != nil {
		return s.Dependencies, fmt.Errorf("combining '%s': %w", root.Name, err)
	}

	switch r := result.(type) {
	case combine.NotCombined:
		core.LogInfo("'%s' holds a single source, no proxy written.", root.Name)
	case combine.Combined:
		if err := e.persist(r); err != nil {
			return s.Dependencies, err
		}
	}
	return s.Dependencies, nil
}

func (e *Engine) persist(r combine.Combined) error {
	target, created, err := e.assetManager.LoadOrCreateMesh(e.config.Output, r.Output.Name)
	if err != nil {
		return err
	}
	if err := combine.Transfer(r.Output, target); err != nil {
		return err
	}
	if err := e.assetManager.SaveMesh(e.config.Output, target); err != nil {
		return err
	}

	verb := "refreshed"
	if created {
		verb = "created"
	}
	core.LogInfo("%s '%s' (%s): %d submeshes, %d vertices.", verb, e.config.Output, target.GUID, target.SubMeshCount(), target.VertexCount())
	for i, m := range r.Materials {
		core.LogDebug("submesh %d: material '%s'.", i, m)
	}
	core.EventFire(core.EVENT_CODE_PROXY_GENERATED, e, core.EventContext{
		Path: e.config.Output,
		U32:  [4]uint32{uint32(target.SubMeshCount()), uint32(target.VertexCount())},
	})

	if e.config.Preview != "" {
		if err := e.writePreview(target); err != nil {
			return fmt.Errorf("preview: %w", err)
		}
	}
	return nil
}

func (e *Engine) writePreview(mesh *resources.Mesh) error {
	img, err := preview.Render(mesh, e.config.previewOptions())
	if err != nil {
		return err
	}
	if err := preview.WriteFile(e.config.Preview, img); err != nil {
		return err
	}
	core.LogInfo("wrote preview '%s'.", e.config.Preview)
	return nil
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	e.clock.Stop()

	core.EventUnregister(core.EVENT_CODE_APPLICATION_QUIT, e)
	core.EventUnregister(core.EVENT_CODE_SCENE_CHANGED, e)

	if err := e.systemManager.Shutdown(); err != nil {
		return err
	}
	core.LogInfo("shut down after %d runs in %s.", e.runCount, e.clock.Elapsed())
	return nil
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, listenerInst interface{}, data core.EventContext) bool {
	switch code {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.cancel != nil {
			e.cancel()
		}
		return true
	case core.EVENT_CODE_SCENE_CHANGED:
		select {
		case e.changes <- data.Path:
		default:
			// A regeneration is already pending.
		}
		return true
	}
	return false
}
