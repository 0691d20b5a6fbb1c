package engine

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/shadowproxy/engine/combine"
	"github.com/spaghettifunk/shadowproxy/engine/core"
	"github.com/spaghettifunk/shadowproxy/engine/math"
	"github.com/spaghettifunk/shadowproxy/engine/preview"
	"github.com/spaghettifunk/shadowproxy/engine/systems"
)

const (
	DefaultApplicationName = "shadowproxy"
	DefaultRootName        = "UnShadowObjects"
	DefaultOutputPath      = "assets/" + combine.DefaultOutputName + ".amesh"
)

type ApplicationConfig struct {
	// The application name used as the log prefix.
	Name     string `toml:"name"`
	LogLevel string `toml:"log_level"`
	// Scene description to generate the proxy from.
	Scene string `toml:"scene"`
	// Name of the object whose subtree casts the combined shadow.
	Root string `toml:"root"`
	// Mesh asset the proxy is written to.
	Output string `toml:"output"`
	// Optional silhouette image, .webp or .png.
	Preview     string `toml:"preview"`
	PreviewSize int    `toml:"preview_size"`
	// Direction the light travels in when rendering the preview.
	LightDirection [3]float32 `toml:"light_direction"`
	// Regenerate whenever the scene or one of its meshes changes.
	Watch bool `toml:"watch"`

	MaxGeometryCount uint32 `toml:"max_geometry_count"`
	MaxMaterialCount uint32 `toml:"max_material_count"`
}

// Overrides carries command line values. Nil fields were not given.
type Overrides struct {
	Scene    *string
	Root     *string
	Output   *string
	Preview  *string
	LogLevel *string
	Watch    *bool
}

/**
 * @brief Reads an application config file. Unknown keys are rejected so
 * that typos surface instead of silently falling back to defaults.
 */
func LoadApplicationConfig(path string) (*ApplicationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	config := &ApplicationConfig{}
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(config); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("config '%s': %s", path, strict.String())
		}
		return nil, fmt.Errorf("config '%s': %w", path, err)
	}
	return config, nil
}

// Resolve applies command line overrides, then fills in defaults.
func (c *ApplicationConfig) Resolve(o Overrides) error {
	if o.Scene != nil {
		c.Scene = *o.Scene
	}
	if o.Root != nil {
		c.Root = *o.Root
	}
	if o.Output != nil {
		c.Output = *o.Output
	}
	if o.Preview != nil {
		c.Preview = *o.Preview
	}
	if o.LogLevel != nil {
		c.LogLevel = *o.LogLevel
	}
	if o.Watch != nil {
		c.Watch = *o.Watch
	}

	if c.Name == "" {
		c.Name = DefaultApplicationName
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Root == "" {
		c.Root = DefaultRootName
	}
	if c.Output == "" {
		c.Output = DefaultOutputPath
	}
	if c.PreviewSize <= 0 {
		c.PreviewSize = preview.DefaultSize
	}
	if c.LightDirection == [3]float32{} {
		c.LightDirection = [3]float32{0, -1, 0}
	}
	defaults := systems.DefaultSystemManagerConfig()
	if c.MaxGeometryCount == 0 {
		c.MaxGeometryCount = defaults.MaxGeometryCount
	}
	if c.MaxMaterialCount == 0 {
		c.MaxMaterialCount = defaults.MaxMaterialCount
	}

	if c.Scene == "" {
		return errors.New("no scene file given")
	}
	if c.Preview != "" {
		if _, err := preview.FormatFromPath(c.Preview); err != nil {
			return err
		}
	}
	return nil
}

func (c *ApplicationConfig) Level() core.LogLevel {
	return core.ParseLogLevel(c.LogLevel)
}

func (c *ApplicationConfig) previewOptions() preview.Options {
	opts := preview.DefaultOptions()
	opts.Size = c.PreviewSize
	opts.LightDirection = math.NewVec3(c.LightDirection[0], c.LightDirection[1], c.LightDirection[2])
	return opts
}

func (c *ApplicationConfig) systemsConfig() systems.SystemManagerConfig {
	return systems.SystemManagerConfig{
		MaxGeometryCount: c.MaxGeometryCount,
		MaxMaterialCount: c.MaxMaterialCount,
	}
}
