package systems

type SystemManagerConfig struct {
	MaxGeometryCount uint32
	MaxMaterialCount uint32
}

func DefaultSystemManagerConfig() SystemManagerConfig {
	return SystemManagerConfig{
		MaxGeometryCount: 4096,
		MaxMaterialCount: 1024,
	}
}

type SystemManager struct {
	GeometrySystem *GeometrySystem
	MaterialSystem *MaterialSystem
	MeshSystem     *MeshSystem
}

func NewSystemManager(config SystemManagerConfig) (*SystemManager, error) {
	gs, err := NewGeometrySystem(&GeometrySystemConfig{
		MaxGeometryCount: config.MaxGeometryCount,
	})
	if err != nil {
		return nil, err
	}
	ms, err := NewMaterialSystem(&MaterialSystemConfig{
		MaxMaterialCount: config.MaxMaterialCount,
	})
	if err != nil {
		return nil, err
	}
	mesh, err := NewMeshSystem(gs)
	if err != nil {
		return nil, err
	}
	return &SystemManager{
		GeometrySystem: gs,
		MaterialSystem: ms,
		MeshSystem:     mesh,
	}, nil
}

func (sm *SystemManager) Shutdown() error {
	if err := sm.MeshSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.MaterialSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.GeometrySystem.Shutdown(); err != nil {
		return err
	}
	return nil
}
