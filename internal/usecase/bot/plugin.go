package bot

import "fmt"

// Registrar is the registration surface handed to plugins.
type Registrar interface {
	AddCommand(spec CommandSpec, fn HandlerFunc)
	AddListener(spec ListenerSpec, fn ListenerFunc)
	Preload(cmds ...Command)
}

// Plugin bundles handlers that register themselves with an engine.
type Plugin interface {
	Name() string
	Register(r Registrar) error
}

// Install registers every plugin with r, stopping at the first error.
func Install(r Registrar, plugins ...Plugin) error {
	for _, p := range plugins {
		if err := p.Register(r); err != nil {
			return fmt.Errorf("registering plugin %s: %w", p.Name(), err)
		}
	}
	return nil
}
