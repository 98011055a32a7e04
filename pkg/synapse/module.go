package synapse

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/toyz/synapse/internal/container"
)

// Module is a module declaration: imports, controllers and providers, plus the
// registration closure that loads them into a container.
type Module struct {
	name        string
	imports     []*Module
	controllers []*ControllerDef
	providers   []Provider
	register    func(c *Container) error
}

// ModuleOption configures a Module
type ModuleOption func(*Module)

// Imports adds imported modules
func Imports(modules ...*Module) ModuleOption {
	return func(m *Module) {
		m.imports = append(m.imports, modules...)
	}
}

// Controllers adds controllers; each is self-bound in the container unless already bound
func Controllers(controllers ...*ControllerDef) ModuleOption {
	return func(m *Module) {
		m.controllers = append(m.controllers, controllers...)
	}
}

// Providers adds providers
func Providers(providers ...Provider) ModuleOption {
	return func(m *Module) {
		m.providers = append(m.providers, providers...)
	}
}

// NewModule declares a module
func NewModule(name string, opts ...ModuleOption) *Module {
	m := &Module{name: name}
	for _, opt := range opts {
		opt(m)
	}
	m.register = m.registerDeclared
	return m
}

// ContainerModule declares a module whose registration is a custom closure.
// It has no imports or controllers of its own.
func ContainerModule(name string, register func(c *Container) error) *Module {
	return &Module{name: name, register: register}
}

// Import adds imports after construction, which is how import cycles are declared
func (m *Module) Import(modules ...*Module) *Module {
	m.imports = append(m.imports, modules...)
	return m
}

// Name returns the module name
func (m *Module) Name() string { return m.name }

// ImportList returns the imported modules in declaration order
func (m *Module) ImportList() []*Module {
	return append([]*Module(nil), m.imports...)
}

// ControllerList returns the controllers in declaration order
func (m *Module) ControllerList() []*ControllerDef {
	return append([]*ControllerDef(nil), m.controllers...)
}

// ProviderList returns the providers in declaration order
func (m *Module) ProviderList() []Provider {
	return append([]Provider(nil), m.providers...)
}

func (m *Module) String() string {
	if m.name == "" {
		return "<anonymous module>"
	}
	return m.name
}

func (m *Module) registerDeclared(c *Container) error {
	for _, imp := range m.imports {
		if err := c.Load(imp); err != nil {
			return fmt.Errorf("module %s: import %s: %w", m, imp, err)
		}
	}

	for _, p := range m.providers {
		if c.IsBound(p.Token) {
			c.logger.Debug("provider already bound, keeping first binding",
				zap.String("module", m.String()),
				zap.String("token", container.KeyString(p.Token)))
			continue
		}
		if err := c.Bind(p); err != nil {
			return fmt.Errorf("module %s: %w", m, err)
		}
	}

	for _, ctrl := range m.controllers {
		if ctrl == nil {
			return fmt.Errorf("module %s: nil controller", m)
		}
		if c.IsBound(ctrl.Type()) {
			continue
		}
		p := Provider{Kind: ProviderClass, Token: ctrl.Type(), Type: ctrl.Type()}
		if err := c.Bind(p); err != nil {
			return fmt.Errorf("module %s: controller %s: %w", m, ctrl, err)
		}
	}
	return nil
}
