package synapse

import "go.uber.org/zap"

// ResolveRoutes walks the module graph depth first from root and returns the flat
// route table. Imported modules contribute their routes before the importing
// module's own controllers, and a module reached twice contributes only once.
func ResolveRoutes(root *Module, logger *zap.Logger) []RouteDescriptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	var routes []RouteDescriptor
	visited := make(map[*Module]struct{})
	explore(root, visited, &routes, logger)
	return routes
}

func explore(m *Module, visited map[*Module]struct{}, routes *[]RouteDescriptor, logger *zap.Logger) {
	if m == nil {
		return
	}
	if _, seen := visited[m]; seen {
		return
	}
	visited[m] = struct{}{}

	for _, imp := range m.imports {
		explore(imp, visited, routes, logger)
	}

	for _, ctrl := range m.controllers {
		if ctrl == nil {
			continue
		}
		if !ctrl.Declared() {
			logger.Warn("controller has no controller declaration, skipping its routes",
				zap.String("module", m.String()),
				zap.String("controller", ctrl.Name()))
			continue
		}
		*routes = append(*routes, ctrl.Routes()...)
	}
}

// Modules returns every module reachable from root in visit order
func Modules(root *Module) []*Module {
	var out []*Module
	visited := make(map[*Module]struct{})
	var walk func(m *Module)
	walk = func(m *Module) {
		if m == nil {
			return
		}
		if _, seen := visited[m]; seen {
			return
		}
		visited[m] = struct{}{}
		out = append(out, m)
		for _, imp := range m.imports {
			walk(imp)
		}
	}
	walk(root)
	return out
}
