// Package demo is a small cats API wired from annotated and builder-declared
// controllers. The CLI serves it and the tests drive it in-process.
package demo

import (
	"time"

	"go.uber.org/zap"

	"github.com/toyz/synapse/pkg/synapse"
)

// Module builds the application root: a shared services module imported by
// both the cats feature module and the root itself.
func Module(logger *zap.Logger) (*synapse.Module, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cats, err := catsController()
	if err != nil {
		return nil, err
	}

	shared := synapse.NewModule("shared", synapse.Providers(
		synapse.UseValue(synapse.TypeToken[*zap.Logger](), logger.Named("store")),
		synapse.UseValue("startedAt", time.Now()),
		synapse.Class[*CatStore](),
	))

	catsModule := synapse.NewModule("cats",
		synapse.Imports(shared),
		synapse.Controllers(cats),
	)

	return synapse.NewModule("app",
		synapse.Imports(shared, catsModule),
		synapse.Controllers(healthController()),
	), nil
}
