package demo

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/toyz/synapse/pkg/synapse"
)

// HealthController reports liveness. Its routes are declared with the builder API.
type HealthController struct {
	Store   *CatStore `inject:""`
	Started time.Time `inject:"startedAt"`
}

// Health is the liveness payload
type Health struct {
	Status    string `json:"status" msgpack:"status"`
	Cats      int    `json:"cats" msgpack:"cats"`
	Uptime    string `json:"uptime" msgpack:"uptime"`
	RequestID string `json:"request_id" msgpack:"request_id"`
}

func (h *HealthController) Check(ctx context.Context, ec *synapse.ExecutionContext) (Health, error) {
	if err := ctx.Err(); err != nil {
		return Health{}, err
	}
	return Health{
		Status:    "ok",
		Cats:      h.Store.Count(),
		Uptime:    time.Since(h.Started).Round(time.Second).String(),
		RequestID: ec.RequestID(),
	}, nil
}

// Echo reflects the query back. repeat and upper shape the echoed values.
func (h *HealthController) Echo(ec *synapse.ExecutionContext, q synapse.QueryMap) map[string]any {
	repeat := max(q.GetIntDefault("repeat", 1), 1)
	upper := q.GetBool("upper")

	keys := q.Keys()
	slices.Sort(keys)
	values := make(map[string]any, len(keys))
	for _, k := range keys {
		if k == "repeat" || k == "upper" {
			continue
		}
		v := strings.Repeat(q.Get(k), repeat)
		if upper {
			v = strings.ToUpper(v)
		}
		values[k] = v
	}
	return map[string]any{
		"route":  ec.Route().Path,
		"keys":   keys,
		"query":  values,
		"format": q.GetDefault("format", "json"),
		"traced": q.Has("trace"),
	}
}

func healthController() *synapse.ControllerDef {
	ctrl := synapse.Controller[*HealthController]("/health")
	ctrl.Get("/", "Check")
	ctrl.Get("/echo", "Echo", synapse.Query("").At(1))
	return ctrl
}
