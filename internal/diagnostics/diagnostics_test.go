package diagnostics

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/toyz/synapse/internal/annotations"
	"github.com/toyz/synapse/pkg/synapse"
)

type pingController struct{}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"quiet":   Silent,
		"ERROR":   ErrorLevel,
		"warning": WarnLevel,
		"":        InfoLevel,
		"verbose": VerboseLevel,
		" debug ": DebugLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestLevelsFilterOutput(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewWithWriters(WarnLevel, &out, &errOut)

	r.Info("hidden")
	r.Debug("hidden")
	r.Warn("careful %d", 1)
	r.Error("broken")

	assert.Equal(t, "[WARN] careful 1\n", out.String())
	assert.Equal(t, "[ERROR] broken\n", errOut.String())
}

func TestRoutes(t *testing.T) {
	var out bytes.Buffer
	r := NewWithWriters(InfoLevel, &out, &out)

	ctrl := synapse.Controller[pingController]("/ping")
	ctrl.Get("/", "Ping")
	ctrl.Delete("/:id", "Remove")

	r.Routes("/api", ctrl.Routes())
	assert.Contains(t, out.String(), "GET")
	assert.Contains(t, out.String(), "/api/ping")
	assert.Contains(t, out.String(), "/api/ping/:id")
	assert.Contains(t, out.String(), "pingController.Remove")

	out.Reset()
	r.Routes("", nil)
	assert.Contains(t, out.String(), "no routes registered")
}

func TestReportAnnotationErrors(t *testing.T) {
	var out bytes.Buffer
	r := NewWithWriters(ErrorLevel, &out, &out)

	_, err := annotations.NewParser().Parse(`@controller() {}`, "cats.syn")
	r.Report(err)
	assert.Contains(t, out.String(), "cats.syn")
	assert.Contains(t, out.String(), "SchemaError:")
	assert.Contains(t, out.String(), "Did you mean @Controller?")

	out.Reset()
	r.Report(errors.New("plain"))
	assert.Equal(t, "[ERROR] plain\n", out.String())
}
