package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
)

const scriptTimeout = time.Second

var errNoValue = errors.New("script must assign value")

func newMetricScript(src string, totals map[string]int64) *tengo.Script {
	script := tengo.NewScript([]byte(src))
	script.SetImports(stdlib.GetModuleMap("math"))
	script.SetMaxAllocs(10000)

	for name, v := range totals {
		script.Add(name, v)
	}
	return script
}

// CompileMetricScript checks a script against the known totals without
// running it.
func CompileMetricScript(src string) error {
	_, err := newMetricScript(src, (Totals{}).Map()).Compile()
	return err
}

// RunMetricScript evaluates src with every total bound as a global and
// returns whatever it assigned to value.
func RunMetricScript(ctx context.Context, src string, totals map[string]int64) (interface{}, error) {
	compiled, err := newMetricScript(src, totals).Compile()
	if err != nil {
		return nil, fmt.Errorf("failed to compile script: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, scriptTimeout)
	defer cancel()
	if err := compiled.RunContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to run script: %w", err)
	}

	if !compiled.IsDefined("value") {
		return nil, errNoValue
	}
	return compiled.Get("value").Value(), nil
}
