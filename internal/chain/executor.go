package chain

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"priceops/gateway/internal/domain"
)

// Caller is the slice of the business-API client the executor needs.
type Caller interface {
	StartParser(ctx context.Context, parser string) domain.CallResult
	StartTableProcess(ctx context.Context, method string, args []string) domain.CallResult
}

type Executor struct {
	api Caller
}

func NewExecutor(api Caller) *Executor {
	return &Executor{api: api}
}

// Run executes every fetch step, then every sync step, stopping at the first
// failure. Later steps assume earlier ones completed, so nothing past a
// failure is attempted. A panic anywhere below is converted into a failed
// result; nothing propagates out of a run.
func (e *Executor) Run(ctx context.Context, def domain.ProcessDefinition) (result domain.ChainResult) {
	result = domain.ChainResult{ProcessName: def.Name}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("chain: panic during %q run: %v", def.Name, r)
			result.Succeeded = false
			result.Log = append(result.Log, fmt.Sprintf("[---] Internal error: chain %q aborted: %v", def.Name, r))
		}
	}()

	for _, parser := range def.Parsers {
		call := e.api.StartParser(ctx, parser)
		result.StatusCode = call.StatusCode
		result.Log = append(result.Log, formatEntry(call.StatusCode, fmt.Sprintf("Parser '%s'", parser), call.Message))
		if !call.Succeeded {
			log.Printf("chain: %q stopped at parser %q", def.Name, parser)
			return result
		}
	}

	for _, step := range def.SyncSteps {
		call := e.api.StartTableProcess(ctx, step.Method, step.Args)
		result.StatusCode = call.StatusCode
		result.Log = append(result.Log, formatEntry(call.StatusCode, fmt.Sprintf("Table process '%s'", step.Method), call.Message))
		if !call.Succeeded {
			log.Printf("chain: %q stopped at table process %q", def.Name, step.Method)
			return result
		}
	}

	result.Succeeded = true
	return result
}

func formatEntry(status *int, step, message string) string {
	code := "---"
	if status != nil {
		code = strconv.Itoa(*status)
	}
	return fmt.Sprintf("[%s] %s: %s", code, step, message)
}
