package worker

import (
	"reflect"

	"github.com/ojasjagtap/prompt-ide/pkg/core"
)

// Demos reported per predictor are capped so huge bootstrap budgets
// don't bloat the success payload.
const maxReportedDemos = 10

// ExtractedResults is everything the parent process wants to show about
// the compiled program.
type ExtractedResults struct {
	Instructions map[string]string
	Demos        []DemoInfo
	Predictors   []PredictorInfo
}

// ExtractResults walks the compiled program's modules and collects their
// instructions and demonstrations. Extraction never fails: a module the
// walker cannot fully describe is reported with what it has, and warn is
// called so the gap surfaces as a progress message.
func ExtractResults(program core.Program, warn func(format string, args ...interface{})) ExtractedResults {
	results := ExtractedResults{
		Instructions: make(map[string]string),
	}

	for _, name := range core.SortedModuleNames(program.Modules) {
		module := program.Modules[name]
		if module == nil {
			warn("module %q is nil, skipping extraction", name)
			continue
		}

		signature := module.GetSignature()
		info := PredictorInfo{
			Name:        name,
			Type:        moduleTypeName(module),
			Instruction: signature.Instruction,
		}
		if signature.Instruction != "" {
			results.Instructions[name] = signature.Instruction
		}

		if provider, ok := module.(core.DemoProvider); ok {
			demos := provider.GetDemos()
			info.DemoCount = len(demos)

			limit := len(demos)
			if limit > maxReportedDemos {
				limit = maxReportedDemos
			}
			for _, demo := range demos[:limit] {
				results.Demos = append(results.Demos, DemoInfo{
					Predictor: name,
					Input:     core.StringField(demo.Inputs, "question"),
					Output:    core.StringField(demo.Outputs, "answer"),
				})
			}
		}

		results.Predictors = append(results.Predictors, info)
	}

	return results
}

func moduleTypeName(module core.Module) string {
	t := reflect.TypeOf(module)
	if t == nil {
		return "unknown"
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
