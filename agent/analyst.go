package agent

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/etnz/forecast"
	"github.com/etnz/forecast/renderer"
)

const model = "gemini-2.5-pro"

// newFacilitator creates the expert in charge of the conversation, with the
// other experts exposed as its tools.
func newFacilitator(experts ...*Expert) *Expert {
	return &Expert{
		Name:      "Facilitator",
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(experts)},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
			As a facilitator you are in charge of the conversation and solving the user's request.

			The user runs an organization and wants to understand its financial trajectory:
			cash flow forecasts, key metrics, runway, and equity ownership.

			Learn about the experts' skills from the Tools and ask them questions. They are at
			your service and keep context of your previous questions. Devise a plan of questions
			and come up with the best response to the user's request.
		`}}},
		},
		Library: NewLibrary(experts),
	}
}

// NewAnalyst creates the expert in charge of the organization's forecast.
// Its tools run the engine over the given store.
func NewAnalyst(engine *forecast.Engine, startingCash forecast.Money, entities []forecast.Entity) *Expert {
	lib := []Function{
		forecastTool(engine),
		kpiTool(engine, startingCash),
		capTableTool(entities),
	}
	return &Expert{
		Name: "Analyst",
		Description: `This is the financial analyst. He is in charge of the organization's
		cash-flow forecast, its key performance indicators, and its capitalization table.
		Ask the Analyst anything about projected revenue, expenses, runway, or ownership.`,
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(lib)},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
			You are a financial analyst in charge of the organization's forecast.
			You know how to use the Tools to compute the monthly cash-flow table,
			the KPI set (burn rate, runway, growth), and the cap table ownership summary.
			Answer with concrete figures from the tools, never from memory.
		`}}},
		},
		Library: NewLibrary(lib),
	}
}

// NewResearcher creates a search-grounded expert for market context.
func NewResearcher() *Expert {
	return &Expert{
		Name: "Researcher",
		Description: `This is a market researcher, aware of funding climates, grant programs
		and benchmark figures. Ask the Researcher whenever you need recent or grounding information.`,
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{GoogleSearch: &genai.GoogleSearch{}},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
			You are a researcher. You leverage Google Search to ground your assertions about
			funding markets, grant programs, salary benchmarks and industry burn rates.
		`}}},
		},
	}
}

func errResponse(id, name string, err error) *genai.FunctionResponse {
	return &genai.FunctionResponse{
		ID:   id,
		Name: name,
		Response: map[string]any{
			"error": err.Error(),
		},
	}
}

func okResponse(id, name, output string) *genai.FunctionResponse {
	return &genai.FunctionResponse{
		ID:   id,
		Name: name,
		Response: map[string]any{
			"output": output,
		},
	}
}

// parseRange extracts the "from" and "to" arguments, defaulting to the next
// twelve months.
func parseRange(args map[string]any) (from, to forecast.Date, err error) {
	from = forecast.Today().StartOfMonth()
	to = from.AddMonth(11).EndOfMonth()
	if s, ok := args["from"].(string); ok && s != "" {
		if from, err = forecast.ParseDate(s); err != nil {
			return from, to, fmt.Errorf("argument 'from': %w", err)
		}
	}
	if s, ok := args["to"].(string); ok && s != "" {
		if to, err = forecast.ParseDate(s); err != nil {
			return from, to, fmt.Errorf("argument 'to': %w", err)
		}
	}
	return from, to, nil
}

var rangeProperties = map[string]*genai.Schema{
	"from": {
		Type:        genai.TypeString,
		Description: "First month of the range, YYYY-MM-DD. Defaults to the current month.",
	},
	"to": {
		Type:        genai.TypeString,
		Description: "Last month of the range, YYYY-MM-DD. Defaults to twelve months from now.",
	},
}

func forecastTool(engine *forecast.Engine) *Func {
	return &Func{
		Decl: &genai.FunctionDeclaration{
			Name: "Forecast",
			Description: `Forecast computes the monthly cash-flow table over a date range:
			revenue, expenses, net cash flow and running cash balance, with per-category breakdowns.`,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: rangeProperties,
			},
			Response: &genai.Schema{
				Type:        genai.TypeString,
				Description: "A markdown-formatted monthly cash-flow table with category totals.",
			},
		},
		Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
			from, to, err := parseRange(args)
			if err != nil {
				return errResponse(id, "Forecast", err)
			}
			rows, err := engine.CalculatePeriod(ctx, from, to)
			if err != nil {
				return errResponse(id, "Forecast", err)
			}
			return okResponse(id, "Forecast", renderer.ForecastMarkdown(rows, ""))
		},
	}
}

func kpiTool(engine *forecast.Engine, startingCash forecast.Money) *Func {
	return &Func{
		Decl: &genai.FunctionDeclaration{
			Name: "KPIs",
			Description: `KPIs computes the key performance indicators of the forecast over a
			date range: burn rate, runway in months, growth rates, cost structure ratios, and
			threshold alerts.`,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: rangeProperties,
			},
			Response: &genai.Schema{
				Type:        genai.TypeString,
				Description: "A markdown-formatted KPI table with any alerts.",
			},
		},
		Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
			from, to, err := parseRange(args)
			if err != nil {
				return errResponse(id, "KPIs", err)
			}
			rows, err := engine.CalculatePeriod(ctx, from, to)
			if err != nil {
				return errResponse(id, "KPIs", err)
			}
			k := forecast.CalculateAllKPIs(rows, startingCash)
			return okResponse(id, "KPIs", renderer.KPIMarkdown(k, forecast.KPIAlerts(k)))
		},
	}
}

func capTableTool(entities []forecast.Entity) *Func {
	return &Func{
		Decl: &genai.FunctionDeclaration{
			Name: "CapTable",
			Description: `CapTable summarizes the capitalization table: shares outstanding,
			fully diluted shares, per-shareholder ownership, voting control and board control.`,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: map[string]*genai.Schema{},
			},
			Response: &genai.Schema{
				Type:        genai.TypeString,
				Description: "A markdown-formatted ownership summary.",
			},
		},
		Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
			ct := forecast.NewCapTable(entities)
			if missing := ct.Validate(); len(missing) > 0 {
				return errResponse(id, "CapTable", fmt.Errorf("inconsistent cap table: %v", missing))
			}
			return okResponse(id, "CapTable", renderer.CapTableMarkdown(ct.Summarize()))
		},
	}
}
