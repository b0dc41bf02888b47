package diabicus

import (
	"encoding/json"
	"fmt"
	"math"
)

// ============================================================
// JSON tool interface
// ============================================================

type ToolRequest struct {
	Tool   string         `json:"tool"`
	Params map[string]any `json:"params"`
}

type ToolResponse struct {
	Result any    `json:"result,omitempty"`
	String string `json:"string,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ToolHandler answers tool calls with one evaluator and formatter.
type ToolHandler struct {
	eval   *Evaluator
	format Formatter
}

// NewToolHandler returns a handler; a nil evaluator selects the default
// one.
func NewToolHandler(e *Evaluator, f Formatter) *ToolHandler {
	if e == nil {
		e = NewEvaluator()
	}
	if f.Digits <= 0 {
		f = NewFormatter(DefaultDisplayDigits)
	}
	return &ToolHandler{eval: e, format: f}
}

var defaultTools = NewToolHandler(nil, Formatter{})

// HandleToolCall answers req with the default evaluator.
func HandleToolCall(req ToolRequest) ToolResponse { return defaultTools.Handle(req) }

func (h *ToolHandler) Handle(req ToolRequest) ToolResponse {
	getString := func(key string) (string, error) {
		v, ok := req.Params[key]
		if !ok {
			return "", fmt.Errorf("missing param: %s", key)
		}
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("param %s must be a string", key)
		}
		return s, nil
	}
	// getValue accepts a JSON number or a calculator expression.
	getValue := func(key string, ans Value) (Value, error) {
		v, ok := req.Params[key]
		if !ok {
			return Value{}, fmt.Errorf("missing param: %s", key)
		}
		switch v := v.(type) {
		case float64:
			return realToValue(v), nil
		case string:
			return h.eval.Compute(v, ans)
		}
		return Value{}, fmt.Errorf("param %s must be a number or expression", key)
	}
	getInt := func(key string) (int64, error) {
		v, err := getValue(key, Int(0))
		if err != nil {
			return 0, err
		}
		n, ok := intResult(v)
		if !ok {
			return 0, fmt.Errorf("param %s must be an integer", key)
		}
		return n, nil
	}
	respond := func(v Value, err error) ToolResponse {
		if err != nil {
			if ce, ok := err.(*ComputationError); ok {
				v = Failed(ce)
			} else {
				return ToolResponse{Error: err.Error()}
			}
		}
		resp := ToolResponse{Result: v.String(), String: h.format.Format(v), Kind: v.Kind().String()}
		if v.IsError() {
			resp.Error = v.Err().Msg
		}
		return resp
	}

	switch req.Tool {
	case "calculate":
		expr, err := getString("expr")
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		ans := Int(0)
		if _, ok := req.Params["ans"]; ok {
			if ans, err = getValue("ans", Int(0)); err != nil {
				return ToolResponse{Error: err.Error()}
			}
		}
		return respond(h.eval.Compute(expr, ans))
	case "normalize":
		expr, err := getString("expr")
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		s := Normalize(expr, h.eval.Names())
		return ToolResponse{Result: s, String: s}
	case "format":
		v, err := getValue("value", Int(0))
		if err != nil {
			return respond(v, err)
		}
		f := h.format
		if d, ok := req.Params["digits"].(float64); ok {
			f = NewFormatter(int(d))
		}
		return ToolResponse{Result: v.String(), String: f.Format(v), Kind: v.Kind().String()}
	case "is_prime":
		v, err := getValue("n", Int(0))
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		t := IsPrime(v)
		return ToolResponse{Result: t.String(), String: t.String()}
	case "factorize":
		n, err := getInt("n")
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		if math.Abs(float64(n)) > maxFactorable {
			return ToolResponse{Error: fmt.Sprintf("%d is too large to factor", n)}
		}
		form := FactorsProper
		if s, ok := req.Params["form"].(string); ok {
			form = FactorForm(s)
		}
		switch form {
		case FactorsProper, FactorsAll, FactorsPrime:
		default:
			return ToolResponse{Error: fmt.Sprintf("unknown form %q", form)}
		}
		fs := Factors(n, form)
		return ToolResponse{Result: fs, String: fmt.Sprint(fs)}
	case "ordinal":
		n, err := getInt("n")
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		s := Ordinal(n)
		return ToolResponse{Result: s, String: s}
	case "tool_spec":
		return ToolResponse{Result: json.RawMessage(ToolSpec()), String: "ok"}
	}
	return ToolResponse{Error: fmt.Sprintf("%v: %q", ErrUnknownTool, req.Tool)}
}

// ToolSpec returns the JSON schema of every tool, for agent registration.
func ToolSpec() string {
	tools := []map[string]any{
		ts("calculate", "Evaluate calculator input. Optional ans (number or expression) binds Ans", []string{"expr"}, map[string]string{"expr": "string", "ans": "string"}),
		ts("normalize", "Rewrite calculator input into a strict expression", []string{"expr"}, map[string]string{"expr": "string"}),
		ts("format", "Render a value for the calculator display. Optional digits", []string{"value"}, map[string]string{"value": "string", "digits": "integer"}),
		ts("is_prime", "Primality from the prime table: yes, no or unknown", []string{"n"}, map[string]string{"n": "number"}),
		ts("factorize", "Factors of n. form is proper (default), all or prime", []string{"n"}, map[string]string{"n": "integer", "form": "string"}),
		ts("ordinal", "English ordinal of n", []string{"n"}, map[string]string{"n": "integer"}),
		ts("tool_spec", "Return this tool schema", []string{}, map[string]string{}),
	}
	spec := map[string]any{"tools": tools}
	b, _ := json.MarshalIndent(spec, "", "  ")
	return string(b)
}

func ts(name, description string, required []string, props map[string]string) map[string]any {
	properties := map[string]any{}
	for k, typ := range props {
		properties[k] = map[string]any{"type": typ}
	}
	return map[string]any{
		"name":        name,
		"description": description,
		"inputSchema": map[string]any{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}
