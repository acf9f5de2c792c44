package outfmt

import (
	"fmt"
	"strings"

	"github.com/itchyny/gojq"
)

// NormalizeExpression undoes zsh history escaping, which turns != into \!=
// even inside single quotes.
func NormalizeExpression(expr string) string {
	return strings.ReplaceAll(expr, `\!`, `!`)
}

// Query runs a jq expression over v and returns every emitted value.
// v is round-tripped through JSON first so typed structs and json.Number
// reach gojq as plain maps, slices and float64s.
func Query(v any, expression string) ([]any, error) {
	query, err := gojq.Parse(NormalizeExpression(expression))
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var input any
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, err
	}

	var results []any
	iter := query.Run(input)
	for {
		out, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := out.(error); ok {
			return nil, fmt.Errorf("jq error: %w", err)
		}
		results = append(results, out)
	}
	return results, nil
}
