// Package rules evaluates serialized AND/OR rule trees against customer
// records to decide segment membership.
package rules

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/kkkkikiki/crm/internal/model"
)

// neverActiveDays is the inactiveDays value used for customers that have
// never been active, so any "inactive for at least N days" condition
// below this threshold matches them.
const neverActiveDays = 999999

// node is one element of the rule tree: either a group combining
// children under AND/OR, or a leaf condition comparing a customer field
// against a numeric value.
type node struct {
	Type     string            `json:"type"`
	Op       string            `json:"op"`
	Children []json.RawMessage `json:"children"`
	Field    string            `json:"field"`
	Operator string            `json:"operator"`
	Value    float64           `json:"value"`
}

// Evaluate reports whether the customer matches the rule tree in
// ruleJSON. An empty or blank ruleJSON matches every customer; a
// malformed one matches none (fail closed). The current time is passed
// explicitly because inactiveDays conditions depend on it.
func Evaluate(c model.Customer, ruleJSON string, now time.Time) bool {
	if strings.TrimSpace(ruleJSON) == "" {
		return true
	}
	return evalNode(c, json.RawMessage(ruleJSON), now)
}

func evalNode(c model.Customer, data json.RawMessage, now time.Time) bool {
	var n node
	if err := json.Unmarshal(data, &n); err != nil {
		return false
	}

	if strings.EqualFold(n.Type, "group") {
		op := n.Op
		if op == "" {
			op = "AND"
		}
		and := strings.EqualFold(op, "AND")

		// Fold over every child; AND starts from its identity true,
		// everything else folds as OR from false. No short-circuit:
		// children are pure, so each one is evaluated.
		result := and
		for _, child := range n.Children {
			childRes := evalNode(c, child, now)
			if and {
				result = result && childRes
			} else {
				result = result || childRes
			}
		}
		return result
	}

	return evalCondition(c, n, now)
}

func evalCondition(c model.Customer, n node, now time.Time) bool {
	var current float64
	switch n.Field {
	case "totalSpend":
		current = c.TotalSpend
	case "totalVisits":
		current = float64(c.TotalVisits)
	case "inactiveDays":
		if c.LastActiveAt == nil {
			current = neverActiveDays
		} else {
			current = float64(int64(now.Sub(*c.LastActiveAt) / (24 * time.Hour)))
		}
	default:
		current = 0.0
	}

	switch n.Operator {
	case ">":
		return current > n.Value
	case ">=":
		return current >= n.Value
	case "<":
		return current < n.Value
	case "<=":
		return current <= n.Value
	case "==":
		return current == n.Value
	case "!=":
		return current != n.Value
	default:
		return false
	}
}
