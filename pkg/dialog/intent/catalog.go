// Package intent holds the incentive intent catalog and the LLM-backed
// topic detector. Each intent declares which fields must be filled before
// the catalog can be queried and which columns feed the final answer.
package intent

// Intent is one entry of the catalog. RequiredFields are requirement
// expressions in the grammar syntax (alternatives split on "|",
// parenthesized comma groups are conjunctive pairs).
type Intent struct {
	Topic          string   `json:"topic"`
	RequiredFields []string `json:"required_fields"`
	FilterFields   []string `json:"filter_fields"`
	AnswerFields   []string `json:"answer_fields"`
}

const TopicUnknown = "unknown"

// Catalog is the full set of supported topics, in priority-document order.
var Catalog = []Intent{
	{
		Topic:          "recommend_engagement",
		RequiredFields: []string{"name | (workload,incentive_type)"},
		FilterFields:   []string{"name", "workload", "incentive_type"},
		AnswerFields:   []string{"name", "goal"},
	},
	{
		Topic:          "customer_qualification",
		RequiredFields: []string{"name | (workload,incentive_type)"},
		FilterFields:   []string{"name", "workload", "incentive_type"},
		AnswerFields:   []string{"customer_qualification"},
	},
	{
		Topic:          "partner_qualification",
		RequiredFields: []string{"name | (workload,incentive_type)"},
		FilterFields:   []string{"name", "workload", "incentive_type"},
		AnswerFields:   []string{"partner_qualification", "solution_partner_designation", "partner_specialization"},
	},
	{
		Topic:          "earning_amount",
		RequiredFields: []string{"name | (workload,incentive_type)"},
		FilterFields:   []string{"name", "workload", "incentive_type"},
		AnswerFields: []string{
			"incentive_market_a", "incentive_market_b",
			"maximum_incentive_earning", "enterprise_rate", "smec_rate",
		},
	},
	{
		Topic: "calc_presales_workshop_payout",
		RequiredFields: []string{
			"name | (workload,incentive_type)",
			"country",
			"acv",
			"hours",
		},
		FilterFields: []string{"name", "workload", "incentive_type"},
		AnswerFields: []string{
			"incentive_market_a", "incentive_market_b", "incentive_market_c",
			"maximum_incentive_earning",
			"workshop_rate_hourly_a", "workshop_rate_hourly_b", "workshop_rate_hourly_c",
		},
	},
	{
		Topic: "calc_presales_briefing_payout",
		RequiredFields: []string{
			"name | (workload,incentive_type)",
			"country",
		},
		FilterFields: []string{"name", "workload", "incentive_type"},
		AnswerFields: []string{"incentive_market_a", "incentive_market_b", "incentive_market_c"},
	},
	{
		Topic:          "activity_requirement",
		RequiredFields: []string{"name | (workload,incentive_type)"},
		FilterFields:   []string{"name", "workload", "incentive_type"},
		AnswerFields:   []string{"activity_requirement", "min_hours"},
	},
}

// ByTopic finds a catalog entry; ok is false for unknown topics.
func ByTopic(topic string) (Intent, bool) {
	for _, it := range Catalog {
		if it.Topic == topic {
			return it, true
		}
	}
	return Intent{}, false
}

// Topics returns the catalog topic names in declaration order.
func Topics() []string {
	out := make([]string, 0, len(Catalog))
	for _, it := range Catalog {
		out = append(out, it.Topic)
	}
	return out
}
