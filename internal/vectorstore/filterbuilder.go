// Package vectorstore provides vector storage implementations.
package vectorstore

import (
	"github.com/qdrant/go-client/qdrant"
)

// InValues marks a filter value as a set-membership condition: the payload
// field must equal one of the given values.
type InValues []interface{}

// RangeValue marks a filter value as a numeric range condition. Either bound
// may be nil to leave that side unconstrained.
type RangeValue struct {
	Gte *float64
	Lte *float64
}

// Gte builds a RangeValue with only a lower bound.
func Gte(v float64) RangeValue {
	return RangeValue{Gte: &v}
}

// Lte builds a RangeValue with only an upper bound.
func Lte(v float64) RangeValue {
	return RangeValue{Lte: &v}
}

// Range builds a RangeValue bounded on both sides.
func Range(gte, lte float64) RangeValue {
	return RangeValue{Gte: &gte, Lte: &lte}
}

// FilterBuilder provides a fluent interface for building query filters.
//
// Supported value kinds per key:
//   - scalar (string, int, int64, float64, bool): exact match
//   - InValues: match any of the given values
//   - RangeValue: numeric range match
type FilterBuilder struct {
	filters map[string]interface{}
}

// NewFilterBuilder creates a new FilterBuilder.
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{
		filters: make(map[string]interface{}),
	}
}

// With adds an exact-match condition.
func (b *FilterBuilder) With(key string, value interface{}) *FilterBuilder {
	b.filters[key] = value
	return b
}

// WithIn adds a set-membership condition.
func (b *FilterBuilder) WithIn(key string, values ...interface{}) *FilterBuilder {
	b.filters[key] = InValues(values)
	return b
}

// WithRange adds a numeric range condition.
func (b *FilterBuilder) WithRange(key string, r RangeValue) *FilterBuilder {
	b.filters[key] = r
	return b
}

// WithMap merges an existing filter map.
func (b *FilterBuilder) WithMap(m map[string]interface{}) *FilterBuilder {
	for k, v := range m {
		b.filters[k] = v
	}
	return b
}

// Build returns the constructed filter map, or nil if empty.
func (b *FilterBuilder) Build() map[string]interface{} {
	if len(b.filters) == 0 {
		return nil
	}
	return b.filters
}

// MetadataBuilder provides a fluent interface for building document metadata.
type MetadataBuilder struct {
	metadata map[string]interface{}
}

// NewMetadataBuilder creates a new MetadataBuilder.
func NewMetadataBuilder() *MetadataBuilder {
	return &MetadataBuilder{
		metadata: make(map[string]interface{}),
	}
}

// With adds a key-value pair to the metadata.
func (b *MetadataBuilder) With(key string, value interface{}) *MetadataBuilder {
	b.metadata[key] = value
	return b
}

// WithMap merges an existing metadata map.
func (b *MetadataBuilder) WithMap(m map[string]interface{}) *MetadataBuilder {
	for k, v := range m {
		b.metadata[k] = v
	}
	return b
}

// Build returns the constructed metadata map, or nil if empty.
func (b *MetadataBuilder) Build() map[string]interface{} {
	if len(b.metadata) == 0 {
		return nil
	}
	return b.metadata
}

// BuildFilter translates a generic filter map into a Qdrant wire filter.
// Every entry becomes a Must condition (logical AND); nil or empty input
// returns nil, meaning "no filter" to the Qdrant client.
func BuildFilter(filters map[string]interface{}) *qdrant.Filter {
	if len(filters) == 0 {
		return nil
	}

	conditions := make([]*qdrant.Condition, 0, len(filters))
	for key, value := range filters {
		switch v := value.(type) {
		case InValues:
			conditions = append(conditions, inCondition(key, v))
		case RangeValue:
			conditions = append(conditions, rangeCondition(key, v))
		default:
			conditions = append(conditions, eqCondition(key, value))
		}
	}

	return &qdrant.Filter{Must: conditions}
}

func eqCondition(key string, value interface{}) *qdrant.Condition {
	var match *qdrant.Match
	switch val := value.(type) {
	case string:
		match = &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: val}}
	case int:
		match = &qdrant.Match{MatchValue: &qdrant.Match_Integer{Integer: int64(val)}}
	case int64:
		match = &qdrant.Match{MatchValue: &qdrant.Match_Integer{Integer: val}}
	case bool:
		match = &qdrant.Match{MatchValue: &qdrant.Match_Boolean{Boolean: val}}
	case float64:
		// Qdrant payload match has no float equality; route through range.
		return rangeCondition(key, RangeValue{Gte: &val, Lte: &val})
	default:
		match = &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: ""}}
	}

	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{Key: key, Match: match},
		},
	}
}

func inCondition(key string, values InValues) *qdrant.Condition {
	keywords := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			keywords = append(keywords, s)
		}
	}

	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key: key,
				Match: &qdrant.Match{
					MatchValue: &qdrant.Match_Keywords{
						Keywords: &qdrant.RepeatedStrings{Strings: keywords},
					},
				},
			},
		},
	}
}

func rangeCondition(key string, r RangeValue) *qdrant.Condition {
	rng := &qdrant.Range{}
	if r.Gte != nil {
		rng.Gte = r.Gte
	}
	if r.Lte != nil {
		rng.Lte = r.Lte
	}

	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{Key: key, Range: rng},
		},
	}
}
