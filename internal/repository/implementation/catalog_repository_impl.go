package implementation

import (
	"context"
	"fmt"
	"strings"

	"incentive-agent-be/internal/entity"
	"incentive-agent-be/internal/repository/contract"

	"gorm.io/gorm"
)

// allowedFilterColumns are the only fields that may appear in a WHERE
// clause; everything else in the resolved set is reported as skipped.
var allowedFilterColumns = map[string]string{
	"name":           "name",
	"workload":       "workload",
	"incentive_type": "incentive_type",
}

var safeOrderColumns = map[string]bool{
	"name": true, "workload": true, "incentive_type": true,
}

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) contract.ICatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) Filter(ctx context.Context, fields map[string][]string, limit, offset int) (contract.FilterResult, error) {
	if limit <= 0 {
		limit = 25
	}

	result := contract.FilterResult{
		Applied: map[string][]string{},
	}

	q := r.db.WithContext(ctx).Table(entity.Engagement{}.TableName())

	for field, col := range allowedFilterColumns {
		vals := cleanValues(fields[field])
		if len(vals) == 0 {
			continue
		}

		if field == "workload" {
			// case-insensitive substring, OR across provided values
			clauses := make([]string, len(vals))
			args := make([]any, len(vals))
			for i, v := range vals {
				clauses[i] = col + " ILIKE ?"
				args[i] = "%" + v + "%"
			}
			q = q.Where("("+strings.Join(clauses, " OR ")+")", args...)
		} else {
			// case-insensitive exact equality
			lowered := make([]string, len(vals))
			for i, v := range vals {
				lowered[i] = strings.ToLower(v)
			}
			q = q.Where(fmt.Sprintf("LOWER(%s) IN ?", col), lowered)
		}

		result.Applied[field] = vals
	}

	for field := range fields {
		if _, ok := allowedFilterColumns[field]; !ok {
			result.Skipped = append(result.Skipped, field)
		}
	}

	var rows []map[string]any
	if err := q.Order("name").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return contract.FilterResult{}, fmt.Errorf("filter incentives: %w", err)
	}

	result.Rows = rows
	result.Count = len(rows)
	return result, nil
}

func (r *catalogRepository) DistinctNames(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Model(&entity.Engagement{}).
		Distinct("name").
		Where("name <> ''").
		Order("name").
		Pluck("name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("distinct names: %w", err)
	}
	return names, nil
}

func (r *catalogRepository) DistinctWorkloads(ctx context.Context) ([]string, error) {
	var workloads []string
	err := r.db.WithContext(ctx).
		Model(&entity.Engagement{}).
		Distinct("workload").
		Where("workload <> ''").
		Order("workload").
		Pluck("workload", &workloads).Error
	if err != nil {
		return nil, fmt.Errorf("distinct workloads: %w", err)
	}
	return workloads, nil
}

func (r *catalogRepository) SynonymsByKind(ctx context.Context, kind string) (map[string][]string, error) {
	var rows []entity.Synonym
	err := r.db.WithContext(ctx).
		Where("kind = ?", kind).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("synonyms by kind %s: %w", kind, err)
	}

	out := map[string][]string{}
	for _, row := range rows {
		if row.Canonical == "" || row.Phrase == "" {
			continue
		}
		out[row.Canonical] = append(out[row.Canonical], row.Phrase)
	}
	return out, nil
}

func cleanValues(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}
