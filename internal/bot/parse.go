package bot

import (
	"fmt"
	"strings"

	"eventfeed/internal/filter"
	"eventfeed/internal/model"
)

// Criterion names a filter dimension a command can set.
type Criterion string

// Criteria settable from chat.
const (
	CriterionRegion   Criterion = "region"
	CriterionCategory Criterion = "category"
	CriterionType     Criterion = "type"
	CriterionPayment  Criterion = "payment"
	CriterionDocument Criterion = "document"
)

// Options returns the accepted values of the criterion, excluding "all".
func (c Criterion) Options() []string {
	switch c {
	case CriterionRegion:
		return model.Regions
	case CriterionCategory:
		var names []string
		for _, parent := range filter.ParentCategories() {
			names = append(names, parent)
			names = append(names, filter.Hierarchy[parent]...)
		}
		return names
	case CriterionType:
		names := make([]string, len(model.EventTypes))
		for i, t := range model.EventTypes {
			names[i] = string(t)
		}
		return names
	case CriterionPayment:
		return []string{string(model.PaymentFree), string(model.PaymentPaid), string(model.PaymentStateSupported)}
	case CriterionDocument:
		return []string{string(model.DocumentNone), string(model.DocumentCertificate), string(model.DocumentParticipationProof)}
	}
	return nil
}

// ParseCriterionValue validates a value for the criterion and returns it in
// canonical spelling. "all" clears the criterion.
func ParseCriterionValue(c Criterion, value string) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", fmt.Errorf("usage: /%s <value>|all", c)
	}
	if model.IsAll(v) {
		return model.All, nil
	}
	options := c.Options()
	if options == nil {
		return "", fmt.Errorf("unknown filter %q", c)
	}
	for _, o := range options {
		if strings.EqualFold(o, v) {
			return o, nil
		}
	}
	return "", fmt.Errorf("unknown %s %q, use /%s all or one of: %s", c, v, c, strings.Join(options, ", "))
}

// Apply sets the criterion on fc.
func (c Criterion) Apply(fc *model.FilterCriteria, value string) {
	switch c {
	case CriterionRegion:
		fc.Region = value
	case CriterionCategory:
		fc.Category = value
	case CriterionType:
		fc.Type = value
	case CriterionPayment:
		fc.Payment = value
	case CriterionDocument:
		fc.Document = value
	}
}

// ParseSortArg parses the argument of /sort.
func ParseSortArg(args string) (model.SortMode, error) {
	mode, ok := model.ParseSortMode(args)
	if !ok || strings.TrimSpace(args) == "" {
		return "", fmt.Errorf("usage: /sort none|date_asc|date_desc|recent")
	}
	return mode, nil
}

// ParseOrganiserArg extracts an organiser id from command arguments.
func ParseOrganiserArg(args string) (string, error) {
	parts := strings.Fields(args)
	if len(parts) == 0 {
		return "", fmt.Errorf("organiser ID is required")
	}
	return parts[0], nil
}
