package validator

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	csvparser "github.com/CMSgov/hpt-validator-sub001/internal/parser/csv"
	jsonparser "github.com/CMSgov/hpt-validator-sub001/internal/parser/json"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const (
	schemaBaseURL   = "https://hpt-validator.local/schemas/"
	chargeInfoKey   = "standard_charge_information"
	chargeInfoDef   = "#/$defs/standard_charge_information"
	msgNotObject    = "The file must contain a single JSON object."
	msgNoChargeInfo = "At least one standard charge information item is required."
)

// jsonSchemas is the compiled pair used for one catalog version: the
// document shell and a single standard charge item.
type jsonSchemas struct {
	doc  *jsonschema.Schema
	item *jsonschema.Schema
}

var (
	schemaMu    sync.Mutex
	schemaCache = map[string]*jsonSchemas{}
)

func schemasFor(c catalogVersion) (*jsonSchemas, error) {
	schemaMu.Lock()
	defer schemaMu.Unlock()
	if s, ok := schemaCache[c.JSONSchema]; ok {
		return s, nil
	}

	f, err := schemaFS.Open("schemas/" + c.JSONSchema)
	if err != nil {
		return nil, fmt.Errorf("validator: open schema %s: %w", c.JSONSchema, err)
	}
	defer f.Close()

	url := schemaBaseURL + c.JSONSchema
	comp := jsonschema.NewCompiler()
	if err := comp.AddResource(url, f); err != nil {
		return nil, fmt.Errorf("validator: add schema %s: %w", c.JSONSchema, err)
	}
	doc, err := comp.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("validator: compile schema %s: %w", c.JSONSchema, err)
	}
	item, err := comp.Compile(url + chargeInfoDef)
	if err != nil {
		return nil, fmt.Errorf("validator: compile schema %s: %w", c.JSONSchema, err)
	}
	s := &jsonSchemas{doc: doc, item: item}
	schemaCache[c.JSONSchema] = s
	return s, nil
}

// ValidateJSON validates a JSON file read from r against version.
//
// The top-level object is walked without decoding it whole: every
// standard_charge_information element is validated on its own against the
// version's item schema, then the rest of the document is validated with
// that array emptied. MaxErrors and OnRow behave as for CSV; the row index
// reported to OnRow is the element index.
func ValidateJSON(ctx context.Context, r io.Reader, version string, opts Options) (Result, error) {
	c, ok := lookupCatalog(version)
	if !ok {
		return invalidVersion(version, "/version"), nil
	}
	schemas, err := schemasFor(c)
	if err != nil {
		return Result{}, err
	}

	b := newBudget(opts.MaxErrors)
	items := 0
	onItem := func(_ string, i int, elem any) error {
		items++
		base := "/" + chargeInfoKey + "/" + strconv.Itoa(i)
		errs := schemaViolations(schemas.item.Validate(elem), base)
		var alerts []Violation
		if b.alertsOpen {
			alerts = sentinelAlerts(c.Version, elem, base)
		}
		stop := b.addErrors(errs...)
		b.addAlerts(alerts...)
		if opts.OnRow != nil {
			opts.OnRow(RowEvent{Row: i, Value: elem, Errors: errs, Alerts: alerts})
		}
		if stop {
			return jsonparser.ErrStop
		}
		return nil
	}

	shell, stopped, err := jsonparser.StreamObject(ctx, csvparser.StripBOM(r), []string{chargeInfoKey}, onItem)
	if errors.Is(err, jsonparser.ErrNotObject) {
		b.addErrors(Violation{Path: "/", Message: msgNotObject, Column: -1})
		return b.final(), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("validator: %w", err)
	}
	if stopped {
		return b.final(), nil
	}

	if b.addErrors(schemaViolations(schemas.doc.Validate(map[string]any(shell)), "")...) {
		return b.final(), nil
	}
	if _, isArray := shell[chargeInfoKey].([]any); isArray && items == 0 {
		b.addErrors(Violation{Path: "/" + chargeInfoKey, Field: chargeInfoKey, Message: msgNoChargeInfo, Column: -1})
	}
	return b.final(), nil
}

// schemaViolations flattens a jsonschema validation error into one
// violation per leaf cause. Paths are JSON pointers prefixed with base.
func schemaViolations(err error, base string) []Violation {
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []Violation{{Path: base, Message: err.Error(), Column: -1}}
	}
	var out []Violation
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) > 0 {
			for _, c := range e.Causes {
				walk(c)
			}
			return
		}
		path := base + e.InstanceLocation
		if path == "" {
			path = "/"
		}
		out = append(out, Violation{
			Path:    path,
			Field:   lastPointerToken(e.InstanceLocation),
			Message: e.Message,
			Column:  -1,
		})
	}
	walk(ve)
	return out
}

func lastPointerToken(ptr string) string {
	i := strings.LastIndexByte(ptr, '/')
	if i < 0 {
		return ""
	}
	tok := ptr[i+1:]
	if _, err := strconv.Atoi(tok); err == nil {
		// Array index; report the enclosing member instead.
		return lastPointerToken(ptr[:i])
	}
	return strings.NewReplacer("~1", "/", "~0", "~").Replace(tok)
}

// sentinelAlerts looks for placeholder amounts in the payer information of
// one standard charge item.
func sentinelAlerts(version string, elem any, base string) []Violation {
	field := ""
	switch {
	case Between(V220, V300).Contains(version):
		field = "estimated_amount"
	case Since(V300).Contains(version):
		field = "median_amount"
	default:
		return nil
	}

	item, _ := elem.(map[string]any)
	charges, _ := item["standard_charges"].([]any)
	var out []Violation
	for i, sc := range charges {
		scm, _ := sc.(map[string]any)
		payers, _ := scm["payers_information"].([]any)
		for j, p := range payers {
			pm, _ := p.(map[string]any)
			raw := fmt.Sprint(pm[field])
			if pm[field] == nil || !isSentinel(raw) {
				continue
			}
			out = append(out, Violation{
				Path:    fmt.Sprintf("%s/standard_charges/%d/payers_information/%d/%s", base, i, j, field),
				Field:   field,
				Message: msgSentinel(field, raw),
				Warning: true,
				Column:  -1,
			})
		}
	}
	return out
}

func isSentinel(s string) bool {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return false
	}
	want, _ := strconv.ParseFloat(sentinelAmount, 64)
	return f == want
}
