package relevance

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/docintel/constants"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// Required-element tags.
const (
	TagAmount        = "amount"
	TagDate          = "date"
	TagVendor        = "vendor_or_merchant"
	TagContactInfo   = "contact_info"
	TagAddress       = "address"
	TagInvoiceNumber = "invoice_number"
	TagLegalTerms    = "legal_terms"
	TagSignature     = "signature"
	TagBusinessName  = "business_name"
)

// Forbidden-element tags.
const (
	TagPersonalPhoto   = "personal_photo"
	TagSocialMedia     = "social_media"
	TagPersonalContent = "personal_content"
)

var (
	requiredTags  = []string{TagAmount, TagDate, TagVendor, TagContactInfo, TagAddress, TagInvoiceNumber, TagLegalTerms, TagSignature, TagBusinessName}
	forbiddenTags = []string{TagPersonalPhoto, TagSocialMedia, TagPersonalContent}
)

// ContextRule is one row of the context requirement table.
type ContextRule struct {
	Context            constants.UploadContext `yaml:"context"`
	Required           []string                `yaml:"required"`
	Forbidden          []string                `yaml:"forbidden"`
	MinBusinessScore   float64                 `yaml:"min_business_score"`
	PreferredMimeTypes []string                `yaml:"preferred_mime_types"`
	Suggestion         string                  `yaml:"suggestion"`
}

type Keywords struct {
	Business    []string `yaml:"business"`
	Personal    []string `yaml:"personal"`
	Legal       []string `yaml:"legal"`
	SocialMedia []string `yaml:"social_media"`
	// Recurring marks periodic bills for the duplicate detector's temporal stage.
	Recurring []string `yaml:"recurring"`
}

type rulesFile struct {
	Version  int           `yaml:"version"`
	Contexts []ContextRule `yaml:"contexts"`
	Keywords Keywords      `yaml:"keywords"`
}

// RuleSet is immutable once loaded and shared by every Score call.
type RuleSet struct {
	contexts map[constants.UploadContext]ContextRule
	keywords Keywords
}

// DefaultRules parses the embedded table.
func DefaultRules() (*RuleSet, error) {
	return ParseRules(defaultRulesYAML)
}

// MustDefaultRules panics if the embedded table is invalid.
func MustDefaultRules() *RuleSet {
	rs, err := DefaultRules()
	if err != nil {
		panic(err)
	}
	return rs
}

// LoadRules reads a rule table from path, or the embedded one when path is empty.
func LoadRules(path string) (*RuleSet, error) {
	if path == "" {
		return DefaultRules()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return ParseRules(b)
}

// ParseRules validates data against the rules schema before decoding it.
func ParseRules(data []byte) (*RuleSet, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse rules yaml: %w", err)
	}
	asJSON, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("convert rules: %w", err)
	}
	if err := validateAgainstSchema(buildRulesJSONSchema(), asJSON); err != nil {
		return nil, err
	}

	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	rs := &RuleSet{
		contexts: make(map[constants.UploadContext]ContextRule, len(f.Contexts)),
		keywords: f.Keywords,
	}
	for _, c := range f.Contexts {
		if _, dup := rs.contexts[c.Context]; dup {
			return nil, fmt.Errorf("duplicate context %q", c.Context)
		}
		rs.contexts[c.Context] = c
	}
	if _, ok := rs.contexts[constants.GenericBusiness]; !ok {
		return nil, fmt.Errorf("rules must define %q", constants.GenericBusiness)
	}
	return rs, nil
}

// For returns the rule for ctx, falling back to generic_business.
func (r *RuleSet) For(ctx constants.UploadContext) ContextRule {
	if c, ok := r.contexts[ctx]; ok {
		return c
	}
	return r.contexts[constants.GenericBusiness]
}

func (r *RuleSet) Keywords() Keywords { return r.keywords }

// Contexts lists the configured contexts in name order.
func (r *RuleSet) Contexts() []constants.UploadContext {
	out := make([]constants.UploadContext, 0, len(r.contexts))
	for c := range r.contexts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func buildRulesJSONSchema() map[string]any {
	stringList := func(enum []string) map[string]any {
		items := map[string]any{"type": "string", "minLength": 1}
		if enum != nil {
			items["enum"] = enum
		}
		return map[string]any{"type": "array", "items": items, "uniqueItems": true}
	}
	contextRule := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"context", "min_business_score", "preferred_mime_types"},
		"properties": map[string]any{
			"context":              map[string]any{"type": "string", "enum": constants.ContextsAsStringSlice()},
			"required":             stringList(requiredTags),
			"forbidden":            stringList(forbiddenTags),
			"min_business_score":   map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
			"preferred_mime_types": stringList(nil),
			"suggestion":           map[string]any{"type": "string"},
		},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"version", "contexts", "keywords"},
		"properties": map[string]any{
			"version":  map[string]any{"type": "integer", "const": 1},
			"contexts": map[string]any{"type": "array", "minItems": 1, "items": contextRule},
			"keywords": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []string{"business", "personal"},
				"properties": map[string]any{
					"business":     stringList(nil),
					"personal":     stringList(nil),
					"legal":        stringList(nil),
					"social_media": stringList(nil),
					"recurring":    stringList(nil),
				},
			},
		},
	}
}

func validateAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("rules.schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("rules.schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal rules: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("rules do not match schema: %w", err)
	}
	return nil
}
