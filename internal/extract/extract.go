// Package extract turns uploaded document text into a structured template.
package extract

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"legaldraft/internal/domain"
)

// Extractor converts raw document text into a DocumentTemplate.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, documentText string) (*DocumentTemplate, error)
}

// Variable is one placeholder as described by the extractor.
type Variable struct {
	Key         string `json:"key" validate:"required,varkey"`
	Label       string `json:"label" validate:"required"`
	Description string `json:"description"`
	Example     string `json:"example,omitempty"`
	Required    bool   `json:"required"`
}

// DocumentTemplate is the structured extraction result.
type DocumentTemplate struct {
	Title          string     `json:"title" validate:"required"`
	Description    string     `json:"description"`
	SimilarityTags []string   `json:"similaritytags" validate:"dive,required"`
	Variables      []Variable `json:"variables" validate:"unique=Key,dive"`
	BodyMD         string     `json:"bodymd" validate:"required"`
}

var keyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var placeholderPattern = regexp.MustCompile(`\{\{([A-Za-z_][A-Za-z0-9_]*)\}\}`)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("varkey", func(fl validator.FieldLevel) bool {
			return keyPattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

// Validate checks the extraction result and reports every failing field.
func Validate(dt *DocumentTemplate) error {
	if dt == nil {
		return errors.New("empty extraction result")
	}
	err := getValidator().Struct(dt)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid template: %s", strings.Join(msgs, "; "))
}

// Normalize trims whitespace and drops empty or duplicate tags.
func Normalize(dt *DocumentTemplate) {
	dt.Title = strings.TrimSpace(dt.Title)
	dt.Description = strings.TrimSpace(dt.Description)
	seen := make(map[string]struct{}, len(dt.SimilarityTags))
	tags := dt.SimilarityTags[:0]
	for _, tag := range dt.SimilarityTags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[strings.ToLower(tag)]; ok {
			continue
		}
		seen[strings.ToLower(tag)] = struct{}{}
		tags = append(tags, tag)
	}
	dt.SimilarityTags = tags
	for i := range dt.Variables {
		v := &dt.Variables[i]
		v.Key = strings.TrimSpace(v.Key)
		v.Label = strings.TrimSpace(v.Label)
		v.Description = strings.TrimSpace(v.Description)
		v.Example = strings.TrimSpace(v.Example)
	}
}

// ToDomain maps a validated extraction result to an unsaved template.
func ToDomain(dt *DocumentTemplate, docType, jurisdiction string) *domain.Template {
	t := &domain.Template{
		Title:        dt.Title,
		Description:  dt.Description,
		DocType:      docType,
		Jurisdiction: jurisdiction,
		Tags:         append([]string(nil), dt.SimilarityTags...),
		Body:         dt.BodyMD,
		Variables:    make([]domain.Variable, len(dt.Variables)),
	}
	for i, v := range dt.Variables {
		t.Variables[i] = domain.Variable{
			Key:         v.Key,
			Label:       v.Label,
			Description: v.Description,
			Example:     v.Example,
			Required:    v.Required,
			Type:        "string",
		}
	}
	return t
}

// PlaceholderKeys returns the distinct {{key}} tokens of body in order of first use.
func PlaceholderKeys(body string) []string {
	var keys []string
	seen := map[string]struct{}{}
	for _, m := range placeholderPattern.FindAllStringSubmatch(body, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		keys = append(keys, m[1])
	}
	return keys
}

// UndeclaredPlaceholders lists body placeholders with no matching variable.
// Such tokens can never be filled and survive into every draft.
func UndeclaredPlaceholders(t *domain.Template) []string {
	declared := make(map[string]struct{}, len(t.Variables))
	for _, v := range t.Variables {
		declared[v.Key] = struct{}{}
	}
	var out []string
	for _, k := range PlaceholderKeys(t.Body) {
		if _, ok := declared[k]; !ok {
			out = append(out, k)
		}
	}
	return out
}
