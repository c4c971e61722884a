package drafting

import (
	"context"
	"errors"
	"fmt"

	"legaldraft/internal/domain"
	"legaldraft/internal/store"
)

// Status is the terminal state of one drafting request.
type Status int

const (
	StatusNotFound Status = iota
	StatusAwaitingInput
	StatusComplete
)

func (s Status) String() string {
	switch s {
	case StatusAwaitingInput:
		return "in_progress"
	case StatusComplete:
		return "complete"
	default:
		return "not_found"
	}
}

// ErrIndexUnavailable marks failures of the similarity index or its embedder
// while matching. Store failures are returned unmarked.
var ErrIndexUnavailable = errors.New("similarity index unavailable")

// TemplateGetter resolves a template id against the authoritative store.
type TemplateGetter interface {
	Get(ctx context.Context, id int64) (*domain.Template, error)
}

// Index is the similarity index as used by the controller: queried by the
// matcher and updated after ingestion.
type Index interface {
	Searcher
	Upsert(ctx context.Context, e domain.IndexEntry) error
}

// Request is one drafting turn. A non-zero TemplateID skips matching.
type Request struct {
	Query      string
	Context    map[string]any
	TemplateID int64
}

// Outcome is the result of one drafting turn.
type Outcome struct {
	Status    Status
	Template  *domain.Template
	Missing   []domain.Variable
	Questions []string
	Draft     string
}

// TemplateID returns the matched template id, or 0 when nothing matched.
func (o Outcome) TemplateID() int64 {
	if o.Template == nil {
		return 0
	}
	return o.Template.ID
}

// Options tune the controller.
type Options struct {
	// RequiredOnly asks only for variables flagged as required.
	RequiredOnly bool
}

// Controller runs the per-request drafting state machine. It keeps no state
// between calls; callers accumulate context across turns.
type Controller struct {
	templates TemplateGetter
	index     Index
	matcher   *Matcher
	opts      Options
}

func NewController(templates TemplateGetter, ix Index, opts Options) *Controller {
	return &Controller{
		templates: templates,
		index:     ix,
		matcher:   NewMatcher(ix),
		opts:      opts,
	}
}

// MatchAndResolve matches a template, then either asks for the missing
// variables or renders the draft. Store and index failures are returned as errors.
func (c *Controller) MatchAndResolve(ctx context.Context, req Request) (Outcome, error) {
	id := req.TemplateID
	if id == 0 {
		best, ok, err := c.matcher.FindBest(ctx, req.Query)
		if err != nil {
			return Outcome{}, fmt.Errorf("match template: %w: %w", ErrIndexUnavailable, err)
		}
		if !ok {
			return Outcome{Status: StatusNotFound}, nil
		}
		id = best
	}

	t, err := c.templates.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Outcome{Status: StatusNotFound}, nil
		}
		return Outcome{}, fmt.Errorf("load template %d: %w", id, err)
	}

	var missing []domain.Variable
	if c.opts.RequiredOnly {
		missing = MissingRequired(t.Variables, req.Context)
	} else {
		missing = Missing(t.Variables, req.Context)
	}
	if len(missing) > 0 {
		return Outcome{
			Status:    StatusAwaitingInput,
			Template:  t,
			Missing:   missing,
			Questions: Questions(missing),
		}, nil
	}
	return Outcome{
		Status:   StatusComplete,
		Template: t,
		Draft:    Render(t.Body, req.Context),
	}, nil
}

// IngestIndexUpdate makes a stored template discoverable by the matcher.
// It must only be called after the store write has committed.
func (c *Controller) IngestIndexUpdate(ctx context.Context, t *domain.Template) error {
	if c.index == nil {
		return errors.New("similarity index not configured")
	}
	return c.index.Upsert(ctx, domain.IndexEntry{TemplateID: t.ID, Text: t.Projection()})
}
