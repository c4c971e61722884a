package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"legaldraft/internal/apperrors"
	"legaldraft/internal/drafting"
	"legaldraft/internal/logger"
	"legaldraft/internal/session"
)

const (
	msgInProgress = "Please provide the following information."
	msgComplete   = "Draft generated successfully."
)

// DraftInput is one drafting turn as received from a client.
type DraftInput struct {
	Query      string
	Context    map[string]any
	TemplateID int64
	SessionID  string
}

// DraftResult is what the client sees for one turn.
type DraftResult struct {
	Status     string
	Message    string
	Questions  []string
	Missing    []string
	Draft      string
	TemplateID int64
	SessionID  string
}

// Drafter runs drafting turns, optionally accumulating context in sessions.
type Drafter struct {
	controller *drafting.Controller
	sessions   session.Store
}

// NewDrafter creates a Drafter. With a nil session store every turn is stateless.
func NewDrafter(c *drafting.Controller, sessions session.Store) *Drafter {
	return &Drafter{controller: c, sessions: sessions}
}

// Draft resolves one turn. A known session contributes its context and pins its
// template; context sent with the request overrides stored values.
func (d *Drafter) Draft(ctx context.Context, in DraftInput) (*DraftResult, error) {
	req := drafting.Request{
		Query:      strings.TrimSpace(in.Query),
		Context:    in.Context,
		TemplateID: in.TemplateID,
	}
	sess, err := d.loadSession(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	if sess != nil {
		req.Context = session.MergeContext(sess.Context, in.Context)
		if req.TemplateID == 0 {
			req.TemplateID = sess.TemplateID
		}
		if req.Query == "" {
			req.Query = sess.Query
		}
	}
	if req.Context == nil {
		req.Context = map[string]any{}
	}
	if req.Query == "" && req.TemplateID == 0 {
		return nil, apperrors.InvalidRequest("query is required")
	}

	out, err := d.controller.MatchAndResolve(ctx, req)
	if err != nil {
		if errors.Is(err, drafting.ErrIndexUnavailable) {
			return nil, apperrors.IndexUnavailable(err)
		}
		return nil, apperrors.StoreUnavailable(err)
	}

	switch out.Status {
	case drafting.StatusAwaitingInput:
		res := &DraftResult{
			Status:     out.Status.String(),
			Message:    msgInProgress,
			Questions:  out.Questions,
			Missing:    make([]string, len(out.Missing)),
			TemplateID: out.TemplateID(),
		}
		for i, v := range out.Missing {
			res.Missing[i] = v.Key
		}
		if d.sessions != nil {
			id := in.SessionID
			if sess == nil || id == "" {
				id = uuid.NewString()
			}
			if err := d.sessions.Save(ctx, &session.Session{
				ID:         id,
				TemplateID: out.TemplateID(),
				Query:      req.Query,
				Context:    req.Context,
			}); err != nil {
				logger.Warn("Session save failed", zap.String("session_id", id), zap.Error(err))
			} else {
				res.SessionID = id
			}
		}
		return res, nil

	case drafting.StatusComplete:
		d.dropSession(ctx, sess)
		return &DraftResult{
			Status:     out.Status.String(),
			Message:    msgComplete,
			Draft:      out.Draft,
			TemplateID: out.TemplateID(),
		}, nil

	default:
		d.dropSession(ctx, sess)
		return nil, apperrors.TemplateNotFound()
	}
}

func (d *Drafter) loadSession(ctx context.Context, id string) (*session.Session, error) {
	if d.sessions == nil || id == "" {
		return nil, nil
	}
	sess, err := d.sessions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			logger.Debug("Unknown or expired session", zap.String("session_id", id))
			return nil, nil
		}
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "session store unavailable", http.StatusInternalServerError)
	}
	return sess, nil
}

func (d *Drafter) dropSession(ctx context.Context, sess *session.Session) {
	if d.sessions == nil || sess == nil {
		return
	}
	if err := d.sessions.Delete(ctx, sess.ID); err != nil {
		logger.Warn("Session delete failed", zap.String("session_id", sess.ID), zap.Error(err))
	}
}
