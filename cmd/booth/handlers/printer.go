package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/tintypelabs/tintype/pkg/printer"
	"github.com/tintypelabs/tintype/pkg/session"
	"github.com/tintypelabs/tintype/pkg/storage"
	"github.com/tintypelabs/tintype/pkg/template"
)

var printsCounter metric.Int64Counter

func init() {
	var err error
	meter := otel.Meter("github.com/tintypelabs/tintype/cmd/booth")
	printsCounter, err = meter.Int64Counter("booth.prints",
		metric.WithDescription("Total number of print jobs submitted"),
		metric.WithUnit("{jobs}"),
	)
	if err != nil {
		slog.Error("Failed to create print metrics", "error", err)
	}
}

type PrintHandler struct {
	Store      *session.Store
	Root       *storage.Root
	Dispatcher printer.Dispatcher
	Compositor *template.Compositor

	PaperSize  string
	Resolution string
}

type printRequest struct {
	SessionID string `json:"session_id"`
	Copies    int    `json:"copies"`
}

// Print composes the session card and hands it to the spooler. The composed
// file stays on disk for the maintenance sweep so a reprint does not redo
// the layout work while the visitor is still at the kiosk.
func (h *PrintHandler) Print(c *gin.Context) {
	var req printRequest
	c.ShouldBindJSON(&req)

	ctx := c.Request.Context()
	sess, name, err := h.composeCard(ctx, h.boundSession(c, req.SessionID))
	if err != nil {
		respondFailure(c, err)
		return
	}

	path, err := h.Root.Resolve(name)
	if err != nil {
		respondFailure(c, err)
		return
	}

	copies := req.Copies
	if copies < 1 {
		copies = 1
	}
	job, err := h.Dispatcher.Submit(ctx, path, printer.Options{
		Copies:     copies,
		PaperSize:  h.PaperSize,
		Resolution: h.Resolution,
	})
	if err != nil {
		respondFailure(c, err)
		return
	}
	printsCounter.Add(ctx, 1)

	count, err := h.Store.RecordPrint(ctx, sess.ID)
	if err != nil {
		slog.Error("print submitted but not recorded", "session", sess.ID, "error", err)
		count = sess.CopiesPrinted
	}

	slog.Info("print submitted", "job", job.ID, "printer", job.Target, "session", sess.ID)
	respondOK(c, gin.H{
		"job":            job.ID,
		"printer":        job.Target,
		"copies_printed": count,
	})
}

// Preview composes the card without printing and returns its image URL.
func (h *PrintHandler) Preview(c *gin.Context) {
	var req printRequest
	c.ShouldBindJSON(&req)

	_, name, err := h.composeCard(c.Request.Context(), h.boundSession(c, req.SessionID))
	if err != nil {
		respondFailure(c, err)
		return
	}
	respondOK(c, gin.H{"preview": name, "url": "/images/" + name})
}

// composeCard renders print_<unix>.png for a session that has a photo and a
// story. The group name, headline and story all come from the session row.
func (h *PrintHandler) composeCard(ctx context.Context, sessionID string) (*session.Session, string, error) {
	if sessionID == "" {
		return nil, "", fmt.Errorf("%w: session_id", session.ErrMissingField)
	}
	sess, err := h.Store.Get(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}
	if sess.PhotoPath == nil {
		return nil, "", fmt.Errorf("%w: photo not captured yet", session.ErrMissingField)
	}
	if sess.StoryText == nil || sess.Headline == nil {
		return nil, "", fmt.Errorf("%w: story not generated yet", session.ErrMissingField)
	}

	name := fmt.Sprintf("print_%d.png", time.Now().Unix())
	outPath, err := h.Root.Resolve(name)
	if err != nil {
		return nil, "", err
	}

	groupName := ""
	if sess.GroupName != nil {
		groupName = *sess.GroupName
	}
	if err := h.Compositor.ComposeFile(*sess.PhotoPath, outPath, groupName, *sess.Headline, *sess.StoryText); err != nil {
		return nil, "", err
	}
	return sess, name, nil
}

func (h *PrintHandler) boundSession(c *gin.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if id, ok := sessions.Default(c).Get(sessionKey).(string); ok {
		return id
	}
	return ""
}
