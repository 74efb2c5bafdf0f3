package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/tintypelabs/tintype/pkg/session"
)

// sessionKey is the cookie field binding a browser to its active session.
const sessionKey = "session_id"

type SessionHandler struct {
	Store *session.Store
}

type createSessionRequest struct {
	GroupName *string `json:"group_name"`
}

func (h *SessionHandler) Create(c *gin.Context) {
	var req createSessionRequest
	c.ShouldBindJSON(&req)

	sess := session.New()
	sess.GroupName = req.GroupName
	if err := h.Store.Create(c.Request.Context(), sess); err != nil {
		respondFailure(c, err)
		return
	}

	cookie := sessions.Default(c)
	cookie.Set(sessionKey, sess.ID)
	if err := cookie.Save(); err != nil {
		slog.Error("Failed to save session cookie", "error", err)
	}

	respondOK(c, gin.H{"session": sess})
}

func (h *SessionHandler) Get(c *gin.Context) {
	sess, err := h.Store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondFailure(c, err)
		return
	}
	respondOK(c, gin.H{"session": sess})
}

type updateSessionRequest struct {
	GroupName *string `json:"group_name"`
	Weapon    *int    `json:"weapon"`
	Land      *int    `json:"land"`
	Companion *int    `json:"companion"`
	Email     *string `json:"email"`
	StoryText *string `json:"story_text"`
	Headline  *string `json:"headline"`
}

func (h *SessionHandler) Update(c *gin.Context) {
	var req updateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	if req.GroupName == nil && req.Weapon == nil && req.Land == nil &&
		req.Companion == nil && req.Email == nil &&
		req.StoryText == nil && req.Headline == nil {
		respondError(c, http.StatusBadRequest, fmt.Errorf("%w: update sets no fields", session.ErrMissingField))
		return
	}

	for _, choice := range []struct {
		name string
		v    *int
	}{
		{"weapon", req.Weapon},
		{"land", req.Land},
		{"companion", req.Companion},
	} {
		if choice.v == nil {
			continue
		}
		if err := session.ValidateChoice(choice.name, *choice.v); err != nil {
			respondError(c, http.StatusBadRequest, err)
			return
		}
	}

	sess, err := h.Store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondFailure(c, err)
		return
	}

	if req.GroupName != nil {
		sess.GroupName = req.GroupName
	}
	if req.Weapon != nil {
		sess.Weapon = req.Weapon
	}
	if req.Land != nil {
		sess.Land = req.Land
	}
	if req.Companion != nil {
		sess.Companion = req.Companion
	}
	if req.Email != nil {
		sess.Email = req.Email
	}
	if req.StoryText != nil {
		sess.StoryText = req.StoryText
	}
	if req.Headline != nil {
		sess.Headline = req.Headline
	}

	if err := h.Store.Update(c.Request.Context(), sess); err != nil {
		respondFailure(c, err)
		return
	}
	respondOK(c, gin.H{"session": sess})
}

// Story rolls the poster text for the session's selections and persists it.
func (h *SessionHandler) Story(c *gin.Context) {
	sess, err := h.Store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondFailure(c, err)
		return
	}

	if err := sess.GenerateStory(); err != nil {
		respondFailure(c, err)
		return
	}
	if err := h.Store.Update(c.Request.Context(), sess); err != nil {
		respondFailure(c, err)
		return
	}
	respondOK(c, gin.H{"story_text": sess.StoryText, "headline": sess.Headline})
}
